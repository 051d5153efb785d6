package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"feedplanner/internal/domain"
)

type stubExecutor struct {
	token string
	err   error
	exec  struct {
		query string
		args  []any
	}
}

func (s *stubExecutor) Exec(ctx context.Context, query string, args ...any) (pgconn.CommandTag, error) {
	s.exec.query = query
	s.exec.args = args
	return pgconn.CommandTag{}, s.err
}

func (s *stubExecutor) QueryRow(ctx context.Context, query string, args ...any) pgx.Row {
	return stubRow{token: s.token, err: s.err}
}

func (s *stubExecutor) Query(ctx context.Context, query string, args ...any) (pgx.Rows, error) {
	return nil, errors.New("not implemented")
}

type stubRow struct {
	token string
	err   error
}

func (r stubRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	if len(dest) == 0 {
		return errors.New("no dest")
	}
	ptr, ok := dest[0].(*string)
	if !ok {
		return errors.New("invalid dest")
	}
	*ptr = r.token
	return nil
}

func TestToken(t *testing.T) {
	store := NewStore(&stubExecutor{token: " r8_abc123 "})
	key, err := store.Token(context.Background(), ProviderPrediction)
	if err != nil {
		t.Fatalf("Token error: %v", err)
	}
	if key != "r8_abc123" {
		t.Fatalf("expected r8_abc123, got %q", key)
	}
}

func TestResolveFallsBackToEnv(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "no rows", err: pgx.ErrNoRows},
		{name: "table missing", err: &pgconn.PgError{Code: "42P01"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore(&stubExecutor{err: tc.err})
			key, err := store.Resolve(context.Background(), ProviderGemini, " env-key ")
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			if key != "env-key" {
				t.Fatalf("expected env-key, got %q", key)
			}
		})
	}
}

func TestResolvePrefersStoredKey(t *testing.T) {
	store := NewStore(&stubExecutor{token: "stored"})
	key, err := store.Resolve(context.Background(), ProviderOpenAI, "env-key")
	if err != nil || key != "stored" {
		t.Fatalf("Resolve = (%q, %v), want stored", key, err)
	}
}

func TestResolveReportsQueryErrors(t *testing.T) {
	boom := errors.New("connection reset")
	store := NewStore(&stubExecutor{err: boom})
	key, err := store.Resolve(context.Background(), ProviderOpenAI, "env-key")
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped error, got %v", err)
	}
	if key != "env-key" {
		t.Fatalf("expected env fallback alongside error, got %q", key)
	}
}

func TestSet(t *testing.T) {
	exec := &stubExecutor{}
	store := NewStore(exec)
	store.now = func() time.Time { return time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC) }
	if err := store.Set(context.Background(), ProviderPrediction, " secret ", "ops@example.com"); err != nil {
		t.Fatalf("Set error: %v", err)
	}
	if len(exec.exec.args) != 3 {
		t.Fatalf("expected 3 args, got %d", len(exec.exec.args))
	}
	if v, ok := exec.exec.args[1].(string); !ok || v != "secret" {
		t.Fatalf("expected secret argument, got %T %v", exec.exec.args[1], exec.exec.args[1])
	}
	var props map[string]string
	if err := json.Unmarshal(exec.exec.args[2].([]byte), &props); err != nil {
		t.Fatalf("props: %v", err)
	}
	if props["rotated_at"] != "2026-10-01T08:00:00Z" || props["rotated_by"] != "ops@example.com" {
		t.Fatalf("props = %v", props)
	}
}

func TestSetRejects(t *testing.T) {
	tests := []struct {
		name     string
		provider string
		key      string
	}{
		{name: "empty key", provider: ProviderGemini, key: " "},
		{name: "unknown provider", provider: "qwen", key: "secret"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			store := NewStore(&stubExecutor{})
			if err := store.Set(context.Background(), tc.provider, tc.key, ""); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}
