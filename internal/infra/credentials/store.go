// Package credentials reads and rotates provider API keys kept in the
// integration_tokens table. Keys stored there override the environment.
package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"feedplanner/internal/domain"
	"feedplanner/internal/infra"
	"feedplanner/internal/sqlinline"
)

const (
	ProviderPrediction = "prediction"
	ProviderGemini     = "gemini"
	ProviderOpenAI     = "openai"
)

// Providers lists the provider names a key can be stored for.
func Providers() []string {
	return []string{ProviderPrediction, ProviderGemini, ProviderOpenAI}
}

type Store struct {
	sql infra.SQLExecutor
	now func() time.Time
}

func NewStore(sql infra.SQLExecutor) *Store {
	return &Store{sql: sql, now: time.Now}
}

// Token returns the stored key for provider, or "" when none is stored.
func (s *Store) Token(ctx context.Context, provider string) (string, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QSelectIntegrationToken, provider)
	var token string
	if err := row.Scan(&token); err != nil {
		if infra.IsNoRows(err) || infra.IsUndefinedTable(err) {
			return "", nil
		}
		return "", fmt.Errorf("credentials: %s: %w", provider, err)
	}
	return strings.TrimSpace(token), nil
}

// Resolve prefers the stored key and falls back to envValue.
func (s *Store) Resolve(ctx context.Context, provider, envValue string) (string, error) {
	token, err := s.Token(ctx, provider)
	if err != nil {
		return strings.TrimSpace(envValue), err
	}
	if token != "" {
		return token, nil
	}
	return strings.TrimSpace(envValue), nil
}

// Set stores key for provider and records who rotated it.
func (s *Store) Set(ctx context.Context, provider, key, rotatedBy string) error {
	if !knownProvider(provider) {
		return fmt.Errorf("credentials: %w: unknown provider %q", domain.ErrInvalidInput, provider)
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return fmt.Errorf("credentials: %w: %s api key is required", domain.ErrInvalidInput, provider)
	}
	props := map[string]any{"rotated_at": s.now().UTC().Format(time.RFC3339)}
	if rotatedBy = strings.TrimSpace(rotatedBy); rotatedBy != "" {
		props["rotated_by"] = rotatedBy
	}
	return s.upsert(ctx, provider, key, props)
}

func knownProvider(provider string) bool {
	for _, p := range Providers() {
		if p == provider {
			return true
		}
	}
	return false
}

func (s *Store) upsert(ctx context.Context, provider, token string, props map[string]any) error {
	payload := props
	if payload == nil {
		payload = map[string]any{}
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err = s.sql.Exec(ctx, sqlinline.QUpsertIntegrationToken, provider, token, raw); err != nil {
		return fmt.Errorf("credentials: store %s: %w", provider, err)
	}
	return nil
}
