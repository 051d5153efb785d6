package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"feedplanner/internal/domain"
	"feedplanner/internal/infra"
	"feedplanner/internal/sqlinline"
)

// RotationStorePG implements domain.RotationStore on feed_rotation_state.
type RotationStorePG struct {
	sql infra.SQLExecutor
}

// NewRotationStore creates a rotation store over the given executor.
func NewRotationStore(sql infra.SQLExecutor) *RotationStorePG {
	return &RotationStorePG{sql: sql}
}

func (s *RotationStorePG) Ensure(ctx context.Context, key domain.RotationKey) (domain.RotationState, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QRotationEnsure, key.UserID, key.Vibe, key.FashionStyle)
	return scanRotation(key, row, "ensure")
}

// Add increments the cursors at the storage layer, so concurrent feeds never
// lose an update.
func (s *RotationStorePG) Add(ctx context.Context, key domain.RotationKey, delta domain.RotationDelta) (domain.RotationState, error) {
	row := s.sql.QueryRow(ctx, sqlinline.QRotationAdd,
		key.UserID, key.Vibe, key.FashionStyle,
		delta.Outfit, delta.Location, delta.Accessory,
	)
	return scanRotation(key, row, "add")
}

func (s *RotationStorePG) Reset(ctx context.Context, userID, vibe, fashionStyle string) (int64, error) {
	tag, err := s.sql.Exec(ctx, sqlinline.QRotationReset, userID, vibe, fashionStyle)
	if err != nil {
		return 0, rotationErr("reset", err)
	}
	return tag.RowsAffected(), nil
}

func scanRotation(key domain.RotationKey, row pgx.Row, op string) (domain.RotationState, error) {
	st := domain.RotationState{RotationKey: key}
	var lastUsed *time.Time
	if err := row.Scan(&st.OutfitIndex, &st.LocationIndex, &st.AccessoryIndex, &st.TotalGenerations, &lastUsed); err != nil {
		return domain.RotationState{}, rotationErr(op, err)
	}
	if lastUsed != nil {
		st.LastUsedAt = *lastUsed
	}
	return st, nil
}

// rotationErr maps a missing table to domain.ErrStoreUnavailable so callers
// can fall back to the zero state.
func rotationErr(op string, err error) error {
	if infra.IsUndefinedTable(err) {
		return fmt.Errorf("rotation %s: %w: %v", op, domain.ErrStoreUnavailable, err)
	}
	if infra.IsInvalidText(err) {
		return fmt.Errorf("rotation %s: %w: %v", op, domain.ErrInvalidInput, err)
	}
	return fmt.Errorf("rotation %s: %w", op, err)
}

var _ domain.RotationStore = (*RotationStorePG)(nil)
