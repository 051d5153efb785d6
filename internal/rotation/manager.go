// Package rotation keeps per-(user, vibe, fashion style) cursors into the
// content library so repeated feeds surface different content.
package rotation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"feedplanner/internal/domain"
)

// Manager reads and advances rotation state through a Store.
type Manager struct {
	store  domain.RotationStore
	logger zerolog.Logger
}

// NewManager constructs a Manager.
func NewManager(store domain.RotationStore, logger zerolog.Logger) *Manager {
	return &Manager{store: store, logger: logger}
}

func key(userID, vibe, fashionStyle string) domain.RotationKey {
	return domain.RotationKey{
		UserID:       strings.TrimSpace(userID),
		Vibe:         strings.ToLower(strings.TrimSpace(vibe)),
		FashionStyle: strings.ToLower(strings.TrimSpace(fashionStyle)),
	}
}

// Get returns the cursors for the key, creating them at zero on first use.
// An unprovisioned store degrades to the zero state.
func (m *Manager) Get(ctx context.Context, userID, vibe, fashionStyle string) (domain.RotationState, error) {
	k := key(userID, vibe, fashionStyle)
	if k.UserID == "" || k.Vibe == "" {
		return domain.RotationState{}, fmt.Errorf("rotation: %w: user and vibe are required", domain.ErrInvalidInput)
	}
	state, err := m.store.Ensure(ctx, k)
	if err != nil {
		if errors.Is(err, domain.ErrStoreUnavailable) {
			m.logger.Warn().Err(err).
				Str("user_id", k.UserID).
				Str("vibe", k.Vibe).
				Str("fashion_style", k.FashionStyle).
				Msg("rotation: store unavailable, using zero state")
			return domain.RotationState{RotationKey: k}, nil
		}
		return domain.RotationState{}, fmt.Errorf("rotation: get: %w", err)
	}
	return state, nil
}

// Increment advances the cursors by the content one feed consumed. Call it
// once per completed feed, after its prompts are persisted.
func (m *Manager) Increment(ctx context.Context, userID, vibe, fashionStyle string) (domain.RotationState, error) {
	k := key(userID, vibe, fashionStyle)
	if k.UserID == "" || k.Vibe == "" {
		return domain.RotationState{}, fmt.Errorf("rotation: %w: user and vibe are required", domain.ErrInvalidInput)
	}
	state, err := m.store.Add(ctx, k, domain.FeedRotationDelta)
	if err != nil {
		return domain.RotationState{}, fmt.Errorf("rotation: increment: %w", err)
	}
	m.logger.Debug().
		Str("user_id", k.UserID).
		Str("vibe", k.Vibe).
		Str("fashion_style", k.FashionStyle).
		Int("outfit_index", state.OutfitIndex).
		Int("location_index", state.LocationIndex).
		Int("accessory_index", state.AccessoryIndex).
		Msg("rotation: advanced")
	return state, nil
}

// Reset zeroes one combo, or every combo of the user when vibe and style
// are both empty.
func (m *Manager) Reset(ctx context.Context, userID, vibe, fashionStyle string) (int64, error) {
	k := key(userID, vibe, fashionStyle)
	if k.UserID == "" {
		return 0, fmt.Errorf("rotation: %w: user is required", domain.ErrInvalidInput)
	}
	if (k.Vibe == "") != (k.FashionStyle == "") {
		return 0, fmt.Errorf("rotation: %w: vibe and fashion style must be given together", domain.ErrInvalidInput)
	}
	n, err := m.store.Reset(ctx, k.UserID, k.Vibe, k.FashionStyle)
	if err != nil {
		return 0, fmt.Errorf("rotation: reset: %w", err)
	}
	m.logger.Info().Str("user_id", k.UserID).Str("vibe", k.Vibe).Int64("rows", n).Msg("rotation: reset")
	return n, nil
}
