package rotation

import (
	"context"
	"sync"
	"time"

	"feedplanner/internal/domain"
)

// MemoryStore is an in-process domain.RotationStore.
type MemoryStore struct {
	mu     sync.Mutex
	states map[domain.RotationKey]domain.RotationState
	now    func() time.Time
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{states: make(map[domain.RotationKey]domain.RotationState), now: time.Now}
}

func (s *MemoryStore) Ensure(_ context.Context, key domain.RotationKey) (domain.RotationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st, ok := s.states[key]
	if !ok {
		st = domain.RotationState{RotationKey: key}
		s.states[key] = st
	}
	return st, nil
}

func (s *MemoryStore) Add(_ context.Context, key domain.RotationKey, delta domain.RotationDelta) (domain.RotationState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.states[key]
	st.RotationKey = key
	st.OutfitIndex += delta.Outfit
	st.LocationIndex += delta.Location
	st.AccessoryIndex += delta.Accessory
	st.TotalGenerations++
	st.LastUsedAt = s.now()
	s.states[key] = st
	return st, nil
}

func (s *MemoryStore) Reset(_ context.Context, userID, vibe, fashionStyle string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for k, st := range s.states {
		if k.UserID != userID {
			continue
		}
		if vibe != "" && (k.Vibe != vibe || k.FashionStyle != fashionStyle) {
			continue
		}
		st.OutfitIndex, st.LocationIndex, st.AccessoryIndex = 0, 0, 0
		s.states[k] = st
		n++
	}
	return n, nil
}

var _ domain.RotationStore = (*MemoryStore)(nil)
