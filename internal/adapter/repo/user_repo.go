package repo

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"feedplanner/internal/domain"
	"feedplanner/internal/infra"
	"feedplanner/internal/sqlinline"
)

// DefaultProfileTTL bounds how stale a cached profile may be.
const DefaultProfileTTL = 30 * time.Second

// ProfileRepositoryPG implements domain.UserResolver with a short-lived
// in-process cache in front of PostgreSQL.
type ProfileRepositoryPG struct {
	sql   infra.SQLExecutor
	cache *cache.Cache
}

// NewProfileRepository creates a profile resolver. A ttl of zero uses
// DefaultProfileTTL; a negative ttl disables caching.
func NewProfileRepository(sql infra.SQLExecutor, ttl time.Duration) *ProfileRepositoryPG {
	r := &ProfileRepositoryPG{sql: sql}
	if ttl == 0 {
		ttl = DefaultProfileTTL
	}
	if ttl > 0 {
		r.cache = cache.New(ttl, 2*ttl)
	}
	return r
}

// Profile returns the generation profile of userID.
func (r *ProfileRepositoryPG) Profile(ctx context.Context, userID string) (*domain.UserProfile, error) {
	if r.cache != nil {
		if v, ok := r.cache.Get(userID); ok {
			p := *v.(*domain.UserProfile)
			return &p, nil
		}
	}

	var (
		p                                domain.UserProfile
		modelID, trigger, version        string
		hasKit                           bool
		primary, secondary, accent, tone string
	)
	err := r.sql.QueryRow(ctx, sqlinline.QUserSelectProfile, userID).Scan(
		&p.ID,
		&p.BrandAesthetic,
		&p.FashionStyle,
		&p.Gender,
		&p.Ethnicity,
		&p.Locale,
		&modelID,
		&trigger,
		&version,
		&p.ReferenceImages,
		&hasKit,
		&primary,
		&secondary,
		&accent,
		&tone,
	)
	if err != nil {
		if infra.IsNoRows(err) || infra.IsInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select user profile: %w", err)
	}
	if modelID != "" {
		p.Model = &domain.TrainedModel{ID: modelID, TriggerWord: trigger, ModelVersion: version}
	}
	if hasKit {
		p.BrandKit = &domain.BrandKit{PrimaryColor: primary, SecondaryColor: secondary, AccentColor: accent, Tone: tone}
	}

	if r.cache != nil {
		stored := p
		r.cache.SetDefault(userID, &stored)
	}
	return &p, nil
}

// Invalidate drops the cached profile of userID.
func (r *ProfileRepositoryPG) Invalidate(userID string) {
	if r.cache != nil {
		r.cache.Delete(userID)
	}
}

var _ domain.UserResolver = (*ProfileRepositoryPG)(nil)
