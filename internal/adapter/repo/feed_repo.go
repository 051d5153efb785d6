package repo

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"feedplanner/internal/domain"
	"feedplanner/internal/infra"
	"feedplanner/internal/sqlinline"
)

// FeedRepositoryPG implements domain.FeedRepository.
type FeedRepositoryPG struct {
	sql infra.SQLExecutor
}

// NewFeedRepository creates a feed repository over the given executor.
func NewFeedRepository(sql infra.SQLExecutor) *FeedRepositoryPG {
	return &FeedRepositoryPG{sql: sql}
}

// CreateWithPosts inserts the layout with its nine pending posts and returns
// the new layout id.
func (r *FeedRepositoryPG) CreateWithPosts(ctx context.Context, layout *domain.FeedLayout) (string, error) {
	if layout == nil {
		return "", fmt.Errorf("feed layout is required: %w", domain.ErrInvalidInput)
	}
	settings, err := json.Marshal(layout.Settings)
	if err != nil {
		return "", fmt.Errorf("encode custom settings: %w", err)
	}
	modes := make([]string, domain.PostsPerFeed)
	for i := range modes {
		modes[i] = string(layout.Settings.ModeFor(i + 1))
	}
	var id string
	err = r.sql.QueryRow(ctx, sqlinline.QFeedCreateWithPosts,
		layout.UserID,
		layout.FeedStyle,
		layout.FashionStyle,
		settings,
		layout.Locale,
		modes,
		layout.Settings.ProModeType,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create feed layout: %w", err)
	}
	return id, nil
}

// GetLayout returns the layout when it belongs to userID.
func (r *FeedRepositoryPG) GetLayout(ctx context.Context, feedID, userID string) (*domain.FeedLayout, error) {
	layout, err := scanLayout(r.sql.QueryRow(ctx, sqlinline.QFeedSelectLayout, feedID, userID))
	if err != nil {
		if infra.IsNoRows(err) || infra.IsInvalidText(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("select feed layout: %w", err)
	}
	return layout, nil
}

// ListPosts returns the posts of a layout ordered by position.
func (r *FeedRepositoryPG) ListPosts(ctx context.Context, feedID string) ([]domain.FeedPost, error) {
	rows, err := r.sql.Query(ctx, sqlinline.QFeedListPosts, feedID)
	if err != nil {
		return nil, fmt.Errorf("list feed posts: %w", err)
	}
	defer rows.Close()

	var posts []domain.FeedPost
	for rows.Next() {
		var (
			p                  domain.FeedPost
			mode, shot, status string
		)
		if err := rows.Scan(
			&p.ID,
			&p.FeedLayoutID,
			&p.UserID,
			&p.Position,
			&mode,
			&p.ProModeType,
			&shot,
			&p.Prompt,
			&p.Caption,
			&status,
			&p.PredictionID,
			&p.ImageURL,
			&p.ErrorMessage,
			&p.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan feed post: %w", err)
		}
		p.Mode = domain.GenerationMode(mode)
		p.ShotType = domain.ShotType(shot)
		p.Status = domain.PostStatus(status)
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate feed posts: %w", err)
	}
	return posts, nil
}

// SavePostPrompt stores the prompt and shot type of one position.
func (r *FeedRepositoryPG) SavePostPrompt(ctx context.Context, feedID string, position int, prompt string, shot domain.ShotType) error {
	if position < 1 || position > domain.PostsPerFeed {
		return domain.ErrInvalidPosition
	}
	tag, err := r.sql.Exec(ctx, sqlinline.QFeedSavePostPrompt, feedID, position, prompt, string(shot))
	if err != nil {
		return fmt.Errorf("save post prompt: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("post %d of feed %s: %w", position, feedID, domain.ErrNotFound)
	}
	return nil
}

func (r *FeedRepositoryPG) SavePostCaption(ctx context.Context, postID, caption string) error {
	return r.execOne(ctx, sqlinline.QFeedSavePostCaption, postID, caption)
}

// ClaimPost marks the post as being submitted. It reports false when the
// post is finished, in flight or claimed by another pass.
func (r *FeedRepositoryPG) ClaimPost(ctx context.Context, postID string) (bool, error) {
	var id string
	if err := r.sql.QueryRow(ctx, sqlinline.QFeedClaimPost, postID).Scan(&id); err != nil {
		if infra.IsNoRows(err) || infra.IsInvalidText(err) {
			return false, nil
		}
		return false, fmt.Errorf("claim post: %w", err)
	}
	return true, nil
}

func (r *FeedRepositoryPG) ReleasePost(ctx context.Context, postID string) error {
	if _, err := r.sql.Exec(ctx, sqlinline.QFeedReleasePost, postID); err != nil {
		return fmt.Errorf("release post: %w", err)
	}
	return nil
}

func (r *FeedRepositoryPG) MarkPostGenerating(ctx context.Context, postID, predictionID string) error {
	return r.execOne(ctx, sqlinline.QFeedMarkPostGenerating, postID, predictionID)
}

func (r *FeedRepositoryPG) MarkPostFailed(ctx context.Context, postID, reason string) error {
	return r.execOne(ctx, sqlinline.QFeedMarkPostFailed, postID, truncateReason(reason))
}

// CompletePrediction stores the output of a finished prediction. It reports
// false when no post was waiting on predictionID.
func (r *FeedRepositoryPG) CompletePrediction(ctx context.Context, predictionID, imageURL string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFeedCompletePrediction, predictionID, imageURL)
	if err != nil {
		return false, fmt.Errorf("complete prediction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// FailPrediction marks the post of a failed prediction.
func (r *FeedRepositoryPG) FailPrediction(ctx context.Context, predictionID, reason string) (bool, error) {
	tag, err := r.sql.Exec(ctx, sqlinline.QFeedFailPrediction, predictionID, truncateReason(reason))
	if err != nil {
		return false, fmt.Errorf("fail prediction: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *FeedRepositoryPG) MarkLayoutReady(ctx context.Context, feedID, templateKey string) error {
	return r.execOne(ctx, sqlinline.QFeedMarkLayoutReady, feedID, templateKey)
}

func (r *FeedRepositoryPG) MarkLayoutFailed(ctx context.Context, feedID, reason string) error {
	return r.execOne(ctx, sqlinline.QFeedMarkLayoutFailed, feedID, truncateReason(reason))
}

// ClaimProcessing claims the oldest unclaimed processing layout, or returns
// nil when there is none.
func (r *FeedRepositoryPG) ClaimProcessing(ctx context.Context) (*domain.FeedLayout, error) {
	layout, err := scanLayout(r.sql.QueryRow(ctx, sqlinline.QWorkerClaimFeed))
	if err != nil {
		if infra.IsNoRows(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("claim feed layout: %w", err)
	}
	return layout, nil
}

func (r *FeedRepositoryPG) execOne(ctx context.Context, query string, args ...any) error {
	tag, err := r.sql.Exec(ctx, query, args...)
	if err != nil {
		if infra.IsInvalidText(err) {
			return domain.ErrNotFound
		}
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanLayout(row pgx.Row) (*domain.FeedLayout, error) {
	var (
		l        domain.FeedLayout
		status   string
		settings []byte
	)
	if err := row.Scan(
		&l.ID,
		&l.UserID,
		&l.FeedStyle,
		&l.FashionStyle,
		&l.TemplateKey,
		&status,
		&settings,
		&l.Locale,
		&l.ErrorMessage,
		&l.CreatedAt,
		&l.UpdatedAt,
	); err != nil {
		return nil, err
	}
	l.Status = domain.FeedStatus(status)
	if len(settings) > 0 {
		if err := json.Unmarshal(settings, &l.Settings); err != nil {
			return nil, fmt.Errorf("decode custom settings: %w", err)
		}
	}
	return &l, nil
}

const maxReasonLength = 500

func truncateReason(reason string) string {
	reason = strings.TrimSpace(reason)
	if len(reason) <= maxReasonLength {
		return reason
	}
	return reason[:maxReasonLength]
}
