// Package feeds owns the feed lifecycle: creation with placeholder posts,
// background prompt and caption generation, and the optional auto-queue.
package feeds

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"feedplanner/internal/dispatch"
	"feedplanner/internal/domain"
	"feedplanner/internal/pregen"
	"feedplanner/internal/providers/caption"
	"feedplanner/internal/templates"
)

// DefaultCaptionConcurrency bounds parallel caption requests per feed.
const DefaultCaptionConcurrency = 3

// Repository is the slice of the feed repository the service uses.
type Repository interface {
	CreateWithPosts(ctx context.Context, layout *domain.FeedLayout) (string, error)
	ListPosts(ctx context.Context, feedID string) ([]domain.FeedPost, error)
	SavePostCaption(ctx context.Context, postID, caption string) error
	MarkLayoutReady(ctx context.Context, feedID, templateKey string) error
	MarkLayoutFailed(ctx context.Context, feedID, reason string) error
}

// PromptGenerator writes the nine prompts of a feed.
type PromptGenerator interface {
	PreGenerateAllPrompts(ctx context.Context, req pregen.Request) (pregen.Result, error)
}

// Queuer submits a feed's posts for image generation.
type Queuer interface {
	QueueFeed(ctx context.Context, feedLayoutID, userID string) (dispatch.Summary, error)
}

// Options configures a Service.
type Options struct {
	Feeds              Repository
	Users              domain.UserResolver
	Prompts            PromptGenerator
	Captions           caption.Captioner
	Fallback           caption.Captioner
	Queue              Queuer
	CaptionConcurrency int
	Logger             zerolog.Logger
}

// Service runs feed creation and processing.
type Service struct {
	feeds       Repository
	users       domain.UserResolver
	prompts     PromptGenerator
	captions    caption.Captioner
	fallback    caption.Captioner
	queue       Queuer
	concurrency int
	logger      zerolog.Logger
}

// NewService constructs a Service. Captions default to the static captioner.
func NewService(opts Options) *Service {
	s := &Service{
		feeds:       opts.Feeds,
		users:       opts.Users,
		prompts:     opts.Prompts,
		captions:    opts.Captions,
		fallback:    opts.Fallback,
		queue:       opts.Queue,
		concurrency: opts.CaptionConcurrency,
		logger:      opts.Logger,
	}
	if s.fallback == nil {
		s.fallback = caption.NewStaticCaptioner()
	}
	if s.captions == nil {
		s.captions = s.fallback
	}
	if s.concurrency <= 0 {
		s.concurrency = DefaultCaptionConcurrency
	}
	return s
}

// CreateRequest is a feed creation request.
type CreateRequest struct {
	UserID    string
	FeedStyle string
	Settings  domain.CustomSettings
	Locale    string
}

// CreateFeed validates the request and persists a processing layout with nine
// pending posts.
func (s *Service) CreateFeed(ctx context.Context, req CreateRequest) (string, error) {
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		return "", fmt.Errorf("feeds: %w: user is required", domain.ErrInvalidInput)
	}
	feedStyle := strings.TrimSpace(req.FeedStyle)
	if _, err := templates.MoodFor(feedStyle); err != nil {
		return "", err
	}
	settings := req.Settings
	switch settings.Mode {
	case "":
		settings.Mode = domain.ModeClassic
	case domain.ModeClassic, domain.ModePro:
	default:
		return "", fmt.Errorf("feeds: %w: mode %q", domain.ErrInvalidInput, settings.Mode)
	}
	for _, p := range settings.ProPositions {
		if p < 1 || p > domain.PostsPerFeed {
			return "", fmt.Errorf("feeds: pro position %d: %w", p, domain.ErrInvalidPosition)
		}
	}
	settings.FashionStyle = strings.ToLower(strings.TrimSpace(settings.FashionStyle))

	id, err := s.feeds.CreateWithPosts(ctx, &domain.FeedLayout{
		UserID:       userID,
		FeedStyle:    feedStyle,
		FashionStyle: settings.FashionStyle,
		Status:       domain.FeedStatusProcessing,
		Settings:     settings,
		Locale:       req.Locale,
	})
	if err != nil {
		return "", fmt.Errorf("feeds: create: %w", err)
	}
	s.logger.Info().Str("feed_id", id).Str("user_id", userID).Str("feed_style", feedStyle).Msg("feeds: layout created")
	return id, nil
}

// ProcessResult reports a processing pass.
type ProcessResult struct {
	Prompts   pregen.Result
	Captioned int
	Queue     *dispatch.Summary
	QueueErr  error
}

// ProcessFeed pre-generates prompts, writes captions and marks the layout
// ready. A prompt failure marks the layout failed. Caption and auto-queue
// failures are logged and never fail the layout.
func (s *Service) ProcessFeed(ctx context.Context, layout *domain.FeedLayout) (ProcessResult, error) {
	var out ProcessResult
	log := s.logger.With().Str("feed_id", layout.ID).Str("user_id", layout.UserID).Logger()

	res, err := s.prompts.PreGenerateAllPrompts(ctx, pregen.Request{
		FeedID:       layout.ID,
		UserID:       layout.UserID,
		FeedStyle:    layout.FeedStyle,
		FashionStyle: layout.FashionStyle,
	})
	out.Prompts = res
	if err != nil {
		log.Error().Err(err).Msg("feeds: prompt generation failed")
		if markErr := s.feeds.MarkLayoutFailed(context.WithoutCancel(ctx), layout.ID, err.Error()); markErr != nil {
			log.Error().Err(markErr).Msg("feeds: mark layout failed")
		}
		return out, err
	}

	out.Captioned = s.writeCaptions(ctx, layout, res.Vibe, log)

	if err := s.feeds.MarkLayoutReady(ctx, layout.ID, res.TemplateKey); err != nil {
		return out, fmt.Errorf("feeds: mark ready: %w", err)
	}
	log.Info().Str("template", res.TemplateKey).Int("captioned", out.Captioned).Msg("feeds: layout ready")

	if layout.Settings.AutoQueue && s.queue != nil {
		summary, err := s.queue.QueueFeed(ctx, layout.ID, layout.UserID)
		out.Queue = &summary
		if err != nil {
			out.QueueErr = err
			log.Warn().Err(err).Str("code", domain.FailureCode(err)).Msg("feeds: auto queue failed")
		}
	}
	return out, nil
}

// writeCaptions captions every post that has a prompt, bounded by the
// configured concurrency. It returns the number of captions stored.
func (s *Service) writeCaptions(ctx context.Context, layout *domain.FeedLayout, vibe string, log zerolog.Logger) int {
	posts, err := s.feeds.ListPosts(ctx, layout.ID)
	if err != nil {
		log.Error().Err(err).Msg("feeds: list posts for captions failed")
		return 0
	}

	locale, tone := layout.Locale, ""
	if s.users != nil {
		if profile, err := s.users.Profile(ctx, layout.UserID); err == nil {
			if locale == "" {
				locale = profile.Locale
			}
			if profile.BrandKit != nil {
				tone = profile.BrandKit.Tone
			}
		}
	}

	var stored atomic.Int32
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for _, post := range posts {
		if strings.TrimSpace(post.Prompt) == "" {
			continue
		}
		post := post
		g.Go(func() error {
			req := caption.Request{
				Prompt:    post.Prompt,
				ShotType:  post.ShotType,
				Position:  post.Position,
				Vibe:      vibe,
				FeedStyle: layout.FeedStyle,
				Tone:      tone,
				Locale:    locale,
			}
			resp, err := s.captions.Caption(gctx, req)
			if err != nil || resp == nil {
				log.Warn().Err(err).Int("position", post.Position).Msg("feeds: caption failed, using fallback")
				if resp, err = s.fallback.Caption(gctx, req); err != nil {
					log.Error().Err(err).Int("position", post.Position).Msg("feeds: fallback caption failed")
					return nil
				}
			}
			if err := s.feeds.SavePostCaption(gctx, post.ID, resp.Text()); err != nil {
				log.Error().Err(err).Int("position", post.Position).Msg("feeds: save caption failed")
				return nil
			}
			stored.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	return int(stored.Load())
}
