// Package dispatch submits a feed's pending posts to the image prediction API
// and settles their credit cost in one deduction.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"feedplanner/internal/domain"
	"feedplanner/internal/providers/prediction"
)

// Defaults applied by New.
const (
	DefaultClassicCost         = 1
	DefaultProCost             = 2
	DefaultSubmissionInterval  = 11 * time.Second
	DefaultMaxRateLimitRetries = 3
	DefaultRetryBuffer         = 2 * time.Second
	DefaultRetryAfter          = 10 * time.Second
	DefaultProModel            = "google/nano-banana-pro"

	// submitSlack covers the provider round trips of a batch when sizing
	// its worst-case duration.
	submitSlack = time.Minute

	creditReason = "feed_generation"
)

// PredictionSubmitter starts a prediction and returns its id.
type PredictionSubmitter interface {
	Submit(ctx context.Context, req prediction.Request) (string, error)
}

// PostStore is the slice of the feed repository used by the dispatcher.
type PostStore interface {
	GetLayout(ctx context.Context, feedID, userID string) (*domain.FeedLayout, error)
	ListPosts(ctx context.Context, feedID string) ([]domain.FeedPost, error)
	// ClaimPost atomically takes the post for this pass. False means the
	// post is finished, in flight or claimed by a concurrent pass.
	ClaimPost(ctx context.Context, postID string) (bool, error)
	ReleasePost(ctx context.Context, postID string) error
	MarkPostGenerating(ctx context.Context, postID, predictionID string) error
	MarkPostFailed(ctx context.Context, postID, reason string) error
}

// PostFailure describes a post that was not submitted.
type PostFailure struct {
	Position int    `json:"position"`
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Summary reports a dispatcher pass.
type Summary struct {
	FeedLayoutID   string        `json:"feed_layout_id"`
	QueuedCount    int           `json:"queued_count"`
	TotalPosts     int           `json:"total_posts"`
	FailedCount    int           `json:"failed_count"`
	SkippedCount   int           `json:"skipped_count,omitempty"`
	CreditsCharged int           `json:"credits_charged"`
	Failures       []PostFailure `json:"failures,omitempty"`
	CreditError    string        `json:"credit_error,omitempty"`
}

// Options configures a Dispatcher.
type Options struct {
	Posts               PostStore
	Users               domain.UserResolver
	Credits             domain.CreditLedger
	Predictions         PredictionSubmitter
	ProPrompts          ProPromptBuilder
	ProModel            string
	ClassicCost         int
	ProCost             int
	SubmissionInterval  time.Duration
	// MaxRateLimitRetries caps retries of a throttled submission. Nil
	// selects DefaultMaxRateLimitRetries; zero disables retrying.
	MaxRateLimitRetries *int
	RetryBuffer         time.Duration
	DefaultRetryAfter   time.Duration
	// Sleep waits between rate-limit retries. Defaults to a timer that
	// honours ctx.
	Sleep  func(ctx context.Context, d time.Duration) error
	Logger zerolog.Logger
}

// Dispatcher runs queue passes over feed layouts.
type Dispatcher struct {
	posts       PostStore
	users       domain.UserResolver
	credits     domain.CreditLedger
	predictions PredictionSubmitter
	proPrompts  ProPromptBuilder
	proModel    string
	classicCost int
	proCost     int
	interval    time.Duration
	maxRetries  int
	retryBuffer time.Duration
	retryAfter  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      zerolog.Logger
}

// New constructs a Dispatcher with defaults applied to zero options.
func New(opts Options) *Dispatcher {
	d := &Dispatcher{
		posts:       opts.Posts,
		users:       opts.Users,
		credits:     opts.Credits,
		predictions: opts.Predictions,
		proPrompts:  opts.ProPrompts,
		proModel:    strings.TrimSpace(opts.ProModel),
		classicCost: opts.ClassicCost,
		proCost:     opts.ProCost,
		interval:    opts.SubmissionInterval,
		maxRetries:  DefaultMaxRateLimitRetries,
		retryBuffer: opts.RetryBuffer,
		retryAfter:  opts.DefaultRetryAfter,
		sleep:       opts.Sleep,
		logger:      opts.Logger,
	}
	if d.proModel == "" {
		d.proModel = DefaultProModel
	}
	if d.classicCost <= 0 {
		d.classicCost = DefaultClassicCost
	}
	if d.proCost <= 0 {
		d.proCost = DefaultProCost
	}
	if d.interval <= 0 {
		d.interval = DefaultSubmissionInterval
	}
	if opts.MaxRateLimitRetries != nil {
		d.maxRetries = max(*opts.MaxRateLimitRetries, 0)
	}
	if d.retryBuffer < 0 {
		d.retryBuffer = 0
	} else if d.retryBuffer == 0 {
		d.retryBuffer = DefaultRetryBuffer
	}
	if d.retryAfter <= 0 {
		d.retryAfter = DefaultRetryAfter
	}
	if d.sleep == nil {
		d.sleep = sleepContext
	}
	return d
}

// MaxBatchDuration bounds a pass over a full feed: the pacing between
// submissions plus every allowed rate-limit wait at the default hint.
func (d *Dispatcher) MaxBatchDuration() time.Duration {
	n := time.Duration(domain.PostsPerFeed)
	retries := time.Duration(d.maxRetries)
	return (n-1)*d.interval + n*retries*(d.retryAfter+d.retryBuffer) + submitSlack
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

var errMissingPrompt = errors.New("post has no prompt")

type plannedPost struct {
	post domain.FeedPost
	mode domain.GenerationMode
}

// QueueFeed submits every eligible post of the layout. Preconditions are
// checked before any side effect; per-post failures never abort the batch.
// Each post is claimed before submission, so concurrent passes over one
// feed submit it at most once. Credits are deducted once, for successful
// submissions only.
func (d *Dispatcher) QueueFeed(ctx context.Context, feedLayoutID, userID string) (Summary, error) {
	summary := Summary{FeedLayoutID: feedLayoutID}
	log := d.logger.With().Str("feed_id", feedLayoutID).Str("user_id", userID).Logger()

	layout, err := d.posts.GetLayout(ctx, feedLayoutID, userID)
	if err != nil {
		return summary, fmt.Errorf("dispatch: load layout: %w", err)
	}
	if layout.Status != domain.FeedStatusReady {
		return summary, fmt.Errorf("dispatch: layout is %s: %w", layout.Status, domain.ErrLayoutNotReady)
	}
	posts, err := d.posts.ListPosts(ctx, feedLayoutID)
	if err != nil {
		return summary, fmt.Errorf("dispatch: list posts: %w", err)
	}

	var planned []plannedPost
	classic, pro := 0, 0
	for _, p := range posts {
		if !p.Queueable() {
			continue
		}
		mode := p.Mode
		if !mode.Valid() {
			mode = layout.Settings.ModeFor(p.Position)
		}
		planned = append(planned, plannedPost{post: p, mode: mode})
		if mode == domain.ModePro {
			pro++
		} else {
			classic++
		}
	}
	summary.TotalPosts = len(planned)
	if len(planned) == 0 {
		log.Info().Msg("dispatch: nothing to queue")
		return summary, nil
	}

	profile, err := d.users.Profile(ctx, userID)
	if err != nil {
		return summary, fmt.Errorf("dispatch: load profile: %w", err)
	}
	cost := classic*d.classicCost + pro*d.proCost
	ok, err := d.credits.CheckBalance(ctx, userID, cost)
	if err != nil {
		return summary, fmt.Errorf("dispatch: check balance: %w", err)
	}
	if !ok {
		return summary, fmt.Errorf("dispatch: %d credits needed: %w", cost, domain.ErrInsufficientCredits)
	}
	if classic > 0 && !profile.HasTrainedModel() {
		return summary, fmt.Errorf("dispatch: %d classic posts: %w", classic, domain.ErrNoTrainedModel)
	}
	if pro > 0 && len(profile.ReferenceImages) < minReferenceImagesForPro {
		return summary, fmt.Errorf("dispatch: %d of %d reference images: %w",
			len(profile.ReferenceImages), minReferenceImagesForPro, domain.ErrMissingReferenceImages)
	}

	log.Info().Int("classic", classic).Int("pro", pro).Int("estimated_credits", cost).Msg("dispatch: batch started")

	limiter := rate.NewLimiter(rate.Every(d.interval), 1)
	queuedClassic, queuedPro := 0, 0
	var loopErr error
	for _, item := range planned {
		plog := log.With().Int("position", item.post.Position).Str("mode", string(item.mode)).Logger()

		req, err := d.buildRequest(item, layout, profile, plog)
		if err != nil {
			d.fail(ctx, &summary, item.post, domain.FailureMissingPrompt, err, plog)
			continue
		}
		claimed, err := d.posts.ClaimPost(ctx, item.post.ID)
		if err != nil {
			if ctx.Err() != nil {
				loopErr = ctx.Err()
				break
			}
			plog.Error().Err(err).Msg("dispatch: claim post failed")
			summary.SkippedCount++
			continue
		}
		if !claimed {
			plog.Info().Msg("dispatch: post taken by another pass")
			summary.SkippedCount++
			continue
		}
		if err := limiter.Wait(ctx); err != nil {
			d.release(ctx, item.post, plog)
			loopErr = err
			break
		}
		predictionID, code, err := d.submitWithRetry(ctx, req, plog)
		if err != nil {
			if ctx.Err() != nil {
				d.release(ctx, item.post, plog)
				loopErr = ctx.Err()
				break
			}
			d.fail(ctx, &summary, item.post, code, err, plog)
			continue
		}
		if err := d.posts.MarkPostGenerating(ctx, item.post.ID, predictionID); err != nil {
			plog.Error().Err(err).Str("prediction_id", predictionID).Msg("dispatch: persist prediction id failed")
		}
		plog.Info().Str("prediction_id", predictionID).Msg("dispatch: post queued")
		if item.mode == domain.ModePro {
			queuedPro++
		} else {
			queuedClassic++
		}
	}
	summary.QueuedCount = queuedClassic + queuedPro

	if summary.QueuedCount > 0 {
		credits := queuedClassic*d.classicCost + queuedPro*d.proCost
		settleCtx := context.WithoutCancel(ctx)
		if _, err := d.credits.Deduct(settleCtx, userID, credits, creditReason, feedLayoutID); err != nil {
			summary.CreditError = domain.FailureCreditDeductionFailed
			log.Error().Err(err).Int("credits", credits).Msg("dispatch: credit deduction failed")
		} else {
			summary.CreditsCharged = credits
		}
	}

	log.Info().
		Int("queued", summary.QueuedCount).
		Int("failed", summary.FailedCount).
		Int("skipped", summary.SkippedCount).
		Int("credits_charged", summary.CreditsCharged).
		Msg("dispatch: batch finished")
	if loopErr != nil {
		return summary, fmt.Errorf("dispatch: batch interrupted: %w", loopErr)
	}
	return summary, nil
}

func (d *Dispatcher) buildRequest(item plannedPost, layout *domain.FeedLayout, profile *domain.UserProfile, log zerolog.Logger) (prediction.Request, error) {
	prompt := strings.TrimSpace(item.post.Prompt)
	if prompt == "" {
		return prediction.Request{}, errMissingPrompt
	}
	if item.mode == domain.ModePro {
		text := d.proPrompts.Build(ProPromptInput{
			Prompt:      prompt,
			ShotType:    item.post.ShotType,
			ProModeType: coalesce(item.post.ProModeType, layout.Settings.ProModeType),
			BrandKit:    profile.BrandKit,
		})
		return prediction.Request{Model: d.proModel, Input: proInput(text, profile.ReferenceImages)}, nil
	}

	id := Identity{TriggerWord: profile.Model.TriggerWord, Gender: profile.Gender, Ethnicity: profile.Ethnicity}
	repaired, repair := RepairTriggerPrefix(prompt, id)
	switch repair {
	case RepairPrefixed:
		log.Debug().Str("trigger_word", id.TriggerWord).Msg("dispatch: trigger prefix added")
	case RepairRewritten:
		log.Warn().Str("trigger_word", id.TriggerWord).Msg("dispatch: trigger prefix repaired")
	}
	prompt = repaired
	preset := PresetFor(item.post.ShotType).WithOverrides(layout.Settings)
	return prediction.Request{Version: profile.Model.ModelVersion, Input: classicInput(prompt, preset)}, nil
}

// submitWithRetry retries rate-limited submissions up to maxRetries times,
// waiting the provider hint plus a buffer. The returned code classifies a
// final failure.
func (d *Dispatcher) submitWithRetry(ctx context.Context, req prediction.Request, log zerolog.Logger) (string, string, error) {
	for attempt := 0; ; attempt++ {
		id, err := d.predictions.Submit(ctx, req)
		if err == nil {
			return id, "", nil
		}
		var rl *prediction.RateLimitError
		if !errors.As(err, &rl) {
			return "", domain.FailureProviderError, err
		}
		if attempt >= d.maxRetries {
			return "", domain.FailureRateLimitedExhausted, fmt.Errorf("after %d retries: %w", attempt, err)
		}
		wait := rl.RetryAfter
		if wait <= 0 {
			wait = d.retryAfter
		}
		wait += d.retryBuffer
		log.Warn().Int("attempt", attempt+1).Dur("wait", wait).Msg("dispatch: rate limited, retrying")
		if err := d.sleep(ctx, wait); err != nil {
			return "", domain.FailureProviderError, err
		}
	}
}

func (d *Dispatcher) fail(ctx context.Context, summary *Summary, post domain.FeedPost, code string, cause error, log zerolog.Logger) {
	summary.FailedCount++
	summary.Failures = append(summary.Failures, PostFailure{Position: post.Position, Code: code, Message: cause.Error()})
	log.Error().Err(cause).Str("code", code).Msg("dispatch: post failed")
	if err := d.posts.MarkPostFailed(ctx, post.ID, code+": "+cause.Error()); err != nil {
		log.Error().Err(err).Msg("dispatch: mark post failed")
	}
}

// release hands a claimed post back after the pass stopped before
// submitting it.
func (d *Dispatcher) release(ctx context.Context, post domain.FeedPost, log zerolog.Logger) {
	if err := d.posts.ReleasePost(context.WithoutCancel(ctx), post.ID); err != nil {
		log.Error().Err(err).Msg("dispatch: release post")
	}
}

func coalesce(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
