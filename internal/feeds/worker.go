package feeds

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"feedplanner/internal/domain"
)

// DefaultPollInterval is how long the worker idles when no feed is waiting.
const DefaultPollInterval = 2 * time.Second

// Claimer hands out processing layouts one at a time.
type Claimer interface {
	ClaimProcessing(ctx context.Context) (*domain.FeedLayout, error)
}

// Processor processes one claimed layout.
type Processor interface {
	ProcessFeed(ctx context.Context, layout *domain.FeedLayout) (ProcessResult, error)
}

// Worker polls for processing layouts and runs them sequentially.
type Worker struct {
	claims    Claimer
	processor Processor
	poll      time.Duration
	logger    zerolog.Logger
}

// NewWorker constructs a Worker.
func NewWorker(claims Claimer, processor Processor, poll time.Duration, logger zerolog.Logger) *Worker {
	if poll <= 0 {
		poll = DefaultPollInterval
	}
	return &Worker{claims: claims, processor: processor, poll: poll, logger: logger}
}

// Run loops until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info().Dur("poll_interval", w.poll).Msg("worker: started")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		handled, err := w.RunOnce(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.Error().Err(err).Msg("worker: failed to claim feed")
		}
		if handled {
			continue
		}
		t := time.NewTimer(w.poll)
		select {
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		case <-t.C:
		}
	}
}

// RunOnce claims and processes at most one layout. It reports whether a
// layout was claimed.
func (w *Worker) RunOnce(ctx context.Context) (bool, error) {
	layout, err := w.claims.ClaimProcessing(ctx)
	if err != nil {
		return false, err
	}
	if layout == nil {
		return false, nil
	}
	w.logger.Info().Str("feed_id", layout.ID).Str("feed_style", layout.FeedStyle).Msg("worker: picked feed")
	if _, err := w.processor.ProcessFeed(ctx, layout); err != nil {
		w.logger.Error().Err(err).Str("feed_id", layout.ID).Msg("worker: feed failed")
	}
	return true, nil
}
