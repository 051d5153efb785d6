// Package bootstrap assembles the generation pipeline shared by the API
// server, the background worker and feedctl.
package bootstrap

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"feedplanner/internal/adapter/repo"
	"feedplanner/internal/dispatch"
	"feedplanner/internal/feeds"
	"feedplanner/internal/infra"
	"feedplanner/internal/infra/credentials"
	"feedplanner/internal/injector"
	"feedplanner/internal/library"
	"feedplanner/internal/pregen"
	"feedplanner/internal/providers/caption"
	"feedplanner/internal/providers/prediction"
	"feedplanner/internal/rotation"
	"feedplanner/internal/templates"
)

// Pipeline holds the wired components.
type Pipeline struct {
	Feeds       *repo.FeedRepositoryPG
	Profiles    *repo.ProfileRepositoryPG
	Credits     *repo.CreditRepositoryPG
	Rotation    *rotation.Manager
	Credentials *credentials.Store
	Library     *library.Library
	Templates   *templates.Corpus
	Prompts     *pregen.Generator
	Dispatcher  *dispatch.Dispatcher
	Service     *feeds.Service
}

// NewPipeline wires repositories, providers and services over sql. Provider
// keys stored in integration_tokens take precedence over the environment.
func NewPipeline(ctx context.Context, cfg *infra.Config, sql infra.SQLExecutor, logger zerolog.Logger) (*Pipeline, error) {
	lib, err := library.Load()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: content library: %w", err)
	}
	corpus, err := templates.Load()
	if err != nil {
		return nil, fmt.Errorf("bootstrap: templates: %w", err)
	}

	p := &Pipeline{
		Feeds:       repo.NewFeedRepository(sql),
		Profiles:    repo.NewProfileRepository(sql, 0),
		Credits:     repo.NewCreditRepository(sql),
		Rotation:    rotation.NewManager(repo.NewRotationStore(sql), logger),
		Credentials: credentials.NewStore(sql),
		Library:     lib,
		Templates:   corpus,
	}

	p.Prompts = pregen.New(pregen.Options{
		Users:               p.Profiles,
		Templates:           corpus,
		Injector:            injector.New(lib, p.Rotation),
		Rotation:            p.Rotation,
		Prompts:             p.Feeds,
		DefaultFashionStyle: cfg.DefaultFashionStyle,
		Logger:              logger,
	})

	predictionToken := p.resolveKey(ctx, credentials.ProviderPrediction, cfg.PredictionAPIToken, logger)
	if predictionToken == "" {
		logger.Warn().Msg("bootstrap: prediction api token missing, queue requests will fail per post")
	}
	predictions := prediction.NewClient(prediction.Options{
		BaseURL:    cfg.PredictionBaseURL,
		APIToken:   predictionToken,
		WebhookURL: WebhookURL(cfg.PredictionWebhookURL, cfg.PredictionWebhookToken),
		Logger:     &logger,
	})

	p.Dispatcher = dispatch.New(dispatch.Options{
		Posts:               p.Feeds,
		Users:               p.Profiles,
		Credits:             p.Credits,
		Predictions:         predictions,
		ProModel:            cfg.ProModel,
		ClassicCost:         cfg.ClassicCredits,
		ProCost:             cfg.ProCredits,
		SubmissionInterval:  cfg.SubmissionInterval,
		MaxRateLimitRetries: &cfg.RateLimitRetries,
		RetryBuffer:         cfg.RateLimitBuffer,
		Logger:              logger,
	})

	captioner, err := NewCaptioner(ctx, CaptionConfig{
		Provider:     cfg.CaptionProvider,
		GeminiAPIKey: p.resolveKey(ctx, credentials.ProviderGemini, cfg.GeminiAPIKey, logger),
		GeminiModel:  cfg.GeminiModel,
		OpenAIAPIKey: p.resolveKey(ctx, credentials.ProviderOpenAI, cfg.OpenAIAPIKey, logger),
		OpenAIModel:  cfg.OpenAIModel,
		OpenAIURL:    cfg.OpenAIBaseURL,
	}, logger)
	if err != nil {
		return nil, err
	}

	p.Service = feeds.NewService(feeds.Options{
		Feeds:    p.Feeds,
		Users:    p.Profiles,
		Prompts:  p.Prompts,
		Captions: captioner,
		Queue:    p.Dispatcher,
		Logger:   logger,
	})
	return p, nil
}

func (p *Pipeline) resolveKey(ctx context.Context, provider, envValue string, logger zerolog.Logger) string {
	key, err := p.Credentials.Resolve(ctx, provider, envValue)
	if err != nil {
		logger.Warn().Err(err).Str("provider", provider).Msg("bootstrap: stored key lookup failed, using environment")
	}
	return key
}

// CaptionConfig selects and configures the caption provider.
type CaptionConfig struct {
	Provider     string
	GeminiAPIKey string
	GeminiModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	OpenAIURL    string
}

// NewCaptioner returns the configured captioner. A remote provider without a
// key degrades to the static captioner.
func NewCaptioner(ctx context.Context, cfg CaptionConfig, logger zerolog.Logger) (caption.Captioner, error) {
	static := caption.NewStaticCaptioner()
	onFallback := func(reason string, err error) {
		logger.Warn().Err(err).Str("reason", reason).Msg("caption: using static fallback")
	}
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "static":
		return static, nil
	case "gemini":
		if strings.TrimSpace(cfg.GeminiAPIKey) == "" {
			logger.Warn().Msg("bootstrap: gemini api key missing, captions use static phrases")
			return static, nil
		}
		c, err := caption.NewGeminiCaptioner(ctx, caption.GeminiOptions{
			APIKey:     cfg.GeminiAPIKey,
			Model:      cfg.GeminiModel,
			Fallback:   static,
			OnFallback: onFallback,
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: gemini captioner: %w", err)
		}
		return c, nil
	case "openai":
		if strings.TrimSpace(cfg.OpenAIAPIKey) == "" {
			logger.Warn().Msg("bootstrap: openai api key missing, captions use static phrases")
			return static, nil
		}
		c, err := caption.NewOpenAICaptioner(caption.OpenAIOptions{
			APIKey:     cfg.OpenAIAPIKey,
			Model:      cfg.OpenAIModel,
			BaseURL:    cfg.OpenAIURL,
			Fallback:   static,
			OnFallback: onFallback,
			OnWarning: func(reason, detail string) {
				logger.Warn().Str("reason", reason).Str("detail", detail).Msg("caption: openai model adjusted")
			},
		})
		if err != nil {
			return nil, fmt.Errorf("bootstrap: openai captioner: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("bootstrap: unknown caption provider %q", cfg.Provider)
	}
}

// WebhookURL appends the shared token to the callback URL.
func WebhookURL(base, token string) string {
	base = strings.TrimSpace(base)
	if base == "" || strings.TrimSpace(token) == "" {
		return base
	}
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String()
}
