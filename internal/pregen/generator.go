// Package pregen writes the nine per-position prompts of a feed before any
// image is generated.
package pregen

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"feedplanner/internal/domain"
	"feedplanner/internal/frames"
	"feedplanner/internal/placeholder"
	"feedplanner/internal/templates"
)

// DefaultFashionStyle applies when neither the request nor the profile names
// a fashion style.
const DefaultFashionStyle = "casual"

// TemplateSource resolves a (category, mood) pair to a template.
type TemplateSource interface {
	Resolve(category, mood string) (templates.Template, error)
}

// Injector fills a template with rotated library content.
type Injector interface {
	InjectWithRotation(ctx context.Context, userID, vibe, fashionStyle, template string) (string, domain.RotationState, error)
}

// RotationAdvancer moves a user's rotation cursors past one feed.
type RotationAdvancer interface {
	Increment(ctx context.Context, userID, vibe, fashionStyle string) (domain.RotationState, error)
}

// PromptStore persists a position's prompt and shot type.
type PromptStore interface {
	SavePostPrompt(ctx context.Context, feedID string, position int, prompt string, shot domain.ShotType) error
}

// Request identifies the feed to pre-generate.
type Request struct {
	FeedID       string
	UserID       string
	FeedStyle    string
	FashionStyle string
}

// Result reports what a pre-generation pass did.
type Result struct {
	TemplateKey      string
	Vibe             string
	FashionStyle     string
	Persisted        []int
	Skipped          []int
	RotationAdvanced bool
}

// Options configures a Generator.
type Options struct {
	Users               domain.UserResolver
	Templates           TemplateSource
	Injector            Injector
	Rotation            RotationAdvancer
	Prompts             PromptStore
	DefaultFashionStyle string
	Logger              zerolog.Logger
}

// Generator runs prompt pre-generation.
type Generator struct {
	users        domain.UserResolver
	templates    TemplateSource
	injector     Injector
	rotation     RotationAdvancer
	prompts      PromptStore
	defaultStyle string
	logger       zerolog.Logger
}

// New constructs a Generator.
func New(opts Options) *Generator {
	style := strings.TrimSpace(opts.DefaultFashionStyle)
	if style == "" {
		style = DefaultFashionStyle
	}
	return &Generator{
		users:        opts.Users,
		templates:    opts.Templates,
		injector:     opts.Injector,
		rotation:     opts.Rotation,
		prompts:      opts.Prompts,
		defaultStyle: style,
		logger:       opts.Logger,
	}
}

// PreGenerateAllPrompts resolves the user's template, injects rotated content
// once, and persists a prompt per position. Rotation advances once when at
// least one prompt was persisted. Template and injection failures abort
// before anything is written.
func (g *Generator) PreGenerateAllPrompts(ctx context.Context, req Request) (Result, error) {
	log := g.logger.With().Str("feed_id", req.FeedID).Str("user_id", req.UserID).Logger()

	mood, err := templates.MoodFor(req.FeedStyle)
	if err != nil {
		return Result{}, err
	}
	profile, err := g.users.Profile(ctx, req.UserID)
	if err != nil {
		return Result{}, fmt.Errorf("pregen: load profile: %w", err)
	}
	category := templates.CategoryFor(profile.BrandAesthetic)
	tpl, err := g.templates.Resolve(category, mood)
	if err != nil {
		return Result{}, err
	}

	style := firstNonEmpty(req.FashionStyle, profile.FashionStyle, g.defaultStyle)
	res := Result{TemplateKey: tpl.Key, Vibe: tpl.Key, FashionStyle: style}

	injected, state, err := g.injector.InjectWithRotation(ctx, req.UserID, res.Vibe, style, tpl.Body)
	if err != nil {
		return res, fmt.Errorf("pregen: inject %s: %w", tpl.Key, err)
	}
	if leftover := placeholder.Unresolved(injected); len(leftover) > 0 {
		log.Warn().Strs("tokens", leftover).Str("template", tpl.Key).Msg("pregen: unresolved placeholders stripped")
		injected = frames.CleanBlueprintPrompt(injected)
	}
	log.Debug().
		Str("template", tpl.Key).
		Str("fashion_style", style).
		Int("outfit_index", state.OutfitIndex).
		Int("location_index", state.LocationIndex).
		Int("accessory_index", state.AccessoryIndex).
		Msg("pregen: content injected")

	for pos := 1; pos <= domain.PostsPerFeed; pos++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p, err := frames.BuildSingleImagePrompt(injected, pos)
		if err != nil {
			log.Warn().Err(err).Int("position", pos).Msg("pregen: prompt extraction failed")
			res.Skipped = append(res.Skipped, pos)
			continue
		}
		if err := g.prompts.SavePostPrompt(ctx, req.FeedID, pos, p.Text, p.ShotType); err != nil {
			log.Error().Err(err).Int("position", pos).Msg("pregen: persist prompt failed")
			res.Skipped = append(res.Skipped, pos)
			continue
		}
		res.Persisted = append(res.Persisted, pos)
	}

	if len(res.Persisted) == 0 {
		return res, fmt.Errorf("pregen: feed %s: %w", req.FeedID, domain.ErrNoPromptsPersisted)
	}

	if _, err := g.rotation.Increment(ctx, req.UserID, res.Vibe, style); err != nil {
		log.Error().Err(err).Msg("pregen: rotation not advanced")
		return res, nil
	}
	res.RotationAdvanced = true
	log.Info().
		Str("template", tpl.Key).
		Int("persisted", len(res.Persisted)).
		Int("skipped", len(res.Skipped)).
		Msg("pregen: prompts ready")
	return res, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.ToLower(strings.TrimSpace(v)); v != "" {
			return v
		}
	}
	return ""
}
