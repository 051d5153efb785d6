package caption

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const defaultGeminiModel = "gemini-2.5-flash"

// contentGenerator is the slice of *genai.Models used here.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// GeminiOptions configures a GeminiCaptioner.
type GeminiOptions struct {
	APIKey     string
	Model      string
	Fallback   Captioner
	OnFallback func(reason string, err error)
}

// GeminiCaptioner captions posts with the Gemini API and falls back to
// another captioner on any failure.
type GeminiCaptioner struct {
	models     contentGenerator
	model      string
	fallback   Captioner
	onFallback func(reason string, err error)
}

// NewGeminiCaptioner builds a captioner over a genai client.
func NewGeminiCaptioner(ctx context.Context, opts GeminiOptions) (*GeminiCaptioner, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, errors.New("gemini api key is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: key, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return newGeminiCaptioner(client.Models, opts), nil
}

func newGeminiCaptioner(models contentGenerator, opts GeminiOptions) *GeminiCaptioner {
	return &GeminiCaptioner{
		models:     models,
		model:      coalesce(opts.Model, defaultGeminiModel),
		fallback:   opts.Fallback,
		onFallback: opts.OnFallback,
	}
}

func (g *GeminiCaptioner) Caption(ctx context.Context, req Request) (*Response, error) {
	if g.models == nil {
		return g.useFallback(ctx, req, "missing_client", nil)
	}
	contents := []*genai.Content{genai.NewContentFromText(buildCaptionPrompt(req), genai.RoleUser)}
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](0.7),
		CandidateCount:   1,
		ResponseMIMEType: "application/json",
	}
	resp, err := g.models.GenerateContent(ctx, g.model, contents, config)
	if err != nil {
		return g.useFallback(ctx, req, "generate_content", err)
	}
	text := strings.TrimSpace(resp.Text())
	if text == "" {
		return g.useFallback(ctx, req, "empty_response", errors.New("empty response"))
	}
	parsed, err := parseModelPayload[modelCaptionPayload](text)
	if err != nil {
		return g.useFallback(ctx, req, "parse_payload", err)
	}
	res, err := toResponse(parsed, req, geminiProviderName)
	if err != nil {
		return g.useFallback(ctx, req, "empty_caption", err)
	}
	return res, nil
}

func (g *GeminiCaptioner) useFallback(ctx context.Context, req Request, reason string, err error) (*Response, error) {
	if g.onFallback != nil {
		g.onFallback(reason, err)
	}
	return fallbackResponse(ctx, g.fallback, req, reason)
}

var _ Captioner = (*GeminiCaptioner)(nil)
