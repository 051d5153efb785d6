package caption

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

type modelCaptionPayload struct {
	Caption  string   `json:"caption"`
	Hashtags []string `json:"hashtags"`
}

func coalesce(values ...string) string {
	for _, v := range values {
		v = strings.TrimSpace(v)
		if v != "" {
			return v
		}
	}
	return ""
}

func parseModelPayload[T any](raw string) (T, error) {
	var zero T
	cleaned := extractJSONFragment(raw)
	if cleaned == "" {
		return zero, errors.New("empty payload")
	}
	var decoded T
	if err := json.Unmarshal([]byte(cleaned), &decoded); err != nil {
		return zero, err
	}
	return decoded, nil
}

func extractJSONFragment(raw string) string {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ""
	}
	text = trimCodeFence(text)
	start := strings.IndexAny(text, "{[")
	end := strings.LastIndexAny(text, "]}")
	if start >= 0 && end >= start {
		text = text[start : end+1]
	}
	return strings.TrimSpace(text)
}

func trimCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```JSON")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSpace(trimmed)
	if idx := strings.LastIndex(trimmed, "```"); idx >= 0 {
		trimmed = trimmed[:idx]
	}
	return strings.TrimSpace(trimmed)
}

// toResponse validates a decoded model payload.
func toResponse(parsed modelCaptionPayload, req Request, provider string) (*Response, error) {
	caption := coalesce(parsed.Caption)
	if caption == "" {
		return nil, errors.New("empty caption")
	}
	return &Response{
		Caption:  caption,
		Hashtags: normalizeHashtags(parsed.Hashtags, strings.ReplaceAll(req.FeedStyle, "_", "")),
		Metadata: map[string]string{"locale": matchLocale(req.Locale).String()},
		Provider: provider,
	}, nil
}

// fallbackResponse runs fallback (or the static captioner) and tags the
// result with the reason.
func fallbackResponse(ctx context.Context, fallback Captioner, req Request, reason string) (*Response, error) {
	if fallback == nil {
		fallback = NewStaticCaptioner()
	}
	res, err := fallback.Caption(ctx, req)
	if res != nil {
		if res.Provider == "" {
			res.Provider = staticProviderName
		}
		if res.Metadata == nil {
			res.Metadata = map[string]string{}
		}
		if reason != "" {
			res.Metadata["fallback_reason"] = reason
		}
	}
	return res, err
}
