// Package caption writes Instagram captions for feed posts.
package caption

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"feedplanner/internal/domain"
)

const (
	staticProviderName = "static"
	geminiProviderName = "gemini"
	openAIProviderName = "openai"

	maxHashtags = 8
)

// Request describes the post to caption.
type Request struct {
	Prompt    string
	ShotType  domain.ShotType
	Position  int
	Vibe      string
	FeedStyle string
	Tone      string
	Locale    string
}

// Response is a generated caption.
type Response struct {
	Caption  string            `json:"caption"`
	Hashtags []string          `json:"hashtags"`
	Metadata map[string]string `json:"metadata,omitempty"`
	Provider string            `json:"-"`
}

// Text renders the caption followed by its hashtags.
func (r *Response) Text() string {
	if r == nil {
		return ""
	}
	if len(r.Hashtags) == 0 {
		return r.Caption
	}
	return r.Caption + "\n\n" + strings.Join(r.Hashtags, " ")
}

// Captioner produces captions.
type Captioner interface {
	Caption(ctx context.Context, req Request) (*Response, error)
}

var supportedLocales = []language.Tag{language.English, language.Indonesian}

var localeMatcher = language.NewMatcher(supportedLocales)

// matchLocale maps an Accept-Language style locale onto a supported one.
func matchLocale(locale string) language.Tag {
	if strings.TrimSpace(locale) == "" {
		return language.English
	}
	tags, _, err := language.ParseAcceptLanguage(locale)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := localeMatcher.Match(tags...)
	return supportedLocales[idx]
}

// StaticCaptioner builds captions from fixed phrases. It never fails.
type StaticCaptioner struct{}

// NewStaticCaptioner constructs a StaticCaptioner.
func NewStaticCaptioner() *StaticCaptioner {
	return &StaticCaptioner{}
}

var staticLines = map[language.Tag]map[domain.ShotType]string{
	language.English: {
		domain.ShotFlatlay:  "The details that make the day. %s.",
		domain.ShotCloseup:  "Up close with the little things. %s.",
		domain.ShotFullbody: "Dressed for the moment. %s.",
		domain.ShotMidshot:  "Somewhere between coffee and plans. %s.",
	},
	language.Indonesian: {
		domain.ShotFlatlay:  "Detail kecil yang membuat hari lebih berarti. %s.",
		domain.ShotCloseup:  "Lebih dekat dengan hal-hal kecil. %s.",
		domain.ShotFullbody: "Siap untuk momen ini. %s.",
		domain.ShotMidshot:  "Di antara kopi dan rencana. %s.",
	},
}

func (s *StaticCaptioner) Caption(_ context.Context, req Request) (*Response, error) {
	tag := matchLocale(req.Locale)
	lines := staticLines[tag]
	line, ok := lines[req.ShotType]
	if !ok {
		line = lines[domain.ShotMidshot]
	}
	title := cases.Title(tag)
	mood := strings.ReplaceAll(coalesce(req.Vibe, req.FeedStyle, "everyday style"), "_", " ")
	return &Response{
		Caption:  fmt.Sprintf(line, title.String(mood)),
		Hashtags: normalizeHashtags([]string{req.FeedStyle, "ootd", "feedgoals"}, ""),
		Metadata: map[string]string{"locale": tag.String()},
		Provider: staticProviderName,
	}, nil
}

var _ Captioner = (*StaticCaptioner)(nil)

func buildCaptionPrompt(req Request) string {
	sb := &strings.Builder{}
	sb.WriteString("You write short Instagram captions for a personal brand. Respond strictly with JSON matching this schema: ")
	sb.WriteString(`{"caption":string,"hashtags":string[]}`)
	fmt.Fprintf(sb, ". Write in language '%s'. Keep the caption under 220 characters, no emojis at the start, at most %d hashtags. ", matchLocale(req.Locale), maxHashtags)
	fmt.Fprintf(sb, "Post details: position=%d, shot=%q, feed_style=%q, vibe=%q, tone=%q, scene=%q.",
		req.Position, req.ShotType, req.FeedStyle, req.Vibe, coalesce(req.Tone, "warm and confident"), req.Prompt)
	return sb.String()
}

// normalizeHashtags prefixes tags with '#', strips spaces and duplicates, and
// caps the list.
func normalizeHashtags(tags []string, fallback string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, tag := range tags {
		tag = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(tag), "#"))
		tag = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(tag)
		if tag == "" {
			continue
		}
		key := strings.ToLower(tag)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, "#"+tag)
		if len(out) == maxHashtags {
			break
		}
	}
	if len(out) == 0 && fallback != "" {
		out = []string{"#" + fallback}
	}
	return out
}
