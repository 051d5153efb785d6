package templates

import (
	"fmt"
	"sort"
	"strings"

	"feedplanner/internal/domain"
)

// Moods of the corpus.
const (
	MoodDarkMoody         = "dark_moody"
	MoodLightMinimalistic = "light_minimalistic"
	MoodBeigeAesthetic    = "beige_aesthetic"
)

// Categories of the corpus.
const (
	CategoryLuxury  = "luxury"
	CategoryMinimal = "minimal"
)

// DefaultCategory is used when a user has no stored brand aesthetic.
const DefaultCategory = CategoryMinimal

var moodVocabulary = map[string]string{
	"dark_moody":         MoodDarkMoody,
	"dark":               MoodDarkMoody,
	"moody":              MoodDarkMoody,
	"dark_and_moody":     MoodDarkMoody,
	"light_minimalistic": MoodLightMinimalistic,
	"light":              MoodLightMinimalistic,
	"light_minimal":      MoodLightMinimalistic,
	"minimalistic":       MoodLightMinimalistic,
	"bright":             MoodLightMinimalistic,
	"clean":              MoodLightMinimalistic,
	"beige_aesthetic":    MoodBeigeAesthetic,
	"beige":              MoodBeigeAesthetic,
	"neutral":            MoodBeigeAesthetic,
	"warm_neutral":       MoodBeigeAesthetic,
}

var categoryVocabulary = map[string]string{
	"luxury":       CategoryLuxury,
	"luxurious":    CategoryLuxury,
	"glam":         CategoryLuxury,
	"quiet_luxury": CategoryLuxury,
	"old_money":    CategoryLuxury,
	"minimal":      CategoryMinimal,
	"minimalist":   CategoryMinimal,
	"minimalism":   CategoryMinimal,
	"scandi":       CategoryMinimal,
	"clean_girl":   CategoryMinimal,
}

// MoodFor maps a requested feed style onto a corpus mood.
func MoodFor(feedStyle string) (string, error) {
	if mood, ok := moodVocabulary[normalizeTerm(feedStyle)]; ok {
		return mood, nil
	}
	return "", fmt.Errorf("templates: %w %q, supported are %v", domain.ErrInvalidFeedStyle, feedStyle, Moods())
}

// CategoryFor maps a stored brand aesthetic onto a corpus category. An empty
// aesthetic falls back to DefaultCategory; an unknown one is passed through
// so that template resolution reports it.
func CategoryFor(brandAesthetic string) string {
	term := normalizeTerm(brandAesthetic)
	if term == "" {
		return DefaultCategory
	}
	if category, ok := categoryVocabulary[term]; ok {
		return category
	}
	return term
}

// Moods lists the canonical moods.
func Moods() []string {
	out := []string{MoodBeigeAesthetic, MoodDarkMoody, MoodLightMinimalistic}
	sort.Strings(out)
	return out
}

func normalizeTerm(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "&", " and ")
	s = strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == ' ' || r == '-' || r == '_' || r == '/'
	}), "_")
	return s
}
