package frames

import (
	"regexp"
	"strings"

	"feedplanner/internal/domain"
)

var (
	flatlayKeywords  = []string{"flatlay", "flat lay", "flat-lay", "overhead"}
	closeupKeywords  = []string{"close-up", "close up", "closeup", "extreme close"}
	fullbodyKeywords = []string{"full-body", "full body", "fullbody"}

	ambienceKeywords = []string{
		"ambien", "atmospher", "furniture", "chandelier", "sofa", "couch", "armchair",
		"fixture", "lamp", "sconce", "curtain", "glow", "background",
	}
	venuePattern   = regexp.MustCompile(`(?i)\b(?:lobby|rooms?|interiors?|lounge|suite|hallway|restaurant|cafe|coffee shop|bar|boutique|gallery|penthouse|apartment|loft|studio|library|office|bakery|hotel)\b`)
	outdoorPattern = regexp.MustCompile(`(?i)\b(?:street|terrace|balcony|garden|beach|city|rooftop|courtyard|field|alleyway|alley|boardwalk|facade|park|skyline|garage|path)\b`)

	// material synonyms map to the surface word used in flatlay prompts.
	materialSynonyms = []struct {
		word    string
		surface string
	}{
		{"marble", "marble"},
		{"travertine", "stone"},
		{"limestone", "stone"},
		{"stone", "stone"},
		{"concrete", "concrete"},
		{"oak", "wood"},
		{"walnut", "wood"},
		{"mahogany", "wood"},
		{"wood", "wood"},
		{"glass", "glass"},
		{"steel", "metal"},
		{"brass", "metal"},
		{"metal", "metal"},
	}
	colorAdjectives = []string{
		"dark", "black", "white", "cream", "beige", "ivory", "grey", "gray", "pale",
		"warm", "brown", "charcoal", "sand", "golden", "gold",
	}

	sentenceSplit    = regexp.MustCompile(`([.!?])\s+`)
	onClausePattern  = regexp.MustCompile(`(?i)\bon\s+([^,.;]+)`)
	prepClause       = regexp.MustCompile(`(?i)\s*\b(?:on|in|at)\s+(?:the\s+|a\s+|an\s+)?([^,.;]*)`)
	segmentSplit     = regexp.MustCompile(`\s*(?:,|\s[-–—]\s)\s*`)
	venueNounPattern = regexp.MustCompile(`(?i)\b(?:(?:hotel|living|dining|reception)\s+)?(?:lobby|room|interior|lounge|suite|hallway|restaurant|cafe|boutique|gallery|penthouse|apartment|loft)\b(?:\s+(?:with|featuring|overlooking)\s+[^,.;]*)?`)
	danglingPrep     = regexp.MustCompile(`(?i)\b(?:on|in|at|with)\s*([,.;]|$)`)
	spaceBeforePunct = regexp.MustCompile(`\s+([,.;])`)
	repeatedComma    = regexp.MustCompile(`,(\s*,)+`)
	multiSpace       = regexp.MustCompile(`\s{2,}`)
)

// DetectFrameType classifies a frame description. Flatlay wins over closeup,
// closeup over fullbody, and anything else is a midshot.
func DetectFrameType(description string) domain.ShotType {
	lower := strings.ToLower(description)
	switch {
	case containsAny(lower, flatlayKeywords):
		return domain.ShotFlatlay
	case containsAny(lower, closeupKeywords):
		return domain.ShotCloseup
	case containsAny(lower, fullbodyKeywords):
		return domain.ShotFullbody
	default:
		return domain.ShotMidshot
	}
}

// CleanFrame strips location context that does not belong in object or
// detail shots. Full-body and mid-shot frames are returned unchanged.
func CleanFrame(description string, shot domain.ShotType) string {
	switch shot {
	case domain.ShotFlatlay:
		return cleanFlatlay(description)
	case domain.ShotCloseup:
		return cleanCloseup(description)
	default:
		return description
	}
}

func cleanFlatlay(description string) string {
	text := dropAmbienceSentences(description)
	if loc := onClausePattern.FindStringSubmatchIndex(text); loc != nil {
		clause := text[loc[2]:loc[3]]
		if surface := surfaceFor(clause); surface != "" {
			text = text[:loc[0]] + "on " + surface + text[loc[1]:]
		}
	}
	text = venueNounPattern.ReplaceAllString(text, "")
	return tidy(text)
}

func cleanCloseup(description string) string {
	text := dropAmbienceSentences(description)
	text = prepClause.ReplaceAllStringFunc(text, func(m string) string {
		sub := prepClause.FindStringSubmatch(m)
		if len(sub) > 1 && isLocation(sub[1]) {
			return ""
		}
		return m
	})
	trailing := ""
	if strings.HasSuffix(strings.TrimSpace(text), ".") {
		trailing = "."
	}
	segments := segmentSplit.Split(strings.TrimSuffix(strings.TrimSpace(text), "."), -1)
	kept := make([]string, 0, len(segments))
	for _, seg := range segments {
		seg = strings.TrimSpace(seg)
		if seg == "" {
			continue
		}
		lower := strings.ToLower(seg)
		if venuePattern.MatchString(seg) || containsAny(lower, ambienceKeywords) {
			continue
		}
		kept = append(kept, seg)
	}
	return tidy(strings.Join(kept, ", ") + trailing)
}

// surfaceFor turns a verbose location clause into "<color> <material> surface".
// A clause naming a venue without any material becomes a neutral surface.
func surfaceFor(clause string) string {
	lower := strings.ToLower(clause)
	matIdx, surface := -1, ""
	for _, m := range materialSynonyms {
		if idx := strings.Index(lower, m.word); idx >= 0 && (matIdx < 0 || idx < matIdx) {
			matIdx, surface = idx, m.surface
		}
	}
	if matIdx < 0 {
		if isLocation(clause) {
			return "a neutral surface"
		}
		return ""
	}
	color, best := "", -1
	for _, c := range colorAdjectives {
		for _, idx := range wordIndexes(lower, c) {
			dist := idx - matIdx
			if dist < 0 {
				dist = -dist
			}
			if best < 0 || dist < best {
				best, color = dist, c
			}
		}
	}
	if color == "" {
		return surface + " surface"
	}
	return color + " " + surface + " surface"
}

// wordIndexes returns the byte offsets where word occurs as a whole word.
func wordIndexes(text, word string) []int {
	var out []int
	for start := 0; start < len(text); {
		idx := strings.Index(text[start:], word)
		if idx < 0 {
			break
		}
		pos := start + idx
		end := pos + len(word)
		if (pos == 0 || !isLetter(text[pos-1])) && (end == len(text) || !isLetter(text[end])) {
			out = append(out, pos)
		}
		start = end
	}
	return out
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

// dropAmbienceSentences keeps the first sentence and drops any later sentence
// that describes ambience or furnishings.
func dropAmbienceSentences(text string) string {
	sentences := splitSentences(text)
	if len(sentences) <= 1 {
		return text
	}
	kept := []string{sentences[0]}
	for _, s := range sentences[1:] {
		if containsAny(strings.ToLower(s), ambienceKeywords) {
			continue
		}
		kept = append(kept, s)
	}
	return strings.Join(kept, " ")
}

func splitSentences(text string) []string {
	marked := sentenceSplit.ReplaceAllString(strings.TrimSpace(text), "$1\x00")
	parts := strings.Split(marked, "\x00")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isLocation(phrase string) bool {
	return venuePattern.MatchString(phrase) || outdoorPattern.MatchString(phrase)
}

func tidy(text string) string {
	text = danglingPrep.ReplaceAllString(text, "$1")
	text = spaceBeforePunct.ReplaceAllString(text, "$1")
	text = repeatedComma.ReplaceAllString(text, ",")
	text = multiSpace.ReplaceAllString(text, " ")
	text = strings.TrimSpace(text)
	text = strings.TrimLeft(text, ",;. ")
	text = strings.TrimRight(text, ",; ")
	return text
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
