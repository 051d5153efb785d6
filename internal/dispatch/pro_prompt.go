package dispatch

import (
	"strings"

	"feedplanner/internal/domain"
	"feedplanner/internal/frames"
)

// ProPromptInput is what the pro prompt builder works from.
type ProPromptInput struct {
	Prompt      string
	ShotType    domain.ShotType
	ProModeType string
	BrandKit    *domain.BrandKit
}

// ProPromptBuilder rewrites a stored prompt for the reference-image model.
type ProPromptBuilder struct{}

var proModeDirections = map[string]string{
	"editorial": "Editorial magazine quality with refined composition and intentional posing",
	"lifestyle": "Candid lifestyle moment with natural movement and relaxed expression",
	"product":   "Product-forward composition where the styled items are the hero of the frame",
	"ugc":       "Authentic smartphone-style photo with natural imperfections",
}

const (
	proIdentityLine = "Use the person shown in the reference images and keep their face, hair and body proportions identical"
	proObjectLine   = "Objects only, no people or hands in frame"
)

// Build assembles the pro prompt. Flatlays never reference the person.
func (ProPromptBuilder) Build(in ProPromptInput) string {
	scene := strings.TrimSpace(in.Prompt)
	scene = strings.TrimSpace(strings.TrimPrefix(scene, frames.IdentityAnchor))
	scene = strings.TrimLeft(scene, ", ")
	scene = strings.TrimRight(scene, ". ")

	parts := make([]string, 0, 4)
	if in.ShotType == domain.ShotFlatlay {
		parts = append(parts, proObjectLine)
	} else {
		parts = append(parts, proIdentityLine)
	}
	if scene != "" {
		parts = append(parts, scene)
	}
	if dir, ok := proModeDirections[strings.ToLower(strings.TrimSpace(in.ProModeType))]; ok {
		parts = append(parts, dir)
	}
	if brand := brandLine(in.BrandKit); brand != "" {
		parts = append(parts, brand)
	}
	return strings.Join(parts, ". ") + "."
}

func brandLine(kit *domain.BrandKit) string {
	if kit == nil || kit.Empty() {
		return ""
	}
	var colors []string
	for _, c := range []string{kit.PrimaryColor, kit.SecondaryColor, kit.AccentColor} {
		if c = strings.TrimSpace(c); c != "" {
			colors = append(colors, c)
		}
	}
	var line string
	if len(colors) > 0 {
		line = "Weave the brand colors " + strings.Join(colors, ", ") + " subtly into styling and props"
	}
	if tone := strings.TrimSpace(kit.Tone); tone != "" {
		if line != "" {
			line += " with a " + tone + " tone"
		} else {
			line = "Keep a " + tone + " brand tone"
		}
	}
	return line
}
