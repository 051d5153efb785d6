package frames

import (
	"fmt"
	"strings"

	"feedplanner/internal/domain"
	"feedplanner/internal/placeholder"
)

// IdentityAnchor asks the image model to keep the subject's likeness. It is
// never added to flatlay prompts, which show objects only.
const IdentityAnchor = "Photorealistic photo of the same person from the reference, preserving their exact face and identity"

// Prompt is the assembled prompt of one grid position.
type Prompt struct {
	Position int
	ShotType domain.ShotType
	Text     string
}

// BuildSingleImagePrompt assembles the prompt for position from a fully
// injected template. Clauses are space-joined in a fixed order: identity
// anchor (not for flatlays), vibe, setting, cleaned frame, color grade.
func BuildSingleImagePrompt(template string, position int) (Prompt, error) {
	if position < 1 || position > domain.PostsPerFeed {
		return Prompt{}, fmt.Errorf("frames: %w %d, must be between 1 and %d", domain.ErrInvalidPosition, position, domain.PostsPerFeed)
	}
	parsed := ParseTemplate(template)
	frame, ok := parsed.Frame(position)
	if !ok {
		return Prompt{}, fmt.Errorf("frames: no frame for position %d, available positions are %v", position, parsed.Positions())
	}
	shot := DetectFrameType(frame.Description)

	clauses := make([]string, 0, 5)
	if shot != domain.ShotFlatlay {
		clauses = append(clauses, IdentityAnchor)
	}
	if vibe := trimClause(parsed.Vibe); vibe != "" {
		clauses = append(clauses, "with "+vibe+" aesthetic")
	}
	if setting := trimClause(parsed.Setting); setting != "" {
		clauses = append(clauses, "in "+setting)
	}
	if desc := trimClause(CleanFrame(frame.Description, shot)); desc != "" {
		clauses = append(clauses, desc)
	}
	if grade := trimClause(parsed.ColorGrade); grade != "" {
		clauses = append(clauses, "with "+grade+" color palette")
	}
	return Prompt{Position: position, ShotType: shot, Text: strings.Join(clauses, " ")}, nil
}

// CleanBlueprintPrompt strips unresolved placeholder tokens so a preview can
// render with missing data.
func CleanBlueprintPrompt(prompt string) string {
	return placeholder.CleanBlueprint(prompt)
}

func trimClause(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".,;: ")
}
