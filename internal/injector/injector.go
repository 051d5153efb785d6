// Package injector turns rotation cursors and library content into concrete
// placeholder values for a template.
package injector

import (
	"context"
	"fmt"
	"strings"

	"feedplanner/internal/domain"
	"feedplanner/internal/library"
	"feedplanner/internal/placeholder"
)

const (
	midshotSlots     = 2
	midshotMaxPieces = 3
)

// Placeholder keys filled by BuildPlaceholders.
const (
	KeyLocationOutdoor   = "LOCATION_OUTDOOR"
	KeyAccessoryCloseup  = "ACCESSORY_CLOSEUP"
	KeyAccessoryFlatlay1 = "ACCESSORY_FLATLAY_1"
	KeyAccessoryFlatlay2 = "ACCESSORY_FLATLAY_2"
	KeyLightingEvening   = "LIGHTING_EVENING"
	KeyLightingFlatlay   = "LIGHTING_FLATLAY"
	KeyLightingCloseup   = "LIGHTING_CLOSEUP"
	KeyStylingNotes      = "STYLING_NOTES"
	KeyColorNotes        = "COLOR_NOTES"
	KeyTextureNotes      = "TEXTURE_NOTES"
)

const (
	lightingEvening = "warm golden-hour evening light with soft long shadows"
	lightingFlatlay = "soft diffused overhead daylight with gentle shadows"
	lightingCloseup = "soft directional window light with shallow depth of field"
)

// FullbodyKey returns OUTFIT_FULLBODY_<n>.
func FullbodyKey(n int) string { return fmt.Sprintf("OUTFIT_FULLBODY_%d", n) }

// MidshotKey returns OUTFIT_MIDSHOT_<n>.
func MidshotKey(n int) string { return fmt.Sprintf("OUTFIT_MIDSHOT_%d", n) }

// IndoorKey returns LOCATION_INDOOR_<n>.
func IndoorKey(n int) string { return fmt.Sprintf("LOCATION_INDOOR_%d", n) }

// ContentSource is the vibe/style content library.
type ContentSource interface {
	Content(vibe, fashionStyle string) (library.Content, error)
}

// Context selects the content of one feed.
type Context struct {
	Vibe           string
	FashionStyle   string
	OutfitIndex    int
	LocationIndex  int
	AccessoryIndex int
}

// BuildPlaceholders selects outfits, locations and accessories from the
// cursors in c, wrapping by the live library size, and formats them into
// placeholder values. Missing content is a configuration error.
func BuildPlaceholders(src ContentSource, c Context) (map[string]string, error) {
	content, err := src.Content(c.Vibe, c.FashionStyle)
	if err != nil {
		return nil, err
	}
	if len(content.Outfits) == 0 {
		return nil, fmt.Errorf("injector: %w: vibe %q style %q", domain.ErrNoOutfits, c.Vibe, c.FashionStyle)
	}
	if len(content.Locations) == 0 || len(content.Accessories) == 0 {
		return nil, fmt.Errorf("injector: %w: vibe %q has %d locations and %d accessory sets",
			domain.ErrEmptyLibrary, c.Vibe, len(content.Locations), len(content.Accessories))
	}

	outfits := pick(content.Outfits, c.OutfitIndex, domain.OutfitsPerFeed)
	locations := pick(content.Locations, c.LocationIndex, domain.LocationsPerFeed)
	accessories := pick(content.Accessories, c.AccessoryIndex, domain.AccessoriesPerFeed)

	values := make(map[string]string, 24)
	for i, o := range outfits {
		values[FullbodyKey(i+1)] = fullbodyClause(o)
	}
	for i := 0; i < midshotSlots; i++ {
		values[MidshotKey(i+1)] = midshotClause(outfits[i])
	}

	values[KeyLocationOutdoor] = outdoorLocation(locations, content.Locations)
	for i, loc := range indoorLocations(locations, content.Locations, c.LocationIndex) {
		values[IndoorKey(i+1)] = loc
	}

	values[KeyAccessoryCloseup] = accessories[0].Description
	values[KeyAccessoryFlatlay1] = accessories[0].Description
	values[KeyAccessoryFlatlay2] = accessories[1].Description

	values[KeyLightingEvening] = lightingEvening
	values[KeyLightingFlatlay] = lightingFlatlay
	values[KeyLightingCloseup] = lightingCloseup

	values[KeyColorNotes] = naturalJoin(content.Palette)
	values[KeyTextureNotes] = naturalJoin(content.Textures)
	values[KeyStylingNotes] = stylingNotes(content.Palette, content.Textures)
	return values, nil
}

func pick[T any](items []T, cursor, n int) []T {
	out := make([]T, n)
	for i := 0; i < n; i++ {
		out[i] = items[wrap(cursor+i, len(items))]
	}
	return out
}

func wrap(i, n int) int {
	m := i % n
	if m < 0 {
		m += n
	}
	return m
}

func fullbodyClause(o library.Outfit) string {
	clause := "wearing " + naturalJoin(o.Pieces)
	if d := strings.TrimSpace(o.Description); d != "" {
		clause += ", " + d
	}
	return clause
}

func midshotClause(o library.Outfit) string {
	pieces := o.Pieces
	if len(pieces) > midshotMaxPieces {
		pieces = pieces[:midshotMaxPieces]
	}
	return "wearing " + naturalJoin(pieces)
}

// outdoorLocation prefers an outdoor entry among the selection, then the
// first outdoor entry of the library, then the first selected location.
func outdoorLocation(selected, all []library.Location) string {
	for _, l := range selected {
		if l.Setting == library.SettingOutdoor {
			return l.Description
		}
	}
	for _, l := range all {
		if l.Setting == library.SettingOutdoor {
			return l.Description
		}
	}
	return selected[0].Description
}

// indoorLocations fills three indoor slots from the selection, tops them up
// by walking the library from cursor, and cycles when the vibe has fewer
// indoor locations than slots.
func indoorLocations(selected, all []library.Location, cursor int) []string {
	out := make([]string, 0, domain.LocationsPerFeed)
	seen := make(map[string]struct{}, domain.LocationsPerFeed)
	add := func(l library.Location) {
		if _, ok := seen[l.Description]; ok || len(out) == domain.LocationsPerFeed {
			return
		}
		seen[l.Description] = struct{}{}
		out = append(out, l.Description)
	}
	for _, l := range selected {
		if l.Setting == library.SettingIndoor {
			add(l)
		}
	}
	for i := 0; i < len(all) && len(out) < domain.LocationsPerFeed; i++ {
		if l := all[wrap(cursor+i, len(all))]; l.Setting == library.SettingIndoor {
			add(l)
		}
	}
	if len(out) == 0 {
		for _, l := range selected {
			add(l)
		}
	}
	for i := 0; len(out) < domain.LocationsPerFeed; i++ {
		out = append(out, out[i])
	}
	return out
}

func stylingNotes(palette, textures []string) string {
	var parts []string
	if len(palette) > 0 {
		parts = append(parts, naturalJoin(firstN(palette, 2))+" tones")
	}
	if len(textures) > 0 {
		parts = append(parts, naturalJoin(firstN(textures, 2))+" textures")
	}
	return strings.Join(parts, " with ")
}

func firstN(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

// naturalJoin joins items as "a, b and c".
func naturalJoin(items []string) string {
	clean := make([]string, 0, len(items))
	for _, it := range items {
		if it = strings.TrimSpace(it); it != "" {
			clean = append(clean, it)
		}
	}
	switch len(clean) {
	case 0:
		return ""
	case 1:
		return clean[0]
	default:
		return strings.Join(clean[:len(clean)-1], ", ") + " and " + clean[len(clean)-1]
	}
}

// RotationReader fetches the cursors of a rotation key.
type RotationReader interface {
	Get(ctx context.Context, userID, vibe, fashionStyle string) (domain.RotationState, error)
}

// Injector combines rotation state with the content library.
type Injector struct {
	content  ContentSource
	rotation RotationReader
}

// New constructs an Injector.
func New(content ContentSource, rotation RotationReader) *Injector {
	return &Injector{content: content, rotation: rotation}
}

// BuildPlaceholdersWithRotation fetches the user's cursors and builds the
// placeholder values from them.
func (i *Injector) BuildPlaceholdersWithRotation(ctx context.Context, userID, vibe, fashionStyle string) (map[string]string, domain.RotationState, error) {
	state, err := i.rotation.Get(ctx, userID, vibe, fashionStyle)
	if err != nil {
		return nil, domain.RotationState{}, fmt.Errorf("injector: rotation state: %w", err)
	}
	values, err := BuildPlaceholders(i.content, Context{
		Vibe:           vibe,
		FashionStyle:   fashionStyle,
		OutfitIndex:    state.OutfitIndex,
		LocationIndex:  state.LocationIndex,
		AccessoryIndex: state.AccessoryIndex,
	})
	if err != nil {
		return nil, state, err
	}
	return values, state, nil
}

// InjectWithRotation substitutes rotated content into template. It never
// advances rotation.
func (i *Injector) InjectWithRotation(ctx context.Context, userID, vibe, fashionStyle, template string) (string, domain.RotationState, error) {
	values, state, err := i.BuildPlaceholdersWithRotation(ctx, userID, vibe, fashionStyle)
	if err != nil {
		return "", state, err
	}
	return placeholder.Replace(template, values), state, nil
}
