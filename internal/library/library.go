// Package library holds the vibe and fashion-style content corpus used to
// fill dynamic template placeholders.
package library

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"feedplanner/internal/domain"
)

//go:embed library.yaml
var embeddedLibrary []byte

// Setting tags a location as indoor or outdoor.
type Setting string

const (
	SettingIndoor  Setting = "indoor"
	SettingOutdoor Setting = "outdoor"
)

// Outfit is an ordered list of garment pieces with a styling description.
type Outfit struct {
	Pieces      []string `yaml:"pieces"`
	Description string   `yaml:"description"`
}

// Location is a scene description tagged by setting.
type Location struct {
	Description string  `yaml:"description"`
	Setting     Setting `yaml:"setting"`
}

// AccessorySet is one group of props shot together.
type AccessorySet struct {
	Description string `yaml:"description"`
}

// Vibe is the library entry for one aesthetic.
type Vibe struct {
	Outfits     map[string][]Outfit `yaml:"outfits"`
	Locations   []Location          `yaml:"locations"`
	Accessories []AccessorySet      `yaml:"accessories"`
	Palette     []string            `yaml:"palette"`
	Textures    []string            `yaml:"textures"`
}

// Content is the slice of a vibe relevant to one fashion style.
type Content struct {
	Outfits     []Outfit
	Locations   []Location
	Accessories []AccessorySet
	Palette     []string
	Textures    []string
}

type document struct {
	Vibes map[string]Vibe `yaml:"vibes"`
}

// Library is an immutable, in-memory content corpus.
type Library struct {
	vibes map[string]Vibe
}

// Load parses the embedded corpus.
func Load() (*Library, error) {
	return Parse(embeddedLibrary)
}

// MustLoad is Load for program start-up.
func MustLoad() *Library {
	lib, err := Load()
	if err != nil {
		panic(err)
	}
	return lib
}

// Parse decodes a YAML corpus. Unknown location settings are rejected.
func Parse(data []byte) (*Library, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("library: decode: %w", err)
	}
	if len(doc.Vibes) == 0 {
		return nil, fmt.Errorf("library: %w", domain.ErrEmptyLibrary)
	}
	vibes := make(map[string]Vibe, len(doc.Vibes))
	for name, v := range doc.Vibes {
		for i, loc := range v.Locations {
			if loc.Setting != SettingIndoor && loc.Setting != SettingOutdoor {
				return nil, fmt.Errorf("library: vibe %q location %d: unsupported setting %q", name, i, loc.Setting)
			}
		}
		outfits := make(map[string][]Outfit, len(v.Outfits))
		for style, list := range v.Outfits {
			outfits[normalize(style)] = list
		}
		v.Outfits = outfits
		vibes[normalize(name)] = v
	}
	return &Library{vibes: vibes}, nil
}

// Content returns the outfits for fashionStyle plus the shared vibe lists.
// An unknown vibe is an error; an unknown style yields no outfits.
func (l *Library) Content(vibe, fashionStyle string) (Content, error) {
	v, ok := l.vibes[normalize(vibe)]
	if !ok {
		return Content{}, fmt.Errorf("library: %w %q, supported are %v", domain.ErrUnknownVibe, vibe, l.Vibes())
	}
	return Content{
		Outfits:     v.Outfits[normalize(fashionStyle)],
		Locations:   v.Locations,
		Accessories: v.Accessories,
		Palette:     v.Palette,
		Textures:    v.Textures,
	}, nil
}

// Vibes lists vibe names in sorted order.
func (l *Library) Vibes() []string {
	names := make([]string, 0, len(l.vibes))
	for name := range l.vibes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FashionStyles lists the styles a vibe has outfits for.
func (l *Library) FashionStyles(vibe string) []string {
	v, ok := l.vibes[normalize(vibe)]
	if !ok {
		return nil
	}
	styles := make([]string, 0, len(v.Outfits))
	for style := range v.Outfits {
		styles = append(styles, style)
	}
	sort.Strings(styles)
	return styles
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
