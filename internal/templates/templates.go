// Package templates holds the embedded photoshoot template corpus and maps a
// user's brand aesthetic and feed style onto a template key.
package templates

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"feedplanner/internal/domain"
	"feedplanner/internal/frames"
)

//go:embed templates.yaml
var embeddedTemplates []byte

// Template is one immutable nine-frame document.
type Template struct {
	Key      string `yaml:"key"`
	Category string `yaml:"category"`
	Mood     string `yaml:"mood"`
	Body     string `yaml:"body"`
}

type document struct {
	Templates []Template `yaml:"templates"`
}

// Corpus indexes templates by key.
type Corpus struct {
	byKey map[string]Template
}

// Load parses and validates the embedded corpus.
func Load() (*Corpus, error) {
	return Parse(embeddedTemplates)
}

// MustLoad is Load for program start-up.
func MustLoad() *Corpus {
	c, err := Load()
	if err != nil {
		panic(err)
	}
	return c
}

// Parse decodes a corpus. Every template must pass frames.ValidateTemplate
// and its key must equal Key(category, mood).
func Parse(data []byte) (*Corpus, error) {
	var doc document
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("templates: decode: %w", err)
	}
	c := &Corpus{byKey: make(map[string]Template, len(doc.Templates))}
	for _, t := range doc.Templates {
		if want := Key(t.Category, t.Mood); t.Key != want {
			return nil, fmt.Errorf("templates: key %q does not match category/mood %q", t.Key, want)
		}
		if report := frames.ValidateTemplate(t.Body); !report.IsValid {
			return nil, fmt.Errorf("templates: %s is invalid: frames=%d vibe=%t setting=%t color_grade=%t",
				t.Key, report.FrameCount, report.HasVibe, report.HasSetting, report.HasColorGrade)
		}
		if _, dup := c.byKey[t.Key]; dup {
			return nil, fmt.Errorf("templates: duplicate key %q", t.Key)
		}
		c.byKey[t.Key] = t
	}
	return c, nil
}

// Key builds the template key of a (category, mood) pair.
func Key(category, mood string) string {
	return strings.ToLower(strings.TrimSpace(category)) + "_" + strings.ToLower(strings.TrimSpace(mood))
}

// Keys lists the template keys in sorted order.
func (c *Corpus) Keys() []string {
	keys := make([]string, 0, len(c.byKey))
	for k := range c.byKey {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Get returns the template stored under key.
func (c *Corpus) Get(key string) (Template, bool) {
	t, ok := c.byKey[key]
	return t, ok
}

// Resolve returns the template for (category, mood).
func (c *Corpus) Resolve(category, mood string) (Template, error) {
	key := Key(category, mood)
	t, ok := c.byKey[key]
	if !ok {
		return Template{}, fmt.Errorf("templates: %w for key %q, available keys are %v", domain.ErrTemplateNotFound, key, c.Keys())
	}
	return t, nil
}
