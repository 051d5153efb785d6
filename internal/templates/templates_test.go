package templates

import (
	"errors"
	"strings"
	"testing"

	"feedplanner/internal/domain"
	"feedplanner/internal/frames"
)

func TestEmbeddedCorpus(t *testing.T) {
	c, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{
		"luxury_beige_aesthetic", "luxury_dark_moody", "luxury_light_minimalistic",
		"minimal_beige_aesthetic", "minimal_dark_moody", "minimal_light_minimalistic",
	}
	got := c.Keys()
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("Keys() = %v, want %v", got, want)
	}
	for _, key := range got {
		tpl, _ := c.Get(key)
		r := frames.ValidateTemplate(tpl.Body)
		if !r.IsValid || r.FrameCount != domain.PostsPerFeed {
			t.Fatalf("%s: report = %+v", key, r)
		}
		flatlays := 0
		for _, f := range frames.ParseTemplate(tpl.Body).Frames {
			if frames.DetectFrameType(f.Description) == domain.ShotFlatlay {
				flatlays++
			}
		}
		if flatlays == 0 || flatlays == domain.PostsPerFeed {
			t.Fatalf("%s: %d flatlay frames", key, flatlays)
		}
	}
}

func TestResolve(t *testing.T) {
	c := MustLoad()
	tpl, err := c.Resolve("Luxury", "dark_moody")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if tpl.Key != "luxury_dark_moody" {
		t.Fatalf("Key = %q", tpl.Key)
	}
	_, err = c.Resolve("boho", "dark_moody")
	if !errors.Is(err, domain.ErrTemplateNotFound) {
		t.Fatalf("err = %v, want ErrTemplateNotFound", err)
	}
	if !strings.Contains(err.Error(), "boho_dark_moody") || !strings.Contains(err.Error(), "minimal_dark_moody") {
		t.Fatalf("err = %q, want requested and available keys", err)
	}
}

func TestParseRejectsBadCorpus(t *testing.T) {
	valid := MustLoad()
	body, _ := valid.Get("minimal_dark_moody")
	indent := func(s string) string { return "      " + strings.ReplaceAll(strings.TrimRight(s, "\n"), "\n", "\n      ") + "\n" }

	cases := []struct {
		name string
		doc  string
	}{
		{
			name: "key mismatch",
			doc:  "templates:\n  - key: wrong\n    category: minimal\n    mood: dark_moody\n    body: |\n" + indent(body.Body),
		},
		{
			name: "too few frames",
			doc:  "templates:\n  - key: minimal_dark_moody\n    category: minimal\n    mood: dark_moody\n    body: |\n      Vibe: x\n      Setting: y\n      9 frames:\n      1. Mid-shot\n      Color grade: z\n",
		},
		{
			name: "duplicate",
			doc: "templates:\n  - key: minimal_dark_moody\n    category: minimal\n    mood: dark_moody\n    body: |\n" + indent(body.Body) +
				"  - key: minimal_dark_moody\n    category: minimal\n    mood: dark_moody\n    body: |\n" + indent(body.Body),
		},
		{name: "not yaml", doc: "templates: [\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := Parse([]byte(tc.doc)); err == nil {
				t.Fatal("Parse succeeded, want error")
			}
		})
	}
}

func TestMoodFor(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"dark_moody", MoodDarkMoody},
		{"Dark & Moody", MoodDarkMoody},
		{"dark-moody", MoodDarkMoody},
		{"light", MoodLightMinimalistic},
		{"Light Minimalistic", MoodLightMinimalistic},
		{"beige", MoodBeigeAesthetic},
		{"warm neutral", MoodBeigeAesthetic},
	}
	for _, tc := range cases {
		got, err := MoodFor(tc.in)
		if err != nil || got != tc.want {
			t.Fatalf("MoodFor(%q) = %q, %v, want %q", tc.in, got, err, tc.want)
		}
	}
	if _, err := MoodFor("neon"); !errors.Is(err, domain.ErrInvalidFeedStyle) {
		t.Fatalf("MoodFor(neon) err = %v, want ErrInvalidFeedStyle", err)
	}
}

func TestCategoryFor(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", DefaultCategory},
		{"  ", DefaultCategory},
		{"Quiet Luxury", CategoryLuxury},
		{"old-money", CategoryLuxury},
		{"Minimalist", CategoryMinimal},
		{"Boho Chic", "boho_chic"},
	}
	for _, tc := range cases {
		if got := CategoryFor(tc.in); got != tc.want {
			t.Fatalf("CategoryFor(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
