package dispatch

import (
	"strings"
	"testing"

	"feedplanner/internal/domain"
	"feedplanner/internal/frames"
	"feedplanner/internal/injector"
	"feedplanner/internal/library"
	"feedplanner/internal/placeholder"
	"feedplanner/internal/templates"
)

func TestRepairTriggerPrefix(t *testing.T) {
	t.Parallel()
	woman := Identity{TriggerWord: "TOK", Gender: "female"}
	cases := []struct {
		name   string
		prompt string
		id     Identity
		want   string
		repair Repair
	}{
		{name: "already prefixed", prompt: "TOK, woman, standing in a lobby", id: woman, want: "TOK, woman, standing in a lobby"},
		{name: "case insensitive", prompt: "tok woman in a coat", id: woman, want: "tok woman in a coat"},
		{name: "no trigger configured", prompt: "woman in a coat", id: Identity{}, want: "woman in a coat"},
		{name: "username token", prompt: "user_abc123 Full-body shot wearing a coat", id: woman, want: "TOK, woman, Full-body shot wearing a coat", repair: RepairRewritten},
		{name: "handle", prompt: "@jane.doe close-up of gold earrings", id: woman, want: "TOK, woman, close-up of gold earrings", repair: RepairRewritten},
		{name: "trigger inside word", prompt: "TOKEN necklace on velvet", id: woman, want: "TOK, woman, TOKEN necklace on velvet", repair: RepairPrefixed},
		{name: "stray trigger", prompt: "Close-up of earrings, tok", id: woman, want: "TOK, woman, Close-up of earrings", repair: RepairRewritten},
		{name: "only handle", prompt: "@jane", id: woman, want: "TOK, woman", repair: RepairRewritten},
		{
			name:    "ethnicity and gender",
			prompt:  "Mid-shot in linen",
			id:      Identity{TriggerWord: "ZXQ", Gender: "male", Ethnicity: "Indonesian"},
			want:   "ZXQ, Indonesian man, Mid-shot in linen",
			repair: RepairPrefixed,
		},
		{name: "unknown gender", prompt: "Mid-shot in linen", id: Identity{TriggerWord: "ZXQ"}, want: "ZXQ, person, Mid-shot in linen", repair: RepairPrefixed},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			got, repair := RepairTriggerPrefix(tc.prompt, tc.id)
			if got != tc.want || repair != tc.repair {
				t.Fatalf("RepairTriggerPrefix(%q) = (%q, %v), want (%q, %v)", tc.prompt, got, repair, tc.want, tc.repair)
			}
			if !HasTriggerPrefix(got, tc.id.TriggerWord) {
				t.Fatalf("HasTriggerPrefix(%q, %q) = false after repair", got, tc.id.TriggerWord)
			}
		})
	}
}

func TestRepairTriggerPrefixIsStable(t *testing.T) {
	id := Identity{TriggerWord: "TOK", Gender: "female"}
	once, _ := RepairTriggerPrefix("user_x1 wearing a camel coat", id)
	twice, repair := RepairTriggerPrefix(once, id)
	if repair != RepairNone || twice != once {
		t.Fatalf("second repair = (%q, %v), want (%q, RepairNone)", twice, repair, once)
	}
}

func TestRepairTriggerPrefixOnCorpusPrompts(t *testing.T) {
	tpl, ok := templates.MustLoad().Get("luxury_dark_moody")
	if !ok {
		t.Fatal("luxury_dark_moody template missing from corpus")
	}
	values, err := injector.BuildPlaceholders(library.MustLoad(), injector.Context{Vibe: "luxury_dark_moody", FashionStyle: "casual"})
	if err != nil {
		t.Fatalf("BuildPlaceholders: %v", err)
	}
	body := placeholder.Replace(tpl.Body, values)
	id := Identity{TriggerWord: "TOK", Gender: "female"}

	p, err := frames.BuildSingleImagePrompt(body, 3)
	if err != nil {
		t.Fatalf("BuildSingleImagePrompt: %v", err)
	}
	got, repair := RepairTriggerPrefix(p.Text, id)
	if repair != RepairPrefixed {
		t.Fatalf("position 3 repair = %v, want RepairPrefixed for %q", repair, p.Text)
	}
	if !strings.HasPrefix(got, "TOK, woman, "+frames.IdentityAnchor) {
		t.Fatalf("position 3 prompt = %q", got)
	}

	for pos := 1; pos <= domain.PostsPerFeed; pos++ {
		p, err := frames.BuildSingleImagePrompt(body, pos)
		if err != nil {
			t.Fatalf("position %d: %v", pos, err)
		}
		if _, repair := RepairTriggerPrefix(p.Text, id); repair == RepairRewritten {
			t.Fatalf("position %d: corpus prompt needed a rewrite: %q", pos, p.Text)
		}
	}
}

func TestPresetFor(t *testing.T) {
	if got := PresetFor(domain.ShotFlatlay); got.AspectRatio != "1:1" || got.LoraScale != 0.6 || got.ExtraLoraScale != 0 {
		t.Fatalf("flatlay preset = %+v", got)
	}
	if got := PresetFor(domain.ShotCloseup); got.GuidanceScale != 3.0 || got.LoraScale != 1.05 {
		t.Fatalf("closeup preset = %+v", got)
	}
	if got, want := PresetFor(domain.ShotType("weird")), PresetFor(domain.ShotMidshot); got != want {
		t.Fatalf("unknown shot preset = %+v, want %+v", got, want)
	}
}

func TestPresetWithOverrides(t *testing.T) {
	high, low, mid := 5.0, 0.2, 0.5
	got := PresetFor(domain.ShotFullbody).WithOverrides(domain.CustomSettings{
		AspectRatio:    "9:16",
		StyleStrength:  &high,
		PromptAccuracy: &low,
		ExtraLoraScale: &mid,
	})
	want := Preset{AspectRatio: "9:16", GuidanceScale: 1, LoraScale: 2, ExtraLoraScale: 0.5}
	if got != want {
		t.Fatalf("WithOverrides = %+v, want %+v", got, want)
	}

	if got := PresetFor(domain.ShotFullbody).WithOverrides(domain.CustomSettings{AspectRatio: "7:3"}); got.AspectRatio != "4:5" {
		t.Fatalf("AspectRatio = %q, want 4:5", got.AspectRatio)
	}
}

func TestClassicInput(t *testing.T) {
	in := classicInput("TOK, woman, coat", PresetFor(domain.ShotFlatlay))
	if in["model"] != "dev" || in["go_fast"] != false || in["num_outputs"] != 1 || in["aspect_ratio"] != "1:1" {
		t.Fatalf("classicInput = %v", in)
	}
}

func TestProPromptBuilder(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		in   ProPromptInput
		want string
	}{
		{
			name: "flatlay has no person",
			in:   ProPromptInput{Prompt: "Overhead flatlay of coffee.", ShotType: domain.ShotFlatlay, ProModeType: "product"},
			want: "Objects only, no people or hands in frame. Overhead flatlay of coffee. " +
				"Product-forward composition where the styled items are the hero of the frame.",
		},
		{
			name: "anchor replaced and brand kit applied",
			in: ProPromptInput{
				Prompt:      frames.IdentityAnchor + ", Full-body shot wearing a coat",
				ShotType:    domain.ShotFullbody,
				ProModeType: "Editorial",
				BrandKit:    &domain.BrandKit{PrimaryColor: "#111111", AccentColor: "#c9a227", Tone: "quiet"},
			},
			want: "Use the person shown in the reference images and keep their face, hair and body proportions identical. " +
				"Full-body shot wearing a coat. " +
				"Editorial magazine quality with refined composition and intentional posing. " +
				"Weave the brand colors #111111, #c9a227 subtly into styling and props with a quiet tone.",
		},
		{
			name: "unknown mode and empty kit",
			in:   ProPromptInput{Prompt: "Close-up of earrings", ShotType: domain.ShotCloseup, ProModeType: "cinematic", BrandKit: &domain.BrandKit{}},
			want: "Use the person shown in the reference images and keep their face, hair and body proportions identical. Close-up of earrings.",
		},
		{
			name: "tone only",
			in:   ProPromptInput{Prompt: "Mid-shot", ShotType: domain.ShotMidshot, BrandKit: &domain.BrandKit{Tone: "playful"}},
			want: "Use the person shown in the reference images and keep their face, hair and body proportions identical. Mid-shot. Keep a playful brand tone.",
		},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := (ProPromptBuilder{}).Build(tc.in); got != tc.want {
				t.Fatalf("Build = %q, want %q", got, tc.want)
			}
		})
	}
}
