package dispatch

import (
	"strings"

	"feedplanner/internal/domain"
)

// Preset is the per-shot quality configuration of a classic submission.
type Preset struct {
	AspectRatio    string
	GuidanceScale  float64
	LoraScale      float64
	ExtraLoraScale float64
}

var shotPresets = map[domain.ShotType]Preset{
	domain.ShotFullbody: {AspectRatio: "4:5", GuidanceScale: 3.5, LoraScale: 1.0, ExtraLoraScale: 0.25},
	domain.ShotMidshot:  {AspectRatio: "4:5", GuidanceScale: 3.5, LoraScale: 1.0, ExtraLoraScale: 0.25},
	domain.ShotCloseup:  {AspectRatio: "4:5", GuidanceScale: 3.0, LoraScale: 1.05, ExtraLoraScale: 0.2},
	domain.ShotFlatlay:  {AspectRatio: "1:1", GuidanceScale: 3.5, LoraScale: 0.6, ExtraLoraScale: 0.0},
}

var allowedAspectRatios = map[string]struct{}{
	"1:1": {}, "4:5": {}, "3:4": {}, "2:3": {}, "3:2": {}, "9:16": {}, "16:9": {},
}

// Override bounds.
const (
	minLoraScale      = 0.0
	maxLoraScale      = 2.0
	minGuidanceScale  = 1.0
	maxGuidanceScale  = 10.0
	minExtraLoraScale = 0.0
	maxExtraLoraScale = 1.0
)

// Fixed classic parameters.
const (
	classicNumOutputs        = 1
	classicOutputFormat      = "png"
	classicOutputQuality     = 95
	classicInferenceSteps    = 40
	classicMegapixels        = "1"
	classicModelVariant      = "dev"
	proAspectRatio           = "4:5"
	proResolution            = "2K"
	proOutputFormat          = "png"
	minReferenceImagesForPro = 3
)

// PresetFor returns the preset of shot, defaulting to the mid-shot preset.
func PresetFor(shot domain.ShotType) Preset {
	if p, ok := shotPresets[shot]; ok {
		return p
	}
	return shotPresets[domain.ShotMidshot]
}

// WithOverrides merges user settings into p. Style strength maps to the
// LoRA scale and prompt accuracy to the guidance scale; values are clamped
// and unknown aspect ratios are ignored.
func (p Preset) WithOverrides(s domain.CustomSettings) Preset {
	if ar := strings.TrimSpace(s.AspectRatio); ar != "" {
		if _, ok := allowedAspectRatios[ar]; ok {
			p.AspectRatio = ar
		}
	}
	if s.StyleStrength != nil {
		p.LoraScale = clamp(*s.StyleStrength, minLoraScale, maxLoraScale)
	}
	if s.PromptAccuracy != nil {
		p.GuidanceScale = clamp(*s.PromptAccuracy, minGuidanceScale, maxGuidanceScale)
	}
	if s.ExtraLoraScale != nil {
		p.ExtraLoraScale = clamp(*s.ExtraLoraScale, minExtraLoraScale, maxExtraLoraScale)
	}
	return p
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// classicInput is the prediction input of a classic submission.
func classicInput(prompt string, p Preset) map[string]any {
	return map[string]any{
		"prompt":              prompt,
		"model":               classicModelVariant,
		"aspect_ratio":        p.AspectRatio,
		"guidance_scale":      p.GuidanceScale,
		"lora_scale":          p.LoraScale,
		"extra_lora_scale":    p.ExtraLoraScale,
		"num_outputs":         classicNumOutputs,
		"output_format":       classicOutputFormat,
		"output_quality":      classicOutputQuality,
		"num_inference_steps": classicInferenceSteps,
		"go_fast":             false,
		"megapixels":          classicMegapixels,
	}
}

// proInput is the prediction input of a pro submission.
func proInput(prompt string, references []string) map[string]any {
	return map[string]any{
		"prompt":        prompt,
		"image_input":   references,
		"aspect_ratio":  proAspectRatio,
		"resolution":    proResolution,
		"output_format": proOutputFormat,
	}
}
