package domain

import (
	"strings"
	"time"
)

// PostsPerFeed is the fixed size of an Instagram grid plan.
const PostsPerFeed = 9

// GenerationMode selects the image pipeline used for a post.
type GenerationMode string

const (
	ModeClassic GenerationMode = "classic"
	ModePro     GenerationMode = "pro"
)

// Valid reports whether m is a known mode.
func (m GenerationMode) Valid() bool {
	return m == ModeClassic || m == ModePro
}

// ShotType classifies a frame by camera framing.
type ShotType string

const (
	ShotFlatlay  ShotType = "flatlay"
	ShotCloseup  ShotType = "closeup"
	ShotFullbody ShotType = "fullbody"
	ShotMidshot  ShotType = "midshot"
)

// FeedStatus enumerates the lifecycle of a feed layout.
type FeedStatus string

const (
	FeedStatusProcessing FeedStatus = "processing"
	FeedStatusReady      FeedStatus = "ready"
	FeedStatusFailed     FeedStatus = "failed"
)

// PostStatus enumerates the generation lifecycle of a single post.
type PostStatus string

const (
	PostStatusPending    PostStatus = "pending"
	PostStatusGenerating PostStatus = "generating"
	PostStatusSucceeded  PostStatus = "succeeded"
	PostStatusFailed     PostStatus = "failed"
)

// CustomSettings carries the per-feed options supplied at creation time.
// Pointer fields are user overrides for the per-shot quality presets.
type CustomSettings struct {
	Mode           GenerationMode `json:"mode,omitempty"`
	ProModeType    string         `json:"pro_mode_type,omitempty"`
	ProPositions   []int          `json:"pro_positions,omitempty"`
	FashionStyle   string         `json:"fashion_style,omitempty"`
	AspectRatio    string         `json:"aspect_ratio,omitempty"`
	StyleStrength  *float64       `json:"style_strength,omitempty"`
	PromptAccuracy *float64       `json:"prompt_accuracy,omitempty"`
	ExtraLoraScale *float64       `json:"extra_lora_scale,omitempty"`
	AutoQueue      bool           `json:"auto_queue,omitempty"`
}

// ModeFor returns the generation mode of the post at position.
func (s CustomSettings) ModeFor(position int) GenerationMode {
	for _, p := range s.ProPositions {
		if p == position {
			return ModePro
		}
	}
	if s.Mode == ModePro {
		return ModePro
	}
	return ModeClassic
}

// FeedLayout owns exactly nine feed posts.
type FeedLayout struct {
	ID           string
	UserID       string
	FeedStyle    string
	FashionStyle string
	TemplateKey  string
	Status       FeedStatus
	Settings     CustomSettings
	Locale       string
	ErrorMessage string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FeedPost is one grid position of a feed layout. Empty strings stand in for
// NULL columns.
type FeedPost struct {
	ID           string
	FeedLayoutID string
	UserID       string
	Position     int
	Mode         GenerationMode
	ProModeType  string
	ShotType     ShotType
	Prompt       string
	Caption      string
	Status       PostStatus
	PredictionID string
	ImageURL     string
	ErrorMessage string
	UpdatedAt    time.Time
}

// Terminal reports whether the post already holds a finished image.
func (p FeedPost) Terminal() bool {
	return strings.TrimSpace(p.ImageURL) != ""
}

// InFlight reports whether a provider job is already running for the post.
func (p FeedPost) InFlight() bool {
	return p.Status == PostStatusGenerating && strings.TrimSpace(p.PredictionID) != ""
}

// Queueable reports whether a dispatcher pass may submit the post.
func (p FeedPost) Queueable() bool {
	return !p.Terminal() && !p.InFlight()
}
