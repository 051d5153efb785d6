package domain

import "time"

// Library content consumed by one feed.
const (
	OutfitsPerFeed     = 4
	LocationsPerFeed   = 3
	AccessoriesPerFeed = 2
)

// FeedRotationDelta moves cursors past the content one feed consumed.
var FeedRotationDelta = RotationDelta{
	Outfit:    OutfitsPerFeed,
	Location:  LocationsPerFeed,
	Accessory: AccessoriesPerFeed,
}

// RotationKey identifies one rotation cursor set.
type RotationKey struct {
	UserID       string
	Vibe         string
	FashionStyle string
}

// RotationDelta is the amount each cursor advances after a feed.
type RotationDelta struct {
	Outfit    int
	Location  int
	Accessory int
}

// RotationState holds the per-(user, vibe, style) cursors into the content
// library. Indices are unbounded and wrap at use time.
type RotationState struct {
	RotationKey
	OutfitIndex      int
	LocationIndex    int
	AccessoryIndex   int
	TotalGenerations int
	LastUsedAt       time.Time
}
