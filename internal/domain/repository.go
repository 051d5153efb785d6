package domain

import "context"

// UserResolver returns the generation profile of a user.
type UserResolver interface {
	Profile(ctx context.Context, userID string) (*UserProfile, error)
}

// FeedRepository persists feed layouts and their posts.
type FeedRepository interface {
	CreateWithPosts(ctx context.Context, layout *FeedLayout) (string, error)
	GetLayout(ctx context.Context, feedID, userID string) (*FeedLayout, error)
	ListPosts(ctx context.Context, feedID string) ([]FeedPost, error)
	SavePostPrompt(ctx context.Context, feedID string, position int, prompt string, shot ShotType) error
	SavePostCaption(ctx context.Context, postID, caption string) error
	ClaimPost(ctx context.Context, postID string) (bool, error)
	ReleasePost(ctx context.Context, postID string) error
	MarkPostGenerating(ctx context.Context, postID, predictionID string) error
	MarkPostFailed(ctx context.Context, postID, reason string) error
	CompletePrediction(ctx context.Context, predictionID, imageURL string) (bool, error)
	FailPrediction(ctx context.Context, predictionID, reason string) (bool, error)
	MarkLayoutReady(ctx context.Context, feedID, templateKey string) error
	MarkLayoutFailed(ctx context.Context, feedID, reason string) error
	ClaimProcessing(ctx context.Context) (*FeedLayout, error)
}

// RotationStore keeps rotation cursors. Add must be an atomic
// increment-by-delta at the storage layer.
type RotationStore interface {
	Ensure(ctx context.Context, key RotationKey) (RotationState, error)
	Add(ctx context.Context, key RotationKey, delta RotationDelta) (RotationState, error)
	Reset(ctx context.Context, userID, vibe, fashionStyle string) (int64, error)
}

// CreditLedger is the per-user credit balance.
type CreditLedger interface {
	CheckBalance(ctx context.Context, userID string, amount int) (bool, error)
	Deduct(ctx context.Context, userID string, amount int, reason, referenceID string) (int, error)
}
