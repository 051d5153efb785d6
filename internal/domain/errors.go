package domain

import "errors"

var (
	ErrNotFound           = errors.New("not found")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidInput       = errors.New("invalid input")
	ErrInvalidFeedStyle   = errors.New("invalid feed style")
	ErrInvalidPosition    = errors.New("invalid position")
	ErrProviderFailure    = errors.New("provider failure")
	ErrStoreUnavailable   = errors.New("store unavailable")
	ErrDuplicateOperation = errors.New("duplicate operation")

	// Configuration errors.
	ErrTemplateNotFound = errors.New("template not found")
	ErrUnknownVibe      = errors.New("unknown vibe")
	ErrNoOutfits        = errors.New("no outfits for fashion style")
	ErrEmptyLibrary     = errors.New("content library is empty")

	// Whole-batch precondition failures.
	ErrInsufficientCredits    = errors.New("insufficient credits")
	ErrNoTrainedModel         = errors.New("no trained model")
	ErrMissingReferenceImages = errors.New("missing reference images")
	ErrLayoutNotReady         = errors.New("feed layout is not ready")

	ErrNoPromptsPersisted = errors.New("no prompts persisted")
)

// Failure codes reported to callers of the dispatcher.
const (
	FailureInsufficientCredits    = "insufficient_credits"
	FailureNoTrainedModel         = "no_trained_model"
	FailureMissingReferenceImages = "missing_reference_images"
	FailureNotReady               = "not_ready"
	FailureRateLimitedExhausted   = "rate_limited_exhausted"
	FailureProviderError          = "provider_error"
	FailureMissingPrompt          = "missing_prompt"
	FailureCreditDeductionFailed  = "credit_deduction_failed"
)

// FailureCode maps a whole-batch precondition error to its failure code.
func FailureCode(err error) string {
	switch {
	case errors.Is(err, ErrInsufficientCredits):
		return FailureInsufficientCredits
	case errors.Is(err, ErrNoTrainedModel):
		return FailureNoTrainedModel
	case errors.Is(err, ErrMissingReferenceImages):
		return FailureMissingReferenceImages
	case errors.Is(err, ErrLayoutNotReady):
		return FailureNotReady
	default:
		return ""
	}
}
