package domain

// TrainedModel is a user's identity model on the prediction provider.
type TrainedModel struct {
	ID           string
	TriggerWord  string
	ModelVersion string
}

// BrandKit carries the optional brand colors and tone used by pro prompts.
type BrandKit struct {
	PrimaryColor   string
	SecondaryColor string
	AccentColor    string
	Tone           string
}

// Empty reports whether the kit carries no usable data.
func (b BrandKit) Empty() bool {
	return b.PrimaryColor == "" && b.SecondaryColor == "" && b.AccentColor == "" && b.Tone == ""
}

// UserProfile is the read model the pipeline needs about a user.
type UserProfile struct {
	ID              string
	BrandAesthetic  string
	FashionStyle    string
	Gender          string
	Ethnicity       string
	Locale          string
	Model           *TrainedModel
	ReferenceImages []string
	BrandKit        *BrandKit
}

// HasTrainedModel reports whether classic generation is possible.
func (u UserProfile) HasTrainedModel() bool {
	return u.Model != nil && u.Model.TriggerWord != "" && u.Model.ModelVersion != ""
}
