// Package features extracts the four feature groups (textual, visual,
// behavioral, contextual) the heuristic scorer consumes. Extraction is a pure
// function of current element + ancestor state and is recomputed fresh per
// scan; nothing is cached because pages mutate between scans.
package features

// TextFeatures describe the element's text content.
type TextFeatures struct {
	// Length is the normalized text length in characters.
	Length int `json:"length"`

	// SentimentScore is the lexicon score (positive - negative hits)
	// normalized by word count, in roughly [-1, 1].
	SentimentScore float64 `json:"sentiment_score"`

	// ManipulativePenalty accumulates fixed penalties from the
	// manipulative-phrase bank. Kept separate from SentimentScore: the two are
	// independent signals.
	ManipulativePenalty float64 `json:"manipulative_penalty"`

	HasNegativeLanguage   bool `json:"has_negative_language"`
	HasUrgentLanguage     bool `json:"has_urgent_language"`
	HasManipulativePhrase bool `json:"has_manipulative_phrase"`

	// HasNumericClaim reports any digit in the text ("only 3 left", "87% off").
	HasNumericClaim bool `json:"has_numeric_claim"`
}

// VisualFeatures describe computed presentation.
type VisualFeatures struct {
	Opacity  float64 `json:"opacity"`
	FontSize float64 `json:"font_size"`

	// Luminances are weighted-RGB values in [0, 255]; un-parseable colors
	// default to mid-gray 128.
	ForegroundLuminance float64 `json:"foreground_luminance"`
	BackgroundLuminance float64 `json:"background_luminance"`

	// ContrastRatio is (lighter + 0.05) / (darker + 0.05) over luminances
	// normalized to [0, 1].
	ContrastRatio float64 `json:"contrast_ratio"`

	ZIndex       int  `json:"z_index"`
	IsOverlay    bool `json:"is_overlay"`
	HasAnimation bool `json:"has_animation"`
	Visible      bool `json:"visible"`
}

// BehavioralFeatures describe how the element participates in interaction.
type BehavioralFeatures struct {
	Interactive       bool `json:"interactive"`
	IsForm            bool `json:"is_form"`
	HasPreselection   bool `json:"has_preselection"`
	HasHiddenInputs   bool `json:"has_hidden_inputs"`
	HasTimeConstraint bool `json:"has_time_constraint"`
	BlocksUserAction  bool `json:"blocks_user_action"`
	HasRedirection    bool `json:"has_redirection"`
}

// ContextualFeatures describe the element's placement on the page.
type ContextualFeatures struct {
	InModal       bool `json:"in_modal"`
	InPopup       bool `json:"in_popup"`
	AppearsOnLoad bool `json:"appears_on_load"`

	// ProximityToAction is the Euclidean distance from the element's top-left
	// corner to the nearest primary-action element, nil when the page has none.
	ProximityToAction *float64 `json:"proximity_to_action,omitempty"`
}

// FeatureSet is the full extraction result for one element.
type FeatureSet struct {
	Text       TextFeatures       `json:"text"`
	Visual     VisualFeatures     `json:"visual"`
	Behavioral BehavioralFeatures `json:"behavioral"`
	Context    ContextualFeatures `json:"context"`
}
