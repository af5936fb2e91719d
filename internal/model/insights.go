package model

// ImageInsights are the grounded story-building cues extracted from the image
// before the narrative call. Intermediate artifact only; never persisted.
type ImageInsights struct {
	Title     string   `json:"title"`
	Caption   string   `json:"caption"`
	Subjects  []string `json:"subjects"`
	Setting   string   `json:"setting"`
	Colors    []string `json:"colors"`
	TimeOfDay string   `json:"time_of_day,omitempty"`
}

// ContentVerdict is the moderation classifier output.
type ContentVerdict struct {
	Summary      string `json:"summary"`
	IsRestricted bool   `json:"is_restricted"`
}
