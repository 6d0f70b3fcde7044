package model

import "time"

// Extraction processing statuses stored on the interaction.
const (
	ExtractionCompleted = "completed"
	ExtractionFailed    = "failed"
)

// ExtractionData is the normalized shape of the relationship-extraction
// model pass. The model is instructed to report only information that is
// new relative to the contact context it was shown.
type ExtractionData struct {
	Family      string   `json:"family,omitempty"`
	Occupation  string   `json:"occupation,omitempty"`
	Recreation  string   `json:"recreation,omitempty"`
	Dreams      string   `json:"dreams,omitempty"`
	Profession  string   `json:"profession,omitempty"`
	Needs       []string `json:"needs,omitempty"`
	Offers      []string `json:"offers,omitempty"`
	ActionItems []string `json:"action_items,omitempty"`
	KeyTopics   []string `json:"key_topics,omitempty"`
	Summary     string   `json:"summary,omitempty"`
}

// Empty reports whether the extraction carried no new information.
func (d *ExtractionData) Empty() bool {
	if d == nil {
		return true
	}
	return d.Family == "" && d.Occupation == "" && d.Recreation == "" &&
		d.Dreams == "" && d.Profession == "" && len(d.Needs) == 0 &&
		len(d.Offers) == 0 && len(d.ActionItems) == 0 && len(d.KeyTopics) == 0
}

// ExtractionResult is what gets persisted on the interaction's
// extracted_data blob once processing completes. A failed model call
// produces Status "failed" with the error message; it never escapes the
// stage as a Go error.
type ExtractionResult struct {
	Status      string          `json:"status"`
	Data        *ExtractionData `json:"data,omitempty"`
	Error       string          `json:"error,omitempty"`
	ProcessedAt time.Time       `json:"processed_at"`
}
