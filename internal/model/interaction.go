package model

import (
	"encoding/json"
	"time"
)

// Interaction types as delivered by the sync agents.
const (
	InteractionCall      = "call"
	InteractionMeeting   = "meeting"
	InteractionInPerson  = "in_person"
	InteractionVoicemail = "voicemail"
	InteractionText      = "text"
	InteractionEmail     = "email"
)

type Interaction struct {
	ID            string          `json:"id"`
	ContactID     string          `json:"contact_id,omitempty"`
	Type          string          `json:"type"`
	Title         string          `json:"title,omitempty"`
	Transcript    string          `json:"transcript,omitempty"`
	Summary       string          `json:"summary,omitempty"`
	OccurredAt    time.Time       `json:"occurred_at"`
	CreatedAt     time.Time       `json:"created_at"`
	DeletedAt     *time.Time      `json:"deleted_at,omitempty"`
	ExtractedData json.RawMessage `json:"extracted_data,omitempty"`
}

// Text returns the content the pipeline should analyze: the transcript,
// falling back to the summary when no transcript was captured.
func (i *Interaction) Text() string {
	if i.Transcript != "" {
		return i.Transcript
	}
	return i.Summary
}
