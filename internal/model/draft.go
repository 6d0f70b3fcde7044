package model

import "time"

// Draft types.
const (
	DraftEmail           = "email"
	DraftHandwrittenNote = "handwritten_note"
	DraftTask            = "task"
)

// Draft statuses. Sent/used transitions happen outside the pipeline.
const (
	DraftPending = "pending"
	DraftSent    = "sent"
	DraftUsed    = "used"
)

// Handwritten-note reasons the server-side policy accepts. The model's own
// enthusiasm for notes is not trusted without one of these.
const (
	NoteReasonInPersonMeeting = "in_person_meeting"
	NoteReasonLifeEvent       = "life_event"
	NoteReasonExplicitRequest = "explicit_request"
)

// DraftMetadata carries per-draft annotations: email subject, the note
// policy reason, and third-party linkage produced by contact resolution.
type DraftMetadata struct {
	Subject             string `json:"subject,omitempty"`
	NoteReason          string `json:"note_reason,omitempty"`
	ThirdParty          bool   `json:"third_party,omitempty"`
	ThirdPartyContactID string `json:"third_party_contact_id,omitempty"`
	NeedsManualLinking  bool   `json:"needs_manual_linking,omitempty"`
	SecondaryContactID  string `json:"secondary_contact_id,omitempty"`
	Connection          bool   `json:"connection,omitempty"`
}

// GeneratedDraft is a candidate outbound communication awaiting review.
type GeneratedDraft struct {
	ID            string        `json:"id"`
	ContactID     string        `json:"contact_id"`
	InteractionID string        `json:"interaction_id"`
	Type          string        `json:"type"`
	Title         string        `json:"title"`
	Content       string        `json:"content"`
	Status        string        `json:"status"`
	Metadata      DraftMetadata `json:"metadata"`
	CreatedAt     time.Time     `json:"created_at"`
}
