package model

import "time"

// Follow-up signal statuses. Pending and approved are "active"; a contact
// may hold at most one active signal at a time.
const (
	SignalPending   = "pending"
	SignalApproved  = "approved"
	SignalDismissed = "dismissed"
	SignalExpired   = "expired"
)

// SignalTTL is how long a signal stays actionable before an expiry pass
// marks it expired.
const SignalTTL = 7 * 24 * time.Hour

// ActiveSignalStatus reports whether status is non-terminal.
func ActiveSignalStatus(status string) bool {
	return status == SignalPending || status == SignalApproved
}

// FollowUpSignal is the system's single current recommendation to act on a
// contact, with a 0-100 priority and a human-readable justification.
type FollowUpSignal struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contact_id"`
	InteractionID string    `json:"interaction_id"`
	ExperienceID  string    `json:"experience_id,omitempty"`
	Priority      int       `json:"priority"`
	Reasoning     string    `json:"reasoning"`
	Status        string    `json:"status"`
	ExpiresAt     time.Time `json:"expires_at"`
	CreatedAt     time.Time `json:"created_at"`
}
