package model

import "time"

// Experience types. Anything the model returns outside this set is dropped.
const (
	ExperienceLifeEvent   = "life_event"
	ExperienceAchievement = "achievement"
	ExperienceStruggle    = "struggle"
	ExperienceTransition  = "transition"
)

// Emotional valence categories used in the extraction rubric.
const (
	ValencePositive = "positive"
	ValenceNegative = "negative"
	ValenceMixed    = "mixed"
)

// KnownExperienceType reports whether t is one of the four extraction variants.
func KnownExperienceType(t string) bool {
	switch t {
	case ExperienceLifeEvent, ExperienceAchievement, ExperienceStruggle, ExperienceTransition:
		return true
	}
	return false
}

// Experience is one extracted life event tied to one conversation.
// Append-only: nothing is mutated after insert except Acknowledged.
// At most one experience may exist per (contact, type, interaction).
type Experience struct {
	ID            string    `json:"id"`
	ContactID     string    `json:"contact_id"`
	InteractionID string    `json:"interaction_id"`
	Type          string    `json:"type"`
	Summary       string    `json:"summary"`
	Valence       string    `json:"valence"`
	Magnitude     int       `json:"magnitude"`  // 1..5, 5 = life-altering
	Confidence    int       `json:"confidence"` // 0..100
	Acknowledged  bool      `json:"acknowledged"`
	OccurredAt    time.Time `json:"occurred_at"`
	CreatedAt     time.Time `json:"created_at"`
}
