package model

import (
	"encoding/json"
	"time"
)

// Voice profile categories. The draft_* categories are written by the
// preference learner; the rest come from side extraction over the user's
// own utterances.
const (
	VoiceGreeting         = "greeting"
	VoiceSignoff          = "signoff"
	VoiceExpression       = "expression"
	VoiceTone             = "tone"
	VoiceTonePreference   = "draft_tone_preference"
	VoiceAvoidPattern     = "draft_avoid_pattern"
	VoicePreferredPattern = "draft_preferred_pattern"
	VoiceLengthPreference = "draft_length_preference"
)

// VoiceProfilePattern is a learned stylistic fact. (category, value) is
// unique per user; re-learning the same pair bumps Frequency instead of
// inserting a duplicate row.
type VoiceProfilePattern struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Value     string    `json:"value"`
	Frequency int       `json:"frequency"`
	Source    string    `json:"source,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// DraftFeedback pairs a generated draft with the user's edited version.
// Consumed once by the preference learner, then marked processed.
type DraftFeedback struct {
	ID              string          `json:"id"`
	DraftID         string          `json:"draft_id"`
	OriginalContent string          `json:"original_content"`
	EditedContent   string          `json:"edited_content"`
	Processed       bool            `json:"processed"`
	LearnedInsights json.RawMessage `json:"learned_insights,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
}
