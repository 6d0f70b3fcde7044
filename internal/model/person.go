package model

import "time"

// Relationship segments. Segment A is the inner circle and weighs heaviest
// in follow-up priority; D is the long tail.
const (
	SegmentA = "A"
	SegmentB = "B"
	SegmentC = "C"
	SegmentD = "D"
)

// SegmentWeight maps a segment to its follow-up priority contribution.
func SegmentWeight(segment string) int {
	switch segment {
	case SegmentA:
		return 30
	case SegmentB:
		return 20
	case SegmentC:
		return 10
	default:
		return 0
	}
}

// Person is a contact record. The FORD fields (family, occupation,
// recreation, dreams) are growing text logs: the pipeline appends dated
// entries and never overwrites what is already there.
type Person struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Segment    string    `json:"segment"`
	Family     string    `json:"family,omitempty"`
	Occupation string    `json:"occupation,omitempty"`
	Recreation string    `json:"recreation,omitempty"`
	Dreams     string    `json:"dreams,omitempty"`
	Needs      []string  `json:"needs,omitempty"`
	Offers     []string  `json:"offers,omitempty"`
	Profession string    `json:"profession,omitempty"`
	Notes      string    `json:"notes,omitempty"`
	ActiveDeal bool      `json:"active_deal,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
