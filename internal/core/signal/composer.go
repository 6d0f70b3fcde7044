// Package signal converts extracted relationship data into a single
// prioritized follow-up recommendation per contact.
package signal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ninjaos/followup/internal/model"
	"github.com/ninjaos/followup/internal/store"
)

// Store is the slice of the storage layer the composer needs.
type Store interface {
	GetActiveSignal(ctx context.Context, userID, contactID string) (*model.FollowUpSignal, error)
	CreateSignal(ctx context.Context, userID string, s *model.FollowUpSignal) error
}

type Composer struct {
	Store Store
}

func NewComposer(s Store) *Composer {
	return &Composer{Store: s}
}

// Input bundles what one interaction produced for one contact.
type Input struct {
	Interaction *model.Interaction
	Contact     *model.Person
	Data        *model.ExtractionData
	Experiences []model.Experience
}

// Compose creates a follow-up signal unless the contact already has an
// active one (first-wins). Returns (nil, nil) when gated or when a
// concurrent run wins the insert race.
func (c *Composer) Compose(ctx context.Context, userID string, in Input) (*model.FollowUpSignal, error) {
	if in.Contact == nil || in.Interaction == nil {
		return nil, nil
	}

	existing, err := c.Store.GetActiveSignal(ctx, userID, in.Contact.ID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, fmt.Errorf("failed to check active signal for contact %s: %w", in.Contact.ID, err)
	}
	if existing != nil {
		return nil, nil
	}

	keywords := LifeEventKeywords(in.Interaction.Text())
	now := time.Now().UTC()
	sig := &model.FollowUpSignal{
		ID:            uuid.New().String(),
		ContactID:     in.Contact.ID,
		InteractionID: in.Interaction.ID,
		Priority:      Score(in.Contact, in.Interaction.Type, in.Experiences, len(keywords)),
		Reasoning:     reasoning(in, keywords),
		Status:        model.SignalPending,
		ExpiresAt:     now.Add(model.SignalTTL),
		CreatedAt:     now,
	}
	if top := topExperience(in.Experiences); top != nil {
		sig.ExperienceID = top.ID
	}

	if err := c.Store.CreateSignal(ctx, userID, sig); err != nil {
		if store.IsDuplicate(err) {
			// A concurrent run created one first; theirs wins.
			return nil, nil
		}
		return nil, fmt.Errorf("failed to create signal for contact %s: %w", in.Contact.ID, err)
	}
	return sig, nil
}

// Score computes the 0-100 follow-up priority: base 50, plus segment,
// experience magnitude (or keyword fallback), interaction type, and an
// active-transaction bonus.
func Score(contact *model.Person, interactionType string, experiences []model.Experience, keywordEvents int) int {
	score := 50
	score += model.SegmentWeight(contact.Segment)

	if len(experiences) > 0 {
		maxMag := 0
		bonus := 0
		for _, e := range experiences {
			if e.Magnitude > maxMag {
				maxMag = e.Magnitude
			}
			if !e.Acknowledged && e.Magnitude >= 4 {
				bonus = 10
			}
		}
		score += maxMag*5 + bonus
	} else {
		kw := keywordEvents * 15
		if kw > 30 {
			kw = 30
		}
		score += kw
	}

	score += interactionTypeWeight(interactionType)

	if contact.ActiveDeal {
		score += 10
	}

	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

func interactionTypeWeight(t string) int {
	switch t {
	case model.InteractionMeeting, model.InteractionInPerson:
		return 10
	case model.InteractionCall, "phone":
		return 5
	case model.InteractionEmail, model.InteractionText:
		return 2
	}
	return 0
}

// reasoning builds the human-readable justification string.
func reasoning(in Input, keywords []string) string {
	var parts []string
	parts = append(parts, fmt.Sprintf("%s with %s", typeLabel(in.Interaction.Type), in.Contact.Name))
	parts = append(parts, fmt.Sprintf("segment %s contact", in.Contact.Segment))

	top := topExperience(in.Experiences)
	switch {
	case top != nil:
		desc := fmt.Sprintf("%s: %s", strings.ReplaceAll(top.Type, "_", " "), top.Summary)
		if top.Magnitude >= 4 {
			desc += fmt.Sprintf(" (magnitude %d/5)", top.Magnitude)
		}
		parts = append(parts, desc)
	case len(keywords) > 0:
		parts = append(parts, "life events mentioned: "+strings.Join(keywords, ", "))
	}

	// Key topics would be redundant next to an experience summary.
	if top == nil && in.Data != nil && len(in.Data.KeyTopics) > 0 {
		topics := in.Data.KeyTopics
		if len(topics) > 3 {
			topics = topics[:3]
		}
		parts = append(parts, "topics: "+strings.Join(topics, ", "))
	}

	if in.Data != nil && len(in.Data.ActionItems) > 0 {
		parts = append(parts, fmt.Sprintf("%d action item(s)", len(in.Data.ActionItems)))
	}

	return strings.Join(parts, "; ")
}

func typeLabel(t string) string {
	switch t {
	case model.InteractionInPerson:
		return "In-person meeting"
	case model.InteractionMeeting:
		return "Meeting"
	case model.InteractionCall, "phone":
		return "Call"
	case model.InteractionVoicemail:
		return "Voicemail"
	case model.InteractionText:
		return "Text conversation"
	case model.InteractionEmail:
		return "Email"
	}
	return "Interaction"
}

func topExperience(experiences []model.Experience) *model.Experience {
	var top *model.Experience
	for i := range experiences {
		if top == nil || experiences[i].Magnitude > top.Magnitude {
			top = &experiences[i]
		}
	}
	return top
}

// lifeEventKeywords are transcript phrases that hint at a life event when
// the experience extractor produced nothing.
var lifeEventKeywords = []string{
	"baby", "pregnant", "wedding", "engaged", "married",
	"new job", "promotion", "promoted", "retirement", "retiring",
	"moving", "new house", "new home", "passed away", "funeral",
	"surgery", "graduated", "graduation", "divorce",
}

// LifeEventKeywords returns the distinct keywords found in text.
func LifeEventKeywords(text string) []string {
	lower := strings.ToLower(text)
	var found []string
	for _, kw := range lifeEventKeywords {
		if strings.Contains(lower, kw) {
			found = append(found, kw)
		}
	}
	return found
}
