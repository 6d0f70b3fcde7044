package draft

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ninjaos/followup/internal/model"
)

// resolution is the outcome of third-party contact resolution. The draft
// is always linked to a real contact id; NeedsManualLinking records
// whether the link was anything weaker than an exact name match.
type resolution struct {
	Contact            *model.Person
	NeedsManualLinking bool
	Created            bool
}

// resolveThirdParty matches a name mentioned in the transcript against
// existing contacts (exact, then word overlap) and creates a minimal
// segment-D contact when nothing matches. The primary contact is never a
// valid match; a name referring to them returns (nil, nil).
func (c *Composer) resolveThirdParty(ctx context.Context, userID, name string, persons []model.Person, primary *model.Person) (*resolution, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("empty third-party name")
	}
	if strings.EqualFold(primary.Name, name) {
		return nil, nil
	}

	for i := range persons {
		if persons[i].ID == primary.ID {
			continue
		}
		if strings.EqualFold(persons[i].Name, name) {
			return &resolution{Contact: &persons[i]}, nil
		}
	}

	if match := bestNameOverlap(name, persons, primary.ID); match != nil {
		return &resolution{Contact: match, NeedsManualLinking: true}, nil
	}

	now := time.Now().UTC()
	created := &model.Person{
		ID:        uuid.New().String(),
		Name:      name,
		Segment:   model.SegmentD,
		Notes:     fmt.Sprintf("Auto-captured from a conversation with %s on %s", primary.Name, now.Format("Jan 2, 2006")),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := c.Store.CreatePerson(ctx, userID, created); err != nil {
		return nil, fmt.Errorf("failed to create third-party contact %q: %w", name, err)
	}
	return &resolution{Contact: created, NeedsManualLinking: true, Created: true}, nil
}

// bestNameOverlap finds the contact sharing the most name words with the
// mentioned name ("Dana" matches "Dana Kitch"). Returns nil when nothing
// overlaps.
func bestNameOverlap(name string, persons []model.Person, excludeID string) *model.Person {
	words := nameWords(name)
	if len(words) == 0 {
		return nil
	}

	var best *model.Person
	bestScore := 0
	for i := range persons {
		if persons[i].ID == excludeID {
			continue
		}
		candidate := nameWords(persons[i].Name)
		score := 0
		for w := range words {
			if candidate[w] {
				score++
			}
		}
		if score > bestScore {
			bestScore = score
			best = &persons[i]
		}
	}
	return best
}

func nameWords(s string) map[string]bool {
	out := make(map[string]bool)
	for _, w := range strings.Fields(strings.ToLower(s)) {
		w = strings.Trim(w, ",.;:!?'\"()")
		if w == "" {
			continue
		}
		out[w] = true
	}
	return out
}

// findByName is the exact/fuzzy half of resolution without contact
// creation, used for the secondary side of a connection draft.
func findByName(name string, persons []model.Person, excludeID string) *model.Person {
	for i := range persons {
		if persons[i].ID == excludeID {
			continue
		}
		if strings.EqualFold(persons[i].Name, name) {
			return &persons[i]
		}
	}
	return bestNameOverlap(name, persons, excludeID)
}
