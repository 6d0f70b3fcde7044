package experience

import (
	"context"
	"log"

	"github.com/ninjaos/followup/internal/model"
	"github.com/ninjaos/followup/internal/store"
)

// Store is the slice of the storage layer the recorder needs.
type Store interface {
	FindExperience(ctx context.Context, userID, contactID, expType, interactionID string) (*model.Experience, error)
	CreateExperience(ctx context.Context, userID string, e *model.Experience) error
}

// Recorder persists extracted experiences, enforcing at most one entry per
// (contact, type, source interaction). A re-run of the same interaction
// finds the existing row and drops the new extraction silently.
type Recorder struct {
	Store Store
}

func NewRecorder(s Store) *Recorder {
	return &Recorder{Store: s}
}

// Record inserts the candidates that are not duplicates and returns what
// was actually persisted.
func (r *Recorder) Record(ctx context.Context, userID string, candidates []model.Experience) []model.Experience {
	var created []model.Experience
	for _, c := range candidates {
		existing, err := r.Store.FindExperience(ctx, userID, c.ContactID, c.Type, c.InteractionID)
		if err == nil && existing != nil {
			// Same (contact, type, interaction) already recorded.
			continue
		}

		if err := r.Store.CreateExperience(ctx, userID, &c); err != nil {
			if store.IsDuplicate(err) {
				// Lost a race with a concurrent run; same outcome as the
				// existence check above.
				continue
			}
			log.Printf("failed to record experience for contact %s (interaction %s): %v",
				c.ContactID, c.InteractionID, err)
			continue
		}
		created = append(created, c)
	}
	return created
}
