package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/ninjaos/followup/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("store: not found")
	// ErrDuplicate is returned when an insert hits a uniqueness constraint.
	// Callers in the pipeline treat this as an expected skip, not a failure.
	ErrDuplicate = errors.New("store: duplicate")
)

// IsDuplicate reports whether err is a uniqueness violation, either our own
// sentinel or one surfaced by the SQLite driver.
func IsDuplicate(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrDuplicate) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// Store is the persistence boundary the pipeline consumes. The schema
// behind it is owned elsewhere; every call is scoped to a user id, which
// is how tenancy is threaded through the stages.
type Store interface {
	GetInteraction(ctx context.Context, userID, id string) (*model.Interaction, error)
	SetExtractedData(ctx context.Context, userID, id string, result model.ExtractionResult) error
	SetInteractionSummary(ctx context.Context, userID, id, summary string) error
	// ListUnprocessed returns non-deleted interactions whose extraction is
	// absent or not completed, oldest first.
	ListUnprocessed(ctx context.Context, userID string, limit int) ([]model.Interaction, error)

	GetPerson(ctx context.Context, userID, id string) (*model.Person, error)
	CreatePerson(ctx context.Context, userID string, p *model.Person) error
	UpdatePerson(ctx context.Context, userID string, p *model.Person) error
	ListPersons(ctx context.Context, userID string) ([]model.Person, error)

	CreateExperience(ctx context.Context, userID string, e *model.Experience) error
	FindExperience(ctx context.Context, userID, contactID, expType, interactionID string) (*model.Experience, error)
	ListExperiences(ctx context.Context, userID, contactID string) ([]model.Experience, error)

	CreateSignal(ctx context.Context, userID string, s *model.FollowUpSignal) error
	GetActiveSignal(ctx context.Context, userID, contactID string) (*model.FollowUpSignal, error)
	ExpireStaleSignals(ctx context.Context, userID string, now time.Time) (int, error)

	CreateDraft(ctx context.Context, userID string, d *model.GeneratedDraft) error
	ListDrafts(ctx context.Context, userID, interactionID string) ([]model.GeneratedDraft, error)

	UpsertVoicePattern(ctx context.Context, userID string, p *model.VoiceProfilePattern) error
	ListVoicePatterns(ctx context.Context, userID string, categories ...string) ([]model.VoiceProfilePattern, error)

	GetFeedback(ctx context.Context, userID, id string) (*model.DraftFeedback, error)
	ListUnprocessedFeedback(ctx context.Context, userID string, limit int) ([]model.DraftFeedback, error)
	MarkFeedbackProcessed(ctx context.Context, userID, id string, insights json.RawMessage) error

	Close() error
}
