package core

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ninjaos/followup/internal/model"
	"github.com/ninjaos/followup/internal/store"
)

// mockLLM pops queued responses in order; once the queue is empty it
// returns err when set, otherwise response.
type mockLLM struct {
	queue    []string
	response string
	err      error
	calls    int
}

func (m *mockLLM) Generate(ctx context.Context, system, user string) (string, error) {
	m.calls++
	if len(m.queue) > 0 {
		r := m.queue[0]
		m.queue = m.queue[1:]
		return r, nil
	}
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// mockStore is an in-memory store.Store enforcing the same uniqueness the
// real schema does.
type mockStore struct {
	interactions map[string]*model.Interaction
	persons      map[string]*model.Person
	experiences  map[string]*model.Experience
	signals      map[string]*model.FollowUpSignal
	drafts       []model.GeneratedDraft
	patterns     map[string]*model.VoiceProfilePattern
	feedback     map[string]*model.DraftFeedback

	personUpdates int
}

func newMockStore() *mockStore {
	return &mockStore{
		interactions: make(map[string]*model.Interaction),
		persons:      make(map[string]*model.Person),
		experiences:  make(map[string]*model.Experience),
		signals:      make(map[string]*model.FollowUpSignal),
		patterns:     make(map[string]*model.VoiceProfilePattern),
		feedback:     make(map[string]*model.DraftFeedback),
	}
}

func expKey(contactID, expType, interactionID string) string {
	return contactID + "|" + expType + "|" + interactionID
}

func (m *mockStore) GetInteraction(ctx context.Context, userID, id string) (*model.Interaction, error) {
	in, ok := m.interactions[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *in
	return &cp, nil
}

func (m *mockStore) SetExtractedData(ctx context.Context, userID, id string, result model.ExtractionResult) error {
	in, ok := m.interactions[id]
	if !ok {
		return store.ErrNotFound
	}
	blob, err := json.Marshal(result)
	if err != nil {
		return err
	}
	in.ExtractedData = blob
	return nil
}

func (m *mockStore) SetInteractionSummary(ctx context.Context, userID, id, summary string) error {
	in, ok := m.interactions[id]
	if !ok {
		return store.ErrNotFound
	}
	in.Summary = summary
	return nil
}

func (m *mockStore) ListUnprocessed(ctx context.Context, userID string, limit int) ([]model.Interaction, error) {
	var out []model.Interaction
	for _, in := range m.interactions {
		if in.DeletedAt != nil || len(in.ExtractedData) > 0 {
			continue
		}
		out = append(out, *in)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) GetPerson(ctx context.Context, userID, id string) (*model.Person, error) {
	p, ok := m.persons[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *mockStore) CreatePerson(ctx context.Context, userID string, p *model.Person) error {
	if _, ok := m.persons[p.ID]; ok {
		return store.ErrDuplicate
	}
	cp := *p
	m.persons[p.ID] = &cp
	return nil
}

func (m *mockStore) UpdatePerson(ctx context.Context, userID string, p *model.Person) error {
	if _, ok := m.persons[p.ID]; !ok {
		return store.ErrNotFound
	}
	cp := *p
	m.persons[p.ID] = &cp
	m.personUpdates++
	return nil
}

func (m *mockStore) ListPersons(ctx context.Context, userID string) ([]model.Person, error) {
	var out []model.Person
	for _, p := range m.persons {
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockStore) CreateExperience(ctx context.Context, userID string, e *model.Experience) error {
	key := expKey(e.ContactID, e.Type, e.InteractionID)
	if _, ok := m.experiences[key]; ok {
		return store.ErrDuplicate
	}
	cp := *e
	m.experiences[key] = &cp
	return nil
}

func (m *mockStore) FindExperience(ctx context.Context, userID, contactID, expType, interactionID string) (*model.Experience, error) {
	if e, ok := m.experiences[expKey(contactID, expType, interactionID)]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) ListExperiences(ctx context.Context, userID, contactID string) ([]model.Experience, error) {
	var out []model.Experience
	for _, e := range m.experiences {
		if e.ContactID == contactID {
			out = append(out, *e)
		}
	}
	return out, nil
}

func (m *mockStore) CreateSignal(ctx context.Context, userID string, s *model.FollowUpSignal) error {
	if existing, ok := m.signals[s.ContactID]; ok && model.ActiveSignalStatus(existing.Status) {
		return store.ErrDuplicate
	}
	cp := *s
	m.signals[s.ContactID] = &cp
	return nil
}

func (m *mockStore) GetActiveSignal(ctx context.Context, userID, contactID string) (*model.FollowUpSignal, error) {
	if s, ok := m.signals[contactID]; ok && model.ActiveSignalStatus(s.Status) {
		cp := *s
		return &cp, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) ExpireStaleSignals(ctx context.Context, userID string, now time.Time) (int, error) {
	n := 0
	for _, s := range m.signals {
		if s.Status == model.SignalPending && s.ExpiresAt.Before(now) {
			s.Status = model.SignalExpired
			n++
		}
	}
	return n, nil
}

func (m *mockStore) CreateDraft(ctx context.Context, userID string, d *model.GeneratedDraft) error {
	m.drafts = append(m.drafts, *d)
	return nil
}

func (m *mockStore) ListDrafts(ctx context.Context, userID, interactionID string) ([]model.GeneratedDraft, error) {
	var out []model.GeneratedDraft
	for _, d := range m.drafts {
		if d.InteractionID == interactionID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (m *mockStore) UpsertVoicePattern(ctx context.Context, userID string, p *model.VoiceProfilePattern) error {
	key := p.Category + "|" + p.Value
	if existing, ok := m.patterns[key]; ok {
		existing.Frequency++
		return nil
	}
	cp := *p
	cp.Frequency = 1
	m.patterns[key] = &cp
	return nil
}

func (m *mockStore) ListVoicePatterns(ctx context.Context, userID string, categories ...string) ([]model.VoiceProfilePattern, error) {
	allowed := make(map[string]bool)
	for _, c := range categories {
		allowed[c] = true
	}
	var out []model.VoiceProfilePattern
	for _, p := range m.patterns {
		if len(allowed) > 0 && !allowed[p.Category] {
			continue
		}
		out = append(out, *p)
	}
	return out, nil
}

func (m *mockStore) GetFeedback(ctx context.Context, userID, id string) (*model.DraftFeedback, error) {
	fb, ok := m.feedback[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	cp := *fb
	return &cp, nil
}

func (m *mockStore) ListUnprocessedFeedback(ctx context.Context, userID string, limit int) ([]model.DraftFeedback, error) {
	var out []model.DraftFeedback
	for _, fb := range m.feedback {
		if !fb.Processed {
			out = append(out, *fb)
		}
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (m *mockStore) MarkFeedbackProcessed(ctx context.Context, userID, id string, insights json.RawMessage) error {
	fb, ok := m.feedback[id]
	if !ok {
		return store.ErrNotFound
	}
	fb.Processed = true
	fb.LearnedInsights = insights
	return nil
}

func (m *mockStore) Close() error { return nil }
