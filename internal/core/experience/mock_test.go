package experience

import (
	"context"

	"github.com/ninjaos/followup/internal/model"
	"github.com/ninjaos/followup/internal/store"
)

type mockLLM struct {
	response string
	err      error
	calls    int
}

func (m *mockLLM) Generate(ctx context.Context, system, user string) (string, error) {
	m.calls++
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}

// mockStore keys experiences by (contact, type, interaction).
type mockStore struct {
	existing  map[string]*model.Experience
	created   []model.Experience
	createErr error
}

func newMockStore() *mockStore {
	return &mockStore{existing: make(map[string]*model.Experience)}
}

func expKey(contactID, expType, interactionID string) string {
	return contactID + "|" + expType + "|" + interactionID
}

func (m *mockStore) FindExperience(ctx context.Context, userID, contactID, expType, interactionID string) (*model.Experience, error) {
	if e, ok := m.existing[expKey(contactID, expType, interactionID)]; ok {
		return e, nil
	}
	return nil, store.ErrNotFound
}

func (m *mockStore) CreateExperience(ctx context.Context, userID string, e *model.Experience) error {
	if m.createErr != nil {
		return m.createErr
	}
	key := expKey(e.ContactID, e.Type, e.InteractionID)
	if _, ok := m.existing[key]; ok {
		return store.ErrDuplicate
	}
	m.existing[key] = e
	m.created = append(m.created, *e)
	return nil
}
