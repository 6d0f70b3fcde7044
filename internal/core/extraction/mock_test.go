package extraction

import "context"

type mockLLM struct {
	response   string
	err        error
	calls      int
	lastSystem string
	lastUser   string
}

func (m *mockLLM) Generate(ctx context.Context, system, user string) (string, error) {
	m.calls++
	m.lastSystem = system
	m.lastUser = user
	if m.err != nil {
		return "", m.err
	}
	return m.response, nil
}
