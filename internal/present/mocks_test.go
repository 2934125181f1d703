package present

import "github.com/stretchr/testify/mock"

// --- Adapter ---

type MockAdapter struct {
	mock.Mock
}

func (m *MockAdapter) Render(loc Location, text string) {
	m.Called(loc, text)
}

func (m *MockAdapter) ReadGuessInput() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockAdapter) ClearGuessInput() {
	m.Called()
}

func (m *MockAdapter) SetRestartEnabled(enabled bool) {
	m.Called(enabled)
}

// --- Speaker ---

type MockSpeaker struct {
	mock.Mock
}

func (m *MockSpeaker) Speak(text string, v Voice) {
	m.Called(text, v)
}
