package llm

import (
	"context"

	"alfa-chat/internal/domain"
)

// MockEngine permite tests sin llamar a un LLM real.
type MockEngine struct {
	Response string
	Err      error
	// Extra se agrega al history antes de responder, para simular una ronda
	// de tools.
	Extra []domain.Message
}

func (m *MockEngine) Reply(_ context.Context, history *[]domain.Message, _ *domain.UserContext, _ string) (string, error) {
	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Extra) > 0 {
		*history = append(*history, m.Extra...)
	}
	return m.Response, nil
}
