package email

import (
	"context"
	"errors"
)

// Sender define la interfaz para notificar al equipo de soporte cuando un
// usuario pide hablar con una persona.
type Sender interface {
	SendHandoffNotice(ctx context.Context, userEmail, reason string) error
}

type disabledSender struct {
	reason string
}

func NewDisabledSender(reason string) Sender {
	return &disabledSender{reason: reason}
}

func (s *disabledSender) SendHandoffNotice(_ context.Context, _ string, _ string) error {
	if s.reason == "" {
		return errors.New("email sender disabled")
	}
	return errors.New(s.reason)
}
