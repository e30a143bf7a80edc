package identity

import (
	"context"
	"errors"
)

// Identity es el resultado normalizado de verificar una credencial.
type Identity struct {
	Subject string `json:"subject,omitempty"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// ErrInvalidCredential indica que la credencial no se pudo verificar.
var ErrInvalidCredential = errors.New("invalid credential")

// Verifier valida una credencial bearer y devuelve la identidad o error.
type Verifier interface {
	Verify(ctx context.Context, token string) (*Identity, error)
}

// Chain intenta cada verificador en orden y devuelve la primera identidad.
// El orden es precedencia de configuración, no una negociación de seguridad.
type Chain []Verifier

func (c Chain) Verify(ctx context.Context, token string) (*Identity, error) {
	for _, v := range c {
		id, err := v.Verify(ctx, token)
		if err == nil && id != nil {
			return id, nil
		}
	}
	return nil, ErrInvalidCredential
}
