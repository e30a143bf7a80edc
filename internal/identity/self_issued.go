package identity

import (
	"context"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// SelfIssuedVerifier valida tokens firmados por este servicio con HS256.
type SelfIssuedVerifier struct {
	secret []byte
}

func NewSelfIssuedVerifier(secret string) *SelfIssuedVerifier {
	return &SelfIssuedVerifier{secret: []byte(secret)}
}

type selfIssuedClaims struct {
	Email   string `json:"email"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	jwt.RegisteredClaims
}

func (v *SelfIssuedVerifier) Verify(_ context.Context, token string) (*Identity, error) {
	if len(v.secret) == 0 || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidCredential
	}
	var claims selfIssuedClaims
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if _, err := parser.ParseWithClaims(token, &claims, func(_ *jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return nil, ErrInvalidCredential
	}
	if strings.TrimSpace(claims.Email) == "" {
		return nil, ErrInvalidCredential
	}
	name := claims.Name
	if name == "" {
		name = claims.Email
	}
	return &Identity{
		Subject: claims.Subject,
		Email:   claims.Email,
		Name:    name,
		Picture: claims.Picture,
	}, nil
}
