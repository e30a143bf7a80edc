package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

// ErrUserExists indica que el proveedor de identidad ya tiene una cuenta para
// ese email. Es un estado esperado para el webhook de aprovisionamiento.
var ErrUserExists = errors.New("identity provider user already exists")

// ClerkClient habla con la API backend de Clerk (perfiles y aprovisionamiento).
type ClerkClient struct {
	baseURL   string
	secretKey string
	client    *http.Client
	logger    *zap.Logger
}

func NewClerkClient(baseURL, secretKey string, logger *zap.Logger) *ClerkClient {
	if baseURL == "" {
		baseURL = "https://api.clerk.com/v1"
	}
	return &ClerkClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		secretKey: secretKey,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

// Enabled dice si la integración está configurada.
func (c *ClerkClient) Enabled() bool {
	return c != nil && c.secretKey != ""
}

type clerkUser struct {
	ID             string `json:"id"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	ImageURL       string `json:"image_url"`
	EmailAddresses []struct {
		EmailAddress string `json:"email_address"`
	} `json:"email_addresses"`
}

// GetUser trae el perfil remoto de un usuario por su subject id.
func (c *ClerkClient) GetUser(ctx context.Context, userID string) (*clerkUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+userID, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("clerk get user: status=%d", resp.StatusCode)
	}

	var u clerkUser
	if err := json.Unmarshal(body, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// CreateUser aprovisiona una cuenta sin contraseña para un email. Un conflicto
// del proveedor (la cuenta ya existe) se devuelve como ErrUserExists tipado.
func (c *ClerkClient) CreateUser(ctx context.Context, email, firstName, lastName string) error {
	payload := map[string]any{
		"email_address":             []string{email},
		"first_name":                firstName,
		"last_name":                 lastName,
		"skip_password_requirement": true,
		"public_metadata":           map[string]string{"source": "zoho_crm"},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/users", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch {
	case resp.StatusCode == http.StatusConflict, resp.StatusCode == http.StatusUnprocessableEntity:
		return ErrUserExists
	case resp.StatusCode >= 400:
		return fmt.Errorf("clerk create user: status=%d", resp.StatusCode)
	}
	return nil
}

// ClerkVerifier valida tokens RS256 emitidos por Clerk contra su JWKS y luego
// completa la identidad con un fetch del perfil. Sin email no hay identidad.
type ClerkVerifier struct {
	jwks   *jwksCache
	api    *ClerkClient
	logger *zap.Logger
}

func NewClerkVerifier(jwksURL string, api *ClerkClient, logger *zap.Logger) *ClerkVerifier {
	return &ClerkVerifier{
		jwks:   newJWKSCache(&http.Client{Timeout: 10 * time.Second}, jwksURL),
		api:    api,
		logger: logger,
	}
}

func (v *ClerkVerifier) Verify(ctx context.Context, token string) (*Identity, error) {
	if !v.api.Enabled() || strings.TrimSpace(token) == "" {
		return nil, ErrInvalidCredential
	}

	claims := jwt.MapClaims{}
	parser := jwt.NewParser(jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}))
	if _, err := parser.ParseWithClaims(token, claims, func(t *jwt.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if strings.TrimSpace(kid) == "" {
			return nil, errors.New("missing kid")
		}
		return v.jwks.getKey(ctx, kid)
	}); err != nil {
		return nil, ErrInvalidCredential
	}

	sub, _ := claims["sub"].(string)
	if strings.TrimSpace(sub) == "" {
		return nil, ErrInvalidCredential
	}

	user, err := v.api.GetUser(ctx, sub)
	if err != nil {
		v.logger.Warn("clerk profile fetch failed", zap.Error(err))
		return nil, ErrInvalidCredential
	}

	email := ""
	if len(user.EmailAddresses) > 0 {
		email = user.EmailAddresses[0].EmailAddress
	}
	if strings.TrimSpace(email) == "" {
		// El email es obligatorio aguas abajo: sin él la verificación falla.
		return nil, ErrInvalidCredential
	}

	name := strings.TrimSpace(user.FirstName + " " + user.LastName)
	if name == "" {
		name = email
	}
	return &Identity{
		Subject: sub,
		Email:   email,
		Name:    name,
		Picture: user.ImageURL,
	}, nil
}
