package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alfa-chat/internal/identity"
)

type fakeProvisioner struct {
	enabled bool
	err     error
	created []string
}

func (f *fakeProvisioner) Enabled() bool { return f.enabled }

func (f *fakeProvisioner) CreateUser(_ context.Context, email, _, _ string) error {
	f.created = append(f.created, email)
	return f.err
}

func postWebhook(h *WebhookHandler, body string) *httptest.ResponseRecorder {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.POST("/api/zoho-webhook", h.ZohoWebhook)

	req := httptest.NewRequest(http.MethodPost, "/api/zoho-webhook", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestZohoWebhook_CreatesUser(t *testing.T) {
	prov := &fakeProvisioner{enabled: true}
	h := NewWebhookHandler(zap.NewNop(), prov)

	rec := postWebhook(h, `{"Email":"ana@example.com","First_Name":"Ana","Last_Name":"Pérez"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	if len(prov.created) != 1 || prov.created[0] != "ana@example.com" {
		t.Fatalf("expected provisioning for ana@example.com, got %v", prov.created)
	}
	if !strings.Contains(rec.Body.String(), "User created") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestZohoWebhook_NestedDataPayload(t *testing.T) {
	prov := &fakeProvisioner{enabled: true}
	h := NewWebhookHandler(zap.NewNop(), prov)

	rec := postWebhook(h, `{"data":[{"email":"luis@example.com","first_name":"Luis"}]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	if len(prov.created) != 1 || prov.created[0] != "luis@example.com" {
		t.Fatalf("expected provisioning for luis@example.com, got %v", prov.created)
	}
}

func TestZohoWebhook_NoEmail(t *testing.T) {
	prov := &fakeProvisioner{enabled: true}
	h := NewWebhookHandler(zap.NewNop(), prov)

	rec := postWebhook(h, `{"First_Name":"Ana"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	if len(prov.created) != 0 {
		t.Fatalf("must not provision without an email")
	}
}

func TestZohoWebhook_AlreadyExistsIsIdempotent(t *testing.T) {
	prov := &fakeProvisioner{enabled: true, err: identity.ErrUserExists}
	h := NewWebhookHandler(zap.NewNop(), prov)

	rec := postWebhook(h, `{"Email":"ana@example.com"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("existing users must be a success, got %d body %s", rec.Code, rec.Body.String())
	}
	if !strings.Contains(rec.Body.String(), "User already exists") {
		t.Fatalf("unexpected body: %s", rec.Body.String())
	}
}

func TestZohoWebhook_ProviderFailure(t *testing.T) {
	prov := &fakeProvisioner{enabled: true, err: errors.New("clerk unavailable")}
	h := NewWebhookHandler(zap.NewNop(), prov)

	rec := postWebhook(h, `{"Email":"ana@example.com"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
}

func TestZohoWebhook_ProvisionerDisabled(t *testing.T) {
	prov := &fakeProvisioner{enabled: false}
	h := NewWebhookHandler(zap.NewNop(), prov)

	rec := postWebhook(h, `{"Email":"ana@example.com"}`)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status: got %d body %s", rec.Code, rec.Body.String())
	}
	if len(prov.created) != 0 {
		t.Fatalf("disabled provisioner must not be invoked")
	}
}
