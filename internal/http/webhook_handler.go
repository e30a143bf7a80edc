package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alfa-chat/internal/identity"
)

// Provisioner aprovisiona cuentas en el proveedor de identidad.
type Provisioner interface {
	Enabled() bool
	CreateUser(ctx context.Context, email, firstName, lastName string) error
}

// WebhookHandler recibe notificaciones de alta del CRM y aprovisiona la
// cuenta correspondiente en el proveedor de identidad, de forma idempotente.
type WebhookHandler struct {
	logger      *zap.Logger
	provisioner Provisioner
}

func NewWebhookHandler(logger *zap.Logger, provisioner Provisioner) *WebhookHandler {
	return &WebhookHandler{logger: logger, provisioner: provisioner}
}

// ZohoWebhook maneja POST /api/zoho-webhook.
func (h *WebhookHandler) ZohoWebhook(c *gin.Context) {
	var body map[string]any
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No email in payload"})
		return
	}

	email, firstName, lastName := extractContact(body)
	if email == "" {
		h.logger.Warn("webhook without email in payload")
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "No email in payload"})
		return
	}

	if !h.provisioner.Enabled() {
		h.logger.Error("identity provider not configured")
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Identity provider not configured"})
		return
	}

	err := h.provisioner.CreateUser(c.Request.Context(), email, firstName, lastName)
	switch {
	case errors.Is(err, identity.ErrUserExists):
		h.logger.Info("webhook user already provisioned", zap.String("email", email))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User already exists", "email": email})
	case err != nil:
		h.logger.Error("webhook provisioning failed", zap.String("email", email), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Failed to provision user"})
	default:
		h.logger.Info("webhook user provisioned", zap.String("email", email))
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "User created", "email": email})
	}
}

// extractContact tolera las distintas formas de payload que manda el CRM:
// campos directos, variantes de nombre y el formato anidado bajo "data".
func extractContact(body map[string]any) (email, firstName, lastName string) {
	email = firstString(body, "Email", "email")
	firstName = firstString(body, "First_Name", "first_name", "First Name")
	lastName = firstString(body, "Last_Name", "last_name", "Last Name")

	if email != "" {
		return email, firstName, lastName
	}

	nested, ok := body["data"]
	if !ok {
		return "", firstName, lastName
	}
	if list, ok := nested.([]any); ok && len(list) > 0 {
		nested = list[0]
	}
	record, ok := nested.(map[string]any)
	if !ok {
		return "", firstName, lastName
	}

	email = firstString(record, "Email", "email")
	firstName = firstString(record, "First_Name", "first_name")
	lastName = firstString(record, "Last_Name", "last_name")
	return email, firstName, lastName
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if s, ok := m[k].(string); ok && s != "" {
			return s
		}
	}
	return ""
}
