package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"alfa-chat/internal/crm"
	"alfa-chat/internal/identity"
)

// candidateCRM es lo que el endpoint de perfil necesita del CRM.
type candidateCRM interface {
	ResolveEmail(ctx context.Context, email string) (crm.Record, crm.Category, error)
	LeadWithDocuments(ctx context.Context, email string) (crm.Record, error)
	TasksForLead(ctx context.Context, leadID string) ([]crm.Task, error)
}

// CandidateHandler expone el resumen de perfil del candidato autenticado.
type CandidateHandler struct {
	logger   *zap.Logger
	verifier identity.Verifier
	crm      candidateCRM
}

func NewCandidateHandler(logger *zap.Logger, verifier identity.Verifier, crmClient candidateCRM) *CandidateHandler {
	return &CandidateHandler{logger: logger, verifier: verifier, crm: crmClient}
}

// CandidateData maneja GET /api/candidate-data.
func (h *CandidateHandler) CandidateData(c *gin.Context) {
	authHeader := c.GetHeader("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Not authenticated"})
		return
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	ctx := c.Request.Context()
	ident, err := h.verifier.Verify(ctx, token)
	if err != nil || ident == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"detail": "Invalid token"})
		return
	}

	record, _, err := h.crm.ResolveEmail(ctx, ident.Email)
	if err != nil {
		h.logger.Warn("crm resolve failed", zap.Error(err))
	}
	if record == nil {
		c.JSON(http.StatusForbidden, gin.H{"detail": "Email not registered in CRM"})
		return
	}

	lead, err := h.crm.LeadWithDocuments(ctx, ident.Email)
	if err != nil {
		h.logger.Warn("lead fetch failed", zap.Error(err))
	}
	if lead == nil {
		// Identidad verificada pero sin lead (p.ej. intérprete): perfil mínimo.
		c.JSON(http.StatusOK, gin.H{
			"name":             ident.Name,
			"email":            ident.Email,
			"language":         nil,
			"stage":            nil,
			"progress_percent": 0,
			"upcoming":         nil,
			"tasks":            []crm.Task{},
			"documents":        []crm.Document{},
			"recruiter":        nil,
		})
		return
	}

	stage := lead.Str("Stage")
	if stage == "" {
		stage = "Application Review"
	}
	name := strings.TrimSpace(lead.Str("First_Name") + " " + lead.Str("Last_Name"))
	if name == "" {
		name = ident.Name
	}

	tasks, err := h.crm.TasksForLead(ctx, lead.Str("id"))
	if err != nil {
		h.logger.Warn("tasks fetch failed", zap.Error(err))
		tasks = nil
	}
	if tasks == nil {
		tasks = []crm.Task{}
	}

	c.JSON(http.StatusOK, gin.H{
		"name":             name,
		"email":            ident.Email,
		"language":         lead.Str("Language"),
		"stage":            stage,
		"status":           lead.Str("Lead_Status"),
		"progress_percent": crm.Progress(stage),
		"upcoming":         nil,
		"tasks":            tasks,
		"documents":        crm.DeriveDocuments(lead),
		"recruiter":        crm.RecruiterInfo(lead.Str("Candidate_Recruitment_Owner")),
	})
}
