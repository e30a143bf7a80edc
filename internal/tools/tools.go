package tools

import (
	"context"

	"go.uber.org/zap"

	"alfa-chat/internal/crm"
	"alfa-chat/internal/email"
)

// Kind es el conjunto cerrado de tools que el asistente puede invocar.
type Kind int

const (
	KindApplicationStatus Kind = iota
	KindKnowledgeSearch
	KindHumanHandoff
)

// Nombres de tool en el wire format del backend de completions.
const (
	NameApplicationStatus = "lookup_application_status"
	NameKnowledgeSearch   = "search_knowledge_base"
	NameHumanHandoff      = "transfer_to_human"
)

// KindFromName mapea un nombre a su Kind. Un nombre desconocido cae en el
// handoff humano como handler por defecto, nunca se descarta en silencio.
func KindFromName(name string) Kind {
	switch name {
	case NameApplicationStatus:
		return KindApplicationStatus
	case NameKnowledgeSearch:
		return KindKnowledgeSearch
	default:
		return KindHumanHandoff
	}
}

// Result es el mapping serializable que responde un tool. Nunca hay error:
// cualquier falla se degrada a un resultado con found=false.
type Result map[string]any

// LeadSearcher es lo único que el lookup de estado necesita del CRM.
type LeadSearcher interface {
	SearchLeadByEmail(ctx context.Context, email string) (crm.Record, error)
}

// Registry despacha invocaciones de tools a sus handlers.
type Registry struct {
	leads  LeadSearcher
	sender email.Sender
	logger *zap.Logger
}

func NewRegistry(leads LeadSearcher, sender email.Sender, logger *zap.Logger) *Registry {
	return &Registry{leads: leads, sender: sender, logger: logger}
}

// Dispatch ejecuta el tool pedido. userEmail es el email del usuario
// autenticado y se inyecta en el lookup cuando el modelo no mandó uno.
func (r *Registry) Dispatch(ctx context.Context, name string, args map[string]any, userEmail string) Result {
	switch KindFromName(name) {
	case KindApplicationStatus:
		email, _ := args["email"].(string)
		if email == "" {
			email = userEmail
		}
		return r.lookupApplicationStatus(ctx, email)
	case KindKnowledgeSearch:
		query, _ := args["query"].(string)
		return r.searchKnowledgeBase(ctx, query)
	default:
		reason, _ := args["reason"].(string)
		return r.transferToHuman(ctx, userEmail, reason)
	}
}

func (r *Registry) lookupApplicationStatus(ctx context.Context, email string) Result {
	notFound := Result{"found": false, "message": "No application found."}
	if email == "" {
		return notFound
	}
	lead, err := r.leads.SearchLeadByEmail(ctx, email)
	if err != nil {
		r.logger.Warn("application status lookup failed", zap.Error(err))
		return notFound
	}
	if lead == nil {
		return notFound
	}
	return Result{
		"found":      true,
		"verified":   true,
		"first_name": lead.Str("First_Name"),
		"last_name":  lead.Str("Last_Name"),
		"status":     lead.Str("Lead_Status"),
		"language":   lead.Str("Language"),
		"stage":      lead.Str("Stage"),
	}
}

// searchKnowledgeBase es un punto de extensión: todavía no hay base de
// conocimiento conectada.
func (r *Registry) searchKnowledgeBase(_ context.Context, _ string) Result {
	return Result{"found": false, "message": "Knowledge base not configured."}
}

func (r *Registry) transferToHuman(ctx context.Context, userEmail, reason string) Result {
	r.logger.Info("human transfer requested",
		zap.String("user_email", userEmail),
		zap.String("reason", reason),
	)
	if r.sender != nil {
		if err := r.sender.SendHandoffNotice(ctx, userEmail, reason); err != nil {
			r.logger.Warn("handoff notice not sent", zap.Error(err))
		}
	}
	return Result{"success": true, "message": "I have notified our support team."}
}
