package ws

import "alfa-chat/internal/crm"

// Tipos de evento entrantes (cliente -> servidor).
const (
	eventAuth            = "auth"
	eventSetLanguage     = "set_language"
	eventMessage         = "message"
	eventNewConversation = "new_conversation"
)

// inboundEvent es el frame JSON que manda el cliente. Los campos que no
// aplican al tipo del evento quedan vacíos.
type inboundEvent struct {
	Type     string `json:"type"`
	Token    string `json:"token,omitempty"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content,omitempty"`
}

// Razones de fallo de autenticación visibles para el cliente.
const (
	reasonInvalidToken       = "invalid_token"
	reasonEmailNotRegistered = "email_not_registered"
)

type userPayload struct {
	Email   string     `json:"email"`
	Name    string     `json:"name"`
	Picture string     `json:"picture,omitempty"`
	CRMData crm.Record `json:"crm_data"`
}

type authSuccessFrame struct {
	Type string      `json:"type"`
	User userPayload `json:"user"`
}

type authFailedFrame struct {
	Type    string `json:"type"`
	Reason  string `json:"reason"`
	Message string `json:"message,omitempty"`
}

type messageFrame struct {
	Type    string `json:"type"`
	Content string `json:"content"`
}

type typingFrame struct {
	Type   string `json:"type"`
	Status bool   `json:"status"`
}
