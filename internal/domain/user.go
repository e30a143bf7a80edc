package domain

import "time"

// User es la fila durable de un usuario autenticado. El email (normalizado a
// minúsculas) es la clave natural: un login repetido actualiza la fila existente.
type User struct {
	ID          string     `json:"id"`
	Email       string     `json:"email"`
	Name        string     `json:"name,omitempty"`
	Picture     string     `json:"picture,omitempty"`
	ClerkUserID string     `json:"-"`
	CRMID       string     `json:"-"`
	CRMData     []byte     `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login,omitempty"`
}

// Conversation es la transcripción persistida de una conversación completa.
// Cada guardado reemplaza la transcripción entera, nunca se hace append parcial.
type Conversation struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
