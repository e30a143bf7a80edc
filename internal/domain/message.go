package domain

// Roles de mensaje dentro de una transcripción.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message es un turno de la conversación. La forma coincide con el wire format
// del backend de completions para que la transcripción persistida capture el
// intercambio de tools tal cual ocurrió.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content,omitempty"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall es una invocación de tool pedida por el asistente.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall lleva el nombre del tool y sus argumentos como JSON crudo.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// UserContext es la referencia al usuario autenticado que viaja con cada turno.
type UserContext struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}
