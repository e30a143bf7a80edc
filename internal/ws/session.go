package ws

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"alfa-chat/internal/crm"
	"alfa-chat/internal/domain"
	"alfa-chat/internal/identity"
	"alfa-chat/internal/llm"
	"alfa-chat/internal/repository"
)

// Respuesta fija cuando un turno falla aguas abajo; la sesión sigue viva.
const fallbackReply = "I encountered an error. Please try again."

const notRegisteredMessage = "This email is not registered. Please complete the interpreter application form first."

type state int

const (
	stateConnected state = iota
	stateAuthenticated
	stateClosed
)

// wire es la vista mínima de la conexión duplex que necesita la sesión.
// *websocket.Conn de gorilla la satisface; los tests usan un fake guionado.
type wire interface {
	ReadJSON(v any) error
	WriteJSON(v any) error
	Close() error
}

// Deps son los colaboradores de una sesión. Todos deben ser seguros bajo
// invocación concurrente desde sesiones independientes.
type Deps struct {
	Verifier      identity.Verifier
	Directory     crm.Directory
	Users         repository.UserRepository
	Conversations repository.ConversationRepository
	Engine        llm.Engine
	Registry      *Registry
	Logger        *zap.Logger

	// Timeouts por categoría de llamada remota.
	LookupTimeout time.Duration
	ReplyTimeout  time.Duration
}

func (d *Deps) defaults() {
	if d.LookupTimeout <= 0 {
		d.LookupTimeout = 10 * time.Second
	}
	if d.ReplyTimeout <= 0 {
		d.ReplyTimeout = 60 * time.Second
	}
}

// Session coordina una conexión de punta a punta: handshake de autenticación,
// selección de idioma, turnos de mensajes y persistencia. Los eventos de una
// misma sesión se procesan estrictamente en orden de llegada.
type Session struct {
	id     string
	conn   wire
	logger *zap.Logger
	deps   Deps

	state    state
	user     *domain.UserContext
	language string
	history  []domain.Message
	convID   string
}

func NewSession(conn wire, deps Deps) *Session {
	deps.defaults()
	id := uuid.NewString()
	return &Session{
		id:       id,
		conn:     conn,
		logger:   deps.Logger.With(zap.String("session_id", id)),
		deps:     deps,
		language: "en",
	}
}

// Run procesa eventos hasta que la conexión se cierra o el contexto se cancela.
func (s *Session) Run(ctx context.Context) {
	defer s.close()
	s.logger.Debug("new websocket connection")

	for {
		var evt inboundEvent
		if err := s.conn.ReadJSON(&evt); err != nil {
			var syntaxErr *json.SyntaxError
			var typeErr *json.UnmarshalTypeError
			if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
				// Frame malformado: se ignora sin cortar la conexión.
				continue
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		s.handle(ctx, evt)
	}
}

func (s *Session) handle(ctx context.Context, evt inboundEvent) {
	switch evt.Type {
	case eventAuth:
		s.handleAuth(ctx, evt)
	case eventSetLanguage:
		s.language = languageOrDefault(evt.Language)
	case eventMessage:
		s.handleMessage(ctx, evt)
	case eventNewConversation:
		s.history = nil
		s.convID = ""
	default:
		// Evento desconocido: sin transición ni emisión.
	}
}

func (s *Session) handleAuth(ctx context.Context, evt inboundEvent) {
	s.language = languageOrDefault(evt.Language)

	lctx, cancel := context.WithTimeout(ctx, s.deps.LookupTimeout)
	defer cancel()

	ident, err := s.deps.Verifier.Verify(lctx, evt.Token)
	if err != nil || ident == nil {
		s.send(authFailedFrame{Type: "auth_failed", Reason: reasonInvalidToken})
		return
	}

	record, category, err := s.deps.Directory.ResolveEmail(lctx, ident.Email)
	if err != nil {
		s.logger.Warn("directory lookup failed", zap.Error(err))
	}
	if record == nil {
		s.logger.Info("access denied: email not in crm", zap.String("email", ident.Email))
		s.send(authFailedFrame{
			Type:    "auth_failed",
			Reason:  reasonEmailNotRegistered,
			Message: notRegisteredMessage,
		})
		return
	}

	crmJSON, _ := json.Marshal(record)
	userID, err := s.deps.Users.Upsert(lctx, domain.User{
		Email:       ident.Email,
		Name:        ident.Name,
		Picture:     ident.Picture,
		ClerkUserID: ident.Subject,
		CRMID:       record.Str("id"),
		CRMData:     crmJSON,
	})
	if err != nil {
		// La sesión sigue siendo usable; sólo se pierde la persistencia.
		s.logger.Error("user upsert failed", zap.Error(err))
	}

	s.user = &domain.UserContext{
		ID:      userID,
		Email:   ident.Email,
		Name:    ident.Name,
		Picture: ident.Picture,
	}
	s.state = stateAuthenticated
	s.deps.Registry.Add(s.id, Meta{UserID: userID, Language: s.language})

	s.send(authSuccessFrame{
		Type: "auth_success",
		User: userPayload{
			Email:   ident.Email,
			Name:    ident.Name,
			Picture: ident.Picture,
			CRMData: record,
		},
	})

	welcome := welcomeMessage(ident.Name, s.language)
	s.send(messageFrame{Type: "message", Content: welcome})
	s.history = append(s.history, domain.Message{Role: domain.RoleAssistant, Content: welcome})

	s.logger.Info("user authenticated",
		zap.String("email", ident.Email),
		zap.String("category", string(category)),
	)
}

func (s *Session) handleMessage(ctx context.Context, evt inboundEvent) {
	if evt.Content == "" {
		return
	}
	s.history = append(s.history, domain.Message{Role: domain.RoleUser, Content: evt.Content})
	s.send(typingFrame{Type: "typing", Status: true})

	rctx, cancel := context.WithTimeout(ctx, s.deps.ReplyTimeout)
	reply, err := s.deps.Engine.Reply(rctx, &s.history, s.user, s.language)
	cancel()
	if err != nil {
		s.logger.Warn("dialogue turn failed", zap.Error(err))
		reply = fallbackReply
	}
	s.history = append(s.history, domain.Message{Role: domain.RoleAssistant, Content: reply})

	// La persistencia observa exactamente el history que produjo la respuesta.
	// Un fallo acá se loguea pero no bloquea la entrega de la respuesta.
	if s.user != nil && s.user.ID != "" {
		s.persist(ctx)
	}

	s.send(messageFrame{Type: "message", Content: reply})
}

func (s *Session) persist(ctx context.Context) {
	pctx, cancel := context.WithTimeout(ctx, s.deps.LookupTimeout)
	defer cancel()

	if s.convID == "" {
		id, err := s.deps.Conversations.Create(pctx, s.user.ID, s.history)
		if err != nil {
			s.logger.Warn("conversation create failed", zap.Error(err))
			return
		}
		s.convID = id
		return
	}
	if err := s.deps.Conversations.Update(pctx, s.convID, s.user.ID, s.history); err != nil {
		s.logger.Warn("conversation update failed", zap.Error(err))
	}
}

func (s *Session) send(v any) {
	if err := s.conn.WriteJSON(v); err != nil {
		s.logger.Debug("write failed", zap.Error(err))
	}
}

func (s *Session) close() {
	if s.state == stateClosed {
		return
	}
	s.state = stateClosed
	s.deps.Registry.Remove(s.id)
	_ = s.conn.Close()
	s.logger.Debug("session disconnected")
}

func languageOrDefault(lang string) string {
	if lang == "" {
		return "en"
	}
	return lang
}

func welcomeMessage(name, language string) string {
	first := "there"
	if fields := strings.Fields(name); len(fields) > 0 {
		first = fields[0]
	}
	if language == "es" {
		return fmt.Sprintf("Hola %s!", first)
	}
	return fmt.Sprintf("Hello %s! How can I help you today?", first)
}
