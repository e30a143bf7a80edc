package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"alfa-chat/internal/domain"
)

// ErrConversationNotFound indica que el update no encontró la fila (id + user_id).
var ErrConversationNotFound = errors.New("conversation not found")

// ConversationRepository persiste transcripciones completas. Un update siempre
// reemplaza la transcripción entera y está guardado por (id, user_id) para que
// un usuario no pueda pisar la conversación de otro.
type ConversationRepository interface {
	Create(ctx context.Context, userID string, messages []domain.Message) (string, error)
	Update(ctx context.Context, id, userID string, messages []domain.Message) error
}

// PgConversationRepository implementa ConversationRepository usando pgxpool.
type PgConversationRepository struct {
	pool *pgxpool.Pool
}

func NewPgConversationRepository(pool *pgxpool.Pool) *PgConversationRepository {
	return &PgConversationRepository{pool: pool}
}

func (r *PgConversationRepository) Create(ctx context.Context, userID string, messages []domain.Message) (string, error) {
	const query = `
		INSERT INTO conversations (id, user_id, messages, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $4)
	`
	payload, err := json.Marshal(messages)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.pool.Exec(ctx, query, id, userID, payload, time.Now().UTC())
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *PgConversationRepository) Update(ctx context.Context, id, userID string, messages []domain.Message) error {
	const query = `
		UPDATE conversations
		SET messages = $3, updated_at = $4
		WHERE id = $1 AND user_id = $2
	`
	payload, err := json.Marshal(messages)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, query, id, userID, payload, time.Now().UTC())
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrConversationNotFound
	}
	return nil
}
