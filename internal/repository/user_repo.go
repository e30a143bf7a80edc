package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"alfa-chat/internal/domain"
)

// UserRepository define el contrato de persistencia para usuarios.
type UserRepository interface {
	// Upsert inserta o actualiza por email y devuelve el id de la fila.
	Upsert(ctx context.Context, user domain.User) (string, error)
	GetByEmail(ctx context.Context, email string) (domain.User, error)
}

// PgUserRepository implementa UserRepository usando pgxpool.
type PgUserRepository struct {
	pool *pgxpool.Pool
}

func NewPgUserRepository(pool *pgxpool.Pool) *PgUserRepository {
	return &PgUserRepository{pool: pool}
}

func (r *PgUserRepository) Upsert(ctx context.Context, user domain.User) (string, error) {
	const query = `
		INSERT INTO users (id, email, name, picture, clerk_user_id, crm_id, crm_data, created_at, last_login)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (email) DO UPDATE SET
			name = EXCLUDED.name,
			picture = EXCLUDED.picture,
			clerk_user_id = EXCLUDED.clerk_user_id,
			crm_id = EXCLUDED.crm_id,
			crm_data = EXCLUDED.crm_data,
			last_login = EXCLUDED.last_login
		RETURNING id
	`
	now := time.Now().UTC()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	lastLogin := user.LastLogin
	if lastLogin == nil {
		lastLogin = &now
	}

	var crmData any
	if len(user.CRMData) > 0 {
		crmData = user.CRMData
	}

	var id string
	err := r.pool.QueryRow(ctx, query,
		user.ID,
		strings.ToLower(user.Email),
		user.Name,
		user.Picture,
		user.ClerkUserID,
		user.CRMID,
		crmData,
		user.CreatedAt,
		lastLogin,
	).Scan(&id)
	return id, err
}

func (r *PgUserRepository) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	const query = `
		SELECT id, email, name, picture, clerk_user_id, crm_id, created_at, last_login
		FROM users
		WHERE email = $1
	`
	var u domain.User
	err := r.pool.QueryRow(ctx, query, strings.ToLower(email)).Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.Picture,
		&u.ClerkUserID,
		&u.CRMID,
		&u.CreatedAt,
		&u.LastLogin,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.User{}, err
	}
	return u, err
}
