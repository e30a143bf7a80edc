package db

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// EnsureSchema crea las tablas si no existen. Se ejecuta al arrancar el servicio.
func EnsureSchema(ctx context.Context, pool *pgxpool.Pool) error {
	const schema = `
		CREATE TABLE IF NOT EXISTS users (
			id UUID PRIMARY KEY,
			email TEXT UNIQUE NOT NULL,
			name TEXT,
			picture TEXT,
			clerk_user_id TEXT,
			crm_id TEXT,
			crm_data JSONB,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			last_login TIMESTAMPTZ
		);

		CREATE TABLE IF NOT EXISTS conversations (
			id UUID PRIMARY KEY,
			user_id UUID NOT NULL REFERENCES users (id),
			messages JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		);
	`
	_, err := pool.Exec(ctx, schema)
	return err
}
