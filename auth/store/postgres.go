package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxQuerier is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type PgxQuerier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresSlots stores slots as rows of a two-column table.
type PostgresSlots struct {
	db    PgxQuerier
	table string
}

// NewPostgresSlots creates slots stored in table. The identifier is quoted,
// it is never taken from untrusted input.
func NewPostgresSlots(db PgxQuerier, table string) *PostgresSlots {
	return &PostgresSlots{db: db, table: pgx.Identifier{table}.Sanitize()}
}

// Migrate creates the slot table when missing.
func (p *PostgresSlots) Migrate(ctx context.Context) error {
	_, err := p.db.Exec(ctx, `CREATE TABLE IF NOT EXISTS `+p.table+` (
		slot  TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`)
	if err != nil {
		return fmt.Errorf("failed to migrate %v: %w", p.table, err)
	}
	return nil
}

func (p *PostgresSlots) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := p.db.QueryRow(ctx, `SELECT value FROM `+p.table+` WHERE slot = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value, true, nil
}

func (p *PostgresSlots) Set(ctx context.Context, key, value string) error {
	_, err := p.db.Exec(ctx, `INSERT INTO `+p.table+` (slot, value) VALUES ($1, $2)
		ON CONFLICT (slot) DO UPDATE SET value = EXCLUDED.value, updated_at = now()`, key, value)
	return err
}

func (p *PostgresSlots) Delete(ctx context.Context, key string) error {
	_, err := p.db.Exec(ctx, `DELETE FROM `+p.table+` WHERE slot = $1`, key)
	return err
}
