// Package journal persists the outcome of every sign-and-send through a
// wallet, giving operators an authoritative record of submitted signatures.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Config holds database configuration.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string

	MaxConns int32
}

// DefaultConfig returns sensible defaults for local development.
func DefaultConfig() Config {
	return Config{
		Host:     "localhost",
		Port:     5432,
		User:     "wallet",
		Password: "wallet_dev",
		Database: "wallet_pulse",
		SSLMode:  "disable",
		MaxConns: 10,
	}
}

// ConnectionString returns the PostgreSQL connection string.
func (c Config) ConnectionString() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Database, c.SSLMode,
	)
}

const schema = `
CREATE TABLE IF NOT EXISTS wallet_signatures (
	id          UUID PRIMARY KEY,
	wallet      TEXT NOT NULL,
	signer      TEXT NOT NULL,
	signature   TEXT NOT NULL DEFAULT '',
	status      TEXT NOT NULL,
	error       TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_wallet_signatures_wallet
	ON wallet_signatures (wallet, created_at DESC);
`

// Entry is one recorded send attempt.
type Entry struct {
	ID        uuid.UUID
	Wallet    string
	Signer    string
	Signature string
	Status    string
	Error     string
	CreatedAt time.Time
}

// Entry statuses.
const (
	StatusSubmitted = "submitted"
	StatusFailed    = "failed"
	StatusRejected  = "rejected" // vetoed by policy before signing
)

// Journal wraps a pgx pool over the wallet_signatures table.
type Journal struct {
	pool *pgxpool.Pool
}

// Connect opens the pool and ensures the schema exists.
func Connect(ctx context.Context, cfg Config) (*Journal, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.ConnectionString())
	if err != nil {
		return nil, fmt.Errorf("parse connection string: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	return &Journal{pool: pool}, nil
}

// Record inserts one entry, assigning its ID and timestamp.
func (j *Journal) Record(ctx context.Context, e *Entry) error {
	e.ID = uuid.New()
	e.CreatedAt = time.Now().UTC()

	_, err := j.pool.Exec(ctx, `
		INSERT INTO wallet_signatures (id, wallet, signer, signature, status, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Wallet, e.Signer, e.Signature, e.Status, e.Error, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert signature entry: %w", err)
	}
	return nil
}

// Recent returns the latest entries for a wallet, newest first.
func (j *Journal) Recent(ctx context.Context, walletName string, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := j.pool.Query(ctx, `
		SELECT id, wallet, signer, signature, status, error, created_at
		FROM wallet_signatures
		WHERE wallet = $1
		ORDER BY created_at DESC
		LIMIT $2`,
		walletName, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query signatures: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Wallet, &e.Signer, &e.Signature, &e.Status, &e.Error, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan signature entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Close releases the pool.
func (j *Journal) Close() {
	j.pool.Close()
}
