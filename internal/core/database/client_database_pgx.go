package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/studiokb/linebridge/internal/core"
	"github.com/studiokb/linebridge/internal/models"
)

// DatabaseClient owns the Postgres connection pool. Config and session
// access go through the repositories it hands out: one row per config key,
// one row per user session.
type DatabaseClient struct {
	db *sql.DB
}

func NewDatabaseClient(ctx context.Context, databaseURL string) (*DatabaseClient, error) {
	if databaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is empty")
	}

	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	// Sensible pool settings for an API service; adjust as needed.
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping db: %w", err)
	}

	if err := EnsureBootstrapped(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("bootstrap: %w", err)
	}

	return &DatabaseClient{db: db}, nil
}

func (c *DatabaseClient) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func (c *DatabaseClient) ConfigStore() *ConfigRepository {
	return &ConfigRepository{db: c.db}
}

func (c *DatabaseClient) SessionStore() *SessionRepository {
	return &SessionRepository{db: c.db}
}

// ConfigRepository implements core.ConfigStore on Postgres.
type ConfigRepository struct {
	db *sql.DB
}

// Read loads every config row and parses it into a SystemConfig. Returns
// nil when no rows exist yet so callers fall back to defaults.
func (r *ConfigRepository) Read(ctx context.Context) (*models.SystemConfig, error) {
	const q = `SELECT key, value FROM system_config`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	pairs := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, err
		}
		pairs[k] = v
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(pairs) == 0 {
		return nil, nil
	}
	return models.ConfigFromPairs(pairs), nil
}

// Write upserts one config key.
func (r *ConfigRepository) Write(ctx context.Context, key, value string) error {
	const q = `
		INSERT INTO system_config (id, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, q, uuid.NewString(), key, value)
	return err
}

// SessionRepository implements core.SessionStore on Postgres.
type SessionRepository struct {
	db *sql.DB
}

// Read returns nil when the user has no session yet.
func (r *SessionRepository) Read(ctx context.Context, userID string) (*models.ChatSession, error) {
	const q = `SELECT user_id, mode, last_active FROM chat_sessions WHERE user_id = $1`
	var s models.ChatSession
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&s.UserID, &s.Mode, &s.LastActive)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Write upserts the user's session mode, always refreshing last_active to
// now.
func (r *SessionRepository) Write(ctx context.Context, userID, mode string) error {
	const q = `
		INSERT INTO chat_sessions (user_id, mode, last_active)
		VALUES ($1, $2, now())
		ON CONFLICT (user_id) DO UPDATE SET mode = EXCLUDED.mode, last_active = now()
	`
	_, err := r.db.ExecContext(ctx, q, userID, mode)
	return err
}

func (r *SessionRepository) ListByMode(ctx context.Context, mode string) ([]models.ChatSession, error) {
	const q = `
		SELECT user_id, mode, last_active
		FROM chat_sessions
		WHERE mode = $1
		ORDER BY last_active DESC
	`
	rows, err := r.db.QueryContext(ctx, q, mode)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.ChatSession
	for rows.Next() {
		var s models.ChatSession
		if err := rows.Scan(&s.UserID, &s.Mode, &s.LastActive); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

var (
	_ core.ConfigStore  = (*ConfigRepository)(nil)
	_ core.SessionStore = (*SessionRepository)(nil)
)
