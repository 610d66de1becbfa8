// Package store PostgreSQL backend.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"

	_ "embed"

	_ "github.com/lib/pq"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

//go:embed migrations_postgres.sql
var postgresMigrations string

// PostgresStore archives assessments in a PostgreSQL database.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new Postgres store with the given options.
func NewPostgresStore(opts ...Option) (*PostgresStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewPostgresStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("PostgresStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open Postgres connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("Postgres ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(postgresMigrations); err != nil {
		slog.Error("Failed to run Postgres migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("Postgres migrations applied successfully")

	return &PostgresStore{db: db}, nil
}

// SaveApplication archives a completed assessment, replacing any previous
// entry for the session.
func (s *PostgresStore) SaveApplication(app models.Application) error {
	recordJSON, err := json.Marshal(app.Record)
	if err != nil {
		slog.Error("PostgresStore SaveApplication record marshal failed", "error", err, "sessionID", app.SessionID)
		return err
	}
	resultJSON, err := json.Marshal(app.Result)
	if err != nil {
		slog.Error("PostgresStore SaveApplication result marshal failed", "error", err, "sessionID", app.SessionID)
		return err
	}

	_, err = s.db.Exec(`
		INSERT INTO applications (session_id, language, record, result, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (session_id) DO UPDATE
		SET language = EXCLUDED.language, record = EXCLUDED.record, result = EXCLUDED.result, created_at = EXCLUDED.created_at`,
		app.SessionID, string(app.Language), string(recordJSON), string(resultJSON), app.CreatedAt)
	if err != nil {
		slog.Error("PostgresStore SaveApplication failed", "error", err, "sessionID", app.SessionID)
		return fmt.Errorf("failed to archive application for %s: %w", app.SessionID, err)
	}
	slog.Debug("PostgresStore SaveApplication succeeded", "sessionID", app.SessionID)
	return nil
}

// GetApplication retrieves an archived assessment by session id.
func (s *PostgresStore) GetApplication(sessionID string) (*models.Application, error) {
	row := s.db.QueryRow(`SELECT session_id, language, record, result, created_at FROM applications WHERE session_id = $1`, sessionID)
	app, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		slog.Debug("PostgresStore GetApplication not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("PostgresStore GetApplication failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return app, nil
}

// GetApplications lists all archived assessments.
func (s *PostgresStore) GetApplications() ([]models.Application, error) {
	rows, err := s.db.Query(`SELECT session_id, language, record, result, created_at FROM applications ORDER BY created_at`)
	if err != nil {
		slog.Error("PostgresStore GetApplications query failed", "error", err)
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			slog.Error("PostgresStore GetApplications scan failed", "error", err)
			return nil, err
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		slog.Error("PostgresStore GetApplications rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("PostgresStore GetApplications succeeded", "count", len(apps))
	return apps, nil
}

// Close closes the Postgres database connection.
func (s *PostgresStore) Close() error {
	slog.Debug("Closing Postgres database connection")
	return s.db.Close()
}
