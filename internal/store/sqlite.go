// Package store SQLite backend.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "embed"

	_ "github.com/mattn/go-sqlite3"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// DefaultDirPermissions defines the default permissions for database
// directories.
const DefaultDirPermissions = 0755

//go:embed migrations_sqlite.sql
var sqliteMigrations string

// SQLiteStore archives assessments in a SQLite database file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new SQLite store with the given options. The DSN
// is a file path; its directory is created if missing.
func NewSQLiteStore(opts ...Option) (*SQLiteStore, error) {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	slog.Debug("NewSQLiteStore invoked", "DSN_set", cfg.DSN != "")

	if cfg.DSN == "" {
		slog.Error("SQLiteStore DSN not set")
		return nil, fmt.Errorf("database DSN not set")
	}

	dir := filepath.Dir(cfg.DSN)
	if err := os.MkdirAll(dir, DefaultDirPermissions); err != nil {
		slog.Error("Failed to create database directory", "error", err, "dir", dir)
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", cfg.DSN)
	if err != nil {
		slog.Error("Failed to open SQLite connection", "error", err)
		return nil, err
	}
	if err := db.Ping(); err != nil {
		slog.Error("SQLite ping failed", "error", err)
		return nil, err
	}

	if _, err := db.Exec(sqliteMigrations); err != nil {
		slog.Error("Failed to run SQLite migrations", "error", err)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	slog.Debug("SQLite migrations applied successfully")

	return &SQLiteStore{db: db}, nil
}

// SaveApplication archives a completed assessment, replacing any previous
// entry for the session.
func (s *SQLiteStore) SaveApplication(app models.Application) error {
	recordJSON, err := json.Marshal(app.Record)
	if err != nil {
		slog.Error("SQLiteStore SaveApplication record marshal failed", "error", err, "sessionID", app.SessionID)
		return err
	}
	resultJSON, err := json.Marshal(app.Result)
	if err != nil {
		slog.Error("SQLiteStore SaveApplication result marshal failed", "error", err, "sessionID", app.SessionID)
		return err
	}

	_, err = s.db.Exec(`INSERT OR REPLACE INTO applications (session_id, language, record, result, created_at) VALUES (?, ?, ?, ?, ?)`,
		app.SessionID, string(app.Language), string(recordJSON), string(resultJSON), app.CreatedAt)
	if err != nil {
		slog.Error("SQLiteStore SaveApplication failed", "error", err, "sessionID", app.SessionID)
		return fmt.Errorf("failed to archive application for %s: %w", app.SessionID, err)
	}
	slog.Debug("SQLiteStore SaveApplication succeeded", "sessionID", app.SessionID)
	return nil
}

// GetApplication retrieves an archived assessment by session id.
func (s *SQLiteStore) GetApplication(sessionID string) (*models.Application, error) {
	row := s.db.QueryRow(`SELECT session_id, language, record, result, created_at FROM applications WHERE session_id = ?`, sessionID)
	app, err := scanApplication(row.Scan)
	if err == sql.ErrNoRows {
		slog.Debug("SQLiteStore GetApplication not found", "sessionID", sessionID)
		return nil, nil
	}
	if err != nil {
		slog.Error("SQLiteStore GetApplication failed", "error", err, "sessionID", sessionID)
		return nil, err
	}
	return app, nil
}

// GetApplications lists all archived assessments.
func (s *SQLiteStore) GetApplications() ([]models.Application, error) {
	rows, err := s.db.Query(`SELECT session_id, language, record, result, created_at FROM applications ORDER BY created_at`)
	if err != nil {
		slog.Error("SQLiteStore GetApplications query failed", "error", err)
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	var apps []models.Application
	for rows.Next() {
		app, err := scanApplication(rows.Scan)
		if err != nil {
			slog.Error("SQLiteStore GetApplications scan failed", "error", err)
			return nil, err
		}
		apps = append(apps, *app)
	}
	if err := rows.Err(); err != nil {
		slog.Error("SQLiteStore GetApplications rows iteration failed", "error", err)
		return nil, err
	}
	slog.Debug("SQLiteStore GetApplications succeeded", "count", len(apps))
	return apps, nil
}

// Close closes the SQLite database connection.
func (s *SQLiteStore) Close() error {
	slog.Debug("Closing SQLite database connection")
	return s.db.Close()
}

// scanApplication decodes one applications row through the given scan
// function, shared between the SQLite and Postgres backends.
func scanApplication(scan func(dest ...any) error) (*models.Application, error) {
	var app models.Application
	var lang, recordJSON, resultJSON string
	if err := scan(&app.SessionID, &lang, &recordJSON, &resultJSON, &app.CreatedAt); err != nil {
		return nil, err
	}
	app.Language = models.Language(lang)
	if err := json.Unmarshal([]byte(recordJSON), &app.Record); err != nil {
		return nil, fmt.Errorf("failed to decode archived record: %w", err)
	}
	if err := json.Unmarshal([]byte(resultJSON), &app.Result); err != nil {
		return nil, fmt.Errorf("failed to decode archived result: %w", err)
	}
	return &app, nil
}
