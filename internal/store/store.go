// Package store provides storage backends for the VoiceCredit application
// archive.
//
// Completed assessments are archived through the Store interface; in-memory,
// SQLite and PostgreSQL backends are provided. Conversation sessions
// themselves are memory-only and never persisted.
package store

import (
	"sync"

	"github.com/voicecredit-ai/voicecredit/internal/models"
)

// Store persists completed assessments.
type Store interface {
	// SaveApplication archives a completed assessment. Saving again for the
	// same session replaces the previous archive entry.
	SaveApplication(app models.Application) error

	// GetApplication retrieves an archived assessment by session id.
	// Returns nil without error when not found.
	GetApplication(sessionID string) (*models.Application, error)

	// GetApplications lists all archived assessments.
	GetApplications() ([]models.Application, error)

	// Close releases any underlying resources.
	Close() error
}

// InMemoryStore is a simple in-memory archive, used in tests and when no
// database is configured.
type InMemoryStore struct {
	mu   sync.RWMutex
	apps map[string]models.Application
	ids  []string
}

// NewInMemoryStore creates an empty in-memory archive.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{apps: make(map[string]models.Application)}
}

// SaveApplication archives a completed assessment in memory.
func (s *InMemoryStore) SaveApplication(app models.Application) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apps[app.SessionID]; !exists {
		s.ids = append(s.ids, app.SessionID)
	}
	s.apps[app.SessionID] = app
	return nil
}

// GetApplication retrieves an archived assessment by session id.
func (s *InMemoryStore) GetApplication(sessionID string) (*models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	app, ok := s.apps[sessionID]
	if !ok {
		return nil, nil
	}
	return &app, nil
}

// GetApplications lists archived assessments in insertion order.
func (s *InMemoryStore) GetApplications() ([]models.Application, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Application, 0, len(s.ids))
	for _, id := range s.ids {
		out = append(out, s.apps[id])
	}
	return out, nil
}

// Close is a no-op for the in-memory archive.
func (s *InMemoryStore) Close() error {
	return nil
}
