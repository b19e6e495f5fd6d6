// Package storage persists versioned JSON documents keyed by (kind, id).
package storage

import (
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Store keeps JSON payloads in the resource_state table. Every write bumps
// the row version so readers can tell how often a document changed.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// NewStore creates a store on an open database.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Get returns the payload and version of a document.
// A missing document yields a nil payload and version 0.
func (s *Store) Get(kind, id string) (payload []byte, version int64, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var payloadStr string
	err = s.db.QueryRow(`
		SELECT payload, version FROM resource_state
		WHERE kind = ? AND id = ?
	`, kind, id).Scan(&payloadStr, &version)

	if err == sql.ErrNoRows {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s/%s: %w", kind, id, err)
	}

	return []byte(payloadStr), version, nil
}

// Set upserts a document and increments its version.
func (s *Store) Set(kind, id string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := upsert(s.db, kind, id, payload, time.Now().UTC().Unix()); err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", kind, id, err)
	}

	log.Debug().
		Str("kind", kind).
		Str("id", id).
		Int("bytes", len(payload)).
		Msg("Stored document")
	return nil
}

// ReplaceAll swaps every document of kind for docs in one transaction.
// Ids absent from docs are removed.
func (s *Store) ReplaceAll(kind string, docs map[string][]byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM resource_state WHERE kind = ?`, kind); err != nil {
		return fmt.Errorf("failed to clear %s: %w", kind, err)
	}

	now := time.Now().UTC().Unix()
	for id, payload := range docs {
		if err := upsert(tx, kind, id, payload, now); err != nil {
			return fmt.Errorf("failed to write %s/%s: %w", kind, id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit %s: %w", kind, err)
	}

	log.Debug().Str("kind", kind).Int("count", len(docs)).Msg("Replaced documents")
	return nil
}

// Delete removes one document.
func (s *Store) Delete(kind, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`
		DELETE FROM resource_state WHERE kind = ? AND id = ?
	`, kind, id)

	return err
}

// Clear removes all documents of kind. An empty kind clears everything.
func (s *Store) Clear(kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if kind == "" {
		_, err = s.db.Exec(`DELETE FROM resource_state`)
	} else {
		_, err = s.db.Exec(`DELETE FROM resource_state WHERE kind = ?`, kind)
	}

	return err
}

// GetAll returns every document of kind with its version.
func (s *Store) GetAll(kind string) (map[string][]byte, map[string]int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, payload, version FROM resource_state WHERE kind = ?
	`, kind)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	payloads := make(map[string][]byte)
	versions := make(map[string]int64)

	for rows.Next() {
		var id, payloadStr string
		var version int64

		if err := rows.Scan(&id, &payloadStr, &version); err != nil {
			return nil, nil, err
		}

		payloads[id] = []byte(payloadStr)
		versions[id] = version
	}

	return payloads, versions, rows.Err()
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func upsert(db execer, kind, id string, payload []byte, now int64) error {
	_, err := db.Exec(`
		INSERT INTO resource_state (kind, id, payload, version, updated_at)
		VALUES (?, ?, ?, 1, ?)
		ON CONFLICT(kind, id) DO UPDATE SET
			payload = excluded.payload,
			version = version + 1,
			updated_at = excluded.updated_at
	`, kind, id, string(payload), now)
	return err
}
