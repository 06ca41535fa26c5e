package service

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/construlink/obra-tracker/internal/domain/catalog"
	"github.com/construlink/obra-tracker/internal/domain/import/mapper"
	"github.com/construlink/obra-tracker/internal/domain/import/normalizer"
	"github.com/construlink/obra-tracker/internal/domain/import/parser"
)

// Session carries one upload through mapping, resolution and submission.
// The catalog snapshot and overrides are loaded once at creation; catalog
// entries created during resolution mutate the snapshot in place.
type Session struct {
	ID             uuid.UUID
	OrganizationID uuid.UUID
	ProjectID      *uuid.UUID
	FileName       string

	File      *parser.ParsedFile
	Mapping   mapper.ColumnMapping
	Catalog   *catalog.Catalog
	Overrides *normalizer.Overrides

	CreatedAt time.Time
	ExpiresAt time.Time

	mu         sync.Mutex
	normalizer *normalizer.Normalizer
}

// Normalizer returns the session's normalizer, rebuilding it after catalog
// changes.
func (s *Session) Normalizer() *normalizer.Normalizer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.normalizer
}

func (s *Session) rebuildNormalizer(cfg normalizer.Config) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.normalizer = normalizer.New(cfg, s.Catalog, s.Overrides)
}

// SessionStore keeps live sessions in memory. Sessions are short-lived
// working state; losing them on restart only costs the operator a re-upload.
type SessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
	ttl      time.Duration
}

// NewSessionStore creates a store whose sessions expire after ttl.
func NewSessionStore(ttl time.Duration) *SessionStore {
	return &SessionStore{
		sessions: make(map[uuid.UUID]*Session),
		ttl:      ttl,
	}
}

// Put stores a session and stamps its expiry.
func (st *SessionStore) Put(s *Session) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s.ExpiresAt = time.Now().Add(st.ttl)
	st.sessions[s.ID] = s
}

// Get returns the session if it exists and has not expired. Reading a
// session extends its life.
func (st *SessionStore) Get(id uuid.UUID) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[id]
	if !ok {
		return nil, false
	}
	if time.Now().After(s.ExpiresAt) {
		delete(st.sessions, id)
		return nil, false
	}
	s.ExpiresAt = time.Now().Add(st.ttl)
	return s, true
}

// Delete removes a session.
func (st *SessionStore) Delete(id uuid.UUID) {
	st.mu.Lock()
	defer st.mu.Unlock()
	delete(st.sessions, id)
}

// SweepExpired drops every expired session and reports how many went.
func (st *SessionStore) SweepExpired() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	now := time.Now()
	removed := 0
	for id, s := range st.sessions {
		if now.After(s.ExpiresAt) {
			delete(st.sessions, id)
			removed++
		}
	}
	return removed
}

// Len returns the number of live sessions.
func (st *SessionStore) Len() int {
	st.mu.RLock()
	defer st.mu.RUnlock()
	return len(st.sessions)
}
