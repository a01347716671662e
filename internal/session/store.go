package session

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"orderdash/internal/pipeline"
)

// Store holds live sessions keyed by random ids.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	newID    func() string
}

// NewStore creates an empty store
func NewStore() *Store {
	return &Store{
		sessions: make(map[string]*Session),
		newID:    uuid.NewString,
	}
}

// Get looks a session up by id
func (s *Store) Get(id string) (*Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

// Create starts a new session on ds
func (s *Store) Create(ds pipeline.Dataset) *Session {
	sess := New(s.newID(), ds)

	s.mu.Lock()
	s.sessions[sess.ID] = sess
	s.mu.Unlock()
	return sess
}

// Resolve returns the session for id synced to ds, creating one when id is
// unknown or malformed. created reports whether a new id was issued.
func (s *Store) Resolve(id string, ds pipeline.Dataset) (sess *Session, created bool) {
	if _, err := uuid.Parse(id); err == nil {
		if existing, ok := s.Get(id); ok {
			existing.Sync(ds)
			return existing, false
		}
	}
	return s.Create(ds), true
}

// Delete forgets a session
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, id)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many went.
func (s *Store) Sweep(now time.Time, maxIdle time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for id, sess := range s.sessions {
		if now.Sub(sess.idleSince()) > maxIdle {
			delete(s.sessions, id)
			removed++
		}
	}
	return removed
}
