package session

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/justogm/user-gaze-track/internal/models"
)

// Store indexes live sessions by cookie key.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*Session
	deps     Deps
}

// NewStore returns an empty store.
func NewStore(d Deps) *Store {
	if d.Now == nil {
		d.Now = time.Now
	}
	if d.Location == nil {
		d.Location = time.UTC
	}
	if d.Log == nil {
		d.Log = zap.NewNop()
	}
	return &Store{sessions: make(map[string]*Session), deps: d}
}

// Create starts a fresh session for subject. A previous session under
// replaceKey is ended and dropped, like a page reload discards in-memory state.
func (st *Store) Create(subject models.SubjectID, replaceKey string) (*Session, error) {
	s, err := newSession(uuid.NewString(), subject, st.deps)
	if err != nil {
		return nil, err
	}

	st.mu.Lock()
	old := st.sessions[replaceKey]
	delete(st.sessions, replaceKey)
	st.sessions[s.key] = s
	st.mu.Unlock()

	if old != nil {
		old.End()
	}
	if !subject.Valid {
		s.log.Warn("Session started without a numeric subject id; uploads will carry a null id")
	}
	return s, nil
}

// Get returns the session for key.
func (st *Store) Get(key string) (*Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	s, ok := st.sessions[key]
	return s, ok
}

// Len is the number of live sessions.
func (st *Store) Len() int {
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.sessions)
}

// EvictIdle ends and removes sessions with no events for longer than maxIdle.
func (st *Store) EvictIdle(maxIdle time.Duration) int {
	cutoff := st.deps.Now().Add(-maxIdle)

	st.mu.Lock()
	var stale []*Session
	for key, s := range st.sessions {
		if s.LastSeen().Before(cutoff) {
			stale = append(stale, s)
			delete(st.sessions, key)
		}
	}
	st.mu.Unlock()

	for _, s := range stale {
		s.End()
	}
	return len(stale)
}
