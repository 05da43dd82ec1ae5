package session

import (
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// sweepInterval is the minimum time between full sweeps of expired sessions.
const sweepInterval = time.Minute

// MemoryStore hands out in-memory sessions keyed by a random cookie ID.
// Sessions idle longer than the configured TTL are dropped lazily: on the
// next lookup of their own ID, and by a periodic sweep so abandoned
// sessions do not accumulate.
type MemoryStore struct {
	mu        sync.Mutex
	sessions  map[string]*memorySession
	idleTTL   time.Duration
	lastSweep time.Time
	now       func() time.Time
}

// NewMemoryStore creates a session store whose sessions expire after
// idleTTL without access.
func NewMemoryStore(idleTTL time.Duration) *MemoryStore {
	return &MemoryStore{
		sessions: make(map[string]*memorySession),
		idleTTL:  idleTTL,
		now:      time.Now,
	}
}

// Open returns the session for the given ID, creating a new session (with a
// fresh ID) when the ID is unknown or expired. The returned ID should be
// written back to the client cookie.
func (s *MemoryStore) Open(id string) (string, Session) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.sweep(now)

	if sess, ok := s.sessions[id]; ok {
		if now.Sub(sess.lastSeen) <= s.idleTTL {
			sess.lastSeen = now
			return id, sess
		}
		delete(s.sessions, id)
	}

	newID := newSessionID()
	sess := &memorySession{values: make(map[string]string), lastSeen: now}
	s.sessions[newID] = sess
	return newID, sess
}

// sweep drops every session idle beyond the TTL, so sessions whose cookie
// never comes back are still reclaimed. Runs at most once per
// sweepInterval. Caller must hold the lock.
func (s *MemoryStore) sweep(now time.Time) {
	if now.Sub(s.lastSweep) < sweepInterval {
		return
	}
	s.lastSweep = now

	for id, sess := range s.sessions {
		if now.Sub(sess.lastSeen) > s.idleTTL {
			delete(s.sessions, id)
		}
	}
}

// Len reports the number of live sessions, for tests and diagnostics.
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

func newSessionID() string {
	b := make([]byte, 32)
	rand.Read(b)
	return base64.RawURLEncoding.EncodeToString(b)
}

// memorySession is a mutex-guarded string map. A session may be touched by
// overlapping requests from the same browser, so access is synchronized.
type memorySession struct {
	mu       sync.RWMutex
	values   map[string]string
	lastSeen time.Time
}

func (m *memorySession) Get(key string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok
}

func (m *memorySession) Set(key, value string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
}

func (m *memorySession) Delete(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
}
