package checkout

import (
	"sync"
	"time"

	"marketplace-checkout/internal/notify"
)

type entry struct {
	session *Session
	login   *LoginForm
	created time.Time
}

// Manager owns the live sessions of this process, keyed by session id. Each
// session gets its own login form.
type Manager struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	now      func() time.Time
}

func NewManager() *Manager {
	return &Manager{sessions: make(map[string]*entry), now: time.Now}
}

// Add registers s, replacing any session with the same id.
func (m *Manager) Add(s *Session, sink notify.Sink) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID()] = &entry{session: s, login: NewLoginForm(sink), created: m.now()}
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.session, nil
}

func (m *Manager) LoginForm(id string) (*LoginForm, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e.login, nil
}

func (m *Manager) Discard(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Sweep drops sessions older than maxAge and returns how many were removed.
// Sessions mid-submission are kept.
func (m *Manager) Sweep(maxAge time.Duration) int {
	cutoff := m.now().Add(-maxAge)
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for id, e := range m.sessions {
		if e.created.Before(cutoff) && e.session.State() != StateSubmitting {
			delete(m.sessions, id)
			n++
		}
	}
	return n
}
