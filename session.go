package actions

import (
	"context"
	"sync"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const TextCodeSessionNotFound = "SESSION_NOT_FOUND"

// ErrSessionNotFound is returned by a SessionStore when no session matches
var ErrSessionNotFound = goerrors.New("authentication session not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeSessionNotFound).
	WithCode(goerrors.CodeNotFound)

// AuthenticationSession correlates a browser tab with a subject and a client
// while required actions are being completed.
type AuthenticationSession struct {
	RootID          string            `json:"root_id"`
	TabID           string            `json:"tab_id"`
	ClientID        string            `json:"client_id"`
	SubjectID       string            `json:"subject_id"`
	RequiredActions RequiredActionSet `json:"required_actions,omitempty"`
	RedirectURI     string            `json:"redirect_uri,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

// NewAuthenticationSession creates a session with new root and tab ids
func NewAuthenticationSession(subjectID, clientID string) *AuthenticationSession {
	return &AuthenticationSession{
		RootID:    uuid.NewString(),
		TabID:     uuid.NewString(),
		ClientID:  clientID,
		SubjectID: subjectID,
		CreatedAt: time.Now(),
	}
}

// CompoundID returns the id used to bind tokens to this session
func (s *AuthenticationSession) CompoundID() CompoundSessionID {
	return CompoundSessionID{
		RootID:   s.RootID,
		TabID:    s.TabID,
		ClientID: s.ClientID,
	}
}

// SessionStore persists authentication sessions between the two hops of
// the verification flow. Implementations serialize access per session.
type SessionStore interface {
	GetSession(ctx context.Context, id CompoundSessionID) (*AuthenticationSession, error)
	SaveSession(ctx context.Context, session *AuthenticationSession) error
	RemoveSession(ctx context.Context, id CompoundSessionID) error
}

// MemorySessionStore keeps sessions in process memory
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*AuthenticationSession
	ttl      time.Duration
	now      func() time.Time
}

// NewMemorySessionStore returns an empty store. A zero ttl keeps sessions
// until they are removed.
func NewMemorySessionStore(ttl time.Duration) *MemorySessionStore {
	return &MemorySessionStore{
		sessions: make(map[string]*AuthenticationSession),
		ttl:      ttl,
		now:      time.Now,
	}
}

// WithClock overrides the store clock
func (m *MemorySessionStore) WithClock(now func() time.Time) *MemorySessionStore {
	if now != nil {
		m.now = now
	}
	return m
}

func (m *MemorySessionStore) GetSession(_ context.Context, id CompoundSessionID) (*AuthenticationSession, error) {
	m.mu.RLock()
	session, ok := m.sessions[id.Encode()]
	m.mu.RUnlock()

	if !ok || m.expired(session) {
		return nil, newError(ErrSessionNotFound, map[string]any{
			"root_id": id.RootID,
			"tab_id":  id.TabID,
		})
	}

	out := *session
	out.RequiredActions = session.RequiredActions.Clone()
	return &out, nil
}

func (m *MemorySessionStore) SaveSession(_ context.Context, session *AuthenticationSession) error {
	if session == nil {
		return goerrors.New("session must not be nil", goerrors.CategoryInternal)
	}

	stored := *session
	stored.RequiredActions = session.RequiredActions.Clone()

	m.mu.Lock()
	m.sessions[session.CompoundID().Encode()] = &stored
	m.mu.Unlock()
	return nil
}

func (m *MemorySessionStore) RemoveSession(_ context.Context, id CompoundSessionID) error {
	m.mu.Lock()
	delete(m.sessions, id.Encode())
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored sessions, expired ones included
func (m *MemorySessionStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

func (m *MemorySessionStore) expired(session *AuthenticationSession) bool {
	if m.ttl <= 0 {
		return false
	}
	return m.now().After(session.CreatedAt.Add(m.ttl))
}
