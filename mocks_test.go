package actions_test

import (
	"context"
	"sync"
	"time"

	"github.com/stretchr/testify/mock"

	actions "github.com/goliatone/go-auth-actions"
)

const testSigningKey = "test-signing-key"

// testConfig implements actions.Config
type testConfig struct {
	realm      string
	baseURL    string
	clientID   string
	lifespan   time.Duration
	verifyType actions.TokenType
}

func newTestConfig() testConfig {
	return testConfig{
		realm:   "master",
		baseURL: "https://id.example.com",
	}
}

func (c testConfig) GetRealm() string                           { return c.realm }
func (c testConfig) GetBaseURL() string                         { return c.baseURL }
func (c testConfig) GetDefaultClientID() string                 { return c.clientID }
func (c testConfig) GetAdminActionTokenLifespan() time.Duration { return c.lifespan }
func (c testConfig) GetVerifyEmailTokenType() actions.TokenType { return c.verifyType }

// MockSubjectRepository implements actions.SubjectRepository
type MockSubjectRepository struct {
	mock.Mock
}

func (m *MockSubjectRepository) FindSubject(ctx context.Context, id string) (*actions.Subject, error) {
	args := m.Called(ctx, id)
	if s := args.Get(0); s != nil {
		return s.(*actions.Subject), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubjectRepository) SearchSubjects(ctx context.Context, attribute, value string) ([]*actions.Subject, error) {
	args := m.Called(ctx, attribute, value)
	if s := args.Get(0); s != nil {
		return s.([]*actions.Subject), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockSubjectRepository) MarkEmailVerified(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockSubjectRepository) RemoveRequiredAction(ctx context.Context, id string, action actions.RequiredAction) error {
	args := m.Called(ctx, id, action)
	return args.Error(0)
}

// MockClientRepository implements actions.ClientRepository
type MockClientRepository struct {
	mock.Mock
}

func (m *MockClientRepository) FindClient(ctx context.Context, clientID string) (*actions.Client, error) {
	args := m.Called(ctx, clientID)
	if c := args.Get(0); c != nil {
		return c.(*actions.Client), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMailer implements actions.Mailer
type MockMailer struct {
	mock.Mock
}

func (m *MockMailer) Send(ctx context.Context, msg actions.EmailMessage) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

// memorySubjects is an in-memory SubjectRepository for flow tests
type memorySubjects struct {
	mu       sync.Mutex
	subjects map[string]*actions.Subject
	writes   int
}

func newMemorySubjects(subjects ...*actions.Subject) *memorySubjects {
	m := &memorySubjects{subjects: make(map[string]*actions.Subject)}
	for _, s := range subjects {
		m.subjects[s.ID] = s
	}
	return m
}

func (m *memorySubjects) FindSubject(_ context.Context, id string) (*actions.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.subjects[id]
	if !ok {
		return nil, actions.ErrUnknownSubject.Clone()
	}
	out := *s
	out.RequiredActions = s.RequiredActions.Clone()
	return &out, nil
}

func (m *memorySubjects) SearchSubjects(_ context.Context, attribute, value string) ([]*actions.Subject, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*actions.Subject
	for _, s := range m.subjects {
		for _, v := range s.Attributes[attribute] {
			if v == value {
				out = append(out, s)
				break
			}
		}
	}
	return out, nil
}

func (m *memorySubjects) MarkEmailVerified(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[id].EmailVerified = true
	m.writes++
	return nil
}

func (m *memorySubjects) RemoveRequiredAction(_ context.Context, id string, action actions.RequiredAction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subjects[id].RequiredActions = m.subjects[id].RequiredActions.Remove(action)
	m.writes++
	return nil
}

func (m *memorySubjects) get(id string) actions.Subject {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.subjects[id]
}

func (m *memorySubjects) writeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// staticClients resolves clients from a fixed list
type staticClients map[string]*actions.Client

func (s staticClients) FindClient(_ context.Context, clientID string) (*actions.Client, error) {
	if c, ok := s[clientID]; ok {
		return c, nil
	}
	return nil, actions.ErrUnknownClient.Clone()
}

// recordingSink captures activity events
type recordingSink struct {
	mu     sync.Mutex
	events []actions.ActivityEvent
}

func (r *recordingSink) Record(_ context.Context, event actions.ActivityEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

func (r *recordingSink) recorded() []actions.ActivityEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]actions.ActivityEvent(nil), r.events...)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

func accountClient() *actions.Client {
	return &actions.Client{
		ClientID:     "account",
		Enabled:      true,
		RootURL:      "https://app.example.com",
		RedirectURIs: []string{"/callback", "https://app.example.com/welcome/*"},
	}
}

func activeSubject() *actions.Subject {
	return &actions.Subject{
		ID:              "6b1f2c1e-9a7d-4a58-9b0f-0e6f2d4d2a11",
		Username:        "jane",
		FirstName:       "Jane",
		LastName:        "Doe",
		Email:           "jane@example.com",
		Enabled:         true,
		RequiredActions: actions.NewRequiredActionSet(actions.RequiredActionVerifyEmail),
		Attributes:      map[string][]string{"merchant_id": {"m-42"}},
	}
}

func newTestCodec() *actions.JWTTokenCodec {
	return actions.NewJWTTokenCodec([]byte(testSigningKey), "test-issuer", actions.WithCodecLogger(nopLogger{}))
}
