package repository

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	actions "github.com/goliatone/go-auth-actions"
)

// SubjectModel is the Bun model for subjects.
type SubjectModel struct {
	bun.BaseModel `bun:"table:subjects,alias:sub"`

	ID              uuid.UUID                `bun:"id,pk,nullzero,type:uuid"`
	Username        string                   `bun:"username,notnull"`
	FirstName       string                   `bun:"first_name"`
	LastName        string                   `bun:"last_name"`
	Email           string                   `bun:"email"`
	Enabled         bool                     `bun:"enabled,notnull"`
	EmailVerified   bool                     `bun:"email_verified,notnull"`
	RequiredActions []string                 `bun:"required_actions,type:jsonb"`
	Attributes      []*SubjectAttributeModel `bun:"rel:has-many,join:id=subject_id"`
	CreatedAt       time.Time                `bun:"created_at,nullzero,default:current_timestamp"`
	UpdatedAt       time.Time                `bun:"updated_at,nullzero,default:current_timestamp"`
}

// SubjectAttributeModel is a single attribute value of a subject.
type SubjectAttributeModel struct {
	bun.BaseModel `bun:"table:subject_attributes,alias:attr"`

	ID        int64     `bun:"id,pk,autoincrement"`
	SubjectID uuid.UUID `bun:"subject_id,notnull,type:uuid"`
	Name      string    `bun:"name,notnull"`
	Value     string    `bun:"value,notnull"`
}

// ClientModel is the Bun model for clients.
type ClientModel struct {
	bun.BaseModel `bun:"table:clients,alias:cli"`

	ClientID     string    `bun:"client_id,pk"`
	Enabled      bool      `bun:"enabled,notnull"`
	RootURL      string    `bun:"root_url"`
	BaseURL      string    `bun:"base_url"`
	RedirectURIs []string  `bun:"redirect_uris,type:jsonb"`
	CreatedAt    time.Time `bun:"created_at,nullzero,default:current_timestamp"`
}

func (m *SubjectModel) toSubject() *actions.Subject {
	s := &actions.Subject{
		ID:            m.ID.String(),
		Username:      m.Username,
		FirstName:     m.FirstName,
		LastName:      m.LastName,
		Email:         m.Email,
		Enabled:       m.Enabled,
		EmailVerified: m.EmailVerified,
	}

	for _, name := range m.RequiredActions {
		if action, ok := actions.ParseRequiredAction(name); ok {
			s.RequiredActions = s.RequiredActions.Add(action)
		}
	}

	if len(m.Attributes) > 0 {
		s.Attributes = make(map[string][]string, len(m.Attributes))
		for _, attr := range m.Attributes {
			s.Attributes[attr.Name] = append(s.Attributes[attr.Name], attr.Value)
		}
	}

	return s
}

func fromSubject(s *actions.Subject) (*SubjectModel, []*SubjectAttributeModel) {
	var id uuid.UUID
	if s.ID != "" {
		if parsed, err := uuid.Parse(s.ID); err == nil {
			id = parsed
		}
	}
	if id == uuid.Nil {
		id = uuid.New()
	}

	model := &SubjectModel{
		ID:              id,
		Username:        s.Username,
		FirstName:       s.FirstName,
		LastName:        s.LastName,
		Email:           s.Email,
		Enabled:         s.Enabled,
		EmailVerified:   s.EmailVerified,
		RequiredActions: s.RequiredActions.Strings(),
	}

	var attrs []*SubjectAttributeModel
	for name, values := range s.Attributes {
		for _, value := range values {
			attrs = append(attrs, &SubjectAttributeModel{
				SubjectID: id,
				Name:      name,
				Value:     value,
			})
		}
	}

	return model, attrs
}

func (m *ClientModel) toClient() *actions.Client {
	uris := make([]string, len(m.RedirectURIs))
	copy(uris, m.RedirectURIs)
	return &actions.Client{
		ClientID:     m.ClientID,
		Enabled:      m.Enabled,
		RootURL:      m.RootURL,
		BaseURL:      m.BaseURL,
		RedirectURIs: uris,
	}
}

func fromClient(c *actions.Client) *ClientModel {
	uris := make([]string, len(c.RedirectURIs))
	copy(uris, c.RedirectURIs)
	return &ClientModel{
		ClientID:     c.ClientID,
		Enabled:      c.Enabled,
		RootURL:      c.RootURL,
		BaseURL:      c.BaseURL,
		RedirectURIs: uris,
	}
}

func jsonStrings(values []string) string {
	if values == nil {
		values = []string{}
	}
	b, _ := json.Marshal(values)
	return string(b)
}
