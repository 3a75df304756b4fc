package events

import (
	"time"

	"github.com/google/uuid"
)

// Envelope is a single event occurrence. It is forwarded at most once.
type Envelope struct {
	ID         string    `json:"id"`
	Category   Category  `json:"category"`
	TypeName   string    `json:"type"`
	Realm      string    `json:"realm,omitempty"`
	Key        string    `json:"-"`
	OccurredAt time.Time `json:"time"`
	Payload    any       `json:"payload,omitempty"`
}

// NewEnvelope stamps a new occurrence
func NewEnvelope(category Category, typeName string, payload any) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Category:   category,
		TypeName:   normalizeTypeName(typeName),
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
}
