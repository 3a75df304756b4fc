package events

import (
	"context"

	actions "github.com/goliatone/go-auth-actions"
)

// ActivitySink forwards action activity through a Forwarder. Record never
// fails, forwarding errors are absorbed by the forwarder.
func ActivitySink(f *Forwarder) actions.ActivitySink {
	return actions.ActivitySinkFunc(func(ctx context.Context, event actions.ActivityEvent) error {
		category := CategoryDomain
		if event.Category == actions.ActivityCategoryAdmin {
			category = CategoryAdmin
		}

		env := NewEnvelope(category, string(event.EventType), map[string]any{
			"subject_id": event.SubjectID,
			"client_id":  event.ClientID,
			"actor_id":   event.Actor.ID,
			"actor_type": event.Actor.Type,
			"details":    event.Metadata,
		})
		env.Realm = event.Realm
		env.Key = event.SubjectID
		if !event.OccurredAt.IsZero() {
			env.OccurredAt = event.OccurredAt.UTC()
		}

		f.Forward(ctx, env)
		return nil
	})
}
