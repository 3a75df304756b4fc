package actions

import (
	"context"
	"time"
)

// ActivityEventType names an occurrence recorded by the action flows.
type ActivityEventType string

const (
	ActivityEventSendVerifyEmail   ActivityEventType = "SEND_VERIFY_EMAIL"
	ActivityEventSendResetPassword ActivityEventType = "SEND_RESET_PASSWORD"
	ActivityEventVerifyEmail       ActivityEventType = "VERIFY_EMAIL"
	ActivityEventExecuteActions    ActivityEventType = "EXECUTE_ACTIONS"
)

// ActivityCategory separates end user occurrences from administrative ones
type ActivityCategory string

const (
	ActivityCategoryDomain ActivityCategory = "domain"
	ActivityCategoryAdmin  ActivityCategory = "admin"
)

// ActorRef identifies who triggered the activity
type ActorRef struct {
	ID   string
	Type string
}

// ActorLocalsKey is the router locals key holding the authenticated ActorRef
// of an admin request.
const ActorLocalsKey = "actions_actor"

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Category   ActivityCategory
	Realm      string
	Actor      ActorRef
	SubjectID  string
	ClientID   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events. Failures are logged by the
// caller and never abort the originating operation.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Warn("failed to record %s activity for %s: %v", event.EventType, event.SubjectID, err)
	}
}
