// Package events forwards domain and admin events to message topics. Every
// failure is logged and absorbed, forwarding never fails the caller.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-actions/internal/metrics"
)

// DefaultTimeout bounds the wait for a single publish
const DefaultTimeout = 30 * time.Second

// Publisher makes one publish attempt for a message
type Publisher interface {
	Publish(ctx context.Context, topic string, key, value []byte) error
}

// ProducerFactory builds a Publisher from opaque destination properties
type ProducerFactory func(properties map[string]any) (Publisher, error)

// Config configures a Forwarder
type Config struct {
	DomainTopic string
	// AdminTopic disables admin forwarding when empty
	AdminTopic string
	// IncludedEvents is the domain event allow list, matched ignoring case
	IncludedEvents []string
	Timeout        time.Duration
	Properties     map[string]any
}

// Forwarder publishes envelopes to the topic configured for their category
type Forwarder struct {
	domainTopic string
	adminTopic  string
	included    map[string]struct{}
	timeout     time.Duration
	publisher   Publisher
	logger      Logger
}

// Option customizes the forwarder
type Option func(*Forwarder)

// WithLogger sets the forwarder logger
func WithLogger(logger Logger) Option {
	return func(f *Forwarder) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// NewForwarder builds the publisher through factory and returns a forwarder
func NewForwarder(cfg Config, factory ProducerFactory, opts ...Option) (*Forwarder, error) {
	if cfg.DomainTopic == "" {
		return nil, goerrors.New("domain topic is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_DOMAIN_TOPIC")
	}
	if factory == nil {
		return nil, goerrors.New("producer factory is required", goerrors.CategoryValidation).
			WithTextCode("MISSING_PRODUCER_FACTORY")
	}

	f := &Forwarder{
		domainTopic: cfg.DomainTopic,
		adminTopic:  cfg.AdminTopic,
		timeout:     cfg.Timeout,
		logger:      defLogger{},
	}
	if f.timeout <= 0 {
		f.timeout = DefaultTimeout
	}

	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}

	f.included = f.parseIncluded(cfg.IncludedEvents)

	publisher, err := factory(cfg.Properties)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryExternal, "failed to create event producer")
	}
	f.publisher = publisher

	return f, nil
}

func (f *Forwarder) parseIncluded(names []string) map[string]struct{} {
	included := make(map[string]struct{}, len(names))
	for _, name := range names {
		normalized := normalizeTypeName(name)
		if normalized == "" {
			continue
		}
		if !IsKnownEventType(normalized) {
			f.logger.Debug("ignoring unknown event type %q in included events", name)
			continue
		}
		included[normalized] = struct{}{}
	}
	return included
}

// Includes reports whether a domain event type passes the allow list
func (f *Forwarder) Includes(typeName string) bool {
	_, ok := f.included[normalizeTypeName(typeName)]
	return ok
}

func (f *Forwarder) topicFor(category Category) string {
	switch category {
	case CategoryDomain:
		return f.domainTopic
	case CategoryAdmin:
		return f.adminTopic
	}
	return ""
}

// OnEvent forwards an end user event
func (f *Forwarder) OnEvent(ctx context.Context, typeName string, payload any) {
	f.Forward(ctx, NewEnvelope(CategoryDomain, typeName, payload))
}

// OnAdminEvent forwards an administrative event
func (f *Forwarder) OnAdminEvent(ctx context.Context, typeName string, payload any) {
	f.Forward(ctx, NewEnvelope(CategoryAdmin, typeName, payload))
}

// Forward makes at most one publish attempt for env, waiting up to the
// configured timeout. If ctx is cancelled during the wait Forward returns
// right away and leaves ctx cancelled.
func (f *Forwarder) Forward(ctx context.Context, env Envelope) {
	topic := f.topicFor(env.Category)
	if topic == "" {
		f.logger.Debug("no topic for %s event %s, dropping", env.Category, env.TypeName)
		f.count(env.Category, "skipped")
		return
	}

	if env.Category == CategoryDomain && !f.Includes(env.TypeName) {
		f.count(env.Category, "skipped")
		return
	}

	value, err := json.Marshal(env)
	if err != nil {
		f.logger.Error("failed to serialize %s event %s: %v", env.Category, env.TypeName, err)
		f.count(env.Category, "failed")
		return
	}

	var key []byte
	if env.Key != "" {
		key = []byte(env.Key)
	}

	publishCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fmt.Errorf("publish panicked: %v", r)
			}
		}()
		done <- f.publisher.Publish(publishCtx, topic, key, value)
	}()

	select {
	case err := <-done:
		if err != nil {
			f.logger.Error("failed to publish %s event %s to %s: %v", env.Category, env.TypeName, topic, err)
			f.count(env.Category, "failed")
			return
		}
		f.count(env.Category, "published")
	case <-publishCtx.Done():
		if ctx.Err() != nil {
			f.logger.Warn("interrupted while publishing %s event %s to %s: %v", env.Category, env.TypeName, topic, ctx.Err())
			f.count(env.Category, "interrupted")
			return
		}
		f.logger.Error("timed out after %s publishing %s event %s to %s", f.timeout, env.Category, env.TypeName, topic)
		f.count(env.Category, "timeout")
	}
}

func (f *Forwarder) count(category Category, outcome string) {
	metrics.EventsForwardedTotal.WithLabelValues(string(category), outcome).Inc()
}

// Close releases the underlying publisher when it holds resources
func (f *Forwarder) Close() error {
	if c, ok := f.publisher.(interface{ Close() error }); ok {
		return c.Close()
	}
	return nil
}
