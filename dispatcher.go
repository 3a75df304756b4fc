package actions

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	goerrors "github.com/goliatone/go-errors"

	"github.com/goliatone/go-auth-actions/internal/metrics"
)

// DispatchAction selects which action email is sent
type DispatchAction string

const (
	ActionVerifyEmail   DispatchAction = "verify_email"
	ActionResetPassword DispatchAction = "reset_password"
)

// DispatchRequest is the REST triggered request to email an action link
type DispatchRequest struct {
	SubjectID   string         `json:"subject_id"`
	RedirectURI string         `json:"redirect_uri"`
	ClientID    string         `json:"client_id"`
	Lifespan    time.Duration  `json:"lifespan"`
	Action      DispatchAction `json:"action"`
	Actor       ActorRef       `json:"-"`
}

// Validate will run validation rules
func (r DispatchRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.SubjectID,
			validation.Required,
		),
		validation.Field(
			&r.Action,
			validation.Required,
			validation.In(ActionVerifyEmail, ActionResetPassword),
		),
		validation.Field(
			&r.Lifespan,
			validation.Min(time.Duration(0)),
		),
	)
}

// ActionDispatcher issues an action token for a subject and emails the
// confirmation link. Exactly one delivery attempt is made per call.
type ActionDispatcher struct {
	config       Config
	subjects     SubjectRepository
	issuer       *ActionTokenIssuer
	mailer       Mailer
	activitySink ActivitySink
	logger       Logger
}

// DispatcherOption customizes the dispatcher
type DispatcherOption func(*ActionDispatcher)

// WithDispatcherActivitySink sets the sink that receives admin events
func WithDispatcherActivitySink(sink ActivitySink) DispatcherOption {
	return func(d *ActionDispatcher) {
		d.activitySink = normalizeActivitySink(sink)
	}
}

// WithDispatcherLogger sets the dispatcher logger
func WithDispatcherLogger(logger Logger) DispatcherOption {
	return func(d *ActionDispatcher) {
		d.logger = normalizeLogger(logger)
	}
}

// NewActionDispatcher wires the dispatcher collaborators
func NewActionDispatcher(cfg Config, subjects SubjectRepository, issuer *ActionTokenIssuer, mailer Mailer, opts ...DispatcherOption) *ActionDispatcher {
	d := &ActionDispatcher{
		config:       cfg,
		subjects:     subjects,
		issuer:       issuer,
		mailer:       mailer,
		activitySink: noopActivitySink{},
		logger:       defLogger{},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(d)
		}
	}
	return d
}

// Dispatch runs the full REST flow. A nil error means the email was handed
// to the mailer.
func (d *ActionDispatcher) Dispatch(ctx context.Context, req DispatchRequest) error {
	if err := d.validate(req); err != nil {
		metrics.DispatchTotal.WithLabelValues(string(req.Action), "rejected").Inc()
		return err
	}

	subject, err := d.findSubject(ctx, req.SubjectID)
	if err != nil {
		metrics.DispatchTotal.WithLabelValues(string(req.Action), "rejected").Inc()
		return err
	}

	tokenType, actions, template := d.plan(req.Action)

	signed, token, err := d.issuer.Issue(ctx, IssueRequest{
		Subject:         subject,
		TokenType:       tokenType,
		RequiredActions: actions,
		RedirectURI:     req.RedirectURI,
		ClientID:        req.ClientID,
		Lifespan:        req.Lifespan,
	})
	if err != nil {
		d.logger.Debug("dispatch %s for %s rejected: %v", req.Action, req.SubjectID, err)
		metrics.DispatchTotal.WithLabelValues(string(req.Action), "rejected").Inc()
		return err
	}

	links := LinkBuilder{BaseURL: d.config.GetBaseURL(), Realm: d.config.GetRealm()}
	msg := EmailMessage{
		Template:          template,
		Realm:             d.config.GetRealm(),
		Subject:           subject,
		Link:              links.ActionTokenURL(signed),
		ExpirationMinutes: int64(token.ExpiresAt.Sub(token.IssuedAt) / time.Minute),
		RequiredActions:   token.RequiredActions.Clone(),
	}

	if err := d.mailer.Send(ctx, msg); err != nil {
		d.logger.Error("failed to send %s email to %s: %v", template, subject.ID, err)
		metrics.DispatchTotal.WithLabelValues(string(req.Action), "failed").Inc()
		return goerrors.Wrap(err, ErrDeliveryFailed.Category, ErrDeliveryFailed.Message).
			WithTextCode(ErrDeliveryFailed.TextCode).
			WithCode(ErrDeliveryFailed.Code)
	}

	metrics.DispatchTotal.WithLabelValues(string(req.Action), "sent").Inc()

	recordActivity(ctx, d.activitySink, d.logger, ActivityEvent{
		EventType: d.activityType(req.Action),
		Category:  ActivityCategoryAdmin,
		Realm:     d.config.GetRealm(),
		Actor:     req.Actor,
		SubjectID: subject.ID,
		ClientID:  token.Audience,
		Metadata: map[string]any{
			"token_id":         token.ID,
			"token_type":       string(token.Type()),
			"required_actions": token.RequiredActions.Strings(),
			"redirect_uri":     token.RedirectURI,
		},
	})

	return nil
}

func (d *ActionDispatcher) validate(req DispatchRequest) error {
	err := req.Validate()
	if err == nil {
		return nil
	}

	fields, ok := err.(validation.Errors)
	if !ok {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid dispatch request").
			WithCode(goerrors.CodeBadRequest)
	}

	if _, missing := fields["subject_id"]; missing {
		return ErrMissingSubject.Clone()
	}

	return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid dispatch request").
		WithCode(goerrors.CodeBadRequest)
}

func (d *ActionDispatcher) findSubject(ctx context.Context, id string) (*Subject, error) {
	subject, err := d.subjects.FindSubject(ctx, id)
	if err != nil {
		if HasTextCode(err, TextCodeUnknownSubject) {
			return nil, newError(ErrUnknownSubject, map[string]any{"subject_id": id})
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load subject")
	}
	if subject == nil {
		return nil, newError(ErrUnknownSubject, map[string]any{"subject_id": id})
	}
	return subject, nil
}

// plan picks the token variant and template for an action
func (d *ActionDispatcher) plan(action DispatchAction) (TokenType, []RequiredAction, EmailTemplate) {
	if action == ActionResetPassword {
		return TokenTypeExecuteActions, []RequiredAction{RequiredActionUpdatePassword}, EmailTemplatePasswordReset
	}

	tokenType := d.config.GetVerifyEmailTokenType()
	if !tokenType.Valid() {
		tokenType = TokenTypeVerifyEmail
	}
	return tokenType, []RequiredAction{RequiredActionVerifyEmail}, EmailTemplateVerifyEmail
}

func (d *ActionDispatcher) activityType(action DispatchAction) ActivityEventType {
	if action == ActionResetPassword {
		return ActivityEventSendResetPassword
	}
	return ActivityEventSendVerifyEmail
}
