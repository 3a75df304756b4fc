package mail

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	gomail "github.com/wneessen/go-mail"

	actions "github.com/goliatone/go-auth-actions"
)

// Envelope is a rendered message addressed to one recipient
type Envelope struct {
	From    string
	To      string
	Subject string
	Text    string
	HTML    string
}

// Transport delivers a rendered envelope
type Transport interface {
	Deliver(ctx context.Context, env Envelope) error
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc func(ctx context.Context, env Envelope) error

// Deliver implements Transport.
func (f TransportFunc) Deliver(ctx context.Context, env Envelope) error {
	return f(ctx, env)
}

// Mailer implements actions.Mailer on top of a Renderer and a Transport
type Mailer struct {
	from      string
	renderer  *Renderer
	transport Transport
	logger    actions.Logger
}

// NewMailer returns a mailer sending from the given address
func NewMailer(from string, renderer *Renderer, transport Transport, logger actions.Logger) *Mailer {
	if renderer == nil {
		renderer = NewRenderer()
	}
	return &Mailer{
		from:      from,
		renderer:  renderer,
		transport: transport,
		logger:    logger,
	}
}

// Send renders the message and makes a single delivery attempt
func (m *Mailer) Send(ctx context.Context, msg actions.EmailMessage) error {
	if msg.Subject == nil || msg.Subject.Email == "" {
		return goerrors.New("email message has no recipient", goerrors.CategoryBadInput)
	}

	rendered, err := m.renderer.Render(msg)
	if err != nil {
		return err
	}

	env := Envelope{
		From:    m.from,
		To:      msg.Subject.Email,
		Subject: rendered.Subject,
		Text:    rendered.Text,
		HTML:    rendered.HTML,
	}

	if err := m.transport.Deliver(ctx, env); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to deliver email").
			WithMetadata(map[string]any{"template": string(msg.Template)})
	}

	if m.logger != nil {
		m.logger.Debug("sent %s email to subject %s", msg.Template, msg.Subject.ID)
	}
	return nil
}

// SMTPConfig holds the SMTP connection settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// StartTLS requires STARTTLS instead of trying it opportunistically
	StartTLS bool
	Timeout  time.Duration
}

// SMTPTransport delivers envelopes with go-mail
type SMTPTransport struct {
	config SMTPConfig
}

// NewSMTPTransport validates the config and returns a transport. The
// connection is opened per delivery.
func NewSMTPTransport(cfg SMTPConfig) (*SMTPTransport, error) {
	if cfg.Host == "" {
		return nil, goerrors.New("smtp host is required", goerrors.CategoryValidation)
	}
	if cfg.Port == 0 {
		cfg.Port = 587
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}
	return &SMTPTransport{config: cfg}, nil
}

func (t *SMTPTransport) Deliver(ctx context.Context, env Envelope) error {
	msg := gomail.NewMsg()
	if err := msg.From(env.From); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid sender address")
	}
	if err := msg.To(env.To); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid recipient address")
	}
	msg.Subject(env.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, env.Text)
	if env.HTML != "" {
		msg.AddAlternativeString(gomail.TypeTextHTML, env.HTML)
	}

	client, err := gomail.NewClient(t.config.Host, t.clientOptions()...)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryExternal, "failed to create smtp client")
	}

	return client.DialAndSendWithContext(ctx, msg)
}

func (t *SMTPTransport) clientOptions() []gomail.Option {
	opts := []gomail.Option{
		gomail.WithPort(t.config.Port),
		gomail.WithTimeout(t.config.Timeout),
		gomail.WithTLSPolicy(gomail.TLSOpportunistic),
	}
	if t.config.StartTLS {
		opts[2] = gomail.WithTLSPolicy(gomail.TLSMandatory)
	}
	if t.config.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(t.config.Username),
			gomail.WithPassword(t.config.Password),
		)
	}
	return opts
}
