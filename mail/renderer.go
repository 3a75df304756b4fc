// Package mail renders action emails from embedded templates and delivers
// them over SMTP.
package mail

import (
	"embed"
	"fmt"
	"strings"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"

	actions "github.com/goliatone/go-auth-actions"
)

//go:embed templates/*
var templates embed.FS

// Rendered is a ready to send email body
type Rendered struct {
	Subject string
	Text    string
	HTML    string
}

// Renderer turns an EmailMessage into subject and bodies
type Renderer struct {
	set *pongo2.TemplateSet
}

// NewRenderer returns a renderer backed by the embedded templates
func NewRenderer() *Renderer {
	return &Renderer{
		set: pongo2.NewSet("mail", pongo2.NewFSLoader(templates)),
	}
}

// Render executes the subject, text and html templates for the message
func (r *Renderer) Render(msg actions.EmailMessage) (*Rendered, error) {
	data := pongo2.Context{
		"realm":      msg.Realm,
		"link":       msg.Link,
		"expiration": FormatExpiration(msg.ExpirationMinutes),
		"minutes":    msg.ExpirationMinutes,
		"actions":    requiredActionNames(msg.RequiredActions),
		"name":       displayName(msg.Subject),
	}
	if msg.Subject != nil {
		data["user"] = map[string]any{
			"id":         msg.Subject.ID,
			"username":   msg.Subject.Username,
			"first_name": msg.Subject.FirstName,
			"last_name":  msg.Subject.LastName,
			"email":      msg.Subject.Email,
		}
	}

	subject, err := r.execute(msg.Template, "subject.txt", data)
	if err != nil {
		return nil, err
	}
	text, err := r.execute(msg.Template, "txt", data)
	if err != nil {
		return nil, err
	}
	html, err := r.execute(msg.Template, "html", data)
	if err != nil {
		return nil, err
	}

	return &Rendered{
		Subject: strings.TrimSpace(subject),
		Text:    text,
		HTML:    html,
	}, nil
}

func (r *Renderer) execute(name actions.EmailTemplate, ext string, data pongo2.Context) (string, error) {
	filename := fmt.Sprintf("templates/%s.%s", name, ext)
	tpl, err := r.set.FromCache(filename)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load email template").
			WithMetadata(map[string]any{"template": filename})
	}
	out, err := tpl.Execute(data)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email template").
			WithMetadata(map[string]any{"template": filename})
	}
	return out, nil
}

// FormatExpiration renders a lifespan in minutes the way it reads in an email
func FormatExpiration(minutes int64) string {
	switch {
	case minutes <= 0:
		return "less than a minute"
	case minutes%(24*60) == 0:
		return plural(minutes/(24*60), "day")
	case minutes%60 == 0:
		return plural(minutes/60, "hour")
	}
	return plural(minutes, "minute")
}

func plural(n int64, unit string) string {
	if n == 1 {
		return "1 " + unit
	}
	return fmt.Sprintf("%d %ss", n, unit)
}

var actionLabels = map[actions.RequiredAction]string{
	actions.RequiredActionVerifyEmail:        "Verify Email",
	actions.RequiredActionUpdatePassword:     "Update Password",
	actions.RequiredActionUpdateProfile:      "Update Profile",
	actions.RequiredActionConfigureTOTP:      "Configure OTP",
	actions.RequiredActionTermsAndConditions: "Terms and Conditions",
}

func requiredActionNames(in []actions.RequiredAction) []string {
	out := make([]string, 0, len(in))
	for _, a := range in {
		if label, ok := actionLabels[a]; ok {
			out = append(out, label)
			continue
		}
		out = append(out, string(a))
	}
	return out
}

func displayName(s *actions.Subject) string {
	if s == nil {
		return ""
	}
	if name := strings.TrimSpace(s.FirstName + " " + s.LastName); name != "" {
		return name
	}
	if s.Username != "" {
		return s.Username
	}
	return s.Email
}
