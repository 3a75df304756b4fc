// Package views renders the static pages shown at the end of an action link
// flow.
package views

import (
	"embed"
	"fmt"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"
)

//go:embed templates/*.html
var templates embed.FS

const (
	EmailVerified = "email-verified"
	StaleLink     = "stale-link"
)

// Renderer renders named pages from the embedded templates
type Renderer struct {
	set *pongo2.TemplateSet
}

// NewRenderer returns a renderer backed by the embedded templates
func NewRenderer() *Renderer {
	return &Renderer{
		set: pongo2.NewSet("views", pongo2.NewFSLoader(templates)),
	}
}

// Render executes the named page with data
func (r *Renderer) Render(name string, data map[string]any) (string, error) {
	tpl, err := r.set.FromCache(fmt.Sprintf("templates/%s.html", name))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load page template").
			WithMetadata(map[string]any{"page": name})
	}

	out, err := tpl.Execute(pongo2.Context(data))
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render page").
			WithMetadata(map[string]any{"page": name})
	}
	return out, nil
}
