package view

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/a-h/templ"
)

//go:embed templates/*.html
var templateFS embed.FS

// Renderer executes the embedded templates. It is safe for concurrent use.
type Renderer struct {
	tmpl *template.Template
}

// NewRenderer parses the embedded templates once.
func NewRenderer() (*Renderer, error) {
	tmpl, err := template.New("drops").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("view: parse templates: %w", err)
	}
	for _, name := range []string{"page", "releases", "card"} {
		if tmpl.Lookup(name) == nil {
			return nil, fmt.Errorf("view: template %q not defined", name)
		}
	}
	return &Renderer{tmpl: tmpl}, nil
}

// Page renders the full document.
func (r *Renderer) Page(data PageData) templ.Component { return r.component("page", data) }

// Releases renders the chips and grid section swapped on every event.
func (r *Renderer) Releases(data ReleasesData) templ.Component {
	return r.component("releases", data)
}

func (r *Renderer) component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		if err := r.tmpl.ExecuteTemplate(w, name, data); err != nil {
			return fmt.Errorf("view: render %s: %w", name, err)
		}
		return nil
	})
}
