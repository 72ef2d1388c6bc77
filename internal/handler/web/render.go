package web

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"net/url"

	"PortfolioDash/internal/domain/models"

	"github.com/labstack/echo/v4"
)

//go:embed templates/*.html
var templatesFS embed.FS

var pageFiles = map[string][]string{
	"login": {"templates/login.html"},
	"app": {
		"templates/app.html",
		"templates/chatbot.html",
		"templates/optimizer.html",
		"templates/search.html",
	},
	"error": {"templates/error.html"},
}

var funcMap = template.FuncMap{
	"viewURL": func(v models.View) string { return "/app?view=" + url.QueryEscape(string(v)) },
}

// Renderer implements echo.Renderer. Each page is its own template set
// layered over the shared layout.
type Renderer struct {
	pages map[string]*template.Template
}

func NewRenderer() (*Renderer, error) {
	base, err := template.New("layout.html").Funcs(funcMap).ParseFS(templatesFS, "templates/layout.html")
	if err != nil {
		return nil, fmt.Errorf("parse layout: %w", err)
	}

	r := &Renderer{pages: make(map[string]*template.Template, len(pageFiles))}
	for name, files := range pageFiles {
		t, err := base.Clone()
		if err != nil {
			return nil, fmt.Errorf("clone layout for %s: %w", name, err)
		}
		if _, err := t.ParseFS(templatesFS, files...); err != nil {
			return nil, fmt.Errorf("parse %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

func (r *Renderer) Render(w io.Writer, name string, data interface{}, _ echo.Context) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("unknown page %q", name)
	}
	return t.ExecuteTemplate(w, "layout", data)
}
