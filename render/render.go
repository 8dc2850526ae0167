// Package render owns the HTML surface: embedded templates, one layout,
// and a narrow Render contract so handlers never touch template internals.
package render

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

//go:embed templates/*.tmpl
var templatesFS embed.FS

// Page is what every template receives: the chrome (identity, flashes) plus
// page-specific data.
type Page struct {
	Title       string
	CurrentUser string
	Success     []string
	Error       []string
	Data        any
}

type Renderer struct {
	templates map[string]*template.Template
	logger    *zap.Logger
}

var pageNames = []string{
	"index.tmpl", "show.tmpl", "new.tmpl", "edit.tmpl",
	"login.tmpl", "signup.tmpl", "error.tmpl",
}

func New(logger *zap.Logger) (*Renderer, error) {
	templates := make(map[string]*template.Template, len(pageNames))
	funcs := template.FuncMap{
		"add": func(a, b int) int { return a + b },
		"sub": func(a, b int) int { return a - b },
		"seq": func(n int) []int {
			out := make([]int, n)
			for i := range out {
				out[i] = i + 1
			}
			return out
		},
	}

	for _, name := range pageNames {
		t, err := template.New(name).Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.tmpl", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		templates[name] = t
	}
	return &Renderer{templates: templates, logger: logger}, nil
}

// HTML renders a page. The template executes into a buffer first so a
// mid-render failure never leaks a half-written page to the client.
func (r *Renderer) HTML(w http.ResponseWriter, status int, name string, page *Page) {
	t, ok := r.templates[name]
	if !ok {
		r.logger.Error("unknown template", zap.String("name", name))
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", page); err != nil {
		r.logger.Error("template execution failed", zap.String("name", name), zap.Error(err))
		http.Error(w, "Something went wrong", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}
