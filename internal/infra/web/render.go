package web

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"

	"pals-portal/internal/domain/model"
	"pals-portal/internal/infra/logging"
)

//go:embed templates
var templatesFS embed.FS

// pageData is the single view model every template receives.
type pageData struct {
	Title   string
	Tenant  *model.Tenant
	Flows   []model.Flow
	Flow    *model.Flow
	Step    model.StepID
	Steps   []model.StepView
	State   *model.WizardState
	Form    map[string]string
	Errors  model.ValidationErrors
	Message string // inline error
	Notice  string

	States  []model.State
	Result  *model.Resolution
	Refresh int // seconds before following Result.LandingURL
	PayURL  string
	Stats   *model.DashboardStats
	Admin   *AdminClaims
}

func (s *Server) funcs() template.FuncMap {
	return template.FuncMap{
		"t":     s.Translator.T,
		"naira": model.FormatNaira,
		"field": func(d *pageData, name string) string { return d.Form[name] },
		"err":   func(d *pageData, name string) string { return d.Errors[name] },
		"docLabel": func(k model.DocumentKind) string {
			return strings.ReplaceAll(capitalize(string(k)), "-", " ")
		},
		"selected": func(a, b string) bool { return strings.EqualFold(a, b) },
		"uploaded": func(d *pageData, k model.DocumentKind) string {
			if d.State == nil {
				return ""
			}
			doc, _ := d.State.Document(k)
			return doc.FileName
		},
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// parsePages parses every page together with the layout and partials, one
// template set per page so each can define its own "content".
func parsePages(funcs template.FuncMap) (map[string]*template.Template, error) {
	entries, err := fs.ReadDir(templatesFS, "templates/pages")
	if err != nil {
		return nil, err
	}
	pages := make(map[string]*template.Template, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".html")
		t, err := template.New(name).Funcs(funcs).ParseFS(templatesFS,
			"templates/layout.html", "templates/partials.html", "templates/pages/"+e.Name())
		if err != nil {
			return nil, fmt.Errorf("parse template %s: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, page string, d *pageData) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if d.Tenant == nil {
		d.Tenant = s.tenant(r)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", d); err != nil {
		l := logging.With(r.Context(), s.log)
		l.Error().Err(err).Str("page", page).Msg("render")
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (s *Server) tenant(r *http.Request) *model.Tenant {
	if s.Lookups != nil {
		if t, err := s.Lookups.Tenant(r.Context()); err == nil {
			return t
		}
	}
	return &model.Tenant{Name: s.Translator.T("app.title")}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "notfound", &pageData{Title: s.Translator.T("notfound.title")})
}
