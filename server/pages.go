package server

import (
	"bytes"
	"embed"
	"html/template"
	"io/fs"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/propscout/propscout/auth"
	"github.com/propscout/propscout/display"
	"github.com/propscout/propscout/errors"
	"github.com/propscout/propscout/internal/util"
	"github.com/propscout/propscout/logger"
)

//go:embed templates/*.html
var templateFS embed.FS

// layoutFile and partials are parsed into every page.
const layoutFile = "templates/layout.html"

var partials = []string{"templates/sections.html"}

type pages struct {
	byName map[string]*template.Template
}

var funcs = template.FuncMap{
	"price":     display.Price,
	"number":    display.Number,
	"int":       display.Int,
	"sqft":      display.Sqft,
	"thousands": util.Thousands,
	"join":      strings.Join,
	"truncate":  util.Truncate,
	"plain":     func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) },
}

func loadPages() (*pages, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, errors.Wrap(err, "failed to list templates")
	}
	p := &pages{byName: make(map[string]*template.Template)}
	for _, f := range files {
		if f == layoutFile || isPartial(f) {
			continue
		}
		name := strings.TrimSuffix(path.Base(f), ".html")
		set := append([]string{layoutFile}, partials...)
		t, err := template.New(name).Funcs(funcs).ParseFS(templateFS, append(set, f)...)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to parse template %s", f)
		}
		p.byName[name] = t
	}
	sections, err := template.New("sections").Funcs(funcs).ParseFS(templateFS, partials...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to parse section templates")
	}
	p.byName["sections"] = sections
	return p, nil
}

func isPartial(f string) bool {
	for _, p := range partials {
		if p == f {
			return true
		}
	}
	return false
}

// pageData is passed to every full page.
type pageData struct {
	Title   string
	User    *auth.User
	Banner  string // page-level error
	Notice  string
	Version string
	Data    interface{}
}

// render executes a full page into a buffer first so template errors never
// produce half-written pages.
func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, pd pageData) {
	t, ok := s.pages.byName[name]
	if !ok {
		s.log.Errorw("Unknown template", "template", name)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	if session := auth.SessionFromContext(r.Context()); session != nil {
		pd.User = session.User()
	}
	pd.Version = s.version

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout", pd); err != nil {
		s.log.Errorw("Template execution failed", "template", name, logger.FieldError, err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

// renderFragment executes a named block from the sections partial.
func (s *Server) renderFragment(name string, data interface{}) (string, error) {
	var buf bytes.Buffer
	if err := s.pages.byName["sections"].ExecuteTemplate(&buf, name, data); err != nil {
		return "", errors.Wrapf(err, "failed to render %s", name)
	}
	return buf.String(), nil
}
