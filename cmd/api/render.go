package main

import (
	"bytes"
	"encoding/json"
	"html/template"
	"net/http"
	"os"
	"path/filepath"

	"radiology-worklist/internal/middleware"
	"radiology-worklist/internal/session"

	"go.uber.org/zap"
)

// renderer parses templates on every call so edits show up without a
// restart. Pages are wrapped in layout.html.
type renderer struct {
	dir    string
	logger *zap.Logger
}

func newRenderer(dir string, logger *zap.Logger) *renderer {
	return &renderer{dir: resolveTemplatePath(dir), logger: logger}
}

// resolveTemplatePath falls back to the repository root for tests running
// from cmd/api.
func resolveTemplatePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		p2 := filepath.Join("..", "..", path)
		if _, err := os.Stat(p2); err == nil {
			return p2
		}
	}
	return path
}

var funcs = template.FuncMap{
	"json": toJSON,
}

// toJSON is for data-signals attributes; the template escapes the result.
func toJSON(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	return string(b), err
}

func (rd *renderer) parse(files ...string) (*template.Template, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, filepath.Join(rd.dir, f))
	}
	return template.New(filepath.Base(paths[0])).Funcs(funcs).ParseFiles(paths...)
}

// pageData is what layout.html sees.
type pageData struct {
	Data      interface{}
	CSRFToken string
	User      *session.Capability
}

func (rd *renderer) page(w http.ResponseWriter, r *http.Request, status int, data interface{}, files ...string) {
	tmpl, err := rd.parse(append([]string{"layout.html"}, files...)...)
	if err != nil {
		rd.logger.Error("template parse failed", zap.Strings("files", files), zap.Error(err))
		http.Error(w, "Template Parse Error", http.StatusInternalServerError)
		return
	}

	wrapper := pageData{Data: data, CSRFToken: middleware.CSRFToken(r.Context())}
	if c, ok := session.FromContext(r.Context()); ok {
		wrapper.User = &c
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", wrapper); err != nil {
		rd.logger.Error("template execute failed", zap.Strings("files", files), zap.Error(err))
		http.Error(w, "Template Execute Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// fragment renders one named template for an SSE patch.
func (rd *renderer) fragment(name string, data interface{}, files ...string) (string, error) {
	tmpl, err := rd.parse(files...)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}
