// Package docsite previews a rendered documentation directory, either over
// HTTP as HTML pages or in the terminal.
package docsite

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const indexDocument = "README.md"

var errOutsideRoot = errors.New("path escapes documentation root")

// Server serves the markdown files under a directory as HTML.
type Server struct {
	router chi.Router
	root   string
	md     goldmark.Markdown
	log    *slog.Logger
}

func NewServer(root string, log *slog.Logger) *Server {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	s := &Server{
		root: root,
		md:   goldmark.New(goldmark.WithExtensions(extension.GFM)),
		log:  log,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)
	r.Get("/raw/*", s.handleRaw)
	r.Get("/", s.handlePage)
	r.Get("/*", s.handlePage)

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	if rel == "" {
		rel = indexDocument
	}

	src, err := s.read(rel)
	if err != nil {
		s.fail(w, r, rel, err)
		return
	}

	var body bytes.Buffer
	if err := s.md.Convert(src, &body); err != nil {
		http.Error(w, "rendering markdown: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprintf(w, pageTemplate, html.EscapeString(pageTitle(rel)), body.String())
}

func (s *Server) handleRaw(w http.ResponseWriter, r *http.Request) {
	rel := chi.URLParam(r, "*")
	src, err := s.read(rel)
	if err != nil {
		s.fail(w, r, rel, err)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	w.Write(src)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, rel string, err error) {
	switch {
	case errors.Is(err, errOutsideRoot), errors.Is(err, os.ErrNotExist):
		http.NotFound(w, r)
	default:
		s.log.Error("reading document", "path", rel, "error", err)
		http.Error(w, "reading document", http.StatusInternalServerError)
	}
}

// read loads a markdown document by its slash-separated path below root.
func (s *Server) read(rel string) ([]byte, error) {
	p, err := s.resolve(rel)
	if err != nil {
		return nil, err
	}
	return os.ReadFile(p)
}

// resolve maps rel onto the filesystem. Only .md files inside root resolve.
func (s *Server) resolve(rel string) (string, error) {
	if strings.Contains(rel, "\\") || strings.Contains(rel, "\x00") {
		return "", errOutsideRoot
	}
	for _, seg := range strings.Split(rel, "/") {
		if seg == ".." {
			return "", errOutsideRoot
		}
	}
	clean := path.Clean("/" + rel)[1:]
	if clean == "" || path.Ext(clean) != ".md" {
		return "", os.ErrNotExist
	}

	full := filepath.Join(s.root, filepath.FromSlash(clean))
	within, err := filepath.Rel(s.root, full)
	if err != nil || within == ".." || strings.HasPrefix(within, ".."+string(filepath.Separator)) {
		return "", errOutsideRoot
	}
	return full, nil
}

func pageTitle(rel string) string {
	if rel == indexDocument {
		return "API Documentation"
	}
	return strings.TrimSuffix(path.Base(rel), ".md")
}

const pageTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>body{max-width:52rem;margin:2rem auto;padding:0 1rem;font-family:system-ui,sans-serif;line-height:1.5}pre{background:#f5f5f5;padding:.75rem;overflow-x:auto}</style>
</head>
<body>
<a href="/">Index</a>
%s
</body>
</html>
`

// RequestLogger logs one line per request.
func RequestLogger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			log.Info("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
			)
		})
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
