package web

import (
	"bytes"
	"context"
	"html/template"
	"io/fs"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"github.com/vbonduro/plantpal/internal/domain"
	"github.com/vbonduro/plantpal/internal/service"
)

// Inbox is the subset of notify.Inbox the reminders page needs.
type Inbox interface {
	List(ctx context.Context) ([]*domain.Notification, error)
	Dismiss(ctx context.Context, id int64) error
}

type Server struct {
	service   *service.PlantService
	inbox     Inbox
	templates fs.FS
	metrics   http.Handler
	markdown  goldmark.Markdown
	mux       *http.ServeMux
	tmplFuncs template.FuncMap
	logger    *slog.Logger
	// visionEnabled shows the identify button on the plant form.
	visionEnabled bool
}

type Options struct {
	Inbox          Inbox
	MetricsHandler http.Handler
	VisionEnabled  bool
}

func NewServer(svc *service.PlantService, tmpl fs.FS, opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		service:       svc,
		inbox:         opts.Inbox,
		templates:     tmpl,
		metrics:       opts.MetricsHandler,
		markdown:      goldmark.New(),
		mux:           http.NewServeMux(),
		logger:        logger,
		visionEnabled: opts.VisionEnabled,
		tmplFuncs: template.FuncMap{
			"date": func(ms int64) string { return time.UnixMilli(ms).Format(domain.DateLayout) },
		},
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/plants", http.StatusSeeOther)
	})
	s.mux.HandleFunc("GET /plants", s.handleListPlants)
	s.mux.HandleFunc("GET /plants/new", s.handleNewPlant)
	s.mux.HandleFunc("POST /plants", s.handleCreatePlant)
	s.mux.HandleFunc("GET /plants/{id}", s.handlePlantDetail)
	s.mux.HandleFunc("GET /plants/{id}/edit", s.handleEditPlant)
	s.mux.HandleFunc("POST /plants/{id}", s.handleUpdatePlant)
	s.mux.HandleFunc("DELETE /plants/{id}", s.handleDeletePlant)
	s.mux.HandleFunc("POST /plants/{id}/delete", s.handleDeletePlant)
	s.mux.HandleFunc("POST /plants/{id}/water", s.handleWaterPlant)
	s.mux.HandleFunc("POST /plants/{id}/move", s.handleMovePlant)
	s.mux.HandleFunc("GET /plants/{id}/photo", s.handleGetPhoto)
	s.mux.HandleFunc("POST /identify", s.handleIdentify)
	s.mux.HandleFunc("GET /events", s.handleEvents)
	s.mux.HandleFunc("GET /notifications", s.handleListNotifications)
	s.mux.HandleFunc("POST /notifications/{id}/dismiss", s.handleDismissNotification)
	if s.metrics != nil {
		s.mux.Handle("GET /metrics", s.metrics)
	}
}

// securityHeaders adds HTTP response headers to every response.
func securityHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Content-Security-Policy",
			"default-src 'self'; "+
				"script-src 'self' 'unsafe-inline' https://unpkg.com; "+
				"style-src 'self' 'unsafe-inline'; "+
				"img-src 'self' data:; "+
				"connect-src 'self'")
		next.ServeHTTP(w, r)
	})
}

// statusRecorder wraps http.ResponseWriter to capture the written status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers flush through the recorder.
func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func requestLogger(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds(),
		)
	})
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	requestLogger(s.logger, securityHeaders(s.mux)).ServeHTTP(w, r)
}

// NewHTTPServer returns an http.Server for s. The write timeout is left at
// zero because /events holds its response open.
func (s *Server) NewHTTPServer(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}

// renderPage parses and executes a full-page template set.
func (s *Server) renderPage(w http.ResponseWriter, status int, data any, files ...string) error {
	tmpl, err := template.New("").Funcs(s.tmplFuncs).ParseFS(s.templates, files...)
	if err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		http.Error(w, "template error", http.StatusInternalServerError)
		return err
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, err = buf.WriteTo(w)
	return err
}

// renderMarkdown converts care notes to HTML. goldmark drops raw HTML unless
// configured otherwise, so the result is safe to embed.
func (s *Server) renderMarkdown(src string) template.HTML {
	var buf bytes.Buffer
	if err := s.markdown.Convert([]byte(src), &buf); err != nil {
		s.logger.Warn("failed to render instructions", "error", err)
		return template.HTML(template.HTMLEscapeString(src))
	}
	return template.HTML(buf.String())
}

// safeNext returns next when it is a local path, else fallback.
func safeNext(next, fallback string) string {
	if strings.HasPrefix(next, "/") && !strings.HasPrefix(next, "//") && !strings.Contains(next, "\\") {
		return next
	}
	return fallback
}
