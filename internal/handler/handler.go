package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pai/internal/domain"
	"pai/internal/service"
)

// Handler serves the status API
type Handler struct {
	svc     *service.Service
	events  http.Handler
	metrics http.Handler
	logger  *slog.Logger
}

// Option configures a Handler
type Option func(*Handler)

// WithEvents mounts an SSE handler at /api/events
func WithEvents(h http.Handler) Option {
	return func(x *Handler) { x.events = h }
}

// WithMetrics mounts a Prometheus handler at /metrics
func WithMetrics(h http.Handler) Option {
	return func(x *Handler) { x.metrics = h }
}

// WithLogger sets the request logger
func WithLogger(l *slog.Logger) Option {
	return func(x *Handler) { x.logger = l }
}

// New creates a Handler
func New(svc *service.Service, opts ...Option) *Handler {
	h := &Handler{svc: svc, logger: slog.Default()}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = slog.Default()
	}
	return h
}

// Routes builds the router
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", h.Healthz)

	r.Route("/api", func(r chi.Router) {
		r.Get("/domains", h.ListDomains)
		r.Route("/domains/{domain}", func(r chi.Router) {
			r.Use(domainCtx)
			r.Get("/health", h.DomainHealth)
			r.Get("/adapters", h.DomainAdapters)
		})
		r.Get("/secrets", h.ListSecrets)
		r.Get("/audit", h.ListAudit)
		r.Post("/reload", h.Reload)
		if h.events != nil {
			r.Handle("/events", h.events)
		}
	})

	if h.metrics != nil {
		r.Handle("/metrics", h.metrics)
	}
	return r
}

// ErrorResponse is the body of every error reply
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Healthz reports liveness
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// Reload drops cached configuration and discovery results
func (h *Handler) Reload(w http.ResponseWriter, r *http.Request) {
	h.svc.Reload()
	writeJSON(w, map[string]string{"status": "reloaded"}, http.StatusOK)
}

func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.logger.Debug("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.Status(),
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

func writeJSON(w http.ResponseWriter, data any, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON", "error", err)
	}
}

func writeError(w http.ResponseWriter, message, details string, statusCode int) {
	writeJSON(w, ErrorResponse{Error: message, Details: details}, statusCode)
}

// writeDomainError maps err to a status code by kind
func writeDomainError(w http.ResponseWriter, message string, err error) {
	status := statusFor(err)
	var derr *domain.Error
	if errors.As(err, &derr) && derr.Kind == domain.KindRateLimited && derr.RetryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(int(derr.RetryAfter.Seconds())))
	}
	writeError(w, message, err.Error(), status)
}

func statusFor(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound, domain.KindAdapterNotFound:
		return http.StatusNotFound
	case domain.KindRateLimited:
		return http.StatusTooManyRequests
	case domain.KindAuthentication, domain.KindProvider:
		return http.StatusBadGateway
	case domain.KindConfiguration, domain.KindAdapterLoad:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func queryInt(r *http.Request, key string, def int) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, errors.New(key + " must be a non-negative integer")
	}
	return n, nil
}
