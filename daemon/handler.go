// Package daemon exposes a RemoteStore over HTTP: a small JSON API for
// property access plus a Server-Sent Events stream for change
// notifications. It is the reference transport for confchan clients.
package daemon

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/confchan/adapters/metrics"
	"github.com/artpar/confchan/domain/property"
	"github.com/artpar/confchan/domain/value"
	"github.com/artpar/confchan/ports"
)

// Handler serves the property API over a RemoteStore.
type Handler struct {
	store   ports.RemoteStore
	logger  zerolog.Logger
	metrics *metrics.Collector
}

// NewHandler creates a property API handler.
func NewHandler(store ports.RemoteStore, logger zerolog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger.With().Str("component", "daemon").Logger(),
	}
}

// NewHandlerWithMetrics creates a handler that records store metrics.
func NewHandlerWithMetrics(store ports.RemoteStore, logger zerolog.Logger, m *metrics.Collector) *Handler {
	h := NewHandler(store, logger)
	h.metrics = m
	return h
}

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics     *metrics.Collector
	MetricsPath string // default /metrics
}

// NewRouter creates the daemon HTTP router.
func NewRouter(h *Handler, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, promhttp.Handler())
	}

	r.Get("/health", h.Health)
	r.Get("/health/live", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Get("/channels", h.ListChannels)
		r.Route("/channels/{channel}", func(r chi.Router) {
			r.Get("/properties", h.ListProperties)
			r.Get("/property", h.GetProperty)
			r.Put("/property", h.SetProperty)
			r.Delete("/property", h.ResetProperty)
			r.Get("/locked", h.IsLocked)
			r.Get("/events", h.StreamEvents)
		})
	})

	return r
}

// Health returns a simple liveness check.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ListChannels returns the names of all known channels.
func (h *Handler) ListChannels(w http.ResponseWriter, r *http.Request) {
	names, err := h.store.ListChannels(r.Context())
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if names == nil {
		names = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"channels": names})
}

// ListProperties returns all properties at or under the path query
// parameter, defaulting to the channel root.
func (h *Handler) ListProperties(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	path := r.URL.Query().Get("path")
	if path == "" {
		path = property.Root
	}
	if err := checkPath(path); err != nil {
		h.writeStoreError(w, err)
		return
	}

	props, err := h.store.ListProperties(r.Context(), channel, path)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]map[string]value.Value{"properties": props})
}

// GetProperty returns the value of one property.
func (h *Handler) GetProperty(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	path := r.URL.Query().Get("path")
	if err := checkPath(path); err != nil {
		h.writeStoreError(w, err)
		return
	}

	v, err := h.store.Get(r.Context(), channel, path)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// SetProperty stores the value carried in the request body.
func (h *Handler) SetProperty(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	path := r.URL.Query().Get("path")
	if err := checkPath(path); err != nil {
		h.writeStoreError(w, err)
		return
	}

	var v value.Value
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_argument", fmt.Sprintf("decode value: %v", err))
		return
	}
	if v.IsUnset() {
		writeError(w, http.StatusBadRequest, "invalid_argument", "cannot set an unset value")
		return
	}

	if err := h.store.Set(r.Context(), channel, path, v); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResetProperty resets a property, or a subtree when recursive=true.
func (h *Handler) ResetProperty(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	path := r.URL.Query().Get("path")
	if err := checkPath(path); err != nil {
		h.writeStoreError(w, err)
		return
	}
	recursive := r.URL.Query().Get("recursive") == "true"

	if err := h.store.Reset(r.Context(), channel, path, recursive); err != nil {
		h.writeStoreError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// IsLocked reports whether system policy forbids writing the property.
func (h *Handler) IsLocked(w http.ResponseWriter, r *http.Request) {
	channel := chi.URLParam(r, "channel")
	path := r.URL.Query().Get("path")
	if err := checkPath(path); err != nil {
		h.writeStoreError(w, err)
		return
	}

	locked, err := h.store.IsLocked(r.Context(), channel, path)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"locked": locked})
}

func checkPath(path string) error {
	if !property.ValidPath(path) {
		return fmt.Errorf("%w: invalid property path %q", property.ErrInvalidArgument, path)
	}
	return nil
}

func (h *Handler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, property.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, property.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "invalid_argument", err.Error())
	case errors.Is(err, property.ErrTypeMismatch):
		writeError(w, http.StatusBadRequest, "type_mismatch", err.Error())
	default:
		h.logger.Error().Err(err).Msg("store operation failed")
		writeError(w, http.StatusInternalServerError, "remote_failure", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]map[string]string{
		"error": {"code": code, "message": message},
	})
}

// NewLoggingMiddleware logs HTTP requests at debug level.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}

// NewMetricsMiddleware records request counts and latency.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := statusLabel(ww.Status())
			route := routeLabel(r.URL.Path)
			m.RequestsTotal.WithLabelValues(r.Method, route, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// routeLabel collapses channel names out of the path so the metric
// cardinality stays bounded.
func routeLabel(path string) string {
	parts := strings.Split(path, "/")
	if len(parts) >= 4 && parts[1] == "api" && parts[2] == "channels" {
		parts[3] = "{channel}"
		return strings.Join(parts, "/")
	}
	return path
}

func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}
