// Package router assembles the HTTP handler: resource routes, health and
// metrics endpoints, and the logging, request-id, CORS and auth middleware.
package router

import (
	"context"
	"net/http"
	"time"

	"ResteasyAPI/internal/config"
	"ResteasyAPI/internal/handler"
	"ResteasyAPI/internal/logger"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
)

// RequestIDHeader carries the request id in and out.
const RequestIDHeader = "X-Request-ID"

type ctxKey struct{}

// Options select the optional parts of the handler.
type Options struct {
	CORS    config.CORSConfig
	Metrics config.MetricsConfig
	// Auth guards the resource routes when set.
	Auth func(http.Handler) http.Handler
	// Health is called by /healthz.
	Health func(ctx context.Context) error
}

// New builds the root handler for mgr.
func New(mgr *handler.Manager, opts Options) http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/healthz", healthz(opts.Health)).Methods(http.MethodGet)
	if opts.Metrics.Enabled {
		m := newMetrics()
		r.Handle(metricsPath(opts.Metrics), m.handler()).Methods(http.MethodGet)
		r.Use(m.middleware)
	}

	api := r.NewRoute().Subrouter()
	if opts.Auth != nil {
		api.Use(opts.Auth)
	}
	mgr.Mount(api)

	return withRequestID(withLogging(withCORS(opts.CORS.AllowOrigin, opts.CORS.AllowCredentials, r.ServeHTTP)))
}

func metricsPath(cfg config.MetricsConfig) string {
	if cfg.Path == "" {
		return "/metrics"
	}
	return cfg.Path
}

func healthz(ping func(ctx context.Context) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if ping != nil {
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			if err := ping(ctx); err != nil {
				logger.Error("healthz_failed", map[string]any{"error": err.Error()})
				w.WriteHeader(http.StatusServiceUnavailable)
				_, _ = w.Write([]byte(`{"status":"unavailable"}`))
				return
			}
		}
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	}
}

// RequestID returns the id assigned to the request carried by ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

func withRequestID(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		w.Header().Set(RequestIDHeader, id)
		next(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, id)))
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

func withLogging(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next(sw, r)
		fields := map[string]any{
			"method":      r.Method,
			"path":        r.URL.Path,
			"status":      sw.status,
			"duration_ms": time.Since(start).Milliseconds(),
			"request_id":  RequestID(r.Context()),
		}
		switch {
		case sw.status >= 500:
			logger.Error("response", fields)
		case sw.status >= 400:
			logger.Warn("response", fields)
		default:
			logger.Info("response", fields)
		}
	}
}
