package sensordata

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const maxBodyBytes = 1 << 20

// ReadinessCheck is one dependency probed by /readyz besides the store.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type RouterConfig struct {
	Metrics   http.Handler // esposto su /metrics se presente
	Readiness []ReadinessCheck
	AccessLog bool
}

type errorBody struct {
	Error string `json:"error"`
}

// NewRouter mounts the sensor-data API plus health, readiness and metrics endpoints.
func NewRouter(svc *Service, cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	if cfg.AccessLog {
		r.Use(middleware.Logger)
	}
	r.Use(middleware.Recoverer)

	h := &handlers{svc: svc, checks: cfg.Readiness}
	r.Post("/sensor-data", h.ingest)
	r.Get("/sensor-data/latest", h.latest)
	r.Get("/sensor-data/history", h.history)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", h.ready)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}
	return r
}

type handlers struct {
	svc    *Service
	checks []ReadinessCheck
}

func (h *handlers) ingest(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, r, ErrInvalidInput)
		return
	}
	if _, err := h.svc.Ingest(r.Context(), TransportHTTP, body); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func (h *handlers) latest(w http.ResponseWriter, r *http.Request) {
	l, err := h.svc.Latest(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *handlers) history(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.History(r.Context(), r.URL.Query().Get("range"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// ready answers 200 only if the store and every extra check respond.
func (h *handlers) ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	type resp struct {
		Ready  bool              `json:"ready"`
		Checks map[string]string `json:"checks"`
	}
	out := resp{Ready: true, Checks: map[string]string{}}
	record := func(name string, err error) {
		if err != nil {
			out.Ready = false
			out.Checks[name] = err.Error()
			return
		}
		out.Checks[name] = "ok"
	}

	record("store", h.svc.Ready(ctx))
	for _, c := range h.checks {
		record(c.Name, c.Check(ctx))
	}

	status := http.StatusOK
	if !out.Ready {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, out)
}

// writeError maps the error taxonomy to status codes. Store faults are logged and
// never leaked to the client.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "Invalid input"})
	case errors.Is(err, ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorBody{Error: "No data available"})
	default:
		log.Printf("sensordata: %s %s: %v", r.Method, r.URL.Path, err)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: "Internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("sensordata: write response: %v", err)
	}
}
