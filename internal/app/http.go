package app

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"codexmonitor/pkg/logger"
	"codexmonitor/pkg/store"
)

const httpShutdownTimeout = 5 * time.Second

// setupRoutes registers the local diagnostics surface. It is loopback
// tooling, not a product API: liveness, readiness, metrics, the telemetry
// ring and a small state summary.
func (a *App) setupRoutes(r *mux.Router) {
	r.HandleFunc("/healthz", healthzHandler).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.readyzHandler).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	r.HandleFunc("/telemetry", a.telemetryHandler).Methods(http.MethodGet, http.MethodDelete)
	r.HandleFunc("/state", a.stateHandler).Methods(http.MethodGet)
}

func healthzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

// readyzHandler reports whether the local store is open and the runner has
// been seen within the liveness window.
func (a *App) readyzHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if !store.Ready() {
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"status":"store not ready"}`))
		return
	}
	ver := a.version
	if ver == "" {
		ver = "dev"
	}
	resp := map[string]any{
		"status":       "ok",
		"version":      ver,
		"runnerOnline": a.engine.RunnerOnline(),
	}
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func (a *App) telemetryHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	if r.Method == http.MethodDelete {
		a.tel.Clear()
		w.WriteHeader(http.StatusNoContent)
		return
	}
	events := a.tel.ReadAll()
	if events == nil {
		_, _ = w.Write([]byte("[]"))
		return
	}
	_ = json.NewEncoder(w).Encode(events)
}

// stateHandler summarizes the engine's current view for quick inspection.
func (a *App) stateHandler(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	resp := map[string]any{
		"runner":       a.engine.Runner(),
		"runnerOnline": a.engine.RunnerOnline(),
		"workspaces":   a.engine.Workspaces(),
	}
	_ = json.NewEncoder(w).Encode(resp)
}

// startHTTP starts the debug listener when configured and returns a channel
// carrying any fatal server error. No listener configured means the channel
// never fires.
func (a *App) startHTTP(_ context.Context) <-chan error {
	errCh := make(chan error, 1)
	addr := a.eff.Config.Debug.Addr
	if addr == "" {
		return errCh
	}

	r := mux.NewRouter()
	a.setupRoutes(r)
	a.srv = &http.Server{Addr: addr, Handler: r}

	go func() {
		logger.Info("debug_http_listening", "addr", addr)
		if err := a.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	return errCh
}
