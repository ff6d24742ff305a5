package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/vk/mountgrid/internal/activator"
	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/registry"
	"github.com/vk/mountgrid/internal/render"
)

const shutdownTimeout = 5 * time.Second

type navigateRequest struct {
	Location string `json:"location"`
}

type locationResponse struct {
	// Requested is the last pushed location; Settled the last one fully processed.
	Requested string `json:"requested"`
	Settled   string `json:"settled"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (a *App) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", a.healthHandler)
	mux.Handle("GET /metrics", a.metrics.Handler())
	mux.HandleFunc("GET /api/applications", a.listApplications)
	mux.HandleFunc("GET /api/applications/{name}", a.getApplication)
	mux.HandleFunc("POST /api/applications/{name}/reset", a.resetApplication)
	mux.HandleFunc("GET /api/location", a.getLocation)
	mux.HandleFunc("POST /api/navigate", a.navigate)
	mux.HandleFunc("GET /{$}", a.page)
	return mux
}

// healthHandler reports liveness.
func (a *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	a.logger.Debug("Health check endpoint hit.", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "OK")
}

func (a *App) listApplications(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, a.activator.Instances())
}

func (a *App) getApplication(w http.ResponseWriter, r *http.Request) {
	snap, err := a.activator.Instance(r.PathValue("name"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, snap)
}

func (a *App) resetApplication(w http.ResponseWriter, r *http.Request) {
	ctx := ctxlog.WithLogger(r.Context(), a.logger)
	res, err := a.activator.Reset(ctx, r.PathValue("name"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, res)
}

func (a *App) getLocation(w http.ResponseWriter, r *http.Request) {
	a.writeJSON(w, http.StatusOK, locationResponse{
		Requested: a.history.Location(),
		Settled:   a.activator.Location(),
	})
}

func (a *App) navigate(w http.ResponseWriter, r *http.Request) {
	var req navigateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16)).Decode(&req); err != nil {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return
	}
	if req.Location == "" {
		a.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "location is required"})
		return
	}

	a.history.Push(req.Location)
	a.logger.Info("Navigation requested.", "location", a.history.Location(), "remote_addr", r.RemoteAddr)
	a.writeJSON(w, http.StatusAccepted, locationResponse{
		Requested: a.history.Location(),
		Settled:   a.activator.Location(),
	})
}

// page composes the layout for the last settled location.
func (a *App) page(w http.ResponseWriter, r *http.Request) {
	location := a.activator.Location()
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	err := render.Page(w, a.router.Layout(), a.router.Match(location), a.activator, a.config.Title)
	if err != nil {
		a.logger.Error("Failed to render page.", "location", location, "error", err)
	}
}

func (a *App) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Warn("Failed to write response.", "error", err)
	}
}

func (a *App) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var notFound *registry.NotFoundError
	var invalid *activator.InvalidStateError
	switch {
	case errors.As(err, &notFound):
		status = http.StatusNotFound
	case errors.As(err, &invalid):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	}
	a.writeJSON(w, status, errorResponse{Error: err.Error()})
}

// startServer binds the listen address and serves in the background. Serve
// errors other than a graceful close are delivered on the returned channel.
func (a *App) startServer(ctx context.Context) (*http.Server, <-chan error, error) {
	logger := ctxlog.FromContext(ctx)
	if a.config.Listen == "" {
		logger.Warn("HTTP server not started: disabled")
		return nil, nil, nil
	}

	ln, err := net.Listen("tcp", a.config.Listen)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to listen on %s: %w", a.config.Listen, err)
	}

	srv := &http.Server{
		Handler:           a.handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("🩺 HTTP server starting", "address", ln.Addr().String())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()
	return srv, errCh, nil
}

func (a *App) closeServer(ctx context.Context, srv *http.Server) error {
	logger := ctxlog.FromContext(ctx)
	if srv == nil {
		logger.Debug("HTTP server was not running.")
		return nil
	}

	logger.Info("🩺 Shutting down HTTP server...")
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("HTTP server shutdown failed", "error", err)
		return err
	}
	logger.Debug("HTTP server shut down gracefully.")
	return nil
}
