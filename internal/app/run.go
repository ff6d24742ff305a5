package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/navigation"
)

// Run activates the layout engine and serves until ctx is done, then shuts
// everything down and unmounts every application.
func (a *App) Run(ctx context.Context) (err error) {
	ctx = ctxlog.WithLogger(ctx, a.logger)
	a.logger.Debug("App.Run method started.")

	if a.config.RelayURL != "" {
		relay, err := navigation.DialRelay(ctx, navigation.RelayConfig{
			URL:       a.config.RelayURL,
			Namespace: a.config.RelayNamespace,
		}, a.history)
		if err != nil {
			return fmt.Errorf("failed to connect navigation relay: %w", err)
		}
		defer relay.Close()
		a.activator.AddObserver(relay)
	}

	if err := a.Activate(ctx); err != nil {
		return err
	}

	srv, serveErr, err := a.startServer(ctx)
	if err != nil {
		return errors.Join(err, a.shutdown(ctx, nil))
	}

	a.logger.Info("🚀 mountgrid running.", "applications", a.registry.Len(), "location", a.history.Location())
	select {
	case <-ctx.Done():
		a.logger.Info("🏁 Shutdown requested.", "reason", context.Cause(ctx))
	case err = <-serveErr:
		a.logger.Error("HTTP server failed unexpectedly", "error", err)
	}

	return errors.Join(err, a.shutdown(ctx, srv))
}

func (a *App) shutdown(ctx context.Context, srv *http.Server) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := a.closeServer(ctx, srv); err != nil {
		errs = append(errs, err)
	}
	if err := a.Deactivate(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := a.http.Close(); err != nil {
		errs = append(errs, err)
	}
	if err := a.history.Close(); err != nil {
		errs = append(errs, err)
	}
	a.logger.Debug("App.Run method finished.")
	return errors.Join(errs...)
}
