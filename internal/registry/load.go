package registry

import (
	"context"
	"errors"

	"github.com/vk/mountgrid/internal/config"
	"github.com/vk/mountgrid/internal/ctxlog"
)

// PopulateFromModel registers every application declared in the model, in
// declaration order. All failures are reported together.
func (r *Registry) PopulateFromModel(ctx context.Context, model *config.Model) error {
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Registry loading applications from model...", "count", len(model.Applications))

	var errs []error
	for _, app := range model.Applications {
		err := r.Register(&Descriptor{
			Name:    app.Name,
			Locator: app.Locator,
			Props:   app.Props,
		})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		logger.Debug("Registered application.", "name", app.Name, "locator", app.Locator)
	}
	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	logger.Info("Registry loaded successfully.", "applications_registered", r.Len())
	return nil
}
