package activator

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/registry"
	"golang.org/x/sync/errgroup"
)

// run performs one batch for location while holding batchMu.
func (a *Activator) run(ctx context.Context, location string, desired []*registry.Descriptor) (*BatchResult, error) {
	a.batchMu.Lock()
	defer a.batchMu.Unlock()
	return a.runLocked(ctx, location, desired)
}

// runLocked diffs desired against the mounted set and performs the batch:
// unmounts first, joined, then mounts, joined. batchMu must be held.
func (a *Activator) runLocked(ctx context.Context, location string, desired []*registry.Descriptor) (*BatchResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res := &BatchResult{ID: uuid.NewString(), Location: location}
	ctx = ctxlog.With(ctx, "batch", res.ID, "location", location)
	logger := ctxlog.FromContext(ctx)
	start := time.Now()

	want := make(map[string]struct{}, len(desired))
	var toMount []*Instance
	for _, d := range desired {
		want[d.Name] = struct{}{}
		inst, ok := a.instances[d.Name]
		if !ok {
			logger.Warn("Desired application has no instance, skipping.", "application", d.Name)
			continue
		}
		if inst.Status() == NotMounted {
			toMount = append(toMount, inst)
		}
	}

	var toUnmount []*Instance
	for _, inst := range a.order {
		if _, keep := want[inst.descriptor.Name]; !keep && inst.Status() == Mounted {
			toUnmount = append(toUnmount, inst)
		}
	}

	logger.Debug("Transition batch computed.", "desired", len(desired), "to_unmount", len(toUnmount), "to_mount", len(toMount))

	a.each(toUnmount, func(inst *Instance) { a.unmount(ctx, res.ID, inst) })
	for _, inst := range toUnmount {
		if inst.Status() == NotMounted {
			res.Unmounted = append(res.Unmounted, inst.descriptor.Name)
		} else {
			res.Broken = append(res.Broken, inst.descriptor.Name)
		}
	}

	a.each(toMount, func(inst *Instance) { a.mount(ctx, res.ID, inst) })
	for _, inst := range toMount {
		if inst.Status() == Mounted {
			res.Mounted = append(res.Mounted, inst.descriptor.Name)
		} else {
			res.Broken = append(res.Broken, inst.descriptor.Name)
		}
	}

	res.Duration = time.Since(start)
	a.locMu.Lock()
	a.location = location
	a.locMu.Unlock()

	if len(toMount)+len(toUnmount) > 0 {
		logger.Info("🔀 Transition finished.", "mounted", res.Mounted, "unmounted", res.Unmounted, "broken", res.Broken, "duration", res.Duration)
	} else {
		logger.Debug("Transition was a no-op.")
	}
	a.notifyBatch(*res)
	return res, nil
}

// each runs fn for every instance concurrently and waits for all of them.
func (a *Activator) each(insts []*Instance, fn func(inst *Instance)) {
	if len(insts) == 0 {
		return
	}
	var g errgroup.Group
	if a.opts.MaxConcurrency > 0 {
		g.SetLimit(a.opts.MaxConcurrency)
	}
	for _, inst := range insts {
		g.Go(func() error {
			fn(inst)
			return nil
		})
	}
	_ = g.Wait()
}

func (a *Activator) mount(ctx context.Context, batchID string, inst *Instance) {
	name := inst.descriptor.Name
	a.setStatus(ctx, batchID, inst, Mounting, nil)

	app := inst.application()
	if app == nil {
		loadCtx, cancel := withTimeout(ctx, a.opts.MountTimeout)
		loaded, err := invoke(loadCtx, func(ctx context.Context) (loader.Application, error) {
			return a.loader.Load(ctx, inst.descriptor)
		})
		cancel()
		if err == nil && loaded == nil {
			err = fmt.Errorf("loader returned no application")
		}
		if err != nil {
			a.setStatus(ctx, batchID, inst, Broken, &LoadError{Name: name, Err: err})
			return
		}
		inst.setApplication(loaded)
		app = loaded
	}

	mountCtx, cancel := withTimeout(ctx, a.opts.MountTimeout)
	defer cancel()
	if _, err := invoke(mountCtx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, app.Mount(ctx)
	}); err != nil {
		a.setStatus(ctx, batchID, inst, Broken, &LifecycleError{Name: name, Op: "mount", Err: err})
		return
	}
	a.setStatus(ctx, batchID, inst, Mounted, nil)
}

func (a *Activator) unmount(ctx context.Context, batchID string, inst *Instance) {
	name := inst.descriptor.Name
	a.setStatus(ctx, batchID, inst, Unmounting, nil)

	app := inst.application()
	unmountCtx, cancel := withTimeout(ctx, a.opts.UnmountTimeout)
	defer cancel()
	if _, err := invoke(unmountCtx, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, app.Unmount(ctx)
	}); err != nil {
		a.setStatus(ctx, batchID, inst, Broken, &LifecycleError{Name: name, Op: "unmount", Err: err})
		return
	}
	a.setStatus(ctx, batchID, inst, NotMounted, nil)
}

func (a *Activator) setStatus(ctx context.Context, batchID string, inst *Instance, to Status, err error) {
	from := inst.set(to, err)
	logger := ctxlog.FromContext(ctx).With("application", inst.descriptor.Name, "from", from.String(), "to", to.String())

	switch to {
	case Broken:
		logger.Error("❌ Application broken.", "error", err)
	case Mounted:
		logger.Info("✅ Application mounted.")
	case NotMounted:
		if from == Unmounting {
			logger.Info("⏏️ Application unmounted.")
		} else {
			logger.Debug("Application status changed.")
		}
	default:
		logger.Debug("Application status changed.")
	}

	a.notifyStatus(StatusChange{BatchID: batchID, Name: inst.descriptor.Name, From: from, To: to, Err: err})
}

// invoke runs fn on its own goroutine, converting panics into errors and
// returning early when ctx is done. A call abandoned on timeout keeps
// running; its instance is BROKEN and ignored until reset.
func invoke[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	type result struct {
		val T
		err error
	}
	ch := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				var zero T
				ch <- result{val: zero, err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := fn(ctx)
		ch <- result{val: v, err: err}
	}()

	select {
	case r := <-ch:
		return r.val, r.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
