package activator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/registry"
)

// Resolver maps a location to the applications that should be mounted.
type Resolver interface {
	Resolve(location string) []*registry.Descriptor
}

// Notifier delivers location changes. The returned function cancels the
// subscription.
type Notifier interface {
	Subscribe(fn func(location string)) (func(), error)
}

// Options tunes an Activator. Zero values disable timeouts and concurrency
// limits.
type Options struct {
	MountTimeout   time.Duration
	UnmountTimeout time.Duration
	// MaxConcurrency bounds the in-flight loads/mounts/unmounts of a batch.
	MaxConcurrency int
	// QueueSize is the number of pending location changes buffered while a
	// batch runs.
	QueueSize int
	Observers []Observer
}

// Activator owns every application instance and performs the transitions
// between them.
type Activator struct {
	resolver Resolver
	loader   loader.Loader
	opts     Options

	instances map[string]*Instance
	order     []*Instance

	// batchMu serializes batches and operator actions.
	batchMu  sync.Mutex
	locMu    sync.RWMutex
	location string

	obsMu     sync.RWMutex
	observers []Observer

	activeMu    sync.Mutex
	stop        chan struct{}
	done        chan struct{}
	unsubscribe func()
}

// New creates an Activator with one NOT_MOUNTED instance per registered
// application.
func New(reg *registry.Registry, resolver Resolver, l loader.Loader, opts Options) *Activator {
	if opts.QueueSize < 0 {
		opts.QueueSize = 0
	}
	a := &Activator{
		resolver:  resolver,
		loader:    l,
		opts:      opts,
		instances: make(map[string]*Instance),
		observers: append([]Observer(nil), opts.Observers...),
	}
	for _, d := range reg.All() {
		inst := newInstance(d)
		a.instances[d.Name] = inst
		a.order = append(a.order, inst)
	}
	return a
}

// AddObserver registers an observer for subsequent events.
func (a *Activator) AddObserver(o Observer) {
	a.obsMu.Lock()
	defer a.obsMu.Unlock()
	a.observers = append(a.observers, o)
}

// Activate subscribes to n and processes every notification on a single
// worker goroutine, in arrival order. If n also reports its current
// location, that location is processed first.
func (a *Activator) Activate(ctx context.Context, n Notifier) error {
	a.activeMu.Lock()
	defer a.activeMu.Unlock()

	if a.stop != nil {
		return ErrAlreadyActive
	}
	logger := ctxlog.FromContext(ctx)

	queue := make(chan string, a.opts.QueueSize)
	stop := make(chan struct{})
	done := make(chan struct{})

	enqueue := func(location string) {
		select {
		case queue <- location:
		case <-stop:
		case <-done:
		}
	}

	unsubscribe, err := n.Subscribe(enqueue)
	if err != nil {
		return fmt.Errorf("failed to subscribe to location changes: %w", err)
	}

	a.stop, a.done, a.unsubscribe = stop, done, unsubscribe
	go a.worker(ctx, queue, stop, done)

	if cur, ok := n.(interface{ Location() string }); ok {
		enqueue(cur.Location())
	}

	logger.Info("🚦 Layout engine activated.", "applications", len(a.order))
	return nil
}

func (a *Activator) worker(ctx context.Context, queue <-chan string, stop, done chan struct{}) {
	defer close(done)
	logger := ctxlog.FromContext(ctx)
	logger.Debug("Activator worker started.")

	for {
		select {
		case <-stop:
			logger.Debug("Activator worker stopped.")
			return
		case <-ctx.Done():
			logger.Debug("Activator worker context done.", "error", ctx.Err())
			return
		case location := <-queue:
			if _, err := a.Transition(ctx, location); err != nil {
				logger.Warn("Transition aborted.", "location", location, "error", err)
			}
		}
	}
}

// Deactivate cancels the subscription, waits for the in-flight batch and
// unmounts every mounted application. Pending notifications are dropped.
func (a *Activator) Deactivate(ctx context.Context) error {
	a.activeMu.Lock()
	if a.stop == nil {
		a.activeMu.Unlock()
		return ErrNotActive
	}
	a.unsubscribe()
	close(a.stop)
	done := a.done
	a.stop, a.done, a.unsubscribe = nil, nil, nil
	a.activeMu.Unlock()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("waiting for in-flight batch: %w", ctx.Err())
	}

	res, err := a.run(ctx, "", nil)
	if err != nil {
		return err
	}
	ctxlog.FromContext(ctx).Info("🛑 Layout engine deactivated.", "unmounted", len(res.Unmounted), "broken", len(res.Broken))
	return nil
}

// Transition runs one batch for location and returns once every affected
// application has settled. Application failures are reported through the
// result and observers; the error is non-nil only when ctx is done.
func (a *Activator) Transition(ctx context.Context, location string) (*BatchResult, error) {
	return a.run(ctx, location, a.resolver.Resolve(location))
}

// Reset moves a BROKEN application back to NOT_MOUNTED, drops its loaded
// code and re-runs the settled location so it is mounted again if desired.
// The location is read and the batch run under the same lock, so a queued
// notification is always applied after the reset. The batch is detached
// from ctx cancellation.
func (a *Activator) Reset(ctx context.Context, name string) (*BatchResult, error) {
	inst, ok := a.instances[name]
	if !ok {
		return nil, &registry.NotFoundError{Name: name}
	}

	a.batchMu.Lock()
	defer a.batchMu.Unlock()

	if s := inst.Status(); s != Broken {
		return nil, &InvalidStateError{Name: name, Status: s, Want: Broken}
	}
	ctx = context.WithoutCancel(ctx)
	inst.setApplication(nil)
	a.setStatus(ctx, "", inst, NotMounted, nil)
	ctxlog.FromContext(ctx).Info("Application reset by operator.", "application", name)

	location := a.Location()
	return a.runLocked(ctx, location, a.resolver.Resolve(location))
}

// Location returns the location of the last completed batch.
func (a *Activator) Location() string {
	a.locMu.RLock()
	defer a.locMu.RUnlock()
	return a.location
}

// Instances returns snapshots of every instance in registration order.
func (a *Activator) Instances() []Snapshot {
	out := make([]Snapshot, 0, len(a.order))
	for _, inst := range a.order {
		out = append(out, inst.snapshot())
	}
	return out
}

// Instance returns the snapshot of one instance.
func (a *Activator) Instance(name string) (Snapshot, error) {
	inst, ok := a.instances[name]
	if !ok {
		return Snapshot{}, &registry.NotFoundError{Name: name}
	}
	return inst.snapshot(), nil
}

// MountedApplication returns the loaded code of a MOUNTED instance.
func (a *Activator) MountedApplication(name string) (loader.Application, bool) {
	inst, ok := a.instances[name]
	if !ok || inst.Status() != Mounted {
		return nil, false
	}
	app := inst.application()
	return app, app != nil
}

func (a *Activator) notifyStatus(ev StatusChange) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.observers {
		o.StatusChanged(ev)
	}
}

func (a *Activator) notifyBatch(res BatchResult) {
	a.obsMu.RLock()
	defer a.obsMu.RUnlock()
	for _, o := range a.observers {
		o.BatchCompleted(res)
	}
}
