package activator

import (
	"sync"
	"time"

	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/registry"
)

// Instance is the runtime record of one registered application. Only the
// activator writes to it.
type Instance struct {
	descriptor *registry.Descriptor

	mu        sync.RWMutex
	status    Status
	app       loader.Application
	err       error
	changedAt time.Time
}

func newInstance(d *registry.Descriptor) *Instance {
	return &Instance{descriptor: d, status: NotMounted, changedAt: time.Now()}
}

// Status returns the current status.
func (i *Instance) Status() Status {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.status
}

func (i *Instance) snapshot() Snapshot {
	i.mu.RLock()
	defer i.mu.RUnlock()

	s := Snapshot{
		Name:      i.descriptor.Name,
		Locator:   i.descriptor.Locator,
		Status:    i.status,
		ChangedAt: i.changedAt,
	}
	if i.err != nil {
		s.Error = i.err.Error()
	}
	return s
}

// set writes the status and returns the previous one.
func (i *Instance) set(to Status, err error) Status {
	i.mu.Lock()
	defer i.mu.Unlock()

	from := i.status
	i.status = to
	i.err = err
	i.changedAt = time.Now()
	return from
}

func (i *Instance) application() loader.Application {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return i.app
}

func (i *Instance) setApplication(app loader.Application) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.app = app
}
