package activator

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mountgrid/internal/config"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/registry"
	"github.com/vk/mountgrid/internal/router"
)

// callLog records lifecycle calls across applications in invocation order.
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls = append(l.calls, fmt.Sprintf(format, args...))
}

func (l *callLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeApp struct {
	name       string
	log        *callLog
	mountErr   error
	unmountErr error
	panicOn    string
	// block, when set, is waited on before Mount returns.
	block chan struct{}

	mounts   atomic.Int32
	unmounts atomic.Int32
}

func (f *fakeApp) Mount(ctx context.Context) error {
	f.mounts.Add(1)
	if f.log != nil {
		f.log.add("mount %s", f.name)
	}
	if f.panicOn == "mount" {
		panic("boom")
	}
	if f.block != nil {
		<-f.block
	}
	return f.mountErr
}

func (f *fakeApp) Unmount(ctx context.Context) error {
	f.unmounts.Add(1)
	if f.log != nil {
		f.log.add("unmount %s", f.name)
	}
	if f.panicOn == "unmount" {
		panic("boom")
	}
	return f.unmountErr
}

// fakeLoader serves fakeApps by descriptor name.
type fakeLoader struct {
	mu    sync.Mutex
	apps  map[string]*fakeApp
	errs  map[string]error
	loads map[string]int
}

func newFakeLoader(apps ...*fakeApp) *fakeLoader {
	l := &fakeLoader{
		apps:  make(map[string]*fakeApp),
		errs:  make(map[string]error),
		loads: make(map[string]int),
	}
	for _, a := range apps {
		l.apps[a.name] = a
	}
	return l
}

func (l *fakeLoader) fail(name string, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errs[name] = err
}

func (l *fakeLoader) heal(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.errs, name)
}

func (l *fakeLoader) count(name string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loads[name]
}

func (l *fakeLoader) Load(ctx context.Context, d *registry.Descriptor) (loader.Application, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.loads[d.Name]++
	if err := l.errs[d.Name]; err != nil {
		return nil, err
	}
	app, ok := l.apps[d.Name]
	if !ok {
		return nil, errors.New("unknown application")
	}
	return app, nil
}

// recorder is an Observer keeping every event.
type recorder struct {
	mu      sync.Mutex
	changes []StatusChange
	batches []BatchResult
}

func (r *recorder) StatusChanged(ev StatusChange) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.changes = append(r.changes, ev)
}

func (r *recorder) BatchCompleted(res BatchResult) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, res)
}

func (r *recorder) transitionsOf(name string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, c := range r.changes {
		if c.Name == name {
			out = append(out, c.From.String()+"->"+c.To.String())
		}
	}
	return out
}

func (r *recorder) batchCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.batches)
}

// fakeNotifier hands out a single subscription.
type fakeNotifier struct {
	mu sync.Mutex
	fn func(string)
}

func (n *fakeNotifier) Subscribe(fn func(string)) (func(), error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.fn = fn
	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		n.fn = nil
	}, nil
}

func (n *fakeNotifier) push(location string) {
	n.mu.Lock()
	fn := n.fn
	n.mu.Unlock()
	if fn != nil {
		fn(location)
	}
}

// fixture builds a registry {A, B} with routes "/a" -> [A], "/b" -> [B] and
// a default route [A, B].
type fixture struct {
	apps     map[string]*fakeApp
	loader   *fakeLoader
	recorder *recorder
	log      *callLog
	act      *Activator
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()
	log := &callLog{}
	a := &fakeApp{name: "A", log: log}
	b := &fakeApp{name: "B", log: log}

	reg := registry.New()
	require.NoError(t, reg.Register(&registry.Descriptor{Name: "A", Locator: "//localhost:8080/a.js"}))
	require.NoError(t, reg.Register(&registry.Descriptor{Name: "B", Locator: "//localhost:8081/b.js"}))

	layout := &config.Layout{Children: []config.Node{
		&config.RouteNode{Path: "/a", Children: []config.Node{&config.ApplicationNode{Name: "A"}}},
		&config.RouteNode{Path: "/b", Children: []config.Node{&config.ApplicationNode{Name: "B"}}},
		&config.RouteNode{Default: true, Children: []config.Node{
			&config.ApplicationNode{Name: "A"},
			&config.ApplicationNode{Name: "B"},
		}},
	}}
	rt, err := router.New(context.Background(), layout, reg)
	require.NoError(t, err)

	rec := &recorder{}
	opts.Observers = append(opts.Observers, rec)
	ld := newFakeLoader(a, b)

	return &fixture{
		apps:     map[string]*fakeApp{"A": a, "B": b},
		loader:   ld,
		recorder: rec,
		log:      log,
		act:      New(reg, rt, ld, opts),
	}
}

func (f *fixture) status(t *testing.T, name string) Status {
	t.Helper()
	s, err := f.act.Instance(name)
	require.NoError(t, err)
	return s.Status
}
