package activator

import (
	"context"
	"errors"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mountgrid/internal/registry"
)

func TestNew_AllInstancesStartNotMounted(t *testing.T) {
	f := newFixture(t, Options{})

	for _, s := range f.act.Instances() {
		assert.Equal(t, NotMounted, s.Status, s.Name)
	}
	assert.Equal(t, []string{"A", "B"}, []string{f.act.Instances()[0].Name, f.act.Instances()[1].Name})
}

func TestTransition_MountsDefaultSet(t *testing.T) {
	f := newFixture(t, Options{})

	res, err := f.act.Transition(context.Background(), "/anything")
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B"}, res.Mounted)
	assert.Empty(t, res.Unmounted)
	assert.Empty(t, res.Broken)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, Mounted, f.status(t, "A"))
	assert.Equal(t, Mounted, f.status(t, "B"))
	assert.Equal(t, []string{"NOT_MOUNTED->MOUNTING", "MOUNTING->MOUNTED"}, f.recorder.transitionsOf("A"))
	assert.Equal(t, "/anything", f.act.Location())
}

func TestTransition_IdenticalDesiredSetIsNoop(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.act.Transition(ctx, "/x")
	require.NoError(t, err)
	calls := len(f.log.all())

	res, err := f.act.Transition(ctx, "/y")
	require.NoError(t, err)

	assert.Len(t, f.log.all(), calls, "no mount or unmount calls expected")
	assert.Empty(t, res.Mounted)
	assert.Empty(t, res.Unmounted)
	assert.EqualValues(t, 1, f.apps["A"].mounts.Load())
	assert.EqualValues(t, 1, f.apps["B"].mounts.Load())
}

func TestTransition_LoadFailureIsIsolated(t *testing.T) {
	f := newFixture(t, Options{})
	f.loader.fail("B", errors.New("network unreachable"))

	res, err := f.act.Transition(context.Background(), "/")
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.Mounted)
	assert.Equal(t, []string{"B"}, res.Broken)
	assert.Equal(t, Mounted, f.status(t, "A"))
	assert.Equal(t, Broken, f.status(t, "B"))

	snap, err := f.act.Instance("B")
	require.NoError(t, err)
	assert.Contains(t, snap.Error, "network unreachable")

	f.recorder.mu.Lock()
	defer f.recorder.mu.Unlock()
	var brokenErr error
	for _, c := range f.recorder.changes {
		if c.Name == "B" && c.To == Broken {
			brokenErr = c.Err
		}
	}
	var loadErr *LoadError
	require.ErrorAs(t, brokenErr, &loadErr)
	assert.Equal(t, "B", loadErr.Name)
}

func TestTransition_BrokenInstanceIsNotRetried(t *testing.T) {
	f := newFixture(t, Options{})
	f.loader.fail("B", errors.New("boom"))
	ctx := context.Background()

	_, err := f.act.Transition(ctx, "/")
	require.NoError(t, err)
	_, err = f.act.Transition(ctx, "/b")
	require.NoError(t, err)

	assert.Equal(t, 1, f.loader.count("B"))
	assert.Equal(t, Broken, f.status(t, "B"))
}

func TestTransition_UnmountsOnlyLeavingApplications(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.act.Transition(ctx, "/")
	require.NoError(t, err)

	res, err := f.act.Transition(ctx, "/b")
	require.NoError(t, err)

	assert.Equal(t, []string{"A"}, res.Unmounted)
	assert.Empty(t, res.Mounted)
	assert.Equal(t, NotMounted, f.status(t, "A"))
	assert.Equal(t, Mounted, f.status(t, "B"))
	assert.EqualValues(t, 1, f.apps["B"].mounts.Load(), "B must not be remounted")
	assert.EqualValues(t, 0, f.apps["B"].unmounts.Load())
	assert.Equal(t, []string{
		"NOT_MOUNTED->MOUNTING", "MOUNTING->MOUNTED",
		"MOUNTED->UNMOUNTING", "UNMOUNTING->NOT_MOUNTED",
	}, f.recorder.transitionsOf("A"))
}

func TestTransition_UnmountsBeforeMounts(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	_, err := f.act.Transition(ctx, "/a")
	require.NoError(t, err)
	_, err = f.act.Transition(ctx, "/b")
	require.NoError(t, err)

	assert.Equal(t, []string{"mount A", "unmount A", "mount B"}, f.log.all())
}

func TestTransition_RemountReusesLoadedCode(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	for _, loc := range []string{"/a", "/b", "/a"} {
		_, err := f.act.Transition(ctx, loc)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, f.loader.count("A"))
	assert.EqualValues(t, 2, f.apps["A"].mounts.Load())
}

func TestTransition_LifecycleFailures(t *testing.T) {
	t.Run("mount error", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.apps["A"].mountErr = errors.New("render failed")

		res, err := f.act.Transition(context.Background(), "/")
		require.NoError(t, err)
		assert.Equal(t, []string{"A"}, res.Broken)
		assert.Equal(t, Mounted, f.status(t, "B"))
	})

	t.Run("mount panic", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.apps["B"].panicOn = "mount"

		require.NotPanics(t, func() {
			_, err := f.act.Transition(context.Background(), "/")
			require.NoError(t, err)
		})
		snap, err := f.act.Instance("B")
		require.NoError(t, err)
		assert.Equal(t, Broken, snap.Status)
		assert.Contains(t, snap.Error, "panic: boom")
	})

	t.Run("unmount error", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.apps["A"].unmountErr = errors.New("detach failed")
		ctx := context.Background()

		_, err := f.act.Transition(ctx, "/")
		require.NoError(t, err)
		res, err := f.act.Transition(ctx, "/b")
		require.NoError(t, err)

		assert.Equal(t, []string{"A"}, res.Broken)
		assert.Equal(t, Broken, f.status(t, "A"))
		assert.Equal(t, []string{
			"NOT_MOUNTED->MOUNTING", "MOUNTING->MOUNTED",
			"MOUNTED->UNMOUNTING", "UNMOUNTING->BROKEN",
		}, f.recorder.transitionsOf("A"))
	})
}

func TestTransition_MountTimeout(t *testing.T) {
	f := newFixture(t, Options{MountTimeout: 50 * time.Millisecond})
	f.apps["A"].block = make(chan struct{})
	defer close(f.apps["A"].block)

	res, err := f.act.Transition(context.Background(), "/")
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, res.Mounted)
	assert.Equal(t, []string{"A"}, res.Broken)
	snap, err := f.act.Instance("A")
	require.NoError(t, err)
	assert.Contains(t, snap.Error, context.DeadlineExceeded.Error())
}

func TestTransition_MountsRunConcurrently(t *testing.T) {
	f := newFixture(t, Options{MountTimeout: 2 * time.Second})
	release := make(chan struct{})
	f.apps["A"].block = release
	f.apps["B"].block = release

	go func() {
		// Both mounts must be in flight at the same time before either can finish.
		for f.apps["A"].mounts.Load() == 0 || f.apps["B"].mounts.Load() == 0 {
			time.Sleep(time.Millisecond)
		}
		close(release)
	}()

	res, err := f.act.Transition(context.Background(), "/")
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, res.Mounted)
}

func TestTransition_CancelledContext(t *testing.T) {
	f := newFixture(t, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.act.Transition(ctx, "/")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, NotMounted, f.status(t, "A"))
}

func TestReset(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()
	f.loader.fail("B", errors.New("flaky cdn"))

	_, err := f.act.Transition(ctx, "/")
	require.NoError(t, err)
	require.Equal(t, Broken, f.status(t, "B"))

	f.loader.heal("B")
	res, err := f.act.Reset(ctx, "B")
	require.NoError(t, err)

	assert.Equal(t, []string{"B"}, res.Mounted)
	assert.Equal(t, Mounted, f.status(t, "B"))
	assert.Equal(t, 2, f.loader.count("B"))

	_, err = f.act.Reset(ctx, "A")
	var invalid *InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, Mounted, invalid.Status)

	_, err = f.act.Reset(ctx, "ghost")
	var nf *registry.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestReset_DetachedFromCallerContext(t *testing.T) {
	f := newFixture(t, Options{})
	f.loader.fail("A", errors.New("flaky cdn"))

	_, err := f.act.Transition(context.Background(), "/a")
	require.NoError(t, err)
	require.Equal(t, Broken, f.status(t, "A"))

	f.loader.heal("A")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.act.Reset(ctx, "A")
	require.NoError(t, err)
	assert.Equal(t, []string{"A"}, res.Mounted)
	assert.Equal(t, Mounted, f.status(t, "A"))
}

// gatedResolver blocks the first Resolve call after arm until release is
// closed, and records every location it resolved.
type gatedResolver struct {
	inner   Resolver
	mu      sync.Mutex
	armed   bool
	entered chan struct{}
	release chan struct{}
	seen    []string
}

func (g *gatedResolver) arm() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.armed = true
	g.entered = make(chan struct{})
	g.release = make(chan struct{})
}

func (g *gatedResolver) resolved(location string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Contains(g.seen, location)
}

func (g *gatedResolver) Resolve(location string) []*registry.Descriptor {
	g.mu.Lock()
	g.seen = append(g.seen, location)
	gate := g.armed
	g.armed = false
	entered, release := g.entered, g.release
	g.mu.Unlock()

	if gate {
		close(entered)
		<-release
	}
	return g.inner.Resolve(location)
}

func TestReset_NavigationDuringResetWins(t *testing.T) {
	f := newFixture(t, Options{QueueSize: 4})
	gate := &gatedResolver{inner: f.act.resolver}
	f.act.resolver = gate
	n := &fakeNotifier{}
	ctx := context.Background()

	require.NoError(t, f.act.Activate(ctx, n))
	defer func() { _ = f.act.Deactivate(ctx) }()

	f.loader.fail("A", errors.New("flaky cdn"))
	n.push("/a")
	require.Eventually(t, func() bool {
		return f.act.Location() == "/a" && f.status(t, "A") == Broken
	}, 2*time.Second, 5*time.Millisecond)

	f.loader.heal("A")
	gate.arm()
	resetDone := make(chan error, 1)
	go func() {
		_, err := f.act.Reset(ctx, "A")
		resetDone <- err
	}()

	<-gate.entered
	n.push("/b")
	require.Eventually(t, func() bool { return gate.resolved("/b") }, 2*time.Second, 5*time.Millisecond)
	close(gate.release)
	require.NoError(t, <-resetDone)

	require.Eventually(t, func() bool {
		return f.act.Location() == "/b" && f.status(t, "B") == Mounted
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, NotMounted, f.status(t, "A"))
}

func TestMountedApplication(t *testing.T) {
	f := newFixture(t, Options{})

	_, ok := f.act.MountedApplication("A")
	assert.False(t, ok)

	_, err := f.act.Transition(context.Background(), "/a")
	require.NoError(t, err)

	app, ok := f.act.MountedApplication("A")
	require.True(t, ok)
	assert.Same(t, f.apps["A"], app)

	_, ok = f.act.MountedApplication("B")
	assert.False(t, ok)
	_, ok = f.act.MountedApplication("ghost")
	assert.False(t, ok)
}

func TestActivate_QueuesNotificationsInOrder(t *testing.T) {
	f := newFixture(t, Options{QueueSize: 8})
	n := &fakeNotifier{}
	ctx := context.Background()

	require.NoError(t, f.act.Activate(ctx, n))
	assert.ErrorIs(t, f.act.Activate(ctx, n), ErrAlreadyActive)

	n.push("/a")
	n.push("/b")
	n.push("/")

	require.Eventually(t, func() bool { return f.recorder.batchCount() == 3 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, "/", f.act.Location())
	assert.Equal(t, Mounted, f.status(t, "A"))
	assert.Equal(t, Mounted, f.status(t, "B"))
	assert.Equal(t, []string{"mount A", "unmount A", "mount B", "mount A"}, f.log.all())

	require.NoError(t, f.act.Deactivate(ctx))
	assert.Equal(t, NotMounted, f.status(t, "A"))
	assert.Equal(t, NotMounted, f.status(t, "B"))

	n.mu.Lock()
	assert.Nil(t, n.fn, "deactivate must unsubscribe")
	n.mu.Unlock()

	assert.ErrorIs(t, f.act.Deactivate(ctx), ErrNotActive)
}

type locatedNotifier struct {
	fakeNotifier
	location string
}

func (n *locatedNotifier) Location() string { return n.location }

func TestActivate_ProcessesCurrentLocation(t *testing.T) {
	f := newFixture(t, Options{})
	ctx := context.Background()

	require.NoError(t, f.act.Activate(ctx, &locatedNotifier{location: "/b"}))
	defer func() { _ = f.act.Deactivate(ctx) }()

	require.Eventually(t, func() bool { return f.status(t, "B") == Mounted }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, NotMounted, f.status(t, "A"))
}

func TestStatus_String(t *testing.T) {
	assert.Equal(t, "NOT_MOUNTED", NotMounted.String())
	assert.Equal(t, "UNMOUNTING", Unmounting.String())
	assert.Equal(t, "Status(42)", Status(42).String())

	text, err := Broken.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "BROKEN", string(text))
}
