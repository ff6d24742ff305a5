package testutil

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/vk/mountgrid/internal/activator"
	"github.com/vk/mountgrid/internal/app"
)

// AssertStatus checks the current lifecycle status of one application.
func AssertStatus(t *testing.T, a *app.App, name string, want activator.Status) {
	t.Helper()
	snap, err := a.Activator().Instance(name)
	require.NoError(t, err)
	require.Equal(t, want, snap.Status, "application %q: %s", name, snap.Error)
}

// AssertMounted checks that exactly the given applications are MOUNTED.
func AssertMounted(t *testing.T, a *app.App, names ...string) {
	t.Helper()
	var mounted []string
	for _, snap := range a.Activator().Instances() {
		if snap.Status == activator.Mounted {
			mounted = append(mounted, snap.Name)
		}
	}
	require.ElementsMatch(t, names, mounted)
}
