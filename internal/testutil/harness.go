package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/vk/mountgrid/internal/app"
	"github.com/vk/mountgrid/internal/hcl"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/navigation"
)

// settleTimeout bounds every wait on the engine.
const settleTimeout = 3 * time.Second

// HarnessResult holds the outcomes of an integration test run.
type HarnessResult struct {
	Logs *app.SafeBuffer
	Err  error
	App  *app.App
}

// RunIntegrationTest writes files (relative path -> HCL) to a temporary
// layout directory, builds the app from it with the HCL loader and activates
// the engine at "/". Startup failures are returned in Err; the engine is
// deactivated when the test ends.
func RunIntegrationTest(t *testing.T, files map[string]string, modules ...loader.Module) *HarnessResult {
	t.Helper()

	layoutDir := t.TempDir()
	for name, content := range files {
		filePath := filepath.Join(layoutDir, name)
		require.NoError(t, os.MkdirAll(filepath.Dir(filePath), 0755))
		require.NoError(t, os.WriteFile(filePath, []byte(content), 0644))
	}

	cfg, err := app.NewConfig(app.Config{
		LayoutPath:     layoutDir,
		LogLevel:       "debug",
		LogFormat:      "text",
		Location:       "/",
		Title:          t.Name(),
		MountTimeout:   2 * time.Second,
		UnmountTimeout: 2 * time.Second,
		QueueSize:      8,
		FetchTimeout:   2 * time.Second,
	})
	require.NoError(t, err)

	logs := &app.SafeBuffer{}
	t.Cleanup(func() {
		if os.Getenv("MOUNTGRID_TEST_LOGS") == "true" {
			t.Logf("--- Full Log Output for %s ---\n%s", t.Name(), logs.String())
		}
	})

	testApp, err := app.NewApp(logs, cfg, hcl.NewLoader(), modules...)
	if err != nil {
		return &HarnessResult{Logs: logs, Err: err}
	}

	ctx := context.Background()
	if err := testApp.Activate(ctx); err != nil {
		return &HarnessResult{Logs: logs, Err: err, App: testApp}
	}
	t.Cleanup(func() { _ = testApp.Deactivate(ctx) })

	WaitSettled(t, testApp, "/")
	return &HarnessResult{Logs: logs, App: testApp}
}

// Navigate pushes location and waits until the engine has processed it.
func Navigate(t *testing.T, a *app.App, location string) {
	t.Helper()
	a.History().Push(location)
	WaitSettled(t, a, location)
}

// WaitSettled waits until the last completed batch is for location.
func WaitSettled(t *testing.T, a *app.App, location string) {
	t.Helper()
	want := navigation.Clean(location)
	require.Eventually(t, func() bool {
		return a.Activator().Location() == want
	}, settleTimeout, 5*time.Millisecond, "engine never settled on %q (at %q)", want, a.Activator().Location())
}
