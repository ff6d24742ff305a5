package iframe

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vk/mountgrid/internal/loader"
	"github.com/vk/mountgrid/internal/registry"
)

func TestFrame_MountAndRender(t *testing.T) {
	ctx := context.Background()
	app, err := loader.NewLocal(&Module{}).Load(ctx, &registry.Descriptor{
		Name:    "docs",
		Locator: "local:iframe",
		Props:   map[string]string{"src": "https://example.com/?a=1&b=2"},
	})
	require.NoError(t, err)
	require.NoError(t, app.Mount(ctx))

	var sb strings.Builder
	require.NoError(t, app.(loader.Renderer).Render(&sb))
	assert.Equal(t, `<iframe src="https://example.com/?a=1&amp;b=2" title="docs" loading="lazy"></iframe>`, sb.String())

	require.NoError(t, app.Unmount(ctx))
	require.Error(t, app.Unmount(ctx))
}

func TestFrame_MountWithoutSourceFails(t *testing.T) {
	app, err := New(&registry.Descriptor{Name: "docs"})
	require.NoError(t, err, "the source is only checked on mount")

	err = app.Mount(context.Background())
	require.ErrorIs(t, err, ErrMissingSource)
}
