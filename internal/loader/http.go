package loader

import (
	"context"
	"crypto/sha512"
	"encoding/base64"
	"fmt"
	"html"
	"io"
	"strings"
	"sync/atomic"
	"time"

	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/vk/mountgrid/internal/registry"
	"resty.dev/v3"
)

// HTTPOptions configures the HTTP bundle loader.
type HTTPOptions struct {
	Timeout       time.Duration
	RetryCount    int
	DefaultScheme string
	UserAgent     string
}

// HTTP fetches remote bundles over HTTP(S).
type HTTP struct {
	client        *resty.Client
	defaultScheme string
}

// NewHTTP creates an HTTP loader. Close releases its connections.
func NewHTTP(opts HTTPOptions) *HTTP {
	if opts.DefaultScheme == "" {
		opts.DefaultScheme = "http"
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "mountgrid"
	}

	client := resty.New().
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(200*time.Millisecond).
		SetHeader("User-Agent", opts.UserAgent).
		SetHeader("Accept", "application/javascript, text/javascript, */*")

	return &HTTP{client: client, defaultScheme: opts.DefaultScheme}
}

// Close releases idle connections.
func (h *HTTP) Close() error {
	return h.client.Close()
}

// URL returns the absolute URL for a locator.
func (h *HTTP) URL(locator string) string {
	if strings.HasPrefix(locator, "//") {
		return h.defaultScheme + ":" + locator
	}
	return locator
}

// Load fetches the bundle and returns an application referencing it.
func (h *HTTP) Load(ctx context.Context, d *registry.Descriptor) (Application, error) {
	logger := ctxlog.FromContext(ctx).With("application", d.Name)
	url := h.URL(d.Locator)
	logger.Debug("Fetching remote bundle.", "url", url)

	res, err := h.client.R().SetContext(ctx).Get(url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bundle %s: %w", url, err)
	}
	if !res.IsSuccess() {
		return nil, fmt.Errorf("failed to fetch bundle %s: unexpected status %d", url, res.StatusCode())
	}

	body := []byte(res.String())
	digest := sha512.Sum384(body)
	bundle := &Bundle{
		Name:      d.Name,
		URL:       url,
		Size:      len(body),
		ETag:      res.Header().Get("ETag"),
		Integrity: "sha384-" + base64.StdEncoding.EncodeToString(digest[:]),
	}
	logger.Debug("Remote bundle fetched.", "bytes", bundle.Size, "etag", bundle.ETag)
	return bundle, nil
}

// Bundle is a fetched remote application. Mounting attaches its script to
// the composed page.
type Bundle struct {
	Name      string
	URL       string
	Size      int
	ETag      string
	Integrity string

	mounted atomic.Bool
}

// Mount implements Application.
func (b *Bundle) Mount(ctx context.Context) error {
	if !b.mounted.CompareAndSwap(false, true) {
		return fmt.Errorf("bundle '%s' is already mounted", b.Name)
	}
	return nil
}

// Unmount implements Application.
func (b *Bundle) Unmount(ctx context.Context) error {
	if !b.mounted.CompareAndSwap(true, false) {
		return fmt.Errorf("bundle '%s' is not mounted", b.Name)
	}
	return nil
}

// Mounted reports whether the bundle is attached.
func (b *Bundle) Mounted() bool { return b.mounted.Load() }

// Render writes the script tag that boots the bundle in the browser.
func (b *Bundle) Render(w io.Writer) error {
	_, err := fmt.Fprintf(w, `<script type="module" src="%s" integrity="%s" crossorigin="anonymous"></script>`,
		html.EscapeString(b.URL), html.EscapeString(b.Integrity))
	return err
}
