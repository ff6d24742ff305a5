package navigation

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/vk/mountgrid/internal/activator"
	"github.com/vk/mountgrid/internal/ctxlog"
	"github.com/zishang520/engine.io-client-go/transports"
	"github.com/zishang520/engine.io/v2/types"
	"github.com/zishang520/socket.io-client-go/socket"
)

// Socket.io event names exchanged with the navigation hub.
const (
	EventNavigate = "navigate"
	EventStatus   = "status"
	EventBatch    = "batch"
)

// RelayConfig locates the navigation hub.
type RelayConfig struct {
	URL                string
	Namespace          string
	InsecureSkipVerify bool
	ConnectTimeout     time.Duration
}

// Relay connects to a socket.io navigation hub. Every `navigate` event is
// pushed into the History; lifecycle events are emitted back as `status`
// and `batch`.
type Relay struct {
	io *socket.Socket
}

// DialRelay connects to the hub and waits for the connection to be
// established.
func DialRelay(ctx context.Context, cfg RelayConfig, history *History) (*Relay, error) {
	logger := ctxlog.FromContext(ctx).With("component", "relay", "url", cfg.URL)
	logger.Info("Connecting to navigation hub...")

	parsedURL, err := url.Parse(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse relay URL: %w", err)
	}
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 15 * time.Second
	}
	namespace := cfg.Namespace
	if namespace == "" {
		namespace = "/"
	}

	opts := socket.DefaultOptions()
	opts.SetPath(parsedURL.Path)
	if cfg.InsecureSkipVerify {
		logger.Warn("Skipping TLS certificate verification")
		opts.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}
	opts.SetTransports(types.NewSet(transports.WebSocket))

	connectChan := make(chan error, 1)

	baseURL := fmt.Sprintf("%s://%s", parsedURL.Scheme, parsedURL.Host)
	manager := socket.NewManager(baseURL, opts)
	io := manager.Socket(namespace, opts)

	io.Once(types.EventName("connect"), func(...any) {
		logger.Info("Connected to navigation hub", "sid", io.Id())
		connectChan <- nil
	})
	io.Once(types.EventName("connect_error"), func(errs ...any) {
		connectChan <- firstError(errs)
	})
	io.On(types.EventName(EventNavigate), func(data ...any) {
		location, ok := LocationFromPayload(data...)
		if !ok {
			logger.Warn("Ignoring malformed navigate event.", "payload", data)
			return
		}
		logger.Debug("Navigate event received.", "location", location)
		history.Push(location)
	})

	io.Connect()

	select {
	case err := <-connectChan:
		if err != nil {
			io.Disconnect()
			return nil, fmt.Errorf("socket.io connection failed: %w", err)
		}
		return &Relay{io: io}, nil
	case <-ctx.Done():
		io.Disconnect()
		return nil, fmt.Errorf("context cancelled while waiting for socket.io connection: %w", ctx.Err())
	case <-time.After(cfg.ConnectTimeout):
		io.Disconnect()
		return nil, fmt.Errorf("timed out after %s waiting for socket.io connection", cfg.ConnectTimeout)
	}
}

// StatusChanged implements activator.Observer.
func (r *Relay) StatusChanged(ev activator.StatusChange) {
	r.io.Emit(EventStatus, StatusPayload(ev))
}

// BatchCompleted implements activator.Observer.
func (r *Relay) BatchCompleted(res activator.BatchResult) {
	r.io.Emit(EventBatch, BatchPayload(res))
}

// Close disconnects from the hub.
func (r *Relay) Close() {
	r.io.Disconnect()
}

// LocationFromPayload accepts either a bare string or an object with a
// "location" field.
func LocationFromPayload(data ...any) (string, bool) {
	if len(data) == 0 {
		return "", false
	}
	switch v := data[0].(type) {
	case string:
		return v, v != ""
	case map[string]any:
		loc, ok := v["location"].(string)
		return loc, ok && loc != ""
	default:
		return "", false
	}
}

// StatusPayload is the wire form of a status change.
func StatusPayload(ev activator.StatusChange) map[string]any {
	p := map[string]any{
		"batch": ev.BatchID,
		"name":  ev.Name,
		"from":  ev.From.String(),
		"to":    ev.To.String(),
	}
	if ev.Err != nil {
		p["error"] = ev.Err.Error()
	}
	return p
}

// BatchPayload is the wire form of a completed batch.
func BatchPayload(res activator.BatchResult) map[string]any {
	return map[string]any{
		"id":          res.ID,
		"location":    res.Location,
		"mounted":     nonNil(res.Mounted),
		"unmounted":   nonNil(res.Unmounted),
		"broken":      nonNil(res.Broken),
		"duration_ms": res.Duration.Milliseconds(),
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func firstError(args []any) error {
	if len(args) > 0 {
		if err, ok := args[0].(error); ok {
			return err
		}
	}
	return errors.New("unknown connection error")
}
