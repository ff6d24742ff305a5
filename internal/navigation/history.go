package navigation

import (
	"fmt"
	"slices"
	"strings"
	"sync"

	evbus "github.com/asaskevich/EventBus"
)

// TopicLocationChanged prefixes the bus topic of every subscription.
const TopicLocationChanged = "navigation:location_changed"

// History records the current location and publishes every change on an
// event bus. Each subscriber gets a transactional async handler: deliveries
// to one subscriber run on bus goroutines, one at a time, in push order.
// Push returns once the previous delivery to every subscriber has finished,
// so a slow subscriber holds back at most one pending location.
//
// Every subscription owns its own topic. The bus identifies handlers by code
// pointer, which all subscriber closures share, so Unsubscribe on a shared
// topic could detach the wrong one.
type History struct {
	bus evbus.Bus

	// pushMu orders publications; mu guards the fields below.
	pushMu   sync.Mutex
	mu       sync.RWMutex
	location string
	pushes   int
	nextID   int
	topics   []string
	handlers map[string]func(string)
}

// NewHistory creates a History positioned at initial.
func NewHistory(initial string) (*History, error) {
	return &History{
		bus:      evbus.New(),
		location: Clean(initial),
		handlers: make(map[string]func(string)),
	}, nil
}

// Push makes location current and publishes it.
func (h *History) Push(location string) {
	location = Clean(location)

	h.pushMu.Lock()
	defer h.pushMu.Unlock()

	h.mu.Lock()
	h.location = location
	h.pushes++
	topics := slices.Clone(h.topics)
	h.mu.Unlock()

	for _, topic := range topics {
		h.bus.Publish(topic, location)
	}
}

// Location returns the current location.
func (h *History) Location() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.location
}

// Len returns the number of pushes so far.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.pushes
}

// Subscribe registers fn for every subsequent push. fn runs on a bus
// goroutine and never concurrently with itself.
func (h *History) Subscribe(fn func(location string)) (func(), error) {
	if fn == nil {
		return nil, fmt.Errorf("nil subscriber")
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	topic := fmt.Sprintf("%s#%d", TopicLocationChanged, h.nextID)
	h.nextID++
	handler := func(location string) { fn(location) }
	if err := h.bus.SubscribeAsync(topic, handler, true); err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", topic, err)
	}
	h.topics = append(h.topics, topic)
	h.handlers[topic] = handler

	var once sync.Once
	return func() {
		once.Do(func() { h.unsubscribe(topic) })
	}, nil
}

func (h *History) unsubscribe(topic string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	handler, ok := h.handlers[topic]
	if !ok {
		return
	}
	delete(h.handlers, topic)
	h.topics = slices.DeleteFunc(h.topics, func(t string) bool { return t == topic })
	_ = h.bus.Unsubscribe(topic, handler)
}

// Wait blocks until every delivery published so far has been handled.
func (h *History) Wait() {
	h.bus.WaitAsync()
}

// Close detaches every subscriber. Later pushes only update the current
// location.
func (h *History) Close() error {
	h.mu.RLock()
	topics := slices.Clone(h.topics)
	h.mu.RUnlock()

	for _, topic := range topics {
		h.unsubscribe(topic)
	}
	return nil
}

// Clean trims a location and makes it absolute. Query and fragment are kept.
func Clean(location string) string {
	location = strings.TrimSpace(location)
	if !strings.HasPrefix(location, "/") {
		location = "/" + location
	}
	return location
}
