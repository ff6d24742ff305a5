package testutil

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
)

// BundleServer serves fake remote application bundles and counts requests
// per path.
type BundleServer struct {
	*httptest.Server

	mu      sync.Mutex
	bundles map[string]string
	hits    map[string]int
}

// NewBundleServer starts a server for bundles (path -> source). Unknown
// paths answer 404. The server is closed when the test ends.
func NewBundleServer(t *testing.T, bundles map[string]string) *BundleServer {
	t.Helper()
	s := &BundleServer{bundles: bundles, hits: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

func (s *BundleServer) serve(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.hits[r.URL.Path]++
	src, ok := s.bundles[r.URL.Path]
	s.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/javascript")
	w.Header().Set("ETag", fmt.Sprintf("%q", strings.TrimPrefix(r.URL.Path, "/")))
	fmt.Fprint(w, src)
}

// Hits returns how many times path was requested.
func (s *BundleServer) Hits(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[path]
}

// Locator returns the protocol-relative locator of path, the form layouts
// usually use.
func (s *BundleServer) Locator(path string) string {
	return strings.TrimPrefix(s.URL, "http:") + path
}
