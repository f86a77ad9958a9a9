package lookup

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// memCache is a minimal in-process cache for exercising the lookup cache
// path without the cache package (which would create an import cycle in
// tests).
type memCache struct {
	mu   sync.Mutex
	data map[string][]byte
}

func newMemCache() *memCache {
	return &memCache{data: make(map[string][]byte)}
}

func (c *memCache) Get(ctx context.Context, key string) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.data[key], nil
}

func (c *memCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = value
	return nil
}

func (c *memCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

func (c *memCache) Ping(ctx context.Context) error { return nil }
func (c *memCache) Close() error                   { return nil }

func TestFetchPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><body>hello</body></html>"))
	}))
	defer srv.Close()

	f := NewFetcher(nil, 2*time.Second)
	res, err := f.Fetch(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if res.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", res.StatusCode)
	}
	if !strings.Contains(string(res.Body), "hello") {
		t.Errorf("unexpected body %q", res.Body)
	}
	if res.Redirects != 0 {
		t.Errorf("expected 0 redirects, got %d", res.Redirects)
	}
	// Plain HTTP test server carries no TLS state.
	if res.TLSDaysLeft != -1 {
		t.Errorf("expected -1 TLS days, got %d", res.TLSDaysLeft)
	}
}

func TestFetchCountsRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			http.Redirect(w, r, "/a", http.StatusFound)
		case "/a":
			http.Redirect(w, r, "/b", http.StatusFound)
		default:
			w.Write([]byte("landed"))
		}
	}))
	defer srv.Close()

	f := NewFetcher(nil, 2*time.Second)
	res, err := f.Fetch(context.Background(), srv.URL+"/")
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if res.Redirects != 2 {
		t.Errorf("expected 2 redirects, got %d", res.Redirects)
	}
	if !strings.Contains(string(res.Body), "landed") {
		t.Errorf("unexpected body %q", res.Body)
	}
}

func TestFetchUsesCache(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Write([]byte("cached page"))
	}))
	defer srv.Close()

	f := NewFetcher(newMemCache(), 2*time.Second)

	for i := 0; i < 3; i++ {
		res, err := f.Fetch(context.Background(), srv.URL)
		if err != nil {
			t.Fatalf("fetch %d failed: %v", i, err)
		}
		if !strings.Contains(string(res.Body), "cached page") {
			t.Errorf("fetch %d: unexpected body %q", i, res.Body)
		}
	}

	if hits != 1 {
		t.Errorf("expected 1 upstream hit, got %d", hits)
	}
}

func TestFetchInvalidURL(t *testing.T) {
	f := NewFetcher(nil, time.Second)

	if _, err := f.Fetch(context.Background(), "://bad"); err == nil {
		t.Error("expected error for invalid url")
	}
}
