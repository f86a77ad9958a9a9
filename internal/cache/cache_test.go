package cache

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/verilayer/lavs/internal/domain"
)

func TestLRUCacheBasicOperations(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	t.Run("get missing key", func(t *testing.T) {
		val, err := c.Get(ctx, "nope")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if val != nil {
			t.Errorf("expected nil for missing key, got %v", val)
		}
	})

	t.Run("set and get", func(t *testing.T) {
		if err := c.Set(ctx, "whois:example.com", []byte("record"), time.Minute); err != nil {
			t.Fatalf("set failed: %v", err)
		}
		val, err := c.Get(ctx, "whois:example.com")
		if err != nil {
			t.Fatalf("get failed: %v", err)
		}
		if string(val) != "record" {
			t.Errorf("expected record, got %q", val)
		}
	})

	t.Run("overwrite", func(t *testing.T) {
		c.Set(ctx, "k", []byte("v1"), time.Minute)
		c.Set(ctx, "k", []byte("v2"), time.Minute)
		val, _ := c.Get(ctx, "k")
		if string(val) != "v2" {
			t.Errorf("expected v2, got %q", val)
		}
	})

	t.Run("delete", func(t *testing.T) {
		c.Set(ctx, "gone", []byte("x"), time.Minute)
		if err := c.Delete(ctx, "gone"); err != nil {
			t.Fatalf("delete failed: %v", err)
		}
		val, _ := c.Get(ctx, "gone")
		if val != nil {
			t.Errorf("expected nil after delete, got %v", val)
		}
	})
}

func TestLRUCacheExpiry(t *testing.T) {
	c := NewLRUCache(100)
	ctx := context.Background()

	c.Set(ctx, "short", []byte("lived"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	val, err := c.Get(ctx, "short")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if val != nil {
		t.Errorf("expected expired entry to be gone, got %q", val)
	}
}

func TestLRUCacheEviction(t *testing.T) {
	c := NewLRUCache(3)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		c.Set(ctx, fmt.Sprintf("key-%d", i), []byte("v"), time.Minute)
	}

	size, capacity := c.Stats()
	if size != 3 || capacity != 3 {
		t.Errorf("expected size 3/3, got %d/%d", size, capacity)
	}

	// Oldest entries evicted, newest survive.
	if val, _ := c.Get(ctx, "key-0"); val != nil {
		t.Error("expected key-0 evicted")
	}
	if val, _ := c.Get(ctx, "key-4"); val == nil {
		t.Error("expected key-4 present")
	}
}

func TestLRUCacheRecencyOrder(t *testing.T) {
	c := NewLRUCache(2)
	ctx := context.Background()

	c.Set(ctx, "a", []byte("1"), time.Minute)
	c.Set(ctx, "b", []byte("2"), time.Minute)

	// Touch a so b becomes the eviction candidate.
	c.Get(ctx, "a")
	c.Set(ctx, "c", []byte("3"), time.Minute)

	if val, _ := c.Get(ctx, "a"); val == nil {
		t.Error("expected recently used key a to survive")
	}
	if val, _ := c.Get(ctx, "b"); val != nil {
		t.Error("expected least recently used key b evicted")
	}
}

func TestNewFactory(t *testing.T) {
	t.Run("memory", func(t *testing.T) {
		c, err := New(domain.CacheConfig{Type: "memory", LocalMaxSize: 10})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer c.Close()
		if err := c.Ping(context.Background()); err != nil {
			t.Errorf("ping failed: %v", err)
		}
	})

	t.Run("unsupported", func(t *testing.T) {
		if _, err := New(domain.CacheConfig{Type: "memcached"}); err == nil {
			t.Error("expected error for unsupported type")
		}
	})
}
