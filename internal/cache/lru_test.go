// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

func newTestLRU(capacity int, ttl time.Duration) (*LRU[string], *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := NewLRU[string](capacity, ttl)
	c.now = clock.Now
	return c, clock
}

func TestLRU_BasicOperations(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(3, time.Minute)
	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	for key, want := range map[string]string{"a": "1", "b": "2", "c": "3"} {
		if got, ok := c.Get(key); !ok || got != want {
			t.Errorf("Get(%q) = %q, %v; want %q", key, got, ok, want)
		}
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
}

func TestLRU_Eviction(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(3, time.Minute)
	c.Add("a", "1")
	c.Add("b", "2")
	c.Add("c", "3")

	c.Get("a")
	c.Add("d", "4")

	if _, ok := c.Get("b"); ok {
		t.Error("expected b to be evicted as least recently used")
	}
	for _, key := range []string{"a", "c", "d"} {
		if _, ok := c.Get(key); !ok {
			t.Errorf("expected %q to be present", key)
		}
	}
}

func TestLRU_TTLExpiration(t *testing.T) {
	t.Parallel()

	c, clock := newTestLRU(10, time.Minute)
	c.Add("a", "1")

	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a before expiry")
	}
	clock.Advance(time.Minute + time.Second)
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to expire")
	}
	if c.Len() != 0 {
		t.Errorf("expired entry not dropped, Len() = %d", c.Len())
	}
}

func TestLRU_AddRefreshesTTL(t *testing.T) {
	t.Parallel()

	c, clock := newTestLRU(10, time.Minute)
	c.Add("a", "1")
	clock.Advance(50 * time.Second)
	c.Add("a", "2")
	clock.Advance(50 * time.Second)

	if got, ok := c.Get("a"); !ok || got != "2" {
		t.Errorf("Get(a) = %q, %v; want refreshed value", got, ok)
	}
}

func TestLRU_RemoveAndClear(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(10, time.Minute)
	c.Add("a", "1")
	c.Add("b", "2")

	if !c.Remove("a") {
		t.Error("Remove(a) = false")
	}
	if c.Remove("a") {
		t.Error("second Remove(a) = true")
	}
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear = %d", c.Len())
	}
	c.Add("c", "3")
	if _, ok := c.Get("c"); !ok {
		t.Error("cache unusable after Clear")
	}
}

func TestLRU_CleanupExpired(t *testing.T) {
	t.Parallel()

	c, clock := newTestLRU(10, time.Minute)
	c.Add("old1", "x")
	c.Add("old2", "x")
	clock.Advance(30 * time.Second)
	c.Add("fresh", "x")
	clock.Advance(45 * time.Second)

	if removed := c.CleanupExpired(); removed != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", removed)
	}
	if _, ok := c.Get("fresh"); !ok {
		t.Error("fresh entry removed")
	}
}

func TestLRU_Stats(t *testing.T) {
	t.Parallel()

	c, _ := newTestLRU(10, time.Minute)
	c.Add("a", "1")
	c.Get("a")
	c.Get("a")
	c.Get("missing")

	hits, misses, size := c.Stats()
	if hits != 2 || misses != 1 || size != 1 {
		t.Errorf("Stats() = %d, %d, %d; want 2, 1, 1", hits, misses, size)
	}
}

func TestLRU_Defaults(t *testing.T) {
	t.Parallel()

	c := NewLRU[int](0, 0)
	if c.capacity != defaultCapacity || c.ttl != defaultTTL {
		t.Errorf("defaults = %d, %s", c.capacity, c.ttl)
	}
}

func TestLRU_Concurrent(t *testing.T) {
	t.Parallel()

	c := NewLRU[int](100, time.Minute)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("k%d", (g*500+i)%150)
				c.Add(key, i)
				c.Get(key)
			}
		}(g)
	}
	wg.Wait()

	if c.Len() > 100 {
		t.Errorf("Len() = %d exceeds capacity", c.Len())
	}
}
