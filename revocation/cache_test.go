package revocation

import (
	"fmt"
	"sync"
	"testing"
)

func TestCacheGetSetDelete(t *testing.T) {
	c := NewCache(0)

	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss on empty cache")
	}
	c.Set("a", false)
	v, ok := c.Get("a")
	if !ok || v {
		t.Fatalf("expected memoized false, got %v/%v", v, ok)
	}
	c.Set("a", true)
	if v, _ := c.Get("a"); !v {
		t.Fatal("expected overwrite to true")
	}
	c.Delete("a")
	if _, ok := c.Get("a"); ok {
		t.Fatal("expected miss after delete")
	}
}

func TestCacheSetIfAbsentKeepsExisting(t *testing.T) {
	c := NewCache(4)

	if got := c.SetIfAbsent("a", false); got {
		t.Fatal("expected false to be stored for a new entry")
	}
	c.Set("b", true)
	if got := c.SetIfAbsent("b", false); !got {
		t.Fatal("expected existing true to win over a late false")
	}
	if v, _ := c.Get("b"); !v {
		t.Fatal("existing entry was overwritten")
	}
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)
	c.Set("a", true)
	c.Set("b", true)
	c.Get("a")
	c.Set("c", true)

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted as least recently used")
	}
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to survive")
	}
	if c.Len() != 2 {
		t.Fatalf("expected len 2, got %d", c.Len())
	}
}

func TestCacheDefaultCapacity(t *testing.T) {
	c := NewCache(-1)
	for i := 0; i < DefaultCacheSize+10; i++ {
		c.Set(fmt.Sprintf("jti-%d", i), false)
	}
	if c.Len() != DefaultCacheSize {
		t.Fatalf("expected len %d, got %d", DefaultCacheSize, c.Len())
	}
}

func TestCachePurge(t *testing.T) {
	c := NewCache(10)
	c.Set("a", true)
	c.Set("b", false)
	c.Purge()
	if c.Len() != 0 {
		t.Fatalf("expected empty cache after purge, got %d", c.Len())
	}
}

func TestCacheConcurrentAccess(t *testing.T) {
	c := NewCache(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k-%d", (g*200+i)%100)
				c.Set(key, i%2 == 0)
				c.Get(key)
				if i%17 == 0 {
					c.Delete(key)
				}
			}
		}(g)
	}
	wg.Wait()
	if c.Len() > 64 {
		t.Fatalf("cache exceeded capacity: %d", c.Len())
	}
}
