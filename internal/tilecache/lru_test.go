package tilecache

import (
	"testing"

	"github.com/Grescilla/fastslide-sub001/internal/slidemodel"
)

func key(n int) slidemodel.TileKey {
	return slidemodel.TileKey{Filename: "slide.mrxs", Level: 0, TileX: n, TileY: 0}
}

func data(n int) *slidemodel.CachedTileData {
	return &slidemodel.CachedTileData{Bytes: []byte{byte(n)}, Size: slidemodel.ImageDimensions{Width: 1, Height: 1}, Channels: 1}
}

func TestCacheRoundTrip(t *testing.T) {
	c, err := NewLRU(4)
	if err != nil {
		t.Fatal(err)
	}
	k, v := key(1), data(1)
	c.Put(k, v)
	got, ok := c.Get(k)
	if !ok || got.Bytes[0] != v.Bytes[0] {
		t.Fatalf("round trip failed: ok=%v got=%v", ok, got)
	}
	if c.GetStats().Hits != 1 {
		t.Fatalf("expected 1 hit, got %d", c.GetStats().Hits)
	}
}

// TestLRUEvictionScenarioS6 reproduces spec.md S6 exactly.
func TestLRUEvictionScenarioS6(t *testing.T) {
	c, err := NewLRU(3)
	if err != nil {
		t.Fatal(err)
	}
	k1, k2, k3, k4 := key(1), key(2), key(3), key(4)
	c.Put(k1, data(1))
	c.Put(k2, data(2))
	c.Put(k3, data(3))

	var hitMiss []bool // true = hit
	_, ok := c.Get(k1)
	hitMiss = append(hitMiss, ok)
	c.Put(k4, data(4))
	_, ok = c.Get(k2)
	hitMiss = append(hitMiss, ok)
	_, ok = c.Get(k1)
	hitMiss = append(hitMiss, ok)
	_, ok = c.Get(k3)
	hitMiss = append(hitMiss, ok)
	_, ok = c.Get(k4)
	hitMiss = append(hitMiss, ok)

	want := []bool{true, false, true, true, true}
	for i, w := range want {
		if hitMiss[i] != w {
			t.Fatalf("step %d: got hit=%v want hit=%v", i, hitMiss[i], w)
		}
	}

	for _, k := range []slidemodel.TileKey{k1, k3, k4} {
		if _, ok := c.Get(k); !ok {
			t.Fatalf("expected %v resident", k)
		}
	}
	if _, ok := c.Get(k2); ok {
		t.Fatalf("expected k2 evicted")
	}
}

func TestNewLRUZeroCapacity(t *testing.T) {
	if _, err := NewLRU(0); err == nil {
		t.Fatal("expected error for zero capacity")
	}
}

func TestPutNilIgnored(t *testing.T) {
	c, _ := NewLRU(2)
	c.Put(key(1), nil)
	if c.Size() != 0 {
		t.Fatalf("expected size 0, got %d", c.Size())
	}
}

func TestSetCapacityResets(t *testing.T) {
	c, _ := NewLRU(2)
	c.Put(key(1), data(1))
	c.Get(key(1))
	if err := c.SetCapacity(5); err != nil {
		t.Fatal(err)
	}
	stats := c.GetStats()
	if stats.Size != 0 || stats.Hits != 0 || stats.Capacity != 5 {
		t.Fatalf("unexpected stats after SetCapacity: %+v", stats)
	}
}
