package resultcache

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/npratt/debugq/internal/config"
)

func testConfig() config.CacheConfig {
	return config.CacheConfig{
		MaxBytes:   1 << 20,
		MaxEntries: 100,
		Pressure:   0.8,
	}
}

func TestEstimatedSize_MonotoneInPayload(t *testing.T) {
	small := &Result{OK: true, Output: "abc"}
	big := &Result{OK: true, Output: strings.Repeat("x", 1000)}
	withData := &Result{OK: true, Output: "abc", Data: map[string]string{"k": "v"}}

	if small.EstimatedSize() >= big.EstimatedSize() {
		t.Error("larger output must estimate larger")
	}
	if small.EstimatedSize() >= withData.EstimatedSize() {
		t.Error("data entries must add to the estimate")
	}
}

func TestStoreGet_RoundTrip(t *testing.T) {
	c := New(testConfig(), nil)

	want := &Result{OK: true, Output: "stack-dump", Duration: 40 * time.Millisecond}
	c.Store("cmd-s1-0001", want)

	got, ok := c.Get("cmd-s1-0001")
	if !ok {
		t.Fatal("expected hit")
	}
	if got.Output != "stack-dump" || !got.OK {
		t.Errorf("unexpected result: %+v", got)
	}

	if _, ok := c.Get("cmd-s1-9999"); ok {
		t.Error("expected miss for unknown id")
	}
}

func TestStore_ReplacementAdjustsBytes(t *testing.T) {
	c := New(testConfig(), nil)

	first := &Result{OK: true, Output: strings.Repeat("a", 100)}
	second := &Result{OK: true, Output: strings.Repeat("b", 10)}

	c.Store("cmd-s1-0001", first)
	c.Store("cmd-s1-0001", second)

	stats := c.Stats()
	if stats.Entries != 1 {
		t.Fatalf("expected 1 entry after replacement, got %d", stats.Entries)
	}
	if stats.Bytes != second.EstimatedSize() {
		t.Errorf("expected bytes %d, got %d", second.EstimatedSize(), stats.Bytes)
	}
}

func TestLRUEviction_Scenario(t *testing.T) {
	cfg := testConfig()
	cfg.MaxEntries = 3
	c := New(cfg, nil)

	c.Store("c1", &Result{OK: true, Output: "one"})
	time.Sleep(time.Millisecond)
	c.Store("c2", &Result{OK: true, Output: "two"})
	time.Sleep(time.Millisecond)
	c.Store("c3", &Result{OK: true, Output: "three"})
	time.Sleep(time.Millisecond)

	// Touch c1 so c2 becomes the least recently used.
	if _, ok := c.Get("c1"); !ok {
		t.Fatal("expected c1 resident")
	}
	time.Sleep(time.Millisecond)

	c.Store("c4", &Result{OK: true, Output: "four"})

	if c.Has("c2") {
		t.Error("expected c2 evicted")
	}
	var sum int64
	for _, id := range []string{"c1", "c3", "c4"} {
		r, ok := c.Get(id)
		if !ok {
			t.Errorf("expected %s resident", id)
			continue
		}
		sum += r.EstimatedSize()
	}

	stats := c.Stats()
	if stats.Entries != 3 {
		t.Errorf("expected 3 entries, got %d", stats.Entries)
	}
	if stats.Bytes != sum {
		t.Errorf("expected bytes %d (sum of residents), got %d", sum, stats.Bytes)
	}
}

func TestByteBudgetEviction(t *testing.T) {
	payload := strings.Repeat("x", 1000)
	one := &Result{OK: true, Output: payload}

	cfg := config.CacheConfig{
		// Room for about four entries before the pressure threshold.
		MaxBytes:   one.EstimatedSize() * 5,
		MaxEntries: 100,
		Pressure:   0.8,
	}
	c := New(cfg, nil)

	for i := 0; i < 10; i++ {
		c.Store(fmt.Sprintf("c%d", i), &Result{OK: true, Output: payload})
		time.Sleep(time.Millisecond)
	}

	stats := c.Stats()
	threshold := int64(float64(cfg.MaxBytes) * cfg.Pressure)
	if stats.Bytes > threshold+one.EstimatedSize() {
		t.Errorf("bytes %d exceeds threshold %d plus one entry", stats.Bytes, threshold)
	}
	// The most recent entry always survives.
	if !c.Has("c9") {
		t.Error("expected newest entry resident")
	}
}

func TestOversizedEntry_AdmittedAnyway(t *testing.T) {
	cfg := config.CacheConfig{MaxBytes: 100, MaxEntries: 10, Pressure: 0.8}
	c := New(cfg, nil)

	huge := &Result{OK: true, Output: strings.Repeat("x", 10000)}
	c.Store("big", huge)

	if !c.Has("big") {
		t.Error("oversized entry must still be admitted")
	}
}

func TestRemoveAndClear(t *testing.T) {
	c := New(testConfig(), nil)

	c.Store("c1", &Result{OK: true, Output: "one"})
	c.Store("c2", &Result{OK: false, Error: "boom"})

	if !c.Remove("c1") {
		t.Error("expected Remove to report presence")
	}
	if c.Remove("c1") {
		t.Error("expected second Remove to report absence")
	}

	c.Clear()
	stats := c.Stats()
	if stats.Entries != 0 || stats.Bytes != 0 {
		t.Errorf("expected empty cache after Clear, got %+v", stats)
	}
}

func TestStats_UsagePct(t *testing.T) {
	cfg := config.CacheConfig{MaxBytes: 1000, MaxEntries: 10, Pressure: 1.0}
	c := New(cfg, nil)

	r := &Result{OK: true}
	c.Store("c1", r)

	stats := c.Stats()
	want := float64(r.EstimatedSize()) / 1000 * 100
	if stats.UsagePct != want {
		t.Errorf("expected usage %.2f%%, got %.2f%%", want, stats.UsagePct)
	}
}
