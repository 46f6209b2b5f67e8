package fulfillment

import (
	"sync"
	"testing"
	"time"
)

func TestDebouncerCollapsesBurst(t *testing.T) {
	var mu sync.Mutex
	fired := map[string]int{}
	done := make(chan string, 8)

	d := newDebouncer(30*time.Millisecond, func(key string) {
		mu.Lock()
		fired[key]++
		mu.Unlock()
		done <- key
	})
	defer d.Close()

	for i := 0; i < 10; i++ {
		d.Trigger("u-1")
	}

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("debounced callback never fired")
	}

	time.Sleep(60 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if fired["u-1"] != 1 {
		t.Errorf("fired %d times, want 1", fired["u-1"])
	}
}

func TestDebouncerPerKey(t *testing.T) {
	var mu sync.Mutex
	fired := map[string]int{}
	done := make(chan string, 8)

	d := newDebouncer(10*time.Millisecond, func(key string) {
		mu.Lock()
		fired[key]++
		mu.Unlock()
		done <- key
	})
	defer d.Close()

	d.Trigger("u-1")
	d.Trigger("u-2")

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatal("callback missing")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	if fired["u-1"] != 1 || fired["u-2"] != 1 {
		t.Errorf("fired = %v, want one per key", fired)
	}
}

func TestDebouncerRetriggersAfterFire(t *testing.T) {
	done := make(chan string, 8)
	d := newDebouncer(10*time.Millisecond, func(key string) { done <- key })
	defer d.Close()

	d.Trigger("u-1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("first fire missing")
	}

	d.Trigger("u-1")
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("second fire missing")
	}
}

func TestDebouncerTriggerRacingFireIsOneBurst(t *testing.T) {
	const interval = 20 * time.Millisecond

	var mu sync.Mutex
	var fires []time.Time
	d := newDebouncer(interval, func(string) {
		mu.Lock()
		fires = append(fires, time.Now())
		mu.Unlock()
	})
	defer d.Close()

	// Space triggers a whisker around the fire boundary so some land in
	// the gap between the timer firing and its callback running. Each
	// such trigger extends the window; no burst may produce two fires.
	for i := 0; i < 25; i++ {
		d.Trigger("u-1")
		time.Sleep(interval + time.Duration(i%5-2)*time.Millisecond)
	}
	time.Sleep(3 * interval)

	mu.Lock()
	defer mu.Unlock()
	if len(fires) == 0 {
		t.Fatal("debouncer never fired")
	}
	for i := 1; i < len(fires); i++ {
		if gap := fires[i].Sub(fires[i-1]); gap < interval-5*time.Millisecond {
			t.Errorf("fires %v apart, want at least %v between bursts", gap, interval)
		}
	}
}

func TestDebouncerClose(t *testing.T) {
	done := make(chan string, 8)
	d := newDebouncer(20*time.Millisecond, func(key string) { done <- key })

	d.Trigger("u-1")
	d.Close()
	d.Trigger("u-2")

	select {
	case key := <-done:
		t.Errorf("callback fired for %q after Close", key)
	case <-time.After(80 * time.Millisecond):
	}
}
