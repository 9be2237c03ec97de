package preheat

import (
	"testing"
)

func bandsEqual(a, b []Band) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestDiff(t *testing.T) {
	testCases := []struct {
		name        string
		prev, next  Band
		wantAdded   []Band
		wantRemoved []Band
	}{
		{
			name:        "scroll down with overlap",
			prev:        Band{0, 100},
			next:        Band{50, 150},
			wantAdded:   []Band{{100, 150}},
			wantRemoved: []Band{{0, 50}},
		},
		{
			name:        "scroll up with overlap",
			prev:        Band{50, 150},
			next:        Band{0, 100},
			wantAdded:   []Band{{0, 50}},
			wantRemoved: []Band{{100, 150}},
		},
		{
			name:        "disjoint jump",
			prev:        Band{0, 100},
			next:        Band{500, 600},
			wantAdded:   []Band{{500, 600}},
			wantRemoved: []Band{{0, 100}},
		},
		{
			name:        "growth on both ends",
			prev:        Band{100, 200},
			next:        Band{50, 250},
			wantAdded:   []Band{{200, 250}, {50, 100}},
			wantRemoved: nil,
		},
		{
			name:        "shrink on both ends",
			prev:        Band{50, 250},
			next:        Band{100, 200},
			wantAdded:   nil,
			wantRemoved: []Band{{200, 250}, {50, 100}},
		},
		{
			name:        "identical bands",
			prev:        Band{0, 100},
			next:        Band{0, 100},
			wantAdded:   nil,
			wantRemoved: nil,
		},
		{
			name:        "empty previous warms everything",
			prev:        Band{},
			next:        Band{0, 300},
			wantAdded:   []Band{{0, 300}},
			wantRemoved: nil,
		},
	}

	for _, tc := range testCases {
		added, removed := Diff(tc.prev, tc.next)
		if !bandsEqual(added, tc.wantAdded) {
			t.Errorf("%s: added: expected %v, got %v", tc.name, tc.wantAdded, added)
		}
		if !bandsEqual(removed, tc.wantRemoved) {
			t.Errorf("%s: removed: expected %v, got %v", tc.name, tc.wantRemoved, removed)
		}
	}
}

// fakeTarget records prefetch calls in order.
type fakeTarget struct {
	started [][]string
	stopped [][]string
}

func (f *fakeTarget) StartPrefetch(ids []string) {
	f.started = append(f.started, append([]string(nil), ids...))
}

func (f *fakeTarget) StopPrefetch(ids []string) {
	f.stopped = append(f.stopped, append([]string(nil), ids...))
}

// rowResolver models a single column of 100px rows: row N spans
// [N*100, N*100+100).
func rowResolver(top, bottom float64) []string {
	var ids []string
	for row := 0; row < 100; row++ {
		y := float64(row) * 100
		if y+100 < top {
			continue
		}
		if y > bottom {
			break
		}
		ids = append(ids, itemID(row))
	}
	return ids
}

func itemID(row int) string {
	return string(rune('a' + row))
}

func TestControllerFirstUpdateWarmsWindow(t *testing.T) {
	target := &fakeTarget{}
	c := NewController(rowResolver, target, 0.5, 1.0/3.0)

	// Viewport 200 high at the top; margin 100 below -> band [0,300].
	c.ViewportChanged(0, 200, 10000)

	if len(target.stopped) != 0 {
		t.Errorf("first update issued stops: %v", target.stopped)
	}
	if len(target.started) != 1 {
		t.Fatalf("expected one start batch, got %d", len(target.started))
	}
	// Rows a..d intersect [0,300].
	want := []string{"a", "b", "c", "d"}
	got := target.started[0]
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("started[%d]: expected %s, got %s", i, want[i], got[i])
		}
	}
}

func TestControllerHysteresis(t *testing.T) {
	target := &fakeTarget{}
	c := NewController(rowResolver, target, 0, 1.0/3.0)

	c.ViewportChanged(0, 300, 10000)
	startBatches := len(target.started)

	// 50px of movement is under a third of the 300px viewport: ignored.
	c.ViewportChanged(50, 300, 10000)
	if len(target.started) != startBatches || len(target.stopped) != 0 {
		t.Error("update below hysteresis threshold was applied")
	}

	// 150px clears the threshold.
	c.ViewportChanged(150, 300, 10000)
	if len(target.started) == startBatches {
		t.Error("update above hysteresis threshold was ignored")
	}
}

func TestControllerStopsColdItemsOnly(t *testing.T) {
	target := &fakeTarget{}
	c := NewController(rowResolver, target, 0, 0)

	// Band [0,300] warms rows a,b,c (d starts exactly at 300 and also
	// intersects the closed edge).
	c.ViewportChanged(0, 300, 10000)
	// Jump far away: everything from the old band goes cold.
	c.ViewportChanged(2000, 300, 10000)

	if len(target.stopped) != 1 {
		t.Fatalf("expected one stop batch, got %v", target.stopped)
	}
	for _, id := range target.stopped[0] {
		for _, still := range target.started[len(target.started)-1] {
			if id == still {
				t.Errorf("item %s both stopped and started in one transition", id)
			}
		}
	}
}

// Scrolling by one row keeps the boundary item warm: it intersects both the
// removed strip and the new band, so it must not be stopped.
func TestControllerBoundaryItemStaysWarm(t *testing.T) {
	target := &fakeTarget{}
	c := NewController(rowResolver, target, 0, 0)

	c.ViewportChanged(0, 300, 10000)   // rows a..d
	c.ViewportChanged(150, 300, 10000) // band [150,450]: rows b..e

	if len(target.stopped) != 1 {
		t.Fatalf("expected one stop batch, got %v", target.stopped)
	}
	stops := target.stopped[0]
	if len(stops) != 1 || stops[0] != "a" {
		t.Errorf("expected only row a stopped, got %v", stops)
	}
}

func TestControllerResetForgetsWindow(t *testing.T) {
	target := &fakeTarget{}
	c := NewController(rowResolver, target, 0, 1.0/3.0)

	c.ViewportChanged(0, 300, 10000)
	c.Reset()

	// After a reset even a tiny movement re-warms from scratch with no
	// stops against the forgotten band.
	stopsBefore := len(target.stopped)
	c.ViewportChanged(10, 300, 10000)
	if len(target.stopped) != stopsBefore {
		t.Errorf("reset did not clear the previous band: %v", target.stopped)
	}
	if len(target.started) != 2 {
		t.Errorf("expected a fresh warm-up after reset, got %d batches", len(target.started))
	}
}

func TestControllerDegenerateViewport(t *testing.T) {
	target := &fakeTarget{}
	c := NewController(rowResolver, target, 0.5, 0)

	c.ViewportChanged(0, 0, 10000)  // zero-height viewport
	c.ViewportChanged(0, 300, 0)    // empty content
	c.ViewportChanged(-500, 300, 0) // nonsense scroll into empty content

	if len(target.started) != 0 || len(target.stopped) != 0 {
		t.Errorf("degenerate updates issued prefetch calls: %v / %v", target.started, target.stopped)
	}
}
