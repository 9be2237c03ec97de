package grid

import (
	"fmt"
	"testing"
)

// twoColumnFixture lays out six fixed-height items into two columns:
//
//	col 0: item-0 item-2 item-4
//	col 1: item-1 item-3 item-5
func twoColumnFixture(t *testing.T) ([]Item, *Positions) {
	t.Helper()
	items := fixedItems(6)
	p := Params{
		AvailableWidth:   210,
		IdealColumnWidth: 100,
		Spacing:          10,
		TileHeight:       100,
	}
	return items, Layout(items, p)
}

func TestMoveLinear(t *testing.T) {
	items, pos := twoColumnFixture(t)

	testCases := []struct {
		name     string
		current  string
		dir      Direction
		expected string
		changed  bool
	}{
		{"next", "item-0", DirNext, "item-1", true},
		{"prev", "item-3", DirPrev, "item-2", true},
		{"prev at first clamps", "item-0", DirPrev, "item-0", false},
		{"next at last clamps", "item-5", DirNext, "item-5", false},
	}

	for _, tc := range testCases {
		got, changed := Move(items, pos, tc.current, tc.dir)
		if got != tc.expected || changed != tc.changed {
			t.Errorf("%s: expected (%s, %v), got (%s, %v)",
				tc.name, tc.expected, tc.changed, got, changed)
		}
	}
}

func TestMoveVerticalStaysInColumn(t *testing.T) {
	items, pos := twoColumnFixture(t)

	testCases := []struct {
		name     string
		current  string
		dir      Direction
		expected string
		changed  bool
	}{
		{"down within column", "item-0", DirDown, "item-2", true},
		{"up within column", "item-4", DirUp, "item-2", true},
		{"up from top is no-op", "item-1", DirUp, "item-1", false},
		{"down from bottom is no-op", "item-5", DirDown, "item-5", false},
	}

	for _, tc := range testCases {
		got, changed := Move(items, pos, tc.current, tc.dir)
		if got != tc.expected || changed != tc.changed {
			t.Errorf("%s: expected (%s, %v), got (%s, %v)",
				tc.name, tc.expected, tc.changed, got, changed)
		}
	}
}

func TestMoveHorizontal(t *testing.T) {
	items, pos := twoColumnFixture(t)

	// Columns are height-aligned here, so the nearest-center match is the
	// same row in the neighbor column.
	got, changed := Move(items, pos, "item-2", DirRight)
	if got != "item-3" || !changed {
		t.Errorf("right from item-2: expected item-3, got %s (changed=%v)", got, changed)
	}
	got, changed = Move(items, pos, "item-3", DirLeft)
	if got != "item-2" || !changed {
		t.Errorf("left from item-3: expected item-2, got %s (changed=%v)", got, changed)
	}

	// Left from the first column and right from the last are no-ops.
	if got, changed := Move(items, pos, "item-0", DirLeft); changed || got != "item-0" {
		t.Errorf("left from first column: expected no-op, got %s", got)
	}
	if got, changed := Move(items, pos, "item-5", DirRight); changed || got != "item-5" {
		t.Errorf("right from last column: expected no-op, got %s", got)
	}
}

// With mixed heights the horizontal move picks the neighbor whose vertical
// center is closest, not the same index.
func TestMoveHorizontalNearestCenter(t *testing.T) {
	// "tall" fills column 0, the three folders stack in column 1.
	items := []Item{
		{ID: "tall", Kind: KindPreviewable, Aspect: 0.25},
		{ID: "a", Kind: KindFolder},
		{ID: "b", Kind: KindFolder},
		{ID: "c", Kind: KindFolder},
	}
	p := Params{
		AvailableWidth:   210,
		IdealColumnWidth: 100,
		Spacing:          10,
		TileHeight:       100,
	}
	pos := Layout(items, p)

	// Column width 100, aspect 0.25 -> "tall" is 400 high, center 200.
	// Column 1 holds a (0..100), b (110..210), c (220..320); b's center
	// 160 is the closest.
	got, changed := Move(items, pos, "tall", DirRight)
	if got != "b" || !changed {
		t.Errorf("expected nearest-center match b, got %s (changed=%v)", got, changed)
	}
}

func TestMoveNoSelectionPicksFirst(t *testing.T) {
	items, pos := twoColumnFixture(t)

	for _, dir := range []Direction{DirPrev, DirNext, DirUp, DirDown, DirLeft, DirRight} {
		got, changed := Move(items, pos, "", dir)
		if got != "item-0" || !changed {
			t.Errorf("dir %v with no selection: expected item-0, got %s (changed=%v)", dir, got, changed)
		}
	}
}

func TestMoveEmptyList(t *testing.T) {
	pos := Layout(nil, Params{AvailableWidth: 210, IdealColumnWidth: 100, TileHeight: 100})
	if got, changed := Move(nil, pos, "", DirNext); changed || got != "" {
		t.Errorf("move on empty list: expected no-op, got %s", got)
	}
}

func TestSelectionReconcile(t *testing.T) {
	sel := NewSelection()
	sel.Add("keep-1")
	sel.Add("keep-2")
	sel.Add("gone")

	items := []Item{{ID: "keep-1"}, {ID: "keep-2"}, {ID: "new"}}
	sel.Reconcile(items)

	if !sel.Has("keep-1") || !sel.Has("keep-2") {
		t.Error("surviving identities lost their selected status")
	}
	if sel.Has("gone") {
		t.Error("vanished identity still selected")
	}

	// Reconciling again with the same list changes nothing.
	before := sel.Len()
	sel.Reconcile(items)
	if sel.Len() != before {
		t.Errorf("reconcile not idempotent: %d -> %d", before, sel.Len())
	}
}

func TestSelectionOperations(t *testing.T) {
	sel := NewSelection()

	sel.Toggle("a")
	if !sel.Has("a") {
		t.Error("toggle did not select")
	}
	sel.Toggle("a")
	if sel.Has("a") {
		t.Error("toggle did not deselect")
	}

	sel.Add("x")
	sel.Add("y")
	sel.Replace("z")
	if sel.Len() != 1 || !sel.Has("z") {
		t.Errorf("replace: expected only z, got %v", sel.IDs())
	}

	sel.Add("") // empty IDs are ignored
	if sel.Len() != 1 {
		t.Errorf("empty ID was added: %v", sel.IDs())
	}

	sel.Clear()
	if sel.Len() != 0 {
		t.Error("clear left entries behind")
	}
}

func TestMoveAfterListReplacement(t *testing.T) {
	items, pos := twoColumnFixture(t)
	sel := NewSelection()
	sel.Replace("item-3")
	if got, _ := Move(items, pos, "item-3", DirDown); got != "item-5" {
		t.Fatalf("precondition: expected item-5 below item-3, got %s", got)
	}

	// Replace the list: old identities vanish, navigation on the new
	// layout with a stale current ID selects the first item.
	newItems := make([]Item, 3)
	for i := range newItems {
		newItems[i] = Item{ID: fmt.Sprintf("fresh-%d", i), Kind: KindFolder}
	}
	newPos := Layout(newItems, Params{AvailableWidth: 210, IdealColumnWidth: 100, Spacing: 10, TileHeight: 100})
	sel.Reconcile(newItems)

	if sel.Len() != 0 {
		t.Errorf("stale selection survived replacement: %v", sel.IDs())
	}
	got, changed := Move(newItems, newPos, "item-3", DirDown)
	if got != "fresh-0" || !changed {
		t.Errorf("expected fresh-0 after replacement, got %s", got)
	}
}
