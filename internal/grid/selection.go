package grid

// Selection is the set of selected item identities. The consuming view-model
// owns the authoritative instance; the grid core only reads it for
// highlighting and mutates it through these explicit operations.
type Selection struct {
	ids map[string]bool
}

// NewSelection returns an empty selection set.
func NewSelection() *Selection {
	return &Selection{ids: make(map[string]bool)}
}

// Has reports whether the item is selected.
func (s *Selection) Has(id string) bool { return s.ids[id] }

// Len returns the number of selected items.
func (s *Selection) Len() int { return len(s.ids) }

// Add marks an item as selected.
func (s *Selection) Add(id string) {
	if id != "" {
		s.ids[id] = true
	}
}

// Remove unmarks an item.
func (s *Selection) Remove(id string) { delete(s.ids, id) }

// Toggle flips an item's selected state.
func (s *Selection) Toggle(id string) {
	if s.ids[id] {
		delete(s.ids, id)
	} else {
		s.Add(id)
	}
}

// Clear empties the selection.
func (s *Selection) Clear() {
	s.ids = make(map[string]bool)
}

// Replace clears the selection and selects exactly the given item.
func (s *Selection) Replace(id string) {
	s.Clear()
	s.Add(id)
}

// IDs returns the selected identities in unspecified order.
func (s *Selection) IDs() []string {
	out := make([]string, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	return out
}

// Reconcile drops identities that are no longer present in the item list.
// Identities still present keep their selected status. Calling it again with
// the same list is a no-op.
func (s *Selection) Reconcile(items []Item) {
	if len(s.ids) == 0 {
		return
	}
	present := make(map[string]bool, len(items))
	for _, it := range items {
		present[it.ID] = true
	}
	for id := range s.ids {
		if !present[id] {
			delete(s.ids, id)
		}
	}
}
