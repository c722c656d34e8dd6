package shoplist

import "github.com/dukerupert/larder/internal/grocery"

// StoreMode focuses the list on one category at a time. The zero value is
// inactive. An active StoreMode with no focused category means shopping is
// done.
type StoreMode struct {
	Active   bool               `json:"active"`
	Focused  grocery.Category   `json:"focused,omitempty"`
	Expanded []grocery.Category `json:"expanded,omitempty"`
}

// Activate enters store mode focused on the first remaining category.
// remaining must be in effective order.
func (s StoreMode) Activate(remaining []grocery.Category) StoreMode {
	next := StoreMode{Active: true}
	if len(remaining) > 0 {
		next.Focused = remaining[0]
	}
	return next
}

// Advance keeps the focus while the focused category still has unchecked
// items. Otherwise focus moves to the next remaining category after it in
// order, wrapping to the first remaining one. An inactive StoreMode is
// returned unchanged.
func (s StoreMode) Advance(order, remaining []grocery.Category) StoreMode {
	if !s.Active {
		return s
	}
	next := s
	next.Expanded = append([]grocery.Category(nil), s.Expanded...)
	if len(remaining) == 0 {
		next.Focused = ""
		return next
	}

	left := make(map[grocery.Category]bool, len(remaining))
	for _, c := range remaining {
		left[c] = true
	}
	if s.Focused != "" && left[s.Focused] {
		return next
	}

	start := indexOf(order, s.Focused)
	for i := 1; start >= 0 && i <= len(order); i++ {
		c := order[(start+i)%len(order)]
		if left[c] {
			next.Focused = c
			return next
		}
	}
	next.Focused = remaining[0]
	return next
}

func (s StoreMode) Deactivate() StoreMode {
	return StoreMode{}
}

// Expand opens c in addition to the focused category.
func (s StoreMode) Expand(c grocery.Category) StoreMode {
	if !s.Active || s.IsExpanded(c) {
		return s
	}
	next := s
	next.Expanded = append(append([]grocery.Category(nil), s.Expanded...), c)
	return next
}

// Collapse closes a category opened with Expand. The focused category stays
// open.
func (s StoreMode) Collapse(c grocery.Category) StoreMode {
	next := s
	next.Expanded = nil
	for _, e := range s.Expanded {
		if e != c {
			next.Expanded = append(next.Expanded, e)
		}
	}
	return next
}

// IsExpanded reports whether c renders expanded. Every category is expanded
// outside store mode.
func (s StoreMode) IsExpanded(c grocery.Category) bool {
	if !s.Active || c == s.Focused {
		return true
	}
	return indexOf(s.Expanded, c) >= 0
}

// Done reports whether store mode is active with nothing left to pick up.
func (s StoreMode) Done() bool {
	return s.Active && s.Focused == ""
}

func indexOf(order []grocery.Category, c grocery.Category) int {
	if c == "" {
		return -1
	}
	for i, o := range order {
		if o == c {
			return i
		}
	}
	return -1
}
