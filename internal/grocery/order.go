package grocery

// EffectiveOrder returns the stored override followed by every default
// category it does not mention, in store-flow order. Invalid and repeated
// entries in stored are ignored, so the result is always a permutation of
// DefaultOrder. A nil override yields DefaultOrder.
func EffectiveOrder(stored []Category) []Category {
	if stored == nil {
		return DefaultOrder()
	}

	out := make([]Category, 0, len(storeFlow))
	seen := make(map[Category]bool, len(storeFlow))
	for _, c := range stored {
		if !c.Valid() || seen[c] {
			continue
		}
		seen[c] = true
		out = append(out, c)
	}
	for _, c := range storeFlow {
		if !seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// Reorder moves category to targetIndex and returns the new sequence. The
// input is not modified. targetIndex is clamped to the valid range; if
// category is not present an unchanged copy is returned.
func Reorder(current []Category, category Category, targetIndex int) []Category {
	out := make([]Category, 0, len(current))
	from := -1
	for i, c := range current {
		if c == category && from == -1 {
			from = i
			continue
		}
		out = append(out, c)
	}
	if from == -1 {
		return append(out[:0:0], current...)
	}

	if targetIndex < 0 {
		targetIndex = 0
	}
	if targetIndex > len(out) {
		targetIndex = len(out)
	}

	out = append(out, "")
	copy(out[targetIndex+1:], out[targetIndex:])
	out[targetIndex] = category
	return out
}

// MoveBefore places category immediately before target.
func MoveBefore(current []Category, category, target Category) []Category {
	if category == target {
		return append([]Category(nil), current...)
	}
	without := Reorder(current, category, len(current))
	idx := indexOf(without, target)
	if idx == -1 {
		return append([]Category(nil), current...)
	}
	return Reorder(without, category, idx)
}

// MoveAfter places category immediately after target.
func MoveAfter(current []Category, category, target Category) []Category {
	if category == target {
		return append([]Category(nil), current...)
	}
	without := Reorder(current, category, len(current))
	idx := indexOf(without, target)
	if idx == -1 {
		return append([]Category(nil), current...)
	}
	return Reorder(without, category, idx+1)
}

func indexOf(order []Category, c Category) int {
	for i, o := range order {
		if o == c {
			return i
		}
	}
	return -1
}
