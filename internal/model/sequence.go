package model

// Sequence helpers. Each returns a new slice and leaves its input untouched,
// so a caller can hold a speculative copy without affecting shared state.

// Clone copies items into a fresh slice. A nil input yields an empty slice.
func Clone(items []Item) []Item {
	out := make([]Item, len(items))
	copy(out, items)
	return out
}

// Append returns items with it added at the end.
func Append(items []Item, it Item) []Item {
	out := make([]Item, 0, len(items)+1)
	out = append(out, items...)
	return append(out, it)
}

// Without drops every item whose ID matches, keeping the relative order of the rest.
func Without(items []Item, id string) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		if it.ID != id {
			out = append(out, it)
		}
	}
	return out
}

// WithCompleted sets the completion flag of the matching item.
func WithCompleted(items []Item, id string, completed bool) []Item {
	out := Clone(items)
	for i := range out {
		if out[i].ID == id {
			out[i].Completed = completed
		}
	}
	return out
}

// WithTitle sets the title of the matching item.
func WithTitle(items []Item, id, title string) []Item {
	out := Clone(items)
	for i := range out {
		if out[i].ID == id {
			out[i].Title = title
		}
	}
	return out
}

// Find returns the first item with the given ID and its index.
func Find(items []Item, id string) (Item, int, bool) {
	for i, it := range items {
		if it.ID == id {
			return it, i, true
		}
	}
	return Item{}, -1, false
}

// Stats counts completed and pending items.
func Stats(items []Item) (done, pending int) {
	for _, it := range items {
		if it.Completed {
			done++
		} else {
			pending++
		}
	}
	return
}
