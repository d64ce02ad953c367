// Package store holds the in-memory, ordered list of items shown by the views.
//
// There is no delta API. Every change computes a new full sequence and
// replaces the old one. Views re-read Items after each change.
package store

import (
	"sync"

	"github.com/Makepad-fr/tada-sync/internal/model"
)

// List is the authoritative ordered collection of items for one view.
type List struct {
	mu       sync.Mutex
	items    []model.Item
	revision uint64
}

// New returns a list seeded with a copy of items.
func New(items []model.Item) *List {
	return &List{items: model.Clone(items)}
}

// Items returns a copy of the current sequence.
func (l *List) Items() []model.Item {
	l.mu.Lock()
	defer l.mu.Unlock()
	return model.Clone(l.items)
}

// Len reports the number of items.
func (l *List) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.items)
}

// Revision increases by one on every replace.
func (l *List) Revision() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.revision
}

// Replace swaps in a copy of items.
func (l *List) Replace(items []model.Item) {
	l.Update(func([]model.Item) []model.Item { return items })
}

// Update computes the next sequence from the current one and replaces it.
// fn receives a copy and may return it modified.
func (l *List) Update(fn func(current []model.Item) []model.Item) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.items = model.Clone(fn(model.Clone(l.items)))
	l.revision++
}
