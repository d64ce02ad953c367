package model

import (
	"errors"
	"strings"

	"github.com/google/uuid"
)

// ErrEmptyTitle is returned when a title is blank after trimming.
var ErrEmptyTitle = errors.New("title cannot be empty")

// Item is the domain model for a todo entry.
// Field names on the wire match the remote collaborator's contract.
type Item struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Completed bool   `json:"completed"`
}

// NormalizeTitle trims surrounding whitespace and rejects blank input.
func NormalizeTitle(raw string) (string, error) {
	title := strings.TrimSpace(raw)
	if title == "" {
		return "", ErrEmptyTitle
	}
	return title, nil
}

// NewID returns a random identifier for a freshly created item.
func NewID() string { return uuid.NewString() }

// NewItem builds a pending item with a fresh identifier.
// The title is expected to be normalized already.
func NewItem(title string) Item {
	return Item{ID: NewID(), Title: title}
}
