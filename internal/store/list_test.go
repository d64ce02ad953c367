package store

import (
	"testing"

	"github.com/Makepad-fr/tada-sync/internal/model"
)

func TestItemsReturnsCopy(t *testing.T) {
	l := New([]model.Item{{ID: "1", Title: "buy milk"}})
	got := l.Items()
	got[0].Title = "mutated"
	if l.Items()[0].Title != "buy milk" {
		t.Fatalf("store aliased by Items()")
	}
}

func TestNewCopiesSeed(t *testing.T) {
	seed := []model.Item{{ID: "1", Title: "a"}}
	l := New(seed)
	seed[0].Title = "b"
	if l.Items()[0].Title != "a" {
		t.Fatalf("store aliased seed slice")
	}
}

func TestReplaceBumpsRevision(t *testing.T) {
	l := New(nil)
	seq := []model.Item{{ID: "1"}, {ID: "2"}}
	l.Replace(seq)
	seq[0].ID = "changed"
	if l.Revision() != 1 {
		t.Errorf("revision: got %d, want 1", l.Revision())
	}
	if items := l.Items(); len(items) != 2 || items[0].ID != "1" {
		t.Errorf("store aliased replaced slice: %+v", items)
	}

	l.Replace(nil)
	if l.Revision() != 2 {
		t.Errorf("revision: got %d, want 2", l.Revision())
	}
	if l.Len() != 0 {
		t.Errorf("len: got %d, want 0", l.Len())
	}
}

func TestUpdateSeesCurrentSequence(t *testing.T) {
	l := New([]model.Item{{ID: "1", Title: "a"}})
	l.Update(func(cur []model.Item) []model.Item {
		return model.Append(cur, model.Item{ID: "2", Title: "b"})
	})
	l.Update(func(cur []model.Item) []model.Item {
		return model.WithCompleted(cur, "1", true)
	})
	items := l.Items()
	if len(items) != 2 || !items[0].Completed || items[1].ID != "2" {
		t.Fatalf("unexpected items: %+v", items)
	}
	if l.Revision() != 2 {
		t.Errorf("revision: got %d, want 2", l.Revision())
	}
}
