// Package syncer keeps a List Store in step with the remote todo API.
//
// Create is pessimistic: the item is appended only after the server
// confirms it. Toggle and rename work on a speculative copy and commit it
// after confirmation; on failure the copy is dropped and the store is
// left as it was. Only one toggle or rename per item is in flight at a
// time. Delete and delete-all are local only.
//
// Every wholesale replacement of the list (load, delete-all, close) moves
// the syncer to a new epoch. A toggle or rename response for a request
// issued in an older epoch is discarded with ErrStale. A confirmed create
// survives a reload and is dropped only after delete-all or close.
package syncer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/Makepad-fr/tada-sync/internal/cache"
	"github.com/Makepad-fr/tada-sync/internal/logging"
	"github.com/Makepad-fr/tada-sync/internal/model"
	"github.com/Makepad-fr/tada-sync/internal/store"
)

var (
	// ErrNotFound is returned for an identifier not in the store.
	ErrNotFound = errors.New("item not found")
	// ErrStale is returned when a response arrives after the list was replaced.
	ErrStale = errors.New("response discarded: list changed while request was in flight")
	// ErrClosed is returned by operations started after Close.
	ErrClosed = errors.New("syncer closed")
	// ErrBusy is returned when the item already has a toggle or rename in flight.
	ErrBusy = errors.New("item has a request in flight")
)

// Remote is the subset of the API client the syncer needs.
type Remote interface {
	List(ctx context.Context) ([]model.Item, error)
	Create(ctx context.Context, it model.Item) error
	UpdateToggle(ctx context.Context, id string, completed bool) error
	UpdateTitle(ctx context.Context, id, title string) error
}

// Syncer is safe for concurrent use.
type Syncer struct {
	list   *store.List
	remote Remote
	cache  *cache.Cache
	logger *log.Logger

	life   context.Context
	cancel context.CancelFunc

	mu     sync.Mutex
	epoch  uint64 // bumped by load, delete-all and close
	wipes  uint64 // bumped by delete-all and close
	busy   map[string]struct{}
	closed bool
}

// ticket is the state a request was issued against.
type ticket struct {
	epoch, wipes uint64
}

// Option configures a Syncer.
type Option func(*Syncer)

// WithCache enables the write-behind snapshot.
func WithCache(c *cache.Cache) Option { return func(s *Syncer) { s.cache = c } }

// WithLogger sets the logger for failed intents.
func WithLogger(l *log.Logger) Option { return func(s *Syncer) { s.logger = l } }

// WithStore uses l instead of a fresh empty store.
func WithStore(l *store.List) Option { return func(s *Syncer) { s.list = l } }

// New returns a syncer with an empty store. Call Load to populate it.
func New(r Remote, opts ...Option) *Syncer {
	life, cancel := context.WithCancel(context.Background())
	s := &Syncer{
		remote: r,
		logger: logging.Discard(),
		life:   life,
		cancel: cancel,
		busy:   make(map[string]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	if s.list == nil {
		s.list = store.New(nil)
	}
	return s
}

// Store exposes the underlying list for rendering.
func (s *Syncer) Store() *store.List { return s.list }

// Items returns a copy of the current list.
func (s *Syncer) Items() []model.Item { return s.list.Items() }

// Load replaces the store with the server's list. On failure the store
// keeps its previous contents.
func (s *Syncer) Load(ctx context.Context) error {
	ctx, done, tk, err := s.begin(ctx)
	if err != nil {
		return err
	}
	defer done()

	items, err := s.remote.List(ctx)
	if err != nil {
		s.logger.Error("load failed", "err", err)
		return fmt.Errorf("load: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != tk.epoch {
		return ErrStale
	}
	s.epoch++
	s.list.Replace(items)
	return nil
}

// Add validates raw, creates the item remotely and appends it once the
// server accepts it. Blank titles fail with model.ErrEmptyTitle and send
// nothing.
func (s *Syncer) Add(ctx context.Context, raw string) (model.Item, error) {
	title, err := model.NormalizeTitle(raw)
	if err != nil {
		return model.Item{}, err
	}
	it := model.NewItem(title)

	ctx, done, tk, err := s.begin(ctx)
	if err != nil {
		return model.Item{}, err
	}
	defer done()

	if err := s.remote.Create(ctx, it); err != nil {
		s.logger.Error("create failed", "title", title, "err", err)
		return model.Item{}, fmt.Errorf("create: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.wipes != tk.wipes {
		s.logger.Debug("discarding create after wipe", "id", it.ID)
		return model.Item{}, ErrStale
	}
	// A reload that finished first may already hold the item.
	s.list.Update(func(cur []model.Item) []model.Item {
		if _, _, ok := model.Find(cur, it.ID); ok {
			return cur
		}
		return model.Append(cur, it)
	})
	return it, nil
}

// Toggle flips the completion flag of id and returns the updated item.
// On failure the returned item is the unchanged current one.
func (s *Syncer) Toggle(ctx context.Context, id string) (model.Item, error) {
	cur, _, ok := model.Find(s.list.Items(), id)
	if !ok {
		return model.Item{}, fmt.Errorf("toggle %s: %w", id, ErrNotFound)
	}
	if err := s.claim(id); err != nil {
		return cur, fmt.Errorf("toggle %s: %w", id, err)
	}
	defer s.unclaim(id)

	// Re-read under the claim so the flip is based on the committed value.
	cur, _, ok = model.Find(s.list.Items(), id)
	if !ok {
		return model.Item{}, fmt.Errorf("toggle %s: %w", id, ErrNotFound)
	}
	next := cur
	next.Completed = !cur.Completed

	ctx, done, tk, err := s.begin(ctx)
	if err != nil {
		return cur, err
	}
	defer done()

	if err := s.remote.UpdateToggle(ctx, id, next.Completed); err != nil {
		s.logger.Error("toggle failed", "id", id, "err", err)
		return cur, fmt.Errorf("toggle: %w", err)
	}
	if err := s.commit(tk, func(items []model.Item) []model.Item {
		return model.WithCompleted(items, id, next.Completed)
	}); err != nil {
		return cur, err
	}
	return next, nil
}

// Rename sets the title of id to the trimmed raw value. Blank titles fail
// with model.ErrEmptyTitle and send nothing.
func (s *Syncer) Rename(ctx context.Context, id, raw string) (model.Item, error) {
	title, err := model.NormalizeTitle(raw)
	if err != nil {
		return model.Item{}, err
	}
	cur, _, ok := model.Find(s.list.Items(), id)
	if !ok {
		return model.Item{}, fmt.Errorf("rename %s: %w", id, ErrNotFound)
	}
	if err := s.claim(id); err != nil {
		return cur, fmt.Errorf("rename %s: %w", id, err)
	}
	defer s.unclaim(id)

	next := cur
	next.Title = title

	ctx, done, tk, err := s.begin(ctx)
	if err != nil {
		return cur, err
	}
	defer done()

	if err := s.remote.UpdateTitle(ctx, id, title); err != nil {
		s.logger.Error("rename failed", "id", id, "err", err)
		return cur, fmt.Errorf("rename: %w", err)
	}
	if err := s.commit(tk, func(items []model.Item) []model.Item {
		return model.WithTitle(items, id, title)
	}); err != nil {
		return cur, err
	}
	return next, nil
}

// Delete removes id locally and writes the snapshot. The server copy is
// not touched.
func (s *Syncer) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, _, ok := model.Find(s.list.Items(), id); !ok {
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	var next []model.Item
	s.list.Update(func(cur []model.Item) []model.Item {
		next = model.Without(cur, id)
		return next
	})
	if err := s.cache.Save(next); err != nil {
		s.logger.Warn("cache write failed", "err", err)
	}
	return nil
}

// DeleteAll empties the list and clears the snapshot. The server copy is
// not touched. In-flight responses are discarded.
func (s *Syncer) DeleteAll() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.epoch++
	s.wipes++
	s.list.Replace(nil)
	if err := s.cache.Clear(); err != nil {
		s.logger.Warn("cache clear failed", "err", err)
	}
	return nil
}

// Close ends the syncer's lifetime. In-flight requests are cancelled and
// their responses discarded.
func (s *Syncer) Close() {
	s.mu.Lock()
	s.closed = true
	s.epoch++
	s.wipes++
	s.mu.Unlock()
	s.cancel()
}

// begin records the current epoch and ties ctx to the syncer's lifetime.
func (s *Syncer) begin(ctx context.Context) (context.Context, func(), ticket, error) {
	s.mu.Lock()
	closed, tk := s.closed, ticket{epoch: s.epoch, wipes: s.wipes}
	s.mu.Unlock()
	if closed {
		return nil, nil, ticket{}, ErrClosed
	}
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.life, cancel)
	return ctx, func() {
		stop()
		cancel()
	}, tk, nil
}

// claim marks id as having a toggle or rename in flight.
func (s *Syncer) claim(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if _, ok := s.busy[id]; ok {
		return ErrBusy
	}
	s.busy[id] = struct{}{}
	return nil
}

func (s *Syncer) unclaim(id string) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
}

func (s *Syncer) commit(tk ticket, fn func([]model.Item) []model.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.epoch != tk.epoch {
		s.logger.Debug("discarding stale response", "issued", tk.epoch, "current", s.epoch)
		return ErrStale
	}
	s.list.Update(fn)
	return nil
}
