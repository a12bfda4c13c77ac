// internal/storage/memory/memory.go
package memory

import (
	"fmt"
	"sync"

	"github.com/sdam-project/sdam/internal/storage"
	"github.com/sdam-project/sdam/pkg/core"
)

// Backend keeps marks in a map guarded by a RWMutex
type Backend struct {
	marks     map[uint64]core.Mark
	idCounter uint64
	mu        sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		marks: make(map[uint64]core.Mark),
	}
}

// Init initializes the backend
func (b *Backend) Init() error {
	return nil
}

// Close cleans up resources
func (b *Backend) Close() error {
	return nil
}

// AddMark stores a new mark and assigns its id
func (b *Backend) AddMark(frame uint, category core.Category, label *string) (core.Mark, error) {
	if err := core.ValidateCategory(category); err != nil {
		return core.Mark{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	m := core.Mark{
		ID:          b.idCounter,
		FrameOffset: frame,
		Category:    category,
		Label:       storage.CloneLabel(label),
	}
	b.idCounter++
	b.marks[m.ID] = m
	return clone(m), nil
}

// EditMark replaces every field of an existing mark
func (b *Backend) EditMark(id uint64, frame uint, category core.Category, label *string) error {
	if err := core.ValidateCategory(category); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.marks[id]; !ok {
		return fmt.Errorf("%w: %d", storage.ErrMarkNotFound, id)
	}
	b.marks[id] = core.Mark{
		ID:          id,
		FrameOffset: frame,
		Category:    category,
		Label:       storage.CloneLabel(label),
	}
	return nil
}

// DeleteMark removes a mark
func (b *Backend) DeleteMark(id uint64) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.marks[id]; !ok {
		return fmt.Errorf("%w: %d", storage.ErrMarkNotFound, id)
	}
	delete(b.marks, id)
	return nil
}

// GetMark looks a mark up by id
func (b *Backend) GetMark(id uint64) (core.Mark, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := b.marks[id]
	if !ok {
		return core.Mark{}, false, nil
	}
	return clone(m), true, nil
}

// ListMarks returns all marks ordered by frame offset
func (b *Backend) ListMarks() ([]core.Mark, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot(), nil
}

// ClosestMarkAfter returns the nearest mark strictly after frame
func (b *Backend) ClosestMarkAfter(frame uint) (core.Mark, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := storage.ClosestAfter(b.snapshot(), frame)
	return m, ok, nil
}

// ClosestMarkBefore returns the nearest mark strictly before frame
func (b *Backend) ClosestMarkBefore(frame uint) (core.Mark, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	m, ok := storage.ClosestBefore(b.snapshot(), frame)
	return m, ok, nil
}

// ReplaceMarks swaps the whole collection; the next id follows the largest loaded id
func (b *Backend) ReplaceMarks(marks []core.Mark) error {
	next := make(map[uint64]core.Mark, len(marks))
	var counter uint64
	for _, m := range marks {
		if err := core.ValidateCategory(m.Category); err != nil {
			return err
		}
		if _, dup := next[m.ID]; dup {
			return fmt.Errorf("duplicate mark id %d", m.ID)
		}
		next[m.ID] = clone(m)
		if m.ID+1 > counter {
			counter = m.ID + 1
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.marks = next
	b.idCounter = counter
	return nil
}

// snapshot copies the marks in order; callers hold the lock
func (b *Backend) snapshot() []core.Mark {
	out := make([]core.Mark, 0, len(b.marks))
	for _, m := range b.marks {
		out = append(out, clone(m))
	}
	storage.SortMarks(out)
	return out
}

func clone(m core.Mark) core.Mark {
	m.Label = storage.CloneLabel(m.Label)
	return m
}
