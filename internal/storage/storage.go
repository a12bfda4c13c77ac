// internal/storage/storage.go
package storage

import (
	"errors"
	"sort"

	"github.com/sdam-project/sdam/pkg/core"
)

// ErrMarkNotFound is returned when an id does not name a stored mark.
var ErrMarkNotFound = errors.New("mark not found")

// Backend is the interface all mark store implementations must satisfy
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Mark CRUD (ids are assigned by the backend)
	AddMark(frame uint, category core.Category, label *string) (core.Mark, error)
	EditMark(id uint64, frame uint, category core.Category, label *string) error
	DeleteMark(id uint64) error
	GetMark(id uint64) (core.Mark, bool, error)

	// Ordered access, closest queries are strict
	ListMarks() ([]core.Mark, error)
	ClosestMarkAfter(frame uint) (core.Mark, bool, error)
	ClosestMarkBefore(frame uint) (core.Mark, bool, error)

	// ReplaceMarks swaps the whole collection, keeping the given ids.
	ReplaceMarks(marks []core.Mark) error
}

// SortMarks orders marks by frame offset, then id.
func SortMarks(marks []core.Mark) {
	sort.Slice(marks, func(i, j int) bool {
		if marks[i].FrameOffset != marks[j].FrameOffset {
			return marks[i].FrameOffset < marks[j].FrameOffset
		}
		return marks[i].ID < marks[j].ID
	})
}

// ClosestAfter returns the mark with the smallest offset strictly greater than frame.
// Ties on offset resolve to the lower id.
func ClosestAfter(marks []core.Mark, frame uint) (core.Mark, bool) {
	var best core.Mark
	found := false
	for _, m := range marks {
		if m.FrameOffset <= frame {
			continue
		}
		if !found || m.FrameOffset < best.FrameOffset || (m.FrameOffset == best.FrameOffset && m.ID < best.ID) {
			best, found = m, true
		}
	}
	return best, found
}

// ClosestBefore returns the mark with the largest offset strictly less than frame.
// Ties on offset resolve to the lower id.
func ClosestBefore(marks []core.Mark, frame uint) (core.Mark, bool) {
	var best core.Mark
	found := false
	for _, m := range marks {
		if m.FrameOffset >= frame {
			continue
		}
		if !found || m.FrameOffset > best.FrameOffset || (m.FrameOffset == best.FrameOffset && m.ID < best.ID) {
			best, found = m, true
		}
	}
	return best, found
}

// CloneLabel copies a label so stored marks never alias caller memory.
func CloneLabel(label *string) *string {
	if label == nil {
		return nil
	}
	l := *label
	return &l
}
