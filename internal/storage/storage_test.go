// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/sdam-project/sdam/internal/storage"
	"github.com/sdam-project/sdam/pkg/core"
	"github.com/stretchr/testify/assert"
)

func marksAt(frames ...uint) []core.Mark {
	out := make([]core.Mark, len(frames))
	for i, f := range frames {
		out[i] = core.Mark{ID: uint64(i), FrameOffset: f, Category: core.CategoryOne}
	}
	return out
}

func TestClosestAfterIsStrict(t *testing.T) {
	marks := marksAt(900, 100, 500)

	m, ok := storage.ClosestAfter(marks, 100)
	assert.True(t, ok)
	assert.Equal(t, uint(500), m.FrameOffset)

	m, ok = storage.ClosestAfter(marks, 0)
	assert.True(t, ok)
	assert.Equal(t, uint(100), m.FrameOffset)

	_, ok = storage.ClosestAfter(marks, 900)
	assert.False(t, ok)
}

func TestClosestBeforeIsStrict(t *testing.T) {
	marks := marksAt(900, 100, 500)

	m, ok := storage.ClosestBefore(marks, 500)
	assert.True(t, ok)
	assert.Equal(t, uint(100), m.FrameOffset)

	m, ok = storage.ClosestBefore(marks, 10000)
	assert.True(t, ok)
	assert.Equal(t, uint(900), m.FrameOffset)

	_, ok = storage.ClosestBefore(marks, 100)
	assert.False(t, ok)
}

func TestClosestTiesResolveToLowerID(t *testing.T) {
	marks := []core.Mark{
		{ID: 7, FrameOffset: 300},
		{ID: 2, FrameOffset: 300},
	}

	m, _ := storage.ClosestAfter(marks, 0)
	assert.Equal(t, uint64(2), m.ID)

	m, _ = storage.ClosestBefore(marks, 1000)
	assert.Equal(t, uint64(2), m.ID)
}

func TestSortMarks(t *testing.T) {
	marks := []core.Mark{
		{ID: 3, FrameOffset: 50},
		{ID: 1, FrameOffset: 50},
		{ID: 0, FrameOffset: 10},
	}
	storage.SortMarks(marks)

	assert.Equal(t, []uint64{0, 1, 3}, []uint64{marks[0].ID, marks[1].ID, marks[2].ID})
}

func TestCloneLabel(t *testing.T) {
	assert.Nil(t, storage.CloneLabel(nil))

	l := "a"
	c := storage.CloneLabel(&l)
	l = "b"
	assert.Equal(t, "a", *c)
}
