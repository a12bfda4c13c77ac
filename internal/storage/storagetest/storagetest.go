// Package storagetest holds the behaviour every storage.Backend must share.
package storagetest

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdam-project/sdam/internal/storage"
	"github.com/sdam-project/sdam/pkg/core"
)

// Factory returns an initialized, empty backend.
type Factory func(t *testing.T) storage.Backend

// Run exercises b against the shared Backend contract.
func Run(t *testing.T, newBackend Factory) {
	t.Run("IDs", func(t *testing.T) { testIDs(t, newBackend(t)) })
	t.Run("GetEditDelete", func(t *testing.T) { testGetEditDelete(t, newBackend(t)) })
	t.Run("InvalidCategory", func(t *testing.T) { testInvalidCategory(t, newBackend(t)) })
	t.Run("ClosestAfter", func(t *testing.T) { testClosestAfter(t, newBackend(t)) })
	t.Run("ClosestBefore", func(t *testing.T) { testClosestBefore(t, newBackend(t)) })
	t.Run("ListOrder", func(t *testing.T) { testListOrder(t, newBackend(t)) })
	t.Run("Replace", func(t *testing.T) { testReplace(t, newBackend(t)) })
}

func add(t *testing.T, b storage.Backend, frame uint) core.Mark {
	t.Helper()
	m, err := b.AddMark(frame, core.CategoryOne, nil)
	require.NoError(t, err)
	return m
}

func testIDs(t *testing.T, b storage.Backend) {
	m0 := add(t, b, 0)
	m1 := add(t, b, 0)
	m2 := add(t, b, 0)
	assert.Equal(t, []uint64{0, 1, 2}, []uint64{m0.ID, m1.ID, m2.ID})

	require.NoError(t, b.DeleteMark(m1.ID))
	m3 := add(t, b, 0)
	assert.Equal(t, uint64(3), m3.ID)

	require.NoError(t, b.DeleteMark(m3.ID))
	m4 := add(t, b, 0)
	assert.Equal(t, uint64(4), m4.ID, "the newest id is not handed out again")

	marks, err := b.ListMarks()
	require.NoError(t, err)
	assert.Len(t, marks, 3)
}

func testGetEditDelete(t *testing.T, b storage.Backend) {
	label := "intro"
	m, err := b.AddMark(250, core.CategoryThree, &label)
	require.NoError(t, err)

	got, found, err := b.GetMark(m.ID)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, uint(250), got.FrameOffset)
	assert.Equal(t, core.CategoryThree, got.Category)
	assert.Equal(t, "intro", got.LabelText())

	require.NoError(t, b.EditMark(m.ID, 300, core.CategoryFive, nil))
	got, _, err = b.GetMark(m.ID)
	require.NoError(t, err)
	assert.Equal(t, uint(300), got.FrameOffset)
	assert.Equal(t, core.CategoryFive, got.Category)
	assert.Nil(t, got.Label)

	require.NoError(t, b.DeleteMark(m.ID))
	_, found, err = b.GetMark(m.ID)
	require.NoError(t, err)
	assert.False(t, found)

	assert.True(t, errors.Is(b.DeleteMark(m.ID), storage.ErrMarkNotFound))
	assert.True(t, errors.Is(b.EditMark(m.ID, 1, core.CategoryOne, nil), storage.ErrMarkNotFound))
}

func testInvalidCategory(t *testing.T, b storage.Backend) {
	_, err := b.AddMark(1, 0, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidCategory))

	_, err = b.AddMark(1, 6, nil)
	assert.True(t, errors.Is(err, core.ErrInvalidCategory))

	marks, err := b.ListMarks()
	require.NoError(t, err)
	assert.Empty(t, marks)
}

func closestIDs(t *testing.T, query func(uint) (core.Mark, bool, error), offsets []uint) []*uint64 {
	t.Helper()
	out := make([]*uint64, len(offsets))
	for i, off := range offsets {
		m, found, err := query(off)
		require.NoError(t, err)
		if found {
			id := m.ID
			out[i] = &id
		}
	}
	return out
}

func idp(id uint64) *uint64 { return &id }

func testClosestAfter(t *testing.T, b storage.Backend) {
	// added out of order so the search passes several candidates
	add(t, b, 3)
	add(t, b, 7)
	add(t, b, 5)

	got := closestIDs(t, b.ClosestMarkAfter, []uint{1, 3, 4, 5, 8})
	assert.Equal(t, []*uint64{idp(0), idp(2), idp(2), idp(1), nil}, got)
}

func testClosestBefore(t *testing.T, b storage.Backend) {
	add(t, b, 3)
	add(t, b, 5)
	add(t, b, 7)

	got := closestIDs(t, b.ClosestMarkBefore, []uint{1, 3, 4, 5, 8})
	assert.Equal(t, []*uint64{nil, nil, idp(0), idp(0), idp(2)}, got)
}

func testListOrder(t *testing.T, b storage.Backend) {
	add(t, b, 900)
	add(t, b, 100)
	add(t, b, 500)

	marks, err := b.ListMarks()
	require.NoError(t, err)
	require.Len(t, marks, 3)
	assert.Equal(t, []uint{100, 500, 900}, []uint{marks[0].FrameOffset, marks[1].FrameOffset, marks[2].FrameOffset})
}

func testReplace(t *testing.T, b storage.Backend) {
	add(t, b, 1)

	label := "kept"
	require.NoError(t, b.ReplaceMarks([]core.Mark{
		{ID: 4, FrameOffset: 40, Category: core.CategoryTwo, Label: &label},
		{ID: 9, FrameOffset: 90, Category: core.CategoryOne},
	}))

	marks, err := b.ListMarks()
	require.NoError(t, err)
	require.Len(t, marks, 2)
	assert.Equal(t, uint64(4), marks[0].ID)
	assert.Equal(t, "kept", marks[0].LabelText())

	m := add(t, b, 5)
	assert.Equal(t, uint64(10), m.ID)

	require.NoError(t, b.ReplaceMarks(nil))
	marks, err = b.ListMarks()
	require.NoError(t, err)
	assert.Empty(t, marks)
	assert.Equal(t, uint64(0), add(t, b, 5).ID)
}
