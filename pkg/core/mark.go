// pkg/core/mark.go
package core

import (
	"errors"
	"fmt"
)

// ErrInvalidCategory is returned when a mark category falls outside the palette.
var ErrInvalidCategory = errors.New("invalid mark category")

// Category is one of the fixed mark palette entries.
type Category int

const (
	CategoryOne Category = iota + 1
	CategoryTwo
	CategoryThree
	CategoryFour
	CategoryFive
)

// MinCategory and MaxCategory bound the palette.
const (
	MinCategory = CategoryOne
	MaxCategory = CategoryFive
)

// Valid reports whether c is part of the palette.
func (c Category) Valid() bool {
	return c >= MinCategory && c <= MaxCategory
}

// ValidateCategory returns ErrInvalidCategory wrapped with the offending value.
func ValidateCategory(c Category) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %d", ErrInvalidCategory, c)
	}
	return nil
}

// Mark is a categorized, optionally labeled bookmark at a frame offset.
// A nil Label means "no label"; the empty string is never stored.
type Mark struct {
	ID          uint64
	FrameOffset uint
	Category    Category
	Label       *string
}

// HasLabel reports whether the mark carries a label.
func (m Mark) HasLabel() bool {
	return m.Label != nil
}

// LabelText returns the label or an empty string when none is set.
func (m Mark) LabelText() string {
	if m.Label == nil {
		return ""
	}
	return *m.Label
}
