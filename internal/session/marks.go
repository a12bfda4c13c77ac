package session

import (
	"context"
	"fmt"

	"github.com/sdam-project/sdam/internal/util"
	"github.com/sdam-project/sdam/pkg/core"
)

// AddMark creates a mark at the mode-dependent reference position.
// An empty label means no label. ok is false when no mark was created.
func (c *Controller) AddMark(category core.Category, label string) (core.Mark, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.addMark(category, util.NormalizeLabel(label))
}

// AddLabeledMark prompts for a label and then adds the mark.
// A cancelled prompt creates nothing.
func (c *Controller) AddLabeledMark(ctx context.Context, category core.Category) (core.Mark, bool) {
	text, ok := c.prompt(ctx, "Add labeled mark", "Enter label of the new mark:")
	if !ok {
		return core.Mark{}, false
	}
	return c.AddMark(category, text)
}

// referencePosition is "now" for the current mode: the listening cursor while
// time travelling, the live edge while plainly recording, the cursor otherwise.
func (c *Controller) referencePosition() (uint, bool) {
	switch {
	case c.timeTravel:
		return c.engine.CurrentPosition()
	case c.engine.IsRecording():
		return c.engine.TotalLength(), true
	default:
		return c.engine.CurrentPosition()
	}
}

func (c *Controller) addMark(category core.Category, label *string) (core.Mark, bool) {
	position, ok := c.referencePosition()
	if !ok {
		return core.Mark{}, false
	}

	m, err := c.marks.AddMark(position, category, label)
	if err != nil {
		c.logger.Warn("Failed to add mark", "frame", position, "category", category, "error", err)
		return core.Mark{}, false
	}
	c.logger.Debug("Mark added", "id", m.ID, "frame", m.FrameOffset, "category", m.Category)
	c.notifier.Toast("Mark added")
	return m, true
}

// ---- navigation ----

// JumpToNextMark focuses the mark after the focused one, or the next closest
// mark from the playback position when nothing is focused.
func (c *Controller) JumpToNextMark() {
	c.mu.Lock()
	defer c.mu.Unlock()

	focused, ok := c.resolveFocus()
	if !ok {
		c.jumpToNextClosestMark()
		return
	}
	c.focusFound(c.marks.ClosestMarkAfter(focused.FrameOffset))
}

// JumpToNextClosestMark focuses the first mark after the playback position,
// treating a missing position as frame 0.
func (c *Controller) JumpToNextClosestMark() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jumpToNextClosestMark()
}

func (c *Controller) jumpToNextClosestMark() {
	position, ok := c.engine.CurrentPosition()
	if !ok {
		position = 0
	}
	c.focusFound(c.marks.ClosestMarkAfter(position))
}

// JumpToPreviousMark focuses the mark before the focused one, or the previous
// closest mark from the playback position when nothing is focused.
func (c *Controller) JumpToPreviousMark() {
	c.mu.Lock()
	defer c.mu.Unlock()

	focused, ok := c.resolveFocus()
	if !ok {
		c.jumpToPreviousClosestMark()
		return
	}
	c.focusFound(c.marks.ClosestMarkBefore(focused.FrameOffset))
}

// JumpToPreviousClosestMark focuses the last mark before the playback position.
// Without a position it does nothing.
func (c *Controller) JumpToPreviousClosestMark() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.jumpToPreviousClosestMark()
}

func (c *Controller) jumpToPreviousClosestMark() {
	position, ok := c.engine.CurrentPosition()
	if !ok {
		return
	}
	c.focusFound(c.marks.ClosestMarkBefore(position))
}

// focusFound takes the result of a closest query and, when a mark was found,
// focuses it and seeks to it.
func (c *Controller) focusFound(m core.Mark, found bool, err error) {
	if err != nil {
		c.logger.Warn("Closest mark query failed", "error", err)
		return
	}
	if !found {
		c.notifier.Toast("No more marks")
		return
	}
	c.focus(m.ID)
	c.engine.SeekToFrame(m.FrameOffset)
}

// JumpToFocusedMark seeks to the focused mark.
func (c *Controller) JumpToFocusedMark() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if m, ok := c.resolveFocus(); ok {
		c.engine.SeekToFrame(m.FrameOffset)
	}
}

// FocusedMark returns the focused mark as currently stored.
func (c *Controller) FocusedMark() (core.Mark, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.resolveFocus()
}

// ---- editing ----

// EditFocusedMarkLabel replaces the label of the focused mark. Empty means no label.
func (c *Controller) EditFocusedMarkLabel(label string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.resolveFocus()
	if !ok {
		return
	}
	if err := c.marks.EditMark(m.ID, m.FrameOffset, m.Category, util.NormalizeLabel(label)); err != nil {
		c.logger.Warn("Failed to edit mark label", "id", m.ID, "error", err)
		return
	}
	c.notifier.Toast("Label changed")
}

// PromptFocusedMarkLabel asks for a new label for the focused mark.
// A cancelled prompt changes nothing.
func (c *Controller) PromptFocusedMarkLabel(ctx context.Context) {
	m, ok := c.FocusedMark()
	if !ok {
		return
	}

	text, ok := c.prompt(ctx, "Set label", fmt.Sprintf("Set label of mark %q to:", m.LabelText()))
	if !ok {
		return
	}
	c.EditFocusedMarkLabel(text)
}

// MoveFocusedMarkToCurrentPosition moves the focused mark to the playback position.
func (c *Controller) MoveFocusedMarkToCurrentPosition() {
	c.mu.Lock()
	defer c.mu.Unlock()

	m, ok := c.resolveFocus()
	if !ok {
		return
	}
	position, ok := c.engine.CurrentPosition()
	if !ok {
		return
	}
	if err := c.marks.EditMark(m.ID, position, m.Category, m.Label); err != nil {
		c.logger.Warn("Failed to move mark", "id", m.ID, "frame", position, "error", err)
		return
	}
	c.notifier.Toast("Mark moved")
}

// DeleteFocusedMark deletes the focused mark and clears the focus.
func (c *Controller) DeleteFocusedMark() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasFocus {
		return
	}
	if err := c.marks.DeleteMark(c.focusedID); err != nil {
		c.logger.Warn("Failed to delete mark", "id", c.focusedID, "error", err)
		return
	}
	c.clearFocus()
	c.notifier.Toast("Mark deleted")
}

// ---- browsing ----

// ListMarks returns every mark for the browse surface.
func (c *Controller) ListMarks() []core.Mark {
	marks, err := c.marks.ListMarks()
	if err != nil {
		c.logger.Warn("Failed to list marks", "error", err)
		return nil
	}
	return marks
}

// FinishBrowsing is called when the browse surface closes. A chosen mark is
// focused and sought to; otherwise the previously focused mark is re-fetched
// and dropped if it no longer exists.
func (c *Controller) FinishBrowsing(chosenID uint64, chosen bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if chosen {
		c.focus(chosenID)
		if m, ok := c.resolveFocus(); ok {
			c.engine.SeekToFrame(m.FrameOffset)
		}
		return
	}

	if !c.hasFocus {
		return
	}
	_, found, err := c.marks.GetMark(c.focusedID)
	if err != nil {
		c.logger.Warn("Failed to re-fetch focused mark", "id", c.focusedID, "error", err)
		return
	}
	if !found {
		c.clearFocus()
	}
}

// ---- focus bookkeeping ----

func (c *Controller) focus(id uint64) {
	c.focusedID = id
	c.hasFocus = true
}

func (c *Controller) clearFocus() {
	c.focusedID = 0
	c.hasFocus = false
}

// resolveFocus looks the focused mark up in the store. A mark that vanished
// behind the Controller's back reads as no focus without clearing the id.
func (c *Controller) resolveFocus() (core.Mark, bool) {
	if !c.hasFocus {
		return core.Mark{}, false
	}
	m, found, err := c.marks.GetMark(c.focusedID)
	if err != nil {
		c.logger.Warn("Failed to resolve focused mark", "id", c.focusedID, "error", err)
		return core.Mark{}, false
	}
	return m, found
}
