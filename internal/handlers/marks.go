package handlers

import (
	"context"
	"fmt"
	"strings"

	"github.com/sdam-project/sdam/internal/dispatcher"
	"github.com/sdam-project/sdam/internal/util"
	"github.com/sdam-project/sdam/pkg/core"
)

// handleMarkAdd adds a mark. Args: [category, label...]
func (s *Service) handleMarkAdd(_ context.Context, e dispatcher.Event) (any, error) {
	category, err := parseCategory(e.Arg(0))
	if err != nil {
		return nil, err
	}
	label := ""
	if len(e.Args) > 1 {
		label = strings.Join(e.Args[1:], " ")
	}
	m, ok := s.deps.Controller.AddMark(category, label)
	if !ok {
		return nil, nil
	}
	return m, nil
}

// handleMarkAddLabeled prompts for a label, then adds a mark. Args: [category]
func (s *Service) handleMarkAddLabeled(ctx context.Context, e dispatcher.Event) (any, error) {
	category, err := parseCategory(e.Arg(0))
	if err != nil {
		return nil, err
	}
	m, ok := s.deps.Controller.AddLabeledMark(ctx, category)
	if !ok {
		return nil, nil
	}
	return m, nil
}

func (s *Service) focused() any {
	if m, ok := s.deps.Controller.FocusedMark(); ok {
		return m
	}
	return nil
}

func (s *Service) handleMarkNext(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.JumpToNextMark()
	return s.focused(), nil
}

func (s *Service) handleMarkNextClosest(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.JumpToNextClosestMark()
	return s.focused(), nil
}

func (s *Service) handleMarkPrevious(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.JumpToPreviousMark()
	return s.focused(), nil
}

func (s *Service) handleMarkPreviousClosest(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.JumpToPreviousClosestMark()
	return s.focused(), nil
}

func (s *Service) handleMarkFocused(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.JumpToFocusedMark()
	return s.focused(), nil
}

// handleMarkEditLabel relabels the focused mark. Args: [label...]
// Without arguments the label is prompted for.
func (s *Service) handleMarkEditLabel(ctx context.Context, e dispatcher.Event) (any, error) {
	if len(e.Args) == 0 {
		s.deps.Controller.PromptFocusedMarkLabel(ctx)
	} else {
		s.deps.Controller.EditFocusedMarkLabel(strings.Join(e.Args, " "))
	}
	return s.focused(), nil
}

func (s *Service) handleMarkEditMove(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.MoveFocusedMarkToCurrentPosition()
	return s.focused(), nil
}

func (s *Service) handleMarkDelete(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.DeleteFocusedMark()
	return nil, nil
}

// ---- browse surface ----

// handleMarksList opens the browse surface and returns its rows.
func (s *Service) handleMarksList(_ context.Context, _ dispatcher.Event) (any, error) {
	marks := s.deps.Controller.ListMarks()

	s.mu.Lock()
	s.browsing = marks
	s.open = true
	s.mu.Unlock()

	return marks, nil
}

// browsed resolves a 1-based row of the open browse surface.
func (s *Service) browsed(arg string) (core.Mark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.open {
		return core.Mark{}, fmt.Errorf("mark list is not open")
	}
	i, err := parseUint(arg, "index")
	if err != nil {
		return core.Mark{}, err
	}
	if i < 1 || int(i) > len(s.browsing) {
		return core.Mark{}, fmt.Errorf("no mark %d in the list", i)
	}
	return s.browsing[i-1], nil
}

// handleMarksBrowse closes the browse surface, optionally choosing a row. Args: [index]
func (s *Service) handleMarksBrowse(_ context.Context, e dispatcher.Event) (any, error) {
	if strings.TrimSpace(e.Arg(0)) == "" {
		s.closeBrowse()
		s.deps.Controller.FinishBrowsing(0, false)
		return s.focused(), nil
	}

	m, err := s.browsed(e.Arg(0))
	if err != nil {
		s.toast(err.Error())
		return nil, err
	}
	s.closeBrowse()
	s.deps.Controller.FinishBrowsing(m.ID, true)
	return s.focused(), nil
}

func (s *Service) closeBrowse() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.browsing = nil
	s.open = false
}

// handleMarksLabel relabels a row of the browse surface. Args: [index, label...]
func (s *Service) handleMarksLabel(ctx context.Context, e dispatcher.Event) (any, error) {
	m, err := s.browsed(e.Arg(0))
	if err != nil {
		s.toast(err.Error())
		return nil, err
	}

	var text string
	if len(e.Args) > 1 {
		text = strings.Join(e.Args[1:], " ")
	} else {
		var ok bool
		text, ok = s.prompt(ctx, "Set label", fmt.Sprintf("Set label of mark %q to:", m.LabelText()))
		if !ok {
			return nil, nil
		}
	}

	current, found, err := s.deps.Marks.GetMark(m.ID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("mark %d no longer exists", m.ID)
	}
	if err := s.deps.Marks.EditMark(current.ID, current.FrameOffset, current.Category, util.NormalizeLabel(text)); err != nil {
		return nil, err
	}
	s.refreshBrowse()
	s.toast("Label changed")
	return nil, nil
}

// handleMarksDelete deletes a row of the browse surface. Args: [index]
func (s *Service) handleMarksDelete(_ context.Context, e dispatcher.Event) (any, error) {
	m, err := s.browsed(e.Arg(0))
	if err != nil {
		s.toast(err.Error())
		return nil, err
	}
	if err := s.deps.Marks.DeleteMark(m.ID); err != nil {
		return nil, err
	}
	s.refreshBrowse()
	s.toast("Mark deleted")
	return nil, nil
}

// refreshBrowse reloads the rows after an edit made from the surface.
func (s *Service) refreshBrowse() {
	marks := s.deps.Controller.ListMarks()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.open {
		s.browsing = marks
	}
}
