package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/sdam-project/sdam/internal/dispatcher"
	"github.com/sdam-project/sdam/internal/util"
)

func (s *Service) handleRecordingStart(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.StartRecording()
	return nil, nil
}

func (s *Service) handleRecordingStop(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.StopRecording()
	return nil, nil
}

func (s *Service) handlePlaybackToggle(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.TogglePlayback()
	return nil, nil
}

func (s *Service) handleRateOriginal(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.SetOriginalRate()
	return s.deps.Controller.Rate(), nil
}

func (s *Service) handleRateIncrease(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.IncreaseRate()
	return s.deps.Controller.Rate(), nil
}

func (s *Service) handleRateDecrease(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.DecreaseRate()
	return s.deps.Controller.Rate(), nil
}

// handleRateSet applies a preset. Args: [rate]
func (s *Service) handleRateSet(_ context.Context, e dispatcher.Event) (any, error) {
	rate, err := strconv.ParseFloat(strings.TrimSpace(e.Arg(0)), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid rate '%s'", e.Arg(0))
	}
	if !s.deps.Controller.SetRateAbsolute(rate) {
		return s.deps.Controller.Rate(), nil
	}
	return rate, nil
}

// timeEntryPrompt describes the shapes util.ParseTimeEntry accepts; a lone number is minutes.
const timeEntryPrompt = "Enter the time to jump to, in minute, minute:second or hour:minute:second format:"

// seekSeconds reads an optional seconds argument, falling back to def.
func seekSeconds(e dispatcher.Event, def uint) (uint, error) {
	if strings.TrimSpace(e.Arg(0)) == "" {
		return def, nil
	}
	return parseUint(e.Arg(0), "seconds")
}

// handleSeekForward skips ahead. Args: [seconds | "long"]
func (s *Service) handleSeekForward(_ context.Context, e dispatcher.Event) (any, error) {
	seconds, err := s.seekDistance(e)
	if err != nil {
		return nil, err
	}
	s.deps.Controller.SeekForward(seconds)
	return nil, nil
}

// handleSeekBackward skips back. Args: [seconds | "long"]
func (s *Service) handleSeekBackward(_ context.Context, e dispatcher.Event) (any, error) {
	seconds, err := s.seekDistance(e)
	if err != nil {
		return nil, err
	}
	s.deps.Controller.SeekBackward(seconds)
	return nil, nil
}

func (s *Service) seekDistance(e dispatcher.Event) (uint, error) {
	if strings.EqualFold(strings.TrimSpace(e.Arg(0)), "long") {
		return s.deps.SeekLongSeconds, nil
	}
	return seekSeconds(e, s.deps.SeekShortSeconds)
}

func (s *Service) handleSeekStart(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.SeekToStart()
	return nil, nil
}

func (s *Service) handleSeekEnd(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.SeekToEnd()
	return nil, nil
}

// handleSeekPercentage jumps to a share of the recording. Args: [percentage]
func (s *Service) handleSeekPercentage(_ context.Context, e dispatcher.Event) (any, error) {
	p, err := parseUint(e.Arg(0), "percentage")
	if err != nil {
		return nil, err
	}
	s.deps.Controller.SeekToPercentage(p)
	return nil, nil
}

// handleSeekTime jumps to a time entered as M, M:S or H:M:S. Args: [time]
// Without an argument the time is prompted for; empty input abandons the jump.
func (s *Service) handleSeekTime(ctx context.Context, e dispatcher.Event) (any, error) {
	text, ok := s.argOrPrompt(ctx, e, 0, "Jump to time", timeEntryPrompt)
	if !ok || strings.TrimSpace(text) == "" {
		return nil, nil
	}

	seconds, err := util.ParseTimeEntry(text)
	if err != nil {
		s.toast(fmt.Sprintf("'%s' is not a valid time", strings.TrimSpace(text)))
		return nil, err
	}
	s.deps.Controller.SeekToTime(seconds)
	return seconds, nil
}

func (s *Service) handleTimeTravelActivate(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.ActivateTimeTravel()
	return nil, nil
}

func (s *Service) handleTimeTravelDeactivate(_ context.Context, _ dispatcher.Event) (any, error) {
	s.deps.Controller.DeactivateTimeTravel()
	return nil, nil
}
