// Package util provides the position and time helpers shared by the session, the shell and the display poll.
package util

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/sdam-project/sdam/pkg/core"
)

// ErrInvalidTimeEntry is returned by ParseTimeEntry for text that is not a time.
var ErrInvalidTimeEntry = errors.New("invalid time entry")

// FrameOffsetToTime renders a frame offset as MM:SS.
// Minutes are not wrapped into hours.
func FrameOffsetToTime(frame uint) string {
	minute := frame / core.FramesPerMinute
	second := (frame % core.FramesPerMinute) / core.FramesPerSecond
	return fmt.Sprintf("%02d:%02d", minute, second)
}

// FormatPosition renders "position / length", showing 00:00 when there is no position.
func FormatPosition(position uint, hasPosition bool, length uint) string {
	if !hasPosition {
		position = 0
	}
	return FrameOffsetToTime(position) + " / " + FrameOffsetToTime(length)
}

// ParseTimeEntry converts user time text to seconds.
// Accepted shapes: M, M:S and H:M:S, each field a non-negative integer.
// A lone field is read as minutes.
func ParseTimeEntry(text string) (uint, error) {
	text = strings.TrimSpace(text)
	parts := strings.Split(text, ":")
	if len(parts) > 3 {
		return 0, fmt.Errorf("%w: '%s'", ErrInvalidTimeEntry, text)
	}

	values := make([]uint, len(parts))
	for i, p := range parts {
		if p == "" || strings.TrimLeft(p, "0123456789") != "" {
			return 0, fmt.Errorf("%w: '%s'", ErrInvalidTimeEntry, text)
		}
		v, err := strconv.ParseUint(p, 10, 32)
		if err != nil {
			return 0, fmt.Errorf("%w: '%s'", ErrInvalidTimeEntry, text)
		}
		values[i] = uint(v)
	}

	switch len(values) {
	case 1:
		return 60 * values[0], nil
	case 2:
		return 60*values[0] + values[1], nil
	default:
		return 3600*values[0] + 60*values[1] + values[2], nil
	}
}

// NormalizeLabel maps user label input to the stored form: empty input means no label.
func NormalizeLabel(text string) *string {
	if text == "" {
		return nil
	}
	return &text
}

// FormatRate renders a playback rate the way it is announced, e.g. "1.25x".
func FormatRate(rate float64) string {
	return strconv.FormatFloat(rate, 'f', -1, 64) + "x"
}
