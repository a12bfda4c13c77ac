package session

import (
	"context"

	"github.com/sdam-project/sdam/pkg/core"
)

// Engine is the recording/playback transport the Controller drives.
// Is* and position queries are never cached by the Controller.
type Engine interface {
	StartRecording()
	StopRecording()
	IsRecording() bool

	StartPlayback()
	PausePlayback()
	TogglePlayback()
	IsPlaying() bool

	SetRate(rate float64) error

	SeekForward(seconds uint)
	SeekBackward(seconds uint)
	SeekToStart()
	SeekToEnd()
	SeekToPercentage(percentage uint) error
	SeekToFrame(frame uint)
	SeekToTime(seconds uint)

	CurrentPosition() (uint, bool)
	TotalLength() uint
}

// MarkStore owns the mark collection. Closest queries are strict.
type MarkStore interface {
	AddMark(frame uint, category core.Category, label *string) (core.Mark, error)
	EditMark(id uint64, frame uint, category core.Category, label *string) error
	DeleteMark(id uint64) error
	GetMark(id uint64) (core.Mark, bool, error)
	ListMarks() ([]core.Mark, error)
	ClosestMarkAfter(frame uint) (core.Mark, bool, error)
	ClosestMarkBefore(frame uint) (core.Mark, bool, error)
}

// Prompter asks the user for a line of text. ok is false when the user cancelled.
type Prompter interface {
	Prompt(ctx context.Context, title, message string) (text string, ok bool)
}

// Notifier announces short status messages to the user.
type Notifier interface {
	Toast(text string)
}

type nopNotifier struct{}

func (nopNotifier) Toast(string) {}
