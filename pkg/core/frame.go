// pkg/core/frame.go
package core

import "time"

// Positions are measured in frames of a fixed duration from the start of the recording.
const (
	FrameDuration   = 40 * time.Millisecond
	FramesPerSecond = 25
	FramesPerMinute = 60 * FramesPerSecond
	FramesPerHour   = 60 * FramesPerMinute
)

// Playback rate domain.
const (
	MinRate     = 0.25
	MaxRate     = 3.0
	RateStep    = 0.25
	DefaultRate = 1.0
)

// FramesForSeconds converts a whole number of seconds to a frame count.
func FramesForSeconds(seconds uint) uint {
	return seconds * FramesPerSecond
}

// FrameToDuration returns the wall-clock offset of a frame.
func FrameToDuration(frame uint) time.Duration {
	return time.Duration(frame) * FrameDuration
}
