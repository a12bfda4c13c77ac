// Package transport implements the recording/playback transport as a frame
// clock: recording grows the take one frame per tick, playback advances the
// cursor by the playback rate.
package transport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/sdam-project/sdam/pkg/core"
)

var (
	ErrRateOutOfRange       = errors.New("rate out of range")
	ErrPercentageOutOfRange = errors.New("percentage out of range")
)

const (
	// seekMargin frames at the live end are never sought into.
	seekMargin = 3
	// liveEdge is the distance from the end under which playback runs at 1x.
	liveEdge = 5
)

type playbackState int

const (
	paused playbackState = iota
	playing
)

// Engine is a simulated transport driven by Tick or Run.
type Engine struct {
	mu sync.Mutex

	logger *slog.Logger

	length      uint
	recording   bool
	state       playbackState
	position    uint
	hasPosition bool
	rate        float64
	carry       float64
}

// New creates an empty, paused engine.
func New(logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		logger: logger,
		rate:   core.DefaultRate,
	}
}

// Run ticks the engine once per frame until ctx is done.
func (e *Engine) Run(ctx context.Context) {
	ticker := time.NewTicker(core.FrameDuration)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			e.Tick()
		}
	}
}

// Tick advances the clock by one frame.
func (e *Engine) Tick() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.recording {
		e.length++
	}

	if e.state != playing || e.length == 0 {
		return
	}
	if !e.hasPosition {
		e.position, e.hasPosition = 0, true
		return
	}

	e.carry += e.activeRate()
	for e.carry >= 1 {
		e.carry--
		if e.position+1 >= e.length {
			e.carry = 0
			break
		}
		e.position++
	}
}

func (e *Engine) activeRate() float64 {
	if e.length-e.position <= liveEdge {
		return 1.0
	}
	return e.rate
}

// Load replaces the take with one of the given length, pausing and clearing the position.
func (e *Engine) Load(length uint) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.length = length
	e.recording = false
	e.state = paused
	e.position, e.hasPosition = 0, false
	e.carry = 0
}

// ---- recording ----

// StartRecording appends a frame to the take on every tick until stopped.
func (e *Engine) StartRecording() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recording = true
	e.logger.Debug("Recording started", "length", e.length)
}

// StopRecording stops growing the take.
func (e *Engine) StopRecording() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.recording = false
	e.logger.Debug("Recording stopped", "length", e.length)
}

// IsRecording reports whether the take is growing.
func (e *Engine) IsRecording() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.recording
}

// ---- playback ----

// StartPlayback advances the cursor on every tick at the active rate.
func (e *Engine) StartPlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = playing
}

// PausePlayback holds the cursor where it is.
func (e *Engine) PausePlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = paused
	e.carry = 0
}

// TogglePlayback pauses a playing engine and starts a paused one.
func (e *Engine) TogglePlayback() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == playing {
		e.state = paused
		e.carry = 0
		return
	}
	e.state = playing
}

// IsPlaying reports whether the cursor is advancing.
func (e *Engine) IsPlaying() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state == playing
}

// SetRate changes the playback rate. Rates outside the rate domain are rejected.
func (e *Engine) SetRate(rate float64) error {
	if rate < core.MinRate || rate > core.MaxRate {
		return fmt.Errorf("%w: %v", ErrRateOutOfRange, rate)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rate = rate
	return nil
}

// ---- seeking ----

// endFrame is the last frame a seek may land on. ok is false while the take
// is too short to seek in at all.
func (e *Engine) endFrame() (uint, bool) {
	if e.length < seekMargin {
		return 0, false
	}
	return e.length - seekMargin, true
}

func (e *Engine) seekAbsolute(frame uint) {
	end, ok := e.endFrame()
	if !ok {
		return
	}
	e.position, e.hasPosition = min(frame, end), true
	e.carry = 0
}

func (e *Engine) seekRelative(deltaFrames int) {
	end, ok := e.endFrame()
	if !ok {
		return
	}
	base := 0
	if e.hasPosition {
		base = int(e.position)
	}
	target := base + deltaFrames
	if target < 0 {
		target = 0
	}
	e.position, e.hasPosition = min(uint(target), end), true
	e.carry = 0
}

// SeekForward moves the cursor forward, stopping at the end frame.
func (e *Engine) SeekForward(seconds uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekRelative(int(core.FramesForSeconds(seconds)))
}

// SeekBackward moves the cursor back, stopping at frame 0.
func (e *Engine) SeekBackward(seconds uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekRelative(-int(core.FramesForSeconds(seconds)))
}

// SeekToStart moves the cursor to frame 0.
func (e *Engine) SeekToStart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekAbsolute(0)
}

// SeekToEnd moves the cursor to the end frame.
func (e *Engine) SeekToEnd() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if end, ok := e.endFrame(); ok {
		e.seekAbsolute(end)
	}
}

// SeekToPercentage seeks to a share of the take. Percentages above 100 are rejected.
func (e *Engine) SeekToPercentage(percentage uint) error {
	if percentage > 100 {
		return fmt.Errorf("%w: %d", ErrPercentageOutOfRange, percentage)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekAbsolute(e.length * percentage / 100)
	return nil
}

// SeekToFrame moves the cursor to frame, capped at the end frame.
func (e *Engine) SeekToFrame(frame uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekAbsolute(frame)
}

// SeekToTime moves the cursor to the frame at seconds from the start.
func (e *Engine) SeekToTime(seconds uint) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.seekAbsolute(core.FramesForSeconds(seconds))
}

// ---- queries ----

// CurrentPosition returns the playback cursor. ok is false before the first
// seek or playback since the take was loaded.
func (e *Engine) CurrentPosition() (uint, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.position, e.hasPosition
}

// TotalLength returns the recorded length in frames.
func (e *Engine) TotalLength() uint {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.length
}

// Rate returns the configured playback rate.
func (e *Engine) Rate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.rate
}
