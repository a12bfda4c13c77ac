// Package session holds the Controller, the state machine that turns user
// intents into ordered transport and mark-store calls.
package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/sdam-project/sdam/pkg/core"
)

// Dependencies are the collaborators injected into a Controller.
type Dependencies struct {
	Engine   Engine
	Marks    MarkStore
	Prompter Prompter
	Notifier Notifier
	Logger   *slog.Logger
}

// State is a snapshot of the Controller-owned session state.
type State struct {
	Rate                      float64
	TimeTravel                bool
	RecordingBeforeTimeTravel bool
	FocusedMarkID             uint64
	HasFocusedMark            bool
}

// Controller owns the transient session state for one open document.
// All exported methods are serialized behind a single mutex and run to
// completion; prompting happens before the lock is taken.
type Controller struct {
	mu sync.Mutex

	engine   Engine
	marks    MarkStore
	prompter Prompter
	notifier Notifier
	logger   *slog.Logger

	rate                      float64
	timeTravel                bool
	recordingBeforeTimeTravel bool
	focusedID                 uint64
	hasFocus                  bool
}

// New creates a Controller with the default rate and no focused mark.
func New(deps Dependencies) *Controller {
	c := &Controller{
		engine:   deps.Engine,
		marks:    deps.Marks,
		prompter: deps.Prompter,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		rate:     core.DefaultRate,
	}
	if c.notifier == nil {
		c.notifier = nopNotifier{}
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	return c
}

// State returns a snapshot of the session state.
func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		Rate:                      c.rate,
		TimeTravel:                c.timeTravel,
		RecordingBeforeTimeTravel: c.recordingBeforeTimeTravel,
		FocusedMarkID:             c.focusedID,
		HasFocusedMark:            c.hasFocus,
	}
}

// Reset returns the session state to its defaults, used when another document is opened.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = core.DefaultRate
	c.timeTravel = false
	c.recordingBeforeTimeTravel = false
	c.clearFocus()
	c.forwardRate(c.rate)
}

// ---- rate ----

// SetOriginalRate resets playback to normal speed.
func (c *Controller) SetOriginalRate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = core.DefaultRate
	c.forwardRate(c.rate)
}

// IncreaseRate raises the rate by one step, up to the maximum.
func (c *Controller) IncreaseRate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate = min(c.rate+core.RateStep, core.MaxRate)
	c.forwardRate(c.rate)
}

// DecreaseRate lowers the rate by one step, never below the minimum.
func (c *Controller) DecreaseRate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rate -= core.RateStep
	if c.rate < core.MinRate {
		c.rate = core.MinRate
	}
	c.forwardRate(c.rate)
}

// SetRateAbsolute applies a preset rate to the engine only. The stored rate is
// left alone, so the next step up or down starts from it. Reports whether the
// engine accepted the preset.
func (c *Controller) SetRateAbsolute(rate float64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.forwardRate(rate)
}

// Rate returns the current playback rate.
func (c *Controller) Rate() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rate
}

func (c *Controller) forwardRate(rate float64) bool {
	if err := c.engine.SetRate(rate); err != nil {
		c.logger.Warn("Engine rejected rate", "rate", rate, "error", err)
		return false
	}
	return true
}

// ---- recording / playback ----

// StartRecording pauses playback and starts recording, unless already recording.
func (c *Controller) StartRecording() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.IsRecording() {
		return
	}
	c.engine.PausePlayback()
	c.engine.StartRecording()

	if c.engine.IsRecording() {
		c.notifier.Toast("Recording")
	}
}

// StopRecording stops recording. While time travelling it abandons the whole
// time travel session instead.
func (c *Controller) StopRecording() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.timeTravel {
		c.engine.StopRecording()
		if !c.engine.IsRecording() {
			c.notifier.Toast("Recording stopped")
		}
		return
	}

	c.recordingBeforeTimeTravel = false
	c.deactivateTimeTravel()
	if !c.engine.IsRecording() {
		c.notifier.Toast("Recording stopped, Timetravel stopped")
	}
}

// TogglePlayback toggles playback. It does nothing while plainly recording
// with playback stopped.
func (c *Controller) TogglePlayback() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.engine.IsRecording() && !c.timeTravel && !c.engine.IsPlaying() {
		return
	}
	c.engine.TogglePlayback()
}

// SeekForward moves playback forward by seconds.
func (c *Controller) SeekForward(seconds uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SeekForward(seconds)
}

// SeekBackward moves playback backward by seconds.
func (c *Controller) SeekBackward(seconds uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SeekBackward(seconds)
}

// SeekToStart moves playback to the first frame.
func (c *Controller) SeekToStart() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SeekToStart()
}

// SeekToEnd moves playback to the end of the recording.
func (c *Controller) SeekToEnd() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SeekToEnd()
}

// SeekToPercentage moves playback to a share of the recording, 0 to 100.
func (c *Controller) SeekToPercentage(percentage uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.engine.SeekToPercentage(percentage); err != nil {
		c.logger.Warn("Engine rejected percentage seek", "percentage", percentage, "error", err)
	}
}

// SeekToFrame moves playback to an absolute frame.
func (c *Controller) SeekToFrame(frame uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SeekToFrame(frame)
}

// SeekToTime moves playback to a wall-clock offset in seconds.
func (c *Controller) SeekToTime(seconds uint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.engine.SeekToTime(seconds)
}

// ---- time travel ----

// ActivateTimeTravel starts listening from the live end while recording continues.
func (c *Controller) ActivateTimeTravel() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.timeTravel {
		return
	}

	recording := c.engine.IsRecording()

	c.engine.PausePlayback()
	if !recording {
		c.engine.StartRecording()
	}
	c.engine.SeekToEnd()
	c.engine.StartPlayback()

	c.recordingBeforeTimeTravel = recording
	c.timeTravel = true

	c.notifier.Toast("Timetravel activated")
}

// DeactivateTimeTravel leaves time travel, stopping the recording it started.
func (c *Controller) DeactivateTimeTravel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deactivateTimeTravel()
}

func (c *Controller) deactivateTimeTravel() {
	if !c.timeTravel {
		return
	}

	c.engine.PausePlayback()
	if !c.recordingBeforeTimeTravel {
		c.engine.StopRecording()
	}
	c.timeTravel = false

	c.notifier.Toast("Timetravel deactivated")
}

// ---- prompting ----

func (c *Controller) prompt(ctx context.Context, title, message string) (string, bool) {
	if c.prompter == nil {
		return "", false
	}
	return c.prompter.Prompt(ctx, title, message)
}
