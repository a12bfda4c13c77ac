package transport

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ticks(e *Engine, n int) {
	for i := 0; i < n; i++ {
		e.Tick()
	}
}

func TestRecordingGrowsOneFramePerTick(t *testing.T) {
	e := New(nil)
	e.StartRecording()
	ticks(e, 10)
	e.StopRecording()
	ticks(e, 5)

	assert.Equal(t, uint(10), e.TotalLength())
	assert.False(t, e.IsRecording())
}

func TestNoPositionUntilPlaybackOrSeek(t *testing.T) {
	e := New(nil)
	e.Load(100)

	_, ok := e.CurrentPosition()
	assert.False(t, ok)

	e.StartPlayback()
	e.Tick()
	pos, ok := e.CurrentPosition()
	require.True(t, ok)
	assert.Equal(t, uint(0), pos)
}

func TestPlaybackAdvancesByRate(t *testing.T) {
	e := New(nil)
	e.Load(1000)
	e.SeekToFrame(0)
	require.NoError(t, e.SetRate(2.0))
	e.StartPlayback()

	ticks(e, 10)
	pos, _ := e.CurrentPosition()
	assert.Equal(t, uint(20), pos)

	require.NoError(t, e.SetRate(0.5))
	ticks(e, 10)
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(25), pos)
}

func TestPlaybackStopsAtLastFrame(t *testing.T) {
	e := New(nil)
	e.Load(10)
	e.SeekToFrame(5)
	e.StartPlayback()

	ticks(e, 50)
	pos, _ := e.CurrentPosition()
	assert.Equal(t, uint(9), pos)
	assert.True(t, e.IsPlaying())
}

func TestLiveEdgePlaysAtNormalRate(t *testing.T) {
	e := New(nil)
	e.Load(100)
	require.NoError(t, e.SetRate(3.0))
	e.SeekToFrame(97)
	e.StartPlayback()

	e.Tick()
	pos, _ := e.CurrentPosition()
	assert.Equal(t, uint(98), pos)
}

func TestSetRateRejectsOutOfRange(t *testing.T) {
	e := New(nil)
	assert.ErrorIs(t, e.SetRate(0), ErrRateOutOfRange)
	assert.ErrorIs(t, e.SetRate(3.5), ErrRateOutOfRange)
	assert.Equal(t, 1.0, e.Rate())
}

func TestSeekIgnoredOnShortTake(t *testing.T) {
	e := New(nil)
	e.Load(2)
	e.SeekToFrame(1)
	e.SeekToEnd()
	e.SeekForward(1)

	_, ok := e.CurrentPosition()
	assert.False(t, ok)
}

func TestSeekClamping(t *testing.T) {
	e := New(nil)
	e.Load(1000)

	e.SeekToFrame(5000)
	pos, _ := e.CurrentPosition()
	assert.Equal(t, uint(997), pos)

	e.SeekToEnd()
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(997), pos)

	e.SeekToStart()
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(0), pos)

	e.SeekBackward(5)
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(0), pos)

	e.SeekForward(5)
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(125), pos)

	e.SeekForward(60)
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(997), pos)
}

func TestRelativeSeekWithoutPositionStartsAtZero(t *testing.T) {
	e := New(nil)
	e.Load(1000)
	e.SeekForward(1)

	pos, ok := e.CurrentPosition()
	require.True(t, ok)
	assert.Equal(t, uint(25), pos)
}

func TestSeekToPercentage(t *testing.T) {
	e := New(nil)
	e.Load(1000)

	require.NoError(t, e.SeekToPercentage(50))
	pos, _ := e.CurrentPosition()
	assert.Equal(t, uint(500), pos)

	require.NoError(t, e.SeekToPercentage(100))
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(997), pos)

	assert.ErrorIs(t, e.SeekToPercentage(101), ErrPercentageOutOfRange)
	pos, _ = e.CurrentPosition()
	assert.Equal(t, uint(997), pos)
}

func TestSeekToTime(t *testing.T) {
	e := New(nil)
	e.Load(10000)
	e.SeekToTime(90)

	pos, _ := e.CurrentPosition()
	assert.Equal(t, uint(2250), pos)
}

func TestToggleAndPause(t *testing.T) {
	e := New(nil)
	e.TogglePlayback()
	assert.True(t, e.IsPlaying())
	e.TogglePlayback()
	assert.False(t, e.IsPlaying())
	e.StartPlayback()
	e.PausePlayback()
	assert.False(t, e.IsPlaying())
}

func TestLoadResets(t *testing.T) {
	e := New(nil)
	e.StartRecording()
	ticks(e, 20)
	e.StartPlayback()
	e.SeekToFrame(3)

	e.Load(500)

	assert.Equal(t, uint(500), e.TotalLength())
	assert.False(t, e.IsRecording())
	assert.False(t, e.IsPlaying())
	_, ok := e.CurrentPosition()
	assert.False(t, ok)
}

func TestTimeTravelFollowsLiveEdge(t *testing.T) {
	e := New(nil)
	e.StartRecording()
	ticks(e, 100)

	e.SeekToEnd()
	e.StartPlayback()
	ticks(e, 50)

	pos, _ := e.CurrentPosition()
	assert.Equal(t, uint(147), pos)
	assert.Equal(t, uint(150), e.TotalLength())
}

func TestRunStopsWithContext(t *testing.T) {
	e := New(nil)
	e.StartRecording()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		e.Run(ctx)
		close(done)
	}()

	time.Sleep(150 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Greater(t, e.TotalLength(), uint(0))
}
