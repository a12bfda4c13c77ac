package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sdam-project/sdam/pkg/core"
)

// fakeEngine records mutating calls in order. Queries are not recorded.
type fakeEngine struct {
	calls []string

	recording   bool
	playing     bool
	position    uint
	hasPosition bool
	length      uint

	rates   []float64
	rateErr error
}

func (e *fakeEngine) record(call string) { e.calls = append(e.calls, call) }

func (e *fakeEngine) StartRecording() {
	e.record("StartRecording")
	e.recording = true
}

func (e *fakeEngine) StopRecording() {
	e.record("StopRecording")
	e.recording = false
}

func (e *fakeEngine) IsRecording() bool { return e.recording }

func (e *fakeEngine) StartPlayback() {
	e.record("StartPlayback")
	e.playing = true
}

func (e *fakeEngine) PausePlayback() {
	e.record("PausePlayback")
	e.playing = false
}

func (e *fakeEngine) TogglePlayback() {
	e.record("TogglePlayback")
	e.playing = !e.playing
}

func (e *fakeEngine) IsPlaying() bool { return e.playing }

func (e *fakeEngine) SetRate(rate float64) error {
	e.rates = append(e.rates, rate)
	return e.rateErr
}

func (e *fakeEngine) SeekForward(seconds uint)  { e.record(fmt.Sprintf("SeekForward(%d)", seconds)) }
func (e *fakeEngine) SeekBackward(seconds uint) { e.record(fmt.Sprintf("SeekBackward(%d)", seconds)) }

func (e *fakeEngine) SeekToStart() {
	e.record("SeekToStart")
	e.position, e.hasPosition = 0, true
}

func (e *fakeEngine) SeekToEnd() {
	e.record("SeekToEnd")
	e.position, e.hasPosition = e.length, true
}

func (e *fakeEngine) SeekToPercentage(p uint) error {
	e.record(fmt.Sprintf("SeekToPercentage(%d)", p))
	if p > 100 {
		return errors.New("percentage out of range")
	}
	return nil
}

func (e *fakeEngine) SeekToFrame(frame uint) {
	e.record(fmt.Sprintf("SeekToFrame(%d)", frame))
	e.position, e.hasPosition = frame, true
}

func (e *fakeEngine) SeekToTime(seconds uint) { e.record(fmt.Sprintf("SeekToTime(%d)", seconds)) }

func (e *fakeEngine) CurrentPosition() (uint, bool) { return e.position, e.hasPosition }
func (e *fakeEngine) TotalLength() uint             { return e.length }

// fakeStore is a minimal in-memory mark store.
type fakeStore struct {
	mu     sync.Mutex
	marks  map[uint64]core.Mark
	nextID uint64
	err    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{marks: make(map[uint64]core.Mark)}
}

func (s *fakeStore) AddMark(frame uint, category core.Category, label *string) (core.Mark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return core.Mark{}, s.err
	}
	m := core.Mark{ID: s.nextID, FrameOffset: frame, Category: category, Label: label}
	s.marks[m.ID] = m
	s.nextID++
	return m, nil
}

func (s *fakeStore) EditMark(id uint64, frame uint, category core.Category, label *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.marks[id]; !ok {
		return errors.New("not found")
	}
	s.marks[id] = core.Mark{ID: id, FrameOffset: frame, Category: category, Label: label}
	return nil
}

func (s *fakeStore) DeleteMark(id uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	if _, ok := s.marks[id]; !ok {
		return errors.New("not found")
	}
	delete(s.marks, id)
	return nil
}

func (s *fakeStore) GetMark(id uint64) (core.Mark, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return core.Mark{}, false, s.err
	}
	m, ok := s.marks[id]
	return m, ok, nil
}

func (s *fakeStore) ListMarks() ([]core.Mark, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	out := make([]core.Mark, 0, len(s.marks))
	for _, m := range s.marks {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FrameOffset < out[j].FrameOffset })
	return out, nil
}

func (s *fakeStore) ClosestMarkAfter(frame uint) (core.Mark, bool, error) {
	marks, err := s.ListMarks()
	if err != nil {
		return core.Mark{}, false, err
	}
	for _, m := range marks {
		if m.FrameOffset > frame {
			return m, true, nil
		}
	}
	return core.Mark{}, false, nil
}

func (s *fakeStore) ClosestMarkBefore(frame uint) (core.Mark, bool, error) {
	marks, err := s.ListMarks()
	if err != nil {
		return core.Mark{}, false, err
	}
	for i := len(marks) - 1; i >= 0; i-- {
		if marks[i].FrameOffset < frame {
			return marks[i], true, nil
		}
	}
	return core.Mark{}, false, nil
}

// scriptedPrompter answers prompts from a fixed list; a nil entry cancels.
type scriptedPrompter struct {
	answers  []*string
	messages []string
}

func (p *scriptedPrompter) Prompt(_ context.Context, _, message string) (string, bool) {
	p.messages = append(p.messages, message)
	if len(p.answers) == 0 {
		return "", false
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	if a == nil {
		return "", false
	}
	return *a, true
}

type recordingNotifier struct {
	toasts []string
}

func (n *recordingNotifier) Toast(text string) { n.toasts = append(n.toasts, text) }

func strPtr(s string) *string { return &s }
