// Package monitor runs the display poll: it reads the transport and renders
// "MM:SS / MM:SS", optionally mirroring each poll to a status file and InfluxDB.
package monitor

import (
	"context"
	"fmt"
	"os"
	"sync"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/sdam-project/sdam/internal/influx"
	"github.com/sdam-project/sdam/internal/logging"
	"github.com/sdam-project/sdam/internal/util"
)

// Transport is the read-only view of the audio engine the poll needs.
type Transport interface {
	CurrentPosition() (uint, bool)
	TotalLength() uint
	IsRecording() bool
	IsPlaying() bool
}

// PointWriter accepts InfluxDB points.
type PointWriter interface {
	WritePoint(ctx context.Context, bucket string, point *influxdb2_write.Point) error
}

// DBWriteDurationProvider is an optional interface that mark stores can implement
// to expose their last write duration for monitoring.
type DBWriteDurationProvider interface {
	GetLastDBWriteDuration() time.Duration
}

// Dependencies holds all dependencies for the monitor service
type Dependencies struct {
	Engine     Transport
	Rate       func() float64
	Session    *logging.SessionContext
	Store      any
	Influx     PointWriter
	LogManager *logging.SlogManager
	StatusFile string
	Interval   time.Duration
}

// Status is one display poll.
type Status struct {
	Display           string
	Position          uint
	HasPosition       bool
	Length            uint
	Recording         bool
	Playing           bool
	Rate              float64
	LastWriteDuration time.Duration
	At                time.Time
}

// Lines renders the status file contents.
func (st Status) Lines() []string {
	lines := []string{
		st.Display,
		fmt.Sprintf("recording: %t", st.Recording),
		fmt.Sprintf("playing: %t", st.Playing),
		fmt.Sprintf("rate: %s", util.FormatRate(st.Rate)),
	}
	if st.LastWriteDuration > 0 {
		lines = append(lines, fmt.Sprintf("last store write: %s", st.LastWriteDuration))
	}
	return lines
}

// Service manages status monitoring
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	done      chan struct{}
}

// NewService creates a new monitor service
func NewService(deps Dependencies) *Service {
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	if deps.Interval <= 0 {
		deps.Interval = 5 * time.Second
	}
	return &Service{
		deps: deps,
	}
}

// IsRunning returns whether the status monitor is running
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Poll reads the transport. It never changes session state.
func (s *Service) Poll() Status {
	pos, hasPos := s.deps.Engine.CurrentPosition()
	length := s.deps.Engine.TotalLength()

	st := Status{
		Display:     util.FormatPosition(pos, hasPos, length),
		Position:    pos,
		HasPosition: hasPos,
		Length:      length,
		Recording:   s.deps.Engine.IsRecording(),
		Playing:     s.deps.Engine.IsPlaying(),
		Rate:        1,
		At:          time.Now(),
	}
	if s.deps.Rate != nil {
		st.Rate = s.deps.Rate()
	}
	if p, ok := s.deps.Store.(DBWriteDurationProvider); ok {
		st.LastWriteDuration = p.GetLastDBWriteDuration()
	}
	return st
}

// Report polls and publishes the result to the status file and InfluxDB.
func (s *Service) Report(ctx context.Context) Status {
	st := s.Poll()

	if s.deps.StatusFile != "" {
		if err := writeStatusFile(s.deps.StatusFile, st); err != nil {
			s.deps.LogManager.WriteLog("monitor:Report", fmt.Sprintf("Error writing status file: %v", err), "ERROR")
		}
	}

	if s.deps.Influx != nil {
		var sessionID, document string
		if s.deps.Session != nil {
			sessionID = s.deps.Session.ID()
			document = s.deps.Session.Document()
		}
		point := influx.NewStatusPoint(sessionID, document, st.Position, st.Length, st.Recording, st.Playing, st.Rate, st.At)
		if err := s.deps.Influx.WritePoint(ctx, influx.StatusBucket, point); err != nil {
			s.deps.LogManager.WriteLog("monitor:Report", fmt.Sprintf("Error writing status point: %v", err), "WARN")
		}
	}

	return st
}

func writeStatusFile(path string, st Status) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	for _, line := range st.Lines() {
		if _, err := f.WriteString(line + "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Start starts the status monitor goroutine
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		logger := s.deps.LogManager.Logger()
		logger.Debug("Starting status monitor goroutine", "interval", s.deps.Interval)

		ticker := time.NewTicker(s.deps.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-stop:
				return
			case <-ctx.Done():
				return
			case <-ticker.C:
				st := s.Report(ctx)
				logger.Debug("Display poll", "display", st.Display)
			}
		}
	}()

	return nil
}

// Stop stops the status monitor and waits for it to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	done := s.done
	s.isRunning = false
	s.mu.Unlock()
	<-done
}
