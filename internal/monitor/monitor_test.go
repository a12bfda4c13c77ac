package monitor

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdam-project/sdam/internal/influx"
	"github.com/sdam-project/sdam/internal/logging"
)

type stubTransport struct {
	pos       uint
	hasPos    bool
	length    uint
	recording bool
	playing   bool
}

func (s *stubTransport) CurrentPosition() (uint, bool) { return s.pos, s.hasPos }
func (s *stubTransport) TotalLength() uint             { return s.length }
func (s *stubTransport) IsRecording() bool             { return s.recording }
func (s *stubTransport) IsPlaying() bool               { return s.playing }

type stubStore struct{ d time.Duration }

func (s stubStore) GetLastDBWriteDuration() time.Duration { return s.d }

type pointRecorder struct {
	mu      sync.Mutex
	buckets []string
	points  []*influxdb2_write.Point
	err     error
}

func (r *pointRecorder) WritePoint(_ context.Context, bucket string, p *influxdb2_write.Point) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.buckets = append(r.buckets, bucket)
	r.points = append(r.points, p)
	return r.err
}

func (r *pointRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.points)
}

func TestPoll_Display(t *testing.T) {
	tests := []struct {
		name string
		tr   stubTransport
		want string
	}{
		{"no position", stubTransport{length: 3000}, "00:00 / 02:00"},
		{"position", stubTransport{pos: 1525, hasPos: true, length: 90000}, "01:01 / 60:00"},
		{"empty", stubTransport{}, "00:00 / 00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tr := tt.tr
			s := NewService(Dependencies{Engine: &tr})
			assert.Equal(t, tt.want, s.Poll().Display)
		})
	}
}

func TestPoll_Details(t *testing.T) {
	tr := &stubTransport{pos: 10, hasPos: true, length: 20, recording: true}
	s := NewService(Dependencies{
		Engine: tr,
		Rate:   func() float64 { return 1.75 },
		Store:  stubStore{d: 3 * time.Millisecond},
	})

	st := s.Poll()
	assert.True(t, st.Recording)
	assert.False(t, st.Playing)
	assert.Equal(t, 1.75, st.Rate)
	assert.Equal(t, 3*time.Millisecond, st.LastWriteDuration)
	assert.Contains(t, st.Lines(), "rate: 1.75x")
}

func TestReport_StatusFileAndInflux(t *testing.T) {
	statusFile := filepath.Join(t.TempDir(), "status.txt")
	rec := &pointRecorder{}
	sess := logging.NewSessionContext("sess-1")
	sess.SetDocument("take.sdam")

	s := NewService(Dependencies{
		Engine:     &stubTransport{pos: 1500, hasPos: true, length: 3000},
		Session:    sess,
		Influx:     rec,
		StatusFile: statusFile,
	})

	st := s.Report(context.Background())
	assert.Equal(t, "01:00 / 02:00", st.Display)

	data, err := os.ReadFile(statusFile)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "01:00 / 02:00\n"))

	require.Equal(t, 1, rec.count())
	assert.Equal(t, influx.StatusBucket, rec.buckets[0])
	line := influxdb2_write.PointToLineProtocol(rec.points[0], time.Second)
	assert.Contains(t, line, "session=sess-1")
	assert.Contains(t, line, "document=take.sdam")
}

func TestReport_InfluxErrorIsNotFatal(t *testing.T) {
	rec := &pointRecorder{err: errors.New("down")}
	s := NewService(Dependencies{Engine: &stubTransport{}, Influx: rec})

	st := s.Report(context.Background())
	assert.Equal(t, "00:00 / 00:00", st.Display)
	assert.Equal(t, 1, rec.count())
}

func TestStartStop(t *testing.T) {
	rec := &pointRecorder{}
	s := NewService(Dependencies{Engine: &stubTransport{}, Influx: rec, Interval: 5 * time.Millisecond})

	require.NoError(t, s.Start(context.Background()))
	require.NoError(t, s.Start(context.Background()), "second start is a no-op")
	assert.True(t, s.IsRunning())

	assert.Eventually(t, func() bool { return rec.count() >= 2 }, time.Second, 5*time.Millisecond)

	s.Stop()
	assert.False(t, s.IsRunning())
	s.Stop()
}
