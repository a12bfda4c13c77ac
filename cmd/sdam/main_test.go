package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdam-project/sdam/internal/config"
	"github.com/sdam-project/sdam/internal/dispatcher"
	"github.com/sdam-project/sdam/internal/document"
	"github.com/sdam-project/sdam/internal/handlers"
	"github.com/sdam-project/sdam/internal/logging"
	"github.com/sdam-project/sdam/internal/notify"
	"github.com/sdam-project/sdam/internal/session"
	"github.com/sdam-project/sdam/internal/storage/memory"
	sqlitestorage "github.com/sdam-project/sdam/internal/storage/sqlite"
	wsstorage "github.com/sdam-project/sdam/internal/storage/websocket"
	"github.com/sdam-project/sdam/internal/transport"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		cmd  string
		args []string
	}{
		{"r", handlers.CmdRecordingStart, nil},
		{"record", handlers.CmdRecordingStart, nil},
		{"rs", handlers.CmdRecordingStop, nil},
		{"stop", handlers.CmdRecordingStop, nil},
		{"p", handlers.CmdPlaybackToggle, nil},
		{"toggle", handlers.CmdPlaybackToggle, nil},
		{"f", handlers.CmdSeekForward, nil},
		{"forward 12", handlers.CmdSeekForward, []string{"12"}},
		{"b 3", handlers.CmdSeekBackward, []string{"3"}},
		{"ff", handlers.CmdSeekForward, []string{"long"}},
		{"bb", handlers.CmdSeekBackward, []string{"long"}},
		{"home", handlers.CmdSeekStart, nil},
		{"end", handlers.CmdSeekEnd, nil},
		{"pct 40", handlers.CmdSeekPercentage, []string{"40"}},
		{"time 1:30", handlers.CmdSeekTime, []string{"1:30"}},
		{"time", handlers.CmdSeekTime, nil},
		{"rate +", handlers.CmdRateIncrease, nil},
		{"rate -", handlers.CmdRateDecrease, nil},
		{"rate 1", handlers.CmdRateOriginal, nil},
		{"rate 0.5", handlers.CmdRateSet, []string{"0.5"}},
		{"tt", handlers.CmdTimeTravelActivate, nil},
		{"tt off", handlers.CmdTimeTravelDeactivate, nil},
		{"m 2", handlers.CmdMarkAdd, []string{"2"}},
		{"m 2 chorus start", handlers.CmdMarkAdd, []string{"2", "chorus", "start"}},
		{"ml 4", handlers.CmdMarkAddLabeled, []string{"4"}},
		{"n", handlers.CmdMarkNext, nil},
		{"nn", handlers.CmdMarkNextClosest, nil},
		{"pp", handlers.CmdMarkPrevious, nil},
		{"pv", handlers.CmdMarkPreviousClosest, nil},
		{"j", handlers.CmdMarkFocused, nil},
		{"label new name", handlers.CmdMarkEditLabel, []string{"new", "name"}},
		{"move", handlers.CmdMarkEditMove, nil},
		{"del", handlers.CmdMarkDelete, nil},
		{"marks", handlers.CmdMarksList, nil},
		{"browse", handlers.CmdMarksBrowse, nil},
		{"browse 2", handlers.CmdMarksBrowse, []string{"2"}},
		{"browse-label 1 x", handlers.CmdMarksLabel, []string{"1", "x"}},
		{"browse-del 1", handlers.CmdMarksDelete, []string{"1"}},
		{"text some notes", handlers.CmdDocumentText, []string{"some", "notes"}},
		{"open a.sdam", handlers.CmdDocumentLoad, []string{"a.sdam"}},
		{"save", handlers.CmdDocumentSave, nil},
		{"export marks.yaml", handlers.CmdDocumentExport, []string{"marks.yaml"}},
		{"upload", handlers.CmdDocumentUpload, nil},
		{"status", handlers.CmdStatus, nil},
		{"  R  ", handlers.CmdRecordingStart, nil},
	}

	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			e, err := parseLine(tt.line)
			require.NoError(t, err)
			assert.Equal(t, tt.cmd, e.Command)
			if len(tt.args) == 0 {
				assert.Empty(t, e.Args)
			} else {
				assert.Equal(t, tt.args, e.Args)
			}
		})
	}
}

func TestParseLineSpecialCases(t *testing.T) {
	e, err := parseLine("   ")
	require.NoError(t, err)
	assert.Empty(t, e.Command)

	for _, w := range []string{"q", "quit", "exit"} {
		_, err = parseLine(w)
		assert.ErrorIs(t, err, errQuit)
	}

	_, err = parseLine("rate")
	assert.Error(t, err)

	_, err = parseLine("jump")
	assert.EqualError(t, err, "unknown command 'jump'")
}

func TestLineSourceEndOfInput(t *testing.T) {
	src := newLineSource(strings.NewReader("one\ntwo\n"))
	ctx := context.Background()

	line, ok := src.next(ctx)
	require.True(t, ok)
	assert.Equal(t, "one", line)
	line, ok = src.next(ctx)
	require.True(t, ok)
	assert.Equal(t, "two", line)

	_, ok = src.next(ctx)
	assert.False(t, ok)
}

func TestLineSourceCancelled(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer w.Close()
	defer r.Close()

	src := newLineSource(r)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, ok := src.next(ctx)
	assert.False(t, ok)
}

func TestConsolePrompter(t *testing.T) {
	out := &syncBuffer{}
	p := &consolePrompter{src: newLineSource(strings.NewReader("intro\n")), out: out}

	text, ok := p.Prompt(context.Background(), "Label", "Enter label:")
	assert.True(t, ok)
	assert.Equal(t, "intro", text)
	assert.Equal(t, "[Label] Enter label: ", out.String())

	_, ok = p.Prompt(context.Background(), "Label", "Enter label:")
	assert.False(t, ok, "end of input cancels")
}

func newTestShell(t *testing.T, input string) (*shell, *transport.Engine, *syncBuffer) {
	t.Helper()

	out := &syncBuffer{}
	d, err := dispatcher.New(logging.NewDispatcherLogger(&bytes.Buffer{}, "debug"))
	require.NoError(t, err)
	t.Cleanup(d.Close)

	engine := transport.New(nil)
	store := memory.New()
	src := newLineSource(strings.NewReader(input))
	prompter := &consolePrompter{src: src, out: out}
	toaster := notify.New(out, nil, false)

	controller := session.New(session.Dependencies{
		Engine:   engine,
		Marks:    store,
		Prompter: prompter,
		Notifier: toaster,
	})
	docs := document.NewService(document.Dependencies{Marks: store, Audio: engine})

	handlers.NewService(handlers.Dependencies{
		Controller: controller,
		Marks:      store,
		Documents:  docs,
		Prompter:   prompter,
		Notifier:   toaster,
	}).RegisterHandlers(d)

	return &shell{dispatcher: d, src: src, out: out, logger: logging.NewSlogManager().Logger()}, engine, out
}

func TestShellRun(t *testing.T) {
	sh, engine, out := newTestShell(t, strings.Join([]string{
		"marks",
		"rate +",
		"jump",
		"m 9",
		"tt",
		"ml 2",
		"hook",
		"marks",
		"time",
		"",
		"q",
		"r",
	}, "\n")+"\n")

	engine.StartRecording()
	for range 100 {
		engine.Tick()
	}
	engine.StopRecording()
	engine.SeekToFrame(50)

	sh.run(context.Background())

	got := out.String()
	assert.Contains(t, got, "no marks")
	assert.Contains(t, got, "rate 1.25x")
	assert.Contains(t, got, "unknown command 'jump'")
	assert.Contains(t, got, "error: invalid mark category")
	assert.Contains(t, got, "» Timetravel activated")
	assert.Contains(t, got, "» Mark added")
	assert.Contains(t, got, "  1. #0 00:03 category 2 hook")
	assert.Contains(t, got, "[Jump to time] Enter the time to jump to, in minute, minute:second or hour:minute:second format: ")
	assert.NotContains(t, got, "» Recording\n", "input after quit is not read")
}

func TestShellRunStopsAtEndOfInput(t *testing.T) {
	sh, _, out := newTestShell(t, "rate 2\n")

	done := make(chan struct{})
	go func() {
		sh.run(context.Background())
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("shell did not stop at end of input")
	}
	assert.Contains(t, out.String(), "rate 2x")
}

func testLogManager() *logging.SlogManager {
	m := logging.NewSlogManager()
	m.Setup(logging.Options{File: &bytes.Buffer{}, Level: "error"})
	return m
}

func TestCreateStorageBackend(t *testing.T) {
	env := storageEnv{
		SessionID:    "session-1",
		SessionStart: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		LogsDir:      t.TempDir(),
		LogManager:   testLogManager(),
	}

	b, err := createStorageBackend(config.StorageConfig{Type: "memory"}, env)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{}, env)
	require.NoError(t, err)
	assert.IsType(t, &memory.Backend{}, b)

	b, err = createStorageBackend(config.StorageConfig{
		Type:      "websocket",
		Websocket: config.WebsocketConfig{URL: "ws://127.0.0.1:1/marks"},
	}, env)
	require.NoError(t, err)
	assert.IsType(t, &wsstorage.Backend{}, b)

	_, err = createStorageBackend(config.StorageConfig{Type: "cassette"}, env)
	assert.EqualError(t, err, `unknown storage type "cassette"`)
}

func TestCreateSQLiteBackendDefaultsDumpPath(t *testing.T) {
	env := storageEnv{
		SessionID:    "session-1",
		SessionStart: time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		LogsDir:      t.TempDir(),
		LogManager:   testLogManager(),
	}

	b, err := initStorage(config.StorageConfig{
		Type:   "sqlite",
		SQLite: config.SQLiteConfig{DumpInterval: time.Hour},
	}, env)
	require.NoError(t, err)
	require.IsType(t, &sqlitestorage.Backend{}, b)

	_, err = b.AddMark(10, 1, nil)
	require.NoError(t, err)
	require.NoError(t, b.Close())

	_, err = os.Stat(filepath.Join(env.LogsDir, "sdam_20260102_030405.db"))
	assert.NoError(t, err)
}

func TestRun(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	logsDir := filepath.Join(dir, "logs")
	viper.Set("logsDir", logsDir)
	viper.Set("monitor.statusFile", filepath.Join(dir, "status.txt"))

	out := &syncBuffer{}
	input := strings.Join([]string{
		"r",
		"m 3 opening",
		"rs",
		"text session notes",
		"save " + filepath.Join(dir, "take"),
		"q",
	}, "\n") + "\n"

	err := run(context.Background(), options{ConfigDir: dir}, strings.NewReader(input), out)
	require.NoError(t, err)

	got := out.String()
	assert.Contains(t, got, "» Recording\n")
	assert.Contains(t, got, "» Recording stopped\n")
	assert.Contains(t, got, "session notes")
	assert.Contains(t, got, "» Saved take.sdam")

	_, err = os.Stat(filepath.Join(dir, "take.sdam"))
	assert.NoError(t, err)

	entries, err := os.ReadDir(logsDir)
	require.NoError(t, err)
	assert.NotEmpty(t, entries, "session log file is created")
}
