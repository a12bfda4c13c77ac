package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/sdam-project/sdam/internal/dispatcher"
	"github.com/sdam-project/sdam/internal/handlers"
	"github.com/sdam-project/sdam/internal/monitor"
	"github.com/sdam-project/sdam/internal/util"
	"github.com/sdam-project/sdam/pkg/core"
)

// errQuit is returned by parseLine for the quit words.
var errQuit = errors.New("quit")

// lineSource feeds input lines to both the command loop and prompts.
// The channel closes at end of input.
type lineSource struct {
	lines chan string
}

func newLineSource(r io.Reader) *lineSource {
	src := &lineSource{lines: make(chan string)}
	go func() {
		defer close(src.lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			src.lines <- scanner.Text()
		}
	}()
	return src
}

// next blocks for the next line; ok is false at end of input or cancellation.
func (s *lineSource) next(ctx context.Context) (string, bool) {
	select {
	case <-ctx.Done():
		return "", false
	case line, ok := <-s.lines:
		return line, ok
	}
}

// consolePrompter asks on out and reads the answer from the shared line source.
type consolePrompter struct {
	src *lineSource
	out io.Writer
}

func (p *consolePrompter) Prompt(ctx context.Context, title, message string) (string, bool) {
	fmt.Fprintf(p.out, "[%s] %s ", title, message)
	return p.src.next(ctx)
}

// shell maps input words to dispatcher commands.
type shell struct {
	dispatcher *dispatcher.Dispatcher
	src        *lineSource
	out        io.Writer
	logger     *slog.Logger
}

// parseLine turns one input line into an event. Empty lines yield a zero event.
func parseLine(line string) (dispatcher.Event, error) {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return dispatcher.Event{}, nil
	}
	word, args := strings.ToLower(fields[0]), fields[1:]

	ev := func(cmd string, a ...string) (dispatcher.Event, error) {
		return dispatcher.Event{Command: cmd, Args: a}, nil
	}

	switch word {
	case "q", "quit", "exit":
		return dispatcher.Event{}, errQuit

	case "r", "record":
		return ev(handlers.CmdRecordingStart)
	case "rs", "stop":
		return ev(handlers.CmdRecordingStop)
	case "p", "play", "t", "toggle":
		return ev(handlers.CmdPlaybackToggle)

	case "f", "forward":
		return ev(handlers.CmdSeekForward, args...)
	case "b", "backward":
		return ev(handlers.CmdSeekBackward, args...)
	case "ff":
		return ev(handlers.CmdSeekForward, "long")
	case "bb":
		return ev(handlers.CmdSeekBackward, "long")
	case "home":
		return ev(handlers.CmdSeekStart)
	case "end":
		return ev(handlers.CmdSeekEnd)
	case "pct":
		return ev(handlers.CmdSeekPercentage, args...)
	case "time":
		return ev(handlers.CmdSeekTime, args...)

	case "rate":
		if len(args) == 0 {
			return dispatcher.Event{}, fmt.Errorf("usage: rate + | - | 1 | <rate>")
		}
		switch args[0] {
		case "+":
			return ev(handlers.CmdRateIncrease)
		case "-":
			return ev(handlers.CmdRateDecrease)
		case "1":
			return ev(handlers.CmdRateOriginal)
		default:
			return ev(handlers.CmdRateSet, args[0])
		}

	case "tt":
		if len(args) > 0 && strings.EqualFold(args[0], "off") {
			return ev(handlers.CmdTimeTravelDeactivate)
		}
		return ev(handlers.CmdTimeTravelActivate)

	case "m":
		return ev(handlers.CmdMarkAdd, args...)
	case "ml":
		return ev(handlers.CmdMarkAddLabeled, args...)
	case "n":
		return ev(handlers.CmdMarkNext)
	case "nn":
		return ev(handlers.CmdMarkNextClosest)
	case "pp":
		return ev(handlers.CmdMarkPrevious)
	case "pv":
		return ev(handlers.CmdMarkPreviousClosest)
	case "j":
		return ev(handlers.CmdMarkFocused)
	case "label":
		return ev(handlers.CmdMarkEditLabel, args...)
	case "move":
		return ev(handlers.CmdMarkEditMove)
	case "del":
		return ev(handlers.CmdMarkDelete)

	case "marks":
		return ev(handlers.CmdMarksList)
	case "browse":
		return ev(handlers.CmdMarksBrowse, args...)
	case "browse-label":
		return ev(handlers.CmdMarksLabel, args...)
	case "browse-del":
		return ev(handlers.CmdMarksDelete, args...)

	case "text":
		return ev(handlers.CmdDocumentText, args...)
	case "open":
		return ev(handlers.CmdDocumentLoad, args...)
	case "save":
		return ev(handlers.CmdDocumentSave, args...)
	case "export":
		return ev(handlers.CmdDocumentExport, args...)
	case "upload":
		return ev(handlers.CmdDocumentUpload)
	case "status":
		return ev(handlers.CmdStatus)
	}

	return dispatcher.Event{}, fmt.Errorf("unknown command '%s'", fields[0])
}

// run reads commands until quit, end of input or cancellation.
func (s *shell) run(ctx context.Context) {
	for {
		fmt.Fprint(s.out, "> ")
		line, ok := s.src.next(ctx)
		if !ok {
			fmt.Fprintln(s.out)
			return
		}

		e, err := parseLine(line)
		if errors.Is(err, errQuit) {
			return
		}
		if err != nil {
			fmt.Fprintln(s.out, err)
			continue
		}
		if e.Command == "" {
			continue
		}

		result, err := s.dispatcher.Dispatch(ctx, e)
		if err != nil {
			s.logger.Debug("command failed", "command", e.Command, "error", err)
			fmt.Fprintln(s.out, "error:", err)
			continue
		}
		s.print(result)
	}
}

func (s *shell) print(result any) {
	switch v := result.(type) {
	case nil:
	case core.Mark:
		fmt.Fprintln(s.out, formatMark(v))
	case []core.Mark:
		if len(v) == 0 {
			fmt.Fprintln(s.out, "no marks")
		}
		for i, m := range v {
			fmt.Fprintf(s.out, "%3d. %s\n", i+1, formatMark(m))
		}
	case float64:
		fmt.Fprintln(s.out, "rate", util.FormatRate(v))
	case monitor.Status:
		// already announced
	case string:
		if v != "queued" && v != "" {
			fmt.Fprintln(s.out, v)
		}
	default:
		fmt.Fprintln(s.out, v)
	}
}

func formatMark(m core.Mark) string {
	out := fmt.Sprintf("#%d %s category %d", m.ID, util.FrameOffsetToTime(m.FrameOffset), m.Category)
	if m.HasLabel() {
		out += " " + m.LabelText()
	}
	return out
}
