// Package handlers registers every user intent on the dispatcher and routes
// it to the session controller, the document service or the browse surface.
package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/sdam-project/sdam/internal/api"
	"github.com/sdam-project/sdam/internal/dispatcher"
	"github.com/sdam-project/sdam/internal/document"
	"github.com/sdam-project/sdam/internal/logging"
	"github.com/sdam-project/sdam/internal/monitor"
	"github.com/sdam-project/sdam/internal/session"
	"github.com/sdam-project/sdam/pkg/core"
)

// Command names understood by the dispatcher.
const (
	CmdRecordingStart = ":RECORDING:START:"
	CmdRecordingStop  = ":RECORDING:STOP:"
	CmdPlaybackToggle = ":PLAYBACK:TOGGLE:"

	CmdRateOriginal = ":RATE:ORIGINAL:"
	CmdRateIncrease = ":RATE:INCREASE:"
	CmdRateDecrease = ":RATE:DECREASE:"
	CmdRateSet      = ":RATE:SET:"

	CmdSeekForward    = ":SEEK:FORWARD:"
	CmdSeekBackward   = ":SEEK:BACKWARD:"
	CmdSeekStart      = ":SEEK:START:"
	CmdSeekEnd        = ":SEEK:END:"
	CmdSeekPercentage = ":SEEK:PERCENTAGE:"
	CmdSeekTime       = ":SEEK:TIME:"

	CmdTimeTravelActivate   = ":TIMETRAVEL:ACTIVATE:"
	CmdTimeTravelDeactivate = ":TIMETRAVEL:DEACTIVATE:"

	CmdMarkAdd             = ":MARK:ADD:"
	CmdMarkAddLabeled      = ":MARK:ADD:LABELED:"
	CmdMarkNext            = ":MARK:NEXT:"
	CmdMarkNextClosest     = ":MARK:NEXT:CLOSEST:"
	CmdMarkPrevious        = ":MARK:PREVIOUS:"
	CmdMarkPreviousClosest = ":MARK:PREVIOUS:CLOSEST:"
	CmdMarkFocused         = ":MARK:FOCUSED:"
	CmdMarkEditLabel       = ":MARK:EDIT:LABEL:"
	CmdMarkEditMove        = ":MARK:EDIT:MOVE:"
	CmdMarkDelete          = ":MARK:DELETE:"

	CmdMarksList   = ":MARKS:LIST:"
	CmdMarksBrowse = ":MARKS:BROWSE:"
	CmdMarksLabel  = ":MARKS:LABEL:"
	CmdMarksDelete = ":MARKS:DELETE:"

	CmdDocumentLoad   = ":DOCUMENT:LOAD:"
	CmdDocumentSave   = ":DOCUMENT:SAVE:"
	CmdDocumentText   = ":DOCUMENT:TEXT:"
	CmdDocumentExport = ":DOCUMENT:EXPORT:"
	CmdDocumentUpload = ":DOCUMENT:UPLOAD:"

	CmdStatus = ":STATUS:"
)

// BrowseStore is the direct store access of the browse surface. Edits made
// through it bypass the controller, which re-resolves its focus afterwards.
type BrowseStore interface {
	GetMark(id uint64) (core.Mark, bool, error)
	EditMark(id uint64, frame uint, category core.Category, label *string) error
	DeleteMark(id uint64) error
}

// Uploader sends a saved document to the document server.
type Uploader interface {
	Upload(ctx context.Context, path string, meta api.UploadMetadata) error
}

// Dependencies holds all dependencies needed by handlers
type Dependencies struct {
	Controller *session.Controller
	Marks      BrowseStore
	Documents  *document.Service
	Monitor    *monitor.Service
	Prompter   session.Prompter
	Notifier   session.Notifier
	LogManager *logging.SlogManager
	// Uploader is nil when no document server is configured.
	Uploader   Uploader
	SessionID  string

	SeekShortSeconds uint
	SeekLongSeconds  uint
}

// Service holds handler state that outlives a single event.
type Service struct {
	deps Dependencies

	mu       sync.Mutex
	browsing []core.Mark
	open     bool
}

// NewService creates a new handler service
func NewService(deps Dependencies) *Service {
	if deps.SeekShortSeconds == 0 {
		deps.SeekShortSeconds = 5
	}
	if deps.SeekLongSeconds == 0 {
		deps.SeekLongSeconds = 60
	}
	if deps.LogManager == nil {
		deps.LogManager = logging.NewSlogManager()
	}
	return &Service{deps: deps}
}

// RegisterHandlers registers all user intents with the dispatcher.
// Everything that changes session state runs synchronously, in order.
func (s *Service) RegisterHandlers(d *dispatcher.Dispatcher) {
	// Transport
	d.Register(CmdRecordingStart, s.handleRecordingStart, dispatcher.Logged())
	d.Register(CmdRecordingStop, s.handleRecordingStop, dispatcher.Logged())
	d.Register(CmdPlaybackToggle, s.handlePlaybackToggle, dispatcher.Logged())

	d.Register(CmdRateOriginal, s.handleRateOriginal, dispatcher.Logged())
	d.Register(CmdRateIncrease, s.handleRateIncrease, dispatcher.Logged())
	d.Register(CmdRateDecrease, s.handleRateDecrease, dispatcher.Logged())
	d.Register(CmdRateSet, s.handleRateSet, dispatcher.Logged())

	d.Register(CmdSeekForward, s.handleSeekForward, dispatcher.Logged())
	d.Register(CmdSeekBackward, s.handleSeekBackward, dispatcher.Logged())
	d.Register(CmdSeekStart, s.handleSeekStart, dispatcher.Logged())
	d.Register(CmdSeekEnd, s.handleSeekEnd, dispatcher.Logged())
	d.Register(CmdSeekPercentage, s.handleSeekPercentage, dispatcher.Logged())
	d.Register(CmdSeekTime, s.handleSeekTime, dispatcher.Logged())

	d.Register(CmdTimeTravelActivate, s.handleTimeTravelActivate, dispatcher.Logged())
	d.Register(CmdTimeTravelDeactivate, s.handleTimeTravelDeactivate, dispatcher.Logged())

	// Marks
	d.Register(CmdMarkAdd, s.handleMarkAdd, dispatcher.Logged())
	d.Register(CmdMarkAddLabeled, s.handleMarkAddLabeled, dispatcher.Logged())
	d.Register(CmdMarkNext, s.handleMarkNext, dispatcher.Logged())
	d.Register(CmdMarkNextClosest, s.handleMarkNextClosest, dispatcher.Logged())
	d.Register(CmdMarkPrevious, s.handleMarkPrevious, dispatcher.Logged())
	d.Register(CmdMarkPreviousClosest, s.handleMarkPreviousClosest, dispatcher.Logged())
	d.Register(CmdMarkFocused, s.handleMarkFocused, dispatcher.Logged())
	d.Register(CmdMarkEditLabel, s.handleMarkEditLabel, dispatcher.Logged())
	d.Register(CmdMarkEditMove, s.handleMarkEditMove, dispatcher.Logged())
	d.Register(CmdMarkDelete, s.handleMarkDelete, dispatcher.Logged())

	// Browse surface
	d.Register(CmdMarksList, s.handleMarksList, dispatcher.Logged())
	d.Register(CmdMarksBrowse, s.handleMarksBrowse, dispatcher.Logged())
	d.Register(CmdMarksLabel, s.handleMarksLabel, dispatcher.Logged())
	d.Register(CmdMarksDelete, s.handleMarksDelete, dispatcher.Logged())

	// Document
	d.Register(CmdDocumentLoad, s.handleDocumentLoad, dispatcher.Logged())
	d.Register(CmdDocumentSave, s.handleDocumentSave, dispatcher.Logged())
	d.Register(CmdDocumentText, s.handleDocumentText, dispatcher.Logged())
	d.Register(CmdDocumentExport, s.handleDocumentExport, dispatcher.Logged())
	d.Register(CmdDocumentUpload, s.handleDocumentUpload, dispatcher.Logged())

	// Display poll - skippable, dropped when a poll is already queued
	d.Register(CmdStatus, s.handleStatus, dispatcher.Buffered(1), dispatcher.Logged())
}

func (s *Service) toast(text string) {
	if s.deps.Notifier != nil {
		s.deps.Notifier.Toast(text)
	}
}

func (s *Service) prompt(ctx context.Context, title, message string) (string, bool) {
	if s.deps.Prompter == nil {
		return "", false
	}
	return s.deps.Prompter.Prompt(ctx, title, message)
}

// argOrPrompt returns argument i, or asks for it when absent.
func (s *Service) argOrPrompt(ctx context.Context, e dispatcher.Event, i int, title, message string) (string, bool) {
	if v := strings.TrimSpace(e.Arg(i)); v != "" {
		return v, true
	}
	return s.prompt(ctx, title, message)
}

func parseUint(arg, what string) (uint, error) {
	v, err := strconv.ParseUint(strings.TrimSpace(arg), 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s '%s'", what, arg)
	}
	return uint(v), nil
}

func parseCategory(arg string) (core.Category, error) {
	v, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		return 0, fmt.Errorf("%w: '%s'", core.ErrInvalidCategory, arg)
	}
	c := core.Category(v)
	if err := core.ValidateCategory(c); err != nil {
		return 0, err
	}
	return c, nil
}
