// Package notify shows the short announcements the session makes.
package notify

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/gen2brain/beeep"
)

// AppName titles desktop notifications.
const AppName = "SDAM"

// Toaster prints toasts to a writer and, optionally, the desktop.
type Toaster struct {
	mu      sync.Mutex
	out     io.Writer
	logger  *slog.Logger
	desktop bool

	// notify delivers desktop notifications; replaced in tests.
	notify func(title, message string) error
	wg     sync.WaitGroup
}

// New creates a Toaster writing to out.
func New(out io.Writer, logger *slog.Logger, desktop bool) *Toaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Toaster{
		out:     out,
		logger:  logger,
		desktop: desktop,
		notify:  desktopNotify,
	}
}

// Toast announces text. Desktop delivery happens in the background.
func (t *Toaster) Toast(text string) {
	t.logger.Info("toast", "text", text)

	if t.out != nil {
		t.mu.Lock()
		fmt.Fprintf(t.out, "» %s\n", text)
		t.mu.Unlock()
	}

	if !t.desktop {
		return
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		if err := t.notify(AppName, text); err != nil {
			t.logger.Debug("desktop notification failed", "error", err)
		}
	}()
}

// Wait blocks until pending desktop notifications are delivered.
func (t *Toaster) Wait() {
	t.wg.Wait()
}

func desktopNotify(title, message string) error {
	return beeep.Notify(title, message, "")
}
