package notify

import (
	"bytes"
	"errors"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToast_WritesAndLogs(t *testing.T) {
	var out, logs bytes.Buffer
	toaster := New(&out, slog.New(slog.NewTextHandler(&logs, nil)), false)
	toaster.notify = func(string, string) error {
		t.Fatal("desktop notification sent while disabled")
		return nil
	}

	toaster.Toast("Mark added")
	toaster.Toast("Recording")

	assert.Equal(t, "» Mark added\n» Recording\n", out.String())
	assert.Contains(t, logs.String(), `text="Mark added"`)
}

func TestToast_Desktop(t *testing.T) {
	var mu sync.Mutex
	var got []string
	toaster := New(nil, nil, true)
	toaster.notify = func(title, message string) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, title+": "+message)
		return errors.New("no notification daemon")
	}

	toaster.Toast("Timetravel activated")
	toaster.Wait()

	assert.Equal(t, []string{"SDAM: Timetravel activated"}, got)
}
