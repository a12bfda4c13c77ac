// Package document holds the open file of a session: where it lives, the
// user's free text, and how marks and audio length are persisted.
package document

import (
	"errors"
	"path/filepath"
	"sync"
)

// Extension is appended to save paths that have none.
const Extension = ".sdam"

// UntitledName is reported while no file is open.
const UntitledName = "Untitled"

// ErrNoFileOpened is returned by Save when neither a path nor a current file is known.
var ErrNoFileOpened = errors.New("no file opened")

// Document is the mutable state of the open file.
type Document struct {
	mu       sync.RWMutex
	path     string
	userText string
}

// New returns an untitled, empty document.
func New() *Document {
	return &Document{}
}

func (d *Document) FilePath() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.path
}

// FileName is the base name of the open file, or UntitledName.
func (d *Document) FileName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.path == "" {
		return UntitledName
	}
	return filepath.Base(d.path)
}

func (d *Document) UserText() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.userText
}

func (d *Document) SetUserText(text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.userText = text
}

func (d *Document) setPath(path string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
}

func (d *Document) set(path, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = path
	d.userText = text
}
