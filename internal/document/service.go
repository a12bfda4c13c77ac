package document

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	v1 "github.com/sdam-project/sdam/internal/document/v1"
	"github.com/sdam-project/sdam/pkg/core"
)

// MarkSource is the part of the marks store a document reads and replaces.
type MarkSource interface {
	ListMarks() ([]core.Mark, error)
	ReplaceMarks(marks []core.Mark) error
}

// Audio is the part of the audio engine a document reads and reloads.
type Audio interface {
	TotalLength() uint
	Load(length uint)
}

// Dependencies holds everything the document service needs.
type Dependencies struct {
	Document *Document
	Marks    MarkSource
	Audio    Audio
	Logger   *slog.Logger
	// OnChange is called with the new file name after a load or save.
	OnChange func(name string)
}

// Service loads and saves the open document.
type Service struct {
	deps Dependencies
}

// NewService creates a document service.
func NewService(deps Dependencies) *Service {
	if deps.Document == nil {
		deps.Document = New()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Service{deps: deps}
}

// Document returns the state the service operates on.
func (s *Service) Document() *Document {
	return s.deps.Document
}

// Load reads path, replaces the marks, reloads the audio length and opens the file.
func (s *Service) Load(path string) error {
	f, err := readFile(path)
	if err != nil {
		return err
	}
	marks, err := f.CoreMarks()
	if err != nil {
		return fmt.Errorf("invalid document %s: %w", path, err)
	}

	if err := s.deps.Marks.ReplaceMarks(marks); err != nil {
		return fmt.Errorf("failed to load marks: %w", err)
	}
	s.deps.Audio.Load(f.AudioFrames)
	s.deps.Document.set(path, f.Text)

	s.deps.Logger.Info("Document loaded", "path", path, "marks", len(marks), "frames", f.AudioFrames)
	s.changed()
	return nil
}

// Save writes the session to path, or to the open file when path is empty.
func (s *Service) Save(path string) error {
	if path == "" {
		path = s.deps.Document.FilePath()
	}
	if path == "" {
		return ErrNoFileOpened
	}
	if filepath.Ext(path) == "" {
		path += Extension
	}

	marks, err := s.deps.Marks.ListMarks()
	if err != nil {
		return fmt.Errorf("failed to list marks: %w", err)
	}
	f := v1.Build(s.deps.Audio.TotalLength(), marks, s.deps.Document.UserText())

	if err := writeFile(path, f); err != nil {
		return err
	}
	s.deps.Document.setPath(path)

	s.deps.Logger.Info("Document saved", "path", path, "marks", len(marks))
	s.changed()
	return nil
}

func (s *Service) changed() {
	if s.deps.OnChange != nil {
		s.deps.OnChange(s.deps.Document.FileName())
	}
}

func readFile(path string) (v1.File, error) {
	var f v1.File

	fh, err := os.Open(path)
	if err != nil {
		return f, fmt.Errorf("failed to open file: %w", err)
	}
	defer fh.Close()

	gzReader, err := gzip.NewReader(fh)
	if err != nil {
		return f, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer gzReader.Close()

	if err := json.NewDecoder(gzReader).Decode(&f); err != nil {
		return f, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	if f.Version != v1.Version {
		return f, fmt.Errorf("unsupported document version %d", f.Version)
	}
	return f, nil
}

// writeFile writes next to path and renames, so a failed save keeps the old file.
func writeFile(path string, data v1.File) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	gzWriter := gzip.NewWriter(tmp)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to encode document: %w", err)
	}
	if err := gzWriter.Close(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("failed to compress document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return nil
}
