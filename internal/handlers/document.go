package handlers

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/sdam-project/sdam/internal/api"
	"github.com/sdam-project/sdam/internal/dispatcher"
	"github.com/sdam-project/sdam/internal/document"
	"github.com/sdam-project/sdam/pkg/core"
)

// handleDocumentLoad opens a document. Args: [path]
func (s *Service) handleDocumentLoad(ctx context.Context, e dispatcher.Event) (any, error) {
	path, ok := s.argOrPrompt(ctx, e, 0, "Open document", "Path of the document to open:")
	if !ok || strings.TrimSpace(path) == "" {
		return nil, nil
	}

	if err := s.deps.Documents.Load(strings.TrimSpace(path)); err != nil {
		s.toast("Could not open document")
		return nil, err
	}
	s.closeBrowse()
	s.deps.Controller.Reset()

	name := s.deps.Documents.Document().FileName()
	s.toast(fmt.Sprintf("Opened %s", name))
	return name, nil
}

// handleDocumentSave saves the document. Args: [path]
// Without a path the open file is overwritten; an untitled document asks for one.
func (s *Service) handleDocumentSave(ctx context.Context, e dispatcher.Event) (any, error) {
	path := strings.TrimSpace(e.Arg(0))

	err := s.deps.Documents.Save(path)
	if errors.Is(err, document.ErrNoFileOpened) {
		var ok bool
		path, ok = s.prompt(ctx, "Save document", "Path to save the document to:")
		if !ok || strings.TrimSpace(path) == "" {
			return nil, nil
		}
		err = s.deps.Documents.Save(strings.TrimSpace(path))
	}
	if err != nil {
		s.toast("Could not save document")
		return nil, err
	}

	name := s.deps.Documents.Document().FileName()
	s.toast(fmt.Sprintf("Saved %s", name))
	return name, nil
}

// handleDocumentText replaces the user text. Args: [text...]
// Without arguments it returns the current text.
func (s *Service) handleDocumentText(_ context.Context, e dispatcher.Event) (any, error) {
	doc := s.deps.Documents.Document()
	if len(e.Args) > 0 {
		doc.SetUserText(strings.Join(e.Args, " "))
	}
	return doc.UserText(), nil
}

// handleDocumentExport writes the mark list as YAML. Args: [path]
func (s *Service) handleDocumentExport(ctx context.Context, e dispatcher.Event) (any, error) {
	path, ok := s.argOrPrompt(ctx, e, 0, "Export marks", "Path to export the marks to:")
	if !ok || strings.TrimSpace(path) == "" {
		return nil, nil
	}
	path = strings.TrimSpace(path)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}
	if err := s.deps.Documents.ExportMarks(f); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	s.toast("Marks exported")
	return path, nil
}

// handleDocumentUpload saves the open document and sends it to the document server.
func (s *Service) handleDocumentUpload(ctx context.Context, _ dispatcher.Event) (any, error) {
	if s.deps.Uploader == nil {
		s.toast("No document server configured")
		return nil, errors.New("no document server configured")
	}

	if err := s.deps.Documents.Save(""); err != nil {
		if errors.Is(err, document.ErrNoFileOpened) {
			s.toast("Save the document first")
		} else {
			s.toast("Could not save document")
		}
		return nil, err
	}

	doc := s.deps.Documents.Document()
	meta := api.UploadMetadata{
		Name:      doc.FileName(),
		MarkCount: len(s.deps.Controller.ListMarks()),
		SessionID: s.deps.SessionID,
	}
	if s.deps.Monitor != nil {
		meta.DurationSeconds = float64(s.deps.Monitor.Poll().Length) / core.FramesPerSecond
	}

	if err := s.deps.Uploader.Upload(ctx, doc.FilePath(), meta); err != nil {
		s.toast("Upload failed")
		return nil, err
	}
	s.toast(fmt.Sprintf("Uploaded %s", meta.Name))
	return meta.Name, nil
}

// handleStatus runs a display poll and announces it.
func (s *Service) handleStatus(ctx context.Context, _ dispatcher.Event) (any, error) {
	if s.deps.Monitor == nil {
		return nil, nil
	}
	st := s.deps.Monitor.Report(ctx)
	s.toast(st.Display)
	return st, nil
}
