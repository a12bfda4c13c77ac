package logging

import (
	"log/slog"
	"sync/atomic"
)

// SessionContext supplies the attributes that identify the running session.
// The document name can change while the session runs.
type SessionContext struct {
	id       string
	document atomic.Value
}

// NewSessionContext creates a context for the given session id.
func NewSessionContext(id string) *SessionContext {
	s := &SessionContext{id: id}
	s.document.Store("")
	return s
}

// ID returns the session id.
func (s *SessionContext) ID() string {
	return s.id
}

// SetDocument records the name of the open document.
func (s *SessionContext) SetDocument(name string) {
	s.document.Store(name)
}

// Document returns the name of the open document, empty when none was recorded.
func (s *SessionContext) Document() string {
	doc, _ := s.document.Load().(string)
	return doc
}

// Attrs is a ContextProvider.
func (s *SessionContext) Attrs() []slog.Attr {
	attrs := []slog.Attr{slog.String("session_id", s.id)}
	if doc := s.Document(); doc != "" {
		attrs = append(attrs, slog.String("document", doc))
	}
	return attrs
}
