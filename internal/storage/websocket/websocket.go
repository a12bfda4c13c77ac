// Package websocket implements storage.Backend as an in-memory store whose
// mutations are mirrored to a remote collector over WebSocket.
package websocket

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sdam-project/sdam/internal/storage"
	"github.com/sdam-project/sdam/internal/storage/memory"
	"github.com/sdam-project/sdam/pkg/core"
	"github.com/sdam-project/sdam/pkg/streaming"
)

// Re-exported protocol names for callers of this package.
type (
	Envelope   = streaming.Envelope
	AckMessage = streaming.AckMessage
)

const (
	TypeStartSession  = streaming.TypeStartSession
	TypeEndSession    = streaming.TypeEndSession
	TypeMarkAdded     = streaming.TypeMarkAdded
	TypeMarkEdited    = streaming.TypeMarkEdited
	TypeMarkDeleted   = streaming.TypeMarkDeleted
	TypeMarksReplaced = streaming.TypeMarksReplaced
)

// Config holds WebSocket backend configuration.
type Config struct {
	URL       string
	Secret    string
	SessionID string
}

// Backend serves reads locally and streams every successful write.
type Backend struct {
	*memory.Backend
	conn *connection
	cfg  Config
}

// New creates a new WebSocket storage backend.
func New(cfg Config, logger *slog.Logger) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{
		Backend: memory.New(),
		conn:    newConnection(logger.With("component", "storage:websocket")),
		cfg:     cfg,
	}
}

// Init connects to the collector and opens the session.
func (b *Backend) Init() error {
	if err := b.conn.dial(b.cfg.URL, b.cfg.Secret); err != nil {
		return err
	}

	data, err := marshalEnvelope(TypeStartSession, streaming.SessionPayload{SessionID: b.cfg.SessionID})
	if err != nil {
		return err
	}

	// Cache for reconnect replay.
	b.conn.mu.Lock()
	b.conn.cachedStartMsg = data
	b.conn.mu.Unlock()

	if err := b.conn.sendAndWait(data, TypeStartSession, ackTimeout); err != nil {
		_ = b.conn.close()
		return err
	}
	return nil
}

// Close ends the session and disconnects.
func (b *Backend) Close() error {
	endErr := b.sendEnvelopeAndWait(TypeEndSession, streaming.SessionPayload{SessionID: b.cfg.SessionID})
	return errors.Join(endErr, b.conn.close())
}

// marshalEnvelope builds a JSON-encoded Envelope from a message type and payload.
func marshalEnvelope(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", msgType, err)
	}
	env := streaming.Envelope{Type: msgType, Payload: raw}
	data, err := json.Marshal(env)
	if err != nil {
		return nil, fmt.Errorf("marshal %s envelope: %w", msgType, err)
	}
	return data, nil
}

// sendEnvelope marshals the payload into an Envelope and pushes it
// to the write loop (fire-and-forget).
func (b *Backend) sendEnvelope(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	b.conn.send(data)
	return nil
}

// sendEnvelopeAndWait marshals the payload and waits for a server ack.
func (b *Backend) sendEnvelopeAndWait(msgType string, payload any) error {
	data, err := marshalEnvelope(msgType, payload)
	if err != nil {
		return err
	}
	return b.conn.sendAndWait(data, msgType, ackTimeout)
}

func toPayload(m core.Mark) streaming.MarkPayload {
	return streaming.MarkPayload{
		ID:          m.ID,
		FrameOffset: m.FrameOffset,
		Category:    int(m.Category),
		Label:       storage.CloneLabel(m.Label),
	}
}

func (b *Backend) AddMark(frame uint, category core.Category, label *string) (core.Mark, error) {
	m, err := b.Backend.AddMark(frame, category, label)
	if err != nil {
		return m, err
	}
	return m, b.sendEnvelope(TypeMarkAdded, toPayload(m))
}

func (b *Backend) EditMark(id uint64, frame uint, category core.Category, label *string) error {
	if err := b.Backend.EditMark(id, frame, category, label); err != nil {
		return err
	}
	return b.sendEnvelope(TypeMarkEdited, toPayload(core.Mark{ID: id, FrameOffset: frame, Category: category, Label: label}))
}

func (b *Backend) DeleteMark(id uint64) error {
	if err := b.Backend.DeleteMark(id); err != nil {
		return err
	}
	return b.sendEnvelope(TypeMarkDeleted, streaming.MarkDeletedPayload{ID: id})
}

func (b *Backend) ReplaceMarks(marks []core.Mark) error {
	if err := b.Backend.ReplaceMarks(marks); err != nil {
		return err
	}
	sorted, err := b.Backend.ListMarks()
	if err != nil {
		return err
	}
	payload := streaming.MarksReplacedPayload{Marks: make([]streaming.MarkPayload, 0, len(sorted))}
	for _, m := range sorted {
		payload.Marks = append(payload.Marks, toPayload(m))
	}
	return b.sendEnvelope(TypeMarksReplaced, payload)
}
