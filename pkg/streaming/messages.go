// Package streaming defines the messages a mark store mirrors to a remote
// collector over WebSocket.
package streaming

import (
	"encoding/json"
)

// Message type constants matching the streaming protocol.
const (
	TypeStartSession  = "start_session"
	TypeEndSession    = "end_session"
	TypeMarkAdded     = "mark_added"
	TypeMarkEdited    = "mark_edited"
	TypeMarkDeleted   = "mark_deleted"
	TypeMarksReplaced = "marks_replaced"
)

// Envelope wraps all messages sent over the WebSocket.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// AckMessage is the server's acknowledgement response.
type AckMessage struct {
	Type string `json:"type"` // always "ack"
	For  string `json:"for"`  // the message type being acknowledged
}

// SessionPayload opens or closes a session on the collector.
type SessionPayload struct {
	SessionID string `json:"sessionId"`
}

// MarkPayload carries one mark.
type MarkPayload struct {
	ID          uint64  `json:"id"`
	FrameOffset uint    `json:"frameOffset"`
	Category    int     `json:"category"`
	Label       *string `json:"label,omitempty"`
}

// MarkDeletedPayload names a removed mark.
type MarkDeletedPayload struct {
	ID uint64 `json:"id"`
}

// MarksReplacedPayload carries the full collection after a document load.
type MarksReplacedPayload struct {
	Marks []MarkPayload `json:"marks"`
}
