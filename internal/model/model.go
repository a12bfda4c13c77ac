package model

import (
	"time"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Session{},
	&Mark{},
}

// Session is one run of the marks service. Marks of different sessions
// may share the same MarkID.
type Session struct {
	ID        string    `json:"id" gorm:"primarykey;size:36;"`
	StartedAt time.Time `json:"startedAt" gorm:"not null"`
	Marks     []Mark    `json:"-" gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;foreignkey:SessionID;"`
}

func (*Session) TableName() string {
	return "sessions"
}

// Mark is a persisted bookmark.
type Mark struct {
	ID          uint      `json:"-" gorm:"primarykey;autoIncrement;"`
	CreatedAt   time.Time `json:"-"`
	UpdatedAt   time.Time `json:"-"`
	SessionID   string    `json:"sessionId" gorm:"size:36;not null;uniqueIndex:idx_session_mark"`
	MarkID      uint64    `json:"id" gorm:"not null;uniqueIndex:idx_session_mark"`
	FrameOffset uint      `json:"frameOffset" gorm:"not null;index:idx_mark_frame_offset"` // audio frames, 40ms each
	Category    int       `json:"category" gorm:"not null"`
	Label       *string   `json:"label" gorm:"size:512"`
}

func (*Mark) TableName() string {
	return "marks"
}
