// Package convert provides functions to convert between GORM models and core models
package convert

import (
	"github.com/sdam-project/sdam/internal/model"
	"github.com/sdam-project/sdam/pkg/core"
)

// MarkToModel converts a core.Mark into its row for sessionID.
func MarkToModel(sessionID string, m core.Mark) model.Mark {
	return model.Mark{
		SessionID:   sessionID,
		MarkID:      m.ID,
		FrameOffset: m.FrameOffset,
		Category:    int(m.Category),
		Label:       cloneString(m.Label),
	}
}

// MarkFromModel converts a stored row back into a core.Mark.
func MarkFromModel(m model.Mark) core.Mark {
	return core.Mark{
		ID:          m.MarkID,
		FrameOffset: m.FrameOffset,
		Category:    core.Category(m.Category),
		Label:       cloneString(m.Label),
	}
}

// MarksFromModels converts a slice of rows, preserving order.
func MarksFromModels(rows []model.Mark) []core.Mark {
	out := make([]core.Mark, 0, len(rows))
	for _, r := range rows {
		out = append(out, MarkFromModel(r))
	}
	return out
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
