package v1

import (
	"fmt"

	"github.com/sdam-project/sdam/internal/util"
	"github.com/sdam-project/sdam/pkg/core"
)

// Build assembles a file from the session's current state.
func Build(audioFrames uint, marks []core.Mark, text string) File {
	f := File{
		Version:     Version,
		AudioFrames: audioFrames,
		Marks:       make([]Mark, 0, len(marks)),
		Text:        text,
	}
	for _, m := range marks {
		f.Marks = append(f.Marks, Mark{
			ID:          m.ID,
			FrameOffset: m.FrameOffset,
			Category:    int(m.Category),
			Label:       m.Label,
		})
	}
	return f
}

// CoreMarks validates the stored marks and converts them.
// Marks past the end of the audio are rejected, empty labels become no label.
func (f File) CoreMarks() ([]core.Mark, error) {
	out := make([]core.Mark, 0, len(f.Marks))
	for _, m := range f.Marks {
		category := core.Category(m.Category)
		if err := core.ValidateCategory(category); err != nil {
			return nil, fmt.Errorf("mark %d: %w", m.ID, err)
		}
		if m.FrameOffset > f.AudioFrames {
			return nil, fmt.Errorf("mark %d at frame %d is past the end of the audio (%d frames)", m.ID, m.FrameOffset, f.AudioFrames)
		}
		var label *string
		if m.Label != nil {
			label = util.NormalizeLabel(*m.Label)
		}
		out = append(out, core.Mark{
			ID:          m.ID,
			FrameOffset: m.FrameOffset,
			Category:    category,
			Label:       label,
		})
	}
	return out, nil
}
