package document

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/sdam-project/sdam/internal/util"
)

// ExportedMark is one entry of the human-readable mark list.
type ExportedMark struct {
	Time     string `yaml:"time"`
	Frame    uint   `yaml:"frame"`
	Category int    `yaml:"category"`
	Label    string `yaml:"label,omitempty"`
}

// ExportMarks writes the marks in frame order as a YAML list.
func (s *Service) ExportMarks(w io.Writer) error {
	marks, err := s.deps.Marks.ListMarks()
	if err != nil {
		return fmt.Errorf("failed to list marks: %w", err)
	}

	out := make([]ExportedMark, 0, len(marks))
	for _, m := range marks {
		out = append(out, ExportedMark{
			Time:     util.FrameOffsetToTime(m.FrameOffset),
			Frame:    m.FrameOffset,
			Category: int(m.Category),
			Label:    m.LabelText(),
		})
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(out); err != nil {
		return fmt.Errorf("failed to encode marks: %w", err)
	}
	return enc.Close()
}
