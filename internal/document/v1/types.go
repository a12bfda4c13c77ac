// Package v1 contains the v1 on-disk format of an sdam document.
package v1

// Version is written into every v1 file.
const Version = 1

// File is the root JSON structure of a document.
type File struct {
	Version     int    `json:"version"`
	AudioFrames uint   `json:"audioFrames"`
	Marks       []Mark `json:"marks"`
	Text        string `json:"text"`
}

// Mark is one stored mark.
type Mark struct {
	ID          uint64  `json:"id"`
	FrameOffset uint    `json:"frameOffset"`
	Category    int     `json:"category"`
	Label       *string `json:"label,omitempty"`
}
