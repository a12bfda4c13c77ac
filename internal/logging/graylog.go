package logging

import (
	"fmt"
	"io"

	"github.com/Graylog2/go-gelf/gelf"
)

// NewGraylogSink opens a GELF/UDP writer to addr for use as an Options sink.
func NewGraylogSink(addr string) (io.WriteCloser, error) {
	w, err := gelf.NewWriter(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to graylog at %s: %w", addr, err)
	}
	w.Facility = "sdam"
	return w, nil
}
