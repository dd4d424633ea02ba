package sink

import (
	"io"
	"os"
	"sync"

	"github.com/autopatch/autopatch/pkg/event"
	"github.com/pkg/errors"
)

// Writer emits one JSON object per line to an io.Writer.
type Writer struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

var _ event.Sink = (*Writer)(nil)

// NewWriter writes events to w. The caller keeps ownership of w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{w: w}
}

// OpenFile appends events to the file at path, creating it if needed.
func OpenFile(path string) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640)
	if err != nil {
		return nil, errors.Wrap(err, "unable to open event file")
	}
	return &Writer{w: f, closer: f}, nil
}

func (s *Writer) Write(e event.Event) error {
	line, err := e.Line()
	if err != nil {
		return errors.Wrap(err, "unable to encode event")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.w.Write(append(line, '\n'))
	return err
}

// Close closes the underlying file when the Writer opened it.
func (s *Writer) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
