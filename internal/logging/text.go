package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// #region text-sink
// TextSink appends one line per record to a text destination.
type TextSink struct {
	w      io.Writer
	closer io.Closer
	path   string
}

// OpenTextSink truncates (or creates) the file at path for a new run.
func OpenTextSink(path string) (*TextSink, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, &SinkError{Op: "ensure log dir", Err: err}
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, &SinkError{Op: "open " + path, Err: err}
	}
	return &TextSink{w: f, closer: f, path: path}, nil
}

// NewTextSink writes lines to w. The caller owns w.
func NewTextSink(w io.Writer) *TextSink {
	return &TextSink{w: w}
}

// Path returns the backing file, or "" for writer-backed sinks.
func (s *TextSink) Path() string { return s.path }

// Append writes rec as a single line.
func (s *TextSink) Append(rec Record) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if _, err := fmt.Fprintln(s.w, FormatLine(rec)); err != nil {
		return &SinkError{Op: "write line", Err: err}
	}
	return nil
}

// Close releases the file handle, if any.
func (s *TextSink) Close() error {
	if s == nil || s.closer == nil {
		return nil
	}
	return s.closer.Close()
}

// #endregion text-sink
