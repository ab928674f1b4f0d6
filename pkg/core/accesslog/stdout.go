//
//  Copyright © the Cedrus authors. All rights reserved.
//

package accesslog

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
)

// Options configures the behavior of access log output.
type Options struct {
	// PrettyPrint enables indented multi-line JSON output. When false
	// (default), output is compact single-line JSON suitable for log
	// aggregation.
	PrettyPrint bool
}

// IoWriterFactory creates [Stream] instances that write to an [io.Writer].
//
// Use [NewStdoutFactory] for stdout, or [NewIoWriterFactory] for a custom
// writer such as a file or test buffer.
type IoWriterFactory struct {
	writer  io.Writer
	options Options
}

// IoWriterStream writes decision records as JSON to an [io.Writer], one
// record per line. Writes are serialized, so records never interleave.
type IoWriterStream struct {
	mu      sync.Mutex
	writer  io.Writer
	options Options
}

// NewStdoutFactory creates a [Factory] that writes decision records to
// stdout. This is the default used by the engine when no access log is
// configured.
func NewStdoutFactory() Factory {
	return NewIoWriterFactory(os.Stdout)
}

// NewIoWriterFactory creates a [Factory] that writes decision records to
// the specified [io.Writer].
func NewIoWriterFactory(w io.Writer) Factory {
	return NewIoWriterFactoryWithOptions(w, Options{})
}

// NewIoWriterFactoryWithOptions creates a [Factory] with explicit output
// options:
//
//	factory := accesslog.NewIoWriterFactoryWithOptions(os.Stdout, accesslog.Options{
//	    PrettyPrint: true,
//	})
func NewIoWriterFactoryWithOptions(w io.Writer, opts Options) Factory {
	return &IoWriterFactory{writer: w, options: opts}
}

// NewStream creates a new [IoWriterStream] bound to the configured writer.
func (f *IoWriterFactory) NewStream() (Stream, error) {
	return &IoWriterStream{writer: f.writer, options: f.options}, nil
}

// Send marshals the record to JSON and writes it followed by a newline.
//
// Write errors are returned but the engine treats them as non-fatal: an
// authorization decision is never failed because of a logging problem.
func (s *IoWriterStream) Send(record *DecisionRecord) error {
	var (
		data []byte
		err  error
	)
	if s.options.PrettyPrint {
		data, err = json.MarshalIndent(record, "", "  ")
	} else {
		data, err = json.Marshal(record)
	}
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = fmt.Fprintln(s.writer, string(data))
	return err
}

// Close is a no-op for IoWriterStream. The underlying writer is owned by
// the caller (and stdout must not be closed).
func (s *IoWriterStream) Close() {}
