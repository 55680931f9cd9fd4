package document

import (
	"encoding/json"
	"io"
)

// JSONWriter renders documents as JSON for programmatic consumption.
// Page images are embedded as base64, which encoding/json does for
// []byte fields without extra machinery.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed output.
	indent bool
}

// JSONOption configures a JSONWriter.
type JSONOption func(*JSONWriter)

// WithPrettyPrint enables two-space indented output.
func WithPrettyPrint() JSONOption {
	return func(w *JSONWriter) {
		w.indent = true
	}
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write renders the document in JSON format.
func (w *JSONWriter) Write(doc *Document) (int, error) {
	var data []byte
	var err error

	if w.indent {
		data, err = json.MarshalIndent(doc, "", "  ")
	} else {
		data, err = json.Marshal(doc)
	}
	if err != nil {
		return 0, err
	}

	// Trailing newline for terminal-friendly output.
	data = append(data, '\n')

	return w.output.Write(data)
}
