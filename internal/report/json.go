package report

import (
	"bytes"
	"encoding/json"
	"io"

	"github.com/nao1215/bizscan/internal/model"
)

// JSONWriter outputs reports in JSON format.
// This is the default output and the one other tools consume.
//
// HTML characters are never escaped, so URLs containing '&' stay readable.
type JSONWriter struct {
	baseWriter

	// indent enables pretty-printed JSON output.
	// When false, output is compact (no extra whitespace).
	indent bool

	// indentPrefix is the prefix for each line in indented output.
	indentPrefix string

	// indentString is the indentation string (typically "  " or "\t").
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single report as a JSON object.
func (w *JSONWriter) Write(report *model.Report) (int, error) {
	return w.writeJSON(report)
}

// WriteAll outputs the reports as a JSON array.
func (w *JSONWriter) WriteAll(reports []*model.Report) (int, error) {
	if reports == nil {
		reports = []*model.Report{}
	}
	return w.writeJSON(reports)
}

// writeJSON encodes v and writes it to the output followed by a newline.
// Nothing is written when encoding fails.
func (w *JSONWriter) writeJSON(v any) (int, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if w.indent {
		enc.SetIndent(w.indentPrefix, w.indentString)
	}

	if err := enc.Encode(v); err != nil {
		return 0, err
	}

	return w.output.Write(buf.Bytes())
}
