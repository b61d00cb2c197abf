package report

import (
	"io"

	"github.com/nao1215/bizscan/internal/model"
)

// Writer defines the interface for report output.
// Implementations render business profiles in one format.
type Writer interface {
	// Write outputs a single report.
	// Returns the number of bytes written and any error encountered.
	Write(report *model.Report) (int, error)

	// WriteAll outputs the reports of a batch crawl in order.
	WriteAll(reports []*model.Report) (int, error)
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

// newBaseWriter creates a baseWriter with the given output destination.
func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// signalCount is the number of times one keyword was matched.
type signalCount struct {
	keyword string
	count   int
}

// countSignals groups business signals by keyword, keeping the order in
// which each keyword was first matched.
func countSignals(signals []string) []signalCount {
	counts := make([]signalCount, 0, len(signals))
	index := make(map[string]int, len(signals))
	for _, s := range signals {
		if i, ok := index[s]; ok {
			counts[i].count++
			continue
		}
		index[s] = len(counts)
		counts = append(counts, signalCount{keyword: s, count: 1})
	}
	return counts
}

// orNotFound returns s, or model.NotFound when s is empty.
func orNotFound(s string) string {
	if s == "" {
		return model.NotFound
	}
	return s
}
