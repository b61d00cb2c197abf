// Package report renders business profiles.
//
// This package contains writers for different output formats:
//   - JSONWriter: the fixed-shape JSON document, the default output
//   - MarkdownWriter: a shareable document with tables and alerts
//   - SimpleWriter: human-readable text output for terminal display
//
// Writers implement the Writer interface and can render one report or the
// ordered reports of a batch crawl.
package report
