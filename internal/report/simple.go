package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/nao1215/bizscan/internal/model"
)

// SimpleWriter outputs human-readable text reports for terminal display.
// It uses plain ASCII banners and no colors, so output can be piped.
type SimpleWriter struct {
	baseWriter

	// showEmpty controls whether sections with no data are shown.
	showEmpty bool

	// verbose adds the reserved fields and the crawled page list.
	verbose bool
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithShowEmpty configures the writer to show empty sections.
func WithShowEmpty(show bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.showEmpty = show
	}
}

// WithVerbose enables verbose output with additional details.
func WithVerbose(verbose bool) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.verbose = verbose
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter: newBaseWriter(output),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// Write outputs a single report in human-readable format.
func (w *SimpleWriter) Write(report *model.Report) (int, error) {
	return w.WriteAll([]*model.Report{report})
}

// WriteAll outputs the reports one after another with a shared footer.
func (w *SimpleWriter) WriteAll(reports []*model.Report) (int, error) {
	var sb strings.Builder

	for _, report := range reports {
		w.writeHeader(&sb, report)
		w.writeContact(&sb, report)
		w.writeEvidence(&sb, report)
		w.writeCrawl(&sb, report)
	}
	w.writeFooter(&sb)

	return io.WriteString(w.output, sb.String())
}

func (w *SimpleWriter) writeHeader(sb *strings.Builder, report *model.Report) {
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("                      BUSINESS PROFILE REPORT\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n\n")

	fmt.Fprintf(sb, "Company:        %s\n", orNotFound(report.Identity.CompanyName))
	fmt.Fprintf(sb, "Website:        %s\n", report.Identity.WebsiteURL)
	fmt.Fprintf(sb, "Crawled At:     %s UTC\n", report.Metadata.Timestamp)
	fmt.Fprintf(sb, "Pages Crawled:  %d\n", len(report.Metadata.PagesCrawled))

	if report.Failed() {
		fmt.Fprintf(sb, "Status:         FAILED - %s\n", firstError(report))
	} else {
		sb.WriteString("Status:         Complete\n")
	}

	if w.verbose {
		fmt.Fprintf(sb, "Tagline:        %s\n", report.Identity.Tagline)
		fmt.Fprintf(sb, "What They Do:   %s\n", report.BusinessSummary.WhatTheyDo)
	}

	sb.WriteString("\n")
}

// writeSection writes a banner titled title.
func writeSection(sb *strings.Builder, title string) {
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n")
	sb.WriteString(title)
	sb.WriteString("\n")
	sb.WriteString(strings.Repeat("-", 70))
	sb.WriteString("\n\n")
}

// writeItems writes one labelled list. Empty lists are skipped unless
// showEmpty is set.
func (w *SimpleWriter) writeItems(sb *strings.Builder, label string, items []string) {
	if len(items) == 0 && !w.showEmpty {
		return
	}
	fmt.Fprintf(sb, "%s:\n", label)
	if len(items) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, item := range items {
		fmt.Fprintf(sb, "  [+] %s\n", item)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeContact(sb *strings.Builder, report *model.Report) {
	c := report.ContactLocation
	if len(c.Emails) == 0 && len(c.PhoneNumbers) == 0 && c.ContactPageURL == "" && !w.showEmpty {
		return
	}

	writeSection(sb, "CONTACT & LOCATION")
	w.writeItems(sb, "Emails", c.Emails)
	w.writeItems(sb, "Phone Numbers", c.PhoneNumbers)
	fmt.Fprintf(sb, "Contact Page:   %s\n", orNotFound(c.ContactPageURL))
	fmt.Fprintf(sb, "Careers Page:   %s\n", orNotFound(report.TeamHiring.CareersPageURL))
	if w.verbose {
		fmt.Fprintf(sb, "Address:        %s\n", c.Address)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeEvidence(sb *strings.Builder, report *model.Report) {
	e := report.EvidenceProof
	if len(e.KeyPagesDetected) == 0 && len(e.BusinessSignals) == 0 && !w.showEmpty {
		return
	}

	writeSection(sb, "EVIDENCE")
	w.writeItems(sb, "Key Pages", e.KeyPagesDetected)

	counts := countSignals(e.BusinessSignals)
	if len(counts) == 0 && !w.showEmpty {
		return
	}
	sb.WriteString("Business Signals:\n")
	if len(counts) == 0 {
		sb.WriteString("  (none)\n")
	}
	for _, c := range counts {
		fmt.Fprintf(sb, "  * %-16s x%d\n", c.keyword, c.count)
	}
	sb.WriteString("\n")
}

func (w *SimpleWriter) writeCrawl(sb *strings.Builder, report *model.Report) {
	if !w.verbose {
		return
	}

	writeSection(sb, "CRAWL")
	w.writeItems(sb, "Pages Crawled", report.Metadata.PagesCrawled)
	w.writeItems(sb, "Errors", report.Metadata.ErrorsOrLimitations)
}

func (w *SimpleWriter) writeFooter(sb *strings.Builder) {
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
	sb.WriteString("Report generated by bizscan\n")
	sb.WriteString(projectURL + "\n")
	sb.WriteString(strings.Repeat("=", 70))
	sb.WriteString("\n")
}
