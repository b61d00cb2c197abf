package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/bizscan/internal/model"
)

// MarkdownWriter outputs reports in Markdown format, for sharing a
// profile in an issue tracker or wiki.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// Write outputs a single report in Markdown format.
func (w *MarkdownWriter) Write(report *model.Report) (int, error) {
	return w.WriteAll([]*model.Report{report})
}

// WriteAll outputs every report as its own document section, separated
// by horizontal rules, followed by one footer.
func (w *MarkdownWriter) WriteAll(reports []*model.Report) (int, error) {
	md := markdown.NewMarkdown(w.output)

	for i, report := range reports {
		if i > 0 {
			md.HorizontalRule()
			md.PlainText("")
		}
		w.writeHeader(md, report)
		w.writeAlert(md, report)
		w.writeContact(md, report)
		w.writeEvidence(md, report)
		w.writeHiring(md, report)
		w.writeCrawl(md, report)
	}

	w.writeFooter(md)

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writeHeader(md *markdown.Markdown, report *model.Report) {
	md.H1("Business Profile: " + orNotFound(report.Identity.CompanyName))
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Website", "`" + report.Identity.WebsiteURL + "`"},
			{"Company", orNotFound(report.Identity.CompanyName)},
			{"Tagline", report.Identity.Tagline},
			{"What They Do", report.BusinessSummary.WhatTheyDo},
			{"Crawled At", report.Metadata.Timestamp + " UTC"},
			{"Pages Crawled", strconv.Itoa(len(report.Metadata.PagesCrawled))},
			{"Status", statusText(report)},
		},
	})
	md.PlainText("")
}

// statusText returns a one-line crawl status.
func statusText(report *model.Report) string {
	if report.Failed() {
		return "❌ Homepage unreachable"
	}
	return "✅ Complete"
}

// writeAlert summarizes the crawl outcome in a GitHub alert.
func (w *MarkdownWriter) writeAlert(md *markdown.Markdown, report *model.Report) {
	contacts := len(report.ContactLocation.Emails) + len(report.ContactLocation.PhoneNumbers)
	keyPages := len(report.EvidenceProof.KeyPagesDetected)

	switch {
	case report.Failed():
		md.Cautionf("The homepage could not be fetched: %s",
			truncateString(firstError(report), 200))
	case keyPages == 0:
		md.Warningf("The homepage answered but none of the priority pages did (%d page crawled).",
			len(report.Metadata.PagesCrawled))
	case contacts == 0:
		md.Importantf("No contact details on the homepage. %d key page(s) found.", keyPages)
	default:
		md.Tip(fmt.Sprintf("%d contact detail(s) and %d key page(s) found.", contacts, keyPages))
	}
	md.PlainText("")
}

func firstError(report *model.Report) string {
	if len(report.Metadata.ErrorsOrLimitations) == 0 {
		return ""
	}
	return report.Metadata.ErrorsOrLimitations[0]
}

func (w *MarkdownWriter) writeContact(md *markdown.Markdown, report *model.Report) {
	md.H2("Contact & Location")
	md.PlainText("")

	md.Table(markdown.TableSet{
		Header: []string{"Field", "Value"},
		Rows: [][]string{
			{"Address", report.ContactLocation.Address},
			{"Contact Page", orNotFound(report.ContactLocation.ContactPageURL)},
		},
	})
	md.PlainText("")

	writeList(md, "Emails", report.ContactLocation.Emails, "No e-mail address found.")
	writeList(md, "Phone Numbers", report.ContactLocation.PhoneNumbers, "No phone number found.")
}

func (w *MarkdownWriter) writeEvidence(md *markdown.Markdown, report *model.Report) {
	md.H2("Evidence")
	md.PlainText("")

	writeList(md, "Key Pages", report.EvidenceProof.KeyPagesDetected, "No priority page answered.")

	counts := countSignals(report.EvidenceProof.BusinessSignals)
	md.PlainText("### Business Signals")
	md.PlainText("")
	if len(counts) == 0 {
		md.PlainText("No trust keyword matched.")
		md.PlainText("")
		return
	}

	rows := make([][]string, len(counts))
	for i, c := range counts {
		rows[i] = []string{c.keyword, strconv.Itoa(c.count)}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Keyword", "Pages"},
		Rows:   rows,
	})
	md.PlainText("")

	if len(counts) > 1 {
		w.writePieChart(md, counts)
	}
}

// writePieChart writes a mermaid pie chart of keyword matches.
func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, counts []signalCount) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Business Signals"),
		piechart.WithShowData(true),
	)
	for _, c := range counts {
		chart.LabelAndIntValue(c.keyword, uint64(c.count)) //nolint:gosec // count is positive
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func (w *MarkdownWriter) writeHiring(md *markdown.Markdown, report *model.Report) {
	md.H2("Team & Hiring")
	md.PlainText("")
	md.PlainTextf("Careers page: %s", orNotFound(report.TeamHiring.CareersPageURL))
	md.PlainText("")
}

func (w *MarkdownWriter) writeCrawl(md *markdown.Markdown, report *model.Report) {
	md.H2("Crawl")
	md.PlainText("")

	writeList(md, "Pages Crawled", report.Metadata.PagesCrawled, "No page was fetched.")

	if len(report.Metadata.ErrorsOrLimitations) > 0 {
		md.PlainText("### Errors")
		md.PlainText("")
		for _, e := range report.Metadata.ErrorsOrLimitations {
			md.Details("Error", e)
		}
		md.PlainText("")
	}
}

// writeList writes an H3 title followed by a bullet list, or by empty
// when items is empty.
func writeList(md *markdown.Markdown, title string, items []string, empty string) {
	md.PlainText("### " + title)
	md.PlainText("")
	if len(items) == 0 {
		md.PlainText(empty)
	} else {
		md.BulletList(items...)
	}
	md.PlainText("")
}

func (w *MarkdownWriter) writeFooter(md *markdown.Markdown) {
	md.HorizontalRule()
	md.PlainText("")
	md.PlainTextf("*Report generated by [bizscan](%s)*", projectURL)
}

// projectURL is linked from report footers.
const projectURL = "https://github.com/nao1215/bizscan"

// truncateString shortens s to maxLen runes, ending with an ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
