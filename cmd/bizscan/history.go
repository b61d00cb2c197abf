package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/nao1215/markdown"
	"github.com/spf13/cobra"

	"github.com/nao1215/bizscan/internal/database"
	"github.com/nao1215/bizscan/internal/model"
)

const (
	statusUnchanged = "unchanged"
	statusRecovered = "recovered"
	statusFailed    = "failed"
)

// errNoHistory is returned when the history database does not exist yet.
var errNoHistory = errors.New("no saved reports (use 'bizscan -s <website_url>' to save one)")

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history [website_url]",
		Short: "Compare saved reports of a website",
		Long: `History shows how the business profile of a website changed between
two saved reports.

The comparison lists contact details, key pages and trust keywords that
appeared or disappeared, pages whose content changed, and whether the
homepage became reachable or unreachable. Reports are saved with
'bizscan -s <website_url>'.

Examples:
  # Compare the latest two reports of a website
  bizscan history https://acme.example

  # List saved reports of a website
  bizscan history --list https://acme.example

  # Compare the latest report with report 3
  bizscan history --with-id 3 https://acme.example

  # Compare with the first report saved since a date
  bizscan history --since 2025-01-01 https://acme.example

  # List every website in the database
  bizscan history --list-sites`,
		Args: cobra.MaximumNArgs(1),
		RunE: runHistoryCmd,
	}

	cmd.Flags().BoolP("list", "l", false,
		"List saved reports for the website")
	cmd.Flags().BoolP("list-sites", "L", false,
		"List every website with saved reports")

	cmd.Flags().Int64P("with-id", "i", 0,
		"Compare the latest report with the report of this ID")
	cmd.Flags().StringP("since", "s", "",
		"Compare with the first report saved on or after this date (YYYY-MM-DD)")

	cmd.Flags().BoolP("json", "j", false,
		"Output comparison in JSON format")
	cmd.Flags().BoolP("markdown", "m", false,
		"Output comparison in Markdown format")
	addDBDirFlag(cmd)

	return cmd
}

// historyOptions holds the parsed flags of the history command.
type historyOptions struct {
	listSites bool
	list      bool
	withID    int64
	since     string
	json      bool
	markdown  bool
}

func parseHistoryOptions(cmd *cobra.Command) (historyOptions, error) {
	var (
		opts historyOptions
		err  error
	)
	flags := cmd.Flags()
	if opts.listSites, err = flags.GetBool("list-sites"); err != nil {
		return opts, err
	}
	if opts.list, err = flags.GetBool("list"); err != nil {
		return opts, err
	}
	if opts.withID, err = flags.GetInt64("with-id"); err != nil {
		return opts, err
	}
	if opts.since, err = flags.GetString("since"); err != nil {
		return opts, err
	}
	if opts.json, err = flags.GetBool("json"); err != nil {
		return opts, err
	}
	if opts.markdown, err = flags.GetBool("markdown"); err != nil {
		return opts, err
	}
	return opts, nil
}

// runHistoryCmd executes the history command.
func runHistoryCmd(cmd *cobra.Command, args []string) error {
	opts, err := parseHistoryOptions(cmd)
	if err != nil {
		return err
	}

	// Validate arguments before opening the database.
	var site string
	if !opts.listSites {
		if len(args) == 0 {
			return errors.New("website URL is required (use --list-sites to see saved websites)")
		}
		site = args[0]
	}
	if opts.json && opts.markdown {
		return errors.New("--json and --markdown cannot be used together")
	}

	dbDir, err := getDBDir(cmd)
	if err != nil {
		return err
	}
	db, err := database.Open(dbDir, database.Options{EnableWAL: true})
	if err != nil {
		if errors.Is(err, database.ErrDatabaseNotFound) {
			return errNoHistory
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	w := cmd.OutOrStdout()

	switch {
	case opts.listSites:
		return listSites(ctx, w, db)
	case opts.list:
		return listHistory(ctx, w, db, site)
	}

	cmp, err := loadComparison(ctx, db, site, opts)
	if err != nil {
		return err
	}

	switch {
	case opts.json:
		return outputComparisonJSON(w, cmp)
	case opts.markdown:
		return outputComparisonMarkdown(w, cmp)
	default:
		return outputComparisonText(w, cmp)
	}
}

// listSites prints every website that has saved reports.
func listSites(ctx context.Context, w io.Writer, db *database.ReportDB) error {
	sites, err := db.ListSites(ctx)
	if err != nil {
		return fmt.Errorf("failed to list websites: %w", err)
	}

	if len(sites) == 0 {
		fmt.Fprintln(w, "No saved reports found in the database.")
		fmt.Fprintln(w, "\nUse 'bizscan -s <website_url>' to save a report.")
		return nil
	}

	fmt.Fprintf(w, "Saved websites (%d):\n\n", len(sites))
	for _, site := range sites {
		fmt.Fprintf(w, "  • %s\n", site)
	}
	fmt.Fprintln(w, "\nUse 'bizscan history --list <website_url>' to see the reports of a website.")
	return nil
}

// listHistory prints the saved reports of site, newest first.
func listHistory(ctx context.Context, w io.Writer, db *database.ReportDB, site string) error {
	history, err := db.History(ctx, site)
	if err != nil {
		return fmt.Errorf("failed to get history: %w", err)
	}

	if len(history) == 0 {
		fmt.Fprintf(w, "No saved reports found for %s\n", site)
		return nil
	}

	fmt.Fprintf(w, "Reports for %s (%d):\n\n", site, len(history))
	fmt.Fprintf(w, "  %-6s  %-20s  %s\n", "ID", "Date", "Summary")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 60))
	for _, meta := range history {
		fmt.Fprintf(w, "  %-6d  %-20s  %s\n",
			meta.ID,
			meta.Timestamp.Format("2006-01-02 15:04:05"),
			formatSummary(meta.Summary),
		)
	}

	fmt.Fprintln(w, "\nUse 'bizscan history <website_url>' to compare the latest two reports.")
	fmt.Fprintln(w, "Use 'bizscan history --with-id <id> <website_url>' to compare with a specific report.")
	return nil
}

// formatSummary formats the stored counts of a report for a listing.
func formatSummary(s database.Summary) string {
	if s.Failed {
		return "FAILED"
	}
	return fmt.Sprintf("pages:%d emails:%d phones:%d signals:%d",
		s.PagesCrawled, s.Emails, s.PhoneNumbers, s.Signals)
}

// loadComparison picks the two reports selected by opts and compares them.
// The current report is always the latest one.
func loadComparison(ctx context.Context, db *database.ReportDB, site string, opts historyOptions) (*Comparison, error) {
	history, err := db.History(ctx, site)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	if len(history) == 0 {
		return nil, fmt.Errorf("no saved reports found for %s", site)
	}

	var previousID int64
	switch {
	case opts.withID > 0:
		if opts.withID == history[0].ID {
			return nil, fmt.Errorf("report %d is the latest report; choose an older one", opts.withID)
		}
		previousID = opts.withID
	case opts.since != "":
		since, err := time.Parse("2006-01-02", opts.since)
		if err != nil {
			return nil, fmt.Errorf("invalid date format (use YYYY-MM-DD): %w", err)
		}
		// History is newest first; walk back to the oldest match.
		for i := len(history) - 1; i >= 0; i-- {
			if !history[i].Timestamp.Before(since) {
				previousID = history[i].ID
				break
			}
		}
		if previousID == 0 {
			return nil, fmt.Errorf("no reports found since %s", opts.since)
		}
		if previousID == history[0].ID {
			return nil, fmt.Errorf("only one report found since %s; at least 2 are required", opts.since)
		}
	default:
		latest, err := db.LatestReports(ctx, site, 2)
		if err != nil {
			return nil, fmt.Errorf("failed to load reports: %w", err)
		}
		if len(latest) < 2 {
			return nil, fmt.Errorf("at least 2 saved reports are required for comparison (found %d)", len(latest))
		}
		return compareReports(latest[1], latest[0]), nil
	}

	previous, err := db.ReportByID(ctx, previousID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report %d: %w", previousID, err)
	}
	if previous.Identity.WebsiteURL != site {
		return nil, fmt.Errorf("report %d belongs to %s, not %s", previousID, previous.Identity.WebsiteURL, site)
	}
	current, err := db.ReportByID(ctx, history[0].ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load report %d: %w", history[0].ID, err)
	}

	return compareReports(previous, current), nil
}

// Comparison holds the differences between two reports of a website.
type Comparison struct {
	// WebsiteURL is the compared website.
	WebsiteURL string `json:"website_url"`

	// Previous and Current summarize the compared reports.
	Previous Snapshot `json:"previous"`
	Current  Snapshot `json:"current"`

	// Status is "unchanged", "recovered" or "failed".
	Status string `json:"status"`

	NewEmails       []string `json:"new_emails"`
	RemovedEmails   []string `json:"removed_emails"`
	NewPhones       []string `json:"new_phone_numbers"`
	RemovedPhones   []string `json:"removed_phone_numbers"`
	NewKeyPages     []string `json:"new_key_pages"`
	RemovedKeyPages []string `json:"removed_key_pages"`
	NewSignals      []string `json:"new_signals"`
	RemovedSignals  []string `json:"removed_signals"`

	// ChangedPages lists URLs fetched by both crawls whose content differs.
	ChangedPages []string `json:"changed_pages"`
}

// Snapshot summarizes one side of a Comparison.
type Snapshot struct {
	Timestamp    string `json:"timestamp"`
	PagesCrawled int    `json:"pages_crawled"`
	Emails       int    `json:"emails"`
	PhoneNumbers int    `json:"phone_numbers"`
	Signals      int    `json:"signals"`
	Failed       bool   `json:"failed"`
}

func newSnapshot(r *model.Report) Snapshot {
	return Snapshot{
		Timestamp:    r.Metadata.Timestamp,
		PagesCrawled: len(r.Metadata.PagesCrawled),
		Emails:       len(r.ContactLocation.Emails),
		PhoneNumbers: len(r.ContactLocation.PhoneNumbers),
		Signals:      len(r.EvidenceProof.BusinessSignals),
		Failed:       r.Failed(),
	}
}

// compareReports compares previous with current.
func compareReports(previous, current *model.Report) *Comparison {
	cmp := &Comparison{
		WebsiteURL: current.Identity.WebsiteURL,
		Previous:   newSnapshot(previous),
		Current:    newSnapshot(current),
		Status:     statusUnchanged,
	}

	switch {
	case cmp.Previous.Failed && !cmp.Current.Failed:
		cmp.Status = statusRecovered
	case !cmp.Previous.Failed && cmp.Current.Failed:
		cmp.Status = statusFailed
	}

	cmp.NewEmails, cmp.RemovedEmails = diffStrings(previous.ContactLocation.Emails, current.ContactLocation.Emails)
	cmp.NewPhones, cmp.RemovedPhones = diffStrings(previous.ContactLocation.PhoneNumbers, current.ContactLocation.PhoneNumbers)
	cmp.NewKeyPages, cmp.RemovedKeyPages = diffStrings(previous.EvidenceProof.KeyPagesDetected, current.EvidenceProof.KeyPagesDetected)
	cmp.NewSignals, cmp.RemovedSignals = diffStrings(previous.EvidenceProof.BusinessSignals, current.EvidenceProof.BusinessSignals)
	cmp.ChangedPages = changedPages(previous.Pages, current.Pages)

	return cmp
}

// diffStrings returns the distinct values only in current (added) and only
// in previous (removed), each in first-seen order. Results are never nil.
func diffStrings(previous, current []string) (added, removed []string) {
	prevSet := make(map[string]struct{}, len(previous))
	for _, v := range previous {
		prevSet[v] = struct{}{}
	}
	curSet := make(map[string]struct{}, len(current))
	for _, v := range current {
		curSet[v] = struct{}{}
	}

	added = []string{}
	for _, v := range current {
		if _, ok := prevSet[v]; !ok {
			added = append(added, v)
			prevSet[v] = struct{}{}
		}
	}
	removed = []string{}
	for _, v := range previous {
		if _, ok := curSet[v]; !ok {
			removed = append(removed, v)
			curSet[v] = struct{}{}
		}
	}
	return added, removed
}

// changedPages returns the URLs present in both page lists whose content
// hashes differ, in current order.
func changedPages(previous, current []*model.Page) []string {
	hashes := make(map[string]string, len(previous))
	for _, p := range previous {
		hashes[p.URL] = p.Hash
	}

	changed := []string{}
	for _, p := range current {
		if h, ok := hashes[p.URL]; ok && h != p.Hash {
			changed = append(changed, p.URL)
		}
	}
	return changed
}

// outputComparisonJSON writes cmp as indented JSON.
func outputComparisonJSON(w io.Writer, cmp *Comparison) error {
	encoder := json.NewEncoder(w)
	encoder.SetEscapeHTML(false)
	encoder.SetIndent("", "  ")
	return encoder.Encode(cmp)
}

// outputComparisonMarkdown writes cmp as a Markdown document.
func outputComparisonMarkdown(w io.Writer, cmp *Comparison) error {
	md := markdown.NewMarkdown(w)

	md.H1("Report Comparison: " + cmp.WebsiteURL)
	md.PlainTextf("**Status:** %s", formatStatus(cmp.Status))

	md.Table(markdown.TableSet{
		Header: []string{"Metric", "Previous", "Current", "Change"},
		Rows: [][]string{
			{"Date", cmp.Previous.Timestamp, cmp.Current.Timestamp, "-"},
			countRow("Pages Crawled", cmp.Previous.PagesCrawled, cmp.Current.PagesCrawled),
			countRow("Emails", cmp.Previous.Emails, cmp.Current.Emails),
			countRow("Phone Numbers", cmp.Previous.PhoneNumbers, cmp.Current.PhoneNumbers),
			countRow("Signals", cmp.Previous.Signals, cmp.Current.Signals),
		},
	})

	for _, section := range comparisonSections(cmp) {
		if len(section.items) == 0 {
			continue
		}
		md.H2(fmt.Sprintf("%s (%d)", section.title, len(section.items)))
		md.BulletList(section.items...)
	}

	if !cmp.hasChanges() {
		md.Note("No differences between the two reports.")
	}

	return md.Build()
}

// outputComparisonText writes cmp in a human-readable text format.
func outputComparisonText(w io.Writer, cmp *Comparison) error {
	fmt.Fprintf(w, "Report Comparison: %s\n", cmp.WebsiteURL)
	fmt.Fprintln(w, strings.Repeat("=", 60))

	fmt.Fprintf(w, "\nStatus: %s\n", formatStatus(cmp.Status))
	fmt.Fprintf(w, "\nPrevious report: %s\n", cmp.Previous.Timestamp)
	fmt.Fprintf(w, "Current report:  %s\n", cmp.Current.Timestamp)

	fmt.Fprintln(w, "\nSummary:")
	fmt.Fprintf(w, "  %-14s  %-10s  %-10s  %-10s\n", "Metric", "Previous", "Current", "Change")
	fmt.Fprintln(w, "  "+strings.Repeat("-", 50))
	for _, row := range [][]string{
		countRow("Pages Crawled", cmp.Previous.PagesCrawled, cmp.Current.PagesCrawled),
		countRow("Emails", cmp.Previous.Emails, cmp.Current.Emails),
		countRow("Phone Numbers", cmp.Previous.PhoneNumbers, cmp.Current.PhoneNumbers),
		countRow("Signals", cmp.Previous.Signals, cmp.Current.Signals),
	} {
		fmt.Fprintf(w, "  %-14s  %-10s  %-10s  %-10s\n", row[0], row[1], row[2], row[3])
	}

	for _, section := range comparisonSections(cmp) {
		if len(section.items) == 0 {
			continue
		}
		fmt.Fprintf(w, "\n%s (%d):\n", section.title, len(section.items))
		for _, item := range section.items {
			fmt.Fprintf(w, "  [%s] %s\n", section.marker, item)
		}
	}

	if !cmp.hasChanges() {
		fmt.Fprintln(w, "\nNo differences between the two reports.")
	}
	return nil
}

type comparisonSection struct {
	title  string
	marker string
	items  []string
}

func comparisonSections(cmp *Comparison) []comparisonSection {
	return []comparisonSection{
		{"New Emails", "+", cmp.NewEmails},
		{"Removed Emails", "-", cmp.RemovedEmails},
		{"New Phone Numbers", "+", cmp.NewPhones},
		{"Removed Phone Numbers", "-", cmp.RemovedPhones},
		{"New Key Pages", "+", cmp.NewKeyPages},
		{"Removed Key Pages", "-", cmp.RemovedKeyPages},
		{"New Signals", "+", cmp.NewSignals},
		{"Removed Signals", "-", cmp.RemovedSignals},
		{"Changed Pages", "*", cmp.ChangedPages},
	}
}

func (c *Comparison) hasChanges() bool {
	if c.Status != statusUnchanged {
		return true
	}
	for _, section := range comparisonSections(c) {
		if len(section.items) > 0 {
			return true
		}
	}
	return false
}

func countRow(name string, previous, current int) []string {
	return []string{name, strconv.Itoa(previous), strconv.Itoa(current), formatDelta(current - previous)}
}

// formatStatus formats a reachability status for display.
func formatStatus(status string) string {
	switch status {
	case statusRecovered:
		return "RECOVERED (homepage reachable again)"
	case statusFailed:
		return "FAILED (homepage no longer reachable)"
	default:
		return "UNCHANGED"
	}
}

// formatDelta formats a numeric delta with sign for display.
func formatDelta(delta int) string {
	if delta > 0 {
		return "+" + strconv.Itoa(delta)
	}
	return strconv.Itoa(delta)
}
