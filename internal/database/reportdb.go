package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/bizscan/internal/model"
)

// FileName is the name of the database file inside the data directory.
const FileName = "bizscan.db"

var (
	// ErrNotFound is returned when no saved report matches a query.
	ErrNotFound = errors.New("report not found")

	// ErrDatabaseNotFound is returned by Open when the database file does
	// not exist and CreateIfNotExists is false.
	ErrDatabaseNotFound = errors.New("database not found")
)

// ReportDB stores business profile reports in SQLite so that repeated
// crawls of the same website can be compared.
type ReportDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ReportDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if needed.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the report database in dbDir.
func Open(dbDir string, opts Options) (*ReportDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	mode := "rwc"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	} else {
		if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
		mode = "rw"
	}

	// Concurrent processes wait for the lock instead of failing with SQLITE_BUSY.
	db, err := sql.Open("sqlite", dbPath+"?mode="+mode+"&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	rdb := &ReportDB{db: db, dbPath: dbPath}

	ctx := context.Background()
	if opts.EnableWAL {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close() //nolint:errcheck // the WAL error is more useful
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := rdb.createTables(ctx); err != nil {
		_ = db.Close() //nolint:errcheck // the schema error is more useful
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return rdb, nil
}

// Close closes the database connection.
func (rdb *ReportDB) Close() error {
	return rdb.db.Close()
}

// Path returns the database file path.
func (rdb *ReportDB) Path() string {
	return rdb.dbPath
}

func (rdb *ReportDB) createTables(ctx context.Context) error {
	schema := `
	-- One row per crawl. report_json is the report exactly as printed.
	CREATE TABLE IF NOT EXISTS reports (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		website_url TEXT NOT NULL,
		company_name TEXT NOT NULL,
		timestamp TEXT NOT NULL,
		saved_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		report_json TEXT NOT NULL,
		summary TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_reports_site ON reports(website_url);

	-- Pages fetched during a crawl, used to spot changed content.
	CREATE TABLE IF NOT EXISTS pages (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		report_id INTEGER NOT NULL REFERENCES reports(id) ON DELETE CASCADE,
		url TEXT NOT NULL,
		final_url TEXT,
		status_code INTEGER,
		content_type TEXT,
		hash TEXT,
		UNIQUE(report_id, url)
	);

	CREATE INDEX IF NOT EXISTS idx_pages_report ON pages(report_id);
	`

	_, err := rdb.db.ExecContext(ctx, schema)
	return err
}

// Summary holds the counts stored alongside each report.
type Summary struct {
	Emails       int  `json:"emails"`
	PhoneNumbers int  `json:"phone_numbers"`
	KeyPages     int  `json:"key_pages"`
	Signals      int  `json:"signals"`
	PagesCrawled int  `json:"pages_crawled"`
	Failed       bool `json:"failed"`
}

// NewSummary counts the contents of report.
func NewSummary(report *model.Report) Summary {
	return Summary{
		Emails:       len(report.ContactLocation.Emails),
		PhoneNumbers: len(report.ContactLocation.PhoneNumbers),
		KeyPages:     len(report.EvidenceProof.KeyPagesDetected),
		Signals:      len(report.EvidenceProof.BusinessSignals),
		PagesCrawled: len(report.Metadata.PagesCrawled),
		Failed:       report.Failed(),
	}
}

// SaveReport stores report and its fetched pages in one transaction and
// returns the new report ID.
func (rdb *ReportDB) SaveReport(ctx context.Context, report *model.Report) (id int64, err error) {
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return 0, fmt.Errorf("failed to serialize report: %w", err)
	}
	summaryJSON, err := json.Marshal(NewSummary(report))
	if err != nil {
		return 0, fmt.Errorf("failed to serialize summary: %w", err)
	}

	tx, err := rdb.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback() //nolint:errcheck // the original error is returned
		}
	}()

	result, err := tx.ExecContext(ctx, `
	INSERT INTO reports (website_url, company_name, timestamp, report_json, summary)
	VALUES (?, ?, ?, ?, ?)
	`,
		report.Identity.WebsiteURL,
		report.Identity.CompanyName,
		report.Metadata.Timestamp,
		string(reportJSON),
		string(summaryJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save report: %w", err)
	}
	id, err = result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get report id: %w", err)
	}

	for _, page := range report.Pages {
		_, err = tx.ExecContext(ctx, `
		INSERT INTO pages (report_id, url, final_url, status_code, content_type, hash)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(report_id, url) DO UPDATE SET
			final_url = excluded.final_url,
			status_code = excluded.status_code,
			content_type = excluded.content_type,
			hash = excluded.hash
		`,
			id,
			page.URL,
			page.FinalURL,
			page.StatusCode,
			page.ContentType,
			page.Hash,
		)
		if err != nil {
			return 0, fmt.Errorf("failed to save page %s: %w", page.URL, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit report: %w", err)
	}
	return id, nil
}

// ReportByID returns the saved report with the given ID, including the
// metadata of its pages. ErrNotFound is returned when there is none.
func (rdb *ReportDB) ReportByID(ctx context.Context, id int64) (*model.Report, error) {
	var reportJSON string
	err := rdb.db.QueryRowContext(ctx, `SELECT report_json FROM reports WHERE id = ?`, id).Scan(&reportJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: id %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get report: %w", err)
	}

	report, err := decodeReport(reportJSON)
	if err != nil {
		return nil, err
	}
	if report.Pages, err = rdb.pages(ctx, id); err != nil {
		return nil, err
	}
	return report, nil
}

// LatestReports returns up to n saved reports for websiteURL, newest
// first; n <= 0 returns all of them. An empty slice means the site was
// never saved.
func (rdb *ReportDB) LatestReports(ctx context.Context, websiteURL string, n int) ([]*model.Report, error) {
	if n <= 0 {
		n = -1 // no LIMIT in SQLite
	}
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT id FROM reports
	WHERE website_url = ?
	ORDER BY id DESC
	LIMIT ?
	`, websiteURL, n)
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan report id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	// With a single connection the rows must be closed before
	// ReportByID can run its own queries.
	reports := make([]*model.Report, 0, len(ids))
	for _, id := range ids {
		report, err := rdb.ReportByID(ctx, id)
		if err != nil {
			return nil, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

// ReportMetadata describes a saved report without loading it.
type ReportMetadata struct {
	// ID is the report's database ID.
	ID int64

	// WebsiteURL is the crawled base URL.
	WebsiteURL string

	// CompanyName is the company name derived from WebsiteURL.
	CompanyName string

	// Timestamp is the report creation time.
	Timestamp time.Time

	// Summary holds the stored counts.
	Summary Summary
}

// History returns the metadata of every saved report for websiteURL,
// newest first.
func (rdb *ReportDB) History(ctx context.Context, websiteURL string) ([]ReportMetadata, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT id, website_url, company_name, timestamp, summary
	FROM reports
	WHERE website_url = ?
	ORDER BY id DESC
	`, websiteURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var results []ReportMetadata
	for rows.Next() {
		var meta ReportMetadata
		var timestamp string
		var summaryJSON sql.NullString

		if err := rows.Scan(&meta.ID, &meta.WebsiteURL, &meta.CompanyName, &timestamp, &summaryJSON); err != nil {
			return nil, fmt.Errorf("failed to scan metadata: %w", err)
		}

		meta.Timestamp = parseTimestamp(timestamp)
		if summaryJSON.Valid && summaryJSON.String != "" {
			// A damaged summary leaves the counts at zero.
			_ = json.Unmarshal([]byte(summaryJSON.String), &meta.Summary) //nolint:errcheck // see above
		}

		results = append(results, meta)
	}

	return results, rows.Err()
}

// ListSites returns every website with at least one saved report, sorted.
func (rdb *ReportDB) ListSites(ctx context.Context) ([]string, error) {
	rows, err := rdb.db.QueryContext(ctx, `SELECT DISTINCT website_url FROM reports ORDER BY website_url`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sites: %w", err)
	}
	defer rows.Close()

	var sites []string
	for rows.Next() {
		var site string
		if err := rows.Scan(&site); err != nil {
			return nil, fmt.Errorf("failed to scan site: %w", err)
		}
		sites = append(sites, site)
	}

	return sites, rows.Err()
}

// pages loads the page metadata of one report. Bodies are not stored.
func (rdb *ReportDB) pages(ctx context.Context, reportID int64) ([]*model.Page, error) {
	rows, err := rdb.db.QueryContext(ctx, `
	SELECT url, final_url, status_code, content_type, hash
	FROM pages
	WHERE report_id = ?
	ORDER BY id
	`, reportID)
	if err != nil {
		return nil, fmt.Errorf("failed to query pages: %w", err)
	}
	defer rows.Close()

	var pages []*model.Page
	for rows.Next() {
		var page model.Page
		var finalURL, contentType, hash sql.NullString
		var status sql.NullInt64
		if err := rows.Scan(&page.URL, &finalURL, &status, &contentType, &hash); err != nil {
			return nil, fmt.Errorf("failed to scan page: %w", err)
		}
		page.FinalURL = finalURL.String
		page.StatusCode = int(status.Int64)
		page.ContentType = contentType.String
		page.Hash = hash.String
		pages = append(pages, &page)
	}

	return pages, rows.Err()
}

// decodeReport parses a stored report and restores its crawl state,
// which is not part of the JSON.
func decodeReport(reportJSON string) (*model.Report, error) {
	var report model.Report
	if err := json.Unmarshal([]byte(reportJSON), &report); err != nil {
		return nil, fmt.Errorf("failed to parse report: %w", err)
	}

	if report.Failed() {
		report.State = model.CrawlStateEarlyFailure
	} else {
		report.State = model.CrawlStateSuccess
	}
	return &report, nil
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	model.TimestampLayout,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
}

// parseTimestamp parses a report timestamp as UTC. It returns the zero
// time when no format matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.ParseInLocation(format, s, time.UTC); err == nil {
			return t
		}
	}
	return time.Time{}
}
