// Package database stores crawl reports in SQLite for later comparison.
//
// ReportDB keeps one row per saved report, holding the report JSON as
// printed plus a small count summary, and one row per fetched page with
// its content hash. The history command reads it back to list saved
// crawls and to compare the two latest reports of a website.
//
// The driver is modernc.org/sqlite, which needs no CGO. The database
// lives in a single file, bizscan.db, under the XDG data directory.
package database
