// Package model defines the core data structures used throughout bizscan.
//
// This package contains the following main types:
//   - Report: The fixed-shape business profile produced for one website
//   - Page: A successfully fetched web page with its decoded body
//   - CrawlState: The progress of a single crawl
//
// Models live in their own package so that the fetcher, the pipeline,
// the report writers and the database can share them without import
// cycles. Every type here serializes to JSON; the Report's JSON shape is
// the program's public output format and must stay stable.
package model
