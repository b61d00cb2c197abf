// Package pipeline runs a website crawl as a sequence of steps.
//
// The default pipeline has two steps. HomepageStep fetches the base URL
// and pulls e-mail addresses and phone numbers out of it; if the homepage
// is unreachable the crawl stops there. PriorityPagesStep then fetches
// each priority path, records which ones answered, and collects trust
// keywords. Both steps write into the same model.Report.
//
// A single crawl is sequential. BatchProcessor runs crawls for several
// websites concurrently using errgroup, one pipeline per website.
package pipeline
