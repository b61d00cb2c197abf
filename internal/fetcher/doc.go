// Package fetcher performs single HTTP GET requests for bizscan.
//
// A Fetcher never returns a bare error. Every outcome is a Result that
// holds either the fetched page or a *FetchError whose Kind tells timeouts,
// DNS failures, refused connections and HTTP status errors apart. Only
// the error string of a failed homepage fetch ever reaches a report.
//
// # Usage
//
//	f := fetcher.New(fetcher.WithTimeout(10 * time.Second))
//	res := f.Fetch(ctx, "https://example.com")
//	if !res.OK() {
//		log.Println(res.Err)
//	}
//
// Compressed bodies (gzip, deflate, br, zstd) are decoded, and the result
// is converted to UTF-8 using the Content-Type header or a <meta charset>
// declaration.
package fetcher
