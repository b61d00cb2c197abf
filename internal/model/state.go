package model

// CrawlState is the progress of a single crawl.
//
// A crawl starts in CrawlStateHomepagePending and ends in exactly one of
// the two terminal states. There are no other transitions: once the
// homepage is reachable every priority page is attempted.
type CrawlState int

const (
	// CrawlStateHomepagePending means the homepage has not been fetched yet.
	CrawlStateHomepagePending CrawlState = iota

	// CrawlStateSuccess means the homepage was fetched and every priority
	// page was attempted.
	CrawlStateSuccess

	// CrawlStateEarlyFailure means the homepage could not be fetched and
	// no priority page was attempted.
	CrawlStateEarlyFailure
)

// String returns the state name.
func (s CrawlState) String() string {
	switch s {
	case CrawlStateHomepagePending:
		return "HOMEPAGE_PENDING"
	case CrawlStateSuccess:
		return "DONE_SUCCESS"
	case CrawlStateEarlyFailure:
		return "DONE_EARLY_FAILURE"
	default:
		return "UNKNOWN"
	}
}

// Done reports whether s is a terminal state.
func (s CrawlState) Done() bool {
	return s == CrawlStateSuccess || s == CrawlStateEarlyFailure
}
