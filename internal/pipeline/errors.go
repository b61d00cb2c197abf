package pipeline

import "errors"

// ErrHomepageUnreachable is returned by HomepageStep when the homepage
// could not be fetched. No priority page is attempted after it.
var ErrHomepageUnreachable = errors.New("homepage unreachable")
