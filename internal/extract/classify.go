package extract

import "strings"

// PageKind is a set of report fields a priority page fills when it is
// fetched. A path may belong to more than one kind.
type PageKind uint8

const (
	// PageOther fills no dedicated field.
	PageOther PageKind = 0

	// PageCareers fills team_hiring.careers_page_url.
	PageCareers PageKind = 1 << iota

	// PageContact fills contact_location.contact_page_url.
	PageContact
)

// Has reports whether k includes kind.
func (k PageKind) Has(kind PageKind) bool {
	return kind != PageOther && k&kind == kind
}

// String returns the kind names joined by "+".
func (k PageKind) String() string {
	names := make([]string, 0, 2)
	if k.Has(PageCareers) {
		names = append(names, "careers")
	}
	if k.Has(PageContact) {
		names = append(names, "contact")
	}
	if len(names) == 0 {
		return "other"
	}
	return strings.Join(names, "+")
}

// Classify returns the kinds of a priority path: PageCareers if it
// contains "career", PageContact if it contains "contact".
func Classify(path string) PageKind {
	kind := PageOther
	if strings.Contains(path, "career") {
		kind |= PageCareers
	}
	if strings.Contains(path, "contact") {
		kind |= PageContact
	}
	return kind
}
