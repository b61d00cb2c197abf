package model

import (
	"net/url"
	"strings"
	"time"
)

// NotFound is the placeholder used for text fields that no extraction
// step fills in.
const NotFound = "Not found on website"

// TimestampLayout is the layout of Metadata.Timestamp: ISO 8601 in UTC
// without a zone designator, microsecond precision.
const TimestampLayout = "2006-01-02T15:04:05.000000"

// Report is the business profile of a single website.
//
// The shape is fixed: every group and every field is always present in
// the JSON output, whether or not the crawl reached any page. Absent data
// is expressed as placeholder text or an empty container, never by
// omitting a key.
type Report struct {
	// Identity describes who the website belongs to.
	Identity Identity `json:"identity"`

	// BusinessSummary describes what the company does.
	BusinessSummary BusinessSummary `json:"business_summary"`

	// EvidenceProof lists pages and keywords that back the profile.
	EvidenceProof EvidenceProof `json:"evidence_proof"`

	// ContactLocation holds contact details found on the homepage.
	ContactLocation ContactLocation `json:"contact_location"`

	// TeamHiring holds hiring signals.
	TeamHiring TeamHiring `json:"team_hiring"`

	// Metadata describes the crawl itself.
	Metadata Metadata `json:"metadata"`

	// State tracks crawl progress. It is not part of the output.
	State CrawlState `json:"-"`

	// Pages holds the fetched pages in crawl order, for the history
	// database. It is not part of the output.
	Pages []*Page `json:"-"`
}

// Identity is the identity group of a Report.
type Identity struct {
	// CompanyName is the URL host with "www." removed.
	CompanyName string `json:"company_name"`

	// WebsiteURL is the base URL exactly as given by the caller.
	WebsiteURL string `json:"website_url"`

	// Tagline is reserved; it always holds NotFound.
	Tagline string `json:"tagline"`
}

// BusinessSummary is the business summary group of a Report.
// All of its fields are reserved for future extraction.
type BusinessSummary struct {
	WhatTheyDo       string   `json:"what_they_do"`
	PrimaryOfferings []string `json:"primary_offerings"`
	TargetSegments   []string `json:"target_segments"`
}

// EvidenceProof is the evidence group of a Report.
type EvidenceProof struct {
	// KeyPagesDetected lists the priority paths that were fetched
	// successfully, in crawl order.
	KeyPagesDetected []string `json:"key_pages_detected"`

	// BusinessSignals lists the trust keywords matched on each priority
	// page. A keyword found on two pages appears twice.
	BusinessSignals []string `json:"business_signals"`

	// SocialLinks is reserved; it is always empty.
	SocialLinks map[string]string `json:"social_links"`
}

// ContactLocation is the contact group of a Report.
type ContactLocation struct {
	// Emails holds the distinct e-mail addresses found on the homepage.
	Emails []string `json:"emails"`

	// PhoneNumbers holds the distinct phone-like strings found on the homepage.
	PhoneNumbers []string `json:"phone_numbers"`

	// Address is reserved; it always holds NotFound.
	Address string `json:"address"`

	// ContactPageURL is set when the contact page was fetched.
	ContactPageURL string `json:"contact_page_url"`
}

// TeamHiring is the hiring group of a Report.
type TeamHiring struct {
	// CareersPageURL is set when the careers page was fetched.
	CareersPageURL string `json:"careers_page_url"`

	// RolesOrDepartments is reserved; it is always empty.
	RolesOrDepartments []string `json:"roles_or_departments"`
}

// Metadata is the metadata group of a Report.
type Metadata struct {
	// Timestamp is the UTC time the report was created, in TimestampLayout.
	Timestamp string `json:"timestamp"`

	// PagesCrawled lists every URL fetched successfully, homepage first.
	PagesCrawled []string `json:"pages_crawled"`

	// ErrorsOrLimitations holds the homepage fetch error, if any.
	ErrorsOrLimitations []string `json:"errors_or_limitations"`
}

// NewReport creates a Report for baseURL with every field at its initial
// placeholder or empty value. now is the report creation time.
func NewReport(baseURL string, now time.Time) *Report {
	return &Report{
		Identity: Identity{
			CompanyName: CompanyName(baseURL),
			WebsiteURL:  baseURL,
			Tagline:     NotFound,
		},
		BusinessSummary: BusinessSummary{
			WhatTheyDo:       NotFound,
			PrimaryOfferings: []string{},
			TargetSegments:   []string{},
		},
		EvidenceProof: EvidenceProof{
			KeyPagesDetected: []string{},
			BusinessSignals:  []string{},
			SocialLinks:      map[string]string{},
		},
		ContactLocation: ContactLocation{
			Emails:       []string{},
			PhoneNumbers: []string{},
			Address:      NotFound,
		},
		TeamHiring: TeamHiring{
			RolesOrDepartments: []string{},
		},
		Metadata: Metadata{
			Timestamp:           FormatTimestamp(now),
			PagesCrawled:        []string{},
			ErrorsOrLimitations: []string{},
		},
		State: CrawlStateHomepagePending,
	}
}

// CompanyName derives a company name from a URL: its host (including any
// port) with every "www." removed. User information never appears in the
// result. An unparsable URL yields "".
func CompanyName(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return strings.ReplaceAll(u.Host, "www.", "")
}

// FormatTimestamp formats t in UTC using TimestampLayout. The fractional
// part is dropped when it is zero.
func FormatTimestamp(t time.Time) string {
	t = t.UTC()
	if t.Nanosecond()/int(time.Microsecond) == 0 {
		return t.Format("2006-01-02T15:04:05")
	}
	return t.Format(TimestampLayout)
}

// AddPageCrawled records a successfully fetched URL.
func (r *Report) AddPageCrawled(pageURL string) {
	r.Metadata.PagesCrawled = append(r.Metadata.PagesCrawled, pageURL)
}

// AddPage records a fetched page: its requested URL goes to
// pages_crawled and the page itself to Pages.
func (r *Report) AddPage(p *Page) {
	r.AddPageCrawled(p.URL)
	r.Pages = append(r.Pages, p)
}

// AddError records a fetch error.
func (r *Report) AddError(msg string) {
	r.Metadata.ErrorsOrLimitations = append(r.Metadata.ErrorsOrLimitations, msg)
}

// AddKeyPage records a priority path that was fetched successfully.
func (r *Report) AddKeyPage(path string) {
	r.EvidenceProof.KeyPagesDetected = append(r.EvidenceProof.KeyPagesDetected, path)
}

// AddSignals appends keyword matches from one page. Duplicates from
// earlier pages are kept.
func (r *Report) AddSignals(signals ...string) {
	r.EvidenceProof.BusinessSignals = append(r.EvidenceProof.BusinessSignals, signals...)
}

// SetContacts replaces the e-mail and phone lists. Nil slices become
// empty so the JSON output never contains null.
func (r *Report) SetContacts(emails, phones []string) {
	if emails == nil {
		emails = []string{}
	}
	if phones == nil {
		phones = []string{}
	}
	r.ContactLocation.Emails = emails
	r.ContactLocation.PhoneNumbers = phones
}

// Failed reports whether the crawl stopped because the homepage was
// unreachable. Reports decoded from JSON carry no State, so an error
// without any crawled page counts as a failure too.
func (r *Report) Failed() bool {
	if r.State == CrawlStateEarlyFailure {
		return true
	}
	return len(r.Metadata.PagesCrawled) == 0 && len(r.Metadata.ErrorsOrLimitations) > 0
}
