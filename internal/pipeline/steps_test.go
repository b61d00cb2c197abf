package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/nao1215/bizscan/internal/config"
	"github.com/nao1215/bizscan/internal/extract"
	"github.com/nao1215/bizscan/internal/fetcher"
	"github.com/nao1215/bizscan/internal/model"
	"github.com/nao1215/bizscan/internal/planner"
)

// fakeFetcher serves canned pages by URL. Any other URL is a 404.
type fakeFetcher struct {
	pages map[string]string
	errs  map[string]*fetcher.FetchError

	mu    sync.Mutex
	calls []string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) fetcher.Result {
	f.mu.Lock()
	f.calls = append(f.calls, rawURL)
	f.mu.Unlock()

	if fe, ok := f.errs[rawURL]; ok {
		return fetcher.Result{Err: fe}
	}
	if body, ok := f.pages[rawURL]; ok {
		page := &model.Page{
			URL:         rawURL,
			StatusCode:  http.StatusOK,
			ContentType: "text/html; charset=utf-8",
			Body:        body,
		}
		page.ComputeHash()
		return fetcher.Result{Page: page}
	}
	return fetcher.Result{Err: &fetcher.FetchError{
		Kind:       fetcher.KindHTTPStatus,
		URL:        rawURL,
		StatusCode: http.StatusNotFound,
		Err:        fetcher.ErrStatus,
	}}
}

func (f *fakeFetcher) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

// newFakePipeline builds the default two-step crawl around f.
func newFakePipeline(f Fetcher) *Pipeline {
	return DefaultPipeline(config.NewConfig(), nil, WithPipelineFetcher(f))
}

const acmeBase = "https://acme.test"

// TestScanScenarios covers complete crawls against canned websites.
func TestScanScenarios(t *testing.T) {
	t.Parallel()

	t.Run("homepage and contact page reachable", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{pages: map[string]string{
			acmeBase:              "<html><body><p>contact us at sales@acme.test or +1 555-123-4567</p></body></html>",
			acmeBase + "/contact": "<html><body><p>ISO certified, contact our team</p></body></html>",
		}}

		report, err := Scan(context.Background(), newFakePipeline(f), acmeBase, testTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(report.ContactLocation.Emails, []string{"sales@acme.test"}) {
			t.Errorf("unexpected emails %v", report.ContactLocation.Emails)
		}
		if !slices.Contains(report.ContactLocation.PhoneNumbers, "+1 555-123-4567") {
			t.Errorf("expected phone +1 555-123-4567, got %v", report.ContactLocation.PhoneNumbers)
		}
		if report.ContactLocation.ContactPageURL != acmeBase+"/contact" {
			t.Errorf("unexpected contact page %q", report.ContactLocation.ContactPageURL)
		}
		if !slices.Contains(report.EvidenceProof.BusinessSignals, "iso") {
			t.Errorf("expected iso signal, got %v", report.EvidenceProof.BusinessSignals)
		}
		if !slices.Equal(report.Metadata.PagesCrawled, []string{acmeBase, acmeBase + "/contact"}) {
			t.Errorf("unexpected pages crawled %v", report.Metadata.PagesCrawled)
		}
		if len(report.Pages) != 2 || report.Pages[1].Hash == "" {
			t.Errorf("expected two hashed pages, got %d", len(report.Pages))
		}
		if !slices.Equal(report.EvidenceProof.KeyPagesDetected, []string{"/contact"}) {
			t.Errorf("unexpected key pages %v", report.EvidenceProof.KeyPagesDetected)
		}
		if report.TeamHiring.CareersPageURL != "" {
			t.Errorf("expected no careers page, got %q", report.TeamHiring.CareersPageURL)
		}
		if len(report.Metadata.ErrorsOrLimitations) != 0 {
			t.Errorf("expected no errors, got %v", report.Metadata.ErrorsOrLimitations)
		}
		if report.State != model.CrawlStateSuccess {
			t.Errorf("expected DONE_SUCCESS, got %v", report.State)
		}
		if got := f.callCount(); got != 9 {
			t.Errorf("expected 9 fetches, got %d", got)
		}
	})

	t.Run("homepage times out", func(t *testing.T) {
		t.Parallel()

		timeoutErr := &fetcher.FetchError{
			Kind:    fetcher.KindTimeout,
			URL:     acmeBase,
			Timeout: 10 * time.Second,
			Err:     context.DeadlineExceeded,
		}
		f := &fakeFetcher{errs: map[string]*fetcher.FetchError{acmeBase: timeoutErr}}

		report, err := Scan(context.Background(), newFakePipeline(f), acmeBase, testTime)
		if err != nil {
			t.Fatalf("unreachable homepage must not be an error, got %v", err)
		}

		if !slices.Equal(report.Metadata.ErrorsOrLimitations, []string{timeoutErr.Error()}) {
			t.Errorf("unexpected errors %v", report.Metadata.ErrorsOrLimitations)
		}
		if len(report.Metadata.PagesCrawled) != 0 {
			t.Errorf("expected no pages crawled, got %v", report.Metadata.PagesCrawled)
		}
		if len(report.ContactLocation.Emails) != 0 || len(report.ContactLocation.PhoneNumbers) != 0 {
			t.Error("expected contact lists to stay empty")
		}
		if report.ContactLocation.ContactPageURL != "" || report.ContactLocation.Address != model.NotFound {
			t.Error("expected contact fields at their defaults")
		}
		if report.State != model.CrawlStateEarlyFailure {
			t.Errorf("expected DONE_EARLY_FAILURE, got %v", report.State)
		}
		if got := f.callCount(); got != 1 {
			t.Errorf("expected only the homepage to be fetched, got %d fetches", got)
		}
	})

	t.Run("invalid url is reported, not raised", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(config.NewConfig(), nil)
		report, err := Scan(context.Background(), p, "acme.test", testTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Metadata.ErrorsOrLimitations) != 1 {
			t.Fatalf("expected one error, got %v", report.Metadata.ErrorsOrLimitations)
		}
		if !strings.Contains(report.Metadata.ErrorsOrLimitations[0], "invalid url") {
			t.Errorf("unexpected error %q", report.Metadata.ErrorsOrLimitations[0])
		}
	})
}

// TestHomepageStep tests the homepage step in isolation.
func TestHomepageStep(t *testing.T) {
	t.Parallel()

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if got := NewHomepageStep(&fakeFetcher{}, extract.New()).Name(); got != "homepage" {
			t.Errorf("expected homepage, got %q", got)
		}
	})

	t.Run("deduplicates contacts", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{pages: map[string]string{
			acmeBase: "<p>sales@acme.test</p><p>sales@acme.test</p><p>+44 20 7946 0958, +44 20 7946 0958</p>",
		}}
		report := newTestReport()

		if err := NewHomepageStep(f, extract.New()).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(report.ContactLocation.Emails, []string{"sales@acme.test"}) {
			t.Errorf("unexpected emails %v", report.ContactLocation.Emails)
		}
		if len(report.ContactLocation.PhoneNumbers) != 1 {
			t.Errorf("expected one phone number, got %v", report.ContactLocation.PhoneNumbers)
		}
		if !slices.Equal(report.Metadata.PagesCrawled, []string{acmeBase}) {
			t.Errorf("expected pages_crawled[0] to be the base url, got %v", report.Metadata.PagesCrawled)
		}
	})

	t.Run("failure wraps the fetch error", func(t *testing.T) {
		t.Parallel()

		report := newTestReport()
		err := NewHomepageStep(&fakeFetcher{}, extract.New()).Do(context.Background(), report)

		if !errors.Is(err, ErrHomepageUnreachable) {
			t.Errorf("expected ErrHomepageUnreachable, got %v", err)
		}
		var fe *fetcher.FetchError
		if !errors.As(err, &fe) || fe.Kind != fetcher.KindHTTPStatus {
			t.Errorf("expected wrapped http status error, got %v", err)
		}
		want := "404 Client Error: Not Found for url: https://acme.test"
		if !slices.Equal(report.Metadata.ErrorsOrLimitations, []string{want}) {
			t.Errorf("unexpected errors %v", report.Metadata.ErrorsOrLimitations)
		}
	})
}

// TestPriorityPagesStep tests the priority pages step in isolation.
func TestPriorityPagesStep(t *testing.T) {
	t.Parallel()

	newStep := func(f Fetcher) *PriorityPagesStep {
		return NewPriorityPagesStep(f, planner.New(config.DefaultPriorityPaths()), extract.New())
	}

	t.Run("name", func(t *testing.T) {
		t.Parallel()

		if got := newStep(&fakeFetcher{}).Name(); got != "priority_pages" {
			t.Errorf("expected priority_pages, got %q", got)
		}
	})

	t.Run("contacts come from the homepage only", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{pages: map[string]string{
			acmeBase + "/careers": "<p>Write to jobs@acme.test or call 0312345678</p>",
		}}
		report := newTestReport()

		if err := newStep(f).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.ContactLocation.Emails) != 0 || len(report.ContactLocation.PhoneNumbers) != 0 {
			t.Errorf("expected no contacts from priority pages, got %v %v",
				report.ContactLocation.Emails, report.ContactLocation.PhoneNumbers)
		}
		if report.TeamHiring.CareersPageURL != acmeBase+"/careers" {
			t.Errorf("unexpected careers page %q", report.TeamHiring.CareersPageURL)
		}
		if report.ContactLocation.ContactPageURL != "" {
			t.Errorf("expected no contact page, got %q", report.ContactLocation.ContactPageURL)
		}
	})

	t.Run("signals are per page and not deduplicated across pages", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{pages: map[string]string{
			acmeBase + "/about":   "<p>Award winning. Another award.</p>",
			acmeBase + "/pricing": "<p>Our award program</p>",
		}}
		report := newTestReport()

		if err := newStep(f).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !slices.Equal(report.EvidenceProof.BusinessSignals, []string{"award", "award"}) {
			t.Errorf("expected one award per page, got %v", report.EvidenceProof.BusinessSignals)
		}
		if !slices.Equal(report.EvidenceProof.KeyPagesDetected, []string{"/about", "/pricing"}) {
			t.Errorf("expected key pages in path order, got %v", report.EvidenceProof.KeyPagesDetected)
		}
	})

	t.Run("every path is attempted once", func(t *testing.T) {
		t.Parallel()

		f := &fakeFetcher{}
		report := newTestReport()

		if err := newStep(f).Do(context.Background(), report); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := f.callCount(); got != 8 {
			t.Errorf("expected 8 fetches, got %d", got)
		}
		if report.State != model.CrawlStateSuccess {
			t.Errorf("expected DONE_SUCCESS even with all pages missing, got %v", report.State)
		}
		if len(report.Metadata.PagesCrawled) != 0 {
			t.Errorf("expected no pages, got %v", report.Metadata.PagesCrawled)
		}
	})

	t.Run("stops between fetches when cancelled", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		f := &fakeFetcher{}
		err := newStep(f).Do(ctx, newTestReport())
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
		if f.callCount() != 0 {
			t.Errorf("expected no fetches, got %d", f.callCount())
		}
	})
}

// TestDefaultPipeline tests the wiring of the default pipeline.
func TestDefaultPipeline(t *testing.T) {
	t.Parallel()

	t.Run("has homepage and priority steps", func(t *testing.T) {
		t.Parallel()

		p := DefaultPipeline(config.NewConfig(), nil)
		if !slices.Equal(p.StepNames(), []string{"homepage", "priority_pages"}) {
			t.Errorf("unexpected steps %v", p.StepNames())
		}
	})

	t.Run("config values reach the pipeline", func(t *testing.T) {
		t.Parallel()

		cfg := config.NewConfig()
		cfg.Timeout = 3 * time.Second
		cfg.UserAgent = "bizscan-test"
		cfg.PriorityPaths = []string{"/team"}

		pc := NewDefaultPipelineConfig(cfg)
		if pc.Timeout != 3*time.Second || pc.UserAgent != "bizscan-test" {
			t.Errorf("unexpected pipeline config %+v", pc)
		}
		if !slices.Equal(pc.Paths, []string{"/team"}) {
			t.Errorf("unexpected paths %v", pc.Paths)
		}
	})
}

// TestDefaultPipelineHTTP runs the default pipeline against a local server.
func TestDefaultPipelineHTTP(t *testing.T) {
	t.Parallel()

	t.Run("full crawl", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("User-Agent") != "Mozilla/5.0" {
				w.WriteHeader(http.StatusForbidden)
				return
			}
			switch r.URL.Path {
			case "/", "":
				fmt.Fprint(w, `<html><head><title>Acme</title><script>var x = "hidden@acme.test";</script></head>
<body><p>Reach us: info@acme.test, +1 555-123-4567</p></body></html>`)
			case "/contact":
				fmt.Fprint(w, "<html><body>Our clients trust our GMP certification</body></html>")
			case "/careers":
				w.WriteHeader(http.StatusInternalServerError)
			default:
				http.NotFound(w, r)
			}
		}))
		defer server.Close()

		p := DefaultPipeline(config.NewConfig(), nil)
		report, err := Scan(context.Background(), p, server.URL, testTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if !slices.Equal(report.Metadata.PagesCrawled, []string{server.URL, server.URL + "/contact"}) {
			t.Errorf("unexpected pages %v", report.Metadata.PagesCrawled)
		}
		if !slices.Equal(report.ContactLocation.Emails, []string{"info@acme.test"}) {
			t.Errorf("unexpected emails %v", report.ContactLocation.Emails)
		}
		want := []string{"clients", "certification", "gmp"}
		if !slices.Equal(report.EvidenceProof.BusinessSignals, want) {
			t.Errorf("expected signals %v, got %v", want, report.EvidenceProof.BusinessSignals)
		}
		if report.TeamHiring.CareersPageURL != "" {
			t.Errorf("careers page failed and must stay empty, got %q", report.TeamHiring.CareersPageURL)
		}

		data, err := json.Marshal(report)
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		var groups map[string]json.RawMessage
		if err := json.Unmarshal(data, &groups); err != nil {
			t.Fatalf("unmarshal failed: %v", err)
		}
		for _, key := range []string{"identity", "business_summary", "evidence_proof", "contact_location", "team_hiring", "metadata"} {
			if _, ok := groups[key]; !ok {
				t.Errorf("missing group %q", key)
			}
		}
		if len(groups) != 6 {
			t.Errorf("expected 6 groups, got %d", len(groups))
		}
	})

	t.Run("homepage timeout", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(5 * time.Second):
			}
		}))
		defer server.Close()

		cfg := config.NewConfig()
		cfg.Timeout = 50 * time.Millisecond

		report, err := Scan(context.Background(), DefaultPipeline(cfg, nil), server.URL, testTime)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(report.Metadata.ErrorsOrLimitations) != 1 {
			t.Fatalf("expected one error, got %v", report.Metadata.ErrorsOrLimitations)
		}
		if !strings.Contains(report.Metadata.ErrorsOrLimitations[0], "timed out") {
			t.Errorf("expected timeout description, got %q", report.Metadata.ErrorsOrLimitations[0])
		}
		if len(report.Metadata.PagesCrawled) != 0 {
			t.Errorf("expected no pages, got %v", report.Metadata.PagesCrawled)
		}
	})
}
