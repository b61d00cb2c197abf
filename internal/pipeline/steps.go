package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nao1215/bizscan/internal/config"
	"github.com/nao1215/bizscan/internal/extract"
	"github.com/nao1215/bizscan/internal/fetcher"
	"github.com/nao1215/bizscan/internal/model"
	"github.com/nao1215/bizscan/internal/planner"
)

// Fetcher performs a single GET request. *fetcher.Fetcher implements it.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) fetcher.Result
}

// HomepageStep fetches the base URL and extracts contact details from it.
// E-mail addresses and phone numbers come from the homepage only.
type HomepageStep struct {
	fetcher   Fetcher
	extractor *extract.Extractor
	logger    *slog.Logger
}

// HomepageStepOption configures a HomepageStep.
type HomepageStepOption func(*HomepageStep)

// WithHomepageLogger sets a custom logger for the homepage step.
func WithHomepageLogger(logger *slog.Logger) HomepageStepOption {
	return func(s *HomepageStep) {
		s.logger = logger
	}
}

// NewHomepageStep creates a new homepage step.
func NewHomepageStep(f Fetcher, e *extract.Extractor, opts ...HomepageStepOption) *HomepageStep {
	s := &HomepageStep{
		fetcher:   f,
		extractor: e,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *HomepageStep) Name() string {
	return "homepage"
}

// Do fetches the homepage. On failure the error text is the only entry
// of errors_or_limitations, the crawl ends in CrawlStateEarlyFailure and
// ErrHomepageUnreachable is returned.
func (s *HomepageStep) Do(ctx context.Context, report *model.Report) error {
	baseURL := report.Identity.WebsiteURL

	res := s.fetcher.Fetch(ctx, baseURL)
	if !res.OK() {
		report.AddError(res.Err.Error())
		report.State = model.CrawlStateEarlyFailure
		return fmt.Errorf("%w: %w", ErrHomepageUnreachable, res.Err)
	}

	report.AddPage(res.Page)

	text, err := s.extractor.PageText(res.Page)
	if err != nil {
		s.logger.Debug("failed to extract homepage text", "url", baseURL, "error", err)
		return nil
	}

	emails := s.extractor.Emails(text)
	phones := s.extractor.Phones(text)
	report.SetContacts(emails, phones)

	s.logger.Debug("homepage fetched",
		"url", baseURL,
		"status", res.Page.StatusCode,
		"emails_found", len(emails),
		"phones_found", len(phones),
	)

	return nil
}

// PriorityPagesStep fetches every priority path once, in list order.
// A failed page is skipped without a trace in the report.
type PriorityPagesStep struct {
	fetcher   Fetcher
	planner   *planner.Planner
	extractor *extract.Extractor
	logger    *slog.Logger
}

// PriorityPagesStepOption configures a PriorityPagesStep.
type PriorityPagesStepOption func(*PriorityPagesStep)

// WithPriorityPagesLogger sets a custom logger for the priority pages step.
func WithPriorityPagesLogger(logger *slog.Logger) PriorityPagesStepOption {
	return func(s *PriorityPagesStep) {
		s.logger = logger
	}
}

// NewPriorityPagesStep creates a new priority pages step.
func NewPriorityPagesStep(f Fetcher, p *planner.Planner, e *extract.Extractor, opts ...PriorityPagesStepOption) *PriorityPagesStep {
	s := &PriorityPagesStep{
		fetcher:   f,
		planner:   p,
		extractor: e,
		logger:    slog.Default(),
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Name returns the step name.
func (s *PriorityPagesStep) Name() string {
	return "priority_pages"
}

// Do fetches the priority pages. Each success is recorded in
// pages_crawled and key_pages_detected, fills the careers or contact URL
// by path, and adds the keywords found on the page to business_signals.
func (s *PriorityPagesStep) Do(ctx context.Context, report *model.Report) error {
	targets, err := s.planner.Resolve(report.Identity.WebsiteURL)
	if err != nil {
		return err
	}

	for _, target := range targets {
		if err := ctx.Err(); err != nil {
			return err
		}

		res := s.fetcher.Fetch(ctx, target.URL)
		if !res.OK() {
			s.logger.Debug("priority page skipped",
				"path", target.Path,
				"kind", res.Err.Kind,
				"error", res.Err,
			)
			continue
		}

		report.AddPage(res.Page)
		report.AddKeyPage(target.Path)

		kind := extract.Classify(target.Path)
		if kind.Has(extract.PageCareers) {
			report.TeamHiring.CareersPageURL = target.URL
		}
		if kind.Has(extract.PageContact) {
			report.ContactLocation.ContactPageURL = target.URL
		}

		text, err := s.extractor.PageText(res.Page)
		if err != nil {
			s.logger.Debug("failed to extract page text", "url", target.URL, "error", err)
			continue
		}
		signals := s.extractor.Signals(text)
		report.AddSignals(signals...)

		s.logger.Debug("priority page fetched",
			"path", target.Path,
			"kind", kind.String(),
			"signals", len(signals),
		)
	}

	report.State = model.CrawlStateSuccess
	return nil
}

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// Timeout is the per-request timeout.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// Paths are the priority paths fetched after the homepage.
	Paths []string

	// Keywords is the trust-signal vocabulary.
	Keywords []string

	// HTTPClient replaces the default HTTP client when set.
	HTTPClient *http.Client

	// Fetcher replaces the fetcher built from the settings above when set.
	Fetcher Fetcher
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineHTTPClient sets the HTTP client used by the fetcher.
func WithPipelineHTTPClient(client *http.Client) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.HTTPClient = client
	}
}

// WithPipelineFetcher replaces the fetcher.
func WithPipelineFetcher(f Fetcher) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Fetcher = f
	}
}

// NewDefaultPipelineConfig copies the crawl settings out of cfg.
func NewDefaultPipelineConfig(cfg *config.Config) *DefaultPipelineConfig {
	return &DefaultPipelineConfig{
		Timeout:     cfg.Timeout,
		UserAgent:   cfg.UserAgent,
		MaxBodySize: cfg.MaxBodySize,
		Paths:       cfg.PriorityPaths,
		Keywords:    cfg.Keywords,
	}
}

// DefaultPipeline creates the standard crawl: the homepage step followed
// by the priority pages step, sharing one fetcher and one extractor.
func DefaultPipeline(cfg *config.Config, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)

	pc := NewDefaultPipelineConfig(cfg)
	for _, opt := range configOpts {
		opt(pc)
	}

	f := pc.Fetcher
	if f == nil {
		fetchOpts := []fetcher.Option{
			fetcher.WithTimeout(pc.Timeout),
			fetcher.WithUserAgent(pc.UserAgent),
			fetcher.WithMaxBodySize(pc.MaxBodySize),
		}
		if pc.HTTPClient != nil {
			fetchOpts = append(fetchOpts, fetcher.WithHTTPClient(pc.HTTPClient))
		}
		f = fetcher.New(fetchOpts...)
	}

	e := extract.New(extract.WithKeywords(pc.Keywords))

	p.AddSteps(
		NewHomepageStep(f, e, WithHomepageLogger(p.logger)),
		NewPriorityPagesStep(f, planner.New(pc.Paths), e, WithPriorityPagesLogger(p.logger)),
	)

	return p
}

// Scan creates a report for baseURL and runs p on it. The report is
// returned even when the pipeline stops early; the error is only
// non-nil for cancellation or an unexpected step failure.
func Scan(ctx context.Context, p *Pipeline, baseURL string, now time.Time) (*model.Report, error) {
	report := model.NewReport(baseURL, now)
	if err := p.Execute(ctx, report); err != nil && report.State != model.CrawlStateEarlyFailure {
		return report, err
	}
	return report, nil
}
