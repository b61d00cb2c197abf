package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nao1215/bizscan/internal/model"
)

// BatchProcessor crawls several websites concurrently.
// Each website gets its own pipeline and its crawl stays sequential;
// only whole crawls run in parallel.
type BatchProcessor struct {
	// pipelineFactory creates a new pipeline for each site.
	pipelineFactory func() *Pipeline

	// concurrency is the maximum number of concurrent crawls.
	concurrency int

	// now returns the report creation time.
	now func() time.Time

	// logger is used for batch-level logging.
	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of concurrent crawls.
// Values below 1 are ignored.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// WithClock sets the function that stamps report timestamps.
func WithClock(now func() time.Time) BatchOption {
	return func(b *BatchProcessor) {
		b.now = now
	}
}

// NewBatchProcessor creates a new BatchProcessor.
// pipelineFactory is called once per site.
func NewBatchProcessor(pipelineFactory func() *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     4,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(bp)
	}

	if bp.logger == nil {
		bp.logger = slog.Default()
	}

	return bp
}

// ProcessBatch crawls every site and returns one report per site in input
// order. An unreachable homepage does not fail the batch; it is recorded
// in that site's report. The error is only set when ctx is cancelled, in
// which case reports of sites never started are nil.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, sites []string) ([]*model.Report, error) {
	bp.logger.Info("starting batch processing",
		"total_sites", len(sites),
		"concurrency", bp.concurrency,
	)

	startTime := time.Now()
	results := make([]*model.Report, len(sites))

	err := bp.run(ctx, sites, func(report *model.Report, index int) {
		// Each goroutine owns one index, so no lock is needed.
		results[index] = report
	})

	bp.logger.Info("batch processing complete",
		"total_sites", len(sites),
		"elapsed", time.Since(startTime),
	)

	return results, err
}

// ProcessBatchWithCallback crawls every site and calls callback as each
// crawl finishes. callback runs on the crawling goroutine and must be
// safe for concurrent use.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	sites []string,
	callback func(report *model.Report, index int),
) error {
	return bp.run(ctx, sites, callback)
}

func (bp *BatchProcessor) run(ctx context.Context, sites []string, done func(*model.Report, int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(bp.concurrency)

	for i, site := range sites {
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			bp.logger.Info("crawling site",
				"site", site,
				"index", i+1,
				"total", len(sites),
			)

			report, err := Scan(gctx, bp.pipelineFactory(), site, bp.now())
			if err != nil {
				bp.logger.Warn("crawl failed", "site", site, "error", err)
			}
			done(report, i)

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}
