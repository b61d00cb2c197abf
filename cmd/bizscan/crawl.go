package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/bizscan/internal/config"
	"github.com/nao1215/bizscan/internal/database"
	"github.com/nao1215/bizscan/internal/fetcher"
	"github.com/nao1215/bizscan/internal/model"
	"github.com/nao1215/bizscan/internal/pipeline"
	"github.com/nao1215/bizscan/internal/report"
)

// addCrawlFlags registers the flags shared by every command that crawls.
func addCrawlFlags(cmd *cobra.Command) {
	// Request flags
	cmd.Flags().DurationP("timeout", "t", config.DefaultTimeout,
		"Timeout for each HTTP request")
	cmd.Flags().StringP("user-agent", "u", config.DefaultUserAgent,
		"User-Agent header sent with each request")

	// Configuration file
	cmd.Flags().StringP("config", "c", "",
		"Configuration file path (no file is read unless set)")

	// Report flags
	cmd.Flags().BoolP("markdown", "m", false,
		"Output Markdown report (mutually exclusive with --text)")
	cmd.Flags().BoolP("text", "T", false,
		"Output human-readable text report (mutually exclusive with --markdown)")
	cmd.Flags().StringP("output", "o", "",
		"Write report to specified file path (creates directories if needed)")

	// History flags
	cmd.Flags().BoolP("save", "s", false,
		"Save the report to the history database")
	addDBDirFlag(cmd)
}

// addDBDirFlag registers the history database location flag.
func addDBDirFlag(cmd *cobra.Command) {
	cmd.Flags().String("db-dir", "",
		"History database directory (default: "+config.XDGDataDir()+")")
}

// getVerboseFlag retrieves the verbose flag from the command or its parent.
func getVerboseFlag(cmd *cobra.Command) bool {
	verbose, err := cmd.Flags().GetBool("verbose")
	if err != nil {
		verbose, err = cmd.Root().PersistentFlags().GetBool("verbose")
		if err != nil {
			return false
		}
	}
	return verbose
}

// getDBDir returns the --db-dir value, or the XDG data directory.
func getDBDir(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("db-dir")
	if err != nil {
		return "", err
	}
	if dir == "" {
		return config.XDGDataDir(), nil
	}
	return dir, nil
}

// buildConfig creates a Config from the --config file, if any, and the
// command flags. Flags set on the command line win over the file.
func buildConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg := config.NewConfig()
	flags := cmd.Flags()

	var err error
	cfg.ConfigFilePath, err = flags.GetString("config")
	if err != nil {
		return nil, err
	}

	// Only an explicit --config is read, so a plain invocation depends on
	// its argument alone.
	if cfg.ConfigFilePath != "" {
		file, err := config.LoadConfigFile(cfg.ConfigFilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", cfg.ConfigFilePath, err)
		}
		cfg.Apply(file)
	}

	if flags.Changed("timeout") {
		if cfg.Timeout, err = flags.GetDuration("timeout"); err != nil {
			return nil, err
		}
	}
	if flags.Changed("user-agent") {
		if cfg.UserAgent, err = flags.GetString("user-agent"); err != nil {
			return nil, err
		}
	}

	if cfg.MarkdownReport, err = flags.GetBool("markdown"); err != nil {
		return nil, err
	}
	if cfg.TextReport, err = flags.GetBool("text"); err != nil {
		return nil, err
	}
	if cfg.ReportFile, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	if cfg.SaveToDB, err = flags.GetBool("save"); err != nil {
		return nil, err
	}
	if cfg.DBDir, err = getDBDir(cmd); err != nil {
		return nil, err
	}

	cfg.Verbose = getVerboseFlag(cmd)
	cfg.Targets = args

	return cfg, nil
}

// newPipelineFactory returns a factory for crawl pipelines. All pipelines
// share one fetcher and therefore one connection pool.
func newPipelineFactory(cfg *config.Config, logger *slog.Logger) func() *pipeline.Pipeline {
	f := fetcher.New(
		fetcher.WithTimeout(cfg.Timeout),
		fetcher.WithUserAgent(cfg.UserAgent),
		fetcher.WithMaxBodySize(cfg.MaxBodySize),
	)

	return func() *pipeline.Pipeline {
		return pipeline.DefaultPipeline(cfg,
			[]pipeline.Option{pipeline.WithLogger(logger)},
			pipeline.WithPipelineFetcher(f),
		)
	}
}

// runCrawl crawls cfg.Targets[0] and emits its report.
func runCrawl(ctx context.Context, stdout io.Writer, cfg *config.Config, logger *slog.Logger) error {
	target := cfg.Targets[0]

	logger.Info("starting crawl",
		"site", target,
		"timeout", cfg.Timeout,
		"priority_paths", len(cfg.PriorityPaths),
	)

	startTime := time.Now()
	rep, err := pipeline.Scan(ctx, newPipelineFactory(cfg, logger)(), target, startTime)
	if err != nil {
		return fmt.Errorf("crawl of %s aborted: %w", target, err)
	}

	logger.Info("crawl complete",
		"site", target,
		"pages_crawled", len(rep.Metadata.PagesCrawled),
		"elapsed", time.Since(startTime).Round(time.Millisecond),
	)

	return emitReports(ctx, stdout, cfg, []*model.Report{rep}, false, logger)
}

// emitReports writes the reports and saves them when requested. batch
// selects the list form of the output even for a single report.
func emitReports(ctx context.Context, stdout io.Writer, cfg *config.Config, reports []*model.Report, batch bool, logger *slog.Logger) error {
	if err := writeReports(stdout, cfg, reports, batch); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}
	return saveReports(ctx, cfg, reports, logger)
}

// writeReports writes the reports in the configured format to
// cfg.ReportFile, or to stdout when no file is set.
func writeReports(stdout io.Writer, cfg *config.Config, reports []*model.Report, batch bool) (err error) {
	output := stdout
	if cfg.ReportFile != "" {
		f, ferr := createReportFile(cfg.ReportFile)
		if ferr != nil {
			return ferr
		}
		defer func() {
			if cerr := f.Close(); cerr != nil && err == nil {
				err = cerr
			}
		}()
		output = f
	}

	w := newReportWriter(cfg, output)
	if batch {
		_, err = w.WriteAll(reports)
	} else {
		_, err = w.Write(reports[0])
	}
	return err
}

// newReportWriter returns the writer for the configured report format.
func newReportWriter(cfg *config.Config, output io.Writer) report.Writer {
	switch {
	case cfg.MarkdownReport:
		return report.NewMarkdownWriter(output)
	case cfg.TextReport:
		return report.NewSimpleWriter(output, report.WithVerbose(cfg.Verbose))
	default:
		return report.NewJSONWriter(output, report.WithPrettyPrint())
	}
}

// createReportFile creates or truncates path with owner-only permissions,
// creating parent directories as needed. Reports contain personal data.
func createReportFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user-provided output path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// saveReports stores the reports in the history database when
// cfg.SaveToDB is set. Nil reports are skipped.
func saveReports(ctx context.Context, cfg *config.Config, reports []*model.Report, logger *slog.Logger) error {
	if !cfg.SaveToDB {
		return nil
	}

	db, err := database.Open(cfg.DBDir, database.DefaultOptions())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	for _, rep := range reports {
		if rep == nil {
			continue
		}
		id, err := db.SaveReport(ctx, rep)
		if err != nil {
			return fmt.Errorf("failed to save report for %s: %w", rep.Identity.WebsiteURL, err)
		}
		logger.Info("report saved", "site", rep.Identity.WebsiteURL, "id", id, "db", db.Path())
	}

	return nil
}
