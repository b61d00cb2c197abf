package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/bizscan/internal/config"
	"github.com/nao1215/bizscan/internal/log"
	"github.com/nao1215/bizscan/internal/pipeline"
)

// NewBatchCmd creates the batch command.
func NewBatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "batch [website_url...]",
		Short: "Profile several websites concurrently",
		Long: `Batch crawls several websites and prints their reports as one JSON array,
in the order the websites were given.

Websites come from the arguments and from a list file with one URL per
line. Blank lines and lines starting with '#' are ignored. Each crawl is
independent: an unreachable homepage only affects its own report.

Examples:
  # Crawl every website of a list, 8 at a time
  bizscan batch --list sites.txt --concurrency 8

  # Crawl a few websites and save the reports
  bizscan batch -s https://acme.example https://globex.example`,
		Args: cobra.ArbitraryArgs,
		RunE: runBatchCmd,
	}

	cmd.Flags().StringP("list", "l", "",
		"File with one website URL per line")
	cmd.Flags().IntP("concurrency", "n", config.DefaultConcurrency,
		"Number of websites crawled at the same time")
	addCrawlFlags(cmd)

	return cmd
}

// runBatchCmd executes the batch command.
func runBatchCmd(cmd *cobra.Command, args []string) error {
	listPath, err := cmd.Flags().GetString("list")
	if err != nil {
		return err
	}

	targets := append([]string{}, args...)
	if listPath != "" {
		listed, err := readTargetList(listPath)
		if err != nil {
			return err
		}
		targets = append(targets, listed...)
	}

	cfg, err := buildConfig(cmd, targets)
	if err != nil {
		return err
	}
	if cfg.Concurrency, err = cmd.Flags().GetInt("concurrency"); err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runBatch(ctx, cmd.OutOrStdout(), cfg, logger)
}

// runBatch crawls every target and emits the reports in target order.
func runBatch(ctx context.Context, stdout io.Writer, cfg *config.Config, logger *slog.Logger) error {
	bp := pipeline.NewBatchProcessor(
		newPipelineFactory(cfg, logger),
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
		pipeline.WithClock(time.Now),
	)

	reports, err := bp.ProcessBatch(ctx, cfg.Targets)
	if err != nil {
		return fmt.Errorf("batch aborted: %w", err)
	}

	return emitReports(ctx, stdout, cfg, reports, true, logger)
}

// readTargetList reads website URLs from path, one per line, skipping
// blank lines and '#' comments.
func readTargetList(path string) ([]string, error) {
	f, err := os.Open(path) //nolint:gosec // user-provided list path
	if err != nil {
		return nil, fmt.Errorf("failed to open list file: %w", err)
	}
	defer f.Close()

	var targets []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		targets = append(targets, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read list file: %w", err)
	}

	return targets, nil
}
