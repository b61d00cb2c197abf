package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nao1215/bizscan/internal/log"
)

// errUsage is returned when the root command does not get exactly one
// website URL.
var errUsage = errors.New("usage: bizscan <website_url>")

// NewRootCmd creates the root command for bizscan.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bizscan <website_url>",
		Short: "Build a business profile of a company website",
		Long: `bizscan fetches the homepage of a company website and a fixed list of
priority pages (/about, /company, /products, /solutions, /industries,
/pricing, /careers, /contact), then prints a business profile as JSON.

E-mail addresses and phone numbers are taken from the homepage. Trust
keywords such as "iso" or "case study" are collected from the priority
pages. If the homepage cannot be fetched, the report says so and no other
page is requested.

Examples:
  # Profile a single website
  bizscan https://acme.example

  # Markdown report written to a file
  bizscan -m -o reports/acme.md https://acme.example

  # Save the report for later comparison
  bizscan -s https://acme.example
  bizscan history https://acme.example`,
		Version:       getVersion(),
		Args:          exactlyOneURL,
		RunE:          runRootCmd,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")
	addCrawlFlags(cmd)

	cmd.AddCommand(NewBatchCmd())
	cmd.AddCommand(NewHistoryCmd())
	cmd.AddCommand(NewInitCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

func exactlyOneURL(_ *cobra.Command, args []string) error {
	if len(args) != 1 {
		return errUsage
	}
	return nil
}

// runRootCmd crawls the single website given as argument.
func runRootCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildConfig(cmd, args)
	if err != nil {
		return err
	}

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	logger := log.NewSecureLogger(cmd.ErrOrStderr(), cfg.Verbose)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cmd.OutOrStdout(), cfg, logger)
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
