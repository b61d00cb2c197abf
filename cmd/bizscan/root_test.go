package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/nao1215/bizscan/internal/config"
	"github.com/nao1215/bizscan/internal/model"
)

// executeCmd runs the root command with args and returns what it printed.
func executeCmd(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	var outBuf, errBuf bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&outBuf)
	cmd.SetErr(&errBuf)
	// A nil slice makes cobra fall back to os.Args.
	if args == nil {
		args = []string{}
	}
	cmd.SetArgs(args)

	err = cmd.Execute()
	return outBuf.String(), errBuf.String(), err
}

// writeTestConfig writes a minimal configuration file for --config.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "bizscan.yaml")
	if err := os.WriteFile(path, []byte("timeout: 5s\n"), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

// newTestSite serves a homepage and a contact page. Every homepage
// request returns a different e-mail address.
func newTestSite(t *testing.T) *httptest.Server {
	t.Helper()

	var visits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/contact", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprint(w, "<html><body><p>ISO 9001 certified. Our clients trust us.</p></body></html>")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		n := visits.Add(1)
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		fmt.Fprintf(w, "<html><body><p>Write to sales%d@acme.test</p></body></html>", n)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

// TestNewRootCmd tests the root command creation.
func TestNewRootCmd(t *testing.T) {
	t.Parallel()

	cmd := NewRootCmd()

	if cmd.Use != "bizscan <website_url>" {
		t.Errorf("unexpected Use: got %q", cmd.Use)
	}
	if !cmd.SilenceUsage || !cmd.SilenceErrors {
		t.Error("expected usage and errors to be silenced")
	}

	flagsWithShort := map[string]string{
		"timeout":    "t",
		"user-agent": "u",
		"config":     "c",
		"markdown":   "m",
		"text":       "T",
		"output":     "o",
		"save":       "s",
	}
	for flag, shorthand := range flagsWithShort {
		f := cmd.Flags().Lookup(flag)
		if f == nil {
			t.Errorf("expected flag %q to exist", flag)
			continue
		}
		if f.Shorthand != shorthand {
			t.Errorf("flag %q: expected shorthand %q, got %q", flag, shorthand, f.Shorthand)
		}
	}
	if cmd.Flags().Lookup("db-dir") == nil {
		t.Error("expected db-dir flag")
	}
	if cmd.PersistentFlags().Lookup("verbose") == nil {
		t.Error("expected persistent verbose flag")
	}

	for _, name := range []string{"batch", "history", "init", "version"} {
		found := false
		for _, sub := range cmd.Commands() {
			if sub.Name() == name {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("expected subcommand %q", name)
		}
	}
}

// TestRootCmdUsage tests that anything but one argument is a usage error.
func TestRootCmdUsage(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		args []string
	}{
		{"no arguments", nil},
		{"two arguments", []string{"https://a.test", "https://b.test"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			stdout, _, err := executeCmd(t, tt.args...)
			if !errors.Is(err, errUsage) {
				t.Errorf("expected usage error, got %v", err)
			}
			if stdout != "" {
				t.Errorf("expected no output, got %q", stdout)
			}
		})
	}
}

// TestRootCmdConfigErrors tests configuration validation.
func TestRootCmdConfigErrors(t *testing.T) {
	t.Parallel()

	t.Run("markdown and text together", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCmd(t, "-c", writeTestConfig(t), "-m", "-T", "https://acme.test")
		if !errors.Is(err, config.ErrConflictingReportFormats) {
			t.Errorf("expected ErrConflictingReportFormats, got %v", err)
		}
	})

	t.Run("missing explicit config file", func(t *testing.T) {
		t.Parallel()

		missing := filepath.Join(t.TempDir(), "missing.yaml")
		_, _, err := executeCmd(t, "-c", missing, "https://acme.test")
		if !errors.Is(err, config.ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("zero timeout", func(t *testing.T) {
		t.Parallel()

		_, _, err := executeCmd(t, "-c", writeTestConfig(t), "-t", "0s", "https://acme.test")
		if !errors.Is(err, config.ErrInvalidTimeout) {
			t.Errorf("expected ErrInvalidTimeout, got %v", err)
		}
	})
}

// TestRootCmdCrawl tests complete crawls through the command line.
func TestRootCmdCrawl(t *testing.T) {
	t.Parallel()

	t.Run("prints the JSON report", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		stdout, _, err := executeCmd(t, "-c", writeTestConfig(t), server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var report model.Report
		if err := json.Unmarshal([]byte(stdout), &report); err != nil {
			t.Fatalf("output is not a JSON report: %v\n%s", err, stdout)
		}
		if report.Identity.WebsiteURL != server.URL {
			t.Errorf("unexpected website url %q", report.Identity.WebsiteURL)
		}
		if !slices.Equal(report.ContactLocation.Emails, []string{"sales1@acme.test"}) {
			t.Errorf("unexpected emails %v", report.ContactLocation.Emails)
		}
		if !slices.Equal(report.Metadata.PagesCrawled, []string{server.URL, server.URL + "/contact"}) {
			t.Errorf("unexpected pages crawled %v", report.Metadata.PagesCrawled)
		}
		if !slices.Equal(report.EvidenceProof.BusinessSignals, []string{"clients", "iso"}) {
			t.Errorf("unexpected signals %v", report.EvidenceProof.BusinessSignals)
		}
		if !strings.HasPrefix(stdout, "{\n  \"identity\"") {
			t.Errorf("expected indented JSON, got %q", stdout[:min(len(stdout), 40)])
		}
	})

	t.Run("unreachable homepage is reported, not an error", func(t *testing.T) {
		t.Parallel()

		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		stdout, _, err := executeCmd(t, "-c", writeTestConfig(t), url)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var report model.Report
		if err := json.Unmarshal([]byte(stdout), &report); err != nil {
			t.Fatalf("output is not a JSON report: %v", err)
		}
		if len(report.Metadata.ErrorsOrLimitations) != 1 {
			t.Errorf("expected one error, got %v", report.Metadata.ErrorsOrLimitations)
		}
		if len(report.Metadata.PagesCrawled) != 0 {
			t.Errorf("expected no pages, got %v", report.Metadata.PagesCrawled)
		}
	})

	t.Run("writes a Markdown report to a file", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		outPath := filepath.Join(t.TempDir(), "reports", "acme.md")
		stdout, _, err := executeCmd(t, "-c", writeTestConfig(t), "-m", "-o", outPath, server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if stdout != "" {
			t.Errorf("expected nothing on stdout, got %q", stdout)
		}

		content, err := os.ReadFile(outPath) //nolint:gosec // test file
		if err != nil {
			t.Fatalf("failed to read report: %v", err)
		}
		if !strings.Contains(string(content), "# Business Profile: ") {
			t.Errorf("expected Markdown header, got:\n%s", content)
		}

		info, err := os.Stat(outPath)
		if err != nil {
			t.Fatalf("stat failed: %v", err)
		}
		if perm := info.Mode().Perm(); perm != 0o600 {
			t.Errorf("expected mode 0600, got %o", perm)
		}
	})

	t.Run("text report", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		stdout, _, err := executeCmd(t, "-c", writeTestConfig(t), "-T", server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !strings.Contains(stdout, "BUSINESS PROFILE REPORT") {
			t.Errorf("expected text banner, got:\n%s", stdout)
		}
	})

	t.Run("saved reports can be compared", func(t *testing.T) {
		t.Parallel()

		server := newTestSite(t)
		cfgPath := writeTestConfig(t)
		dbDir := t.TempDir()

		for range 2 {
			if _, _, err := executeCmd(t, "-c", cfgPath, "-s", "--db-dir", dbDir, server.URL); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		stdout, _, err := executeCmd(t, "history", "--json", "--db-dir", dbDir, server.URL)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		var cmp Comparison
		if err := json.Unmarshal([]byte(stdout), &cmp); err != nil {
			t.Fatalf("output is not a comparison: %v\n%s", err, stdout)
		}
		if !slices.Equal(cmp.NewEmails, []string{"sales2@acme.test"}) {
			t.Errorf("unexpected new emails %v", cmp.NewEmails)
		}
		if !slices.Equal(cmp.RemovedEmails, []string{"sales1@acme.test"}) {
			t.Errorf("unexpected removed emails %v", cmp.RemovedEmails)
		}
		if !slices.Equal(cmp.ChangedPages, []string{server.URL}) {
			t.Errorf("expected only the homepage to change, got %v", cmp.ChangedPages)
		}
		if cmp.Status != statusUnchanged {
			t.Errorf("unexpected status %q", cmp.Status)
		}
	})
}

// TestRootCmdIgnoresDotfile tests that a .bizscan file in the working
// directory does not change a plain invocation. It changes the working
// directory, so it cannot run in parallel.
func TestRootCmdIgnoresDotfile(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, config.DefaultConfigFile), []byte("paths: [\n"), 0o600); err != nil {
		t.Fatalf("failed to write dotfile: %v", err)
	}
	t.Chdir(dir)

	server := newTestSite(t)
	stdout, _, err := executeCmd(t, server.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var report model.Report
	if err := json.Unmarshal([]byte(stdout), &report); err != nil {
		t.Fatalf("output is not a JSON report: %v\n%s", err, stdout)
	}
	if !slices.Equal(report.Metadata.PagesCrawled, []string{server.URL, server.URL + "/contact"}) {
		t.Errorf("expected the default paths to be crawled, got %v", report.Metadata.PagesCrawled)
	}
}
