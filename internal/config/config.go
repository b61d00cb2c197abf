package config

import (
	"path/filepath"
	"slices"
	"time"

	"github.com/adrg/xdg"
)

// Default configuration values.
const (
	// DefaultTimeout is the per-request timeout. There is no global
	// timeout, so a full crawl takes at most about nine times this value.
	DefaultTimeout = 10 * time.Second

	// DefaultUserAgent is the User-Agent header sent with every request.
	DefaultUserAgent = "Mozilla/5.0"

	// DefaultMaxBodySize limits the response body size to read.
	// 5MB is enough for any HTML page we care about.
	DefaultMaxBodySize = 5 * 1024 * 1024 // 5MB

	// DefaultConcurrency is the number of sites crawled at once by the
	// batch command.
	DefaultConcurrency = 4

	// AppName is the application name used for XDG directory paths.
	AppName = "bizscan"
)

// DefaultPriorityPaths returns the paths crawled after the homepage, in
// crawl order. The order decides the order of pages_crawled and
// key_pages_detected.
func DefaultPriorityPaths() []string {
	return []string{
		"/about", "/company", "/products", "/solutions",
		"/industries", "/pricing", "/careers", "/contact",
	}
}

// DefaultKeywords returns the trust-signal vocabulary.
func DefaultKeywords() []string {
	return []string{"clients", "certification", "iso", "gmp", "case study", "award"}
}

// Config holds all configuration options for bizscan.
// It is populated from CLI flags and the optional config file and passed
// down explicitly; there is no global configuration state.
type Config struct {
	// Timeout is the timeout for each HTTP request.
	Timeout time.Duration

	// UserAgent is the User-Agent header sent with HTTP requests.
	UserAgent string

	// MaxBodySize is the maximum response body size in bytes to read.
	MaxBodySize int64

	// PriorityPaths are the paths crawled after the homepage.
	PriorityPaths []string

	// Keywords is the trust-signal vocabulary.
	Keywords []string

	// Verbose enables debug logging.
	Verbose bool

	// ConfigFilePath is the path to the configuration file.
	// If empty, no file is read.
	ConfigFilePath string

	// MarkdownReport selects Markdown output. Mutually exclusive with TextReport.
	MarkdownReport bool

	// TextReport selects plain text output. Mutually exclusive with MarkdownReport.
	TextReport bool

	// ReportFile is the output file path. Empty means stdout.
	ReportFile string

	// SaveToDB stores each report in the history database.
	SaveToDB bool

	// DBDir is the directory holding the history database.
	DBDir string

	// Concurrency is the number of sites the batch command crawls at once.
	Concurrency int

	// Targets are the website URLs to crawl.
	Targets []string
}

// NewConfig creates a new Config with default values.
func NewConfig() *Config {
	return &Config{
		Timeout:       DefaultTimeout,
		UserAgent:     DefaultUserAgent,
		MaxBodySize:   DefaultMaxBodySize,
		PriorityPaths: DefaultPriorityPaths(),
		Keywords:      DefaultKeywords(),
		DBDir:         XDGDataDir(),
		Concurrency:   DefaultConcurrency,
	}
}

// XDGDataDir returns the XDG data directory for bizscan.
// On Linux: ~/.local/share/bizscan
// On macOS: ~/Library/Application Support/bizscan
// On Windows: %LOCALAPPDATA%\bizscan
func XDGDataDir() string {
	return filepath.Join(xdg.DataHome, AppName)
}

// Apply copies every value set in the file into the config.
// Values already changed by flags must be applied after this call.
func (c *Config) Apply(f *File) {
	if f == nil {
		return
	}
	if f.Timeout > 0 {
		c.Timeout = f.Timeout
	}
	if f.UserAgent != "" {
		c.UserAgent = f.UserAgent
	}
	if f.MaxBodySize > 0 {
		c.MaxBodySize = f.MaxBodySize
	}
	if len(f.Paths) > 0 {
		c.PriorityPaths = slices.Clone(f.Paths)
	}
	if len(f.Keywords) > 0 {
		c.Keywords = slices.Clone(f.Keywords)
	}
}

// Validate checks if the configuration is valid.
// It returns the first problem found.
func (c *Config) Validate() error {
	if len(c.Targets) == 0 {
		return ErrNoTarget
	}

	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}

	if c.MaxBodySize <= 0 {
		return ErrInvalidMaxBodySize
	}

	if c.Concurrency <= 0 {
		return ErrInvalidConcurrency
	}

	if c.MarkdownReport && c.TextReport {
		return ErrConflictingReportFormats
	}

	if len(c.PriorityPaths) == 0 {
		return ErrEmptyPaths
	}

	return nil
}
