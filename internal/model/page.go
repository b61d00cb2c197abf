package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// Page is a successfully fetched web page.
//
// Body holds the decompressed, UTF-8 decoded response body. The page is
// kept in memory only for the duration of the crawl; nothing except the
// extracted fields ends up in a Report.
type Page struct {
	// URL is the requested URL.
	URL string `json:"url"`

	// FinalURL is the URL after redirects.
	FinalURL string `json:"final_url,omitempty"`

	// StatusCode is the HTTP response status code.
	StatusCode int `json:"status_code"`

	// ContentType is the Content-Type response header.
	ContentType string `json:"content_type"`

	// Body is the decoded response body.
	Body string `json:"-"`

	// Hash is the SHA-256 hash of Body.
	// Used for change detection between saved reports.
	Hash string `json:"hash"`
}

// ComputeHash calculates and sets the SHA-256 hash of the page body.
func (p *Page) ComputeHash() {
	if len(p.Body) == 0 {
		p.Hash = ""
		return
	}

	hash := sha256.Sum256([]byte(p.Body))
	p.Hash = hex.EncodeToString(hash[:])
}

// IsHTML returns true if the page content type indicates HTML.
// A missing content type counts as HTML, since servers commonly omit it.
func (p *Page) IsHTML() bool {
	ct := strings.ToLower(strings.TrimSpace(p.ContentType))
	if ct == "" {
		return true
	}
	return strings.HasPrefix(ct, "text/html") || strings.HasPrefix(ct, "application/xhtml+xml")
}
