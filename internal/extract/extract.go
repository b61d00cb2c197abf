package extract

import (
	"regexp"
	"slices"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/nao1215/bizscan/internal/config"
	"github.com/nao1215/bizscan/internal/model"
)

// \s and \d match ASCII only, so a no-break space ends a phone match.
var (
	emailRegex = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9-.]+`)
	phoneRegex = regexp.MustCompile(`\+?\d[\d\s\-]{8,15}`)
)

// invisibleElements hold content that is not rendered as text.
const invisibleElements = "script, style, template"

// Extractor scans text for contact details and trust signals.
// It is read-only after construction and safe for concurrent use.
type Extractor struct {
	keywords []string
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithKeywords replaces the trust-signal vocabulary.
func WithKeywords(keywords []string) Option {
	return func(e *Extractor) {
		e.keywords = slices.Clone(keywords)
	}
}

// New creates an Extractor with the default vocabulary.
func New(opts ...Option) *Extractor {
	e := &Extractor{keywords: config.DefaultKeywords()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Keywords returns a copy of the vocabulary.
func (e *Extractor) Keywords() []string {
	return slices.Clone(e.keywords)
}

// Text returns the visible text of an HTML document. Text nodes are
// trimmed, empty ones dropped and the rest joined by single spaces.
// Script, style and template content and comments are skipped. Noscript
// content is kept and parsed as markup, as a client without scripting
// would render it.
func (e *Extractor) Text(document string) (string, error) {
	root, err := html.ParseWithOptions(strings.NewReader(document), html.ParseOptionEnableScripting(false))
	if err != nil {
		return "", err
	}
	doc := goquery.NewDocumentFromNode(root)
	doc.Find(invisibleElements).Remove()

	parts := make([]string, 0)
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			if s := strings.TrimSpace(n.Data); s != "" {
				parts = append(parts, s)
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}

	return strings.Join(parts, " "), nil
}

// PageText returns the text to scan for a fetched page. HTML pages go
// through Text; other content types are used as they are.
func (e *Extractor) PageText(page *model.Page) (string, error) {
	if !page.IsHTML() {
		return strings.TrimSpace(page.Body), nil
	}
	return e.Text(page.Body)
}

// Emails returns the distinct e-mail-like tokens in text, in order of
// first appearance.
func (e *Extractor) Emails(text string) []string {
	return unique(emailRegex.FindAllString(text, -1))
}

// Phones returns the distinct phone-like tokens in text, in order of
// first appearance.
func (e *Extractor) Phones(text string) []string {
	return unique(phoneRegex.FindAllString(text, -1))
}

// Signals returns every vocabulary keyword that occurs in text, ignoring
// case. A keyword is reported once no matter how often it occurs.
// The result follows vocabulary order.
func (e *Extractor) Signals(text string) []string {
	// A Caser keeps state, so each call gets its own.
	lower := cases.Lower(language.Und)
	haystack := lower.String(text)

	found := make([]string, 0)
	for _, keyword := range e.keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(haystack, lower.String(keyword)) {
			found = append(found, keyword)
		}
	}
	return found
}

// unique removes duplicates, keeping the first occurrence.
func unique(matches []string) []string {
	seen := make(map[string]bool, len(matches))
	result := make([]string, 0, len(matches))
	for _, m := range matches {
		if !seen[m] {
			seen[m] = true
			result = append(result, m)
		}
	}
	return result
}
