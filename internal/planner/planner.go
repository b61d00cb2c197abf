// Package planner resolves the priority path list against a base URL.
package planner

import (
	"errors"
	"fmt"
	"net/url"
	"slices"
)

// ErrInvalidBaseURL is returned when the base URL cannot be parsed.
var ErrInvalidBaseURL = errors.New("invalid base url")

// Target is a priority path together with its absolute URL.
type Target struct {
	// Path is the path as listed, e.g. "/contact".
	Path string

	// URL is Path resolved against the base URL.
	URL string
}

// Planner owns an ordered, read-only list of paths.
type Planner struct {
	paths []string
}

// New creates a Planner for paths. The slice is copied, so later changes
// by the caller have no effect.
func New(paths []string) *Planner {
	return &Planner{paths: slices.Clone(paths)}
}

// Paths returns a copy of the path list.
func (p *Planner) Paths() []string {
	return slices.Clone(p.paths)
}

// Resolve returns one Target per path, in list order. Each path replaces
// the path of baseURL following RFC 3986 reference resolution: scheme and
// host are kept, the query and fragment of the base are dropped.
func (p *Planner) Resolve(baseURL string) ([]Target, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidBaseURL, err)
	}

	targets := make([]Target, 0, len(p.paths))
	for _, path := range p.paths {
		ref, err := url.Parse(path)
		if err != nil {
			return nil, fmt.Errorf("invalid priority path %q: %w", path, err)
		}
		targets = append(targets, Target{
			Path: path,
			URL:  base.ResolveReference(ref).String(),
		})
	}
	return targets, nil
}
