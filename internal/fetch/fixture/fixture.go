// Package fixture implements internal/fetch.PageSource against a fixed
// map of URL -> HTML, so the orchestrator and its tests can exercise
// the full fetch/parse/classify pipeline without a real browser
// (spec.md §9 design note: "a fixture-file-backed implementation of
// the same port for tests").
package fixture

import (
	"context"
	"fmt"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
)

// Source serves pre-loaded HTML by URL.
type Source struct {
	pages map[string]string
}

// New builds a Source from a url->html map.
func New(pages map[string]string) *Source {
	return &Source{pages: pages}
}

// FetchPage returns the fixture registered for url, wrapped as
// canon.ErrFetch if none exists — matching the production browser
// fetcher's error-path shape so orchestrator tests can exercise both
// the happy path and the skip-on-failure path.
func (s *Source) FetchPage(ctx context.Context, url string) (string, error) {
	html, ok := s.pages[url]
	if !ok {
		return "", canon.WrapFetch("fixture.fetch_page", fmt.Errorf("no fixture registered for %q", url))
	}
	return html, nil
}
