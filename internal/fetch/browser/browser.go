// Package browser implements internal/fetch.PageSource on top of
// go-rod, a headless-Chrome driver (spec.md §9 design note: the
// fetch_page(url) -> rendered_html port's production backend).
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/titulartarantula/canvas-rss-sub001/internal/canon"
)

// DefaultPageTimeout is the per-page budget from spec.md §5.
const DefaultPageTimeout = 60 * time.Second

// Source fetches rendered HTML through one shared, lazily-launched
// browser instance. A single Source is safe for concurrent FetchPage
// calls: go-rod pages are independent and the browser itself is
// goroutine-safe for spawning new pages.
type Source struct {
	mu      sync.Mutex // guards the lazy launch of browser
	browser *rod.Browser
	timeout time.Duration
}

// New returns a Source that launches its own local Chrome/Chromium on
// first use.
func New() *Source {
	return &Source{timeout: DefaultPageTimeout}
}

// FetchPage navigates to url, waits for the page to settle, and
// returns the fully rendered DOM as HTML. Errors are wrapped as
// canon.ErrFetch so the orchestrator's per-source retry/skip policy
// (spec.md §7 FetchError) can recognize them.
func (s *Source) FetchPage(ctx context.Context, url string) (string, error) {
	s.mu.Lock()
	if s.browser == nil {
		b := rod.New().Context(ctx)
		if err := b.Connect(); err != nil {
			s.mu.Unlock()
			return "", canon.WrapFetch("browser.connect", err)
		}
		s.browser = b
	}
	browser := s.browser
	s.mu.Unlock()

	deadline := time.Now().Add(s.timeout)
	pageCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	page, err := browser.Context(pageCtx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return "", canon.WrapFetch(fmt.Sprintf("browser.page %s", url), err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return "", canon.WrapFetch(fmt.Sprintf("browser.wait_load %s", url), err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", canon.WrapFetch(fmt.Sprintf("browser.html %s", url), err)
	}
	return html, nil
}

// Close releases the underlying browser process. Callers should invoke
// this once per orchestrator run, after every FetchPage call has
// returned.
func (s *Source) Close() error {
	if s.browser == nil {
		return nil
	}
	return s.browser.Close()
}
