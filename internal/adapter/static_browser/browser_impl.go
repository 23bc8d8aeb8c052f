// Package static_browser is a JavaScript-free Browser that fetches pages over HTTP and
// queries them with goquery. It suits sites that render headlines server side.
package static_browser

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/user/headline-scraper/internal/repository"
	"github.com/user/headline-scraper/pkg/utils"
	"go.uber.org/zap"
)

const defaultFetchTimeout = 30 * time.Second

type Browser struct {
	client    *http.Client
	userAgent string
	logger    *zap.Logger
}

// NewBrowser creates a static Browser. A nil client gets a default with a 30s timeout.
func NewBrowser(client *http.Client, userAgent string, logger *zap.Logger) *Browser {
	if client == nil {
		client = &http.Client{Timeout: defaultFetchTimeout}
	}
	return &Browser{client: client, userAgent: userAgent, logger: logger}
}

func (b *Browser) Open(context.Context) (repository.Session, error) {
	return &session{b: b}, nil
}

type session struct {
	b *Browser

	mu         sync.Mutex
	doc        *goquery.Document
	url        string
	generation int // bumped on every load; elements of older generations are stale
	closed     bool
}

func (s *session) Navigate(ctx context.Context, rawURL string) error {
	if s.isClosed() {
		return repository.ErrSessionClosed
	}
	doc, final, err := s.b.fetch(ctx, rawURL)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return repository.ErrSessionClosed
	}
	s.doc, s.url = doc, final
	s.generation++
	s.b.logger.Debug("Loaded page", zap.String("url", final), zap.Int("generation", s.generation))
	return nil
}

func (s *session) Find(ctx context.Context, loc repository.Locator) (repository.Element, error) {
	return first(s.FindAll(ctx, loc))
}

func (s *session) FindAll(_ context.Context, loc repository.Locator) ([]repository.Element, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, repository.ErrSessionClosed
	}
	if s.doc == nil {
		return nil, nil
	}
	return s.wrapLocked(s.doc.Find(string(loc))), nil
}

// Execute is a no-op: there is no script engine behind a static page.
func (s *session) Execute(context.Context, string) error {
	if s.isClosed() {
		return repository.ErrSessionClosed
	}
	return nil
}

func (s *session) CurrentURL(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", repository.ErrSessionClosed
	}
	return s.url, nil
}

func (s *session) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.doc = nil
	return nil
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *session) wrapLocked(sel *goquery.Selection) []repository.Element {
	out := make([]repository.Element, 0, sel.Length())
	sel.Each(func(_ int, node *goquery.Selection) {
		out = append(out, &element{s: s, sel: node, generation: s.generation})
	})
	return out
}

type element struct {
	s          *session
	sel        *goquery.Selection
	generation int
}

// live returns ErrStaleElement or ErrSessionClosed when the element can no longer be used.
func (e *element) live() error {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	switch {
	case e.s.closed:
		return repository.ErrSessionClosed
	case e.generation != e.s.generation:
		return repository.ErrStaleElement
	}
	return nil
}

func (e *element) Text(context.Context) (string, error) {
	if err := e.live(); err != nil {
		return "", err
	}
	return e.sel.Clone().Find("script, style").Remove().End().Text(), nil
}

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	if err := e.live(); err != nil {
		return "", false, err
	}
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *element) Find(ctx context.Context, loc repository.Locator) (repository.Element, error) {
	return first(e.FindAll(ctx, loc))
}

func (e *element) FindAll(_ context.Context, loc repository.Locator) ([]repository.Element, error) {
	if err := e.live(); err != nil {
		return nil, err
	}
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	return e.s.wrapLocked(e.sel.Find(string(loc))), nil
}

// Click follows anchors. Anything else has no behaviour without scripts.
func (e *element) Click(ctx context.Context) error {
	if err := e.live(); err != nil {
		return err
	}
	href, ok := e.sel.Attr("href")
	if !e.sel.Is("a") || !ok {
		return repository.ErrNotClickable
	}

	base, _ := e.s.CurrentURL(ctx)
	target := utils.ResolveLink(base, href)
	if target == "" {
		return fmt.Errorf("%w: href %q", repository.ErrNotClickable, href)
	}
	return e.s.Navigate(ctx, target)
}

func (e *element) IsStale(context.Context) (bool, error) {
	e.s.mu.Lock()
	defer e.s.mu.Unlock()
	if e.s.closed {
		return false, repository.ErrSessionClosed
	}
	return e.generation != e.s.generation, nil
}

// fetch loads rawURL, which may be http(s) or file, and returns the parsed document and
// the final address after redirects.
func (b *Browser) fetch(ctx context.Context, rawURL string) (*goquery.Document, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}

	if u.Scheme == "file" {
		f, err := os.Open(u.Path)
		if err != nil {
			return nil, "", err
		}
		defer f.Close()
		doc, err := goquery.NewDocumentFromReader(f)
		return doc, rawURL, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, "", err
	}
	if b.userAgent != "" {
		req.Header.Set("User-Agent", b.userAgent)
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()
	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("get %s: unexpected status %s", rawURL, resp.Status)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("parse %s: %w", rawURL, err)
	}
	return doc, resp.Request.URL.String(), nil
}

func first(els []repository.Element, err error) (repository.Element, error) {
	if err != nil {
		return nil, err
	}
	if len(els) == 0 {
		return nil, repository.ErrElementNotFound
	}
	return els[0], nil
}
