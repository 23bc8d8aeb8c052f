package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/user/headline-scraper/internal/entity"
	"github.com/user/headline-scraper/internal/repository"
)

const (
	containerLoc repository.Locator = "article.headline"
	linkLoc      repository.Locator = "a"
	timeLoc      repository.Locator = "span.timestamp"
	nextLoc      repository.Locator = "a.next"
)

type fakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
	c.sleeps = append(c.sleeps, d)
	return nil
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func (c *fakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]time.Duration(nil), c.sleeps...)
}

// fakePage is one document of a fakeSession.
type fakePage struct {
	url        string
	containers []*fakeElement
	next       *fakeElement
	stale      bool
}

type fakeElement struct {
	page     *fakePage
	text     string
	textErrs []error // returned by successive Text calls before text is returned
	attrs    map[string]string
	children map[repository.Locator]*fakeElement
	onClick  func() error

	textCalls int
}

func (e *fakeElement) Text(context.Context) (string, error) {
	e.textCalls++
	if e.textCalls <= len(e.textErrs) {
		return "", e.textErrs[e.textCalls-1]
	}
	return e.text, nil
}

func (e *fakeElement) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.attrs[name]
	return v, ok, nil
}

func (e *fakeElement) Find(_ context.Context, loc repository.Locator) (repository.Element, error) {
	child, ok := e.children[loc]
	if !ok {
		return nil, repository.ErrElementNotFound
	}
	return child, nil
}

func (e *fakeElement) FindAll(ctx context.Context, loc repository.Locator) ([]repository.Element, error) {
	child, err := e.Find(ctx, loc)
	if err != nil {
		return nil, nil
	}
	return []repository.Element{child}, nil
}

func (e *fakeElement) Click(context.Context) error {
	if e.onClick == nil {
		return repository.ErrNotClickable
	}
	return e.onClick()
}

func (e *fakeElement) IsStale(context.Context) (bool, error) {
	return e.page != nil && e.page.stale, nil
}

// headlineContainer builds a container whose anchor carries the headline text and link.
func headlineContainer(page *fakePage, text, href, published string) *fakeElement {
	anchor := &fakeElement{page: page, text: text, attrs: map[string]string{"href": href}}
	c := &fakeElement{
		page:     page,
		text:     text,
		children: map[repository.Locator]*fakeElement{linkLoc: anchor},
	}
	if published != "" {
		c.children[timeLoc] = &fakeElement{page: page, text: published}
	}
	return c
}

func newHeadlinePage(url string, n int) *fakePage {
	p := &fakePage{url: url}
	for i := 1; i <= n; i++ {
		p.containers = append(p.containers,
			headlineContainer(p, fmt.Sprintf("%s headline %d", url, i), fmt.Sprintf("/story-%d", i), "2 hours ago"))
	}
	return p
}

type fakeSession struct {
	clock    *fakeClock
	pages    []*fakePage
	current  int
	appearAt time.Duration // containers become visible this long after navigation
	loadedAt time.Time

	navigateErr error
	navigated   []string
	scripts     []string
	findCalls   int
	closed      int
}

func newFakeSession(clock *fakeClock, pages ...*fakePage) *fakeSession {
	s := &fakeSession{clock: clock, pages: pages}
	for i, p := range pages {
		if i+1 < len(pages) {
			s.linkNext(p)
		}
	}
	return s
}

func (s *fakeSession) linkNext(p *fakePage) {
	p.next = &fakeElement{page: p, onClick: func() error {
		p.stale = true
		s.current++
		s.loadedAt = s.clock.Now()
		return nil
	}}
}

func (s *fakeSession) page() *fakePage { return s.pages[s.current] }

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	if s.closed > 0 {
		return repository.ErrSessionClosed
	}
	if s.navigateErr != nil {
		return s.navigateErr
	}
	s.navigated = append(s.navigated, url)
	s.loadedAt = s.clock.Now()
	return nil
}

func (s *fakeSession) visible() bool {
	return !s.clock.Now().Before(s.loadedAt.Add(s.appearAt))
}

func (s *fakeSession) Find(ctx context.Context, loc repository.Locator) (repository.Element, error) {
	s.findCalls++
	all, err := s.FindAll(ctx, loc)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, repository.ErrElementNotFound
	}
	return all[0], nil
}

func (s *fakeSession) FindAll(_ context.Context, loc repository.Locator) ([]repository.Element, error) {
	if s.closed > 0 {
		return nil, repository.ErrSessionClosed
	}
	switch loc {
	case containerLoc:
		if !s.visible() {
			return nil, nil
		}
		out := make([]repository.Element, 0, len(s.page().containers))
		for _, c := range s.page().containers {
			out = append(out, c)
		}
		return out, nil
	case nextLoc:
		if s.page().next == nil {
			return nil, nil
		}
		return []repository.Element{s.page().next}, nil
	}
	return nil, nil
}

func (s *fakeSession) Execute(_ context.Context, script string) error {
	s.scripts = append(s.scripts, script)
	return nil
}

func (s *fakeSession) CurrentURL(context.Context) (string, error) {
	return s.page().url, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeBrowser struct {
	session *fakeSession
	openErr error
	opened  int
}

func (b *fakeBrowser) Open(context.Context) (repository.Session, error) {
	if b.openErr != nil {
		return nil, b.openErr
	}
	b.opened++
	return b.session, nil
}

type fakeTransport struct {
	mu    sync.Mutex
	errs  []error // returned by successive sends; nil entries and exhaustion mean success
	sent  []repository.Message
	calls int
}

func (t *fakeTransport) Send(_ context.Context, msg repository.Message) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls++
	if t.calls <= len(t.errs) && t.errs[t.calls-1] != nil {
		return t.errs[t.calls-1]
	}
	t.sent = append(t.sent, msg)
	return nil
}

func failingTransport(n int) *fakeTransport {
	errs := make([]error, n)
	for i := range errs {
		errs[i] = errors.New("connection refused")
	}
	return &fakeTransport{errs: errs}
}

type fakeHeadlineRepo struct {
	saved   []*entity.RunResult
	saveErr error
}

func (r *fakeHeadlineRepo) EnsureSchema(context.Context) error { return nil }

func (r *fakeHeadlineRepo) SaveRun(_ context.Context, run *entity.RunResult) error {
	if r.saveErr != nil {
		return r.saveErr
	}
	r.saved = append(r.saved, run)
	return nil
}

func (r *fakeHeadlineRepo) Recent(context.Context, int) ([]entity.HeadlineRecord, error) {
	return nil, nil
}

type fakeLinkCache struct {
	entries map[string]entity.LinkStatus
	sets    int
}

func (c *fakeLinkCache) Get(_ context.Context, url string) (entity.LinkStatus, bool, error) {
	s, ok := c.entries[url]
	return s, ok, nil
}

func (c *fakeLinkCache) Set(_ context.Context, url string, status entity.LinkStatus, _ time.Duration) error {
	if c.entries == nil {
		c.entries = map[string]entity.LinkStatus{}
	}
	c.entries[url] = status
	c.sets++
	return nil
}
