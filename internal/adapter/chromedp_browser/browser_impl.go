package chromedp_browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/dom"
	"github.com/chromedp/chromedp"
	"github.com/user/headline-scraper/internal/repository"
	"go.uber.org/zap"
)

const defaultActionTimeout = 30 * time.Second

// Options configure the Chrome instances started by Browser.
type Options struct {
	Headless      bool
	UserAgent     string
	ActionTimeout time.Duration // upper bound for a single browser action
}

// Browser starts a dedicated headless Chrome per session.
type Browser struct {
	opts   Options
	logger *zap.Logger
}

// NewBrowser creates a Browser backed by chromedp.
func NewBrowser(opts Options, logger *zap.Logger) *Browser {
	if opts.ActionTimeout <= 0 {
		opts.ActionTimeout = defaultActionTimeout
	}
	return &Browser{opts: opts, logger: logger}
}

// Open launches Chrome and returns a session bound to its first tab.
func (b *Browser) Open(ctx context.Context) (repository.Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", b.opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1920, 1080),
	)
	if b.opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(b.opts.UserAgent))
	}

	// The browser outlives the Open call; ctx only bounds startup.
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(b.logger.Sugar().Debugf))

	s := &session{
		ctx:     tabCtx,
		timeout: b.opts.ActionTimeout,
		cancel: func() {
			tabCancel()
			allocCancel()
		},
		logger: b.logger,
	}
	// The first Run allocates the browser and ties its lifetime to the context it is given,
	// so it must be the tab context itself and not a per-action child.
	stop := context.AfterFunc(ctx, s.cancel)
	err := chromedp.Run(tabCtx)
	if !stop() && err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.cancel()
		return nil, fmt.Errorf("start chrome: %w", err)
	}
	b.logger.Info("Chrome session started", zap.Bool("headless", b.opts.Headless))
	return s, nil
}

type session struct {
	ctx     context.Context
	timeout time.Duration
	cancel  func()
	logger  *zap.Logger

	closeOnce sync.Once
	closed    atomic.Bool
}

// run executes actions on the tab, bounded by both the action timeout and the caller's ctx.
func (s *session) run(ctx context.Context, actions ...chromedp.Action) error {
	if s.closed.Load() {
		return repository.ErrSessionClosed
	}
	opCtx, cancel := context.WithTimeout(s.ctx, s.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(opCtx, actions...)
	switch {
	case err == nil:
		return nil
	case s.closed.Load():
		return repository.ErrSessionClosed
	case ctx.Err() != nil:
		return ctx.Err()
	}
	return err
}

func (s *session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, chromedp.Navigate(url))
}

func (s *session) Find(ctx context.Context, loc repository.Locator) (repository.Element, error) {
	return first(s.FindAll(ctx, loc))
}

func (s *session) FindAll(ctx context.Context, loc repository.Locator) ([]repository.Element, error) {
	return s.query(ctx, loc)
}

func (s *session) Execute(ctx context.Context, script string) error {
	return s.run(ctx, chromedp.Evaluate(script, nil))
}

func (s *session) CurrentURL(ctx context.Context) (string, error) {
	var url string
	err := s.run(ctx, chromedp.Location(&url))
	return url, err
}

func (s *session) Close() error {
	var err error
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		err = chromedp.Cancel(s.ctx)
		s.cancel()
		s.logger.Info("Chrome session closed")
	})
	return err
}

// query looks loc up under the given roots, or in the whole document when none are given.
// It never waits for matches to appear; waiting is the caller's business.
func (s *session) query(ctx context.Context, loc repository.Locator, from ...*cdp.Node) ([]repository.Element, error) {
	opts := []chromedp.QueryOption{chromedp.ByQueryAll, chromedp.AtLeast(0)}
	if len(from) > 0 {
		opts = append(opts, chromedp.FromNode(from[0]))
	}

	var nodes []*cdp.Node
	if err := s.run(ctx, chromedp.Nodes(string(loc), &nodes, opts...)); err != nil {
		return nil, fmt.Errorf("query %q: %w", loc, err)
	}
	out := make([]repository.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, &element{s: s, node: n})
	}
	return out, nil
}

type element struct {
	s    *session
	node *cdp.Node
}

// Text returns the text content of the node, without script and style bodies.
func (e *element) Text(ctx context.Context) (string, error) {
	var html string
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		html, err = dom.GetOuterHTML().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err != nil {
		return "", e.wrap(ctx, err)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style").Remove()
	return doc.Text(), nil
}

func (e *element) Attribute(_ context.Context, name string) (string, bool, error) {
	v, ok := e.node.Attribute(name)
	return v, ok, nil
}

func (e *element) Find(ctx context.Context, loc repository.Locator) (repository.Element, error) {
	return first(e.FindAll(ctx, loc))
}

func (e *element) FindAll(ctx context.Context, loc repository.Locator) ([]repository.Element, error) {
	els, err := e.s.query(ctx, loc, e.node)
	if err != nil {
		return nil, e.wrap(ctx, err)
	}
	return els, nil
}

func (e *element) Click(ctx context.Context) error {
	if err := e.s.run(ctx, chromedp.MouseClickNode(e.node)); err != nil {
		if errors.Is(err, repository.ErrSessionClosed) || ctx.Err() != nil {
			return err
		}
		return fmt.Errorf("%w: %v", repository.ErrNotClickable, err)
	}
	return nil
}

// IsStale reports true once the node id no longer resolves, which happens when the
// node is removed or the tab navigates to a new document.
func (e *element) IsStale(ctx context.Context) (bool, error) {
	err := e.s.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := dom.DescribeNode().WithNodeID(e.node.NodeID).Do(ctx)
		return err
	}))
	if err == nil {
		return false, nil
	}
	if errors.Is(err, repository.ErrSessionClosed) || ctx.Err() != nil {
		return false, err
	}
	return true, nil
}

func (e *element) wrap(ctx context.Context, err error) error {
	if errors.Is(err, repository.ErrSessionClosed) || ctx.Err() != nil {
		return err
	}
	if stale, _ := e.IsStale(ctx); stale {
		return fmt.Errorf("%w: %v", repository.ErrStaleElement, err)
	}
	return err
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
