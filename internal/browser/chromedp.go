// Package browser provides chromedp-backed sessions for the crawl workers.
package browser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/crawl"
)

const (
	searchInputSelector  = "#input-query"
	searchButtonSelector = ".fwc-input-search-icon"

	defaultNavTimeout = 60 * time.Second
)

// Config controls one worker's browser session.
type Config struct {
	WorkerID    int
	UserAgent   string
	DownloadDir string
	NavTimeout  time.Duration
}

// Session drives one headless Chrome instance. It implements crawl.Session.
type Session struct {
	ctx         context.Context
	cancelCtx   context.CancelFunc
	cancelAlloc context.CancelFunc
	navTimeout  time.Duration
	logger      *zap.Logger
}

var _ crawl.Session = (*Session)(nil)

// NewSession launches a dedicated headless Chrome for one worker.
func NewSession(cfg Config, logger *zap.Logger) (*Session, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.NavTimeout <= 0 {
		cfg.NavTimeout = defaultNavTimeout
	}
	userAgent := cfg.UserAgent
	if userAgent == "" {
		userAgent = fmt.Sprintf("agreement-finder/1.0 (worker %d)", cfg.WorkerID)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.WindowSize(1920, 1080),
		chromedp.NoSandbox,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.DisableGPU,
		chromedp.UserAgent(userAgent),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancelCtx := chromedp.NewContext(allocCtx,
		chromedp.WithLogf(func(format string, args ...interface{}) {
			logger.Debug(fmt.Sprintf(format, args...))
		}),
	)

	// Start the browser process now so session construction fails fast.
	if err := chromedp.Run(ctx); err != nil {
		cancelCtx()
		cancelAlloc()
		return nil, fmt.Errorf("launch browser for worker %d: %w", cfg.WorkerID, err)
	}

	if cfg.DownloadDir != "" {
		err := chromedp.Run(ctx,
			cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorAllow).
				WithDownloadPath(cfg.DownloadDir),
		)
		if err != nil {
			cancelCtx()
			cancelAlloc()
			return nil, fmt.Errorf("set download dir for worker %d: %w", cfg.WorkerID, err)
		}
	}

	return &Session{
		ctx:         ctx,
		cancelCtx:   cancelCtx,
		cancelAlloc: cancelAlloc,
		navTimeout:  cfg.NavTimeout,
		logger:      logger.With(zap.Int("worker_id", cfg.WorkerID)),
	}, nil
}

// run executes actions against the browser, honoring both the session's
// timeout and the caller's context.
func (s *Session) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()
	return chromedp.Run(runCtx, actions...)
}

// Navigate loads url and waits for the document body to be ready.
func (s *Session) Navigate(ctx context.Context, url string) error {
	err := s.run(ctx, s.navTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return fmt.Errorf("navigate to %s: %w", url, err)
	}
	return nil
}

// WaitForFragments waits for selector to appear and returns the matching
// elements as parsed fragments. A timeout with no match returns an empty
// slice, not an error.
func (s *Session) WaitForFragments(ctx context.Context, selector string, timeout time.Duration) ([]*goquery.Selection, error) {
	err := s.run(ctx, timeout, chromedp.WaitReady(selector, chromedp.ByQuery))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			s.logger.Debug("selector did not appear", zap.String("selector", selector))
			return nil, nil
		}
		return nil, fmt.Errorf("wait for %s: %w", selector, err)
	}

	var html string
	if err := s.run(ctx, s.navTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, fmt.Errorf("read page html: %w", err)
	}
	return ParseFragments(html, selector)
}

// RunSearch types query into the search box and submits it.
func (s *Session) RunSearch(ctx context.Context, query string) error {
	err := s.run(ctx, s.navTimeout,
		chromedp.WaitVisible(searchInputSelector, chromedp.ByQuery),
		chromedp.SendKeys(searchInputSelector, query, chromedp.ByQuery),
		chromedp.Click(searchButtonSelector, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Errorf("run search %q: %w", query, err)
	}
	return nil
}

// Title returns the current document title.
func (s *Session) Title(ctx context.Context) (string, error) {
	var title string
	if err := s.run(ctx, s.navTimeout, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("read page title: %w", err)
	}
	return title, nil
}

// Close shuts the browser down.
func (s *Session) Close() error {
	s.cancelCtx()
	s.cancelAlloc()
	return nil
}

// ParseFragments parses rendered HTML and returns each element matching
// selector as its own selection.
func ParseFragments(html, selector string) ([]*goquery.Selection, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parse page html: %w", err)
	}
	var items []*goquery.Selection
	doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		items = append(items, sel)
	})
	return items, nil
}
