package crawl

import (
	"context"
	"math/rand"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/metrics"
)

// StopReason is the terminal state of a worker's page walk.
type StopReason string

const (
	// StoppedExhausted means the worker visited or skipped every assigned page.
	StoppedExhausted StopReason = "exhausted"
	// StoppedAllFound means the full target set was covered mid-walk.
	StoppedAllFound StopReason = "all_found"
	// StoppedError means a navigation or transport failure ended the walk.
	StoppedError StopReason = "error"
	// StoppedPageEnd means a page came back empty, so later pages are assumed
	// empty too and the rest of the assignment is abandoned.
	StoppedPageEnd StopReason = "page_end"
)

const (
	resultWaitTimeout = 60 * time.Second
	searchAllQuery    = "*"

	minPageDelay = 2 * time.Second
	maxPageDelay = 4 * time.Second
)

// Worker walks its assigned page numbers in ascending order, consulting the
// extractor and the shared state, and stops on local or global termination.
type Worker struct {
	id        int
	session   Session
	state     *State
	extractor *Extractor
	logger    *zap.Logger
	minDelay  time.Duration
	maxDelay  time.Duration
}

// NewWorker builds a worker around its own browser session.
func NewWorker(id int, session Session, state *State, extractor *Extractor, logger *zap.Logger) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		id:        id,
		session:   session,
		state:     state,
		extractor: extractor,
		logger:    logger,
		minDelay:  minPageDelay,
		maxDelay:  maxPageDelay,
	}
}

// Run processes the assigned pages against baseURL and returns the reason
// the walk ended. The per-page loop boundary is the only cooperative
// cancellation point: an in-flight fetch runs to completion, but no new
// page fetch begins once all targets are found or the context is done.
func (w *Worker) Run(ctx context.Context, baseURL string, pages []int) StopReason {
	for _, page := range pages {
		if w.state.AllTargetsFound() {
			w.logger.Info("all targets already found, not fetching further pages")
			return StoppedAllFound
		}
		if ctx.Err() != nil {
			w.logger.Warn("context done, abandoning remaining pages", zap.Error(ctx.Err()))
			return StoppedError
		}
		reason, fetched := w.processPage(ctx, baseURL, page)
		if reason != "" {
			return reason
		}
		if fetched {
			w.pause(ctx)
		}
	}
	return StoppedExhausted
}

// processPage handles one assigned page. A non-empty reason terminates the
// walk; fetched reports whether this worker actually fetched the page (a
// skip of an already-visited page triggers no politeness pause).
func (w *Worker) processPage(ctx context.Context, baseURL string, page int) (reason StopReason, fetched bool) {
	pageURL, err := Paginate(baseURL, page)
	if err != nil {
		w.logger.Error("build page url failed", zap.Int("page", page), zap.Error(err))
		metrics.ObserveWorkerError()
		return StoppedError, false
	}
	if !w.state.TryVisitPage(pageURL) {
		w.logger.Debug("page already visited by another worker", zap.String("url", pageURL))
		return "", false
	}

	w.logger.Info("processing page", zap.Int("page", page), zap.String("url", pageURL))
	if err := w.session.Navigate(ctx, pageURL); err != nil {
		w.logger.Error("navigation failed", zap.Int("page", page), zap.Error(err))
		metrics.ObserveWorkerError()
		return StoppedError, true
	}
	metrics.ObservePageVisited()
	if title, terr := w.session.Title(ctx); terr == nil && title != "" {
		w.logger.Debug("page title", zap.String("title", title))
	}

	items, err := w.session.WaitForFragments(ctx, ResultItemSelector, resultWaitTimeout)
	if err != nil {
		w.logger.Error("wait for results failed", zap.Int("page", page), zap.Error(err))
		metrics.ObserveWorkerError()
		return StoppedError, true
	}
	if len(items) == 0 {
		items = w.retryWithSearch(ctx)
	}
	if len(items) == 0 {
		w.logger.Info("no results on page, assuming end of pagination", zap.Int("page", page))
		return StoppedPageEnd, true
	}
	w.logger.Info("result items found", zap.Int("page", page), zap.Int("count", len(items)))

	if found := w.extractor.ExtractPage(items, page, w.id); !found {
		w.logger.Debug("no target urls on this page", zap.Int("page", page))
	}
	if w.state.AllTargetsFound() {
		w.logger.Info("all target urls processed, stopping")
		return StoppedAllFound, true
	}
	return "", true
}

// retryWithSearch submits the search-all query once when a page renders no
// results, mirroring the landing page that needs a query before it lists
// anything. A second empty wait means the page really is empty.
func (w *Worker) retryWithSearch(ctx context.Context) []*goquery.Selection {
	w.logger.Info("no results visible, attempting a search for all agreements")
	if err := w.session.RunSearch(ctx, searchAllQuery); err != nil {
		w.logger.Warn("fallback search failed", zap.Error(err))
		return nil
	}
	items, err := w.session.WaitForFragments(ctx, ResultItemSelector, resultWaitTimeout)
	if err != nil {
		w.logger.Warn("wait after fallback search failed", zap.Error(err))
		return nil
	}
	return items
}

// pause sleeps a random politeness delay between successive page fetches.
// It is a throttle, not an ordering mechanism.
func (w *Worker) pause(ctx context.Context) {
	delay := w.minDelay
	if w.maxDelay > w.minDelay {
		delay += time.Duration(rand.Int63n(int64(w.maxDelay - w.minDelay)))
	}
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
