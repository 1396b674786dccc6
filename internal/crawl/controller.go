package crawl

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/fwcsearch/agreement-finder/internal/metrics"
)

// Options configure a finder run.
type Options struct {
	StartURLs      []string
	TargetURLs     []string
	AgreementType  string
	Status         string
	TargetPage     int
	MaxPages       int
	Workers        int
	PagesPerWorker int

	// MaxAttempts bounds the retry rounds run after round 0. DepthStep is the
	// page offset added per attempt; the escalation assumes target documents
	// drift deeper into the index over time, so it is policy, not a constant.
	MaxAttempts int
	DepthStep   int
}

// Report summarizes a finished run across all rounds.
type Report struct {
	RunID    string
	Found    []Record
	Missing  []string
	Attempts int
}

// RunStatus is the live view served by the status API.
type RunStatus struct {
	RunID string `json:"run_id"`
	Round int    `json:"round"`
	Progress
}

// Controller owns round-to-round carry-over of unresolved targets: it runs a
// full scheduling round across all workers, then re-runs at escalating page
// depth for whatever remains, up to the attempt budget.
type Controller struct {
	opts     Options
	sessions SessionFactory
	logger   *zap.Logger
	runID    string

	mu    sync.Mutex
	round int
	state *State
}

// NewController builds a controller; zero option fields get the defaults the
// CLI documents.
func NewController(opts Options, sessions SessionFactory, logger *zap.Logger) *Controller {
	if opts.TargetPage < 1 {
		opts.TargetPage = 1
	}
	if opts.MaxPages <= 0 {
		opts.MaxPages = 5
	}
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.PagesPerWorker <= 0 {
		opts.PagesPerWorker = 5
	}
	if opts.DepthStep <= 0 {
		opts.DepthStep = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		opts:     opts,
		sessions: sessions,
		logger:   logger,
		runID:    uuid.NewString(),
	}
}

// RunID identifies this run in logs, status snapshots, and exports.
func (c *Controller) RunID() string {
	return c.runID
}

// Run executes rounds until every target is found or the attempt budget is
// exhausted, and returns the merged report. An empty target set warns and
// performs no work.
func (c *Controller) Run(ctx context.Context) (*Report, error) {
	report := &Report{RunID: c.runID}
	remaining := canonicalTargets(c.opts.TargetURLs)
	if len(remaining) == 0 {
		c.logger.Warn("no target urls provided; nothing will be extracted")
		return report, nil
	}
	total := len(remaining)

	rounds := 0
	for attempt := 0; attempt <= c.opts.MaxAttempts; attempt++ {
		if len(remaining) == 0 || ctx.Err() != nil {
			break
		}
		startPage, maxPage := c.roundBounds(attempt)
		c.logger.Info("starting round",
			zap.String("run_id", c.runID),
			zap.Int("attempt", attempt),
			zap.Int("start_page", startPage),
			zap.Int("max_page", maxPage),
			zap.Int("targets", len(remaining)),
		)
		found, missing, err := c.runRound(ctx, attempt, remaining, startPage, maxPage)
		rounds++
		metrics.ObserveRound()
		report.Found = append(report.Found, found...)
		remaining = missing
		if err != nil {
			report.Missing = remaining
			return report, err
		}
		if len(found) == 0 && attempt > 0 {
			c.logger.Warn("retry round found no targets", zap.Int("attempt", attempt))
		}
	}
	if rounds > 0 {
		report.Attempts = rounds - 1
	}
	report.Missing = remaining
	c.logSummary(report, total)
	return report, nil
}

// roundBounds computes a round's starting page and page ceiling. The ceiling
// is bounded by both the (growing) max-page budget and the pool's page
// capacity for one round.
func (c *Controller) roundBounds(attempt int) (startPage, maxPage int) {
	startPage = c.opts.TargetPage + attempt*c.opts.DepthStep
	budget := c.opts.MaxPages + attempt*c.opts.DepthStep
	maxPage = startPage + c.opts.Workers*c.opts.PagesPerWorker
	if budget < maxPage {
		maxPage = budget
	}
	return startPage, maxPage
}

func (c *Controller) runRound(ctx context.Context, attempt int, targets []string, startPage, maxPage int) ([]Record, []string, error) {
	state := NewState(targets)
	c.setRound(attempt, state)

	for _, startURL := range c.opts.StartURLs {
		baseURL, err := ApplyFilters(startURL, c.opts.AgreementType, c.opts.Status)
		if err != nil {
			return state.Results(), state.Remaining(), fmt.Errorf("apply filters to %s: %w", startURL, err)
		}
		assignments := Assignments(c.opts.Workers, c.opts.PagesPerWorker, startPage, maxPage)
		if len(assignments) == 0 {
			c.logger.Warn("no pages to assign", zap.Int("start_page", startPage), zap.Int("max_page", maxPage))
			continue
		}

		var wg sync.WaitGroup
		for _, a := range assignments {
			wg.Add(1)
			go func(a Assignment) {
				defer wg.Done()
				c.runWorker(ctx, a, baseURL, startURL, state)
			}(a)
		}
		wg.Wait()

		if state.AllTargetsFound() {
			break
		}
	}
	return state.Results(), state.Remaining(), nil
}

// runWorker opens one session, walks one assignment, and absorbs any panic
// at the task boundary so a failing worker never aborts its siblings.
func (c *Controller) runWorker(ctx context.Context, a Assignment, baseURL, startURL string, state *State) {
	logger := c.logger.Named("worker").With(zap.Int("worker_id", a.WorkerID))
	defer func() {
		if r := recover(); r != nil {
			logger.Error("worker failed", zap.Any("panic", r))
			metrics.ObserveWorkerError()
		}
	}()

	session, err := c.sessions(a.WorkerID)
	if err != nil {
		logger.Error("open browser session failed", zap.Error(err))
		metrics.ObserveWorkerError()
		return
	}
	defer func() {
		if cerr := session.Close(); cerr != nil {
			logger.Warn("close session failed", zap.Error(cerr))
		}
	}()

	metrics.IncActiveWorkers()
	defer metrics.DecActiveWorkers()

	extractor := NewExtractor(startURL, state, logger)
	worker := NewWorker(a.WorkerID, session, state, extractor, logger)
	reason := worker.Run(ctx, baseURL, a.Pages)
	logger.Info("worker finished",
		zap.String("reason", string(reason)),
		zap.Ints("pages", a.Pages),
	)
}

func (c *Controller) setRound(attempt int, state *State) {
	c.mu.Lock()
	c.round = attempt
	c.state = state
	c.mu.Unlock()
}

// Snapshot returns live progress for the status API.
func (c *Controller) Snapshot() RunStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	status := RunStatus{RunID: c.runID, Round: c.round}
	if c.state != nil {
		status.Progress = c.state.Snapshot()
	}
	return status
}

func (c *Controller) logSummary(report *Report, total int) {
	c.logger.Info("run complete",
		zap.String("run_id", report.RunID),
		zap.Int("found", len(report.Found)),
		zap.Int("targets", total),
		zap.Int("retry_attempts", report.Attempts),
	)
	if len(report.Missing) == 0 {
		c.logger.Info("all target urls found")
		return
	}
	c.logger.Warn("targets not found", zap.Int("count", len(report.Missing)))
	for _, u := range report.Missing {
		c.logger.Warn("missing target", zap.String("url", u))
	}
}

// canonicalTargets canonicalizes and dedups the configured target URLs,
// preserving order.
func canonicalTargets(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	out := make([]string, 0, len(urls))
	for _, raw := range urls {
		c := Canonicalize(strings.TrimSpace(raw))
		if c == "" {
			continue
		}
		if _, dup := seen[c]; dup {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}
