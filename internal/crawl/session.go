package crawl

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Session is the browser-automation capability a worker drives. Each worker
// owns exactly one session; sessions are never shared.
//
// WaitForFragments returns an empty slice when the selector never appears
// within the timeout; "not found" is not an error. Navigate fails on
// unreachable pages or navigation timeout.
type Session interface {
	Navigate(ctx context.Context, url string) error
	WaitForFragments(ctx context.Context, selector string, timeout time.Duration) ([]*goquery.Selection, error)
	RunSearch(ctx context.Context, query string) error
	Title(ctx context.Context) (string, error)
	Close() error
}

// SessionFactory opens a fresh session for one worker.
type SessionFactory func(workerID int) (Session, error)
