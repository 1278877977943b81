package crawler

import (
	"context"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// PageFetcher retrieves one listing page and returns its item fragments.
// A page with no usable items (including network or status failures, which
// implementations absorb) returns an empty slice; the loop treats that as
// the end of pagination.
type PageFetcher interface {
	FetchPage(ctx context.Context, page int) ([]*goquery.Selection, error)
}

// TaskHandle is the loop's channel back to the registry for one task.
type TaskHandle interface {
	// Stopped reports whether an external stop has been requested. The loop
	// polls it at the top of every page iteration.
	Stopped() bool
	// ReportProgress records a best-effort progress update. Last write wins.
	ReportProgress(progress int, message string, currentPage int)
}

// Pauser abstracts the politeness delay between page fetches.
type Pauser interface {
	Pause(ctx context.Context, delay time.Duration)
}

// Publisher pushes completion events to an external channel.
type Publisher interface {
	Publish(ctx context.Context, event CompletionEvent) error
}

// Queue provides enqueue/dequeue semantics for background crawl requests.
type Queue interface {
	Enqueue(ctx context.Context, req CrawlRequest) error
	Dequeue(ctx context.Context) (CrawlRequest, error)
}

// TaskRegistry holds task lifecycle state. API handlers read and stop;
// the worker driving a task is its only other writer.
type TaskRegistry interface {
	Create(taskID string, totalPages int)
	Get(taskID string) (TaskSnapshot, bool)
	UpdateProgress(taskID string, progress int, message string, currentPage int)
	Complete(taskID string, result *ResultDocument)
	Fail(taskID string, errText string)
	// AttachResult records the partial dataset gathered before a stop was
	// observed. It applies only to stopped tasks; other states ignore it.
	AttachResult(taskID string, result *ResultDocument)
	RequestStop(taskID string) bool
	StopRequested(taskID string) bool
	RunningCount() int
	Handle(taskID string) TaskHandle
}

// ArchiveStore persists per-task result documents.
type ArchiveStore interface {
	Save(taskID string, doc *ResultDocument) error
	Load(taskID string) (*ResultDocument, error)
	Latest() (*ResultDocument, bool, error)
}

// FetcherFactory builds a PageFetcher with a per-task network timeout.
type FetcherFactory func(timeout time.Duration) PageFetcher

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces task IDs.
type IDGenerator interface {
	NewTaskID() (string, error)
}
