// Package worker executes the crawl pipeline for one task at a time.
package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/analytics"
	"github.com/qnalytics/qna-crawler/internal/crawler"
	"github.com/qnalytics/qna-crawler/internal/metrics"
)

// Config controls Worker behavior.
type Config struct {
	// PolitenessDelay is the pause between successive page fetches.
	PolitenessDelay time.Duration
	// DefaultTimeout applies when a request carries no per-task timeout.
	DefaultTimeout time.Duration
}

// Worker consumes queue items and runs the crawl routine: page loop,
// analytics, archival, completion event, task settlement. The same Process
// routine backs both the background pool and the synchronous API path.
type Worker struct {
	queue      crawler.Queue
	registry   crawler.TaskRegistry
	archive    crawler.ArchiveStore
	publisher  crawler.Publisher
	clock      crawler.Clock
	newFetcher crawler.FetcherFactory
	extractor  *crawler.Extractor
	pauser     crawler.Pauser
	cfg        Config
	logger     *zap.Logger
}

// New constructs a Worker.
func New(
	queue crawler.Queue,
	registry crawler.TaskRegistry,
	archive crawler.ArchiveStore,
	publisher crawler.Publisher,
	clock crawler.Clock,
	newFetcher crawler.FetcherFactory,
	extractor *crawler.Extractor,
	cfg Config,
	logger *zap.Logger,
) *Worker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Worker{
		queue:      queue,
		registry:   registry,
		archive:    archive,
		publisher:  publisher,
		clock:      clock,
		newFetcher: newFetcher,
		extractor:  extractor,
		pauser:     &crawler.TimerPauser{},
		cfg:        cfg,
		logger:     logger,
	}
}

// Run blocks, consuming queue items until the context finishes.
func (w *Worker) Run(ctx context.Context) {
	for {
		req, err := w.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			w.logger.Error("queue dequeue failed", zap.Error(err))
			continue
		}
		w.Process(ctx, req)
	}
}

// Process runs the full crawl routine for one task and settles its state.
// It never returns an error: every fault below task level is absorbed, and
// task-level faults are recorded on the task itself.
func (w *Worker) Process(ctx context.Context, req crawler.CrawlRequest) {
	logger := w.logger.With(zap.String("task_id", req.TaskID))
	logger.Info("crawl task started", zap.Int("max_pages", req.Params.MaxPages))

	timeout := req.Params.Timeout
	if timeout <= 0 {
		timeout = w.cfg.DefaultTimeout
	}
	loop := crawler.NewLoop(
		w.newFetcher(timeout),
		w.extractor,
		w.clock,
		w.pauser,
		w.cfg.PolitenessDelay,
		logger,
	)

	records, loopErr := loop.Run(ctx, req.Params.MaxPages, w.registry.Handle(req.TaskID))
	metrics.ObserveRecordsExtracted(len(records))

	// A crawl that faulted before gathering anything is a failed task; one
	// that already accumulated records completes with the partial dataset.
	if loopErr != nil && len(records) == 0 {
		w.registry.Fail(req.TaskID, loopErr.Error())
		w.finish(ctx, req.TaskID, len(records))
		return
	}
	if loopErr != nil {
		logger.Warn("crawl terminated early, keeping partial dataset",
			zap.Int("records", len(records)), zap.Error(loopErr))
	}

	// A stop keeps whatever was gathered before the flag was observed as the
	// task's partial result; only a stop before any record skips archiving.
	if w.registry.StopRequested(req.TaskID) {
		logger.Info("crawl stopped", zap.Int("records", len(records)))
		if len(records) > 0 {
			result := analytics.BuildResult(records, w.clock.Now())
			if err := w.archive.Save(req.TaskID, result); err != nil {
				logger.Warn("archive save failed for stopped task", zap.Error(err))
			}
			w.registry.AttachResult(req.TaskID, result)
		}
		w.finish(ctx, req.TaskID, len(records))
		return
	}

	result := analytics.BuildResult(records, w.clock.Now())
	if err := w.archive.Save(req.TaskID, result); err != nil {
		logger.Error("archive save failed", zap.Error(err))
		w.registry.Fail(req.TaskID, err.Error())
		w.finish(ctx, req.TaskID, len(records))
		return
	}

	w.registry.Complete(req.TaskID, result)
	w.finish(ctx, req.TaskID, len(records))
}

// finish publishes the completion event and records final-status metrics
// from the settled snapshot. Publish failures never fail the task.
func (w *Worker) finish(ctx context.Context, taskID string, records int) {
	snapshot, ok := w.registry.Get(taskID)
	if !ok {
		return
	}
	metrics.ObserveTask(string(snapshot.Status))
	if w.publisher == nil {
		return
	}
	event := crawler.CompletionEvent{
		TaskID:  taskID,
		Status:  snapshot.Status,
		Records: records,
		Error:   snapshot.Error,
		At:      w.clock.Now(),
	}
	if err := w.publisher.Publish(ctx, event); err != nil {
		w.logger.Warn("completion event publish failed", zap.String("task_id", taskID), zap.Error(err))
	}
}
