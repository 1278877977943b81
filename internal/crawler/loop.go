package crawler

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Loop drives the page fetcher across an increasing page index, extracting
// records and reporting progress through the task handle. It owns the
// pagination termination rules: an empty page, the configured cap, or an
// external stop request all end the crawl.
type Loop struct {
	fetcher   PageFetcher
	extractor *Extractor
	clock     Clock
	pauser    Pauser
	delay     time.Duration
	logger    *zap.Logger
}

// NewLoop constructs a Loop. delay is the politeness pause applied between
// successive page fetches; it is never skipped.
func NewLoop(
	fetcher PageFetcher,
	extractor *Extractor,
	clock Clock,
	pauser Pauser,
	delay time.Duration,
	logger *zap.Logger,
) *Loop {
	if pauser == nil {
		pauser = &TimerPauser{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{
		fetcher:   fetcher,
		extractor: extractor,
		clock:     clock,
		pauser:    pauser,
		delay:     delay,
		logger:    logger,
	}
}

// Run crawls pages 1..maxPages in strictly increasing order and returns the
// accumulated records. A non-nil error means the loop terminated on a fault;
// the records gathered before it are still returned so the caller can apply
// the partial-data policy.
func (l *Loop) Run(ctx context.Context, maxPages int, handle TaskHandle) ([]QuestionRecord, error) {
	var records []QuestionRecord

	for page := 1; ; page++ {
		if handle.Stopped() {
			l.logger.Info("stop requested, halting crawl", zap.Int("page", page), zap.Int("records", len(records)))
			return records, nil
		}

		handle.ReportProgress((page-1)*100/maxPages, fmt.Sprintf("crawling page %d...", page), page)

		fragments, err := l.fetcher.FetchPage(ctx, page)
		if err != nil {
			l.logger.Error("page fetch failed", zap.Int("page", page), zap.Error(err))
			return records, fmt.Errorf("fetch page %d: %w", page, err)
		}

		pageRecords := l.extractAll(fragments, page)
		if len(pageRecords) == 0 {
			l.logger.Info("page yielded no records, stopping crawl", zap.Int("page", page))
			break
		}

		records = append(records, pageRecords...)
		handle.ReportProgress(
			page*100/maxPages,
			fmt.Sprintf("page %d: %d records, %d total", page, len(pageRecords), len(records)),
			page,
		)
		l.logger.Info("page crawled",
			zap.Int("page", page),
			zap.Int("records", len(pageRecords)),
			zap.Int("total", len(records)),
		)

		if page >= maxPages {
			break
		}

		// Politeness delay between successive fetches, applied even when the
		// page was fast; bounds the request rate against the source site.
		l.pauser.Pause(ctx, l.delay)
	}

	handle.ReportProgress(100, "crawl finished, collating results...", 0)
	return records, nil
}

func (l *Loop) extractAll(fragments []*goquery.Selection, page int) []QuestionRecord {
	now := l.clock.Now()
	records := make([]QuestionRecord, 0, len(fragments))
	for _, fragment := range fragments {
		rec, ok := l.extractor.Extract(fragment, page, now)
		if !ok {
			continue
		}
		records = append(records, *rec)
	}
	return records
}
