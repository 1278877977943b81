// Package collyfetcher implements the listing-page fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/metrics"
)

// Config controls collector behavior.
type Config struct {
	// Origin is the site origin, e.g. https://answer.chancefoundation.org.cn.
	Origin string
	// ListingPath is the paginated listing path, e.g. /questions.
	ListingPath string
	// ItemSelector identifies one question summary within a listing page.
	ItemSelector string
	UserAgent    string
	Timeout      time.Duration
}

const defaultItemSelector = "div.list-group-item"

// Fetcher retrieves one listing page per call and returns the fragment
// subtree for each question summary on it. A failed fetch (transport error
// or non-success status) is absorbed and reported as an empty page: the
// crawl loop reads that as end-of-pagination, not as a fault.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.ItemSelector == "" {
		cfg.ItemSelector = defaultItemSelector
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := colly.NewCollector(colly.Async(false))
	c.WithTransport(newHTTPTransport())
	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// PageURL builds the target address for a page index. The first page uses
// the bare listing path.
func (f *Fetcher) PageURL(page int) string {
	if page <= 1 {
		return f.cfg.Origin + f.cfg.ListingPath
	}
	return fmt.Sprintf("%s%s?page=%d", f.cfg.Origin, f.cfg.ListingPath, page)
}

// FetchPage issues a single blocking request for the given page and returns
// the item fragments found on it. The only returned error is context
// cancellation; everything else degrades to an empty page.
func (f *Fetcher) FetchPage(ctx context.Context, page int) ([]*goquery.Selection, error) {
	url := f.PageURL(page)

	collector := f.baseCollector.Clone()
	if f.cfg.UserAgent != "" {
		collector.UserAgent = f.cfg.UserAgent
	}
	collector.IgnoreRobotsTxt = true
	collector.SetRequestTimeout(f.cfg.Timeout)

	var fragments []*goquery.Selection
	var fetchErr error

	collector.OnHTML(f.cfg.ItemSelector, func(e *colly.HTMLElement) {
		fragments = append(fragments, e.DOM)
	})
	collector.OnError(func(_ *colly.Response, err error) {
		fetchErr = err
	})

	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("fetch page %d canceled: %w", page, ctx.Err())
	case err := <-done:
		if err == nil {
			err = fetchErr
		}
		if err != nil {
			f.logger.Warn("listing page unusable", zap.Int("page", page), zap.String("url", url), zap.Error(err))
			metrics.ObservePage("error")
			return nil, nil
		}
	}

	if len(fragments) == 0 {
		f.logger.Info("no question items found", zap.Int("page", page), zap.String("url", url))
		metrics.ObservePage("empty")
		return fragments, nil
	}
	metrics.ObservePage("ok")
	return fragments, nil
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
	}
}
