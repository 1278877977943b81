package crawler

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

// Selectors used against one listing-item fragment. The listing markup is
// bootstrap-flavoured; every lookup below is best-effort.
const (
	titleSelector      = "a.link-dark"
	authorSelector     = `a[href*="/users/"]`
	reputationSelector = `span[title="Reputation"]`
	timeSelector       = "time"
	likesIconSelector  = "i.bi-hand-thumbs-up-fill"
	answerIconSelector = "i.bi-chat-square-text-fill"
	viewsIconSelector  = "i.bi-eye-fill"
	tagBadgeSelector   = "a.badge-tag"
)

var questionIDPattern = regexp.MustCompile(`/questions/(\d+)`)

// Extractor turns listing-item fragments into QuestionRecords. Each
// sub-field lookup is independently fault-isolated: a missing or malformed
// sub-element yields that field's default and never aborts the record.
type Extractor struct {
	origin string
	logger *zap.Logger
}

// NewExtractor builds an Extractor rooted at the site origin used to
// absolutize harvested relative links.
func NewExtractor(origin string, logger *zap.Logger) *Extractor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Extractor{
		origin: strings.TrimRight(origin, "/"),
		logger: logger,
	}
}

// Extract produces a record from one fragment, or ok=false when the
// fragment carries no usable title and must be skipped. It never panics:
// an unexpected failure inside a single extraction is logged and the item
// is skipped.
func (e *Extractor) Extract(sel *goquery.Selection, page int, now time.Time) (rec *QuestionRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Error("item extraction panicked", zap.Int("page", page), zap.Any("panic", r))
			rec, ok = nil, false
		}
	}()
	if sel == nil {
		return nil, false
	}

	titleSel := sel.Find(titleSelector).First()
	if titleSel.Length() == 0 {
		return nil, false
	}
	title := strings.TrimSpace(titleSel.Text())
	link, _ := titleSel.Attr("href")
	link = strings.TrimSpace(link)

	record := QuestionRecord{
		ID:          extractQuestionID(link),
		Title:       title,
		Author:      AnonymousAuthor,
		AskedTime:   "",
		Tags:        e.extractTags(sel),
		QuestionURL: e.absoluteURL(link),
		CrawledAt:   now.UTC(),
		SourcePage:  page,
	}

	if authorSel := sel.Find(authorSelector).First(); authorSel.Length() > 0 {
		if name := strings.TrimSpace(authorSel.Text()); name != "" {
			record.Author = name
		}
		if href, exists := authorSel.Attr("href"); exists {
			record.AuthorURL = e.absoluteURL(strings.TrimSpace(href))
		}
	}

	record.Reputation = parseCount(sel.Find(reputationSelector).First().Text())

	if timeSel := sel.Find(timeSelector).First(); timeSel.Length() > 0 {
		display := strings.TrimSpace(timeSel.Text())
		display = strings.TrimSpace(strings.TrimPrefix(display, "asked"))
		record.AskedTime = display
		if dt, exists := timeSel.Attr("datetime"); exists {
			record.PreciseTime = strings.TrimSpace(dt)
		}
	}

	record.Likes = e.extractStat(sel, likesIconSelector)
	record.Answers = e.extractStat(sel, answerIconSelector)
	record.Views = e.extractStat(sel, viewsIconSelector)

	return &record, true
}

// extractStat reads the counter next to a labelled icon: the icon's next em
// sibling, falling back to the first em under the icon's parent.
func (e *Extractor) extractStat(sel *goquery.Selection, iconSelector string) int {
	icon := sel.Find(iconSelector).First()
	if icon.Length() == 0 {
		return 0
	}
	em := icon.NextAllFiltered("em").First()
	if em.Length() == 0 {
		em = icon.Parent().Find("em").First()
	}
	if em.Length() == 0 {
		return 0
	}
	return parseCount(em.Text())
}

func (e *Extractor) extractTags(sel *goquery.Selection) []string {
	var tags []string
	sel.Find(tagBadgeSelector).Each(func(_ int, badge *goquery.Selection) {
		span := badge.Find("span").First()
		if span.Length() == 0 {
			return
		}
		if label := strings.TrimSpace(span.Text()); label != "" {
			tags = append(tags, label)
		}
	})
	return tags
}

func (e *Extractor) absoluteURL(path string) string {
	if path == "" {
		return ""
	}
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return e.origin + path
}

func extractQuestionID(link string) string {
	m := questionIDPattern.FindStringSubmatch(link)
	if m == nil {
		return ""
	}
	return m[1]
}

// parseCount parses a counter's text, defaulting to 0 on any failure and
// clamping negatives so counters stay non-negative.
func parseCount(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n < 0 {
		return 0
	}
	return n
}
