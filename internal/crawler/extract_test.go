package crawler

import (
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const fullItemHTML = `
<div class="list-group-item">
  <a class="link-dark" href="/questions/12345/how-to-test">How to test?</a>
  <div class="meta">
    <a href="/users/alice">alice</a>
    <span title="Reputation">420</span>
    <time datetime="2026-08-15T10:30:00">asked 2 weeks ago</time>
  </div>
  <div class="stats">
    <i class="bi-hand-thumbs-up-fill"></i><em>7</em>
    <i class="bi-chat-square-text-fill"></i><em>3</em>
    <i class="bi-eye-fill"></i><em>150</em>
  </div>
  <a class="badge-tag" href="/tags/go"><span>go</span></a>
  <a class="badge-tag" href="/tags/testing"><span>testing</span></a>
  <a class="badge-tag" href="/tags/go"><span>go</span></a>
</div>`

func itemSelection(t *testing.T, html string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	require.NoError(t, err)
	sel := doc.Find("div.list-group-item").First()
	require.Positive(t, sel.Length())
	return sel
}

func TestExtractor_Extract_FullItem(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://answer.chancefoundation.org.cn", zap.NewNop())
	now := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)

	rec, ok := e.Extract(itemSelection(t, fullItemHTML), 3, now)
	require.True(t, ok)

	require.Equal(t, "12345", rec.ID)
	require.Equal(t, "How to test?", rec.Title)
	require.Equal(t, "alice", rec.Author)
	require.Equal(t, 420, rec.Reputation)
	require.Equal(t, "2 weeks ago", rec.AskedTime)
	require.Equal(t, "2026-08-15T10:30:00", rec.PreciseTime)
	require.Equal(t, 7, rec.Likes)
	require.Equal(t, 3, rec.Answers)
	require.Equal(t, 150, rec.Views)
	require.Equal(t, []string{"go", "testing", "go"}, rec.Tags)
	require.Equal(t, "https://answer.chancefoundation.org.cn/questions/12345/how-to-test", rec.QuestionURL)
	require.Equal(t, "https://answer.chancefoundation.org.cn/users/alice", rec.AuthorURL)
	require.Equal(t, now, rec.CrawledAt)
	require.Equal(t, 3, rec.SourcePage)
}

func TestExtractor_Extract_MissingTitleSkips(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org", zap.NewNop())
	html := `<div class="list-group-item"><a href="/users/bob">bob</a></div>`

	rec, ok := e.Extract(itemSelection(t, html), 1, time.Now())
	require.False(t, ok)
	require.Nil(t, rec)
}

func TestExtractor_Extract_NilSelection(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org", zap.NewNop())
	rec, ok := e.Extract(nil, 1, time.Now())
	require.False(t, ok)
	require.Nil(t, rec)
}

func TestExtractor_Extract_TitleOnlyUsesDefaults(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org", zap.NewNop())
	html := `<div class="list-group-item"><a class="link-dark" href="/questions/9/bare">Bare question</a></div>`

	rec, ok := e.Extract(itemSelection(t, html), 2, time.Now())
	require.True(t, ok)

	require.Equal(t, "9", rec.ID)
	require.Equal(t, AnonymousAuthor, rec.Author)
	require.Zero(t, rec.Reputation)
	require.Empty(t, rec.AskedTime)
	require.Empty(t, rec.PreciseTime)
	require.Zero(t, rec.Likes)
	require.Zero(t, rec.Answers)
	require.Zero(t, rec.Views)
	require.Empty(t, rec.Tags)
	require.Empty(t, rec.AuthorURL)
}

func TestExtractor_Extract_MalformedCounters(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org", zap.NewNop())
	html := `
<div class="list-group-item">
  <a class="link-dark" href="/questions/77/counters">Counters</a>
  <span title="Reputation">not-a-number</span>
  <i class="bi-hand-thumbs-up-fill"></i><em>-5</em>
  <i class="bi-eye-fill"></i><em> 42 </em>
</div>`

	rec, ok := e.Extract(itemSelection(t, html), 1, time.Now())
	require.True(t, ok)

	require.Zero(t, rec.Reputation)
	require.Zero(t, rec.Likes)
	require.Zero(t, rec.Answers)
	require.Equal(t, 42, rec.Views)
}

func TestExtractor_Extract_StatFallbackToParentEm(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org", zap.NewNop())
	html := `
<div class="list-group-item">
  <a class="link-dark" href="/questions/5/nested">Nested stat</a>
  <span><i class="bi-eye-fill"></i></span>
  <span><i class="bi-chat-square-text-fill"></i><em>12</em></span>
</div>`

	rec, ok := e.Extract(itemSelection(t, html), 1, time.Now())
	require.True(t, ok)
	require.Equal(t, 12, rec.Answers)
	require.Zero(t, rec.Views)
}

func TestExtractor_Extract_AbsoluteLinksPreserved(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org/", zap.NewNop())
	html := `
<div class="list-group-item">
  <a class="link-dark" href="https://other.example/questions/31/ext">External</a>
</div>`

	rec, ok := e.Extract(itemSelection(t, html), 1, time.Now())
	require.True(t, ok)
	require.Equal(t, "31", rec.ID)
	require.Equal(t, "https://other.example/questions/31/ext", rec.QuestionURL)
}

func TestExtractor_Extract_NoQuestionIDInLink(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org", zap.NewNop())
	html := `<div class="list-group-item"><a class="link-dark" href="/posts/abc">Odd link</a></div>`

	rec, ok := e.Extract(itemSelection(t, html), 1, time.Now())
	require.True(t, ok)
	require.Empty(t, rec.ID)
	require.Equal(t, "https://example.org/posts/abc", rec.QuestionURL)
}

func TestExtractor_Extract_TagWithoutSpanIgnored(t *testing.T) {
	t.Parallel()

	e := NewExtractor("https://example.org", zap.NewNop())
	html := `
<div class="list-group-item">
  <a class="link-dark" href="/questions/8/tags">Tags</a>
  <a class="badge-tag" href="/tags/broken">broken</a>
  <a class="badge-tag" href="/tags/ok"><span>ok</span></a>
</div>`

	rec, ok := e.Extract(itemSelection(t, html), 1, time.Now())
	require.True(t, ok)
	require.Equal(t, []string{"ok"}, rec.Tags)
}

func TestParseCount(t *testing.T) {
	t.Parallel()

	require.Equal(t, 10, parseCount("10"))
	require.Equal(t, 10, parseCount("  10  "))
	require.Zero(t, parseCount(""))
	require.Zero(t, parseCount("1.5k"))
	require.Zero(t, parseCount("-3"))
}
