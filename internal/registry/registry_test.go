package registry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestRegistry() (*Registry, *fakeClock) {
	clock := &fakeClock{now: time.Unix(5000, 0).UTC()}
	return New(clock, zap.NewNop()), clock
}

func TestRegistry_CreateAndGet(t *testing.T) {
	t.Parallel()

	r, clock := newTestRegistry()
	r.Create("crawler_task_abc123def456", 10)

	snapshot, ok := r.Get("crawler_task_abc123def456")
	require.True(t, ok)
	require.Equal(t, crawler.TaskStatusRunning, snapshot.Status)
	require.Zero(t, snapshot.Progress)
	require.Equal(t, 10, snapshot.TotalPages)
	require.Equal(t, "initializing...", snapshot.Message)
	require.Equal(t, clock.Now(), snapshot.CreatedAt)
	require.Nil(t, snapshot.CompletedAt)

	_, ok = r.Get("missing")
	require.False(t, ok)
}

func TestRegistry_UpdateProgress(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	r.Create("t1", 5)

	r.UpdateProgress("t1", 40, "crawling page 3...", 3)
	snapshot, _ := r.Get("t1")
	require.Equal(t, 40, snapshot.Progress)
	require.Equal(t, "crawling page 3...", snapshot.Message)
	require.Equal(t, 3, snapshot.CurrentPage)

	// Empty message and zero page leave the stored values untouched.
	r.UpdateProgress("t1", 60, "", 0)
	snapshot, _ = r.Get("t1")
	require.Equal(t, 60, snapshot.Progress)
	require.Equal(t, "crawling page 3...", snapshot.Message)
	require.Equal(t, 3, snapshot.CurrentPage)

	// Unknown task is a no-op.
	r.UpdateProgress("missing", 10, "x", 1)
}

func TestRegistry_CompleteIsTerminal(t *testing.T) {
	t.Parallel()

	r, clock := newTestRegistry()
	r.Create("t1", 5)
	clock.Advance(time.Minute)

	result := &crawler.ResultDocument{TotalQuestions: 3}
	r.Complete("t1", result)

	snapshot, _ := r.Get("t1")
	require.Equal(t, crawler.TaskStatusCompleted, snapshot.Status)
	require.Equal(t, 100, snapshot.Progress)
	require.Equal(t, "crawl completed", snapshot.Message)
	require.NotNil(t, snapshot.CompletedAt)
	require.Equal(t, clock.Now(), *snapshot.CompletedAt)
	require.Equal(t, result, snapshot.Result)

	// Later transitions are rejected.
	r.Fail("t1", "too late")
	r.UpdateProgress("t1", 10, "should not land", 2)
	snapshot, _ = r.Get("t1")
	require.Equal(t, crawler.TaskStatusCompleted, snapshot.Status)
	require.Equal(t, 100, snapshot.Progress)
	require.Empty(t, snapshot.Error)
}

func TestRegistry_Fail(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	r.Create("t1", 5)
	r.Fail("t1", "fetch page 1: boom")

	snapshot, _ := r.Get("t1")
	require.Equal(t, crawler.TaskStatusFailed, snapshot.Status)
	require.Equal(t, "fetch page 1: boom", snapshot.Error)
	require.NotNil(t, snapshot.CompletedAt)
	require.Nil(t, snapshot.Result)
}

func TestRegistry_RequestStop(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	r.Create("t1", 5)

	require.False(t, r.StopRequested("t1"))
	require.True(t, r.RequestStop("t1"))
	require.True(t, r.StopRequested("t1"))

	snapshot, _ := r.Get("t1")
	require.Equal(t, crawler.TaskStatusStopped, snapshot.Status)
	require.NotNil(t, snapshot.CompletedAt)

	// Stopping an already terminal task acknowledges without overwriting.
	r.Create("t2", 5)
	r.Complete("t2", &crawler.ResultDocument{})
	require.True(t, r.RequestStop("t2"))
	snapshot, _ = r.Get("t2")
	require.Equal(t, crawler.TaskStatusCompleted, snapshot.Status)

	require.False(t, r.RequestStop("missing"))
	require.False(t, r.StopRequested("missing"))
}

func TestRegistry_AttachResult(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	r.Create("t1", 5)
	r.RequestStop("t1")

	result := &crawler.ResultDocument{TotalQuestions: 4}
	r.AttachResult("t1", result)

	snapshot, _ := r.Get("t1")
	require.Equal(t, crawler.TaskStatusStopped, snapshot.Status)
	require.Equal(t, result, snapshot.Result)
	require.Equal(t, "crawl stopped, partial result kept", snapshot.Message)

	// Only stopped tasks accept an attach.
	r.Create("t2", 5)
	r.AttachResult("t2", result)
	snapshot, _ = r.Get("t2")
	require.Nil(t, snapshot.Result)

	r.Complete("t2", &crawler.ResultDocument{TotalQuestions: 1})
	r.AttachResult("t2", result)
	snapshot, _ = r.Get("t2")
	require.Equal(t, 1, snapshot.Result.TotalQuestions)

	r.AttachResult("missing", result)
	r.AttachResult("t1", nil)
	snapshot, _ = r.Get("t1")
	require.Equal(t, result, snapshot.Result)
}

func TestRegistry_RunningCount(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	require.Zero(t, r.RunningCount())

	r.Create("t1", 5)
	r.Create("t2", 5)
	r.Create("t3", 5)
	require.Equal(t, 3, r.RunningCount())

	r.Complete("t1", &crawler.ResultDocument{})
	r.Fail("t2", "boom")
	require.Equal(t, 1, r.RunningCount())

	r.RequestStop("t3")
	require.Zero(t, r.RunningCount())
}

func TestRegistry_HandleDrivesTask(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	r.Create("t1", 4)
	h := r.Handle("t1")

	require.False(t, h.Stopped())
	h.ReportProgress(25, "crawling page 2...", 2)

	snapshot, _ := r.Get("t1")
	require.Equal(t, 25, snapshot.Progress)
	require.Equal(t, 2, snapshot.CurrentPage)

	r.RequestStop("t1")
	require.True(t, h.Stopped())
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	r.Create("t1", 5)
	r.Complete("t1", &crawler.ResultDocument{})

	first, _ := r.Get("t1")
	mutated := first.CompletedAt.Add(time.Hour)
	*first.CompletedAt = mutated

	second, _ := r.Get("t1")
	require.NotEqual(t, mutated, *second.CompletedAt)
}

func TestRegistry_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	r, _ := newTestRegistry()
	r.Create("t1", 50)
	h := r.Handle("t1")

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for p := 0; p <= 100; p++ {
				h.ReportProgress(p, "working", n+1)
				r.Get("t1")
				r.RunningCount()
			}
		}(i)
	}
	wg.Wait()

	snapshot, ok := r.Get("t1")
	require.True(t, ok)
	require.Equal(t, crawler.TaskStatusRunning, snapshot.Status)
	require.Equal(t, 100, snapshot.Progress)
}
