package archive

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/qnalytics/qna-crawler/internal/crawler"
)

func sampleDoc(total int) *crawler.ResultDocument {
	return &crawler.ResultDocument{
		TotalQuestions: total,
		Questions:      make([]crawler.QuestionRecord, total),
		CompletedAt:    time.Date(2026, 9, 1, 10, 0, 0, 0, time.UTC),
	}
}

func TestStore_SaveLoadRoundtrip(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save("crawler_task_abc123def456", sampleDoc(3)))

	doc, err := store.Load("crawler_task_abc123def456")
	require.NoError(t, err)
	require.Equal(t, 3, doc.TotalQuestions)
	require.Len(t, doc.Questions, 3)
}

func TestStore_SaveOverwrites(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save("t1", sampleDoc(1)))
	require.NoError(t, store.Save("t1", sampleDoc(5)))

	doc, err := store.Load("t1")
	require.NoError(t, err)
	require.Equal(t, 5, doc.TotalQuestions)
}

func TestStore_LoadMissing(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	_, err = store.Load("nope")
	require.Error(t, err)
}

func TestStore_LatestPicksNewestWrite(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, store.Save("older", sampleDoc(1)))
	require.NoError(t, store.Save("newer", sampleDoc(9)))

	// Pin mtimes so ordering does not depend on filesystem resolution.
	base := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(filepath.Join(dir, "crawler_result_older.json"), base, base))
	require.NoError(t, os.Chtimes(filepath.Join(dir, "crawler_result_newer.json"), base.Add(time.Minute), base.Add(time.Minute)))

	doc, ok, err := store.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 9, doc.TotalQuestions)
}

func TestStore_LatestEmptyDir(t *testing.T) {
	t.Parallel()

	store, err := NewStore(t.TempDir(), zap.NewNop())
	require.NoError(t, err)

	doc, ok, err := store.Latest()
	require.NoError(t, err)
	require.False(t, ok)
	require.Nil(t, doc)
}

func TestStore_LatestIgnoresForeignFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	store, err := NewStore(dir, zap.NewNop())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "crawler_result_bad.txt"), []byte("hi"), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "crawler_result_dir.json"), 0o750))

	_, ok, err := store.Latest()
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Save("real", sampleDoc(2)))
	doc, ok, err := store.Latest()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 2, doc.TotalQuestions)
}

func TestNewStore_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "output")
	_, err := NewStore(dir, zap.NewNop())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	require.True(t, info.IsDir())
}
