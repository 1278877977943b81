package uuid

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerator_NewTaskID(t *testing.T) {
	t.Parallel()

	g := New()
	id, err := g.NewTaskID()
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(id, "crawler_task_"))

	suffix := strings.TrimPrefix(id, "crawler_task_")
	require.Len(t, suffix, 12)
	for _, r := range suffix {
		require.Contains(t, "0123456789abcdef", string(r))
	}
}

func TestGenerator_NewTaskID_Unique(t *testing.T) {
	t.Parallel()

	g := New()
	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		id, err := g.NewTaskID()
		require.NoError(t, err)
		_, dup := seen[id]
		require.False(t, dup)
		seen[id] = struct{}{}
	}
}
