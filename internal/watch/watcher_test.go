package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// waitChange returns the next batch delivered on ch, failing after timeout.
func waitChange(t *testing.T, ch <-chan []string, timeout time.Duration) []string {
	t.Helper()
	select {
	case changed := <-ch:
		return changed
	case <-time.After(timeout):
		t.Fatalf("no change delivered within %v", timeout)
		return nil
	}
}

func newTestWatcher(t *testing.T, root string, skip func(rel, name string) bool) (*Watcher, <-chan []string) {
	t.Helper()
	ch := make(chan []string, 8)
	w, err := New(Options{Root: root, Debounce: 50 * time.Millisecond, Skip: skip}, func(_ context.Context, changed []string) {
		ch <- changed
	})
	require.NoError(t, err)
	return w, ch
}

func TestWatcher_DebouncedChange(t *testing.T) {
	root := t.TempDir()
	w, ch := newTestWatcher(t, root, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(root, "guide.md"), []byte("# one"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "guide.md"), []byte("# two"), 0644))

	changed := waitChange(t, ch, 5*time.Second)
	assert.Contains(t, changed, "guide.md")

	stats := w.Stats()
	assert.GreaterOrEqual(t, stats.Events, 1)
	assert.Equal(t, 1, stats.Runs, "rapid writes collapse into one run")
	assert.Equal(t, "guide.md", stats.LastEventPath)
}

func TestWatcher_NewDirectoriesAreWatched(t *testing.T) {
	root := t.TempDir()
	w, ch := newTestWatcher(t, root, nil)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	sub := filepath.Join(root, "docs")
	require.NoError(t, os.Mkdir(sub, 0755))
	waitChange(t, ch, 5*time.Second)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "mvp.md"), []byte("# MVP"), 0644))
	changed := waitChange(t, ch, 5*time.Second)
	assert.Contains(t, changed, "docs/mvp.md")
}

func TestWatcher_SkipsIgnoredDirectories(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0755))

	skip := func(rel, name string) bool { return name == ".git" }
	w, ch := newTestWatcher(t, root, skip)
	require.NoError(t, w.Start(context.Background()))
	defer w.Stop()

	assert.Equal(t, 1, w.Stats().WatchedDirs, "only the root is watched")

	require.NoError(t, os.WriteFile(filepath.Join(root, ".git", "HEAD"), []byte("ref"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "README.md"), []byte("# r"), 0644))

	changed := waitChange(t, ch, 5*time.Second)
	assert.Equal(t, []string{"README.md"}, changed)
}

func TestWatcher_ContextCancelStopsLoop(t *testing.T) {
	root := t.TempDir()
	w, _ := newTestWatcher(t, root, nil)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, w.Start(ctx))
	cancel()

	select {
	case <-w.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("event loop did not exit on cancel")
	}
	w.Stop()
}

func TestWatcher_StartMissingRoot(t *testing.T) {
	w, _ := newTestWatcher(t, filepath.Join(t.TempDir(), "absent"), nil)
	assert.Error(t, w.Start(context.Background()))
	w.Stop()
}
