package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	mu    sync.Mutex
	paths []string
}

func (r *recorder) handle(_ context.Context, p string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, filepath.Base(p))
	return nil
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.paths...)
}

func start(t *testing.T, dir string, h Handler) (cancel func()) {
	t.Helper()
	w, err := New(Config{Dir: dir, Debounce: 50 * time.Millisecond})
	require.NoError(t, err)
	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, h) }()
	// Give the watcher time to register the folder.
	time.Sleep(100 * time.Millisecond)
	return func() {
		stop()
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(2 * time.Second):
			t.Fatal("watcher did not stop")
		}
	}
}

func TestWatcherDebouncesWrites(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	stop := start(t, dir, rec.handle)
	defer stop()

	p := filepath.Join(dir, "upload.csv")
	f, err := os.Create(p)
	require.NoError(t, err)
	for i := 0; i < 5; i++ {
		_, err := f.WriteString("a,b\n1,2\n")
		require.NoError(t, err)
		time.Sleep(10 * time.Millisecond)
	}
	require.NoError(t, f.Close())

	require.Eventually(t, func() bool { return len(rec.snapshot()) >= 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, []string{"upload.csv"}, rec.snapshot())
}

func TestWatcherIgnoresNonMatching(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	stop := start(t, dir, rec.handle)
	defer stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "~$lock.xlsx"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "data.tsv"), []byte("a\tb\n"), 0o644))

	require.Eventually(t, func() bool { return len(rec.snapshot()) == 1 }, 2*time.Second, 20*time.Millisecond)
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, []string{"data.tsv"}, rec.snapshot())
}

func TestNewValidates(t *testing.T) {
	_, err := New(Config{})
	require.Error(t, err)
	w, err := New(Config{Dir: t.TempDir()})
	require.NoError(t, err)
	assert.Equal(t, DefaultDebounce, w.cfg.Debounce)
}

func TestRunMissingDir(t *testing.T) {
	w, err := New(Config{Dir: filepath.Join(t.TempDir(), "missing")})
	require.NoError(t, err)
	require.Error(t, w.Run(context.Background(), func(context.Context, string) error { return nil }))
}
