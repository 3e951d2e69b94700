package configwatcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"watchlearn/internal/config"

	"github.com/stretchr/testify/require"
)

const baseConfig = `
database:
  driver: sqlite
storage:
  type: minio
outbox:
  journal: memory
  max_attempts: %d
`

func writeConfig(t *testing.T, path string, attempts int) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(fmt.Sprintf(baseConfig, attempts)), 0o644))
}

func TestWatcher_ReloadsOnWrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	writeConfig(t, path, 3)

	w := New(path)
	w.Debounce = 20 * time.Millisecond

	var got atomic.Int64
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(cfg *config.Config) {
			got.Store(int64(cfg.Outbox.MaxAttempts))
		})
	}()

	// give the watcher time to register before changing the file
	require.Eventually(t, func() bool {
		writeConfig(t, path, 7)
		return got.Load() == 7
	}, 5*time.Second, 100*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watcher did not stop")
	}
}
