package wizconfig

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestWatcherFiresOnConfigFileWrite(t *testing.T) {
	dir := t.TempDir()
	var reloads int32

	w, err := NewWatcher(dir, "wizard.json", ".env", func() {
		atomic.AddInt32(&reloads, 1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "wizard.json"), []byte(`{}`), 0644))

	require.Eventually(t, func() bool {
		return atomic.LoadInt32(&reloads) >= 1
	}, 2*time.Second, 20*time.Millisecond)
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	dir := t.TempDir()
	var reloads int32

	w, err := NewWatcher(dir, "wizard.json", ".env", func() {
		atomic.AddInt32(&reloads, 1)
	})
	require.NoError(t, err)
	require.NoError(t, w.Start())
	defer w.Stop()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "unrelated.txt"), []byte("x"), 0644))
	time.Sleep(200 * time.Millisecond)
	require.Equal(t, int32(0), atomic.LoadInt32(&reloads))
}
