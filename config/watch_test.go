package config

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWatchReloadsOnFileChange(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("mode: local\n"), 0o644))

	var mu sync.Mutex
	var got Config
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, Watch(ctx, path, func(cfg Config) {
		mu.Lock()
		got = cfg
		mu.Unlock()
	}))

	require.NoError(t, os.WriteFile(path, []byte("mode: s3\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return got.Mode == "s3"
	}, 2*time.Second, 20*time.Millisecond)
}
