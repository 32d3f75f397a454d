package watch

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/leapstack-labs/leapcols/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatch(ctx context.Context, t *testing.T, files []string, onChange func([]string) error) <-chan error {
	t.Helper()
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, files, Options{Debounce: 50 * time.Millisecond, Logger: testutil.NewTestLogger(t)}, onChange)
	}()
	return done
}

func TestWatch_ReportsWatchedFileOnly(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "q.sql")
	other := filepath.Join(dir, "other.sql")
	require.NoError(t, os.WriteFile(target, []byte("SELECT a FROM t"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	calls := make(chan []string, 16)
	done := startWatch(ctx, t, []string{target}, func(changed []string) error {
		calls <- changed
		return nil
	})

	var got []string
	require.Eventually(t, func() bool {
		_ = os.WriteFile(other, []byte("SELECT x FROM y"), 0600)
		_ = os.WriteFile(target, []byte("SELECT b FROM t"), 0600)
		select {
		case got = <-calls:
			return true
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	assert.Equal(t, []string{target}, got)

	cancel()
	require.NoError(t, <-done)
}

func TestWatch_CallbackErrorStops(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(target, []byte("SELECT a FROM t"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	stop := errors.New("stop")
	done := startWatch(ctx, t, []string{target}, func([]string) error { return stop })

	var err error
	require.Eventually(t, func() bool {
		_ = os.WriteFile(target, []byte("SELECT b FROM t"), 0600)
		select {
		case err = <-done:
			return true
		default:
			return false
		}
	}, 5*time.Second, 100*time.Millisecond)

	assert.ErrorIs(t, err, stop)
}

func TestWatch_MissingDirectory(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope", "q.sql")

	err := Watch(context.Background(), []string{missing}, Options{}, func([]string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to watch")
}

func TestWatch_StopsOnCancel(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "q.sql")
	require.NoError(t, os.WriteFile(target, []byte("SELECT a FROM t"), 0600))

	ctx, cancel := context.WithCancel(context.Background())
	done := startWatch(ctx, t, []string{target}, func([]string) error { return nil })
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Watch did not return after cancel")
	}
}
