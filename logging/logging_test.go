package logging

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRecentErrorsCapturesErrorLevelOnly(t *testing.T) {
	Init("", 2)
	log := Sub("test")
	log.Info("not captured")
	log.Error("first failure", "err", "boom")
	log.Error("second failure", "err", "bang")

	entries := RecentErrors()
	require.Len(t, entries, 2)
	require.Equal(t, "second failure", entries[0].Message)
	require.Equal(t, "bang", entries[0].Error)
}

func TestRecentErrorsRingWrapsAtSize(t *testing.T) {
	Init("", 2)
	log := Sub("test")
	log.Error("e1")
	log.Error("e2")
	log.Error("e3")

	entries := RecentErrors()
	require.Len(t, entries, 2)
	require.Equal(t, "e3", entries[0].Message)
	require.Equal(t, "e2", entries[1].Message)
}

func TestLevelRangeHandlerOnlyPassesWithinRange(t *testing.T) {
	h := &levelRangeHandler{min: slog.LevelInfo, max: slog.LevelInfo, inner: slog.NewTextHandler(io.Discard, nil)}
	require.True(t, h.Enabled(context.Background(), slog.LevelInfo))
	require.False(t, h.Enabled(context.Background(), slog.LevelDebug))
	require.False(t, h.Enabled(context.Background(), slog.LevelWarn))
}
