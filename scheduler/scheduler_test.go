package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/shah0006/syncd/config"
	"github.com/stretchr/testify/require"
)

func TestCheckOnceSkipsWhenDisabled(t *testing.T) {
	var triggered atomic.Bool
	s := New(func() config.Schedule { return config.Schedule{Enabled: false} },
		func(ctx context.Context) (float64, error) { triggered.Store(true); return 0, nil }, time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	s.Run(ctx)
	require.False(t, triggered.Load())
}

func TestCheckOnceTriggersWhenIntervalElapsed(t *testing.T) {
	var calls atomic.Int32
	s := New(
		func() config.Schedule {
			return config.Schedule{Enabled: true, IntervalHours: 0, LastRun: 0}
		},
		func(ctx context.Context) (float64, error) { calls.Add(1); return nowSeconds(), nil },
		5*time.Millisecond,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	s.Run(ctx)
	require.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestCheckOnceSkipsWhileBusy(t *testing.T) {
	release := make(chan struct{})
	var calls atomic.Int32
	s := New(
		func() config.Schedule { return config.Schedule{Enabled: true, IntervalHours: 0, LastRun: 0} },
		func(ctx context.Context) (float64, error) {
			calls.Add(1)
			<-release
			return nowSeconds(), nil
		},
		5*time.Millisecond,
	)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	go s.Run(ctx)
	time.Sleep(25 * time.Millisecond)
	close(release)
	require.Equal(t, int32(1), calls.Load())
}
