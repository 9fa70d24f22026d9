package eventbus

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPublishDeliversToSubscriber(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	b.Publish(RunEvent{Type: EventRunCompleted, RunID: 1})

	select {
	case e := <-ch:
		require.Equal(t, EventRunCompleted, e.Type)
	default:
		t.Fatal("expected buffered event")
	}
}

func TestPublishDropsForSlowClientRatherThanBlocking(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	for i := 0; i < 64; i++ {
		b.Publish(RunEvent{Type: EventScanProgress, Current: i})
	}
	require.Len(t, ch, cap(ch))
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := New()
	ch := b.Subscribe()
	b.Unsubscribe(ch)
	_, ok := <-ch
	require.False(t, ok)
}
