package pubsub

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBrokerFanOut(t *testing.T) {
	b := NewBroker[int]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first := b.Subscribe(ctx)
	second := b.Subscribe(ctx)
	require.Equal(t, 2, b.SubscriberCount())

	b.Publish(42)
	require.Equal(t, 42, recv(t, first))
	require.Equal(t, 42, recv(t, second))
}

func TestBrokerDropsOnFullBuffer(t *testing.T) {
	b := NewBrokerWithBuffer[int](1)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sub := b.Subscribe(ctx)
	b.Publish(1)
	b.Publish(2) // buffer full, dropped

	require.Equal(t, 1, recv(t, sub))
	select {
	case v := <-sub:
		t.Fatalf("unexpected value %d after drop", v)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBrokerUnsubscribeOnContextCancel(t *testing.T) {
	b := NewBroker[string]()
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx)
	cancel()

	require.Eventually(t, func() bool {
		return b.SubscriberCount() == 0
	}, time.Second, 10*time.Millisecond)

	_, open := <-sub
	require.False(t, open)
}

func TestBrokerClose(t *testing.T) {
	b := NewBroker[string]()
	ctx := context.Background()
	sub := b.Subscribe(ctx)

	b.Close()
	_, open := <-sub
	require.False(t, open)

	// Publishing and subscribing after close are no-ops.
	b.Publish("late")
	late := b.Subscribe(ctx)
	_, open = <-late
	require.False(t, open)
}

func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v := <-ch:
		return v
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for value")
		panic("unreachable")
	}
}
