package event

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBusFanOut(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	first, unsubscribeFirst := bus.Subscribe()
	second, unsubscribeSecond := bus.Subscribe()
	defer unsubscribeSecond()

	bus.Publish(New(TypeSessionLoaded, map[string]string{"subject": "u-1"}))

	got := <-first
	require.Equal(t, TypeSessionLoaded, got.Type)
	require.NotEmpty(t, got.ID)
	require.NotEmpty(t, got.Timestamp)
	require.Equal(t, got.ID, (<-second).ID)

	unsubscribeFirst()
	unsubscribeFirst()
	require.Equal(t, 1, bus.Subscribers())

	_, open := <-first
	require.False(t, open)
}

func TestBusDropsWhenSubscriberIsFull(t *testing.T) {
	t.Parallel()

	bus := NewBus()
	ch, unsubscribe := bus.Subscribe()
	defer unsubscribe()

	for i := 0; i < subscriberBuffer+10; i++ {
		bus.Publish(New(TypeNotificationRaised, i))
	}

	require.Len(t, ch, subscriberBuffer)
}
