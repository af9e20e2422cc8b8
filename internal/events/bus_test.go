package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBus_PublishReachesSubscriber(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("ABC234")
	defer unsubscribe()

	bus.Publish("ABC234")

	select {
	case update := <-ch:
		assert.Equal(t, "ABC234", update.Code)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for update")
	}
}

func TestBus_PublishIsScopedToRoomCode(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("ABC234")
	defer unsubscribe()

	bus.Publish("XYZ789")

	select {
	case <-ch:
		t.Fatal("received update for a different room")
	default:
	}
}

func TestBus_MultipleSubscribers(t *testing.T) {
	bus := NewBus()
	ch1, unsub1 := bus.Subscribe("ABC234")
	ch2, unsub2 := bus.Subscribe("ABC234")
	defer unsub1()
	defer unsub2()

	bus.Publish("ABC234")

	require.Len(t, ch1, 1)
	require.Len(t, ch2, 1)
}

func TestBus_UnsubscribeRemovesListener(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("ABC234")

	unsubscribe()
	assert.Equal(t, 0, bus.SubscriberCount("ABC234"))

	bus.Publish("ABC234")
	select {
	case <-ch:
		t.Fatal("received update after unsubscribe")
	default:
	}

	// Idempotent.
	unsubscribe()
}

func TestBus_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bus := NewBus()
	ch, unsubscribe := bus.Subscribe("ABC234")
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < subscriberBuffer*3; i++ {
			bus.Publish("ABC234")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
	assert.Len(t, ch, subscriberBuffer)
}
