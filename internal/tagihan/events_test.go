package tagihan

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func TestPublisherFanout(t *testing.T) {
	pub := NewPublisher(4)
	chA, cancelA := pub.Subscribe()
	chB, cancelB := pub.Subscribe()
	defer cancelA()
	defer cancelB()

	ev := DomainEvent{DocumentID: uuid.New(), NewStatus: StatusForwarded, ActorID: 301}
	pub.Publish(ev)

	for _, ch := range []<-chan DomainEvent{chA, chB} {
		select {
		case got := <-ch:
			require.Equal(t, ev.DocumentID, got.DocumentID)
			require.Equal(t, StatusForwarded, got.NewStatus)
			require.NotEqual(t, uuid.Nil, got.ID)
		case <-time.After(time.Second):
			t.Fatal("event not delivered")
		}
	}
}

func TestPublisherNeverBlocks(t *testing.T) {
	pub := NewPublisher(1)
	_, cancel := pub.Subscribe()
	defer cancel()

	// The buffer holds one event; the rest are dropped without blocking.
	done := make(chan struct{})
	go func() {
		for i := 0; i < 10; i++ {
			pub.Publish(DomainEvent{DocumentID: uuid.New()})
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a slow subscriber")
	}
}

func TestPublisherCancelledSubscriberIgnored(t *testing.T) {
	pub := NewPublisher(1)
	ch, cancel := pub.Subscribe()
	cancel()

	pub.Publish(DomainEvent{DocumentID: uuid.New()})
	_, open := <-ch
	require.False(t, open)
}
