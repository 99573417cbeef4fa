package stream_test

import (
	"testing"

	"carmeet/internal/models"
	"carmeet/internal/stream"
)

func TestSubscribeSameIDReturnsExisting(t *testing.T) {
	b := stream.NewInMemoryBroker(4)
	defer b.Close()

	first := b.Subscribe("session:1")
	second := b.Subscribe("session:1")
	if first != second {
		t.Fatal("second subscribe created a new subscriber")
	}
}

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	b := stream.NewInMemoryBroker(4)
	defer b.Close()

	a := b.Subscribe("session:1")
	c := b.Subscribe("session:2")

	b.Publish(stream.Event{Op: stream.OpUpdate, Row: models.UserLocation{UserID: 7, Lat: 1, Lng: 2}})

	for _, sub := range []*stream.Subscriber{a, c} {
		select {
		case ev := <-sub.Events:
			if ev.Row.UserID != 7 || ev.Op != stream.OpUpdate {
				t.Fatalf("subscriber %s got %+v", sub.ID, ev)
			}
		default:
			t.Fatalf("subscriber %s received nothing", sub.ID)
		}
	}
}

func TestPublishDropsWhenBufferFull(t *testing.T) {
	b := stream.NewInMemoryBroker(1)
	defer b.Close()

	sub := b.Subscribe("session:1")
	b.Publish(stream.Event{Op: stream.OpUpdate, Row: models.UserLocation{UserID: 1}})
	b.Publish(stream.Event{Op: stream.OpUpdate, Row: models.UserLocation{UserID: 2}})

	if got := len(sub.Events); got != 1 {
		t.Fatalf("buffered %d events, want 1", got)
	}
	ev := <-sub.Events
	if ev.Row.UserID != 1 {
		t.Fatalf("kept event for user %d, want the first published", ev.Row.UserID)
	}
}

func TestUnsubscribeClosesChannel(t *testing.T) {
	b := stream.NewInMemoryBroker(4)
	defer b.Close()

	sub := b.Subscribe("session:1")
	b.Unsubscribe("session:1")

	if _, open := <-sub.Events; open {
		t.Fatal("events channel still open after unsubscribe")
	}
	// Publishing after unsubscribe must not panic or resurrect the id.
	b.Publish(stream.Event{Op: stream.OpInsert})
	if again := b.Subscribe("session:1"); again == sub {
		t.Fatal("unsubscribed subscriber was reused")
	}
}
