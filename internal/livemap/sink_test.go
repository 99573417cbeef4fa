package livemap_test

import (
	"testing"
	"time"

	"carmeet/internal/livemap"
	"carmeet/internal/models"
	"carmeet/internal/stream"
)

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestSinkAppliesLocationAndFetchesProfile(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	broker := stream.NewInMemoryBroker(16)
	defer broker.Close()

	sink := livemap.NewSink(cache, broker, "test")
	sink.Start()
	defer sink.Stop()

	// userC's profile exists in the backend but is not cached yet; the
	// event should pull it in on demand.
	broker.Publish(stream.Event{Op: stream.OpInsert, Row: models.UserLocation{
		UserID: userC, Lat: 50, Lng: 60, UpdatedAt: time.Now(),
	}})

	waitFor(t, "location applied", func() bool {
		_, l := cache.Get(userC)
		return l != nil && l.Lat == 50
	})
	waitFor(t, "profile fetched", func() bool {
		return cache.HasProfile(userC)
	})
}

func TestSinkStartIdempotent(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	broker := stream.NewInMemoryBroker(16)
	defer broker.Close()

	sink := livemap.NewSink(cache, broker, "test")
	sink.Start()
	sink.Start()
	defer sink.Stop()

	broker.Publish(stream.Event{Op: stream.OpUpdate, Row: models.UserLocation{
		UserID: userA, Lat: 7, Lng: 8, UpdatedAt: time.Now(),
	}})
	waitFor(t, "single apply", func() bool {
		_, l := cache.Get(userA)
		return l != nil && l.Lat == 7
	})
}

func TestSinkPerKeyArrivalOrder(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	broker := stream.NewInMemoryBroker(16)
	defer broker.Close()

	sink := livemap.NewSink(cache, broker, "test")
	sink.Start()
	defer sink.Stop()

	newer := models.UserLocation{UserID: userA, Lat: 1, Lng: 1, UpdatedAt: time.Now()}
	older := models.UserLocation{UserID: userA, Lat: 2, Lng: 2, UpdatedAt: time.Now().Add(-time.Hour)}
	broker.Publish(stream.Event{Op: stream.OpUpdate, Row: newer})
	broker.Publish(stream.Event{Op: stream.OpUpdate, Row: older})

	// Arrival order wins: the older-stamped but later-arriving fix sticks.
	waitFor(t, "both events applied", func() bool {
		_, l := cache.Get(userA)
		return l != nil && l.Lat == 2
	})
}

func TestSinkIgnoresDeletes(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	broker := stream.NewInMemoryBroker(16)
	defer broker.Close()

	sink := livemap.NewSink(cache, broker, "test")
	sink.Start()

	cache.ApplyLocationUpdate(models.UserLocation{UserID: userA, Lat: 5, Lng: 5, UpdatedAt: time.Now()})
	broker.Publish(stream.Event{Op: stream.OpDelete})
	broker.Publish(stream.Event{Op: stream.OpUpdate, Row: models.UserLocation{
		UserID: userB, Lat: 9, Lng: 9, UpdatedAt: time.Now(),
	}})
	waitFor(t, "subsequent event applied", func() bool {
		_, l := cache.Get(userB)
		return l != nil
	})

	// The delete neither removed the entry nor broke the consumer.
	if _, l := cache.Get(userA); l == nil {
		t.Fatal("delete event purged a cached location")
	}
	sink.Stop()
}

func TestSinkStopWithoutStart(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	broker := stream.NewInMemoryBroker(16)
	defer broker.Close()
	sink := livemap.NewSink(cache, broker, "test")
	sink.Stop() // must not hang
}
