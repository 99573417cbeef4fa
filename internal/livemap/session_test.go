package livemap_test

import (
	"testing"
	"time"

	"carmeet/internal/livemap"
	"carmeet/internal/stream"
)

func newManager() (*livemap.Manager, stream.Broker) {
	_, friends, locs, profs, prefetch := newScenario()
	broker := stream.NewInMemoryBroker(16)
	m := livemap.NewManager(friends, locs, profs, prefetch, broker, livemap.Options{})
	return m, broker
}

func TestManagerReturnsSameSession(t *testing.T) {
	m, broker := newManager()
	defer broker.Close()
	a := m.Session(viewer)
	b := m.Session(viewer)
	if a != b {
		t.Fatal("second lookup created a new session")
	}
}

func TestManagerDropDiscardsState(t *testing.T) {
	m, broker := newManager()
	defer broker.Close()
	s := m.Session(viewer)
	if err := s.Refresh(false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	m.Drop(viewer)
	if _, ok := m.Peek(viewer); ok {
		t.Fatal("session still present after drop")
	}
	// A fresh sign-in starts from an empty cache.
	s2 := m.Session(viewer)
	if s2 == s {
		t.Fatal("dropped session was reused")
	}
	if ids := s2.Cache().RelevantIDs(); len(ids) != 0 {
		t.Fatalf("new session inherited state: %v", ids)
	}
}

func TestSessionMarkers(t *testing.T) {
	m, broker := newManager()
	defer broker.Close()
	s := m.Session(viewer)
	if err := s.Refresh(false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	markers := s.Markers(time.Now())
	// Viewer, friend A, and stranger C have fixes; friend B does not.
	if len(markers) != 3 {
		t.Fatalf("got %d markers, want 3", len(markers))
	}
	var sawSelf, sawStrangerProximity bool
	for _, mk := range markers {
		if mk.UserID == viewer {
			sawSelf = mk.IsSelf
			if mk.Proximity != "" {
				t.Fatal("viewer marker must not carry a proximity label")
			}
		}
		if mk.UserID == userC && mk.Proximity != "" {
			sawStrangerProximity = true
		}
		if !mk.Fresh {
			t.Fatalf("marker %d stale immediately after refresh", mk.UserID)
		}
		if mk.AgeLabel == "" {
			t.Fatalf("marker %d missing age label", mk.UserID)
		}
	}
	if !sawSelf {
		t.Fatal("self marker missing or not flagged")
	}
	if !sawStrangerProximity {
		t.Fatal("in-radius stranger missing proximity label")
	}
}
