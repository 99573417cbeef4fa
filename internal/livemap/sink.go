package livemap

import (
	"sync"

	"carmeet/internal/stream"

	"github.com/sirupsen/logrus"
)

// Sink folds the location change stream into a session's cache. One sink per
// session; Start is idempotent, so re-running a refresh never creates a
// duplicate subscription.
//
// Location updates apply synchronously on the consuming goroutine, so two
// events for the same user land in arrival order. The on-demand profile
// fetch runs on its own goroutine: a slow profile lookup must not stall
// events for other users.
type Sink struct {
	cache  *Cache
	broker stream.Broker
	subID  string

	once    sync.Once
	started bool
	done    chan struct{}
}

func NewSink(cache *Cache, broker stream.Broker, subID string) *Sink {
	return &Sink{
		cache:  cache,
		broker: broker,
		subID:  subID,
		done:   make(chan struct{}),
	}
}

// Start subscribes to the broker and begins consuming. Subsequent calls are
// no-ops.
func (s *Sink) Start() {
	s.once.Do(func() {
		s.started = true
		sub := s.broker.Subscribe(s.subID)
		go s.consume(sub)
	})
}

func (s *Sink) consume(sub *stream.Subscriber) {
	defer close(s.done)
	for event := range sub.Events {
		s.handle(event)
	}
}

func (s *Sink) handle(event stream.Event) {
	if event.Op == stream.OpDelete {
		// Stale entries age out via freshness; deletes are not replayed
		// into the cache.
		return
	}
	if event.Row.UserID == 0 {
		logrus.Debugf("dropping location event with no row (op %s)", event.Op)
		return
	}
	s.cache.ApplyLocationUpdate(event.Row)
	if !s.cache.HasProfile(event.Row.UserID) {
		go s.cache.EnsureProfile(event.Row.UserID)
	}
}

// Stop tears the subscription down and waits for the consumer to drain.
// Safe to call on a sink that never started.
func (s *Sink) Stop() {
	s.once.Do(func() {})
	if !s.started {
		return
	}
	s.broker.Unsubscribe(s.subID)
	<-s.done
}
