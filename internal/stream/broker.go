package stream

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"carmeet/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Change-event operations for the locations table.
const (
	OpInsert = "INSERT"
	OpUpdate = "UPDATE"
	OpDelete = "DELETE"
)

// Event is one change to the locations table. Row is the new row; it is the
// zero value for DELETE.
type Event struct {
	Op  string              `json:"op"`
	Row models.UserLocation `json:"row"`
}

// Subscriber receives location change events on a buffered channel. When the
// buffer is full the newest event is dropped rather than blocking the
// broker.
type Subscriber struct {
	ID     string
	Events chan Event
}

// Broker fans location change events out to per-session subscribers.
type Broker interface {
	Publish(event Event)
	Subscribe(id string) *Subscriber
	Unsubscribe(id string)
	Close() error
}

const channelName = "carmeet:locations"

type redisBroker struct {
	client *redis.Client
	pubsub *redis.PubSub
	buffer int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
	closed      bool
}

// NewBroker connects to redis and starts the fan-out loop. If redis is not
// reachable it falls back to an in-memory broker so a single-node deployment
// still works.
func NewBroker(cfg *redis.Options, buffer int) Broker {
	if buffer <= 0 {
		buffer = 256
	}
	client := redis.NewClient(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logrus.Errorf("Failed to connect to redis: %v", err)
		client.Close()
		return newInMemoryBroker(buffer)
	}
	b := &redisBroker{
		client:      client,
		pubsub:      client.Subscribe(context.Background(), channelName),
		buffer:      buffer,
		subscribers: make(map[string]*Subscriber),
	}
	go b.receive()
	return b
}

func (b *redisBroker) receive() {
	for msg := range b.pubsub.Channel() {
		var event Event
		if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
			logrus.Errorf("Error unmarshaling location event: %v", err)
			continue
		}
		b.fanOut(event)
	}
}

func (b *redisBroker) fanOut(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			logrus.Warnf("subscriber %s buffer full, dropping event for user %d", id, event.Row.UserID)
		}
	}
}

func (b *redisBroker) Publish(event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		logrus.Errorf("Error marshaling location event: %v", err)
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := b.client.Publish(ctx, channelName, payload).Err(); err != nil {
		logrus.Errorf("Error publishing location event: %v", err)
	}
}

// Subscribe returns the existing subscriber when the id is already
// registered, so a second subscribe call for the same session is a no-op.
func (b *redisBroker) Subscribe(id string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, exists := b.subscribers[id]; exists {
		return sub
	}
	sub := &Subscriber{ID: id, Events: make(chan Event, b.buffer)}
	b.subscribers[id] = sub
	return sub
}

func (b *redisBroker) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, exists := b.subscribers[id]; exists {
		delete(b.subscribers, id)
		close(sub.Events)
	}
}

func (b *redisBroker) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.Events)
	}
	b.mu.Unlock()
	b.pubsub.Close()
	return b.client.Close()
}

// In-memory broker used when redis is not available. Publish fans out
// directly; events never cross process boundaries.
type inMemoryBroker struct {
	buffer int

	mu          sync.RWMutex
	subscribers map[string]*Subscriber
}

func newInMemoryBroker(buffer int) Broker {
	logrus.Warn("Using in-memory location broker (redis not available)")
	return &inMemoryBroker{
		buffer:      buffer,
		subscribers: make(map[string]*Subscriber),
	}
}

// NewInMemoryBroker returns a broker that never leaves the process. Exported
// for tests and single-node runs without redis.
func NewInMemoryBroker(buffer int) Broker {
	if buffer <= 0 {
		buffer = 256
	}
	return &inMemoryBroker{
		buffer:      buffer,
		subscribers: make(map[string]*Subscriber),
	}
}

func (b *inMemoryBroker) Publish(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for id, sub := range b.subscribers {
		select {
		case sub.Events <- event:
		default:
			logrus.Warnf("subscriber %s buffer full, dropping event for user %d", id, event.Row.UserID)
		}
	}
}

func (b *inMemoryBroker) Subscribe(id string) *Subscriber {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, exists := b.subscribers[id]; exists {
		return sub
	}
	sub := &Subscriber{ID: id, Events: make(chan Event, b.buffer)}
	b.subscribers[id] = sub
	return sub
}

func (b *inMemoryBroker) Unsubscribe(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if sub, exists := b.subscribers[id]; exists {
		delete(b.subscribers, id)
		close(sub.Events)
	}
}

func (b *inMemoryBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for id, sub := range b.subscribers {
		delete(b.subscribers, id)
		close(sub.Events)
	}
	return nil
}
