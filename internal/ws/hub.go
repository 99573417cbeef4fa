package ws

import (
	"sync"
)

// Conn is one open map socket for a signed-in viewer. A viewer can hold
// several at once (phone plus tablet).
type Conn struct {
	viewerID uint
	send     chan []byte
	hub      *Hub
	once     sync.Once
}

// Close detaches the connection from the hub and closes its send channel.
// Safe to call more than once.
func (c *Conn) Close() {
	c.once.Do(func() {
		c.hub.detach(c)
		close(c.send)
	})
}

// Hub tracks open map connections keyed by viewer. Frames pushed to a
// viewer fan out to every connection they hold; a slow connection drops
// the frame rather than blocking the push.
type Hub struct {
	mu    sync.RWMutex
	conns map[uint][]*Conn
}

func NewHub() *Hub {
	return &Hub{conns: make(map[uint][]*Conn)}
}

// Attach registers a new connection for the viewer and returns it.
func (h *Hub) Attach(viewerID uint) *Conn {
	c := &Conn{
		viewerID: viewerID,
		send:     make(chan []byte, 64),
		hub:      h,
	}
	h.mu.Lock()
	h.conns[viewerID] = append(h.conns[viewerID], c)
	h.mu.Unlock()
	return c
}

func (h *Hub) detach(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	list := h.conns[c.viewerID]
	for i, other := range list {
		if other == c {
			list = append(list[:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(h.conns, c.viewerID)
	} else {
		h.conns[c.viewerID] = list
	}
}

// Push delivers a pre-marshaled frame to every connection the viewer holds.
func (h *Hub) Push(viewerID uint, frame []byte) {
	h.mu.RLock()
	list := append([]*Conn(nil), h.conns[viewerID]...)
	h.mu.RUnlock()
	for _, c := range list {
		select {
		case c.send <- frame:
		default:
		}
	}
}

// Viewers returns the number of viewers with at least one open connection.
func (h *Hub) Viewers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}
