package livemap

import (
	"fmt"
	"sync"
	"time"

	"carmeet/internal/domain"
	"carmeet/internal/models"
	"carmeet/internal/stream"
	"carmeet/pkg/geo"
	"carmeet/pkg/proximity"
)

// Options tune a live map session.
type Options struct {
	NearbyRadiusMeters float64
	MaxAge             time.Duration
	Spread             SpreadOptions
}

func (o Options) withDefaults() Options {
	if o.NearbyRadiusMeters <= 0 {
		o.NearbyRadiusMeters = domain.DefaultNearbyRadiusMeters
	}
	if o.MaxAge <= 0 {
		o.MaxAge = DefaultMaxAge
	}
	return o
}

// Marker is one render-ready map entry. Lat/Lng carry the anti-collision
// adjusted coordinate; the true stored fix stays inside the cache.
type Marker struct {
	UserID      uint     `json:"user_id"`
	Lat         float64  `json:"lat"`
	Lng         float64  `json:"lng"`
	Heading     *float64 `json:"heading,omitempty"`
	Speed       *float64 `json:"speed,omitempty"`
	UpdatedAt   string   `json:"updated_at"`
	Fresh       bool     `json:"fresh"`
	AgeLabel    string   `json:"age_label"`
	IsSelf      bool     `json:"is_self"`
	Username    *string  `json:"username,omitempty"`
	DisplayName *string  `json:"display_name,omitempty"`
	PhotoURL    *string  `json:"photo_url,omitempty"`
	Proximity   string   `json:"proximity,omitempty"`
}

// Session is one viewer's live map: a cache kept warm by a realtime sink for
// the duration of the sign-in. State is rebuilt from the backend on each
// session; nothing persists across restarts.
type Session struct {
	viewerID uint
	cache    *Cache
	sink     *Sink
	opts     Options
}

func (s *Session) Cache() *Cache { return s.cache }

// Refresh resolves the relevant-id set and bulk-loads it, then makes sure
// the realtime sink is running. Safe to call repeatedly.
func (s *Session) Refresh(force bool) error {
	err := s.cache.Refresh(force)
	if err != nil {
		return err
	}
	s.sink.Start()
	return nil
}

// Markers assembles the render-ready marker list: spread coordinates,
// freshness, profile fields, and a privacy-safe proximity label for users
// other than the viewer.
func (s *Session) Markers(now time.Time) []Marker {
	profiles, locations := s.cache.Snapshot()

	locs := make([]models.UserLocation, 0, len(locations))
	for _, l := range locations {
		locs = append(locs, l)
	}
	spread := Spread(locs, s.opts.Spread)

	self, hasSelf := locations[s.viewerID]
	markers := make([]Marker, 0, len(spread))
	for _, sm := range spread {
		m := Marker{
			UserID:    sm.Loc.UserID,
			Lat:       sm.AdjLat,
			Lng:       sm.AdjLng,
			Heading:   sm.Loc.Heading,
			Speed:     sm.Loc.Speed,
			UpdatedAt: sm.Loc.UpdatedAt.UTC().Format(time.RFC3339),
			Fresh:     IsFresh(sm.Loc.UpdatedAt, now, s.opts.MaxAge),
			AgeLabel:  AgeLabel(sm.Loc.UpdatedAt, now),
			IsSelf:    sm.Loc.UserID == s.viewerID,
		}
		if p, ok := profiles[sm.Loc.UserID]; ok {
			m.Username = p.Username
			m.DisplayName = p.DisplayName
			m.PhotoURL = p.PhotoURL
		}
		if !m.IsSelf && hasSelf {
			d := geo.MetersBetween(self.Lat, self.Lng, sm.Loc.Lat, sm.Loc.Lng)
			m.Proximity = proximity.Label(proximity.Progress(d, s.opts.NearbyRadiusMeters))
		}
		markers = append(markers, m)
	}
	return markers
}

// Manager owns one session per signed-in viewer. Sessions are created on
// first use and discarded on sign-out.
type Manager struct {
	friends  FriendSource
	locs     LocationSource
	profs    ProfileSource
	prefetch ImagePrefetcher
	broker   stream.Broker
	opts     Options

	mu       sync.Mutex
	sessions map[uint]*Session
}

func NewManager(friends FriendSource, locs LocationSource, profs ProfileSource, prefetch ImagePrefetcher, broker stream.Broker, opts Options) *Manager {
	return &Manager{
		friends:  friends,
		locs:     locs,
		profs:    profs,
		prefetch: prefetch,
		broker:   broker,
		opts:     opts.withDefaults(),
		sessions: make(map[uint]*Session),
	}
}

// Session returns the viewer's session, creating it on first use.
func (m *Manager) Session(viewerID uint) *Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[viewerID]; ok {
		return s
	}
	cache := NewCache(viewerID, m.opts.NearbyRadiusMeters, m.friends, m.locs, m.profs, m.prefetch)
	s := &Session{
		viewerID: viewerID,
		cache:    cache,
		sink:     NewSink(cache, m.broker, fmt.Sprintf("session:%d", viewerID)),
		opts:     m.opts,
	}
	m.sessions[viewerID] = s
	return s
}

// Peek returns the session without creating one.
func (m *Manager) Peek(viewerID uint) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[viewerID]
	return s, ok
}

// Drop tears down the viewer's session on sign-out: the sink unsubscribes
// and the cache is discarded, never persisted.
func (m *Manager) Drop(viewerID uint) {
	m.mu.Lock()
	s, ok := m.sessions[viewerID]
	delete(m.sessions, viewerID)
	m.mu.Unlock()
	if !ok {
		return
	}
	s.sink.Stop()
	s.cache.Reset()
}

// Close drops every session; used on shutdown.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*Session, 0, len(m.sessions))
	for id, s := range m.sessions {
		sessions = append(sessions, s)
		delete(m.sessions, id)
	}
	m.mu.Unlock()
	for _, s := range sessions {
		s.sink.Stop()
	}
}
