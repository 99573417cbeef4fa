package livemap

import (
	"errors"
	"sort"
	"sync"

	"carmeet/internal/models"
	"carmeet/pkg/geo"

	"github.com/sirupsen/logrus"
)

// FriendSource resolves the viewer's accepted friends.
type FriendSource interface {
	AcceptedFriendIDs(viewerID uint) ([]uint, error)
}

// LocationSource reads location rows from the backing store.
type LocationSource interface {
	GetByUserID(userID uint) (*models.UserLocation, error)
	GetByUserIDs(ids []uint) ([]models.UserLocation, error)
	WithinBox(box geo.BoundingBox) ([]models.UserLocation, error)
}

// ProfileSource reads profile rows from the backing store.
type ProfileSource interface {
	GetByID(id uint) (*models.Profile, error)
	GetByIDs(ids []uint) ([]models.Profile, error)
}

// ImagePrefetcher warms photo URLs in the background. Failures are its own
// problem; the cache never hears about them.
type ImagePrefetcher interface {
	Prefetch(url string)
}

// ErrStaleViewer is returned when a refresh completes after the session it
// belonged to was reset; its results were discarded.
var ErrStaleViewer = errors.New("viewer changed during refresh")

// Cache is the merged profile+location view for one viewer: self, accepted
// friends, and users within the nearby radius. The relevant-id set only
// grows within a session; entries age out via freshness, they are never
// purged by a refresh.
//
// All mutation goes through this type under one mutex. Location updates
// arrive from three sources (bulk refresh, the realtime sink, the viewer's
// own fix) and the most recent write wins by arrival order; timestamps are
// not compared.
type Cache struct {
	viewerID uint
	radius   float64

	friends  FriendSource
	locs     LocationSource
	profs    ProfileSource
	prefetch ImagePrefetcher

	mu         sync.RWMutex
	generation uint64
	ids        map[uint]struct{}
	loaded     map[uint]struct{}
	profiles   map[uint]models.Profile
	locations  map[uint]models.UserLocation
	lastErr    string
}

func NewCache(viewerID uint, radiusMeters float64, friends FriendSource, locs LocationSource, profs ProfileSource, prefetch ImagePrefetcher) *Cache {
	return &Cache{
		viewerID:  viewerID,
		radius:    radiusMeters,
		friends:   friends,
		locs:      locs,
		profs:     profs,
		prefetch:  prefetch,
		ids:       make(map[uint]struct{}),
		loaded:    make(map[uint]struct{}),
		profiles:  make(map[uint]models.Profile),
		locations: make(map[uint]models.UserLocation),
	}
}

func (c *Cache) ViewerID() uint { return c.viewerID }

// Refresh rebuilds the relevant-id set and bulk-loads any members not yet
// cached. Friends always load; nearby users join only when the viewer has a
// stored fix to center the radius on. Any backend failure aborts the whole
// cycle and keeps prior cache state.
func (c *Cache) Refresh(force bool) error {
	c.mu.RLock()
	gen := c.generation
	c.mu.RUnlock()

	friendIDs, err := c.friends.AcceptedFriendIDs(c.viewerID)
	if err != nil {
		c.setErr("friend lookup failed: " + err.Error())
		return err
	}
	base := append([]uint{c.viewerID}, friendIDs...)
	if err := c.bulkLoad(gen, base, force); err != nil {
		return err
	}

	self, err := c.locs.GetByUserID(c.viewerID)
	if err != nil || self == nil {
		// No fix for the viewer: friends-only map this cycle.
		c.clearErr(gen)
		return nil
	}
	nearbyIDs, err := c.nearbyUserIDs(self.Lat, self.Lng)
	if err != nil {
		c.setErr("nearby lookup failed: " + err.Error())
		return err
	}
	if err := c.bulkLoad(gen, nearbyIDs, force); err != nil {
		return err
	}
	c.clearErr(gen)
	return nil
}

// nearbyUserIDs runs the two-phase filter: bounding-box range query, then
// exact great-circle refinement. The box over-covers near its corners; the
// Haversine pass corrects that.
func (c *Cache) nearbyUserIDs(lat, lng float64) ([]uint, error) {
	rows, err := c.locs.WithinBox(geo.BoxAround(lat, lng, c.radius))
	if err != nil {
		return nil, err
	}
	ids := make([]uint, 0, len(rows))
	for _, row := range rows {
		if geo.MetersBetween(lat, lng, row.Lat, row.Lng) <= c.radius {
			ids = append(ids, row.UserID)
		}
	}
	return ids, nil
}

// bulkLoad merges profile and location rows for every id not yet loaded (all
// ids when force). A fetch failure aborts without applying anything from the
// batch. Results arriving after the session generation moved on are
// discarded.
func (c *Cache) bulkLoad(gen uint64, ids []uint, force bool) error {
	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return ErrStaleViewer
	}
	var toLoad []uint
	seen := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		c.ids[id] = struct{}{}
		if _, done := c.loaded[id]; done && !force {
			continue
		}
		toLoad = append(toLoad, id)
	}
	c.mu.Unlock()

	if len(toLoad) == 0 {
		return nil
	}
	sort.Slice(toLoad, func(i, j int) bool { return toLoad[i] < toLoad[j] })

	locRows, err := c.locs.GetByUserIDs(toLoad)
	if err != nil {
		c.setErr("location load failed: " + err.Error())
		return err
	}
	profRows, err := c.profs.GetByIDs(toLoad)
	if err != nil {
		c.setErr("profile load failed: " + err.Error())
		return err
	}

	c.mu.Lock()
	if gen != c.generation {
		c.mu.Unlock()
		return ErrStaleViewer
	}
	var newPhotos []string
	for _, p := range profRows {
		prev, had := c.profiles[p.ID]
		c.profiles[p.ID] = p
		if p.PhotoURL != nil && (!had || prev.PhotoURL == nil || *prev.PhotoURL != *p.PhotoURL) {
			newPhotos = append(newPhotos, *p.PhotoURL)
		}
	}
	for _, l := range locRows {
		c.locations[l.UserID] = l
	}
	for _, id := range toLoad {
		c.loaded[id] = struct{}{}
	}
	c.mu.Unlock()

	if c.prefetch != nil {
		for _, url := range newPhotos {
			c.prefetch.Prefetch(url)
		}
	}
	return nil
}

// Get returns the cached profile and location for the id; either may be nil.
func (c *Cache) Get(id uint) (*models.Profile, *models.UserLocation) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	var p *models.Profile
	var l *models.UserLocation
	if prof, ok := c.profiles[id]; ok {
		cp := prof
		p = &cp
	}
	if loc, ok := c.locations[id]; ok {
		cl := loc
		l = &cl
	}
	return p, l
}

// HasProfile reports whether a profile is cached for the id, reading the
// live store rather than any snapshot captured earlier.
func (c *Cache) HasProfile(id uint) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.profiles[id]
	return ok
}

// ApplyLocationUpdate unconditionally overwrites the prior record for the
// row's user. Last write wins by arrival order; an out-of-order delivery can
// regress a position until the next event.
func (c *Cache) ApplyLocationUpdate(loc models.UserLocation) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[loc.UserID] = struct{}{}
	c.locations[loc.UserID] = loc
}

// ApplyProfileUpdate overwrites the cached profile with the same arrival
// order semantics.
func (c *Cache) ApplyProfileUpdate(p models.Profile) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ids[p.ID] = struct{}{}
	c.profiles[p.ID] = p
}

// EnsureProfile fetches the profile on demand when none is cached, so a
// marker arriving over the realtime stream can render. A failure here is
// isolated to this one user.
func (c *Cache) EnsureProfile(id uint) {
	if c.HasProfile(id) {
		return
	}
	p, err := c.profs.GetByID(id)
	if err != nil {
		logrus.Warnf("profile fetch for user %d failed: %v", id, err)
		return
	}
	if p == nil {
		return
	}
	c.ApplyProfileUpdate(*p)
	if c.prefetch != nil && p.PhotoURL != nil {
		c.prefetch.Prefetch(*p.PhotoURL)
	}
}

// SetSelfLocation folds the viewer's own freshly-sampled fix straight into
// the cache, bypassing the realtime round trip.
func (c *Cache) SetSelfLocation(loc models.UserLocation) {
	loc.UserID = c.viewerID
	c.ApplyLocationUpdate(loc)
}

// Reset discards all cached state and bumps the generation so any in-flight
// bulk load lands on the floor. Used on sign-out.
func (c *Cache) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.generation++
	c.ids = make(map[uint]struct{})
	c.loaded = make(map[uint]struct{})
	c.profiles = make(map[uint]models.Profile)
	c.locations = make(map[uint]models.UserLocation)
	c.lastErr = ""
}

// RelevantIDs returns the current relevant-id set, sorted.
func (c *Cache) RelevantIDs() []uint {
	c.mu.RLock()
	defer c.mu.RUnlock()
	ids := make([]uint, 0, len(c.ids))
	for id := range c.ids {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Snapshot copies the merged maps for callers to read without holding the
// cache lock.
func (c *Cache) Snapshot() (map[uint]models.Profile, map[uint]models.UserLocation) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	profiles := make(map[uint]models.Profile, len(c.profiles))
	for id, p := range c.profiles {
		profiles[id] = p
	}
	locations := make(map[uint]models.UserLocation, len(c.locations))
	for id, l := range c.locations {
		locations[id] = l
	}
	return profiles, locations
}

// Err returns the cache-level error message from the last failed refresh,
// empty when the last cycle succeeded.
func (c *Cache) Err() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.lastErr
}

func (c *Cache) setErr(msg string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lastErr = msg
}

func (c *Cache) clearErr(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen == c.generation {
		c.lastErr = ""
	}
}
