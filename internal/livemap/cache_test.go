package livemap_test

import (
	"errors"
	"sync"
	"testing"
	"time"

	"carmeet/internal/livemap"
	"carmeet/internal/models"
	"carmeet/pkg/geo"

	"gorm.io/gorm"
)

type fakeFriends struct {
	ids []uint
	err error
}

func (f *fakeFriends) AcceptedFriendIDs(viewerID uint) ([]uint, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ids, nil
}

type fakeLocations struct {
	mu      sync.Mutex
	rows    map[uint]models.UserLocation
	loadErr error
	// hook runs inside GetByUserIDs, before returning; used to race a
	// reset against an in-flight load.
	hook func()
}

func (f *fakeLocations) GetByUserID(userID uint) (*models.UserLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[userID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (f *fakeLocations) GetByUserIDs(ids []uint) ([]models.UserLocation, error) {
	if f.hook != nil {
		f.hook()
	}
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserLocation
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

func (f *fakeLocations) WithinBox(box geo.BoundingBox) ([]models.UserLocation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.UserLocation
	for _, row := range f.rows {
		if box.Contains(row.Lat, row.Lng) {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakeProfiles struct {
	mu       sync.Mutex
	rows     map[uint]models.Profile
	loadErr  error
	byIDErr  error
	bulkGets int
}

func (f *fakeProfiles) GetByID(id uint) (*models.Profile, error) {
	if f.byIDErr != nil {
		return nil, f.byIDErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return &row, nil
}

func (f *fakeProfiles) GetByIDs(ids []uint) ([]models.Profile, error) {
	f.mu.Lock()
	f.bulkGets++
	f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.Profile
	for _, id := range ids {
		if row, ok := f.rows[id]; ok {
			out = append(out, row)
		}
	}
	return out, nil
}

type fakePrefetch struct {
	mu   sync.Mutex
	urls []string
}

func (f *fakePrefetch) Prefetch(url string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.urls = append(f.urls, url)
}

func (f *fakePrefetch) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.urls)
}

func str(s string) *string { return &s }

func loc(id uint, lat, lng float64) models.UserLocation {
	return models.UserLocation{UserID: id, Lat: lat, Lng: lng, UpdatedAt: time.Now()}
}

// offsetMeters moves a point by the given meters along lat/lng using the
// same flat-earth scaling the bounding box uses.
func offsetMeters(lat, lng, dyMeters, dxMeters float64) (float64, float64) {
	return lat + dyMeters/geo.MetersPerDegreeLat, lng + dxMeters/geo.MetersPerDegreeLng(lat)
}

const (
	viewer = uint(1)
	userA  = uint(2)
	userB  = uint(3)
	userC  = uint(4)
	userD  = uint(5)
)

// newScenario builds the standard fixture: viewer at (37, -122) with two
// accepted friends (A with a fix, B without), stranger C ~800 m away, and
// stranger D ~1700 m away (inside the bounding box, outside the radius).
func newScenario() (*livemap.Cache, *fakeFriends, *fakeLocations, *fakeProfiles, *fakePrefetch) {
	baseLat, baseLng := 37.0, -122.0
	cLat, cLng := offsetMeters(baseLat, baseLng, 800, 0)
	// ~1202 m on each axis is ~1700 m diagonally but stays inside the box.
	dLat, dLng := offsetMeters(baseLat, baseLng, 1202, 1202)

	friends := &fakeFriends{ids: []uint{userA, userB}}
	locs := &fakeLocations{rows: map[uint]models.UserLocation{
		viewer: loc(viewer, baseLat, baseLng),
		userA:  loc(userA, baseLat+0.01, baseLng),
		userC:  loc(userC, cLat, cLng),
		userD:  loc(userD, dLat, dLng),
	}}
	profs := &fakeProfiles{rows: map[uint]models.Profile{
		viewer: {ID: viewer, Username: str("me"), PhotoURL: str("https://img.example/me.jpg")},
		userA:  {ID: userA, Username: str("alice")},
		userB:  {ID: userB, Username: str("bob"), PhotoURL: str("https://img.example/bob.jpg")},
		userC:  {ID: userC, Username: str("carol")},
	}}
	prefetch := &fakePrefetch{}
	cache := livemap.NewCache(viewer, 1609.34, friends, locs, profs, prefetch)
	return cache, friends, locs, profs, prefetch
}

func TestRefreshScenario(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	if err := cache.Refresh(false); err != nil {
		t.Fatalf("refresh: %v", err)
	}

	got := cache.RelevantIDs()
	want := []uint{viewer, userA, userB, userC}
	if len(got) != len(want) {
		t.Fatalf("relevant ids = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("relevant ids = %v, want %v", got, want)
		}
	}

	// Friend B never shared a fix: profile cached, location absent.
	p, l := cache.Get(userB)
	if p == nil || l != nil {
		t.Fatalf("user B: profile=%v location=%v, want profile only", p, l)
	}
	// Stranger C is within radius: both cached.
	p, l = cache.Get(userC)
	if p == nil || l == nil {
		t.Fatalf("user C: profile=%v location=%v, want both", p, l)
	}
	// D passed the bounding box but failed the Haversine refinement.
	if _, l := cache.Get(userD); l != nil {
		t.Fatalf("user D should be excluded by exact distance, got %v", l)
	}
	if cache.Err() != "" {
		t.Fatalf("unexpected cache error %q", cache.Err())
	}
}

func TestRefreshIdempotent(t *testing.T) {
	cache, _, _, profs, _ := newScenario()
	if err := cache.Refresh(false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	first := cache.RelevantIDs()
	callsAfterFirst := profs.bulkGets

	if err := cache.Refresh(false); err != nil {
		t.Fatalf("second refresh: %v", err)
	}
	second := cache.RelevantIDs()
	if len(first) != len(second) {
		t.Fatalf("relevant ids changed across refreshes: %v vs %v", first, second)
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("relevant ids changed across refreshes: %v vs %v", first, second)
		}
	}
	// Nothing new to load: the second cycle must not refetch.
	if profs.bulkGets != callsAfterFirst {
		t.Fatalf("second refresh refetched profiles (%d -> %d calls)", callsAfterFirst, profs.bulkGets)
	}
}

func TestRefreshFriendFailureAbortsAndRetains(t *testing.T) {
	cache, friends, _, _, _ := newScenario()
	if err := cache.Refresh(false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	before := cache.RelevantIDs()

	friends.err = errors.New("backend down")
	if err := cache.Refresh(true); err == nil {
		t.Fatal("expected refresh error")
	}
	if cache.Err() == "" {
		t.Fatal("expected cache-level error state")
	}
	after := cache.RelevantIDs()
	if len(after) != len(before) {
		t.Fatalf("failed refresh changed cache: %v vs %v", before, after)
	}
	if p, _ := cache.Get(userA); p == nil {
		t.Fatal("previously cached profile lost after failed refresh")
	}

	// A later successful refresh clears the error.
	friends.err = nil
	if err := cache.Refresh(false); err != nil {
		t.Fatalf("recovery refresh: %v", err)
	}
	if cache.Err() != "" {
		t.Fatalf("error state not cleared: %q", cache.Err())
	}
}

func TestBulkLoadFailureAppliesNothing(t *testing.T) {
	cache, _, locs, _, _ := newScenario()
	locs.loadErr = errors.New("timeout")
	if err := cache.Refresh(false); err == nil {
		t.Fatal("expected refresh error")
	}
	if p, l := cache.Get(userA); p != nil || l != nil {
		t.Fatalf("partial application after failed batch: profile=%v location=%v", p, l)
	}
}

func TestLastWriteWinsByArrivalOrder(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	t1 := time.Now().Add(-time.Minute)
	t2 := time.Now()

	newer := models.UserLocation{UserID: userA, Lat: 10, Lng: 10, UpdatedAt: t2}
	older := models.UserLocation{UserID: userA, Lat: 20, Lng: 20, UpdatedAt: t1}

	cache.ApplyLocationUpdate(newer)
	cache.ApplyLocationUpdate(older)

	// The later arrival wins even though its timestamp is older.
	_, l := cache.Get(userA)
	if l == nil || l.Lat != 20 {
		t.Fatalf("got %v, want the later-arriving payload", l)
	}

	cache.ApplyLocationUpdate(older)
	cache.ApplyLocationUpdate(newer)
	_, l = cache.Get(userA)
	if l == nil || l.Lat != 10 {
		t.Fatalf("got %v, want the later-arriving payload", l)
	}
}

func TestEnsureProfileFailureIsolated(t *testing.T) {
	cache, _, _, profs, _ := newScenario()
	profs.byIDErr = errors.New("profile backend down")
	cache.EnsureProfile(userC)
	if cache.HasProfile(userC) {
		t.Fatal("failed fetch should not cache anything")
	}
	if cache.Err() != "" {
		t.Fatalf("per-user fetch failure must not set cache error, got %q", cache.Err())
	}

	profs.byIDErr = nil
	cache.EnsureProfile(userC)
	if !cache.HasProfile(userC) {
		t.Fatal("profile not cached after successful on-demand fetch")
	}
}

func TestEnsureProfileCachedIsNoop(t *testing.T) {
	cache, _, _, profs, _ := newScenario()
	cache.ApplyProfileUpdate(models.Profile{ID: userC, Username: str("carol-local")})
	profs.byIDErr = errors.New("must not be called")
	cache.EnsureProfile(userC)
	p, _ := cache.Get(userC)
	if p == nil || p.Username == nil || *p.Username != "carol-local" {
		t.Fatalf("cached profile was replaced: %v", p)
	}
}

func TestPhotoPrefetchOnNewProfilesOnly(t *testing.T) {
	cache, _, _, _, prefetch := newScenario()
	if err := cache.Refresh(false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	// Viewer and B carry photo URLs in the fixture.
	if prefetch.count() != 2 {
		t.Fatalf("prefetched %d urls, want 2", prefetch.count())
	}
	if err := cache.Refresh(false); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if prefetch.count() != 2 {
		t.Fatalf("re-refresh prefetched already-seen photos (%d)", prefetch.count())
	}
}

func TestResetDiscardsInFlightLoad(t *testing.T) {
	cache, _, locs, _, _ := newScenario()
	locs.hook = func() {
		locs.hook = nil
		cache.Reset()
	}
	err := cache.Refresh(false)
	if !errors.Is(err, livemap.ErrStaleViewer) {
		t.Fatalf("err = %v, want ErrStaleViewer", err)
	}
	if ids := cache.RelevantIDs(); len(ids) != 0 {
		t.Fatalf("stale load applied after reset: %v", ids)
	}
}

func TestSetSelfLocationBypassesRealtime(t *testing.T) {
	cache, _, _, _, _ := newScenario()
	cache.SetSelfLocation(models.UserLocation{Lat: 1, Lng: 2, UpdatedAt: time.Now()})
	_, l := cache.Get(viewer)
	if l == nil || l.UserID != viewer || l.Lat != 1 {
		t.Fatalf("self fix not applied: %v", l)
	}
}
