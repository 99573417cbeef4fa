package livemap

import (
	"fmt"
	"math"
	"sort"

	"carmeet/internal/models"
	"carmeet/pkg/geo"
)

// SpreadOptions tune the anti-collision ring. Zero values take the defaults
// below.
type SpreadOptions struct {
	BaseRadiusMeters     float64
	ExtraPerMemberMeters float64
}

const (
	defaultSpreadBase  = 20.0
	defaultSpreadExtra = 5.0
)

// SpreadMarker is one input record with its display coordinate. The stored
// record is never mutated; AdjLat/AdjLng exist only for rendering.
type SpreadMarker struct {
	Loc    models.UserLocation
	AdjLat float64
	AdjLng float64
}

// Spread lays co-located records out on a ring around their shared
// coordinate so markers do not occlude each other. Records are grouped by
// lat/lng rounded to 5 decimals (~1.1 m); singleton groups pass through
// unchanged. The ring radius grows with group size so larger clusters do not
// re-collide after displacement.
//
// Output order and member angles are deterministic: groups sort by key and
// members by user ID, so markers do not jitter between refreshes.
func Spread(locs []models.UserLocation, opts SpreadOptions) []SpreadMarker {
	base := opts.BaseRadiusMeters
	if base <= 0 {
		base = defaultSpreadBase
	}
	extra := opts.ExtraPerMemberMeters
	if extra <= 0 {
		extra = defaultSpreadExtra
	}

	groups := make(map[string][]models.UserLocation)
	for _, loc := range locs {
		key := fmt.Sprintf("%.5f:%.5f", geo.Round5(loc.Lat), geo.Round5(loc.Lng))
		groups[key] = append(groups[key], loc)
	}
	keys := make([]string, 0, len(groups))
	for key := range groups {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	results := make([]SpreadMarker, 0, len(locs))
	for _, key := range keys {
		group := groups[key]
		if len(group) == 1 {
			loc := group[0]
			results = append(results, SpreadMarker{Loc: loc, AdjLat: loc.Lat, AdjLng: loc.Lng})
			continue
		}
		sort.Slice(group, func(i, j int) bool { return group[i].UserID < group[j].UserID })

		radius := base + extra*math.Max(0, float64(len(group)-2))
		for i, loc := range group {
			angle := 2 * math.Pi * float64(i) / float64(len(group))
			dx := radius * math.Cos(angle)
			dy := radius * math.Sin(angle)
			results = append(results, SpreadMarker{
				Loc:    loc,
				AdjLat: loc.Lat + dy/geo.MetersPerDegreeLat,
				AdjLng: loc.Lng + dx/geo.MetersPerDegreeLng(loc.Lat),
			})
		}
	}
	return results
}
