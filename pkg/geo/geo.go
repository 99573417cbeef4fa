package geo

import "math"

// EarthRadiusMeters is the mean Earth radius used for Haversine.
const EarthRadiusMeters = 6371000.0

// MetersPerDegreeLat is the flat-earth approximation of one degree of
// latitude. Longitude shrinks by cos(lat); see MetersPerDegreeLng.
const MetersPerDegreeLat = 111111.0

// MetersBetween returns the great-circle distance in meters between two
// points given in degrees.
func MetersBetween(aLat, aLng, bLat, bLng float64) float64 {
	rad := func(d float64) float64 { return d * math.Pi / 180 }
	dLat := rad(bLat - aLat)
	dLng := rad(bLng - aLng)
	lat1 := rad(aLat)
	lat2 := rad(bLat)
	x := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Asin(math.Sqrt(x))
}

// MetersPerDegreeLng returns meters per degree of longitude at the given
// latitude (degrees).
func MetersPerDegreeLng(lat float64) float64 {
	return MetersPerDegreeLat * math.Cos(lat*math.Pi/180)
}

// BoundingBox is a rectangular lat/lng range usable as an index-friendly
// pre-filter before an exact distance check.
type BoundingBox struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

// BoxAround derives the bounding box containing every point within
// radiusMeters of the center, using the flat-earth degree approximation.
// The box over-covers near its corners; callers refine with MetersBetween.
func BoxAround(lat, lng, radiusMeters float64) BoundingBox {
	dLat := radiusMeters / MetersPerDegreeLat
	dLng := radiusMeters / MetersPerDegreeLng(lat)
	return BoundingBox{
		MinLat: lat - dLat,
		MaxLat: lat + dLat,
		MinLng: lng - dLng,
		MaxLng: lng + dLng,
	}
}

// Contains reports whether the point falls inside the box.
func (b BoundingBox) Contains(lat, lng float64) bool {
	return lat >= b.MinLat && lat <= b.MaxLat && lng >= b.MinLng && lng <= b.MaxLng
}

// Round5 rounds a coordinate to 5 decimal places (~1.1 m grid). Two points
// with equal rounded lat and lng are treated as co-located.
func Round5(v float64) float64 {
	return math.Round(v*1e5) / 1e5
}
