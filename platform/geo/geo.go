// Package geo holds the small amount of coordinate math the survey needs:
// great-circle distance and point-in-boundary tests.
package geo

import "math"

// EarthRadiusMeters is the mean Earth radius.
const EarthRadiusMeters = 6371000.0

// Point is a WGS84 coordinate.
type Point struct {
	Latitude  float64 `json:"latitude" yaml:"latitude" validate:"latitude"`
	Longitude float64 `json:"longitude" yaml:"longitude" validate:"longitude"`
}

// Polygon is a closed ring of points. The last point does not need to
// repeat the first.
type Polygon []Point

// Distance returns the haversine distance between a and b in meters.
func Distance(a, b Point) float64 {
	lat1 := a.Latitude * math.Pi / 180
	lat2 := b.Latitude * math.Pi / 180
	dLat := lat2 - lat1
	dLng := (b.Longitude - a.Longitude) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusMeters * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Contains reports whether p lies inside the polygon using ray casting.
// A polygon with fewer than three vertices contains nothing.
func (poly Polygon) Contains(p Point) bool {
	n := len(poly)
	if n < 3 {
		return false
	}

	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		a, b := poly[i], poly[j]
		if (a.Latitude > p.Latitude) != (b.Latitude > p.Latitude) {
			crossLng := (b.Longitude-a.Longitude)*(p.Latitude-a.Latitude)/(b.Latitude-a.Latitude) + a.Longitude
			if p.Longitude < crossLng {
				inside = !inside
			}
		}
	}
	return inside
}

// Centroid returns the vertex average, good enough for centring a map on a
// small survey site.
func (poly Polygon) Centroid() Point {
	if len(poly) == 0 {
		return Point{}
	}
	var lat, lng float64
	for _, p := range poly {
		lat += p.Latitude
		lng += p.Longitude
	}
	n := float64(len(poly))
	return Point{Latitude: lat / n, Longitude: lng / n}
}
