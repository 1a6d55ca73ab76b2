// Package geo provides the great-circle math shared by the incident
// correlator, the hotspot aggregator, and their tests.
package geo

import "math"

// earthRadiusMeters is the mean Earth radius used by the haversine formula.
const earthRadiusMeters = 6371000

// Distance calculates the great-circle distance between two points in meters
// using the haversine formula. It is symmetric and returns 0 for identical
// points. Out-of-range or NaN coordinates propagate NaN rather than erroring;
// callers filter invalid points upstream.
func Distance(p1, p2 Point) float64 {
	if !p1.IsValid() || !p2.IsValid() {
		return math.NaN()
	}

	if p1.Latitude == p2.Latitude && p1.Longitude == p2.Longitude {
		return 0
	}

	lat1 := p1.Latitude * math.Pi / 180
	lon1 := p1.Longitude * math.Pi / 180
	lat2 := p2.Latitude * math.Pi / 180
	lon2 := p2.Longitude * math.Pi / 180

	dlat := lat2 - lat1
	dlon := lon2 - lon1

	a := math.Sin(dlat/2)*math.Sin(dlat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dlon/2)*math.Sin(dlon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return earthRadiusMeters * c
}

// DistanceFromCoords calculates the distance between two coordinate pairs.
// Convenience wrapper for raw latitude/longitude values.
func DistanceFromCoords(lat1, lon1, lat2, lon2 float64) float64 {
	return Distance(Point{Latitude: lat1, Longitude: lon1}, Point{Latitude: lat2, Longitude: lon2})
}

// PointAtBearing returns the point reached by travelling distanceMeters from
// origin along the initial bearing (degrees clockwise from north). Used to
// place markers at a known offset, e.g. buffer-boundary fixtures.
func PointAtBearing(origin Point, bearingDeg, distanceMeters float64) Point {
	lat1 := origin.Latitude * math.Pi / 180
	lon1 := origin.Longitude * math.Pi / 180
	bearing := bearingDeg * math.Pi / 180
	d := distanceMeters / earthRadiusMeters

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(d) +
		math.Cos(lat1)*math.Sin(d)*math.Cos(bearing))
	lon2 := lon1 + math.Atan2(
		math.Sin(bearing)*math.Sin(d)*math.Cos(lat1),
		math.Cos(d)-math.Sin(lat1)*math.Sin(lat2))

	return Point{
		Latitude:  lat2 * 180 / math.Pi,
		Longitude: lon2 * 180 / math.Pi,
	}
}
