package routing

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewalk/server/internal/lib/geo"
	"github.com/safewalk/server/internal/lib/incident"
)

func incidentNear(id string, p geo.Point) incident.Incident {
	return incident.Incident{
		ID:          id,
		Coordinates: p,
		ReceivedAt:  time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC),
	}
}

// straightRoute builds a route heading due north from origin, one point
// every stepMeters.
func straightRoute(origin geo.Point, points int, stepMeters float64) []geo.Point {
	route := make([]geo.Point, points)
	for i := range route {
		route[i] = geo.PointAtBearing(origin, 0, float64(i)*stepMeters)
	}
	return route
}

var routeOrigin = geo.Point{Latitude: 37.7749, Longitude: -122.4194}

func TestAlertsNearRoute_BufferDistance(t *testing.T) {
	correlator := NewCorrelator(Options{})
	route := straightRoute(routeOrigin, 2, 100)

	// Offsets measured due east from the route origin, which is always a
	// sampled point. Placement jitter through the forward geodesic is on the
	// order of nanometers, so a micron margin keeps both sides unambiguous.
	inside := incidentNear("inside", geo.PointAtBearing(routeOrigin, 90, 321.869-1e-6))
	outside := incidentNear("outside", geo.PointAtBearing(routeOrigin, 90, 321.870))

	matched := correlator.AlertsNearRoute(route, []incident.Incident{inside, outside})
	require.Len(t, matched, 1)
	assert.Equal(t, "inside", matched[0].ID)
}

func TestAlertsNearRoute_BoundaryIsInclusive(t *testing.T) {
	// Pin the <= semantics exactly: make the buffer equal the measured
	// distance to the incident, then shrink it by one ulp.
	route := straightRoute(routeOrigin, 2, 100)
	spot := geo.PointAtBearing(routeOrigin, 90, 321.869)
	exact := geo.Distance(routeOrigin, spot)
	incidents := []incident.Incident{incidentNear("boundary", spot)}

	atBoundary := NewCorrelator(Options{BufferMeters: exact})
	assert.Len(t, atBoundary.AlertsNearRoute(route, incidents), 1,
		"incident exactly at the buffer distance is included")

	justUnder := NewCorrelator(Options{BufferMeters: math.Nextafter(exact, 0)})
	assert.Empty(t, justUnder.AlertsNearRoute(route, incidents))
}

func TestAlertsNearRoute_Deterministic(t *testing.T) {
	correlator := NewCorrelator(Options{})
	route := straightRoute(routeOrigin, 40, 50)

	incidents := []incident.Incident{
		incidentNear("a", geo.PointAtBearing(routeOrigin, 90, 100)),
		incidentNear("b", geo.PointAtBearing(routeOrigin, 90, 5000)),
		incidentNear("c", geo.PointAtBearing(route[20], 270, 200)),
	}

	first := correlator.AlertsNearRoute(route, incidents)
	second := correlator.AlertsNearRoute(route, incidents)
	assert.Equal(t, first, second)
}

func TestAlertsNearRoute_EmptyAndSinglePointRoutes(t *testing.T) {
	correlator := NewCorrelator(Options{})
	onTop := incidentNear("x", routeOrigin)

	assert.Empty(t, correlator.AlertsNearRoute(nil, []incident.Incident{onTop}))
	assert.Empty(t, correlator.AlertsNearRoute([]geo.Point{routeOrigin}, []incident.Incident{onTop}))
}

func TestAlertsNearRoute_EndpointsAlwaysSampled(t *testing.T) {
	// 7 points with stride 5 samples indexes 0 and 5; the final point at
	// index 6 must still be sampled or a destination-side incident is missed.
	correlator := NewCorrelator(Options{SampleStride: 5})
	route := straightRoute(routeOrigin, 7, 1000)

	destination := route[len(route)-1]
	nearDestination := incidentNear("dest", geo.PointAtBearing(destination, 90, 100))

	matched := correlator.AlertsNearRoute(route, []incident.Incident{nearDestination})
	require.Len(t, matched, 1)
	assert.Equal(t, "dest", matched[0].ID)
}

func TestAlertsNearRoute_PreservesIncidentOrder(t *testing.T) {
	correlator := NewCorrelator(Options{})
	route := straightRoute(routeOrigin, 10, 100)

	// Most-recent-first ordering as the normalizer produces it.
	incidents := []incident.Incident{
		incidentNear("newest", geo.PointAtBearing(route[5], 90, 50)),
		incidentNear("middle", geo.PointAtBearing(routeOrigin, 90, 50)),
		incidentNear("oldest", geo.PointAtBearing(route[9], 270, 50)),
	}

	matched := correlator.AlertsNearRoute(route, incidents)
	require.Len(t, matched, 3)
	assert.Equal(t, "newest", matched[0].ID)
	assert.Equal(t, "middle", matched[1].ID)
	assert.Equal(t, "oldest", matched[2].ID)
}

func TestAlertsNearRoute_EmptyIncidentSet(t *testing.T) {
	correlator := NewCorrelator(Options{})
	route := straightRoute(routeOrigin, 5, 100)
	assert.Empty(t, correlator.AlertsNearRoute(route, nil))
}

func TestNewCorrelator_Defaults(t *testing.T) {
	correlator := NewCorrelator(Options{})
	assert.Equal(t, BufferMeters, correlator.bufferMeters)
	assert.Equal(t, DefaultSampleStride, correlator.sampleStride)
}
