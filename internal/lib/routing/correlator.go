// Package routing correlates normalized incidents against route geometry.
// One canonical implementation; delivery layers call it rather than
// reimplementing the buffer test per call site.
package routing

import (
	"github.com/safewalk/server/internal/lib/geo"
	"github.com/safewalk/server/internal/lib/incident"
)

// BufferMeters is the fixed route-relevance radius: 0.2 miles.
const BufferMeters = 321.869

// DefaultSampleStride samples every 5th route point. The stride is purely a
// performance control; the buffer test stays exact at whichever points are
// sampled, and the route endpoints are always included.
const DefaultSampleStride = 5

// Options tune a Correlator. Zero values fall back to the defaults above.
type Options struct {
	BufferMeters float64
	SampleStride int
}

// Correlator filters incident sets down to those near a route.
type Correlator struct {
	bufferMeters float64
	sampleStride int
}

// NewCorrelator creates a Correlator with the given options.
func NewCorrelator(opts Options) *Correlator {
	buffer := opts.BufferMeters
	if buffer <= 0 {
		buffer = BufferMeters
	}
	stride := opts.SampleStride
	if stride <= 0 {
		stride = DefaultSampleStride
	}
	return &Correlator{bufferMeters: buffer, sampleStride: stride}
}

// AlertsNearRoute returns the subset of incidents within the buffer distance
// of any sampled route point, preserving the incident set's existing order.
// An empty or single-point route has nothing to buffer around and yields an
// empty set. Idempotent for fixed inputs.
func (c *Correlator) AlertsNearRoute(route []geo.Point, incidents []incident.Incident) []incident.Incident {
	if len(route) < 2 {
		return nil
	}

	samples := c.sampleRoute(route)

	matched := make([]incident.Incident, 0)
	for _, inc := range incidents {
		for _, sample := range samples {
			if geo.Distance(inc.Coordinates, sample) <= c.bufferMeters {
				matched = append(matched, inc)
				break
			}
		}
	}

	return matched
}

// sampleRoute takes every Kth point plus the first and last, which anchor
// the origin and destination proximity checks.
func (c *Correlator) sampleRoute(route []geo.Point) []geo.Point {
	samples := make([]geo.Point, 0, len(route)/c.sampleStride+2)
	last := len(route) - 1

	for i := 0; i < last; i += c.sampleStride {
		samples = append(samples, route[i])
	}
	samples = append(samples, route[last])

	return samples
}
