// Package hotspot buckets normalized incidents into fixed-size geographic
// grid cells and derives the display scale consumers map against.
package hotspot

import (
	"fmt"
	"math"
	"sort"

	"github.com/safewalk/server/internal/lib/incident"
)

// Grid resolution is two decimal places, roughly 0.01° (~1.1km of latitude).
// The cell center is the rounded coordinate, not a centroid of members.
const gridScale = 100

// Display radius bounds in meters, interpolated by count/maxCount.
const (
	MinRadiusMeters = 50
	MaxRadiusMeters = 500
)

// Intensity is the 5-tier ordinal scale derived from a cell's count. The
// tier boundaries are a contract consumers depend on; color mapping is not.
type Intensity int

const (
	IntensityLow Intensity = iota
	IntensityElevated
	IntensityHigh
	IntensitySevere
	IntensityCritical
)

func (i Intensity) String() string {
	switch i {
	case IntensityCritical:
		return "critical"
	case IntensitySevere:
		return "severe"
	case IntensityHigh:
		return "high"
	case IntensityElevated:
		return "elevated"
	default:
		return "low"
	}
}

// MarshalJSON renders the tier label rather than the ordinal.
func (i Intensity) MarshalJSON() ([]byte, error) {
	return []byte(fmt.Sprintf("%q", i.String())), nil
}

// IntensityForCount maps an incident count onto the tier scale.
func IntensityForCount(count int) Intensity {
	switch {
	case count >= 20:
		return IntensityCritical
	case count >= 15:
		return IntensitySevere
	case count >= 10:
		return IntensityHigh
	case count >= 5:
		return IntensityElevated
	default:
		return IntensityLow
	}
}

// Cell is one grid bucket of incident density.
type Cell struct {
	Latitude     float64             `json:"lat"`
	Longitude    float64             `json:"lng"`
	Count        int                 `json:"count"`
	Members      []incident.Incident `json:"calls"`
	RadiusMeters float64             `json:"radiusMeters"`
	Intensity    Intensity           `json:"intensity"`
}

// Result is one aggregation pass over a snapshot. MaxCount is never below 1
// so downstream scaling can divide by it unconditionally.
type Result struct {
	Cells    []Cell `json:"hotspots"`
	MaxCount int    `json:"maxCount"`
}

// Aggregate rebuilds the hotspot grid from scratch for the given incident
// set. Cells are sorted by count descending; ties keep first-encountered
// order. Purely a function of the input, no cross-call state.
func Aggregate(incidents []incident.Incident) Result {
	cells := make(map[string]*Cell)
	var order []string

	for _, inc := range incidents {
		gridLat := math.Round(inc.Coordinates.Latitude*gridScale) / gridScale
		gridLng := math.Round(inc.Coordinates.Longitude*gridScale) / gridScale
		key := fmt.Sprintf("%v,%v", gridLat, gridLng)

		cell, ok := cells[key]
		if !ok {
			cell = &Cell{Latitude: gridLat, Longitude: gridLng}
			cells[key] = cell
			order = append(order, key)
		}
		cell.Count++
		cell.Members = append(cell.Members, inc)
	}

	sorted := make([]Cell, 0, len(order))
	for _, key := range order {
		sorted = append(sorted, *cells[key])
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})

	maxCount := 1
	if len(sorted) > 0 {
		maxCount = sorted[0].Count
	}

	for i := range sorted {
		sorted[i].RadiusMeters = radiusFor(sorted[i].Count, maxCount)
		sorted[i].Intensity = IntensityForCount(sorted[i].Count)
	}

	return Result{Cells: sorted, MaxCount: maxCount}
}

// radiusFor linearly interpolates the display radius by density share.
func radiusFor(count, maxCount int) float64 {
	scale := float64(count) / float64(maxCount)
	radius := MinRadiusMeters + (MaxRadiusMeters-MinRadiusMeters)*scale
	return math.Min(math.Max(radius, MinRadiusMeters), MaxRadiusMeters)
}
