package hotspot

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/safewalk/server/internal/lib/geo"
	"github.com/safewalk/server/internal/lib/incident"
)

func incidentAt(id string, lat, lng float64) incident.Incident {
	return incident.Incident{
		ID:          id,
		Coordinates: geo.Point{Latitude: lat, Longitude: lng},
		ReceivedAt:  time.Date(2025, time.March, 14, 12, 0, 0, 0, time.UTC),
	}
}

func TestAggregate_MergesNearbyPointsIntoOneCell(t *testing.T) {
	// Both coordinates round to the same 0.01° grid cell.
	result := Aggregate([]incident.Incident{
		incidentAt("a", 37.7749, -122.4194),
		incidentAt("b", 37.7750, -122.4195),
	})

	require.Len(t, result.Cells, 1)
	assert.Equal(t, 2, result.Cells[0].Count)
	assert.Equal(t, 2, result.MaxCount)
	assert.InDelta(t, 37.77, result.Cells[0].Latitude, 1e-9)
	assert.InDelta(t, -122.42, result.Cells[0].Longitude, 1e-9)
	assert.Len(t, result.Cells[0].Members, 2)
}

func TestAggregate_CountSumEqualsInput(t *testing.T) {
	incidents := []incident.Incident{
		incidentAt("a", 37.7749, -122.4194),
		incidentAt("b", 37.7750, -122.4195),
		incidentAt("c", 37.8044, -122.2712),
		incidentAt("d", 37.8044, -122.2712),
		incidentAt("e", 37.7614, -122.4250),
	}

	result := Aggregate(incidents)

	sum := 0
	maxSeen := 0
	for _, cell := range result.Cells {
		sum += cell.Count
		if cell.Count > maxSeen {
			maxSeen = cell.Count
		}
	}
	assert.Equal(t, len(incidents), sum)
	assert.Equal(t, maxSeen, result.MaxCount)
}

func TestAggregate_SortedByCountFirstSeenWinsTies(t *testing.T) {
	incidents := []incident.Incident{
		incidentAt("tie1", 37.70, -122.40),
		incidentAt("tie2", 37.90, -122.40),
		incidentAt("big1", 37.80, -122.40),
		incidentAt("big2", 37.80, -122.40),
	}

	result := Aggregate(incidents)
	require.Len(t, result.Cells, 3)

	assert.Equal(t, 2, result.Cells[0].Count)
	// Two single-count cells tie; the first-encountered one keeps position.
	assert.InDelta(t, 37.70, result.Cells[1].Latitude, 1e-9)
	assert.InDelta(t, 37.90, result.Cells[2].Latitude, 1e-9)
}

func TestAggregate_EmptyInput(t *testing.T) {
	result := Aggregate(nil)
	assert.Empty(t, result.Cells)
	assert.Equal(t, 1, result.MaxCount, "maxCount floors at 1 to keep division safe")
}

func TestAggregate_RadiusScale(t *testing.T) {
	var incidents []incident.Incident
	for i := 0; i < 10; i++ {
		incidents = append(incidents, incidentAt("dense", 37.80, -122.40))
	}
	incidents = append(incidents, incidentAt("sparse", 37.70, -122.30))

	result := Aggregate(incidents)
	require.Len(t, result.Cells, 2)

	dense := result.Cells[0]
	sparse := result.Cells[1]

	assert.Equal(t, float64(MaxRadiusMeters), dense.RadiusMeters)
	assert.Greater(t, sparse.RadiusMeters, float64(MinRadiusMeters-1))
	assert.Less(t, sparse.RadiusMeters, dense.RadiusMeters)
}

func TestIntensityForCount_TierBoundaries(t *testing.T) {
	cases := map[int]Intensity{
		1:  IntensityLow,
		4:  IntensityLow,
		5:  IntensityElevated,
		9:  IntensityElevated,
		10: IntensityHigh,
		14: IntensityHigh,
		15: IntensitySevere,
		19: IntensitySevere,
		20: IntensityCritical,
		50: IntensityCritical,
	}
	for count, want := range cases {
		assert.Equal(t, want, IntensityForCount(count), "count %d", count)
	}
}

func TestIntensityString(t *testing.T) {
	assert.Equal(t, "critical", IntensityCritical.String())
	assert.Equal(t, "low", IntensityLow.String())
}
