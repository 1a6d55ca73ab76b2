package incident

import (
	"fmt"
	"sort"
	"time"

	"github.com/safewalk/server/internal/lib/geo"
)

// timestampLayouts covers the feed's floating timestamp plus the RFC3339
// variants seen when the dataset is exported through other tooling.
var timestampLayouts = []string{
	"2006-01-02T15:04:05.000",
	"2006-01-02T15:04:05",
	time.RFC3339,
}

const unknownLocation = "Unknown Location"

// Normalize converts raw feed records into canonical incidents. Records
// without a two-component point geometry or a parsable timestamp are dropped
// individually; one bad record never aborts the batch. The result is sorted
// by ReceivedAt descending, ties keeping input order. "now" is injected so
// recency labels and the future flag are deterministic under test.
//
// The feed's floating timestamps carry no zone; they are interpreted in loc
// (the dataset's local time, Pacific for the SF feed). A nil loc means UTC.
// Timestamps that carry their own offset keep it.
func Normalize(now time.Time, loc *time.Location, raws []RawIncident) []Incident {
	if loc == nil {
		loc = time.UTC
	}
	incidents := make([]Incident, 0, len(raws))

	for _, raw := range raws {
		point, ok := extractPoint(raw)
		if !ok {
			continue
		}

		receivedAt, err := parseTimestamp(raw.ReceivedDatetime, loc)
		if err != nil {
			continue
		}

		location := raw.IntersectionName
		if location == "" {
			location = unknownLocation
		}

		incidents = append(incidents, Incident{
			ID:                     raw.ID,
			Coordinates:            point,
			ReceivedAt:             receivedAt,
			DisplayRecency:         FormatRecency(now, receivedAt),
			Location:               location,
			Classification:         raw.CallTypeFinal,
			OriginalClassification: raw.CallTypeOriginal,
			Priority:               raw.PriorityFinal,
			Agency:                 raw.Agency,
			Sensitive:              raw.SensitiveCall,
			IsFuture:               receivedAt.After(now),
		})
	}

	sort.SliceStable(incidents, func(i, j int) bool {
		return incidents[i].ReceivedAt.After(incidents[j].ReceivedAt)
	})

	return incidents
}

// HasFutureData reports whether any incident's timestamp is ahead of the
// normalization clock, which signals test data in the upstream feed.
func HasFutureData(incidents []Incident) bool {
	for _, inc := range incidents {
		if inc.IsFuture {
			return true
		}
	}
	return false
}

// FormatRecency renders the human label for a timestamp relative to now:
// under a minute is "Just now", under an hour is a minutes-ago count, and
// anything older falls back to a short absolute date/time.
func FormatRecency(now, receivedAt time.Time) string {
	diffMins := int(now.Sub(receivedAt).Minutes())

	if diffMins < 1 {
		return "Just now"
	}
	if diffMins < 60 {
		if diffMins == 1 {
			return "1 min ago"
		}
		return fmt.Sprintf("%d mins ago", diffMins)
	}

	return receivedAt.Format("Jan 2, 3:04 PM")
}

// extractPoint pulls the coordinate pair out of the feed geometry, which
// stores [longitude, latitude].
func extractPoint(raw RawIncident) (geo.Point, bool) {
	if raw.IntersectionPoint == nil || len(raw.IntersectionPoint.Coordinates) != 2 {
		return geo.Point{}, false
	}
	point := geo.Point{
		Latitude:  raw.IntersectionPoint.Coordinates[1],
		Longitude: raw.IntersectionPoint.Coordinates[0],
	}
	if !point.IsValid() {
		return geo.Point{}, false
	}
	return point, true
}

func parseTimestamp(value string, loc *time.Location) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	var lastErr error
	for _, layout := range timestampLayouts {
		t, err := time.ParseInLocation(layout, value, loc)
		if err == nil {
			return t, nil
		}
		lastErr = err
	}
	return time.Time{}, fmt.Errorf("unparsable timestamp %q: %w", value, lastErr)
}
