// Package polyline implements the Google encoded polyline algorithm:
// coordinates delta-encoded at 1e-5 degree precision as zigzag-signed varints,
// emitted in 5-bit chunks with continuation bit 0x20 and ASCII offset 63.
// https://developers.google.com/maps/documentation/utilities/polylinealgorithm
package polyline

import (
	"math"
	"strings"

	"github.com/safewalk/server/internal/errdefs"
	"github.com/safewalk/server/internal/lib/geo"
)

const precision = 1e5

// Decode converts an encoded polyline into an ordered coordinate sequence.
// An empty string yields an empty sequence. Malformed input (a truncated
// varint, or a dangling latitude with no matching longitude) returns a
// PolylineDecode error.
func Decode(encoded string) ([]geo.Point, error) {
	var points []geo.Point
	index := 0
	lat := 0
	lng := 0

	for index < len(encoded) {
		latDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		index = next
		lat += latDelta

		if index >= len(encoded) {
			return nil, errdefs.New(errdefs.PolylineDecode, "polyline",
				"dangling latitude: encoding ends mid coordinate pair")
		}

		lngDelta, next, err := decodeValue(encoded, index)
		if err != nil {
			return nil, err
		}
		index = next
		lng += lngDelta

		points = append(points, geo.Point{
			Latitude:  float64(lat) / precision,
			Longitude: float64(lng) / precision,
		})
	}

	return points, nil
}

// decodeValue reads one zigzag-encoded delta starting at index and returns
// the delta plus the index of the next unread byte.
func decodeValue(encoded string, index int) (int, int, error) {
	result := 0
	shift := 0

	for {
		if index >= len(encoded) {
			return 0, 0, errdefs.New(errdefs.PolylineDecode, "polyline",
				"truncated varint: continuation bit set at end of input")
		}
		b := int(encoded[index]) - 63
		if b < 0 {
			return 0, 0, errdefs.Newf(errdefs.PolylineDecode, "polyline",
				"byte %d below ASCII offset", index)
		}
		index++
		result |= (b & 0x1f) << shift
		shift += 5
		if b < 0x20 {
			break
		}
	}

	// Undo zigzag: negative values were stored inverted with the low bit set.
	if result&1 != 0 {
		return ^(result >> 1), index, nil
	}
	return result >> 1, index, nil
}

// Encode converts a coordinate sequence into its polyline encoding. The
// inverse of Decode up to 1e-5 degree rounding.
func Encode(points []geo.Point) string {
	var sb strings.Builder
	prevLat := 0
	prevLng := 0

	for _, p := range points {
		lat := int(math.Round(p.Latitude * precision))
		lng := int(math.Round(p.Longitude * precision))

		encodeValue(&sb, lat-prevLat)
		encodeValue(&sb, lng-prevLng)

		prevLat = lat
		prevLng = lng
	}

	return sb.String()
}

func encodeValue(sb *strings.Builder, delta int) {
	value := delta << 1
	if delta < 0 {
		value = ^value
	}

	for value >= 0x20 {
		sb.WriteByte(byte((0x20 | (value & 0x1f)) + 63))
		value >>= 5
	}
	sb.WriteByte(byte(value + 63))
}
