// Package incident normalizes raw 911 dispatch records from the city's
// open-data feed into the canonical incident model the aggregator and the
// route correlator consume.
package incident

import (
	"time"

	"github.com/safewalk/server/internal/lib/geo"
)

// RawIncident mirrors the subset of the Socrata dispatch record this system
// consumes. The schema is not owned here; unknown fields are ignored and
// most of these are optional in practice.
type RawIncident struct {
	ID                string        `json:"id"`
	IntersectionPoint *GeoJSONPoint `json:"intersection_point"`
	ReceivedDatetime  string        `json:"received_datetime"`
	EntryDatetime     string        `json:"entry_datetime,omitempty"`
	DispatchDatetime  string        `json:"dispatch_datetime,omitempty"`
	EnrouteDatetime   string        `json:"enroute_datetime,omitempty"`
	IntersectionName  string        `json:"intersection_name,omitempty"`
	CallTypeFinal     string        `json:"call_type_final_desc,omitempty"`
	CallTypeOriginal  string        `json:"call_type_original_desc,omitempty"`
	PriorityFinal     string        `json:"priority_final,omitempty"`
	Agency            string        `json:"agency,omitempty"`
	SensitiveCall     bool          `json:"sensitive_call,omitempty"`
	CadNumber         string        `json:"cad_number,omitempty"`
	OnviewFlag        string        `json:"onview_flag,omitempty"`
}

// GeoJSONPoint is the feed's point geometry: coordinates as [longitude,
// latitude]. Records missing it, or carrying the wrong number of components,
// are excluded during normalization.
type GeoJSONPoint struct {
	Type        string    `json:"type,omitempty"`
	Coordinates []float64 `json:"coordinates"`
}

// Incident is the canonical, normalized public-safety record.
type Incident struct {
	ID                     string    `json:"id"`
	Coordinates            geo.Point `json:"coordinates"`
	ReceivedAt             time.Time `json:"receivedAt"`
	DisplayRecency         string    `json:"time"`
	Location               string    `json:"location"`
	Classification         string    `json:"callType,omitempty"`
	OriginalClassification string    `json:"callTypeOriginal,omitempty"`
	Priority               string    `json:"priority,omitempty"`
	Agency                 string    `json:"agency,omitempty"`
	Sensitive              bool      `json:"sensitive,omitempty"`
	IsFuture               bool      `json:"isFuture"`
}
