// Package google provides access to the Google Directions API. The provider
// is treated as a black-box geocoding/directions source returning encoded
// polylines and step lists.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/safewalk/server/internal/errdefs"
)

const stage = "directions"

// Client calls the Directions API over its JSON endpoint.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a Directions API client.
func NewClient(apiKey, baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://maps.googleapis.com"
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// DirectionsRequest carries the caller's routing parameters. Origin and
// destination accept free text: an address or a "lat,lng" pair.
// Alternatives is a pointer so an absent field can be told apart from an
// explicit false and filled from the configured default.
type DirectionsRequest struct {
	Origin       string `json:"origin"`
	Destination  string `json:"destination"`
	Mode         string `json:"mode,omitempty"`
	Alternatives *bool  `json:"alternatives,omitempty"`
}

// Directions fetches one or more candidate routes. A provider response with
// a non-OK status field is an UpstreamRejected carrying the provider's
// message; transport failures are UpstreamUnavailable, deadline overruns
// Timeout.
func (c *Client) Directions(ctx context.Context, dreq DirectionsRequest) (*DirectionsResponse, error) {
	params := url.Values{}
	params.Set("origin", dreq.Origin)
	params.Set("destination", dreq.Destination)
	mode := dreq.Mode
	if mode == "" {
		mode = "walking"
	}
	params.Set("mode", mode)
	if dreq.Alternatives != nil && *dreq.Alternatives {
		params.Set("alternatives", "true")
	}
	params.Set("key", c.apiKey)

	requestURL := fmt.Sprintf("%s/maps/api/directions/json?%s", c.baseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errdefs.Wrap(errdefs.UpstreamUnavailable, stage, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, errdefs.Newf(errdefs.UpstreamUnavailable, stage,
			"provider returned %d: %s", resp.StatusCode, string(body))
	}

	var response DirectionsResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, errdefs.Wrap(errdefs.UpstreamRejected, stage, err)
	}

	if response.Status != "OK" {
		msg := response.ErrorMessage
		if msg == "" {
			msg = response.Status
		}
		return nil, errdefs.New(errdefs.UpstreamRejected, stage, msg)
	}

	return &response, nil
}

// DirectionsResponse is the provider's response envelope.
type DirectionsResponse struct {
	Status       string  `json:"status"`
	ErrorMessage string  `json:"error_message,omitempty"`
	Routes       []Route `json:"routes"`
}

// Route is one candidate route with its encoded overview geometry.
type Route struct {
	Summary          string   `json:"summary"`
	Warnings         []string `json:"warnings"`
	OverviewPolyline Polyline `json:"overview_polyline"`
	Legs             []Leg    `json:"legs"`
}

// Polyline wraps the encoded overview geometry.
type Polyline struct {
	Points string `json:"points"`
}

// Leg is one origin-to-waypoint stretch of a route.
type Leg struct {
	Distance      TextValue `json:"distance"`
	Duration      TextValue `json:"duration"`
	StartAddress  string    `json:"start_address"`
	EndAddress    string    `json:"end_address"`
	StartLocation LatLng    `json:"start_location"`
	EndLocation   LatLng    `json:"end_location"`
	Steps         []Step    `json:"steps"`
}

// Step is one maneuver within a leg.
type Step struct {
	HTMLInstructions string          `json:"html_instructions"`
	Distance         TextValue       `json:"distance"`
	Duration         TextValue       `json:"duration"`
	TravelMode       string          `json:"travel_mode"`
	TransitDetails   *TransitDetails `json:"transit_details,omitempty"`
}

// TransitDetails carries the transit-specific sub-details of a step.
type TransitDetails struct {
	LineName      string `json:"line_name,omitempty"`
	LineShortName string `json:"line_short_name,omitempty"`
	Headsign      string `json:"headsign,omitempty"`
	NumStops      int    `json:"num_stops,omitempty"`
	DepartureStop string `json:"departure_stop,omitempty"`
	ArrivalStop   string `json:"arrival_stop,omitempty"`
}

// UnmarshalJSON flattens the provider's nested transit object into the
// fields this system consumes.
func (t *TransitDetails) UnmarshalJSON(data []byte) error {
	var raw struct {
		Line struct {
			Name      string `json:"name"`
			ShortName string `json:"short_name"`
		} `json:"line"`
		Headsign      string `json:"headsign"`
		NumStops      int    `json:"num_stops"`
		DepartureStop struct {
			Name string `json:"name"`
		} `json:"departure_stop"`
		ArrivalStop struct {
			Name string `json:"name"`
		} `json:"arrival_stop"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	t.LineName = raw.Line.Name
	t.LineShortName = raw.Line.ShortName
	t.Headsign = raw.Headsign
	t.NumStops = raw.NumStops
	t.DepartureStop = raw.DepartureStop.Name
	t.ArrivalStop = raw.ArrivalStop.Name
	return nil
}

// TextValue is the provider's human string plus machine value pair.
type TextValue struct {
	Text  string `json:"text"`
	Value int    `json:"value"`
}

// LatLng is the provider's coordinate shape.
type LatLng struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}
