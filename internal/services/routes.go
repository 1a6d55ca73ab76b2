package services

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/safewalk/server/internal/clients/google"
	"github.com/safewalk/server/internal/errdefs"
	"github.com/safewalk/server/internal/lib/geo"
	"github.com/safewalk/server/internal/lib/incident"
	"github.com/safewalk/server/internal/lib/polyline"
	"github.com/safewalk/server/internal/lib/routing"
)

// DirectionsProvider fetches candidate routes from the mapping provider.
type DirectionsProvider interface {
	Directions(ctx context.Context, req google.DirectionsRequest) (*google.DirectionsResponse, error)
}

// SnapshotSource exposes the latest incident snapshot.
type SnapshotSource interface {
	Snapshot() *Snapshot
}

// RouteService plans routes and decorates each candidate with the incidents
// near it. Correlation is recomputed per request against the latest
// snapshot; routes are ephemeral per session and never cached.
type RouteService struct {
	provider   DirectionsProvider
	snapshots  SnapshotSource
	correlator *routing.Correlator
	logger     *zap.Logger

	defaultMode         string
	defaultAlternatives bool
}

// NewRouteService creates the service.
func NewRouteService(provider DirectionsProvider, snapshots SnapshotSource, correlator *routing.Correlator, logger *zap.Logger) *RouteService {
	return &RouteService{
		provider:   provider,
		snapshots:  snapshots,
		correlator: correlator,
		logger:     logger,
	}
}

// SetTravelDefaults sets the travel mode and alternatives flag applied to
// requests that don't specify them.
func (s *RouteService) SetTravelDefaults(mode string, alternatives bool) {
	s.defaultMode = mode
	s.defaultAlternatives = alternatives
}

// RoutePlan is the planning result: all candidate routes, each complete
// with decoded geometry and nearby incidents. Either the whole set is
// returned or the request fails; no partial routes.
type RoutePlan struct {
	Routes []PlannedRoute `json:"routes"`
}

// PlannedRoute is one candidate route ready for presentation.
type PlannedRoute struct {
	Summary         string              `json:"summary,omitempty"`
	Distance        string              `json:"distance"`
	Duration        string              `json:"duration"`
	DistanceMeters  int                 `json:"distanceMeters"`
	DurationSeconds int                 `json:"durationSeconds"`
	StartAddress    string              `json:"startAddress,omitempty"`
	EndAddress      string              `json:"endAddress,omitempty"`
	StartLocation   geo.Point           `json:"startLocation"`
	EndLocation     geo.Point           `json:"endLocation"`
	Warnings        []string            `json:"warnings,omitempty"`
	Steps           []RouteStep         `json:"steps"`
	EncodedPolyline string              `json:"encodedPolyline"`
	Path            []geo.Point         `json:"path"`
	Alerts          []incident.Incident `json:"alerts"`
}

// RouteStep is one maneuver along a planned route.
type RouteStep struct {
	Instruction string                 `json:"instruction"`
	Distance    string                 `json:"distance"`
	Duration    string                 `json:"duration"`
	TravelMode  string                 `json:"travelMode,omitempty"`
	Transit     *google.TransitDetails `json:"transit,omitempty"`
}

// Plan validates the request, fetches directions, decodes each route's
// geometry, and correlates each route against the latest snapshot. A decode
// failure on any route fails the whole request.
func (s *RouteService) Plan(ctx context.Context, req google.DirectionsRequest) (*RoutePlan, error) {
	if strings.TrimSpace(req.Origin) == "" || strings.TrimSpace(req.Destination) == "" {
		return nil, errdefs.New(errdefs.Validation, "directions", "origin and destination are required")
	}

	if strings.TrimSpace(req.Mode) == "" {
		req.Mode = s.defaultMode
	}
	if req.Alternatives == nil {
		alternatives := s.defaultAlternatives
		req.Alternatives = &alternatives
	}

	resp, err := s.provider.Directions(ctx, req)
	if err != nil {
		return nil, err
	}

	var incidents []incident.Incident
	if snap := s.snapshots.Snapshot(); snap != nil {
		incidents = snap.Incidents
	}

	plan := &RoutePlan{Routes: make([]PlannedRoute, 0, len(resp.Routes))}
	for _, route := range resp.Routes {
		planned, err := s.planRoute(route, incidents)
		if err != nil {
			return nil, err
		}
		plan.Routes = append(plan.Routes, planned)
	}

	s.logger.Info("planned routes",
		zap.Int("routes", len(plan.Routes)),
		zap.Int("incidents_considered", len(incidents)))

	return plan, nil
}

func (s *RouteService) planRoute(route google.Route, incidents []incident.Incident) (PlannedRoute, error) {
	path, err := polyline.Decode(route.OverviewPolyline.Points)
	if err != nil {
		return PlannedRoute{}, err
	}

	planned := PlannedRoute{
		Summary:         route.Summary,
		Warnings:        route.Warnings,
		EncodedPolyline: route.OverviewPolyline.Points,
		Path:            path,
		Steps:           make([]RouteStep, 0),
		Alerts:          s.correlator.AlertsNearRoute(path, incidents),
	}

	for _, leg := range route.Legs {
		planned.DistanceMeters += leg.Distance.Value
		planned.DurationSeconds += leg.Duration.Value
		for _, step := range leg.Steps {
			planned.Steps = append(planned.Steps, RouteStep{
				Instruction: stripHTML(step.HTMLInstructions),
				Distance:    step.Distance.Text,
				Duration:    step.Duration.Text,
				TravelMode:  step.TravelMode,
				Transit:     step.TransitDetails,
			})
		}
	}

	// Single-leg routes (no waypoints) carry the provider's display text
	// directly; multi-leg totals fall back to the first leg's phrasing.
	if len(route.Legs) > 0 {
		first := route.Legs[0]
		planned.Distance = first.Distance.Text
		planned.Duration = first.Duration.Text
		planned.StartAddress = first.StartAddress
		planned.EndAddress = route.Legs[len(route.Legs)-1].EndAddress
		planned.StartLocation = geo.Point{Latitude: first.StartLocation.Lat, Longitude: first.StartLocation.Lng}
		last := route.Legs[len(route.Legs)-1]
		planned.EndLocation = geo.Point{Latitude: last.EndLocation.Lat, Longitude: last.EndLocation.Lng}
	}

	return planned, nil
}

// stripHTML drops the provider's markup from instruction text, keeping the
// words. Good enough for <b> and <div> wrappers; not a general parser.
func stripHTML(s string) string {
	var sb strings.Builder
	inTag := false
	for _, r := range s {
		switch {
		case r == '<':
			inTag = true
		case r == '>':
			inTag = false
		case !inTag:
			sb.WriteRune(r)
		}
	}
	return strings.TrimSpace(sb.String())
}
