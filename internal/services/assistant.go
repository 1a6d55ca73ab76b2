package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/safewalk/server/internal/errdefs"
	"github.com/safewalk/server/internal/lib/incident"
)

// Completer generates prose from an assembled prompt.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// AssistantService builds the journey context payload and asks the
// completion service about it.
type AssistantService struct {
	completer Completer
	logger    *zap.Logger
}

// NewAssistantService creates the service.
func NewAssistantService(completer Completer, logger *zap.Logger) *AssistantService {
	return &AssistantService{completer: completer, logger: logger}
}

// AssistantRequest is the journey context the caller supplies: the chosen
// route, its alternatives, the incidents correlated to it, and the question.
type AssistantRequest struct {
	SelectedRoute *RouteContext       `json:"selectedRoute"`
	AllRoutes     []RouteContext      `json:"allRoutes,omitempty"`
	RouteAlerts   []incident.Incident `json:"routeAlerts,omitempty"`
	UserLocation  *Location           `json:"userLocation,omitempty"`
	StartLocation *Location           `json:"startLocation,omitempty"`
	EndLocation   *Location           `json:"endLocation,omitempty"`
	UserQuery     string              `json:"userQuery"`
}

// RouteContext is the route summary shape the assistant consumes.
type RouteContext struct {
	Distance string        `json:"distance"`
	Duration string        `json:"duration"`
	Summary  string        `json:"summary,omitempty"`
	Warnings []string      `json:"warnings,omitempty"`
	Steps    []StepContext `json:"steps,omitempty"`
}

// StepContext is one maneuver in the assistant's route summary.
type StepContext struct {
	Instruction string `json:"instruction"`
	Distance    string `json:"distance"`
}

// Location is a named or bare coordinate.
type Location struct {
	Address string  `json:"address,omitempty"`
	Lat     float64 `json:"lat"`
	Lng     float64 `json:"lng"`
}

func (l *Location) describe() string {
	if l.Address != "" {
		return l.Address
	}
	return fmt.Sprintf("lat: %v, lng: %v", l.Lat, l.Lng)
}

// Ask validates the request, assembles the prompt, and returns the
// completion. Upstream failures come back typed; the delivery layer decides
// whether to show the fallback message.
func (s *AssistantService) Ask(ctx context.Context, req AssistantRequest) (string, error) {
	if req.SelectedRoute == nil || strings.TrimSpace(req.UserQuery) == "" {
		return "", errdefs.New(errdefs.Validation, "assistant", "route and user query are required")
	}

	prompt := BuildPrompt(req)
	s.logger.Debug("assistant prompt assembled",
		zap.Int("prompt_chars", len(prompt)),
		zap.Int("route_alerts", len(req.RouteAlerts)))

	return s.completer.Complete(ctx, prompt)
}

// BuildPrompt assembles the full conversational context: selected route
// details and steps, alternatives, the statistical breakdown of on-route
// incidents by classification, and location context.
func BuildPrompt(req AssistantRequest) string {
	var sb strings.Builder

	start := "their starting point"
	if req.StartLocation != nil && req.StartLocation.Address != "" {
		start = req.StartLocation.Address
	}
	end := "their destination"
	if req.EndLocation != nil && req.EndLocation.Address != "" {
		end = req.EndLocation.Address
	}

	sb.WriteString("You are a friendly and helpful navigation assistant for SafeWalk, ")
	sb.WriteString("a safety-focused navigation app in San Francisco.\n\n")
	fmt.Fprintf(&sb, "You're having a conversation with a user who is planning a journey from %s to %s.\n\n", start, end)

	writeRouteDetails(&sb, *req.SelectedRoute)
	writeAlternatives(&sb, req.AllRoutes)
	writeAlerts(&sb, req.RouteAlerts)
	writeLocations(&sb, req)

	fmt.Fprintf(&sb, "\nUser query: %q\n\n", req.UserQuery)

	sb.WriteString("Respond in a conversational, friendly manner as if you're having a chat with the user. ")
	sb.WriteString("Don't just summarize information. Engage with them directly, ask follow-up questions when appropriate, ")
	sb.WriteString("show empathy, and provide personalized advice based on their specific situation.\n\n")
	sb.WriteString("If the user is asking about route alternatives or safety, compare the available routes and recommend ")
	sb.WriteString("the safest option based on the information provided. Consider factors like distance, duration, and ")
	sb.WriteString("proximity to 911 calls.\n\n")
	sb.WriteString("When discussing 911 reports, focus on incidents within the 0.2 mile radius of the route. ")
	sb.WriteString("Cover the number and types of reports, when they occurred, where they sit relative to the route, ")
	sb.WriteString("any clusters that might indicate higher-risk areas, and safety recommendations based on the data.\n\n")
	sb.WriteString("IMPORTANT: Format your response using Markdown syntax. Use headings, bullet points, and bold text ")
	sb.WriteString("to make your response clear and readable.")

	return sb.String()
}

func writeRouteDetails(sb *strings.Builder, route RouteContext) {
	fmt.Fprintf(sb, "Selected Route: %s, %s", route.Distance, route.Duration)
	if route.Summary != "" {
		fmt.Fprintf(sb, "\nRoute Summary: %s", route.Summary)
	}
	if len(route.Warnings) > 0 {
		fmt.Fprintf(sb, "\nWarnings: %s", strings.Join(route.Warnings, ", "))
	}
	if len(route.Steps) > 0 {
		sb.WriteString("\n\nRoute Steps:\n")
		for i, step := range route.Steps {
			fmt.Fprintf(sb, "%d. %s (%s)\n", i+1, step.Instruction, step.Distance)
		}
	}
	sb.WriteString("\n")
}

func writeAlternatives(sb *strings.Builder, routes []RouteContext) {
	if len(routes) <= 1 {
		return
	}
	sb.WriteString("\nAlternative Routes Available:\n")
	for i, route := range routes {
		fmt.Fprintf(sb, "Route %d: %s, %s", i+1, route.Distance, route.Duration)
		if len(route.Warnings) > 0 {
			fmt.Fprintf(sb, " (Warnings: %s)", strings.Join(route.Warnings, ", "))
		}
		sb.WriteString("\n")
	}
}

func writeAlerts(sb *strings.Builder, alerts []incident.Incident) {
	if len(alerts) == 0 {
		sb.WriteString("\nNo 911 reports within 0.2 mile radius of this route.\n")
		return
	}

	// Group by classification for the statistical breakdown.
	byType := make(map[string][]incident.Incident)
	var typeOrder []string
	for _, alert := range alerts {
		kind := alert.Classification
		if kind == "" {
			kind = "Unknown"
		}
		if _, seen := byType[kind]; !seen {
			typeOrder = append(typeOrder, kind)
		}
		byType[kind] = append(byType[kind], alert)
	}

	summaries := make([]string, 0, len(typeOrder))
	for _, kind := range typeOrder {
		summaries = append(summaries, fmt.Sprintf("%s: %d reports", kind, len(byType[kind])))
	}

	sb.WriteString("\n911 Reports Within 0.2 Mile Radius of the Route:\n")
	fmt.Fprintf(sb, "Total Reports: %d\n", len(alerts))
	fmt.Fprintf(sb, "Report Types: %s\n\n", strings.Join(summaries, ", "))

	sb.WriteString("Detailed 911 Reports:\n")
	for i, alert := range alerts {
		parts := make([]string, 0, 4)
		if alert.Classification != "" {
			parts = append(parts, fmt.Sprintf("Type: %s", alert.Classification))
		}
		if alert.DisplayRecency != "" {
			parts = append(parts, fmt.Sprintf("Time: %s", alert.DisplayRecency))
		}
		if alert.Location != "" {
			parts = append(parts, fmt.Sprintf("Location: %s", alert.Location))
		}
		if alert.Priority != "" {
			parts = append(parts, fmt.Sprintf("Priority: %s", alert.Priority))
		}
		fmt.Fprintf(sb, "%d. %s\n", i+1, strings.Join(parts, " | "))
	}
}

func writeLocations(sb *strings.Builder, req AssistantRequest) {
	if req.StartLocation != nil {
		fmt.Fprintf(sb, "\nStart Location: %s", req.StartLocation.describe())
	}
	if req.EndLocation != nil {
		fmt.Fprintf(sb, "\nEnd Location: %s", req.EndLocation.describe())
	}
	if req.UserLocation != nil {
		fmt.Fprintf(sb, "\nUser Current Location: lat: %v, lng: %v", req.UserLocation.Lat, req.UserLocation.Lng)
	}
	if req.StartLocation != nil || req.EndLocation != nil || req.UserLocation != nil {
		sb.WriteString("\n")
	}
}
