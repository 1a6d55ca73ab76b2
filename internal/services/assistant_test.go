package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/safewalk/server/internal/errdefs"
	"github.com/safewalk/server/internal/lib/incident"
)

type stubCompleter struct {
	reply  string
	err    error
	prompt string
}

func (s *stubCompleter) Complete(ctx context.Context, prompt string) (string, error) {
	s.prompt = prompt
	return s.reply, s.err
}

func assistantRequest() AssistantRequest {
	return AssistantRequest{
		SelectedRoute: &RouteContext{
			Distance: "1.2 mi",
			Duration: "24 mins",
			Summary:  "Market St",
			Steps: []StepContext{
				{Instruction: "Head north on Market St", Distance: "0.5 mi"},
				{Instruction: "Turn left onto 5th St", Distance: "0.7 mi"},
			},
		},
		UserQuery: "Is this route safe right now?",
	}
}

func TestAssistantService_AskValidates(t *testing.T) {
	svc := NewAssistantService(&stubCompleter{}, zap.NewNop())

	req := assistantRequest()
	req.SelectedRoute = nil
	_, err := svc.Ask(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.Validation))

	req = assistantRequest()
	req.UserQuery = "   "
	_, err = svc.Ask(context.Background(), req)
	require.Error(t, err)
	assert.True(t, errdefs.IsKind(err, errdefs.Validation))
}

func TestAssistantService_AskReturnsCompletion(t *testing.T) {
	completer := &stubCompleter{reply: "## Route Safety\nLooks clear tonight."}
	svc := NewAssistantService(completer, zap.NewNop())

	answer, err := svc.Ask(context.Background(), assistantRequest())
	require.NoError(t, err)
	assert.Equal(t, "## Route Safety\nLooks clear tonight.", answer)
	assert.Contains(t, completer.prompt, "Is this route safe right now?")
}

func TestBuildPrompt_RouteAndSteps(t *testing.T) {
	prompt := BuildPrompt(assistantRequest())

	assert.Contains(t, prompt, "Selected Route: 1.2 mi, 24 mins")
	assert.Contains(t, prompt, "Route Summary: Market St")
	assert.Contains(t, prompt, "1. Head north on Market St (0.5 mi)")
	assert.Contains(t, prompt, "2. Turn left onto 5th St (0.7 mi)")
	assert.Contains(t, prompt, "Markdown")
}

func TestBuildPrompt_Alternatives(t *testing.T) {
	req := assistantRequest()
	req.AllRoutes = []RouteContext{
		{Distance: "1.2 mi", Duration: "24 mins"},
		{Distance: "1.4 mi", Duration: "28 mins", Warnings: []string{"Use caution"}},
	}

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "Alternative Routes Available:")
	assert.Contains(t, prompt, "Route 1: 1.2 mi, 24 mins")
	assert.Contains(t, prompt, "Route 2: 1.4 mi, 28 mins (Warnings: Use caution)")
}

func TestBuildPrompt_AlertsGroupedByType(t *testing.T) {
	req := assistantRequest()
	req.RouteAlerts = []incident.Incident{
		{Classification: "Fight No Weapon", DisplayRecency: "5 mins ago", Location: "Market St \\ 5th St"},
		{Classification: "Auto Boost / Strip", DisplayRecency: "12 mins ago", Location: "Mission St \\ 6th St"},
		{Classification: "Fight No Weapon", DisplayRecency: "30 mins ago", Location: "Market St \\ 4th St", Priority: "A"},
	}

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "Total Reports: 3")
	assert.Contains(t, prompt, "Fight No Weapon: 2 reports")
	assert.Contains(t, prompt, "Auto Boost / Strip: 1 reports")
	assert.Contains(t, prompt, "1. Type: Fight No Weapon | Time: 5 mins ago | Location: Market St \\ 5th St")
	assert.Contains(t, prompt, "Priority: A")
	assert.NotContains(t, prompt, "No 911 reports")
}

func TestBuildPrompt_NoAlerts(t *testing.T) {
	prompt := BuildPrompt(assistantRequest())
	assert.Contains(t, prompt, "No 911 reports within 0.2 mile radius of this route.")
}

func TestBuildPrompt_Locations(t *testing.T) {
	req := assistantRequest()
	req.StartLocation = &Location{Address: "Civic Center, San Francisco"}
	req.EndLocation = &Location{Lat: 37.7955, Lng: -122.3937}
	req.UserLocation = &Location{Lat: 37.78, Lng: -122.41}

	prompt := BuildPrompt(req)
	assert.Contains(t, prompt, "from Civic Center, San Francisco to their destination")
	assert.Contains(t, prompt, "Start Location: Civic Center, San Francisco")
	assert.Contains(t, prompt, "End Location: lat: 37.7955, lng: -122.3937")
	assert.Contains(t, prompt, "User Current Location: lat: 37.78, lng: -122.41")
}
