// Package http exposes the aggregator over a small JSON API: the incident
// snapshot, route planning, and the journey assistant.
package http

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/safewalk/server/internal/clients/google"
	"github.com/safewalk/server/internal/errdefs"
	"github.com/safewalk/server/internal/services"
)

// IncidentSource serves the latest snapshot and can refresh on demand.
type IncidentSource interface {
	Snapshot() *services.Snapshot
	Refresh(ctx context.Context) error
}

// RoutePlanner plans candidate routes with correlated incidents.
type RoutePlanner interface {
	Plan(ctx context.Context, req google.DirectionsRequest) (*services.RoutePlan, error)
}

// Assistant answers journey questions.
type Assistant interface {
	Ask(ctx context.Context, req services.AssistantRequest) (string, error)
}

// Handler carries the HTTP handlers and their dependencies.
type Handler struct {
	incidents IncidentSource
	routes    RoutePlanner
	assistant Assistant
	fallback  string
	logger    *zap.Logger
}

// NewHandler creates the handler set. fallback is the assistant's canned
// reply when the completion upstream is unavailable.
func NewHandler(incidents IncidentSource, routes RoutePlanner, assistant Assistant, fallback string, logger *zap.Logger) *Handler {
	return &Handler{
		incidents: incidents,
		routes:    routes,
		assistant: assistant,
		fallback:  fallback,
		logger:    logger,
	}
}

// HealthCheck reports liveness and the age of the current snapshot.
func (h *Handler) HealthCheck(c *fiber.Ctx) error {
	resp := fiber.Map{
		"status":  "ok",
		"service": "safewalk-server",
	}
	if snap := h.incidents.Snapshot(); snap != nil {
		resp["snapshotAgeSeconds"] = int(time.Since(snap.FetchedAt).Seconds())
		resp["totalCalls"] = len(snap.Incidents)
	}
	return c.JSON(resp)
}

// GetIncidents serves the latest snapshot. The format query selects the
// shape: full (default), calls, or hotspots. If no snapshot exists yet, one
// inline refresh is attempted before giving up.
func (h *Handler) GetIncidents(c *fiber.Ctx) error {
	snap := h.incidents.Snapshot()
	if snap == nil {
		if err := h.incidents.Refresh(c.Context()); err != nil {
			h.logger.Error("inline refresh failed with no snapshot available", zap.Error(err))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "incident data is not available yet",
			})
		}
		snap = h.incidents.Snapshot()
	}

	// Anything other than the two narrow shapes falls through to the full
	// payload.
	switch c.Query("format", "full") {
	case "calls":
		return c.JSON(snap.Calls())
	case "hotspots":
		return c.JSON(snap.HotspotCells())
	default:
		return c.JSON(snap.Full())
	}
}

// PlanRoutes plans directions between two places and returns every
// candidate route with its nearby incidents.
func (h *Handler) PlanRoutes(c *fiber.Ctx) error {
	var req google.DirectionsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	plan, err := h.routes.Plan(c.Context(), req)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(plan)
}

// AskAssistant answers a journey question. When the completion upstream is
// down the canned fallback is returned with a 200 so the client can still
// show something useful.
func (h *Handler) AskAssistant(c *fiber.Ctx) error {
	var req services.AssistantRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	answer, err := h.assistant.Ask(c.Context(), req)
	if err != nil {
		if errdefs.IsKind(err, errdefs.Validation) {
			return h.writeError(c, err)
		}
		h.logger.Warn("assistant upstream failed, serving fallback", zap.Error(err))
		return c.JSON(fiber.Map{"response": h.fallback})
	}
	return c.JSON(fiber.Map{"response": answer})
}

// writeError maps a typed error onto an HTTP status and a JSON body. The
// upstream's own message is surfaced for rejections so the client sees why
// the provider said no.
func (h *Handler) writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch errdefs.KindOf(err) {
	case errdefs.Validation, errdefs.UpstreamRejected:
		status = fiber.StatusBadRequest
	case errdefs.UpstreamUnavailable:
		status = fiber.StatusServiceUnavailable
	case errdefs.Timeout:
		status = fiber.StatusGatewayTimeout
	case errdefs.FeedFormat, errdefs.PolylineDecode:
		status = fiber.StatusBadGateway
	}

	if status >= 500 {
		h.logger.Error("request failed", zap.Int("status", status), zap.Error(err))
	}

	msg := err.Error()
	var typed *errdefs.Error
	if errors.As(err, &typed) && typed.Msg != "" {
		msg = typed.Msg
	}
	return c.Status(status).JSON(fiber.Map{"error": msg})
}
