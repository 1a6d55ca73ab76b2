// Package services orchestrates the feed pipeline (fetch, normalize,
// aggregate, publish), route planning with incident correlation, and the
// assistant prompt assembly.
package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/safewalk/server/internal/lib/hotspot"
	"github.com/safewalk/server/internal/lib/incident"
)

// FeedFetcher retrieves the current raw incident page.
type FeedFetcher interface {
	FetchCalls(ctx context.Context) ([]incident.RawIncident, error)
}

// Snapshot is the immutable result of one normalization pass. A refresh
// never mutates a published snapshot; it replaces the reference atomically,
// so concurrent readers always see a consistent pass.
type Snapshot struct {
	Incidents     []incident.Incident
	Hotspots      hotspot.Result
	HasFutureData bool
	FetchedAt     time.Time
}

// IncidentService owns the feed-side pipeline and the latest snapshot.
type IncidentService struct {
	feed   FeedFetcher
	loc    *time.Location
	logger *zap.Logger
	now    func() time.Time

	snapshot atomic.Pointer[Snapshot]
}

// NewIncidentService creates the service. loc is the dataset's local time
// for the feed's zone-less timestamps; nil means UTC. The clock is
// time.Now; tests override it through SetClock.
func NewIncidentService(feed FeedFetcher, loc *time.Location, logger *zap.Logger) *IncidentService {
	return &IncidentService{
		feed:   feed,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}
}

// SetClock injects the normalization clock.
func (s *IncidentService) SetClock(now func() time.Time) {
	s.now = now
}

// Refresh runs one pipeline pass: fetch, normalize, aggregate, publish. On
// any failure the previously published snapshot stays available, stale but
// valid, and the error is returned for the scheduler to log.
func (s *IncidentService) Refresh(ctx context.Context) error {
	raws, err := s.feed.FetchCalls(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	incidents := incident.Normalize(now, s.loc, raws)
	if future := incident.HasFutureData(incidents); future {
		s.logger.Warn("feed contains future-dated records, likely test data",
			zap.Int("total", len(incidents)))
	}

	snap := &Snapshot{
		Incidents:     incidents,
		Hotspots:      hotspot.Aggregate(incidents),
		HasFutureData: incident.HasFutureData(incidents),
		FetchedAt:     now,
	}
	s.snapshot.Store(snap)

	s.logger.Info("published incident snapshot",
		zap.Int("raw", len(raws)),
		zap.Int("incidents", len(incidents)),
		zap.Int("hotspots", len(snap.Hotspots.Cells)))

	return nil
}

// Snapshot returns the latest published snapshot, or nil before the first
// successful refresh. The returned value must be treated as read-only.
func (s *IncidentService) Snapshot() *Snapshot {
	return s.snapshot.Load()
}

// The three output shapes of the incidents endpoint.

// CallsPayload is the incidents-only shape.
type CallsPayload struct {
	Calls      []incident.Incident `json:"calls"`
	TotalCalls int                 `json:"totalCalls"`
}

// HotspotsPayload is the hotspots-only shape.
type HotspotsPayload struct {
	Hotspots      []hotspot.Cell `json:"hotspots"`
	MaxCount      int            `json:"maxCount"`
	TotalHotspots int            `json:"totalHotspots"`
}

// FullPayload is the combined snapshot shape.
type FullPayload struct {
	Calls         []incident.Incident `json:"calls"`
	Hotspots      []hotspot.Cell      `json:"hotspots"`
	MaxCount      int                 `json:"maxCount"`
	TotalCalls    int                 `json:"totalCalls"`
	TotalHotspots int                 `json:"totalHotspots"`
	HasFutureData bool                `json:"hasFutureData"`
}

// Calls shapes the snapshot as an incidents-only payload.
func (s *Snapshot) Calls() CallsPayload {
	return CallsPayload{Calls: s.Incidents, TotalCalls: len(s.Incidents)}
}

// HotspotCells shapes the snapshot as a hotspots-only payload.
func (s *Snapshot) HotspotCells() HotspotsPayload {
	return HotspotsPayload{
		Hotspots:      s.Hotspots.Cells,
		MaxCount:      s.Hotspots.MaxCount,
		TotalHotspots: len(s.Hotspots.Cells),
	}
}

// Full shapes the snapshot as the combined payload.
func (s *Snapshot) Full() FullPayload {
	return FullPayload{
		Calls:         s.Incidents,
		Hotspots:      s.Hotspots.Cells,
		MaxCount:      s.Hotspots.MaxCount,
		TotalCalls:    len(s.Incidents),
		TotalHotspots: len(s.Hotspots.Cells),
		HasFutureData: s.HasFutureData,
	}
}
