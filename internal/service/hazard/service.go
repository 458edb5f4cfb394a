// Package hazard stores reported danger zones and answers proximity
// queries against live positions.
package hazard

import (
	"sync"
	"time"

	"github.com/lifeline-dev/lifeline/internal/model/geo"
	"github.com/lifeline-dev/lifeline/internal/model/track"
)

// DefaultRadiusMeters is the proximity alert threshold when none is
// configured.
const DefaultRadiusMeters = 100

// Service is the in-memory hazard registry. The zone list is append-only:
// duplicates accumulate and nothing expires for the lifetime of the
// process.
type Service struct {
	mu     sync.RWMutex
	zones  []track.HazardZone
	radius float64
}

// NewService creates a registry with the given alert radius in meters.
// A non-positive radius falls back to DefaultRadiusMeters.
func NewService(radiusMeters float64) *Service {
	if radiusMeters <= 0 {
		radiusMeters = DefaultRadiusMeters
	}
	return &Service{radius: radiusMeters}
}

// Report appends the zone, stamping ReportedAt, and returns the new total
// count.
func (s *Service) Report(zone track.HazardZone) int {
	if zone.ReportedAt.IsZero() {
		zone.ReportedAt = time.Now().UTC()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.zones = append(s.zones, zone)
	return len(s.zones)
}

// Nearby returns every stored zone within the alert radius of the given
// point, in insertion order, paired with its distance in meters.
func (s *Service) Nearby(lat, lng float64) []track.Proximity {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []track.Proximity
	for _, zone := range s.zones {
		dist := geo.Distance(lat, lng, zone.Lat, zone.Lng)
		if dist < s.radius {
			hits = append(hits, track.Proximity{Zone: zone, Distance: dist})
		}
	}
	return hits
}

// Snapshot returns a copy of the full zone list, used to catch up newly
// connected sessions.
func (s *Service) Snapshot() []track.HazardZone {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]track.HazardZone, len(s.zones))
	copy(out, s.zones)
	return out
}
