// Package track defines the wire and registry types for live position
// sharing and hazard reporting.
package track

import (
	"time"

	"github.com/lifeline-dev/lifeline/internal/model/geo"
)

// DefaultStatus is assumed when a client omits the status tag.
const DefaultStatus = "OK"

// PositionSample is the latest known position of one session. Overwritten
// in place on every update; no history is retained.
type PositionSample struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Status     string    `json:"status,omitempty"`
	ObservedAt time.Time `json:"observedAt,omitempty"`
}

// Validate checks the coordinates without touching status or timestamps.
func (p PositionSample) Validate() error {
	return geo.Validate(p.Lat, p.Lng)
}

// HazardZone is a reported danger point. Append-only for the lifetime of
// the process; zones are never mutated or removed once reported.
type HazardZone struct {
	Lat        float64   `json:"lat"`
	Lng        float64   `json:"lng"`
	Type       string    `json:"type"`
	ReportedAt time.Time `json:"reportedAt,omitempty"`
}

// Validate checks the coordinates of the reported zone.
func (z HazardZone) Validate() error {
	return geo.Validate(z.Lat, z.Lng)
}

// Proximity pairs a hazard zone with the distance from a checked position.
type Proximity struct {
	Zone     HazardZone
	Distance float64
}
