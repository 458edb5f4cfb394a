// Package presence tracks the latest known position per connected session.
package presence

import (
	"sync"
	"time"

	"github.com/lifeline-dev/lifeline/internal/model/track"
)

// Service is the in-memory presence registry. Each session holds exactly
// one sample; updates overwrite in place.
type Service struct {
	mu        sync.RWMutex
	positions map[string]track.PositionSample
}

// NewService bootstraps an empty registry.
func NewService() *Service {
	return &Service{positions: make(map[string]track.PositionSample)}
}

// Update stores the sample for the session, creating the entry if absent.
// A missing status defaults to track.DefaultStatus and a missing capture
// time is stamped on receipt.
func (s *Service) Update(sessionID string, sample track.PositionSample) {
	if sample.Status == "" {
		sample.Status = track.DefaultStatus
	}
	if sample.ObservedAt.IsZero() {
		sample.ObservedAt = time.Now().UTC()
	}

	s.mu.Lock()
	s.positions[sessionID] = sample
	s.mu.Unlock()
}

// Remove deletes the session's entry. Called on disconnect.
func (s *Service) Remove(sessionID string) {
	s.mu.Lock()
	delete(s.positions, sessionID)
	s.mu.Unlock()
}

// Snapshot returns a copy of every stored sample except the excluded
// session's own. Used to catch up a newly connected session.
func (s *Service) Snapshot(excludeID string) map[string]track.PositionSample {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]track.PositionSample, len(s.positions))
	for id, sample := range s.positions {
		if id == excludeID {
			continue
		}
		out[id] = sample
	}
	return out
}
