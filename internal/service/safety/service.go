// Package safety implements the dead-man's-switch: a per-session countdown
// that raises an SOS-grade alert unless the user checks in or stops it
// before the deadline.
package safety

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/rs/zerolog"

	"github.com/lifeline-dev/lifeline/internal/service/audit"
)

// ErrInvalidDuration rejects non-positive countdown lengths.
var ErrInvalidDuration = errors.New("timer duration must be positive")

// StopResult distinguishes stopping a live timer from stopping nothing.
type StopResult string

const (
	// Stopped means a running timer was cancelled before its deadline.
	Stopped StopResult = "stopped"
	// NoTimer means the session had no running timer. Not an error.
	NoTimer StopResult = "no_timer"
)

// AlertFunc is invoked when a timer expires without an intervening stop or
// check-in. It runs on a background goroutine.
type AlertFunc func(sessionID string)

// Timer is the bookkeeping for one running countdown.
type Timer struct {
	SessionID string
	Duration  time.Duration
	Deadline  time.Time
}

// Service manages at most one running timer per session. Expiry scheduling
// is delegated to a ttlcache instance; the running table under mu is the
// authoritative state, checked again at fire time so that a stop racing an
// in-flight expiry yields exactly one of the two audit records.
type Service struct {
	mu      sync.Mutex
	running map[string]Timer

	schedule *ttlcache.Cache[string, Timer]
	audit    *audit.Logger
	alert    AlertFunc
	log      zerolog.Logger
}

// NewService wires the manager to the audit recorder and the expiry alert
// callback, and starts the scheduling goroutine.
func NewService(auditLog *audit.Logger, alert AlertFunc, log zerolog.Logger) *Service {
	s := &Service{
		running: make(map[string]Timer),
		audit:   auditLog,
		alert:   alert,
		log:     log.With().Str("component", "safety").Logger(),
	}

	s.schedule = ttlcache.New(
		ttlcache.WithDisableTouchOnHit[string, Timer](),
	)
	s.schedule.OnEviction(func(_ context.Context, reason ttlcache.EvictionReason, item *ttlcache.Item[string, Timer]) {
		if reason != ttlcache.EvictionReasonExpired {
			return
		}
		// Off the cache's goroutine: expire takes s.mu while other paths
		// hold s.mu and call into the cache.
		go s.expire(item.Key())
	})
	go s.schedule.Start()

	return s
}

// Start begins (or restarts) the countdown for a session. A running timer
// for the same session is replaced outright, so its old deadline can never
// fire: re-starting is the normal check-in action.
func (s *Service) Start(sessionID string, d time.Duration) (Timer, error) {
	if d <= 0 {
		return Timer{}, ErrInvalidDuration
	}

	t := Timer{
		SessionID: sessionID,
		Duration:  d,
		Deadline:  time.Now().Add(d),
	}

	s.mu.Lock()
	s.running[sessionID] = t
	s.schedule.Set(sessionID, t, d)
	s.mu.Unlock()

	s.audit.Record(sessionID, fmt.Sprintf("TIMER_START: %g mins", d.Minutes()))
	s.log.Info().Str("session", sessionID).Dur("duration", d).Msg("safety timer started")
	return t, nil
}

// Stop cancels the session's running timer. Stopping when nothing runs
// returns NoTimer and writes no audit record.
func (s *Service) Stop(sessionID string) StopResult {
	s.mu.Lock()
	_, ok := s.running[sessionID]
	if !ok {
		s.mu.Unlock()
		return NoTimer
	}
	delete(s.running, sessionID)
	s.schedule.Delete(sessionID)
	s.mu.Unlock()

	s.audit.Record(sessionID, "TIMER_STOPPED: SAFE")
	s.log.Info().Str("session", sessionID).Msg("safety timer stopped")
	return Stopped
}

// Running reports the session's current timer, if any.
func (s *Service) Running(sessionID string) (Timer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.running[sessionID]
	return t, ok
}

// Close stops the scheduling goroutine. Running timers will no longer fire.
func (s *Service) Close() {
	s.schedule.Stop()
}

// expire finalizes a deadline that elapsed with no stop or check-in. The
// running table decides: if the entry is already gone the timer was
// stopped or replaced just in time and nothing fires.
func (s *Service) expire(sessionID string) {
	s.mu.Lock()
	t, ok := s.running[sessionID]
	if !ok || time.Now().Before(t.Deadline) {
		// Stopped, or already replaced by a fresh check-in.
		s.mu.Unlock()
		return
	}
	delete(s.running, sessionID)
	s.mu.Unlock()

	s.audit.Record(sessionID, "TIMER_EXPIRED: SOS TRIGGERED")
	s.log.Warn().Str("session", sessionID).Msg("safety timer expired, raising alert")
	if s.alert != nil {
		s.alert(sessionID)
	}
}
