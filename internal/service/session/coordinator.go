// Package session binds connection lifecycle events to the presence,
// hazard, safety and audit services, and decides the fanout scope of every
// outbound realtime event.
package session

import (
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/lifeline-dev/lifeline/internal/model/track"
	"github.com/lifeline-dev/lifeline/internal/service/audit"
	"github.com/lifeline-dev/lifeline/internal/service/hazard"
	"github.com/lifeline-dev/lifeline/internal/service/presence"
	"github.com/lifeline-dev/lifeline/internal/service/safety"
)

// Outbound event names on the realtime channel.
const (
	EventSyncDangers      = "sync-dangers"
	EventReceiveLocation  = "receive-location"
	EventNewHazard        = "new-hazard"
	EventDangerProximity  = "danger-proximity"
	EventReceiveSOS       = "receive-sos"
	EventReceivePrivate   = "receive-private-location"
	EventUserDisconnected = "user-disconnected"
	EventTimerAlert       = "timer-alert"
)

// TimerAlertMessage is the human-readable text broadcast when a safety
// timer expires.
const TimerAlertMessage = "User Failed to Check-In!"

// Emitter is the fanout capability the coordinator needs from the
// transport. The coordinator never reaches into transport internals.
type Emitter interface {
	SendTo(sessionID, event string, payload any)
	SendToRoom(roomID, event string, payload any, excludeID string)
	BroadcastAll(event string, payload any, excludeID string)
	Join(sessionID, room string)
}

// LocationEvent is the receive-location payload.
type LocationEvent struct {
	ID     string  `json:"id"`
	Lat    float64 `json:"lat"`
	Lng    float64 `json:"lng"`
	Status string  `json:"status,omitempty"`
}

// HazardEvent is the new-hazard payload. Internal fields such as the
// report timestamp stay off the wire.
type HazardEvent struct {
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
	Type string  `json:"type"`
}

// ProximityEvent warns one session that it moved inside a hazard radius.
type ProximityEvent struct {
	Type string `json:"type"`
	Dist int    `json:"dist"`
}

// SOSEvent identifies the session that raised a panic signal.
type SOSEvent struct {
	ID string `json:"id"`
}

// DisconnectEvent identifies a session that left.
type DisconnectEvent struct {
	ID string `json:"id"`
}

// TimerAlertEvent is broadcast when a safety timer expires.
type TimerAlertEvent struct {
	ID  string `json:"id"`
	Msg string `json:"msg"`
}

// Coordinator orchestrates one process worth of live sessions. It owns the
// safety timer manager so that expiry alerts flow back through its fanout
// rules.
type Coordinator struct {
	emitter  Emitter
	presence *presence.Service
	hazards  *hazard.Service
	safety   *safety.Service
	audit    *audit.Logger
	log      zerolog.Logger
}

// NewCoordinator wires the coordinator and its safety timer manager.
func NewCoordinator(emitter Emitter, pres *presence.Service, haz *hazard.Service, auditLog *audit.Logger, log zerolog.Logger) *Coordinator {
	c := &Coordinator{
		emitter:  emitter,
		presence: pres,
		hazards:  haz,
		audit:    auditLog,
		log:      log.With().Str("component", "session").Logger(),
	}
	c.safety = safety.NewService(auditLog, c.timerExpired, log)
	return c
}

// Close stops the safety timer scheduler.
func (c *Coordinator) Close() {
	c.safety.Close()
}

// Connect registers a new session: audits the start and catches the
// session up with the hazard list and everyone else's last known position.
func (c *Coordinator) Connect(sessionID string) {
	c.audit.Record(sessionID, "SESSION_STARTED")
	c.log.Info().Str("session", sessionID).Msg("session started")

	c.emitter.SendTo(sessionID, EventSyncDangers, c.hazards.Snapshot())

	for id, sample := range c.presence.Snapshot(sessionID) {
		c.emitter.SendTo(sessionID, EventReceiveLocation, LocationEvent{
			ID:     id,
			Lat:    sample.Lat,
			Lng:    sample.Lng,
			Status: sample.Status,
		})
	}
}

// Location processes one position sample: stores it, audits it, warns the
// sender about nearby hazards, then broadcasts the position to everyone
// (sender included; every client renders the shared map).
func (c *Coordinator) Location(sessionID string, sample track.PositionSample) error {
	if err := sample.Validate(); err != nil {
		return err
	}
	if sample.Status == "" {
		sample.Status = track.DefaultStatus
	}

	c.presence.Update(sessionID, sample)
	c.audit.Record(sessionID, fmt.Sprintf("LOC: %g, %g | BAT: %s", sample.Lat, sample.Lng, sample.Status))

	for _, hit := range c.hazards.Nearby(sample.Lat, sample.Lng) {
		c.emitter.SendTo(sessionID, EventDangerProximity, ProximityEvent{
			Type: hit.Zone.Type,
			Dist: int(math.Round(hit.Distance)),
		})
	}

	c.emitter.BroadcastAll(EventReceiveLocation, LocationEvent{
		ID:     sessionID,
		Lat:    sample.Lat,
		Lng:    sample.Lng,
		Status: sample.Status,
	}, "")
	return nil
}

// ReportHazard appends a danger zone and announces it to every session.
// Returns the new total count for the reporter's acknowledgement.
func (c *Coordinator) ReportHazard(zone track.HazardZone) (int, error) {
	if err := zone.Validate(); err != nil {
		return 0, err
	}

	count := c.hazards.Report(zone)
	c.log.Warn().Float64("lat", zone.Lat).Float64("lng", zone.Lng).Str("type", zone.Type).Msg("new danger reported")

	c.emitter.BroadcastAll(EventNewHazard, HazardEvent{Lat: zone.Lat, Lng: zone.Lng, Type: zone.Type}, "")
	return count, nil
}

// SOS relays a panic signal to everyone except the sender.
func (c *Coordinator) SOS(sessionID string) {
	c.audit.Record(sessionID, "!!! SOS SIGNAL TRIGGERED !!!")
	c.log.Warn().Str("session", sessionID).Msg("SOS signal")

	c.emitter.BroadcastAll(EventReceiveSOS, SOSEvent{ID: sessionID}, sessionID)
}

// JoinRoom binds the session to a private sharing room.
func (c *Coordinator) JoinRoom(sessionID, room string) {
	if room == "" {
		return
	}
	c.emitter.Join(sessionID, room)
}

// PrivateLocation relays a payload to the members of a room, never back to
// the sender. The sender does not need to be a member.
func (c *Coordinator) PrivateLocation(sessionID, roomID string, data any) {
	if roomID == "" {
		return
	}
	c.emitter.SendToRoom(roomID, EventReceivePrivate, data, sessionID)
}

// StartTimer starts or check-in-restarts the session's safety timer.
func (c *Coordinator) StartTimer(sessionID string, minutes float64) error {
	if minutes <= 0 {
		return safety.ErrInvalidDuration
	}
	_, err := c.safety.Start(sessionID, time.Duration(minutes*float64(time.Minute)))
	return err
}

// StopTimer cancels the session's safety timer if one runs.
func (c *Coordinator) StopTimer(sessionID string) safety.StopResult {
	return c.safety.Stop(sessionID)
}

// Disconnect tears down presence for the session and tells everyone it
// left. A running safety timer is deliberately left alive: a missed
// check-in must still alert even when the connection is gone.
func (c *Coordinator) Disconnect(sessionID string) {
	c.audit.Record(sessionID, "DISCONNECTED")
	c.log.Info().Str("session", sessionID).Msg("session disconnected")

	c.presence.Remove(sessionID)
	c.emitter.BroadcastAll(EventUserDisconnected, DisconnectEvent{ID: sessionID}, sessionID)
}

// timerExpired is the safety manager's alert callback; the expiry is
// safety-critical so it goes to every connected session.
func (c *Coordinator) timerExpired(sessionID string) {
	c.emitter.BroadcastAll(EventTimerAlert, TimerAlertEvent{ID: sessionID, Msg: TimerAlertMessage}, "")
}
