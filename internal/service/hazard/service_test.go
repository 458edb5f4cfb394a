package hazard_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifeline-dev/lifeline/internal/model/track"
	"github.com/lifeline-dev/lifeline/internal/service/hazard"
)

func TestReportReturnsRunningCount(t *testing.T) {
	svc := hazard.NewService(0)

	assert.Equal(t, 1, svc.Report(track.HazardZone{Lat: 10, Lng: 10, Type: "flood"}))
	assert.Equal(t, 2, svc.Report(track.HazardZone{Lat: 20, Lng: 20, Type: "fire"}))

	// duplicates accumulate, there is no dedup
	assert.Equal(t, 3, svc.Report(track.HazardZone{Lat: 10, Lng: 10, Type: "flood"}))
}

func TestNearbyFiltersByRadius(t *testing.T) {
	svc := hazard.NewService(100)
	svc.Report(track.HazardZone{Lat: 10, Lng: 10, Type: "flood"})
	svc.Report(track.HazardZone{Lat: 11, Lng: 11, Type: "fire"}) // >100km away

	hits := svc.Nearby(10.0001, 10.0001) // ~15m from the flood zone
	require.Len(t, hits, 1)
	assert.Equal(t, "flood", hits[0].Zone.Type)
	assert.InDelta(t, 15.6, hits[0].Distance, 1.0)
}

func TestNearbyEmptyWhenNothingClose(t *testing.T) {
	svc := hazard.NewService(100)
	svc.Report(track.HazardZone{Lat: 50, Lng: 50, Type: "ice"})

	assert.Empty(t, svc.Nearby(10, 10))
}

func TestSnapshotCatchesUpLateSessions(t *testing.T) {
	svc := hazard.NewService(0)
	svc.Report(track.HazardZone{Lat: 10, Lng: 10, Type: "flood"})

	// a session "connecting" after the report still sees the zone
	snap := svc.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, "flood", snap[0].Type)
	assert.False(t, snap[0].ReportedAt.IsZero())

	// and its proximity checks include it too
	require.Len(t, svc.Nearby(10, 10), 1)
}

func TestSnapshotIsACopy(t *testing.T) {
	svc := hazard.NewService(0)
	svc.Report(track.HazardZone{Lat: 10, Lng: 10, Type: "flood"})

	snap := svc.Snapshot()
	snap[0].Type = "tampered"

	assert.Equal(t, "flood", svc.Snapshot()[0].Type)
}
