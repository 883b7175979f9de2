package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "wildcam.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate())
	return s
}

func sampleEvent(id string, at time.Time) *DetectionEventRecord {
	return &DetectionEventRecord{
		ID:         id,
		Timestamp:  at,
		Method:     "ai-hybrid",
		Confidence: 0.82,
		Adjustment: 1.15,
		Motion:     true,
		Captured:   true,
		Category:   "large-mammal",
		Likelihood: 0.95,
		Bounds:     BoundsRecord{X: 40, Y: 60, Width: 200, Height: 180},
		Rationale:  "presence and analysis agree",
		ProcessMs:  42.5,
	}
}

func TestEventRoundTrip(t *testing.T) {
	s := testStore(t)
	at := time.Date(2026, 6, 15, 6, 30, 0, 0, time.UTC)

	require.NoError(t, s.SaveEvent(sampleEvent("ev-1", at)))

	got, err := s.GetEvent("ev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "ai-hybrid", got.Method)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
	assert.True(t, got.Motion)
	assert.True(t, got.Captured)
	assert.False(t, got.Transmitted)
	assert.Equal(t, BoundsRecord{X: 40, Y: 60, Width: 200, Height: 180}, got.Bounds)
	assert.True(t, got.Timestamp.Equal(at))
}

func TestGetEventMissingReturnsNil(t *testing.T) {
	s := testStore(t)

	got, err := s.GetEvent("nope")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestSaveEventUpsertUpdatesDeliveryFlags(t *testing.T) {
	s := testStore(t)
	at := time.Date(2026, 6, 15, 6, 30, 0, 0, time.UTC)
	ev := sampleEvent("ev-1", at)
	require.NoError(t, s.SaveEvent(ev))

	ev.Transmitted = true
	ev.Alerted = true
	require.NoError(t, s.SaveEvent(ev))

	got, err := s.GetEvent("ev-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, got.Transmitted)
	assert.True(t, got.Alerted)
}

func TestListEventsFiltersAndOrders(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 6, 15, 6, 0, 0, 0, time.UTC)

	for i, cat := range []string{"large-mammal", "vegetation", "large-mammal"} {
		ev := sampleEvent("ev-"+cat+string(rune('a'+i)), base.Add(time.Duration(i)*time.Hour))
		ev.Category = cat
		require.NoError(t, s.SaveEvent(ev))
	}

	all, err := s.ListEvents("", nil, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	// Newest first.
	assert.True(t, all[0].Timestamp.After(all[1].Timestamp))

	mammals, err := s.ListEvents("large-mammal", nil, 0)
	require.NoError(t, err)
	assert.Len(t, mammals, 2)

	since := base.Add(90 * time.Minute)
	recent, err := s.ListEvents("", &since, 0)
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	limited, err := s.ListEvents("", nil, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestDeleteOldEvents(t *testing.T) {
	s := testStore(t)
	base := time.Date(2026, 6, 15, 6, 0, 0, 0, time.UTC)

	require.NoError(t, s.SaveEvent(sampleEvent("old", base)))
	require.NoError(t, s.SaveEvent(sampleEvent("new", base.Add(24*time.Hour))))

	n, err := s.DeleteOldEvents(base.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := s.GetEvent("new")
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestZoneStatUpsert(t *testing.T) {
	s := testStore(t)
	z := &ZoneStatRecord{
		ZoneID:        2,
		Name:          "north trail",
		Detections:    5,
		AvgConfidence: 0.7,
		LastDetection: time.Date(2026, 6, 15, 6, 0, 0, 0, time.UTC),
	}
	require.NoError(t, s.SaveZoneStat(z))

	z.Detections = 9
	z.FalsePositives = 1
	require.NoError(t, s.SaveZoneStat(z))

	stats, err := s.ListZoneStats()
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, uint64(9), stats[0].Detections)
	assert.Equal(t, uint64(1), stats[0].FalsePositives)
	assert.Equal(t, "north trail", stats[0].Name)
}

func TestPatternRoundTrip(t *testing.T) {
	s := testStore(t)

	require.NoError(t, s.SavePattern(&LearnedPatternRecord{
		Category:  "large-mammal",
		Exemplars: `[{"Speed":4}]`,
		Observed:  3,
	}))
	require.NoError(t, s.SavePattern(&LearnedPatternRecord{
		Category:  "small-bird",
		Exemplars: `[]`,
		Observed:  7,
	}))

	patterns, err := s.ListPatterns()
	require.NoError(t, err)
	require.Len(t, patterns, 2)
	// Most observed first.
	assert.Equal(t, "small-bird", patterns[0].Category)
	assert.Equal(t, uint64(7), patterns[0].Observed)
}
