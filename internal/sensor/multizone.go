package sensor

import (
	"fmt"
	"sort"
	"time"
)

// ZoneConfig describes one independently configured presence-sensing channel.
type ZoneConfig struct {
	ID          int
	Name        string
	Input       TriggerInput
	Sensitivity float64 // [0,1]
	Priority    int     // 0 = most urgent
}

// ZoneStats holds the per-zone counters mutated each polling cycle.
type ZoneStats struct {
	Detections     uint64
	FalsePositives uint64
	LastDetection  time.Time
	AvgConfidence  float64
	Active         bool
}

// Zone is one presence channel owned by the aggregator.
type Zone struct {
	ID          int
	Name        string
	Sensitivity float64
	Priority    int
	Enabled     bool

	sensor *PresenceSensor
	stats  ZoneStats
}

// Stats returns a copy of the zone's counters. False positives come from the
// underlying sensor's suppression counter.
func (z *Zone) Stats() ZoneStats {
	s := z.stats
	s.FalsePositives = z.sensor.Stats().Suppressed
	return s
}

// MultiZoneResult is the aggregate of one polling pass over all zones.
type MultiZoneResult struct {
	Motion            bool
	ActiveZones       []int
	OverallConfidence float64
	HighestPriority   int // zone ID, -1 when no zone is active
	Timestamp         time.Time
}

// MultiZone owns a set of presence zones and merges their triggers into one
// weighted confidence. All mutation happens on the polling goroutine.
type MultiZone struct {
	zones map[int]*Zone
	now   func() time.Time
}

// NewMultiZone creates an empty aggregator.
func NewMultiZone() *MultiZone {
	return &MultiZone{
		zones: make(map[int]*Zone),
		now:   time.Now,
	}
}

// AddZone registers and initializes a new zone. Duplicate IDs and missing
// inputs are rejected with no partial mutation.
func (m *MultiZone) AddZone(cfg ZoneConfig) error {
	if _, exists := m.zones[cfg.ID]; exists {
		return fmt.Errorf("zone %d already configured", cfg.ID)
	}
	if cfg.Input == nil {
		return fmt.Errorf("zone %d: no input configured", cfg.ID)
	}
	if cfg.Priority < 0 {
		return fmt.Errorf("zone %d: negative priority", cfg.ID)
	}

	ps := NewPresenceSensor(cfg.Input, PresenceConfig{
		Pin:         cfg.Input.Pin(),
		Sensitivity: cfg.Sensitivity,
	})
	if err := ps.Initialize(); err != nil {
		return err
	}

	m.zones[cfg.ID] = &Zone{
		ID:          cfg.ID,
		Name:        cfg.Name,
		Sensitivity: ps.Sensitivity(),
		Priority:    cfg.Priority,
		Enabled:     true,
		sensor:      ps,
	}
	return nil
}

// RemoveZone destroys a zone. Removing an unknown zone is an error.
func (m *MultiZone) RemoveZone(id int) error {
	z, ok := m.zones[id]
	if !ok {
		return fmt.Errorf("zone %d not configured", id)
	}
	z.sensor.input.Disarm()
	delete(m.zones, id)
	return nil
}

// SetZoneEnabled toggles one zone.
func (m *MultiZone) SetZoneEnabled(id int, enabled bool) error {
	z, ok := m.zones[id]
	if !ok {
		return fmt.Errorf("zone %d not configured", id)
	}
	z.Enabled = enabled
	z.sensor.SetEnabled(enabled)
	return nil
}

// Zone returns a configured zone by ID.
func (m *MultiZone) Zone(id int) (*Zone, bool) {
	z, ok := m.zones[id]
	return z, ok
}

// ZoneCount returns the number of configured zones.
func (m *MultiZone) ZoneCount() int { return len(m.zones) }

// ZoneIDs returns the configured zone IDs in ascending order.
func (m *MultiZone) ZoneIDs() []int {
	ids := make([]int, 0, len(m.zones))
	for id := range m.zones {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// DetectMotion polls every enabled zone and merges triggers into one
// weighted confidence. Zone weight is 1/(priority+1); the overall confidence
// is the weight-normalized sum of active-zone sensitivities. With no
// configured or active zones the result carries zero confidence.
func (m *MultiZone) DetectMotion() MultiZoneResult {
	now := m.now()
	result := MultiZoneResult{HighestPriority: -1, Timestamp: now}

	var weightSum, weighted float64
	bestPriority := int(^uint(0) >> 1)

	ids := make([]int, 0, len(m.zones))
	for id := range m.zones {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	for _, id := range ids {
		z := m.zones[id]
		if !z.Enabled {
			z.stats.Active = false
			continue
		}
		if !z.sensor.HasMotion() {
			z.stats.Active = false
			continue
		}

		z.stats.Active = true
		z.stats.Detections++
		z.stats.LastDetection = now

		confidence := z.Sensitivity
		if z.stats.Detections == 1 {
			z.stats.AvgConfidence = confidence
		} else {
			z.stats.AvgConfidence = z.stats.AvgConfidence*0.9 + confidence*0.1
		}

		w := 1.0 / float64(z.Priority+1)
		weightSum += w
		weighted += confidence * w
		result.ActiveZones = append(result.ActiveZones, id)

		if z.Priority < bestPriority {
			bestPriority = z.Priority
			result.HighestPriority = id
		}
	}

	if len(result.ActiveZones) == 0 || weightSum == 0 {
		return result
	}

	result.Motion = true
	result.OverallConfidence = clamp01(weighted / weightSum)
	return result
}
