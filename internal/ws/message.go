package ws

import "time"

// EventMessage is a detection-event broadcast.
type EventMessage struct {
	Type           string    `json:"type"` // "event"
	EventID        string    `json:"event_id"`
	Timestamp      time.Time `json:"timestamp"`
	Method         string    `json:"method"`
	Confidence     float64   `json:"confidence"`
	Motion         bool      `json:"motion"`
	Category       string    `json:"category,omitempty"`
	Likelihood     float64   `json:"likelihood,omitempty"`
	ShouldCapture  bool      `json:"should_capture"`
	ShouldTransmit bool      `json:"should_transmit"`
	ShouldAlert    bool      `json:"should_alert"`
	Bounds         []int     `json:"bounds,omitempty"` // [x, y, w, h]
	Rationale      string    `json:"rationale,omitempty"`
}

// StatusMessage is a periodic pipeline-status broadcast.
type StatusMessage struct {
	Type           string    `json:"type"` // "status"
	Timestamp      time.Time `json:"timestamp"`
	Cycles         uint64    `json:"cycles"`
	Detections     uint64    `json:"detections"`
	Captures       uint64    `json:"captures"`
	Skipped        uint64    `json:"skipped"`
	Faults         uint64    `json:"faults"`
	Activity       string    `json:"activity"`
	BatteryVoltage float64   `json:"battery_voltage"`
	TemperatureC   float64   `json:"temperature_c"`
}

// NewEventMessage creates an event message stamped now.
func NewEventMessage(eventID string) *EventMessage {
	return &EventMessage{
		Type:      "event",
		EventID:   eventID,
		Timestamp: time.Now(),
	}
}

// NewStatusMessage creates a status message stamped now.
func NewStatusMessage() *StatusMessage {
	return &StatusMessage{
		Type:      "status",
		Timestamp: time.Now(),
	}
}
