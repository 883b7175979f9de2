package sensor

import (
	"fmt"
	"sync"
)

// TriggerInput abstracts one edge-triggered binary input line (typically a
// PIR sensor on a GPIO pin). Implementations must invoke the armed callback
// from interrupt context, so the callback does no work beyond setting flags.
type TriggerInput interface {
	// Arm installs the edge callback. Calling Arm again replaces it.
	Arm(edge func()) error

	// Disarm removes the edge callback.
	Disarm()

	// ArmWake configures the line as a deep-sleep wake source.
	ArmWake() error

	// Pin returns the hardware pin number backing this input.
	Pin() int
}

// MemoryInput is an in-process TriggerInput used by the simulator and tests.
// Trigger fires the armed edge callback synchronously.
type MemoryInput struct {
	mu    sync.Mutex
	pin   int
	edge  func()
	armed bool
	wake  bool
}

// NewMemoryInput creates a memory-backed input for the given pin number.
func NewMemoryInput(pin int) *MemoryInput {
	return &MemoryInput{pin: pin}
}

func (m *MemoryInput) Arm(edge func()) error {
	if edge == nil {
		return fmt.Errorf("nil edge callback for pin %d", m.pin)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edge = edge
	m.armed = true
	return nil
}

func (m *MemoryInput) Disarm() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.edge = nil
	m.armed = false
}

func (m *MemoryInput) ArmWake() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.wake = true
	return nil
}

func (m *MemoryInput) Pin() int { return m.pin }

// WakeArmed reports whether the input was configured as a wake source.
func (m *MemoryInput) WakeArmed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.wake
}

// Trigger simulates one rising edge on the line.
func (m *MemoryInput) Trigger() {
	m.mu.Lock()
	edge := m.edge
	m.mu.Unlock()
	if edge != nil {
		edge()
	}
}
