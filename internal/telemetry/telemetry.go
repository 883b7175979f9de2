package telemetry

// Environment carries the per-cycle environmental telemetry supplied by the
// host. The decision core never samples hardware itself; callers populate one
// of these before each polling cycle.
type Environment struct {
	BatteryVoltage float64 // volts
	TemperatureC   float64 // degrees Celsius
	LightLevel     float64 // normalized [0,1], 0 = dark
	WeatherActive  bool    // precipitation or high wind reported
	Hour           int     // local hour of day, 0-23
}

// Thresholds define when telemetry values count as degraded conditions.
type Thresholds struct {
	LowBatteryVoltage float64
	MinTemperatureC   float64
	MaxTemperatureC   float64
	LowLightLevel     float64
}

// DefaultThresholds returns the thresholds used when a component is built
// with a zero-value config.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LowBatteryVoltage: 3.4,
		MinTemperatureC:   -10,
		MaxTemperatureC:   45,
		LowLightLevel:     0.2,
	}
}

// BatteryLow reports whether the battery is below the low-voltage threshold.
func (e Environment) BatteryLow(t Thresholds) bool {
	return e.BatteryVoltage > 0 && e.BatteryVoltage < t.LowBatteryVoltage
}

// TemperatureExtreme reports whether temperature is outside the operating band.
func (e Environment) TemperatureExtreme(t Thresholds) bool {
	return e.TemperatureC < t.MinTemperatureC || e.TemperatureC > t.MaxTemperatureC
}

// LightLow reports whether ambient light is below the low-light threshold.
func (e Environment) LightLow(t Thresholds) bool {
	return e.LightLevel < t.LowLightLevel
}
