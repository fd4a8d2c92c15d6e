package main

import (
	"encoding/json"
	"fmt"
	"os"
)

// ServoConfig defines one servo deployment: gains, loop timing, the
// deadband, and which bus devices carry the sensor and the valve.
type ServoConfig struct {
	Meta    ServoMeta   `json:"meta"`
	Gains   GainsConfig `json:"gains"`
	Loop    LoopConfig  `json:"loop"`
	Devices DeviceNames `json:"devices"`
}

// ServoMeta contains deployment metadata.
type ServoMeta struct {
	Name        string `json:"name"`
	Version     int    `json:"version"`
	Description string `json:"description,omitempty"`
}

// GainsConfig selects the controller type. Mode is "p" or "pi"; Ki is
// ignored in "p" mode.
type GainsConfig struct {
	Mode string  `json:"mode"`
	Kp   float64 `json:"kp"`
	Ki   float64 `json:"ki,omitempty"`
}

// LoopConfig defines loop timing and the actuation deadband.
type LoopConfig struct {
	CycleMS           int     `json:"cycle_ms"`
	DeadbandHalfWidth float64 `json:"deadband_half_width"`
	InitialSetpoint   float64 `json:"initial_setpoint"`
	DiagEveryCycles   uint64  `json:"diag_every_cycles,omitempty"`
}

// DeviceNames binds the loop to bus devices from the bus map.
type DeviceNames struct {
	Sensor string `json:"sensor"`
	Valve  string `json:"valve"`
}

// LoadServoConfig loads and validates a servo config from a JSON file.
func LoadServoConfig(path string) (ServoConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return ServoConfig{}, fmt.Errorf("read file: %w", err)
	}

	var cfg ServoConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return ServoConfig{}, fmt.Errorf("unmarshal: %w", err)
	}

	switch cfg.Gains.Mode {
	case "p", "pi":
	case "":
		return ServoConfig{}, fmt.Errorf("gains.mode is required (\"p\" or \"pi\")")
	default:
		return ServoConfig{}, fmt.Errorf("invalid gains.mode %q (want \"p\" or \"pi\")", cfg.Gains.Mode)
	}
	if cfg.Gains.Kp <= 0 {
		return ServoConfig{}, fmt.Errorf("invalid kp: %f", cfg.Gains.Kp)
	}
	if cfg.Gains.Mode == "pi" && cfg.Gains.Ki <= 0 {
		return ServoConfig{}, fmt.Errorf("pi mode requires ki > 0, got %f", cfg.Gains.Ki)
	}

	if cfg.Loop.CycleMS <= 0 {
		return ServoConfig{}, fmt.Errorf("invalid cycle_ms: %d", cfg.Loop.CycleMS)
	}
	if cfg.Loop.DeadbandHalfWidth < 0 {
		return ServoConfig{}, fmt.Errorf("invalid deadband_half_width: %f", cfg.Loop.DeadbandHalfWidth)
	}
	if cfg.Loop.InitialSetpoint < 0 || cfg.Loop.InitialSetpoint > 1 {
		return ServoConfig{}, fmt.Errorf("initial_setpoint %f outside [0,1]", cfg.Loop.InitialSetpoint)
	}
	if cfg.Loop.DiagEveryCycles == 0 {
		cfg.Loop.DiagEveryCycles = 100
	}

	if cfg.Devices.Sensor == "" {
		return ServoConfig{}, fmt.Errorf("devices.sensor is required")
	}
	if cfg.Devices.Valve == "" {
		return ServoConfig{}, fmt.Errorf("devices.valve is required")
	}

	return cfg, nil
}

// ControlGains converts the config into controller gains.
func (g GainsConfig) ControlGains() ControlGains {
	if g.Mode == "pi" {
		return PIGains(g.Kp, g.Ki)
	}
	return PGains(g.Kp)
}
