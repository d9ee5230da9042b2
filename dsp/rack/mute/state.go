package mute

import "math"

// State is the phase of the gate.
type State int

const (
	// StateHigh passes both channels at unity gain.
	StateHigh State = iota
	// StateLow silences both channels.
	StateLow
	// StateRampUp fades from silence towards unity gain.
	StateRampUp
	// StateRampDown fades from unity gain towards silence.
	StateRampDown
)

func (s State) String() string {
	switch s {
	case StateHigh:
		return "high"
	case StateLow:
		return "low"
	case StateRampUp:
		return "ramp-up"
	case StateRampDown:
		return "ramp-down"
	default:
		return "unknown"
	}
}

// Open reports whether the gate is passing or ramping towards passing.
// This is the only part of the state that gets persisted.
func (s State) Open() bool {
	return s == StateHigh || s == StateRampUp
}

// Scale multiplies a base fade time.
type Scale int

// Available fade time multipliers.
const (
	Scale1   Scale = 1
	Scale10  Scale = 10
	Scale100 Scale = 100
)

// ScaleFromControl maps a 0-2 selector position to its multiplier by
// rounding to the nearest step. Positions outside the selector fall back
// to x1.
func ScaleFromControl(v float64) Scale {
	switch int(math.Round(v)) {
	case 1:
		return Scale10
	case 2:
		return Scale100
	default:
		return Scale1
	}
}
