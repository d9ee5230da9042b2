package matrix

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// ErrInvalidAlgorithm is returned when an algorithm value is out of range.
var ErrInvalidAlgorithm = errors.New("matrix: invalid algorithm")

// MuteAlgorithm selects how a row or column toggle rewrites its cells.
// The zero value is not a valid algorithm.
type MuteAlgorithm int

const (
	// MuteForce copies the toggled line's state into all of its cells.
	MuteForce MuteAlgorithm = iota + 1
	// MuteFlipFlop inverts every cell of the toggled line, ignoring the
	// remembered row and column states.
	MuteFlipFlop
	// MuteIntersection enables a cell only while both its row and its
	// column are enabled.
	MuteIntersection
)

// Valid reports whether a is one of the defined algorithms.
func (a MuteAlgorithm) Valid() bool {
	return a >= MuteForce && a <= MuteIntersection
}

// Next returns the algorithm selected by one press of the algorithm button.
func (a MuteAlgorithm) Next() MuteAlgorithm {
	if a >= MuteIntersection || !a.Valid() {
		return MuteForce
	}
	return a + 1
}

func (a MuteAlgorithm) String() string {
	switch a {
	case MuteForce:
		return "force"
	case MuteFlipFlop:
		return "flip-flop"
	case MuteIntersection:
		return "intersection"
	default:
		return fmt.Sprintf("MuteAlgorithm(%d)", int(a))
	}
}

// apply returns the new state of a cell on a toggled line. line is the
// toggled row or column state, cross the state of the crossing line.
func (a MuteAlgorithm) apply(cell, line, cross bool) bool {
	switch a {
	case MuteForce:
		return line
	case MuteIntersection:
		return line && cross
	default:
		return !cell
	}
}

// AmplitudeAlgorithm selects how a summed output is scaled.
type AmplitudeAlgorithm int

const (
	// AmplitudeDucking divides the sum by the number of contributing inputs.
	AmplitudeDucking AmplitudeAlgorithm = iota
	// AmplitudeHardClip clamps the sum to ±ClipVoltage (10 Vpp).
	AmplitudeHardClip
	// AmplitudeNone leaves the sum untouched.
	AmplitudeNone
)

// ClipVoltage is the hard clip limit.
const ClipVoltage = 5.0

// Valid reports whether a is one of the defined algorithms.
func (a AmplitudeAlgorithm) Valid() bool {
	return a >= AmplitudeDucking && a <= AmplitudeNone
}

func (a AmplitudeAlgorithm) String() string {
	switch a {
	case AmplitudeDucking:
		return "ducking"
	case AmplitudeHardClip:
		return "hard-clip"
	case AmplitudeNone:
		return "none"
	default:
		return fmt.Sprintf("AmplitudeAlgorithm(%d)", int(a))
	}
}

// apply scales sum, the total of n contributing inputs.
func (a AmplitudeAlgorithm) apply(sum float64, n int) float64 {
	switch a {
	case AmplitudeDucking:
		if n > 1 {
			return sum / float64(n)
		}
		return sum
	case AmplitudeHardClip:
		return core.Clamp(sum, -ClipVoltage, ClipVoltage)
	default:
		return sum
	}
}

// ParseMuteAlgorithm maps a name returned by MuteAlgorithm.String back to
// its value.
func ParseMuteAlgorithm(name string) (MuteAlgorithm, error) {
	for a := MuteForce; a <= MuteIntersection; a++ {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: mute algorithm %q", ErrInvalidAlgorithm, name)
}

// ParseAmplitudeAlgorithm maps a name returned by AmplitudeAlgorithm.String
// back to its value.
func ParseAmplitudeAlgorithm(name string) (AmplitudeAlgorithm, error) {
	for a := AmplitudeDucking; a <= AmplitudeNone; a++ {
		if a.String() == name {
			return a, nil
		}
	}
	return 0, fmt.Errorf("%w: amplitude algorithm %q", ErrInvalidAlgorithm, name)
}
