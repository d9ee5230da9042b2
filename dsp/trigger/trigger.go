// Package trigger provides edge detectors for gate and button signals.
//
// A rack control fires once when its signal rises above zero, not for as
// long as it is held. Boolean remembers the previous level so callers only
// feed the current one.
package trigger

// Threshold reports whether v counts as a high level.
func Threshold(v float64) bool {
	return v > 0
}

// Boolean detects false to true transitions of a boolean signal.
//
// The zero value is not ready for use: it would report a rising edge for a
// signal that is already high on the first call. Use NewBoolean.
type Boolean struct {
	state bool
}

// NewBoolean returns a trigger whose remembered level is high, so a control
// held down when processing starts does not fire.
func NewBoolean() Boolean {
	return Boolean{state: true}
}

// Process records state and reports whether it rose from low to high.
func (b *Boolean) Process(state bool) bool {
	triggered := state && !b.state
	b.state = state
	return triggered
}

// ProcessValue is Process applied to Threshold(v).
func (b *Boolean) ProcessValue(v float64) bool {
	return b.Process(Threshold(v))
}

// State returns the remembered level.
func (b *Boolean) State() bool { return b.state }

// Reset restores the initial remembered level.
func (b *Boolean) Reset() {
	b.state = true
}
