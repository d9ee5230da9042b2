package mute

import (
	"encoding/json"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/dsp/trigger"
)

// Channels is the number of gated pass-throughs.
const Channels = 2

// rampEpsilon absorbs accumulated rounding of the per-tick time steps so a
// ramp of n whole ticks completes on tick n.
const rampEpsilon = 1e-9

// Ports is the host-owned jack and light storage of the gate.
type Ports struct {
	In    [Channels]rack.Input
	Out   [Channels]rack.Output
	Light float64
}

// Gate is a dual-channel mute with linear fade ramps.
//
// Gate starts silent (StateLow). It writes an output only when both the
// channel's input and output are connected. While silent it writes 0 V.
//
// Gate is not safe for concurrent use.
type Gate struct {
	state   State
	elapsed float64 // seconds into the current ramp
	gain    float64
	light   float64

	muteTrigger trigger.Boolean
}

var _ rack.Module = (*Gate)(nil)

// New returns a silent gate.
func New() *Gate {
	g := &Gate{}
	g.Reset()
	return g
}

// Reset returns the gate to the silent state and forgets ramp progress.
func (g *Gate) Reset() {
	g.state = StateLow
	g.elapsed = 0
	g.gain = 0
	g.light = rack.LightOff
	g.muteTrigger = trigger.NewBoolean()
}

// State returns the current gate phase.
func (g *Gate) State() State { return g.state }

// Elapsed returns the time in seconds accumulated in the current ramp.
func (g *Gate) Elapsed() float64 { return g.elapsed }

// Gain returns the gain applied on the most recent tick.
func (g *Gate) Gain() float64 { return g.gain }

// Process advances the gate by one tick.
func (g *Gate) Process(args rack.ProcessArgs, p Params, ports *Ports) {
	up := p.RampUpTime()
	down := p.RampDownTime()

	if g.muteTrigger.ProcessValue(p.Mute) {
		g.toggle(up, down)
	}

	switch g.state {
	case StateHigh:
		g.light = rack.LightOn
		g.gain = 1
	case StateLow:
		g.gain = 0
	case StateRampUp:
		g.elapsed += args.SampleTime
		if g.elapsed >= up-rampEpsilon {
			g.elapsed = up
			g.state = StateHigh
			g.gain = 1
		} else {
			g.gain = core.Fraction(g.elapsed, up)
		}
	case StateRampDown:
		g.elapsed -= args.SampleTime
		if g.elapsed <= rampEpsilon {
			g.elapsed = 0
			g.state = StateLow
			g.gain = 0
		} else {
			g.gain = core.Fraction(g.elapsed, down)
		}
	}

	for ch := range Channels {
		if ports.In[ch].Connected && ports.Out[ch].Connected {
			ports.Out[ch].Voltage = ports.In[ch].Voltage * g.gain
		}
	}

	ports.Light = g.light
}

// toggle starts or reverses a ramp. A running ramp hands its completed
// fraction over to the opposite ramp.
func (g *Gate) toggle(up, down float64) {
	switch g.state {
	case StateHigh:
		g.state = StateRampDown
		g.elapsed = down
		g.light = rack.LightOff
	case StateRampUp:
		g.state = StateRampDown
		g.elapsed = down * (g.elapsed / up)
		g.light = rack.LightOff
	case StateLow:
		g.state = StateRampUp
		g.elapsed = 0
		g.light = rack.LightOn
	case StateRampDown:
		g.state = StateRampUp
		g.elapsed = up * (g.elapsed / down)
		g.light = rack.LightOn
	}
}

type record struct {
	State *int `json:"state"`
}

// MarshalJSON persists whether the gate is open. Ramp progress is dropped.
func (g *Gate) MarshalJSON() ([]byte, error) {
	v := 0
	if g.state.Open() {
		v = 1
	}
	return json.Marshal(record{State: &v})
}

// UnmarshalJSON restores a persisted gate. A stored 1 resumes fully open,
// anything else resumes silent. A record without a state field leaves the
// gate untouched.
func (g *Gate) UnmarshalJSON(data []byte) error {
	var r record
	if err := rack.DecodeRecord(data, &r); err != nil {
		return err
	}
	if r.State == nil {
		return nil
	}

	g.elapsed = 0
	if *r.State == 1 {
		g.state = StateHigh
		g.gain = 1
		g.light = rack.LightOn
	} else {
		g.state = StateLow
		g.gain = 0
		g.light = rack.LightOff
	}

	return nil
}
