package matrix

import (
	"encoding/json"
	"fmt"

	"github.com/cwbudde/algo-vecmath"

	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/dsp/trigger"
)

// Size is the number of inputs, outputs, rows and columns.
const Size = 4

// Cells is the number of routing cells, indexed row*Size+col.
const Cells = Size * Size

// Gain control range.
const (
	MinGain     = 0.0
	MaxGain     = 1.0
	DefaultGain = 0.5
)

// algorithmLights is the number of algorithm indicators on the panel. The
// last one has no algorithm behind it and stays dark.
const algorithmLights = 4

// Params holds the control values read on every tick.
type Params struct {
	Gain      [Size][Size]float64 // [row][col], [MinGain, MaxGain]
	RowMute   [Size]float64       // row buttons
	ColMute   [Size]float64       // column buttons
	Algorithm float64             // mute algorithm button
}

// DefaultParams returns the panel defaults: every gain at DefaultGain and
// all buttons released.
func DefaultParams() Params {
	var p Params
	for r := range Size {
		for c := range Size {
			p.Gain[r][c] = DefaultGain
		}
	}
	return p
}

// Ports is the host-owned jack and light storage of the mixer.
//
// Button and CV values are summed before edge detection, so either can
// toggle a line.
type Ports struct {
	In          [Size]rack.Input
	RowCV       [Size]rack.Input
	ColCV       [Size]rack.Input
	AlgorithmCV rack.Input
	Out         [Size]rack.Output

	CellLights      [Cells]float64
	RowLights       [Size]float64
	ColLights       [Size]float64
	AlgorithmLights [algorithmLights]float64
}

// Mixer is a 4x4 routing matrix mixer.
//
// Mixer is not safe for concurrent use.
type Mixer struct {
	routing [Cells]bool
	rows    [Size]bool // true while the row is enabled
	cols    [Size]bool // true while the column is enabled

	muteAlgorithm      MuteAlgorithm
	amplitudeAlgorithm AmplitudeAlgorithm

	rowTriggers [Size]trigger.Boolean
	colTriggers [Size]trigger.Boolean
	algoTrigger trigger.Boolean

	// scratch for one output row
	routed   [Size]float64
	weighted [Size]float64
}

var _ rack.Module = (*Mixer)(nil)

// New returns a mixer with every cell, row and column enabled, the force
// mute algorithm and ducking amplitude.
func New() *Mixer {
	m := &Mixer{
		muteAlgorithm:      MuteForce,
		amplitudeAlgorithm: AmplitudeDucking,
	}
	m.Reset()
	return m
}

// Reset enables every cell, row and column. The selected algorithms are
// kept.
func (m *Mixer) Reset() {
	for i := range m.routing {
		m.routing[i] = true
	}
	for i := range Size {
		m.rows[i] = true
		m.cols[i] = true
		m.rowTriggers[i] = trigger.NewBoolean()
		m.colTriggers[i] = trigger.NewBoolean()
	}
	m.algoTrigger = trigger.NewBoolean()
}

// Cell reports whether input col is routed to output row.
func (m *Mixer) Cell(row, col int) bool { return m.routing[row*Size+col] }

// RowEnabled reports the remembered state of a row.
func (m *Mixer) RowEnabled(row int) bool { return m.rows[row] }

// ColEnabled reports the remembered state of a column.
func (m *Mixer) ColEnabled(col int) bool { return m.cols[col] }

// MuteAlgorithm returns the active mute algorithm.
func (m *Mixer) MuteAlgorithm() MuteAlgorithm { return m.muteAlgorithm }

// AmplitudeAlgorithm returns the active amplitude algorithm.
func (m *Mixer) AmplitudeAlgorithm() AmplitudeAlgorithm { return m.amplitudeAlgorithm }

// SetMuteAlgorithm selects the mute algorithm.
func (m *Mixer) SetMuteAlgorithm(a MuteAlgorithm) error {
	if !a.Valid() {
		return fmt.Errorf("%w: mute algorithm %d", ErrInvalidAlgorithm, int(a))
	}
	m.muteAlgorithm = a
	return nil
}

// SetAmplitudeAlgorithm selects the amplitude algorithm. It is a settings
// menu choice and has no panel control.
func (m *Mixer) SetAmplitudeAlgorithm(a AmplitudeAlgorithm) error {
	if !a.Valid() {
		return fmt.Errorf("%w: amplitude algorithm %d", ErrInvalidAlgorithm, int(a))
	}
	m.amplitudeAlgorithm = a
	return nil
}

// Process advances the mixer by one tick: toggles first, then audio, then
// lights, so a toggle is heard and shown on the tick it arrives. Reading the
// buttons after audio would delay every toggle by one tick; this order is
// deliberate.
func (m *Mixer) Process(_ rack.ProcessArgs, p Params, ports *Ports) {
	m.processToggles(p, ports)
	m.mix(p, ports)
	m.writeLights(ports)
}

func (m *Mixer) processToggles(p Params, ports *Ports) {
	if m.algoTrigger.ProcessValue(p.Algorithm + voltage(ports.AlgorithmCV)) {
		m.muteAlgorithm = m.muteAlgorithm.Next()
	}

	for row := range Size {
		if m.rowTriggers[row].ProcessValue(p.RowMute[row] + voltage(ports.RowCV[row])) {
			m.ToggleRow(row)
		}
	}

	for col := range Size {
		if m.colTriggers[col].ProcessValue(p.ColMute[col] + voltage(ports.ColCV[col])) {
			m.ToggleCol(col)
		}
	}
}

// ToggleRow flips the remembered state of row and rewrites its cells with
// the active mute algorithm.
func (m *Mixer) ToggleRow(row int) {
	m.rows[row] = !m.rows[row]
	for col := range Size {
		i := row*Size + col
		m.routing[i] = m.muteAlgorithm.apply(m.routing[i], m.rows[row], m.cols[col])
	}
}

// ToggleCol flips the remembered state of col and rewrites its cells with
// the active mute algorithm.
func (m *Mixer) ToggleCol(col int) {
	m.cols[col] = !m.cols[col]
	for row := range Size {
		i := row*Size + col
		m.routing[i] = m.muteAlgorithm.apply(m.routing[i], m.cols[col], m.rows[row])
	}
}

func (m *Mixer) mix(p Params, ports *Ports) {
	for row := range Size {
		if !ports.Out[row].Connected {
			continue
		}

		n := 0
		for col := range Size {
			if ports.In[col].Connected && m.routing[row*Size+col] {
				m.routed[col] = ports.In[col].Voltage
				n++
			} else {
				m.routed[col] = 0
			}
		}

		vecmath.MulBlock(m.weighted[:], m.routed[:], p.Gain[row][:])

		sum := 0.0
		for _, v := range m.weighted {
			sum += v
		}

		ports.Out[row].Voltage = m.amplitudeAlgorithm.apply(sum, n)
	}
}

func (m *Mixer) writeLights(ports *Ports) {
	for i, on := range m.routing {
		ports.CellLights[i] = rack.Brightness(on)
	}
	for i := range Size {
		ports.RowLights[i] = rack.Brightness(m.rows[i])
		ports.ColLights[i] = rack.Brightness(m.cols[i])
	}
	for i := range algorithmLights {
		ports.AlgorithmLights[i] = rack.Brightness(int(m.muteAlgorithm) == i+1)
	}
}

func voltage(in rack.Input) float64 {
	if !in.Connected {
		return 0
	}
	return in.Voltage
}

type record struct {
	Leds               []bool `json:"leds"`
	Rows               []bool `json:"rows"`
	Cols               []bool `json:"cols"`
	AmplitudeAlgorithm *int   `json:"amplitudeAlgorithm"`
	MuteAlgorithm      *int   `json:"muteAlgorithm"`
}

// MarshalJSON persists the routing matrix, the remembered row and column
// states and both algorithm selections.
func (m *Mixer) MarshalJSON() ([]byte, error) {
	amp := int(m.amplitudeAlgorithm)
	mute := int(m.muteAlgorithm)

	return json.Marshal(record{
		Leds:               m.routing[:],
		Rows:               m.rows[:],
		Cols:               m.cols[:],
		AmplitudeAlgorithm: &amp,
		MuteAlgorithm:      &mute,
	})
}

// UnmarshalJSON restores a persisted mixer. Missing fields, missing array
// elements and out-of-range algorithm values keep the current state.
func (m *Mixer) UnmarshalJSON(data []byte) error {
	var r record
	if err := rack.DecodeRecord(data, &r); err != nil {
		return err
	}

	copy(m.routing[:], r.Leds)
	copy(m.rows[:], r.Rows)
	copy(m.cols[:], r.Cols)

	if r.AmplitudeAlgorithm != nil {
		if a := AmplitudeAlgorithm(*r.AmplitudeAlgorithm); a.Valid() {
			m.amplitudeAlgorithm = a
		}
	}
	if r.MuteAlgorithm != nil {
		if a := MuteAlgorithm(*r.MuteAlgorithm); a.Valid() {
			m.muteAlgorithm = a
		}
	}

	return nil
}
