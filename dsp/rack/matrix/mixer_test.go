package matrix

import (
	"encoding/json"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/cwbudde/algo-rack/dsp/rack"
)

var args = rack.ProcessArgs{SampleRate: 48000, SampleTime: 1.0 / 48000}

func allConnected(in ...float64) *Ports {
	p := &Ports{}
	for i, v := range in {
		p.In[i] = rack.Input{Voltage: v, Connected: true}
	}
	for i := range Size {
		p.Out[i].Connected = true
	}
	return p
}

// pressRow releases and then presses a row button, one tick each.
func pressRow(m *Mixer, row int, ports *Ports) {
	p := DefaultParams()
	m.Process(args, p, ports)
	p.RowMute[row] = 1
	m.Process(args, p, ports)
}

func pressCol(m *Mixer, col int, ports *Ports) {
	p := DefaultParams()
	m.Process(args, p, ports)
	p.ColMute[col] = 1
	m.Process(args, p, ports)
}

func requireRow(t *testing.T, m *Mixer, row int, want [Size]bool) {
	t.Helper()
	for col := range Size {
		if m.Cell(row, col) != want[col] {
			t.Fatalf("cell(%d,%d) = %v, want %v", row, col, m.Cell(row, col), want[col])
		}
	}
}

func TestNewDefaults(t *testing.T) {
	m := New()
	for row := range Size {
		requireRow(t, m, row, [Size]bool{true, true, true, true})
		if !m.RowEnabled(row) || !m.ColEnabled(row) {
			t.Fatalf("line %d not enabled", row)
		}
	}
	if m.MuteAlgorithm() != MuteForce {
		t.Fatalf("MuteAlgorithm() = %v, want force", m.MuteAlgorithm())
	}
	if m.AmplitudeAlgorithm() != AmplitudeDucking {
		t.Fatalf("AmplitudeAlgorithm() = %v, want ducking", m.AmplitudeAlgorithm())
	}
}

func TestAlgorithmButtonCycles(t *testing.T) {
	m := New()
	ports := allConnected()
	p := DefaultParams()
	m.Process(args, p, ports)

	want := []MuteAlgorithm{MuteFlipFlop, MuteIntersection, MuteForce, MuteFlipFlop}
	for i, w := range want {
		p.Algorithm = 1
		m.Process(args, p, ports)
		m.Process(args, p, ports) // held, must not advance again
		p.Algorithm = 0
		m.Process(args, p, ports)

		if m.MuteAlgorithm() != w {
			t.Fatalf("press %d: MuteAlgorithm() = %v, want %v", i, m.MuteAlgorithm(), w)
		}
	}
}

func TestAlgorithmCVAdvances(t *testing.T) {
	m := New()
	ports := allConnected()
	p := DefaultParams()
	m.Process(args, p, ports)

	ports.AlgorithmCV = rack.Input{Voltage: 10, Connected: true}
	m.Process(args, p, ports)

	if m.MuteAlgorithm() != MuteFlipFlop {
		t.Fatalf("MuteAlgorithm() = %v, want flip-flop", m.MuteAlgorithm())
	}
	if ports.AlgorithmLights[1] != 0.9 || ports.AlgorithmLights[0] != 0 || ports.AlgorithmLights[3] != 0 {
		t.Fatalf("AlgorithmLights = %v", ports.AlgorithmLights)
	}
}

func TestRowCVCombinesWithButton(t *testing.T) {
	m := New()
	ports := allConnected()
	p := DefaultParams()
	m.Process(args, p, ports)

	// A negative CV cancels the pressed button.
	p.RowMute[1] = 1
	ports.RowCV[1] = rack.Input{Voltage: -1, Connected: true}
	m.Process(args, p, ports)
	if !m.RowEnabled(1) {
		t.Fatal("row toggled although button + CV stayed at 0")
	}

	ports.RowCV[1].Connected = false
	m.Process(args, p, ports)
	if m.RowEnabled(1) {
		t.Fatal("row did not toggle once the CV was unplugged")
	}
}

func TestForceRowIgnoresColumns(t *testing.T) {
	m := New()
	ports := allConnected()

	pressCol(m, 2, ports)
	requireRow(t, m, 0, [Size]bool{true, true, false, true})

	pressRow(m, 0, ports)
	requireRow(t, m, 0, [Size]bool{false, false, false, false})

	pressRow(m, 0, ports)
	requireRow(t, m, 0, [Size]bool{true, true, true, true})

	if m.ColEnabled(2) {
		t.Fatal("column 2 should still be remembered as muted")
	}
	requireRow(t, m, 1, [Size]bool{true, true, false, true})
}

func TestForceColumn(t *testing.T) {
	m := New()
	ports := allConnected()

	pressCol(m, 3, ports)
	for row := range Size {
		if m.Cell(row, 3) {
			t.Fatalf("cell(%d,3) still enabled", row)
		}
	}
	if ports.ColLights[3] != 0 || ports.ColLights[0] != 0.9 {
		t.Fatalf("ColLights = %v", ports.ColLights)
	}
}

func TestFlipFlopIsHistoryDependent(t *testing.T) {
	m := New()
	ports := allConnected()

	pressRow(m, 0, ports) // force: row 0 off
	if err := m.SetMuteAlgorithm(MuteFlipFlop); err != nil {
		t.Fatalf("SetMuteAlgorithm() error = %v", err)
	}

	pressCol(m, 0, ports)
	if !m.Cell(0, 0) {
		t.Fatal("flip-flop should re-enable cell(0,0) although row 0 is muted")
	}
	if m.Cell(1, 0) {
		t.Fatal("flip-flop should disable cell(1,0)")
	}

	pressRow(m, 0, ports)
	requireRow(t, m, 0, [Size]bool{false, true, true, true})
	if !m.RowEnabled(0) {
		t.Fatal("row 0 remembered state should flip back to enabled")
	}
}

func TestFlipFlopTwiceRestores(t *testing.T) {
	m := New()
	_ = m.SetMuteAlgorithm(MuteFlipFlop)
	ports := allConnected()

	pressRow(m, 2, ports)
	pressCol(m, 1, ports)
	pressCol(m, 1, ports)
	pressRow(m, 2, ports)

	for row := range Size {
		requireRow(t, m, row, [Size]bool{true, true, true, true})
	}
}

func TestIntersectionMatchesLineStates(t *testing.T) {
	m := New()
	_ = m.SetMuteAlgorithm(MuteIntersection)
	rng := rand.New(rand.NewPCG(7, 11))

	for step := range 200 {
		line := rng.IntN(Size)
		if rng.IntN(2) == 0 {
			m.ToggleRow(line)
		} else {
			m.ToggleCol(line)
		}

		for row := range Size {
			for col := range Size {
				want := m.RowEnabled(row) && m.ColEnabled(col)
				if m.Cell(row, col) != want {
					t.Fatalf("step %d: cell(%d,%d) = %v, want %v", step, row, col, m.Cell(row, col), want)
				}
			}
		}
	}
}

func TestToggleHeardOnSameTick(t *testing.T) {
	m := New()
	ports := allConnected(1, 1, 1, 1)
	pressRow(m, 0, ports)

	if ports.Out[0].Voltage != 0 {
		t.Fatalf("out[0] = %v, want 0 on the tick the row is muted", ports.Out[0].Voltage)
	}
	if ports.RowLights[0] != 0 || ports.CellLights[0] != 0 || ports.CellLights[4] != 0.9 {
		t.Fatalf("lights not updated: row=%v cells=%v", ports.RowLights, ports.CellLights)
	}
}

func TestMixDuckingFourInputs(t *testing.T) {
	m := New()
	ports := allConnected(10, 10, 10, 10)
	m.Process(args, DefaultParams(), ports)

	for row := range Size {
		if ports.Out[row].Voltage != 5 {
			t.Fatalf("out[%d] = %v, want 5", row, ports.Out[row].Voltage)
		}
	}
}

func TestMix(t *testing.T) {
	unity := DefaultParams()
	for r := range Size {
		for c := range Size {
			unity.Gain[r][c] = 1
		}
	}

	tests := []struct {
		name string
		algo AmplitudeAlgorithm
		in   []float64
		p    Params
		want float64
	}{
		{"ducking three equal", AmplitudeDucking, []float64{2.5, 2.5, 2.5}, unity, 2.5},
		{"ducking single", AmplitudeDucking, []float64{4}, unity, 4},
		{"ducking pair", AmplitudeDucking, []float64{4, 2}, unity, 3},
		{"ducking nothing connected", AmplitudeDucking, nil, unity, 0},
		{"clip high", AmplitudeHardClip, []float64{4, 4, 4}, unity, 5},
		{"clip low", AmplitudeHardClip, []float64{-4, -4, -4}, unity, -5},
		{"clip inside", AmplitudeHardClip, []float64{1, 2}, unity, 3},
		{"none", AmplitudeNone, []float64{4, 4, 4}, unity, 12},
		{"gain", AmplitudeNone, []float64{10, 10}, DefaultParams(), 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			if err := m.SetAmplitudeAlgorithm(tt.algo); err != nil {
				t.Fatalf("SetAmplitudeAlgorithm() error = %v", err)
			}
			ports := allConnected(tt.in...)
			m.Process(args, tt.p, ports)

			if math.Abs(ports.Out[0].Voltage-tt.want) > 1e-12 {
				t.Fatalf("out[0] = %v, want %v", ports.Out[0].Voltage, tt.want)
			}
		})
	}
}

func TestMixPerCellGain(t *testing.T) {
	m := New()
	_ = m.SetAmplitudeAlgorithm(AmplitudeNone)
	p := DefaultParams()
	p.Gain[1] = [Size]float64{1, 0.5, 0.25, 0}
	ports := allConnected(8, 8, 8, 8)

	m.Process(args, p, ports)

	if ports.Out[1].Voltage != 14 {
		t.Fatalf("out[1] = %v, want 14", ports.Out[1].Voltage)
	}
	if ports.Out[0].Voltage != 16 {
		t.Fatalf("out[0] = %v, want 16", ports.Out[0].Voltage)
	}
}

func TestMixDuckingCountsRoutedConnectedOnly(t *testing.T) {
	m := New()
	ports := allConnected(6, 6, 6)
	ports.In[1].Connected = false
	pressCol(m, 2, ports)

	// Only input 0 is both connected and routed: no ducking.
	if ports.Out[0].Voltage != 3 {
		t.Fatalf("out[0] = %v, want 3", ports.Out[0].Voltage)
	}
}

func TestUnconnectedOutputUntouched(t *testing.T) {
	m := New()
	ports := allConnected(1, 1)
	ports.Out[2] = rack.Output{Voltage: 9}

	m.Process(args, DefaultParams(), ports)

	if ports.Out[2].Voltage != 9 {
		t.Fatalf("out[2] = %v, want untouched 9", ports.Out[2].Voltage)
	}
}

func TestSetAlgorithmsRejectInvalid(t *testing.T) {
	m := New()

	if err := m.SetMuteAlgorithm(0); !errors.Is(err, ErrInvalidAlgorithm) {
		t.Fatalf("SetMuteAlgorithm(0) error = %v", err)
	}
	if err := m.SetAmplitudeAlgorithm(3); !errors.Is(err, ErrInvalidAlgorithm) {
		t.Fatalf("SetAmplitudeAlgorithm(3) error = %v", err)
	}
	if m.MuteAlgorithm() != MuteForce || m.AmplitudeAlgorithm() != AmplitudeDucking {
		t.Fatal("invalid setter calls changed the mixer")
	}
}

func TestResetKeepsAlgorithms(t *testing.T) {
	m := New()
	_ = m.SetMuteAlgorithm(MuteIntersection)
	_ = m.SetAmplitudeAlgorithm(AmplitudeNone)
	m.ToggleRow(1)
	m.ToggleCol(2)

	m.Reset()

	for row := range Size {
		requireRow(t, m, row, [Size]bool{true, true, true, true})
	}
	if !m.RowEnabled(1) || !m.ColEnabled(2) {
		t.Fatal("Reset() did not re-enable lines")
	}
	if m.MuteAlgorithm() != MuteIntersection || m.AmplitudeAlgorithm() != AmplitudeNone {
		t.Fatal("Reset() changed algorithms")
	}
}

func TestMarshalJSON(t *testing.T) {
	m := New()
	_ = m.SetAmplitudeAlgorithm(AmplitudeHardClip)
	m.ToggleRow(0)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var got struct {
		Leds               []bool `json:"leds"`
		Rows               []bool `json:"rows"`
		Cols               []bool `json:"cols"`
		AmplitudeAlgorithm int    `json:"amplitudeAlgorithm"`
		MuteAlgorithm      int    `json:"muteAlgorithm"`
	}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	if len(got.Leds) != Cells || len(got.Rows) != Size || len(got.Cols) != Size {
		t.Fatalf("array lengths = %d/%d/%d", len(got.Leds), len(got.Rows), len(got.Cols))
	}
	if got.Leds[0] || !got.Leds[4] || got.Rows[0] || !got.Cols[0] {
		t.Fatalf("unexpected record %s", data)
	}
	if got.AmplitudeAlgorithm != 1 || got.MuteAlgorithm != 1 {
		t.Fatalf("algorithms = %d/%d, want 1/1", got.AmplitudeAlgorithm, got.MuteAlgorithm)
	}
}

func TestPersistRestoresState(t *testing.T) {
	m := New()
	_ = m.SetMuteAlgorithm(MuteIntersection)
	_ = m.SetAmplitudeAlgorithm(AmplitudeNone)
	m.ToggleRow(3)
	m.ToggleCol(1)

	data, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	restored := New()
	if err := json.Unmarshal(data, restored); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}

	for row := range Size {
		for col := range Size {
			if restored.Cell(row, col) != m.Cell(row, col) {
				t.Fatalf("cell(%d,%d) = %v, want %v", row, col, restored.Cell(row, col), m.Cell(row, col))
			}
		}
		if restored.RowEnabled(row) != m.RowEnabled(row) || restored.ColEnabled(row) != m.ColEnabled(row) {
			t.Fatalf("line %d state mismatch", row)
		}
	}
	if restored.MuteAlgorithm() != MuteIntersection || restored.AmplitudeAlgorithm() != AmplitudeNone {
		t.Fatal("algorithms not restored")
	}
}

func TestUnmarshalPartialRecord(t *testing.T) {
	tests := []struct {
		name  string
		data  string
		check func(t *testing.T, m *Mixer)
	}{
		{
			name: "empty record keeps defaults",
			data: `{}`,
			check: func(t *testing.T, m *Mixer) {
				requireRow(t, m, 0, [Size]bool{true, true, true, true})
			},
		},
		{
			name: "short rows array",
			data: `{"rows":[false]}`,
			check: func(t *testing.T, m *Mixer) {
				if m.RowEnabled(0) || !m.RowEnabled(1) {
					t.Fatal("only row 0 should be restored")
				}
			},
		},
		{
			name: "short leds array",
			data: `{"leds":[true,false]}`,
			check: func(t *testing.T, m *Mixer) {
				requireRow(t, m, 0, [Size]bool{true, false, true, true})
			},
		},
		{
			name: "invalid algorithms ignored",
			data: `{"muteAlgorithm":0,"amplitudeAlgorithm":9}`,
			check: func(t *testing.T, m *Mixer) {
				if m.MuteAlgorithm() != MuteForce || m.AmplitudeAlgorithm() != AmplitudeDucking {
					t.Fatal("invalid algorithms were applied")
				}
			},
		},
		{
			name: "valid algorithms",
			data: `{"muteAlgorithm":2,"amplitudeAlgorithm":2}`,
			check: func(t *testing.T, m *Mixer) {
				if m.MuteAlgorithm() != MuteFlipFlop || m.AmplitudeAlgorithm() != AmplitudeNone {
					t.Fatal("algorithms not applied")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New()
			if err := m.UnmarshalJSON([]byte(tt.data)); err != nil {
				t.Fatalf("UnmarshalJSON() error = %v", err)
			}
			tt.check(t, m)
		})
	}
}

func TestUnmarshalMalformed(t *testing.T) {
	m := New()
	err := m.UnmarshalJSON([]byte(`{"leds":[tru`))
	if !errors.Is(err, rack.ErrInvalidRecord) {
		t.Fatalf("UnmarshalJSON() error = %v, want ErrInvalidRecord", err)
	}
}
