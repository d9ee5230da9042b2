// Package render runs a patch offline: it plays the host role for one
// module, feeding generated voltages through it sample by sample and
// collecting its outputs.
package render

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack"
	"github.com/cwbudde/algo-rack/dsp/rack/matrix"
	"github.com/cwbudde/algo-rack/dsp/rack/mute"
	"github.com/cwbudde/algo-rack/dsp/signal"
	"github.com/cwbudde/algo-rack/internal/patch"
)

// PressWidth is how long a scheduled button press is held, in seconds.
const PressWidth = 0.001

// Event kinds.
const (
	EventState     = "state"
	EventAlgorithm = "algorithm"
	EventRouting   = "routing"
)

// Event is an observed module change.
type Event struct {
	Sample int
	Time   float64 // seconds
	Kind   string
	Value  string
}

// Result is a finished render.
type Result struct {
	Module     string
	SampleRate float64
	Channels   [][]float64 // one slice per module output
	Events     []Event
	Record     json.RawMessage // module state after the last sample
}

// Frames returns the number of samples per channel.
func (r *Result) Frames() int {
	if len(r.Channels) == 0 {
		return 0
	}
	return len(r.Channels[0])
}

// Option configures a render.
type Option func(*renderer)

// WithLogger logs module changes at debug level.
func WithLogger(logger *slog.Logger) Option {
	return func(r *renderer) {
		if logger != nil {
			r.logger = logger
		}
	}
}

type renderer struct {
	logger *slog.Logger
	cfg    core.ProcessorConfig
	result *Result
}

func (r *renderer) event(sample int, kind, value string) {
	t := float64(sample) * r.cfg.SampleTime()
	r.result.Events = append(r.result.Events, Event{Sample: sample, Time: t, Kind: kind, Value: value})
	r.logger.Debug("module change", "module", r.result.Module, "sample", sample, "at", t, kind, value)
}

// Render validates p and runs it to completion.
func Render(p patch.Patch, opts ...Option) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	r := &renderer{
		logger: slog.New(slog.DiscardHandler),
		cfg:    p.Config(),
		result: &Result{Module: p.Module, SampleRate: p.SampleRate},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	args, err := rack.NewProcessArgs(r.cfg.SampleRate)
	if err != nil {
		return nil, err
	}

	inputs, err := generateInputs(p)
	if err != nil {
		return nil, err
	}

	var module rack.Module
	switch p.Module {
	case patch.ModuleMute:
		module, err = r.mute(p, args, inputs)
	case patch.ModuleMatrix:
		module, err = r.matrix(p, args, inputs)
	default:
		err = fmt.Errorf("%w: unknown module %q", patch.ErrInvalidPatch, p.Module)
	}
	if err != nil {
		return nil, err
	}

	record, err := json.Marshal(module)
	if err != nil {
		return nil, fmt.Errorf("persist %s: %w", p.Module, err)
	}
	r.result.Record = record

	r.logger.Info("rendered",
		"module", p.Module,
		"samples", r.result.Frames(),
		"channels", len(r.result.Channels),
		"events", len(r.result.Events),
	)
	return r.result, nil
}

// generateInputs renders one voltage per patched source. Noise sources get
// distinct seeds.
func generateInputs(p patch.Patch) ([][]float64, error) {
	n := p.Samples()
	out := make([][]float64, len(p.Inputs))
	for i, src := range p.Inputs {
		gen := signal.NewGeneratorWithOptions(
			[]core.ProcessorOption{core.WithSampleRate(p.SampleRate)},
			signal.WithSeed(p.Seed+uint64(i)),
		)
		v, err := gen.Source(src, n)
		if err != nil {
			return nil, fmt.Errorf("input %d: %w", i, err)
		}
		out[i] = v
	}
	return out, nil
}

func (r *renderer) triggers(times []float64, samples int) ([]float64, error) {
	gen := signal.NewGenerator(core.WithSampleRate(r.cfg.SampleRate))
	return gen.Triggers(times, PressWidth, samples)
}

func (r *renderer) mute(p patch.Patch, args rack.ProcessArgs, inputs [][]float64) (rack.Module, error) {
	n := p.Samples()
	presses, err := r.triggers(p.Mute.Presses, n)
	if err != nil {
		return nil, err
	}

	g := mute.New()
	if p.Mute.Open {
		if err := json.Unmarshal([]byte(`{"state":1}`), g); err != nil {
			return nil, err
		}
	}

	var ports mute.Ports
	for ch := range mute.Channels {
		ports.In[ch].Connected = ch < len(inputs)
		ports.Out[ch].Connected = true
	}

	out := makeChannels(mute.Channels, n)
	params := p.Mute.Params()
	prev := g.State()

	for i := range n {
		for ch, in := range inputs {
			ports.In[ch].Voltage = in[i]
		}
		params.Mute = presses[i]

		g.Process(args, params, &ports)

		for ch := range out {
			out[ch][i] = ports.Out[ch].Voltage
		}
		if s := g.State(); s != prev {
			r.event(i, EventState, s.String())
			prev = s
		}
	}

	r.result.Channels = out
	return g, nil
}

func (r *renderer) matrix(p patch.Patch, args rack.ProcessArgs, inputs [][]float64) (rack.Module, error) {
	n := p.Samples()

	var rowTimes, colTimes [matrix.Size][]float64
	var algoTimes []float64
	for _, press := range p.Matrix.Presses {
		switch press.Target {
		case patch.TargetRow:
			rowTimes[press.Index] = append(rowTimes[press.Index], press.At)
		case patch.TargetCol:
			colTimes[press.Index] = append(colTimes[press.Index], press.At)
		case patch.TargetAlgorithm:
			algoTimes = append(algoTimes, press.At)
		}
	}

	var rowPresses, colPresses [matrix.Size][]float64
	for i := range matrix.Size {
		var err error
		if rowPresses[i], err = r.triggers(rowTimes[i], n); err != nil {
			return nil, err
		}
		if colPresses[i], err = r.triggers(colTimes[i], n); err != nil {
			return nil, err
		}
	}
	algoPresses, err := r.triggers(algoTimes, n)
	if err != nil {
		return nil, err
	}

	m := matrix.New()
	muteAlgo, ampAlgo, err := p.Matrix.Algorithms()
	if err != nil {
		return nil, err
	}
	if err := m.SetMuteAlgorithm(muteAlgo); err != nil {
		return nil, err
	}
	if err := m.SetAmplitudeAlgorithm(ampAlgo); err != nil {
		return nil, err
	}

	var ports matrix.Ports
	for i := range matrix.Size {
		ports.In[i].Connected = i < len(inputs)
		ports.Out[i].Connected = true
	}

	out := makeChannels(matrix.Size, n)
	params := p.Matrix.Params()
	prevAlgo := m.MuteAlgorithm()
	prevRouting := routing(m)

	for i := range n {
		for ch, in := range inputs {
			ports.In[ch].Voltage = in[i]
		}
		for line := range matrix.Size {
			params.RowMute[line] = rowPresses[line][i]
			params.ColMute[line] = colPresses[line][i]
		}
		params.Algorithm = algoPresses[i]

		m.Process(args, params, &ports)

		for ch := range out {
			out[ch][i] = ports.Out[ch].Voltage
		}
		if a := m.MuteAlgorithm(); a != prevAlgo {
			r.event(i, EventAlgorithm, a.String())
			prevAlgo = a
		}
		if cells := routing(m); cells != prevRouting {
			r.event(i, EventRouting, formatRouting(cells))
			prevRouting = cells
		}
	}

	r.result.Channels = out
	return m, nil
}

func makeChannels(channels, samples int) [][]float64 {
	out := make([][]float64, channels)
	for ch := range out {
		out[ch] = make([]float64, samples)
	}
	return out
}

func routing(m *matrix.Mixer) [matrix.Cells]bool {
	var cells [matrix.Cells]bool
	for row := range matrix.Size {
		for col := range matrix.Size {
			cells[row*matrix.Size+col] = m.Cell(row, col)
		}
	}
	return cells
}

// formatRouting prints the cells row by row, e.g. "1111/0000/1111/1111".
func formatRouting(cells [matrix.Cells]bool) string {
	var b strings.Builder
	for i, on := range cells {
		if i > 0 && i%matrix.Size == 0 {
			b.WriteByte('/')
		}
		if on {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}
