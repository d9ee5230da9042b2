// Package signal generates deterministic control and audio voltages for
// driving rack modules offline.
package signal

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// GateHigh is the voltage of a button press or trigger pulse.
const GateHigh = 10.0

// ErrUnknownKind is returned for a Source with an unsupported Kind.
var ErrUnknownKind = errors.New("signal: unknown source kind")

// Source kinds understood by Generator.Source.
const (
	KindSine   = "sine"
	KindSquare = "square"
	KindDC     = "dc"
	KindNoise  = "noise"
)

// Source describes one generated voltage.
type Source struct {
	Kind      string  `json:"kind"`
	Freq      float64 `json:"freq,omitempty"`
	Amplitude float64 `json:"amplitude"`
}

// Generator creates deterministic signals from a shared configuration.
type Generator struct {
	cfg  core.ProcessorConfig
	seed uint64
}

// Option configures a Generator.
type Option func(*Generator)

// WithSeed sets the deterministic random seed for noise generation.
func WithSeed(seed uint64) Option {
	return func(g *Generator) {
		g.seed = seed
	}
}

// NewGenerator creates a generator from processor options.
func NewGenerator(opts ...core.ProcessorOption) *Generator {
	return NewGeneratorWithOptions(opts)
}

// NewGeneratorWithOptions creates a generator with signal-specific options.
func NewGeneratorWithOptions(coreOpts []core.ProcessorOption, opts ...Option) *Generator {
	g := &Generator{
		cfg:  core.ApplyProcessorOptions(coreOpts...),
		seed: 1,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Config returns the generator processor configuration.
func (g *Generator) Config() core.ProcessorConfig {
	return g.cfg
}

// Sine generates a sine wave.
func (g *Generator) Sine(freqHz, amplitude float64, samples int) ([]float64, error) {
	if err := g.check("sine", samples); err != nil {
		return nil, err
	}
	out := make([]float64, samples)
	step := 2 * math.Pi * freqHz / g.cfg.SampleRate
	for i := range out {
		out[i] = amplitude * math.Sin(step*float64(i))
	}
	return out, nil
}

// Square generates a bipolar square wave that starts high.
func (g *Generator) Square(freqHz, amplitude float64, samples int) ([]float64, error) {
	if err := g.check("square", samples); err != nil {
		return nil, err
	}
	if freqHz <= 0 {
		return nil, fmt.Errorf("square frequency must be > 0: %f", freqHz)
	}
	out := make([]float64, samples)
	period := g.cfg.SampleRate / freqHz
	for i := range out {
		if math.Mod(float64(i), period) < period/2 {
			out[i] = amplitude
		} else {
			out[i] = -amplitude
		}
	}
	return out, nil
}

// DC generates a constant voltage.
func (g *Generator) DC(value float64, samples int) ([]float64, error) {
	if err := g.check("dc", samples); err != nil {
		return nil, err
	}
	out := make([]float64, samples)
	for i := range out {
		out[i] = value
	}
	return out, nil
}

// WhiteNoise generates deterministic white noise in [-amplitude, amplitude].
func (g *Generator) WhiteNoise(amplitude float64, samples int) ([]float64, error) {
	if err := g.check("noise", samples); err != nil {
		return nil, err
	}
	if amplitude < 0 {
		return nil, fmt.Errorf("noise amplitude must be >= 0: %f", amplitude)
	}
	out := make([]float64, samples)
	rng := rand.New(rand.NewPCG(g.seed, g.seed^0x9e3779b97f4a7c15))
	for i := range out {
		out[i] = (rng.Float64()*2 - 1) * amplitude
	}
	return out, nil
}

// Triggers generates GateHigh pulses starting at the given times in
// seconds. Each pulse lasts width seconds but at least one sample.
// Overlapping pulses merge into one. Times outside the signal are ignored.
func (g *Generator) Triggers(times []float64, width float64, samples int) ([]float64, error) {
	if err := g.check("triggers", samples); err != nil {
		return nil, err
	}
	out := make([]float64, samples)
	n := max(g.cfg.Samples(width), 1)

	for _, at := range times {
		if at < 0 {
			continue
		}
		start := g.cfg.Samples(at)
		for i := start; i < start+n && i < samples; i++ {
			out[i] = GateHigh
		}
	}
	return out, nil
}

// Source generates the voltage described by s.
func (g *Generator) Source(s Source, samples int) ([]float64, error) {
	switch s.Kind {
	case KindSine:
		return g.Sine(s.Freq, s.Amplitude, samples)
	case KindSquare:
		return g.Square(s.Freq, s.Amplitude, samples)
	case KindDC:
		return g.DC(s.Amplitude, samples)
	case KindNoise:
		return g.WhiteNoise(math.Abs(s.Amplitude), samples)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, s.Kind)
	}
}

func (g *Generator) check(name string, samples int) error {
	if samples <= 0 {
		return fmt.Errorf("%s samples must be > 0: %d", name, samples)
	}
	if g.cfg.SampleRate <= 0 {
		return fmt.Errorf("%s sample rate must be > 0: %f", name, g.cfg.SampleRate)
	}
	return nil
}
