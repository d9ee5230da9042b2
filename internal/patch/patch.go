// Package patch loads the JSON descriptions of offline render sessions.
//
// A patch names one module, the sources plugged into its inputs, its
// control settings and the times at which its buttons are pressed. Fields
// missing from the file keep the values of Default.
package patch

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/cwbudde/algo-rack/dsp/rack/matrix"
	"github.com/cwbudde/algo-rack/dsp/rack/mute"
	"github.com/cwbudde/algo-rack/dsp/signal"
)

// Module kinds.
const (
	ModuleMute   = "mute"
	ModuleMatrix = "matrix"
)

// Press targets of the matrix mixer.
const (
	TargetRow       = "row"
	TargetCol       = "col"
	TargetAlgorithm = "algorithm"
)

const maxDuration = 600.0 // seconds

// ErrInvalidPatch is wrapped by every validation failure.
var ErrInvalidPatch = errors.New("patch: invalid")

// Patch is one render session.
type Patch struct {
	Module     string          `json:"module"`
	SampleRate float64         `json:"sampleRate"`
	Duration   float64         `json:"duration"` // seconds
	Inputs     []signal.Source `json:"inputs"`
	Seed       uint64          `json:"seed"`

	Mute   MuteConfig   `json:"mute"`
	Matrix MatrixConfig `json:"matrix"`
}

// MuteConfig are the mute gate settings.
type MuteConfig struct {
	FadeIn   float64   `json:"fadeIn"`
	FadeOut  float64   `json:"fadeOut"`
	ScaleIn  float64   `json:"scaleIn"`
	ScaleOut float64   `json:"scaleOut"`
	Open     bool      `json:"open"`    // start fully open instead of silent
	Presses  []float64 `json:"presses"` // mute button press times in seconds
}

// Params converts the settings to per-tick controls with the button
// released.
func (c MuteConfig) Params() mute.Params {
	return mute.Params{
		FadeIn:   c.FadeIn,
		FadeOut:  c.FadeOut,
		ScaleIn:  c.ScaleIn,
		ScaleOut: c.ScaleOut,
	}
}

// MatrixConfig are the matrix mixer settings.
type MatrixConfig struct {
	Gain               float64     `json:"gain"`  // applied to every cell
	Gains              [][]float64 `json:"gains"` // optional [row][col] override
	MuteAlgorithm      string      `json:"muteAlgorithm"`
	AmplitudeAlgorithm string      `json:"amplitudeAlgorithm"`
	Presses            []Press     `json:"presses"`
}

// Press is one button press on the matrix mixer.
type Press struct {
	At     float64 `json:"at"`     // seconds
	Target string  `json:"target"` // row, col or algorithm
	Index  int     `json:"index"`  // row or column, 0-based
}

// Params converts the settings to per-tick controls with all buttons
// released. The patch must be valid.
func (c MatrixConfig) Params() matrix.Params {
	p := matrix.DefaultParams()
	for r := range matrix.Size {
		for col := range matrix.Size {
			p.Gain[r][col] = c.Gain
			if r < len(c.Gains) && col < len(c.Gains[r]) {
				p.Gain[r][col] = c.Gains[r][col]
			}
		}
	}
	return p
}

// Algorithms parses the algorithm names.
func (c MatrixConfig) Algorithms() (matrix.MuteAlgorithm, matrix.AmplitudeAlgorithm, error) {
	m, err := matrix.ParseMuteAlgorithm(c.MuteAlgorithm)
	if err != nil {
		return 0, 0, err
	}
	a, err := matrix.ParseAmplitudeAlgorithm(c.AmplitudeAlgorithm)
	if err != nil {
		return 0, 0, err
	}
	return m, a, nil
}

// Default returns a two second demo patch for the given module kind.
func Default(module string) Patch {
	p := Patch{
		Module:     module,
		SampleRate: core.DefaultProcessorConfig().SampleRate,
		Duration:   2,
		Seed:       1,
		Mute: MuteConfig{
			FadeIn:  mute.DefaultFadeTime,
			FadeOut: mute.DefaultFadeTime,
			Presses: []float64{0.25, 1.25},
		},
		Matrix: MatrixConfig{
			Gain:               matrix.DefaultGain,
			MuteAlgorithm:      matrix.MuteForce.String(),
			AmplitudeAlgorithm: matrix.AmplitudeDucking.String(),
			Presses: []Press{
				{At: 0.5, Target: TargetRow, Index: 0},
				{At: 1.0, Target: TargetCol, Index: 1},
				{At: 1.5, Target: TargetRow, Index: 0},
			},
		},
	}

	switch module {
	case ModuleMatrix:
		p.Inputs = []signal.Source{
			{Kind: signal.KindSine, Freq: 220, Amplitude: 5},
			{Kind: signal.KindSine, Freq: 330, Amplitude: 5},
			{Kind: signal.KindSquare, Freq: 110, Amplitude: 2},
			{Kind: signal.KindNoise, Amplitude: 1},
		}
	default:
		p.Inputs = []signal.Source{
			{Kind: signal.KindSine, Freq: 220, Amplitude: 5},
			{Kind: signal.KindSine, Freq: 440, Amplitude: 5},
		}
	}

	return p
}

// Parse decodes a patch over the defaults of its module kind and validates
// it. A patch without a module field renders the mute gate.
func Parse(data []byte) (Patch, error) {
	var head struct {
		Module string `json:"module"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return Patch{}, fmt.Errorf("%w: json: %w", ErrInvalidPatch, err)
	}
	if head.Module == "" {
		head.Module = ModuleMute
	}

	def := Default(head.Module)

	// Decoding into a filled list reuses its elements, so lists start empty
	// and fall back to the defaults only when the file omits them.
	p := def
	p.Inputs = nil
	p.Mute.Presses = nil
	p.Matrix.Presses = nil
	if err := json.Unmarshal(data, &p); err != nil {
		return Patch{}, fmt.Errorf("%w: json: %w", ErrInvalidPatch, err)
	}
	p.Module = head.Module
	if p.Inputs == nil {
		p.Inputs = def.Inputs
	}
	if p.Mute.Presses == nil {
		p.Mute.Presses = def.Mute.Presses
	}
	if p.Matrix.Presses == nil {
		p.Matrix.Presses = def.Matrix.Presses
	}

	if err := p.Validate(); err != nil {
		return Patch{}, err
	}
	return p, nil
}

// Load reads and parses a patch file.
func Load(path string) (Patch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Patch{}, fmt.Errorf("read patch: %w", err)
	}

	p, err := Parse(data)
	if err != nil {
		return Patch{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Config returns the processor configuration of the patch.
func (p Patch) Config() core.ProcessorConfig {
	return core.ApplyProcessorOptions(core.WithSampleRate(p.SampleRate))
}

// Samples returns the render length in samples.
func (p Patch) Samples() int {
	return p.Config().Samples(p.Duration)
}

// Validate reports the first problem found in the patch.
func (p Patch) Validate() error {
	if p.SampleRate <= 0 || !core.IsFinite(p.SampleRate) {
		return invalid("sample rate must be positive and finite: %f", p.SampleRate)
	}
	if p.Duration <= 0 || p.Duration > maxDuration || p.Samples() < 1 {
		return invalid("duration must be in (0, %.0f] seconds and at least one sample: %f", maxDuration, p.Duration)
	}
	for i, s := range p.Inputs {
		switch s.Kind {
		case signal.KindSine, signal.KindDC, signal.KindNoise:
		case signal.KindSquare:
			if s.Freq <= 0 {
				return invalid("input %d: square frequency must be > 0: %f", i, s.Freq)
			}
		default:
			return invalid("input %d: unknown source kind %q", i, s.Kind)
		}
	}

	switch p.Module {
	case ModuleMute:
		return p.validateMute()
	case ModuleMatrix:
		return p.validateMatrix()
	default:
		return invalid("unknown module %q", p.Module)
	}
}

func (p Patch) validateMute() error {
	if len(p.Inputs) > mute.Channels {
		return invalid("mute has %d inputs, got %d sources", mute.Channels, len(p.Inputs))
	}

	c := p.Mute
	fades := []struct {
		name string
		v    float64
	}{{"fadeIn", c.FadeIn}, {"fadeOut", c.FadeOut}}
	for _, f := range fades {
		if f.v < mute.MinFadeTime || f.v > mute.MaxFadeTime {
			return invalid("mute %s must be in [%g, %g]: %f", f.name, mute.MinFadeTime, mute.MaxFadeTime, f.v)
		}
	}
	scales := []struct {
		name string
		v    float64
	}{{"scaleIn", c.ScaleIn}, {"scaleOut", c.ScaleOut}}
	for _, s := range scales {
		if s.v < mute.MinScaleControl || s.v > mute.MaxScaleControl {
			return invalid("mute %s must be in [%g, %g]: %f", s.name, mute.MinScaleControl, mute.MaxScaleControl, s.v)
		}
	}

	return validatePressTimes(c.Presses)
}

func (p Patch) validateMatrix() error {
	if len(p.Inputs) > matrix.Size {
		return invalid("matrix has %d inputs, got %d sources", matrix.Size, len(p.Inputs))
	}

	c := p.Matrix
	if err := validateGain(c.Gain); err != nil {
		return err
	}
	if len(c.Gains) > matrix.Size {
		return invalid("matrix gains has %d rows, want at most %d", len(c.Gains), matrix.Size)
	}
	for r, row := range c.Gains {
		if len(row) > matrix.Size {
			return invalid("matrix gains row %d has %d cells, want at most %d", r, len(row), matrix.Size)
		}
		for _, g := range row {
			if err := validateGain(g); err != nil {
				return err
			}
		}
	}

	if _, _, err := c.Algorithms(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}

	times := make([]float64, 0, len(c.Presses))
	for i, press := range c.Presses {
		switch press.Target {
		case TargetRow, TargetCol:
			if press.Index < 0 || press.Index >= matrix.Size {
				return invalid("press %d: %s index must be in [0, %d): %d", i, press.Target, matrix.Size, press.Index)
			}
		case TargetAlgorithm:
		default:
			return invalid("press %d: unknown target %q", i, press.Target)
		}
		times = append(times, press.At)
	}

	return validatePressTimes(times)
}

func validateGain(g float64) error {
	if g < matrix.MinGain || g > matrix.MaxGain {
		return invalid("matrix gain must be in [%g, %g]: %f", matrix.MinGain, matrix.MaxGain, g)
	}
	return nil
}

// validatePressTimes rejects presses at or before 0: a button already held
// when the module starts does not fire.
func validatePressTimes(times []float64) error {
	for i, at := range times {
		if at <= 0 || !core.IsFinite(at) {
			return invalid("press %d: time must be > 0: %f", i, at)
		}
	}
	return nil
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidPatch, fmt.Sprintf(format, args...))
}
