// Package click measures the audible artefacts of switching a signal on
// or off.
//
// A hard mute is a step in the waveform and spreads energy over the whole
// spectrum; a ramped mute keeps that energy near the signal's own
// frequencies. HighBandRatio quantifies the spread, MaxStep the size of the
// largest sample-to-sample jump.
package click

import (
	"errors"
	"fmt"
	"math"

	algofft "github.com/MeKo-Christian/algo-fft"
	"github.com/cwbudde/algo-vecmath"
)

var (
	// ErrEmptyInput is returned for an empty signal.
	ErrEmptyInput = errors.New("click: empty input")
	// ErrInvalidBand is returned for a cutoff outside (0, Nyquist).
	ErrInvalidBand = errors.New("click: cutoff must be inside (0, sampleRate/2)")
)

// HighBandRatio returns the fraction of spectral energy at or above
// cutoffHz in a Hann-windowed FFT of x. The DC bin is excluded. A silent
// signal yields 0.
func HighBandRatio(x []float64, sampleRate, cutoffHz float64) (float64, error) {
	if len(x) == 0 {
		return 0, ErrEmptyInput
	}
	if sampleRate <= 0 || math.IsNaN(sampleRate) || math.IsInf(sampleRate, 0) {
		return 0, fmt.Errorf("click sample rate must be positive and finite: %f", sampleRate)
	}
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 {
		return 0, fmt.Errorf("%w: %f", ErrInvalidBand, cutoffHz)
	}

	power, err := powerSpectrum(x)
	if err != nil {
		return 0, err
	}

	fftSize := 2 * (len(power) - 1)
	binHz := sampleRate / float64(fftSize)

	total, high := 0.0, 0.0
	for k := 1; k < len(power); k++ {
		total += power[k]
		if float64(k)*binHz >= cutoffHz {
			high += power[k]
		}
	}

	if total == 0 {
		return 0, nil
	}
	return high / total, nil
}

// MaxStep returns the largest absolute difference between neighbouring
// samples.
func MaxStep(x []float64) float64 {
	peak := 0.0
	for i := 1; i < len(x); i++ {
		if d := math.Abs(x[i] - x[i-1]); d > peak {
			peak = d
		}
	}
	return peak
}

// powerSpectrum returns |X[k]|^2 for the non-negative frequency bins of the
// Hann-windowed, zero-padded FFT of x.
func powerSpectrum(x []float64) ([]float64, error) {
	fftSize := nextPowerOfTwo(max(len(x), 2))

	frame := make([]float64, len(x))
	copy(frame, x)
	vecmath.MulBlockInPlace(frame, hann(len(x)))

	in := make([]complex128, fftSize)
	for i, v := range frame {
		in[i] = complex(v, 0)
	}

	plan, err := algofft.NewPlan64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("click fft plan: %w", err)
	}

	out := make([]complex128, fftSize)
	if err := plan.Forward(out, in); err != nil {
		return nil, fmt.Errorf("click fft: %w", err)
	}

	bins := fftSize/2 + 1
	re := make([]float64, bins)
	im := make([]float64, bins)
	for k := range bins {
		re[k] = real(out[k])
		im[k] = imag(out[k])
	}

	power := make([]float64, bins)
	vecmath.Power(power, re, im)

	return power, nil
}

// hann returns symmetric Hann window coefficients.
func hann(n int) []float64 {
	w := make([]float64, n)
	if n == 1 {
		w[0] = 1
		return w
	}
	for i := range w {
		w[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(n-1))
	}
	return w
}

func nextPowerOfTwo(n int) int {
	p := 1
	for p < n {
		p <<= 1
	}
	return p
}
