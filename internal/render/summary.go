package render

import (
	"math"

	"github.com/cwbudde/algo-rack/measure/click"
)

// ChannelSummary describes one rendered output.
type ChannelSummary struct {
	Channel int
	Peak    float64 // volts
	MaxStep float64 // volts between neighbouring samples

	// HighBandRatio is the spectral energy share above the click cutoff.
	// It is only set when Summarize was given a cutoff.
	HighBandRatio float64
}

// Summarize measures every channel. A cutoffHz of 0 skips the spectral
// measurement.
func Summarize(r *Result, cutoffHz float64) ([]ChannelSummary, error) {
	out := make([]ChannelSummary, len(r.Channels))
	for ch, x := range r.Channels {
		s := ChannelSummary{
			Channel: ch,
			Peak:    peak(x),
			MaxStep: click.MaxStep(x),
		}
		if cutoffHz > 0 {
			ratio, err := click.HighBandRatio(x, r.SampleRate, cutoffHz)
			if err != nil {
				return nil, err
			}
			s.HighBandRatio = ratio
		}
		out[ch] = s
	}
	return out, nil
}

func peak(x []float64) float64 {
	p := 0.0
	for _, v := range x {
		p = max(p, math.Abs(v))
	}
	return p
}
