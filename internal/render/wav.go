package render

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/cwbudde/algo-rack/dsp/core"
	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

const (
	// FullScale is the voltage written as 0 dBFS.
	FullScale = 10.0

	bitDepth  = 16
	pcmFormat = 1
)

// ErrNoChannels is returned when a result has nothing to write.
var ErrNoChannels = errors.New("render: no channels")

// WriteWAV encodes the result as 16-bit PCM with one WAV channel per module
// output. Voltages beyond ±FullScale are clipped.
func WriteWAV(w io.WriteSeeker, r *Result) error {
	if len(r.Channels) == 0 || r.Frames() == 0 {
		return ErrNoChannels
	}

	sampleRate := int(math.Round(r.SampleRate))
	nch := len(r.Channels)
	frames := r.Frames()

	buf := &audio.IntBuffer{
		Format: &audio.Format{
			NumChannels: nch,
			SampleRate:  sampleRate,
		},
		Data:           make([]int, frames*nch),
		SourceBitDepth: bitDepth,
	}
	for ch, samples := range r.Channels {
		if len(samples) != frames {
			return fmt.Errorf("render: channel %d has %d frames, want %d", ch, len(samples), frames)
		}
		for i, v := range samples {
			buf.Data[i*nch+ch] = PCM16(v)
		}
	}

	enc := wav.NewEncoder(w, sampleRate, bitDepth, nch, pcmFormat)
	if err := enc.Write(buf); err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("close wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes the result to path.
func WriteWAVFile(path string, r *Result) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create wav: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()

	return WriteWAV(f, r)
}

// PCM16 converts a voltage to a 16-bit sample.
func PCM16(v float64) int {
	return int(math.Round(core.Clamp(v/FullScale, -1, 1) * math.MaxInt16))
}
