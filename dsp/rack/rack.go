package rack

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cwbudde/algo-rack/dsp/core"
)

// Indicator brightness levels. Modules only ever use these two.
const (
	LightOn  = 0.9
	LightOff = 0.0
)

var (
	// ErrInvalidSampleRate is returned for non-positive or non-finite rates.
	ErrInvalidSampleRate = errors.New("rack: sample rate must be positive and finite")
	// ErrInvalidRecord is returned when a persisted record cannot be decoded.
	ErrInvalidRecord = errors.New("rack: invalid persisted record")
)

// ProcessArgs carries the timing of one tick.
type ProcessArgs struct {
	SampleRate float64
	SampleTime float64 // seconds since the previous tick
}

// NewProcessArgs returns the args for a host running at sampleRate.
func NewProcessArgs(sampleRate float64) (ProcessArgs, error) {
	if sampleRate <= 0 || !core.IsFinite(sampleRate) {
		return ProcessArgs{}, fmt.Errorf("%w: %f", ErrInvalidSampleRate, sampleRate)
	}

	return ProcessArgs{SampleRate: sampleRate, SampleTime: 1 / sampleRate}, nil
}

// Input is a host-owned input jack.
type Input struct {
	Voltage   float64
	Connected bool
}

// Output is a host-owned output jack. Modules only write Voltage.
type Output struct {
	Voltage   float64
	Connected bool
}

// Brightness maps an on/off indicator state to its brightness.
func Brightness(on bool) float64 {
	if on {
		return LightOn
	}
	return LightOff
}

// Module is what the host needs around a module's lifetime: a reset action
// and a persisted record it can store and hand back.
type Module interface {
	Reset()
	json.Marshaler
	json.Unmarshaler
}

// DecodeRecord unmarshals a persisted record into v, wrapping decode
// failures in ErrInvalidRecord.
func DecodeRecord(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, err)
	}
	return nil
}
