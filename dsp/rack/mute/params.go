package mute

// Control ranges of the gate.
const (
	MinFadeTime     = 0.01 // seconds
	MaxFadeTime     = 1.0  // seconds
	DefaultFadeTime = 0.1  // seconds

	MinScaleControl = 0.0
	MaxScaleControl = 2.0
)

// Params holds the control values read on every tick.
type Params struct {
	Mute     float64 // mute button, fires on rising edges above 0
	FadeIn   float64 // base fade-in time in seconds, [MinFadeTime, MaxFadeTime]
	FadeOut  float64 // base fade-out time in seconds, [MinFadeTime, MaxFadeTime]
	ScaleIn  float64 // fade-in scale selector, [MinScaleControl, MaxScaleControl]
	ScaleOut float64 // fade-out scale selector, [MinScaleControl, MaxScaleControl]
}

// DefaultParams returns the panel defaults: 0.1 s fades at x1.
func DefaultParams() Params {
	return Params{
		FadeIn:  DefaultFadeTime,
		FadeOut: DefaultFadeTime,
	}
}

// RampUpTime returns the fade-in duration in seconds.
func (p Params) RampUpTime() float64 {
	return p.FadeIn * float64(ScaleFromControl(p.ScaleIn))
}

// RampDownTime returns the fade-out duration in seconds.
func (p Params) RampDownTime() float64 {
	return p.FadeOut * float64(ScaleFromControl(p.ScaleOut))
}
