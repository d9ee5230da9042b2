package core

// ProcessorConfig defines common processing settings shared by hosts and
// offline renderers.
type ProcessorConfig struct {
	SampleRate float64
}

// ProcessorOption mutates a ProcessorConfig.
type ProcessorOption func(*ProcessorConfig)

// DefaultProcessorConfig returns the settings of a typical rack host.
func DefaultProcessorConfig() ProcessorConfig {
	return ProcessorConfig{
		SampleRate: 48000,
	}
}

// WithSampleRate sets the processing sample rate.
func WithSampleRate(sampleRate float64) ProcessorOption {
	return func(cfg *ProcessorConfig) {
		if sampleRate > 0 {
			cfg.SampleRate = sampleRate
		}
	}
}

// ApplyProcessorOptions applies zero or more options to the default config.
func ApplyProcessorOptions(opts ...ProcessorOption) ProcessorConfig {
	cfg := DefaultProcessorConfig()
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	return cfg
}

// SampleTime returns the duration of one sample in seconds.
func (c ProcessorConfig) SampleTime() float64 {
	if c.SampleRate <= 0 {
		return 0
	}
	return 1 / c.SampleRate
}

// Samples converts a duration in seconds to a whole number of samples,
// rounding down. Negative durations yield 0.
func (c ProcessorConfig) Samples(seconds float64) int {
	if seconds <= 0 || c.SampleRate <= 0 {
		return 0
	}
	return int(seconds * c.SampleRate)
}
