package aec

import (
	"errors"
	"fmt"
)

// Default canceller parameters.
const (
	// DefaultTaps covers 4 ms of echo tail at a 16 kHz band rate after the
	// bulk delay hint.
	DefaultTaps = 64

	// DefaultStepSize is the NLMS step size mu, 0 < mu < 2.
	DefaultStepSize = 0.5

	// DefaultRegularization keeps the normalisation finite on near-silent
	// render. Samples are in 16-bit integer scale.
	DefaultRegularization = 1000.0

	// DefaultMaxDelaySamples bounds the delay hint: 100 ms at 16 kHz.
	DefaultMaxDelaySamples = 1600

	// DefaultResidualEchoRatio is the assumed fraction of the echo estimate
	// energy left after the linear stage.
	DefaultResidualEchoRatio = 0.01

	// DefaultSuppressionFloor is the smallest gain the residual suppressor applies.
	DefaultSuppressionFloor = 0.1
)

const (
	maxStepSize       = 2.0
	renderQueueFrames = 8 // queued render frames before the oldest is dropped
	saturationLevel   = 32767
	renderPowerFloor  = 1e-10
	defaultFrameMs    = 10
)

// Config parameterises an NLMS canceller.
type Config struct {
	SampleRate      int // full-band rate of render and capture
	BandRate        int // rate of each split band
	FrameMs         int
	RenderChannels  int
	CaptureChannels int

	Taps              int
	StepSize          float64
	Regularization    float64
	MaxDelaySamples   int
	ResidualEchoRatio float64
	SuppressionFloor  float64
}

// DefaultConfig returns a mono 16 kHz configuration with default parameters.
func DefaultConfig() Config {
	return Config{
		SampleRate:        16000,
		BandRate:          16000,
		FrameMs:           defaultFrameMs,
		RenderChannels:    1,
		CaptureChannels:   1,
		Taps:              DefaultTaps,
		StepSize:          DefaultStepSize,
		Regularization:    DefaultRegularization,
		MaxDelaySamples:   DefaultMaxDelaySamples,
		ResidualEchoRatio: DefaultResidualEchoRatio,
		SuppressionFloor:  DefaultSuppressionFloor,
	}
}

// Validate checks the configuration, reporting every problem found.
func (c *Config) Validate() error {
	var errs []error
	if c.RenderChannels < 1 || c.CaptureChannels < 1 {
		errs = append(errs, fmt.Errorf("%w: channel counts must be at least 1", ErrInvalidConfig))
	}
	if c.BandRate <= 0 || c.SampleRate%max(c.BandRate, 1) != 0 {
		errs = append(errs, fmt.Errorf("%w: sample rate %d is not a multiple of band rate %d",
			ErrInvalidConfig, c.SampleRate, c.BandRate))
	}
	if c.FrameMs <= 0 {
		errs = append(errs, fmt.Errorf("%w: frame duration must be positive", ErrInvalidConfig))
	}
	if c.Taps < 1 {
		errs = append(errs, fmt.Errorf("%w: taps must be at least 1", ErrInvalidConfig))
	}
	if c.StepSize <= 0 || c.StepSize >= maxStepSize {
		errs = append(errs, fmt.Errorf("%w: step size must be in (0, %g)", ErrInvalidConfig, maxStepSize))
	}
	if c.Regularization < 0 {
		errs = append(errs, fmt.Errorf("%w: regularization must not be negative", ErrInvalidConfig))
	}
	if c.MaxDelaySamples < 0 {
		errs = append(errs, fmt.Errorf("%w: max delay must not be negative", ErrInvalidConfig))
	}
	if c.ResidualEchoRatio < 0 {
		errs = append(errs, fmt.Errorf("%w: residual echo ratio must not be negative", ErrInvalidConfig))
	}
	if c.SuppressionFloor < 0 || c.SuppressionFloor > 1 {
		errs = append(errs, fmt.Errorf("%w: suppression floor must be in [0, 1]", ErrInvalidConfig))
	}
	return errors.Join(errs...)
}
