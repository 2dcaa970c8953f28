package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tphakala/go-aec-harness/internal/aec"
	"github.com/tphakala/go-aec-harness/internal/kpi"
)

// Config holds every tunable of an evaluation run.
// The zero value is not usable; start from DefaultConfig.
type Config struct {
	// FrameDurationMs is the processing granularity in milliseconds.
	FrameDurationMs int `yaml:"frame_duration_ms"`

	// LinearOutputRateHz is the split band rate, which is also the sample
	// rate of the linear diagnostic output. Input rates must be a multiple
	// of it.
	LinearOutputRateHz int `yaml:"linear_output_rate_hz"`

	// DelaySamples is the fixed render-to-capture delay hint in band-rate
	// samples, applied every frame.
	DelaySamples int `yaml:"delay_samples"`

	// RenderLinearOutput writes the linear filter output to out.wav instead
	// of the suppressed signal.
	RenderLinearOutput bool `yaml:"render_linear_output"`

	// LogLevel is one of debug, info, warn or error.
	LogLevel string `yaml:"log_level"`

	KPI       KPIConfig       `yaml:"kpi"`
	Canceller CancellerConfig `yaml:"canceller"`
	HighPass  HighPassConfig  `yaml:"high_pass"`
}

// KPIConfig holds the pass criteria of the KPI check.
type KPIConfig struct {
	MaxVoiceAttenuationDB     float64 `yaml:"max_voice_attenuation_db"`
	MinGameSoundAttenuationDB float64 `yaml:"min_game_sound_attenuation_db"`

	// ShortFilePolicy is clamp or reject.
	ShortFilePolicy string `yaml:"short_file_policy"`
}

// CancellerConfig holds the NLMS canceller parameters.
type CancellerConfig struct {
	Taps              int     `yaml:"taps"`
	StepSize          float64 `yaml:"step_size"`
	Regularization    float64 `yaml:"regularization"`
	MaxDelaySamples   int     `yaml:"max_delay_samples"`
	ResidualEchoRatio float64 `yaml:"residual_echo_ratio"`
	SuppressionFloor  float64 `yaml:"suppression_floor"`
}

// HighPassConfig holds the capture high-pass parameters.
type HighPassConfig struct {
	CutoffHz float64 `yaml:"cutoff_hz"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		FrameDurationMs:    DefaultFrameDurationMs,
		LinearOutputRateHz: DefaultLinearOutputRateHz,
		LogLevel:           DefaultLogLevel,
		KPI: KPIConfig{
			MaxVoiceAttenuationDB:     kpi.DefaultMaxVoiceAttenuationDB,
			MinGameSoundAttenuationDB: kpi.DefaultMinGameSoundAttenuationDB,
			ShortFilePolicy:           DefaultShortFilePolicy,
		},
		Canceller: CancellerConfig{
			Taps:              aec.DefaultTaps,
			StepSize:          aec.DefaultStepSize,
			Regularization:    aec.DefaultRegularization,
			MaxDelaySamples:   aec.DefaultMaxDelaySamples,
			ResidualEchoRatio: aec.DefaultResidualEchoRatio,
			SuppressionFloor:  aec.DefaultSuppressionFloor,
		},
		HighPass: HighPassConfig{
			CutoffHz: DefaultHighPassCutoffHz,
		},
	}
}

// LoadConfig reads the YAML file at path over the defaults and validates it.
func LoadConfig(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	cfg, err := LoadConfigFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadConfigFromReader decodes YAML from r over the defaults. Keys that do
// not map to a field are rejected. An empty document yields the defaults.
func LoadConfigFromReader(r io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: decode yaml: %w", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and returns every problem found.
func (c *Config) Validate() error {
	var errs []error

	if c.FrameDurationMs <= 0 {
		errs = append(errs, fmt.Errorf("%w: frame_duration_ms %d must be positive", ErrInvalidConfig, c.FrameDurationMs))
	}
	if c.LinearOutputRateHz <= 0 {
		errs = append(errs, fmt.Errorf("%w: linear_output_rate_hz %d must be positive", ErrInvalidConfig, c.LinearOutputRateHz))
	}
	if c.DelaySamples < 0 {
		errs = append(errs, fmt.Errorf("%w: delay_samples %d must not be negative", ErrInvalidConfig, c.DelaySamples))
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("%w: %w", ErrInvalidConfig, err))
	}

	if c.KPI.MaxVoiceAttenuationDB < 0 {
		errs = append(errs, fmt.Errorf("%w: kpi.max_voice_attenuation_db must not be negative", ErrInvalidConfig))
	}
	if c.KPI.MinGameSoundAttenuationDB < 0 {
		errs = append(errs, fmt.Errorf("%w: kpi.min_game_sound_attenuation_db must not be negative", ErrInvalidConfig))
	}
	if _, err := kpi.ParseShortFilePolicy(c.KPI.ShortFilePolicy); err != nil {
		errs = append(errs, fmt.Errorf("%w: kpi.short_file_policy: %w", ErrInvalidConfig, err))
	}

	// Rates are only known per run; check the canceller at the band rate.
	if c.LinearOutputRateHz > 0 && c.FrameDurationMs > 0 {
		ac := c.cancellerConfig(c.LinearOutputRateHz, c.LinearOutputRateHz, 1)
		if err := ac.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%w: canceller: %w", ErrInvalidConfig, err))
		}
	}

	nyquist := float64(c.LinearOutputRateHz) / 2
	if c.HighPass.CutoffHz <= 0 || c.HighPass.CutoffHz >= nyquist {
		errs = append(errs, fmt.Errorf("%w: high_pass.cutoff_hz %g must be in (0, %g)", ErrInvalidConfig, c.HighPass.CutoffHz, nyquist))
	}

	return errors.Join(errs...)
}

// cancellerConfig builds the NLMS parameters for a stream of the given rate
// and channel count, split at bandRate.
func (c *Config) cancellerConfig(sampleRate, bandRate, channels int) aec.Config {
	return aec.Config{
		SampleRate:        sampleRate,
		BandRate:          bandRate,
		FrameMs:           c.FrameDurationMs,
		RenderChannels:    channels,
		CaptureChannels:   channels,
		Taps:              c.Canceller.Taps,
		StepSize:          c.Canceller.StepSize,
		Regularization:    c.Canceller.Regularization,
		MaxDelaySamples:   c.Canceller.MaxDelaySamples,
		ResidualEchoRatio: c.Canceller.ResidualEchoRatio,
		SuppressionFloor:  c.Canceller.SuppressionFloor,
	}
}

// thresholds returns the KPI pass criteria.
func (c *Config) thresholds() kpi.Thresholds {
	return kpi.Thresholds{
		MaxVoiceAttenuationDB:     c.KPI.MaxVoiceAttenuationDB,
		MinGameSoundAttenuationDB: c.KPI.MinGameSoundAttenuationDB,
	}
}

// ParseLogLevel maps debug, info, warn or error to a slog level.
// An empty string selects info.
func ParseLogLevel(s string) (slog.Level, error) {
	if s == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", s)
	}
	return level, nil
}
