// Package kpi scores an echo cancellation run against two thresholds.
//
// Power is measured over 16-bit samples as 10*log10(sum(x^2)/N). The game
// sound (echo) level is the last second of the capture, the residual is the
// last second of the output, and the voice and output levels span their
// whole files. A run passes when the output keeps the voice within the
// allowed attenuation and the residual is suppressed by at least the
// required amount below the game sound.
package kpi

import (
	"errors"
	"fmt"
	"log/slog"
	"math"

	"github.com/tphakala/go-aec-harness/internal/simdops"
	"github.com/tphakala/go-aec-harness/internal/wavio"
)

// ErrShortFile indicates a file shorter than its measurement window when the
// Reject policy is in effect.
var ErrShortFile = errors.New("file shorter than measurement window")

// Default thresholds in dB.
const (
	DefaultMaxVoiceAttenuationDB     = 5.0
	DefaultMinGameSoundAttenuationDB = 20.0
)

// Window selects which samples of a file are measured.
type Window int

const (
	// WholeFile measures every sample.
	WholeFile Window = iota

	// LastSecond measures the final second of the file.
	LastSecond
)

func (w Window) String() string {
	if w == LastSecond {
		return "last second"
	}
	return "whole file"
}

// ShortFilePolicy decides what a LastSecond measurement does on a file
// shorter than one second.
type ShortFilePolicy int

const (
	// Clamp measures the whole file and flags the measurement as clamped.
	Clamp ShortFilePolicy = iota

	// Reject marks the measurement invalid with ErrShortFile.
	Reject
)

// ParseShortFilePolicy maps "clamp" or "reject" to a policy.
func ParseShortFilePolicy(s string) (ShortFilePolicy, error) {
	switch s {
	case "", "clamp":
		return Clamp, nil
	case "reject":
		return Reject, nil
	default:
		return Clamp, fmt.Errorf("unknown short file policy %q (valid: clamp, reject)", s)
	}
}

// Thresholds holds the two pass criteria.
type Thresholds struct {
	MaxVoiceAttenuationDB     float64 // output may be at most this far below the voice
	MinGameSoundAttenuationDB float64 // residual must be at least this far below the game sound
}

// DefaultThresholds returns 5 dB voice attenuation and 20 dB game sound suppression.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MaxVoiceAttenuationDB:     DefaultMaxVoiceAttenuationDB,
		MinGameSoundAttenuationDB: DefaultMinGameSoundAttenuationDB,
	}
}

// Measurement is one power reading.
type Measurement struct {
	Label   string
	Path    string
	Window  Window
	Samples int     // samples in the window, all channels
	DB      float64 // -Inf for silence or an empty window
	Clamped bool    // window was shorter than requested
	Err     error   // non-nil when the reading is unusable
}

// Valid reports whether the measurement can be compared.
func (m Measurement) Valid() bool {
	return m.Err == nil
}

// PowerDB returns 10*log10 of the mean square of samples.
func PowerDB(samples []int16) float64 {
	if len(samples) == 0 {
		return math.Inf(-1)
	}
	energy := simdops.Int16Energy(samples, nil)
	return 10 * math.Log10(energy/float64(len(samples)))
}

// Evaluator measures files and applies the thresholds.
type Evaluator struct {
	thresholds Thresholds
	policy     ShortFilePolicy
	logger     *slog.Logger
}

// NewEvaluator creates an evaluator. A nil logger discards diagnostics.
func NewEvaluator(thresholds Thresholds, policy ShortFilePolicy, logger *slog.Logger) *Evaluator {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Evaluator{thresholds: thresholds, policy: policy, logger: logger}
}

// Measure reads path and computes its power over window.
// Open and header failures are returned as errors. An unsupported bit depth
// or a rejected short file yields a measurement with Err set instead.
func (e *Evaluator) Measure(path, label string, window Window) (Measurement, error) {
	m := Measurement{Label: label, Path: path, Window: window, DB: math.Inf(-1)}

	src, err := wavio.Open(path)
	if err != nil {
		return m, fmt.Errorf("%s: %w", label, err)
	}
	defer func() { _ = src.Close() }()

	desc := src.Descriptor()
	if err := desc.Require16Bit(); err != nil {
		m.Err = err
		e.logger.Error("measurement skipped", "label", label, "path", path, "error", err)
		return m, nil
	}

	samples, err := src.ReadAllInt16()
	if err != nil {
		return m, fmt.Errorf("%s: %w", label, err)
	}

	if window == LastSecond {
		span := desc.SampleRate * desc.Channels
		if len(samples) < span {
			if e.policy == Reject {
				m.Err = fmt.Errorf("%w: %s has %d samples, window needs %d", ErrShortFile, path, len(samples), span)
				e.logger.Error("measurement rejected", "label", label, "path", path, "error", m.Err)
				return m, nil
			}
			m.Clamped = true
			e.logger.Warn("file shorter than one second, measuring whole file",
				"label", label, "path", path, "samples", len(samples), "window", span)
		} else {
			samples = samples[len(samples)-span:]
		}
	}

	m.Samples = len(samples)
	m.DB = PowerDB(samples)
	return m, nil
}

// Files names the inputs of a KPI check.
type Files struct {
	Capture string // rec.wav: voice mixed with echo
	Output  string // out.wav: canceller output
	Voice   string // voice.wav: the clean voice mixed into the capture
}

// Evaluate measures the three files and applies the thresholds.
func (e *Evaluator) Evaluate(files Files) (*Result, error) {
	game, err := e.Measure(files.Capture, "game sound", LastSecond)
	if err != nil {
		return nil, err
	}
	residual, err := e.Measure(files.Output, "residual noise", LastSecond)
	if err != nil {
		return nil, err
	}
	voice, err := e.Measure(files.Voice, "voice", WholeFile)
	if err != nil {
		return nil, err
	}
	out, err := e.Measure(files.Output, "output", WholeFile)
	if err != nil {
		return nil, err
	}
	return Check(game, residual, voice, out, e.thresholds), nil
}
