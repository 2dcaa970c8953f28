package harness

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/tphakala/go-aec-harness/internal/aec"
	"github.com/tphakala/go-aec-harness/internal/framebuf"
	"github.com/tphakala/go-aec-harness/internal/hpf"
	"github.com/tphakala/go-aec-harness/internal/kpi"
	"github.com/tphakala/go-aec-harness/internal/pipeline"
	"github.com/tphakala/go-aec-harness/internal/progress"
	"github.com/tphakala/go-aec-harness/internal/wavio"
)

// Common errors
var (
	// ErrInvalidConfig indicates an unusable configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrMissingPath indicates a required file path was left empty.
	ErrMissingPath = errors.New("missing file path")
)

// CancellerFactory builds the echo canceller for one run.
type CancellerFactory func(cfg aec.Config) (aec.EchoController, error)

// NLMSCanceller builds the adaptive canceller. It is the default.
func NLMSCanceller(cfg aec.Config) (aec.EchoController, error) {
	return aec.NewNLMS(cfg)
}

// PassthroughCanceller builds a canceller that leaves the capture unchanged.
func PassthroughCanceller(aec.Config) (aec.EchoController, error) {
	return aec.NewPassthrough(), nil
}

// statsProvider is implemented by cancellers that keep run statistics.
type statsProvider interface {
	Stats() aec.Stats
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger for run diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Harness) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithProgress draws a progress bar on w while frames are processed.
func WithProgress(w io.Writer) Option {
	return func(h *Harness) {
		h.progress = w
	}
}

// WithCanceller replaces the default NLMS canceller.
func WithCanceller(factory CancellerFactory) Option {
	return func(h *Harness) {
		if factory != nil {
			h.newCanceller = factory
		}
	}
}

// Files names the inputs and outputs of a run.
type Files struct {
	Reference string // ref.wav: the render signal
	Capture   string // rec.wav: voice plus echo
	Output    string // out.wav: cleaned capture

	// Linear receives the linear filter output at the band rate. Empty
	// selects linear.wav next to Output.
	Linear string

	// Voice is the clean voice mixed into the capture. Optional; it is only
	// needed for the KPI check.
	Voice string
}

// DefaultLinearPath returns linear.wav in the directory of output.
func DefaultLinearPath(output string) string {
	return filepath.Join(filepath.Dir(output), DefaultLinearFileName)
}

func (f Files) linearPath() string {
	if f.Linear != "" {
		return f.Linear
	}
	return DefaultLinearPath(f.Output)
}

// Report describes a completed run.
type Report struct {
	Reference wavio.Descriptor
	Capture   wavio.Descriptor
	Voice     wavio.Descriptor // zero when no voice file was given
	Output    wavio.Descriptor
	Linear    wavio.Descriptor

	LinearPath string
	Pipeline   pipeline.Stats
	Canceller  aec.Stats
	Elapsed    time.Duration
}

// Speed returns how many times faster than real time the run was.
func (r *Report) Speed() float64 {
	if r.Elapsed <= 0 {
		return 0
	}
	return r.Output.Duration().Seconds() / r.Elapsed.Seconds()
}

// Harness runs evaluations with a fixed configuration.
type Harness struct {
	cfg          Config
	logger       *slog.Logger
	progress     io.Writer
	newCanceller CancellerFactory
}

// New validates cfg and creates a harness. A nil cfg selects DefaultConfig.
func New(cfg *Config, opts ...Option) (*Harness, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	h := &Harness{
		cfg:          *cfg,
		logger:       slog.New(slog.DiscardHandler),
		newCanceller: NLMSCanceller,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

// Config returns a copy of the configuration in use.
func (h *Harness) Config() Config {
	return h.cfg
}

// Inspect parses the header of the WAV file at path.
func Inspect(path string) (wavio.Descriptor, error) {
	return wavio.Inspect(path)
}

// Process runs the canceller over files.Reference and files.Capture, writing
// files.Output and the linear output.
//
// Every header is checked before any output file is created: the reference
// and capture must match each other and be 16-bit PCM at a supported rate,
// and a voice file, when named, must at least be a readable WAV.
func (h *Harness) Process(files Files) (report *Report, err error) {
	if files.Reference == "" || files.Capture == "" || files.Output == "" {
		return nil, fmt.Errorf("%w: reference, capture and output are required", ErrMissingPath)
	}
	report = &Report{LinearPath: files.linearPath()}

	ref, err := wavio.Open(files.Reference)
	if err != nil {
		return nil, fmt.Errorf("reference: %w", err)
	}
	defer func() { _ = ref.Close() }()

	capture, err := wavio.Open(files.Capture)
	if err != nil {
		return nil, fmt.Errorf("capture: %w", err)
	}
	defer func() { _ = capture.Close() }()

	report.Reference = ref.Descriptor()
	report.Capture = capture.Descriptor()
	h.logger.Info("reference", "path", ref.Path(), "format", report.Reference.String())
	h.logger.Info("capture", "path", capture.Path(), "format", report.Capture.String())

	if files.Voice != "" {
		report.Voice, err = wavio.Inspect(files.Voice)
		if err != nil {
			return nil, fmt.Errorf("voice: %w", err)
		}
		h.logger.Info("voice", "path", files.Voice, "format", report.Voice.String())
	}

	if err := pipeline.CheckFormats(report.Reference, report.Capture); err != nil {
		return nil, err
	}

	desc := report.Capture
	bandRate := framebuf.BandRateFor(desc.SampleRate, h.cfg.LinearOutputRateHz)
	if _, err := framebuf.New(desc.SampleRate, desc.Channels, bandRate, h.cfg.FrameDurationMs); err != nil {
		return nil, err
	}
	if bandRate != h.cfg.LinearOutputRateHz {
		h.logger.Warn("input rate below band rate, processing a single band",
			"sample_rate", desc.SampleRate, "band_rate", bandRate)
	}

	canceller, err := h.newCanceller(h.cfg.cancellerConfig(desc.SampleRate, bandRate, desc.Channels))
	if err != nil {
		return nil, fmt.Errorf("failed to create echo canceller: %w", err)
	}
	filter, err := hpf.New(desc.SampleRate, desc.Channels, bandRate, h.cfg.HighPass.CutoffHz)
	if err != nil {
		return nil, fmt.Errorf("failed to create high-pass filter: %w", err)
	}
	h.logger.Debug("high-pass filter", "cutoff_hz", filter.Cutoff(), "band_rate", bandRate)

	frames := int64(min(report.Reference.FrameCount(h.cfg.FrameDurationMs), desc.FrameCount(h.cfg.FrameDurationMs)))
	linearFrameBytes := int64(bandRate * h.cfg.FrameDurationMs / millisPerSecond * desc.Channels * desc.BytesPerSample())

	out, err := wavio.Create(files.Output, desc.SampleRate, bitsPerSample16, desc.Channels,
		frames*int64(desc.BytesPerFrame(h.cfg.FrameDurationMs)))
	if err != nil {
		return nil, fmt.Errorf("output: %w", err)
	}
	// Close errors matter on the success path: they carry the header patch.
	// A failed run leaves no output behind.
	defer func() {
		if closeErr := out.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("output: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(files.Output)
		}
	}()

	linearPath := report.LinearPath
	linear, err := wavio.Create(linearPath, bandRate, bitsPerSample16, desc.Channels,
		frames*linearFrameBytes)
	if err != nil {
		return nil, fmt.Errorf("linear output: %w", err)
	}
	defer func() {
		if closeErr := linear.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("linear output: %w", closeErr)
		}
		if err != nil {
			_ = os.Remove(linearPath)
		}
	}()

	opts := pipeline.Options{
		FrameMs:            h.cfg.FrameDurationMs,
		BandRate:           bandRate,
		DelaySamples:       h.cfg.DelaySamples,
		RenderLinearOutput: h.cfg.RenderLinearOutput,
		Logger:             h.logger,
	}
	bar := progress.New(h.progress, int(frames), h.progress != nil)
	opts.Progress = func(current, _ int) { bar.Update(current) }

	p, err := pipeline.New(canceller, filter, opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	report.Pipeline, err = p.Run(ref, capture, out, linear)
	report.Elapsed = time.Since(start)
	bar.Done()
	if err != nil {
		return nil, err
	}
	report.Output = out.Descriptor()
	report.Linear = linear.Descriptor()

	if sp, ok := canceller.(statsProvider); ok {
		report.Canceller = sp.Stats()
		h.logger.Debug("canceller finished",
			"frames", report.Canceller.Frames,
			"adapted", report.Canceller.AdaptedFrames,
			"saturated", report.Canceller.SaturatedFrames,
			"render_underruns", report.Canceller.RenderUnderruns,
			"erle_db", report.Canceller.ERLE())
	}
	h.logger.Info("run complete",
		"frames", report.Pipeline.Processed,
		"output", files.Output,
		"linear", report.LinearPath,
		"elapsed", report.Elapsed)
	return report, nil
}

// Evaluate runs the KPI check on files.Capture, files.Output and files.Voice.
func (h *Harness) Evaluate(files Files) (*kpi.Result, error) {
	if files.Capture == "" || files.Output == "" || files.Voice == "" {
		return nil, fmt.Errorf("%w: capture, output and voice are required", ErrMissingPath)
	}
	policy, err := kpi.ParseShortFilePolicy(h.cfg.KPI.ShortFilePolicy)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	result, err := kpi.NewEvaluator(h.cfg.thresholds(), policy, h.logger).Evaluate(kpi.Files{
		Capture: files.Capture,
		Output:  files.Output,
		Voice:   files.Voice,
	})
	if err != nil {
		return nil, err
	}
	for _, m := range result.Measurements() {
		h.logger.Debug("kpi measurement", "label", m.Label, "path", m.Path, "window", m.Window.String(),
			"samples", m.Samples, "db", m.DB, "clamped", m.Clamped)
	}
	return result, nil
}
