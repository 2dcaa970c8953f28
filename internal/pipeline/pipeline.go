// Package pipeline drives reference and capture streams through the echo
// cancellation stage one fixed-duration frame at a time.
//
// Each frame follows the same order: read both streams, analyse the split
// reference, analyse the full-band capture, split and high-pass the capture,
// set the delay hint, cancel, merge, then write the cleaned frame and the
// lowest-band linear diagnostic frame.
package pipeline

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/tphakala/go-aec-harness/internal/aec"
	"github.com/tphakala/go-aec-harness/internal/framebuf"
	"github.com/tphakala/go-aec-harness/internal/wavio"
)

// ErrFormatMismatch indicates reference and capture streams that differ in
// format tag, channel count, sample rate or bit depth.
var ErrFormatMismatch = errors.New("reference and capture formats differ")

// FrameReader supplies raw interleaved PCM bytes and the stream format.
// A short read means the stream is exhausted.
type FrameReader interface {
	Descriptor() wavio.Descriptor
	Read(p []byte) (int, error)
}

// FrameWriter accepts raw interleaved PCM bytes.
type FrameWriter interface {
	Write(p []byte) (int, error)
}

// Filter is the capture-side high-pass stage.
type Filter interface {
	Process(buf *framebuf.Buffer, splitBand bool) error
}

// Options configures a Pipeline.
type Options struct {
	// FrameMs is the frame duration in milliseconds.
	FrameMs int

	// BandRate is the rate of each split band and of the linear output.
	BandRate int

	// DelaySamples is the render-to-capture delay hint given every frame.
	DelaySamples int

	// RenderLinearOutput leaves the cleaned output at the linear filter stage.
	RenderLinearOutput bool

	// Progress, when set, is called after every processed frame.
	Progress func(current, total int)

	// Logger receives run diagnostics. Nil discards them.
	Logger *slog.Logger
}

// DefaultOptions returns 10 ms frames at a 16 kHz band rate with no delay.
func DefaultOptions() Options {
	return Options{
		FrameMs:  DefaultFrameMs,
		BandRate: DefaultBandRate,
	}
}

// Stats describes a completed run.
type Stats struct {
	ReferenceFrames int // complete frames available in the reference
	CaptureFrames   int // complete frames available in the capture
	TotalFrames     int // frames scheduled, min of the two
	Processed       int // frames actually written
	DiscardedFrames int // frames of the longer stream left unprocessed
}

// Pipeline runs the per-frame processing loop.
type Pipeline struct {
	canceller aec.EchoController
	filter    Filter
	opts      Options
	logger    *slog.Logger
}

// New creates a pipeline around the given canceller and capture filter.
func New(canceller aec.EchoController, filter Filter, opts Options) (*Pipeline, error) {
	if canceller == nil || filter == nil {
		return nil, errors.New("pipeline: canceller and filter are required")
	}
	if opts.FrameMs <= 0 || opts.BandRate <= 0 {
		return nil, fmt.Errorf("pipeline: invalid frame %d ms at band rate %d Hz", opts.FrameMs, opts.BandRate)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{
		canceller: canceller,
		filter:    filter,
		opts:      opts,
		logger:    logger,
	}, nil
}

// CheckFormats verifies that the two streams can be processed together.
func CheckFormats(ref, capture wavio.Descriptor) error {
	var diffs []error
	if ref.Format != capture.Format {
		diffs = append(diffs, fmt.Errorf("format tag %d vs %d", ref.Format, capture.Format))
	}
	if ref.Channels != capture.Channels {
		diffs = append(diffs, fmt.Errorf("channels %d vs %d", ref.Channels, capture.Channels))
	}
	if ref.SampleRate != capture.SampleRate {
		diffs = append(diffs, fmt.Errorf("sample rate %d vs %d", ref.SampleRate, capture.SampleRate))
	}
	if ref.BitsPerSample != capture.BitsPerSample {
		diffs = append(diffs, fmt.Errorf("bits per sample %d vs %d", ref.BitsPerSample, capture.BitsPerSample))
	}
	if len(diffs) > 0 {
		return fmt.Errorf("%w: %w", ErrFormatMismatch, errors.Join(diffs...))
	}
	return capture.Require16Bit()
}

// frameSet holds the buffers reused across every frame of a run.
type frameSet struct {
	ref, capture, linear   *framebuf.Buffer
	refPCM, capPCM, outPCM []byte
	linPCM                 []byte
}

func (p *Pipeline) newFrameSet(desc wavio.Descriptor) (*frameSet, error) {
	ref, err := framebuf.New(desc.SampleRate, desc.Channels, p.opts.BandRate, p.opts.FrameMs)
	if err != nil {
		return nil, err
	}
	capture, err := framebuf.New(desc.SampleRate, desc.Channels, p.opts.BandRate, p.opts.FrameMs)
	if err != nil {
		return nil, err
	}
	linear, err := framebuf.New(p.opts.BandRate, desc.Channels, p.opts.BandRate, p.opts.FrameMs)
	if err != nil {
		return nil, err
	}
	return &frameSet{
		ref:     ref,
		capture: capture,
		linear:  linear,
		refPCM:  make([]byte, ref.FrameBytes()),
		capPCM:  make([]byte, capture.FrameBytes()),
		outPCM:  make([]byte, capture.FrameBytes()),
		linPCM:  make([]byte, linear.FrameBytes()),
	}, nil
}

// Run processes min(reference, capture) frames, writing every cleaned frame
// to out and every linear diagnostic frame to linear (which may be nil).
// Formats are checked before anything is read.
func (p *Pipeline) Run(ref, capture FrameReader, out, linear FrameWriter) (Stats, error) {
	refDesc, capDesc := ref.Descriptor(), capture.Descriptor()
	if err := CheckFormats(refDesc, capDesc); err != nil {
		return Stats{}, err
	}

	fs, err := p.newFrameSet(capDesc)
	if err != nil {
		return Stats{}, err
	}

	stats := Stats{
		ReferenceFrames: refDesc.FrameCount(p.opts.FrameMs),
		CaptureFrames:   capDesc.FrameCount(p.opts.FrameMs),
	}
	stats.TotalFrames = min(stats.ReferenceFrames, stats.CaptureFrames)
	stats.DiscardedFrames = max(stats.ReferenceFrames, stats.CaptureFrames) - stats.TotalFrames

	p.logger.Debug("frame loop starting",
		"frame_ms", p.opts.FrameMs,
		"bands", fs.capture.NumBands(),
		"band_rate", p.opts.BandRate,
		"frames", stats.TotalFrames,
		"delay_samples", p.opts.DelaySamples)

	for stats.Processed < stats.TotalFrames {
		more, err := p.readFrames(ref, capture, fs)
		if err != nil {
			return stats, err
		}
		if !more {
			break
		}
		if err := p.processFrame(fs); err != nil {
			return stats, fmt.Errorf("frame %d: %w", stats.Processed, err)
		}
		if err := p.writeFrames(out, linear, fs); err != nil {
			return stats, fmt.Errorf("frame %d: %w", stats.Processed, err)
		}

		stats.Processed++
		if p.opts.Progress != nil {
			p.opts.Progress(stats.Processed, stats.TotalFrames)
		}
	}

	if stats.DiscardedFrames > 0 {
		p.logger.Warn("input lengths differ, trailing frames discarded",
			"reference_frames", stats.ReferenceFrames,
			"capture_frames", stats.CaptureFrames,
			"discarded_frames", stats.DiscardedFrames)
	}
	return stats, nil
}

// readFrames reads one frame from each stream. It returns false when either
// stream is exhausted.
func (p *Pipeline) readFrames(ref, capture FrameReader, fs *frameSet) (bool, error) {
	for _, r := range []struct {
		src  FrameReader
		dst  []byte
		name string
	}{
		{ref, fs.refPCM, "reference"},
		{capture, fs.capPCM, "capture"},
	} {
		n, err := r.src.Read(r.dst)
		if err != nil && !errors.Is(err, io.EOF) {
			return false, fmt.Errorf("failed to read %s frame: %w", r.name, err)
		}
		if n < len(r.dst) {
			return false, nil
		}
	}
	return true, nil
}

// processFrame loads, analyses, filters and cancels the frame read last.
func (p *Pipeline) processFrame(fs *frameSet) error {
	fs.ref.Reset()
	fs.capture.Reset()
	fs.linear.Reset()

	if err := fs.ref.LoadInterleaved(fs.refPCM); err != nil {
		return err
	}
	if err := fs.capture.LoadInterleaved(fs.capPCM); err != nil {
		return err
	}

	if err := fs.ref.Split(); err != nil {
		return err
	}
	if err := p.canceller.AnalyzeRender(fs.ref); err != nil {
		return fmt.Errorf("analyze render: %w", err)
	}
	if err := fs.ref.Merge(); err != nil {
		return err
	}

	if err := p.canceller.AnalyzeCapture(fs.capture); err != nil {
		return fmt.Errorf("analyze capture: %w", err)
	}
	if err := fs.capture.Split(); err != nil {
		return err
	}
	if err := p.filter.Process(fs.capture, true); err != nil {
		return fmt.Errorf("high-pass: %w", err)
	}

	p.canceller.SetAudioBufferDelay(p.opts.DelaySamples)
	if err := p.canceller.ProcessCapture(fs.capture, fs.linear, p.opts.RenderLinearOutput); err != nil {
		return fmt.Errorf("process capture: %w", err)
	}
	return fs.capture.Merge()
}

func (p *Pipeline) writeFrames(out, linear FrameWriter, fs *frameSet) error {
	if err := fs.capture.StoreInterleaved(fs.outPCM); err != nil {
		return err
	}
	if _, err := out.Write(fs.outPCM); err != nil {
		return fmt.Errorf("failed to write output frame: %w", err)
	}

	if linear == nil {
		return nil
	}
	if err := fs.linear.StoreInterleaved(fs.linPCM); err != nil {
		return err
	}
	if _, err := linear.Write(fs.linPCM); err != nil {
		return fmt.Errorf("failed to write linear frame: %w", err)
	}
	return nil
}
