// Package aec contains the echo cancellation stage of the harness.
//
// EchoController is the contract the frame pipeline drives once per 10 ms
// frame: render analysis on the split reference, capture analysis on the
// full-band capture, then in-place processing of the split capture. NLMS is
// the adaptive implementation shipped with the harness; Passthrough leaves
// the capture untouched and exists to test the surrounding plumbing.
//
// Buffers passed to a controller are only borrowed for the duration of the
// call and are never retained.
package aec

import (
	"errors"
	"math"

	"github.com/tphakala/go-aec-harness/internal/framebuf"
)

// Sentinel errors returned by controllers.
var (
	// ErrInvalidConfig indicates unusable canceller parameters.
	ErrInvalidConfig = errors.New("invalid echo canceller configuration")

	// ErrLayoutMismatch indicates a buffer whose channels, rate or frame size
	// does not match what the controller was built for.
	ErrLayoutMismatch = errors.New("buffer layout mismatch")
)

// EchoController removes the echo of a render (reference) signal from a
// capture signal.
type EchoController interface {
	// AnalyzeRender consumes one frame of reference audio in split-band mode.
	AnalyzeRender(render *framebuf.Buffer) error

	// AnalyzeCapture inspects one frame of capture audio in time-domain mode
	// before any capture processing.
	AnalyzeCapture(capture *framebuf.Buffer) error

	// SetAudioBufferDelay hints the render-to-capture delay in band-rate
	// samples.
	SetAudioBufferDelay(samples int)

	// ProcessCapture cancels echo in the split-band capture in place.
	// When linear is non-nil it receives the lowest-band output of the
	// linear filter stage at the band rate. With renderLinearOutput the
	// capture itself is left at the linear stage output.
	ProcessCapture(capture, linear *framebuf.Buffer, renderLinearOutput bool) error
}

// Stats summarises what a controller has done so far.
type Stats struct {
	Frames          int // ProcessCapture calls
	AdaptedFrames   int // frames where the adaptive filter was updated
	SaturatedFrames int // frames skipped for adaptation due to capture clipping
	RenderUnderruns int // frames processed without a queued render frame
	RenderOverruns  int // render frames dropped because the queue was full

	CaptureEnergy float64 // sum of squares entering ProcessCapture
	OutputEnergy  float64 // sum of squares leaving ProcessCapture
}

// ERLE returns the echo return loss enhancement in dB over all frames.
func (s Stats) ERLE() float64 {
	if s.CaptureEnergy == 0 {
		return 0
	}
	return 10 * math.Log10((s.CaptureEnergy+energyEpsilon)/(s.OutputEnergy+energyEpsilon))
}

const energyEpsilon = 1e-10
