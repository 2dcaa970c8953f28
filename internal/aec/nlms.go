package aec

import (
	"fmt"
	"math"

	"github.com/tphakala/go-aec-harness/internal/framebuf"
	"github.com/tphakala/go-aec-harness/internal/simdops"
)

// NLMS is a sub-band normalised least mean squares echo canceller followed by
// a residual echo suppressor.
//
// The render signal is downmixed to mono per band and queued. Every capture
// channel runs one adaptive FIR per band over the delayed render history:
//
//	e[n] = y[n] - w . x[n-d-taps+1 .. n-d]
//	w   += mu * e[n] * x / (|x|^2 + delta)
//
// The suppressor then scales each band by max(floor, E/(E + r*Y)), where E is
// the frame's error energy and Y the energy of the echo estimate.
type NLMS struct {
	cfg         Config
	numBands    int
	bandSamples int
	histLen     int

	queues  []*RenderQueue // per band
	history [][]float64    // per band, oldest first
	weights [][][]float64  // [capture channel][band][tap]

	delay     int
	saturated bool
	stats     Stats

	// scratch
	mono     []float64
	render   []float64
	estimate []float64
}

// NewNLMS builds a canceller for the given layout and parameters.
func NewNLMS(cfg Config) (*NLMS, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	numBands := cfg.SampleRate / cfg.BandRate
	bandSamples := cfg.BandRate * cfg.FrameMs / millisPerSecond
	histLen := cfg.MaxDelaySamples + cfg.Taps - 1 + bandSamples

	n := &NLMS{
		cfg:         cfg,
		numBands:    numBands,
		bandSamples: bandSamples,
		histLen:     histLen,
		queues:      make([]*RenderQueue, numBands),
		history:     make([][]float64, numBands),
		weights:     make([][][]float64, cfg.CaptureChannels),
		mono:        make([]float64, bandSamples),
		render:      make([]float64, bandSamples),
		estimate:    make([]float64, bandSamples),
	}
	for b := range numBands {
		n.queues[b] = NewRenderQueue(bandSamples * renderQueueFrames)
		n.history[b] = make([]float64, histLen)
	}
	for ch := range cfg.CaptureChannels {
		n.weights[ch] = make([][]float64, numBands)
		for b := range numBands {
			n.weights[ch][b] = make([]float64, cfg.Taps)
		}
	}
	return n, nil
}

func (n *NLMS) checkLayout(buf *framebuf.Buffer, channels int, what string) error {
	if buf.Channels() != channels || buf.NumBands() != n.numBands || buf.BandSamples() != n.bandSamples {
		return fmt.Errorf("%w: %s buffer has %d channels, %d bands of %d samples; want %d, %d, %d",
			ErrLayoutMismatch, what, buf.Channels(), buf.NumBands(), buf.BandSamples(),
			channels, n.numBands, n.bandSamples)
	}
	return nil
}

// AnalyzeRender queues one split-band render frame.
func (n *NLMS) AnalyzeRender(render *framebuf.Buffer) error {
	if err := n.checkLayout(render, n.cfg.RenderChannels, "render"); err != nil {
		return err
	}

	inv := 1 / float64(render.Channels())
	for b := range n.numBands {
		clear(n.mono)
		for ch := range render.Channels() {
			band, err := render.Band(ch, b)
			if err != nil {
				return fmt.Errorf("analyze render: %w", err)
			}
			simdops.AddScaled(n.mono, band, inv)
		}

		q := n.queues[b]
		if overflow := q.Available() + n.bandSamples - n.bandSamples*renderQueueFrames; overflow > 0 {
			q.Discard(overflow)
			if b == 0 {
				n.stats.RenderOverruns++
			}
		}
		q.Write(n.mono)
	}
	return nil
}

// AnalyzeCapture records whether the unprocessed capture frame is clipped.
// Adaptation is skipped for clipped frames.
func (n *NLMS) AnalyzeCapture(capture *framebuf.Buffer) error {
	if err := n.checkLayout(capture, n.cfg.CaptureChannels, "capture"); err != nil {
		return err
	}

	n.saturated = false
	for ch := range capture.Channels() {
		data, err := capture.Channel(ch)
		if err != nil {
			return fmt.Errorf("analyze capture: %w", err)
		}
		for _, v := range data {
			if math.Abs(v) >= saturationLevel {
				n.saturated = true
				return nil
			}
		}
	}
	return nil
}

// SetAudioBufferDelay sets the bulk render-to-capture delay in band samples,
// clamped to [0, MaxDelaySamples].
func (n *NLMS) SetAudioBufferDelay(samples int) {
	n.delay = max(0, min(samples, n.cfg.MaxDelaySamples))
}

// Delay returns the delay currently applied.
func (n *NLMS) Delay() int {
	return n.delay
}

// ProcessCapture cancels echo in the split-band capture in place.
func (n *NLMS) ProcessCapture(capture, linear *framebuf.Buffer, renderLinearOutput bool) error {
	if err := n.checkLayout(capture, n.cfg.CaptureChannels, "capture"); err != nil {
		return err
	}
	if capture.Mode() != framebuf.SplitBands {
		return fmt.Errorf("process capture: %w: capture is %s", framebuf.ErrWrongMode, capture.Mode())
	}
	if linear != nil && (linear.Channels() != n.cfg.CaptureChannels || linear.FrameSamples() != n.bandSamples) {
		return fmt.Errorf("%w: linear buffer has %d channels of %d samples; want %d of %d",
			ErrLayoutMismatch, linear.Channels(), linear.FrameSamples(), n.cfg.CaptureChannels, n.bandSamples)
	}

	underrun := n.advanceHistory()
	adapt := !n.saturated && !underrun

	n.stats.Frames++
	if adapt {
		n.stats.AdaptedFrames++
	}
	if n.saturated {
		n.stats.SaturatedFrames++
	}
	if underrun {
		n.stats.RenderUnderruns++
	}
	n.saturated = false

	for ch := range n.cfg.CaptureChannels {
		var lin []float64
		if linear != nil {
			var err error
			if lin, err = linear.Channel(ch); err != nil {
				return fmt.Errorf("process capture: %w", err)
			}
		}

		for b := range n.numBands {
			y, err := capture.Band(ch, b)
			if err != nil {
				return fmt.Errorf("process capture: %w", err)
			}

			n.stats.CaptureEnergy += simdops.Energy(y)
			n.filterBand(n.weights[ch][b], n.history[b], y, adapt)

			if b == 0 && lin != nil {
				gain := capture.LowBandGain()
				for i, e := range y {
					lin[i] = e * gain
				}
			}
			if !renderLinearOutput {
				simdops.Scale(y, n.suppressionGain(simdops.Energy(y), simdops.Energy(n.estimate)))
			}
			n.stats.OutputEnergy += simdops.Energy(y)
		}
	}
	return nil
}

// advanceHistory shifts one queued render frame into each band history.
// It reports an underrun when a band had no full frame queued; the history
// then advances with silence.
func (n *NLMS) advanceHistory() bool {
	underrun := false
	for b := range n.numBands {
		q := n.queues[b]
		if q.Available() >= n.bandSamples {
			q.ReadInto(n.render)
		} else {
			underrun = true
			clear(n.render)
		}
		hist := n.history[b]
		copy(hist, hist[n.bandSamples:])
		copy(hist[n.histLen-n.bandSamples:], n.render)
	}
	return underrun
}

// filterBand runs the adaptive filter over one band in place, leaving the
// error in y and the echo estimate in n.estimate.
func (n *NLMS) filterBand(w, hist, y []float64, adapt bool) {
	taps := len(w)
	base := n.histLen - n.bandSamples - n.delay + 1
	for i := range y {
		end := base + i
		x := hist[end-taps : end]

		est := simdops.Dot(w, x)
		e := y[i] - est
		if adapt {
			if power := simdops.Energy(x); power > renderPowerFloor {
				simdops.AddScaled(w, x, n.cfg.StepSize*e/(power+n.cfg.Regularization))
			}
		}
		n.estimate[i] = est
		y[i] = e
	}
}

func (n *NLMS) suppressionGain(errEnergy, echoEnergy float64) float64 {
	residual := n.cfg.ResidualEchoRatio * echoEnergy
	if errEnergy+residual == 0 {
		return 1
	}
	return max(n.cfg.SuppressionFloor, errEnergy/(errEnergy+residual))
}

// Stats returns counters accumulated since construction.
func (n *NLMS) Stats() Stats {
	return n.stats
}

// Reset clears the filters, histories and queued render audio.
func (n *NLMS) Reset() {
	for b := range n.numBands {
		n.queues[b].Clear()
		clear(n.history[b])
	}
	for ch := range n.weights {
		for b := range n.weights[ch] {
			clear(n.weights[ch][b])
		}
	}
	n.saturated = false
	n.stats = Stats{}
}

const millisPerSecond = 1000
