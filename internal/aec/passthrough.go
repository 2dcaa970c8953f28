package aec

import (
	"fmt"

	"github.com/tphakala/go-aec-harness/internal/framebuf"
)

// Passthrough is an EchoController that cancels nothing. It still enforces
// the buffer modes of the contract and mirrors the capture's lowest band into
// the linear output, so pipelines built on it produce the same files an
// adaptive controller would, minus the cancellation.
type Passthrough struct {
	delay int
	stats Stats
}

// NewPassthrough returns a passthrough controller.
func NewPassthrough() *Passthrough {
	return &Passthrough{}
}

// AnalyzeRender checks that the render frame is split.
func (p *Passthrough) AnalyzeRender(render *framebuf.Buffer) error {
	if render.Mode() != framebuf.SplitBands {
		return fmt.Errorf("analyze render: %w: render is %s", framebuf.ErrWrongMode, render.Mode())
	}
	return nil
}

// AnalyzeCapture checks that the capture frame is in the time domain.
func (p *Passthrough) AnalyzeCapture(capture *framebuf.Buffer) error {
	if capture.Mode() != framebuf.TimeDomain {
		return fmt.Errorf("analyze capture: %w: capture is %s", framebuf.ErrWrongMode, capture.Mode())
	}
	return nil
}

// SetAudioBufferDelay records the hint.
func (p *Passthrough) SetAudioBufferDelay(samples int) {
	p.delay = samples
}

// Delay returns the last hint received.
func (p *Passthrough) Delay() int {
	return p.delay
}

// ProcessCapture copies the scaled lowest band into linear and leaves the
// capture unchanged.
func (p *Passthrough) ProcessCapture(capture, linear *framebuf.Buffer, _ bool) error {
	if capture.Mode() != framebuf.SplitBands {
		return fmt.Errorf("process capture: %w: capture is %s", framebuf.ErrWrongMode, capture.Mode())
	}
	p.stats.Frames++

	if linear == nil {
		return nil
	}
	if linear.Channels() != capture.Channels() || linear.FrameSamples() != capture.BandSamples() {
		return fmt.Errorf("%w: linear buffer has %d channels of %d samples; want %d of %d",
			ErrLayoutMismatch, linear.Channels(), linear.FrameSamples(), capture.Channels(), capture.BandSamples())
	}
	gain := capture.LowBandGain()
	for ch := range capture.Channels() {
		low, err := capture.Band(ch, 0)
		if err != nil {
			return fmt.Errorf("process capture: %w", err)
		}
		lin, err := linear.Channel(ch)
		if err != nil {
			return fmt.Errorf("process capture: %w", err)
		}
		for i, v := range low {
			lin[i] = v * gain
		}
	}
	return nil
}

// Stats returns the number of frames processed.
func (p *Passthrough) Stats() Stats {
	return p.stats
}
