// Package hpf removes low-frequency rumble and DC from captured audio before
// echo cancellation. Each channel runs a second-order high-pass biquad whose
// state persists across frames.
package hpf

import (
	"errors"
	"fmt"
	"math"

	"github.com/cwbudde/algo-dsp/dsp/filter/biquad"
	"github.com/cwbudde/algo-dsp/dsp/filter/design"

	"github.com/tphakala/go-aec-harness/internal/framebuf"
)

// ErrInvalidCutoff indicates a cutoff outside (0, Nyquist).
var ErrInvalidCutoff = errors.New("high-pass cutoff out of range")

// DefaultCutoffHz is the corner frequency used when none is configured.
const DefaultCutoffHz = 80.0

// butterworthQ gives a maximally flat second-order response.
const butterworthQ = 1 / math.Sqrt2

// Filter is a per-channel high-pass for frame buffers.
//
// Split-band frames are filtered on their lowest band only, at the band rate;
// the upper bands carry no content below the cutoff. Full-band frames are
// filtered at the full sample rate. The two paths keep separate state.
type Filter struct {
	cutoff float64
	full   []*biquad.Section
	low    []*biquad.Section
}

// New designs the filter for the given rates and channel count.
func New(sampleRate, channels, bandRate int, cutoffHz float64) (*Filter, error) {
	if channels < 1 {
		return nil, fmt.Errorf("hpf: channel count %d", channels)
	}
	fullCoeffs, err := Highpass(cutoffHz, float64(sampleRate))
	if err != nil {
		return nil, err
	}
	lowCoeffs, err := Highpass(cutoffHz, float64(bandRate))
	if err != nil {
		return nil, err
	}

	f := &Filter{
		cutoff: cutoffHz,
		full:   make([]*biquad.Section, channels),
		low:    make([]*biquad.Section, channels),
	}
	for ch := range channels {
		f.full[ch] = biquad.NewSection(fullCoeffs)
		f.low[ch] = biquad.NewSection(lowCoeffs)
	}
	return f, nil
}

// Highpass returns Butterworth high-pass coefficients for cutoffHz at
// sampleRate, normalised to a0 = 1.
func Highpass(cutoffHz, sampleRate float64) (biquad.Coefficients, error) {
	if cutoffHz <= 0 || cutoffHz >= sampleRate/2 {
		return biquad.Coefficients{}, fmt.Errorf("%w: %.1f Hz at %.0f Hz", ErrInvalidCutoff, cutoffHz, sampleRate)
	}
	return design.Highpass(cutoffHz, butterworthQ, sampleRate), nil
}

// Cutoff returns the corner frequency in Hz.
func (f *Filter) Cutoff() float64 {
	return f.cutoff
}

// Process filters buf in place. With splitBand the buffer must be split and
// only band 0 is filtered; otherwise the buffer must be in the time domain.
func (f *Filter) Process(buf *framebuf.Buffer, splitBand bool) error {
	if buf.Channels() != len(f.full) {
		return fmt.Errorf("hpf: buffer has %d channels, filter has %d", buf.Channels(), len(f.full))
	}

	for ch := range buf.Channels() {
		var (
			data []float64
			err  error
		)
		if splitBand {
			data, err = buf.Band(ch, 0)
		} else {
			data, err = buf.Channel(ch)
		}
		if err != nil {
			return fmt.Errorf("hpf: %w", err)
		}

		if splitBand {
			f.low[ch].ProcessBlock(data)
		} else {
			f.full[ch].ProcessBlock(data)
		}
	}
	return nil
}

// Reset clears the filter state of every channel.
func (f *Filter) Reset() {
	for ch := range f.full {
		f.full[ch].Reset()
		f.low[ch].Reset()
	}
}
