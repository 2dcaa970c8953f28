// Package framebuf holds one audio frame in either its full-band time-domain
// form or split into equal-rate sub-bands.
//
// A Buffer is always in exactly one Mode. Operations that need the other
// representation fail with ErrWrongMode instead of reading stale data, so a
// caller that forgets a Split or Merge is caught at the call site.
package framebuf

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Sentinel errors returned by the package.
var (
	// ErrWrongMode indicates an operation called in the wrong representation.
	ErrWrongMode = errors.New("frame buffer in wrong mode")

	// ErrUnsupportedRate indicates a sample rate that is not a whole
	// multiple of the band rate.
	ErrUnsupportedRate = errors.New("unsupported sample rate")

	// ErrFrameSize indicates PCM input or output of the wrong length.
	ErrFrameSize = errors.New("frame size mismatch")
)

// Mode identifies which representation a Buffer currently holds.
type Mode int

const (
	// TimeDomain holds full-band interleaved-order samples per channel.
	TimeDomain Mode = iota

	// SplitBands holds per-channel sub-band signals at the band rate.
	SplitBands
)

func (m Mode) String() string {
	switch m {
	case TimeDomain:
		return "time-domain"
	case SplitBands:
		return "split-bands"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// Buffer owns one frame of multi-channel audio.
// Samples are float64 in 16-bit integer scale.
type Buffer struct {
	sampleRate   int
	bandRate     int
	channels     int
	numBands     int
	frameSamples int // per channel, full band
	bandSamples  int // per channel, per band

	mode  Mode
	time  [][]float64 // [channel][frameSamples]
	bands [][]float64 // [channel][numBands*bandSamples], band b at b*bandSamples

	// analysis is the orthonormal numBands x numBands block transform.
	analysis *mat.Dense
}

// New allocates a buffer for frames of frameMs milliseconds.
// sampleRate must be a whole multiple of bandRate; the multiple is the number
// of bands (16 kHz -> 1, 32 kHz -> 2, 48 kHz -> 3 for a 16 kHz band rate).
func New(sampleRate, channels, bandRate, frameMs int) (*Buffer, error) {
	if channels < 1 {
		return nil, fmt.Errorf("%w: channel count %d", ErrFrameSize, channels)
	}
	if bandRate <= 0 || sampleRate < bandRate || sampleRate%bandRate != 0 {
		return nil, fmt.Errorf("%w: %d Hz is not a multiple of the %d Hz band rate",
			ErrUnsupportedRate, sampleRate, bandRate)
	}
	numBands := sampleRate / bandRate
	if numBands > maxBands {
		return nil, fmt.Errorf("%w: %d Hz needs %d bands (max %d)",
			ErrUnsupportedRate, sampleRate, numBands, maxBands)
	}
	if frameMs <= 0 || bandRate*frameMs%millisPerSecond != 0 {
		return nil, fmt.Errorf("%w: %d ms frames at %d Hz", ErrFrameSize, frameMs, bandRate)
	}

	bandSamples := bandRate * frameMs / millisPerSecond
	frameSamples := bandSamples * numBands

	b := &Buffer{
		sampleRate:   sampleRate,
		bandRate:     bandRate,
		channels:     channels,
		numBands:     numBands,
		frameSamples: frameSamples,
		bandSamples:  bandSamples,
		mode:         TimeDomain,
		time:         make([][]float64, channels),
		bands:        make([][]float64, channels),
		analysis:     blockTransform(numBands),
	}
	for ch := range channels {
		b.time[ch] = make([]float64, frameSamples)
		b.bands[ch] = make([]float64, frameSamples)
	}
	return b, nil
}

// BandRateFor returns the band rate to split sampleRate at. Rates below
// bandRate are carried as a single band at their own rate; every other rate
// keeps bandRate.
func BandRateFor(sampleRate, bandRate int) int {
	if sampleRate > 0 && sampleRate < bandRate {
		return sampleRate
	}
	return bandRate
}

// blockTransform returns the orthonormal DCT-II matrix of size n.
// Row k holds the basis vector of band k; row 0 is the scaled mean.
func blockTransform(n int) *mat.Dense {
	m := mat.NewDense(n, n, nil)
	for k := range n {
		scale := math.Sqrt(2 / float64(n))
		if k == 0 {
			scale = math.Sqrt(1 / float64(n))
		}
		for i := range n {
			m.Set(k, i, scale*math.Cos(math.Pi*(float64(i)+0.5)*float64(k)/float64(n)))
		}
	}
	return m
}

// Mode returns the current representation.
func (b *Buffer) Mode() Mode { return b.mode }

// Channels returns the channel count.
func (b *Buffer) Channels() int { return b.channels }

// SampleRate returns the full-band sample rate.
func (b *Buffer) SampleRate() int { return b.sampleRate }

// BandRate returns the sample rate of each band.
func (b *Buffer) BandRate() int { return b.bandRate }

// NumBands returns the number of bands produced by Split.
func (b *Buffer) NumBands() int { return b.numBands }

// FrameSamples returns the full-band per-channel frame length.
func (b *Buffer) FrameSamples() int { return b.frameSamples }

// BandSamples returns the per-band per-channel frame length.
func (b *Buffer) BandSamples() int { return b.bandSamples }

// FrameBytes returns the size of one interleaved 16-bit PCM frame.
func (b *Buffer) FrameBytes() int { return b.frameSamples * b.channels * bytesPerSample }

// LowBandGain returns the factor mapping band 0 back to full-band amplitude.
// Split scales the lowest band by sqrt(NumBands).
func (b *Buffer) LowBandGain() float64 {
	return 1 / math.Sqrt(float64(b.numBands))
}

func (b *Buffer) require(m Mode, op string) error {
	if b.mode != m {
		return fmt.Errorf("%w: %s requires %s, buffer is %s", ErrWrongMode, op, m, b.mode)
	}
	return nil
}

// Channel returns the full-band samples of channel ch.
// The slice aliases the buffer and is valid until the next Split.
func (b *Buffer) Channel(ch int) ([]float64, error) {
	if err := b.require(TimeDomain, "Channel"); err != nil {
		return nil, err
	}
	return b.time[ch], nil
}

// Band returns the samples of one band of channel ch.
// The slice aliases the buffer and is valid until the next Merge.
func (b *Buffer) Band(ch, band int) ([]float64, error) {
	if err := b.require(SplitBands, "Band"); err != nil {
		return nil, err
	}
	if band < 0 || band >= b.numBands {
		return nil, fmt.Errorf("band %d out of range [0, %d)", band, b.numBands)
	}
	return b.bands[ch][band*b.bandSamples : (band+1)*b.bandSamples], nil
}

// LoadInterleaved copies one interleaved little-endian 16-bit frame into the
// buffer. The buffer must be in time-domain mode.
func (b *Buffer) LoadInterleaved(pcm []byte) error {
	if err := b.require(TimeDomain, "LoadInterleaved"); err != nil {
		return err
	}
	if len(pcm) != b.FrameBytes() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(pcm), b.FrameBytes())
	}

	if b.channels == monoChannels {
		buf := b.time[0]
		for i := range b.frameSamples {
			buf[i] = float64(int16(binary.LittleEndian.Uint16(pcm[i*bytesPerSample:])))
		}
		return nil
	}

	for i := range b.frameSamples {
		base := i * b.channels
		for ch := range b.channels {
			b.time[ch][i] = float64(int16(binary.LittleEndian.Uint16(pcm[(base+ch)*bytesPerSample:])))
		}
	}
	return nil
}

// StoreInterleaved writes the buffer as one interleaved little-endian 16-bit
// frame, rounding and saturating each sample. The buffer must be in
// time-domain mode.
func (b *Buffer) StoreInterleaved(dst []byte) error {
	if err := b.require(TimeDomain, "StoreInterleaved"); err != nil {
		return err
	}
	if len(dst) != b.FrameBytes() {
		return fmt.Errorf("%w: got %d bytes, want %d", ErrFrameSize, len(dst), b.FrameBytes())
	}

	for i := range b.frameSamples {
		base := i * b.channels
		for ch := range b.channels {
			binary.LittleEndian.PutUint16(dst[(base+ch)*bytesPerSample:], uint16(ToInt16(b.time[ch][i])))
		}
	}
	return nil
}

// Split converts the frame into NumBands bands of BandSamples each.
// Every run of NumBands consecutive samples is mapped through the block
// transform; band k collects coefficient k of every run.
func (b *Buffer) Split() error {
	if err := b.require(TimeDomain, "Split"); err != nil {
		return err
	}
	for ch := range b.channels {
		if b.numBands == 1 {
			copy(b.bands[ch], b.time[ch])
		} else {
			runs := mat.NewDense(b.bandSamples, b.numBands, b.time[ch])
			split := mat.NewDense(b.numBands, b.bandSamples, b.bands[ch])
			split.Mul(b.analysis, runs.T())
		}
		clear(b.time[ch])
	}
	b.mode = SplitBands
	return nil
}

// Merge reconstructs the full-band frame from its bands.
func (b *Buffer) Merge() error {
	if err := b.require(SplitBands, "Merge"); err != nil {
		return err
	}
	for ch := range b.channels {
		if b.numBands == 1 {
			copy(b.time[ch], b.bands[ch])
		} else {
			split := mat.NewDense(b.numBands, b.bandSamples, b.bands[ch])
			runs := mat.NewDense(b.bandSamples, b.numBands, b.time[ch])
			runs.Mul(split.T(), b.analysis)
		}
		clear(b.bands[ch])
	}
	b.mode = TimeDomain
	return nil
}

// Reset zeroes the buffer and returns it to time-domain mode.
func (b *Buffer) Reset() {
	for ch := range b.channels {
		clear(b.time[ch])
		clear(b.bands[ch])
	}
	b.mode = TimeDomain
}

// ToInt16 rounds v to the nearest integer and saturates it to the int16 range.
func ToInt16(v float64) int16 {
	v = math.Round(v)
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}
