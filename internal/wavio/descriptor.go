// Package wavio reads and writes the PCM WAV streams the harness works on.
//
// A Source exposes the header of an input file as a Descriptor and hands out
// raw little-endian PCM bytes frame by frame. A Sink writes a canonical
// 44-byte header up front and patches its size fields when closed, so the
// header always agrees with the number of bytes actually written.
package wavio

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors returned by the package.
var (
	// ErrNotWAV indicates the file header could not be parsed as RIFF/WAVE.
	ErrNotWAV = errors.New("not a valid WAV file")

	// ErrUnsupportedBitDepth indicates a stream whose sample width is not 16 bits.
	ErrUnsupportedBitDepth = errors.New("only 16-bit PCM is supported")

	// ErrInvalidFormat indicates a header with impossible field values.
	ErrInvalidFormat = errors.New("invalid stream format")
)

// Descriptor describes an audio stream as read from or written to a WAV header.
type Descriptor struct {
	Format        int   // WAV format tag, 1 = integer PCM
	Channels      int   // Interleaved channel count
	SampleRate    int   // Samples per second per channel
	BitsPerSample int   // Sample width in bits
	DataLength    int64 // Size of the PCM payload in bytes
}

// BytesPerSample returns the width of a single sample in bytes.
func (d Descriptor) BytesPerSample() int {
	return d.BitsPerSample / bitsPerByte
}

// BlockAlign returns the size in bytes of one sample across all channels.
func (d Descriptor) BlockAlign() int {
	return d.Channels * d.BytesPerSample()
}

// TotalSamples returns the number of samples in the payload, counted over
// all channels.
func (d Descriptor) TotalSamples() int64 {
	if d.BytesPerSample() == 0 {
		return 0
	}
	return d.DataLength / int64(d.BytesPerSample())
}

// SamplesPerFrame returns the per-channel sample count of a frame of the
// given duration.
func (d Descriptor) SamplesPerFrame(frameMs int) int {
	return d.SampleRate * frameMs / millisPerSecond
}

// BytesPerFrame returns the interleaved byte size of a frame of the given
// duration.
func (d Descriptor) BytesPerFrame(frameMs int) int {
	return d.SamplesPerFrame(frameMs) * d.BlockAlign()
}

// FrameCount returns the number of complete frames the payload holds.
func (d Descriptor) FrameCount(frameMs int) int {
	size := d.BytesPerFrame(frameMs)
	if size <= 0 {
		return 0
	}
	return int(d.DataLength / int64(size))
}

// Duration returns the playback length of the payload.
func (d Descriptor) Duration() time.Duration {
	align := d.BlockAlign()
	if align == 0 || d.SampleRate == 0 {
		return 0
	}
	frames := d.DataLength / int64(align)
	return time.Duration(frames) * time.Second / time.Duration(d.SampleRate)
}

// Validate reports whether the descriptor can describe a PCM stream.
func (d Descriptor) Validate() error {
	switch {
	case d.Channels < 1:
		return fmt.Errorf("%w: channel count %d", ErrInvalidFormat, d.Channels)
	case d.SampleRate < 1:
		return fmt.Errorf("%w: sample rate %d", ErrInvalidFormat, d.SampleRate)
	case d.BitsPerSample < bitsPerByte || d.BitsPerSample%bitsPerByte != 0:
		return fmt.Errorf("%w: bits per sample %d", ErrInvalidFormat, d.BitsPerSample)
	}
	return nil
}

// Require16Bit returns ErrUnsupportedBitDepth unless the stream is 16-bit.
func (d Descriptor) Require16Bit() error {
	if d.BitsPerSample != bitsPerSample16 {
		return fmt.Errorf("%w: got %d bits", ErrUnsupportedBitDepth, d.BitsPerSample)
	}
	return nil
}

// String formats the descriptor as a one-line summary.
func (d Descriptor) String() string {
	return fmt.Sprintf("format=%d channels=%d rate=%dHz bits=%d length=%d samples=%d",
		d.Format, d.Channels, d.SampleRate, d.BitsPerSample, d.DataLength, d.TotalSamples())
}
