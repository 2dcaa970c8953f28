package wavio

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/go-audio/wav"
)

// Source is an opened WAV file positioned at the start of its PCM payload.
type Source struct {
	file *os.File
	path string
	desc Descriptor
	pcm  io.Reader
}

// Open opens path, parses its header and forwards to the PCM data chunk.
// Errors opening the file are returned as-is; header failures wrap ErrNotWAV.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}

	src, err := newSource(f, path)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return src, nil
}

func newSource(f *os.File, path string) (*Source, error) {
	decoder := wav.NewDecoder(f)
	decoder.ReadInfo()
	if err := decoder.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotWAV, path, err)
	}
	if err := decoder.FwdToPCM(); err != nil {
		return nil, fmt.Errorf("%w: %s: no data chunk: %w", ErrNotWAV, path, err)
	}
	if decoder.PCMChunk == nil {
		return nil, fmt.Errorf("%w: %s: no data chunk", ErrNotWAV, path)
	}

	desc := Descriptor{
		Format:        int(decoder.WavAudioFormat),
		Channels:      int(decoder.NumChans),
		SampleRate:    int(decoder.SampleRate),
		BitsPerSample: int(decoder.BitDepth),
		DataLength:    int64(decoder.PCMSize),
	}
	if err := desc.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrNotWAV, path, err)
	}

	return &Source{
		file: f,
		path: path,
		desc: desc,
		// The riff chunk reads straight from the file, so bound it to the
		// payload to avoid running into trailing chunks.
		pcm: io.LimitReader(decoder.PCMChunk, desc.DataLength),
	}, nil
}

// Descriptor returns the stream format parsed from the header.
func (s *Source) Descriptor() Descriptor {
	return s.desc
}

// Path returns the file path the source was opened from.
func (s *Source) Path() string {
	return s.path
}

// Read fills p with the next bytes of the payload. A short count together
// with io.EOF means the stream is exhausted.
func (s *Source) Read(p []byte) (int, error) {
	n, err := io.ReadFull(s.pcm, p)
	switch {
	case err == nil:
		return n, nil
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		return n, io.EOF
	default:
		return n, fmt.Errorf("failed to read %s: %w", s.path, err)
	}
}

// ReadAllInt16 decodes the remaining payload as interleaved 16-bit samples.
func (s *Source) ReadAllInt16() ([]int16, error) {
	if err := s.desc.Require16Bit(); err != nil {
		return nil, err
	}

	samples := make([]int16, 0, s.desc.TotalSamples())
	chunk := make([]byte, readChunkSize)
	for {
		n, err := s.Read(chunk)
		// A trailing odd byte cannot form a sample and is dropped.
		for i := 0; i+1 < n; i += bytesPerSample16 {
			samples = append(samples, int16(binary.LittleEndian.Uint16(chunk[i:])))
		}
		if errors.Is(err, io.EOF) {
			return samples, nil
		}
		if err != nil {
			return nil, err
		}
	}
}

// Close releases the underlying file.
func (s *Source) Close() error {
	return s.file.Close()
}

// Inspect reads only the header of path.
func Inspect(path string) (Descriptor, error) {
	src, err := Open(path)
	if err != nil {
		return Descriptor{}, err
	}
	defer func() { _ = src.Close() }()
	return src.Descriptor(), nil
}
