package wavio

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"os"
)

// Sink writes raw PCM bytes behind a canonical WAV header.
// The header is written with the expected payload size and patched with the
// real size on Close.
type Sink struct {
	w        *bufio.Writer
	f        *os.File
	path     string
	desc     Descriptor
	dataSize uint32
}

// Create creates path and writes a PCM header for the given format.
// expectedLength is the anticipated payload size in bytes; it only seeds the
// header until Close corrects it.
func Create(path string, sampleRate, bitsPerSample, channels int, expectedLength int64) (*Sink, error) {
	desc := Descriptor{
		Format:        FormatPCM,
		Channels:      channels,
		SampleRate:    sampleRate,
		BitsPerSample: bitsPerSample,
		DataLength:    expectedLength,
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", path, err)
	}

	s := &Sink{
		w:    bufio.NewWriterSize(f, sinkBufferSize),
		f:    f,
		path: path,
		desc: desc,
	}
	if err := s.writeHeader(uint32(max(expectedLength, 0))); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("failed to write WAV header to %s: %w", path, err)
	}
	return s, nil
}

func (s *Sink) writeHeader(dataSize uint32) error {
	byteRate := s.desc.SampleRate * s.desc.BlockAlign()

	header := make([]byte, wavHeaderSize)

	copy(header[0:4], "RIFF")
	binary.LittleEndian.PutUint32(header[4:8], wavRiffHeaderSize+dataSize)
	copy(header[8:12], "WAVE")

	copy(header[12:16], "fmt ")
	binary.LittleEndian.PutUint32(header[16:20], wavPCMSubchunkSize)
	binary.LittleEndian.PutUint16(header[20:22], uint16(s.desc.Format))
	binary.LittleEndian.PutUint16(header[22:24], uint16(s.desc.Channels))
	binary.LittleEndian.PutUint32(header[24:28], uint32(s.desc.SampleRate))
	binary.LittleEndian.PutUint32(header[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(header[32:34], uint16(s.desc.BlockAlign()))
	binary.LittleEndian.PutUint16(header[34:36], uint16(s.desc.BitsPerSample))

	copy(header[36:40], "data")
	binary.LittleEndian.PutUint32(header[40:44], dataSize)

	_, err := s.w.Write(header)
	return err
}

// Write appends raw PCM bytes to the payload.
func (s *Sink) Write(p []byte) (int, error) {
	n, err := s.w.Write(p)
	s.dataSize += uint32(n)
	if err != nil {
		return n, fmt.Errorf("failed to write %s: %w", s.path, err)
	}
	return n, nil
}

// Descriptor returns the format of the stream with the current payload size.
func (s *Sink) Descriptor() Descriptor {
	d := s.desc
	d.DataLength = int64(s.dataSize)
	return d
}

// DataLength returns the number of payload bytes written so far.
func (s *Sink) DataLength() int64 {
	return int64(s.dataSize)
}

// Close flushes buffered data, patches the header sizes and closes the file.
// The file is closed even when flushing or patching fails.
func (s *Sink) Close() error {
	err := s.finalize()
	if closeErr := s.f.Close(); err == nil && closeErr != nil {
		err = fmt.Errorf("failed to close %s: %w", s.path, closeErr)
	}
	return err
}

func (s *Sink) finalize() error {
	if err := s.w.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", s.path, err)
	}

	sizeBytes := make([]byte, uint32Size)
	patches := []struct {
		offset int64
		value  uint32
	}{
		{wavFileSizeOffset, wavRiffHeaderSize + s.dataSize},
		{wavDataSizeOffset, s.dataSize},
	}
	for _, p := range patches {
		if _, err := s.f.Seek(p.offset, io.SeekStart); err != nil {
			return fmt.Errorf("failed to patch header of %s: %w", s.path, err)
		}
		binary.LittleEndian.PutUint32(sizeBytes, p.value)
		if _, err := s.f.Write(sizeBytes); err != nil {
			return fmt.Errorf("failed to patch header of %s: %w", s.path, err)
		}
	}
	return nil
}
