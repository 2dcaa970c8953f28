package wavio

import (
	"encoding/binary"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-aec-harness/internal/testutil"
)

func TestOpen_ParsesHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stereo.wav")
	samples := testutil.Interleave(testutil.Tone(480, 48000, 440, 1000), testutil.Tone(480, 48000, 880, 1000))
	testutil.WriteWAV(t, path, 48000, 2, samples)

	src, err := Open(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, src.Close()) }()

	assert.Equal(t, path, src.Path())

	d := src.Descriptor()
	assert.Equal(t, FormatPCM, d.Format)
	assert.Equal(t, 2, d.Channels)
	assert.Equal(t, 48000, d.SampleRate)
	assert.Equal(t, 16, d.BitsPerSample)
	assert.Equal(t, int64(len(samples)*2), d.DataLength)
	assert.Equal(t, int64(len(samples)), d.TotalSamples())
	assert.Equal(t, 480, d.SamplesPerFrame(10))
	assert.Equal(t, 1920, d.BytesPerFrame(10))
	assert.Equal(t, 1, d.FrameCount(10))
}

func TestOpen_Errors(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "missing.wav"))
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("not a wav", func(t *testing.T) {
		path := filepath.Join(dir, "text.wav")
		require.NoError(t, os.WriteFile(path, []byte("definitely not a riff header at all....."), 0o600))
		_, err := Open(path)
		assert.ErrorIs(t, err, ErrNotWAV)
	})
}

func TestSource_ReadReportsExhaustion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "short.wav")
	samples := testutil.Tone(250, 16000, 300, 2000)
	testutil.WriteWAV(t, path, 16000, 1, samples)

	src, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	frame := make([]byte, 320)

	n, err := src.Read(frame)
	require.NoError(t, err)
	assert.Equal(t, 320, n)
	for i := range 160 {
		assert.Equal(t, samples[i], int16(binary.LittleEndian.Uint16(frame[2*i:])))
	}

	n, err = src.Read(frame)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 180, n)
}

func TestSource_ReadAllInt16(t *testing.T) {
	path := filepath.Join(t.TempDir(), "all.wav")
	samples := testutil.Noise(1000, 8000, 7)
	testutil.WriteWAV(t, path, 16000, 1, samples)

	src, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	got, err := src.ReadAllInt16()
	require.NoError(t, err)
	assert.Equal(t, samples, got)
}

func TestSource_ReadAllInt16RejectsOtherDepths(t *testing.T) {
	path := filepath.Join(t.TempDir(), "24bit.wav")
	testutil.WriteWAVDepth(t, path, 16000, 1, 24, make([]int, 160))

	src, err := Open(path)
	require.NoError(t, err)
	defer func() { _ = src.Close() }()

	assert.Equal(t, 24, src.Descriptor().BitsPerSample)
	_, err = src.ReadAllInt16()
	assert.ErrorIs(t, err, ErrUnsupportedBitDepth)
}

func TestSink_PatchesHeaderOnClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.wav")

	// Seed the header with a deliberately wrong expected size.
	sink, err := Create(path, 16000, 16, 1, 99999)
	require.NoError(t, err)

	samples := testutil.Tone(480, 16000, 500, 3000)
	payload := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(payload[2*i:], uint16(s))
	}
	n, err := sink.Write(payload)
	require.NoError(t, err)
	assert.Equal(t, len(payload), n)
	assert.Equal(t, int64(len(payload)), sink.DataLength())
	require.NoError(t, sink.Close())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Len(t, raw, wavHeaderSize+len(payload))
	assert.Equal(t, uint32(wavRiffHeaderSize+len(payload)), binary.LittleEndian.Uint32(raw[wavFileSizeOffset:]))
	assert.Equal(t, uint32(len(payload)), binary.LittleEndian.Uint32(raw[wavDataSizeOffset:]))

	got, info := testutil.ReadWAV(t, path)
	assert.Equal(t, samples, got)
	assert.Equal(t, testutil.WAVInfo{SampleRate: 16000, Channels: 1, BitDepth: 16}, info)
}

func TestSink_EmptyPayloadIsReadable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	sink, err := Create(path, 32000, 16, 2, 0)
	require.NoError(t, err)
	require.NoError(t, sink.Close())

	desc, err := Inspect(path)
	require.NoError(t, err)
	assert.Equal(t, 2, desc.Channels)
	assert.Equal(t, 32000, desc.SampleRate)
	assert.Zero(t, desc.DataLength)
	assert.Zero(t, desc.FrameCount(10))
}

func TestCreate_RejectsInvalidFormat(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "bad.wav"), 16000, 16, 0, 0)
	assert.ErrorIs(t, err, ErrInvalidFormat)
}

func TestDescriptor_Duration(t *testing.T) {
	d := Descriptor{Format: FormatPCM, Channels: 2, SampleRate: 16000, BitsPerSample: 16, DataLength: 16000 * 4}
	assert.Equal(t, "1s", d.Duration().String())
	assert.Contains(t, d.String(), "channels=2")
}
