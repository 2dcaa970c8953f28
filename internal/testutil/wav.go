package testutil

import (
	"os"
	"testing"

	"github.com/go-audio/audio"
	"github.com/go-audio/wav"
	"github.com/stretchr/testify/require"
)

const pcmFormat = 1

// WAVInfo is the header summary returned by ReadWAV.
type WAVInfo struct {
	SampleRate int
	Channels   int
	BitDepth   int
}

// WriteWAV writes interleaved 16-bit samples to a PCM WAV file.
func WriteWAV(t testing.TB, path string, sampleRate, channels int, samples []int16) {
	t.Helper()
	data := make([]int, len(samples))
	for i, s := range samples {
		data[i] = int(s)
	}
	WriteWAVDepth(t, path, sampleRate, channels, 16, data)
}

// WriteWAVDepth writes interleaved integer samples at an arbitrary bit depth.
func WriteWAVDepth(t testing.TB, path string, sampleRate, channels, bitDepth int, data []int) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, f.Close()) }()

	enc := wav.NewEncoder(f, sampleRate, bitDepth, channels, pcmFormat)
	buf := &audio.IntBuffer{
		Format:         &audio.Format{NumChannels: channels, SampleRate: sampleRate},
		Data:           data,
		SourceBitDepth: bitDepth,
	}
	require.NoError(t, enc.Write(buf))
	require.NoError(t, enc.Close())
}

// ReadWAV decodes a 16-bit PCM WAV file into interleaved samples.
func ReadWAV(t testing.TB, path string) ([]int16, WAVInfo) {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer func() { _ = f.Close() }()

	dec := wav.NewDecoder(f)
	require.NoError(t, dec.FwdToPCM())
	info := WAVInfo{
		SampleRate: int(dec.SampleRate),
		Channels:   int(dec.NumChans),
		BitDepth:   int(dec.BitDepth),
	}
	if dec.PCMSize == 0 {
		return []int16{}, info
	}

	buf, err := dec.FullPCMBuffer()
	require.NoError(t, err)
	out := make([]int16, len(buf.Data))
	for i, v := range buf.Data {
		out[i] = int16(v)
	}
	return out, info
}
