package framebuf

import (
	"encoding/binary"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-aec-harness/internal/testutil"
)

func pcmFrame(samples []int16) []byte {
	out := make([]byte, len(samples)*bytesPerSample)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*bytesPerSample:], uint16(s))
	}
	return out
}

func TestNew_BandLayout(t *testing.T) {
	tests := []struct {
		rate         int
		wantBands    int
		wantSamples  int
		wantFrameLen int
	}{
		{16000, 1, 160, 160},
		{32000, 2, 160, 320},
		{48000, 3, 160, 480},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%dHz", tt.rate), func(t *testing.T) {
			b, err := New(tt.rate, 1, 16000, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.wantBands, b.NumBands())
			assert.Equal(t, tt.wantSamples, b.BandSamples())
			assert.Equal(t, tt.wantFrameLen, b.FrameSamples())
			assert.Equal(t, 16000, b.BandRate())
			assert.Equal(t, TimeDomain, b.Mode())
		})
	}
}

func TestNew_RejectsUnsupportedRates(t *testing.T) {
	for _, rate := range []int{8000, 44100, 22050} {
		_, err := New(rate, 1, 16000, 10)
		assert.ErrorIs(t, err, ErrUnsupportedRate, "rate %d", rate)
	}

	_, err := New(16000, 0, 16000, 10)
	assert.ErrorIs(t, err, ErrFrameSize)
}

func TestBandRateFor(t *testing.T) {
	assert.Equal(t, 8000, BandRateFor(8000, 16000))
	assert.Equal(t, 16000, BandRateFor(16000, 16000))
	assert.Equal(t, 16000, BandRateFor(48000, 16000))
	assert.Equal(t, 16000, BandRateFor(44100, 16000))
	assert.Equal(t, 16000, BandRateFor(0, 16000))

	b, err := New(8000, 2, BandRateFor(8000, 16000), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, b.NumBands())
	assert.Equal(t, 8000, b.BandRate())
	assert.Equal(t, 80, b.FrameSamples())
}

func TestSplitMerge_RoundTrip(t *testing.T) {
	for _, rate := range []int{16000, 32000, 48000} {
		for _, channels := range []int{1, 2} {
			t.Run(fmt.Sprintf("%dHz_%dch", rate, channels), func(t *testing.T) {
				b, err := New(rate, channels, 16000, 10)
				require.NoError(t, err)

				perChannel := make([][]int16, channels)
				for ch := range channels {
					perChannel[ch] = testutil.Mix(
						testutil.Tone(b.FrameSamples(), rate, 440*float64(ch+1), 9000),
						testutil.Noise(b.FrameSamples(), 4000, uint64(ch+1)),
					)
				}
				in := pcmFrame(testutil.Interleave(perChannel...))

				require.NoError(t, b.LoadInterleaved(in))
				original := make([]float64, b.FrameSamples())
				ch0, err := b.Channel(0)
				require.NoError(t, err)
				copy(original, ch0)

				require.NoError(t, b.Split())
				require.NoError(t, b.Merge())

				ch0, err = b.Channel(0)
				require.NoError(t, err)
				testutil.AssertSlicesInDelta(t, original, ch0, testutil.DefaultTolerance)

				out := make([]byte, b.FrameBytes())
				require.NoError(t, b.StoreInterleaved(out))
				assert.Equal(t, in, out)
			})
		}
	}
}

func TestSplit_LowBandCarriesScaledMean(t *testing.T) {
	b, err := New(48000, 1, 16000, 10)
	require.NoError(t, err)

	samples := make([]int16, b.FrameSamples())
	for i := range samples {
		samples[i] = 1200
	}
	require.NoError(t, b.LoadInterleaved(pcmFrame(samples)))
	require.NoError(t, b.Split())

	low, err := b.Band(0, 0)
	require.NoError(t, err)
	for _, v := range low {
		assert.InDelta(t, 1200, v*b.LowBandGain(), 1e-9)
	}

	for band := 1; band < b.NumBands(); band++ {
		upper, err := b.Band(0, band)
		require.NoError(t, err)
		for _, v := range upper {
			assert.InDelta(t, 0, v, 1e-9)
		}
	}
}

func TestModeChecks(t *testing.T) {
	b, err := New(32000, 1, 16000, 10)
	require.NoError(t, err)

	_, err = b.Band(0, 0)
	assert.ErrorIs(t, err, ErrWrongMode)
	assert.ErrorIs(t, b.Merge(), ErrWrongMode)

	require.NoError(t, b.Split())
	assert.Equal(t, SplitBands, b.Mode())

	_, err = b.Channel(0)
	assert.ErrorIs(t, err, ErrWrongMode)
	assert.ErrorIs(t, b.Split(), ErrWrongMode)
	assert.ErrorIs(t, b.LoadInterleaved(make([]byte, b.FrameBytes())), ErrWrongMode)
	assert.ErrorIs(t, b.StoreInterleaved(make([]byte, b.FrameBytes())), ErrWrongMode)

	_, err = b.Band(0, 2)
	assert.Error(t, err)

	b.Reset()
	assert.Equal(t, TimeDomain, b.Mode())
}

func TestLoadInterleaved_RejectsWrongSize(t *testing.T) {
	b, err := New(16000, 2, 16000, 10)
	require.NoError(t, err)
	assert.ErrorIs(t, b.LoadInterleaved(make([]byte, 320)), ErrFrameSize)
}

func TestToInt16_Saturates(t *testing.T) {
	assert.Equal(t, int16(32767), ToInt16(40000))
	assert.Equal(t, int16(-32768), ToInt16(-40000))
	assert.Equal(t, int16(3), ToInt16(2.5))
	assert.Equal(t, int16(-3), ToInt16(-2.5))
	assert.Equal(t, int16(0), ToInt16(0.4))
}
