package pipeline

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/go-aec-harness/internal/aec"
	"github.com/tphakala/go-aec-harness/internal/framebuf"
	"github.com/tphakala/go-aec-harness/internal/hpf"
	"github.com/tphakala/go-aec-harness/internal/testutil"
	"github.com/tphakala/go-aec-harness/internal/wavio"
)

// memStream is an in-memory FrameReader.
type memStream struct {
	desc  wavio.Descriptor
	r     *bytes.Reader
	reads int
}

func newMemStream(rate, channels int, samples []int16) *memStream {
	pcm := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(pcm[2*i:], uint16(s))
	}
	return &memStream{
		desc: wavio.Descriptor{
			Format:        wavio.FormatPCM,
			Channels:      channels,
			SampleRate:    rate,
			BitsPerSample: 16,
			DataLength:    int64(len(pcm)),
		},
		r: bytes.NewReader(pcm),
	}
}

func (m *memStream) Descriptor() wavio.Descriptor { return m.desc }

func (m *memStream) Read(p []byte) (int, error) {
	m.reads++
	n, err := io.ReadFull(m.r, p)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		err = io.EOF
	}
	return n, err
}

// identityFilter checks the mode it is called in and changes nothing.
type identityFilter struct{ calls int }

func (f *identityFilter) Process(buf *framebuf.Buffer, splitBand bool) error {
	f.calls++
	if splitBand && buf.Mode() != framebuf.SplitBands {
		return framebuf.ErrWrongMode
	}
	return nil
}

// recorder logs every stage call with the buffer mode it observed.
type recorder struct {
	events []string
}

func (r *recorder) AnalyzeRender(render *framebuf.Buffer) error {
	r.events = append(r.events, "render:"+render.Mode().String())
	return nil
}

func (r *recorder) AnalyzeCapture(capture *framebuf.Buffer) error {
	r.events = append(r.events, "analyze:"+capture.Mode().String())
	return nil
}

func (r *recorder) SetAudioBufferDelay(samples int) {
	r.events = append(r.events, fmt.Sprintf("delay:%d", samples))
}

func (r *recorder) ProcessCapture(capture, linear *framebuf.Buffer, renderLinear bool) error {
	r.events = append(r.events, fmt.Sprintf("process:%s:%s:%v", capture.Mode(), linear.Mode(), renderLinear))
	return nil
}

func (r *recorder) Process(buf *framebuf.Buffer, splitBand bool) error {
	r.events = append(r.events, fmt.Sprintf("hpf:%s:%v", buf.Mode(), splitBand))
	return nil
}

func TestRun_CallOrderPerFrame(t *testing.T) {
	rec := &recorder{}
	opts := DefaultOptions()
	opts.DelaySamples = 0
	p, err := New(rec, rec, opts)
	require.NoError(t, err)

	ref := newMemStream(32000, 1, testutil.Noise(640, 1000, 1))
	capture := newMemStream(32000, 1, testutil.Noise(640, 1000, 2))

	var out, linear bytes.Buffer
	stats, err := p.Run(ref, capture, &out, &linear)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Processed)

	frame := []string{
		"render:split-bands",
		"analyze:time-domain",
		"hpf:split-bands:true",
		"delay:0",
		"process:split-bands:time-domain:false",
	}
	assert.Equal(t, append(append([]string{}, frame...), frame...), rec.events)
}

func TestRun_PassthroughReproducesCapture(t *testing.T) {
	for _, rate := range []int{16000, 32000, 48000} {
		for _, channels := range []int{1, 2} {
			t.Run(fmt.Sprintf("%dHz_%dch", rate, channels), func(t *testing.T) {
				frameLen := rate / 100 * channels
				capSamples := testutil.Noise(frameLen*5, 12000, uint64(rate+channels))
				ref := newMemStream(rate, channels, testutil.Noise(frameLen*5, 12000, 99))
				capture := newMemStream(rate, channels, capSamples)

				p, err := New(aec.NewPassthrough(), &identityFilter{}, DefaultOptions())
				require.NoError(t, err)

				var out, linear bytes.Buffer
				stats, err := p.Run(ref, capture, &out, &linear)
				require.NoError(t, err)
				assert.Equal(t, 5, stats.Processed)

				want := make([]byte, len(capSamples)*2)
				for i, s := range capSamples {
					binary.LittleEndian.PutUint16(want[2*i:], uint16(s))
				}
				assert.Equal(t, want, out.Bytes())
				assert.Equal(t, 5*160*channels*2, linear.Len())
			})
		}
	}
}

func TestRun_ProcessesMinimumFrameCount(t *testing.T) {
	ref := newMemStream(16000, 1, testutil.Noise(160*5, 2000, 1))
	// three whole frames plus a partial one
	capture := newMemStream(16000, 1, testutil.Noise(160*3+70, 2000, 2))

	filter, err := hpf.New(16000, 1, 16000, hpf.DefaultCutoffHz)
	require.NoError(t, err)
	canceller, err := aec.NewNLMS(aec.DefaultConfig())
	require.NoError(t, err)

	var progress []int
	opts := DefaultOptions()
	opts.Progress = func(current, total int) {
		assert.Equal(t, 3, total)
		progress = append(progress, current)
	}
	p, err := New(canceller, filter, opts)
	require.NoError(t, err)

	var out, linear bytes.Buffer
	stats, err := p.Run(ref, capture, &out, &linear)
	require.NoError(t, err)

	assert.Equal(t, Stats{ReferenceFrames: 5, CaptureFrames: 3, TotalFrames: 3, Processed: 3, DiscardedFrames: 2}, stats)
	assert.Equal(t, 3*320, out.Len())
	assert.Equal(t, 3*320, linear.Len())
	assert.Equal(t, []int{1, 2, 3}, progress)
}

func TestRun_RejectsFormatMismatchBeforeReading(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*wavio.Descriptor)
	}{
		{"sample rate", func(d *wavio.Descriptor) { d.SampleRate = 32000 }},
		{"channels", func(d *wavio.Descriptor) { d.Channels = 2 }},
		{"bit depth", func(d *wavio.Descriptor) { d.BitsPerSample = 24 }},
		{"format tag", func(d *wavio.Descriptor) { d.Format = 3 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref := newMemStream(16000, 1, testutil.Noise(320, 1000, 1))
			capture := newMemStream(16000, 1, testutil.Noise(320, 1000, 2))
			tt.mutate(&capture.desc)

			p, err := New(aec.NewPassthrough(), &identityFilter{}, DefaultOptions())
			require.NoError(t, err)

			var out, linear bytes.Buffer
			_, err = p.Run(ref, capture, &out, &linear)
			assert.ErrorIs(t, err, ErrFormatMismatch)
			assert.Zero(t, ref.reads)
			assert.Zero(t, capture.reads)
			assert.Zero(t, out.Len())
			assert.Zero(t, linear.Len())
		})
	}
}

func TestCheckFormats_Requires16Bit(t *testing.T) {
	d := wavio.Descriptor{Format: wavio.FormatPCM, Channels: 1, SampleRate: 16000, BitsPerSample: 24}
	assert.ErrorIs(t, CheckFormats(d, d), wavio.ErrUnsupportedBitDepth)

	d.BitsPerSample = 16
	assert.NoError(t, CheckFormats(d, d))
}

func TestRun_UnsupportedRate(t *testing.T) {
	ref := newMemStream(44100, 1, testutil.Noise(441, 1000, 1))
	capture := newMemStream(44100, 1, testutil.Noise(441, 1000, 2))

	p, err := New(aec.NewPassthrough(), &identityFilter{}, DefaultOptions())
	require.NoError(t, err)

	_, err = p.Run(ref, capture, io.Discard, nil)
	assert.ErrorIs(t, err, framebuf.ErrUnsupportedRate)
	assert.Zero(t, capture.reads)
}

func TestRun_EmptyInputs(t *testing.T) {
	ref := newMemStream(16000, 1, nil)
	capture := newMemStream(16000, 1, nil)

	p, err := New(aec.NewPassthrough(), &identityFilter{}, DefaultOptions())
	require.NoError(t, err)

	var out bytes.Buffer
	stats, err := p.Run(ref, capture, &out, nil)
	require.NoError(t, err)
	assert.Zero(t, stats.Processed)
	assert.Zero(t, out.Len())
}

func TestRun_SilenceStaysSilent(t *testing.T) {
	ref := newMemStream(48000, 1, testutil.Silence(480*20))
	capture := newMemStream(48000, 1, testutil.Silence(480*20))

	filter, err := hpf.New(48000, 1, 16000, hpf.DefaultCutoffHz)
	require.NoError(t, err)
	cfg := aec.DefaultConfig()
	cfg.SampleRate = 48000
	canceller, err := aec.NewNLMS(cfg)
	require.NoError(t, err)

	p, err := New(canceller, filter, DefaultOptions())
	require.NoError(t, err)

	var out, linear bytes.Buffer
	_, err = p.Run(ref, capture, &out, &linear)
	require.NoError(t, err)
	assert.Equal(t, 480*20*2, out.Len())
	assert.Equal(t, 160*20*2, linear.Len())
	assert.Equal(t, make([]byte, out.Len()), out.Bytes())
	assert.Equal(t, make([]byte, linear.Len()), linear.Bytes())
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(nil, &identityFilter{}, DefaultOptions())
	assert.Error(t, err)
	_, err = New(aec.NewPassthrough(), &identityFilter{}, Options{})
	assert.Error(t, err)
}
