package main

import (
	"fmt"
	"io"
	"math"
	"path/filepath"

	harness "github.com/tphakala/go-aec-harness"
	"github.com/tphakala/go-aec-harness/internal/kpi"
	"github.com/tphakala/go-aec-harness/internal/wavio"
)

const ruleLine = "======================================"

// printer writes the human-readable run report.
type printer struct {
	out, errOut io.Writer
	s, errStyle styles
}

func newPrinter(stdout, stderr io.Writer) *printer {
	return &printer{out: stdout, errOut: stderr, s: newStyles(stdout), errStyle: newStyles(stderr)}
}

func (p *printer) kv(key string, value any) {
	_, _ = fmt.Fprintf(p.out, "  %s %s\n", p.s.key.Render(fmt.Sprintf("%-16s", key+":")), p.s.value.Render(fmt.Sprint(value)))
}

func (p *printer) files(f harness.Files) {
	_, _ = fmt.Fprintln(p.out, p.s.title.Render("AEC evaluation"))
	p.kv("ref file", f.Reference)
	p.kv("rec file", f.Capture)
	p.kv("out file", f.Output)
	if f.Voice != "" {
		p.kv("voice file", f.Voice)
	}
}

func (p *printer) stream(path string, d wavio.Descriptor) {
	p.rule()
	_, _ = fmt.Fprintf(p.out, "%s information:\n", filepath.Base(path))
	p.kv("format", d.Format)
	p.kv("channels", d.Channels)
	p.kv("sample_rate", d.SampleRate)
	p.kv("bits_per_sample", d.BitsPerSample)
	p.kv("length", d.DataLength)
	p.kv("total_samples", d.TotalSamples())
}

func (p *printer) rule() {
	_, _ = fmt.Fprintln(p.out, ruleLine)
}

func (p *printer) summary(f harness.Files, r *harness.Report) {
	_, _ = fmt.Fprintf(p.out, "Processed %s -> %s\n", filepath.Base(f.Capture), filepath.Base(f.Output))
	p.kv("frames", r.Pipeline.Processed)
	if r.Pipeline.DiscardedFrames > 0 {
		p.kv("discarded", r.Pipeline.DiscardedFrames)
	}
	p.kv("linear output", r.LinearPath)
	if r.Canceller.Frames > 0 {
		p.kv("ERLE", fmt.Sprintf("%.1f dB", r.Canceller.ERLE()))
	}
	p.kv("duration", fmt.Sprintf("%.2fs, %.1fx realtime", r.Elapsed.Seconds(), r.Speed()))
}

func formatDB(db float64) string {
	if math.IsInf(db, -1) {
		return "-inf dB"
	}
	return fmt.Sprintf("%.2f dB", db)
}

func (p *printer) kpis(r *kpi.Result) {
	p.rule()
	for _, m := range r.Measurements() {
		value := formatDB(m.DB)
		switch {
		case !m.Valid():
			value = "invalid (" + m.Err.Error() + ")"
		case m.Clamped:
			value += " (file shorter than one second)"
		}
		p.kv(m.Label, value)
	}
	p.rule()

	for _, failure := range r.Failures {
		_, _ = fmt.Fprintf(p.errOut, "%s %s\n", p.errStyle.err.Render("check_KPIs Error:"), failure)
	}
	if r.Passed() {
		_, _ = fmt.Fprintf(p.out, "check_KPIs: %s\n", p.s.pass.Render("OK"))
	} else {
		_, _ = fmt.Fprintf(p.out, "check_KPIs: %s\n", p.s.fail.Render("Failed"))
	}
}
