package simdops

import (
	"testing"
)

// BenchmarkDot measures the adaptive filter inner product at a typical tap count.
func BenchmarkDot(b *testing.B) {
	a := make([]float64, 64)
	c := make([]float64, 64)
	for i := range a {
		a[i] = float64(i) * 0.01
		c[i] = float64(i) * 0.02
	}

	b.ReportAllocs()
	for b.Loop() {
		_ = Dot(a, c)
	}
}

// BenchmarkInt16Energy measures one second of 48 kHz samples.
func BenchmarkInt16Energy(b *testing.B) {
	samples := make([]int16, 48000)
	for i := range samples {
		samples[i] = int16(i % 3000)
	}
	scratch := make([]float64, energyBlockSize)

	b.ReportAllocs()
	for b.Loop() {
		_ = Int16Energy(samples, scratch)
	}
}
