// Package simdops collects the vector kernels used by the adaptive filter and
// the power measurements. Dot products, scaling and AXPY delegate to
// github.com/tphakala/simd, which selects AVX2/SSE/NEON code paths at runtime.
package simdops

import (
	"github.com/tphakala/simd/f64"
)

// Dot returns the dot product of a and b over the shorter of the two.
func Dot(a, b []float64) float64 {
	n := min(len(a), len(b))
	if n == 0 {
		return 0
	}
	return f64.DotProductUnsafe(a[:n], b[:n])
}

// Energy returns the sum of squares of a.
func Energy(a []float64) float64 {
	if len(a) == 0 {
		return 0
	}
	return f64.DotProductUnsafe(a, a)
}

// Scale multiplies every element of a by s in place.
func Scale(a []float64, s float64) {
	if len(a) == 0 {
		return
	}
	f64.Scale(a, a, s)
}

// AddScaled performs dst[i] += s * src[i] over the shorter of the two.
func AddScaled(dst, src []float64, s float64) {
	f64.AddScaled(dst, s, src)
}

// Int16Energy returns the sum of squares of 16-bit samples, converting
// through scratch in blocks. scratch may be nil.
func Int16Energy(samples []int16, scratch []float64) float64 {
	if len(scratch) == 0 {
		scratch = make([]float64, energyBlockSize)
	}
	var total float64
	for start := 0; start < len(samples); start += len(scratch) {
		block := samples[start:min(start+len(scratch), len(samples))]
		buf := scratch[:len(block)]
		for i, v := range block {
			buf[i] = float64(v)
		}
		total += Energy(buf)
	}
	return total
}

const energyBlockSize = 4096
