package testutil

import (
	"math"
	"math/rand/v2"
)

const (
	int16Max = math.MaxInt16
	int16Min = math.MinInt16
)

// Tone returns n samples of a sine at freqHz with the given peak amplitude.
func Tone(n, sampleRate int, freqHz, amplitude float64) []int16 {
	out := make([]int16, n)
	step := 2 * math.Pi * freqHz / float64(sampleRate)
	for i := range out {
		out[i] = clamp16(amplitude * math.Sin(step*float64(i)))
	}
	return out
}

// Noise returns n samples of uniform noise in [-amplitude, amplitude].
// The sequence is deterministic for a given seed.
func Noise(n int, amplitude float64, seed uint64) []int16 {
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	out := make([]int16, n)
	for i := range out {
		out[i] = clamp16(amplitude * (2*rng.Float64() - 1))
	}
	return out
}

// Silence returns n zero samples.
func Silence(n int) []int16 {
	return make([]int16, n)
}

// Mix sums signals sample by sample with saturation. The result has the
// length of the longest input.
func Mix(signals ...[]int16) []int16 {
	n := 0
	for _, s := range signals {
		n = max(n, len(s))
	}
	out := make([]int16, n)
	for i := range out {
		var sum float64
		for _, s := range signals {
			if i < len(s) {
				sum += float64(s[i])
			}
		}
		out[i] = clamp16(sum)
	}
	return out
}

// Scale multiplies every sample by k with saturation.
func Scale(s []int16, k float64) []int16 {
	out := make([]int16, len(s))
	for i, v := range s {
		out[i] = clamp16(float64(v) * k)
	}
	return out
}

// Interleave merges per-channel slices of equal length into one interleaved slice.
func Interleave(channels ...[]int16) []int16 {
	if len(channels) == 0 {
		return nil
	}
	n := len(channels[0])
	out := make([]int16, n*len(channels))
	for i := range n {
		for ch, data := range channels {
			out[i*len(channels)+ch] = data[i]
		}
	}
	return out
}

func clamp16(v float64) int16 {
	v = math.Round(v)
	if v > int16Max {
		return int16Max
	}
	if v < int16Min {
		return int16Min
	}
	return int16(v)
}
