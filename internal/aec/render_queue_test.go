package aec

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRenderQueue_FIFOOrderAcrossWrap(t *testing.T) {
	q := NewRenderQueue(4)
	q.Write([]float64{1, 2, 3})

	dst := make([]float64, 2)
	assert.Equal(t, 2, q.ReadInto(dst))
	assert.Equal(t, []float64{1, 2}, dst)

	q.Write([]float64{4, 5, 6}) // wraps
	assert.Equal(t, 4, q.Available())
	assert.Equal(t, 4, q.Capacity())

	out := make([]float64, 8)
	assert.Equal(t, 4, q.ReadInto(out))
	assert.Equal(t, []float64{3, 4, 5, 6}, out[:4])
	assert.Zero(t, q.Available())
}

func TestRenderQueue_GrowKeepsOrder(t *testing.T) {
	q := NewRenderQueue(2)
	q.Write([]float64{1, 2})
	dst := make([]float64, 1)
	q.ReadInto(dst)
	q.Write([]float64{3, 4, 5, 6})

	assert.GreaterOrEqual(t, q.Capacity(), 5)
	out := make([]float64, 5)
	assert.Equal(t, 5, q.ReadInto(out))
	assert.Equal(t, []float64{2, 3, 4, 5, 6}, out)
}

func TestRenderQueue_DiscardAndClear(t *testing.T) {
	q := NewRenderQueue(8)
	q.Write([]float64{1, 2, 3, 4, 5})

	assert.Equal(t, 2, q.Discard(2))
	dst := make([]float64, 1)
	q.ReadInto(dst)
	assert.Equal(t, 3.0, dst[0])

	assert.Equal(t, 2, q.Discard(10))
	assert.Zero(t, q.Discard(-1))

	q.Write([]float64{7})
	q.Clear()
	assert.Zero(t, q.Available())
	assert.Zero(t, q.ReadInto(dst))
}
