package aec

// RenderQueue is a circular buffer carrying band samples from AnalyzeRender
// to ProcessCapture. It absorbs jitter between render and capture calls.
// It is not safe for concurrent use.
type RenderQueue struct {
	data     []float64
	capacity int
	size     int
	readPos  int
	writePos int
}

// NewRenderQueue creates a queue with the specified initial capacity.
func NewRenderQueue(capacity int) *RenderQueue {
	if capacity < 1 {
		capacity = 1
	}
	return &RenderQueue{
		data:     make([]float64, capacity),
		capacity: capacity,
	}
}

// Write appends samples, growing the queue if needed.
func (q *RenderQueue) Write(samples []float64) {
	needed := len(samples)
	if needed == 0 {
		return
	}
	if q.size+needed > q.capacity {
		q.grow(q.size + needed)
	}

	for _, sample := range samples {
		q.data[q.writePos] = sample
		q.writePos = (q.writePos + 1) % q.capacity
	}
	q.size += needed
}

// ReadInto moves up to len(dst) samples into dst and returns the count.
func (q *RenderQueue) ReadInto(dst []float64) int {
	n := min(len(dst), q.size)
	for i := range n {
		dst[i] = q.data[q.readPos]
		q.readPos = (q.readPos + 1) % q.capacity
	}
	q.size -= n
	return n
}

// Discard drops up to n of the oldest samples and returns the count dropped.
func (q *RenderQueue) Discard(n int) int {
	n = max(min(n, q.size), 0)
	q.readPos = (q.readPos + n) % q.capacity
	q.size -= n
	return n
}

// Available returns the number of queued samples.
func (q *RenderQueue) Available() int {
	return q.size
}

// Capacity returns the current capacity.
func (q *RenderQueue) Capacity() int {
	return q.capacity
}

// Clear removes all samples.
func (q *RenderQueue) Clear() {
	q.size = 0
	q.readPos = 0
	q.writePos = 0
}

// grow increases the capacity to at least minCapacity, keeping order.
func (q *RenderQueue) grow(minCapacity int) {
	newCapacity := q.capacity
	for newCapacity < minCapacity {
		newCapacity *= 2
	}

	newData := make([]float64, newCapacity)
	if q.size > 0 {
		if q.readPos < q.writePos {
			copy(newData, q.data[q.readPos:q.writePos])
		} else {
			n := copy(newData, q.data[q.readPos:])
			copy(newData[n:], q.data[:q.writePos])
		}
	}

	q.data = newData
	q.capacity = newCapacity
	q.readPos = 0
	q.writePos = q.size
}
