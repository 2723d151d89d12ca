package monitor

import (
	"sync"
	"time"
)

// LogLine is one raw logcat line with its local receive time.
type LogLine struct {
	Timestamp time.Time
	Line      string
}

// RingBuffer is a thread-safe circular buffer for recent log lines.
type RingBuffer struct {
	mu     sync.RWMutex
	buffer []LogLine
	size   int
	head   int
	count  int
}

// NewRingBuffer creates a ring buffer with the specified capacity.
func NewRingBuffer(size int) *RingBuffer {
	if size <= 0 {
		size = 100
	}
	return &RingBuffer{
		buffer: make([]LogLine, size),
		size:   size,
	}
}

// Push adds a line, evicting the oldest when the buffer is full.
func (rb *RingBuffer) Push(line LogLine) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.buffer[rb.head] = line
	rb.head = (rb.head + 1) % rb.size
	if rb.count < rb.size {
		rb.count++
	}
}

// GetAll returns all lines in order (oldest first).
func (rb *RingBuffer) GetAll() []LogLine {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	result := make([]LogLine, rb.count)

	if rb.count < rb.size {
		copy(result, rb.buffer[:rb.count])
	} else {
		copy(result, rb.buffer[rb.head:])
		copy(result[rb.size-rb.head:], rb.buffer[:rb.head])
	}

	return result
}

// GetLast returns the last n lines (most recent).
func (rb *RingBuffer) GetLast(n int) []LogLine {
	rb.mu.RLock()
	defer rb.mu.RUnlock()

	if n > rb.count {
		n = rb.count
	}

	result := make([]LogLine, n)

	start := (rb.head - n + rb.size) % rb.size
	for i := 0; i < n; i++ {
		result[i] = rb.buffer[(start+i)%rb.size]
	}

	return result
}

// Count returns the number of lines in the buffer.
func (rb *RingBuffer) Count() int {
	rb.mu.RLock()
	defer rb.mu.RUnlock()
	return rb.count
}

// Clear empties the buffer.
func (rb *RingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	rb.head = 0
	rb.count = 0
}
