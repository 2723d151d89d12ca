package monitor

import (
	"strconv"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRingBuffer(t *testing.T) {
	t.Run("creates buffer with specified size", func(t *testing.T) {
		rb := NewRingBuffer(50)
		require.NotNil(t, rb)
		assert.Equal(t, 0, rb.Count())
	})

	t.Run("uses default size for zero or negative", func(t *testing.T) {
		rb := NewRingBuffer(0)
		for i := 0; i < 150; i++ {
			rb.Push(LogLine{Line: "test"})
		}
		assert.Equal(t, 100, rb.Count())
	})
}

func TestRingBufferPush(t *testing.T) {
	t.Run("wraps around when full", func(t *testing.T) {
		rb := NewRingBuffer(3)

		for i := 1; i <= 4; i++ {
			rb.Push(LogLine{Line: strconv.Itoa(i)})
		}
		assert.Equal(t, 3, rb.Count())

		lines := rb.GetAll()
		require.Len(t, lines, 3)
		assert.Equal(t, "2", lines[0].Line)
		assert.Equal(t, "4", lines[2].Line)
	})
}

func TestRingBufferGetLast(t *testing.T) {
	rb := NewRingBuffer(5)
	for i := 1; i <= 7; i++ {
		rb.Push(LogLine{Line: strconv.Itoa(i)})
	}

	last := rb.GetLast(2)
	require.Len(t, last, 2)
	assert.Equal(t, "6", last[0].Line)
	assert.Equal(t, "7", last[1].Line)

	// Asking for more than retained returns what is there.
	assert.Len(t, rb.GetLast(10), 5)
}

func TestRingBufferClear(t *testing.T) {
	rb := NewRingBuffer(5)
	rb.Push(LogLine{Line: "x"})
	rb.Clear()
	assert.Equal(t, 0, rb.Count())
	assert.Empty(t, rb.GetAll())
}

func TestRingBufferConcurrency(t *testing.T) {
	rb := NewRingBuffer(100)
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				rb.Push(LogLine{Line: "concurrent"})
				rb.GetAll()
				rb.Count()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 100, rb.Count())
}
