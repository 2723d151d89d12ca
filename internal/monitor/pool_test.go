package monitor

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPoolDo(t *testing.T) {
	t.Run("runs the task and waits for it", func(t *testing.T) {
		p := NewPool(2)
		defer p.Close()

		var ran atomic.Bool
		require.NoError(t, p.Do(context.Background(), func() {
			ran.Store(true)
		}))
		assert.True(t, ran.Load())
	})

	t.Run("bounds concurrency to the worker count", func(t *testing.T) {
		p := NewPool(2)
		defer p.Close()

		var active, peak atomic.Int32
		release := make(chan struct{})
		done := make(chan struct{}, 3)

		for i := 0; i < 3; i++ {
			go func() {
				_ = p.Do(context.Background(), func() {
					n := active.Add(1)
					for {
						old := peak.Load()
						if n <= old || peak.CompareAndSwap(old, n) {
							break
						}
					}
					<-release
					active.Add(-1)
				})
				done <- struct{}{}
			}()
		}

		// Let the first two tasks get picked up, then unblock everyone.
		time.Sleep(50 * time.Millisecond)
		assert.Equal(t, int32(2), active.Load())
		close(release)
		for i := 0; i < 3; i++ {
			<-done
		}
		assert.Equal(t, int32(2), peak.Load())
	})

	t.Run("respects context cancellation while queued", func(t *testing.T) {
		p := NewPool(1)
		defer p.Close()

		release := make(chan struct{})
		occupied := make(chan struct{})
		go p.Do(context.Background(), func() {
			close(occupied)
			<-release
		})
		<-occupied

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		err := p.Do(ctx, func() {})
		assert.ErrorIs(t, err, context.Canceled)
		close(release)
	})

	t.Run("rejects submissions after close", func(t *testing.T) {
		p := NewPool(1)
		p.Close()
		assert.ErrorIs(t, p.Do(context.Background(), func() {}), ErrPoolClosed)
	})
}
