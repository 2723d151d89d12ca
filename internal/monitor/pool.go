package monitor

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by Do after Close.
var ErrPoolClosed = errors.New("worker pool closed")

// Pool is a fixed-size worker pool that bulkheads blocking device calls
// away from the orchestrator run loop. Do blocks until the task has run,
// so callers get natural backpressure when all workers are busy.
type Pool struct {
	tasks chan poolTask
	quit  chan struct{}
	wg    sync.WaitGroup
	once  sync.Once
}

type poolTask struct {
	fn   func()
	done chan struct{}
}

// NewPool starts a pool with the given number of workers.
func NewPool(workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}
	p := &Pool{
		tasks: make(chan poolTask),
		quit:  make(chan struct{}),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.worker()
	}
	return p
}

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case task := <-p.tasks:
			task.fn()
			close(task.done)
		}
	}
}

// Do submits fn and waits for it to finish. Returns the context error if
// the context is cancelled before a worker picks the task up; once a
// worker has it, Do waits for completion regardless of the context.
func (p *Pool) Do(ctx context.Context, fn func()) error {
	task := poolTask{fn: fn, done: make(chan struct{})}
	select {
	case p.tasks <- task:
	case <-p.quit:
		return ErrPoolClosed
	case <-ctx.Done():
		return ctx.Err()
	}
	<-task.done
	return nil
}

// Close stops the workers after their in-flight tasks complete.
func (p *Pool) Close() {
	p.once.Do(func() {
		close(p.quit)
	})
	p.wg.Wait()
}
