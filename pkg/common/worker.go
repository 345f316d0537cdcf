package common

import (
	"errors"
	"sync"
	"time"
)

// Errors that may occur when sending tasks to a worker.
var (
	ErrWorkerClosed  = errors.New("worker is closed")
	ErrWorkerTooBusy = errors.New("worker is already overloaded")
)

// Configuration for the worker.
type WorkerConfig[T any] struct {
	// The size of the bounded task channel.
	ChannelSize int
	// Timeout after which `OnTimeout` is called if no task arrived.
	Timeout time.Duration
	// A closure that is called once `Timeout` is reached.
	OnTimeout func()
	// A closure that is executed upon reception of a task.
	OnTask func(T)
}

// Worker processes tasks of a given type sequentially on its own goroutine.
// The zero value is not usable, use StartWorker.
type Worker[T any] struct {
	channel chan<- T
	done    chan struct{}
	mutex   sync.Mutex
	closed  bool
}

// Stop the worker unless already stopped.
func (w *Worker[T]) Stop() {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if !w.closed {
		close(w.channel)
		w.closed = true
	}
}

// Wait blocks until the worker goroutine has processed every task that was
// queued before Stop and exited. Wait without a prior Stop blocks until some
// other goroutine stops the worker.
func (w *Worker[T]) Wait() {
	<-w.done
}

// Send a task to the worker. The send never blocks: if the task queue is
// full, ErrWorkerTooBusy is returned and the task is dropped.
func (w *Worker[T]) Send(task T) error {
	w.mutex.Lock()
	defer w.mutex.Unlock()

	if w.closed {
		return ErrWorkerClosed
	}

	select {
	case w.channel <- task:
		return nil
	default:
		return ErrWorkerTooBusy
	}
}

// StartWorker starts a worker that executes `c.OnTask` for each received task
// and `c.OnTimeout` whenever no task has arrived for `c.Timeout`. The worker
// runs until `Stop` is called; tasks queued before the stop are still
// processed.
func StartWorker[T any](c WorkerConfig[T]) *Worker[T] {
	incoming := make(chan T, c.ChannelSize)
	done := make(chan struct{})

	go func() {
		defer close(done)

		for {
			select {
			case task, ok := <-incoming:
				if !ok {
					return
				}
				c.OnTask(task)
			case <-time.After(c.Timeout):
				c.OnTimeout()
			}
		}
	}()

	return &Worker[T]{channel: incoming, done: done}
}
