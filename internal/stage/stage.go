// Package stage provides the worker scaffold shared by every polling DSP
// stage: a run flag, a dedicated goroutine, and cooperative shutdown.
package stage

import (
	"sync"
	"sync/atomic"
	"time"
)

// idlePoll is how long a worker sleeps when its input isn't ready yet.
// Short enough to keep latency low, long enough to avoid busy-spinning
// a core waiting on a producer that's also asleep.
const idlePoll = 200 * time.Microsecond

// Worker runs a polling loop on its own goroutine until stopped. Each
// DSP stage (resample, denoise, encode, decode) embeds a Worker and
// supplies a step function that drains one frame when enough input is
// available.
type Worker struct {
	running atomic.Bool
	stop    chan struct{}
	done    sync.WaitGroup
}

// Step is called repeatedly from the worker goroutine. It returns true
// if it made progress (processed a frame); false tells the loop to
// idle briefly before checking again.
type Step func() (progressed bool)

// Start launches the polling loop on a new goroutine. It is an error to
// call Start more than once on the same Worker.
func (w *Worker) Start(step Step) {
	w.stop = make(chan struct{})
	w.running.Store(true)
	w.done.Add(1)
	go w.run(step)
}

func (w *Worker) run(step Step) {
	defer w.done.Done()
	for w.running.Load() {
		if step() {
			continue
		}
		select {
		case <-w.stop:
			return
		case <-time.After(idlePoll):
		}
	}
}

// SignalStop clears the run flag without waiting for the worker
// goroutine to exit. Use this to fan out shutdown signals to many
// stages before joining any of them, matching the pipeline teardown
// order (signal every run flag, then stop device streams, then join).
// Safe to call once; a second call is a no-op.
func (w *Worker) SignalStop() {
	if !w.running.CompareAndSwap(true, false) {
		return
	}
	close(w.stop)
}

// Join blocks until the worker goroutine has observed SignalStop and
// returned. Calling Join without a prior SignalStop blocks forever.
func (w *Worker) Join() {
	w.done.Wait()
}

// Stop clears the run flag and blocks until the worker goroutine has
// observed it and returned. Safe to call once; a second call is a
// no-op since Stop is one-shot per the stage state machine.
func (w *Worker) Stop() {
	w.SignalStop()
	w.Join()
}
