// Package pipeline assembles the DSP stages into the two supported
// shapes, SelfListen and P2P, and owns their teardown order.
package pipeline

import "sync"

// State is a pipeline's lifecycle position. Transitions are one-shot:
// a Stopped pipeline is never restarted.
type State int32

const (
	Created State = iota
	Running
	Stopping
	Stopped
)

func (s State) String() string {
	switch s {
	case Created:
		return "created"
	case Running:
		return "running"
	case Stopping:
		return "stopping"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// worker is satisfied by stage.Worker (embedded in every DSP stage)
// via its promoted SignalStop/Join methods.
type worker interface {
	SignalStop()
	Join()
}

// teardown runs the pipeline's one-shot shutdown sequence: signal
// every worker's run flag, stop the capture device, stop the playback
// device, then join every worker. stopCapture/stopPlayback may be nil
// for shapes that lack one side (neither SelfListen nor P2P do, but
// the helper stays generic).
func teardown(workers []worker, stopCapture, stopPlayback func()) {
	for _, w := range workers {
		w.SignalStop()
	}
	if stopCapture != nil {
		stopCapture()
	}
	if stopPlayback != nil {
		stopPlayback()
	}
	for _, w := range workers {
		w.Join()
	}
}

// lifecycle is the Created/Running/Stopping/Stopped state machine
// shared by SelfListen and P2P, guarding Close against concurrent or
// repeated calls.
type lifecycle struct {
	mu    sync.Mutex
	state State
}

func (l *lifecycle) setRunning() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Running
}

// beginStop returns true if the caller should actually run the
// teardown sequence (first call only).
func (l *lifecycle) beginStop() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == Stopping || l.state == Stopped {
		return false
	}
	l.state = Stopping
	return true
}

func (l *lifecycle) finishStop() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = Stopped
}

func (l *lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}
