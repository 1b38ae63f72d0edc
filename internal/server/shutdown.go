package server

import (
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"go.uber.org/zap"
)

// State is the shutdown lifecycle state. Transitions are strictly monotonic:
// Running -> Draining -> Terminated, and no state is re-entered.
type State int32

const (
	// StateRunning means the listener is accepting connections.
	StateRunning State = iota
	// StateDraining means the listener is closed and in-flight requests are
	// being waited on.
	StateDraining
	// StateTerminated means the process is about to exit.
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Coordinator owns the shutdown state machine. On a termination trigger it
// closes the listening socket, waits for in-flight requests up to the grace
// period, and reports the process exit code. It owns no request data; it only
// observes the Tracker and drives the listener close and the grace timer.
type Coordinator struct {
	logger  *zap.Logger
	tracker *Tracker
	grace   time.Duration

	state atomic.Int32

	// stopAccepting closes the listening socket; forceClose abandons
	// whatever connections are still open after the grace period.
	stopAccepting func()
	forceClose    func()

	// shutdownChan, when set, replaces OS signal delivery so tests can
	// trigger shutdown deterministically.
	shutdownChan  <-chan struct{}
	startupErrors chan error
}

// NewCoordinator creates a coordinator in the Running state.
func NewCoordinator(tracker *Tracker, grace time.Duration, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		logger:        logger,
		tracker:       tracker,
		grace:         grace,
		startupErrors: make(chan error, 1),
	}
	c.state.Store(int32(StateRunning))
	return c
}

// WithShutdownChannel configures a custom shutdown trigger instead of OS
// signals. Closing the channel starts the drain.
func (c *Coordinator) WithShutdownChannel(ch <-chan struct{}) *Coordinator {
	c.shutdownChan = ch
	return c
}

// State returns the current lifecycle state.
func (c *Coordinator) State() State {
	return State(c.state.Load())
}

// ReportStartupError hands the coordinator a fatal serve error so the process
// terminates instead of hanging on a dead listener.
func (c *Coordinator) ReportStartupError(err error) {
	select {
	case c.startupErrors <- err:
	default:
	}
}

// Wait blocks until a termination signal arrives (or the shutdown channel
// closes, or a startup error is reported), runs the drain sequence, and
// returns the process exit code.
func (c *Coordinator) Wait() int {
	if c.shutdownChan != nil {
		select {
		case <-c.shutdownChan:
		case err := <-c.startupErrors:
			return c.fail(err)
		}
	} else {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(sig)

		select {
		case s := <-sig:
			c.logger.Info("Termination signal received", zap.String("signal", s.String()))
		case err := <-c.startupErrors:
			return c.fail(err)
		}
	}

	return c.Drain()
}

// Drain runs Running -> Draining -> Terminated. The transition is guarded by
// a compare-and-swap, so a second trigger while already draining neither
// restarts the grace timer nor re-runs the listener close.
func (c *Coordinator) Drain() int {
	if !c.state.CompareAndSwap(int32(StateRunning), int32(StateDraining)) {
		return 0
	}

	c.logger.Info("Draining: listener closed, waiting for in-flight requests",
		zap.Int64("in_flight", c.tracker.Count()),
		zap.Duration("grace_period", c.grace),
	)

	if c.stopAccepting != nil {
		c.stopAccepting()
	}

	timer := time.NewTimer(c.grace)
	defer timer.Stop()

	select {
	case <-c.tracker.Quiesced():
		c.state.Store(int32(StateTerminated))
		c.logger.Info("All in-flight requests drained")
		return 0
	case <-timer.C:
		c.state.Store(int32(StateTerminated))
		c.logger.Error("Grace period expired, abandoning in-flight requests",
			zap.Int64("in_flight", c.tracker.Count()),
		)
		if c.forceClose != nil {
			c.forceClose()
		}
		return 1
	}
}

func (c *Coordinator) fail(err error) int {
	c.state.Store(int32(StateTerminated))
	c.logger.Error("Server failed", zap.Error(err))
	return 1
}
