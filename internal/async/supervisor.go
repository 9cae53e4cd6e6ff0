package async

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// statusBuffer is the event channel capacity. Events beyond a full buffer
// drop the oldest first, so the terminal event always lands as long as the
// owner drains occasionally.
const statusBuffer = 256

// DefaultStopGrace is how long Stop waits for the worker to finish
// cooperatively before abandoning it.
const DefaultStopGrace = 2 * time.Second

// Job is one unit of background work. It must emit at least one terminal
// StatusEvent, honor ctx cancellation at document boundaries, and share no
// mutable state with its owner: emit and the filesystem are the only
// channels out.
type Job func(ctx context.Context, emit func(StatusEvent))

// Supervisor owns at most one background indexing worker at a time. The
// worker runs in its own goroutine, acquires the store lock itself, and
// streams StatusEvents back; the owner polls without ever blocking.
type Supervisor struct {
	// NewJob builds the job for a Start call. Defaults to the real
	// indexing job; tests inject their own.
	NewJob func(path, storeDir string) Job

	// StopGrace bounds the cooperative shutdown wait in Stop.
	StopGrace time.Duration

	mu      sync.Mutex
	events  chan StatusEvent
	cancel  context.CancelFunc
	done    chan struct{}
	started time.Time
	running bool
}

// NewSupervisor creates a supervisor that runs real indexing jobs.
func NewSupervisor() *Supervisor {
	return &Supervisor{NewJob: indexingJob, StopGrace: DefaultStopGrace}
}

// Start launches a background job indexing path into the store at
// storeDir. It returns false, spawning nothing, if a job is already in
// flight. Starting discards any status events buffered from a previous
// run.
func (s *Supervisor) Start(path, storeDir string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return false
	}

	// Fresh channel rather than draining: an abandoned worker from a
	// stopped run may still hold the old one.
	events := make(chan StatusEvent, statusBuffer)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	s.events = events
	s.cancel = cancel
	s.done = done
	s.started = time.Now()
	s.running = true

	job := s.NewJob(path, storeDir)
	go s.run(ctx, job, events, done)

	slog.Info("background indexing started",
		slog.String("path", path),
		slog.String("store", storeDir))
	return true
}

// run executes the job and maintains liveness state. A panicking job is
// converted into a terminal error event; the store lock is released by the
// job's own deferred close.
func (s *Supervisor) run(ctx context.Context, job Job, events chan StatusEvent, done chan struct{}) {
	defer close(done)
	defer func() {
		s.mu.Lock()
		if s.done == done {
			s.running = false
		}
		s.mu.Unlock()
	}()

	emit := func(ev StatusEvent) { send(events, ev) }

	defer func() {
		if r := recover(); r != nil {
			slog.Error("indexing worker panicked", slog.Any("panic", r))
			emit(StatusEvent{
				Phase:   PhaseError,
				Message: fmt.Sprintf("indexing failed: %v", r),
				Err:     fmt.Sprint(r),
			})
		}
	}()

	job(ctx, emit)
}

// send delivers ev without ever blocking the worker: when the buffer is
// full the oldest event is dropped to make room.
func send(events chan StatusEvent, ev StatusEvent) {
	for {
		select {
		case events <- ev:
			return
		default:
		}
		select {
		case <-events:
		default:
		}
	}
}

// IsRunning reports whether a worker is currently alive.
func (s *Supervisor) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Poll returns the oldest buffered status event without blocking. The
// second return is false when nothing is buffered.
func (s *Supervisor) Poll() (StatusEvent, bool) {
	s.mu.Lock()
	events := s.events
	s.mu.Unlock()

	if events == nil {
		return StatusEvent{}, false
	}
	select {
	case ev := <-events:
		return ev, true
	default:
		return StatusEvent{}, false
	}
}

// Drain returns all buffered status events in emission order.
func (s *Supervisor) Drain() []StatusEvent {
	var all []StatusEvent
	for {
		ev, ok := s.Poll()
		if !ok {
			return all
		}
		all = append(all, ev)
	}
}

// Elapsed returns the time since the current or most recent job started.
// The second return is false if no job was ever started.
func (s *Supervisor) Elapsed() (time.Duration, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started.IsZero() {
		return 0, false
	}
	return time.Since(s.started), true
}

// Stop requests cooperative termination and waits up to StopGrace for the
// worker to exit; a worker still alive after that is abandoned (it keeps
// its cancelled context and will find its channel orphaned). Worker and
// timestamp state are cleared regardless, so a subsequent Start succeeds.
func (s *Supervisor) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	done := s.done
	grace := s.StopGrace
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		if grace <= 0 {
			grace = DefaultStopGrace
		}
		select {
		case <-done:
		case <-time.After(grace):
			slog.Warn("indexing worker did not stop within grace period, abandoning")
		}
	}

	s.mu.Lock()
	s.cancel = nil
	s.done = nil
	s.started = time.Time{}
	s.running = false
	s.mu.Unlock()
}
