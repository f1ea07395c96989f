package culite

import (
	"sync"
	"time"
)

// Event marks a point in a stream's work queue. Recording an event enqueues
// a marker; the event completes when the stream reaches it. Pairs of events
// measure elapsed time between points in the queue.
type Event struct {
	mu   sync.Mutex
	done chan struct{}
	when time.Time
}

// EventCreate creates an unrecorded event.
func (ctx *Context) EventCreate() (*Event, error) {
	if err := ctx.alive(); err != nil {
		return nil, err
	}
	return &Event{}, nil
}

// EventRecord enqueues the event on the stream. A nil stream means the
// default stream. Re-recording an event resets its completion state.
func (ctx *Context) EventRecord(e *Event, stream *Stream) error {
	if err := ctx.alive(); err != nil {
		return err
	}
	if e == nil {
		return NewInvalidArgError("EventRecord", "nil event")
	}
	if stream == nil {
		stream = ctx.defaultStream
	}

	e.mu.Lock()
	done := make(chan struct{})
	e.done = done
	e.mu.Unlock()

	stream.Submit(func() {
		e.mu.Lock()
		e.when = time.Now()
		e.mu.Unlock()
		close(done)
	})
	return nil
}

// Synchronize blocks until the event has completed. Synchronizing an
// unrecorded event is an error.
func (e *Event) Synchronize() error {
	e.mu.Lock()
	done := e.done
	e.mu.Unlock()
	if done == nil {
		return NewInvalidArgError("Event.Synchronize", "event has not been recorded")
	}
	<-done
	return nil
}

// EventElapsed returns the wall time between two completed events.
func EventElapsed(start, end *Event) (time.Duration, error) {
	if start == nil || end == nil {
		return 0, NewInvalidArgError("EventElapsed", "nil event")
	}
	if err := start.Synchronize(); err != nil {
		return 0, err
	}
	if err := end.Synchronize(); err != nil {
		return 0, err
	}
	start.mu.Lock()
	t0 := start.when
	start.mu.Unlock()
	end.mu.Lock()
	t1 := end.when
	end.mu.Unlock()
	return t1.Sub(t0), nil
}
