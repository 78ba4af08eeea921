package audit

import (
	"context"
	"sync"
	"sync/atomic"
	"time"
)

// Config controls dispatcher buffering behavior.
type Config struct {
	Enabled    bool
	BufferSize int
	// DropIfFull discards events instead of blocking the caller when the
	// queue is full.
	DropIfFull bool
}

type counters struct {
	dropped   atomic.Uint64
	delivered atomic.Uint64
	panics    atomic.Uint64
}

// Dispatcher relays events to a Sink from one background goroutine, so slow
// sinks never run on the session or storage paths. A nil *Dispatcher is valid
// and discards everything.
type Dispatcher struct {
	sink       Sink
	dropIfFull bool
	now        func() time.Time

	// gate guards queue against sends after Close closes it.
	gate   sync.RWMutex
	closed bool
	queue  chan Event
	idle   chan struct{}

	stats counters
}

// NewDispatcher starts the relay goroutine. It returns nil when cfg.Enabled
// is false.
func NewDispatcher(cfg Config, sink Sink) *Dispatcher {
	if !cfg.Enabled {
		return nil
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &Dispatcher{
		sink:       sink,
		dropIfFull: cfg.DropIfFull,
		now:        time.Now,
		queue:      make(chan Event, max(cfg.BufferSize, 1)),
		idle:       make(chan struct{}),
	}
	go d.relay()
	return d
}

func (d *Dispatcher) relay() {
	defer close(d.idle)
	for event := range d.queue {
		d.send(event)
	}
}

func (d *Dispatcher) send(event Event) {
	defer func() {
		if recover() != nil {
			d.stats.panics.Add(1)
		}
	}()
	d.sink.Emit(context.Background(), event)
	d.stats.delivered.Add(1)
}

// Emit queues event, stamping Timestamp when it is zero. Events emitted after
// Close are ignored. In blocking mode Emit gives up when ctx is done.
func (d *Dispatcher) Emit(ctx context.Context, event Event) {
	if d == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = d.now()
	}

	d.gate.RLock()
	defer d.gate.RUnlock()
	if d.closed {
		return
	}

	if d.dropIfFull {
		select {
		case d.queue <- event:
		default:
			d.stats.dropped.Add(1)
		}
		return
	}
	select {
	case d.queue <- event:
	case <-ctx.Done():
	}
}

// Close stops accepting events and returns once the queue is flushed to the
// sink. It is safe to call more than once.
func (d *Dispatcher) Close() {
	if d == nil {
		return
	}
	d.gate.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.gate.Unlock()
	<-d.idle
}

// Dropped counts events discarded because the buffer was full.
func (d *Dispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.stats.dropped.Load()
}

// Delivered counts events the sink accepted.
func (d *Dispatcher) Delivered() uint64 {
	if d == nil {
		return 0
	}
	return d.stats.delivered.Load()
}

// SinkPanics counts events whose sink panicked.
func (d *Dispatcher) SinkPanics() uint64 {
	if d == nil {
		return 0
	}
	return d.stats.panics.Load()
}
