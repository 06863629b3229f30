package goSession

import (
	"context"
	"sync"
	"sync/atomic"
)

// signalDispatcher decouples the transport layer from the auth state store:
// the coordinator publishes, nobody calls across layers. Internal observers
// run synchronously on the emitting goroutine (the forced-logout path must be
// observed before the failing call returns); the external sink is fed through
// a buffered channel and a drain goroutine.
type signalDispatcher struct {
	cfg       SignalConfig
	sink      SignalSink
	ch        chan SessionSignal
	done      chan struct{}
	wg        sync.WaitGroup
	dropped   atomic.Uint64
	closed    atomic.Bool
	closeOnce sync.Once

	mu        sync.RWMutex
	observers []func(SessionSignal)
}

func newSignalDispatcher(cfg SignalConfig, sink SignalSink) *signalDispatcher {
	d := &signalDispatcher{cfg: cfg}

	if cfg.Enabled {
		if cfg.BufferSize <= 0 {
			cfg.BufferSize = 1
		}
		if sink == nil {
			sink = NoOpSink{}
		}
		d.cfg = cfg
		d.sink = sink
		d.ch = make(chan SessionSignal, cfg.BufferSize)
		d.done = make(chan struct{})

		d.wg.Add(1)
		go d.run()
	}

	return d
}

func (d *signalDispatcher) run() {
	defer d.wg.Done()

	for {
		select {
		case signal := <-d.ch:
			d.sink.Emit(context.Background(), signal)
		case <-d.done:
			for {
				select {
				case signal := <-d.ch:
					d.sink.Emit(context.Background(), signal)
				default:
					return
				}
			}
		}
	}
}

// subscribe registers an internal observer. Observers are fixed at build time;
// no unsubscribe is needed.
func (d *signalDispatcher) subscribe(fn func(SessionSignal)) {
	if d == nil || fn == nil {
		return
	}
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

// Emit describes the emit operation and its observable behavior.
//
// Emit does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *signalDispatcher) Emit(ctx context.Context, signal SessionSignal) {
	if d == nil || d.closed.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	d.mu.RLock()
	observers := d.observers
	d.mu.RUnlock()
	for _, fn := range observers {
		fn(signal)
	}

	if d.ch == nil {
		return
	}

	if d.cfg.DropIfFull {
		select {
		case d.ch <- signal:
		case <-d.done:
		default:
			d.dropped.Add(1)
		}
		return
	}

	select {
	case d.ch <- signal:
	case <-ctx.Done():
	case <-d.done:
	}
}

// Close describes the close operation and its observable behavior.
//
// Close does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (d *signalDispatcher) Close() {
	if d == nil {
		return
	}
	d.closeOnce.Do(func() {
		d.closed.Store(true)
		if d.done != nil {
			close(d.done)
			d.wg.Wait()
		}
	})
}

// Dropped describes the dropped operation and its observable behavior.
func (d *signalDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
