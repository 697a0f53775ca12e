package authcore

import (
	"context"
	"sync"
	"sync/atomic"
)

// auditDispatcher moves audit events from the request path to the sink on a
// single worker goroutine. Login and signup latency must not depend on
// where audit records end up, so Emit only touches a buffered channel and,
// unless BlockIfFull is set, sheds load instead of waiting.
//
// A nil *auditDispatcher is valid and inert; the engine holds one only when
// auditing is enabled.
type auditDispatcher struct {
	sink        AuditSink
	queue       chan AuditEvent
	stop        chan struct{}
	blockIfFull bool

	worker   sync.WaitGroup
	dropped  atomic.Uint64
	stopping atomic.Bool
	stopOnce sync.Once
}

func newAuditDispatcher(cfg AuditConfig, sink AuditSink) *auditDispatcher {
	if !cfg.Enabled {
		return nil
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = 1
	}
	if sink == nil {
		sink = NoOpSink{}
	}

	d := &auditDispatcher{
		sink:        sink,
		queue:       make(chan AuditEvent, cfg.BufferSize),
		stop:        make(chan struct{}),
		blockIfFull: cfg.BlockIfFull,
	}

	d.worker.Add(1)
	go func() {
		defer d.worker.Done()
		d.pump()
	}()

	return d
}

// pump forwards events until stopped, then flushes whatever Emit managed to
// queue before the stop was observed.
func (d *auditDispatcher) pump() {
	for {
		select {
		case event := <-d.queue:
			d.sink.Emit(context.Background(), event)
		case <-d.stop:
			for {
				select {
				case event := <-d.queue:
					d.sink.Emit(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Emit queues the event. With BlockIfFull it waits for buffer space, the
// caller's context, or shutdown; otherwise a full buffer counts the event
// as dropped and returns immediately.
func (d *auditDispatcher) Emit(ctx context.Context, event AuditEvent) {
	if d == nil || d.stopping.Load() {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}

	if d.blockIfFull {
		select {
		case d.queue <- event:
		case <-ctx.Done():
		case <-d.stop:
		}
		return
	}

	select {
	case d.queue <- event:
	case <-d.stop:
	default:
		d.dropped.Add(1)
	}
}

// Close stops the worker after it drains the queue. Safe to call more than
// once; Emit calls racing Close are either delivered or silently ignored.
func (d *auditDispatcher) Close() {
	if d == nil {
		return
	}
	d.stopOnce.Do(func() {
		d.stopping.Store(true)
		close(d.stop)
		d.worker.Wait()
	})
}

// Dropped reports how many events were shed since startup.
func (d *auditDispatcher) Dropped() uint64 {
	if d == nil {
		return 0
	}
	return d.dropped.Load()
}
