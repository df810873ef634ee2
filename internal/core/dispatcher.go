package core

import (
	"context"
	"sync"

	"github.com/dkeye/Spaces/internal/domain"
	"github.com/rs/zerolog/log"
)

type envelope struct {
	target  domain.NavigationTarget
	barrier chan struct{}
}

// Dispatcher is an ordered, asynchronous navigation bus. Dispatch never
// blocks; a single delivery goroutine hands every target to every listener
// in publish order, listeners in registration order.
type Dispatcher struct {
	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}

	qmu     sync.Mutex
	queue   []envelope
	wake    chan struct{}
	stopped bool

	lmu       sync.RWMutex
	listeners map[ListenerRef]Listener
	order     []ListenerRef
	next      ListenerRef
}

func NewDispatcher(parent context.Context) *Dispatcher {
	ctx, cancel := context.WithCancel(parent)
	d := &Dispatcher{
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
		listeners: make(map[ListenerRef]Listener),
	}
	go d.run()
	return d
}

// Register adds a listener; it sees every target dispatched after this call.
func (d *Dispatcher) Register(l Listener) ListenerRef {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	d.next++
	ref := d.next
	d.listeners[ref] = l
	d.order = append(d.order, ref)
	return ref
}

func (d *Dispatcher) Unregister(ref ListenerRef) {
	d.lmu.Lock()
	defer d.lmu.Unlock()
	if _, ok := d.listeners[ref]; !ok {
		return
	}
	delete(d.listeners, ref)
	for i, r := range d.order {
		if r == ref {
			d.order = append(d.order[:i:i], d.order[i+1:]...)
			break
		}
	}
}

func (d *Dispatcher) Dispatch(target domain.NavigationTarget) {
	if !d.enqueue(envelope{target: target}) {
		log.Warn().Str("module", "core.dispatcher").Str("target", target.String()).Msg("dispatch after close dropped")
		return
	}
	log.Debug().Str("module", "core.dispatcher").Str("target", target.String()).Msg("queued")
}

// Flush blocks until everything dispatched before the call was delivered.
func (d *Dispatcher) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if !d.enqueue(envelope{barrier: barrier}) {
		return context.Canceled
	}
	select {
	case <-barrier:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting targets, delivers what is already queued and waits
// for the delivery goroutine to exit.
func (d *Dispatcher) Close() {
	d.qmu.Lock()
	d.stopped = true
	d.qmu.Unlock()
	d.cancel()
	<-d.done
}

func (d *Dispatcher) enqueue(e envelope) bool {
	d.qmu.Lock()
	if d.stopped {
		d.qmu.Unlock()
		return false
	}
	d.queue = append(d.queue, e)
	d.qmu.Unlock()
	select {
	case d.wake <- struct{}{}:
	default:
	}
	return true
}

func (d *Dispatcher) take() []envelope {
	d.qmu.Lock()
	defer d.qmu.Unlock()
	batch := d.queue
	d.queue = nil
	return batch
}

func (d *Dispatcher) run() {
	defer close(d.done)
	for {
		select {
		case <-d.wake:
			d.deliver(d.take())
		case <-d.ctx.Done():
			d.qmu.Lock()
			d.stopped = true
			d.qmu.Unlock()
			d.deliver(d.take())
			return
		}
	}
}

func (d *Dispatcher) deliver(batch []envelope) {
	for _, e := range batch {
		if e.barrier != nil {
			close(e.barrier)
			continue
		}
		for _, l := range d.snapshot() {
			d.call(l, e.target)
		}
	}
}

func (d *Dispatcher) snapshot() []Listener {
	d.lmu.RLock()
	defer d.lmu.RUnlock()
	out := make([]Listener, 0, len(d.order))
	for _, ref := range d.order {
		out = append(out, d.listeners[ref])
	}
	return out
}

func (d *Dispatcher) call(l Listener, target domain.NavigationTarget) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "core.dispatcher").Interface("panic", r).Str("target", target.String()).Msg("listener panicked")
		}
	}()
	l(target)
}
