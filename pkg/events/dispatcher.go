// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package events delivers listener callbacks on a dedicated goroutine.
//
// A Dispatcher decouples application listeners from the session's scheduler: events are queued and delivered one
// after another, preserving their order for each listener. A panicking listener is logged and neither affects other
// listeners nor the Dispatcher itself.
package events

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	log "github.com/sirupsen/logrus"
)

// ErrNilListener is returned when registering or removing a nil listener.
var ErrNilListener = errors.New("listener is nil")

// Event is a callback invoked for a listener.
type Event[L any] func(listener L)

// entry is a listener's registration.
type entry[L any] struct {
	token    uint64
	listener L
	alive    uint32
}

func (e *entry[L]) isAlive() bool {
	return atomic.LoadUint32(&e.alive) != 0
}

// item is a queued delivery.
type item[L any] struct {
	entry  *entry[L]
	event  Event[L]
	forced bool
}

// Dispatcher delivers Events to its registered listeners of type L.
//
// Listeners are identified by equality, thus L should be a pointer or an interface type holding pointers.
type Dispatcher[L comparable] struct {
	name string

	mutex     sync.Mutex
	entries   map[L]*entry[L]
	order     []*entry[L]
	lastToken uint64
	queue     []item[L]
	closed    bool

	signal  chan struct{}
	stopSyn chan struct{}
	stopAck chan struct{}
}

// NewDispatcher creates and starts a Dispatcher. The name is used for logging.
func NewDispatcher[L comparable](name string) *Dispatcher[L] {
	d := &Dispatcher[L]{
		name:    name,
		entries: make(map[L]*entry[L]),
		signal:  make(chan struct{}, 1),
		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	go d.handler()

	return d
}

func (d *Dispatcher[L]) log() *log.Entry {
	return log.WithField("dispatcher", d.name)
}

// enqueue items while holding the mutex.
func (d *Dispatcher[L]) enqueue(items ...item[L]) {
	if d.closed {
		return
	}
	d.queue = append(d.queue, items...)

	select {
	case d.signal <- struct{}{}:
	default:
	}
}

// AddListener registers a listener and queues its start event, which is always delivered. Adding an already
// registered listener does nothing. The start event might be nil.
func (d *Dispatcher[L]) AddListener(listener L, start Event[L]) error {
	var zero L
	if listener == zero {
		return ErrNilListener
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	if _, exists := d.entries[listener]; exists {
		return nil
	}

	d.lastToken++
	e := &entry[L]{token: d.lastToken, listener: listener, alive: 1}
	d.entries[listener] = e
	d.order = append(d.order, e)

	if start != nil {
		d.enqueue(item[L]{entry: e, event: start, forced: true})
	}
	return nil
}

// RemoveListener unregisters a listener and queues its end event, which is always delivered. Events queued for this
// listener before, which are not yet delivered, are dropped. Removing an unknown listener does nothing.
func (d *Dispatcher[L]) RemoveListener(listener L, end Event[L]) error {
	var zero L
	if listener == zero {
		return ErrNilListener
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	e, exists := d.entries[listener]
	if !exists {
		return nil
	}

	atomic.StoreUint32(&e.alive, 0)
	delete(d.entries, listener)
	for i, o := range d.order {
		if o == e {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}

	if end != nil {
		d.enqueue(item[L]{entry: e, event: end, forced: true})
	}
	return nil
}

// DispatchEvent queues an event for each currently registered listener.
func (d *Dispatcher[L]) DispatchEvent(event Event[L]) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	items := make([]item[L], 0, len(d.order))
	for _, e := range d.order {
		items = append(items, item[L]{entry: e, event: event})
	}
	d.enqueue(items...)
}

// Post queues an event for a single listener, regardless of its registration. This is used for callbacks of
// listeners attached to a single operation, e.g., a message.
func (d *Dispatcher[L]) Post(listener L, event Event[L]) error {
	var zero L
	if listener == zero {
		return ErrNilListener
	}

	d.mutex.Lock()
	defer d.mutex.Unlock()

	d.enqueue(item[L]{entry: &entry[L]{listener: listener}, event: event, forced: true})
	return nil
}

// Listeners returns all registered listeners in their registration order.
func (d *Dispatcher[L]) Listeners() []L {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	ls := make([]L, 0, len(d.order))
	for _, e := range d.order {
		ls = append(ls, e.listener)
	}
	return ls
}

// Await blocks until every event queued before is delivered.
func (d *Dispatcher[L]) Await() {
	done := make(chan struct{})

	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return
	}
	d.enqueue(item[L]{entry: &entry[L]{}, event: func(L) { close(done) }, forced: true})
	d.mutex.Unlock()

	select {
	case <-done:
	case <-d.stopAck:
	}
}

// Close delivers all queued events and stops the Dispatcher afterwards. Events dispatched later are dropped.
func (d *Dispatcher[L]) Close() error {
	d.mutex.Lock()
	if d.closed {
		d.mutex.Unlock()
		return fmt.Errorf("dispatcher %s is already closed", d.name)
	}
	d.closed = true
	d.mutex.Unlock()

	close(d.stopSyn)
	<-d.stopAck

	return nil
}

// next pops the queue's head.
func (d *Dispatcher[L]) next() (it item[L], ok bool) {
	d.mutex.Lock()
	defer d.mutex.Unlock()

	if len(d.queue) == 0 {
		return
	}

	it, ok = d.queue[0], true
	d.queue[0] = item[L]{}
	d.queue = d.queue[1:]
	return
}

func (d *Dispatcher[L]) drain() {
	for {
		it, ok := d.next()
		if !ok {
			return
		}
		d.deliver(it)
	}
}

func (d *Dispatcher[L]) handler() {
	defer close(d.stopAck)

	for {
		select {
		case <-d.stopSyn:
			d.drain()
			d.log().Debug("Dispatcher stopped")
			return

		case <-d.signal:
			d.drain()
		}
	}
}

func (d *Dispatcher[L]) deliver(it item[L]) {
	if !it.forced && !it.entry.isAlive() {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			d.log().WithFields(log.Fields{
				"listener": it.entry.token,
				"panic":    r,
			}).Warn("Listener panicked")
		}
	}()

	it.event(it.entry.listener)
}
