// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"sync"

	log "github.com/sirupsen/logrus"
)

// worker is a goroutine draining an unbounded FIFO queue of tasks.
type worker struct {
	name string

	mutex   sync.Mutex
	queue   []func()
	stopped bool

	signal  chan struct{}
	stopSyn chan struct{}
	stopAck chan struct{}
}

func newWorker(name string) *worker {
	w := &worker{
		name:    name,
		signal:  make(chan struct{}, 1),
		stopSyn: make(chan struct{}),
		stopAck: make(chan struct{}),
	}

	go w.loop()

	return w
}

// submit a task; false is returned if the worker was already stopped.
func (w *worker) submit(task func()) bool {
	w.mutex.Lock()
	if w.stopped {
		w.mutex.Unlock()
		return false
	}
	w.queue = append(w.queue, task)
	w.mutex.Unlock()

	select {
	case w.signal <- struct{}{}:
	default:
	}
	return true
}

func (w *worker) loop() {
	defer close(w.stopAck)

	for {
		select {
		case <-w.stopSyn:
			return

		case <-w.signal:
			for {
				w.mutex.Lock()
				if len(w.queue) == 0 || w.stopped {
					w.mutex.Unlock()
					break
				}
				task := w.queue[0]
				w.queue[0] = nil
				w.queue = w.queue[1:]
				w.mutex.Unlock()

				w.run(task)
			}
		}
	}
}

// run a single task; a panicking task must not kill the worker.
func (w *worker) run(task func()) {
	defer func() {
		if r := recover(); r != nil {
			log.WithFields(log.Fields{
				"worker": w.name,
				"panic":  r,
			}).Error("Scheduled task panicked")
		}
	}()

	task()
}

// await blocks until all tasks queued before are executed or the worker was stopped.
func (w *worker) await() {
	done := make(chan struct{})
	if !w.submit(func() { close(done) }) {
		return
	}

	select {
	case <-done:
	case <-w.stopAck:
	}
}

// stop this worker. This method is only allowed to be called once and never from within a task.
func (w *worker) stop() {
	w.mutex.Lock()
	w.stopped = true
	w.queue = nil
	w.mutex.Unlock()

	close(w.stopSyn)
	<-w.stopAck
}
