// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"fmt"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"
)

// Pool is a Multiplexer with a fixed amount of workers. Each Source is pinned to one worker on its first use, assigned
// round-robin. This assignment never changes, which keeps the per Source ordering while sharing workers between many
// sessions.
type Pool struct {
	workers []*worker
	next    uint32

	stopOnce sync.Once
}

// NewPool creates a Pool of size workers. A non-positive size defaults to the number of CPUs.
func NewPool(size int) *Pool {
	if size <= 0 {
		size = runtime.NumCPU()
	}

	p := &Pool{workers: make([]*worker, size)}
	for i := range p.workers {
		p.workers[i] = newWorker(fmt.Sprintf("pool-%d", i))
	}

	log.WithField("size", size).Debug("Started scheduler pool")

	return p
}

// Size is the amount of workers.
func (p *Pool) Size() int {
	return len(p.workers)
}

// nextSlot returns the next worker index, round-robin.
func (p *Pool) nextSlot() int {
	n := uint32(len(p.workers))
	for {
		cur := atomic.LoadUint32(&p.next)
		if atomic.CompareAndSwapUint32(&p.next, cur, (cur+1)%n) {
			return int(cur)
		}
	}
}

// workerFor returns the Source's pinned worker, assigning one if necessary.
func (p *Pool) workerFor(src *Source) *worker {
	if slot := atomic.LoadInt32(&src.slot); slot > 0 {
		return p.workers[int(slot-1)%len(p.workers)]
	}

	slot := int32(p.nextSlot() + 1)
	if !atomic.CompareAndSwapInt32(&src.slot, 0, slot) {
		// Another goroutine pinned this Source concurrently.
		slot = atomic.LoadInt32(&src.slot)
	} else {
		log.WithFields(log.Fields{
			"source": src,
			"worker": slot - 1,
		}).Debug("Pinned source to pool worker")
	}
	return p.workers[int(slot-1)%len(p.workers)]
}

// Assignment returns the worker index a Source is pinned to, pinning it if necessary.
func (p *Pool) Assignment(src *Source) int {
	w := p.workerFor(src)
	for i := range p.workers {
		if p.workers[i] == w {
			return i
		}
	}
	return -1
}

// Execute a task as soon as possible on the Source's worker.
func (p *Pool) Execute(src *Source, task func()) {
	if !p.workerFor(src).submit(task) {
		log.WithField("source", src).Debug("Dropping task for stopped Pool")
	}
}

// Schedule a task after a delay on the Source's worker.
func (p *Pool) Schedule(src *Source, task func(), delay time.Duration) *PendingTask {
	return schedule(p.workerFor(src), task, delay)
}

// Await blocks until all currently queued tasks of all workers are executed.
func (p *Pool) Await() {
	var wg sync.WaitGroup
	wg.Add(len(p.workers))
	for _, w := range p.workers {
		go func(w *worker) {
			defer wg.Done()
			w.await()
		}(w)
	}
	wg.Wait()
}

// Close all workers.
func (p *Pool) Close() error {
	p.stopOnce.Do(func() {
		for _, w := range p.workers {
			w.stop()
		}
	})
	return nil
}
