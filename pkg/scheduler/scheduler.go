// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package scheduler provides the single logical thread each session runs on.
//
// All work of one Source, immediate tasks as well as timers, is executed by exactly one worker goroutine in
// submission order. Thus, code running on a Source does not need any further locking. A Multiplexer decides how
// Sources are mapped onto workers: a SingleThread serves everything on one worker, a Pool pins each Source to one of
// several workers.
package scheduler

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"
)

// ErrClosed is returned for work submitted to a closed Multiplexer.
var ErrClosed = errors.New("scheduler is closed")

var lastSourceID uint64

// Source identifies an independent stream of work, e.g., one client session.
type Source struct {
	id   uint64
	name string

	// slot is the pinned worker's index plus one; zero means not yet assigned.
	slot int32
}

// NewSource creates a new Source. The name is only used for logging.
func NewSource(name string) *Source {
	return &Source{
		id:   atomic.AddUint64(&lastSourceID, 1),
		name: name,
	}
}

func (src *Source) String() string {
	return fmt.Sprintf("%s#%d", src.name, src.id)
}

// Multiplexer executes the work of several Sources.
type Multiplexer interface {
	// Execute a task as soon as possible, preserving the submission order for its Source.
	Execute(src *Source, task func())

	// Schedule a task to be executed after a delay on its Source's worker.
	Schedule(src *Source, task func(), delay time.Duration) *PendingTask

	// Await blocks until all currently queued tasks are executed.
	Await()

	// Close stops all workers. Queued tasks which were not executed yet are dropped.
	Close() error
}

// Executor is a Multiplexer bound to a single Source.
type Executor interface {
	Execute(task func())
	Schedule(task func(), delay time.Duration) *PendingTask
}

type boundExecutor struct {
	mux Multiplexer
	src *Source
}

// Bind a Source to a Multiplexer, resulting in an Executor.
func Bind(mux Multiplexer, src *Source) Executor {
	return &boundExecutor{mux: mux, src: src}
}

func (be *boundExecutor) Execute(task func()) {
	be.mux.Execute(be.src, task)
}

func (be *boundExecutor) Schedule(task func(), delay time.Duration) *PendingTask {
	return be.mux.Schedule(be.src, task, delay)
}

// PendingTask is a scheduled task, which might be cancelled.
type PendingTask struct {
	timer     *time.Timer
	cancelled uint32
}

// Cancel the task. Cancel is idempotent and might be called from any goroutine. It returns true if this call
// cancelled the task.
func (pt *PendingTask) Cancel() bool {
	if pt == nil || !atomic.CompareAndSwapUint32(&pt.cancelled, 0, 1) {
		return false
	}

	if pt.timer != nil {
		pt.timer.Stop()
	}
	return true
}

// Cancelled reports if Cancel was called.
func (pt *PendingTask) Cancelled() bool {
	return atomic.LoadUint32(&pt.cancelled) != 0
}

// schedule creates a PendingTask which submits task to the worker after the delay.
func schedule(w *worker, task func(), delay time.Duration) *PendingTask {
	pt := &PendingTask{}
	pt.timer = time.AfterFunc(delay, func() {
		w.submit(func() {
			if !pt.Cancelled() {
				task()
			}
		})
	})
	return pt
}
