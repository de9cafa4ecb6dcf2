// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// SingleThread is a Multiplexer running every Source on one dedicated worker. It suits processes hosting only a few
// sessions, usually a single one.
type SingleThread struct {
	w        *worker
	stopOnce sync.Once
}

// NewSingleThread creates and starts a SingleThread.
func NewSingleThread(name string) *SingleThread {
	return &SingleThread{w: newWorker(name)}
}

// Execute a task as soon as possible.
func (st *SingleThread) Execute(src *Source, task func()) {
	if !st.w.submit(task) {
		log.WithField("source", src).Debug("Dropping task for stopped SingleThread")
	}
}

// Schedule a task after a delay.
func (st *SingleThread) Schedule(_ *Source, task func(), delay time.Duration) *PendingTask {
	return schedule(st.w, task, delay)
}

// Await blocks until all currently queued tasks are executed.
func (st *SingleThread) Await() {
	st.w.await()
}

// Close the worker.
func (st *SingleThread) Close() error {
	st.stopOnce.Do(st.w.stop)
	return nil
}
