// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tutor

import (
	"sync"
	"time"

	"github.com/tlcp-go/tlcp/pkg/scheduler"
	"github.com/tlcp-go/tlcp/pkg/transport"
)

// mockExecutor queues tasks and timers until a test runs them explicitly.
type mockExecutor struct {
	mutex  sync.Mutex
	tasks  []func()
	timers []*mockTimer
}

type mockTimer struct {
	task  func()
	delay time.Duration
	pt    *scheduler.PendingTask
}

func (me *mockExecutor) Execute(task func()) {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	me.tasks = append(me.tasks, task)
}

func (me *mockExecutor) Schedule(task func(), delay time.Duration) *scheduler.PendingTask {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	pt := &scheduler.PendingTask{}
	me.timers = append(me.timers, &mockTimer{task: task, delay: delay, pt: pt})
	return pt
}

// runTasks until the queue is empty.
func (me *mockExecutor) runTasks() {
	for {
		me.mutex.Lock()
		if len(me.tasks) == 0 {
			me.mutex.Unlock()
			return
		}
		task := me.tasks[0]
		me.tasks = me.tasks[1:]
		me.mutex.Unlock()

		task()
	}
}

// armed returns the delays of all uncancelled timers.
func (me *mockExecutor) armed() (delays []time.Duration) {
	me.mutex.Lock()
	defer me.mutex.Unlock()

	for _, timer := range me.timers {
		if !timer.pt.Cancelled() {
			delays = append(delays, timer.delay)
		}
	}
	return
}

// fire all uncancelled timers, followed by the resulting tasks.
func (me *mockExecutor) fire() {
	me.mutex.Lock()
	timers := me.timers
	me.timers = nil
	me.mutex.Unlock()

	for _, timer := range timers {
		if !timer.pt.Cancelled() {
			timer.task()
		}
	}
	me.runTasks()
}

// mockSession is a configurable ServerSession.
type mockSession struct {
	mutex  sync.Mutex
	http   bool
	closed bool
	stream transport.StreamID
}

func (ms *mockSession) IsOpen() bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return !ms.closed
}

func (ms *mockSession) IsClosed() bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.closed
}

func (ms *mockSession) IsTransportHTTP() bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.http
}

func (ms *mockSession) IsTransportWS() bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return !ms.http
}

func (ms *mockSession) IsSameStreamConnection(id transport.StreamID) bool {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.stream == id
}

func (ms *mockSession) StreamConnection() transport.StreamID {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	return ms.stream
}

func (ms *mockSession) setStream(id transport.StreamID) {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.stream = id
}

func (ms *mockSession) setClosed() {
	ms.mutex.Lock()
	defer ms.mutex.Unlock()
	ms.closed = true
}

// mockOperation records retransmissions and aborts.
type mockOperation struct {
	mutex       sync.Mutex
	verified    bool
	retransmits []time.Duration
	aborts      int
}

func (mo *mockOperation) Verified() bool {
	mo.mutex.Lock()
	defer mo.mutex.Unlock()
	return mo.verified
}

func (mo *mockOperation) Retransmit(timeout time.Duration) {
	mo.mutex.Lock()
	defer mo.mutex.Unlock()
	mo.retransmits = append(mo.retransmits, timeout)
}

func (mo *mockOperation) Abort() {
	mo.mutex.Lock()
	defer mo.mutex.Unlock()
	mo.aborts++
}

func (mo *mockOperation) counts() (retransmits, aborts int) {
	mo.mutex.Lock()
	defer mo.mutex.Unlock()
	return len(mo.retransmits), mo.aborts
}
