// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tutor implements the retransmission policy of acknowledged requests.
//
// Each request awaiting a server's acknowledgment is accompanied by a Tutor. Once the request is on the wire, the
// Tutor arms a timer. If the timer fires before the request was confirmed, the Tutor decides based on the current
// ServerSession whether the request is retransmitted, aborted or just given more time.
//
// Every state change happens on the session's scheduler.Executor. Methods called from other goroutines, like
// NotifySender from a transport's goroutine, post their work to this Executor.
package tutor

import (
	"fmt"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/scheduler"
	"github.com/tlcp-go/tlcp/pkg/transport"
)

// DefaultMinTimeout is the lower bound of each adaptive timeout.
const DefaultMinTimeout = 4 * time.Second

// ServerSession is the session state a Tutor bases its decisions on.
type ServerSession interface {
	IsOpen() bool
	IsClosed() bool
	IsTransportHTTP() bool
	IsTransportWS() bool

	// IsSameStreamConnection checks if the given stream is still the session's current stream connection.
	IsSameStreamConnection(id transport.StreamID) bool

	// StreamConnection is the session's current stream connection.
	StreamConnection() transport.StreamID
}

// Operation is the tutored request's owner.
type Operation interface {
	// Verified checks if the request's effect was confirmed by other means, e.g., a later response.
	Verified() bool

	// Retransmit the request. The timeout should seed the Tutor of the retransmission.
	Retransmit(timeout time.Duration)

	// Abort the request, as the session was closed.
	Abort()
}

// Config of a single Tutor.
type Config struct {
	// MinTimeout is the lower bound for adaptive timeouts; zero results in DefaultMinTimeout.
	MinTimeout time.Duration

	// FixedTimeout replaces the adaptive timeout with a constant one, if positive.
	FixedTimeout time.Duration

	// ForceRebind tutors are always retransmitted on timeout, as force_rebind requests are sent over HTTP.
	ForceRebind bool
}

// State of a Tutor.
type State uint32

const (
	// PendingSend is the initial state until the request is on the wire.
	PendingSend State = iota

	// AwaitingResponse indicates an armed timer.
	AwaitingResponse

	// Retransmitting indicates a Tutor which handed its request over to a retransmission. This state is terminal
	// for this Tutor, the retransmission gets a fresh one.
	Retransmitting

	// Confirmed is the terminal state of an acknowledged request.
	Confirmed

	// Discarded is the terminal state of a superseded or aborted request.
	Discarded
)

func (s State) String() string {
	switch s {
	case PendingSend:
		return "pending send"
	case AwaitingResponse:
		return "awaiting response"
	case Retransmitting:
		return "retransmitting"
	case Confirmed:
		return "confirmed"
	case Discarded:
		return "discarded"
	default:
		return fmt.Sprintf("unknown state %d", uint32(s))
	}
}

// Tutor supervises one request.
type Tutor struct {
	exec    scheduler.Executor
	session ServerSession
	op      Operation
	cfg     Config
	void    bool

	// stream this request was sent on.
	stream transport.StreamID

	// timer is only accessed from the Executor.
	timer *scheduler.PendingTask

	// timeout in nanoseconds, state and finished are accessed by sync/atomic functions.
	timeout  int64
	state    uint32
	finished uint32
}

// New creates a Tutor for a request sent on the session's current stream connection. The previous timeout is the
// timeout of the Tutor of the last transmission, or zero for a first transmission.
func New(exec scheduler.Executor, session ServerSession, op Operation, previous time.Duration, cfg Config) *Tutor {
	if cfg.MinTimeout <= 0 {
		cfg.MinTimeout = DefaultMinTimeout
	}

	timeout := cfg.FixedTimeout
	if timeout <= 0 {
		timeout = previous * 2
		if timeout < cfg.MinTimeout {
			timeout = cfg.MinTimeout
		}
	}

	return &Tutor{
		exec:    exec,
		session: session,
		op:      op,
		cfg:     cfg,
		stream:  session.StreamConnection(),
		timeout: int64(timeout),
	}
}

// NewVoid creates a Tutor for requests without acknowledgment. It never arms a timer and never retransmits.
func NewVoid() *Tutor {
	return &Tutor{void: true}
}

func (t *Tutor) log() *log.Entry {
	return log.WithFields(log.Fields{
		"tutor":   fmt.Sprintf("%p", t),
		"state":   t.State(),
		"timeout": t.Timeout(),
	})
}

// Timeout is the currently applied timeout.
func (t *Tutor) Timeout() time.Duration {
	return time.Duration(atomic.LoadInt64(&t.timeout))
}

// State of this Tutor.
func (t *Tutor) State() State {
	return State(atomic.LoadUint32(&t.state))
}

func (t *Tutor) setState(s State) {
	atomic.StoreUint32(&t.state, uint32(s))
}

// IsFinished checks if this Tutor has reached a terminal state.
func (t *Tutor) IsFinished() bool {
	return atomic.LoadUint32(&t.finished) != 0
}

// finish this Tutor with a terminal state. Only the first call succeeds.
func (t *Tutor) finish(s State) bool {
	if !atomic.CompareAndSwapUint32(&t.finished, 0, 1) {
		return false
	}
	t.setState(s)
	return true
}

// NotifySender reports the outcome of the transport. A request on the wire arms the timer, a failed transport leads
// to an immediate retransmission. NotifySender might be called from any goroutine.
func (t *Tutor) NotifySender(failed bool) {
	if t.void || t.IsFinished() {
		return
	}

	t.exec.Execute(func() {
		if t.IsFinished() {
			return
		}

		if failed {
			t.log().Debug("Transport failed, retransmitting")
			t.decide(true)
		} else {
			t.arm()
		}
	})
}

// Confirm this Tutor after its request was acknowledged. It returns true for the call confirming this Tutor, false
// if it was already finished before.
func (t *Tutor) Confirm() bool {
	if !t.finish(Confirmed) {
		return false
	}
	t.cancelTimer()
	return true
}

// Discard this Tutor. Discard is idempotent and might be called from any goroutine; a pending timer becomes a no-op.
func (t *Tutor) Discard() {
	if t.finish(Discarded) {
		t.cancelTimer()
	}
}

func (t *Tutor) cancelTimer() {
	if t.void {
		return
	}

	t.exec.Execute(func() {
		if t.timer != nil {
			t.timer.Cancel()
			t.timer = nil
		}
	})
}

// arm the timer, unless one is already armed. Must be called from the Executor.
func (t *Tutor) arm() {
	if t.timer != nil {
		return
	}

	t.setState(AwaitingResponse)
	t.timer = t.exec.Schedule(t.onTimeout, t.Timeout())
}

// onTimeout is executed by the Executor when the timer fires.
func (t *Tutor) onTimeout() {
	t.timer = nil

	if t.IsFinished() {
		return
	}

	t.decide(false)
}

// decide how to proceed with an unconfirmed request. Must be called from the Executor.
func (t *Tutor) decide(failed bool) {
	switch {
	case t.op.Verified():
		if t.finish(Confirmed) {
			t.log().Debug("Request was verified")
		}

	case t.session.IsClosed():
		if t.finish(Discarded) {
			t.log().Debug("Session is closed, aborting request")
			t.op.Abort()
		}

	case failed, t.session.IsTransportHTTP(), t.cfg.ForceRebind:
		t.retransmit()

	case t.session.IsTransportWS() && !t.session.IsSameStreamConnection(t.stream):
		t.log().WithField("stream", t.stream).Debug("Stream connection changed")
		t.retransmit()

	default:
		if t.cfg.FixedTimeout <= 0 {
			atomic.StoreInt64(&t.timeout, 2*int64(t.Timeout()))
		}
		t.log().Debug("Awaiting response on the same stream connection")
		t.arm()
	}
}

func (t *Tutor) retransmit() {
	if !t.finish(Retransmitting) {
		return
	}

	t.log().Debug("Retransmitting request")
	t.op.Retransmit(t.Timeout())
}
