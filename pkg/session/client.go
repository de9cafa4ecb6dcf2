// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-multierror"
	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/events"
	"github.com/tlcp-go/tlcp/pkg/scheduler"
	"github.com/tlcp-go/tlcp/pkg/tlcp"
	"github.com/tlcp-go/tlcp/pkg/transport"
)

// ErrClientClosed is returned for operations on a closed Client.
var ErrClientClosed = errors.New("client is closed")

// closeTimeout limits waiting for the session goroutine while closing a Client.
const closeTimeout = 5 * time.Second

// Option to customize a Client.
type Option func(*Client)

// WithMultiplexer runs the Client on a shared scheduler.Multiplexer. Otherwise, the Client starts its own
// scheduler.SingleThread.
func WithMultiplexer(mux scheduler.Multiplexer) Option {
	return func(c *Client) {
		c.mux = mux
	}
}

// WithTransportFactory sets the transports to be used instead of transport.DefaultFactory.
func WithTransportFactory(factory *transport.Factory) Option {
	return func(c *Client) {
		c.factory = factory
	}
}

// Client is a single TLCP session's engine.
type Client struct {
	cfg     Config
	factory *transport.Factory

	mux    scheduler.Multiplexer
	ownMux bool
	src    *scheduler.Source
	exec   scheduler.Executor

	state     *State
	lastSubID int64

	clientListeners  *events.Dispatcher[ClientListener]
	messageListeners *events.Dispatcher[MessageListener]

	closed uint32

	// The following fields are only accessed by the session goroutine.
	mode          Mode
	wanted        bool
	stream        transport.Handle
	ws            transport.WebSocket
	bound         bool
	sequences     *tlcp.Sequences
	dataProg      int64
	skipProg      int64
	retryTask     *scheduler.PendingTask
	heartbeatTask *scheduler.PendingTask

	pending  map[int64]*pendingRequest
	queue    []*pendingRequest
	messages map[messageKey]*pendingMessage
}

// NewClient creates a Client for the Config. The session is not started before Connect is called.
func NewClient(cfg Config, opts ...Option) (*Client, error) {
	cfg = cfg.withDefaults()
	if err := cfg.CheckValid(); err != nil {
		return nil, err
	}

	c := &Client{
		cfg:       cfg,
		mode:      cfg.Transport,
		state:     newState(),
		sequences: tlcp.NewSequences(),
		pending:   make(map[int64]*pendingRequest),
		messages:  make(map[messageKey]*pendingMessage),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.mux == nil {
		c.mux = scheduler.NewSingleThread("session")
		c.ownMux = true
	}
	if c.factory == nil {
		c.factory = transport.DefaultFactory()
	}

	c.src = scheduler.NewSource("session")
	c.exec = scheduler.Bind(c.mux, c.src)

	c.clientListeners = events.NewDispatcher[ClientListener](fmt.Sprintf("%v-client", c.src))
	c.messageListeners = events.NewDispatcher[MessageListener](fmt.Sprintf("%v-messages", c.src))

	return c, nil
}

func (c *Client) log() *log.Entry {
	return log.WithFields(log.Fields{
		"session": c.src,
		"id":      c.state.SessionID(),
	})
}

func (c *Client) isClosed() bool {
	return atomic.LoadUint32(&c.closed) != 0
}

// State of the server session.
func (c *Client) State() *State {
	return c.state
}

// Status of this Client.
func (c *Client) Status() Status {
	return c.state.Status()
}

// AddListener registers a ClientListener. Its OnListenStart is its first callback.
func (c *Client) AddListener(listener ClientListener) error {
	if c.isClosed() {
		return ErrClientClosed
	}
	return c.clientListeners.AddListener(listener, func(l ClientListener) { l.OnListenStart() })
}

// RemoveListener unregisters a ClientListener. Its OnListenEnd is its last callback.
func (c *Client) RemoveListener(listener ClientListener) error {
	return c.clientListeners.RemoveListener(listener, func(l ClientListener) { l.OnListenEnd() })
}

// Connect starts the session. Calling Connect on a connecting or connected Client does nothing.
func (c *Client) Connect() error {
	if c.isClosed() {
		return ErrClientClosed
	}

	c.exec.Execute(c.connect)
	return nil
}

// Disconnect destroys the session. Pending requests are aborted, while requests issued afterwards are queued for
// the next session.
func (c *Client) Disconnect() error {
	if c.isClosed() {
		return ErrClientClosed
	}

	c.exec.Execute(c.disconnect)
	return nil
}

// submit a request, built for the session it will be sent on.
func (c *Client) submit(build func(server, session string) (*tlcp.Request, error)) {
	c.exec.Execute(func() {
		c.enqueue(&pendingRequest{client: c, build: build})
	})
}

// Subscribe adds a subscription and returns its ID. A zero SubID is replaced by the next free ID.
func (c *Client) Subscribe(sub tlcp.Subscription) (int64, error) {
	if c.isClosed() {
		return 0, ErrClientClosed
	}

	if sub.SubID == 0 {
		sub.SubID = atomic.AddInt64(&c.lastSubID, 1)
	}
	if err := sub.CheckValid(); err != nil {
		return 0, err
	}

	c.submit(func(server, session string) (*tlcp.Request, error) {
		return tlcp.NewSubscribeRequest(server, session, sub)
	})
	return sub.SubID, nil
}

// Unsubscribe deletes a subscription.
func (c *Client) Unsubscribe(subID int64) error {
	if c.isClosed() {
		return ErrClientClosed
	} else if subID <= 0 {
		return fmt.Errorf("subscription ID %d is not positive", subID)
	}

	c.submit(func(server, session string) (*tlcp.Request, error) {
		return tlcp.NewUnsubscribeRequest(server, session, subID)
	})
	return nil
}

// ChangeFrequency requests another maximum update frequency for a subscription; tlcp.Unlimited and
// tlcp.Unfiltered are accepted.
func (c *Client) ChangeFrequency(subID int64, maxFrequency float64) error {
	if c.isClosed() {
		return ErrClientClosed
	}

	var errs error
	if subID <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("subscription ID %d is not positive", subID))
	}
	if maxFrequency < 0 && maxFrequency != tlcp.Unfiltered {
		errs = multierror.Append(errs, fmt.Errorf("frequency %v is invalid", maxFrequency))
	}
	if errs != nil {
		return errs
	}

	c.submit(func(server, session string) (*tlcp.Request, error) {
		return tlcp.NewReconfigureRequest(server, session, subID, maxFrequency)
	})
	return nil
}

// ChangeBandwidth requests another maximum bandwidth for the session; tlcp.Unlimited is accepted.
func (c *Client) ChangeBandwidth(maxBandwidth float64) error {
	if c.isClosed() {
		return ErrClientClosed
	} else if maxBandwidth < 0 {
		return fmt.Errorf("bandwidth %v is negative", maxBandwidth)
	}

	c.submit(func(server, session string) (*tlcp.Request, error) {
		return tlcp.NewConstrainRequest(server, session, maxBandwidth)
	})
	return nil
}

// SendMessage to the server. The message's progressive is assigned by the Client when the message is first sent
// within a session, following the order of SendMessage calls. If a listener is given, the message's outcome is
// requested and reported to it.
func (c *Client) SendMessage(m tlcp.Message, listener MessageListener) error {
	if c.isClosed() {
		return ErrClientClosed
	}

	if m.Sequence == "" {
		m.Sequence = tlcp.UnorderedMessages
	}
	if listener != nil {
		m.Outcome = true
	}

	check := m
	check.Prog = 1
	if err := check.CheckValid(); err != nil {
		return err
	}

	c.exec.Execute(func() {
		p := &pendingRequest{client: c}
		if listener != nil {
			p.message = &pendingMessage{message: m, listener: listener}
		}

		p.build = func(server, session string) (*tlcp.Request, error) {
			m.Prog = c.sequences.Next(m.Sequence)
			if pm := p.message; pm != nil {
				delete(c.messages, pm.key())
				pm.message.Prog = m.Prog
				c.messages[pm.key()] = pm
			}

			mr, err := tlcp.NewMessageRequest(server, session, m)
			if err != nil {
				return nil, err
			}
			return mr.Request, nil
		}

		c.enqueue(p)
	})
	return nil
}

// ForceRebind asks the server to close the current stream connection, such that the Client rebinds the session.
// The request is always sent over HTTP.
func (c *Client) ForceRebind(cause string) error {
	if c.isClosed() {
		return ErrClientClosed
	}

	c.exec.Execute(func() {
		c.enqueue(&pendingRequest{
			client:      c,
			forceRebind: true,
			build: func(server, session string) (*tlcp.Request, error) {
				return tlcp.NewForceRebindRequest(server, session, cause, -1)
			},
		})
	})
	return nil
}

// SwitchTransport binds the session to a new stream connection of another transport.
func (c *Client) SwitchTransport(mode Mode) error {
	if c.isClosed() {
		return ErrClientClosed
	} else if !mode.valid() {
		return fmt.Errorf("unknown transport %q", mode)
	}

	c.exec.Execute(func() { c.switchTransport(mode) })
	return nil
}

// Close this Client, destroying its session. Each listener receives its end event, the Client cannot be used
// afterwards.
func (c *Client) Close() (errs error) {
	if !atomic.CompareAndSwapUint32(&c.closed, 0, 1) {
		return ErrClientClosed
	}

	done := make(chan struct{})
	c.exec.Execute(func() {
		c.disconnect()
		close(done)
	})

	select {
	case <-done:
	case <-time.After(closeTimeout):
		c.log().Warn("Disconnecting timed out while closing")
	}

	// Deliver all pending events before removing the listeners, which would drop them.
	c.clientListeners.Await()
	for _, l := range c.clientListeners.Listeners() {
		if err := c.RemoveListener(l); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	c.clientListeners.Await()
	c.messageListeners.Await()

	if err := c.clientListeners.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if err := c.messageListeners.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if c.ownMux {
		if err := c.mux.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}

	c.log().Info("Client was closed")
	return
}

// setStatus and inform the listeners on a change.
func (c *Client) setStatus(status Status) {
	if !c.state.setStatus(status) {
		return
	}

	c.log().WithField("status", status).Info("Session status changed")
	c.clientListeners.DispatchEvent(func(l ClientListener) { l.OnStatusChange(status) })
}
