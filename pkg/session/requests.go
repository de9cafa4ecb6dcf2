// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
	"github.com/tlcp-go/tlcp/pkg/transport"
	"github.com/tlcp-go/tlcp/pkg/tutor"
)

// This file contains the handling of control requests and messages. Every function here must be called from the
// session goroutine.

// Codes of MSGFAIL indicating a message discarded by the server.
const (
	msgFailDiscarded        = 38
	msgFailDiscardedTimeout = 39
)

type messageKey struct {
	sequence string
	prog     int64
}

// pendingMessage is a message whose outcome is awaited by its listener.
type pendingMessage struct {
	message  tlcp.Message
	listener MessageListener
	sent     bool
	done     bool
}

func (pm *pendingMessage) key() messageKey {
	return messageKey{sequence: pm.message.Sequence, prog: pm.message.Prog}
}

// pendingRequest is a control request or message until its acknowledgement. It is the tutor.Operation of its
// current transmission's Tutor.
type pendingRequest struct {
	client *Client
	build  func(server, session string) (*tlcp.Request, error)

	req         *tlcp.Request
	message     *pendingMessage
	forceRebind bool

	tutor   *tutor.Tutor
	timeout time.Duration
	stream  transport.StreamID
}

// Verified checks if the request's effect was observed without its acknowledgement.
func (p *pendingRequest) Verified() bool {
	if p.message != nil && p.message.done {
		return true
	}
	return p.forceRebind && !p.client.state.IsSameStreamConnection(p.stream)
}

// Retransmit this request with a new request ID.
func (p *pendingRequest) Retransmit(timeout time.Duration) {
	c := p.client

	delete(c.pending, p.req.ID())
	p.timeout = timeout
	p.req = p.req.Renew()

	c.log().WithFields(log.Fields{
		"request": p.req,
		"timeout": timeout,
	}).Debug("Retransmitting request")
	c.enqueue(p)
}

// Abort this request, as its session is gone.
func (p *pendingRequest) Abort() {
	c := p.client

	delete(c.pending, p.req.ID())
	if p.message != nil {
		c.abortMessage(p.message)
	}
}

// enqueue a request to be sent now or after the next CONOK.
func (c *Client) enqueue(p *pendingRequest) {
	if c.bound && c.stream != nil {
		c.transmit(p)
	} else {
		c.queue = append(c.queue, p)
	}
}

func (c *Client) flushQueue() {
	queue := c.queue
	c.queue = nil

	for _, p := range queue {
		c.enqueue(p)
	}
}

func (c *Client) transmit(p *pendingRequest) {
	session := c.state.SessionID()
	if p.req == nil || p.req.Session() != session {
		req, err := p.build(c.controlServer(), session)
		if err != nil {
			c.log().WithError(err).Warn("Dropping request")
			if p.message != nil {
				c.abortMessage(p.message)
			}
			return
		}
		p.req = req
	}

	if p.message != nil {
		p.message.sent = true
	}

	if !p.req.NeedsAck() {
		c.send(p.req, discardListener, false)
		return
	}

	cfg := tutor.Config{MinTimeout: c.cfg.RequestTimeout.Duration()}
	if p.forceRebind {
		cfg.FixedTimeout = c.cfg.ForceRebindTimeout.Duration()
		cfg.ForceRebind = true
	}

	p.stream = c.state.StreamConnection()
	p.tutor = tutor.New(c.exec, c.state, p, p.timeout, cfg)
	c.pending[p.req.ID()] = p

	c.send(p.req, c.requestListener(p.req.ID(), p.tutor), p.forceRebind)
}

// send a request over the WebSocket or, if there is none or overHTTP is set, as a HTTP request.
func (c *Client) send(req *tlcp.Request, listener transport.Listener, overHTTP bool) {
	if !overHTTP && c.ws != nil {
		c.ws.Send(req, c.state.SessionID(), listener)
		return
	}
	c.factory.HTTP.Open(req, listener, c.cfg.transportOptions())
}

// requestListener informs a Tutor about its request's transport. Responses of HTTP requests are handled as well.
func (c *Client) requestListener(id int64, tut *tutor.Tutor) transport.Listener {
	return transport.EventListener(func(e transport.Event) {
		switch e.Type {
		case transport.Opened:
			tut.NotifySender(false)

		case transport.MessageReceived:
			line := e.Line
			c.exec.Execute(func() { c.onResponseLine(id, line) })

		case transport.Broken, transport.Closed:
			// A response already received was queued before, thus a confirmed Tutor ignores this.
			tut.NotifySender(true)
		}
	})
}

// onResponseLine handles a line of a HTTP request's response.
func (c *Client) onResponseLine(id int64, line string) {
	resp, err := tlcp.ParseLine(line)
	if err != nil {
		c.log().WithError(err).WithField("line", line).Warn("Received an unparsable response")
		return
	}

	switch resp := resp.(type) {
	case tlcp.ReqOK:
		c.onReqOK(resp.RequestID)
	case tlcp.ReqErr:
		c.onReqErr(resp)
	case tlcp.ServerError:
		if id != 0 {
			c.onReqErr(tlcp.ReqErr{RequestID: id, Code: resp.Code, Message: resp.Message})
		}
	default:
		c.log().WithField("line", line).Debug("Ignoring response line")
	}
}

func (c *Client) onReqOK(id int64) {
	p, ok := c.pending[id]
	if !ok {
		return
	}

	delete(c.pending, id)
	if p.tutor.Confirm() {
		c.log().WithField("request", p.req).Debug("Request was acknowledged")
	}
}

func (c *Client) onReqErr(resp tlcp.ReqErr) {
	p, ok := c.pending[resp.RequestID]
	if !ok {
		return
	}

	delete(c.pending, resp.RequestID)
	if !p.tutor.Confirm() {
		return
	}

	logger := c.log().WithFields(log.Fields{
		"request": p.req,
		"code":    resp.Code,
		"message": resp.Message,
	})

	switch {
	case p.message != nil:
		logger.Info("Message was refused")
		pm := p.message
		c.resolveMessage(pm, func(l MessageListener) { l.OnError(pm.message.Text, resp.Code, resp.Message) })

	case p.req.Name() == tlcp.NameMessage:
		logger.Info("Message without listener was refused")

	default:
		logger.Info("Request was refused")
		req := p.req.String()
		c.clientListeners.DispatchEvent(func(l ClientListener) { l.OnRequestError(req, resp.Code, resp.Message) })
	}
}

func (c *Client) onMsgDone(resp tlcp.MsgDone) {
	pm, ok := c.messages[messageKey{sequence: resp.Sequence, prog: resp.Prog}]
	if !ok {
		return
	}

	c.resolveMessage(pm, func(l MessageListener) { l.OnProcessed(pm.message.Text, resp.Response) })
}

func (c *Client) onMsgFail(resp tlcp.MsgFail) {
	pm, ok := c.messages[messageKey{sequence: resp.Sequence, prog: resp.Prog}]
	if !ok {
		return
	}

	text := pm.message.Text
	switch {
	case resp.Code == msgFailDiscarded || resp.Code == msgFailDiscardedTimeout:
		c.resolveMessage(pm, func(l MessageListener) { l.OnDiscarded(text) })
	case resp.Code <= 0:
		c.resolveMessage(pm, func(l MessageListener) { l.OnDeny(text, resp.Code, resp.Message) })
	default:
		c.resolveMessage(pm, func(l MessageListener) { l.OnError(text, resp.Code, resp.Message) })
	}
}

// resolveMessage delivers a message's final outcome.
func (c *Client) resolveMessage(pm *pendingMessage, event func(MessageListener)) {
	if pm.done {
		return
	}

	pm.done = true
	delete(c.messages, pm.key())

	if err := c.messageListeners.Post(pm.listener, event); err != nil {
		c.log().WithError(err).Warn("Failed to inform message listener")
	}
}

func (c *Client) abortMessage(pm *pendingMessage) {
	sent := pm.sent
	c.resolveMessage(pm, func(l MessageListener) { l.OnAbort(pm.message.Text, sent) })
}
