// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"net/url"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
	"github.com/tlcp-go/tlcp/pkg/transport"
	"github.com/tlcp-go/tlcp/pkg/tutor"
)

// This file contains the session's stream connection handling. Every function here must be called from the session
// goroutine.

// destroyGrace is the time a WebSocket stays open for its destroy request.
const destroyGrace = time.Second

// discardListener ignores every event. It is used for requests whose outcome arrives on the stream connection.
var discardListener = transport.EventListener(func(transport.Event) {})

func (c *Client) connect() {
	if c.wanted {
		return
	}

	c.wanted = true
	c.createSession()
}

func (c *Client) createSession() {
	c.cancelRetry()
	c.state.reset()
	c.sequences.Reset()
	c.dataProg, c.skipProg = 0, 0

	req, err := tlcp.NewCreateSessionRequest(c.cfg.Server, c.cfg.sessionOptions(c.mode))
	if err != nil {
		c.log().WithError(err).Error("Failed to create a create_session request")
		c.wanted = false
		c.setStatus(StatusDisconnected)
		return
	}

	c.setStatus(StatusConnecting)
	c.openStream(req)
}

func (c *Client) recoverSession() {
	req, err := tlcp.NewRecoverSessionRequest(c.cfg.Server, c.state.SessionID(), c.dataProg, c.cfg.sessionOptions(c.mode))
	if err != nil {
		c.log().WithError(err).Error("Failed to create a recovery request")
		c.terminate()
		return
	}

	c.log().WithField("recovery-from", c.dataProg).Info("Recovering session")
	c.openStream(req)
}

// openStream replaces the current stream connection by a new one, carrying a create_session or bind_session request.
func (c *Client) openStream(req *tlcp.Request) {
	c.closeStream()

	var handle transport.Handle
	listener := transport.EventListener(func(e transport.Event) {
		c.exec.Execute(func() { c.onStreamEvent(handle, e) })
	})

	opts := c.cfg.transportOptions()
	if c.mode == ModeWebSocket {
		ws := c.factory.WebSocket.Connect(c.cfg.Server, listener, opts)
		ws.Send(req, "", discardListener)
		handle, c.ws = ws, ws
	} else {
		handle = c.factory.HTTP.Open(req, listener, opts)
	}

	c.stream = handle
	c.state.bindStream(c.mode, handle.ID())

	c.log().WithFields(log.Fields{
		"stream":  handle.ID(),
		"request": req,
	}).Debug("Opened stream connection")
}

// detachStream removes the current stream connection without closing it.
func (c *Client) detachStream() transport.Handle {
	handle := c.stream

	c.stream, c.ws, c.bound = nil, nil, false
	c.state.unbindStream()
	return handle
}

func (c *Client) closeStream() {
	if handle := c.detachStream(); handle != nil {
		handle.Close()
	}
}

func (c *Client) onStreamEvent(handle transport.Handle, e transport.Event) {
	if handle == nil || handle != c.stream {
		return
	}

	switch e.Type {
	case transport.MessageReceived:
		c.onLine(e.Line)

	case transport.Broken:
		c.log().WithError(e.Err).Info("Stream connection broke")
		c.onStreamLost()

	case transport.Closed:
		c.log().Debug("Stream connection was closed")
		c.onStreamLost()
	}
}

func (c *Client) onStreamLost() {
	c.detachStream()
	c.cancelHeartbeat()

	if !c.wanted {
		return
	}

	if c.state.IsOpen() {
		c.setStatus(StatusTryingRecovery)
		c.scheduleRetry(c.recoverSession)
	} else {
		c.setStatus(StatusWillRetry)
		c.scheduleRetry(c.createSession)
	}
}

func (c *Client) scheduleRetry(f func()) {
	c.cancelRetry()
	c.retryTask = c.exec.Schedule(func() {
		c.retryTask = nil
		if c.wanted {
			f()
		}
	}, c.cfg.RetryDelay.Duration())
}

func (c *Client) cancelRetry() {
	if c.retryTask != nil {
		c.retryTask.Cancel()
		c.retryTask = nil
	}
}

func (c *Client) onLine(line string) {
	resp, err := tlcp.ParseLine(line)
	if err != nil {
		c.log().WithError(err).WithField("line", line).Warn("Received an unparsable line")
		return
	}

	if tlcp.IsDataNotification(resp) {
		if c.skipProg > 0 {
			c.skipProg--
			return
		}
		c.dataProg++
	}

	switch resp := resp.(type) {
	case tlcp.ConOK:
		c.onConOK(resp)
	case tlcp.ConErr:
		c.onSessionEnd(resp.Code, resp.Message)
	case tlcp.End:
		c.onSessionEnd(resp.Code, resp.Message)
	case tlcp.ServerError:
		c.onSessionEnd(resp.Code, resp.Message)
	case tlcp.ReqOK:
		c.onReqOK(resp.RequestID)
	case tlcp.ReqErr:
		c.onReqErr(resp)
	case tlcp.MsgDone:
		c.onMsgDone(resp)
	case tlcp.MsgFail:
		c.onMsgFail(resp)
	case tlcp.Loop:
		c.onLoop()
	case tlcp.Prog:
		c.onProg(resp)
	case tlcp.Keepalive:
		// Keepalives only prove the stream connection's liveness, as checked by the transport's read timeout.
	case tlcp.Data:
		c.clientListeners.DispatchEvent(func(l ClientListener) {
			if dl, ok := l.(DataListener); ok {
				dl.OnData(resp.Line)
			}
		})
	}
}

func (c *Client) onConOK(resp tlcp.ConOK) {
	c.state.openSession(resp.SessionID, resp.ControlLink)
	c.bound = true

	c.cancelRetry()
	c.setStatus(connectedStatus(c.mode))
	c.scheduleHeartbeat()
	c.flushQueue()
}

// onLoop rebinds the session, as the server has finished the current stream connection.
func (c *Client) onLoop() {
	if !c.state.IsOpen() {
		return
	}

	req, err := tlcp.NewBindSessionRequest(c.cfg.Server, c.state.SessionID(), c.cfg.sessionOptions(c.mode))
	if err != nil {
		c.log().WithError(err).Error("Failed to create a bind_session request")
		c.terminate()
		return
	}

	c.cancelHeartbeat()

	// A WebSocket might be reused for the next binding.
	if c.mode == ModeWebSocket && c.ws != nil {
		c.bound = false
		c.ws.Send(req, "", discardListener)
		return
	}
	c.openStream(req)
}

// onProg aligns the data progressive after a recovery. Notifications already received are skipped.
func (c *Client) onProg(resp tlcp.Prog) {
	switch {
	case resp.Prog < c.dataProg:
		c.skipProg = c.dataProg - resp.Prog
	case resp.Prog > c.dataProg:
		c.log().WithFields(log.Fields{
			"expected": c.dataProg,
			"server":   resp.Prog,
		}).Warn("Data notifications were lost during recovery")
		c.dataProg = resp.Prog
	}
}

func (c *Client) onSessionEnd(code int, message string) {
	c.log().WithFields(log.Fields{
		"code":    code,
		"message": message,
	}).Warn("Session was ended by the server")

	c.clientListeners.DispatchEvent(func(l ClientListener) { l.OnServerError(code, message) })

	c.wanted = false
	c.terminate()
}

func (c *Client) switchTransport(mode Mode) {
	if c.mode == mode {
		return
	}

	c.log().WithFields(log.Fields{
		"from": c.mode,
		"to":   mode,
	}).Info("Switching transport")
	c.mode = mode

	if !c.wanted {
		return
	} else if !c.state.IsOpen() {
		c.createSession()
		return
	}

	req, err := tlcp.NewBindSessionRequest(c.cfg.Server, c.state.SessionID(), c.cfg.sessionOptions(mode))
	if err != nil {
		c.log().WithError(err).Error("Failed to create a bind_session request")
		c.terminate()
		return
	}

	c.cancelHeartbeat()
	c.openStream(req)
}

func (c *Client) disconnect() {
	c.wanted = false

	if c.bound && c.state.IsOpen() {
		if req, err := tlcp.NewDestroyRequest(c.controlServer(), c.state.SessionID(), "api"); err != nil {
			c.log().WithError(err).Warn("Failed to create a destroy request")
		} else if c.ws != nil {
			ws := c.ws
			c.detachStream()

			ws.Send(req, c.state.SessionID(), transport.EventListener(func(transport.Event) { ws.Close() }))
			time.AfterFunc(destroyGrace, ws.Close)
		} else {
			c.factory.HTTP.Open(req, discardListener, c.cfg.transportOptions())
		}
	}

	c.terminate()
}

// terminate the session, discarding all pending requests.
func (c *Client) terminate() {
	c.cancelRetry()
	c.cancelHeartbeat()
	c.closeStream()
	c.state.closeSession()

	for id, p := range c.pending {
		delete(c.pending, id)
		p.tutor.Discard()
	}
	for _, p := range c.queue {
		if p.message != nil {
			c.abortMessage(p.message)
		}
	}
	c.queue = nil

	for _, pm := range c.messages {
		c.abortMessage(pm)
	}

	c.setStatus(StatusDisconnected)
}

func (c *Client) scheduleHeartbeat() {
	c.cancelHeartbeat()

	if interval := c.cfg.HeartbeatInterval.Duration(); interval > 0 {
		c.heartbeatTask = c.exec.Schedule(c.heartbeat, interval)
	}
}

func (c *Client) cancelHeartbeat() {
	if c.heartbeatTask != nil {
		c.heartbeatTask.Cancel()
		c.heartbeatTask = nil
	}
}

func (c *Client) heartbeat() {
	c.heartbeatTask = nil
	if !c.bound {
		return
	}

	req, err := tlcp.NewHeartbeatRequest(c.controlServer(), c.state.SessionID())
	if err != nil {
		c.log().WithError(err).Warn("Failed to create a heartbeat request")
		return
	}

	c.log().Debug("Sending heartbeat")
	c.send(req, c.requestListener(0, tutor.NewVoid()), false)
	c.scheduleHeartbeat()
}

// controlServer is the address for control requests, which might be redirected by the server's control link.
func (c *Client) controlServer() string {
	link := c.state.ControlLink()
	if link == "" {
		return c.cfg.Server
	}

	u, err := url.Parse(c.cfg.Server)
	if err != nil {
		return c.cfg.Server
	}
	return u.Scheme + "://" + link
}
