// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
)

// ErrSendQueueFull is reported for requests exceeding a WebSocket's outgoing queue.
var ErrSendQueueFull = errors.New("outgoing queue is full")

const sendQueueSize = 64

// WebSocketTransport establishes WebSockets, speaking the TLCP subprotocol.
type WebSocketTransport struct {
	cookies *CookieStore
}

// NewWebSocketTransport creates a WebSocketTransport sharing the given CookieStore.
func NewWebSocketTransport(cookies *CookieStore) *WebSocketTransport {
	return &WebSocketTransport{cookies: cookies}
}

func (wt *WebSocketTransport) dialer(opts Options) *websocket.Dialer {
	handshakeTimeout := opts.ConnectTimeout
	if handshakeTimeout <= 0 {
		handshakeTimeout = defaultConnectTimeout
	}

	return &websocket.Dialer{
		Proxy: func(req *http.Request) (*url.URL, error) {
			return proxyFor(opts, req)
		},
		NetDialContext:    dialContext,
		HandshakeTimeout:  handshakeTimeout,
		Subprotocols:      []string{tlcp.WebSocketSubprotocol},
		Jar:               wt.cookies,
		EnableCompression: false,
	}
}

// Connect to the server's WebSocket endpoint. Connecting happens on its own goroutine; Connect never blocks.
// Requests might be sent right away, they are queued until the WebSocket is established.
func (wt *WebSocketTransport) Connect(server string, listener Listener, opts Options) WebSocket {
	ctx, cancel := context.WithCancel(withOptions(context.Background(), opts))

	ws := &webSocket{
		guard:    newGuard(listener),
		cancel:   cancel,
		outgoing: make(chan outgoingRequest, sendQueueSize),
		stopSyn:  make(chan struct{}),
	}

	go ws.run(ctx, wt.dialer(opts), server, opts)

	return ws
}

type outgoingRequest struct {
	frame    string
	listener Listener
}

// webSocket is a single WebSocket connection with one reading and one writing goroutine.
type webSocket struct {
	*guard

	cancel context.CancelFunc

	connMutex sync.Mutex
	conn      *websocket.Conn

	outgoing chan outgoingRequest

	stopSyn  chan struct{}
	stopOnce sync.Once
}

// ID of this WebSocket.
func (ws *webSocket) ID() StreamID {
	return ws.id
}

func (ws *webSocket) logger() *log.Entry {
	return log.WithField("stream", ws.id)
}

// Send a request, see WebSocket.
func (ws *webSocket) Send(req *tlcp.Request, defaultSession string, listener Listener) {
	if ws.isClosed() {
		return
	}

	select {
	case <-ws.stopSyn:
		go ws.reportSend(listener, ErrClosed)
		return
	default:
	}

	select {
	case ws.outgoing <- outgoingRequest{frame: req.Frame(defaultSession), listener: listener}:
		// The WebSocket might have terminated after the check above.
		select {
		case <-ws.stopSyn:
			ws.drain(ErrClosed)
		default:
		}
	default:
		ws.logger().WithField("request", req).Warn("WebSocket's outgoing queue is full")
		go ws.reportSend(listener, ErrSendQueueFull)
	}
}

// reportSend informs a request's listener, unless this WebSocket was closed.
func (ws *webSocket) reportSend(listener Listener, err error) {
	if ws.isClosed() {
		return
	}

	if err != nil {
		listener.OnBroken(err)
	} else {
		listener.OnOpen()
	}
}

// Close this WebSocket.
func (ws *webSocket) Close() {
	if !ws.close() {
		return
	}

	ws.cancel()
	ws.stop()

	ws.connMutex.Lock()
	conn := ws.conn
	ws.connMutex.Unlock()

	if conn != nil {
		closeMsg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		_ = conn.WriteControl(websocket.CloseMessage, closeMsg, time.Now().Add(time.Second))
		_ = conn.Close()
	}

	ws.logger().Debug("WebSocket was closed")
}

func (ws *webSocket) stop() {
	ws.stopOnce.Do(func() { close(ws.stopSyn) })
}

func (ws *webSocket) run(ctx context.Context, dialer *websocket.Dialer, server string, opts Options) {
	defer ws.cancel()

	wsURL := tlcp.WebSocketURL(server)
	logger := ws.logger().WithField("url", wsURL)

	conn, _, err := dialer.DialContext(ctx, wsURL, opts.Headers)
	if err != nil {
		logger.WithError(err).Debug("Dialing WebSocket failed")
		ws.terminate(err)
		return
	}

	ws.connMutex.Lock()
	ws.conn = conn
	ws.connMutex.Unlock()

	// Close might have been called while dialing, missing this connection.
	if ws.isClosed() {
		_ = conn.Close()
		return
	}

	logger.Debug("WebSocket established")
	ws.open()

	go ws.handleOut(conn)
	ws.handleIn(conn, opts)
}

func (ws *webSocket) handleIn(conn *websocket.Conn, opts Options) {
	for {
		if opts.ReadTimeout > 0 {
			_ = conn.SetReadDeadline(time.Now().Add(opts.ReadTimeout))
		}

		mt, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				ws.terminate(nil)
			} else {
				ws.terminate(err)
			}
			_ = conn.Close()
			return
		} else if mt != websocket.TextMessage {
			ws.terminate(fmt.Errorf("expected text message instead of type %d", mt))
			_ = conn.Close()
			return
		}

		for _, line := range splitLines(string(data)) {
			ws.message(line)
		}
	}
}

func (ws *webSocket) handleOut(conn *websocket.Conn) {
	for {
		select {
		case <-ws.stopSyn:
			return

		case out := <-ws.outgoing:
			if err := conn.WriteMessage(websocket.TextMessage, []byte(out.frame)); err != nil {
				ws.logger().WithError(err).Debug("Writing to WebSocket failed")
				ws.reportSend(out.listener, err)
				ws.terminate(err)
				_ = conn.Close()
				return
			}
			ws.reportSend(out.listener, nil)
		}
	}
}

// terminate this WebSocket after a failure or a closing server. A nil error indicates a regular close. All queued
// requests are reported as broken.
func (ws *webSocket) terminate(err error) {
	if err != nil {
		ws.broken(err)
	} else {
		ws.finished()
	}

	ws.stop()

	if err == nil {
		err = ErrClosed
	}
	ws.drain(err)
}

// drain the outgoing queue, reporting each request as broken.
func (ws *webSocket) drain(err error) {
	for {
		select {
		case out := <-ws.outgoing:
			go ws.reportSend(out.listener, err)
		default:
			return
		}
	}
}

// splitLines of a WebSocket frame, which might carry multiple CRLF terminated lines.
func splitLines(frame string) []string {
	return strings.FieldsFunc(frame, func(r rune) bool {
		return r == '\r' || r == '\n'
	})
}
