// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
)

// ErrClosed is reported for requests sent on an already closed connection.
var ErrClosed = errors.New("connection is closed")

// Listener receives a connection's events.
type Listener interface {
	OnOpen()
	OnMessage(line string)
	OnBroken(err error)
	OnClosed()
}

// StreamID identifies a single physical connection. The zero value means no connection.
type StreamID uint64

var lastStreamID uint64

func nextStreamID() StreamID {
	return StreamID(atomic.AddUint64(&lastStreamID, 1))
}

func (id StreamID) String() string {
	return fmt.Sprintf("stream#%d", uint64(id))
}

// Handle is an opened connection attempt.
type Handle interface {
	// ID of this connection.
	ID() StreamID

	// Close this connection and suppress all further events. Close is idempotent and safe for concurrent use.
	Close()
}

// WebSocket is a Handle able to carry several requests.
type WebSocket interface {
	Handle

	// Send a request over this WebSocket. The session ID is omitted if it equals defaultSession, the session bound to
	// this WebSocket. A successful write is reported by listener's OnOpen, a failed one by OnBroken. Responses are
	// delivered to the WebSocket's own Listener.
	Send(req *tlcp.Request, defaultSession string, listener Listener)
}

// HTTPProvider opens HTTP requests.
type HTTPProvider interface {
	Open(req *tlcp.Request, listener Listener, opts Options) Handle
}

// WebSocketProvider opens WebSockets.
type WebSocketProvider interface {
	Connect(server string, listener Listener, opts Options) WebSocket
}

// Options for a single connection.
type Options struct {
	// Headers are added to the HTTP request or the WebSocket handshake.
	Headers http.Header

	// Proxy to connect through; nil falls back to the environment's proxy settings.
	Proxy *url.URL

	// ConnectTimeout limits establishing the connection, zero uses a default.
	ConnectTimeout time.Duration

	// ReadTimeout limits the idle time between two received lines, zero disables it.
	ReadTimeout time.Duration
}

// guard serializes a connection's events and suppresses them once the connection was closed or terminated.
type guard struct {
	id       StreamID
	listener Listener

	mutex      sync.Mutex
	opened     bool
	terminated bool

	closed uint32
}

func newGuard(listener Listener) *guard {
	return &guard{
		id:       nextStreamID(),
		listener: listener,
	}
}

func (g *guard) isClosed() bool {
	return atomic.LoadUint32(&g.closed) != 0
}

// close marks this guard as closed; true is returned for the first call.
func (g *guard) close() bool {
	return atomic.CompareAndSwapUint32(&g.closed, 0, 1)
}

func (g *guard) open() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.isClosed() || g.opened || g.terminated {
		return
	}
	g.opened = true
	g.listener.OnOpen()
}

func (g *guard) message(line string) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.isClosed() || g.terminated {
		return
	}
	g.listener.OnMessage(line)
}

func (g *guard) broken(err error) {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.isClosed() || g.terminated {
		return
	}
	g.terminated = true
	g.listener.OnBroken(err)
}

func (g *guard) finished() {
	g.mutex.Lock()
	defer g.mutex.Unlock()

	if g.isClosed() || g.terminated {
		return
	}
	g.terminated = true
	g.listener.OnClosed()
}
