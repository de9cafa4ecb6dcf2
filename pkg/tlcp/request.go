// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"fmt"
	"strings"
	"sync/atomic"
)

const (
	// ProtocolVersion is the TLCP version spoken by this client.
	ProtocolVersion = "TLCP-2.5.0"

	// WebSocketSubprotocol must be requested while upgrading to a WebSocket.
	WebSocketSubprotocol = ProtocolVersion + ".lightstreamer.com"

	// basePath is the server's path prefix for both HTTP requests and the WebSocket endpoint.
	basePath = "/lightstreamer"
)

// Request names, used as the HTTP resource name and as the first line of a WebSocket frame.
const (
	NameCreateSession = "create_session"
	NameBindSession   = "bind_session"
	NameControl       = "control"
	NameMessage       = "msg"
	NameHeartbeat     = "heartbeat"
)

// lastRequestID is the global request ID counter. IDs are never reused within a process.
var lastRequestID int64

func nextRequestID() int64 {
	return atomic.AddInt64(&lastRequestID, 1)
}

// Request is an outgoing TLCP request.
//
// A Request is immutable after its construction. Requests which must be acknowledged by the server carry a unique
// request ID; a retransmission is created by Renew, which assigns a fresh ID.
type Request struct {
	id      int64
	name    string
	server  string
	session string

	params   Params
	unquoted *param
}

func newRequest(name, server, session string, acknowledged bool) *Request {
	r := &Request{
		name:    name,
		server:  strings.TrimSuffix(server, "/"),
		session: session,
	}
	if acknowledged {
		r.id = nextRequestID()
	}
	return r
}

// ID of this Request or zero if no acknowledgement is expected.
func (r *Request) ID() int64 {
	return r.id
}

// NeedsAck is true for requests carrying a request ID.
func (r *Request) NeedsAck() bool {
	return r.id != 0
}

// Name of this Request, e.g., "control".
func (r *Request) Name() string {
	return r.name
}

// Server is the target server's base address.
func (r *Request) Server() string {
	return r.server
}

// Session is this Request's session ID, might be empty for session creations.
func (r *Request) Session() string {
	return r.session
}

// Param returns the first value of a parameter.
func (r *Request) Param(key string) (string, bool) {
	if r.unquoted != nil && r.unquoted.key == key {
		return r.unquoted.value, true
	}
	return r.params.Get(key)
}

// setUnquoted moves a parameter to the unquoted tail of the body.
func (r *Request) setUnquoted(key, value string) {
	r.unquoted = &param{key: key, value: value}
}

// Renew creates a copy of this Request with a fresh request ID, as required for a retransmission.
func (r *Request) Renew() *Request {
	cpy := &Request{
		name:    r.name,
		server:  r.server,
		session: r.session,
		params:  r.params.clone(),
	}
	if r.unquoted != nil {
		uq := *r.unquoted
		cpy.unquoted = &uq
	}
	if r.id != 0 {
		cpy.id = nextRequestID()
	}
	return cpy
}

// Encode the request body.
//
// The session ID is only included if it differs from defaultSession, which is the session already bound to the
// underlying connection. An empty body is replaced by a single CRLF.
func (r *Request) Encode(defaultSession string) string {
	var b strings.Builder

	if r.id != 0 {
		writeParam(&b, "LS_reqId", FormatInt(r.id))
	}
	r.params.writeTo(&b)
	if r.session != "" && r.session != defaultSession {
		writeParam(&b, "LS_session", r.session)
	}

	if r.unquoted != nil {
		b.WriteString(r.unquoted.key)
		b.WriteByte('=')
		b.WriteString(r.unquoted.value)

		rest := b.String()
		return fmt.Sprintf("LS_unq=%d&%s", len(rest), rest)
	}

	if b.Len() == 0 {
		return emptyBody
	}
	return b.String()
}

// HTTPURL is the URL to POST this Request's body to.
func (r *Request) HTTPURL() string {
	return fmt.Sprintf("%s%s/%s.txt?LS_protocol=%s", r.server, basePath, r.name, ProtocolVersion)
}

// WebSocketURL is the address of the server's WebSocket endpoint, derived from the server's HTTP address.
func WebSocketURL(server string) string {
	server = strings.TrimSuffix(server, "/")
	switch {
	case strings.HasPrefix(server, "https://"):
		server = "wss://" + strings.TrimPrefix(server, "https://")
	case strings.HasPrefix(server, "http://"):
		server = "ws://" + strings.TrimPrefix(server, "http://")
	}
	return server + basePath
}

// Frame renders this Request as a WebSocket text frame, its name followed by the body.
func (r *Request) Frame(defaultSession string) string {
	return r.name + "\r\n" + r.Encode(defaultSession)
}

func (r *Request) String() string {
	var b strings.Builder

	_, _ = fmt.Fprintf(&b, "%s(", r.name)
	if r.id != 0 {
		_, _ = fmt.Fprintf(&b, "id=%d, ", r.id)
	}
	if op, ok := r.params.Get("LS_op"); ok {
		_, _ = fmt.Fprintf(&b, "op=%s, ", op)
	}
	_, _ = fmt.Fprintf(&b, "session=%s)", r.session)

	return b.String()
}
