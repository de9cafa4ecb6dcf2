// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"sync"

	"github.com/tlcp-go/tlcp/pkg/transport"
)

// Status of a Client, as reported to its ClientListeners.
type Status string

const (
	StatusDisconnected     Status = "DISCONNECTED"
	StatusConnecting       Status = "CONNECTING"
	StatusConnectedWS      Status = "CONNECTED:WS-STREAMING"
	StatusConnectedHTTP    Status = "CONNECTED:HTTP-STREAMING"
	StatusConnectedPolling Status = "CONNECTED:HTTP-POLLING"
	StatusWillRetry        Status = "DISCONNECTED:WILL-RETRY"
	StatusTryingRecovery   Status = "DISCONNECTED:TRYING-RECOVERY"
)

func connectedStatus(mode Mode) Status {
	switch mode {
	case ModeHTTP:
		return StatusConnectedHTTP
	case ModeHTTPPolling:
		return StatusConnectedPolling
	default:
		return StatusConnectedWS
	}
}

// State of a server session. It is written by the Client's session goroutine, but might be read from everywhere.
// State implements tutor.ServerSession.
type State struct {
	mutex sync.RWMutex

	status      Status
	mode        Mode
	sessionID   string
	controlLink string
	stream      transport.StreamID
	open        bool
	closed      bool
}

func newState() *State {
	return &State{status: StatusDisconnected}
}

// Status of the Client.
func (s *State) Status() Status {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.status
}

// SessionID of the current or last session; empty before the first CONOK.
func (s *State) SessionID() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.sessionID
}

// ControlLink is the server's address for control requests, if it demanded one.
func (s *State) ControlLink() string {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.controlLink
}

// Mode is the transport of the current stream connection.
func (s *State) Mode() Mode {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.mode
}

// IsOpen is true between a session's first CONOK and its end.
func (s *State) IsOpen() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.open
}

// IsClosed is true after a session was ended, either by the server or by the Client.
func (s *State) IsClosed() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.closed
}

// IsTransportHTTP is true for HTTP streaming and polling.
func (s *State) IsTransportHTTP() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.mode == ModeHTTP || s.mode == ModeHTTPPolling
}

// IsTransportWS is true for WebSockets.
func (s *State) IsTransportWS() bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.mode == ModeWebSocket
}

// IsSameStreamConnection checks if id is the current stream connection.
func (s *State) IsSameStreamConnection(id transport.StreamID) bool {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return id != 0 && s.stream == id
}

// StreamConnection is the current stream connection, zero if there is none.
func (s *State) StreamConnection() transport.StreamID {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return s.stream
}

// setStatus returns true if the status has changed.
func (s *State) setStatus(status Status) bool {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	if s.status == status {
		return false
	}
	s.status = status
	return true
}

// reset for a new session.
func (s *State) reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessionID = ""
	s.controlLink = ""
	s.open = false
	s.closed = false
}

func (s *State) bindStream(mode Mode, id transport.StreamID) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.mode = mode
	s.stream = id
}

func (s *State) unbindStream() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.stream = 0
}

func (s *State) openSession(sessionID, controlLink string) {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.sessionID = sessionID
	s.controlLink = controlLink
	s.open = true
	s.closed = false
}

func (s *State) closeSession() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.open = false
	s.closed = true
	s.stream = 0
}
