// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"fmt"
)

// EventType indicates the kind of an Event.
type EventType uint

const (
	_ EventType = iota

	// Opened shows an established connection or, for a WebSocket request, a successful write.
	Opened

	// MessageReceived shows a received line, stored in the Event's Line.
	MessageReceived

	// Broken shows a failed connection. The Event's Err might hold the cause.
	Broken

	// Closed shows a connection closed by the server.
	Closed
)

func (et EventType) String() string {
	switch et {
	case Opened:
		return "Opened"
	case MessageReceived:
		return "Message Received"
	case Broken:
		return "Broken"
	case Closed:
		return "Closed"
	default:
		return "Unknown Type"
	}
}

// Event is a Listener callback as a value, e.g., to be passed to another goroutine.
type Event struct {
	Type EventType
	Line string
	Err  error
}

func (e Event) String() string {
	switch e.Type {
	case MessageReceived:
		return fmt.Sprintf("%v: %q", e.Type, e.Line)
	case Broken:
		return fmt.Sprintf("%v: %v", e.Type, e.Err)
	default:
		return e.Type.String()
	}
}

// EventListener is a Listener passing each callback as an Event to a function. The function is called on the
// transport's goroutine and should hand the Event over to its consumer.
type EventListener func(Event)

// OnOpen emits an Opened Event.
func (el EventListener) OnOpen() {
	el(Event{Type: Opened})
}

// OnMessage emits a MessageReceived Event.
func (el EventListener) OnMessage(line string) {
	el(Event{Type: MessageReceived, Line: line})
}

// OnBroken emits a Broken Event.
func (el EventListener) OnBroken(err error) {
	el(Event{Type: Broken, Err: err})
}

// OnClosed emits a Closed Event.
func (el EventListener) OnClosed() {
	el(Event{Type: Closed})
}
