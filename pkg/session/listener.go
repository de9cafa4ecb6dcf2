// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

// ClientListener receives a Client's lifecycle events.
type ClientListener interface {
	// OnListenStart is the first event after registration.
	OnListenStart()

	// OnListenEnd is the last event after removal.
	OnListenEnd()

	OnStatusChange(status Status)

	// OnServerError reports a session ended by the server, e.g., by END, ERROR or CONERR.
	OnServerError(code int, message string)

	// OnRequestError reports a control request refused by the server.
	OnRequestError(request string, code int, message string)
}

// DataListener might additionally be implemented by a ClientListener to receive subscription traffic, one line at
// a time.
type DataListener interface {
	OnData(line string)
}

// MessageListener receives the outcome of a single message.
type MessageListener interface {
	// OnProcessed reports a message processed by the server with its optional response.
	OnProcessed(message, response string)

	// OnDeny reports a message refused by the server's adapter.
	OnDeny(message string, code int, reason string)

	// OnError reports a message which failed to be processed.
	OnError(message string, code int, reason string)

	// OnDiscarded reports a message discarded by the server, e.g., after a timeout within its sequence.
	OnDiscarded(message string)

	// OnAbort reports a message given up by the Client, as its session ended.
	OnAbort(message string, sentOnNetwork bool)
}

// NopClientListener implements ClientListener without doing anything. It might be embedded to implement only some
// callbacks.
type NopClientListener struct{}

func (NopClientListener) OnListenStart() {}
func (NopClientListener) OnListenEnd() {}
func (NopClientListener) OnStatusChange(Status) {}
func (NopClientListener) OnServerError(int, string) {}
func (NopClientListener) OnRequestError(string, int, string) {}
