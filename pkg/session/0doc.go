// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package session implements a TLCP client session on top of the transport, tutor, scheduler and events packages.
//
// A Client owns exactly one scheduler.Source. Every transport event, timer and API call is handed over to this
// Source's worker, which is the only goroutine touching the Client's protocol state. Listener callbacks are delivered
// by an events.Dispatcher on its own goroutine, thus listeners might block without stalling the session.
//
// Control requests and messages are retransmitted by their tutor.Tutor until the server acknowledges them, the
// session is closed, or the request is superseded. Requests issued while no session is bound are queued and sent
// after the next CONOK.
package session
