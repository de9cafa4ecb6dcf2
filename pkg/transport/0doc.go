// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package transport carries TLCP requests over HTTP or WebSockets.
//
// Both transports report to a Listener in a strict order: at most one OnOpen, any number of OnMessage calls, one for
// each line received, and finally exactly one of OnBroken or OnClosed. Opening a connection never blocks; the I/O is
// performed on goroutines owned by this package. After a Handle was closed, no further event is delivered, even if
// the underlying I/O still completes.
//
// For WebSockets, a successfully written request is reported by OnOpen on the request's Listener, just like an
// established HTTP request. Thus, callers have a uniform view of a request being on the wire.
package transport
