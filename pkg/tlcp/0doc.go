// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

// Package tlcp implements the client side wire format of the TLCP text protocol.
//
// Outgoing requests are built as Request values, which know how to render their body for both HTTP and WebSocket
// transports. The encoding only escapes the few characters reserved by TLCP, everything else, including non-ASCII
// input, is written as is. Incoming lines sent by the server can be inspected by ParseLine.
package tlcp
