// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build !linux
// +build !linux

package transport

import (
	"syscall"
	"time"
)

// dialKeepAlive relies on Go's own TCP keepalive for operating systems next to Linux.
const dialKeepAlive = 15 * time.Second

// dialControl sets no further socket options.
var dialControl func(network, address string, rawConn syscall.RawConn) error
