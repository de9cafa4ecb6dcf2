// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

//go:build linux
// +build linux

package transport

import (
	"syscall"

	"golang.org/x/sys/unix"
)

// Within this file, Linux-specific socket options are configured for outgoing TCP connections. A streaming
// connection might stay silent for a long time, so lost peers should be detected by the kernel as well.
//
// The socket options are based on the Linux tcp(7) manual page.
// <https://man7.org/linux/man-pages/man7/tcp.7.html>

// dialKeepAlive is disabled here, as the keepalive is configured by dialControl.
const dialKeepAlive = -1

// dialControl is the net.Dialer's Control function to set the socket options.
func dialControl(_, _ string, rawConn syscall.RawConn) (err error) {
	const (
		// dialTcpKeepCnt sets TCP_KEEPCNT, the maximum number of keepalive probes to be sent before dropping the
		// connection.
		dialTcpKeepCnt int = 3

		// dialTcpKeepIdle sets TCP_KEEPIDLE, the time (in seconds) the connections needs to remain idle before
		// keepalive probes being sent.
		dialTcpKeepIdle int = 15

		// dialTcpKeepIntvl sets TCP_KEEPINTVL, the time (in seconds) between keepalive probes.
		dialTcpKeepIntvl int = 5

		// dialTcpUserTimeout sets TCP_USER_TIMEOUT, the maximum time (in milliseconds) that transmitted data may
		// remain unacknowledged before the connection will forcibly be closed.
		dialTcpUserTimeout int = 30000
	)

	opts := map[int]int{
		unix.TCP_KEEPCNT:      dialTcpKeepCnt,
		unix.TCP_KEEPIDLE:     dialTcpKeepIdle,
		unix.TCP_KEEPINTVL:    dialTcpKeepIntvl,
		unix.TCP_USER_TIMEOUT: dialTcpUserTimeout,
	}

	ctrlErr := rawConn.Control(func(fd uintptr) {
		if setErr := unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, unix.SO_KEEPALIVE, 1); setErr != nil {
			err = setErr
			return
		}
		for opt, value := range opts {
			if setErr := unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, opt, value); setErr != nil {
				err = setErr
				return
			}
		}
	})
	if ctrlErr != nil {
		err = ctrlErr
	}

	return
}
