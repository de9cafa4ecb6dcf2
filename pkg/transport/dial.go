// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"context"
	"net"
	"net/http"
	"net/url"
	"time"
)

// defaultConnectTimeout is used if Options.ConnectTimeout is unset.
const defaultConnectTimeout = 10 * time.Second

type optionsKey struct{}

// withOptions attaches a connection's Options to its context. Both the HTTP client and the WebSocket dialer are
// shared, so per connection settings are passed along the context.
func withOptions(ctx context.Context, opts Options) context.Context {
	return context.WithValue(ctx, optionsKey{}, opts)
}

func optionsFrom(ctx context.Context) Options {
	opts, _ := ctx.Value(optionsKey{}).(Options)
	return opts
}

// newDialer creates a net.Dialer with the platform's socket options.
func newDialer(timeout time.Duration) *net.Dialer {
	if timeout <= 0 {
		timeout = defaultConnectTimeout
	}
	return &net.Dialer{
		Timeout:   timeout,
		KeepAlive: dialKeepAlive,
		Control:   dialControl,
	}
}

// dialContext dials a TCP connection using the ConnectTimeout of the context's Options.
func dialContext(ctx context.Context, network, address string) (net.Conn, error) {
	return newDialer(optionsFrom(ctx).ConnectTimeout).DialContext(ctx, network, address)
}

// proxyFor selects the Options' Proxy or falls back to the environment.
func proxyFor(opts Options, req *http.Request) (*url.URL, error) {
	if opts.Proxy != nil {
		return opts.Proxy, nil
	}
	return http.ProxyFromEnvironment(req)
}

// proxyFromContext is a http.Transport's Proxy function, respecting the request's Options.
func proxyFromContext(req *http.Request) (*url.URL, error) {
	return proxyFor(optionsFrom(req.Context()), req)
}
