// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"sync"
)

// Factory bundles the providers of both transports.
type Factory struct {
	HTTP      HTTPProvider
	WebSocket WebSocketProvider
}

// NewFactory creates a Factory of a HTTPTransport and a WebSocketTransport, sharing the CookieStore.
func NewFactory(cookies *CookieStore) *Factory {
	return &Factory{
		HTTP:      NewHTTPTransport(cookies),
		WebSocket: NewWebSocketTransport(cookies),
	}
}

var (
	defaultFactoryMutex sync.Mutex
	defaultFactory      *Factory
)

// DefaultFactory returns the process wide Factory, created on first use with the DefaultCookieStore.
func DefaultFactory() *Factory {
	defaultFactoryMutex.Lock()
	defer defaultFactoryMutex.Unlock()

	if defaultFactory == nil {
		defaultFactory = NewFactory(DefaultCookieStore())
	}
	return defaultFactory
}

// SetDefaultFactory replaces the process wide Factory, e.g., for testing. A nil Factory restores the default.
func SetDefaultFactory(f *Factory) {
	defaultFactoryMutex.Lock()
	defer defaultFactoryMutex.Unlock()

	defaultFactory = f
}
