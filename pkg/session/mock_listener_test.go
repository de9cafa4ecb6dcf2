// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"
)

// mockClientListener records a Client's events in channels.
type mockClientListener struct {
	starts uint32
	ends   uint32

	statuses      chan Status
	serverErrors  chan string
	requestErrors chan string
	data          chan string
}

func newMockClientListener() *mockClientListener {
	return &mockClientListener{
		statuses:      make(chan Status, 64),
		serverErrors:  make(chan string, 16),
		requestErrors: make(chan string, 16),
		data:          make(chan string, 64),
	}
}

func (ml *mockClientListener) OnListenStart() {
	atomic.AddUint32(&ml.starts, 1)
}

func (ml *mockClientListener) OnListenEnd() {
	atomic.AddUint32(&ml.ends, 1)
}

func (ml *mockClientListener) OnStatusChange(status Status) {
	ml.statuses <- status
}

func (ml *mockClientListener) OnServerError(code int, message string) {
	ml.serverErrors <- fmt.Sprintf("%d:%s", code, message)
}

func (ml *mockClientListener) OnRequestError(_ string, code int, message string) {
	ml.requestErrors <- fmt.Sprintf("%d:%s", code, message)
}

func (ml *mockClientListener) OnData(line string) {
	ml.data <- line
}

// expectStatus waits for a status, skipping others.
func (ml *mockClientListener) expectStatus(t *testing.T, status Status) {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case s := <-ml.statuses:
			if s == status {
				return
			}
		case <-timeout:
			t.Fatalf("status %s was not reached", status)
		}
	}
}

func expectString(t *testing.T, ch <-chan string, expected string) {
	t.Helper()

	select {
	case s := <-ch:
		if s != expected {
			t.Fatalf("expected %q, got %q", expected, s)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("expected %q, got nothing", expected)
	}
}

func expectNoString(t *testing.T, ch <-chan string, d time.Duration) {
	t.Helper()

	select {
	case s := <-ch:
		t.Fatalf("expected nothing, got %q", s)
	case <-time.After(d):
	}
}

// mockMessageListener records a message's outcome.
type mockMessageListener struct {
	outcomes chan string
}

func newMockMessageListener() *mockMessageListener {
	return &mockMessageListener{outcomes: make(chan string, 8)}
}

func (ml *mockMessageListener) OnProcessed(message, response string) {
	ml.outcomes <- fmt.Sprintf("processed:%s:%s", message, response)
}

func (ml *mockMessageListener) OnDeny(message string, code int, _ string) {
	ml.outcomes <- fmt.Sprintf("deny:%s:%d", message, code)
}

func (ml *mockMessageListener) OnError(message string, code int, _ string) {
	ml.outcomes <- fmt.Sprintf("error:%s:%d", message, code)
}

func (ml *mockMessageListener) OnDiscarded(message string) {
	ml.outcomes <- "discarded:" + message
}

func (ml *mockMessageListener) OnAbort(message string, sentOnNetwork bool) {
	ml.outcomes <- fmt.Sprintf("abort:%s:%t", message, sentOnNetwork)
}
