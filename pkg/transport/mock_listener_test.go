// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"sync"
	"testing"
	"time"
)

// mockListener records all Events received through its Listener.
type mockListener struct {
	events chan Event
}

func newMockListener() *mockListener {
	return &mockListener{events: make(chan Event, 64)}
}

func (ml *mockListener) listener() Listener {
	return EventListener(func(e Event) { ml.events <- e })
}

// expect the next Event to be of the given type.
func (ml *mockListener) expect(t *testing.T, et EventType) Event {
	t.Helper()

	select {
	case e := <-ml.events:
		if e.Type != et {
			t.Fatalf("expected %v, got %v", et, e)
		}
		return e

	case <-time.After(2 * time.Second):
		t.Fatalf("expected %v, got nothing", et)
		return Event{}
	}
}

// expectLines to be received, in this order.
func (ml *mockListener) expectLines(t *testing.T, lines ...string) {
	t.Helper()

	for _, line := range lines {
		if e := ml.expect(t, MessageReceived); e.Line != line {
			t.Fatalf("expected line %q, got %q", line, e.Line)
		}
	}
}

// expectNothing within the duration.
func (ml *mockListener) expectNothing(t *testing.T, d time.Duration) {
	t.Helper()

	select {
	case e := <-ml.events:
		t.Fatalf("expected no event, got %v", e)
	case <-time.After(d):
	}
}

// closeConcurrently closes the Handle from several goroutines at once.
func closeConcurrently(h Handle) {
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.Close()
		}()
	}
	wg.Wait()
}
