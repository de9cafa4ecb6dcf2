// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"fmt"
	"strings"
	"sync"
	"testing"
)

func TestCreateSessionPollingUnlimited(t *testing.T) {
	r, err := NewCreateSessionRequest("http://push.example.com/", SessionOptions{
		AdapterSet:            "DEMO",
		RequestedMaxBandwidth: Unlimited,
		Polling:               true,
		PollingMillis:         1500,
		IdleMillis:            500,
	})
	if err != nil {
		t.Fatal(err)
	}

	body := r.Encode("")

	if strings.Contains(body, "LS_requested_max_bandwidth") {
		t.Fatalf("unlimited bandwidth must be omitted: %q", body)
	}
	for _, expected := range []string{"LS_polling=true&", "LS_polling_millis=1500&", "LS_idle_millis=500&", "LS_adapter_set=DEMO&"} {
		if !strings.Contains(body, expected) {
			t.Fatalf("body %q misses %q", body, expected)
		}
	}
	if !strings.HasSuffix(body, "&") {
		t.Fatalf("body %q has no trailing &", body)
	}
	if r.NeedsAck() {
		t.Fatal("session creation must not carry a request ID")
	}
	if url := r.HTTPURL(); url != "http://push.example.com/lightstreamer/create_session.txt?LS_protocol=TLCP-2.5.0" {
		t.Fatalf("unexpected URL %s", url)
	}
}

func TestCreateSessionStreamingBandwidth(t *testing.T) {
	r, err := NewCreateSessionRequest("http://localhost", SessionOptions{
		RequestedMaxBandwidth: 40,
		KeepaliveMillis:       5000,
	})
	if err != nil {
		t.Fatal(err)
	}

	body := r.Encode("")
	if !strings.Contains(body, "LS_requested_max_bandwidth=40&") {
		t.Fatalf("body %q misses bandwidth", body)
	}
	if !strings.Contains(body, "LS_keepalive_millis=5000&") {
		t.Fatalf("body %q misses keepalive", body)
	}
	if strings.Contains(body, "LS_polling") {
		t.Fatalf("streaming body %q contains polling parameters", body)
	}
}

func TestCreateSessionInvalid(t *testing.T) {
	if _, err := NewCreateSessionRequest("", SessionOptions{ContentLength: -1, KeepaliveMillis: -5}); err == nil {
		t.Fatal("invalid options were accepted")
	} else if n := strings.Count(err.Error(), "\n\t* "); n != 3 {
		t.Fatalf("expected three aggregated errors, got %d: %v", n, err)
	}
}

func TestSessionElision(t *testing.T) {
	r, err := NewUnsubscribeRequest("http://localhost", "S1", 3)
	if err != nil {
		t.Fatal(err)
	}

	if body := r.Encode("S1"); strings.Contains(body, "LS_session") {
		t.Fatalf("bound session was not elided: %q", body)
	}
	if body := r.Encode("S2"); !strings.Contains(body, "LS_session=S1&") {
		t.Fatalf("foreign session was elided: %q", body)
	}
	if body := r.Encode(""); !strings.HasPrefix(body, fmt.Sprintf("LS_reqId=%d&LS_op=delete&LS_subId=3&", r.ID())) {
		t.Fatalf("unexpected body %q", body)
	}
}

func TestEmptyBodyPlaceholder(t *testing.T) {
	r, err := NewHeartbeatRequest("http://localhost", "S1")
	if err != nil {
		t.Fatal(err)
	}

	if body := r.Encode("S1"); body != "\r\n" {
		t.Fatalf("expected CRLF placeholder, got %q", body)
	}
	if body := r.Encode(""); body != "LS_session=S1&" {
		t.Fatalf("unexpected body %q", body)
	}
	if r.NeedsAck() {
		t.Fatal("heartbeats must not be acknowledged")
	}
}

func TestRequestIDsUnique(t *testing.T) {
	const workers, perWorker = 8, 250

	var (
		wg    sync.WaitGroup
		mutex sync.Mutex
		ids   = make(map[int64]struct{})
	)

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				r, err := NewConstrainRequest("http://localhost", "S", 10)
				if err != nil {
					t.Error(err)
					return
				}
				renewed := r.Renew()

				mutex.Lock()
				ids[r.ID()] = struct{}{}
				ids[renewed.ID()] = struct{}{}
				mutex.Unlock()
			}
		}()
	}
	wg.Wait()

	if len(ids) != 2*workers*perWorker {
		t.Fatalf("expected %d unique IDs, got %d", 2*workers*perWorker, len(ids))
	}
}

func TestRenewKeepsParams(t *testing.T) {
	r, err := NewSubscribeRequest("http://localhost", "S", Subscription{
		SubID:                 7,
		Mode:                  "MERGE",
		Group:                 "item1 item2",
		Schema:                "bid ask",
		RequestedMaxFrequency: Unfiltered,
		RequestedBufferSize:   DefaultValue,
	})
	if err != nil {
		t.Fatal(err)
	}

	renewed := r.Renew()
	if renewed.ID() == r.ID() {
		t.Fatal("renewed request reuses its ID")
	}

	oldBody := strings.TrimPrefix(r.Encode("S"), fmt.Sprintf("LS_reqId=%d&", r.ID()))
	newBody := strings.TrimPrefix(renewed.Encode("S"), fmt.Sprintf("LS_reqId=%d&", renewed.ID()))
	if oldBody != newBody {
		t.Fatalf("renewed body differs: %q vs %q", oldBody, newBody)
	}
	if !strings.Contains(newBody, "LS_requested_max_frequency=unfiltered&") {
		t.Fatalf("body %q misses frequency", newBody)
	}
	if strings.Contains(newBody, "LS_requested_buffer_size") {
		t.Fatalf("default buffer size was not omitted: %q", newBody)
	}
}

func TestSubscriptionInvalid(t *testing.T) {
	if _, err := NewSubscribeRequest("http://localhost", "S", Subscription{Mode: "FOO"}); err == nil {
		t.Fatal("invalid subscription was accepted")
	}
	if _, err := NewUnsubscribeRequest("http://localhost", "", 1); err == nil {
		t.Fatal("control request without session was accepted")
	}
}

func TestConstrainUnlimited(t *testing.T) {
	r, err := NewConstrainRequest("http://localhost", "S", Unlimited)
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := r.Param("LS_requested_max_bandwidth"); v != "unlimited" {
		t.Fatalf("expected unlimited, got %q", v)
	}
}

func TestForceRebindAndDestroy(t *testing.T) {
	fr, err := NewForceRebindRequest("http://localhost", "S", "test", -1)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := fr.Param("LS_polling_millis"); ok {
		t.Fatal("negative polling interval was not omitted")
	}
	if v, _ := fr.Param("LS_op"); v != OpForceRebind {
		t.Fatalf("unexpected op %q", v)
	}

	d, err := NewDestroyRequest("http://localhost", "S", "")
	if err != nil {
		t.Fatal(err)
	}
	if v, _ := d.Param("LS_close_socket"); v != "true" {
		t.Fatalf("unexpected LS_close_socket %q", v)
	}
}

func TestUnquotedBody(t *testing.T) {
	mr, err := NewMessageRequest("http://localhost", "S", Message{
		Text:     "raw & unescaped = body",
		Prog:     1,
		Outcome:  true,
		Unquoted: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	body := mr.Encode("S")
	prefix, rest, ok := strings.Cut(body, "&")
	if !ok || !strings.HasPrefix(prefix, "LS_unq=") {
		t.Fatalf("body %q has no LS_unq prefix", body)
	}
	if prefix != fmt.Sprintf("LS_unq=%d", len(rest)) {
		t.Fatalf("prefix %q does not match length %d", prefix, len(rest))
	}
	if !strings.HasSuffix(rest, "LS_message=raw & unescaped = body") {
		t.Fatalf("unquoted tail missing in %q", rest)
	}
}

func TestWebSocketURL(t *testing.T) {
	tests := map[string]string{
		"http://localhost:8080/": "ws://localhost:8080/lightstreamer",
		"https://push.example":   "wss://push.example/lightstreamer",
	}

	for in, out := range tests {
		if u := WebSocketURL(in); u != out {
			t.Fatalf("WebSocketURL(%q) = %q, expected %q", in, u, out)
		}
	}
}

func TestFrame(t *testing.T) {
	r, err := NewBindSessionRequest("http://localhost", "S1", SessionOptions{})
	if err != nil {
		t.Fatal(err)
	}

	if f := r.Frame(""); f != "bind_session\r\nLS_session=S1&" {
		t.Fatalf("unexpected frame %q", f)
	}
}
