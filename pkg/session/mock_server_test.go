// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
)

// fakeRequest is a request received by the fakeServer.
type fakeRequest struct {
	name    string
	params  map[string]string
	viaHTTP bool
}

func parseBody(body string) map[string]string {
	params := make(map[string]string)
	for _, kv := range strings.Split(strings.TrimSpace(body), "&") {
		if kv == "" {
			continue
		}
		key, value, _ := strings.Cut(kv, "=")
		params[key] = tlcp.Unquote(value)
	}
	return params
}

// fakeConn is a server side WebSocket with serialized writes.
type fakeConn struct {
	conn  *websocket.Conn
	mutex sync.Mutex
}

func (fc *fakeConn) write(lines ...string) {
	fc.mutex.Lock()
	defer fc.mutex.Unlock()

	if len(lines) == 0 {
		return
	}
	_ = fc.conn.WriteMessage(websocket.TextMessage, []byte(strings.Join(lines, "\r\n")+"\r\n"))
}

// fakeStream is a server side HTTP streaming response.
type fakeStream struct {
	lines chan string
}

func (fs *fakeStream) write(line string) {
	fs.lines <- line
}

// fakeServer is a minimal TLCP server speaking HTTP and WebSockets.
type fakeServer struct {
	srv *httptest.Server

	mutex        sync.Mutex
	sessions     int
	dropControls int
	refuse       bool
	holdMessages bool
	msgFailCode  int

	requests    chan fakeRequest
	wsConns     chan *fakeConn
	httpStreams chan *fakeStream

	// current HTTP stream, which receives the outcomes of messages sent over HTTP.
	current *fakeStream
}

var fakeUpgrader = websocket.Upgrader{
	Subprotocols: []string{tlcp.WebSocketSubprotocol},
}

func newFakeServer(t *testing.T) *fakeServer {
	fs := &fakeServer{
		requests:    make(chan fakeRequest, 256),
		wsConns:     make(chan *fakeConn, 16),
		httpStreams: make(chan *fakeStream, 16),
	}

	router := mux.NewRouter()
	router.HandleFunc("/lightstreamer", fs.serveWebSocket)
	router.HandleFunc("/lightstreamer/{name}.txt", fs.serveHTTP).Methods(http.MethodPost)

	fs.srv = httptest.NewServer(router)
	t.Cleanup(fs.srv.Close)
	return fs
}

func (fs *fakeServer) set(f func(fs *fakeServer)) {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()
	f(fs)
}

// reply to a request; a nil result leaves the request unanswered.
func (fs *fakeServer) reply(req fakeRequest) []string {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	id := req.params["LS_reqId"]

	switch req.name {
	case tlcp.NameCreateSession:
		fs.sessions++
		return []string{fmt.Sprintf("CONOK,S%d,50000,5000,*", fs.sessions)}

	case tlcp.NameBindSession:
		lines := []string{fmt.Sprintf("CONOK,%s,50000,5000,*", req.params["LS_session"])}
		if from, ok := req.params["LS_recovery_from"]; ok {
			lines = append(lines, "PROG,"+from)
		}
		return lines

	case tlcp.NameControl:
		if fs.dropControls > 0 {
			fs.dropControls--
			return nil
		} else if fs.refuse {
			return []string{fmt.Sprintf("REQERR,%s,17,refused", id)}
		}
		return []string{"REQOK," + id}

	case tlcp.NameMessage:
		if fs.holdMessages || req.params["LS_ack"] == "false" {
			return nil
		}

		lines := []string{"REQOK," + id}
		if req.params["LS_outcome"] != "false" {
			seq := req.params["LS_sequence"]
			if seq == tlcp.UnorderedMessages {
				seq = "*"
			}
			if fs.msgFailCode != 0 {
				lines = append(lines, fmt.Sprintf("MSGFAIL,%s,%s,%d,failed", seq, req.params["LS_msg_prog"], fs.msgFailCode))
			} else {
				lines = append(lines, fmt.Sprintf("MSGDONE,%s,%s,done", seq, req.params["LS_msg_prog"]))
			}
		}
		return lines

	default:
		return nil
	}
}

func (fs *fakeServer) serveWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := fakeUpgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	fc := &fakeConn{conn: conn}
	fs.wsConns <- fc

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}

		name, body, _ := strings.Cut(string(data), "\r\n")
		req := fakeRequest{name: name, params: parseBody(body)}
		fs.requests <- req

		fc.write(fs.reply(req)...)
	}
}

func (fs *fakeServer) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	req := fakeRequest{name: mux.Vars(r)["name"], params: parseBody(string(body)), viaHTTP: true}
	select {
	case fs.requests <- req:
	case <-r.Context().Done():
		return
	}

	isStream := req.name == tlcp.NameCreateSession || req.name == tlcp.NameBindSession
	isPolling := req.params["LS_polling"] == "true"

	// The stream must be known before its CONOK is sent, as requests might follow immediately.
	var stream *fakeStream
	if isStream && !isPolling {
		stream = &fakeStream{lines: make(chan string, 16)}
		fs.set(func(fs *fakeServer) { fs.current = stream })
	}

	for _, line := range fs.reply(req) {
		if strings.HasPrefix(line, "MSG") {
			fs.mutex.Lock()
			current := fs.current
			fs.mutex.Unlock()

			if current != nil {
				current.write(line)
			}
			continue
		}
		_, _ = io.WriteString(w, line+"\r\n")
	}
	if isStream && isPolling {
		w.(http.Flusher).Flush()

		// Hold the poll for a while, as a server without pending updates does.
		select {
		case <-time.After(100 * time.Millisecond):
		case <-r.Context().Done():
			return
		}
		_, _ = io.WriteString(w, "LOOP,0\r\n")
	}
	w.(http.Flusher).Flush()

	if stream == nil {
		return
	}
	fs.httpStreams <- stream

	for {
		select {
		case <-r.Context().Done():
			return
		case line := <-stream.lines:
			_, _ = io.WriteString(w, line+"\r\n")
			w.(http.Flusher).Flush()

			if strings.HasPrefix(line, "LOOP") {
				return
			}
		}
	}
}

// expectRequest waits for the next request matching the predicate, skipping all others.
func (fs *fakeServer) expectRequest(t *testing.T, match func(fakeRequest) bool) fakeRequest {
	t.Helper()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case req := <-fs.requests:
			if match(req) {
				return req
			}
		case <-timeout:
			t.Fatal("expected request was not received")
			return fakeRequest{}
		}
	}
}

func (fs *fakeServer) nextWebSocket(t *testing.T) *fakeConn {
	t.Helper()

	select {
	case fc := <-fs.wsConns:
		return fc
	case <-time.After(5 * time.Second):
		t.Fatal("no WebSocket was established")
		return nil
	}
}

func (fs *fakeServer) nextHTTPStream(t *testing.T) *fakeStream {
	t.Helper()

	select {
	case stream := <-fs.httpStreams:
		return stream
	case <-time.After(5 * time.Second):
		t.Fatal("no HTTP stream was established")
		return nil
	}
}

func isRequest(name string) func(fakeRequest) bool {
	return func(req fakeRequest) bool {
		return req.name == name
	}
}

func isControl(op string) func(fakeRequest) bool {
	return func(req fakeRequest) bool {
		return req.name == tlcp.NameControl && req.params["LS_op"] == op
	}
}
