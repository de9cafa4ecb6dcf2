// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"reflect"
	"testing"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		line string
		resp Response
	}{
		{"CONOK,S7a,50000,5000,*", ConOK{SessionID: "S7a", RequestLimit: 50000, KeepaliveMillis: 5000}},
		{"CONOK,S7a,50000,5000,push2.example.com", ConOK{SessionID: "S7a", RequestLimit: 50000, KeepaliveMillis: 5000, ControlLink: "push2.example.com"}},
		{"CONERR,2,Requested%20Adapter%20Set%20not%20available", ConErr{Code: 2, Message: "Requested Adapter Set not available"}},
		{"END,31,closed", End{Code: 31, Message: "closed"}},
		{"ERROR,65,Malformed", ServerError{Code: 65, Message: "Malformed"}},
		{"REQOK,12", ReqOK{RequestID: 12}},
		{"REQOK", ReqOK{}},
		{"REQERR,13,19,Item%2C%20not%20found", ReqErr{RequestID: 13, Code: 19, Message: "Item, not found"}},
		{"MSGDONE,chat,4,ok", MsgDone{Sequence: "chat", Prog: 4, Response: "ok"}},
		{"MSGDONE,*,5", MsgDone{Sequence: UnorderedMessages, Prog: 5}},
		{"MSGFAIL,chat,6,38,discarded", MsgFail{Sequence: "chat", Prog: 6, Code: 38, Message: "discarded"}},
		{"LOOP,0", Loop{}},
		{"PROG,42", Prog{Prog: 42}},
		{"PROBE", Keepalive{Kind: "PROBE"}},
		{"SYNC,123", Keepalive{Kind: "SYNC", Fields: []string{"123"}}},
		{"U,1,1,a|b\r\n", Data{Kind: "U", Line: "U,1,1,a|b"}},
	}

	for _, test := range tests {
		resp, err := ParseLine(test.line)
		if err != nil {
			t.Fatalf("parsing %q errored: %v", test.line, err)
		}
		if !reflect.DeepEqual(resp, test.resp) {
			t.Fatalf("parsing %q: expected %#v, got %#v", test.line, test.resp, resp)
		}
	}
}

func TestParseLineErrors(t *testing.T) {
	for _, line := range []string{"", "CONOK,S", "REQOK,abc", "REQERR,1,x,msg", "LOOP", "MSGFAIL,a,1"} {
		if resp, err := ParseLine(line); err == nil {
			t.Fatalf("parsing %q did not error, got %#v", line, resp)
		}
	}
}

func TestIsDataNotification(t *testing.T) {
	if !IsDataNotification(Data{Kind: "U"}) || !IsDataNotification(MsgDone{}) {
		t.Fatal("data notification not recognised")
	}
	if IsDataNotification(Data{Kind: "SERVNAME"}) || IsDataNotification(ReqOK{}) || IsDataNotification(Loop{}) {
		t.Fatal("control line counted as data notification")
	}
}
