// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"fmt"
	"strconv"
	"strings"
)

// Response is a single line sent by the server.
type Response interface {
	// Tag is the line's leading keyword, e.g., "REQOK".
	Tag() string
}

// ConOK confirms a session creation or binding.
type ConOK struct {
	SessionID       string
	RequestLimit    int64
	KeepaliveMillis int64

	// ControlLink is the address to send control requests to; empty for the session's server.
	ControlLink string
}

// ConErr refuses a session creation or binding.
type ConErr struct {
	Code    int
	Message string
}

// End announces the session's termination by the server.
type End struct {
	Code    int
	Message string
}

// ServerError reports an unrecoverable error, closing the session.
type ServerError struct {
	Code    int
	Message string
}

// ReqOK acknowledges a request.
type ReqOK struct {
	RequestID int64
}

// ReqErr refuses a request.
type ReqErr struct {
	RequestID int64
	Code      int
	Message   string
}

// MsgDone reports a processed message.
type MsgDone struct {
	Sequence string
	Prog     int64
	Response string
}

// MsgFail reports a failed message.
type MsgFail struct {
	Sequence string
	Prog     int64
	Code     int
	Message  string
}

// Loop closes the current stream connection; the session must be rebound.
type Loop struct {
	ExpectedDelayMillis int64
}

// Prog tells the data progressive the server resumes from after a recovery.
type Prog struct {
	Prog int64
}

// Keepalive covers WSOK, PROBE, NOOP, SYNC and CONS, which carry no request outcome.
type Keepalive struct {
	Kind   string
	Fields []string
}

// Data is any other line, e.g., subscription updates, which are passed on undecoded.
type Data struct {
	Kind string
	Line string
}

func (ConOK) Tag() string       { return "CONOK" }
func (ConErr) Tag() string      { return "CONERR" }
func (End) Tag() string         { return "END" }
func (ServerError) Tag() string { return "ERROR" }
func (ReqOK) Tag() string       { return "REQOK" }
func (ReqErr) Tag() string      { return "REQERR" }
func (MsgDone) Tag() string     { return "MSGDONE" }
func (MsgFail) Tag() string     { return "MSGFAIL" }
func (Loop) Tag() string        { return "LOOP" }
func (Prog) Tag() string        { return "PROG" }
func (k Keepalive) Tag() string { return k.Kind }
func (d Data) Tag() string      { return d.Kind }

// IsDataNotification is true for lines counted by the server's data progressive, which is used for session recovery.
func IsDataNotification(resp Response) bool {
	switch resp := resp.(type) {
	case Data:
		return resp.Kind != "SERVNAME" && resp.Kind != "CLIENTIP"
	case MsgDone, MsgFail:
		return true
	default:
		return false
	}
}

// splitFields splits a line's remainder into exactly n fields. The last field keeps any further commas.
func splitFields(tag, rest string, n int) ([]string, error) {
	fields := strings.SplitN(rest, ",", n)
	if len(fields) != n || rest == "" {
		return nil, fmt.Errorf("%s: expected %d fields in %q", tag, n, rest)
	}
	return fields, nil
}

func parseInt(tag, field string) (int64, error) {
	n, err := strconv.ParseInt(field, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", tag, err)
	}
	return n, nil
}

func parseCode(tag string, fields []string) (code int, message string, err error) {
	var n int64
	if n, err = parseInt(tag, fields[0]); err != nil {
		return
	}
	return int(n), Unquote(fields[1]), nil
}

func unorderedSequence(seq string) string {
	if seq == "*" {
		return UnorderedMessages
	}
	return seq
}

// ParseLine inspects a line sent by the server.
func ParseLine(line string) (Response, error) {
	line = strings.TrimRight(line, "\r\n")
	tag, rest, _ := strings.Cut(line, ",")

	switch tag {
	case "CONOK":
		f, err := splitFields(tag, rest, 4)
		if err != nil {
			return nil, err
		}
		limit, err := parseInt(tag, f[1])
		if err != nil {
			return nil, err
		}
		keepalive, err := parseInt(tag, f[2])
		if err != nil {
			return nil, err
		}
		link := f[3]
		if link == "*" {
			link = ""
		}
		return ConOK{SessionID: f[0], RequestLimit: limit, KeepaliveMillis: keepalive, ControlLink: link}, nil

	case "CONERR", "END", "ERROR":
		f, err := splitFields(tag, rest, 2)
		if err != nil {
			return nil, err
		}
		code, msg, err := parseCode(tag, f)
		if err != nil {
			return nil, err
		}
		switch tag {
		case "CONERR":
			return ConErr{Code: code, Message: msg}, nil
		case "END":
			return End{Code: code, Message: msg}, nil
		default:
			return ServerError{Code: code, Message: msg}, nil
		}

	case "REQOK":
		if rest == "" {
			// A REQOK without ID acknowledges a heartbeat sent on a WebSocket.
			return ReqOK{}, nil
		}
		id, err := parseInt(tag, rest)
		if err != nil {
			return nil, err
		}
		return ReqOK{RequestID: id}, nil

	case "REQERR":
		f, err := splitFields(tag, rest, 3)
		if err != nil {
			return nil, err
		}
		id, err := parseInt(tag, f[0])
		if err != nil {
			return nil, err
		}
		code, msg, err := parseCode(tag, f[1:])
		if err != nil {
			return nil, err
		}
		return ReqErr{RequestID: id, Code: code, Message: msg}, nil

	case "MSGDONE":
		f, err := splitFields(tag, rest, 3)
		if err != nil {
			// The response field is optional.
			if f, err = splitFields(tag, rest, 2); err != nil {
				return nil, err
			}
			f = append(f, "")
		}
		prog, err := parseInt(tag, f[1])
		if err != nil {
			return nil, err
		}
		return MsgDone{Sequence: unorderedSequence(f[0]), Prog: prog, Response: Unquote(f[2])}, nil

	case "MSGFAIL":
		f, err := splitFields(tag, rest, 4)
		if err != nil {
			return nil, err
		}
		prog, err := parseInt(tag, f[1])
		if err != nil {
			return nil, err
		}
		code, msg, err := parseCode(tag, f[2:])
		if err != nil {
			return nil, err
		}
		return MsgFail{Sequence: unorderedSequence(f[0]), Prog: prog, Code: code, Message: msg}, nil

	case "LOOP":
		delay, err := parseInt(tag, rest)
		if err != nil {
			return nil, err
		}
		return Loop{ExpectedDelayMillis: delay}, nil

	case "PROG":
		prog, err := parseInt(tag, rest)
		if err != nil {
			return nil, err
		}
		return Prog{Prog: prog}, nil

	case "WSOK", "PROBE", "NOOP", "SYNC", "CONS":
		var fields []string
		if rest != "" {
			fields = strings.Split(rest, ",")
		}
		return Keepalive{Kind: tag, Fields: fields}, nil

	case "":
		return nil, fmt.Errorf("empty line")

	default:
		return Data{Kind: tag, Line: line}, nil
	}
}
