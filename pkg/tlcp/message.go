// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"fmt"
	"regexp"
	"sync"

	"github.com/hashicorp/go-multierror"
)

// UnorderedMessages is the sequence name for messages without any ordering.
const UnorderedMessages = "UNORDERED_MESSAGES"

var sequenceNameRegexp = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Message describes a message to be sent to the server's Metadata Adapter.
type Message struct {
	Text string

	// Sequence orders messages; empty is treated as UnorderedMessages.
	Sequence string

	// Prog is the message's progressive within its sequence, see Sequences.
	Prog int64

	// MaxWaitMillis limits how long the server waits for missing predecessors, zero omits it.
	MaxWaitMillis int64

	// Outcome requests a MSGDONE or MSGFAIL notification, needed if a listener is waiting for it.
	Outcome bool

	// Unquoted sends the message text as the unquoted tail of the request body.
	Unquoted bool
}

// Ordered is true for messages within a named sequence.
func (m Message) Ordered() bool {
	return m.Sequence != "" && m.Sequence != UnorderedMessages
}

// NeedsAck is true if the server must acknowledge the message, either because an outcome is expected or because the
// message belongs to an ordered sequence.
func (m Message) NeedsAck() bool {
	return m.Outcome || m.Ordered()
}

// CheckValid returns an aggregated error for incorrect data.
func (m Message) CheckValid() (errs error) {
	if m.Sequence != "" && !sequenceNameRegexp.MatchString(m.Sequence) {
		errs = multierror.Append(errs, fmt.Errorf("illegal sequence name %q", m.Sequence))
	}
	if m.Prog <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("message progressive %d is not positive", m.Prog))
	}
	if m.MaxWaitMillis < 0 {
		errs = multierror.Append(errs, fmt.Errorf("max wait %d is negative", m.MaxWaitMillis))
	}
	return
}

// MessageRequest is a msg request, which additionally knows its sequence and progressive.
type MessageRequest struct {
	*Request

	Message Message
}

// NewMessageRequest creates a msg request. Fire-and-forget messages, which neither need an acknowledgement nor an
// outcome, carry no request ID.
func NewMessageRequest(server, session string, m Message) (*MessageRequest, error) {
	if m.Sequence == "" {
		m.Sequence = UnorderedMessages
	}

	errs := m.CheckValid()
	if session == "" {
		errs = multierror.Append(errs, fmt.Errorf("session ID is empty"))
	}
	if errs != nil {
		return nil, errs
	}

	r := newRequest(NameMessage, server, session, m.NeedsAck())

	if !m.Unquoted {
		r.params.Add("LS_message", m.Text)
	}
	r.params.Add("LS_sequence", m.Sequence)
	r.params.AddInt("LS_msg_prog", m.Prog)
	if m.MaxWaitMillis > 0 {
		r.params.AddInt("LS_max_wait", m.MaxWaitMillis)
	}
	if !m.Outcome {
		r.params.AddBool("LS_outcome", false)
	}
	if !m.NeedsAck() {
		r.params.AddBool("LS_ack", false)
	}
	if m.Unquoted {
		r.setUnquoted("LS_message", m.Text)
	}

	return &MessageRequest{Request: r, Message: m}, nil
}

// Renew creates a retransmission of this MessageRequest with the same sequence and progressive.
func (mr *MessageRequest) Renew() *MessageRequest {
	return &MessageRequest{Request: mr.Request.Renew(), Message: mr.Message}
}

// Sequences keeps track of each message sequence's progressive. Progressives count within a session, thus Reset
// must be called for each new session.
type Sequences struct {
	progs map[string]int64
	mutex sync.Mutex
}

// NewSequences creates an empty Sequences counter.
func NewSequences() *Sequences {
	return &Sequences{progs: make(map[string]int64)}
}

// Next returns the next progressive for a sequence, starting at one.
func (s *Sequences) Next(sequence string) int64 {
	if sequence == "" {
		sequence = UnorderedMessages
	}

	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.progs[sequence]++
	return s.progs[sequence]
}

// Reset all sequences, such that each one starts at one again.
func (s *Sequences) Reset() {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.progs = make(map[string]int64)
}
