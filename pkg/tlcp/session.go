// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
)

// DefaultClientID is sent as LS_cid on session creation.
const DefaultClientID = "tlcp-go"

// SessionOptions configure session creation and binding requests.
type SessionOptions struct {
	ClientID   string
	AdapterSet string
	User       string
	Password   string

	// RequestedMaxBandwidth in kbit/s. Unlimited and DefaultValue omit the parameter.
	RequestedMaxBandwidth float64

	// ContentLength limits a streaming response's length in bytes, zero omits it.
	ContentLength int64

	// Polling requests a polling instead of a streaming connection.
	Polling       bool
	PollingMillis int64
	IdleMillis    int64

	// KeepaliveMillis requests the keepalive interval of a streaming connection, zero omits it.
	KeepaliveMillis int64

	// InactivityMillis announces the client's reverse heartbeat interval, zero omits it.
	InactivityMillis int64

	Cause      string
	OldSession string
}

func (opts SessionOptions) checkValid() (errs error) {
	if opts.ContentLength < 0 {
		errs = multierror.Append(errs, fmt.Errorf("content length %d is negative", opts.ContentLength))
	}
	if opts.Polling && opts.PollingMillis < 0 {
		errs = multierror.Append(errs, fmt.Errorf("polling interval %d is negative", opts.PollingMillis))
	}
	if opts.IdleMillis < 0 {
		errs = multierror.Append(errs, fmt.Errorf("idle time %d is negative", opts.IdleMillis))
	}
	if opts.KeepaliveMillis < 0 {
		errs = multierror.Append(errs, fmt.Errorf("keepalive interval %d is negative", opts.KeepaliveMillis))
	}
	if opts.RequestedMaxBandwidth < 0 && opts.RequestedMaxBandwidth != DefaultValue {
		errs = multierror.Append(errs, fmt.Errorf("requested bandwidth %v is invalid", opts.RequestedMaxBandwidth))
	}
	return
}

// addConnectionParams adds the parameters shared by session creation and binding.
func (r *Request) addConnectionParams(opts SessionOptions) {
	if opts.ContentLength > 0 {
		r.params.AddInt("LS_content_length", opts.ContentLength)
	}

	if opts.Polling {
		r.params.AddBool("LS_polling", true)
		r.params.AddInt("LS_polling_millis", opts.PollingMillis)
		r.params.AddInt("LS_idle_millis", opts.IdleMillis)
	} else if opts.KeepaliveMillis > 0 {
		r.params.AddInt("LS_keepalive_millis", opts.KeepaliveMillis)
	}

	if opts.InactivityMillis > 0 {
		r.params.AddInt("LS_inactivity_millis", opts.InactivityMillis)
	}

	if opts.Cause != "" {
		r.params.Add("LS_cause", opts.Cause)
	}
}

// NewCreateSessionRequest creates a create_session request.
func NewCreateSessionRequest(server string, opts SessionOptions) (*Request, error) {
	errs := opts.checkValid()
	if strings.TrimSpace(server) == "" {
		errs = multierror.Append(errs, fmt.Errorf("server address is empty"))
	}
	if errs != nil {
		return nil, errs
	}

	r := newRequest(NameCreateSession, server, "", false)

	if opts.ClientID == "" {
		opts.ClientID = DefaultClientID
	}
	r.params.Add("LS_cid", opts.ClientID)

	if opts.AdapterSet != "" {
		r.params.Add("LS_adapter_set", opts.AdapterSet)
	}
	if opts.User != "" {
		r.params.Add("LS_user", opts.User)
	}
	if opts.Password != "" {
		r.params.Add("LS_password", opts.Password)
	}
	if opts.RequestedMaxBandwidth > 0 {
		r.params.AddFloat("LS_requested_max_bandwidth", opts.RequestedMaxBandwidth)
	}
	if opts.OldSession != "" {
		r.params.Add("LS_old_session", opts.OldSession)
	}

	r.addConnectionParams(opts)
	return r, nil
}

// NewBindSessionRequest creates a bind_session request for an existing session.
func NewBindSessionRequest(server, session string, opts SessionOptions) (*Request, error) {
	errs := opts.checkValid()
	if session == "" {
		errs = multierror.Append(errs, fmt.Errorf("session ID is empty"))
	}
	if errs != nil {
		return nil, errs
	}

	r := newRequest(NameBindSession, server, session, false)
	r.addConnectionParams(opts)
	return r, nil
}

// NewRecoverSessionRequest creates a bind_session request which asks the server to resend everything after the
// given data notification progressive.
func NewRecoverSessionRequest(server, session string, recoveryFrom int64, opts SessionOptions) (*Request, error) {
	if recoveryFrom < 0 {
		return nil, fmt.Errorf("recovery progressive %d is negative", recoveryFrom)
	}

	r, err := NewBindSessionRequest(server, session, opts)
	if err != nil {
		return nil, err
	}
	r.params.AddInt("LS_recovery_from", recoveryFrom)
	return r, nil
}

// NewHeartbeatRequest creates a reverse heartbeat, which is neither acknowledged nor retransmitted.
func NewHeartbeatRequest(server, session string) (*Request, error) {
	if session == "" {
		return nil, fmt.Errorf("session ID is empty")
	}
	return newRequest(NameHeartbeat, server, session, false), nil
}
