// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
)

// Control operations, sent as LS_op.
const (
	OpAdd         = "add"
	OpDelete      = "delete"
	OpReconf      = "reconf"
	OpConstrain   = "constrain"
	OpForceRebind = "force_rebind"
	OpDestroy     = "destroy"
)

// Subscription describes an LS_op=add request.
type Subscription struct {
	SubID       int64
	Mode        string
	Group       string
	Schema      string
	DataAdapter string
	Selector    string

	// Snapshot is "true", "false" or a snapshot length; empty omits it.
	Snapshot string

	// RequestedBufferSize follows the sentinel conventions; the zero value is Unlimited.
	RequestedBufferSize float64

	// RequestedMaxFrequency in updates per second follows the sentinel conventions; the zero value is Unlimited.
	RequestedMaxFrequency float64
}

// CheckValid returns an aggregated error for incorrect data.
func (s Subscription) CheckValid() (errs error) {
	if s.SubID <= 0 {
		errs = multierror.Append(errs, fmt.Errorf("subscription ID %d is not positive", s.SubID))
	}

	switch s.Mode {
	case "MERGE", "DISTINCT", "RAW", "COMMAND":
	default:
		errs = multierror.Append(errs, fmt.Errorf("unknown subscription mode %q", s.Mode))
	}

	if s.Group == "" {
		errs = multierror.Append(errs, fmt.Errorf("item group is empty"))
	}
	if s.Schema == "" {
		errs = multierror.Append(errs, fmt.Errorf("field schema is empty"))
	}
	return
}

func newControlRequest(server, session, op string) (*Request, error) {
	if session == "" {
		return nil, fmt.Errorf("control %s: session ID is empty", op)
	}

	r := newRequest(NameControl, server, session, true)
	r.params.Add("LS_op", op)
	return r, nil
}

// NewSubscribeRequest creates a control request to add a subscription.
func NewSubscribeRequest(server, session string, sub Subscription) (*Request, error) {
	if err := sub.CheckValid(); err != nil {
		return nil, err
	}

	r, err := newControlRequest(server, session, OpAdd)
	if err != nil {
		return nil, err
	}

	r.params.AddInt("LS_subId", sub.SubID)
	r.params.Add("LS_mode", sub.Mode)
	r.params.Add("LS_group", sub.Group)
	r.params.Add("LS_schema", sub.Schema)
	if sub.DataAdapter != "" {
		r.params.Add("LS_data_adapter", sub.DataAdapter)
	}
	if sub.Selector != "" {
		r.params.Add("LS_selector", sub.Selector)
	}
	if sub.Snapshot != "" {
		r.params.Add("LS_snapshot", sub.Snapshot)
	}
	r.params.addLimit("LS_requested_buffer_size", sub.RequestedBufferSize)
	r.params.addLimit("LS_requested_max_frequency", sub.RequestedMaxFrequency)

	return r, nil
}

// NewUnsubscribeRequest creates a control request to delete a subscription.
func NewUnsubscribeRequest(server, session string, subID int64) (*Request, error) {
	r, err := newControlRequest(server, session, OpDelete)
	if err != nil {
		return nil, err
	}

	r.params.AddInt("LS_subId", subID)
	return r, nil
}

// NewReconfigureRequest creates a control request to change a subscription's maximum frequency.
func NewReconfigureRequest(server, session string, subID int64, maxFrequency float64) (*Request, error) {
	r, err := newControlRequest(server, session, OpReconf)
	if err != nil {
		return nil, err
	}

	r.params.AddInt("LS_subId", subID)
	r.params.addLimit("LS_requested_max_frequency", maxFrequency)
	return r, nil
}

// NewConstrainRequest creates a control request to change the session's maximum bandwidth. Unlimited is rendered as
// "unlimited".
func NewConstrainRequest(server, session string, maxBandwidth float64) (*Request, error) {
	if maxBandwidth < 0 {
		return nil, fmt.Errorf("requested bandwidth %v is negative", maxBandwidth)
	}

	r, err := newControlRequest(server, session, OpConstrain)
	if err != nil {
		return nil, err
	}

	r.params.addLimit("LS_requested_max_bandwidth", maxBandwidth)
	return r, nil
}

// NewForceRebindRequest creates a control request asking the server to close the current stream connection, such
// that the client rebinds. A negative pollingMillis omits LS_polling_millis.
func NewForceRebindRequest(server, session, cause string, pollingMillis int64) (*Request, error) {
	r, err := newControlRequest(server, session, OpForceRebind)
	if err != nil {
		return nil, err
	}

	if cause != "" {
		r.params.Add("LS_cause", cause)
	}
	if pollingMillis >= 0 {
		r.params.AddInt("LS_polling_millis", pollingMillis)
	}
	return r, nil
}

// NewDestroyRequest creates a control request to terminate the session.
func NewDestroyRequest(server, session, cause string) (*Request, error) {
	r, err := newControlRequest(server, session, OpDestroy)
	if err != nil {
		return nil, err
	}

	r.params.AddBool("LS_close_socket", true)
	if cause != "" {
		r.params.Add("LS_cause", cause)
	}
	return r, nil
}
