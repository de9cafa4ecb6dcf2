// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package session

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
	"github.com/tlcp-go/tlcp/pkg/transport"
	"github.com/tlcp-go/tlcp/pkg/tutor"
)

// Duration is a time.Duration, written as a string like "1m30s" in a configuration file.
type Duration time.Duration

// UnmarshalText parses a Duration by time.ParseDuration.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalText renders a Duration as a string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// Duration as a time.Duration.
func (d Duration) Duration() time.Duration {
	return time.Duration(d)
}

func (d Duration) millis() int64 {
	return time.Duration(d).Milliseconds()
}

// Mode selects the transport of a session's stream connection.
type Mode string

const (
	// ModeWebSocket carries the session and its requests over one WebSocket.
	ModeWebSocket Mode = "websocket"

	// ModeHTTP streams the session over a long-lived HTTP response; each request is a separate HTTP request.
	ModeHTTP Mode = "http"

	// ModeHTTPPolling polls the session by repeated HTTP requests.
	ModeHTTPPolling Mode = "http-polling"
)

func (m Mode) valid() bool {
	switch m {
	case ModeWebSocket, ModeHTTP, ModeHTTPPolling:
		return true
	default:
		return false
	}
}

// Config of a Client.
type Config struct {
	// Server's base address, e.g., "https://push.example.com".
	Server     string `toml:"server"`
	AdapterSet string `toml:"adapter-set"`
	User       string `toml:"user"`
	Password   string `toml:"password"`
	ClientID   string `toml:"client-id"`

	Transport Mode `toml:"transport"`

	// RequestedMaxBandwidth in kbit/s; zero requests an unlimited bandwidth.
	RequestedMaxBandwidth float64 `toml:"max-bandwidth"`
	ContentLength         int64   `toml:"content-length"`

	KeepaliveInterval Duration `toml:"keepalive-interval"`
	PollingInterval   Duration `toml:"polling-interval"`
	IdleTimeout       Duration `toml:"idle-timeout"`

	// HeartbeatInterval enables reverse heartbeats, if positive.
	HeartbeatInterval Duration `toml:"heartbeat-interval"`

	ConnectTimeout Duration `toml:"connect-timeout"`

	// StalledTimeout is the longest silence on a stream connection before it is considered broken.
	StalledTimeout Duration `toml:"stalled-timeout"`

	// RetryDelay between two attempts to create or recover a session.
	RetryDelay Duration `toml:"retry-delay"`

	// RequestTimeout is the initial retransmission timeout of control requests and messages.
	RequestTimeout Duration `toml:"request-timeout"`

	// ForceRebindTimeout is the fixed retransmission timeout of force_rebind requests.
	ForceRebindTimeout Duration `toml:"force-rebind-timeout"`

	Proxy   string            `toml:"proxy"`
	Headers map[string]string `toml:"headers"`
}

const (
	defaultRetryDelay         = 4 * time.Second
	defaultForceRebindTimeout = 4 * time.Second
)

// withDefaults returns a copy of this Config with defaults for unset values.
func (cfg Config) withDefaults() Config {
	cfg.Server = strings.TrimSuffix(cfg.Server, "/")

	if cfg.ClientID == "" {
		cfg.ClientID = tlcp.DefaultClientID
	}
	if cfg.Transport == "" {
		cfg.Transport = ModeWebSocket
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = Duration(defaultRetryDelay)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = Duration(tutor.DefaultMinTimeout)
	}
	if cfg.ForceRebindTimeout <= 0 {
		cfg.ForceRebindTimeout = Duration(defaultForceRebindTimeout)
	}
	return cfg
}

// CheckValid returns an aggregated error for incorrect values.
func (cfg Config) CheckValid() (errs error) {
	if u, err := url.Parse(cfg.Server); err != nil {
		errs = multierror.Append(errs, fmt.Errorf("server address: %w", err))
	} else if u.Scheme != "http" && u.Scheme != "https" {
		errs = multierror.Append(errs, fmt.Errorf("server address %q is no HTTP(S) URL", cfg.Server))
	}

	if !cfg.Transport.valid() {
		errs = multierror.Append(errs, fmt.Errorf("unknown transport %q", cfg.Transport))
	}

	if cfg.RequestedMaxBandwidth < 0 {
		errs = multierror.Append(errs, fmt.Errorf("requested bandwidth %v is negative", cfg.RequestedMaxBandwidth))
	}
	if cfg.ContentLength < 0 {
		errs = multierror.Append(errs, fmt.Errorf("content length %d is negative", cfg.ContentLength))
	}

	durations := map[string]Duration{
		"keepalive-interval": cfg.KeepaliveInterval,
		"polling-interval":   cfg.PollingInterval,
		"idle-timeout":       cfg.IdleTimeout,
		"heartbeat-interval": cfg.HeartbeatInterval,
		"connect-timeout":    cfg.ConnectTimeout,
		"stalled-timeout":    cfg.StalledTimeout,
	}
	for name, d := range durations {
		if d < 0 {
			errs = multierror.Append(errs, fmt.Errorf("%s %v is negative", name, d.Duration()))
		}
	}

	if cfg.Proxy != "" {
		if _, err := url.Parse(cfg.Proxy); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("proxy: %w", err))
		}
	}
	return
}

// sessionOptions for create_session and bind_session requests.
func (cfg Config) sessionOptions(mode Mode) tlcp.SessionOptions {
	opts := tlcp.SessionOptions{
		ClientID:              cfg.ClientID,
		AdapterSet:            cfg.AdapterSet,
		User:                  cfg.User,
		Password:              cfg.Password,
		RequestedMaxBandwidth: cfg.RequestedMaxBandwidth,
		ContentLength:         cfg.ContentLength,
		KeepaliveMillis:       cfg.KeepaliveInterval.millis(),
		InactivityMillis:      cfg.HeartbeatInterval.millis(),
	}

	if mode == ModeHTTPPolling {
		opts.Polling = true
		opts.PollingMillis = cfg.PollingInterval.millis()
		opts.IdleMillis = cfg.IdleTimeout.millis()
	}
	return opts
}

// transportOptions for each connection.
func (cfg Config) transportOptions() transport.Options {
	opts := transport.Options{
		ConnectTimeout: cfg.ConnectTimeout.Duration(),
		ReadTimeout:    cfg.StalledTimeout.Duration(),
	}

	if len(cfg.Headers) > 0 {
		opts.Headers = make(http.Header, len(cfg.Headers))
		for key, value := range cfg.Headers {
			opts.Headers.Set(key, value)
		}
	}

	if cfg.Proxy != "" {
		// Validated by CheckValid.
		opts.Proxy, _ = url.Parse(cfg.Proxy)
	}
	return opts
}
