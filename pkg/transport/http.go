// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/tlcp-go/tlcp/pkg/tlcp"
)

const (
	// maxLineSize limits a single received line.
	maxLineSize = 16 * 1024 * 1024

	// maxRedirects limits the redirects followed for a single request.
	maxRedirects = 10
)

var (
	// ErrReadTimeout is reported if no line was received within the Options' ReadTimeout.
	ErrReadTimeout = errors.New("read timeout exceeded")

	// ErrRedirect is reported for redirects which would resend a request without its body.
	ErrRedirect = errors.New("redirect does not preserve the request")
)

// HTTPTransport sends each request as a single HTTP POST and streams the response's lines.
type HTTPTransport struct {
	client *http.Client
}

// NewHTTPTransport creates a HTTPTransport sharing the given CookieStore.
func NewHTTPTransport(cookies *CookieStore) *HTTPTransport {
	return &HTTPTransport{
		client: &http.Client{
			Transport: &http.Transport{
				Proxy:               proxyFromContext,
				DialContext:         dialContext,
				ForceAttemptHTTP2:   true,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
				TLSHandshakeTimeout: defaultConnectTimeout,
			},
			Jar:           cookies,
			CheckRedirect: checkRedirect,
		},
	}
}

// checkRedirect only follows 307 and 308 redirects, as others turn the POST into a GET without a body.
func checkRedirect(req *http.Request, via []*http.Request) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("%w: stopped after %d redirects", ErrRedirect, maxRedirects)
	}

	switch code := req.Response.StatusCode; code {
	case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		log.WithFields(log.Fields{
			"status": code,
			"url":    req.URL,
		}).Debug("Following HTTP redirect")
		return nil
	default:
		return fmt.Errorf("%w: HTTP status %d", ErrRedirect, code)
	}
}

// Open a request. The request is performed on its own goroutine; Open never blocks.
func (ht *HTTPTransport) Open(req *tlcp.Request, listener Listener, opts Options) Handle {
	ctx, cancel := context.WithCancel(withOptions(context.Background(), opts))

	h := &httpHandle{
		guard:  newGuard(listener),
		cancel: cancel,
	}

	go ht.perform(ctx, h, req, opts)

	return h
}

func (ht *HTTPTransport) perform(ctx context.Context, h *httpHandle, req *tlcp.Request, opts Options) {
	defer h.cancel()

	logger := log.WithFields(log.Fields{
		"stream":  h.ID(),
		"request": req,
	})

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, req.HTTPURL(), strings.NewReader(req.Encode("")))
	if err != nil {
		logger.WithError(err).Warn("Failed to create HTTP request")
		h.broken(err)
		return
	}
	for key, values := range opts.Headers {
		for _, value := range values {
			httpReq.Header.Add(key, value)
		}
	}
	httpReq.Header.Set("Content-Type", "text/plain; charset=utf-8")

	resp, err := ht.client.Do(httpReq)
	if err != nil {
		logger.WithError(err).Debug("HTTP request failed")
		h.broken(err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		logger.WithField("status", resp.Status).Debug("HTTP request has an unexpected status")
		h.broken(fmt.Errorf("unexpected HTTP status %s", resp.Status))
		return
	}

	logger.Debug("HTTP request established")
	h.open()

	var (
		timedOut  uint32
		resetIdle = func() {}
	)
	if opts.ReadTimeout > 0 {
		idle := time.AfterFunc(opts.ReadTimeout, func() {
			atomic.StoreUint32(&timedOut, 1)
			h.cancel()
		})
		defer idle.Stop()

		resetIdle = func() { idle.Reset(opts.ReadTimeout) }
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 4096), maxLineSize)
	for scanner.Scan() {
		resetIdle()
		h.message(scanner.Text())
	}

	if err := scanner.Err(); err != nil {
		if atomic.LoadUint32(&timedOut) != 0 {
			err = ErrReadTimeout
		}
		logger.WithError(err).Debug("HTTP response broke")
		h.broken(err)
		return
	}

	logger.Debug("HTTP response was closed")
	h.finished()
}

// httpHandle is the Handle of a single HTTP request.
type httpHandle struct {
	*guard

	cancel context.CancelFunc
}

// ID of this request's connection.
func (h *httpHandle) ID() StreamID {
	return h.id
}

// Close this request, aborting a pending connection.
func (h *httpHandle) Close() {
	if h.close() {
		h.cancel()
	}
}
