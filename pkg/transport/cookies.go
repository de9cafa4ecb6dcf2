// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package transport

import (
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"

	log "github.com/sirupsen/logrus"
	"golang.org/x/net/publicsuffix"
)

// CookieStore is a http.CookieJar shared between the HTTP and the WebSocket transport. Thus, cookies set by the
// server, e.g., for load balancer stickiness, are presented on both.
type CookieStore struct {
	mutex sync.Mutex
	jar   http.CookieJar
}

// NewCookieStore creates a CookieStore on top of an existing http.CookieJar. For a nil jar, a new one is created
// based on the public suffix list.
func NewCookieStore(jar http.CookieJar) *CookieStore {
	if jar == nil {
		var err error
		jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			// cookiejar.New does not fail in practice; a CookieStore without a jar just drops cookies.
			log.WithError(err).Warn("Failed to create cookie jar")
		}
	}
	return &CookieStore{jar: jar}
}

var (
	defaultCookieStoreOnce sync.Once
	defaultCookieStore     *CookieStore
)

// DefaultCookieStore returns the process wide CookieStore. It reuses http.DefaultClient's Jar, if one is set.
func DefaultCookieStore() *CookieStore {
	defaultCookieStoreOnce.Do(func() {
		defaultCookieStore = NewCookieStore(http.DefaultClient.Jar)
	})
	return defaultCookieStore
}

// SetCookies stores cookies received from u.
func (cs *CookieStore) SetCookies(u *url.URL, cookies []*http.Cookie) {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if cs.jar == nil || len(cookies) == 0 {
		return
	}

	log.WithFields(log.Fields{
		"url":     u.String(),
		"cookies": len(cookies),
	}).Debug("Storing cookies")
	cs.jar.SetCookies(cookieURL(u), cookies)
}

// Cookies to be sent to u.
func (cs *CookieStore) Cookies(u *url.URL) []*http.Cookie {
	cs.mutex.Lock()
	defer cs.mutex.Unlock()

	if cs.jar == nil {
		return nil
	}
	return cs.jar.Cookies(cookieURL(u))
}

// cookieURL maps WebSocket schemes to their HTTP counterparts, as cookiejar only serves HTTP URLs.
func cookieURL(u *url.URL) *url.URL {
	switch u.Scheme {
	case "ws":
		v := *u
		v.Scheme = "http"
		return &v
	case "wss":
		v := *u
		v.Scheme = "https"
		return &v
	default:
		return u
	}
}
