// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	// DefaultValue is the sentinel for "let the server pick its default". Parameters holding it are omitted.
	DefaultValue = -1

	// Unfiltered is the sentinel for an unfiltered subscription frequency.
	Unfiltered = -2

	// Unlimited is the sentinel for an unlimited bandwidth, frequency or buffer size.
	Unlimited = 0
)

// emptyBody is sent instead of an empty request body, which would be rejected by the server.
const emptyBody = "\r\n"

// Encode percent-encodes the characters reserved by TLCP: CR, LF, '%', '+', '&' and '='.
//
// All other bytes are left untouched. In contrast to a generic URL encoding, non-ASCII characters must not be escaped.
func Encode(value string) string {
	if !strings.ContainsAny(value, "\r\n%+&=") {
		return value
	}

	var b strings.Builder
	b.Grow(len(value) + 8)

	for i := 0; i < len(value); i++ {
		switch c := value[i]; c {
		case '\r', '\n', '%', '+', '&', '=':
			_, _ = fmt.Fprintf(&b, "%%%02X", c)
		default:
			b.WriteByte(c)
		}
	}

	return b.String()
}

// Unquote reverts the percent-encoding of a value, e.g., of a textual field sent by the server.
//
// Invalid escape sequences are kept verbatim.
func Unquote(value string) string {
	if !strings.Contains(value, "%") {
		return value
	}

	var b strings.Builder
	b.Grow(len(value))

	for i := 0; i < len(value); i++ {
		if value[i] == '%' && i+2 < len(value) {
			if n, err := strconv.ParseUint(value[i+1:i+3], 16, 8); err == nil {
				b.WriteByte(byte(n))
				i += 2
				continue
			}
		}
		b.WriteByte(value[i])
	}

	return b.String()
}

// FormatFloat renders a float without a trailing ".0" for integral values.
func FormatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// FormatInt renders an integer as plain decimal.
func FormatInt(v int64) string {
	return strconv.FormatInt(v, 10)
}

// param is a single key-value pair of a request.
type param struct {
	key   string
	value string
}

// Params is an ordered multimap of request parameters. The zero value is ready to use.
type Params struct {
	params []param
}

// Add a string parameter.
func (p *Params) Add(key, value string) {
	p.params = append(p.params, param{key: key, value: value})
}

// AddInt adds an integer parameter.
func (p *Params) AddInt(key string, value int64) {
	p.Add(key, FormatInt(value))
}

// AddFloat adds a float parameter.
func (p *Params) AddFloat(key string, value float64) {
	p.Add(key, FormatFloat(value))
}

// AddBool adds a boolean parameter as "true" or "false".
func (p *Params) AddBool(key string, value bool) {
	p.Add(key, strconv.FormatBool(value))
}

// addLimit adds a numeric parameter following the sentinel conventions: DefaultValue omits the parameter, Unlimited
// is rendered as "unlimited" and Unfiltered as "unfiltered".
func (p *Params) addLimit(key string, value float64) {
	switch {
	case value == DefaultValue:
	case value == Unlimited:
		p.Add(key, "unlimited")
	case value == Unfiltered:
		p.Add(key, "unfiltered")
	default:
		p.AddFloat(key, value)
	}
}

// Get the first value for a key.
func (p *Params) Get(key string) (value string, ok bool) {
	for _, prm := range p.params {
		if prm.key == key {
			return prm.value, true
		}
	}
	return "", false
}

// Len returns the amount of parameters, counting duplicated keys.
func (p *Params) Len() int {
	return len(p.params)
}

// clone creates a deep copy.
func (p *Params) clone() Params {
	return Params{params: append([]param(nil), p.params...)}
}

// writeTo appends all parameters as "key=value&" to the builder.
func (p *Params) writeTo(b *strings.Builder) {
	for _, prm := range p.params {
		writeParam(b, prm.key, prm.value)
	}
}

func writeParam(b *strings.Builder, key, value string) {
	b.WriteString(key)
	b.WriteByte('=')
	b.WriteString(Encode(value))
	b.WriteByte('&')
}
