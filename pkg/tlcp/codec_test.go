// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package tlcp

import (
	"strings"
	"testing"
)

func TestEncodeReserved(t *testing.T) {
	tests := []struct {
		in  string
		out string
	}{
		{"", ""},
		{"hello world", "hello world"},
		{"a&b=c", "a%26b%3Dc"},
		{"100%", "100%25"},
		{"1+1", "1%2B1"},
		{"line\r\nbreak", "line%0D%0Abreak"},
		{"grüße €", "grüße €"},
		{"?/#;,", "?/#;,"},
	}

	for _, test := range tests {
		if out := Encode(test.in); out != test.out {
			t.Fatalf("Encode(%q) = %q, expected %q", test.in, out, test.out)
		}
	}
}

func TestEncodeUnquoteRoundTrip(t *testing.T) {
	values := []string{
		"plain",
		"a&b=c%d+e\r\nf",
		"%%%===&&&",
		"ünïcödé & 日本語 = 100%",
		"%zz is not an escape",
	}

	for _, v := range values {
		enc := Encode(v)
		if dec := Unquote(enc); dec != v {
			t.Fatalf("round trip of %q failed: encoded %q, decoded %q", v, enc, dec)
		}

		if strings.ContainsAny(enc, "\r\n&=+") {
			t.Fatalf("encoded value %q contains reserved characters", enc)
		}
	}
}

func TestEncodeKeepsNonASCII(t *testing.T) {
	in := "température=25°"
	enc := Encode(in)

	if !strings.Contains(enc, "température") || !strings.Contains(enc, "25°") {
		t.Fatalf("non-ASCII bytes were escaped: %q", enc)
	}
}

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in  float64
		out string
	}{
		{10.0, "10"},
		{0.5, "0.5"},
		{1234567, "1234567"},
		{-3, "-3"},
		{2.25, "2.25"},
	}

	for _, test := range tests {
		if out := FormatFloat(test.in); out != test.out {
			t.Fatalf("FormatFloat(%v) = %q, expected %q", test.in, out, test.out)
		}
	}
}

func TestParamsLimits(t *testing.T) {
	var p Params
	p.addLimit("default", DefaultValue)
	p.addLimit("unlimited", Unlimited)
	p.addLimit("unfiltered", Unfiltered)
	p.addLimit("value", 12.5)

	if _, ok := p.Get("default"); ok {
		t.Fatal("DefaultValue was not omitted")
	}
	if v, _ := p.Get("unlimited"); v != "unlimited" {
		t.Fatalf("expected unlimited, got %q", v)
	}
	if v, _ := p.Get("unfiltered"); v != "unfiltered" {
		t.Fatalf("expected unfiltered, got %q", v)
	}
	if v, _ := p.Get("value"); v != "12.5" {
		t.Fatalf("expected 12.5, got %q", v)
	}
	if p.Len() != 3 {
		t.Fatalf("expected three parameters, got %d", p.Len())
	}
}
