// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ulikunitz/xz"
)

func TestRecorder(t *testing.T) {
	lines := []string{"U,1,1,hello", "U,1,2,world|#", "EOS,1,1"}
	expected := strings.Join(lines, "\n") + "\n"

	tests := []struct {
		name       string
		compressed bool
	}{
		{"updates.log", false},
		{"updates.log.xz", true},
	}

	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			filename := filepath.Join(t.TempDir(), test.name)

			r, err := newRecorder(filename)
			if err != nil {
				t.Fatal(err)
			}
			for _, line := range lines {
				if err := r.record(line); err != nil {
					t.Fatal(err)
				}
			}
			if err := r.Close(); err != nil {
				t.Fatal(err)
			}

			f, err := os.Open(filename)
			if err != nil {
				t.Fatal(err)
			}
			defer f.Close()

			var src io.Reader = f
			if test.compressed {
				if src, err = xz.NewReader(f); err != nil {
					t.Fatal(err)
				}
			}

			data, err := io.ReadAll(src)
			if err != nil {
				t.Fatal(err)
			} else if string(data) != expected {
				t.Fatalf("expected %q, got %q", expected, data)
			}
		})
	}
}
