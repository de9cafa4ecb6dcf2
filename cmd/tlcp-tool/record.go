// SPDX-FileCopyrightText: 2026 The tlcp-go Authors
//
// SPDX-License-Identifier: GPL-3.0-or-later

package main

import (
	"bufio"
	"io"
	"os"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/ulikunitz/xz"
)

// recorder appends data notifications to a file, xz compressed for a ".xz" suffix.
type recorder struct {
	file   *os.File
	xz     *xz.Writer
	buffer *bufio.Writer
}

func newRecorder(filename string) (r *recorder, err error) {
	r = &recorder{}
	if r.file, err = os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644); err != nil {
		return nil, err
	}

	var w io.Writer = r.file
	if strings.HasSuffix(filename, ".xz") {
		if r.xz, err = xz.NewWriter(r.file); err != nil {
			_ = r.file.Close()
			return nil, err
		}
		w = r.xz
	}

	r.buffer = bufio.NewWriter(w)
	return r, nil
}

func (r *recorder) record(line string) error {
	if _, err := r.buffer.WriteString(line); err != nil {
		return err
	}
	return r.buffer.WriteByte('\n')
}

// Close flushes all records.
func (r *recorder) Close() (errs error) {
	if err := r.buffer.Flush(); err != nil {
		errs = multierror.Append(errs, err)
	}
	if r.xz != nil {
		if err := r.xz.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := r.file.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return
}
