// Copyright (c) 2024 John Millikin <john@john-millikin.com>
//
// Permission to use, copy, modify, and/or distribute this software for any
// purpose with or without fee is hereby granted.
//
// THE SOFTWARE IS PROVIDED "AS IS" AND THE AUTHOR DISCLAIMS ALL WARRANTIES WITH
// REGARD TO THIS SOFTWARE INCLUDING ALL IMPLIED WARRANTIES OF MERCHANTABILITY
// AND FITNESS. IN NO EVENT SHALL THE AUTHOR BE LIABLE FOR ANY SPECIAL, DIRECT,
// INDIRECT, OR CONSEQUENTIAL DAMAGES OR ANY DAMAGES WHATSOEVER RESULTING FROM
// LOSS OF USE, DATA OR PROFITS, WHETHER IN AN ACTION OF CONTRACT, NEGLIGENCE OR
// OTHER TORTIOUS ACTION, ARISING OUT OF OR IN CONNECTION WITH THE USE OR
// PERFORMANCE OF THIS SOFTWARE.
//
// SPDX-License-Identifier: 0BSD

package main

import (
	"errors"
	"os"
	"path/filepath"
)

type outputFile struct {
	path string
	data []byte
}

// writeFiles writes every file to a temporary sibling first and renames them
// into place only once all of them were written, so a failure leaves no
// partial output behind.
func writeFiles(files []outputFile) error {
	temps := make([]string, 0, len(files))
	cleanup := func() {
		for _, temp := range temps {
			os.Remove(temp)
		}
	}
	for _, file := range files {
		fp, err := os.CreateTemp(filepath.Dir(file.path), "."+filepath.Base(file.path)+".*")
		if err != nil {
			cleanup()
			return err
		}
		temps = append(temps, fp.Name())
		chmodErr := fp.Chmod(0o644)
		_, writeErr := fp.Write(file.data)
		closeErr := fp.Close()
		if err := errors.Join(chmodErr, writeErr, closeErr); err != nil {
			cleanup()
			return err
		}
	}
	// The first file is replaced last, so it only changes once every file
	// after it is in place.
	for ii := len(files) - 1; ii >= 0; ii-- {
		if err := os.Rename(temps[ii], files[ii].path); err != nil {
			cleanup()
			return err
		}
	}
	return nil
}
