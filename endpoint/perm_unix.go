//go:build !windows

/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

package endpoint

import (
	"os"
	"syscall"

	liberr "github.com/nabbar/golib/errors"
)

// checkOwnerOnly refuses a descriptor readable or writable by anyone other
// than the current user.
func checkOwnerOnly(file string) liberr.Error {
	inf, err := os.Stat(file)

	if err != nil {
		return ErrorDescriptorRead.Error(err)
	}

	if inf.Mode().Perm()&0077 != 0 {
		return ErrorDescriptorPerm.Error(nil)
	}

	if st, ok := inf.Sys().(*syscall.Stat_t); ok {
		if int(st.Uid) != os.Geteuid() {
			return ErrorDescriptorPerm.Error(nil)
		}
	}

	return nil
}
