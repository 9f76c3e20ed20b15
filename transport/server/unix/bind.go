//go:build linux || darwin

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

package unix

import (
	"errors"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	liberr "github.com/nabbar/golib/errors"

	libtpt "github.com/nabbar/assistd/transport"
)

func isClosedError(e error) bool {
	return errors.Is(e, net.ErrClosed) || strings.Contains(e.Error(), "use of closed network connection")
}

func (o *srv) bind() (net.Listener, liberr.Error) {
	dir := filepath.Dir(o.c.Address)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, libtpt.ErrorBindListen.Error(err)
	}

	if inf, err := os.Stat(dir); err != nil {
		return nil, libtpt.ErrorBindListen.Error(err)
	} else if inf.Mode().Perm()&0077 != 0 {
		return nil, libtpt.ErrorBindDirPerm.Error(nil)
	}

	// a leftover socket file from a dead daemon refuses the bind; probe it
	// and clear it when nobody answers
	if _, err := os.Stat(o.c.Address); err == nil {
		if con, e := net.DialTimeout("unix", o.c.Address, 250*time.Millisecond); e == nil {
			_ = con.Close()
			return nil, libtpt.ErrorBindListen.Error(nil)
		}

		_ = os.Remove(o.c.Address)
	}

	lis, err := net.Listen("unix", o.c.Address)
	if err != nil {
		return nil, libtpt.ErrorBindListen.Error(err)
	}

	prm := o.c.PermFile.FileMode()
	if prm == 0 {
		prm = 0600
	}

	if err = os.Chmod(o.c.Address, prm); err != nil {
		_ = lis.Close()
		_ = os.Remove(o.c.Address)
		return nil, libtpt.ErrorBindListen.Error(err)
	}

	if o.c.GroupPerm >= 0 {
		if err = os.Chown(o.c.Address, os.Geteuid(), int(o.c.GroupPerm)); err != nil {
			_ = lis.Close()
			_ = os.Remove(o.c.Address)
			return nil, libtpt.ErrorBindListen.Error(err)
		}
	}

	return lis, nil
}
