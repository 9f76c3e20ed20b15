//go:build linux

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
	"net"

	"golang.org/x/sys/unix"

	libtpt "github.com/nabbar/assistd/transport"
)

// peerCred retrieves SO_PEERCRED for an accepted unix socket connection.
func peerCred(con net.Conn) (libtpt.Peer, error) {
	uc, ok := con.(*net.UnixConn)
	if !ok {
		return libtpt.Peer{}, nil
	}

	raw, err := uc.SyscallConn()
	if err != nil {
		return libtpt.Peer{}, err
	}

	var (
		crd *unix.Ucred
		cer error
	)

	err = raw.Control(func(fd uintptr) {
		crd, cer = unix.GetsockoptUcred(int(fd), unix.SOL_SOCKET, unix.SO_PEERCRED)
	})

	if err != nil {
		return libtpt.Peer{}, err
	} else if cer != nil {
		return libtpt.Peer{}, cer
	}

	return libtpt.Peer{
		PID:   crd.Pid,
		UID:   int32(crd.Uid),
		Valid: true,
	}, nil
}
