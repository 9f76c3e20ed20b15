//go:build windows

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

// Package pipe implements the Windows transport backend: a named pipe whose
// security descriptor restricts access to the owning user. Peer credentials
// are not resolved per connection; the ACL is the admission control.
package pipe

import (
	"sync"
	"sync/atomic"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libtpt "github.com/nabbar/assistd/transport"
)

// ServerPipe is the named pipe implementation of transport.Server.
type ServerPipe interface {
	libtpt.Server
}

// New returns an unbound server for the given config. Address is the full
// pipe path, e.g. `\\.\pipe\assistd-<user>-<env>-daemon`.
func New(h libtpt.Handler, cfg libtpt.ServerConfig, log liblog.FuncLog) (ServerPipe, liberr.Error) {
	if h == nil || cfg.Address == "" {
		return nil, libtpt.ErrorParamEmpty.Error(nil)
	}

	s := &srv{
		m:   sync.RWMutex{},
		h:   h,
		c:   cfg,
		l:   log,
		cnt: new(atomic.Int64),
		run: new(atomic.Bool),
		gon: new(atomic.Bool),
	}

	s.gon.Store(true)

	return s, nil
}
