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

package ipc

import (
	"context"
	"net"
	"sync"
	"sync/atomic"

	libuid "github.com/hashicorp/go-uuid"
	liblog "github.com/nabbar/golib/logger"

	libmid "github.com/nabbar/assistd/middleware"
	libtpt "github.com/nabbar/assistd/transport"
)

type mgr struct {
	m   sync.RWMutex
	c   Config
	h   libmid.Handler
	t   libmid.Translator
	l   liblog.FuncLog
	fc  []FuncClosed
	cnt *atomic.Int64
}

func newManager(cfg Config, h libmid.Handler, trl libmid.Translator, log liblog.FuncLog) *mgr {
	return &mgr{
		m:   sync.RWMutex{},
		c:   cfg,
		h:   h,
		t:   trl,
		l:   log,
		cnt: new(atomic.Int64),
	}
}

func (o *mgr) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *mgr) RegisterFuncClosed(f FuncClosed) {
	o.m.Lock()
	defer o.m.Unlock()

	if f != nil {
		o.fc = append(o.fc, f)
	}
}

func (o *mgr) fctClosed(connID string) {
	o.m.RLock()
	defer o.m.RUnlock()

	for _, f := range o.fc {
		f(connID)
	}
}

func (o *mgr) OpenConnections() int64 {
	return o.cnt.Load()
}

func (o *mgr) Handler() libtpt.Handler {
	return func(ctx context.Context, con net.Conn, peer libtpt.Peer) {
		cid, err := libuid.GenerateUUID()
		if err != nil {
			cid = con.RemoteAddr().String()
		}

		o.cnt.Add(1)

		defer func() {
			o.cnt.Add(-1)
			o.fctClosed(cid)
		}()

		newConn(o, cid, con, peer).serve(ctx)
	}
}
