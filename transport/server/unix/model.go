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
	"context"
	"net"
	"os"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	libtpt "github.com/nabbar/assistd/transport"
)

const (
	backoffInit    = 100 * time.Millisecond
	backoffMax     = 3 * time.Second
	acceptFatalMax = 8
)

type srv struct {
	m   sync.RWMutex
	h   libtpt.Handler
	c   libtpt.ServerConfig
	l   liblog.FuncLog
	fe  libtpt.FuncError
	fi  libtpt.FuncInfo
	lis net.Listener
	cnl context.CancelFunc
	cnt *atomic.Int64
	run *atomic.Bool
	gon *atomic.Bool
}

func (o *srv) logger() liblog.Logger {
	o.m.RLock()
	defer o.m.RUnlock()

	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *srv) fctError(e error) {
	o.m.RLock()
	defer o.m.RUnlock()

	if o.fe != nil && e != nil {
		o.fe(e)
	}
}

func (o *srv) fctInfo(local, remote net.Addr, state libtpt.ConnState) {
	o.m.RLock()
	defer o.m.RUnlock()

	if o.fi != nil {
		o.fi(local, remote, state)
	}
}

func (o *srv) RegisterFuncError(f libtpt.FuncError) {
	o.m.Lock()
	defer o.m.Unlock()
	o.fe = f
}

func (o *srv) RegisterFuncInfo(f libtpt.FuncInfo) {
	o.m.Lock()
	defer o.m.Unlock()
	o.fi = f
}

func (o *srv) IsRunning() bool {
	return o.run.Load()
}

func (o *srv) IsGone() bool {
	return o.gon.Load()
}

func (o *srv) OpenConnections() int64 {
	return o.cnt.Load()
}

func (o *srv) getListener() net.Listener {
	o.m.RLock()
	defer o.m.RUnlock()
	return o.lis
}

func (o *srv) Listen(ctx context.Context) liberr.Error {
	if o == nil {
		return libtpt.ErrorParamEmpty.Error(nil)
	}

	lis, err := o.bind()
	if err != nil {
		return err
	}

	ctx, cnl := context.WithCancel(ctx)

	o.m.Lock()
	o.lis = lis
	o.cnl = cnl
	o.m.Unlock()

	o.run.Store(true)
	o.gon.Store(false)

	defer func() {
		cnl()
		_ = lis.Close()
		_ = os.Remove(o.c.Address)
		o.run.Store(false)
		o.gon.Store(true)
		o.logger().Entry(loglvl.InfoLevel, "listener stopped").FieldAdd("address", o.c.Address).Log()
	}()

	go func() {
		<-ctx.Done()
		_ = lis.Close()
	}()

	o.logger().Entry(loglvl.InfoLevel, "listener accepting connections").FieldAdd("address", o.c.Address).Log()

	var (
		bck = backoffInit
		bad int
	)

	for {
		con, e := lis.Accept()

		if e != nil {
			if ctx.Err() != nil || isClosedError(e) {
				return nil
			}

			bad++
			o.fctError(e)

			if bad >= acceptFatalMax {
				return libtpt.ErrorServerAccept.Error(e)
			}

			time.Sleep(bck)

			if bck *= 2; bck > backoffMax {
				bck = backoffMax
			}

			continue
		}

		bad = 0
		bck = backoffInit

		peer, e := peerCred(con)

		if e != nil {
			o.fctError(libtpt.ErrorPeerCredentials.Error(e))
			_ = con.Close()
			continue
		}

		if peer.Valid && int(peer.UID) != os.Geteuid() {
			o.fctError(libtpt.ErrorPeerCredentials.Error(nil))
			_ = con.Close()
			continue
		}

		if o.c.ConIdleTimeout > 0 {
			con = &idleConn{Conn: con, d: o.c.ConIdleTimeout.Time()}
		}

		o.cnt.Add(1)
		o.fctInfo(con.LocalAddr(), con.RemoteAddr(), libtpt.ConnNew)

		go func(c net.Conn, p libtpt.Peer) {
			defer func() {
				_ = c.Close()
				o.cnt.Add(-1)
				o.fctInfo(c.LocalAddr(), c.RemoteAddr(), libtpt.ConnClosed)
			}()

			o.h(ctx, c, p)
		}(con, peer)
	}
}

func (o *srv) Shutdown(ctx context.Context) liberr.Error {
	if o == nil {
		return libtpt.ErrorParamEmpty.Error(nil)
	}

	o.m.RLock()
	cnl := o.cnl
	o.m.RUnlock()

	if cnl != nil {
		cnl()
	}

	tck := time.NewTicker(10 * time.Millisecond)
	defer tck.Stop()

	for o.cnt.Load() > 0 {
		select {
		case <-ctx.Done():
			return libtpt.ErrorShutdownTimeout.Error(ctx.Err())
		case <-tck.C:
		}
	}

	return nil
}

// idleConn arms a read deadline before each read so that silent peers are
// eventually collected.
type idleConn struct {
	net.Conn
	d time.Duration
}

func (o *idleConn) Read(p []byte) (int, error) {
	if err := o.Conn.SetReadDeadline(time.Now().Add(o.d)); err != nil {
		return 0, err
	}

	return o.Conn.Read(p)
}
