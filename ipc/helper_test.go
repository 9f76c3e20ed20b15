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

// helper_test.go runs a full server-side stack over one in-memory duplex
// connection: codec, connection handler, middleware chain and router, with
// a raw protocol client on the other end.
package ipc_test

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"net"
	"time"

	liberr "github.com/nabbar/golib/errors"

	libipc "github.com/nabbar/assistd/ipc"
	libmid "github.com/nabbar/assistd/middleware"
	libprt "github.com/nabbar/assistd/protocol"
	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
	libtpt "github.com/nabbar/assistd/transport"
)

type testPeer struct {
	con net.Conn
	rdr libprt.Reader
	wrt libprt.Writer
	rsp chan *libmsg.Response
	cnl context.CancelFunc
}

// startStack serves cfg+routes on one side of a net.Pipe and returns the
// client side wrapped with the frame codec and a response pump.
func startStack(cfg libipc.Config, routes ...librtr.Route) *testPeer {
	rtr := librtr.New()

	for _, r := range routes {
		if err := rtr.Register(r); err != nil {
			panic(err)
		}
	}

	rtr.Freeze()

	trl := libmid.NewTranslator(nil)
	lim := libmid.NewRateLimit(libmid.RateConfig{Default: libmid.RateClass{Rate: 10000, Burst: 10000}}, trl)

	h := libmid.Build(
		libmid.NewInvoke(trl),
		libmid.NewTrace(nil),
		libmid.NewAuth(libmid.AuthConfig{}, nil, trl),
		libmid.NewResolve(rtr, trl),
		lim,
		libmid.NewValidate(trl),
	)

	mgr := libipc.New(cfg, h, trl, nil)
	mgr.RegisterFuncClosed(lim.Forget)
	mgr.RegisterFuncClosed(trl.Forget)

	srv, clt := net.Pipe()

	ctx, cnl := context.WithCancel(context.Background())

	go mgr.Handler()(ctx, srv, libtpt.Peer{})

	p := &testPeer{
		con: clt,
		rdr: libprt.NewReader(clt),
		wrt: libprt.NewWriter(clt),
		rsp: make(chan *libmsg.Response, 64),
		cnl: cnl,
	}

	go func() {
		defer close(p.rsp)

		for {
			frm, err := p.rdr.ReadFrame()
			if err != nil {
				return
			}

			if rsp, er := libmsg.DecodeResponse(frm); er == nil {
				p.rsp <- rsp
			}
		}
	}()

	return p
}

func (p *testPeer) close() {
	p.cnl()
	_ = p.con.Close()
}

func (p *testPeer) send(req *libmsg.Request) liberr.Error {
	bdy, err := json.Marshal(req)
	if err != nil {
		panic(err)
	}

	return p.wrt.WriteFrame(bdy)
}

// sendRaw pushes arbitrary wire bytes, for malformed frame scenarios.
func (p *testPeer) sendRaw(raw []byte) error {
	for len(raw) > 0 {
		n, err := p.con.Write(raw)
		if err != nil {
			return err
		}
		raw = raw[n:]
	}

	return nil
}

func (p *testPeer) next(timeout time.Duration) *libmsg.Response {
	select {
	case rsp := <-p.rsp:
		return rsp
	case <-time.After(timeout):
		return nil
	}
}

func rawHeader(length uint32) []byte {
	var hdr [libprt.HeaderSize]byte
	binary.BigEndian.PutUint32(hdr[:], length)
	return hdr[:]
}

func echoRoute() librtr.Route {
	return librtr.Route{
		Method:  libmsg.MethodQuery,
		Pattern: "/echo",
		Handler: func(_ context.Context, c *librtr.Call) (interface{}, liberr.Error) {
			return c.Req.Params, nil
		},
	}
}

func waitRoute(block <-chan struct{}) librtr.Route {
	return librtr.Route{
		Method:  libmsg.MethodQuery,
		Pattern: "/wait",
		Handler: func(ctx context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
			select {
			case <-block:
				return "done", nil
			case <-ctx.Done():
				return nil, libmid.ErrorCanceled.Error(ctx.Err())
			}
		},
	}
}

func ingestRoute() librtr.Route {
	return librtr.Route{
		Method:  libmsg.MethodStreamChunk,
		Pattern: "/ingest",
		Stream:  true,
		Handler: func(_ context.Context, c *librtr.Call) (interface{}, liberr.Error) {
			return map[string]interface{}{"bytes": len(c.Req.Body)}, nil
		},
	}
}
