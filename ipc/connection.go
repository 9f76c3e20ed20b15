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
	"encoding/json"
	"net"
	"sync"
	"time"

	libuid "github.com/hashicorp/go-uuid"
	liberr "github.com/nabbar/golib/errors"
	loglvl "github.com/nabbar/golib/logger/level"

	libmid "github.com/nabbar/assistd/middleware"
	libprt "github.com/nabbar/assistd/protocol"
	libmsg "github.com/nabbar/assistd/protocol/message"
	libstm "github.com/nabbar/assistd/protocol/stream"
	librtr "github.com/nabbar/assistd/router"
	libtpt "github.com/nabbar/assistd/transport"
)

type conn struct {
	g   *mgr
	i   string
	n   net.Conn
	p   libtpt.Peer
	r   libprt.Reader
	w   libprt.Writer
	q   chan []byte
	a   libstm.Assembler
	m   sync.Mutex
	inf map[string]context.CancelFunc
	wg  sync.WaitGroup
	cnl context.CancelFunc
	cid string // connector identity once a child authenticated
}

func newConn(g *mgr, id string, n net.Conn, p libtpt.Peer) *conn {
	return &conn{
		g:   g,
		i:   id,
		n:   n,
		p:   p,
		r:   libprt.NewReader(n),
		w:   libprt.NewWriter(n),
		q:   make(chan []byte, g.c.WriteQueue),
		a:   libstm.New(g.c.MaxStreamSize, g.c.StreamDeadline),
		inf: make(map[string]context.CancelFunc),
	}
}

func (o *conn) serve(ctx context.Context) {
	ctx, cnl := context.WithCancel(ctx)
	o.cnl = cnl

	defer func() {
		cnl()
		o.cancelInflight()
		o.wg.Wait()
		close(o.q)
		o.a.Close()
	}()

	go o.writer(ctx)

	for {
		frm, err := o.r.ReadFrame()

		if err != nil {
			switch {
			case err.HasCode(libprt.ErrorStreamClosed), err.HasCode(libprt.ErrorFrameTruncated):
				return

			case err.HasCode(libprt.ErrorFrameTooLarge):
				// the oversize body was never consumed; the stream is
				// unrecoverable and the connection ends after the report
				o.reply(ctx, o.envelope(nil, err))
				return

			default:
				o.reply(ctx, o.envelope(nil, err))
				continue
			}
		}

		if ctx.Err() != nil {
			return
		}

		o.dispatch(ctx, frm)
	}
}

// envelope builds an error response outside the pipeline, for protocol
// failures happening before a request exists.
func (o *conn) envelope(req *libmsg.Request, err liberr.Error) *libmsg.Response {
	tid, _ := libuid.GenerateUUID()

	return o.g.t.Envelope(&librtr.Call{
		Req:     req,
		Peer:    o.p,
		ConnID:  o.i,
		TraceID: tid,
	}, err)
}

// salvageCorrelation extracts a correlation id from an envelope that failed
// schema validation, so the peer can still match the failure.
func salvageCorrelation(frm []byte) *libmsg.Request {
	var loose struct {
		CorrelationID string `json:"correlation_id"`
	}

	if json.Unmarshal(frm, &loose) != nil || loose.CorrelationID == "" {
		return nil
	}

	return &libmsg.Request{CorrelationID: loose.CorrelationID}
}

func (o *conn) dispatch(ctx context.Context, frm []byte) {
	req, err := libmsg.DecodeRequest(frm)

	if err != nil {
		o.reply(ctx, o.envelope(salvageCorrelation(frm), err))
		return
	}

	if req.Method == libmsg.MethodStreamChunk {
		var done bool

		if req, done = o.feedStream(ctx, req); !done {
			return
		}
	}

	rtx, rnl := context.WithCancel(ctx)

	if err = o.admit(req.CorrelationID, rnl); err != nil {
		rnl()
		o.reply(ctx, o.envelope(req, err))
		return
	}

	o.wg.Add(1)

	go func() {
		defer func() {
			rnl()
			o.untrack(req.CorrelationID)
			o.wg.Done()
		}()

		call := &librtr.Call{
			Req:         req,
			Peer:        o.p,
			ConnID:      o.i,
			ConnectorID: o.connector(),
		}

		rsp := o.g.h(rtx, call)

		if call.ConnectorID != "" {
			o.setConnector(call.ConnectorID)
		}

		o.reply(ctx, rsp)
	}()
}

// feedStream accumulates one STREAM_CHUNK frame. It returns the rebuilt
// request once the session completes; intermediate chunks are acked
// immediately.
func (o *conn) feedStream(ctx context.Context, req *libmsg.Request) (*libmsg.Request, bool) {
	var chk libstm.Chunk

	if err := json.Unmarshal(req.Body, &chk); err != nil {
		o.reply(ctx, o.envelope(req, libmsg.ErrorEnvelopeInvalid.Error(err)))
		return nil, false
	}

	pay, done, err := o.a.Feed(&chk)

	if err != nil {
		o.reply(ctx, o.envelope(req, err))
		return nil, false
	}

	if !done {
		tid, _ := libuid.GenerateUUID()
		o.reply(ctx, &libmsg.Response{
			CorrelationID: req.CorrelationID,
			Status:        libmsg.StatusOK,
			Data: map[string]interface{}{
				"session_id": chk.SessionID,
				"received":   chk.Index,
			},
			TraceID: tid,
		})
		return nil, false
	}

	rebuilt := *req
	rebuilt.Body = pay

	return &rebuilt, true
}

// admit reserves an inflight slot for the correlation id. The budget cap
// refuses with saturation; a duplicate id still inflight is a protocol
// violation, never a second dispatch.
func (o *conn) admit(cid string, cnl context.CancelFunc) liberr.Error {
	o.m.Lock()
	defer o.m.Unlock()

	if len(o.inf) >= o.g.c.MaxInflight {
		return libmid.ErrorConnSaturated.Error(nil)
	}

	if _, dup := o.inf[cid]; dup {
		return libmsg.ErrorEnvelopeInvalid.Error(nil)
	}

	o.inf[cid] = cnl

	return nil
}

func (o *conn) untrack(cid string) {
	o.m.Lock()
	defer o.m.Unlock()
	delete(o.inf, cid)
}

func (o *conn) cancelInflight() {
	o.m.Lock()
	defer o.m.Unlock()

	for _, cnl := range o.inf {
		cnl()
	}
}

func (o *conn) connector() string {
	o.m.Lock()
	defer o.m.Unlock()
	return o.cid
}

func (o *conn) setConnector(id string) {
	o.m.Lock()
	defer o.m.Unlock()
	o.cid = id
}

func (o *conn) reply(ctx context.Context, rsp *libmsg.Response) {
	if rsp == nil {
		return
	}

	bdy, err := rsp.Encode()
	if err != nil {
		o.g.logger().Entry(loglvl.ErrorLevel, "cannot encode response").
			FieldAdd("conn", o.i).
			ErrorAdd(true, err).
			Check(loglvl.NilLevel)
		return
	}

	stall := o.g.c.WriteStallDeadline.Time()

	select {
	case o.q <- bdy:
		return
	case <-ctx.Done():
		return
	default:
	}

	// queue full: wait up to the stall deadline, then tear the connection down
	tmr := time.NewTimer(stall)
	defer tmr.Stop()

	select {
	case o.q <- bdy:
	case <-ctx.Done():
	case <-tmr.C:
		o.g.logger().Entry(loglvl.ErrorLevel, "writer queue stalled, closing connection").
			FieldAdd("conn", o.i).
			Log()
		o.cnl()
		_ = o.n.Close()
	}
}

func (o *conn) writer(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			// flush whatever is already queued before the close propagates
			for {
				select {
				case bdy, ok := <-o.q:
					if !ok || bdy == nil {
						return
					}
					if err := o.w.WriteFrame(bdy); err != nil {
						return
					}
				default:
					return
				}
			}

		case bdy, ok := <-o.q:
			if !ok || bdy == nil {
				return
			}

			if err := o.w.WriteFrame(bdy); err != nil {
				o.cnl()
				_ = o.n.Close()
				return
			}
		}
	}
}
