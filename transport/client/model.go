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

package client

import (
	"context"
	"encoding/json"
	"net"
	"sync"
	"time"

	libuid "github.com/hashicorp/go-uuid"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	libend "github.com/nabbar/assistd/endpoint"
	libprt "github.com/nabbar/assistd/protocol"
	libmsg "github.com/nabbar/assistd/protocol/message"
)

const reconnectInit = 250 * time.Millisecond

type cli struct {
	m   sync.Mutex
	c   Config
	l   liblog.FuncLog
	n   net.Conn
	w   libprt.Writer
	pnd map[string]chan *libmsg.Response
	tok bool // token already presented on this connection
}

func newClient(cfg Config, log liblog.FuncLog) *cli {
	return &cli{
		m:   sync.Mutex{},
		c:   cfg,
		l:   log,
		pnd: make(map[string]chan *libmsg.Response),
	}
}

func (o *cli) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *cli) IsConnected() bool {
	o.m.Lock()
	defer o.m.Unlock()
	return o.n != nil
}

func (o *cli) Connect(ctx context.Context) liberr.Error {
	o.m.Lock()
	defer o.m.Unlock()
	return o.connectLocked(ctx)
}

func (o *cli) connectLocked(ctx context.Context) liberr.Error {
	if o.n != nil {
		return nil
	}

	dsc, err := libend.Read(o.c.EndpointFile)
	if err != nil {
		return err
	}

	con, err := dial(ctx, dsc)
	if err != nil {
		return err
	}

	o.n = con
	o.w = libprt.NewWriter(con)
	o.tok = false

	go o.readLoop(con)

	return nil
}

// connectRetry dials with doubling backoff until the context ends.
func (o *cli) connectRetry(ctx context.Context) liberr.Error {
	var bck = reconnectInit

	for {
		o.m.Lock()
		err := o.connectLocked(ctx)
		o.m.Unlock()

		if err == nil {
			return nil
		}

		o.logger().Entry(loglvl.DebugLevel, "connect failed, retrying").
			ErrorAdd(true, err).
			Check(loglvl.NilLevel)

		tmr := time.NewTimer(bck)

		select {
		case <-ctx.Done():
			tmr.Stop()
			return ErrorNotConnected.Error(ctx.Err())
		case <-tmr.C:
		}

		if bck *= 2; bck > o.c.ReconnectMax.Time() {
			bck = o.c.ReconnectMax.Time()
		}
	}
}

// readLoop demultiplexes responses to their pending calls until the
// connection dies, then fails everything still pending.
func (o *cli) readLoop(con net.Conn) {
	rdr := libprt.NewReader(con)

	for {
		frm, err := rdr.ReadFrame()

		if err != nil {
			o.teardown(con)
			return
		}

		rsp, err := libmsg.DecodeResponse(frm)

		if err != nil {
			o.logger().Entry(loglvl.WarnLevel, "discarding undecodable response").
				ErrorAdd(true, err).
				Check(loglvl.NilLevel)
			continue
		}

		o.m.Lock()
		ch, ok := o.pnd[rsp.CorrelationID]

		if ok {
			delete(o.pnd, rsp.CorrelationID)
		}
		o.m.Unlock()

		if ok {
			ch <- rsp
		}
	}
}

// teardown closes one dead connection and fails its pending calls, leaving
// the client ready to reconnect.
func (o *cli) teardown(con net.Conn) {
	o.m.Lock()

	if o.n != con {
		o.m.Unlock()
		return
	}

	o.n = nil
	o.w = nil

	pnd := o.pnd
	o.pnd = make(map[string]chan *libmsg.Response)

	o.m.Unlock()

	_ = con.Close()

	for _, ch := range pnd {
		close(ch)
	}
}

func (o *cli) Close() error {
	o.m.Lock()
	con := o.n
	o.m.Unlock()

	if con != nil {
		o.teardown(con)
	}

	return nil
}

func (o *cli) Do(ctx context.Context, req *libmsg.Request) (*libmsg.Response, liberr.Error) {
	if req == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	if req.CorrelationID == "" {
		cid, err := libuid.GenerateUUID()
		if err != nil {
			return nil, ErrorRequestFailed.Error(err)
		}
		req.CorrelationID = cid
	}

	if err := o.connectRetry(ctx); err != nil {
		return nil, err
	}

	o.m.Lock()

	if o.n == nil {
		o.m.Unlock()
		return nil, ErrorNotConnected.Error(nil)
	}

	if !o.tok && o.c.Token != "" && req.Auth == nil {
		req.Auth = &libmsg.Auth{Token: o.c.Token}
		o.tok = true
	}

	ch := make(chan *libmsg.Response, 1)
	o.pnd[req.CorrelationID] = ch
	wrt := o.w
	con := o.n

	o.m.Unlock()

	bdy, e := json.Marshal(req)
	if e != nil {
		o.drop(req.CorrelationID)
		return nil, ErrorRequestFailed.Error(e)
	}

	if err := wrt.WriteFrame(bdy); err != nil {
		o.drop(req.CorrelationID)
		o.teardown(con)
		return nil, ErrorNotConnected.Error(err)
	}

	tmr := time.NewTimer(o.c.Timeout.Time())
	defer tmr.Stop()

	select {
	case rsp, ok := <-ch:
		if !ok || rsp == nil {
			return nil, ErrorNotConnected.Error(nil)
		}
		return rsp, nil

	case <-ctx.Done():
		o.drop(req.CorrelationID)
		return nil, ErrorRequestFailed.Error(ctx.Err())

	case <-tmr.C:
		o.drop(req.CorrelationID)
		return nil, ErrorRequestTimeout.Error(nil)
	}
}

func (o *cli) drop(cid string) {
	o.m.Lock()
	defer o.m.Unlock()
	delete(o.pnd, cid)
}

func (o *cli) Query(ctx context.Context, path string, params map[string]interface{}) (*libmsg.Response, liberr.Error) {
	return o.Do(ctx, &libmsg.Request{
		Method: libmsg.MethodQuery,
		Path:   path,
		Params: params,
	})
}

func (o *cli) Lifecycle(ctx context.Context, path string, params map[string]interface{}) (*libmsg.Response, liberr.Error) {
	return o.Do(ctx, &libmsg.Request{
		Method: libmsg.MethodLifecycle,
		Path:   path,
		Params: params,
	})
}

func (o *cli) Heartbeat(ctx context.Context, connectorID string, dataDelta int64) (*libmsg.Response, liberr.Error) {
	bdy, _ := json.Marshal(map[string]interface{}{
		"data_count": dataDelta,
	})

	return o.Do(ctx, &libmsg.Request{
		Method: libmsg.MethodHeartbeat,
		Path:   "/connectors/" + connectorID + "/heartbeat",
		Body:   bdy,
	})
}
