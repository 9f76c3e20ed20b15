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

package middleware

import (
	"context"
	"time"

	libuid "github.com/hashicorp/go-uuid"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

type stpTrace struct {
	l liblog.FuncLog
}

// NewTrace returns the outermost step: it assigns the trace id and records
// method, path, peer and timing. Payloads are never logged here.
func NewTrace(log liblog.FuncLog) Step {
	return &stpTrace{
		l: log,
	}
}

func (o *stpTrace) Name() string {
	return "trace"
}

func (o *stpTrace) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *stpTrace) Wrap(next Handler) Handler {
	return func(ctx context.Context, c *librtr.Call) *libmsg.Response {
		if c.TraceID == "" {
			if tid, err := libuid.GenerateUUID(); err == nil {
				c.TraceID = tid
			}
		}

		beg := time.Now()
		rsp := next(ctx, c)

		ent := o.logger().Entry(loglvl.DebugLevel, "request served").
			FieldAdd("trace_id", c.TraceID).
			FieldAdd("conn", c.ConnID).
			FieldAdd("peer_uid", c.Peer.UID).
			FieldAdd("duration_ms", time.Since(beg).Milliseconds())

		if c.Req != nil {
			ent = ent.FieldAdd("method", c.Req.Method.String()).FieldAdd("path", c.Req.Path)
		}

		if rsp != nil {
			ent = ent.FieldAdd("status", rsp.Status.String())

			if rsp.TraceID == "" {
				rsp.TraceID = c.TraceID
			}
		}

		ent.Log()

		return rsp
	}
}
