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
	"sync"
	"time"

	libuid "github.com/hashicorp/go-uuid"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	libend "github.com/nabbar/assistd/endpoint"
	libfcd "github.com/nabbar/assistd/facade"
	libprt "github.com/nabbar/assistd/protocol"
	libmsg "github.com/nabbar/assistd/protocol/message"
	libstm "github.com/nabbar/assistd/protocol/stream"
	librtr "github.com/nabbar/assistd/router"
	libsup "github.com/nabbar/assistd/supervisor"
)

// CollapseWindow bounds the interval in which identical (code, route,
// connection) errors share one envelope and one log record.
const CollapseWindow = 5 * time.Second

// Translator converts any internal failure into a bounded, safe error
// envelope, assigns the error id, and emits the single matching server-side
// log record.
type Translator interface {
	// Envelope builds the error response for one failed call. The raw error
	// context is logged internally under the generated error id; repeated
	// identical failures within CollapseWindow reuse the first id silently.
	Envelope(c *librtr.Call, err liberr.Error) *libmsg.Response

	// OK builds the success response for one call.
	OK(c *librtr.Call, data interface{}) *libmsg.Response

	// Wire maps an internal error chain to its stable wire code.
	Wire(err liberr.Error) libmsg.Code

	// Forget drops the collapse state of one closed connection.
	Forget(connID string)
}

type collapseKey struct {
	cod libmsg.Code
	rte string
	con string
}

type collapseEnt struct {
	eid string
	exp time.Time
	cnt int
}

type trl struct {
	m sync.Mutex
	l liblog.FuncLog
	c map[collapseKey]*collapseEnt
}

// NewTranslator returns a Translator logging through log.
func NewTranslator(log liblog.FuncLog) Translator {
	return &trl{
		m: sync.Mutex{},
		l: log,
		c: make(map[collapseKey]*collapseEnt),
	}
}

func (o *trl) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

// Wire maps internal error codes onto the stable wire taxonomy. Unknown
// failures deliberately collapse to HANDLER_FAILED.
func (o *trl) Wire(err liberr.Error) libmsg.Code {
	switch {
	case err == nil:
		return libmsg.CodeHandlerFailed

	case err.HasCode(libprt.ErrorFrameTooLarge):
		return libmsg.CodeFrameTooLarge
	case err.HasCode(libprt.ErrorFrameTruncated):
		return libmsg.CodeFrameTruncated
	case err.HasCode(libprt.ErrorFrameMalformed):
		return libmsg.CodeFrameMalformed

	case err.HasCode(libmsg.ErrorEnvelopeInvalid):
		return libmsg.CodeProtocolInvalid
	case err.HasCode(libstm.ErrorChunkOrder), err.HasCode(libstm.ErrorChecksumMismatch), err.HasCode(libstm.ErrorStreamTooLarge):
		return libmsg.CodeProtocolInvalid
	case err.HasCode(libstm.ErrorSessionDeadline):
		return libmsg.CodeTimeout

	case err.HasCode(librtr.ErrorRouteNotFound):
		return libmsg.CodeNotFound
	case err.HasCode(librtr.ErrorMethodNotAllowed):
		return libmsg.CodeMethodNotAllowed

	case err.HasCode(ErrorValidation):
		return libmsg.CodeValidationFailed
	case err.HasCode(ErrorAuthDenied):
		return libmsg.CodeAuthDenied
	case err.HasCode(ErrorRateLimited):
		return libmsg.CodeRateLimited
	case err.HasCode(ErrorConnSaturated):
		return libmsg.CodeConnectionSaturated
	case err.HasCode(ErrorDeadline), err.HasCode(ErrorCanceled):
		return libmsg.CodeTimeout
	case err.HasCode(ErrorPanic):
		return libmsg.CodeHandlerFailed

	case err.HasCode(libsup.ErrorConnectorNotFound):
		return libmsg.CodeConnectorNotFound
	case err.HasCode(libsup.ErrorConnectorStartFailed):
		return libmsg.CodeConnectorStartFailed
	case err.HasCode(libsup.ErrorConnectorStateInvalid):
		return libmsg.CodeConnectorStateInvalid
	case err.HasCode(libsup.ErrorConnectorCrashloop):
		return libmsg.CodeConnectorCrashloop

	case err.HasCode(libfcd.ErrorNotRegistered):
		return libmsg.CodeDownstreamUnavailable
	case err.HasCode(libend.ErrorDescriptorRead), err.HasCode(libend.ErrorDescriptorInvalid):
		return libmsg.CodeDownstreamUnavailable
	}

	return libmsg.CodeHandlerFailed
}

func (o *trl) OK(c *librtr.Call, data interface{}) *libmsg.Response {
	rsp := &libmsg.Response{
		Status: libmsg.StatusOK,
		Data:   data,
	}

	if c != nil {
		rsp.TraceID = c.TraceID

		if c.Req != nil {
			rsp.CorrelationID = c.Req.CorrelationID
		}
	}

	return rsp
}

func (o *trl) Envelope(c *librtr.Call, err liberr.Error) *libmsg.Response {
	var (
		cod = o.Wire(err)
		key = collapseKey{cod: cod}
	)

	if c != nil {
		key.con = c.ConnID

		if c.Route != nil {
			key.rte = c.Route.Pattern
		} else if c.Req != nil {
			key.rte = c.Req.Path
		}
	}

	eid := o.collapse(key, c, err)

	env := &libmsg.Error{
		ErrorID:       eid,
		Code:          cod,
		UserMessage:   cod.UserMessage(),
		IsRecoverable: cod.IsRecoverable(),
		CanRetry:      cod.CanRetry(),
	}

	if d := cod.RetryAfter(); d > 0 {
		env.RetryAfterMs = d.Time().Milliseconds()
	}

	rsp := &libmsg.Response{
		Status: libmsg.StatusError,
		Error:  env,
	}

	if c != nil {
		rsp.TraceID = c.TraceID

		if c.Req != nil {
			rsp.CorrelationID = c.Req.CorrelationID
		}
	}

	return rsp
}

// collapse returns the error id for this occurrence, logging the full
// context exactly once per (code, route, connection) window.
func (o *trl) collapse(key collapseKey, c *librtr.Call, err liberr.Error) string {
	o.m.Lock()
	defer o.m.Unlock()

	now := time.Now()

	if ent, ok := o.c[key]; ok && now.Before(ent.exp) {
		ent.cnt++
		return ent.eid
	} else if ok && ent.cnt > 0 {
		o.logger().Entry(loglvl.WarnLevel, "suppressed repeated errors").
			FieldAdd("error_id", ent.eid).
			FieldAdd("code", key.cod.String()).
			FieldAdd("route", key.rte).
			FieldAdd("count", ent.cnt).
			Log()
	}

	eid, e := libuid.GenerateUUID()
	if e != nil {
		eid = "00000000-0000-0000-0000-000000000000"
	}

	o.c[key] = &collapseEnt{
		eid: eid,
		exp: now.Add(CollapseWindow),
	}

	ent := o.logger().Entry(loglvl.ErrorLevel, "request failed").
		FieldAdd("error_id", eid).
		FieldAdd("code", key.cod.String()).
		FieldAdd("route", key.rte)

	if c != nil {
		ent = ent.FieldAdd("trace_id", c.TraceID).
			FieldAdd("conn", c.ConnID).
			FieldAdd("peer_uid", c.Peer.UID).
			FieldAdd("peer_pid", c.Peer.PID)

		if c.Req != nil {
			keys := make([]string, 0, len(c.Req.Params))
			for k := range c.Req.Params {
				keys = append(keys, k)
			}
			ent = ent.FieldAdd("param_keys", keys)
		}
	}

	ent.ErrorAdd(true, err).Check(loglvl.NilLevel)

	return eid
}

func (o *trl) Forget(connID string) {
	o.m.Lock()
	defer o.m.Unlock()

	for k := range o.c {
		if k.con == connID {
			delete(o.c, k)
		}
	}
}
