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
	"fmt"

	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

type invokeRes struct {
	d interface{}
	e liberr.Error
}

// NewInvoke returns the innermost handler: it bounds the business handler
// with the route deadline, recovers panics, and translates every failure
// into a safe envelope. A handler result arriving after the deadline is
// discarded.
func NewInvoke(trl Translator) Handler {
	return func(ctx context.Context, c *librtr.Call) *libmsg.Response {
		rte := c.Route

		if rte == nil || rte.Handler == nil {
			return trl.Envelope(c, librtr.ErrorRouteNotFound.Error(nil))
		}

		dla := rte.Deadline
		if dla == 0 {
			dla = librtr.DefaultDeadline
		}

		ctx, cnl := context.WithTimeout(ctx, dla.Time())
		defer cnl()

		res := make(chan invokeRes, 1)

		go func() {
			defer func() {
				if rec := recover(); rec != nil {
					//nolint #goerr113
					res <- invokeRes{e: ErrorPanic.Error(fmt.Errorf("handler panic: %v", rec))}
				}
			}()

			d, e := rte.Handler(ctx, c)
			res <- invokeRes{d: d, e: e}
		}()

		select {
		case <-ctx.Done():
			if ctx.Err() == context.DeadlineExceeded {
				return trl.Envelope(c, ErrorDeadline.Error(ctx.Err()))
			}
			return trl.Envelope(c, ErrorCanceled.Error(ctx.Err()))

		case r := <-res:
			if r.e != nil {
				return trl.Envelope(c, r.e)
			}
			return trl.OK(c, r.d)
		}
	}
}
