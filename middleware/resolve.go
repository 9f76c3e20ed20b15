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

	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

type stpResolve struct {
	r librtr.Router
	t Translator
}

// NewResolve returns the route resolution step. It runs before rate
// limiting so that downstream steps can key on the route class.
func NewResolve(rtr librtr.Router, trl Translator) Step {
	return &stpResolve{
		r: rtr,
		t: trl,
	}
}

func (o *stpResolve) Name() string {
	return "resolve"
}

func (o *stpResolve) Wrap(next Handler) Handler {
	return func(ctx context.Context, c *librtr.Call) *libmsg.Response {
		rte, prm, err := o.r.Resolve(c.Req.Method, c.Req.Path)

		if err != nil {
			return o.t.Envelope(c, err)
		}

		c.Route = rte
		c.Params = prm

		return next(ctx, c)
	}
}
