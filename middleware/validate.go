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

type stpValidate struct {
	t Translator
}

// NewValidate returns the validation step: per-route checks on params and
// body, connector-class admission, and stream opt-in enforcement. The
// envelope schema itself was already checked at decode time.
func NewValidate(trl Translator) Step {
	return &stpValidate{
		t: trl,
	}
}

func (o *stpValidate) Name() string {
	return "validate"
}

func (o *stpValidate) Wrap(next Handler) Handler {
	return func(ctx context.Context, c *librtr.Call) *libmsg.Response {
		rte := c.Route

		if rte == nil {
			return o.t.Envelope(c, librtr.ErrorRouteNotFound.Error(nil))
		}

		if rte.Class == ClassConnector && c.ConnectorID == "" {
			return o.t.Envelope(c, ErrorAuthDenied.Error(nil))
		}

		if c.Req.Method == libmsg.MethodStreamChunk && !rte.Stream {
			return o.t.Envelope(c, ErrorValidation.Error(nil))
		}

		if rte.Check != nil {
			if err := rte.Check(c); err != nil {
				return o.t.Envelope(c, ErrorValidation.Error(err))
			}
		}

		return next(ctx, c)
	}
}
