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

// helper_test.go provides the shared pipeline builder used across the
// middleware specs: a real router and translator composed exactly the way
// the daemon wires them.
package middleware_test

import (
	"context"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"

	libmid "github.com/nabbar/assistd/middleware"
	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

// stubVerifier redeems one fixed token for one connector id.
type stubVerifier struct {
	token string
	id    string
}

func (o *stubVerifier) VerifyConnectorToken(token string) (string, bool) {
	if o != nil && token == o.token {
		return o.id, true
	}

	return "", false
}

type pipelineOpt struct {
	routes   []librtr.Route
	rate     libmid.RateConfig
	auth     libmid.AuthConfig
	verifier libmid.TokenVerifier
}

// buildPipeline composes the full chain around a frozen route table.
func buildPipeline(opt pipelineOpt) (libmid.Handler, libmid.Translator, *libmid.RateLimit) {
	rtr := librtr.New()

	for _, r := range opt.routes {
		if err := rtr.Register(r); err != nil {
			panic(err)
		}
	}

	rtr.Freeze()

	trl := libmid.NewTranslator(nil)
	lim := libmid.NewRateLimit(opt.rate, trl)

	h := libmid.Build(
		libmid.NewInvoke(trl),
		libmid.NewTrace(nil),
		libmid.NewAuth(opt.auth, opt.verifier, trl),
		libmid.NewResolve(rtr, trl),
		lim,
		libmid.NewValidate(trl),
	)

	return h, trl, lim
}

func call(method libmsg.Method, path, corr string) *librtr.Call {
	return &librtr.Call{
		Req: &libmsg.Request{
			Method:        method,
			Path:          path,
			CorrelationID: corr,
		},
		ConnID: "conn-1",
	}
}

func okRoute(method libmsg.Method, pattern string, data interface{}) librtr.Route {
	return librtr.Route{
		Method:  method,
		Pattern: pattern,
		Handler: func(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
			return data, nil
		},
	}
}

func slowRoute(method libmsg.Method, pattern string, wait time.Duration, deadline libdur.Duration) librtr.Route {
	return librtr.Route{
		Method:   method,
		Pattern:  pattern,
		Deadline: deadline,
		Handler: func(ctx context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
			select {
			case <-time.After(wait):
				return "late", nil
			case <-ctx.Done():
				return nil, libmid.ErrorCanceled.Error(ctx.Err())
			}
		},
	}
}
