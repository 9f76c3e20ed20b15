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

// Package middleware assembles the ordered request pipeline: trace id
// assignment, peer authentication, route resolution, rate limiting,
// validation, and handler invocation behind the error translator.
//
// A step may short-circuit by returning a response without calling next;
// outer steps still observe that response for logging and timing. Every
// failure path, including panics, produces a valid response envelope: no
// raw error ever crosses the pipeline boundary outwards.
package middleware

import (
	"context"

	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

// ClassConnector is the route class reserved for connector-only routes:
// heartbeats and error reports. Calls reaching such a route must carry a
// verified connector identity.
const ClassConnector = "connector"

// Handler is one stage of the composed pipeline. It always returns a
// complete response; failures are already translated.
type Handler func(ctx context.Context, c *librtr.Call) *libmsg.Response

// Step is one ordered wrapper of the pipeline.
type Step interface {
	// Name identifies the step in logs.
	Name() string

	// Wrap returns the step's handler around next.
	Wrap(next Handler) Handler
}

// Build composes steps outermost-first around the final handler.
func Build(final Handler, steps ...Step) Handler {
	h := final

	for i := len(steps) - 1; i >= 0; i-- {
		h = steps[i].Wrap(h)
	}

	return h
}

// TokenVerifier checks a connector one-time admission token and returns the
// connector id it was issued for. Implemented by the supervisor.
type TokenVerifier interface {
	VerifyConnectorToken(token string) (connectorID string, ok bool)
}
