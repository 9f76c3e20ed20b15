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

// Package router dispatches decoded requests to registered handlers. Routes
// are compiled into a trie keyed by method and path segments, with `:name`
// segments capturing parameters. The table is registered at startup, frozen
// before the listener accepts traffic, and immutable afterwards.
package router

import (
	"context"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/assistd/protocol/message"
	libtpt "github.com/nabbar/assistd/transport"
)

// DefaultDeadline bounds a handler invocation when the route does not set
// its own deadline.
const DefaultDeadline = libdur.Duration(10 * time.Second)

// Params holds the values captured by `:name` pattern segments.
type Params map[string]string

// Call is the per-request context handed through the middleware chain into
// a handler. Handlers receive it fully populated and already validated.
type Call struct {
	// Req is the decoded request envelope.
	Req *libmsg.Request

	// Params holds the captured path parameters.
	Params Params

	// Route is the resolved dispatch entry, nil until resolution.
	Route *Route

	// Peer is the transport-level identity of the calling process.
	Peer libtpt.Peer

	// ConnID identifies the carrying connection, for rate limit sharding
	// and error collapse.
	ConnID string

	// TraceID is the server-assigned id returned in the response.
	TraceID string

	// Authenticated is set by the authentication step.
	Authenticated bool

	// ConnectorID names the connector a child connection authenticated as.
	ConnectorID string
}

// HandlerFunc is one business endpoint. A nil error with any data produces
// an ok response; a returned error is translated into a safe envelope.
// Handlers must observe ctx cancellation at their own suspension points.
type HandlerFunc func(ctx context.Context, c *Call) (interface{}, liberr.Error)

// CheckFunc validates per-route params and body after envelope validation.
type CheckFunc func(c *Call) liberr.Error

// Route is one immutable dispatch entry.
type Route struct {
	// Method is the wire method this route answers.
	Method libmsg.Method

	// Pattern is the path pattern, absolute, with optional `:name` segments.
	Pattern string

	// Class groups routes for rate limiting, empty for the default class.
	Class string

	// Deadline bounds the handler, DefaultDeadline when zero.
	Deadline libdur.Duration

	// Stream allows STREAM_CHUNK payload reassembly onto this route.
	Stream bool

	// Check is the optional per-route validation hook.
	Check CheckFunc

	// Handler is the endpoint implementation.
	Handler HandlerFunc
}

// Router owns the route table.
type Router interface {
	// Register adds one route. Registering a duplicate (method, pattern)
	// pair or registering after Freeze is an error.
	Register(r Route) liberr.Error

	// Freeze makes the table immutable. Idempotent.
	Freeze()

	// IsFrozen reports whether the table is immutable.
	IsFrozen() bool

	// Resolve returns the route and captured params for a method and path.
	// Fails with ErrorRouteNotFound for an unknown path and
	// ErrorMethodNotAllowed for a known path with no route for the method.
	Resolve(m libmsg.Method, path string) (*Route, Params, liberr.Error)

	// Walk visits every registered route.
	Walk(func(r *Route) bool)
}

// New returns an empty route table.
func New() Router {
	return newRouter()
}
