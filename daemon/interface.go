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

// Package daemon wires the whole IPC substrate together: environment,
// endpoint conflict probe, supervisor, service facade, router, middleware
// pipeline, connection manager, transport listener and endpoint
// publication, in that order, and drives startup, serving and graceful drain.
package daemon

import (
	"context"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	libver "github.com/nabbar/golib/version"

	libenv "github.com/nabbar/assistd/env"
	libfcd "github.com/nabbar/assistd/facade"
)

// Exit codes of the daemon binary, part of the CLI contract.
const (
	ExitOK               = 0
	ExitGenericFailure   = 1
	ExitAlreadyRunning   = 2
	ExitEndpointConflict = 3
	ExitBindFailed       = 4
	ExitInvalidEnv       = 5
)

// DrainDeadline bounds the graceful shutdown of open connections.
const DrainDeadline = libdur.Duration(5 * time.Second)

// Daemon is the assembled service.
type Daemon interface {
	// Start brings the daemon up: resolves the environment, checks the
	// endpoint for a live owner, starts supervision, binds the transport
	// and publishes the endpoint descriptor. It returns once the listener
	// accepts traffic.
	Start(ctx context.Context) liberr.Error

	// Stop unpublishes the endpoint, drains connections up to
	// DrainDeadline, and stops every connector.
	Stop(ctx context.Context) liberr.Error

	// IsRunning reports whether the listener is accepting traffic.
	IsRunning() bool

	// Uptime returns the time since the listener came up.
	Uptime() time.Duration

	// Env returns the resolved environment context.
	Env() libenv.Context

	// Facade returns the service registry, for registering external
	// collaborators before Start.
	Facade() libfcd.Registry
}

// New builds a daemon from its configuration. Collaborator bindings may be
// added to Facade before Start; the registry freezes when Start runs.
func New(cfg *Config, vrs libver.Version, log liblog.FuncLog) (Daemon, liberr.Error) {
	if cfg == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	e, err := libenv.New(cfg.Env)
	if err != nil {
		return nil, err
	}

	return newDaemon(cfg, e, vrs, log), nil
}
