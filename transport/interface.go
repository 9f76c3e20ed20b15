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

// Package transport defines the local-only listener abstraction and its
// per-platform backends: a unix domain socket on POSIX systems and a named
// pipe on Windows. There is deliberately no way to construct a network
// listener from this package.
package transport

import (
	"context"
	"net"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	libprm "github.com/nabbar/golib/file/perm"
)

// Peer carries the identity of the process on the far end of one accepted
// connection, when the platform exposes it.
type Peer struct {
	// PID is the peer process id, zero when unknown.
	PID int32 `json:"pid"`

	// UID is the peer user id, meaningful only when Valid is true.
	UID int32 `json:"uid"`

	// Valid reports whether credentials were actually retrieved.
	Valid bool `json:"valid"`
}

// ConnState tags connection lifecycle notifications.
type ConnState uint8

const (
	ConnNew ConnState = iota
	ConnClosed
)

func (c ConnState) String() string {
	switch c {
	case ConnNew:
		return "new"
	case ConnClosed:
		return "closed"
	}

	return ""
}

// Handler serves one accepted connection. It runs on its own goroutine and
// owns the connection until it returns; the server closes the connection
// afterwards if the handler did not.
type Handler func(ctx context.Context, con net.Conn, peer Peer)

// FuncError receives accept-loop and per-connection errors.
type FuncError func(e error)

// FuncInfo receives connection lifecycle notifications.
type FuncInfo func(local, remote net.Addr, state ConnState)

// Server is one bound local endpoint with its accept loop.
type Server interface {
	// Listen binds the endpoint and serves until the context is canceled or
	// Shutdown is called. It blocks; run it on its own goroutine.
	Listen(ctx context.Context) liberr.Error

	// Shutdown stops accepting, closes the listener and waits for open
	// connections up to the context deadline.
	Shutdown(ctx context.Context) liberr.Error

	// IsRunning reports whether the accept loop is serving.
	IsRunning() bool

	// IsGone reports whether the server reached its terminal state.
	IsGone() bool

	// OpenConnections returns the number of currently open connections.
	OpenConnections() int64

	// RegisterFuncError registers the error callback.
	RegisterFuncError(f FuncError)

	// RegisterFuncInfo registers the connection lifecycle callback.
	RegisterFuncInfo(f FuncInfo)
}

// ServerConfig configures one local endpoint.
type ServerConfig struct {
	// Address is the socket path (POSIX) or pipe name (Windows).
	Address string `json:"address" yaml:"address" toml:"address" mapstructure:"address" validate:"required"`

	// PermFile is the socket file mode on POSIX, 0600 when zero.
	PermFile libprm.Perm `json:"permFile,omitempty" yaml:"permFile,omitempty" toml:"permFile,omitempty" mapstructure:"permFile,omitempty"`

	// GroupPerm is the socket group id on POSIX, -1 for default.
	GroupPerm int32 `json:"groupPerm,omitempty" yaml:"groupPerm,omitempty" toml:"groupPerm,omitempty" mapstructure:"groupPerm,omitempty"`

	// ConIdleTimeout closes a connection with no frame traffic for this long; zero disables.
	ConIdleTimeout libdur.Duration `json:"conIdleTimeout,omitempty" yaml:"conIdleTimeout,omitempty" toml:"conIdleTimeout,omitempty" mapstructure:"conIdleTimeout,omitempty"`
}
