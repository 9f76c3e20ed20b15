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

// Package ipc runs one connection: the frame decode loop, the per-request
// dispatch with its inflight budget, and the single writer serializing
// response frames. Requests on one connection may complete out of order;
// the peer correlates by correlation id. Peer close or daemon drain cancels
// every inflight request of the connection.
package ipc

import (
	"time"

	libdur "github.com/nabbar/golib/duration"
	liblog "github.com/nabbar/golib/logger"
	libsiz "github.com/nabbar/golib/size"

	libmid "github.com/nabbar/assistd/middleware"
	libtpt "github.com/nabbar/assistd/transport"
)

// Config bounds one connection's resources.
type Config struct {
	// MaxInflight caps concurrently dispatched requests per connection;
	// excess requests are refused without dispatch.
	MaxInflight int `json:"maxInflight,omitempty" yaml:"maxInflight,omitempty" toml:"maxInflight,omitempty" mapstructure:"maxInflight,omitempty"`

	// WriteQueue is the outbound frame queue depth.
	WriteQueue int `json:"writeQueue,omitempty" yaml:"writeQueue,omitempty" toml:"writeQueue,omitempty" mapstructure:"writeQueue,omitempty"`

	// WriteStallDeadline tears the connection down when the queue stays
	// full for this long.
	WriteStallDeadline libdur.Duration `json:"writeStallDeadline,omitempty" yaml:"writeStallDeadline,omitempty" toml:"writeStallDeadline,omitempty" mapstructure:"writeStallDeadline,omitempty"`

	// MaxStreamSize bounds one reassembled streamed payload.
	MaxStreamSize libsiz.Size `json:"maxStreamSize,omitempty" yaml:"maxStreamSize,omitempty" toml:"maxStreamSize,omitempty" mapstructure:"maxStreamSize,omitempty"`

	// StreamDeadline bounds one stream session lifetime.
	StreamDeadline libdur.Duration `json:"streamDeadline,omitempty" yaml:"streamDeadline,omitempty" toml:"streamDeadline,omitempty" mapstructure:"streamDeadline,omitempty"`
}

// DefaultConfig returns the stock connection bounds.
func DefaultConfig() Config {
	return Config{
		MaxInflight:        64,
		WriteQueue:         256,
		WriteStallDeadline: libdur.Duration(2 * time.Second),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.MaxInflight < 1 {
		c.MaxInflight = d.MaxInflight
	}
	if c.WriteQueue < 1 {
		c.WriteQueue = d.WriteQueue
	}
	if c.WriteStallDeadline == 0 {
		c.WriteStallDeadline = d.WriteStallDeadline
	}

	return c
}

// FuncClosed is notified when a connection ends, with its connection id.
type FuncClosed func(connID string)

// Manager turns accepted transport connections into served sessions.
type Manager interface {
	// Handler returns the transport handler running the connection loop.
	Handler() libtpt.Handler

	// OpenConnections returns the number of live sessions.
	OpenConnections() int64

	// RegisterFuncClosed adds a connection-end callback, used to drop
	// per-connection rate limit and collapse state.
	RegisterFuncClosed(f FuncClosed)
}

// New returns a Manager dispatching through the composed pipeline.
func New(cfg Config, h libmid.Handler, trl libmid.Translator, log liblog.FuncLog) Manager {
	return newManager(cfg.withDefaults(), h, trl, log)
}
