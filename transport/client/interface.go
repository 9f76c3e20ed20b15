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

// Package client is the shared native-side IPC client used by the CLI and
// by connector children: endpoint discovery, connect, multiplexed
// request/response over one connection, automatic reconnection with
// backoff, and chunked upload of payloads exceeding one frame.
//
// A client is safe for concurrent use; responses are correlated by the
// request correlation id, so slow calls never block fast ones.
package client

import (
	"context"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	libsiz "github.com/nabbar/golib/size"

	libmsg "github.com/nabbar/assistd/protocol/message"
)

// Config shapes one client.
type Config struct {
	// EndpointFile is the discovery descriptor path.
	EndpointFile string `json:"endpointFile" yaml:"endpointFile" toml:"endpointFile" mapstructure:"endpointFile" validate:"required"`

	// Token is presented on the first request of each connection: a UI
	// session token or a connector one-time admission token.
	Token string `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty" mapstructure:"token,omitempty"`

	// Timeout bounds one request round trip.
	Timeout libdur.Duration `json:"timeout,omitempty" yaml:"timeout,omitempty" toml:"timeout,omitempty" mapstructure:"timeout,omitempty"`

	// ChunkSize is the slice size of chunked uploads.
	ChunkSize libsiz.Size `json:"chunkSize,omitempty" yaml:"chunkSize,omitempty" toml:"chunkSize,omitempty" mapstructure:"chunkSize,omitempty"`

	// ReconnectMax caps the reconnection backoff.
	ReconnectMax libdur.Duration `json:"reconnectMax,omitempty" yaml:"reconnectMax,omitempty" toml:"reconnectMax,omitempty" mapstructure:"reconnectMax,omitempty"`
}

// DefaultConfig returns the stock client parameters for one endpoint file.
func DefaultConfig(endpointFile string) Config {
	return Config{
		EndpointFile: endpointFile,
		Timeout:      libdur.Duration(10 * time.Second),
		ChunkSize:    256 * libsiz.SizeKilo,
		ReconnectMax: libdur.Duration(10 * time.Second),
	}
}

// Client is one logical connection to the daemon.
type Client interface {
	// Connect dials the published endpoint. Do connects lazily; an explicit
	// Connect surfaces discovery errors early.
	Connect(ctx context.Context) liberr.Error

	// Close tears the connection down and fails every pending call.
	Close() error

	// IsConnected reports whether a live connection exists.
	IsConnected() bool

	// Do sends one request and waits for its correlated response. An empty
	// correlation id is filled with a generated one.
	Do(ctx context.Context, req *libmsg.Request) (*libmsg.Response, liberr.Error)

	// Query is shorthand for a QUERY call.
	Query(ctx context.Context, path string, params map[string]interface{}) (*libmsg.Response, liberr.Error)

	// Lifecycle is shorthand for a LIFECYCLE call.
	Lifecycle(ctx context.Context, path string, params map[string]interface{}) (*libmsg.Response, liberr.Error)

	// Heartbeat sends one connector liveness signal with a data counter
	// delta, returning the ack which may carry a pending stop request.
	Heartbeat(ctx context.Context, connectorID string, dataDelta int64) (*libmsg.Response, liberr.Error)

	// SendStream uploads a payload larger than one frame as a chunked
	// session and returns the route's response to the reassembled payload.
	SendStream(ctx context.Context, path string, payload []byte) (*libmsg.Response, liberr.Error)
}

// New returns a disconnected client.
func New(cfg Config, log liblog.FuncLog) (Client, liberr.Error) {
	if cfg.EndpointFile == "" {
		return nil, ErrorParamEmpty.Error(nil)
	}

	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultConfig("").Timeout
	}

	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = DefaultConfig("").ChunkSize
	}

	if cfg.ReconnectMax == 0 {
		cfg.ReconnectMax = DefaultConfig("").ReconnectMax
	}

	return newClient(cfg, log), nil
}
