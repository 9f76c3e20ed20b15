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

// Package supervisor owns the lifecycle of native connector processes: it
// spawns them, watches their heartbeats, restarts them with exponential
// backoff, and drains them on shutdown. No other component ever waits on a
// child process directly.
//
// Children connect back to the daemon endpoint like any other client,
// presenting a one-time admission token exported in their environment.
// State transitions for one connector are serialized; observers see a
// monotonic progression for a given (connector id, start epoch).
package supervisor

import (
	"context"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"

	libenv "github.com/nabbar/assistd/env"
	supsts "github.com/nabbar/assistd/supervisor/state"
)

const (
	// EnvToken is the child environment variable carrying the one-time
	// admission token.
	EnvToken = "ASSISTD_CONNECTOR_TOKEN"

	// EnvEndpoint is the child environment variable carrying the endpoint
	// descriptor file path.
	EnvEndpoint = "ASSISTD_ENDPOINT_FILE"

	// EnvConnectorID is the child environment variable carrying its own id.
	EnvConnectorID = "ASSISTD_CONNECTOR_ID"
)

// Config shapes supervision deadlines and the restart budget.
type Config struct {
	// HeartbeatDeadline moves a RUNNING connector to ERROR when its last
	// heartbeat is older than this.
	HeartbeatDeadline libdur.Duration `json:"heartbeatDeadline,omitempty" yaml:"heartbeatDeadline,omitempty" toml:"heartbeatDeadline,omitempty" mapstructure:"heartbeatDeadline,omitempty"`

	// StartDeadline bounds the STARTING to RUNNING handshake.
	StartDeadline libdur.Duration `json:"startDeadline,omitempty" yaml:"startDeadline,omitempty" toml:"startDeadline,omitempty" mapstructure:"startDeadline,omitempty"`

	// StableRuntime of continuous RUNNING resets the failure counters.
	StableRuntime libdur.Duration `json:"stableRuntime,omitempty" yaml:"stableRuntime,omitempty" toml:"stableRuntime,omitempty" mapstructure:"stableRuntime,omitempty"`

	// BackoffBase is the first restart delay, doubled per failure.
	BackoffBase libdur.Duration `json:"backoffBase,omitempty" yaml:"backoffBase,omitempty" toml:"backoffBase,omitempty" mapstructure:"backoffBase,omitempty"`

	// BackoffMax caps the restart delay.
	BackoffMax libdur.Duration `json:"backoffMax,omitempty" yaml:"backoffMax,omitempty" toml:"backoffMax,omitempty" mapstructure:"backoffMax,omitempty"`

	// MaxRestarts within BackoffWindow pins the connector at ERROR.
	MaxRestarts int `json:"maxRestarts,omitempty" yaml:"maxRestarts,omitempty" toml:"maxRestarts,omitempty" mapstructure:"maxRestarts,omitempty"`

	// BackoffWindow is the sliding window of the restart budget.
	BackoffWindow libdur.Duration `json:"backoffWindow,omitempty" yaml:"backoffWindow,omitempty" toml:"backoffWindow,omitempty" mapstructure:"backoffWindow,omitempty"`

	// DefaultGrace is the stop grace used when the caller gives none.
	DefaultGrace libdur.Duration `json:"defaultGrace,omitempty" yaml:"defaultGrace,omitempty" toml:"defaultGrace,omitempty" mapstructure:"defaultGrace,omitempty"`

	// TokenDeadline expires an unused admission token.
	TokenDeadline libdur.Duration `json:"tokenDeadline,omitempty" yaml:"tokenDeadline,omitempty" toml:"tokenDeadline,omitempty" mapstructure:"tokenDeadline,omitempty"`
}

// DefaultConfig returns the stock supervision parameters.
func DefaultConfig() Config {
	return Config{
		HeartbeatDeadline: libdur.Duration(15 * time.Second),
		StartDeadline:     libdur.Duration(10 * time.Second),
		StableRuntime:     libdur.Duration(60 * time.Second),
		BackoffBase:       libdur.Duration(500 * time.Millisecond),
		BackoffMax:        libdur.Duration(30 * time.Second),
		MaxRestarts:       5,
		BackoffWindow:     libdur.Duration(5 * time.Minute),
		DefaultGrace:      libdur.Duration(5 * time.Second),
		TokenDeadline:     libdur.Duration(2 * time.Minute),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()

	if c.HeartbeatDeadline == 0 {
		c.HeartbeatDeadline = d.HeartbeatDeadline
	}
	if c.StartDeadline == 0 {
		c.StartDeadline = d.StartDeadline
	}
	if c.StableRuntime == 0 {
		c.StableRuntime = d.StableRuntime
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = d.BackoffBase
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = d.BackoffMax
	}
	if c.MaxRestarts == 0 {
		c.MaxRestarts = d.MaxRestarts
	}
	if c.BackoffWindow == 0 {
		c.BackoffWindow = d.BackoffWindow
	}
	if c.DefaultGrace == 0 {
		c.DefaultGrace = d.DefaultGrace
	}
	if c.TokenDeadline == 0 {
		c.TokenDeadline = d.TokenDeadline
	}

	return c
}

// Status is the externally observable snapshot of one connector.
type Status struct {
	ID            string       `json:"connector_id"`
	Name          string       `json:"display_name,omitempty"`
	State         supsts.State `json:"state"`
	Pid           int          `json:"pid,omitempty"`
	StartEpoch    int64        `json:"start_epoch"`
	Since         time.Time    `json:"since"`
	LastHeartbeat time.Time    `json:"last_heartbeat,omitempty"`
	Restarts      int          `json:"restart_count"`
	Failures      int          `json:"consecutive_failures"`
	DataCount     int64        `json:"data_counter"`
	ErrorCode     string       `json:"error_code,omitempty"`
	StopRequested bool         `json:"stop_requested,omitempty"`
}

// Supervisor manages the declared connectors.
type Supervisor interface {
	// Start loads descriptors, reaps orphans from a previous run, and
	// launches the reconciler and the descriptor watcher.
	Start(ctx context.Context) liberr.Error

	// Stop drains every live connector and stops the background tasks.
	Stop(ctx context.Context) liberr.Error

	// IsRunning reports whether the supervisor background tasks are live.
	IsRunning() bool

	// Reload re-scans the descriptor directory. Running connectors keep
	// their old descriptor until the next start.
	Reload() liberr.Error

	// List returns the status of every declared connector.
	List() []Status

	// StartConnector spawns a connector and blocks until it reaches RUNNING
	// or the start deadline elapses.
	StartConnector(ctx context.Context, id string) (Status, liberr.Error)

	// StopConnector requests a graceful stop, escalating to termination
	// after the grace period. Stopping an already STOPPED connector is a
	// no-op returning the current status.
	StopConnector(ctx context.Context, id string, grace libdur.Duration) (Status, liberr.Error)

	// ResetConnector clears a pinned ERROR state and its counters.
	ResetConnector(id string) (Status, liberr.Error)

	// StatusConnector returns one connector's snapshot.
	StatusConnector(id string) (Status, liberr.Error)

	// Heartbeat records a child liveness signal, moving STARTING to RUNNING
	// on the first one. The returned status carries StopRequested so the
	// child can honor a pending graceful stop.
	Heartbeat(id string, dataDelta int64) (Status, liberr.Error)

	// ReportError records a child-reported failure and moves it to ERROR.
	ReportError(id, code, msg string) (Status, liberr.Error)

	// VerifyConnectorToken redeems a one-time admission token.
	VerifyConnectorToken(token string) (string, bool)
}

// New returns a Supervisor rooted in the given environment.
func New(cfg Config, e libenv.Context, log liblog.FuncLog) (Supervisor, liberr.Error) {
	if e == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	return newSupervisor(cfg.withDefaults(), e, log), nil
}
