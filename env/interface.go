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

// Package env resolves the active named environment and derives every
// on-disk path the daemon uses. The environment is chosen exactly once at
// startup from an explicit selector; a Context is immutable afterwards and
// only inspection is exposed to running code.
package env

import (
	"strings"

	liberr "github.com/nabbar/golib/errors"
)

// VarName is the environment variable consulted when no explicit selector
// is given. A CLI flag always overrides it.
const VarName = "ASSISTD_ENV"

// Env is one named deployment context.
type Env uint8

const (
	// EnvNone is the zero value and never valid.
	EnvNone Env = iota

	// EnvDevelopment is the default environment.
	EnvDevelopment

	// EnvStaging is the pre-production environment.
	EnvStaging

	// EnvProduction is the production environment.
	EnvProduction
)

// Parse converts a selector string to its Env value.
// Parsing is case-insensitive; unknown or empty strings return EnvNone.
func Parse(s string) Env {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "development":
		return EnvDevelopment
	case "staging":
		return EnvStaging
	case "production":
		return EnvProduction
	}

	return EnvNone
}

// ListEnv returns the allowed selector values.
func ListEnv() []string {
	return []string{
		EnvDevelopment.String(),
		EnvStaging.String(),
		EnvProduction.String(),
	}
}

func (e Env) String() string {
	switch e {
	case EnvDevelopment:
		return "development"
	case EnvStaging:
		return "staging"
	case EnvProduction:
		return "production"
	}

	return ""
}

// IsValid reports whether e is one of the allowed environments.
func (e Env) IsValid() bool {
	return e > EnvNone && e <= EnvProduction
}

// Context exposes the resolved environment and its derived paths.
// All accessors are safe for concurrent use; nothing mutates a Context
// after New returns.
type Context interface {
	// Env returns the active environment.
	Env() Env

	// DataDir returns the per-env data root, owned by collaborators.
	DataDir() string

	// LogDir returns the per-env log directory.
	LogDir() string

	// RunDir returns the per-env runtime directory holding the socket.
	RunDir() string

	// SocketPath returns the unix socket path (POSIX transports).
	SocketPath() string

	// PipeName returns the named pipe path (Windows transports).
	PipeName() string

	// EndpointFile returns the discovery descriptor path.
	EndpointFile() string

	// ConfigFile returns the default daemon configuration path.
	ConfigFile() string

	// PidFile returns the daemon pid file path.
	PidFile() string

	// ConnectorsDir returns the connector descriptor directory.
	ConnectorsDir() string

	// LockDir returns the connector lockfile directory.
	LockDir() string

	// DatabasePath returns the per-env database path handed to collaborators.
	DatabasePath() string

	// MakeDirs creates the per-env directories with owner-only permissions.
	MakeDirs() liberr.Error
}

// New resolves the environment from the given selector. An empty selector
// falls back to the VarName variable, then to development. An unknown
// selector fails with ErrorEnvInvalid.
func New(selector string) (Context, liberr.Error) {
	return newContext(selector)
}
