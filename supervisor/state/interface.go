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

// Package state defines the connector lifecycle state machine values.
//
// The legal progression is Stopped, Starting, Running, Stopping, Stopped;
// any state may transition to Error on crash or missed heartbeat. No other
// state is ever skipped.
package state

import (
	"encoding/json"
	"strings"
)

// State is one connector lifecycle state.
type State uint8

const (
	// Stopped means no process exists for the connector.
	Stopped State = iota

	// Starting means the process is spawned but has not heartbeated yet.
	Starting

	// Running means the process is live and heartbeating.
	Running

	// Stopping means a graceful stop is in progress.
	Stopping

	// Error means the connector crashed, missed its heartbeat deadline, or
	// exhausted its restart budget.
	Error
)

// Parse converts a string to its State value; unknown strings return Stopped.
func Parse(s string) State {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "starting":
		return Starting
	case "running":
		return Running
	case "stopping":
		return Stopping
	case "error":
		return Error
	}

	return Stopped
}

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Starting:
		return "STARTING"
	case Running:
		return "RUNNING"
	case Stopping:
		return "STOPPING"
	case Error:
		return "ERROR"
	}

	return "STOPPED"
}

// CanStart reports whether a start operation is legal from s.
func (s State) CanStart() bool {
	return s == Stopped || s == Error
}

// CanStop reports whether a stop operation is legal from s.
func (s State) CanStop() bool {
	return s == Starting || s == Running || s == Error
}

// IsLive reports whether a process may exist in state s.
func (s State) IsLive() bool {
	return s == Starting || s == Running || s == Stopping
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *State) UnmarshalJSON(p []byte) error {
	var str string

	if err := json.Unmarshal(p, &str); err != nil {
		return err
	}

	*s = Parse(str)
	return nil
}
