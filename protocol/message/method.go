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

package message

import (
	"encoding/json"
	"strings"
)

// Method classifies a request on the wire.
// Methods are routing conventions only; there is no HTTP on this transport.
type Method uint8

const (
	// MethodNone is the zero value and never valid on the wire.
	MethodNone Method = iota

	// MethodQuery is a read-only call.
	MethodQuery

	// MethodMutate is a state-changing call.
	MethodMutate

	// MethodStreamChunk carries one chunk of a multi-frame payload.
	MethodStreamChunk

	// MethodHeartbeat is a connector liveness signal.
	MethodHeartbeat

	// MethodLifecycle is a connector or daemon lifecycle operation.
	MethodLifecycle
)

// ParseMethod converts a wire string to its Method value.
// Parsing is case-insensitive; unknown strings return MethodNone.
func ParseMethod(s string) Method {
	switch strings.ToUpper(s) {
	case "QUERY":
		return MethodQuery
	case "MUTATE":
		return MethodMutate
	case "STREAM_CHUNK":
		return MethodStreamChunk
	case "HEARTBEAT":
		return MethodHeartbeat
	case "LIFECYCLE":
		return MethodLifecycle
	}

	return MethodNone
}

// ListMethods returns the wire strings of all valid methods.
func ListMethods() []string {
	return []string{
		MethodQuery.String(),
		MethodMutate.String(),
		MethodStreamChunk.String(),
		MethodHeartbeat.String(),
		MethodLifecycle.String(),
	}
}

func (m Method) String() string {
	switch m {
	case MethodQuery:
		return "QUERY"
	case MethodMutate:
		return "MUTATE"
	case MethodStreamChunk:
		return "STREAM_CHUNK"
	case MethodHeartbeat:
		return "HEARTBEAT"
	case MethodLifecycle:
		return "LIFECYCLE"
	}

	return ""
}

// IsValid reports whether m is one of the wire methods.
func (m Method) IsValid() bool {
	return m > MethodNone && m <= MethodLifecycle
}

func (m Method) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.String())
}

func (m *Method) UnmarshalJSON(p []byte) error {
	var s string

	if err := json.Unmarshal(p, &s); err != nil {
		return err
	}

	*m = ParseMethod(s)
	return nil
}
