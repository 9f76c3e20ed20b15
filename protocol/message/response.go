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

	liberr "github.com/nabbar/golib/errors"
)

// Status is the outcome tag of a response.
type Status uint8

const (
	StatusNone Status = iota
	StatusOK
	StatusError
)

func (s Status) String() string {
	switch s {
	case StatusOK:
		return "ok"
	case StatusError:
		return "error"
	}

	return ""
}

func (s Status) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

func (s *Status) UnmarshalJSON(p []byte) error {
	var str string

	if err := json.Unmarshal(p, &str); err != nil {
		return err
	}

	switch str {
	case "ok":
		*s = StatusOK
	case "error":
		*s = StatusError
	default:
		*s = StatusNone
	}

	return nil
}

// Error is the bounded, safe failure envelope surfaced to peers.
// It never contains stack traces, paths or internal type names; the full
// context lives in the server log record sharing the same ErrorID.
type Error struct {
	ErrorID       string `json:"error_id"`
	Code          Code   `json:"code"`
	UserMessage   string `json:"user_message"`
	IsRecoverable bool   `json:"is_recoverable"`
	CanRetry      bool   `json:"can_retry"`
	RetryAfterMs  int64  `json:"retry_after_ms,omitempty"`
}

// Response is one decoded server reply.
type Response struct {
	CorrelationID string      `json:"correlation_id,omitempty"`
	Status        Status      `json:"status"`
	Data          interface{} `json:"data,omitempty"`
	Error         *Error      `json:"error,omitempty"`
	TraceID       string      `json:"trace_id"`
}

// DecodeResponse parses one response envelope, used by the native client.
func DecodeResponse(p []byte) (*Response, liberr.Error) {
	if len(p) == 0 {
		return nil, ErrorParamEmpty.Error(nil)
	}

	var rsp Response

	if err := json.Unmarshal(p, &rsp); err != nil {
		return nil, ErrorEnvelopeInvalid.Error(err)
	}

	if rsp.Status != StatusOK && rsp.Status != StatusError {
		return nil, ErrorEnvelopeInvalid.Error(nil)
	}

	return &rsp, nil
}

// Encode marshals the response envelope to its JSON body.
func (r *Response) Encode() ([]byte, liberr.Error) {
	if r == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	p, err := json.Marshal(r)
	if err != nil {
		return nil, ErrorEnvelopeEncode.Error(err)
	}

	return p, nil
}

// IsOK reports whether the response carries a success status.
func (r *Response) IsOK() bool {
	return r != nil && r.Status == StatusOK
}
