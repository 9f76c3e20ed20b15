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
	"time"

	libdur "github.com/nabbar/golib/duration"
)

// Code is a stable, user-visible error identifier carried in the error
// envelope. The set of codes is part of the wire contract: values never
// change meaning and removed codes are never reused.
type Code string

const (
	CodeProtocolInvalid         Code = "PROTOCOL_INVALID"
	CodeFrameTooLarge           Code = "FRAME_TOO_LARGE"
	CodeFrameTruncated          Code = "FRAME_TRUNCATED"
	CodeFrameMalformed          Code = "FRAME_MALFORMED"
	CodeNotFound                Code = "NOT_FOUND"
	CodeMethodNotAllowed        Code = "METHOD_NOT_ALLOWED"
	CodeValidationFailed        Code = "VALIDATION_FAILED"
	CodeAuthDenied              Code = "AUTH_DENIED"
	CodeRateLimited             Code = "RATE_LIMITED"
	CodeConnectionSaturated     Code = "RATE_LIMIT_CONNECTION_SATURATED"
	CodeHandlerFailed           Code = "HANDLER_FAILED"
	CodeDownstreamUnavailable   Code = "DOWNSTREAM_UNAVAILABLE"
	CodeTimeout                 Code = "TIMEOUT"
	CodeConnectorNotFound       Code = "CONNECTOR_NOT_FOUND"
	CodeConnectorStartFailed    Code = "CONNECTOR_START_FAILED"
	CodeConnectorStateInvalid   Code = "CONNECTOR_STATE_INVALID"
	CodeConnectorCrashloop      Code = "CONNECTOR_CRASHLOOP"
)

func (c Code) String() string {
	return string(c)
}

// UserMessage returns the pre-approved, non-sensitive text for the code.
// No other text ever reaches the peer.
func (c Code) UserMessage() string {
	switch c {
	case CodeProtocolInvalid:
		return "the request envelope is not valid"
	case CodeFrameTooLarge:
		return "the message exceeds the maximum allowed size"
	case CodeFrameTruncated:
		return "the message was cut short"
	case CodeFrameMalformed:
		return "the message could not be decoded"
	case CodeNotFound:
		return "the requested path does not exist"
	case CodeMethodNotAllowed:
		return "the method is not allowed on this path"
	case CodeValidationFailed:
		return "the request did not pass validation"
	case CodeAuthDenied:
		return "access denied"
	case CodeRateLimited:
		return "too many requests, slow down"
	case CodeConnectionSaturated:
		return "too many requests in flight on this connection"
	case CodeHandlerFailed:
		return "the operation failed"
	case CodeDownstreamUnavailable:
		return "a required service is unavailable"
	case CodeTimeout:
		return "the operation timed out"
	case CodeConnectorNotFound:
		return "unknown connector"
	case CodeConnectorStartFailed:
		return "the connector could not be started"
	case CodeConnectorStateInvalid:
		return "the connector is not in a valid state for this operation"
	case CodeConnectorCrashloop:
		return "the connector keeps crashing and has been disabled"
	}

	return "unknown error"
}

// CanRetry reports whether the peer may usefully retry the same request.
func (c Code) CanRetry() bool {
	switch c {
	case CodeTimeout, CodeDownstreamUnavailable, CodeRateLimited, CodeConnectionSaturated:
		return true
	}

	return false
}

// IsRecoverable reports whether the failure is a transient system state
// rather than a definitive outcome.
func (c Code) IsRecoverable() bool {
	switch c {
	case CodeTimeout, CodeDownstreamUnavailable, CodeRateLimited, CodeConnectionSaturated, CodeConnectorStartFailed:
		return true
	}

	return false
}

// RetryAfter returns the default backoff hint for retryable codes, zero
// otherwise. Steps may override it with a live value.
func (c Code) RetryAfter() libdur.Duration {
	switch c {
	case CodeRateLimited, CodeConnectionSaturated:
		return libdur.Duration(250 * time.Millisecond)
	case CodeTimeout, CodeDownstreamUnavailable:
		return libdur.Seconds(1)
	}

	return 0
}
