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

package middleware

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 140

	// ErrorAuthDenied indicates a peer failing authentication.
	ErrorAuthDenied

	// ErrorRateLimited indicates a token bucket refusing the call.
	ErrorRateLimited

	// ErrorConnSaturated indicates a connection at its inflight cap.
	ErrorConnSaturated

	// ErrorValidation indicates per-route param or body validation failure.
	ErrorValidation

	// ErrorDeadline indicates a handler outliving its route deadline.
	ErrorDeadline

	// ErrorCanceled indicates a call canceled by peer close or drain.
	ErrorCanceled

	// ErrorPanic indicates a recovered handler panic.
	ErrorPanic
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package assistd/middleware"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorAuthDenied:
		return "peer failed authentication"
	case ErrorRateLimited:
		return "rate limit exceeded"
	case ErrorConnSaturated:
		return "connection inflight capacity exhausted"
	case ErrorValidation:
		return "request validation failed"
	case ErrorDeadline:
		return "handler deadline exceeded"
	case ErrorCanceled:
		return "request canceled"
	case ErrorPanic:
		return "handler panicked"
	}

	return liberr.NullMessage
}
