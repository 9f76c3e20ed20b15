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

package transport

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 100

	// ErrorValidatorError indicates an invalid server configuration.
	ErrorValidatorError

	// ErrorBindListen indicates the local endpoint could not be bound.
	ErrorBindListen

	// ErrorBindDirPerm indicates the socket parent directory is not owner-only.
	ErrorBindDirPerm

	// ErrorServerAccept indicates repeated fatal accept failures.
	ErrorServerAccept

	// ErrorPeerCredentials indicates a peer whose credentials do not match the owner.
	ErrorPeerCredentials

	// ErrorShutdownTimeout indicates open connections outliving the shutdown deadline.
	ErrorShutdownTimeout
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package assistd/transport"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorValidatorError:
		return "invalid transport configuration"
	case ErrorBindListen:
		return "cannot bind local endpoint"
	case ErrorBindDirPerm:
		return "socket parent directory is not restricted to the owner"
	case ErrorServerAccept:
		return "accept loop failed"
	case ErrorPeerCredentials:
		return "peer credentials do not match the daemon owner"
	case ErrorShutdownTimeout:
		return "connections still open after shutdown deadline"
	}

	return liberr.NullMessage
}
