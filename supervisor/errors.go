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

package supervisor

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 180

	// ErrorDescriptorInvalid indicates a connector declaration failing validation.
	ErrorDescriptorInvalid

	// ErrorDescriptorDuplicate indicates two declarations sharing a connector id.
	ErrorDescriptorDuplicate

	// ErrorConnectorNotFound indicates an operation on an undeclared connector.
	ErrorConnectorNotFound

	// ErrorConnectorStartFailed indicates a spawn or handshake failure.
	ErrorConnectorStartFailed

	// ErrorConnectorStopFailed indicates a failed drain of one or more connectors.
	ErrorConnectorStopFailed

	// ErrorConnectorStateInvalid indicates an operation illegal in the current state.
	ErrorConnectorStateInvalid

	// ErrorConnectorCrashloop indicates a connector pinned after exhausting its restart budget.
	ErrorConnectorCrashloop
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package assistd/supervisor"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorDescriptorInvalid:
		return "connector descriptor is invalid"
	case ErrorDescriptorDuplicate:
		return "connector id declared twice"
	case ErrorConnectorNotFound:
		return "connector is not declared"
	case ErrorConnectorStartFailed:
		return "connector could not be started"
	case ErrorConnectorStopFailed:
		return "connector could not be stopped"
	case ErrorConnectorStateInvalid:
		return "operation not allowed in current connector state"
	case ErrorConnectorCrashloop:
		return "connector pinned in error after repeated crashes"
	}

	return liberr.NullMessage
}
