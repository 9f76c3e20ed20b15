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

package stream

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 40

	// ErrorInvalidInstance indicates a nil assembler receiver.
	ErrorInvalidInstance

	// ErrorChunkOrder indicates an out-of-order or inconsistent chunk.
	ErrorChunkOrder

	// ErrorStreamTooLarge indicates a session exceeding the reassembly bound.
	ErrorStreamTooLarge

	// ErrorSessionDeadline indicates a session outliving its deadline.
	ErrorSessionDeadline

	// ErrorChecksumMismatch indicates a final checksum not matching the payload.
	ErrorChecksumMismatch
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package assistd/protocol/stream"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorInvalidInstance:
		return "invalid assembler instance"
	case ErrorChunkOrder:
		return "chunk out of order or inconsistent with session"
	case ErrorStreamTooLarge:
		return "reassembled payload exceeds maximum stream size"
	case ErrorSessionDeadline:
		return "stream session deadline exceeded"
	case ErrorChecksumMismatch:
		return "stream checksum does not match reassembled payload"
	}

	return liberr.NullMessage
}
