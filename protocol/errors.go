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

package protocol

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable

	// ErrorFrameTooLarge indicates a frame header announcing more than MaxFrame bytes.
	ErrorFrameTooLarge

	// ErrorFrameTruncated indicates the stream ended inside a frame header or body.
	ErrorFrameTruncated

	// ErrorFrameMalformed indicates an empty body or a body that is not valid UTF-8 JSON.
	ErrorFrameMalformed

	// ErrorFrameWrite indicates a failure while flushing a frame to the peer.
	ErrorFrameWrite

	// ErrorStreamClosed indicates a clean end of stream between two frames.
	ErrorStreamClosed
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package assistd/protocol"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorFrameTooLarge:
		return "frame exceeds maximum allowed size"
	case ErrorFrameTruncated:
		return "stream ended inside a frame"
	case ErrorFrameMalformed:
		return "frame body is empty or not valid utf-8 json"
	case ErrorFrameWrite:
		return "cannot flush frame to peer"
	case ErrorStreamClosed:
		return "stream closed"
	}

	return liberr.NullMessage
}
