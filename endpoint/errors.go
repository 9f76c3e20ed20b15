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

package endpoint

import (
	"fmt"

	liberr "github.com/nabbar/golib/errors"
)

const (
	// ErrorParamEmpty indicates that required parameters were not provided.
	ErrorParamEmpty liberr.CodeError = iota + liberr.MinAvailable + 80

	// ErrorDescriptorInvalid indicates a descriptor file not matching the format.
	ErrorDescriptorInvalid

	// ErrorDescriptorRead indicates the descriptor file could not be read.
	ErrorDescriptorRead

	// ErrorDescriptorWrite indicates the descriptor file could not be written.
	ErrorDescriptorWrite

	// ErrorDescriptorRemove indicates the descriptor file could not be removed.
	ErrorDescriptorRemove

	// ErrorDescriptorPerm indicates a descriptor file with unsafe permissions or owner.
	ErrorDescriptorPerm
)

func init() {
	if liberr.ExistInMapMessage(ErrorParamEmpty) {
		panic(fmt.Errorf("error code collision with package assistd/endpoint"))
	}
	liberr.RegisterIdFctMessage(ErrorParamEmpty, getMessage)
}

func getMessage(code liberr.CodeError) (message string) {
	switch code {
	case ErrorParamEmpty:
		return "given parameters is empty"
	case ErrorDescriptorInvalid:
		return "endpoint descriptor is malformed"
	case ErrorDescriptorRead:
		return "cannot read endpoint descriptor"
	case ErrorDescriptorWrite:
		return "cannot write endpoint descriptor"
	case ErrorDescriptorRemove:
		return "cannot remove endpoint descriptor"
	case ErrorDescriptorPerm:
		return "endpoint descriptor has unsafe permissions or owner"
	}

	return liberr.NullMessage
}
