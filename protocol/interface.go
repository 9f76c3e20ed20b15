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

// Package protocol implements the length-prefixed frame codec used on the
// daemon's local transport.
//
// One frame is a 4-byte big-endian length header followed by exactly that
// many bytes of UTF-8 JSON. A frame body is never empty and never exceeds
// MaxFrame. The Reader returns one complete body per call; the Writer emits
// header and body as a single write so that concurrent writers sharing one
// connection can never interleave two frames.
//
// Example usage:
//
//	w := protocol.NewWriter(conn)
//	if err := w.WriteFrame(body); err != nil {
//	    return err
//	}
//
//	r := protocol.NewReader(conn)
//	body, err := r.ReadFrame()
package protocol

import (
	"io"

	liberr "github.com/nabbar/golib/errors"
	libsiz "github.com/nabbar/golib/size"
)

const (
	// HeaderSize is the byte length of the frame header.
	HeaderSize = 4

	// MaxFrame is the maximum allowed frame body size.
	MaxFrame = libsiz.SizeMega
)

// Reader reads complete frames from an underlying io.Reader.
// It owns the read side of the stream: the underlying reader must not be
// consumed elsewhere while a Reader is in use.
type Reader interface {
	// ReadFrame blocks until one complete frame is available and returns its
	// body. It returns ErrorFrameTooLarge before consuming the body when the
	// header announces more than MaxFrame bytes, ErrorFrameMalformed for an
	// empty or non-JSON body, ErrorFrameTruncated when the stream ends inside
	// a frame, and ErrorStreamClosed when the stream ends cleanly between
	// frames.
	ReadFrame() ([]byte, liberr.Error)
}

// Writer writes complete frames to an underlying io.Writer.
// WriteFrame is safe for concurrent use; each call emits exactly one frame.
type Writer interface {
	WriteFrame(body []byte) liberr.Error
}

// NewReader returns a Reader consuming frames from r.
func NewReader(r io.Reader) Reader {
	return newReader(r)
}

// NewWriter returns a Writer emitting frames onto w.
func NewWriter(w io.Writer) Writer {
	return newWriter(w)
}

// Encode returns the on-wire bytes for one frame carrying body.
func Encode(body []byte) ([]byte, liberr.Error) {
	return encode(body)
}
