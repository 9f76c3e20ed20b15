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

// Package stream reassembles payloads split across multiple STREAM_CHUNK
// frames. One Assembler serves one connection; sessions die with it.
//
// A session is bounded by a maximum reassembled size and a deadline counted
// from its first chunk. Chunks must arrive in index order; the final chunk
// carries a hex sha256 checksum over the reassembled payload.
package stream

import (
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	libsiz "github.com/nabbar/golib/size"
)

const (
	// MaxStreamSize is the default bound on one reassembled payload.
	MaxStreamSize = 16 * libsiz.SizeMega

	// StreamDeadline is the default lifetime of one session.
	StreamDeadline = libdur.Duration(30 * time.Second)
)

// Chunk is the STREAM_CHUNK body. Chunk data rides base64 inside the JSON
// envelope; Checksum is required on the last chunk only.
type Chunk struct {
	SessionID string `json:"session_id" validate:"required,max=128"`
	Index     int    `json:"index" validate:"min=0"`
	Total     int    `json:"total" validate:"min=1"`
	Checksum  string `json:"checksum,omitempty"`
	Data      []byte `json:"chunk" validate:"required"`
}

// Assembler accumulates chunks into complete payloads.
// It is not safe for concurrent use: the owning connection feeds it from its
// single decode loop.
type Assembler interface {
	// Feed accepts one chunk. When the chunk completes its session, done is
	// true and payload holds the verified reassembled bytes. A failed session
	// is discarded as a whole: after an error, its session id is free again.
	Feed(c *Chunk) (payload []byte, done bool, err liberr.Error)

	// Abort drops one pending session, if any.
	Abort(sessionID string)

	// Pending returns the number of open sessions.
	Pending() int

	// Close drops all pending sessions.
	Close()
}

// New returns an Assembler bounded by the given size and deadline; zero
// values select the package defaults.
func New(max libsiz.Size, deadline libdur.Duration) Assembler {
	if max == 0 {
		max = MaxStreamSize
	}

	if deadline == 0 {
		deadline = StreamDeadline
	}

	return &asm{
		s: make(map[string]*session),
		m: max,
		d: deadline,
	}
}
