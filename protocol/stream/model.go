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
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	libsiz "github.com/nabbar/golib/size"
)

type session struct {
	b *bytes.Buffer
	n int       // next expected index
	t int       // declared total
	e time.Time // expiry
}

type asm struct {
	s map[string]*session
	m libsiz.Size
	d libdur.Duration
}

func (o *asm) Feed(c *Chunk) ([]byte, bool, liberr.Error) {
	if o == nil {
		return nil, false, ErrorInvalidInstance.Error(nil)
	} else if c == nil || c.SessionID == "" || len(c.Data) == 0 {
		return nil, false, ErrorParamEmpty.Error(nil)
	}

	s, ok := o.s[c.SessionID]

	if !ok {
		if c.Index != 0 {
			return nil, false, ErrorChunkOrder.Error(nil)
		}

		s = &session{
			b: bytes.NewBuffer(make([]byte, 0, len(c.Data))),
			n: 0,
			t: c.Total,
			e: time.Now().Add(o.d.Time()),
		}
		o.s[c.SessionID] = s
	}

	if time.Now().After(s.e) {
		delete(o.s, c.SessionID)
		return nil, false, ErrorSessionDeadline.Error(nil)
	}

	if c.Index != s.n || c.Total != s.t || c.Index >= s.t {
		delete(o.s, c.SessionID)
		return nil, false, ErrorChunkOrder.Error(nil)
	}

	if uint64(s.b.Len()+len(c.Data)) > uint64(o.m) {
		delete(o.s, c.SessionID)
		return nil, false, ErrorStreamTooLarge.Error(nil)
	}

	s.b.Write(c.Data)
	s.n++

	if s.n < s.t {
		return nil, false, nil
	}

	delete(o.s, c.SessionID)

	sum := sha256.Sum256(s.b.Bytes())

	if !strings.EqualFold(hex.EncodeToString(sum[:]), c.Checksum) {
		return nil, false, ErrorChecksumMismatch.Error(nil)
	}

	return s.b.Bytes(), true, nil
}

func (o *asm) Abort(sessionID string) {
	if o == nil {
		return
	}

	delete(o.s, sessionID)
}

func (o *asm) Pending() int {
	if o == nil {
		return 0
	}

	return len(o.s)
}

func (o *asm) Close() {
	if o == nil {
		return
	}

	for k := range o.s {
		delete(o.s, k)
	}
}

// Split cuts a payload into wire chunks of at most chunkSize bytes for the
// given session, computing the final checksum. It is the client-side inverse
// of Feed.
func Split(sessionID string, payload []byte, chunkSize int) []Chunk {
	if len(payload) == 0 || chunkSize < 1 {
		return nil
	}

	var (
		sum = sha256.Sum256(payload)
		tot = (len(payload) + chunkSize - 1) / chunkSize
		res = make([]Chunk, 0, tot)
	)

	for i := 0; i < tot; i++ {
		var (
			beg = i * chunkSize
			end = beg + chunkSize
		)

		if end > len(payload) {
			end = len(payload)
		}

		c := Chunk{
			SessionID: sessionID,
			Index:     i,
			Total:     tot,
			Data:      payload[beg:end],
		}

		if i == tot-1 {
			c.Checksum = hex.EncodeToString(sum[:])
		}

		res = append(res, c)
	}

	return res
}
