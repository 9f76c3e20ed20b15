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
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"unicode/utf8"

	liberr "github.com/nabbar/golib/errors"
)

type rdr struct {
	b *bufio.Reader
}

func newReader(r io.Reader) *rdr {
	return &rdr{
		b: bufio.NewReaderSize(r, HeaderSize+int(MaxFrame)/16),
	}
}

func (o *rdr) ReadFrame() ([]byte, liberr.Error) {
	if o == nil || o.b == nil {
		return nil, ErrorParamEmpty.Error(nil)
	}

	var hdr [HeaderSize]byte

	if n, err := io.ReadFull(o.b, hdr[:]); err != nil {
		if n == 0 && errors.Is(err, io.EOF) {
			return nil, ErrorStreamClosed.Error(err)
		}
		return nil, ErrorFrameTruncated.Error(err)
	}

	siz := binary.BigEndian.Uint32(hdr[:])

	if siz == 0 {
		return nil, ErrorFrameMalformed.Error(nil)
	} else if uint64(siz) > uint64(MaxFrame) {
		// body is intentionally left unread: the connection owner closes it.
		return nil, ErrorFrameTooLarge.Error(nil)
	}

	buf := make([]byte, siz)

	if _, err := io.ReadFull(o.b, buf); err != nil {
		return nil, ErrorFrameTruncated.Error(err)
	}

	if !utf8.Valid(buf) || !json.Valid(buf) {
		return nil, ErrorFrameMalformed.Error(nil)
	}

	return buf, nil
}

type wrt struct {
	m sync.Mutex
	w io.Writer
}

func newWriter(w io.Writer) *wrt {
	return &wrt{
		m: sync.Mutex{},
		w: w,
	}
}

func encode(body []byte) ([]byte, liberr.Error) {
	if len(body) == 0 {
		return nil, ErrorFrameMalformed.Error(nil)
	} else if uint64(len(body)) > uint64(MaxFrame) {
		return nil, ErrorFrameTooLarge.Error(nil)
	}

	buf := make([]byte, HeaderSize+len(body))
	binary.BigEndian.PutUint32(buf[:HeaderSize], uint32(len(body)))
	copy(buf[HeaderSize:], body)

	return buf, nil
}

func (o *wrt) WriteFrame(body []byte) liberr.Error {
	if o == nil || o.w == nil {
		return ErrorParamEmpty.Error(nil)
	}

	buf, err := encode(body)
	if err != nil {
		return err
	}

	o.m.Lock()
	defer o.m.Unlock()

	// retry partial writes until the frame is fully flushed or the peer is gone
	for len(buf) > 0 {
		n, e := o.w.Write(buf)

		if n > 0 {
			buf = buf[n:]
		}

		if e != nil {
			return ErrorFrameWrite.Error(e)
		}
	}

	return nil
}
