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

package client

import (
	"context"
	"encoding/json"

	libuid "github.com/hashicorp/go-uuid"
	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/assistd/protocol/message"
	libstm "github.com/nabbar/assistd/protocol/stream"
)

// SendStream splits a payload into STREAM_CHUNK frames sharing one session.
// Intermediate chunks are acknowledged individually; the response to the
// final chunk is the route's answer to the reassembled payload.
func (o *cli) SendStream(ctx context.Context, path string, payload []byte) (*libmsg.Response, liberr.Error) {
	if len(payload) == 0 || path == "" {
		return nil, ErrorParamEmpty.Error(nil)
	}

	sid, err := libuid.GenerateUUID()
	if err != nil {
		return nil, ErrorRequestFailed.Error(err)
	}

	chunks := libstm.Split(sid, payload, int(o.c.ChunkSize))

	var rsp *libmsg.Response

	for _, chk := range chunks {
		bdy, e := json.Marshal(&chk)
		if e != nil {
			return nil, ErrorRequestFailed.Error(e)
		}

		var er liberr.Error

		rsp, er = o.Do(ctx, &libmsg.Request{
			Method: libmsg.MethodStreamChunk,
			Path:   path,
			Body:   bdy,
		})

		if er != nil {
			return nil, er
		}

		if !rsp.IsOK() {
			return rsp, nil
		}
	}

	return rsp, nil
}
