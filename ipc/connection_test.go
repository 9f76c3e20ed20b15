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

package ipc_test

import (
	"bytes"
	"encoding/json"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libipc "github.com/nabbar/assistd/ipc"
	libmsg "github.com/nabbar/assistd/protocol/message"
	libstm "github.com/nabbar/assistd/protocol/stream"
)

var _ = Describe("Connection Handler", func() {
	Context("request and response", func() {
		It("should serve one request end to end", func() {
			p := startStack(libipc.DefaultConfig(), echoRoute())
			defer p.close()

			Expect(p.send(&libmsg.Request{
				Method:        libmsg.MethodQuery,
				Path:          "/echo",
				Params:        map[string]interface{}{"k": "v"},
				CorrelationID: "c1",
			})).To(Succeed())

			rsp := p.next(2 * time.Second)
			Expect(rsp).ToNot(BeNil())
			Expect(rsp.IsOK()).To(BeTrue())
			Expect(rsp.CorrelationID).To(Equal("c1"))
			Expect(rsp.TraceID).ToNot(BeEmpty())
		})

		It("should return responses out of request order", func() {
			block := make(chan struct{})

			p := startStack(libipc.DefaultConfig(), echoRoute(), waitRoute(block))
			defer p.close()

			Expect(p.send(&libmsg.Request{
				Method:        libmsg.MethodQuery,
				Path:          "/wait",
				CorrelationID: "a",
			})).To(Succeed())

			Expect(p.send(&libmsg.Request{
				Method:        libmsg.MethodQuery,
				Path:          "/echo",
				CorrelationID: "b",
			})).To(Succeed())

			fast := p.next(2 * time.Second)
			Expect(fast).ToNot(BeNil())
			Expect(fast.CorrelationID).To(Equal("b"))

			close(block)

			slow := p.next(2 * time.Second)
			Expect(slow).ToNot(BeNil())
			Expect(slow.CorrelationID).To(Equal("a"))
			Expect(slow.IsOK()).To(BeTrue())
		})

		It("should refuse a duplicate inflight correlation id", func() {
			block := make(chan struct{})

			p := startStack(libipc.DefaultConfig(), waitRoute(block))
			defer p.close()

			Expect(p.send(&libmsg.Request{Method: libmsg.MethodQuery, Path: "/wait", CorrelationID: "dup"})).To(Succeed())
			Expect(p.send(&libmsg.Request{Method: libmsg.MethodQuery, Path: "/wait", CorrelationID: "dup"})).To(Succeed())

			rsp := p.next(2 * time.Second)
			Expect(rsp).ToNot(BeNil())
			Expect(rsp.IsOK()).To(BeFalse())
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeProtocolInvalid))

			close(block)
		})
	})

	Context("protocol failures", func() {
		It("should answer an invalid envelope with PROTOCOL_INVALID and the salvaged id", func() {
			p := startStack(libipc.DefaultConfig(), echoRoute())
			defer p.close()

			bdy := []byte(`{"method":"FETCH","path":"/echo","correlation_id":"c9"}`)
			Expect(p.sendRaw(append(rawHeader(uint32(len(bdy))), bdy...))).To(Succeed())

			rsp := p.next(2 * time.Second)
			Expect(rsp).ToNot(BeNil())
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeProtocolInvalid))
			Expect(rsp.CorrelationID).To(Equal("c9"))
		})

		It("should answer FRAME_TOO_LARGE without a correlation id and close", func() {
			p := startStack(libipc.DefaultConfig(), echoRoute())
			defer p.close()

			// header only: the body would exceed the limit and is never sent
			Expect(p.sendRaw(rawHeader(1048577))).To(Succeed())

			rsp := p.next(2 * time.Second)
			Expect(rsp).ToNot(BeNil())
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeFrameTooLarge))
			Expect(rsp.CorrelationID).To(BeEmpty())

			Eventually(func() *libmsg.Response {
				return p.next(50 * time.Millisecond)
			}, time.Second).Should(BeNil())
		})

		It("should survive a malformed frame and keep serving", func() {
			p := startStack(libipc.DefaultConfig(), echoRoute())
			defer p.close()

			bad := []byte("this is not json")
			Expect(p.sendRaw(append(rawHeader(uint32(len(bad))), bad...))).To(Succeed())

			rsp := p.next(2 * time.Second)
			Expect(rsp).ToNot(BeNil())
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeFrameMalformed))

			Expect(p.send(&libmsg.Request{Method: libmsg.MethodQuery, Path: "/echo", CorrelationID: "after"})).To(Succeed())

			nxt := p.next(2 * time.Second)
			Expect(nxt).ToNot(BeNil())
			Expect(nxt.CorrelationID).To(Equal("after"))
			Expect(nxt.IsOK()).To(BeTrue())
		})
	})

	Context("inflight budget", func() {
		It("should saturate beyond the cap without dispatching", func() {
			block := make(chan struct{})

			cfg := libipc.DefaultConfig()
			cfg.MaxInflight = 2

			p := startStack(cfg, waitRoute(block))
			defer p.close()

			Expect(p.send(&libmsg.Request{Method: libmsg.MethodQuery, Path: "/wait", CorrelationID: "w1"})).To(Succeed())
			Expect(p.send(&libmsg.Request{Method: libmsg.MethodQuery, Path: "/wait", CorrelationID: "w2"})).To(Succeed())
			Expect(p.send(&libmsg.Request{Method: libmsg.MethodQuery, Path: "/wait", CorrelationID: "w3"})).To(Succeed())

			rsp := p.next(2 * time.Second)
			Expect(rsp).ToNot(BeNil())
			Expect(rsp.CorrelationID).To(Equal("w3"))
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeConnectionSaturated))
			Expect(rsp.Error.IsRecoverable).To(BeTrue())

			close(block)

			got := map[string]bool{}

			for i := 0; i < 2; i++ {
				if r := p.next(2 * time.Second); r != nil {
					got[r.CorrelationID] = r.IsOK()
				}
			}

			Expect(got).To(HaveKeyWithValue("w1", true))
			Expect(got).To(HaveKeyWithValue("w2", true))
		})
	})

	Context("streamed payloads", func() {
		It("should ack chunks then dispatch the reassembled payload", func() {
			p := startStack(libipc.DefaultConfig(), ingestRoute())
			defer p.close()

			pay := bytes.Repeat([]byte("payload "), 512)

			for i, chk := range libstm.Split("s1", pay, 1024) {
				bdy, err := json.Marshal(&chk)
				Expect(err).ToNot(HaveOccurred())

				Expect(p.send(&libmsg.Request{
					Method:        libmsg.MethodStreamChunk,
					Path:          "/ingest",
					Body:          bdy,
					CorrelationID: "s1-" + string(rune('a'+i)),
				})).To(Succeed())
			}

			var last *libmsg.Response

			for {
				rsp := p.next(2 * time.Second)
				Expect(rsp).ToNot(BeNil())
				Expect(rsp.IsOK()).To(BeTrue())

				if d, ok := rsp.Data.(map[string]interface{}); ok {
					if n, has := d["bytes"]; has {
						Expect(int(n.(float64))).To(Equal(len(pay)))
						last = rsp
						break
					}
				}
			}

			Expect(last).ToNot(BeNil())
		})
	})
})
