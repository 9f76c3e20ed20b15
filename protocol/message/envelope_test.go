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

package message_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libmsg "github.com/nabbar/assistd/protocol/message"
)

var _ = Describe("Request Envelope", func() {
	Context("decoding", func() {
		It("should decode a complete request", func() {
			req, err := libmsg.DecodeRequest([]byte(`{
				"method": "QUERY",
				"path": "/health",
				"params": {"verbose": true},
				"correlation_id": "c1"
			}`))

			Expect(err).ToNot(HaveOccurred())
			Expect(req.Method).To(Equal(libmsg.MethodQuery))
			Expect(req.Path).To(Equal("/health"))
			Expect(req.CorrelationID).To(Equal("c1"))
		})

		It("should reject an unknown method", func() {
			_, err := libmsg.DecodeRequest([]byte(`{"method":"FETCH","path":"/x","correlation_id":"c"}`))
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libmsg.ErrorEnvelopeInvalid)).To(BeTrue())
		})

		It("should reject a missing correlation id", func() {
			_, err := libmsg.DecodeRequest([]byte(`{"method":"QUERY","path":"/x"}`))
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libmsg.ErrorEnvelopeInvalid)).To(BeTrue())
		})

		It("should reject a relative path", func() {
			_, err := libmsg.DecodeRequest([]byte(`{"method":"QUERY","path":"health","correlation_id":"c"}`))
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libmsg.ErrorEnvelopeInvalid)).To(BeTrue())
		})

		It("should reject unknown envelope fields", func() {
			_, err := libmsg.DecodeRequest([]byte(`{"method":"QUERY","path":"/x","correlation_id":"c","extra":1}`))
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libmsg.ErrorEnvelopeInvalid)).To(BeTrue())
		})
	})

	Context("params helpers", func() {
		It("should extract typed params", func() {
			req, err := libmsg.DecodeRequest([]byte(`{
				"method": "LIFECYCLE",
				"path": "/connectors/fs/stop",
				"params": {"grace_ms": 2000, "reason": "user"},
				"correlation_id": "c2"
			}`))

			Expect(err).ToNot(HaveOccurred())

			ms, ok := req.ParamInt("grace_ms")
			Expect(ok).To(BeTrue())
			Expect(ms).To(Equal(int64(2000)))

			Expect(req.ParamString("reason")).To(Equal("user"))
			Expect(req.ParamString("missing")).To(Equal(""))
		})
	})
})

var _ = Describe("Response Envelope", func() {
	It("should round trip through JSON", func() {
		src := &libmsg.Response{
			CorrelationID: "c1",
			Status:        libmsg.StatusOK,
			Data:          map[string]interface{}{"status": "ok"},
			TraceID:       "t1",
		}

		bdy, err := src.Encode()
		Expect(err).ToNot(HaveOccurred())

		dst, err := libmsg.DecodeResponse(bdy)
		Expect(err).ToNot(HaveOccurred())
		Expect(dst.CorrelationID).To(Equal("c1"))
		Expect(dst.IsOK()).To(BeTrue())
		Expect(dst.TraceID).To(Equal("t1"))
	})

	It("should carry the error envelope verbatim", func() {
		src := &libmsg.Response{
			CorrelationID: "c2",
			Status:        libmsg.StatusError,
			Error: &libmsg.Error{
				ErrorID:     "e-1",
				Code:        libmsg.CodeNotFound,
				UserMessage: libmsg.CodeNotFound.UserMessage(),
			},
			TraceID: "t2",
		}

		bdy, err := src.Encode()
		Expect(err).ToNot(HaveOccurred())

		dst, err := libmsg.DecodeResponse(bdy)
		Expect(err).ToNot(HaveOccurred())
		Expect(dst.IsOK()).To(BeFalse())
		Expect(dst.Error).ToNot(BeNil())
		Expect(dst.Error.Code).To(Equal(libmsg.CodeNotFound))
	})

	It("should refuse an unknown status", func() {
		_, err := libmsg.DecodeResponse([]byte(`{"status":"maybe","trace_id":"t"}`))
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Wire Codes", func() {
	It("should mark transient codes retryable", func() {
		for _, c := range []libmsg.Code{libmsg.CodeTimeout, libmsg.CodeDownstreamUnavailable, libmsg.CodeRateLimited} {
			Expect(c.CanRetry()).To(BeTrue(), c.String())
		}
	})

	It("should mark permanent codes non retryable", func() {
		for _, c := range []libmsg.Code{libmsg.CodeAuthDenied, libmsg.CodeValidationFailed, libmsg.CodeNotFound} {
			Expect(c.CanRetry()).To(BeFalse(), c.String())
		}
	})

	It("should serialize methods as wire strings", func() {
		bdy, err := json.Marshal(libmsg.MethodStreamChunk)
		Expect(err).ToNot(HaveOccurred())
		Expect(string(bdy)).To(Equal(`"STREAM_CHUNK"`))

		var m libmsg.Method
		Expect(json.Unmarshal([]byte(`"heartbeat"`), &m)).To(Succeed())
		Expect(m).To(Equal(libmsg.MethodHeartbeat))
	})
})
