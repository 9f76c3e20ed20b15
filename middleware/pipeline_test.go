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

package middleware_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"

	libmid "github.com/nabbar/assistd/middleware"
	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

var _ = Describe("Pipeline", func() {
	Context("successful dispatch", func() {
		It("should return ok with the handler data and a trace id", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/health", map[string]interface{}{"status": "ok"})},
			})

			rsp := h(context.Background(), call(libmsg.MethodQuery, "/health", "c1"))

			Expect(rsp).ToNot(BeNil())
			Expect(rsp.IsOK()).To(BeTrue())
			Expect(rsp.CorrelationID).To(Equal("c1"))
			Expect(rsp.TraceID).ToNot(BeEmpty())
		})
	})

	Context("dispatch failures", func() {
		It("should envelope an unknown path as NOT_FOUND", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/health", nil)},
			})

			rsp := h(context.Background(), call(libmsg.MethodQuery, "/nope", "c2"))

			Expect(rsp.IsOK()).To(BeFalse())
			Expect(rsp.Error).ToNot(BeNil())
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeNotFound))
			Expect(rsp.Error.CanRetry).To(BeFalse())
			Expect(rsp.Error.ErrorID).ToNot(BeEmpty())
			Expect(rsp.CorrelationID).To(Equal("c2"))
		})

		It("should envelope a method mismatch as METHOD_NOT_ALLOWED", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/health", nil)},
			})

			rsp := h(context.Background(), call(libmsg.MethodMutate, "/health", "c3"))

			Expect(rsp.Error.Code).To(Equal(libmsg.CodeMethodNotAllowed))
		})

		It("should translate a handler failure without leaking detail", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{{
					Method:  libmsg.MethodQuery,
					Pattern: "/boom",
					Handler: func(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
						return nil, liberr.New(0, "secret internal detail /etc/passwd")
					},
				}},
			})

			rsp := h(context.Background(), call(libmsg.MethodQuery, "/boom", "c4"))

			Expect(rsp.Error.Code).To(Equal(libmsg.CodeHandlerFailed))
			Expect(rsp.Error.UserMessage).ToNot(ContainSubstring("secret"))
			Expect(rsp.Error.UserMessage).ToNot(ContainSubstring("/etc/passwd"))
		})

		It("should recover a panicking handler", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{{
					Method:  libmsg.MethodQuery,
					Pattern: "/panic",
					Handler: func(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
						panic("boom")
					},
				}},
			})

			rsp := h(context.Background(), call(libmsg.MethodQuery, "/panic", "c5"))

			Expect(rsp.IsOK()).To(BeFalse())
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeHandlerFailed))
		})

		It("should bound a slow handler by the route deadline", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{slowRoute(libmsg.MethodQuery, "/slow", time.Second, libdur.Duration(50*time.Millisecond))},
			})

			beg := time.Now()
			rsp := h(context.Background(), call(libmsg.MethodQuery, "/slow", "c6"))

			Expect(time.Since(beg)).To(BeNumerically("<", 500*time.Millisecond))
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeTimeout))
			Expect(rsp.Error.CanRetry).To(BeTrue())
		})
	})

	Context("rate limiting", func() {
		It("should refuse beyond the bucket with a retry hint", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/limited", nil)},
				rate: libmid.RateConfig{
					Default: libmid.RateClass{Rate: 0.5, Burst: 1},
				},
			})

			one := h(context.Background(), call(libmsg.MethodQuery, "/limited", "c7"))
			Expect(one.IsOK()).To(BeTrue())

			two := h(context.Background(), call(libmsg.MethodQuery, "/limited", "c8"))
			Expect(two.IsOK()).To(BeFalse())
			Expect(two.Error.Code).To(Equal(libmsg.CodeRateLimited))
			Expect(two.Error.RetryAfterMs).To(BeNumerically(">", 0))
		})

		It("should shard buckets per connection", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/limited", nil)},
				rate: libmid.RateConfig{
					Default: libmid.RateClass{Rate: 0.5, Burst: 1},
				},
			})

			one := call(libmsg.MethodQuery, "/limited", "c9")
			one.ConnID = "conn-a"
			Expect(h(context.Background(), one).IsOK()).To(BeTrue())

			two := call(libmsg.MethodQuery, "/limited", "c10")
			two.ConnID = "conn-b"
			Expect(h(context.Background(), two).IsOK()).To(BeTrue())
		})
	})

	Context("authentication", func() {
		It("should deny a wrong session token", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/health", nil)},
				auth:   libmid.AuthConfig{SessionToken: "expected"},
			})

			c := call(libmsg.MethodQuery, "/health", "c11")
			c.Req.Auth = &libmsg.Auth{Token: "wrong"}

			rsp := h(context.Background(), c)
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeAuthDenied))
		})

		It("should upgrade a connection presenting a connector token", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{{
					Method:  libmsg.MethodHeartbeat,
					Pattern: "/connectors/:id/heartbeat",
					Class:   libmid.ClassConnector,
					Handler: func(_ context.Context, c *librtr.Call) (interface{}, liberr.Error) {
						return map[string]interface{}{"ack": true, "id": c.ConnectorID}, nil
					},
				}},
				verifier: &stubVerifier{token: "one-time", id: "fs"},
			})

			c := call(libmsg.MethodHeartbeat, "/connectors/fs/heartbeat", "c12")
			c.Req.Auth = &libmsg.Auth{Token: "one-time"}

			rsp := h(context.Background(), c)
			Expect(rsp.IsOK()).To(BeTrue())
			Expect(c.ConnectorID).To(Equal("fs"))
		})

		It("should keep connector routes off limits without an identity", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{{
					Method:  libmsg.MethodHeartbeat,
					Pattern: "/connectors/:id/heartbeat",
					Class:   libmid.ClassConnector,
					Handler: func(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
						return nil, nil
					},
				}},
			})

			rsp := h(context.Background(), call(libmsg.MethodHeartbeat, "/connectors/fs/heartbeat", "c13"))
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeAuthDenied))
		})
	})

	Context("stream opt-in", func() {
		It("should refuse STREAM_CHUNK on a route without the flag", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodStreamChunk, "/ingest", nil)},
			})

			rsp := h(context.Background(), call(libmsg.MethodStreamChunk, "/ingest", "c14"))
			Expect(rsp.Error.Code).To(Equal(libmsg.CodeValidationFailed))
		})
	})

	Context("error collapse", func() {
		It("should reuse one error id within the window", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/health", nil)},
			})

			one := h(context.Background(), call(libmsg.MethodQuery, "/nope", "c15"))
			two := h(context.Background(), call(libmsg.MethodQuery, "/nope", "c16"))

			Expect(one.Error.ErrorID).To(Equal(two.Error.ErrorID))
			Expect(one.CorrelationID).To(Equal("c15"))
			Expect(two.CorrelationID).To(Equal("c16"))
		})

		It("should mint distinct ids across connections", func() {
			h, _, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/health", nil)},
			})

			one := call(libmsg.MethodQuery, "/nope", "c17")
			one.ConnID = "conn-a"

			two := call(libmsg.MethodQuery, "/nope", "c18")
			two.ConnID = "conn-b"

			ra := h(context.Background(), one)
			rb := h(context.Background(), two)

			Expect(ra.Error.ErrorID).ToNot(Equal(rb.Error.ErrorID))
		})

		It("should forget a closed connection", func() {
			h, trl, _ := buildPipeline(pipelineOpt{
				routes: []librtr.Route{okRoute(libmsg.MethodQuery, "/health", nil)},
			})

			one := h(context.Background(), call(libmsg.MethodQuery, "/nope", "c19"))

			trl.Forget("conn-1")

			two := h(context.Background(), call(libmsg.MethodQuery, "/nope", "c20"))
			Expect(one.Error.ErrorID).ToNot(Equal(two.Error.ErrorID))
		})
	})
})
