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

package router_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

func noop(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
	return nil, nil
}

var _ = Describe("Route Table", func() {
	var rtr librtr.Router

	BeforeEach(func() {
		rtr = librtr.New()
	})

	Context("registration", func() {
		It("should register distinct routes", func() {
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/health", Handler: noop})).To(Succeed())
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/version", Handler: noop})).To(Succeed())
		})

		It("should refuse a duplicate method and pattern pair", func() {
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/health", Handler: noop})).To(Succeed())

			err := rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/health", Handler: noop})
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(librtr.ErrorDuplicateRoute)).To(BeTrue())
		})

		It("should allow two methods on one pattern", func() {
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/thing", Handler: noop})).To(Succeed())
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodMutate, Pattern: "/thing", Handler: noop})).To(Succeed())
		})

		It("should refuse registration after freeze", func() {
			rtr.Freeze()

			err := rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/late", Handler: noop})
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(librtr.ErrorTableFrozen)).To(BeTrue())
		})

		It("should refuse conflicting parameter names at one depth", func() {
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/c/:id/status", Handler: noop})).To(Succeed())

			err := rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/c/:name/info", Handler: noop})
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(librtr.ErrorPatternInvalid)).To(BeTrue())
		})
	})

	Context("resolution", func() {
		BeforeEach(func() {
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodQuery, Pattern: "/health", Handler: noop})).To(Succeed())
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodLifecycle, Pattern: "/connectors/list", Handler: noop})).To(Succeed())
			Expect(rtr.Register(librtr.Route{Method: libmsg.MethodLifecycle, Pattern: "/connectors/:id/start", Handler: noop})).To(Succeed())
			rtr.Freeze()
		})

		It("should resolve a literal path", func() {
			rte, prm, err := rtr.Resolve(libmsg.MethodQuery, "/health")
			Expect(err).ToNot(HaveOccurred())
			Expect(rte.Pattern).To(Equal("/health"))
			Expect(prm).To(BeEmpty())
		})

		It("should capture parameter segments", func() {
			rte, prm, err := rtr.Resolve(libmsg.MethodLifecycle, "/connectors/fs/start")
			Expect(err).ToNot(HaveOccurred())
			Expect(rte.Pattern).To(Equal("/connectors/:id/start"))
			Expect(prm["id"]).To(Equal("fs"))
		})

		It("should prefer the literal child over the parameter", func() {
			rte, _, err := rtr.Resolve(libmsg.MethodLifecycle, "/connectors/list")
			Expect(err).ToNot(HaveOccurred())
			Expect(rte.Pattern).To(Equal("/connectors/list"))
		})

		It("should report an unknown path", func() {
			_, _, err := rtr.Resolve(libmsg.MethodQuery, "/nope")
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(librtr.ErrorRouteNotFound)).To(BeTrue())
		})

		It("should report a method mismatch on a known path", func() {
			_, _, err := rtr.Resolve(libmsg.MethodMutate, "/health")
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(librtr.ErrorMethodNotAllowed)).To(BeTrue())
		})

		It("should default the route deadline", func() {
			rte, _, err := rtr.Resolve(libmsg.MethodQuery, "/health")
			Expect(err).ToNot(HaveOccurred())
			Expect(rte.Deadline).To(Equal(librtr.DefaultDeadline))
		})
	})
})
