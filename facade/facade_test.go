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

package facade_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libfcd "github.com/nabbar/assistd/facade"
)

type fakeStore struct {
	name string
}

var _ = Describe("Service Registry", func() {
	var reg libfcd.Registry

	BeforeEach(func() {
		reg = libfcd.New()
	})

	It("should return what was registered", func() {
		Expect(reg.Register(libfcd.KeyDatabase, &fakeStore{name: "db"})).To(Succeed())

		i, err := reg.Get(libfcd.KeyDatabase)
		Expect(err).ToNot(HaveOccurred())
		Expect(i.(*fakeStore).name).To(Equal("db"))
	})

	It("should refuse a second registration on one key", func() {
		Expect(reg.Register(libfcd.KeyDatabase, &fakeStore{})).To(Succeed())

		err := reg.Register(libfcd.KeyDatabase, &fakeStore{})
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libfcd.ErrorDuplicate)).To(BeTrue())
	})

	It("should fail a lookup for an unbound key", func() {
		_, err := reg.Get(libfcd.KeyGraph)
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libfcd.ErrorNotRegistered)).To(BeTrue())

		_, ok := reg.TryGet(libfcd.KeyGraph)
		Expect(ok).To(BeFalse())
	})

	It("should refuse registration after freeze", func() {
		reg.Freeze()
		Expect(reg.IsFrozen()).To(BeTrue())

		err := reg.Register(libfcd.KeyVector, &fakeStore{})
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libfcd.ErrorFrozen)).To(BeTrue())
	})

	It("should resolve through the typed helper", func() {
		Expect(reg.Register(libfcd.KeyDatabase, &fakeStore{name: "db"})).To(Succeed())

		v, err := libfcd.Get[*fakeStore](reg, libfcd.KeyDatabase)
		Expect(err).ToNot(HaveOccurred())
		Expect(v.name).To(Equal("db"))

		_, err = libfcd.Get[string](reg, libfcd.KeyDatabase)
		Expect(err).To(HaveOccurred())
		Expect(err.HasCode(libfcd.ErrorWrongType)).To(BeTrue())
	})
})
