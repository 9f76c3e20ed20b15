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

package stream_test

import (
	"bytes"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libdur "github.com/nabbar/golib/duration"
	libsiz "github.com/nabbar/golib/size"

	libstm "github.com/nabbar/assistd/protocol/stream"
)

var _ = Describe("Stream Assembler", func() {
	Context("round trip", func() {
		It("should rebuild a payload split into chunks", func() {
			var (
				asm = libstm.New(0, 0)
				pay = bytes.Repeat([]byte("0123456789"), 1000)
				chs = libstm.Split("s1", pay, 1024)
			)

			Expect(len(chs)).To(BeNumerically(">", 1))

			for i, c := range chs {
				got, done, err := asm.Feed(&c)
				Expect(err).ToNot(HaveOccurred())

				if i < len(chs)-1 {
					Expect(done).To(BeFalse())
				} else {
					Expect(done).To(BeTrue())
					Expect(got).To(Equal(pay))
				}
			}

			Expect(asm.Pending()).To(Equal(0))
		})

		It("should keep independent sessions apart", func() {
			var (
				asm = libstm.New(0, 0)
				pa  = []byte("payload-alpha-payload-alpha")
				pb  = []byte("payload-beta")
				ca  = libstm.Split("a", pa, 10)
				cb  = libstm.Split("b", pb, 10)
			)

			_, done, err := asm.Feed(&ca[0])
			Expect(err).ToNot(HaveOccurred())
			Expect(done).To(BeFalse())

			_, done, err = asm.Feed(&cb[0])
			Expect(err).ToNot(HaveOccurred())
			Expect(done).To(BeFalse())

			Expect(asm.Pending()).To(Equal(2))
		})
	})

	Context("protocol violations", func() {
		It("should reject a session not starting at index zero", func() {
			asm := libstm.New(0, 0)

			_, _, err := asm.Feed(&libstm.Chunk{SessionID: "x", Index: 1, Total: 3, Data: []byte("a")})
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libstm.ErrorChunkOrder)).To(BeTrue())
		})

		It("should discard the session on an out of order chunk", func() {
			var (
				asm = libstm.New(0, 0)
				chs = libstm.Split("x", []byte("abcdefghij"), 3)
			)

			_, _, err := asm.Feed(&chs[0])
			Expect(err).ToNot(HaveOccurred())

			_, _, err = asm.Feed(&chs[2])
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libstm.ErrorChunkOrder)).To(BeTrue())
			Expect(asm.Pending()).To(Equal(0))
		})

		It("should reject a checksum mismatch on the final chunk", func() {
			var (
				asm = libstm.New(0, 0)
				chs = libstm.Split("x", []byte("abcdef"), 3)
			)

			chs[len(chs)-1].Checksum = "deadbeef"

			_, _, err := asm.Feed(&chs[0])
			Expect(err).ToNot(HaveOccurred())

			_, _, err = asm.Feed(&chs[1])
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libstm.ErrorChecksumMismatch)).To(BeTrue())
		})
	})

	Context("bounds", func() {
		It("should refuse a session exceeding the size cap", func() {
			var (
				asm = libstm.New(libsiz.Size(16), 0)
				chs = libstm.Split("x", bytes.Repeat([]byte("a"), 64), 32)
			)

			_, _, err := asm.Feed(&chs[0])
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libstm.ErrorStreamTooLarge)).To(BeTrue())
		})

		It("should expire a session outliving its deadline", func() {
			var (
				asm = libstm.New(0, libdur.Duration(10*time.Millisecond))
				chs = libstm.Split("x", []byte("abcdefghij"), 3)
			)

			_, _, err := asm.Feed(&chs[0])
			Expect(err).ToNot(HaveOccurred())

			time.Sleep(25 * time.Millisecond)

			_, _, err = asm.Feed(&chs[1])
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libstm.ErrorSessionDeadline)).To(BeTrue())
		})
	})
})
