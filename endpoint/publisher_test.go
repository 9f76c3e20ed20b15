//go:build linux || darwin

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

package endpoint_test

import (
	"os"
	"path/filepath"
	"strconv"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libend "github.com/nabbar/assistd/endpoint"
)

var _ = Describe("Endpoint Publisher", func() {
	var (
		dir string
		fil string
		pub libend.Publisher
	)

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "assistd-endpoint-*")
		Expect(err).ToNot(HaveOccurred())

		fil = filepath.Join(dir, "daemon.endpoint")
		pub = libend.New(fil, nil)
	})

	AfterEach(func() {
		_ = os.RemoveAll(dir)
	})

	Context("publication", func() {
		It("should write the descriptor with owner-only mode", func() {
			Expect(pub.Publish(libend.Descriptor{
				Transport: libend.KindUnix,
				Address:   "/tmp/daemon.sock",
				PID:       os.Getpid(),
			})).To(Succeed())

			Expect(pub.IsPublished()).To(BeTrue())

			inf, err := os.Stat(fil)
			Expect(err).ToNot(HaveOccurred())
			Expect(inf.Mode().Perm()).To(Equal(os.FileMode(0600)))
		})

		It("should write the documented line format", func() {
			Expect(pub.Publish(libend.Descriptor{
				Transport: libend.KindUnix,
				Address:   "/tmp/daemon.sock",
				PID:       1234,
			})).To(Succeed())

			p, err := os.ReadFile(fil)
			Expect(err).ToNot(HaveOccurred())
			Expect(string(p)).To(Equal("transport=unix\naddress=/tmp/daemon.sock\npid=1234\n"))
		})

		It("should round trip through Read", func() {
			Expect(pub.Publish(libend.Descriptor{
				Transport: libend.KindUnix,
				Address:   "/tmp/daemon.sock",
				PID:       os.Getpid(),
			})).To(Succeed())

			dsc, err := libend.Read(fil)
			Expect(err).ToNot(HaveOccurred())
			Expect(dsc.Transport).To(Equal(libend.KindUnix))
			Expect(dsc.Address).To(Equal("/tmp/daemon.sock"))
			Expect(dsc.PID).To(Equal(os.Getpid()))
		})

		It("should remove the file on unpublish", func() {
			Expect(pub.Publish(libend.Descriptor{
				Transport: libend.KindUnix,
				Address:   "/tmp/daemon.sock",
				PID:       os.Getpid(),
			})).To(Succeed())

			Expect(pub.Unpublish()).To(Succeed())
			Expect(pub.IsPublished()).To(BeFalse())

			_, err := os.Stat(fil)
			Expect(os.IsNotExist(err)).To(BeTrue())
		})
	})

	Context("trust checks on read", func() {
		It("should refuse a group readable descriptor", func() {
			Expect(pub.Publish(libend.Descriptor{
				Transport: libend.KindUnix,
				Address:   "/tmp/daemon.sock",
				PID:       os.Getpid(),
			})).To(Succeed())

			Expect(os.Chmod(fil, 0644)).To(Succeed())

			_, err := libend.Read(fil)
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libend.ErrorDescriptorPerm)).To(BeTrue())
		})

		It("should refuse a malformed descriptor", func() {
			Expect(os.WriteFile(fil, []byte("transport=unix\ngarbage\n"), 0600)).To(Succeed())

			_, err := libend.Read(fil)
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libend.ErrorDescriptorInvalid)).To(BeTrue())
		})
	})

	Context("startup probe", func() {
		It("should pass with no descriptor present", func() {
			cft, err := pub.Probe()
			Expect(err).ToNot(HaveOccurred())
			Expect(cft).To(Equal(libend.ConflictNone))
		})

		It("should clear a descriptor whose owner is dead", func() {
			// pids above the default kernel pid_max are never alive
			Expect(os.WriteFile(fil, []byte("transport=unix\naddress=/tmp/x.sock\npid=4194000\n"), 0600)).To(Succeed())

			cft, err := pub.Probe()
			Expect(err).ToNot(HaveOccurred())
			Expect(cft).To(Equal(libend.ConflictNone))

			_, serr := os.Stat(fil)
			Expect(os.IsNotExist(serr)).To(BeTrue())
		})

		It("should report a live owner of the same executable", func() {
			Expect(os.WriteFile(fil, []byte("transport=unix\naddress=/tmp/x.sock\npid="+strconv.Itoa(os.Getpid())+"\n"), 0600)).To(Succeed())

			cft, err := pub.Probe()
			Expect(err).ToNot(HaveOccurred())
			Expect(cft).To(Equal(libend.ConflictSelf))
		})

		It("should clear an unparsable descriptor", func() {
			Expect(os.WriteFile(fil, []byte("junk"), 0600)).To(Succeed())

			cft, err := pub.Probe()
			Expect(err).ToNot(HaveOccurred())
			Expect(cft).To(Equal(libend.ConflictNone))
		})
	})
})
