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

package supervisor_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libsup "github.com/nabbar/assistd/supervisor"
	supsts "github.com/nabbar/assistd/supervisor/state"
)

var _ = Describe("Connector Lifecycle", func() {
	var (
		env *envStub
		sup libsup.Supervisor
		ctx context.Context
		cnl context.CancelFunc
	)

	BeforeEach(func() {
		env = newEnvStub()

		var err error
		sup, err = libsup.New(fastConfig(), env, nil)
		Expect(err).ToNot(HaveOccurred())

		ctx, cnl = context.WithCancel(context.Background())
	})

	AfterEach(func() {
		_ = sup.Stop(context.Background())
		cnl()
		env.destroy()
	})

	Context("start and stop", func() {
		It("should run through the declared state machine", func() {
			writeDescriptor(env, sleeperDescriptor("fs"))
			Expect(sup.Start(ctx)).To(Succeed())

			sts := startSupervised(ctx, sup, "fs")
			Expect(sts.Pid).To(BeNumerically(">", 0))
			Expect(sts.StartEpoch).To(Equal(int64(1)))

			sts, err := sup.StopConnector(ctx, "fs", 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(sts.State).To(Equal(supsts.Stopped))
		})

		It("should make stop on a stopped connector a no-op", func() {
			writeDescriptor(env, sleeperDescriptor("fs"))
			Expect(sup.Start(ctx)).To(Succeed())

			sts, err := sup.StopConnector(ctx, "fs", 0)
			Expect(err).ToNot(HaveOccurred())
			Expect(sts.State).To(Equal(supsts.Stopped))
		})

		It("should fail the start when no heartbeat arrives in time", func() {
			writeDescriptor(env, sleeperDescriptor("mute"))
			Expect(sup.Start(ctx)).To(Succeed())

			_, err := sup.StartConnector(ctx, "mute")
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libsup.ErrorConnectorStartFailed)).To(BeTrue())

			sts, serr := sup.StatusConnector("mute")
			Expect(serr).ToNot(HaveOccurred())
			Expect(sts.State).To(Equal(supsts.Error))
		})

		It("should refuse operations on undeclared connectors", func() {
			Expect(sup.Start(ctx)).To(Succeed())

			_, err := sup.StartConnector(ctx, "ghost")
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libsup.ErrorConnectorNotFound)).To(BeTrue())
		})
	})

	Context("heartbeats", func() {
		It("should keep last heartbeat monotonically increasing", func() {
			writeDescriptor(env, sleeperDescriptor("fs"))
			Expect(sup.Start(ctx)).To(Succeed())
			startSupervised(ctx, sup, "fs")

			one, err := sup.Heartbeat("fs", 5)
			Expect(err).ToNot(HaveOccurred())

			time.Sleep(20 * time.Millisecond)

			two, err := sup.Heartbeat("fs", 7)
			Expect(err).ToNot(HaveOccurred())

			Expect(two.LastHeartbeat.After(one.LastHeartbeat)).To(BeTrue())
			Expect(two.DataCount).To(Equal(int64(12)))
			Expect(two.State).To(Equal(supsts.Running))
		})

		It("should refuse a heartbeat for a stopped connector", func() {
			writeDescriptor(env, sleeperDescriptor("fs"))
			Expect(sup.Start(ctx)).To(Succeed())

			_, err := sup.Heartbeat("fs", 1)
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libsup.ErrorConnectorStateInvalid)).To(BeTrue())
		})
	})

	Context("crash handling", func() {
		It("should pin a crash looping connector at ERROR", func() {
			writeDescriptor(env, crasherDescriptor("bad"))
			Expect(sup.Start(ctx)).To(Succeed())

			_, err := sup.StartConnector(ctx, "bad")
			Expect(err).To(HaveOccurred())

			Eventually(func() string {
				sts, serr := sup.StatusConnector("bad")
				if serr != nil {
					return ""
				}
				return sts.ErrorCode
			}, 10*time.Second, 50*time.Millisecond).Should(Equal("CONNECTOR_CRASHLOOP"))

			sts, serr := sup.StatusConnector("bad")
			Expect(serr).ToNot(HaveOccurred())
			Expect(sts.State).To(Equal(supsts.Error))
		})

		It("should clear a pinned error on reset", func() {
			writeDescriptor(env, crasherDescriptor("bad"))
			Expect(sup.Start(ctx)).To(Succeed())

			_, _ = sup.StartConnector(ctx, "bad")

			Eventually(func() supsts.State {
				sts, serr := sup.StatusConnector("bad")
				if serr != nil {
					return supsts.Stopped
				}
				return sts.State
			}, 10*time.Second, 50*time.Millisecond).Should(Equal(supsts.Error))

			sts, err := sup.ResetConnector("bad")
			Expect(err).ToNot(HaveOccurred())
			Expect(sts.State).To(Equal(supsts.Stopped))
			Expect(sts.Failures).To(Equal(0))
			Expect(sts.ErrorCode).To(BeEmpty())
		})
	})

	Context("admission tokens", func() {
		It("should refuse an unknown token", func() {
			writeDescriptor(env, sleeperDescriptor("fs"))
			Expect(sup.Start(ctx)).To(Succeed())
			startSupervised(ctx, sup, "fs")

			// the spawn env carries the real token; here we only check that
			// an unknown token is refused
			id, ok := sup.VerifyConnectorToken("no-such-token")
			Expect(ok).To(BeFalse())
			Expect(id).To(BeEmpty())
		})
	})

	Context("declarations", func() {
		It("should list declared connectors sorted by id", func() {
			writeDescriptor(env, sleeperDescriptor("zeta"))
			writeDescriptor(env, sleeperDescriptor("alpha"))
			Expect(sup.Start(ctx)).To(Succeed())

			lst := sup.List()
			Expect(lst).To(HaveLen(2))
			Expect(lst[0].ID).To(Equal("alpha"))
			Expect(lst[1].ID).To(Equal("zeta"))
			Expect(lst[0].State).To(Equal(supsts.Stopped))
		})

		It("should skip invalid descriptor files", func() {
			writeDescriptor(env, sleeperDescriptor("good"))
			writeDescriptor(env, libsup.Descriptor{ID: "bad", Exec: "/no/such/binary"})
			Expect(sup.Start(ctx)).To(Succeed())

			lst := sup.List()
			Expect(lst).To(HaveLen(1))
			Expect(lst[0].ID).To(Equal("good"))
		})

		It("should pick up descriptors added after start", func() {
			Expect(sup.Start(ctx)).To(Succeed())
			Expect(sup.List()).To(BeEmpty())

			writeDescriptor(env, sleeperDescriptor("late"))

			Eventually(func() int {
				return len(sup.List())
			}, 5*time.Second, 50*time.Millisecond).Should(Equal(1))
		})
	})
})
