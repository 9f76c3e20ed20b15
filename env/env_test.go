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

package env_test

import (
	"os"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libenv "github.com/nabbar/assistd/env"
)

var _ = Describe("Environment Context", func() {
	BeforeEach(func() {
		Expect(os.Unsetenv(libenv.VarName)).To(Succeed())
	})

	Context("selector resolution", func() {
		It("should parse the allowed names case insensitively", func() {
			Expect(libenv.Parse("Development")).To(Equal(libenv.EnvDevelopment))
			Expect(libenv.Parse("STAGING")).To(Equal(libenv.EnvStaging))
			Expect(libenv.Parse("production")).To(Equal(libenv.EnvProduction))
			Expect(libenv.Parse("qa")).To(Equal(libenv.EnvNone))
		})

		It("should default to development with no selector", func() {
			ctx, err := libenv.New("")
			Expect(err).ToNot(HaveOccurred())
			Expect(ctx.Env()).To(Equal(libenv.EnvDevelopment))
		})

		It("should honor the environment variable", func() {
			Expect(os.Setenv(libenv.VarName, "staging")).To(Succeed())

			defer func() {
				_ = os.Unsetenv(libenv.VarName)
			}()

			ctx, err := libenv.New("")
			Expect(err).ToNot(HaveOccurred())
			Expect(ctx.Env()).To(Equal(libenv.EnvStaging))
		})

		It("should let an explicit selector override the variable", func() {
			Expect(os.Setenv(libenv.VarName, "staging")).To(Succeed())

			defer func() {
				_ = os.Unsetenv(libenv.VarName)
			}()

			ctx, err := libenv.New("production")
			Expect(err).ToNot(HaveOccurred())
			Expect(ctx.Env()).To(Equal(libenv.EnvProduction))
		})

		It("should refuse an unknown selector", func() {
			_, err := libenv.New("qa")
			Expect(err).To(HaveOccurred())
			Expect(err.HasCode(libenv.ErrorEnvInvalid)).To(BeTrue())
		})
	})

	Context("derived paths", func() {
		It("should segregate environments on disk", func() {
			dev, err := libenv.New("development")
			Expect(err).ToNot(HaveOccurred())

			prd, err := libenv.New("production")
			Expect(err).ToNot(HaveOccurred())

			Expect(dev.EndpointFile()).ToNot(Equal(prd.EndpointFile()))
			Expect(dev.SocketPath()).ToNot(Equal(prd.SocketPath()))
			Expect(dev.DataDir()).ToNot(Equal(prd.DataDir()))

			Expect(dev.EndpointFile()).To(ContainSubstring("development"))
			Expect(prd.EndpointFile()).To(ContainSubstring("production"))
		})

		It("should keep every path under the environment roots", func() {
			ctx, err := libenv.New("staging")
			Expect(err).ToNot(HaveOccurred())

			for _, p := range []string{
				ctx.DataDir(),
				ctx.LogDir(),
				ctx.SocketPath(),
				ctx.EndpointFile(),
				ctx.PidFile(),
				ctx.ConnectorsDir(),
				ctx.LockDir(),
				ctx.DatabasePath(),
				ctx.ConfigFile(),
			} {
				Expect(p).To(ContainSubstring("staging"), p)
			}
		})

		It("should name the pipe per user and environment", func() {
			ctx, err := libenv.New("development")
			Expect(err).ToNot(HaveOccurred())

			Expect(strings.HasPrefix(ctx.PipeName(), `\\.\pipe\assistd-`)).To(BeTrue())
			Expect(ctx.PipeName()).To(ContainSubstring("development"))
		})
	})
})
