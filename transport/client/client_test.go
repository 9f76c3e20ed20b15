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

// client_test.go drives the client against a real unix socket server
// speaking the frame protocol: discovery, round trips, multiplexing and
// reconnection after a server restart.
package client_test

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	libdur "github.com/nabbar/golib/duration"

	libend "github.com/nabbar/assistd/endpoint"
	libprt "github.com/nabbar/assistd/protocol"
	libmsg "github.com/nabbar/assistd/protocol/message"
	libtpt "github.com/nabbar/assistd/transport"
	tptclt "github.com/nabbar/assistd/transport/client"
	tptunx "github.com/nabbar/assistd/transport/server/unix"
)

// echoServer answers every request with an ok response carrying its params.
// Requests with a "delay_ms" param are answered late, to exercise
// out-of-order correlation.
func echoServer(_ context.Context, con net.Conn, _ libtpt.Peer) {
	var (
		rdr = libprt.NewReader(con)
		wrt = libprt.NewWriter(con)
	)

	for {
		frm, err := rdr.ReadFrame()
		if err != nil {
			return
		}

		req, err := libmsg.DecodeRequest(frm)
		if err != nil {
			continue
		}

		go func(req *libmsg.Request) {
			if ms, ok := req.ParamInt("delay_ms"); ok && ms > 0 {
				time.Sleep(time.Duration(ms) * time.Millisecond)
			}

			bdy, e := (&libmsg.Response{
				CorrelationID: req.CorrelationID,
				Status:        libmsg.StatusOK,
				Data:          req.Params,
				TraceID:       "trace",
			}).Encode()

			if e == nil {
				_ = wrt.WriteFrame(bdy)
			}
		}(req)
	}
}

var _ = Describe("Native Client", func() {
	var (
		dir string
		sck string
		fil string
		srv tptunx.ServerUnix
		ctx context.Context
		cnl context.CancelFunc
	)

	startServer := func() {
		var err error
		srv, err = tptunx.New(echoServer, libtpt.ServerConfig{
			Address:   sck,
			PermFile:  0600,
			GroupPerm: -1,
		}, nil)
		Expect(err).ToNot(HaveOccurred())

		go func() {
			defer GinkgoRecover()
			_ = srv.Listen(ctx)
		}()

		Eventually(srv.IsRunning, 2*time.Second, 10*time.Millisecond).Should(BeTrue())
	}

	BeforeEach(func() {
		var err error
		dir, err = os.MkdirTemp("", "assistd-client-*")
		Expect(err).ToNot(HaveOccurred())

		sck = filepath.Join(dir, "daemon.sock")
		fil = filepath.Join(dir, "daemon.endpoint")

		ctx, cnl = context.WithCancel(context.Background())

		startServer()

		pub := libend.New(fil, nil)
		Expect(pub.Publish(libend.Descriptor{
			Transport: libend.KindUnix,
			Address:   sck,
			PID:       os.Getpid(),
		})).To(Succeed())
	})

	AfterEach(func() {
		cnl()
		Eventually(srv.IsGone, 2*time.Second, 10*time.Millisecond).Should(BeTrue())
		_ = os.RemoveAll(dir)
	})

	It("should discover, connect and round trip", func() {
		clt, err := tptclt.New(tptclt.DefaultConfig(fil), nil)
		Expect(err).ToNot(HaveOccurred())

		defer func() {
			_ = clt.Close()
		}()

		rsp, err := clt.Query(context.Background(), "/health", map[string]interface{}{"probe": true})
		Expect(err).ToNot(HaveOccurred())
		Expect(rsp.IsOK()).To(BeTrue())

		data, ok := rsp.Data.(map[string]interface{})
		Expect(ok).To(BeTrue())
		Expect(data["probe"]).To(Equal(true))
	})

	It("should fill an empty correlation id and echo it back", func() {
		clt, err := tptclt.New(tptclt.DefaultConfig(fil), nil)
		Expect(err).ToNot(HaveOccurred())

		defer func() {
			_ = clt.Close()
		}()

		req := &libmsg.Request{Method: libmsg.MethodQuery, Path: "/health"}

		rsp, err := clt.Do(context.Background(), req)
		Expect(err).ToNot(HaveOccurred())
		Expect(req.CorrelationID).ToNot(BeEmpty())
		Expect(rsp.CorrelationID).To(Equal(req.CorrelationID))
	})

	It("should multiplex concurrent calls over one connection", func() {
		clt, err := tptclt.New(tptclt.DefaultConfig(fil), nil)
		Expect(err).ToNot(HaveOccurred())

		defer func() {
			_ = clt.Close()
		}()

		var (
			slow = make(chan *libmsg.Response, 1)
			fast = make(chan *libmsg.Response, 1)
		)

		go func() {
			defer GinkgoRecover()
			rsp, er := clt.Query(context.Background(), "/slow", map[string]interface{}{"delay_ms": 300, "who": "slow"})
			Expect(er).ToNot(HaveOccurred())
			slow <- rsp
		}()

		time.Sleep(50 * time.Millisecond)

		go func() {
			defer GinkgoRecover()
			rsp, er := clt.Query(context.Background(), "/fast", map[string]interface{}{"who": "fast"})
			Expect(er).ToNot(HaveOccurred())
			fast <- rsp
		}()

		select {
		case <-fast:
		case <-slow:
			Fail("slow response arrived before fast one")
		case <-time.After(2 * time.Second):
			Fail("no response at all")
		}

		Eventually(slow, 2*time.Second).Should(Receive())
	})

	It("should reconnect after a server restart", func() {
		cfg := tptclt.DefaultConfig(fil)
		cfg.Timeout = libdur.Duration(3 * time.Second)

		clt, err := tptclt.New(cfg, nil)
		Expect(err).ToNot(HaveOccurred())

		defer func() {
			_ = clt.Close()
		}()

		_, err = clt.Query(context.Background(), "/one", nil)
		Expect(err).ToNot(HaveOccurred())

		// bounce the server under the client
		cnl()
		Eventually(srv.IsGone, 2*time.Second, 10*time.Millisecond).Should(BeTrue())

		ctx, cnl = context.WithCancel(context.Background())
		startServer()

		Eventually(func() bool {
			rsp, er := clt.Query(context.Background(), "/two", nil)
			return er == nil && rsp.IsOK()
		}, 5*time.Second, 100*time.Millisecond).Should(BeTrue())
	})

	It("should fail fast when no endpoint is published", func() {
		clt, err := tptclt.New(tptclt.DefaultConfig(filepath.Join(dir, "missing.endpoint")), nil)
		Expect(err).ToNot(HaveOccurred())

		ctx, cnl := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cnl()

		_, err = clt.Query(ctx, "/health", nil)
		Expect(err).To(HaveOccurred())
	})

	It("should send a heartbeat with its counter delta", func() {
		clt, err := tptclt.New(tptclt.DefaultConfig(fil), nil)
		Expect(err).ToNot(HaveOccurred())

		defer func() {
			_ = clt.Close()
		}()

		rsp, err := clt.Heartbeat(context.Background(), "fs", 3)
		Expect(err).ToNot(HaveOccurred())
		Expect(rsp.IsOK()).To(BeTrue())
	})
})
