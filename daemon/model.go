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

package daemon

import (
	"context"
	"os"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	libver "github.com/nabbar/golib/version"

	libend "github.com/nabbar/assistd/endpoint"
	libenv "github.com/nabbar/assistd/env"
	libfcd "github.com/nabbar/assistd/facade"
	libipc "github.com/nabbar/assistd/ipc"
	libmid "github.com/nabbar/assistd/middleware"
	librtr "github.com/nabbar/assistd/router"
	libsup "github.com/nabbar/assistd/supervisor"
	libtpt "github.com/nabbar/assistd/transport"
)

type dmn struct {
	m   sync.RWMutex
	c   *Config
	v   libver.Version
	l   liblog.FuncLog
	e   libenv.Context
	f   libfcd.Registry
	s   libsup.Supervisor
	r   librtr.Router
	p   libend.Publisher
	t   libtpt.Server
	i   libipc.Manager
	cnl context.CancelFunc
	run *atomic.Bool
	beg time.Time
}

func newDaemon(cfg *Config, e libenv.Context, vrs libver.Version, log liblog.FuncLog) *dmn {
	return &dmn{
		m:   sync.RWMutex{},
		c:   cfg,
		v:   vrs,
		l:   log,
		e:   e,
		f:   libfcd.New(),
		r:   librtr.New(),
		p:   libend.New(e.EndpointFile(), log),
		run: new(atomic.Bool),
	}
}

func (o *dmn) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *dmn) Env() libenv.Context {
	return o.e
}

func (o *dmn) Facade() libfcd.Registry {
	return o.f
}

func (o *dmn) IsRunning() bool {
	return o.run.Load()
}

func (o *dmn) Uptime() time.Duration {
	o.m.RLock()
	defer o.m.RUnlock()

	if !o.run.Load() || o.beg.IsZero() {
		return 0
	}

	return time.Since(o.beg)
}

func (o *dmn) Start(ctx context.Context) liberr.Error {
	if o.run.Load() {
		return nil
	}

	if err := o.e.MakeDirs(); err != nil {
		return err
	}

	switch cft, err := o.p.Probe(); {
	case err != nil:
		return err
	case cft == libend.ConflictSelf:
		return ErrorAlreadyRunning.Error(nil)
	case cft == libend.ConflictForeign:
		return ErrorEndpointConflict.Error(nil)
	}

	sup, err := libsup.New(o.c.Supervisor, o.e, o.l)
	if err != nil {
		return err
	}

	ctx, cnl := context.WithCancel(ctx)

	o.m.Lock()
	o.s = sup
	o.cnl = cnl
	o.m.Unlock()

	if err = sup.Start(ctx); err != nil {
		cnl()
		return err
	}

	if err = o.wire(sup); err != nil {
		cnl()
		_ = sup.Stop(context.Background())
		return err
	}

	srv, err := o.listen(ctx)
	if err != nil {
		cnl()
		_ = sup.Stop(context.Background())
		return err
	}

	o.m.Lock()
	o.t = srv
	o.beg = time.Now()
	o.m.Unlock()

	o.writePid()

	if err = o.p.Publish(libend.Descriptor{
		Transport: transportKind(),
		Address:   transportAddress(o.e),
		PID:       os.Getpid(),
	}); err != nil {
		cnl()
		_ = sup.Stop(context.Background())
		return err
	}

	o.run.Store(true)

	o.logger().Entry(loglvl.InfoLevel, "daemon started").
		FieldAdd("env", o.e.Env().String()).
		FieldAdd("pid", os.Getpid()).
		Log()

	return nil
}

// wire builds the facade, the route table and the middleware pipeline, then
// freezes both tables.
func (o *dmn) wire(sup libsup.Supervisor) liberr.Error {
	for k, v := range map[libfcd.Key]interface{}{
		libfcd.KeyEnv:        o.e,
		libfcd.KeySupervisor: sup,
		libfcd.KeyVersion:    o.v,
	} {
		if v == nil {
			continue
		}

		if err := o.f.Register(k, v); err != nil && !err.HasCode(libfcd.ErrorDuplicate) {
			return err
		}
	}

	o.f.Freeze()

	if err := o.routes(); err != nil {
		return err
	}

	o.r.Freeze()

	trl := libmid.NewTranslator(o.l)
	lim := libmid.NewRateLimit(o.c.RateLimit, trl)

	pipeline := libmid.Build(
		libmid.NewInvoke(trl),
		libmid.NewTrace(o.l),
		libmid.NewAuth(o.c.Auth, sup, trl),
		libmid.NewResolve(o.r, trl),
		lim,
		libmid.NewValidate(trl),
	)

	mgr := libipc.New(o.c.IPC, pipeline, trl, o.l)
	mgr.RegisterFuncClosed(lim.Forget)
	mgr.RegisterFuncClosed(trl.Forget)

	o.m.Lock()
	o.i = mgr
	o.m.Unlock()

	return nil
}

// listen binds the platform transport and waits for the accept loop.
func (o *dmn) listen(ctx context.Context) (libtpt.Server, liberr.Error) {
	srv, err := newListener(o.i.Handler(), libtpt.ServerConfig{
		Address:        transportAddress(o.e),
		PermFile:       0600,
		GroupPerm:      -1,
		ConIdleTimeout: o.c.IdleTimeout,
	}, o.l)

	if err != nil {
		return nil, err
	}

	srv.RegisterFuncError(func(e error) {
		o.logger().Entry(loglvl.WarnLevel, "transport error").ErrorAdd(true, e).Check(loglvl.NilLevel)
	})

	lch := make(chan liberr.Error, 1)

	go func() {
		lch <- srv.Listen(ctx)
	}()

	tck := time.NewTicker(10 * time.Millisecond)
	defer tck.Stop()

	dla := time.NewTimer(2 * time.Second)
	defer dla.Stop()

	for {
		select {
		case e := <-lch:
			if e == nil {
				e = ErrorBindFailed.Error(nil)
			}
			return nil, ErrorBindFailed.Error(e)

		case <-dla.C:
			return nil, ErrorBindFailed.Error(nil)

		case <-tck.C:
			if srv.IsRunning() {
				return srv, nil
			}
		}
	}
}

func (o *dmn) writePid() {
	pid := []byte(strconv.Itoa(os.Getpid()) + "\n")

	if err := os.WriteFile(o.e.PidFile(), pid, 0600); err != nil {
		o.logger().Entry(loglvl.WarnLevel, "cannot write pid file").ErrorAdd(true, err).Check(loglvl.NilLevel)
	}
}

func (o *dmn) Stop(ctx context.Context) liberr.Error {
	if !o.run.Load() {
		return nil
	}

	o.run.Store(false)

	if err := o.p.Unpublish(); err != nil {
		o.logger().Entry(loglvl.WarnLevel, "cannot remove endpoint descriptor").ErrorAdd(true, err).Check(loglvl.NilLevel)
	}

	o.m.RLock()
	srv := o.t
	sup := o.s
	cnl := o.cnl
	o.m.RUnlock()

	var res liberr.Error

	if srv != nil {
		dtx, dnl := context.WithTimeout(ctx, DrainDeadline.Time())

		if err := srv.Shutdown(dtx); err != nil {
			res = err
		}

		dnl()
	}

	if cnl != nil {
		cnl()
	}

	if sup != nil {
		if err := sup.Stop(ctx); err != nil && res == nil {
			res = err
		}
	}

	_ = os.Remove(o.e.PidFile())

	o.logger().Entry(loglvl.InfoLevel, "daemon stopped").FieldAdd("env", o.e.Env().String()).Log()

	return res
}
