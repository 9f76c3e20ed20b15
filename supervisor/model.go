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

package supervisor

import (
	"context"
	"encoding/hex"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	libuid "github.com/hashicorp/go-uuid"
	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	"golang.org/x/sync/errgroup"

	libenv "github.com/nabbar/assistd/env"
)

const reconcileEvery = time.Second

type tokenEnt struct {
	id  string
	exp time.Time
}

type sup struct {
	m   sync.RWMutex
	c   Config
	e   libenv.Context
	l   liblog.FuncLog
	a   map[string]*actor
	t   map[string]tokenEnt
	w   *fsnotify.Watcher
	cnl context.CancelFunc
	run *atomic.Bool
}

func newSupervisor(cfg Config, e libenv.Context, log liblog.FuncLog) *sup {
	return &sup{
		m:   sync.RWMutex{},
		c:   cfg,
		e:   e,
		l:   log,
		a:   make(map[string]*actor),
		t:   make(map[string]tokenEnt),
		run: new(atomic.Bool),
	}
}

func (o *sup) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

// issueToken mints a one-time admission token for a connector spawn.
func (o *sup) issueToken(id string) (string, error) {
	raw, err := libuid.GenerateRandomBytes(32)
	if err != nil {
		return "", err
	}

	tok := hex.EncodeToString(raw)

	o.m.Lock()
	o.t[tok] = tokenEnt{
		id:  id,
		exp: time.Now().Add(o.c.TokenDeadline.Time()),
	}
	o.m.Unlock()

	return tok, nil
}

func (o *sup) VerifyConnectorToken(token string) (string, bool) {
	if token == "" {
		return "", false
	}

	o.m.Lock()
	defer o.m.Unlock()

	ent, ok := o.t[token]
	if !ok {
		return "", false
	}

	// single use
	delete(o.t, token)

	if time.Now().After(ent.exp) {
		return "", false
	}

	return ent.id, true
}

func (o *sup) pruneTokens(now time.Time) {
	o.m.Lock()
	defer o.m.Unlock()

	for k, v := range o.t {
		if now.After(v.exp) {
			delete(o.t, k)
		}
	}
}

func (o *sup) getActor(id string) (*actor, liberr.Error) {
	o.m.RLock()
	defer o.m.RUnlock()

	if a, ok := o.a[id]; ok {
		return a, nil
	}

	return nil, ErrorConnectorNotFound.Error(nil)
}

func (o *sup) Start(ctx context.Context) liberr.Error {
	if o.run.Load() {
		return nil
	}

	reapOrphans(o.e.LockDir(), o.logger())

	if err := o.Reload(); err != nil {
		return err
	}

	ctx, cnl := context.WithCancel(ctx)

	o.m.Lock()
	o.cnl = cnl
	o.m.Unlock()

	if w, err := fsnotify.NewWatcher(); err != nil {
		o.logger().Entry(loglvl.WarnLevel, "descriptor watcher unavailable").ErrorAdd(true, err).Check(loglvl.NilLevel)
	} else if err = w.Add(o.e.ConnectorsDir()); err != nil {
		o.logger().Entry(loglvl.WarnLevel, "cannot watch connectors directory").ErrorAdd(true, err).Check(loglvl.NilLevel)
		_ = w.Close()
	} else {
		o.m.Lock()
		o.w = w
		o.m.Unlock()

		go o.watch(ctx, w)
	}

	go o.reconciler(ctx)

	o.run.Store(true)

	o.autoStart(ctx)

	return nil
}

func (o *sup) autoStart(ctx context.Context) {
	o.m.RLock()
	defer o.m.RUnlock()

	for _, a := range o.a {
		if a.d.AutoStart {
			go func(a *actor) {
				if _, err := a.start(ctx); err != nil {
					o.logger().Entry(loglvl.ErrorLevel, "connector autostart failed").
						FieldAdd("connector", a.i).
						ErrorAdd(true, err).
						Check(loglvl.NilLevel)
				}
			}(a)
		}
	}
}

func (o *sup) watch(ctx context.Context, w *fsnotify.Watcher) {
	for {
		select {
		case <-ctx.Done():
			return

		case ev, ok := <-w.Events:
			if !ok {
				return
			}

			if !strings.HasSuffix(ev.Name, ".json") {
				continue
			}

			if err := o.Reload(); err != nil {
				o.logger().Entry(loglvl.WarnLevel, "descriptor reload failed").ErrorAdd(true, err).Check(loglvl.NilLevel)
			}

		case err, ok := <-w.Errors:
			if !ok {
				return
			}

			o.logger().Entry(loglvl.WarnLevel, "descriptor watcher error").ErrorAdd(true, err).Check(loglvl.NilLevel)
		}
	}
}

// reconciler is the single central task enforcing heartbeat deadlines,
// stable-runtime counter resets and token expiry.
func (o *sup) reconciler(ctx context.Context) {
	tck := time.NewTicker(reconcileEvery)
	defer tck.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case now := <-tck.C:
			o.m.RLock()
			act := make([]*actor, 0, len(o.a))
			for _, a := range o.a {
				act = append(act, a)
			}
			o.m.RUnlock()

			for _, a := range act {
				a.reconcile(now)
			}

			o.pruneTokens(now)
		}
	}
}

func (o *sup) Reload() liberr.Error {
	dsc, bad := loadDescriptors(o.e.ConnectorsDir())

	for _, e := range bad {
		o.logger().Entry(loglvl.WarnLevel, "skipping invalid connector descriptor").ErrorAdd(true, e).Check(loglvl.NilLevel)
	}

	o.m.Lock()
	defer o.m.Unlock()

	for id, d := range dsc {
		if a, ok := o.a[id]; ok {
			a.setDescriptor(d)
		} else {
			o.a[id] = newActor(d, o.c, o.e.LockDir(), o.e.EndpointFile(), o.issueToken, o.l)
		}
	}

	// declarations removed on disk disappear once the connector is down
	for id, a := range o.a {
		if _, ok := dsc[id]; !ok && !a.status().State.IsLive() {
			delete(o.a, id)
		}
	}

	return nil
}

func (o *sup) Stop(ctx context.Context) liberr.Error {
	if !o.run.Load() {
		return nil
	}

	o.m.Lock()
	cnl := o.cnl
	wtc := o.w
	o.w = nil
	o.m.Unlock()

	if wtc != nil {
		_ = wtc.Close()
	}

	o.m.RLock()
	act := make([]*actor, 0, len(o.a))
	for _, a := range o.a {
		act = append(act, a)
	}
	o.m.RUnlock()

	grp, gtx := errgroup.WithContext(ctx)

	for _, a := range act {
		a := a
		grp.Go(func() error {
			_, err := a.stop(gtx, o.c.DefaultGrace)
			if err != nil {
				return err
			}
			return nil
		})
	}

	err := grp.Wait()

	if cnl != nil {
		cnl()
	}

	o.run.Store(false)

	if err != nil {
		return ErrorConnectorStopFailed.Error(err)
	}

	return nil
}

func (o *sup) IsRunning() bool {
	return o.run.Load()
}

func (o *sup) List() []Status {
	o.m.RLock()
	act := make([]*actor, 0, len(o.a))
	for _, a := range o.a {
		act = append(act, a)
	}
	o.m.RUnlock()

	res := make([]Status, 0, len(act))

	for _, a := range act {
		res = append(res, a.status())
	}

	sort.Slice(res, func(i, j int) bool {
		return res[i].ID < res[j].ID
	})

	return res
}

func (o *sup) StartConnector(ctx context.Context, id string) (Status, liberr.Error) {
	a, err := o.getActor(id)
	if err != nil {
		return Status{}, err
	}

	s, err := a.start(ctx)

	if err != nil && s.ErrorCode == errCodeCrashloop {
		return s, ErrorConnectorCrashloop.Error(err)
	}

	return s, err
}

func (o *sup) StopConnector(ctx context.Context, id string, grace libdur.Duration) (Status, liberr.Error) {
	a, err := o.getActor(id)
	if err != nil {
		return Status{}, err
	}

	return a.stop(ctx, grace)
}

func (o *sup) ResetConnector(id string) (Status, liberr.Error) {
	a, err := o.getActor(id)
	if err != nil {
		return Status{}, err
	}

	return a.reset()
}

func (o *sup) StatusConnector(id string) (Status, liberr.Error) {
	a, err := o.getActor(id)
	if err != nil {
		return Status{}, err
	}

	return a.status(), nil
}

func (o *sup) Heartbeat(id string, dataDelta int64) (Status, liberr.Error) {
	a, err := o.getActor(id)
	if err != nil {
		return Status{}, err
	}

	return a.heartbeat(dataDelta)
}

func (o *sup) ReportError(id, code, msg string) (Status, liberr.Error) {
	a, err := o.getActor(id)
	if err != nil {
		return Status{}, err
	}

	return a.reportError(code, msg)
}
