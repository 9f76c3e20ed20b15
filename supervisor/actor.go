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
	"bufio"
	"context"
	"io"
	"os"
	"os/exec"
	"sync"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"

	supsts "github.com/nabbar/assistd/supervisor/state"
)

const (
	errCodeCrash     = "CONNECTOR_CRASH"
	errCodeCrashloop = "CONNECTOR_CRASHLOOP"
	errCodeStart     = "CONNECTOR_START_FAILED"
	errCodeHeartbeat = "CONNECTOR_HEARTBEAT_LOST"
	errCodeReported  = "CONNECTOR_REPORTED"
)

// tokenIssuer mints a one-time admission token for a connector id.
type tokenIssuer func(id string) (string, error)

// actor serializes every lifecycle transition of one connector behind its
// own mutex; the supervisor never touches a child process outside of it.
type actor struct {
	m sync.Mutex
	i string
	d *Descriptor
	c Config
	l liblog.FuncLog
	k string // lock directory
	f string // endpoint file handed to children
	t tokenIssuer

	sts supsts.State
	cmd *exec.Cmd
	pid int
	epo int64
	snc time.Time
	run time.Time
	lhb time.Time
	rst int
	fls int
	cnt int64
	ecd string
	stp bool
	win time.Time
	hbw chan struct{} // closed on STARTING -> RUNNING
	don chan struct{} // closed when the current process exited
	tmr *time.Timer
}

func newActor(d *Descriptor, cfg Config, lockDir, endpointFile string, tok tokenIssuer, log liblog.FuncLog) *actor {
	return &actor{
		m:   sync.Mutex{},
		i:   d.ID,
		d:   d,
		c:   cfg,
		l:   log,
		k:   lockDir,
		f:   endpointFile,
		t:   tok,
		sts: supsts.Stopped,
	}
}

func (o *actor) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (o *actor) setDescriptor(d *Descriptor) {
	o.m.Lock()
	defer o.m.Unlock()
	o.d = d
}

func (o *actor) status() Status {
	o.m.Lock()
	defer o.m.Unlock()
	return o.statusLocked()
}

func (o *actor) statusLocked() Status {
	return Status{
		ID:            o.i,
		Name:          o.d.Name,
		State:         o.sts,
		Pid:           o.pid,
		StartEpoch:    o.epo,
		Since:         o.snc,
		LastHeartbeat: o.lhb,
		Restarts:      o.rst,
		Failures:      o.fls,
		DataCount:     o.cnt,
		ErrorCode:     o.ecd,
		StopRequested: o.stp,
	}
}

func (o *actor) setState(s supsts.State) {
	o.logger().Entry(loglvl.InfoLevel, "connector state changed").
		FieldAdd("connector", o.i).
		FieldAdd("from", o.sts.String()).
		FieldAdd("to", s.String()).
		FieldAdd("epoch", o.epo).
		Log()

	o.sts = s
	o.snc = time.Now()
}

// start spawns the connector and blocks until RUNNING or the start deadline.
func (o *actor) start(ctx context.Context) (Status, liberr.Error) {
	o.m.Lock()

	if !o.sts.CanStart() {
		s := o.statusLocked()
		o.m.Unlock()
		return s, ErrorConnectorStateInvalid.Error(nil)
	}

	// a manual start from ERROR clears the pinned state and its budget
	o.fls = 0
	o.ecd = ""
	o.win = time.Time{}

	if o.tmr != nil {
		o.tmr.Stop()
		o.tmr = nil
	}

	if err := o.spawnLocked(); err != nil {
		s := o.statusLocked()
		o.m.Unlock()
		return s, err
	}

	var (
		hbw = o.hbw
		don = o.don
		epo = o.epo
	)

	o.m.Unlock()

	sel := time.NewTimer(o.c.StartDeadline.Time())
	defer sel.Stop()

	select {
	case <-hbw:
		return o.status(), nil

	case <-don:
		// the child died inside the handshake; restart policy may still
		// retry in the background, but this start has failed
		if s := o.status(); s.State == supsts.Running {
			return s, nil
		} else {
			return s, ErrorConnectorStartFailed.Error(nil)
		}

	case <-ctx.Done():
		return o.failStart(epo, ctx.Err())

	case <-sel.C:
		return o.failStart(epo, nil)
	}
}

func (o *actor) failStart(epoch int64, cause error) (Status, liberr.Error) {
	o.m.Lock()
	defer o.m.Unlock()

	if o.epo != epoch || o.sts != supsts.Starting {
		// the handshake completed while we were giving up
		return o.statusLocked(), nil
	}

	o.setState(supsts.Error)
	o.ecd = errCodeStart

	if o.cmd != nil && o.cmd.Process != nil {
		_ = o.cmd.Process.Kill()
	}

	return o.statusLocked(), ErrorConnectorStartFailed.Error(cause)
}

// spawnLocked launches the child process. Caller holds the mutex.
func (o *actor) spawnLocked() liberr.Error {
	tok, err := o.t(o.i)
	if err != nil {
		return ErrorConnectorStartFailed.Error(err)
	}

	cmd := exec.Command(o.d.Exec, o.d.Args...)
	cmd.Env = append(os.Environ(),
		EnvToken+"="+tok,
		EnvEndpoint+"="+o.f,
		EnvConnectorID+"="+o.i,
	)

	for k, v := range o.d.Env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	out, err := cmd.StdoutPipe()
	if err != nil {
		return ErrorConnectorStartFailed.Error(err)
	}

	der, err := cmd.StderrPipe()
	if err != nil {
		return ErrorConnectorStartFailed.Error(err)
	}

	if err = cmd.Start(); err != nil {
		return ErrorConnectorStartFailed.Error(err)
	}

	o.cmd = cmd
	o.pid = cmd.Process.Pid
	o.epo++
	o.stp = false
	o.lhb = time.Time{}
	o.hbw = make(chan struct{})
	o.don = make(chan struct{})
	o.setState(supsts.Starting)

	writeLock(o.k, o.i, o.pid, o.logger())

	go o.drain(o.i, "stdout", loglvl.InfoLevel, out)
	go o.drain(o.i, "stderr", loglvl.WarnLevel, der)
	go o.waitExit(cmd, o.epo, o.don)

	return nil
}

// drain forwards one child output stream line by line into structured logs.
func (o *actor) drain(id, name string, lvl loglvl.Level, r io.ReadCloser) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 256*1024)

	for sc.Scan() {
		o.logger().Entry(lvl, sc.Text()).
			FieldAdd("connector", id).
			FieldAdd("stream", name).
			Log()
	}
}

func (o *actor) waitExit(cmd *exec.Cmd, epoch int64, don chan struct{}) {
	err := cmd.Wait()
	close(don)
	o.onExit(epoch, err)
}

func (o *actor) onExit(epoch int64, cause error) {
	o.m.Lock()
	defer o.m.Unlock()

	if o.epo != epoch {
		return
	}

	clearLock(o.k, o.i)
	o.pid = 0
	o.cmd = nil

	switch o.sts {
	case supsts.Stopping:
		// requested stop completed
		o.setState(supsts.Stopped)
		o.ecd = ""
		o.stp = false
		return

	case supsts.Starting, supsts.Running:
		// fallthrough to crash handling below

	default:
		// already pinned by a failed handshake or reset; just cleanup
		return
	}

	if cause == nil && o.d.Restart != PolicyAlways {
		o.setState(supsts.Stopped)
		return
	}

	now := time.Now()

	if o.win.IsZero() || now.Sub(o.win) > o.c.BackoffWindow.Time() {
		o.win = now
		o.fls = 0
	}

	o.fls++
	o.rst++
	o.setState(supsts.Error)
	o.ecd = errCodeCrash

	o.logger().Entry(loglvl.ErrorLevel, "connector exited unexpectedly").
		FieldAdd("connector", o.i).
		FieldAdd("failures", o.fls).
		ErrorAdd(true, cause).
		Check(loglvl.NilLevel)

	if o.d.Restart == PolicyNever {
		return
	}

	if o.fls > o.c.MaxRestarts {
		o.ecd = errCodeCrashloop
		o.logger().Entry(loglvl.ErrorLevel, "connector restart budget exhausted").
			FieldAdd("connector", o.i).
			FieldAdd("restarts", o.rst).
			Log()
		return
	}

	dly := o.backoffLocked()
	epo := o.epo

	o.tmr = time.AfterFunc(dly, func() {
		o.autoRestart(epo)
	})
}

func (o *actor) backoffLocked() time.Duration {
	d := o.c.BackoffBase.Time()

	for i := 1; i < o.fls; i++ {
		d *= 2

		if d >= o.c.BackoffMax.Time() {
			return o.c.BackoffMax.Time()
		}
	}

	if m := o.c.BackoffMax.Time(); d > m {
		d = m
	}

	return d
}

func (o *actor) autoRestart(epoch int64) {
	o.m.Lock()
	defer o.m.Unlock()

	if o.epo != epoch || o.sts != supsts.Error || o.ecd == errCodeCrashloop || o.stp {
		return
	}

	if err := o.spawnLocked(); err != nil {
		o.logger().Entry(loglvl.ErrorLevel, "connector restart failed").
			FieldAdd("connector", o.i).
			ErrorAdd(true, err).
			Check(loglvl.NilLevel)
	}
}

// stop drives a graceful shutdown: the stop request is relayed on the next
// heartbeat ack, a terminate signal lands at half grace, and a hard kill at
// the full grace.
func (o *actor) stop(ctx context.Context, grace libdur.Duration) (Status, liberr.Error) {
	o.m.Lock()

	if o.sts == supsts.Stopped {
		s := o.statusLocked()
		o.m.Unlock()
		return s, nil
	}

	if o.sts == supsts.Error {
		// nothing lives; clearing the error is a reset, not a stop
		if o.tmr != nil {
			o.tmr.Stop()
			o.tmr = nil
		}
		o.setState(supsts.Stopped)
		o.ecd = ""
		s := o.statusLocked()
		o.m.Unlock()
		return s, nil
	}

	if grace == 0 {
		grace = o.c.DefaultGrace
	}

	o.stp = true

	if o.sts != supsts.Stopping {
		o.setState(supsts.Stopping)
	}

	var (
		don = o.don
		prc *os.Process
	)

	if o.cmd != nil {
		prc = o.cmd.Process
	}

	o.m.Unlock()

	if don == nil || prc == nil {
		return o.status(), nil
	}

	half := time.NewTimer(grace.Time() / 2)
	defer half.Stop()

	select {
	case <-don:
		return o.status(), nil
	case <-ctx.Done():
	case <-half.C:
	}

	_ = terminate(prc)

	rest := time.NewTimer(grace.Time() / 2)
	defer rest.Stop()

	select {
	case <-don:
		return o.status(), nil
	case <-rest.C:
	}

	_ = prc.Kill()

	last := time.NewTimer(time.Second)
	defer last.Stop()

	select {
	case <-don:
	case <-last.C:
	}

	return o.status(), nil
}

func (o *actor) heartbeat(delta int64) (Status, liberr.Error) {
	o.m.Lock()
	defer o.m.Unlock()

	switch o.sts {
	case supsts.Starting:
		o.setState(supsts.Running)
		o.run = time.Now()
		close(o.hbw)

	case supsts.Running, supsts.Stopping:
		// idempotent: state does not advance

	default:
		return o.statusLocked(), ErrorConnectorStateInvalid.Error(nil)
	}

	o.lhb = time.Now()

	if delta > 0 {
		o.cnt += delta
	}

	return o.statusLocked(), nil
}

func (o *actor) reportError(code, msg string) (Status, liberr.Error) {
	o.m.Lock()
	defer o.m.Unlock()

	if !o.sts.IsLive() {
		return o.statusLocked(), ErrorConnectorStateInvalid.Error(nil)
	}

	o.logger().Entry(loglvl.ErrorLevel, "connector reported an error").
		FieldAdd("connector", o.i).
		FieldAdd("reported_code", code).
		FieldAdd("reported_message", msg).
		Log()

	o.setState(supsts.Error)

	if code == "" {
		code = errCodeReported
	}

	o.ecd = code

	if o.cmd != nil && o.cmd.Process != nil {
		_ = terminate(o.cmd.Process)
	}

	return o.statusLocked(), nil
}

func (o *actor) reset() (Status, liberr.Error) {
	o.m.Lock()
	defer o.m.Unlock()

	switch o.sts {
	case supsts.Stopped:
		return o.statusLocked(), nil

	case supsts.Error:
		if o.tmr != nil {
			o.tmr.Stop()
			o.tmr = nil
		}

		o.setState(supsts.Stopped)
		o.ecd = ""
		o.fls = 0
		o.win = time.Time{}
		return o.statusLocked(), nil
	}

	return o.statusLocked(), ErrorConnectorStateInvalid.Error(nil)
}

// reconcile enforces the heartbeat deadline and the stable-runtime counter
// reset. Called periodically by the supervisor's central reconciler.
func (o *actor) reconcile(now time.Time) {
	o.m.Lock()

	if o.sts == supsts.Running && now.Sub(o.run) >= o.c.StableRuntime.Time() && o.fls > 0 {
		o.fls = 0
		o.win = time.Time{}
	}

	var prc *os.Process

	if o.sts == supsts.Running && !o.lhb.IsZero() && now.Sub(o.lhb) > o.c.HeartbeatDeadline.Time() {
		o.logger().Entry(loglvl.ErrorLevel, "connector missed heartbeat deadline").
			FieldAdd("connector", o.i).
			FieldAdd("last_heartbeat", o.lhb).
			Log()

		o.ecd = errCodeHeartbeat

		if o.cmd != nil {
			prc = o.cmd.Process
		}
	}

	o.m.Unlock()

	if prc != nil {
		// the kill drives the regular crash path through waitExit
		_ = prc.Kill()
	}
}
