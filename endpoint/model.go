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

package endpoint

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	libprc "github.com/shirou/gopsutil/process"
)

type pub struct {
	m sync.Mutex
	f string
	l liblog.FuncLog
	p bool
}

func (o *pub) logger() liblog.Logger {
	if o.l == nil {
		return liblog.GetDefault()
	} else if l := o.l(); l == nil {
		return liblog.GetDefault()
	} else {
		return l
	}
}

func (d Descriptor) encode() []byte {
	var b strings.Builder

	b.WriteString("transport=" + d.Transport.String() + "\n")
	b.WriteString("address=" + d.Address + "\n")
	b.WriteString("pid=" + strconv.Itoa(d.PID) + "\n")

	return []byte(b.String())
}

func parse(p []byte) (*Descriptor, liberr.Error) {
	var d Descriptor

	for _, lin := range strings.Split(string(p), "\n") {
		lin = strings.TrimSpace(lin)

		if lin == "" {
			continue
		}

		key, val, ok := strings.Cut(lin, "=")
		if !ok {
			return nil, ErrorDescriptorInvalid.Error(nil)
		}

		switch key {
		case "transport":
			d.Transport = ParseKind(val)
		case "address":
			d.Address = val
		case "pid":
			i, e := strconv.Atoi(val)
			if e != nil {
				return nil, ErrorDescriptorInvalid.Error(e)
			}
			d.PID = i
		default:
			return nil, ErrorDescriptorInvalid.Error(nil)
		}
	}

	if d.Transport == KindNone || d.Address == "" || d.PID < 1 {
		return nil, ErrorDescriptorInvalid.Error(nil)
	}

	return &d, nil
}

func readFile(file string) (*Descriptor, liberr.Error) {
	if file == "" {
		return nil, ErrorParamEmpty.Error(nil)
	}

	if err := checkOwnerOnly(file); err != nil {
		return nil, err
	}

	p, err := os.ReadFile(file)
	if err != nil {
		return nil, ErrorDescriptorRead.Error(err)
	}

	return parse(p)
}

func (o *pub) Probe() (Conflict, liberr.Error) {
	o.m.Lock()
	defer o.m.Unlock()

	p, err := os.ReadFile(o.f)

	if err != nil {
		if os.IsNotExist(err) {
			return ConflictNone, nil
		}
		return ConflictNone, ErrorDescriptorRead.Error(err)
	}

	d, er := parse(p)

	if er != nil {
		// unreadable garbage is treated as stale
		o.logger().Entry(loglvl.WarnLevel, "removing malformed endpoint descriptor").FieldAdd("file", o.f).Log()
		return ConflictNone, o.remove()
	}

	prc, e := libprc.NewProcess(int32(d.PID))

	if e != nil {
		o.logger().Entry(loglvl.InfoLevel, "removing stale endpoint descriptor").FieldAdd("file", o.f).FieldAdd("pid", d.PID).Log()
		return ConflictNone, o.remove()
	}

	exe, e := prc.Exe()

	if e != nil {
		return ConflictForeign, nil
	}

	cur, e := os.Executable()

	if e == nil && sameExecutable(exe, cur) {
		return ConflictSelf, nil
	}

	return ConflictForeign, nil
}

func sameExecutable(a, b string) bool {
	if a == b {
		return true
	}

	return filepath.Base(a) == filepath.Base(b)
}

func (o *pub) Publish(d Descriptor) liberr.Error {
	o.m.Lock()
	defer o.m.Unlock()

	if d.Transport == KindNone || d.Address == "" || d.PID < 1 {
		return ErrorParamEmpty.Error(nil)
	}

	dir := filepath.Dir(o.f)

	if err := os.MkdirAll(dir, 0700); err != nil {
		return ErrorDescriptorWrite.Error(err)
	}

	tmp, err := os.CreateTemp(dir, ".daemon.endpoint.*")
	if err != nil {
		return ErrorDescriptorWrite.Error(err)
	}

	defer func() {
		_ = os.Remove(tmp.Name())
	}()

	if err = tmp.Chmod(0600); err != nil {
		_ = tmp.Close()
		return ErrorDescriptorWrite.Error(err)
	}

	if _, err = tmp.Write(d.encode()); err != nil {
		_ = tmp.Close()
		return ErrorDescriptorWrite.Error(err)
	}

	if err = tmp.Close(); err != nil {
		return ErrorDescriptorWrite.Error(err)
	}

	if err = os.Rename(tmp.Name(), o.f); err != nil {
		return ErrorDescriptorWrite.Error(err)
	}

	o.p = true
	o.logger().Entry(loglvl.InfoLevel, "endpoint descriptor published").FieldAdd("file", o.f).FieldAdd("address", d.Address).Log()

	return nil
}

func (o *pub) Unpublish() liberr.Error {
	o.m.Lock()
	defer o.m.Unlock()

	if !o.p {
		return nil
	}

	o.p = false
	return o.remove()
}

func (o *pub) remove() liberr.Error {
	if err := os.Remove(o.f); err != nil && !os.IsNotExist(err) {
		return ErrorDescriptorRemove.Error(err)
	}

	return nil
}

func (o *pub) IsPublished() bool {
	o.m.Lock()
	defer o.m.Unlock()
	return o.p
}
