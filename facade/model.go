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

package facade

import (
	"sync/atomic"

	libatm "github.com/nabbar/golib/atomic"
	liberr "github.com/nabbar/golib/errors"
)

type reg struct {
	m libatm.Map[Key]
	f *atomic.Bool
}

func newRegistry() *reg {
	return &reg{
		m: libatm.NewMapAny[Key](),
		f: new(atomic.Bool),
	}
}

func (o *reg) Register(k Key, i interface{}) liberr.Error {
	if k == "" || i == nil {
		return ErrorParamEmpty.Error(nil)
	}

	if o.f.Load() {
		return ErrorFrozen.Error(nil)
	}

	if _, ok := o.m.Load(k); ok {
		return ErrorDuplicate.Error(nil)
	}

	o.m.Store(k, i)

	return nil
}

func (o *reg) Freeze() {
	o.f.Store(true)
}

func (o *reg) IsFrozen() bool {
	return o.f.Load()
}

func (o *reg) Get(k Key) (interface{}, liberr.Error) {
	if i, ok := o.m.Load(k); ok && i != nil {
		return i, nil
	}

	return nil, ErrorNotRegistered.Error(nil)
}

func (o *reg) TryGet(k Key) (interface{}, bool) {
	i, ok := o.m.Load(k)
	return i, ok && i != nil
}
