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

package router

import (
	"strings"
	"sync"
	"sync/atomic"

	liberr "github.com/nabbar/golib/errors"

	libmsg "github.com/nabbar/assistd/protocol/message"
)

type node struct {
	sub map[string]*node         // literal child segments
	par *node                    // parameter child, if any
	key string                   // parameter name of par
	rts map[libmsg.Method]*Route // routes terminating here
}

func newNode() *node {
	return &node{
		sub: make(map[string]*node),
		rts: make(map[libmsg.Method]*Route),
	}
}

type rtr struct {
	m sync.Mutex
	r *node
	f *atomic.Bool
}

func newRouter() *rtr {
	return &rtr{
		m: sync.Mutex{},
		r: newNode(),
		f: new(atomic.Bool),
	}
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")

	if path == "" {
		return nil
	}

	return strings.Split(path, "/")
}

func (o *rtr) Register(r Route) liberr.Error {
	if r.Handler == nil || r.Pattern == "" || !strings.HasPrefix(r.Pattern, "/") || !r.Method.IsValid() {
		return ErrorParamEmpty.Error(nil)
	}

	o.m.Lock()
	defer o.m.Unlock()

	if o.f.Load() {
		return ErrorTableFrozen.Error(nil)
	}

	cur := o.r

	for _, seg := range splitPath(r.Pattern) {
		if strings.HasPrefix(seg, ":") {
			key := seg[1:]

			if key == "" {
				return ErrorPatternInvalid.Error(nil)
			}

			if cur.par == nil {
				cur.par = newNode()
				cur.key = key
			} else if cur.key != key {
				// two patterns disagreeing on a parameter name at the same
				// depth would make captures ambiguous
				return ErrorPatternInvalid.Error(nil)
			}

			cur = cur.par
			continue
		}

		nxt, ok := cur.sub[seg]
		if !ok {
			nxt = newNode()
			cur.sub[seg] = nxt
		}

		cur = nxt
	}

	if _, ok := cur.rts[r.Method]; ok {
		return ErrorDuplicateRoute.Error(nil)
	}

	if r.Deadline == 0 {
		r.Deadline = DefaultDeadline
	}

	cur.rts[r.Method] = &r

	return nil
}

func (o *rtr) Freeze() {
	o.f.Store(true)
}

func (o *rtr) IsFrozen() bool {
	return o.f.Load()
}

func (o *rtr) Resolve(m libmsg.Method, path string) (*Route, Params, liberr.Error) {
	var (
		cur = o.r
		prm = make(Params)
	)

	for _, seg := range splitPath(path) {
		if nxt, ok := cur.sub[seg]; ok {
			cur = nxt
			continue
		}

		if cur.par != nil {
			prm[cur.key] = seg
			cur = cur.par
			continue
		}

		return nil, nil, ErrorRouteNotFound.Error(nil)
	}

	if len(cur.rts) == 0 {
		return nil, nil, ErrorRouteNotFound.Error(nil)
	}

	if rt, ok := cur.rts[m]; ok {
		return rt, prm, nil
	}

	return nil, nil, ErrorMethodNotAllowed.Error(nil)
}

func (o *rtr) Walk(fct func(r *Route) bool) {
	if fct == nil {
		return
	}

	o.walkNode(o.r, fct)
}

func (o *rtr) walkNode(n *node, fct func(r *Route) bool) bool {
	for _, rt := range n.rts {
		if !fct(rt) {
			return false
		}
	}

	for _, nxt := range n.sub {
		if !o.walkNode(nxt, fct) {
			return false
		}
	}

	if n.par != nil {
		return o.walkNode(n.par, fct)
	}

	return true
}
