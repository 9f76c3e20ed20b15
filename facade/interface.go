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

// Package facade is the process-local typed service registry handlers use to
// reach their collaborators. It is deliberately not a dependency injection
// container: one instance per key, write-once wiring at startup, lock-free
// reads after Freeze. A missing binding is a startup failure, never a
// request-time surprise.
package facade

import (
	liberr "github.com/nabbar/golib/errors"
)

// Key names one collaborator binding.
type Key string

const (
	// KeyEnv binds the environment context.
	KeyEnv Key = "env"

	// KeySupervisor binds the connector supervisor.
	KeySupervisor Key = "supervisor"

	// KeyVersion binds the build version.
	KeyVersion Key = "version"

	// KeyDatabase binds the store collaborator.
	KeyDatabase Key = "database"

	// KeyGraph binds the graph engine collaborator.
	KeyGraph Key = "graph"

	// KeyVector binds the vector engine collaborator.
	KeyVector Key = "vector"
)

// Registry is the write-once service locator.
type Registry interface {
	// Register binds one instance to a key. A second registration for the
	// same key, or any registration after Freeze, is an error.
	Register(k Key, i interface{}) liberr.Error

	// Freeze ends the wiring phase. Idempotent.
	Freeze()

	// IsFrozen reports whether wiring has ended.
	IsFrozen() bool

	// Get returns the bound instance or ErrorNotRegistered.
	Get(k Key) (interface{}, liberr.Error)

	// TryGet returns the bound instance and whether it exists.
	TryGet(k Key) (interface{}, bool)
}

// New returns an empty registry.
func New() Registry {
	return newRegistry()
}

// Get resolves a binding to its concrete type. A bound instance of the
// wrong type fails with ErrorWrongType.
func Get[T any](r Registry, k Key) (T, liberr.Error) {
	var zro T

	i, err := r.Get(k)
	if err != nil {
		return zro, err
	}

	v, ok := i.(T)
	if !ok {
		return zro, ErrorWrongType.Error(nil)
	}

	return v, nil
}
