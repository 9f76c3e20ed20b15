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

// Package endpoint publishes and consumes the per-user discovery descriptor
// file. The file is the single source a client reads to find the daemon's
// local endpoint; it exists exactly while the listener is bound.
//
// The descriptor is three newline-terminated lines:
//
//	transport=<unix|pipe>
//	address=<path-or-pipe-name>
//	pid=<owner pid>
//
// On POSIX, the file mode is 0600 and its parent directory 0700. Writes are
// atomic (temp file in the same directory, then rename).
package endpoint

import (
	liblog "github.com/nabbar/golib/logger"

	liberr "github.com/nabbar/golib/errors"
)

// Kind tags the transport named by a descriptor.
type Kind uint8

const (
	KindNone Kind = iota
	KindUnix
	KindPipe
)

func (k Kind) String() string {
	switch k {
	case KindUnix:
		return "unix"
	case KindPipe:
		return "pipe"
	}

	return ""
}

// ParseKind converts a descriptor tag to its Kind value.
func ParseKind(s string) Kind {
	switch s {
	case "unix":
		return KindUnix
	case "pipe":
		return KindPipe
	}

	return KindNone
}

// Descriptor is the parsed discovery artifact.
type Descriptor struct {
	Transport Kind
	Address   string
	PID       int
}

// Conflict is the outcome of probing a pre-existing descriptor file.
type Conflict uint8

const (
	// ConflictNone means no descriptor exists, or a stale one was removed.
	ConflictNone Conflict = iota

	// ConflictSelf means a live daemon of this executable owns the file.
	ConflictSelf

	// ConflictForeign means a live process of another executable owns the file.
	ConflictForeign
)

// Publisher owns the descriptor file: it creates it on listener bind and
// deletes it on shutdown. No other component touches the file.
type Publisher interface {
	// Probe inspects a pre-existing descriptor. A stale file whose pid is
	// dead is removed and ConflictNone returned; a live owner yields
	// ConflictSelf or ConflictForeign and the file is left untouched.
	Probe() (Conflict, liberr.Error)

	// Publish atomically writes the descriptor with owner-only permissions.
	Publish(d Descriptor) liberr.Error

	// Unpublish removes the descriptor file if this publisher wrote it.
	Unpublish() liberr.Error

	// IsPublished reports whether this publisher currently owns a file.
	IsPublished() bool
}

// New returns a Publisher for the given descriptor path.
func New(file string, log liblog.FuncLog) Publisher {
	return &pub{
		f: file,
		l: log,
	}
}

// Read loads and parses a descriptor file, for clients. On POSIX it also
// verifies the file is owner-only before trusting it.
func Read(file string) (*Descriptor, liberr.Error) {
	return readFile(file)
}
