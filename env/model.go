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

package env

import (
	"fmt"
	"os"
	"os/user"
	"path/filepath"
	"runtime"

	homdir "github.com/mitchellh/go-homedir"
	liberr "github.com/nabbar/golib/errors"
)

const appName = "assistd"

type ctx struct {
	e Env
	c string // per-env config root
	r string // per-env runtime root
	d string // per-env data root
}

func newContext(selector string) (*ctx, liberr.Error) {
	if selector == "" {
		selector = os.Getenv(VarName)
	}

	var e Env

	if selector == "" {
		e = EnvDevelopment
	} else if e = Parse(selector); !e.IsValid() {
		return nil, ErrorEnvInvalid.Error(nil)
	}

	hom, err := homdir.Dir()
	if err != nil {
		return nil, ErrorHomePathNotFound.Error(err)
	}

	var cfg, run, dat string

	if runtime.GOOS == "windows" {
		if a := os.Getenv("AppData"); a != "" {
			cfg = filepath.Join(a, appName, e.String())
		} else {
			cfg = filepath.Join(hom, "AppData", "Roaming", appName, e.String())
		}
		run = cfg
		dat = cfg
	} else {
		cfg = filepath.Join(hom, ".config", appName, e.String())
		dat = filepath.Join(hom, ".local", "share", appName, e.String())

		if x := os.Getenv("XDG_RUNTIME_DIR"); x != "" {
			run = filepath.Join(x, appName, e.String())
		} else {
			run = filepath.Join(hom, ".local", "state", appName, "run", e.String())
		}
	}

	return &ctx{
		e: e,
		c: cfg,
		r: run,
		d: dat,
	}, nil
}

func (o *ctx) Env() Env {
	return o.e
}

func (o *ctx) DataDir() string {
	return filepath.Join(o.d, "data")
}

func (o *ctx) LogDir() string {
	return filepath.Join(o.d, "logs")
}

func (o *ctx) RunDir() string {
	return o.r
}

func (o *ctx) SocketPath() string {
	return filepath.Join(o.r, "daemon.sock")
}

func (o *ctx) PipeName() string {
	var usr = "default"

	if u, err := user.Current(); err == nil && u.Username != "" {
		usr = filepath.Base(u.Username)
	}

	return fmt.Sprintf(`\\.\pipe\%s-%s-%s-daemon`, appName, usr, o.e.String())
}

func (o *ctx) EndpointFile() string {
	return filepath.Join(o.c, "daemon.endpoint")
}

func (o *ctx) ConfigFile() string {
	return filepath.Join(o.c, "daemon.json")
}

func (o *ctx) PidFile() string {
	return filepath.Join(o.c, "daemon.pid")
}

func (o *ctx) ConnectorsDir() string {
	return filepath.Join(o.c, "connectors.d")
}

func (o *ctx) LockDir() string {
	return filepath.Join(o.d, "connectors")
}

func (o *ctx) DatabasePath() string {
	return filepath.Join(o.d, "data", "assistd.db")
}

func (o *ctx) MakeDirs() liberr.Error {
	for _, d := range []string{o.c, o.r, o.DataDir(), o.LogDir(), o.ConnectorsDir(), o.LockDir()} {
		if err := os.MkdirAll(d, 0700); err != nil {
			return ErrorPathCreate.Error(err)
		}
	}

	return nil
}
