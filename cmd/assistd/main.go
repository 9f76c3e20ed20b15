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

// assistd is the personal assistant local daemon: a background service
// speaking a length-prefixed request/response protocol over a per-user
// local transport to the desktop UI and to native connector workers.
package main

import (
	"os"

	libcbr "github.com/nabbar/golib/cobra"
	libver "github.com/nabbar/golib/version"
)

var (
	// build metadata, set by the linker
	release = "0.0.0-dev"
	build   = "unknown"
	date    = "unknown"
)

func main() {
	vrs := libver.NewVersion(
		libver.License_MIT,
		"assistd",
		"personal assistant local daemon",
		date,
		build,
		release,
		"Nicolas JUHEL",
		"ASSISTD",
		struct{}{},
		1,
	)

	app := libcbr.New()
	app.SetVersion(vrs)
	app.SetForceNoInfo(true)
	app.Init()

	root := app.Cobra()
	root.AddCommand(
		cmdStart(vrs),
		cmdStop(),
		cmdStatus(),
		cmdInit(),
	)

	if err := app.Execute(); err != nil {
		os.Exit(exitFor(err))
	}
}
