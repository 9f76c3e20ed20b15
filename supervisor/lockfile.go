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
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	libprc "github.com/shirou/gopsutil/process"
)

// A lockfile records "pid start_time" for one running connector so that a
// later daemon run can tell an orphan of ours from an unrelated process
// that recycled the pid.

func lockPath(dir, id string) string {
	return filepath.Join(dir, id+".lock")
}

func writeLock(dir, id string, pid int, log liblog.Logger) {
	var ct int64

	if prc, err := libprc.NewProcess(int32(pid)); err == nil {
		if t, e := prc.CreateTime(); e == nil {
			ct = t
		}
	}

	lin := strconv.Itoa(pid) + " " + strconv.FormatInt(ct, 10) + "\n"

	if err := os.WriteFile(lockPath(dir, id), []byte(lin), 0600); err != nil {
		log.Entry(loglvl.WarnLevel, "cannot write connector lockfile").
			FieldAdd("connector", id).
			ErrorAdd(true, err).
			Check(loglvl.NilLevel)
	}
}

func clearLock(dir, id string) {
	_ = os.Remove(lockPath(dir, id))
}

func parseLock(p []byte) (pid int, created int64, ok bool) {
	f := strings.Fields(string(p))

	if len(f) != 2 {
		return 0, 0, false
	}

	pid, err := strconv.Atoi(f[0])
	if err != nil || pid < 1 {
		return 0, 0, false
	}

	created, err = strconv.ParseInt(f[1], 10, 64)
	if err != nil {
		return 0, 0, false
	}

	return pid, created, true
}

// reapOrphans scans leftover lockfiles from a previous daemon run. A live
// process matching pid and start time is terminated rather than adopted:
// without its stdio pipes its output would be unobserved.
func reapOrphans(dir string, log liblog.Logger) {
	ent, err := os.ReadDir(dir)
	if err != nil {
		return
	}

	for _, f := range ent {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".lock") {
			continue
		}

		var (
			fil = filepath.Join(dir, f.Name())
			cid = strings.TrimSuffix(f.Name(), ".lock")
		)

		p, e := os.ReadFile(fil)
		if e != nil {
			_ = os.Remove(fil)
			continue
		}

		pid, created, ok := parseLock(p)
		if !ok {
			_ = os.Remove(fil)
			continue
		}

		if prc, e := libprc.NewProcess(int32(pid)); e == nil {
			if ct, er := prc.CreateTime(); er == nil && ct == created {
				log.Entry(loglvl.WarnLevel, "terminating orphaned connector process").
					FieldAdd("connector", cid).
					FieldAdd("pid", pid).
					Log()

				_ = prc.Terminate()

				time.Sleep(250 * time.Millisecond)

				if run, er := prc.IsRunning(); er == nil && run {
					_ = prc.Kill()
				}
			}
		}

		_ = os.Remove(fil)
	}
}
