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

package daemon

import (
	"context"
	"encoding/json"
	"time"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	libver "github.com/nabbar/golib/version"

	libfcd "github.com/nabbar/assistd/facade"
	libmid "github.com/nabbar/assistd/middleware"
	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
	libsup "github.com/nabbar/assistd/supervisor"
)

const classLifecycle = "lifecycle"

// routes registers the core endpoints the IPC layer itself exposes.
// Business routes belong to external collaborators and are registered on
// the same router through the facade before Start.
func (o *dmn) routes() liberr.Error {
	reg := []librtr.Route{
		{
			Method:  libmsg.MethodQuery,
			Pattern: "/health",
			Handler: o.handleHealth,
		},
		{
			Method:  libmsg.MethodQuery,
			Pattern: "/version",
			Handler: o.handleVersion,
		},
		{
			Method:  libmsg.MethodQuery,
			Pattern: "/env",
			Handler: o.handleEnv,
		},
		{
			Method:  libmsg.MethodLifecycle,
			Pattern: "/daemon/stop",
			Class:   classLifecycle,
			Handler: o.handleStop,
		},
		{
			Method:  libmsg.MethodLifecycle,
			Pattern: "/connectors/list",
			Class:   classLifecycle,
			Handler: o.handleConnectorList,
		},
		{
			Method:  libmsg.MethodQuery,
			Pattern: "/connectors/:id/status",
			Handler: o.handleConnectorStatus,
		},
		{
			Method:  libmsg.MethodLifecycle,
			Pattern: "/connectors/:id/start",
			Class:   classLifecycle,
			Handler: o.handleConnectorStart,
		},
		{
			Method:  libmsg.MethodLifecycle,
			Pattern: "/connectors/:id/stop",
			Class:   classLifecycle,
			Handler: o.handleConnectorStop,
		},
		{
			Method:  libmsg.MethodLifecycle,
			Pattern: "/connectors/:id/reset",
			Class:   classLifecycle,
			Handler: o.handleConnectorReset,
		},
		{
			Method:  libmsg.MethodHeartbeat,
			Pattern: "/connectors/:id/heartbeat",
			Class:   libmid.ClassConnector,
			Handler: o.handleConnectorHeartbeat,
		},
		{
			Method:  libmsg.MethodLifecycle,
			Pattern: "/connectors/:id/error",
			Class:   libmid.ClassConnector,
			Handler: o.handleConnectorError,
		},
	}

	for _, r := range reg {
		if err := o.r.Register(r); err != nil {
			return err
		}
	}

	return nil
}

func (o *dmn) supervisor() (libsup.Supervisor, liberr.Error) {
	return libfcd.Get[libsup.Supervisor](o.f, libfcd.KeySupervisor)
}

func (o *dmn) handleHealth(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
	return map[string]interface{}{
		"status":    "ok",
		"uptime_ms": o.Uptime().Milliseconds(),
		"env":       o.e.Env().String(),
	}, nil
}

func (o *dmn) handleVersion(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
	vrs, err := libfcd.Get[libver.Version](o.f, libfcd.KeyVersion)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"version": vrs.GetRelease(),
	}, nil
}

func (o *dmn) handleEnv(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
	return map[string]interface{}{
		"env":      o.e.Env().String(),
		"data_dir": o.e.DataDir(),
		"log_dir":  o.e.LogDir(),
	}, nil
}

func (o *dmn) handleStop(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
	// the drain must outlive this request: answer first, stop right after
	go func() {
		_ = o.Stop(context.Background())
	}()

	return map[string]interface{}{
		"stopping": true,
	}, nil
}

func (o *dmn) handleConnectorList(_ context.Context, _ *librtr.Call) (interface{}, liberr.Error) {
	sup, err := o.supervisor()
	if err != nil {
		return nil, err
	}

	return sup.List(), nil
}

func (o *dmn) handleConnectorStatus(_ context.Context, c *librtr.Call) (interface{}, liberr.Error) {
	sup, err := o.supervisor()
	if err != nil {
		return nil, err
	}

	return sup.StatusConnector(c.Params["id"])
}

func (o *dmn) handleConnectorStart(ctx context.Context, c *librtr.Call) (interface{}, liberr.Error) {
	sup, err := o.supervisor()
	if err != nil {
		return nil, err
	}

	return sup.StartConnector(ctx, c.Params["id"])
}

func (o *dmn) handleConnectorStop(ctx context.Context, c *librtr.Call) (interface{}, liberr.Error) {
	sup, err := o.supervisor()
	if err != nil {
		return nil, err
	}

	var grace libdur.Duration

	if ms, ok := c.Req.ParamInt("grace_ms"); ok && ms > 0 {
		grace = libdur.Duration(time.Duration(ms) * time.Millisecond)
	}

	return sup.StopConnector(ctx, c.Params["id"], grace)
}

func (o *dmn) handleConnectorReset(_ context.Context, c *librtr.Call) (interface{}, liberr.Error) {
	sup, err := o.supervisor()
	if err != nil {
		return nil, err
	}

	return sup.ResetConnector(c.Params["id"])
}

func (o *dmn) handleConnectorHeartbeat(_ context.Context, c *librtr.Call) (interface{}, liberr.Error) {
	sup, err := o.supervisor()
	if err != nil {
		return nil, err
	}

	// a child only heartbeats for itself
	if c.ConnectorID != c.Params["id"] {
		return nil, libmid.ErrorAuthDenied.Error(nil)
	}

	var bdy struct {
		DataCount int64 `json:"data_count"`
	}

	if len(c.Req.Body) > 0 {
		_ = json.Unmarshal(c.Req.Body, &bdy)
	}

	sts, err := sup.Heartbeat(c.Params["id"], bdy.DataCount)
	if err != nil {
		return nil, err
	}

	return map[string]interface{}{
		"ack":  true,
		"stop": sts.StopRequested,
	}, nil
}

func (o *dmn) handleConnectorError(_ context.Context, c *librtr.Call) (interface{}, liberr.Error) {
	sup, err := o.supervisor()
	if err != nil {
		return nil, err
	}

	if c.ConnectorID != c.Params["id"] {
		return nil, libmid.ErrorAuthDenied.Error(nil)
	}

	var bdy struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}

	if len(c.Req.Body) > 0 {
		_ = json.Unmarshal(c.Req.Body, &bdy)
	}

	return sup.ReportError(c.Params["id"], bdy.Code, bdy.Message)
}
