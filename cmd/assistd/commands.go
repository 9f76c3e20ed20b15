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

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	liberr "github.com/nabbar/golib/errors"
	liblog "github.com/nabbar/golib/logger"
	loglvl "github.com/nabbar/golib/logger/level"
	libver "github.com/nabbar/golib/version"
	spfcbr "github.com/spf13/cobra"

	libdmn "github.com/nabbar/assistd/daemon"
	libenv "github.com/nabbar/assistd/env"
	tptclt "github.com/nabbar/assistd/transport/client"
)

// exitFor maps internal error codes to the documented CLI exit codes.
func exitFor(err error) int {
	e, ok := err.(liberr.Error)
	if !ok {
		return libdmn.ExitGenericFailure
	}

	switch {
	case e.HasCode(libdmn.ErrorAlreadyRunning):
		return libdmn.ExitAlreadyRunning
	case e.HasCode(libdmn.ErrorEndpointConflict):
		return libdmn.ExitEndpointConflict
	case e.HasCode(libdmn.ErrorBindFailed):
		return libdmn.ExitBindFailed
	case e.HasCode(libenv.ErrorEnvInvalid):
		return libdmn.ExitInvalidEnv
	}

	return libdmn.ExitGenericFailure
}

func fail(err error) error {
	if err == nil {
		return nil
	}

	_, _ = fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(exitFor(err))

	return nil
}

func makeLogger(ctx context.Context) liblog.FuncLog {
	log := liblog.New(ctx)
	log.SetLevel(loglvl.InfoLevel)

	return func() liblog.Logger {
		return log
	}
}

// endpointFile resolves the per-env descriptor path for client commands.
func endpointFile(envName string) (string, liberr.Error) {
	e, err := libenv.New(envName)
	if err != nil {
		return "", err
	}

	return e.EndpointFile(), nil
}

func cmdStart(vrs libver.Version) *spfcbr.Command {
	var (
		envName string
		cfgFile string
	)

	cmd := &spfcbr.Command{
		Use:   "start",
		Short: "Start the daemon and serve until interrupted",
		RunE: func(_ *spfcbr.Command, _ []string) error {
			cfg, err := libdmn.LoadConfig(cfgFile)
			if err != nil {
				return fail(err)
			}

			if envName != "" {
				cfg.Env = envName
			}

			ctx, cnl := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cnl()

			dmn, err := libdmn.New(cfg, vrs, makeLogger(ctx))
			if err != nil {
				return fail(err)
			}

			if err = dmn.Start(ctx); err != nil {
				return fail(err)
			}

			<-ctx.Done()

			stx, snl := context.WithTimeout(context.Background(), 30*time.Second)
			defer snl()

			if err = dmn.Stop(stx); err != nil {
				return fail(err)
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "environment name (development|staging|production)")
	cmd.Flags().StringVar(&cfgFile, "config", "", "configuration file path")

	return cmd
}

func cmdStop() *spfcbr.Command {
	var envName string

	cmd := &spfcbr.Command{
		Use:   "stop",
		Short: "Ask the running daemon to shut down",
		RunE: func(_ *spfcbr.Command, _ []string) error {
			fil, err := endpointFile(envName)
			if err != nil {
				return fail(err)
			}

			clt, err := tptclt.New(tptclt.DefaultConfig(fil), nil)
			if err != nil {
				return fail(err)
			}

			defer func() {
				_ = clt.Close()
			}()

			ctx, cnl := context.WithTimeout(context.Background(), 10*time.Second)
			defer cnl()

			rsp, err := clt.Lifecycle(ctx, "/daemon/stop", nil)
			if err != nil {
				return fail(err)
			}

			if !rsp.IsOK() {
				return fail(fmt.Errorf("daemon refused stop: %s", rsp.Error.Code))
			}

			fmt.Println("stopping")
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "environment name (development|staging|production)")

	return cmd
}

func cmdStatus() *spfcbr.Command {
	var envName string

	cmd := &spfcbr.Command{
		Use:   "status",
		Short: "Print the daemon health and connector states",
		RunE: func(_ *spfcbr.Command, _ []string) error {
			fil, err := endpointFile(envName)
			if err != nil {
				return fail(err)
			}

			clt, err := tptclt.New(tptclt.DefaultConfig(fil), nil)
			if err != nil {
				return fail(err)
			}

			defer func() {
				_ = clt.Close()
			}()

			ctx, cnl := context.WithTimeout(context.Background(), 10*time.Second)
			defer cnl()

			rsp, err := clt.Query(ctx, "/health", nil)
			if err != nil {
				return fail(err)
			}

			out, _ := json.MarshalIndent(rsp.Data, "", "  ")
			fmt.Println(string(out))

			if rsp, err = clt.Lifecycle(ctx, "/connectors/list", nil); err == nil && rsp.IsOK() {
				out, _ = json.MarshalIndent(rsp.Data, "", "  ")
				fmt.Println(string(out))
			}

			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "environment name (development|staging|production)")

	return cmd
}

func cmdInit() *spfcbr.Command {
	var (
		envName string
		force   bool
	)

	cmd := &spfcbr.Command{
		Use:   "init",
		Short: "Create the per-env directories and a default configuration",
		RunE: func(_ *spfcbr.Command, _ []string) error {
			e, err := libenv.New(envName)
			if err != nil {
				return fail(err)
			}

			if err = e.MakeDirs(); err != nil {
				return fail(err)
			}

			fil := e.ConfigFile()

			if _, serr := os.Stat(fil); serr == nil && !force {
				fmt.Println("configuration already present, use --force to overwrite")
				return nil
			}

			out, _ := json.MarshalIndent(libdmn.DefaultConfig(), "", "  ")

			if werr := os.WriteFile(fil, out, 0600); werr != nil {
				return fail(libdmn.ErrorConfigRead.Error(werr))
			}

			fmt.Println("initialized", e.Env().String())
			return nil
		},
	}

	cmd.Flags().StringVar(&envName, "env", "", "environment name (development|staging|production)")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing configuration")

	return cmd
}
