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
	"time"

	spfvpr "github.com/spf13/viper"

	libdur "github.com/nabbar/golib/duration"
	liberr "github.com/nabbar/golib/errors"
	logcfg "github.com/nabbar/golib/logger/config"

	libipc "github.com/nabbar/assistd/ipc"
	libmid "github.com/nabbar/assistd/middleware"
	libsup "github.com/nabbar/assistd/supervisor"
)

// Config is the daemon configuration tree, loadable from yaml, json or toml
// through viper.
type Config struct {
	// Env selects the environment; the CLI flag overrides it.
	Env string `json:"env,omitempty" yaml:"env,omitempty" toml:"env,omitempty" mapstructure:"env,omitempty"`

	// IPC bounds per-connection resources.
	IPC libipc.Config `json:"ipc,omitempty" yaml:"ipc,omitempty" toml:"ipc,omitempty" mapstructure:"ipc,omitempty"`

	// RateLimit shapes the per-(connection, route class) buckets.
	RateLimit libmid.RateConfig `json:"ratelimit,omitempty" yaml:"ratelimit,omitempty" toml:"ratelimit,omitempty" mapstructure:"ratelimit,omitempty"`

	// Auth configures peer authentication.
	Auth libmid.AuthConfig `json:"auth,omitempty" yaml:"auth,omitempty" toml:"auth,omitempty" mapstructure:"auth,omitempty"`

	// Supervisor shapes connector supervision.
	Supervisor libsup.Config `json:"supervisor,omitempty" yaml:"supervisor,omitempty" toml:"supervisor,omitempty" mapstructure:"supervisor,omitempty"`

	// IdleTimeout closes silent connections; zero disables.
	IdleTimeout libdur.Duration `json:"idleTimeout,omitempty" yaml:"idleTimeout,omitempty" toml:"idleTimeout,omitempty" mapstructure:"idleTimeout,omitempty"`

	// Log holds logger options read from the configuration file; the daemon
	// does not apply them, its logger runs at info level with default sinks.
	Log *logcfg.Options `json:"log,omitempty" yaml:"log,omitempty" toml:"log,omitempty" mapstructure:"log,omitempty"`
}

// DefaultConfig returns the stock daemon configuration.
func DefaultConfig() *Config {
	return &Config{
		IPC:         libipc.DefaultConfig(),
		RateLimit:   libmid.DefaultRateConfig(),
		Supervisor:  libsup.DefaultConfig(),
		IdleTimeout: libdur.Duration(10 * time.Minute),
	}
}

// LoadConfig reads a configuration file through viper, merging it over the
// defaults. An empty path returns the defaults unchanged.
func LoadConfig(file string) (*Config, liberr.Error) {
	cfg := DefaultConfig()

	if file == "" {
		return cfg, nil
	}

	vpr := spfvpr.New()
	vpr.SetConfigFile(file)

	if err := vpr.ReadInConfig(); err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	if err := vpr.Unmarshal(cfg); err != nil {
		return nil, ErrorConfigRead.Error(err)
	}

	return cfg, nil
}
