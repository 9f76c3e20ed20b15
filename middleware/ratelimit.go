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

package middleware

import (
	"context"
	"sync"

	"golang.org/x/time/rate"

	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

// RateClass is one token bucket shape.
type RateClass struct {
	// Rate is the sustained number of requests per second.
	Rate float64 `json:"rate" yaml:"rate" toml:"rate" mapstructure:"rate" validate:"gt=0"`

	// Burst is the bucket depth.
	Burst int `json:"burst" yaml:"burst" toml:"burst" mapstructure:"burst" validate:"gt=0"`
}

// RateConfig shapes the per-(connection, route class) buckets.
type RateConfig struct {
	// Default applies to routes without a class entry.
	Default RateClass `json:"default" yaml:"default" toml:"default" mapstructure:"default"`

	// Classes overrides the shape per route class.
	Classes map[string]RateClass `json:"classes,omitempty" yaml:"classes,omitempty" toml:"classes,omitempty" mapstructure:"classes,omitempty"`
}

// DefaultRateConfig returns the stock bucket shapes: a generous default and
// a tighter lifecycle class.
func DefaultRateConfig() RateConfig {
	return RateConfig{
		Default: RateClass{Rate: 200, Burst: 100},
		Classes: map[string]RateClass{
			"lifecycle":    {Rate: 10, Burst: 5},
			ClassConnector: {Rate: 50, Burst: 25},
		},
	}
}

type rateKey struct {
	con string
	cls string
}

// RateLimit is the token bucket step. Buckets are sharded by connection to
// avoid global contention; Forget drops a closed connection's buckets.
type RateLimit struct {
	m sync.Mutex
	c RateConfig
	b map[rateKey]*rate.Limiter
	t Translator
}

// NewRateLimit returns the rate limiting step.
func NewRateLimit(cfg RateConfig, trl Translator) *RateLimit {
	if cfg.Default.Rate <= 0 {
		cfg.Default = DefaultRateConfig().Default
	}

	return &RateLimit{
		m: sync.Mutex{},
		c: cfg,
		b: make(map[rateKey]*rate.Limiter),
		t: trl,
	}
}

func (o *RateLimit) Name() string {
	return "ratelimit"
}

func (o *RateLimit) class(name string) RateClass {
	if c, ok := o.c.Classes[name]; ok && c.Rate > 0 && c.Burst > 0 {
		return c
	}

	return o.c.Default
}

func (o *RateLimit) limiter(con, cls string) *rate.Limiter {
	o.m.Lock()
	defer o.m.Unlock()

	key := rateKey{con: con, cls: cls}

	if l, ok := o.b[key]; ok {
		return l
	}

	shape := o.class(cls)
	l := rate.NewLimiter(rate.Limit(shape.Rate), shape.Burst)
	o.b[key] = l

	return l
}

// Forget drops all buckets of one closed connection.
func (o *RateLimit) Forget(connID string) {
	o.m.Lock()
	defer o.m.Unlock()

	for k := range o.b {
		if k.con == connID {
			delete(o.b, k)
		}
	}
}

func (o *RateLimit) Wrap(next Handler) Handler {
	return func(ctx context.Context, c *librtr.Call) *libmsg.Response {
		var cls string

		if c.Route != nil {
			cls = c.Route.Class
		}

		lim := o.limiter(c.ConnID, cls)

		if !lim.Allow() {
			rsv := lim.Reserve()
			dly := rsv.Delay()
			rsv.Cancel()

			rsp := o.t.Envelope(c, ErrorRateLimited.Error(nil))

			if rsp.Error != nil && dly > 0 {
				rsp.Error.RetryAfterMs = dly.Milliseconds()
			}

			return rsp
		}

		return next(ctx, c)
	}
}
