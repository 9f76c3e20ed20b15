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
	"crypto/subtle"
	"os"

	libmsg "github.com/nabbar/assistd/protocol/message"
	librtr "github.com/nabbar/assistd/router"
)

// AuthConfig configures the peer authentication step.
type AuthConfig struct {
	// SessionToken is the expected UI session token; empty disables the
	// session check and local peer credentials alone authenticate.
	SessionToken string `json:"sessionToken,omitempty" yaml:"sessionToken,omitempty" toml:"sessionToken,omitempty" mapstructure:"sessionToken,omitempty"`

	// RequireSession refuses unauthenticated calls even from credentialed
	// local peers.
	RequireSession bool `json:"requireSession,omitempty" yaml:"requireSession,omitempty" toml:"requireSession,omitempty" mapstructure:"requireSession,omitempty"`
}

type stpAuth struct {
	c AuthConfig
	v TokenVerifier
	t Translator
}

// NewAuth returns the peer authentication step. The verifier may be nil
// when no connector supervision is wired.
func NewAuth(cfg AuthConfig, verifier TokenVerifier, trl Translator) Step {
	return &stpAuth{
		c: cfg,
		v: verifier,
		t: trl,
	}
}

func (o *stpAuth) Name() string {
	return "auth"
}

func (o *stpAuth) Wrap(next Handler) Handler {
	return func(ctx context.Context, c *librtr.Call) *libmsg.Response {
		// transport already refused foreign uids; a mismatch here means the
		// call bypassed a credentialed transport and is denied outright
		if c.Peer.Valid && int(c.Peer.UID) != os.Geteuid() {
			return o.t.Envelope(c, ErrorAuthDenied.Error(nil))
		}

		// a connection already upgraded to a connector identity stays one
		if c.ConnectorID != "" {
			c.Authenticated = true
			return next(ctx, c)
		}

		if c.Req != nil && c.Req.Auth != nil && c.Req.Auth.Token != "" {
			tok := c.Req.Auth.Token

			if o.v != nil {
				if id, ok := o.v.VerifyConnectorToken(tok); ok {
					c.ConnectorID = id
					c.Authenticated = true
					return next(ctx, c)
				}
			}

			if o.c.SessionToken != "" && subtle.ConstantTimeCompare([]byte(tok), []byte(o.c.SessionToken)) == 1 {
				c.Authenticated = true
				return next(ctx, c)
			}

			// a presented token must verify; a wrong token is never ignored
			return o.t.Envelope(c, ErrorAuthDenied.Error(nil))
		}

		if o.c.RequireSession {
			return o.t.Envelope(c, ErrorAuthDenied.Error(nil))
		}

		c.Authenticated = c.Peer.Valid

		return next(ctx, c)
	}
}
