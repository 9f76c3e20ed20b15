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

// Package message defines the request and response envelopes carried inside
// protocol frames, the method enum, and the stable wire error codes.
//
// Envelope-level schema violations are detected here and must never reach a
// business handler: DecodeRequest returns ErrorEnvelopeInvalid for anything
// that does not match the contract.
package message

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	libval "github.com/go-playground/validator/v10"
	liberr "github.com/nabbar/golib/errors"
)

// Auth carries optional peer credentials: a UI session token or a connector
// one-time admission token.
type Auth struct {
	Token string `json:"token,omitempty"`
}

// Request is one decoded client call.
type Request struct {
	// Method is the call classification, see Method.
	Method Method `json:"method"`

	// Path is the routing path, absolute, possibly with parameter segments.
	Path string `json:"path" validate:"required,startswith=/,max=512"`

	// Params carries per-call arguments outside the body.
	Params map[string]interface{} `json:"params,omitempty"`

	// Body is the raw payload, left opaque until per-route validation.
	Body json.RawMessage `json:"body,omitempty"`

	// CorrelationID is the client-chosen opaque id echoed on the response.
	CorrelationID string `json:"correlation_id" validate:"required,max=128"`

	// Auth is the optional credential block.
	Auth *Auth `json:"auth,omitempty"`
}

// DecodeRequest parses and checks one envelope. Unknown fields, invalid
// method strings and schema violations all fail with ErrorEnvelopeInvalid.
func DecodeRequest(p []byte) (*Request, liberr.Error) {
	if len(p) == 0 {
		return nil, ErrorParamEmpty.Error(nil)
	}

	var (
		req Request
		dec = json.NewDecoder(bytes.NewReader(p))
	)

	dec.DisallowUnknownFields()

	if err := dec.Decode(&req); err != nil {
		return nil, ErrorEnvelopeInvalid.Error(err)
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	return &req, nil
}

// Validate checks the envelope schema. Per-route param and body schemas are
// checked later by the validation middleware.
func (r *Request) Validate() liberr.Error {
	if r == nil {
		return ErrorParamEmpty.Error(nil)
	}

	var e = ErrorEnvelopeInvalid.Error(nil)

	if !r.Method.IsValid() {
		//nolint #goerr113
		e.Add(fmt.Errorf("method must be one of %s", strings.Join(ListMethods(), "|")))
	}

	if err := libval.New().Struct(r); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			e.Add(er)
		}

		for _, er := range err.(libval.ValidationErrors) {
			//nolint #goerr113
			e.Add(fmt.Errorf("envelope field '%s' is not validated by constraint '%s'", er.Namespace(), er.ActualTag()))
		}
	}

	if !e.HasParent() {
		e = nil
	}

	return e
}

// ParamString returns the string value of a param, empty when absent or of
// another type.
func (r *Request) ParamString(key string) string {
	if r == nil || r.Params == nil {
		return ""
	}

	if v, ok := r.Params[key]; ok {
		if s, k := v.(string); k {
			return s
		}
	}

	return ""
}

// ParamInt returns the integer value of a param and whether it was present
// as a JSON number.
func (r *Request) ParamInt(key string) (int64, bool) {
	if r == nil || r.Params == nil {
		return 0, false
	}

	if v, ok := r.Params[key]; ok {
		if f, k := v.(float64); k {
			return int64(f), true
		}
	}

	return 0, false
}
