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
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	libval "github.com/go-playground/validator/v10"
	liberr "github.com/nabbar/golib/errors"
)

// Policy selects when a crashed connector is restarted automatically.
type Policy uint8

const (
	// PolicyOnFailure restarts after a crash, not after a clean exit.
	PolicyOnFailure Policy = iota

	// PolicyNever leaves the connector down after any exit.
	PolicyNever

	// PolicyAlways restarts after any exit, clean or not.
	PolicyAlways
)

func ParsePolicy(s string) Policy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "never":
		return PolicyNever
	case "always":
		return PolicyAlways
	}

	return PolicyOnFailure
}

func (p Policy) String() string {
	switch p {
	case PolicyNever:
		return "never"
	case PolicyAlways:
		return "always"
	}

	return "on-failure"
}

func (p Policy) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

func (p *Policy) UnmarshalJSON(b []byte) error {
	var s string

	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}

	*p = ParsePolicy(s)
	return nil
}

// Descriptor is the static declaration of one connector, loaded from a JSON
// file in the connectors directory.
type Descriptor struct {
	// ID is the stable connector id, also the descriptor file basename.
	ID string `json:"connector_id" validate:"required,max=64"`

	// Name is the human readable display name.
	Name string `json:"display_name,omitempty"`

	// Exec is the absolute path of the connector executable.
	Exec string `json:"executable" validate:"required"`

	// Args are the argv tail passed to the executable.
	Args []string `json:"argv,omitempty"`

	// Capabilities declares what the connector provides; opaque to the core.
	Capabilities []string `json:"capabilities,omitempty"`

	// Restart selects the automatic restart policy.
	Restart Policy `json:"restart_policy"`

	// Env adds variables to the child environment.
	Env map[string]string `json:"environment,omitempty"`

	// AutoStart launches the connector when the daemon starts.
	AutoStart bool `json:"auto_start,omitempty"`
}

// Validate checks the declaration, including that the executable exists and
// is a regular file.
func (d *Descriptor) Validate() liberr.Error {
	if d == nil {
		return ErrorParamEmpty.Error(nil)
	}

	var e = ErrorDescriptorInvalid.Error(nil)

	if err := libval.New().Struct(d); err != nil {
		if er, ok := err.(*libval.InvalidValidationError); ok {
			e.Add(er)
		}

		for _, er := range err.(libval.ValidationErrors) {
			//nolint #goerr113
			e.Add(fmt.Errorf("descriptor field '%s' is not validated by constraint '%s'", er.Namespace(), er.ActualTag()))
		}
	}

	if strings.ContainsAny(d.ID, "/\\ \t\n") {
		//nolint #goerr113
		e.Add(fmt.Errorf("connector_id contains separator characters"))
	}

	if d.Exec != "" {
		if inf, err := os.Stat(d.Exec); err != nil {
			e.Add(err)
		} else if !inf.Mode().IsRegular() {
			//nolint #goerr113
			e.Add(fmt.Errorf("executable is not a regular file"))
		}
	}

	if !e.HasParent() {
		e = nil
	}

	return e
}

// loadDescriptors parses every *.json file of the connectors directory.
// Invalid files are reported and skipped; they never abort the scan.
func loadDescriptors(dir string) (map[string]*Descriptor, []error) {
	var (
		res = make(map[string]*Descriptor)
		bad []error
	)

	ent, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return res, nil
		}
		return res, []error{err}
	}

	for _, f := range ent {
		if f.IsDir() || !strings.HasSuffix(f.Name(), ".json") {
			continue
		}

		p, e := os.ReadFile(filepath.Join(dir, f.Name()))
		if e != nil {
			bad = append(bad, e)
			continue
		}

		var d Descriptor

		if e = json.Unmarshal(p, &d); e != nil {
			bad = append(bad, ErrorDescriptorInvalid.Error(e))
			continue
		}

		if er := d.Validate(); er != nil {
			bad = append(bad, er)
			continue
		}

		if _, ok := res[d.ID]; ok {
			bad = append(bad, ErrorDescriptorDuplicate.Error(nil))
			continue
		}

		res[d.ID] = &d
	}

	return res, bad
}
