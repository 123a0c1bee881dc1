// Package session holds the identity and parameters of the job currently
// being configured or executed.
package session

import (
	"fmt"
	"strings"
)

// Params are the processing parameters submitted with a job. Each value must
// be a member of the accepted set for its field.
type Params struct {
	Encoder   string `json:"encoder"`
	InputSize string `json:"input_size"`
	MaxRes    string `json:"max_res"`
	TargetFPS string `json:"target_fps"`
}

var (
	acceptedEncoders   = []string{"h264", "hevc"}
	acceptedInputSizes = []string{"256", "384", "518"}
	acceptedMaxRes     = []string{"720", "1080", "1440", "2160"}
	acceptedTargetFPS  = []string{"15", "24", "30", "60"}
)

// Validate checks that every parameter is present and accepted.
func (p Params) Validate() error {
	checks := []struct {
		field    string
		value    string
		accepted []string
	}{
		{"encoder", p.Encoder, acceptedEncoders},
		{"input_size", p.InputSize, acceptedInputSizes},
		{"max_res", p.MaxRes, acceptedMaxRes},
		{"target_fps", p.TargetFPS, acceptedTargetFPS},
	}

	for _, c := range checks {
		if strings.TrimSpace(c.value) == "" {
			return fmt.Errorf("%s is required", c.field)
		}
		ok := false
		for _, a := range c.accepted {
			if c.value == a {
				ok = true
				break
			}
		}
		if !ok {
			return fmt.Errorf("%s %q is not one of %s", c.field, c.value, strings.Join(c.accepted, ", "))
		}
	}
	return nil
}

// Session identifies the uploaded artifact and the parameters configured for
// it. A re-upload replaces the session wholesale; fields are never merged.
type Session struct {
	Filename string
	SizeMB   float64
	Params   Params
}

// New builds a session for a freshly uploaded artifact.
func New(filename string, sizeMB float64) Session {
	return Session{Filename: filename, SizeMB: sizeMB}
}

// WithParams returns a copy of the session carrying the given parameters.
func (s Session) WithParams(p Params) Session {
	s.Params = p
	return s
}

// Active reports whether the session references an uploaded artifact.
func (s Session) Active() bool {
	return s.Filename != ""
}
