// SPDX-License-Identifier: MPL-2.0

// Package method defines the three deployment strategies and the rule that
// picks one from detected host capabilities.
package method

import (
	"errors"
	"fmt"

	"bringup/internal/capability"
)

const (
	// Containerized deploys with the compose tool; the flag token is "docker".
	Containerized Method = "docker"
	// Supervised registers the built binary with pm2; the flag token is "pm2".
	Supervised Method = "pm2"
	// RawBinary executes the built binary in the foreground; the flag token
	// is "binary".
	RawBinary Method = "binary"
)

// ErrInvalidMethod is the sentinel error wrapped by InvalidMethodError.
var ErrInvalidMethod = errors.New("invalid install method")

type (
	// Method is a deployment strategy. The zero value ("") means "not
	// chosen"; Select never returns it.
	Method string

	// InvalidMethodError is returned when a method token is not recognized.
	InvalidMethodError struct {
		Value string
	}
)

func (e *InvalidMethodError) Error() string {
	return fmt.Sprintf("%v: %q (valid: docker, pm2, binary)", ErrInvalidMethod, e.Value)
}

// Unwrap returns ErrInvalidMethod so callers can match with errors.Is.
func (e *InvalidMethodError) Unwrap() error {
	return ErrInvalidMethod
}

// IsValid reports whether m is one of the three deployment strategies.
func (m Method) IsValid() bool {
	switch m {
	case Containerized, Supervised, RawBinary:
		return true
	}
	return false
}

// Describe returns a human-readable name for summaries and logs.
func (m Method) Describe() string {
	switch m {
	case Containerized:
		return "containerized (docker compose)"
	case Supervised:
		return "supervised (pm2)"
	case RawBinary:
		return "raw binary"
	default:
		return string(m)
	}
}

// Parse converts a --method flag token into a Method.
func Parse(token string) (Method, error) {
	m := Method(token)
	if !m.IsValid() {
		return "", &InvalidMethodError{Value: token}
	}
	return m, nil
}

// Select picks the deployment strategy. An explicit override wins
// unconditionally: the operator is trusted to have judged feasibility, and
// the installers will attempt to satisfy whatever is missing. Otherwise the
// priority is fixed: supervised when the runtime and supervisor are both
// usable, containerized when a compose tool exists, raw binary when only
// the runtime qualifies, and containerized as the forced last resort (its
// installer can bootstrap the engine from nothing via apt).
//
// Select is a pure function: identical inputs always yield the identical
// Method.
func Select(override Method, caps capability.Report) Method {
	if override != "" {
		return override
	}
	switch {
	case caps.GoOK && caps.PM2.Present:
		return Supervised
	case caps.ComposeVariant != capability.ComposeNone:
		return Containerized
	case caps.GoOK:
		return RawBinary
	default:
		return Containerized
	}
}
