// Package generr classifies generation failures: transport (network, timeout, non-2xx),
// parse (malformed structured output) and config (missing credentials, bad settings).
// Validation failures are never errors; they travel as data.
package generr

import (
	"errors"
	"fmt"
)

type Kind string

const (
	KindTransport Kind = "transport"
	KindParse     Kind = "parse"
	KindConfig    Kind = "config"
)

type Error struct {
	Kind     Kind
	Provider string
	Op       string
	Err      error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	prefix := string(e.Kind)
	if e.Provider != "" {
		prefix += " " + e.Provider
	}
	if e.Op != "" {
		prefix += "." + e.Op
	}
	if e.Err == nil {
		return prefix + " error"
	}
	return fmt.Sprintf("%s: %v", prefix, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

func Transport(provider, op string, err error) *Error {
	return &Error{Kind: KindTransport, Provider: provider, Op: op, Err: err}
}

func Parse(provider, op string, err error) *Error {
	return &Error{Kind: KindParse, Provider: provider, Op: op, Err: err}
}

func Config(provider string, err error) *Error {
	return &Error{Kind: KindConfig, Provider: provider, Err: err}
}

// IsKind reports whether any error in err's chain is a *Error of kind k.
func IsKind(err error, k Kind) bool {
	var ge *Error
	if !errors.As(err, &ge) {
		return false
	}
	return ge.Kind == k
}

// ErrMissingCredential marks a backend selected without its API key.
var ErrMissingCredential = errors.New("missing credential")
