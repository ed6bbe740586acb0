package oracle

import (
	"errors"
	"fmt"
	"strings"
)

// Error classes surfaced by the adapter. Test with errors.Is.
var (
	ErrContractViolation = errors.New("oracle contract violation")
	ErrOracleUnavailable = errors.New("oracle unavailable")
	ErrUnknownProvider   = errors.New("unknown oracle provider")
	ErrOracleNotFound    = errors.New("oracle not registered")
	ErrEmptyOracleName   = errors.New("oracle name is empty")
	ErrOracleExists      = errors.New("oracle already registered")
)

// Violation kinds.
const (
	KindLabel  = "label"
	KindTool   = "tool"
	KindFormat = "format"
)

// ContractViolation reports oracle output outside the permitted set. For
// tool violations Reply holds the full reply so callers can still record
// what was requested.
type ContractViolation struct {
	Kind    string
	Value   string
	Allowed []string
	Reply   *Reply
}

func (e *ContractViolation) Error() string {
	if len(e.Allowed) == 0 {
		return fmt.Sprintf("%s: %s %q", ErrContractViolation, e.Kind, e.Value)
	}
	return fmt.Sprintf("%s: %s %q not in [%s]", ErrContractViolation, e.Kind, e.Value, strings.Join(e.Allowed, ", "))
}

func (e *ContractViolation) Unwrap() error {
	return ErrContractViolation
}

// Unavailable reports that the oracle could not be reached or did not answer
// in time.
type Unavailable struct {
	Provider string
	Err      error
}

func (e *Unavailable) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrOracleUnavailable, e.Provider, e.Err)
}

func (e *Unavailable) Unwrap() []error {
	return []error{ErrOracleUnavailable, e.Err}
}

// Violation builds a format ContractViolation for malformed provider output.
func Violation(format string, args ...any) *ContractViolation {
	return &ContractViolation{Kind: KindFormat, Value: fmt.Sprintf(format, args...)}
}
