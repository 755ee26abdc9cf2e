// Package fault defines the error taxonomy shared by the capture and replay engine.
package fault

import (
	"errors"
	"fmt"
)

var (
	// ErrEnvironment is returned when an OS facility or permission is missing
	ErrEnvironment = errors.New("environment error")

	// ErrTargetNotFound is returned when the target window cannot be located
	ErrTargetNotFound = errors.New("target window not found")

	// ErrHookBridge is returned when the hook bridge subprocess failed or never started
	ErrHookBridge = errors.New("hook bridge failure")

	// ErrParse is returned when a persisted coordinate set cannot be read
	ErrParse = errors.New("unreadable coordinate set")

	// ErrReplayClick is returned for a single failed replay click
	ErrReplayClick = errors.New("replay click failed")
)

// Error carries a kind sentinel together with a human readable diagnosis
// and the action the operator should take.
type Error struct {
	Kind        error
	Op          string
	Detail      string
	Remediation string
	Err         error
}

func (e *Error) Error() string {
	msg := e.Kind.Error()
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is the kind sentinel of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func newError(kind error, op, detail, remediation string, err error) *Error {
	return &Error{Kind: kind, Op: op, Detail: detail, Remediation: remediation, Err: err}
}

// Environment reports a missing OS facility or permission.
func Environment(op, detail, remediation string, err error) *Error {
	return newError(ErrEnvironment, op, detail, remediation, err)
}

// TargetNotFound reports that no usable target window exists.
func TargetNotFound(op, detail string, err error) *Error {
	return newError(ErrTargetNotFound, op, detail,
		"Open the target browser window, make sure it is not minimized, then retry 'locate'", err)
}

// HookBridge reports a hook bridge subprocess failure.
func HookBridge(op, detail, remediation string, err error) *Error {
	if remediation == "" {
		remediation = "Run the console as administrator, or continue in manual-entry mode"
	}
	return newError(ErrHookBridge, op, detail, remediation, err)
}

// Parse reports an unreadable coordinate source.
func Parse(op, detail string, err error) *Error {
	return newError(ErrParse, op, detail, "", err)
}

// ReplayClick reports a single failed synthetic click.
func ReplayClick(op, detail string, err error) *Error {
	return newError(ErrReplayClick, op, detail, "", err)
}

// Remediation returns the operator hint attached anywhere in err's chain.
func Remediation(err error) string {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Remediation
	}
	return ""
}

// Describe formats err and its remediation in the diagnostics style.
func Describe(err error) string {
	if hint := Remediation(err); hint != "" {
		return fmt.Sprintf("%v\n  Action: %s", err, hint)
	}
	return err.Error()
}
