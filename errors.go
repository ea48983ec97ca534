//go:build linux

// Package aio exposes Linux legacy kernel AIO (io_setup/io_submit/
// io_getevents/io_destroy) as a pool of awaitable handles: submit a read
// or write against a file descriptor and get back a Handle that resolves
// concurrently with any other outstanding operations.
package aio

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/maximmoroz/goaio/internal/kaio"
)

// Error is the structured error type returned by this package. Code
// classifies the failure; Errno carries the kernel errno when one is
// available (0 otherwise).
type Error struct {
	Op    string    // operation that failed, e.g. "build", "read", "write"
	Code  ErrorCode // high-level category
	Errno syscall.Errno
	Msg   string
	Inner error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = string(e.Code)
	}
	if e.Errno != 0 {
		return fmt.Sprintf("aio: %s: %s (errno=%d)", e.Op, msg, e.Errno)
	}
	return fmt.Sprintf("aio: %s: %s", e.Op, msg)
}

func (e *Error) Unwrap() error { return e.Inner }

func (e *Error) Is(target error) bool {
	te, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == te.Code
}

// ErrorCode categorizes an Error.
type ErrorCode string

const (
	CodeMaxEventsTooLarge ErrorCode = "max events too large"
	CodeLowKernelRes      ErrorCode = "insufficient kernel resources"
	CodeNotSupported      ErrorCode = "kernel AIO not supported"
	CodeSetupOther        ErrorCode = "setup failed"
	CodeIOError           ErrorCode = "I/O error"
	CodeManagerClosed     ErrorCode = "manager closed"
)

// ErrManagerClosed is returned by Manager.Read/Write once the manager has
// been closed; it satisfies errors.Is against an *Error with
// CodeManagerClosed.
var ErrManagerClosed = &Error{Op: "read/write", Code: CodeManagerClosed, Msg: "manager is closed"}

// newSetupError translates a *kaio.SetupError (or any other io_setup
// failure) into the package's public Error type.
func newSetupError(err error) error {
	if err == nil {
		return nil
	}
	se, ok := err.(*kaio.SetupError)
	if !ok {
		return &Error{Op: "build", Code: CodeSetupOther, Msg: err.Error(), Inner: err}
	}
	code := mapSetupKind(se.Kind)
	return &Error{Op: "build", Code: code, Errno: se.Errno, Msg: se.Kind.String(), Inner: se}
}

func mapSetupKind(kind kaio.SetupErrorKind) ErrorCode {
	switch kind {
	case kaio.MaxEventsTooLarge:
		return CodeMaxEventsTooLarge
	case kaio.LowKernelRes:
		return CodeLowKernelRes
	case kaio.NotSupported:
		return CodeNotSupported
	default:
		return CodeSetupOther
	}
}

// newOperationError wraps a positive-errno-carrying completion error
// (including a worker-fatal error) as the package's public Error type.
func newOperationError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errno, ok := err.(syscall.Errno); ok {
		return &Error{Op: op, Code: CodeIOError, Errno: errno, Msg: errno.Error(), Inner: err}
	}
	return &Error{Op: op, Code: CodeIOError, Msg: err.Error(), Inner: err}
}

// IsCode reports whether err is an *Error with the given code.
func IsCode(err error, code ErrorCode) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}
