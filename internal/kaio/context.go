//go:build linux

// Package kaio wraps the Linux legacy AIO syscalls (io_setup, io_submit,
// io_getevents, io_destroy) and owns the kernel-side io_context handle (C1).
package kaio

import "syscall"

// SetupErrorKind classifies why io_setup failed.
type SetupErrorKind int

const (
	// MaxEventsTooLarge is returned when the kernel rejects max_events
	// (EAGAIN at setup time).
	MaxEventsTooLarge SetupErrorKind = iota
	// LowKernelRes indicates the kernel could not allocate AIO resources
	// (ENOMEM).
	LowKernelRes
	// NotSupported indicates the running kernel lacks AIO support (ENOSYS).
	NotSupported
	// OtherSetupError covers any other errno from io_setup.
	OtherSetupError
)

func (k SetupErrorKind) String() string {
	switch k {
	case MaxEventsTooLarge:
		return "max events too large"
	case LowKernelRes:
		return "insufficient kernel resources"
	case NotSupported:
		return "kernel AIO not supported"
	default:
		return "other setup error"
	}
}

// SetupError is returned synchronously from Context construction.
type SetupError struct {
	Kind  SetupErrorKind
	Errno syscall.Errno
}

func (e *SetupError) Error() string {
	return "kaio: io_setup failed: " + e.Kind.String() + ": " + e.Errno.Error()
}

func classifySetupErrno(errno syscall.Errno) *SetupError {
	switch errno {
	case syscall.EAGAIN:
		return &SetupError{Kind: MaxEventsTooLarge, Errno: errno}
	case syscall.ENOMEM:
		return &SetupError{Kind: LowKernelRes, Errno: errno}
	case syscall.ENOSYS:
		return &SetupError{Kind: NotSupported, Errno: errno}
	default:
		return &SetupError{Kind: OtherSetupError, Errno: errno}
	}
}

// Context owns a kernel io_context created by io_setup and destroyed by
// io_destroy. It is safe to share by reference across goroutines: the
// kernel serializes io_submit/io_getevents internally for a given context.
type Context struct {
	id ContextID
}

// NewContext calls io_setup(maxEvents). The returned error, if any, is a
// *SetupError.
func NewContext(maxEvents uint32) (*Context, error) {
	id, err := Setup(maxEvents)
	if err != nil {
		errno, ok := err.(syscall.Errno)
		if !ok {
			return nil, &SetupError{Kind: OtherSetupError}
		}
		return nil, classifySetupErrno(errno)
	}
	return &Context{id: id}, nil
}

// ID returns the opaque kernel handle for use with Submit/GetEvents.
func (c *Context) ID() ContextID { return c.id }

// Destroy calls io_destroy. It is the caller's responsibility to ensure no
// concurrent Submit/GetEvents calls race with Destroy.
func (c *Context) Destroy() error {
	return Destroy(c.id)
}
