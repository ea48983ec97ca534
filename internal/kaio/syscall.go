//go:build linux

package kaio

import (
	"syscall"
	"unsafe"

	"golang.org/x/sys/unix"

	"github.com/maximmoroz/goaio/internal/uapi"
)

// ContextID is the kernel's opaque aio_context_t. It is valid only between
// a successful Setup and the matching Destroy.
type ContextID uintptr

// Setup wraps io_setup(2). On success ctx is ready to be passed to Submit,
// GetEvents and Destroy.
func Setup(maxEvents uint32) (ContextID, error) {
	var ctx ContextID
	_, _, errno := unix.Syscall(sysIOSetup, uintptr(maxEvents), uintptr(unsafe.Pointer(&ctx)), 0)
	if errno != 0 {
		return 0, errno
	}
	return ctx, nil
}

// Destroy wraps io_destroy(2), releasing the kernel's in-context resources.
// Any operations still in flight against ctx are canceled by the kernel.
func Destroy(ctx ContextID) error {
	_, _, errno := unix.Syscall(sysIODestroy, uintptr(ctx), 0, 0)
	if errno != 0 {
		return errno
	}
	return nil
}

// Submit wraps io_submit(2), handing the kernel a batch of control block
// pointers. It returns the number of iocbs accepted. A negative return
// from the kernel (EAGAIN or otherwise) is surfaced as (0, errno): the
// caller's accepted count is always max(0, ret), matching the batch
// worker's "k = max(0, ret)" accounting, but the errno is still returned
// for logging since not every negative return is backpressure.
func Submit(ctx ContextID, iocbs []*uapi.IOCb) (int, error) {
	if len(iocbs) == 0 {
		return 0, nil
	}
	n, _, errno := unix.Syscall(
		sysIOSubmit,
		uintptr(ctx),
		uintptr(len(iocbs)),
		uintptr(unsafe.Pointer(&iocbs[0])),
	)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}

// GetEvents wraps io_getevents(2), blocking until minNr events are
// available, nr have arrived, or timeout elapses (nil timeout blocks
// indefinitely). It writes into events and returns the number filled.
func GetEvents(ctx ContextID, minNr, nr int, events []uapi.IOEvent, timeout *syscall.Timespec) (int, error) {
	if len(events) == 0 {
		return 0, nil
	}
	var tsPtr unsafe.Pointer
	if timeout != nil {
		tsPtr = unsafe.Pointer(timeout)
	}
	n, _, errno := unix.Syscall6(
		sysIOGetEvents,
		uintptr(ctx),
		uintptr(minNr),
		uintptr(nr),
		uintptr(unsafe.Pointer(&events[0])),
		uintptr(tsPtr),
		0,
	)
	if errno != 0 {
		return 0, errno
	}
	return int(n), nil
}
