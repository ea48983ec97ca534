//go:build linux

package aio

import (
	"errors"
	"syscall"
	"testing"

	"github.com/maximmoroz/goaio/internal/kaio"
)

func TestNewSetupErrorMapsKind(t *testing.T) {
	cases := []struct {
		kind kaio.SetupErrorKind
		want ErrorCode
	}{
		{kaio.MaxEventsTooLarge, CodeMaxEventsTooLarge},
		{kaio.LowKernelRes, CodeLowKernelRes},
		{kaio.NotSupported, CodeNotSupported},
		{kaio.OtherSetupError, CodeSetupOther},
	}
	for _, tc := range cases {
		se := &kaio.SetupError{Kind: tc.kind, Errno: syscall.EINVAL}
		got := newSetupError(se)
		if !IsCode(got, tc.want) {
			t.Errorf("newSetupError(%v) code = %v, want %v", tc.kind, got, tc.want)
		}
	}
}

func TestNewOperationErrorWrapsErrno(t *testing.T) {
	err := newOperationError("read", syscall.EBADF)
	if !IsCode(err, CodeIOError) {
		t.Fatalf("expected CodeIOError, got %v", err)
	}
	var e *Error
	if !errors.As(err, &e) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if e.Errno != syscall.EBADF {
		t.Errorf("Errno = %v, want EBADF", e.Errno)
	}
}

func TestIsCodeAgainstManagerClosed(t *testing.T) {
	if !IsCode(ErrManagerClosed, CodeManagerClosed) {
		t.Error("expected ErrManagerClosed to carry CodeManagerClosed")
	}
	if IsCode(ErrManagerClosed, CodeIOError) {
		t.Error("did not expect ErrManagerClosed to match CodeIOError")
	}
}

func TestErrorUnwrap(t *testing.T) {
	inner := syscall.ENOSPC
	err := newOperationError("write", inner)
	if errors.Unwrap(err) != inner {
		t.Errorf("Unwrap() = %v, want %v", errors.Unwrap(err), inner)
	}
}
