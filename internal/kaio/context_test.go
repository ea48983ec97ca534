//go:build linux

package kaio

import (
	"syscall"
	"testing"
)

func TestClassifySetupErrno(t *testing.T) {
	cases := []struct {
		errno syscall.Errno
		want  SetupErrorKind
	}{
		{syscall.EAGAIN, MaxEventsTooLarge},
		{syscall.ENOMEM, LowKernelRes},
		{syscall.ENOSYS, NotSupported},
		{syscall.EINVAL, OtherSetupError},
	}
	for _, tc := range cases {
		err := classifySetupErrno(tc.errno)
		if err.Kind != tc.want {
			t.Errorf("classifySetupErrno(%v).Kind = %v, want %v", tc.errno, err.Kind, tc.want)
		}
		if err.Errno != tc.errno {
			t.Errorf("classifySetupErrno(%v).Errno = %v, want %v", tc.errno, err.Errno, tc.errno)
		}
	}
}

func TestNewContextAndDestroy(t *testing.T) {
	ctx, err := NewContext(8)
	if err != nil {
		t.Skipf("io_setup unavailable in this environment: %v", err)
	}
	if ctx.ID() == 0 {
		t.Error("expected non-zero context id")
	}
	if err := ctx.Destroy(); err != nil {
		t.Errorf("Destroy() = %v, want nil", err)
	}
}

func TestNewContextSingleMaxEventStillHasAnID(t *testing.T) {
	ctx, err := NewContext(1)
	if err != nil {
		t.Skipf("io_setup unavailable in this environment: %v", err)
	}
	defer ctx.Destroy()
	if ctx.ID() == 0 {
		t.Error("expected non-zero context id for max_events=1")
	}
}
