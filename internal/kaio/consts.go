//go:build linux

package kaio

import "golang.org/x/sys/unix"

// Legacy AIO syscall numbers, resolved through x/sys/unix's generated
// per-architecture tables rather than hardcoded so this package builds on
// more than amd64.
const (
	sysIOSetup     = unix.SYS_IO_SETUP
	sysIODestroy   = unix.SYS_IO_DESTROY
	sysIOSubmit    = unix.SYS_IO_SUBMIT
	sysIOGetEvents = unix.SYS_IO_GETEVENTS
)
