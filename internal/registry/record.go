// Package registry holds the operation record (C2) and the completion
// registry (C3): the tagged-state-machine core that arbitrates between a
// submitter, an awaiter, a canceller and the batch worker for each
// in-flight kernel AIO operation.
package registry

import "github.com/maximmoroz/goaio/internal/uapi"

// Record is the per-operation data handed to the kernel: a data buffer and
// a control block pointing at it, both at stable heap addresses that must
// not move between submission and kernel completion. Record itself is
// never copied after construction; it is always referenced through a
// pointer stored in a registry Entry.
type Record struct {
	ID     uint64
	Buf    []byte
	Ctrl   *uapi.IOCb
}

// NewReadRecord builds a record for a pread operation with a freshly
// zeroed destination buffer of the requested length.
func NewReadRecord(id uint64, fd int, offset uint64, length int, priority uint16) *Record {
	buf := make([]byte, length)
	return &Record{
		ID:   id,
		Buf:  buf,
		Ctrl: uapi.NewReadIOCb(id, fd, offset, buf, priority),
	}
}

// NewWriteRecord builds a record for a pwrite operation. The record takes
// ownership of buf; the caller must not mutate it until the operation
// resolves.
func NewWriteRecord(id uint64, fd int, offset uint64, buf []byte, priority uint16) *Record {
	return &Record{
		ID:   id,
		Buf:  buf,
		Ctrl: uapi.NewWriteIOCb(id, fd, offset, buf, priority),
	}
}
