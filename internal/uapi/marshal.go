package uapi

import "encoding/binary"

// MarshalError reports a fixed-layout encode/decode failure.
type MarshalError string

func (e MarshalError) Error() string { return string(e) }

const (
	ErrInsufficientData = MarshalError("uapi: insufficient data for struct")
)

// MarshalIOEvent encodes an IOEvent into its 32-byte kernel wire layout.
// Used by tests that need to synthesize completion events without a real
// kernel AIO context.
func MarshalIOEvent(ev IOEvent) []byte {
	buf := make([]byte, 32)
	binary.LittleEndian.PutUint64(buf[0:8], ev.Data)
	binary.LittleEndian.PutUint64(buf[8:16], ev.Obj)
	binary.LittleEndian.PutUint64(buf[16:24], uint64(ev.Res))
	binary.LittleEndian.PutUint64(buf[24:32], uint64(ev.Res2))
	return buf
}

// UnmarshalIOEvent decodes a 32-byte kernel io_event.
func UnmarshalIOEvent(data []byte) (IOEvent, error) {
	if len(data) < 32 {
		return IOEvent{}, ErrInsufficientData
	}
	return IOEvent{
		Data: binary.LittleEndian.Uint64(data[0:8]),
		Obj:  binary.LittleEndian.Uint64(data[8:16]),
		Res:  int64(binary.LittleEndian.Uint64(data[16:24])),
		Res2: int64(binary.LittleEndian.Uint64(data[24:32])),
	}, nil
}
