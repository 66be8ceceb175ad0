package format

import "encoding/binary"

// Binary encoding utilities for the fixed-width registry value types.
//
// REG_DWORD and REG_QWORD are little-endian; REG_DWORD_BIG_ENDIAN is the
// only big-endian layout the registry defines.
//
// Implementation: Uses encoding/binary. The compiler inlines these calls,
// so there is nothing to gain from unsafe loads.

// PutU32 writes a uint32 value to the buffer at the specified offset in little-endian format.
func PutU32(b []byte, off int, v uint32) {
	binary.LittleEndian.PutUint32(b[off:off+4], v)
}

// PutU64 writes a uint64 value to the buffer at the specified offset in little-endian format.
func PutU64(b []byte, off int, v uint64) {
	binary.LittleEndian.PutUint64(b[off:off+8], v)
}

// ReadU32 reads a uint32 value from the buffer at the specified offset in little-endian format.
func ReadU32(b []byte, off int) uint32 {
	return binary.LittleEndian.Uint32(b[off : off+4])
}

// ReadU64 reads a uint64 value from the buffer at the specified offset in little-endian format.
func ReadU64(b []byte, off int) uint64 {
	return binary.LittleEndian.Uint64(b[off : off+8])
}

// PutU32BE writes a uint32 in big-endian format (REG_DWORD_BIG_ENDIAN).
func PutU32BE(b []byte, off int, v uint32) {
	binary.BigEndian.PutUint32(b[off:off+4], v)
}

// ReadU32BE reads a big-endian uint32 (REG_DWORD_BIG_ENDIAN).
func ReadU32BE(b []byte, off int) uint32 {
	return binary.BigEndian.Uint32(b[off : off+4])
}

// DWORDBytes returns v as a fresh 4-byte little-endian payload.
func DWORDBytes(v uint32) []byte {
	b := make([]byte, DWORDSize)
	PutU32(b, 0, v)
	return b
}

// QWORDBytes returns v as a fresh 8-byte little-endian payload.
func QWORDBytes(v uint64) []byte {
	b := make([]byte, QWORDSize)
	PutU64(b, 0, v)
	return b
}
