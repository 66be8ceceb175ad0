package types

import (
	"bytes"
	"fmt"
	"time"
)

// -----------------------------------------------------------------------------
// Value types
// -----------------------------------------------------------------------------

// RegType enumerates Windows registry value types.
// (The numbers align with Windows definitions.)
type RegType uint32

const (
	REG_NONE                       RegType = 0
	REG_SZ                         RegType = 1
	REG_EXPAND_SZ                  RegType = 2
	REG_BINARY                     RegType = 3
	REG_DWORD                      RegType = 4
	REG_DWORD_LE                   RegType = 4 // alias for clarity
	REG_DWORD_BE                   RegType = 5
	REG_DWORD_BIG_ENDIAN           RegType = 5
	REG_LINK                       RegType = 6
	REG_MULTI_SZ                   RegType = 7
	REG_RESOURCE_LIST              RegType = 8
	REG_FULL_RESOURCE_DESCRIPTOR   RegType = 9
	REG_RESOURCE_REQUIREMENTS_LIST RegType = 10
	REG_QWORD                      RegType = 11
)

// String implements the Stringer interface for RegType
func (t RegType) String() string {
	switch t {
	case REG_NONE:
		return "REG_NONE"
	case REG_SZ:
		return "REG_SZ"
	case REG_EXPAND_SZ:
		return "REG_EXPAND_SZ"
	case REG_BINARY:
		return "REG_BINARY"
	case REG_DWORD:
		return "REG_DWORD"
	case REG_DWORD_BE:
		return "REG_DWORD_BIG_ENDIAN"
	case REG_LINK:
		return "REG_LINK"
	case REG_MULTI_SZ:
		return "REG_MULTI_SZ"
	case REG_RESOURCE_LIST:
		return "REG_RESOURCE_LIST"
	case REG_FULL_RESOURCE_DESCRIPTOR:
		return "REG_FULL_RESOURCE_DESCRIPTOR"
	case REG_RESOURCE_REQUIREMENTS_LIST:
		return "REG_RESOURCE_REQUIREMENTS_LIST"
	case REG_QWORD:
		return "REG_QWORD"
	default:
		// Signed so corrupted tags (0xFFFF00xx) read the way regedit shows them.
		return fmt.Sprintf("UNKNOWN_TYPE_%d", int32(t))
	}
}

// Known reports whether t is one of the twelve native type tags.
func (t RegType) Known() bool { return t <= REG_QWORD }

// RegValue is one stored value: a byte payload whose interpretation is fully
// determined by Type. Nothing in regkit reinterprets Bytes across types.
type RegValue struct {
	Bytes []byte
	Type  RegType
}

// Clone returns a deep copy so callers can retain the payload.
func (v RegValue) Clone() RegValue {
	out := RegValue{Type: v.Type}
	if v.Bytes != nil {
		out.Bytes = append([]byte(nil), v.Bytes...)
	}
	return out
}

// Equal compares type tag and payload.
func (v RegValue) Equal(o RegValue) bool {
	return v.Type == o.Type && bytes.Equal(v.Bytes, o.Bytes)
}

func (v RegValue) String() string {
	return fmt.Sprintf("%s(%d bytes)", v.Type, len(v.Bytes))
}

// -----------------------------------------------------------------------------
// Key metadata
// -----------------------------------------------------------------------------

// KeyMetadata is a point-in-time snapshot of a key's shape. Lengths are in
// UTF-16 code units for names and bytes for value data, as RegQueryInfoKey
// reports them. A later mutation does not update a snapshot.
type KeyMetadata struct {
	SubKeys         uint32
	MaxSubKeyLen    uint32
	MaxClassLen     uint32
	Values          uint32
	MaxValueNameLen uint32
	MaxValueLen     uint32
	LastWrite       time.Time
}

// Disposition reports whether a create call made a new key.
type Disposition uint32

const (
	REG_CREATED_NEW_KEY     Disposition = 1
	REG_OPENED_EXISTING_KEY Disposition = 2
)

func (d Disposition) String() string {
	switch d {
	case REG_CREATED_NEW_KEY:
		return "created"
	case REG_OPENED_EXISTING_KEY:
		return "opened"
	default:
		return fmt.Sprintf("Disposition(%d)", uint32(d))
	}
}

// -----------------------------------------------------------------------------
// Edit operations
// -----------------------------------------------------------------------------

// EditOp represents a high-level registry edit. Paths are absolute and start
// with a root name (e.g. "HKEY_CURRENT_USER\Software\Vendor").
//
// EditOps flow out of the .reg parser and into persistence batches.
type EditOp interface{ isEdit() }

type OpSetValue struct {
	Path string
	Name string
	Type RegType
	Data []byte
}

func (OpSetValue) isEdit() {}

type OpDeleteValue struct {
	Path string
	Name string
}

func (OpDeleteValue) isEdit() {}

type OpCreateKey struct {
	Path string
}

func (OpCreateKey) isEdit() {}

type OpDeleteKey struct {
	Path      string
	Recursive bool
}

func (OpDeleteKey) isEdit() {}

// -----------------------------------------------------------------------------
// .REG (regedit) import/export options
// -----------------------------------------------------------------------------

type RegParseOptions struct {
	// InputEncoding declares the .reg text encoding ("UTF-8", "UTF-16LE" or
	// "WINDOWS-1252"). A byte order mark overrides it.
	InputEncoding string
}

type RegExportOptions struct {
	// Output encoding for emitted .reg (e.g., "UTF-16LE" with BOM to match regedit.exe).
	OutputEncoding string
	WithBOM        bool
}
