// Package store defines the seam between regkit and a native registry.
//
// A Backend exposes the registry the way the Win32 API does: opaque key
// handles, predefined root pseudo-handles, index-based enumeration, and
// kernel transaction handles. Every failure is reported as a types.Errno so
// callers see the same codes whichever backend is in use.
//
// Implementations:
//   - store/winapi: the real registry through advapi32 and ktmw32 (windows only)
//   - store/memstore: an in-process emulation with the same semantics
//   - store/boltstore: a bbolt persister that makes memstore durable
package store

import (
	"github.com/joshuapare/regkit/pkg/types"
)

// Handle is an open key. Predefined roots use their RootKey value as a
// pseudo-handle and never need closing.
type Handle uintptr

// TxHandle is an open kernel transaction. NoTx means "not transacted".
type TxHandle uintptr

const NoTx TxHandle = 0

// PredefHandle returns the pseudo-handle for a predefined root.
func PredefHandle(root types.RootKey) Handle { return Handle(root) }

// IsPredef reports whether h is a predefined root pseudo-handle.
func IsPredef(h Handle) bool { return types.RootKey(h).Valid() }

// Backend mirrors the native registry API.
//
// Methods taking a TxHandle bind the opened or created key to that
// transaction; a key opened from a transacted parent stays in the parent's
// transaction. EnumKey and EnumValue return types.ERROR_NO_MORE_ITEMS once
// index passes the last entry.
type Backend interface {
	OpenKey(parent Handle, path string, access types.Access, tx TxHandle) (Handle, error)
	CreateKey(parent Handle, path string, access types.Access, tx TxHandle) (Handle, types.Disposition, error)
	CloseKey(h Handle) error
	// DeleteKey removes one key without subkeys. An empty path is invalid.
	DeleteKey(parent Handle, path string, tx TxHandle) error

	EnumKey(h Handle, index uint32) (string, error)
	EnumValue(h Handle, index uint32) (string, types.RegValue, error)
	QueryValue(h Handle, name string) (types.RegValue, error)
	SetValue(h Handle, name string, v types.RegValue) error
	DeleteValue(h Handle, name string) error
	QueryInfo(h Handle) (types.KeyMetadata, error)

	BeginTx() (TxHandle, error)
	CommitTx(tx TxHandle) error
	RollbackTx(tx TxHandle) error
	// CloseTx releases the transaction handle, rolling back if still active.
	CloseTx(tx TxHandle) error
}
