package regkey

import (
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
)

// Key is an open registry key. It owns exactly one backend handle, which
// Close releases. A Key is safe for concurrent use; each call goes straight
// to the backend and nothing is cached.
type Key struct {
	reg    *Registry
	h      store.Handle
	path   string
	access types.Access
	tx     *Transaction
	predef bool

	closed  atomic.Bool
	cleanup runtime.Cleanup
}

type keyRelease struct {
	backend store.Backend
	h       store.Handle
}

func releaseKey(r keyRelease) { _ = r.backend.CloseKey(r.h) }

func (r *Registry) newKey(h store.Handle, path string, access types.Access, tx *Transaction) *Key {
	k := &Key{reg: r, h: h, path: path, access: access, tx: tx}
	k.cleanup = runtime.AddCleanup(k, releaseKey, keyRelease{backend: r.backend, h: h})
	return k
}

// Close releases the handle. It is idempotent and a no-op for root keys.
func (k *Key) Close() error {
	if k.predef || !k.closed.CompareAndSwap(false, true) {
		return nil
	}
	k.cleanup.Stop()
	return types.Wrap("close", k.path, k.reg.backend.CloseKey(k.h))
}

// Path is the display path, e.g. HKEY_CURRENT_USER\Software\Vendor.
func (k *Key) Path() string { return k.path }

// Access is the access mask the key was opened with.
func (k *Key) Access() types.Access { return k.access }

// Transaction returns the transaction the key is bound to, or nil.
func (k *Key) Transaction() *Transaction { return k.tx }

// Handle exposes the backend handle, for callers talking to the store directly.
func (k *Key) Handle() store.Handle { return k.h }

// Registry returns the Registry the key belongs to.
func (k *Key) Registry() *Registry { return k.reg }

func (k *Key) String() string { return k.path }

func (k *Key) handle(op string) (store.Handle, error) {
	if k.closed.Load() {
		return 0, &types.Error{Kind: types.ErrKindClosed, Op: op, Path: k.path, Msg: "key is closed"}
	}
	return k.h, nil
}

func (k *Key) txHandle() store.TxHandle {
	if k.tx == nil {
		return store.NoTx
	}
	return k.tx.h
}

func (k *Key) child(rel string) string {
	return format.JoinPath(k.path, strings.TrimSuffix(rel, format.PathSeparator))
}

// -----------------------------------------------------------------------------
// Open / create
// -----------------------------------------------------------------------------

// OpenSubkey opens path relative to k. An empty path opens an independent
// handle to k itself. A key bound to a transaction opens children in the
// same transaction.
func (k *Key) OpenSubkey(path string, access types.Access) (*Key, error) {
	return k.open(path, access, k.tx)
}

// OpenSubkeyTransacted opens path relative to k as part of tx.
func (k *Key) OpenSubkeyTransacted(path string, access types.Access, tx *Transaction) (*Key, error) {
	if err := tx.usable("open"); err != nil {
		return nil, err
	}
	return k.open(path, access, tx)
}

func (k *Key) open(path string, access types.Access, tx *Transaction) (*Key, error) {
	h, err := k.handle("open")
	if err != nil {
		return nil, err
	}
	txh := store.NoTx
	if tx != nil {
		txh = tx.h
	}
	ch, err := k.reg.backend.OpenKey(h, path, access, txh)
	if err != nil {
		return nil, types.Wrap("open", k.child(path), err)
	}
	return k.reg.newKey(ch, k.child(path), access, tx), nil
}

// CreateSubkey opens path relative to k, creating it and any missing
// intermediate keys. The disposition says whether the leaf was new.
func (k *Key) CreateSubkey(path string, access types.Access) (*Key, types.Disposition, error) {
	return k.create(path, access, k.tx)
}

// CreateSubkeyTransacted is CreateSubkey as part of tx.
func (k *Key) CreateSubkeyTransacted(path string, access types.Access, tx *Transaction) (*Key, types.Disposition, error) {
	if err := tx.usable("create"); err != nil {
		return nil, 0, err
	}
	return k.create(path, access, tx)
}

func (k *Key) create(path string, access types.Access, tx *Transaction) (*Key, types.Disposition, error) {
	h, err := k.handle("create")
	if err != nil {
		return nil, 0, err
	}
	txh := store.NoTx
	if tx != nil {
		txh = tx.h
	}
	ch, disp, err := k.reg.backend.CreateKey(h, path, access, txh)
	if err != nil {
		return nil, 0, types.Wrap("create", k.child(path), err)
	}
	return k.reg.newKey(ch, k.child(path), access, tx), disp, nil
}

// With opens path, runs fn with it and closes it again.
func (k *Key) With(path string, access types.Access, fn func(*Key) error) error {
	sub, err := k.OpenSubkey(path, access)
	if err != nil {
		return err
	}
	defer sub.Close()
	return fn(sub)
}

// QueryInfo returns a snapshot of the key's counts and last write time.
func (k *Key) QueryInfo() (types.KeyMetadata, error) {
	h, err := k.handle("query info")
	if err != nil {
		return types.KeyMetadata{}, err
	}
	md, err := k.reg.backend.QueryInfo(h)
	if err != nil {
		return types.KeyMetadata{}, types.Wrap("query info", k.path, err)
	}
	return md, nil
}
