// Package regkey is the handle layer: typed, resource-safe access to a
// hierarchical registry exposed by a store.Backend.
//
// A Registry wraps one backend. Predef returns the root keys; every other
// Key comes from opening or creating a path under an existing Key and must
// be closed when done (a runtime cleanup closes keys that are dropped, but
// relying on it keeps native handles alive until the next GC).
//
//	reg := regkey.Default()
//	hkcu := reg.Predef(types.HKEY_CURRENT_USER)
//	k, _, err := hkcu.CreateSubkey(`Software\Vendor\App`, types.KEY_ALL_ACCESS)
//	if err != nil {
//	    return err
//	}
//	defer k.Close()
//	err = k.SetString("InstallDir", `C:\Vendor`)
//
// Mutations become atomic by binding keys to a Transaction:
//
//	err := reg.RunInTransaction(ctx, func(tx *regkey.Transaction) error {
//	    k, _, err := hkcu.CreateSubkeyTransacted(`Software\Vendor`, types.KEY_ALL_ACCESS, tx)
//	    if err != nil {
//	        return err
//	    }
//	    defer k.Close()
//	    return k.SetDWORD("Version", 2)
//	})
//
// Errors are *types.Error values; use types.KindOf or errors.Is against the
// types.Err* sentinels to branch on them.
package regkey

import (
	"context"
	"io"
	"sync"

	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
)

// Registry binds keys and transactions to one backend.
type Registry struct {
	backend store.Backend
}

// New returns a Registry over b.
func New(b store.Backend) *Registry {
	return &Registry{backend: b}
}

var defaultRegistry = sync.OnceValue(func() *Registry {
	return New(defaultBackend())
})

// Default returns the process-wide Registry: the native registry on
// Windows, a shared in-memory emulation elsewhere.
func Default() *Registry { return defaultRegistry() }

// Predef returns a root key of the default Registry.
func Predef(root types.RootKey) *Key { return Default().Predef(root) }

// NewTransaction begins a transaction on the default Registry.
func NewTransaction() (*Transaction, error) { return Default().NewTransaction() }

// Backend returns the store the Registry talks to.
func (r *Registry) Backend() store.Backend { return r.backend }

// Predef returns the key for a predefined root. Root keys need no Close.
func (r *Registry) Predef(root types.RootKey) *Key {
	return &Key{
		reg:    r,
		h:      store.PredefHandle(root),
		path:   root.String(),
		access: types.KEY_ALL_ACCESS,
		predef: true,
	}
}

// RunInTransaction runs fn inside a new transaction. The transaction is
// committed when fn returns nil and ctx is still live, and rolled back
// otherwise.
func (r *Registry) RunInTransaction(ctx context.Context, fn func(tx *Transaction) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, err := r.NewTransaction()
	if err != nil {
		return err
	}
	defer tx.Close()

	if err := fn(tx); err != nil {
		logger.Debug("transaction callback failed", "tx", tx.ID(), "err", err)
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return tx.Commit()
}

// Close releases the backend if it holds resources (a bolt file, say).
func (r *Registry) Close() error {
	if c, ok := r.backend.(io.Closer); ok {
		return types.Wrap("close registry", "", c.Close())
	}
	return nil
}
