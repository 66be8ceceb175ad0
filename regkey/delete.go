package regkey

import (
	"errors"
	"slices"

	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/pkg/types"
)

// DeletePolicy decides which failures a recursive delete may skip.
type DeletePolicy struct {
	// Benign lists native codes that mean "already gone". A child failing
	// with one of them is logged and skipped.
	Benign []types.Errno
}

// DefaultDeletePolicy treats a key that vanished between listing and
// deletion as benign.
func DefaultDeletePolicy() DeletePolicy {
	return DeletePolicy{Benign: []types.Errno{types.ERROR_FILE_NOT_FOUND, types.ERROR_KEY_DELETED}}
}

func (p DeletePolicy) benign(err error) bool {
	en, ok := types.ErrnoOf(err)
	return ok && slices.Contains(p.Benign, en)
}

// maxDeletePasses bounds how often a recursive delete re-lists a key whose
// children keep reappearing.
const maxDeletePasses = 3

const deleteAccess = types.KEY_READ | types.KEY_SET_VALUE | types.DELETE

// DeleteSubkey removes one key below k. It fails with ErrKindNotEmpty if the
// key has subkeys and ErrKindNotFound if it does not exist.
func (k *Key) DeleteSubkey(path string) error {
	return k.deleteOne(path, k.tx)
}

// DeleteSubkeyTransacted is DeleteSubkey as part of tx.
func (k *Key) DeleteSubkeyTransacted(path string, tx *Transaction) error {
	if err := tx.usable("delete"); err != nil {
		return err
	}
	return k.deleteOne(path, tx)
}

func (k *Key) deleteOne(path string, tx *Transaction) error {
	h, err := k.handle("delete")
	if err != nil {
		return err
	}
	if path == "" {
		return &types.Error{Kind: types.ErrKindInvalidPath, Op: "delete", Path: k.path, Msg: "a key cannot delete itself"}
	}
	txh := k.txHandle()
	if tx != nil {
		txh = tx.h
	}
	err = k.reg.backend.DeleteKey(h, path, txh)
	if err == nil {
		return nil
	}
	// The native API reports a populated key as ACCESS_DENIED.
	if errors.Is(err, types.ERROR_ACCESS_DENIED) && k.hasChildren(path, tx) {
		return &types.Error{Kind: types.ErrKindNotEmpty, Op: "delete", Path: k.child(path), Err: err}
	}
	return types.Wrap("delete", k.child(path), err)
}

func (k *Key) hasChildren(path string, tx *Transaction) bool {
	sub, err := k.open(path, types.KEY_QUERY_VALUE, tx)
	if err != nil {
		return false
	}
	defer sub.Close()
	md, err := sub.QueryInfo()
	return err == nil && md.SubKeys > 0
}

// DeleteSubkeyAll removes path and everything below it using the default
// policy. An empty path empties k: its subkeys and values go, k stays. A
// missing path fails with ErrKindNotFound; only keys that vanish during
// the walk are skipped.
func (k *Key) DeleteSubkeyAll(path string) error {
	return k.DeleteSubkeyAllWithPolicy(path, DefaultDeletePolicy())
}

// DeleteSubkeyAllWithPolicy is DeleteSubkeyAll with a caller-chosen set of
// benign failures.
func (k *Key) DeleteSubkeyAllWithPolicy(path string, p DeletePolicy) error {
	target, err := k.OpenSubkey(path, deleteAccess)
	if err != nil {
		return err
	}
	defer target.Close()

	if path == "" {
		if err := target.deleteChildren(p, 0); err != nil {
			return err
		}
		return target.clearValues(p)
	}

	for pass := 0; ; pass++ {
		if err := target.deleteChildren(p, 0); err != nil {
			return err
		}
		err := k.DeleteSubkey(path)
		switch {
		case err == nil:
			return nil
		case p.benign(err):
			logger.Debug("delete tree: target vanished", "path", k.child(path), "err", err)
			return nil
		case types.IsKind(err, types.ErrKindNotEmpty) && pass+1 < maxDeletePasses:
			logger.Debug("delete tree: children reappeared", "path", k.child(path), "pass", pass)
			continue
		default:
			return err
		}
	}
}

// deleteChildren lists k's subkeys first, then deletes each depth-first.
func (k *Key) deleteChildren(p DeletePolicy, depth int) error {
	if depth > types.MaxTreeDepth {
		return &types.Error{Kind: types.ErrKindInvalidPath, Op: "delete tree", Path: k.path, Msg: "tree too deep"}
	}
	names, err := k.SubkeyNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		child, err := k.OpenSubkey(name, deleteAccess)
		if err != nil {
			if p.benign(err) {
				logger.Debug("delete tree: child vanished", "path", k.child(name), "err", err)
				continue
			}
			return err
		}
		err = child.deleteChildren(p, depth+1)
		child.Close()
		if err != nil {
			return err
		}
		if err := k.DeleteSubkey(name); err != nil {
			if p.benign(err) {
				logger.Debug("delete tree: child vanished", "path", k.child(name), "err", err)
				continue
			}
			return err
		}
	}
	return nil
}

func (k *Key) clearValues(p DeletePolicy) error {
	names, err := k.ValueNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := k.DeleteValue(name); err != nil && !p.benign(err) {
			return err
		}
	}
	return nil
}
