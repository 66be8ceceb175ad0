package regtext

import (
	"context"
	"fmt"

	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/internal/regmerge"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

// ImportOptions configures Import.
type ImportOptions struct {
	Parse types.RegParseOptions

	// Transacted applies everything in one transaction, so a failure part
	// way leaves the store untouched.
	Transacted bool

	// Optimize merges the parsed operations before applying them, dropping
	// writes a later one overrides.
	Optimize bool
}

// Import parses .reg data and applies it to reg. It returns the number of
// operations applied.
func Import(ctx context.Context, reg *regkey.Registry, data []byte, opts ImportOptions) (int, error) {
	return ImportFiles(ctx, reg, [][]byte{data}, opts)
}

// ParseFiles parses several .reg files into one operation list, in order.
func ParseFiles(files [][]byte, opts types.RegParseOptions) ([]types.EditOp, error) {
	var all []types.EditOp
	for i, data := range files {
		ops, err := Parse(data, opts)
		if err != nil && len(files) > 1 {
			return nil, &types.Error{Kind: types.KindOf(err), Op: "parse .reg", Msg: fmt.Sprintf("file %d", i+1), Err: err}
		}
		if err != nil {
			return nil, err
		}
		all = append(all, ops...)
	}
	return all, nil
}

// ImportFiles applies several .reg files as if imported one after another.
// It returns the number of operations applied, which is lower than the
// parsed count when opts.Optimize is set.
func ImportFiles(ctx context.Context, reg *regkey.Registry, files [][]byte, opts ImportOptions) (int, error) {
	ops, err := ParseFiles(files, opts.Parse)
	if err != nil {
		return 0, err
	}
	if opts.Optimize {
		var stats regmerge.Stats
		ops, stats = regmerge.Optimize(ops, regmerge.DefaultOptimizerOptions())
		logger.Debug("import: optimized",
			"input", stats.InputOps,
			"output", stats.OutputOps,
			"deduped", stats.DedupedSetValue,
			"shadowed", stats.ShadowedByDelete,
			"reduction", fmt.Sprintf("%.1f%%", stats.ReductionPercent()))
	}
	return apply(ctx, reg, ops, opts.Transacted)
}

func apply(ctx context.Context, reg *regkey.Registry, ops []types.EditOp, transacted bool) (int, error) {
	if !transacted {
		a := &applier{reg: reg, bases: map[types.RootKey]*regkey.Key{}}
		defer a.close()
		return a.run(ctx, ops)
	}

	var n int
	err := reg.RunInTransaction(ctx, func(tx *regkey.Transaction) error {
		a := &applier{reg: reg, tx: tx, bases: map[types.RootKey]*regkey.Key{}}
		defer a.close()
		var runErr error
		n, runErr = a.run(ctx, ops)
		return runErr
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

type applier struct {
	reg   *regkey.Registry
	tx    *regkey.Transaction
	bases map[types.RootKey]*regkey.Key
}

func (a *applier) close() {
	if a.tx == nil {
		return
	}
	for _, k := range a.bases {
		k.Close()
	}
}

func (a *applier) run(ctx context.Context, ops []types.EditOp) (int, error) {
	for i, op := range ops {
		if err := ctx.Err(); err != nil {
			return i, err
		}
		if err := a.apply(op); err != nil {
			return i, err
		}
	}
	return len(ops), nil
}

// base returns the key ops under root are resolved against: the predefined
// root itself, or a handle to it bound to the import transaction.
func (a *applier) base(path string) (*regkey.Key, string, error) {
	root, rel, ok := types.SplitRootPath(path)
	if !ok {
		return nil, "", &types.Error{Kind: types.ErrKindInvalidPath, Op: "import", Path: path, Msg: "unknown root"}
	}
	if k, ok := a.bases[root]; ok {
		return k, rel, nil
	}
	k := a.reg.Predef(root)
	if a.tx != nil {
		var err error
		k, err = k.OpenSubkeyTransacted("", types.KEY_ALL_ACCESS, a.tx)
		if err != nil {
			return nil, "", err
		}
	}
	a.bases[root] = k
	return k, rel, nil
}

func (a *applier) apply(op types.EditOp) error {
	switch op := op.(type) {
	case types.OpCreateKey:
		logger.Debug("import: create key", "path", op.Path)
		return a.withKey(op.Path, func(*regkey.Key) error { return nil })

	case types.OpSetValue:
		logger.Debug("import: set value", "path", op.Path, "name", op.Name, "type", op.Type)
		return a.withKey(op.Path, func(k *regkey.Key) error {
			return k.SetRawValue(op.Name, types.RegValue{Bytes: op.Data, Type: op.Type})
		})

	case types.OpDeleteValue:
		logger.Debug("import: delete value", "path", op.Path, "name", op.Name)
		base, rel, err := a.base(op.Path)
		if err != nil {
			return err
		}
		err = base.With(rel, types.KEY_SET_VALUE, func(k *regkey.Key) error {
			return k.DeleteValue(op.Name)
		})
		if types.IsKind(err, types.ErrKindNotFound) {
			return nil
		}
		return err

	case types.OpDeleteKey:
		logger.Debug("import: delete key", "path", op.Path)
		base, rel, err := a.base(op.Path)
		if err != nil {
			return err
		}
		if rel == "" {
			return &types.Error{Kind: types.ErrKindInvalidPath, Op: "import", Path: op.Path, Msg: "cannot delete a root key"}
		}
		if op.Recursive {
			err = base.DeleteSubkeyAll(rel)
		} else {
			err = base.DeleteSubkey(rel)
		}
		// deleting a key that is not there is a no-op in .reg files
		if types.IsKind(err, types.ErrKindNotFound) {
			return nil
		}
		return err

	default:
		return types.Errorf(types.ErrKindNotImplemented, "unsupported edit %T", op)
	}
}

// withKey creates path if needed and runs fn on it.
func (a *applier) withKey(path string, fn func(*regkey.Key) error) error {
	base, rel, err := a.base(path)
	if err != nil {
		return err
	}
	k, _, err := base.CreateSubkey(rel, types.KEY_ALL_ACCESS)
	if err != nil {
		return err
	}
	defer k.Close()
	return fn(k)
}
