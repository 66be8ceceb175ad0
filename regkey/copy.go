package regkey

import (
	"github.com/joshuapare/regkit/pkg/types"
)

// CopyTree copies the values and subkeys of srcPath (relative to k) into
// dst, depth-first. Existing values in dst are overwritten; nothing is
// removed. A failure part way leaves what was already copied in place unless
// dst is bound to a transaction.
func (k *Key) CopyTree(srcPath string, dst *Key) error {
	src, err := k.OpenSubkey(srcPath, types.KEY_READ)
	if err != nil {
		return err
	}
	defer src.Close()
	return copyTree(src, dst, 0)
}

func copyTree(src, dst *Key, depth int) error {
	if depth > types.MaxTreeDepth {
		return &types.Error{Kind: types.ErrKindInvalidPath, Op: "copy tree", Path: src.path, Msg: "tree too deep"}
	}

	it := src.EnumValues()
	for it.Next() {
		if err := dst.SetRawValue(it.Name(), it.Value()); err != nil {
			return err
		}
	}
	if err := it.Err(); err != nil {
		return err
	}

	names, err := src.SubkeyNames()
	if err != nil {
		return err
	}
	for _, name := range names {
		if err := copyChild(src, dst, name, depth); err != nil {
			return err
		}
	}
	return nil
}

func copyChild(src, dst *Key, name string, depth int) error {
	sc, err := src.OpenSubkey(name, types.KEY_READ)
	if err != nil {
		return err
	}
	defer sc.Close()
	dc, _, err := dst.CreateSubkey(name, types.KEY_ALL_ACCESS)
	if err != nil {
		return err
	}
	defer dc.Close()
	return copyTree(sc, dc, depth+1)
}
