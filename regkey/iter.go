package regkey

import (
	"errors"
	"iter"

	"github.com/joshuapare/regkit/pkg/types"
)

// KeyIter walks the direct subkeys of a Key by index. It does not own the
// key; closing the key mid-walk makes the next step fail with
// ErrKindClosed. Create a new iterator to start over.
//
//	it := k.EnumKeys()
//	for it.Next() {
//	    fmt.Println(it.Name())
//	}
//	if err := it.Err(); err != nil { ... }
type KeyIter struct {
	k     *Key
	index uint32
	name  string
	err   error
	done  bool
}

// EnumKeys returns an iterator over k's subkey names.
func (k *Key) EnumKeys() *KeyIter { return &KeyIter{k: k} }

// Next advances to the next subkey. It returns false at the end or on error.
func (it *KeyIter) Next() bool {
	if it.done {
		return false
	}
	h, err := it.k.handle("enum keys")
	if err != nil {
		return it.fail(err)
	}
	name, err := it.k.reg.backend.EnumKey(h, it.index)
	if err != nil {
		if errors.Is(err, types.ERROR_NO_MORE_ITEMS) {
			it.done = true
			return false
		}
		return it.fail(types.Wrap("enum keys", it.k.path, err))
	}
	it.index++
	it.name = name
	return true
}

func (it *KeyIter) fail(err error) bool {
	it.err = err
	it.done = true
	return false
}

// Name is the current subkey name.
func (it *KeyIter) Name() string { return it.name }

// Err reports the failure that stopped iteration, if any.
func (it *KeyIter) Err() error { return it.err }

// All adapts the iterator to a range-over-func sequence. Check Err after
// the loop.
func (it *KeyIter) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for it.Next() {
			if !yield(it.name) {
				return
			}
		}
	}
}

// ValueIter walks the values of a Key by index.
type ValueIter struct {
	k     *Key
	index uint32
	name  string
	value types.RegValue
	err   error
	done  bool
}

// EnumValues returns an iterator over k's values.
func (k *Key) EnumValues() *ValueIter { return &ValueIter{k: k} }

func (it *ValueIter) Next() bool {
	if it.done {
		return false
	}
	h, err := it.k.handle("enum values")
	if err != nil {
		return it.fail(err)
	}
	name, v, err := it.k.reg.backend.EnumValue(h, it.index)
	if err != nil {
		if errors.Is(err, types.ERROR_NO_MORE_ITEMS) {
			it.done = true
			return false
		}
		return it.fail(types.Wrap("enum values", it.k.path, err))
	}
	it.index++
	it.name, it.value = name, v
	return true
}

func (it *ValueIter) fail(err error) bool {
	it.err = err
	it.done = true
	return false
}

func (it *ValueIter) Name() string          { return it.name }
func (it *ValueIter) Value() types.RegValue { return it.value }
func (it *ValueIter) Err() error            { return it.err }

func (it *ValueIter) All() iter.Seq2[string, types.RegValue] {
	return func(yield func(string, types.RegValue) bool) {
		for it.Next() {
			if !yield(it.name, it.value) {
				return
			}
		}
	}
}

// SubkeyNames collects the names of k's direct subkeys.
func (k *Key) SubkeyNames() ([]string, error) {
	var names []string
	it := k.EnumKeys()
	for it.Next() {
		names = append(names, it.Name())
	}
	return names, it.Err()
}

// ValueNames collects the names of k's values.
func (k *Key) ValueNames() ([]string, error) {
	var names []string
	it := k.EnumValues()
	for it.Next() {
		names = append(names, it.Name())
	}
	return names, it.Err()
}
