// Package regstruct stores Go values as registry subtrees and reads them
// back.
//
// A struct becomes a key whose fields are values (scalars) or subkeys
// (nested structs, slices, arrays, maps and enums). Field names come from
// the `reg` tag or the Go field name:
//
//	type Config struct {
//	    Name    string            `reg:"name"`
//	    Port    uint32            // REG_DWORD
//	    Servers []Server          // subkey with entries "0", "1", ...
//	    Labels  map[string]string // subkey with one value per entry
//	    Proxy   *Server           `reg:",omitempty"` // nil leaves nothing behind
//	    Paths   []string          `reg:",multi"`     // one REG_MULTI_SZ
//	    Secret  string            `reg:"-"`
//	}
//
//	err := regstruct.Marshal(k, cfg)
//	err = regstruct.Unmarshal(k, &cfg)
//
// Marshal writes the whole value inside one transaction so readers never
// see a half-written tree. Interface fields are stored as enums once their
// variants are registered with RegisterEnum.
package regstruct

import (
	"cmp"
	"encoding"
	"fmt"
	"reflect"
	"slices"
	"strconv"

	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

// EncodeOptions configures an Encoder.
type EncodeOptions struct {
	// Untransacted writes straight to the store instead of through a
	// transaction. Use it where transactions are unsupported; a failed
	// Encode then leaves partial output behind.
	Untransacted bool
}

const encodeAccess = types.KEY_QUERY_VALUE | types.KEY_SET_VALUE | types.KEY_CREATE_SUB_KEY |
	types.KEY_ENUMERATE_SUB_KEYS | types.DELETE

// Encoder writes values under one key.
type Encoder struct {
	root *regkey.Key
	tx   *regkey.Transaction
	done bool
}

// NewEncoder opens an encoder on k. Unless opts.Untransacted is set, it
// starts a transaction that Commit finishes and Close abandons.
func NewEncoder(k *regkey.Key, opts EncodeOptions) (*Encoder, error) {
	e := &Encoder{}
	var err error
	if opts.Untransacted {
		e.root, err = k.OpenSubkey("", encodeAccess)
		if err != nil {
			return nil, err
		}
		return e, nil
	}

	e.tx, err = k.Registry().NewTransaction()
	if err != nil {
		return nil, err
	}
	e.root, err = k.OpenSubkeyTransacted("", encodeAccess, e.tx)
	if err != nil {
		e.tx.Close()
		return nil, err
	}
	return e, nil
}

// Encode writes v under the encoder's key. v must be a struct, map,
// sequence or registered enum (or a pointer to one); a bare scalar has no
// name to be stored under.
func (e *Encoder) Encode(v any) error {
	if e.done {
		return &types.Error{Kind: types.ErrKindClosed, Op: "encode", Msg: "encoder is finished"}
	}
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}
	switch shapeOf(rv.Type(), false) {
	case shapeSeq, shapeMap, shapeEnum:
		// the root is replaced wholesale, like a nested sequence or map
		if err := e.root.DeleteSubkeyAll(""); err != nil {
			return encErr("", err)
		}
	}
	return encodeInto(e.root, rv, "", false)
}

// Commit makes everything written so far visible. It is a no-op for an
// untransacted encoder apart from ending it.
func (e *Encoder) Commit() error {
	if e.done {
		return &types.Error{Kind: types.ErrKindTransactionFailed, Op: "commit", Msg: "encoder is finished"}
	}
	e.done = true
	if err := e.root.Close(); err != nil {
		logger.Debug("encoder: close root", "path", e.root.Path(), "err", err)
	}
	if e.tx == nil {
		return nil
	}
	return e.tx.Commit()
}

// Close releases the encoder. An uncommitted transaction is rolled back.
func (e *Encoder) Close() error {
	if !e.done {
		e.done = true
		e.root.Close()
	}
	if e.tx != nil {
		return e.tx.Close()
	}
	return nil
}

// Marshal writes v under k atomically.
func Marshal(k *regkey.Key, v any) error {
	e, err := NewEncoder(k, EncodeOptions{})
	if err != nil {
		return err
	}
	defer e.Close()
	if err := e.Encode(v); err != nil {
		return err
	}
	return e.Commit()
}

// -----------------------------------------------------------------------------
// Tree walk
// -----------------------------------------------------------------------------

func fieldPath(parent, name string) string {
	if parent == "" {
		return name
	}
	return parent + "." + name
}

// encErr attaches the field path to a failure, keeping its kind.
func encErr(path string, err error) error {
	return &types.Error{Kind: types.KindOf(err), Op: "encode", Path: path, Err: err}
}

// encodeInto writes a composite value into k itself.
func encodeInto(k *regkey.Key, v reflect.Value, path string, multi bool) error {
	switch shapeOf(v.Type(), multi) {
	case shapeStruct:
		return encodeStruct(k, v, path)
	case shapeSeq:
		return encodeSeq(k, v, path)
	case shapeMap:
		return encodeMap(k, v, path)
	case shapeEnum:
		return encodeEnum(k, v, path)
	case shapeScalar:
		return noName(path, v)
	default:
		return &types.Error{Kind: types.ErrKindNotImplemented, Op: "encode", Path: path, Msg: fmt.Sprintf("unsupported type %v", v.Type())}
	}
}

func noName(path string, v reflect.Value) error {
	return &types.Error{Kind: types.ErrKindNoFieldName, Op: "encode", Path: path, Msg: fmt.Sprintf("%v needs a name to be stored under", v.Type())}
}

func encodeStruct(k *regkey.Key, v reflect.Value, path string) error {
	for _, f := range fieldsOf(v.Type()) {
		fv := v.FieldByIndex(f.index)
		if f.omitEmpty && fv.IsZero() {
			if err := removeEntry(k, f.name, fieldPath(path, f.goName)); err != nil {
				return err
			}
			continue
		}
		if err := encodeEntry(k, f.name, fv, fieldPath(path, f.goName), f.multi); err != nil {
			return err
		}
	}
	return nil
}

// encodeEntry writes v as the entry name of k: a value for scalars, a
// subkey for composites.
func encodeEntry(k *regkey.Key, name string, v reflect.Value, path string, multi bool) error {
	switch shapeOf(v.Type(), multi) {
	case shapeScalar:
		rv, err := encodeScalar(v, multi)
		if err != nil {
			return encErr(path, err)
		}
		if err := k.SetRawValue(name, rv); err != nil {
			return encErr(path, err)
		}
		return nil

	case shapeOption:
		if v.IsNil() {
			return removeEntry(k, name, path)
		}
		return encodeEntry(k, name, v.Elem(), path, multi)

	case shapeStruct:
		if name == "" {
			return noName(path, v)
		}
		child, _, err := k.CreateSubkey(name, encodeAccess)
		if err != nil {
			return encErr(path, err)
		}
		defer child.Close()
		return encodeStruct(child, v, path)

	case shapeSeq, shapeMap, shapeEnum:
		if shapeOf(v.Type(), multi) == shapeEnum && v.IsNil() {
			return removeEntry(k, name, path)
		}
		if name == "" {
			return noName(path, v)
		}
		// replaced wholesale so entries from a longer earlier value go away
		if err := k.DeleteSubkeyAll(name); err != nil && !types.IsKind(err, types.ErrKindNotFound) {
			return encErr(path, err)
		}
		child, _, err := k.CreateSubkey(name, encodeAccess)
		if err != nil {
			return encErr(path, err)
		}
		defer child.Close()
		return encodeInto(child, v, path, multi)

	default:
		return &types.Error{Kind: types.ErrKindNotImplemented, Op: "encode", Path: path, Msg: fmt.Sprintf("unsupported type %v", v.Type())}
	}
}

// removeEntry clears whatever an earlier encode left under name.
func removeEntry(k *regkey.Key, name, path string) error {
	if err := k.DeleteValue(name); err != nil && !types.IsKind(err, types.ErrKindNotFound) {
		return encErr(path, err)
	}
	if name == "" {
		return nil
	}
	if err := k.DeleteSubkeyAll(name); err != nil && !types.IsKind(err, types.ErrKindNotFound) {
		return encErr(path, err)
	}
	return nil
}

func encodeSeq(k *regkey.Key, v reflect.Value, path string) error {
	for i := range v.Len() {
		name := strconv.Itoa(i)
		if err := encodeEntry(k, name, v.Index(i), fieldPath(path, name), false); err != nil {
			return err
		}
	}
	return nil
}

type mapEntry struct {
	name string
	val  reflect.Value
}

func encodeMap(k *regkey.Key, v reflect.Value, path string) error {
	entries := make([]mapEntry, 0, v.Len())
	iter := v.MapRange()
	for iter.Next() {
		name, err := mapKeyName(iter.Key())
		if err != nil {
			return encErr(path, err)
		}
		entries = append(entries, mapEntry{name: name, val: iter.Value()})
	}
	slices.SortFunc(entries, func(a, b mapEntry) int { return cmp.Compare(a.name, b.name) })

	for _, e := range entries {
		if err := encodeEntry(k, e.name, e.val, fieldPath(path, e.name), false); err != nil {
			return err
		}
	}
	return nil
}

func mapKeyName(key reflect.Value) (string, error) {
	if tm, ok := key.Interface().(encoding.TextMarshaler); ok {
		b, err := tm.MarshalText()
		return string(b), err
	}
	switch key.Kind() {
	case reflect.String:
		return key.String(), nil
	case reflect.Bool:
		return strconv.FormatBool(key.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(key.Int(), 10), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(key.Uint(), 10), nil
	}
	return "", types.Errorf(types.ErrKindNotImplemented, "unsupported map key type %v", key.Type())
}

func encodeEnum(k *regkey.Key, v reflect.Value, path string) error {
	info := lookupEnum(v.Type())
	if v.IsNil() {
		return nil
	}
	payload := v.Elem()
	name, ok := info.byType[payload.Type()]
	if !ok {
		return &types.Error{Kind: types.ErrKindNotImplemented, Op: "encode", Path: path,
			Msg: fmt.Sprintf("%v is not a registered variant of %v", payload.Type(), v.Type())}
	}
	if err := k.SetString(VariantKey, name); err != nil {
		return encErr(path, err)
	}

	for payload.Kind() == reflect.Pointer {
		if payload.IsNil() {
			return nil
		}
		payload = payload.Elem()
	}
	if shapeOf(payload.Type(), false) == shapeStruct {
		return encodeStruct(k, payload, path)
	}
	return encodeEntry(k, "0", payload, fieldPath(path, "0"), false)
}
