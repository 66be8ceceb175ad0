package regstruct

import (
	"encoding"
	"fmt"
	"reflect"
	"strconv"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
)

// Decoder reads values from one key.
type Decoder struct {
	root *regkey.Key
}

// NewDecoder opens a read-only view of k.
func NewDecoder(k *regkey.Key) (*Decoder, error) {
	root, err := k.OpenSubkey("", types.KEY_READ)
	if err != nil {
		return nil, err
	}
	return &Decoder{root: root}, nil
}

// Decode fills the value v points to. Fields missing from the store are
// an error unless they are pointers or tagged omitempty.
func (d *Decoder) Decode(v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Pointer || rv.IsNil() {
		return types.Errorf(types.ErrKindNotImplemented, "decode into non-pointer %T", v)
	}
	return decodeInto(d.root, rv.Elem(), "", false)
}

func (d *Decoder) Close() error { return d.root.Close() }

// Unmarshal reads the tree under k into v.
func Unmarshal(k *regkey.Key, v any) error {
	d, err := NewDecoder(k)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Decode(v)
}

func decErr(path string, err error) error {
	return &types.Error{Kind: types.KindOf(err), Op: "decode", Path: path, Err: err}
}

func parseErr(path, format string, args ...any) error {
	return &types.Error{Kind: types.ErrKindParse, Op: "decode", Path: path, Msg: fmt.Sprintf(format, args...)}
}

// decodeInto fills a composite v from k itself.
func decodeInto(k *regkey.Key, v reflect.Value, path string, multi bool) error {
	switch shapeOf(v.Type(), multi) {
	case shapeStruct:
		return decodeStruct(k, v, path)
	case shapeSeq:
		return decodeSeq(k, v, path)
	case shapeMap:
		return decodeMap(k, v, path)
	case shapeEnum:
		return decodeEnum(k, v, path)
	case shapeOption:
		if v.IsNil() {
			v.Set(reflect.New(v.Type().Elem()))
		}
		return decodeInto(k, v.Elem(), path, multi)
	case shapeScalar:
		return &types.Error{Kind: types.ErrKindNoFieldName, Op: "decode", Path: path, Msg: fmt.Sprintf("%v needs a name to be read from", v.Type())}
	default:
		return &types.Error{Kind: types.ErrKindNotImplemented, Op: "decode", Path: path, Msg: fmt.Sprintf("unsupported type %v", v.Type())}
	}
}

func decodeStruct(k *regkey.Key, v reflect.Value, path string) error {
	for _, f := range fieldsOf(v.Type()) {
		fv := v.FieldByIndex(f.index)
		fpath := fieldPath(path, f.goName)
		found, err := decodeEntry(k, f.name, fv, fpath, f.multi)
		if err != nil {
			return err
		}
		if !found && !f.omitEmpty && !nillable(f.typ) {
			return parseErr(fpath, "missing field %q", f.name)
		}
	}
	return nil
}

// nillable types may be absent from the store: options and enums.
func nillable(t reflect.Type) bool {
	return t.Kind() == reflect.Pointer || t.Kind() == reflect.Interface
}

// decodeEntry reads the entry name of k into v. found is false when the
// entry does not exist; v is then left alone, or set to nil for options
// and enums.
func decodeEntry(k *regkey.Key, name string, v reflect.Value, path string, multi bool) (found bool, err error) {
	switch shapeOf(v.Type(), multi) {
	case shapeScalar:
		rv, err := k.GetRawValue(name)
		if err != nil {
			if types.IsKind(err, types.ErrKindNotFound) {
				return false, nil
			}
			return false, decErr(path, err)
		}
		if err := decodeScalar(rv, v, multi); err != nil {
			return true, decErr(path, err)
		}
		return true, nil

	case shapeOption:
		elem := reflect.New(v.Type().Elem())
		found, err := decodeEntry(k, name, elem.Elem(), path, multi)
		if err != nil {
			return found, err
		}
		if found {
			v.Set(elem)
		} else {
			v.SetZero()
		}
		return found, nil

	case shapeStruct, shapeSeq, shapeMap, shapeEnum:
		if name == "" {
			return false, nil
		}
		child, err := k.OpenSubkey(name, types.KEY_READ)
		if err != nil {
			if types.IsKind(err, types.ErrKindNotFound) {
				if v.Kind() == reflect.Interface {
					v.SetZero()
				}
				return false, nil
			}
			return false, decErr(path, err)
		}
		defer child.Close()
		return true, decodeInto(child, v, path, multi)

	default:
		return false, &types.Error{Kind: types.ErrKindNotImplemented, Op: "decode", Path: path, Msg: fmt.Sprintf("unsupported type %v", v.Type())}
	}
}

// entryNames lists the names a composite child holds for elements of type
// elem: subkeys for composite elements, values otherwise.
func entryNames(k *regkey.Key, elem reflect.Type, path string) ([]string, error) {
	var names []string
	var err error
	if isComposite(elem, false) {
		names, err = k.SubkeyNames()
	} else {
		names, err = k.ValueNames()
	}
	if err != nil {
		return nil, decErr(path, err)
	}
	return names, nil
}

func decodeSeq(k *regkey.Key, v reflect.Value, path string) error {
	t := v.Type()
	names, err := entryNames(k, t.Elem(), path)
	if err != nil {
		return err
	}
	count := 0
	for _, name := range names {
		i, err := strconv.Atoi(name)
		if err != nil || i < 0 || strconv.Itoa(i) != name {
			return parseErr(path, "malformed sequence index %q", name)
		}
		count = max(count, i+1)
	}

	if t.Kind() == reflect.Array {
		if count != t.Len() {
			return parseErr(path, "sequence has %d entries, array holds %d", count, t.Len())
		}
	} else {
		v.Set(reflect.MakeSlice(t, count, count))
	}

	for i := range count {
		name := strconv.Itoa(i)
		ipath := fieldPath(path, name)
		found, err := decodeEntry(k, name, v.Index(i), ipath, false)
		if err != nil {
			return err
		}
		if !found && !nillable(t.Elem()) {
			return parseErr(ipath, "sequence entry %d is missing", i)
		}
	}
	return nil
}

func decodeMap(k *regkey.Key, v reflect.Value, path string) error {
	t := v.Type()
	names, err := entryNames(k, t.Elem(), path)
	if err != nil {
		return err
	}
	m := reflect.MakeMapWithSize(t, len(names))
	for _, name := range names {
		epath := fieldPath(path, name)
		key, err := parseMapKey(name, t.Key())
		if err != nil {
			return decErr(epath, err)
		}
		elem := reflect.New(t.Elem()).Elem()
		if _, err := decodeEntry(k, name, elem, epath, false); err != nil {
			return err
		}
		m.SetMapIndex(key, elem)
	}
	v.Set(m)
	return nil
}

func parseMapKey(name string, t reflect.Type) (reflect.Value, error) {
	if reflect.PointerTo(t).Implements(textUnmarshType) {
		key := reflect.New(t)
		if err := key.Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(name)); err != nil {
			return reflect.Value{}, &types.Error{Kind: types.ErrKindParse, Msg: "map key", Err: err}
		}
		return key.Elem(), nil
	}
	key := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.String:
		key.SetString(name)
	case reflect.Bool:
		b, err := strconv.ParseBool(name)
		if err != nil {
			return reflect.Value{}, &types.Error{Kind: types.ErrKindParse, Msg: "map key", Err: err}
		}
		key.SetBool(b)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		n, err := strconv.ParseInt(name, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, &types.Error{Kind: types.ErrKindParse, Msg: "map key", Err: err}
		}
		key.SetInt(n)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		n, err := strconv.ParseUint(name, 10, t.Bits())
		if err != nil {
			return reflect.Value{}, &types.Error{Kind: types.ErrKindParse, Msg: "map key", Err: err}
		}
		key.SetUint(n)
	default:
		return reflect.Value{}, types.Errorf(types.ErrKindNotImplemented, "unsupported map key type %v", t)
	}
	return key, nil
}

func decodeEnum(k *regkey.Key, v reflect.Value, path string) error {
	info := lookupEnum(v.Type())
	name, err := k.GetString(VariantKey)
	if err != nil {
		if types.IsKind(err, types.ErrKindNotFound) {
			return parseErr(path, "missing %s", VariantKey)
		}
		return decErr(path, err)
	}
	vt, ok := info.byName[name]
	if !ok {
		return parseErr(path, "unknown variant %q of %v", name, v.Type())
	}

	ptr := reflect.New(vt)
	target := ptr.Elem()
	for target.Kind() == reflect.Pointer {
		target.Set(reflect.New(target.Type().Elem()))
		target = target.Elem()
	}
	if shapeOf(target.Type(), false) == shapeStruct {
		if err := decodeStruct(k, target, path); err != nil {
			return err
		}
	} else {
		ipath := fieldPath(path, "0")
		found, err := decodeEntry(k, "0", target, ipath, false)
		if err != nil {
			return err
		}
		if !found {
			return parseErr(ipath, "variant %q has no payload", name)
		}
	}
	v.Set(ptr.Elem())
	return nil
}
