package regkey

import (
	"fmt"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/values"
)

// -----------------------------------------------------------------------------
// Raw values
// -----------------------------------------------------------------------------

// GetRawValue reads a value with its type tag. The empty name is the key's
// default value.
func (k *Key) GetRawValue(name string) (types.RegValue, error) {
	h, err := k.handle("get value")
	if err != nil {
		return types.RegValue{}, err
	}
	v, err := k.reg.backend.QueryValue(h, name)
	if err != nil {
		return types.RegValue{}, k.valueErr("get value", name, err)
	}
	return v, nil
}

// SetRawValue writes v under name, replacing any existing value.
func (k *Key) SetRawValue(name string, v types.RegValue) error {
	h, err := k.handle("set value")
	if err != nil {
		return err
	}
	if len(v.Bytes) > types.MaxValueSize {
		return &types.Error{Kind: types.ErrKindMalformedValue, Op: "set value", Path: k.path,
			Msg: fmt.Sprintf("value %q: %d bytes exceeds %d", name, len(v.Bytes), types.MaxValueSize)}
	}
	if err := k.reg.backend.SetValue(h, name, v); err != nil {
		return k.valueErr("set value", name, err)
	}
	return nil
}

// DeleteValue removes a value. A missing value is ErrKindNotFound.
func (k *Key) DeleteValue(name string) error {
	h, err := k.handle("delete value")
	if err != nil {
		return err
	}
	if err := k.reg.backend.DeleteValue(h, name); err != nil {
		return k.valueErr("delete value", name, err)
	}
	return nil
}

func (k *Key) valueErr(op, name string, err error) error {
	return &types.Error{
		Kind: types.KindOf(err),
		Op:   op,
		Path: k.path,
		Msg:  fmt.Sprintf("value %q", name),
		Err:  err,
	}
}

// -----------------------------------------------------------------------------
// Typed values
// -----------------------------------------------------------------------------

// GetValue reads name and decodes it into dst, which must be one of the
// pointer types values.DecodeInto accepts.
func (k *Key) GetValue(name string, dst any) error {
	v, err := k.GetRawValue(name)
	if err != nil {
		return err
	}
	if err := values.DecodeInto(v, dst); err != nil {
		return k.valueErr("get value", name, err)
	}
	return nil
}

// SetValue encodes v with values.Encode and writes it under name.
func (k *Key) SetValue(name string, v any) error {
	rv, err := values.Encode(v)
	if err != nil {
		return k.valueErr("set value", name, err)
	}
	return k.SetRawValue(name, rv)
}

// Get reads name from k and decodes it with c.
func Get[T any](k *Key, name string, c values.Codec[T]) (T, error) {
	var zero T
	v, err := k.GetRawValue(name)
	if err != nil {
		return zero, err
	}
	x, err := c.Decode(v)
	if err != nil {
		return zero, k.valueErr("get value", name, err)
	}
	return x, nil
}

// Set encodes x with c and writes it under name.
func Set[T any](k *Key, name string, c values.Codec[T], x T) error {
	v, err := c.Encode(x)
	if err != nil {
		return k.valueErr("set value", name, err)
	}
	return k.SetRawValue(name, v)
}

func (k *Key) GetString(name string) (string, error) { return Get(k, name, values.String) }

// GetExpandedString reads a string value and, when it is REG_EXPAND_SZ,
// resolves its %VAR% references against the environment.
func (k *Key) GetExpandedString(name string) (string, error) {
	v, err := k.GetRawValue(name)
	if err != nil {
		return "", err
	}
	s, err := values.String.Decode(v)
	if err != nil {
		return "", k.valueErr("get value", name, err)
	}
	if v.Type == types.REG_EXPAND_SZ {
		s = values.ExpandEnvironment(s)
	}
	return s, nil
}

func (k *Key) GetStrings(name string) ([]string, error) { return Get(k, name, values.MultiString) }
func (k *Key) GetDWORD(name string) (uint32, error)     { return Get(k, name, values.DWORD) }
func (k *Key) GetQWORD(name string) (uint64, error)     { return Get(k, name, values.QWORD) }
func (k *Key) GetBinary(name string) ([]byte, error)    { return Get(k, name, values.Binary) }

func (k *Key) SetString(name, s string) error { return Set(k, name, values.String, s) }

// SetExpandString stores s as REG_EXPAND_SZ without expanding it.
func (k *Key) SetExpandString(name, s string) error {
	return Set(k, name, values.Expand, values.ExpandString(s))
}

func (k *Key) SetStrings(name string, ss []string) error { return Set(k, name, values.MultiString, ss) }
func (k *Key) SetDWORD(name string, x uint32) error      { return Set(k, name, values.DWORD, x) }
func (k *Key) SetQWORD(name string, x uint64) error      { return Set(k, name, values.QWORD, x) }
func (k *Key) SetBinary(name string, b []byte) error     { return Set(k, name, values.Binary, b) }
