// Package values converts between raw registry payloads and Go values.
//
// A Codec[T] pairs a decoder and an encoder for one Go type. The built-in
// codecs check the type tag first and the payload shape second, so a caller
// can tell "this is not a DWORD" (ErrKindTypeMismatch) from "this DWORD is
// three bytes long" (ErrKindMalformedValue):
//
//	v, _ := k.GetRawValue("Timeout")
//	n, err := values.DWORD.Decode(v)
//
// Types outside the built-in set join through the Marshaler and Unmarshaler
// interfaces; DecodeInto and Encode dispatch dynamically over both.
package values

import (
	"fmt"
	"strings"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/pkg/types"
)

// Codec converts between a RegValue and T.
type Codec[T any] interface {
	Decode(v types.RegValue) (T, error)
	Encode(x T) (types.RegValue, error)
}

// ExpandString is text stored as REG_EXPAND_SZ. Use ExpandEnvironment to
// resolve its %VAR% references.
type ExpandString string

// Built-in codecs.
var (
	// String decodes REG_SZ, REG_EXPAND_SZ and REG_MULTI_SZ (entries joined
	// by "\n"); it encodes REG_SZ.
	String Codec[string] = stringCodec{}

	// Expand round-trips REG_EXPAND_SZ without expanding it.
	Expand Codec[ExpandString] = expandCodec{}

	// MultiString round-trips REG_MULTI_SZ and requires the final terminator.
	MultiString Codec[[]string] = multiCodec{strict: true}

	// MultiStringLenient accepts REG_MULTI_SZ payloads missing their final
	// terminator, as some installers write them.
	MultiStringLenient Codec[[]string] = multiCodec{}

	// Bool is a REG_DWORD holding 0 or 1; any non-zero value decodes true.
	Bool Codec[bool] = boolCodec{}

	DWORD          Codec[uint32]         = dwordCodec{}
	QWORD          Codec[uint64]         = qwordCodec{}
	DWORDBigEndian Codec[uint32]         = dwordBECodec{}
	Binary         Codec[[]byte]         = binaryCodec{}
	Raw            Codec[types.RegValue] = rawCodec{}
)

func mismatch(got types.RegType, want ...types.RegType) error {
	names := make([]string, len(want))
	for i, w := range want {
		names[i] = w.String()
	}
	return types.Errorf(types.ErrKindTypeMismatch, "have %s, want %s", got, strings.Join(names, " or "))
}

func malformed(t types.RegType, msg string, args ...any) error {
	return &types.Error{Kind: types.ErrKindMalformedValue, Msg: t.String() + ": " + fmt.Sprintf(msg, args...)}
}

func malformedErr(t types.RegType, err error) error {
	return &types.Error{Kind: types.ErrKindMalformedValue, Msg: t.String(), Err: err}
}

// -----------------------------------------------------------------------------
// Text
// -----------------------------------------------------------------------------

type stringCodec struct{}

func (stringCodec) Decode(v types.RegValue) (string, error) {
	switch v.Type {
	case types.REG_SZ, types.REG_EXPAND_SZ:
		s, err := format.DecodeUTF16(v.Bytes)
		if err != nil {
			return "", malformedErr(v.Type, err)
		}
		return s, nil
	case types.REG_MULTI_SZ:
		parts, err := format.DecodeMultiString(v.Bytes, false)
		if err != nil {
			return "", malformedErr(v.Type, err)
		}
		return strings.Join(parts, "\n"), nil
	default:
		return "", mismatch(v.Type, types.REG_SZ, types.REG_EXPAND_SZ, types.REG_MULTI_SZ)
	}
}

func (stringCodec) Encode(s string) (types.RegValue, error) {
	return encodeText(s, types.REG_SZ)
}

func encodeText(s string, t types.RegType) (types.RegValue, error) {
	b, err := format.EncodeUTF16(s)
	if err != nil {
		return types.RegValue{}, malformedErr(t, err)
	}
	return types.RegValue{Bytes: b, Type: t}, nil
}

type expandCodec struct{}

func (expandCodec) Decode(v types.RegValue) (ExpandString, error) {
	if v.Type != types.REG_EXPAND_SZ {
		return "", mismatch(v.Type, types.REG_EXPAND_SZ)
	}
	s, err := format.DecodeUTF16(v.Bytes)
	if err != nil {
		return "", malformedErr(v.Type, err)
	}
	return ExpandString(s), nil
}

func (expandCodec) Encode(s ExpandString) (types.RegValue, error) {
	return encodeText(string(s), types.REG_EXPAND_SZ)
}

type multiCodec struct{ strict bool }

func (c multiCodec) Decode(v types.RegValue) ([]string, error) {
	if v.Type != types.REG_MULTI_SZ {
		return nil, mismatch(v.Type, types.REG_MULTI_SZ)
	}
	parts, err := format.DecodeMultiString(v.Bytes, c.strict)
	if err != nil {
		return nil, malformedErr(v.Type, err)
	}
	return parts, nil
}

func (multiCodec) Encode(ss []string) (types.RegValue, error) {
	for i, s := range ss {
		// an embedded NUL would split the entry on the way back
		if strings.IndexByte(s, 0) >= 0 {
			return types.RegValue{}, malformed(types.REG_MULTI_SZ, "entry %d contains NUL", i)
		}
	}
	// trailing empty entries merge into the terminator and read back as nothing
	if n := len(ss); n > 0 && ss[n-1] == "" {
		return types.RegValue{}, malformed(types.REG_MULTI_SZ, "entry %d is empty and last", n-1)
	}
	b, err := format.EncodeMultiString(ss)
	if err != nil {
		return types.RegValue{}, malformedErr(types.REG_MULTI_SZ, err)
	}
	return types.RegValue{Bytes: b, Type: types.REG_MULTI_SZ}, nil
}

// -----------------------------------------------------------------------------
// Integers
// -----------------------------------------------------------------------------

type dwordCodec struct{}

func (dwordCodec) Decode(v types.RegValue) (uint32, error) {
	if v.Type != types.REG_DWORD {
		return 0, mismatch(v.Type, types.REG_DWORD)
	}
	if len(v.Bytes) != format.DWORDSize {
		return 0, malformed(v.Type, "length %d, want %d", len(v.Bytes), format.DWORDSize)
	}
	return format.ReadU32(v.Bytes, 0), nil
}

func (dwordCodec) Encode(x uint32) (types.RegValue, error) {
	return types.RegValue{Bytes: format.DWORDBytes(x), Type: types.REG_DWORD}, nil
}

type qwordCodec struct{}

func (qwordCodec) Decode(v types.RegValue) (uint64, error) {
	if v.Type != types.REG_QWORD {
		return 0, mismatch(v.Type, types.REG_QWORD)
	}
	if len(v.Bytes) != format.QWORDSize {
		return 0, malformed(v.Type, "length %d, want %d", len(v.Bytes), format.QWORDSize)
	}
	return format.ReadU64(v.Bytes, 0), nil
}

func (qwordCodec) Encode(x uint64) (types.RegValue, error) {
	return types.RegValue{Bytes: format.QWORDBytes(x), Type: types.REG_QWORD}, nil
}

type dwordBECodec struct{}

func (dwordBECodec) Decode(v types.RegValue) (uint32, error) {
	if v.Type != types.REG_DWORD_BIG_ENDIAN {
		return 0, mismatch(v.Type, types.REG_DWORD_BIG_ENDIAN)
	}
	if len(v.Bytes) != format.DWORDSize {
		return 0, malformed(v.Type, "length %d, want %d", len(v.Bytes), format.DWORDSize)
	}
	return format.ReadU32BE(v.Bytes, 0), nil
}

func (dwordBECodec) Encode(x uint32) (types.RegValue, error) {
	b := make([]byte, format.DWORDSize)
	format.PutU32BE(b, 0, x)
	return types.RegValue{Bytes: b, Type: types.REG_DWORD_BIG_ENDIAN}, nil
}

type boolCodec struct{}

func (boolCodec) Decode(v types.RegValue) (bool, error) {
	n, err := DWORD.Decode(v)
	return n != 0, err
}

func (boolCodec) Encode(b bool) (types.RegValue, error) {
	var n uint32
	if b {
		n = 1
	}
	return DWORD.Encode(n)
}

// -----------------------------------------------------------------------------
// Bytes
// -----------------------------------------------------------------------------

type binaryCodec struct{}

func (binaryCodec) Decode(v types.RegValue) ([]byte, error) {
	if v.Type != types.REG_BINARY {
		return nil, mismatch(v.Type, types.REG_BINARY)
	}
	return append([]byte{}, v.Bytes...), nil
}

func (binaryCodec) Encode(b []byte) (types.RegValue, error) {
	return types.RegValue{Bytes: append([]byte{}, b...), Type: types.REG_BINARY}, nil
}

type rawCodec struct{}

func (rawCodec) Decode(v types.RegValue) (types.RegValue, error) { return v.Clone(), nil }
func (rawCodec) Encode(v types.RegValue) (types.RegValue, error) { return v.Clone(), nil }
