package values

import (
	"github.com/joshuapare/regkit/pkg/types"
)

// Marshaler is implemented by types that know their own registry form.
type Marshaler interface {
	MarshalRegValue() (types.RegValue, error)
}

// Unmarshaler is implemented by types that can rebuild themselves from a
// registry value. UnmarshalRegValue must copy v.Bytes if it keeps them.
type Unmarshaler interface {
	UnmarshalRegValue(v types.RegValue) error
}

// DecodeInto decodes v into the value dst points to. Supported targets are
// *string, *ExpandString, *[]string, *uint32, *uint64, *bool, *[]byte,
// *types.RegValue and any Unmarshaler.
func DecodeInto(v types.RegValue, dst any) error {
	var err error
	switch d := dst.(type) {
	case Unmarshaler:
		return d.UnmarshalRegValue(v)
	case *string:
		*d, err = String.Decode(v)
	case *ExpandString:
		*d, err = Expand.Decode(v)
	case *[]string:
		*d, err = MultiString.Decode(v)
	case *uint32:
		*d, err = DWORD.Decode(v)
	case *uint64:
		*d, err = QWORD.Decode(v)
	case *bool:
		*d, err = Bool.Decode(v)
	case *[]byte:
		*d, err = Binary.Decode(v)
	case *types.RegValue:
		*d = v.Clone()
	default:
		return types.Errorf(types.ErrKindNotImplemented, "decode into %T", dst)
	}
	return err
}

// Encode converts x to its registry form. Supported sources are string,
// ExpandString, []string, uint32, uint64, bool, []byte, types.RegValue and any
// Marshaler.
func Encode(x any) (types.RegValue, error) {
	switch v := x.(type) {
	case Marshaler:
		return v.MarshalRegValue()
	case string:
		return String.Encode(v)
	case ExpandString:
		return Expand.Encode(v)
	case []string:
		return MultiString.Encode(v)
	case uint32:
		return DWORD.Encode(v)
	case uint64:
		return QWORD.Encode(v)
	case bool:
		return Bool.Encode(v)
	case []byte:
		return Binary.Encode(v)
	case types.RegValue:
		return v.Clone(), nil
	case nil:
		return types.RegValue{}, types.Errorf(types.ErrKindNotImplemented, "encode nil")
	default:
		return types.RegValue{}, types.Errorf(types.ErrKindNotImplemented, "encode %T", x)
	}
}
