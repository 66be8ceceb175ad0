package regstruct

import (
	"encoding"
	"reflect"
	"strconv"
	"time"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/values"
)

func encodeScalar(v reflect.Value, multi bool) (types.RegValue, error) {
	t := v.Type()
	switch {
	case t == regValueType:
		return v.Interface().(types.RegValue).Clone(), nil
	case t == timeType:
		return values.QWORD.Encode(timeToFiletime(v.Interface().(time.Time)))
	case t.Implements(marshalerType):
		return v.Interface().(values.Marshaler).MarshalRegValue()
	case t.Implements(textMarshType):
		text, err := v.Interface().(encoding.TextMarshaler).MarshalText()
		if err != nil {
			return types.RegValue{}, err
		}
		return values.String.Encode(string(text))
	}

	switch t.Kind() {
	case reflect.Bool:
		return values.Bool.Encode(v.Bool())
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		return values.DWORD.Encode(uint32(v.Uint()))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		return values.QWORD.Encode(v.Uint())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return values.String.Encode(strconv.FormatInt(v.Int(), 10))
	case reflect.Float32, reflect.Float64:
		return values.String.Encode(strconv.FormatFloat(v.Float(), 'g', -1, t.Bits()))
	case reflect.String:
		return values.String.Encode(v.String())
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return values.Binary.Encode(v.Bytes())
		}
		if multi && t.Elem().Kind() == reflect.String {
			ss := make([]string, v.Len())
			for i := range ss {
				ss[i] = v.Index(i).String()
			}
			return values.MultiString.Encode(ss)
		}
	}
	return types.RegValue{}, types.Errorf(types.ErrKindNotImplemented, "no registry value form for %v", t)
}

// decodeScalar stores rv into v, which must be settable.
func decodeScalar(rv types.RegValue, v reflect.Value, multi bool) error {
	t := v.Type()
	switch {
	case t == regValueType:
		v.Set(reflect.ValueOf(rv.Clone()))
		return nil
	case t == timeType:
		ft, err := values.QWORD.Decode(rv)
		if err != nil {
			return err
		}
		v.Set(reflect.ValueOf(filetimeToTime(ft)))
		return nil
	case reflect.PointerTo(t).Implements(unmarshalerType):
		return v.Addr().Interface().(values.Unmarshaler).UnmarshalRegValue(rv)
	case reflect.PointerTo(t).Implements(textUnmarshType):
		s, err := values.String.Decode(rv)
		if err != nil {
			return err
		}
		if err := v.Addr().Interface().(encoding.TextUnmarshaler).UnmarshalText([]byte(s)); err != nil {
			return &types.Error{Kind: types.ErrKindParse, Msg: "unmarshal text", Err: err}
		}
		return nil
	}

	switch t.Kind() {
	case reflect.Bool:
		b, err := values.Bool.Decode(rv)
		if err != nil {
			return err
		}
		v.SetBool(b)
	case reflect.Uint8, reflect.Uint16, reflect.Uint32:
		n, err := values.DWORD.Decode(rv)
		if err != nil {
			return err
		}
		if v.OverflowUint(uint64(n)) {
			return types.Errorf(types.ErrKindParse, "%d overflows %v", n, t)
		}
		v.SetUint(uint64(n))
	case reflect.Uint, reflect.Uint64, reflect.Uintptr:
		n, err := values.QWORD.Decode(rv)
		if err != nil {
			return err
		}
		if v.OverflowUint(n) {
			return types.Errorf(types.ErrKindParse, "%d overflows %v", n, t)
		}
		v.SetUint(n)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		s, err := values.String.Decode(rv)
		if err != nil {
			return err
		}
		n, err := strconv.ParseInt(s, 10, t.Bits())
		if err != nil {
			return &types.Error{Kind: types.ErrKindParse, Msg: "parse integer", Err: err}
		}
		v.SetInt(n)
	case reflect.Float32, reflect.Float64:
		s, err := values.String.Decode(rv)
		if err != nil {
			return err
		}
		f, err := strconv.ParseFloat(s, t.Bits())
		if err != nil {
			return &types.Error{Kind: types.ErrKindParse, Msg: "parse float", Err: err}
		}
		v.SetFloat(f)
	case reflect.String:
		s, err := values.String.Decode(rv)
		if err != nil {
			return err
		}
		v.SetString(s)
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			b, err := values.Binary.Decode(rv)
			if err != nil {
				return err
			}
			v.SetBytes(b)
			return nil
		}
		if multi && t.Elem().Kind() == reflect.String {
			ss, err := values.MultiString.Decode(rv)
			if err != nil {
				return err
			}
			out := reflect.MakeSlice(t, len(ss), len(ss))
			for i, s := range ss {
				out.Index(i).SetString(s)
			}
			v.Set(out)
			return nil
		}
		return types.Errorf(types.ErrKindNotImplemented, "no registry value form for %v", t)
	default:
		return types.Errorf(types.ErrKindNotImplemented, "no registry value form for %v", t)
	}
	return nil
}

// The zero time is stored as FILETIME 0 so it survives a round trip.
func timeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return format.TimeToFiletime(t)
}

func filetimeToTime(ft uint64) time.Time {
	if ft == 0 {
		return time.Time{}
	}
	return format.FiletimeToTime(ft)
}
