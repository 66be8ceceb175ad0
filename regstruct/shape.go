package regstruct

import (
	"encoding"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/values"
)

// shape is how a Go type maps onto the tree.
type shape int

const (
	shapeUnsupported shape = iota
	shapeScalar            // a value under the current key
	shapeStruct            // a child key holding the fields
	shapeSeq               // a child key holding entries "0".."n-1"
	shapeMap               // a child key holding one entry per map key
	shapeOption            // pointer; nil means absent
	shapeEnum              // registered interface; child key with $variant
)

var (
	timeType        = reflect.TypeFor[time.Time]()
	regValueType    = reflect.TypeFor[types.RegValue]()
	marshalerType   = reflect.TypeFor[values.Marshaler]()
	unmarshalerType = reflect.TypeFor[values.Unmarshaler]()
	textMarshType   = reflect.TypeFor[encoding.TextMarshaler]()
	textUnmarshType = reflect.TypeFor[encoding.TextUnmarshaler]()
)

// shapeOf classifies t. Custom marshalers win over structure so a struct
// with MarshalRegValue is stored as one value.
func shapeOf(t reflect.Type, multi bool) shape {
	switch {
	case t == regValueType, t == timeType:
		return shapeScalar
	case t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		(t.Implements(marshalerType) || reflect.PointerTo(t).Implements(unmarshalerType)):
		return shapeScalar
	case t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface &&
		(t.Implements(textMarshType) || reflect.PointerTo(t).Implements(textUnmarshType)):
		return shapeScalar
	}

	switch t.Kind() {
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64:
		return shapeScalar
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return shapeScalar
		}
		if multi && t.Elem().Kind() == reflect.String {
			return shapeScalar
		}
		return shapeSeq
	case reflect.Array:
		return shapeSeq
	case reflect.Struct:
		return shapeStruct
	case reflect.Map:
		return shapeMap
	case reflect.Pointer:
		return shapeOption
	case reflect.Interface:
		if lookupEnum(t) != nil {
			return shapeEnum
		}
		return shapeUnsupported
	default:
		// chan, func, complex, unsafe.Pointer
		return shapeUnsupported
	}
}

// isComposite reports whether t is stored as a child key rather than a
// value. Options take the shape of their element.
func isComposite(t reflect.Type, multi bool) bool {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	switch shapeOf(t, multi) {
	case shapeStruct, shapeSeq, shapeMap, shapeEnum:
		return true
	}
	return false
}

// -----------------------------------------------------------------------------
// Struct fields
// -----------------------------------------------------------------------------

type field struct {
	name      string
	goName    string
	index     []int
	typ       reflect.Type
	omitEmpty bool
	multi     bool
}

var fieldCache sync.Map // reflect.Type -> []field

func fieldsOf(t reflect.Type) []field {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]field)
	}
	f, _ := fieldCache.LoadOrStore(t, buildFields(t, nil))
	return f.([]field)
}

func buildFields(t reflect.Type, parent []int) []field {
	var out []field
	for i := range t.NumField() {
		sf := t.Field(i)
		tag, hasTag := sf.Tag.Lookup("reg")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		index := append(append([]int(nil), parent...), i)

		if sf.Anonymous && name == "" && sf.Type.Kind() == reflect.Struct && shapeOf(sf.Type, false) == shapeStruct {
			out = append(out, buildFields(sf.Type, index)...)
			continue
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		f := field{name: name, goName: sf.Name, index: index, typ: sf.Type}
		if hasTag {
			for opt := range strings.SplitSeq(opts, ",") {
				switch opt {
				case "omitempty":
					f.omitEmpty = true
				case "multi":
					f.multi = true
				}
			}
		}
		out = append(out, f)
	}
	return out
}
