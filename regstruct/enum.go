package regstruct

import (
	"fmt"
	"reflect"
	"sync"
)

// VariantKey is the value naming the active variant inside an enum key.
const VariantKey = "$variant"

// Variant lets an enum variant choose its stored name. Without it the Go
// type name is used.
type Variant interface {
	RegVariant() string
}

type enumInfo struct {
	byName map[string]reflect.Type
	byType map[reflect.Type]string
}

var enums sync.Map // interface reflect.Type -> *enumInfo

// RegisterEnum declares the concrete types that may be stored in fields of
// interface type I. Like gob.Register it is meant for init time, and it
// panics if I is not an interface or two variants share a name.
//
//	type Shape interface{ Area() float64 }
//	func init() { regstruct.RegisterEnum[Shape](Circle{}, Square{}) }
func RegisterEnum[I any](variants ...I) {
	it := reflect.TypeFor[I]()
	if it.Kind() != reflect.Interface {
		panic(fmt.Sprintf("regstruct: RegisterEnum: %v is not an interface", it))
	}
	info := &enumInfo{
		byName: make(map[string]reflect.Type, len(variants)),
		byType: make(map[reflect.Type]string, len(variants)),
	}
	if prev := lookupEnum(it); prev != nil {
		for n, t := range prev.byName {
			info.byName[n] = t
			info.byType[t] = n
		}
	}
	for _, v := range variants {
		rv := reflect.ValueOf(v)
		if !rv.IsValid() {
			panic("regstruct: RegisterEnum: nil variant")
		}
		name := variantName(rv)
		if t, dup := info.byName[name]; dup && t != rv.Type() {
			panic(fmt.Sprintf("regstruct: RegisterEnum: variant name %q used by %v and %v", name, t, rv.Type()))
		}
		info.byName[name] = rv.Type()
		info.byType[rv.Type()] = name
	}
	enums.Store(it, info)
}

func lookupEnum(t reflect.Type) *enumInfo {
	if v, ok := enums.Load(t); ok {
		return v.(*enumInfo)
	}
	return nil
}

func variantName(v reflect.Value) string {
	if rv, ok := v.Interface().(Variant); ok {
		return rv.RegVariant()
	}
	t := v.Type()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}
