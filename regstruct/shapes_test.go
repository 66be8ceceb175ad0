package regstruct

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store/memstore"
)

type Shape interface{ isShape() }

type Circle struct {
	Radius float64 `reg:"radius"`
}

type Square struct {
	Side uint32 `reg:"side"`
}

type Label string

func (Circle) isShape() {}
func (Square) isShape() {}
func (Label) isShape()  {}

func (Square) RegVariant() string { return "square" }

func init() {
	RegisterEnum[Shape](Circle{}, Square{}, Label(""))
}

type Drawing struct {
	Main   Shape   `reg:"main"`
	Layers []Shape `reg:"layers"`
	Spare  Shape   `reg:"spare"`
}

func TestEnum_RoundTrip(t *testing.T) {
	_, k := newRoot(t, nil)
	in := Drawing{
		Main:   Square{Side: 4},
		Layers: []Shape{Circle{Radius: 1.5}, Label("title")},
	}
	require.NoError(t, Marshal(k, &in))

	main, err := k.OpenSubkey("main", types.KEY_READ)
	require.NoError(t, err)
	defer main.Close()
	variant, err := main.GetString(VariantKey)
	require.NoError(t, err)
	assert.Equal(t, "square", variant)

	label, err := k.OpenSubkey(`layers\1`, types.KEY_READ)
	require.NoError(t, err)
	defer label.Close()
	variant, err = label.GetString(VariantKey)
	require.NoError(t, err)
	assert.Equal(t, "Label", variant)
	payload, err := label.GetString("0")
	require.NoError(t, err)
	assert.Equal(t, "title", payload)

	var out Drawing
	require.NoError(t, Unmarshal(k, &out))
	assert.Equal(t, in, out)
}

func TestEnum_Errors(t *testing.T) {
	_, k := newRoot(t, nil)
	main, _, err := k.CreateSubkey("main", types.KEY_ALL_ACCESS)
	require.NoError(t, err)
	defer main.Close()
	layers, _, err := k.CreateSubkey("layers", types.KEY_ALL_ACCESS)
	require.NoError(t, err)
	defer layers.Close()

	var out Drawing
	err = Unmarshal(k, &out)
	assert.ErrorIs(t, err, types.ErrParse, "missing $variant")

	require.NoError(t, main.SetString(VariantKey, "Triangle"))
	err = Unmarshal(k, &out)
	assert.ErrorIs(t, err, types.ErrParse)
	assert.Contains(t, err.Error(), "Triangle")

	type unregistered interface{ Foo() }
	err = Marshal(k, &struct{ X unregistered }{})
	assert.ErrorIs(t, err, types.ErrNotImplemented)
}

func TestMarshal_ReplacesStaleEntries(t *testing.T) {
	_, k := newRoot(t, nil)
	in := sampleConfig()
	require.NoError(t, Marshal(k, in))

	in.Servers = in.Servers[:1]
	in.Labels = map[string]string{"only": "one"}
	in.Proxy = nil
	in.Note = nil
	require.NoError(t, Marshal(k, in))

	servers, err := k.OpenSubkey("servers", types.KEY_READ)
	require.NoError(t, err)
	defer servers.Close()
	names, err := servers.SubkeyNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"0"}, names)

	_, err = k.OpenSubkey("proxy", types.KEY_READ)
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = k.GetRawValue("note")
	assert.ErrorIs(t, err, types.ErrNotFound)

	var out Config
	require.NoError(t, Unmarshal(k, &out))
	assert.Equal(t, map[string]string{"only": "one"}, out.Labels)
	assert.Nil(t, out.Proxy)
	assert.Nil(t, out.Note)
	assert.Len(t, out.Servers, 1)
}

func TestMarshal_OmitEmptyClearsOldValue(t *testing.T) {
	_, k := newRoot(t, nil)
	type counter struct {
		Name  string `reg:"name"`
		Count uint32 `reg:"count,omitempty"`
	}
	require.NoError(t, Marshal(k, counter{Name: "a", Count: 7}))
	require.NoError(t, Marshal(k, counter{Name: "a"}))

	_, err := k.GetRawValue("count")
	assert.ErrorIs(t, err, types.ErrNotFound)

	out := counter{Count: 99}
	require.NoError(t, Unmarshal(k, &out))
	assert.Equal(t, counter{Name: "a", Count: 99}, out, "absent omitempty field is left alone")

	var fresh counter
	require.NoError(t, Unmarshal(k, &fresh))
	assert.Equal(t, counter{Name: "a"}, fresh)
}

func TestMarshal_RootReplacesStaleEntries(t *testing.T) {
	_, k := newRoot(t, nil)

	require.NoError(t, Marshal(k, []uint32{1, 2, 3}))
	require.NoError(t, Marshal(k, []uint32{9}))
	var seq []uint32
	require.NoError(t, Unmarshal(k, &seq))
	assert.Equal(t, []uint32{9}, seq)

	require.NoError(t, Marshal(k, map[string]string{"a": "1", "b": "2"}))
	require.NoError(t, Marshal(k, map[string]string{"c": "3"}))
	var m map[string]string
	require.NoError(t, Unmarshal(k, &m))
	assert.Equal(t, map[string]string{"c": "3"}, m)

	var sh Shape = Square{Side: 2}
	require.NoError(t, Marshal(k, &sh))
	sh = Circle{Radius: 1}
	require.NoError(t, Marshal(k, &sh))
	_, err := k.GetRawValue("side")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestUnmarshal_AbsentEnumIsNil(t *testing.T) {
	_, k := newRoot(t, nil)
	require.NoError(t, Marshal(k, &Drawing{Main: Circle{Radius: 1}}))

	out := Drawing{Spare: Square{Side: 3}}
	require.NoError(t, Unmarshal(k, &out))
	assert.Equal(t, Circle{Radius: 1}, out.Main)
	assert.Nil(t, out.Spare)
}

func TestMarshal_Errors(t *testing.T) {
	_, k := newRoot(t, nil)

	err := Marshal(k, 42)
	assert.ErrorIs(t, err, types.ErrNoFieldName)

	err = Marshal(k, &struct{ C chan int }{})
	assert.ErrorIs(t, err, types.ErrNotImplemented)

	err = Marshal(k, &struct{ M map[[2]int]string }{M: map[[2]int]string{{1, 2}: "x"}})
	assert.ErrorIs(t, err, types.ErrNotImplemented)

	err = Marshal(k, &struct{ C complex128 }{})
	assert.ErrorIs(t, err, types.ErrNotImplemented)

	// nothing from the failed encodes was committed
	names, err := k.ValueNames()
	require.NoError(t, err)
	assert.Empty(t, names)
	keys, err := k.SubkeyNames()
	require.NoError(t, err)
	assert.Empty(t, keys)
}

func TestUnmarshal_Errors(t *testing.T) {
	_, k := newRoot(t, nil)

	type needsPort struct {
		Port uint32 `reg:"port"`
	}
	var np needsPort
	err := Unmarshal(k, &np)
	assert.ErrorIs(t, err, types.ErrParse, "missing required field")

	require.NoError(t, k.SetString("port", "80"))
	err = Unmarshal(k, &np)
	assert.ErrorIs(t, err, types.ErrTypeMismatch)
	assert.False(t, types.IsStoreFailure(err))
	var te *types.Error
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "Port", te.Path)

	type signed struct {
		N int16 `reg:"n"`
	}
	require.NoError(t, k.SetString("n", "70000"))
	var sg signed
	assert.ErrorIs(t, Unmarshal(k, &sg), types.ErrParse)

	type small struct {
		B uint8 `reg:"b"`
	}
	require.NoError(t, k.SetDWORD("b", 300))
	var sm small
	assert.ErrorIs(t, Unmarshal(k, &sm), types.ErrParse)

	assert.ErrorIs(t, Unmarshal(k, np), types.ErrNotImplemented)
}

func TestUnmarshal_Sequences(t *testing.T) {
	_, k := newRoot(t, nil)
	list, _, err := k.CreateSubkey("list", types.KEY_ALL_ACCESS)
	require.NoError(t, err)
	defer list.Close()
	require.NoError(t, list.SetString("0", "a"))
	require.NoError(t, list.SetString("2", "c"))

	var plain struct {
		List []string `reg:"list"`
	}
	assert.ErrorIs(t, Unmarshal(k, &plain), types.ErrParse, "gap in a plain sequence")

	var opt struct {
		List []*string `reg:"list"`
	}
	require.NoError(t, Unmarshal(k, &opt))
	require.Len(t, opt.List, 3)
	assert.Equal(t, "a", *opt.List[0])
	assert.Nil(t, opt.List[1])
	assert.Equal(t, "c", *opt.List[2])

	var arr struct {
		List [2]*string `reg:"list"`
	}
	assert.ErrorIs(t, Unmarshal(k, &arr), types.ErrParse, "array length mismatch")

	require.NoError(t, list.SetString("x", "bad"))
	assert.ErrorIs(t, Unmarshal(k, &opt), types.ErrParse, "non-numeric index")
}

func TestRootShapes(t *testing.T) {
	_, k := newRoot(t, nil)

	require.NoError(t, Marshal(k, map[string]uint32{"a": 1, "b": 2}))
	var m map[string]uint32
	require.NoError(t, Unmarshal(k, &m))
	assert.Equal(t, map[string]uint32{"a": 1, "b": 2}, m)

	var s Shape = Circle{Radius: 2}
	require.NoError(t, Marshal(k, &s))
	var back Shape
	require.NoError(t, Unmarshal(k, &back))
	assert.Equal(t, Circle{Radius: 2}, back)

	var n uint32
	assert.ErrorIs(t, Unmarshal(k, &n), types.ErrNoFieldName)
}

func TestEncoder_Transactions(t *testing.T) {
	_, k := newRoot(t, nil)

	e, err := NewEncoder(k, EncodeOptions{})
	require.NoError(t, err)
	require.NoError(t, e.Encode(&Server{Host: "h", Port: 1}))
	_, err = k.GetRawValue("host")
	assert.ErrorIs(t, err, types.ErrNotFound, "visible before commit")
	require.NoError(t, e.Close())
	_, err = k.GetRawValue("host")
	assert.ErrorIs(t, err, types.ErrNotFound, "close must roll back")

	e, err = NewEncoder(k, EncodeOptions{})
	require.NoError(t, err)
	require.NoError(t, e.Encode(&Server{Host: "h", Port: 1}))
	require.NoError(t, e.Commit())
	require.NoError(t, e.Close())
	assert.ErrorIs(t, e.Encode(&Server{}), types.ErrClosed)
	host, err := k.GetString("host")
	require.NoError(t, err)
	assert.Equal(t, "h", host)
}

func TestEncoder_Untransacted(t *testing.T) {
	_, k := newRoot(t, &memstore.Options{DisableTransactions: true})

	err := Marshal(k, &Server{Host: "h"})
	assert.ErrorIs(t, err, types.ErrTransactionUnsupported)

	e, err := NewEncoder(k, EncodeOptions{Untransacted: true})
	require.NoError(t, err)
	defer e.Close()
	require.NoError(t, e.Encode(&Server{Host: "h", Port: 2}))
	port, err := k.GetDWORD("port")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), port)
	require.NoError(t, e.Commit())
}

func TestMarshal_StoreFailure(t *testing.T) {
	reg, _ := newRoot(t, &memstore.Options{Protected: []string{`HKLM\SYSTEM`}})
	sys := reg.Predef(types.HKEY_LOCAL_MACHINE)
	locked, err := sys.OpenSubkey("SYSTEM", types.KEY_READ)
	require.NoError(t, err)
	defer locked.Close()

	err = Marshal(locked, &Server{Host: "h"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrPermissionDenied)
	assert.True(t, types.IsStoreFailure(err))
}
