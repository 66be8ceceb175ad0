package regstruct

import (
	"net/netip"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/regkey"
	"github.com/joshuapare/regkit/store/memstore"
)

type Server struct {
	Host string `reg:"host"`
	Port uint16 `reg:"port"`
}

type Common struct {
	Owner string
}

type Config struct {
	Common

	Name     string            `reg:"name"`
	Enabled  bool              `reg:"enabled"`
	Retries  uint8             `reg:"retries"`
	MaxBytes uint64            `reg:"max_bytes"`
	Offset   int32             `reg:"offset"`
	Ratio    float64           `reg:"ratio"`
	Blob     []byte            `reg:"blob"`
	Paths    []string          `reg:"paths,multi"`
	Tags     []string          `reg:"tags"`
	Servers  []Server          `reg:"servers"`
	Labels   map[string]string `reg:"labels"`
	Limits   map[int]uint32    `reg:"limits"`
	Primary  Server            `reg:"primary"`
	Proxy    *Server           `reg:"proxy"`
	Note     *string           `reg:"note"`
	Created  time.Time         `reg:"created"`
	Addr     netip.Addr        `reg:"addr"`
	Extra    string            `reg:"extra,omitempty"`
	Secret   string            `reg:"-"`
}

func newRoot(t *testing.T, opts *memstore.Options) (*regkey.Registry, *regkey.Key) {
	t.Helper()
	s, err := memstore.New(opts)
	require.NoError(t, err)
	reg := regkey.New(s)
	k, _, err := reg.Predef(types.HKEY_CURRENT_USER).CreateSubkey(`Software\Test`, types.KEY_ALL_ACCESS)
	require.NoError(t, err)
	t.Cleanup(func() { k.Close() })
	return reg, k
}

func sampleConfig() Config {
	note := "hello"
	return Config{
		Common:   Common{Owner: "ops"},
		Name:     "svc",
		Enabled:  true,
		Retries:  3,
		MaxBytes: 1 << 40,
		Offset:   -12,
		Ratio:    0.25,
		Blob:     []byte{0xde, 0xad},
		Paths:    []string{`C:\a`, `C:\b`},
		Tags:     []string{"x", "y", "z"},
		Servers:  []Server{{Host: "a", Port: 80}, {Host: "b", Port: 443}},
		Labels:   map[string]string{"env": "prod", "tier": "web"},
		Limits:   map[int]uint32{-1: 5, 10: 20},
		Primary:  Server{Host: "p", Port: 8080},
		Proxy:    &Server{Host: "proxy", Port: 3128},
		Note:     &note,
		Created:  time.Date(2024, 5, 1, 12, 30, 0, 0, time.UTC),
		Addr:     netip.MustParseAddr("10.0.0.1"),
		Secret:   "never stored",
	}
}

func TestMarshal_RoundTrip(t *testing.T) {
	_, k := newRoot(t, nil)
	in := sampleConfig()
	require.NoError(t, Marshal(k, &in))

	var out Config
	require.NoError(t, Unmarshal(k, &out))

	assert.True(t, in.Created.Equal(out.Created))
	out.Created = in.Created
	in.Secret = ""
	assert.Equal(t, in, out)
}

func TestMarshal_Layout(t *testing.T) {
	_, k := newRoot(t, nil)
	in := sampleConfig()
	require.NoError(t, Marshal(k, in))

	owner, err := k.GetString("Owner")
	require.NoError(t, err)
	assert.Equal(t, "ops", owner)

	raw, err := k.GetRawValue("retries")
	require.NoError(t, err)
	assert.Equal(t, types.REG_DWORD, raw.Type)

	raw, err = k.GetRawValue("max_bytes")
	require.NoError(t, err)
	assert.Equal(t, types.REG_QWORD, raw.Type)

	s, err := k.GetString("offset")
	require.NoError(t, err)
	assert.Equal(t, "-12", s)

	paths, err := k.GetStrings("paths")
	require.NoError(t, err)
	assert.Equal(t, in.Paths, paths)

	addr, err := k.GetString("addr")
	require.NoError(t, err)
	assert.Equal(t, "10.0.0.1", addr)

	servers, err := k.OpenSubkey("servers", types.KEY_READ)
	require.NoError(t, err)
	defer servers.Close()
	names, err := servers.SubkeyNames()
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, names)
	second, err := servers.OpenSubkey("1", types.KEY_READ)
	require.NoError(t, err)
	defer second.Close()
	host, err := second.GetString("host")
	require.NoError(t, err)
	assert.Equal(t, "b", host)
	port, err := second.GetDWORD("port")
	require.NoError(t, err)
	assert.Equal(t, uint32(443), port)

	_, err = k.GetRawValue("Secret")
	assert.ErrorIs(t, err, types.ErrNotFound)
	_, err = k.GetRawValue("extra")
	assert.ErrorIs(t, err, types.ErrNotFound)
}
