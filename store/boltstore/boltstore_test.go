package boltstore

import (
	"bytes"
	"crypto/rand"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
	"github.com/joshuapare/regkit/store/memstore"
)

var hkcu = store.PredefHandle(types.HKEY_CURRENT_USER)

func openStore(t *testing.T, path string, opts Options) *Store {
	t.Helper()
	s, err := OpenStore(path, opts, nil)
	require.NoError(t, err)
	return s
}

func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.db")

	s := openStore(t, path, DefaultOptions())
	h, _, err := s.CreateKey(hkcu, `Software\Vendor\App`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(h, "second", types.RegValue{Bytes: []byte{2, 0, 0, 0}, Type: types.REG_DWORD}))
	require.NoError(t, s.SetValue(h, "First", types.RegValue{Bytes: []byte{'a', 0, 0, 0}, Type: types.REG_SZ}))
	require.NoError(t, s.SetValue(h, "second", types.RegValue{Bytes: []byte{3, 0, 0, 0}, Type: types.REG_DWORD}))
	_, _, err = s.CreateKey(hkcu, `Software\Vendor\Other`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	require.NoError(t, s.DeleteKey(hkcu, `Software\Vendor\Other`, store.NoTx))
	require.NoError(t, s.Close())

	s = openStore(t, path, DefaultOptions())
	defer s.Close()

	h, err = s.OpenKey(hkcu, `software\vendor\app`, types.KEY_READ, store.NoTx)
	require.NoError(t, err)

	name, v, err := s.EnumValue(h, 0)
	require.NoError(t, err)
	assert.Equal(t, "second", name)
	assert.Equal(t, []byte{3, 0, 0, 0}, v.Bytes)

	name, _, err = s.EnumValue(h, 1)
	require.NoError(t, err)
	assert.Equal(t, "First", name)

	_, err = s.OpenKey(hkcu, `Software\Vendor\Other`, types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)

	vh, err := s.OpenKey(hkcu, `Software\Vendor`, types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	sub, err := s.EnumKey(vh, 0)
	require.NoError(t, err)
	assert.Equal(t, "App", sub)
}

func TestStore_LargeValuesRoundTrip(t *testing.T) {
	compressible := bytes.Repeat([]byte("registry"), 4096)
	random := make([]byte, 8192)
	_, err := rand.Read(random)
	require.NoError(t, err)

	for _, c := range []Compression{CompressionZSTD, CompressionLZ4} {
		t.Run(c.String(), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "reg.db")
			s := openStore(t, path, Options{Compression: c})
			h, _, err := s.CreateKey(hkcu, "Big", types.KEY_ALL_ACCESS, store.NoTx)
			require.NoError(t, err)
			require.NoError(t, s.SetValue(h, "text", types.RegValue{Bytes: compressible, Type: types.REG_BINARY}))
			require.NoError(t, s.SetValue(h, "noise", types.RegValue{Bytes: random, Type: types.REG_BINARY}))
			require.NoError(t, s.Close())

			s = openStore(t, path, Options{Compression: c})
			defer s.Close()
			h, err = s.OpenKey(hkcu, "Big", types.KEY_READ, store.NoTx)
			require.NoError(t, err)

			v, err := s.QueryValue(h, "text")
			require.NoError(t, err)
			assert.Equal(t, compressible, v.Bytes)

			v, err = s.QueryValue(h, "noise")
			require.NoError(t, err)
			assert.Equal(t, random, v.Bytes)
		})
	}
}

func TestStore_TransactionPersistsAsOneBatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "reg.db")
	s := openStore(t, path, DefaultOptions())

	tx, err := s.BeginTx()
	require.NoError(t, err)
	h, _, err := s.CreateKey(hkcu, `Tx\A`, types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(h, "x", types.RegValue{Bytes: []byte{1, 0, 0, 0}, Type: types.REG_DWORD}))

	require.NoError(t, s.CommitTx(tx))
	require.NoError(t, s.CloseTx(tx))

	tx2, err := s.BeginTx()
	require.NoError(t, err)
	_, _, err = s.CreateKey(hkcu, `Tx\Never`, types.KEY_ALL_ACCESS, tx2)
	require.NoError(t, err)
	require.NoError(t, s.RollbackTx(tx2))
	require.NoError(t, s.Close())

	s = openStore(t, path, DefaultOptions())
	defer s.Close()
	_, err = s.OpenKey(hkcu, `Tx\A`, types.KEY_READ, store.NoTx)
	assert.NoError(t, err)
	_, err = s.OpenKey(hkcu, `Tx\Never`, types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)
}

func TestDB_ApplyRejectsMissingKey(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "reg.db"), DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	err = db.Apply(memstore.Batch{
		Ops:  []types.EditOp{types.OpSetValue{Path: `HKEY_CURRENT_USER\Missing`, Name: "v", Type: types.REG_SZ}},
		Time: time.Now(),
	})
	assert.Error(t, err)
}

func TestDB_LoadKeepsLastWrite(t *testing.T) {
	db, err := Open(filepath.Join(t.TempDir(), "reg.db"), DefaultOptions())
	require.NoError(t, err)
	defer db.Close()

	ts := time.Date(2023, 7, 4, 10, 0, 0, 0, time.UTC)
	require.NoError(t, db.Apply(memstore.Batch{
		Ops:  []types.EditOp{types.OpCreateKey{Path: `HKEY_USERS\S-1\Env`}},
		Time: ts,
	}))

	var got []types.EditOp
	var times []time.Time
	require.NoError(t, db.Load(func(op types.EditOp, lw time.Time) error {
		got = append(got, op)
		times = append(times, lw)
		return nil
	}))
	require.Equal(t, []types.EditOp{
		types.OpCreateKey{Path: `HKEY_USERS\S-1`},
		types.OpCreateKey{Path: `HKEY_USERS\S-1\Env`},
	}, got)
	assert.True(t, times[1].Equal(ts))
}

func TestCompress_SkipsIncompressible(t *testing.T) {
	noise := make([]byte, 4096)
	_, err := rand.Read(noise)
	require.NoError(t, err)

	out, codec, err := compress(noise, CompressionZSTD)
	require.NoError(t, err)
	assert.Equal(t, CompressionNone, codec)
	assert.Equal(t, noise, out)

	text := bytes.Repeat([]byte{'a'}, 4096)
	out, codec, err = compress(text, CompressionLZ4)
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, codec)
	back, err := decompress(out, codec, len(text))
	require.NoError(t, err)
	assert.Equal(t, text, back)
}

func TestParseCompression(t *testing.T) {
	c, err := ParseCompression("lz4")
	require.NoError(t, err)
	assert.Equal(t, CompressionLZ4, c)
	_, err = ParseCompression("brotli")
	assert.Error(t, err)
}
