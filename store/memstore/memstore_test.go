package memstore

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
)

var hkcu = store.PredefHandle(types.HKEY_CURRENT_USER)

func newStore(t *testing.T, opts *Options) *Store {
	t.Helper()
	s, err := New(opts)
	require.NoError(t, err)
	return s
}

func sz(s string) types.RegValue {
	b := make([]byte, 0, (len(s)+1)*2)
	for i := 0; i < len(s); i++ {
		b = append(b, s[i], 0)
	}
	return types.RegValue{Bytes: append(b, 0, 0), Type: types.REG_SZ}
}

func dword(v uint32) types.RegValue {
	return types.RegValue{Bytes: []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}, Type: types.REG_DWORD}
}

func enumKeys(t *testing.T, s *Store, h store.Handle) []string {
	t.Helper()
	var out []string
	for i := uint32(0); ; i++ {
		name, err := s.EnumKey(h, i)
		if errors.Is(err, types.ERROR_NO_MORE_ITEMS) {
			return out
		}
		require.NoError(t, err)
		out = append(out, name)
	}
}

func TestStore_CreateOpenClose(t *testing.T) {
	s := newStore(t, nil)

	h, disp, err := s.CreateKey(hkcu, `Software\Vendor\App`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	assert.Equal(t, types.REG_CREATED_NEW_KEY, disp)

	h2, disp, err := s.CreateKey(hkcu, `software\VENDOR\app`, types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	assert.Equal(t, types.REG_OPENED_EXISTING_KEY, disp)
	assert.NotEqual(t, h, h2)

	h3, err := s.OpenKey(hkcu, `Software\Vendor`, types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	assert.Equal(t, []string{"App"}, enumKeys(t, s, h3))

	assert.Equal(t, 3, s.OpenHandles())
	for _, x := range []store.Handle{h, h2, h3} {
		require.NoError(t, s.CloseKey(x))
	}
	assert.Equal(t, 0, s.OpenHandles())
	assert.ErrorIs(t, s.CloseKey(h), types.ERROR_INVALID_HANDLE)
	assert.NoError(t, s.CloseKey(hkcu))
}

func TestStore_OpenMissing(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.OpenKey(hkcu, `Nope\Deeper`, types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)
}

func TestStore_PathErrors(t *testing.T) {
	s := newStore(t, nil)
	_, err := s.OpenKey(hkcu, `\Lead`, types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_BAD_PATHNAME)

	_, _, err = s.CreateKey(hkcu, "bad\x00name", types.KEY_ALL_ACCESS, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_INVALID_NAME)

	assert.ErrorIs(t, s.DeleteKey(hkcu, "", store.NoTx), types.ERROR_INVALID_PARAMETER)
}

func TestStore_EnumKeyOrder(t *testing.T) {
	s := newStore(t, nil)
	for _, n := range []string{"beta", "Alpha", "gamma", "Delta"} {
		h, _, err := s.CreateKey(hkcu, `Order\`+n, types.KEY_WRITE, store.NoTx)
		require.NoError(t, err)
		require.NoError(t, s.CloseKey(h))
	}
	h, err := s.OpenKey(hkcu, "Order", types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Alpha", "beta", "Delta", "gamma"}, enumKeys(t, s, h))
}

func TestStore_Values(t *testing.T) {
	s := newStore(t, nil)
	h, _, err := s.CreateKey(hkcu, "Vals", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)

	require.NoError(t, s.SetValue(h, "zeta", dword(1)))
	require.NoError(t, s.SetValue(h, "Alpha", sz("hi")))
	require.NoError(t, s.SetValue(h, "", sz("default")))
	// overwrite keeps the slot and the original name case
	require.NoError(t, s.SetValue(h, "ZETA", dword(2)))

	var names []string
	for i := uint32(0); ; i++ {
		name, v, err := s.EnumValue(h, i)
		if errors.Is(err, types.ERROR_NO_MORE_ITEMS) {
			break
		}
		require.NoError(t, err)
		names = append(names, name)
		if name == "zeta" {
			assert.Equal(t, dword(2), v)
		}
	}
	assert.Equal(t, []string{"zeta", "Alpha", ""}, names)

	v, err := s.QueryValue(h, "alpha")
	require.NoError(t, err)
	assert.Equal(t, sz("hi"), v)

	require.NoError(t, s.DeleteValue(h, "Alpha"))
	_, err = s.QueryValue(h, "Alpha")
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)
	assert.ErrorIs(t, s.DeleteValue(h, "Alpha"), types.ERROR_FILE_NOT_FOUND)
}

func TestStore_QueryValueReturnsCopy(t *testing.T) {
	s := newStore(t, nil)
	h, _, err := s.CreateKey(hkcu, "Copy", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	in := dword(7)
	require.NoError(t, s.SetValue(h, "v", in))
	in.Bytes[0] = 0xFF

	got, err := s.QueryValue(h, "v")
	require.NoError(t, err)
	got.Bytes[1] = 0xFF

	again, err := s.QueryValue(h, "v")
	require.NoError(t, err)
	assert.Equal(t, dword(7), again)
}

func TestStore_AccessRights(t *testing.T) {
	s := newStore(t, nil)
	h, _, err := s.CreateKey(hkcu, "Acl", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(h, "v", dword(1)))

	ro, err := s.OpenKey(hkcu, "Acl", types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	assert.ErrorIs(t, s.SetValue(ro, "v", dword(2)), types.ERROR_ACCESS_DENIED)
	assert.ErrorIs(t, s.DeleteValue(ro, "v"), types.ERROR_ACCESS_DENIED)
	_, _, err = s.CreateKey(ro, "child", types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_ACCESS_DENIED)

	wo, err := s.OpenKey(hkcu, "Acl", types.KEY_SET_VALUE, store.NoTx)
	require.NoError(t, err)
	_, err = s.QueryValue(wo, "v")
	assert.ErrorIs(t, err, types.ERROR_ACCESS_DENIED)
	_, err = s.EnumKey(wo, 0)
	assert.ErrorIs(t, err, types.ERROR_ACCESS_DENIED)
}

func TestStore_Protected(t *testing.T) {
	s := newStore(t, &Options{Protected: []string{`HKLM\SYSTEM\Locked`}})
	hklm := store.PredefHandle(types.HKEY_LOCAL_MACHINE)

	_, err := s.OpenKey(hklm, `SYSTEM\Locked`, types.KEY_WRITE, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_ACCESS_DENIED)

	h, err := s.OpenKey(hklm, `SYSTEM\Locked`, types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	require.NoError(t, s.CloseKey(h))

	assert.ErrorIs(t, s.DeleteKey(hklm, `SYSTEM\Locked`, store.NoTx), types.ERROR_ACCESS_DENIED)

	perf := store.PredefHandle(types.HKEY_PERFORMANCE_DATA)
	assert.ErrorIs(t, s.SetValue(perf, "x", dword(1)), types.ERROR_ACCESS_DENIED)
}

func TestStore_DeleteKey(t *testing.T) {
	s := newStore(t, nil)
	h, _, err := s.CreateKey(hkcu, `Del\Child`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)

	assert.ErrorIs(t, s.DeleteKey(hkcu, "Del", store.NoTx), types.ERROR_KEY_HAS_CHILDREN)
	require.NoError(t, s.DeleteKey(hkcu, `Del\Child`, store.NoTx))
	assert.ErrorIs(t, s.DeleteKey(hkcu, `Del\Child`, store.NoTx), types.ERROR_FILE_NOT_FOUND)

	// the open handle outlives its key
	assert.ErrorIs(t, s.SetValue(h, "v", dword(1)), types.ERROR_KEY_DELETED)
	_, err = s.EnumKey(h, 0)
	assert.ErrorIs(t, err, types.ERROR_KEY_DELETED)
	require.NoError(t, s.CloseKey(h))

	require.NoError(t, s.DeleteKey(hkcu, "Del", store.NoTx))
}

func TestStore_QueryInfo(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := newStore(t, &Options{Now: func() time.Time { return now }})
	h, _, err := s.CreateKey(hkcu, "Info", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	for _, c := range []string{"a", "longer"} {
		ch, _, err := s.CreateKey(h, c, types.KEY_READ, store.NoTx)
		require.NoError(t, err)
		require.NoError(t, s.CloseKey(ch))
	}
	require.NoError(t, s.SetValue(h, "name", sz("abcdef")))

	md, err := s.QueryInfo(h)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), md.SubKeys)
	assert.Equal(t, uint32(6), md.MaxSubKeyLen)
	assert.Equal(t, uint32(1), md.Values)
	assert.Equal(t, uint32(4), md.MaxValueNameLen)
	assert.Equal(t, uint32(14), md.MaxValueLen)
	assert.True(t, md.LastWrite.Equal(now))
}

func TestStore_TransactionIsolation(t *testing.T) {
	s := newStore(t, nil)
	base, _, err := s.CreateKey(hkcu, "Tx", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)

	tx, err := s.BeginTx()
	require.NoError(t, err)

	th, _, err := s.CreateKey(hkcu, `Tx\A`, types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(th, "x", dword(1)))

	// a child opened from a transacted key stays in the transaction
	sub, _, err := s.CreateKey(th, "B", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(sub, "y", dword(2)))

	assert.Empty(t, enumKeys(t, s, base))
	_, err = s.OpenKey(hkcu, `Tx\A`, types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)

	require.NoError(t, s.CommitTx(tx))
	assert.Equal(t, []string{"A"}, enumKeys(t, s, base))

	live, err := s.OpenKey(hkcu, `Tx\A\B`, types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	v, err := s.QueryValue(live, "y")
	require.NoError(t, err)
	assert.Equal(t, dword(2), v)

	// keys bound to a finished transaction are dead
	assert.ErrorIs(t, s.SetValue(th, "z", dword(3)), types.ERROR_TRANSACTION_NOT_ACTIVE)
	assert.ErrorIs(t, s.CommitTx(tx), types.ERROR_TRANSACTION_ALREADY_COMMITTED)
	require.NoError(t, s.CloseTx(tx))
	assert.ErrorIs(t, s.CommitTx(tx), types.ERROR_INVALID_HANDLE)
}

func TestStore_TransactionRollback(t *testing.T) {
	s := newStore(t, nil)
	tx, err := s.BeginTx()
	require.NoError(t, err)

	th, _, err := s.CreateKey(hkcu, "Gone", types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(th, "x", dword(1)))
	require.NoError(t, s.RollbackTx(tx))

	_, err = s.OpenKey(hkcu, "Gone", types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)
	assert.ErrorIs(t, s.RollbackTx(tx), types.ERROR_TRANSACTION_ALREADY_ABORTED)
}

func TestStore_CloseTxRollsBack(t *testing.T) {
	s := newStore(t, nil)
	tx, err := s.BeginTx()
	require.NoError(t, err)
	_, _, err = s.CreateKey(hkcu, "Dropped", types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, s.CloseTx(tx))

	_, err = s.OpenKey(hkcu, "Dropped", types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)
}

func TestStore_TransactionConflict(t *testing.T) {
	s := newStore(t, nil)
	h, _, err := s.CreateKey(hkcu, "Shared", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(h, "v", dword(1)))

	tx, err := s.BeginTx()
	require.NoError(t, err)
	th, err := s.OpenKey(hkcu, "Shared", types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(th, "v", dword(2)))

	require.NoError(t, s.SetValue(h, "v", dword(3)))

	assert.ErrorIs(t, s.CommitTx(tx), types.ERROR_TRANSACTIONAL_CONFLICT)
	v, err := s.QueryValue(h, "v")
	require.NoError(t, err)
	assert.Equal(t, dword(3), v)
}

func TestStore_TransactionDelete(t *testing.T) {
	s := newStore(t, nil)
	h, _, err := s.CreateKey(hkcu, `TxDel\Leaf`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)

	tx, err := s.BeginTx()
	require.NoError(t, err)
	require.NoError(t, s.DeleteKey(hkcu, `TxDel\Leaf`, tx))

	// still visible outside the transaction
	require.NoError(t, s.SetValue(h, "v", dword(1)))
	require.NoError(t, s.RollbackTx(tx))

	tx2, err := s.BeginTx()
	require.NoError(t, err)
	require.NoError(t, s.DeleteKey(hkcu, `TxDel\Leaf`, tx2))
	require.NoError(t, s.CommitTx(tx2))
	assert.ErrorIs(t, s.SetValue(h, "v", dword(2)), types.ERROR_KEY_DELETED)
}

func TestStore_TransactionSiblingNoConflict(t *testing.T) {
	s := newStore(t, nil)
	_, _, err := s.CreateKey(hkcu, "Base", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)

	tx, err := s.BeginTx()
	require.NoError(t, err)
	th, _, err := s.CreateKey(hkcu, `Base\A`, types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(th, "x", dword(1)))

	// an unrelated sibling appearing under the same parent is not a conflict
	_, _, err = s.CreateKey(hkcu, `Base\Z`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)

	require.NoError(t, s.CommitTx(tx))
	base, err := s.OpenKey(hkcu, "Base", types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "Z"}, enumKeys(t, s, base))
}

func TestStore_TransactionSameNameConflict(t *testing.T) {
	s := newStore(t, nil)
	_, _, err := s.CreateKey(hkcu, "Base", types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)

	tx, err := s.BeginTx()
	require.NoError(t, err)
	_, _, err = s.CreateKey(hkcu, `Base\A`, types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)

	_, _, err = s.CreateKey(hkcu, `base`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	assert.ErrorIs(t, s.CommitTx(tx), types.ERROR_TRANSACTIONAL_CONFLICT)

	// the parent going away under the transaction conflicts too
	tx2, err := s.BeginTx()
	require.NoError(t, err)
	_, _, err = s.CreateKey(hkcu, `Base\A\B`, types.KEY_ALL_ACCESS, tx2)
	require.NoError(t, err)
	require.NoError(t, s.DeleteKey(hkcu, `Base\A`, store.NoTx))
	assert.ErrorIs(t, s.CommitTx(tx2), types.ERROR_TRANSACTIONAL_CONFLICT)
}

func TestStore_TransactionsDisabled(t *testing.T) {
	s := newStore(t, &Options{DisableTransactions: true})
	_, err := s.BeginTx()
	assert.ErrorIs(t, err, types.ERROR_CALL_NOT_IMPLEMENTED)
	assert.True(t, types.IsKind(err, types.ErrKindTransactionUnsupported))
}

type recordingPersister struct {
	batches []Batch
	fail    error
}

func (p *recordingPersister) Apply(b Batch) error {
	if p.fail != nil {
		return p.fail
	}
	p.batches = append(p.batches, b)
	return nil
}

func (p *recordingPersister) Load(fn func(types.EditOp, time.Time) error) error {
	for _, b := range p.batches {
		for _, op := range b.Ops {
			if err := fn(op, b.Time); err != nil {
				return err
			}
		}
	}
	return nil
}

func TestStore_PersisterReceivesEdits(t *testing.T) {
	p := &recordingPersister{}
	s := newStore(t, &Options{Persister: p})

	h, _, err := s.CreateKey(hkcu, `P\Q`, types.KEY_ALL_ACCESS, store.NoTx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(h, "v", dword(9)))

	tx, err := s.BeginTx()
	require.NoError(t, err)
	th, _, err := s.CreateKey(hkcu, `P\R`, types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, s.SetValue(th, "w", dword(1)))
	require.Len(t, p.batches, 2)
	require.NoError(t, s.CommitTx(tx))

	require.Len(t, p.batches, 3)
	assert.Equal(t, types.OpCreateKey{Path: `HKEY_CURRENT_USER\P\Q`}, p.batches[0].Ops[0])
	assert.Len(t, p.batches[2].Ops, 2)

	// a second store rebuilt from the same persister sees the tree
	s2 := newStore(t, &Options{Persister: p})
	h2, err := s2.OpenKey(hkcu, `P\R`, types.KEY_READ, store.NoTx)
	require.NoError(t, err)
	v, err := s2.QueryValue(h2, "w")
	require.NoError(t, err)
	assert.Equal(t, dword(1), v)
}

func TestStore_PersisterFailureLeavesTreeUntouched(t *testing.T) {
	p := &recordingPersister{fail: errors.New("disk full")}
	s := newStore(t, &Options{Persister: p})

	_, _, err := s.CreateKey(hkcu, "X", types.KEY_ALL_ACCESS, store.NoTx)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ERROR_CANTWRITE)
	assert.True(t, types.IsStoreFailure(err))

	_, err = s.OpenKey(hkcu, "X", types.KEY_READ, store.NoTx)
	assert.ErrorIs(t, err, types.ERROR_FILE_NOT_FOUND)
}
