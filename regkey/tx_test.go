package regkey

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store/memstore"
)

func TestTransaction_CommitVisibility(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	hkcu := reg.Predef(types.HKEY_CURRENT_USER)

	tx, err := reg.NewTransaction()
	require.NoError(t, err)
	defer tx.Close()
	assert.True(t, tx.Active())
	assert.NotEmpty(t, tx.ID())

	k, disp, err := hkcu.CreateSubkeyTransacted(`Software\Atomic`, types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	defer k.Close()
	assert.Equal(t, types.REG_CREATED_NEW_KEY, disp)
	assert.Same(t, tx, k.Transaction())
	require.NoError(t, k.SetDWORD("Step", 1))

	// children of a transacted key inherit the transaction
	child, _, err := k.CreateSubkey("Child", types.KEY_ALL_ACCESS)
	require.NoError(t, err)
	defer child.Close()
	assert.Same(t, tx, child.Transaction())

	_, err = hkcu.OpenSubkey(`Software\Atomic`, types.KEY_READ)
	assert.ErrorIs(t, err, types.ErrNotFound, "uncommitted key leaked")

	inTx, err := hkcu.OpenSubkeyTransacted(`Software\Atomic\Child`, types.KEY_READ, tx)
	require.NoError(t, err)
	inTx.Close()

	require.NoError(t, tx.Commit())
	assert.False(t, tx.Active())

	got, err := hkcu.OpenSubkey(`Software\Atomic`, types.KEY_READ)
	require.NoError(t, err)
	defer got.Close()
	n, err := got.GetDWORD("Step")
	require.NoError(t, err)
	assert.Equal(t, uint32(1), n)

	// keys bound to a finished transaction are unusable
	err = k.SetDWORD("Step", 2)
	assert.ErrorIs(t, err, types.ErrTransactionFailed)

	// a transaction is consumed by commit
	assert.ErrorIs(t, tx.Commit(), types.ErrTransactionFailed)
	assert.ErrorIs(t, tx.Rollback(), types.ErrTransactionFailed)
	assert.NoError(t, tx.Close())

	_, _, err = hkcu.CreateSubkeyTransacted("Late", types.KEY_ALL_ACCESS, tx)
	assert.ErrorIs(t, err, types.ErrTransactionFailed)
	_, err = hkcu.OpenSubkeyTransacted("Late", types.KEY_READ, nil)
	assert.ErrorIs(t, err, types.ErrTransactionFailed)
}

func TestTransaction_Rollback(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	hkcu := reg.Predef(types.HKEY_CURRENT_USER)
	base := mustCreate(t, hkcu, "Base")
	require.NoError(t, base.SetString("keep", "yes"))

	tx, err := reg.NewTransaction()
	require.NoError(t, err)
	k, err := hkcu.OpenSubkeyTransacted("Base", types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, k.DeleteValue("keep"))
	require.NoError(t, k.SetString("temp", "x"))
	require.NoError(t, hkcu.DeleteSubkeyTransacted(`Base`, tx))
	k.Close()

	require.NoError(t, tx.Rollback())

	s, err := base.GetString("keep")
	require.NoError(t, err)
	assert.Equal(t, "yes", s)
	_, err = base.GetString("temp")
	assert.ErrorIs(t, err, types.ErrNotFound)
}

func TestTransaction_CloseRollsBack(t *testing.T) {
	reg, s := newTestRegistry(t, nil)
	hkcu := reg.Predef(types.HKEY_CURRENT_USER)

	tx, err := reg.NewTransaction()
	require.NoError(t, err)
	k, _, err := hkcu.CreateSubkeyTransacted("Dropped", types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	require.NoError(t, k.Close())
	require.NoError(t, tx.Close())
	require.NoError(t, tx.Close())

	_, err = hkcu.OpenSubkey("Dropped", types.KEY_READ)
	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.Zero(t, s.OpenHandles())
}

func TestTransaction_Conflict(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	hkcu := reg.Predef(types.HKEY_CURRENT_USER)
	shared := mustCreate(t, hkcu, "Shared")

	tx, err := reg.NewTransaction()
	require.NoError(t, err)
	defer tx.Close()
	k, err := hkcu.OpenSubkeyTransacted("Shared", types.KEY_ALL_ACCESS, tx)
	require.NoError(t, err)
	defer k.Close()
	require.NoError(t, k.SetDWORD("fromTx", 1))

	require.NoError(t, shared.SetDWORD("outside", 2))

	err = tx.Commit()
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrTransactionFailed)
	assert.ErrorIs(t, err, types.ERROR_TRANSACTIONAL_CONFLICT)

	_, err = shared.GetDWORD("fromTx")
	assert.ErrorIs(t, err, types.ErrNotFound)
	n, err := shared.GetDWORD("outside")
	require.NoError(t, err)
	assert.Equal(t, uint32(2), n)
}

func TestTransaction_Unsupported(t *testing.T) {
	reg, _ := newTestRegistry(t, &memstore.Options{DisableTransactions: true})
	_, err := reg.NewTransaction()
	assert.ErrorIs(t, err, types.ErrTransactionUnsupported)
}

func TestRegistry_RunInTransaction(t *testing.T) {
	reg, _ := newTestRegistry(t, nil)
	hkcu := reg.Predef(types.HKEY_CURRENT_USER)
	ctx := context.Background()

	write := func(name string) func(*Transaction) error {
		return func(tx *Transaction) error {
			k, _, err := hkcu.CreateSubkeyTransacted(name, types.KEY_ALL_ACCESS, tx)
			if err != nil {
				return err
			}
			defer k.Close()
			return k.SetDWORD("v", 1)
		}
	}

	require.NoError(t, reg.RunInTransaction(ctx, write("Committed")))
	_, err := hkcu.OpenSubkey("Committed", types.KEY_READ)
	assert.NoError(t, err)

	boom := errors.New("boom")
	err = reg.RunInTransaction(ctx, func(tx *Transaction) error {
		if err := write("Failed")(tx); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	_, err = hkcu.OpenSubkey("Failed", types.KEY_READ)
	assert.ErrorIs(t, err, types.ErrNotFound)

	cctx, cancel := context.WithCancel(ctx)
	err = reg.RunInTransaction(cctx, func(tx *Transaction) error {
		cancel()
		return write("Cancelled")(tx)
	})
	assert.ErrorIs(t, err, context.Canceled)
	_, err = hkcu.OpenSubkey("Cancelled", types.KEY_READ)
	assert.ErrorIs(t, err, types.ErrNotFound)
}
