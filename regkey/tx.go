package regkey

import (
	"runtime"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
)

const (
	txActive int32 = iota
	txCommitted
	txRolledBack
)

// Transaction is a native registry transaction. Keys opened or created with
// it see its changes; nobody else does until Commit. Commit and Rollback each
// consume the transaction. A Transaction that is closed or dropped while
// active is rolled back, never committed.
type Transaction struct {
	reg   *Registry
	h     store.TxHandle
	id    uuid.UUID
	state atomic.Int32

	released atomic.Bool
	cleanup  runtime.Cleanup
}

type txRelease struct {
	backend store.Backend
	h       store.TxHandle
}

func releaseTx(r txRelease) { _ = r.backend.CloseTx(r.h) }

// NewTransaction begins a transaction. On systems without transaction
// support it fails with ErrKindTransactionUnsupported.
func (r *Registry) NewTransaction() (*Transaction, error) {
	h, err := r.backend.BeginTx()
	if err != nil {
		return nil, types.Wrap("begin transaction", "", err)
	}
	t := &Transaction{reg: r, h: h, id: uuid.New()}
	t.cleanup = runtime.AddCleanup(t, releaseTx, txRelease{backend: r.backend, h: h})
	logger.Debug("transaction begin", "tx", t.id)
	return t, nil
}

// ID identifies the transaction in logs.
func (t *Transaction) ID() string { return t.id.String() }

// Active reports whether the transaction can still be committed.
func (t *Transaction) Active() bool { return t.state.Load() == txActive }

// Handle exposes the backend transaction handle.
func (t *Transaction) Handle() store.TxHandle { return t.h }

func (t *Transaction) usable(op string) error {
	if t == nil {
		return &types.Error{Kind: types.ErrKindTransactionFailed, Op: op, Msg: "nil transaction"}
	}
	if !t.Active() {
		return &types.Error{Kind: types.ErrKindTransactionFailed, Op: op, Msg: "transaction " + t.ID() + " is finished"}
	}
	return nil
}

func (t *Transaction) finish(op string, to int32) error {
	if !t.state.CompareAndSwap(txActive, to) {
		return &types.Error{Kind: types.ErrKindTransactionFailed, Op: op, Msg: "transaction " + t.ID() + " is finished"}
	}
	return nil
}

// Commit makes every change in the transaction visible at once. If the
// store detects a conflicting change it fails with ErrKindTransactionFailed
// and nothing is applied. Either way the transaction is consumed.
func (t *Transaction) Commit() error {
	if err := t.finish("commit", txCommitted); err != nil {
		return err
	}
	err := t.reg.backend.CommitTx(t.h)
	t.release()
	if err != nil {
		logger.Debug("transaction commit failed", "tx", t.id, "err", err)
		return &types.Error{Kind: types.ErrKindTransactionFailed, Op: "commit", Msg: "transaction " + t.ID(), Err: err}
	}
	logger.Debug("transaction commit", "tx", t.id)
	return nil
}

// Rollback discards every change in the transaction and consumes it.
func (t *Transaction) Rollback() error {
	if err := t.finish("rollback", txRolledBack); err != nil {
		return err
	}
	err := t.reg.backend.RollbackTx(t.h)
	t.release()
	logger.Debug("transaction rollback", "tx", t.id)
	return types.Wrap("rollback", "", err)
}

// Close rolls back an active transaction and releases its handle. It is
// idempotent and safe to defer after Commit.
func (t *Transaction) Close() error {
	if t.Active() {
		return t.Rollback()
	}
	t.release()
	return nil
}

func (t *Transaction) release() {
	if !t.released.CompareAndSwap(false, true) {
		return
	}
	t.cleanup.Stop()
	_ = t.reg.backend.CloseTx(t.h)
}
