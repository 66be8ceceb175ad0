package memstore

import (
	"fmt"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
)

type txState uint8

const (
	txActive txState = iota
	txCommitted
	txAborted
)

// memTx is one transaction: a private snapshot of the tree plus the log of
// edits made to it. Commit replays the log on the live tree.
type memTx struct {
	id       store.TxHandle
	view     forest
	log      []types.EditOp
	startGen uint64
	state    txState
}

func (t *memTx) finishedErr() error {
	if t.state == txCommitted {
		return types.ERROR_TRANSACTION_ALREADY_COMMITTED
	}
	return types.ERROR_TRANSACTION_ALREADY_ABORTED
}

func (s *Store) BeginTx() (store.TxHandle, error) {
	if s.opts.DisableTransactions {
		return store.NoTx, types.ERROR_CALL_NOT_IMPLEMENTED
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := &memTx{
		id:       s.nextTx,
		view:     s.live.clone(),
		startGen: s.gen,
	}
	s.nextTx++
	s.txs[tx.id] = tx
	s.log.Debug("tx begin", "tx", tx.id, "gen", tx.startGen)
	return tx.id, nil
}

// conflicts reports the first edited path that changed live after the
// transaction began. A change conflicts only when it touches the same key:
// the key or one of its ancestors was created or deleted, its values
// changed, or (for a delete) its children changed. Unrelated siblings do
// not count.
func (s *Store) conflicts(tx *memTx) (string, bool) {
	seen := make(map[string]struct{}, len(tx.log))
	for _, op := range tx.log {
		p := opPath(op)
		fold := format.FoldName(p)
		if _, ok := seen[fold]; ok {
			continue
		}
		seen[fold] = struct{}{}

		if s.changedSince(op, tx.startGen) {
			return p, true
		}
	}
	return "", false
}

func (s *Store) changedSince(op types.EditOp, start uint64) bool {
	root, segs, err := s.live.resolve(opPath(op))
	if err != nil {
		return false
	}
	cur := root
	for _, seg := range segs {
		next := cur.child(seg)
		if next == nil {
			return cur.gone[format.FoldName(seg)] > start
		}
		if next.createGen > start {
			return true
		}
		cur = next
	}

	switch op.(type) {
	case types.OpSetValue, types.OpDeleteValue:
		return cur.valueGen > start
	case types.OpDeleteKey:
		return cur.valueGen > start || cur.childGen > start
	default:
		return false
	}
}

func (s *Store) CommitTx(txh store.TxHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.txs[txh]
	if tx == nil {
		return types.ERROR_INVALID_HANDLE
	}
	if tx.state != txActive {
		return tx.finishedErr()
	}

	if path, bad := s.conflicts(tx); bad {
		tx.state = txAborted
		tx.view = nil
		s.log.Debug("tx conflict", "tx", tx.id, "path", path)
		return types.ERROR_TRANSACTIONAL_CONFLICT
	}

	now := s.now()
	if p := s.opts.Persister; p != nil && len(tx.log) > 0 {
		if err := p.Apply(Batch{Ops: tx.log, Time: now}); err != nil {
			tx.state = txAborted
			tx.view = nil
			s.log.Warn("tx persist failed", "tx", tx.id, "ops", len(tx.log), "err", err)
			return fmt.Errorf("%w: %w", types.ERROR_CANTWRITE, err)
		}
		s.log.Debug("memstore persisted batch", "tx", tx.id, "ops", len(tx.log))
	}

	s.gen++
	for _, op := range tx.log {
		// The log was produced against a snapshot that passed validation,
		// so replay cannot fail short of a bug.
		if err := s.live.apply(op, now, s.gen); err != nil {
			s.log.Error("tx replay diverged", "tx", tx.id, "path", opPath(op), "err", err)
		}
	}
	tx.state = txCommitted
	tx.view = nil
	s.log.Debug("tx commit", "tx", tx.id, "ops", len(tx.log))
	return nil
}

func (s *Store) RollbackTx(txh store.TxHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.txs[txh]
	if tx == nil {
		return types.ERROR_INVALID_HANDLE
	}
	if tx.state != txActive {
		return tx.finishedErr()
	}
	s.rollback(tx)
	return nil
}

func (s *Store) rollback(tx *memTx) {
	tx.state = txAborted
	tx.view = nil
	s.log.Debug("tx rollback", "tx", tx.id, "ops", len(tx.log))
}

func (s *Store) CloseTx(txh store.TxHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.txs[txh]
	if tx == nil {
		return types.ERROR_INVALID_HANDLE
	}
	if tx.state == txActive {
		s.rollback(tx)
	}
	delete(s.txs, txh)
	return nil
}
