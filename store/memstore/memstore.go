// Package memstore emulates the native registry in process memory.
//
// The emulation follows the Win32 contract closely enough that code written
// against store.Backend behaves the same here as on Windows: case-insensitive
// names with preserved case, subkeys enumerated in name order and values in
// insertion order, per-handle access rights, KEY_HAS_CHILDREN on deleting a
// populated key, KEY_DELETED on handles whose key was removed, and
// transactions that are isolated until commit.
//
// Every mutation is expressed as a types.EditOp. Untransacted edits are handed
// to the optional Persister before they touch memory; transacted edits are
// logged and handed over as one batch on commit.
package memstore

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store"
)

// Options configures a Store.
type Options struct {
	// Logger receives debug events. Default: the package-wide logger.
	Logger *slog.Logger

	// Now supplies last-write times. Default: time.Now.
	Now func() time.Time

	// Persister, when set, receives every committed edit and is replayed
	// into the tree by New if it also implements Loader.
	Persister Persister

	// Protected lists absolute key paths (e.g. `HKLM\SYSTEM`) that refuse
	// write-access opens and deletion. The keys are created if missing.
	// Performance roots are always protected.
	Protected []string

	// DisableTransactions makes BeginTx fail with ERROR_CALL_NOT_IMPLEMENTED,
	// as on systems without the kernel transaction manager.
	DisableTransactions bool
}

// Store is an in-memory store.Backend. It is safe for concurrent use; each
// call is atomic with respect to the others.
type Store struct {
	mu      sync.Mutex
	opts    Options
	log     *slog.Logger
	now     func() time.Time
	live    forest
	handles map[store.Handle]*openKey
	txs     map[store.TxHandle]*memTx
	gen     uint64

	nextHandle store.Handle
	nextTx     store.TxHandle
}

var _ store.Backend = (*Store)(nil)

type openKey struct {
	n      *node
	access types.Access
	tx     *memTx
}

const (
	firstHandle = store.Handle(0x1000)
	handleStep  = 4
)

// New builds a store. When opts.Persister also implements Loader its
// contents are replayed first. A nil opts uses the defaults.
func New(opts *Options) (*Store, error) {
	var o Options
	if opts != nil {
		o = *opts
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	s := &Store{
		opts:       o,
		log:        logger.Or(o.Logger),
		now:        o.Now,
		handles:    make(map[store.Handle]*openKey),
		txs:        make(map[store.TxHandle]*memTx),
		nextHandle: firstHandle,
		nextTx:     1,
	}
	s.live = newForest(s.now())

	if l, ok := o.Persister.(Loader); ok {
		count := 0
		err := l.Load(func(op types.EditOp, lastWrite time.Time) error {
			count++
			if err := s.live.apply(op, lastWrite, 0); err != nil {
				return fmt.Errorf("replay %T %s: %w", op, opPath(op), err)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		s.log.Debug("memstore loaded", "ops", count)
	}

	for _, p := range o.Protected {
		if err := s.live.apply(types.OpCreateKey{Path: p}, s.now(), 0); err != nil {
			return nil, fmt.Errorf("protected path %q: %w", p, err)
		}
		n, _, _ := s.live.find(p)
		n.protected = true
	}
	return s, nil
}

// MustNew is New for tests and examples; it panics on error.
func MustNew(opts *Options) *Store {
	s, err := New(opts)
	if err != nil {
		panic(err)
	}
	return s
}

// OpenHandles reports how many key handles are currently open.
func (s *Store) OpenHandles() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// -----------------------------------------------------------------------------
// Handle resolution
// -----------------------------------------------------------------------------

func rootAccess(r types.RootKey) types.Access {
	if r.Performance() {
		return types.KEY_READ
	}
	return types.KEY_ALL_ACCESS
}

// key resolves h to its open state, validating liveness.
func (s *Store) key(h store.Handle) (*openKey, error) {
	if store.IsPredef(h) {
		r := types.RootKey(h)
		return &openKey{n: s.live[r], access: rootAccess(r)}, nil
	}
	ok := s.handles[h]
	if ok == nil {
		return nil, types.ERROR_INVALID_HANDLE
	}
	if ok.tx != nil && ok.tx.state != txActive {
		return nil, types.ERROR_TRANSACTION_NOT_ACTIVE
	}
	if ok.n.deleted {
		return nil, types.ERROR_KEY_DELETED
	}
	return ok, nil
}

// parent resolves h as the starting point for a path lookup under txh. A
// transacted handle keeps its transaction when txh is NoTx; otherwise the
// node is re-resolved in the requested view of the tree.
func (s *Store) parent(h store.Handle, txh store.TxHandle) (*openKey, error) {
	ok, err := s.key(h)
	if err != nil {
		return nil, err
	}
	if txh == store.NoTx {
		return ok, nil
	}
	tx := s.txs[txh]
	if tx == nil {
		return nil, types.ERROR_INVALID_TRANSACTION
	}
	if tx.state != txActive {
		return nil, types.ERROR_TRANSACTION_NOT_ACTIVE
	}
	if ok.tx == tx {
		return ok, nil
	}
	n, found, err := tx.view.find(ok.n.fullPath())
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, types.ERROR_KEY_DELETED
	}
	return &openKey{n: n, access: ok.access, tx: tx}, nil
}

func (s *Store) register(n *node, access types.Access, tx *memTx) store.Handle {
	h := s.nextHandle
	s.nextHandle += handleStep
	s.handles[h] = &openKey{n: n, access: access, tx: tx}
	return h
}

func checkOpen(n *node, access types.Access) error {
	if n.protected && access.Writes() {
		return types.ERROR_ACCESS_DENIED
	}
	return nil
}

// commitEdit applies op to the view the handle belongs to. Untransacted
// edits reach the persister first so a failed write leaves memory untouched.
func (s *Store) commitEdit(tx *memTx, op types.EditOp) error {
	now := s.now()
	if tx != nil {
		if err := tx.view.apply(op, now, 0); err != nil {
			return err
		}
		tx.log = append(tx.log, op)
		return nil
	}
	if p := s.opts.Persister; p != nil {
		if err := p.Apply(Batch{Ops: []types.EditOp{op}, Time: now}); err != nil {
			s.log.Warn("memstore persist failed", "op", fmt.Sprintf("%T", op), "path", opPath(op), "err", err)
			return fmt.Errorf("%w: %w", types.ERROR_CANTWRITE, err)
		}
	}
	s.gen++
	return s.live.apply(op, now, s.gen)
}

// -----------------------------------------------------------------------------
// Keys
// -----------------------------------------------------------------------------

func (s *Store) OpenKey(parent store.Handle, path string, access types.Access, txh store.TxHandle) (store.Handle, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.parent(parent, txh)
	if err != nil {
		return 0, err
	}
	segs, err := splitPath(path)
	if err != nil {
		return 0, err
	}
	n := p.n.lookup(segs)
	if n == nil {
		return 0, types.ERROR_FILE_NOT_FOUND
	}
	if err := checkOpen(n, access); err != nil {
		return 0, err
	}
	return s.register(n, access, p.tx), nil
}

func (s *Store) CreateKey(parent store.Handle, path string, access types.Access, txh store.TxHandle) (store.Handle, types.Disposition, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.parent(parent, txh)
	if err != nil {
		return 0, 0, err
	}
	segs, err := splitPath(path)
	if err != nil {
		return 0, 0, err
	}

	// find the deepest existing key along the path
	cur, i := p.n, 0
	for ; i < len(segs); i++ {
		next := cur.child(segs[i])
		if next == nil {
			break
		}
		cur = next
	}

	if i == len(segs) {
		if err := checkOpen(cur, access); err != nil {
			return 0, 0, err
		}
		return s.register(cur, access, p.tx), types.REG_OPENED_EXISTING_KEY, nil
	}

	if !p.access.Has(types.KEY_CREATE_SUB_KEY) || cur.protected {
		return 0, 0, types.ERROR_ACCESS_DENIED
	}
	if cur.depth()+len(segs)-i > types.MaxTreeDepth {
		return 0, 0, types.ERROR_BADKEY
	}

	leaf := format.JoinPath(append([]string{cur.fullPath()}, segs[i:]...)...)
	if err := s.commitEdit(p.tx, types.OpCreateKey{Path: leaf}); err != nil {
		return 0, 0, err
	}
	n := cur.lookup(segs[i:])
	return s.register(n, access, p.tx), types.REG_CREATED_NEW_KEY, nil
}

func (s *Store) CloseKey(h store.Handle) error {
	if store.IsPredef(h) {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.handles[h]; !ok {
		return types.ERROR_INVALID_HANDLE
	}
	delete(s.handles, h)
	return nil
}

func (s *Store) DeleteKey(parent store.Handle, path string, txh store.TxHandle) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, err := s.parent(parent, txh)
	if err != nil {
		return err
	}
	if path == "" {
		return types.ERROR_INVALID_PARAMETER
	}
	segs, err := splitPath(path)
	if err != nil {
		return err
	}
	n := p.n.lookup(segs)
	if n == nil {
		return types.ERROR_FILE_NOT_FOUND
	}
	if n.protected {
		return types.ERROR_ACCESS_DENIED
	}
	if len(n.children) > 0 {
		return types.ERROR_KEY_HAS_CHILDREN
	}
	return s.commitEdit(p.tx, types.OpDeleteKey{Path: n.fullPath()})
}

func (s *Store) QueryInfo(h store.Handle) (types.KeyMetadata, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.key(h)
	if err != nil {
		return types.KeyMetadata{}, err
	}
	if !ok.access.Has(types.KEY_QUERY_VALUE) {
		return types.KeyMetadata{}, types.ERROR_ACCESS_DENIED
	}
	return ok.n.info(), nil
}

// -----------------------------------------------------------------------------
// Enumeration
// -----------------------------------------------------------------------------

func (s *Store) EnumKey(h store.Handle, index uint32) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.key(h)
	if err != nil {
		return "", err
	}
	if !ok.access.Has(types.KEY_ENUMERATE_SUB_KEYS) {
		return "", types.ERROR_ACCESS_DENIED
	}
	order := ok.n.sortedChildren()
	if int(index) >= len(order) {
		return "", types.ERROR_NO_MORE_ITEMS
	}
	return ok.n.children[order[index]].name, nil
}

func (s *Store) EnumValue(h store.Handle, index uint32) (string, types.RegValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.key(h)
	if err != nil {
		return "", types.RegValue{}, err
	}
	if !ok.access.Has(types.KEY_QUERY_VALUE) {
		return "", types.RegValue{}, types.ERROR_ACCESS_DENIED
	}
	if int(index) >= len(ok.n.values) {
		return "", types.RegValue{}, types.ERROR_NO_MORE_ITEMS
	}
	v := ok.n.values[index]
	return v.name, v.data.Clone(), nil
}

// -----------------------------------------------------------------------------
// Values
// -----------------------------------------------------------------------------

func (s *Store) QueryValue(h store.Handle, name string) (types.RegValue, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.key(h)
	if err != nil {
		return types.RegValue{}, err
	}
	if !ok.access.Has(types.KEY_QUERY_VALUE) {
		return types.RegValue{}, types.ERROR_ACCESS_DENIED
	}
	_, v := ok.n.findValue(name)
	if v == nil {
		return types.RegValue{}, types.ERROR_FILE_NOT_FOUND
	}
	return v.data.Clone(), nil
}

func (s *Store) SetValue(h store.Handle, name string, v types.RegValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.key(h)
	if err != nil {
		return err
	}
	if !ok.access.Has(types.KEY_SET_VALUE) {
		return types.ERROR_ACCESS_DENIED
	}
	if format.UTF16Len(name) > types.MaxValueNameLen {
		return types.ERROR_INVALID_PARAMETER
	}
	if len(v.Bytes) > types.MaxValueSize {
		return types.ERROR_INVALID_PARAMETER
	}
	data := v.Clone().Bytes
	return s.commitEdit(ok.tx, types.OpSetValue{Path: ok.n.fullPath(), Name: name, Type: v.Type, Data: data})
}

func (s *Store) DeleteValue(h store.Handle, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ok, err := s.key(h)
	if err != nil {
		return err
	}
	if !ok.access.Has(types.KEY_SET_VALUE) {
		return types.ERROR_ACCESS_DENIED
	}
	if _, v := ok.n.findValue(name); v == nil {
		return types.ERROR_FILE_NOT_FOUND
	}
	return s.commitEdit(ok.tx, types.OpDeleteValue{Path: ok.n.fullPath(), Name: name})
}
