// Package boltstore persists an emulated registry in a bbolt database.
//
// A DB is a memstore.Persister and memstore.Loader: memstore keeps the live
// tree and the handle table, and hands every committed edit batch to Apply,
// which writes it in a single bbolt transaction. On startup Load replays the
// database into a fresh tree. Keys map to nested buckets; values are msgpack
// records, compressed with zstd or lz4 above a size threshold.
package boltstore

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.etcd.io/bbolt"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/internal/logger"
	"github.com/joshuapare/regkit/pkg/types"
	"github.com/joshuapare/regkit/store/memstore"
)

// Options configures a DB.
type Options struct {
	// Compression is applied to value payloads of at least CompressThreshold
	// bytes. Default: CompressionZSTD.
	Compression Compression

	// CompressThreshold is the smallest payload worth compressing.
	// Default: 512.
	CompressThreshold int

	// Timeout bounds the wait for the database file lock. Default: 1s.
	Timeout time.Duration

	// Logger receives debug events. Default: the package-wide logger.
	Logger *slog.Logger
}

// DefaultOptions returns the defaults documented on Options.
func DefaultOptions() Options {
	return Options{
		Compression:       CompressionZSTD,
		CompressThreshold: 512,
		Timeout:           time.Second,
	}
}

// DB is a bbolt-backed registry image.
type DB struct {
	bdb  *bbolt.DB
	opts Options
	log  *slog.Logger
}

var (
	_ memstore.Persister = (*DB)(nil)
	_ memstore.Loader    = (*DB)(nil)
)

// Open opens or creates the database at path. Zero-valued fields in opts
// take their defaults; a zero Compression means ZSTD, use CompressThreshold
// < 0 to disable compression entirely.
func Open(path string, opts Options) (*DB, error) {
	def := DefaultOptions()
	if opts.CompressThreshold == 0 {
		opts.CompressThreshold = def.CompressThreshold
	}
	if opts.Compression == CompressionNone && opts.CompressThreshold > 0 {
		opts.Compression = def.Compression
	}
	if opts.Timeout == 0 {
		opts.Timeout = def.Timeout
	}

	bdb, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: opts.Timeout})
	if err != nil {
		return nil, fmt.Errorf("boltstore: open %s: %w", path, err)
	}
	db := &DB{bdb: bdb, opts: opts, log: logger.Or(opts.Logger)}

	// every root exists up front so Load always has something to walk
	err = bdb.Update(func(tx *bbolt.Tx) error {
		now := format.TimeToFiletime(time.Now())
		for _, r := range types.Roots() {
			b, err := tx.CreateBucketIfNotExists([]byte(r.String()))
			if err != nil {
				return err
			}
			if b.Get(metaKey) == nil {
				if err := putMeta(b, r.String(), now); err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		bdb.Close()
		return nil, fmt.Errorf("boltstore: init %s: %w", path, err)
	}
	return db, nil
}

// Path returns the database file path.
func (db *DB) Path() string { return db.bdb.Path() }

// Close releases the database file.
func (db *DB) Close() error { return db.bdb.Close() }

// Store is a memstore whose edits are persisted to a DB.
type Store struct {
	*memstore.Store
	db *DB
}

// OpenStore opens the database at path and loads it into a new memstore.
// mopts may be nil; its Persister field is overwritten.
func OpenStore(path string, opts Options, mopts *memstore.Options) (*Store, error) {
	db, err := Open(path, opts)
	if err != nil {
		return nil, err
	}
	var mo memstore.Options
	if mopts != nil {
		mo = *mopts
	}
	mo.Persister = db
	if mo.Logger == nil {
		mo.Logger = opts.Logger
	}
	ms, err := memstore.New(&mo)
	if err != nil {
		db.Close()
		return nil, err
	}
	return &Store{Store: ms, db: db}, nil
}

// DB returns the underlying database.
func (s *Store) DB() *DB { return s.db }

// Close closes the database. Open handles become unusable.
func (s *Store) Close() error { return s.db.Close() }

// -----------------------------------------------------------------------------
// Apply
// -----------------------------------------------------------------------------

// Apply writes one batch atomically.
func (db *DB) Apply(b memstore.Batch) error {
	ft := format.TimeToFiletime(b.Time)
	err := db.bdb.Update(func(tx *bbolt.Tx) error {
		for _, op := range b.Ops {
			if err := db.applyOp(tx, op, ft); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: apply: %w", err)
	}
	db.log.Debug("boltstore batch written", "ops", len(b.Ops))
	return nil
}

func (db *DB) applyOp(tx *bbolt.Tx, op types.EditOp, ft uint64) error {
	switch op := op.(type) {
	case types.OpCreateKey:
		b, segs, err := rootBucket(tx, op.Path)
		if err != nil {
			return err
		}
		for _, s := range segs {
			fold := format.FoldName(s)
			child := b.Bucket(subkeyBucket(fold))
			if child == nil {
				if child, err = b.CreateBucket(subkeyBucket(fold)); err != nil {
					return err
				}
				if err := putMeta(child, s, ft); err != nil {
					return err
				}
				if err := touchMeta(b, ft); err != nil {
					return err
				}
			}
			b = child
		}
		return nil

	case types.OpDeleteKey:
		b, segs, err := rootBucket(tx, op.Path)
		if err != nil {
			return err
		}
		if len(segs) == 0 {
			return fmt.Errorf("delete of root %s", op.Path)
		}
		parent := walk(b, segs[:len(segs)-1])
		if parent == nil {
			return nil
		}
		err = parent.DeleteBucket(subkeyBucket(format.FoldName(segs[len(segs)-1])))
		if err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return err
		}
		return touchMeta(parent, ft)

	case types.OpSetValue:
		b, err := keyBucket(tx, op.Path)
		if err != nil {
			return err
		}
		entry := valueEntry(format.FoldName(op.Name))
		rec := valueRecord{Name: op.Name, Type: uint32(op.Type)}
		if old := b.Get(entry); old != nil {
			var prev valueRecord
			if err := decodeRecord(old, &prev); err != nil {
				return err
			}
			rec.Seq = prev.Seq
		} else if rec.Seq, err = b.NextSequence(); err != nil {
			return err
		}
		rec.Data = op.Data
		if db.opts.CompressThreshold > 0 && len(op.Data) >= db.opts.CompressThreshold {
			data, codec, err := compress(op.Data, db.opts.Compression)
			if err != nil {
				return err
			}
			if codec != CompressionNone {
				rec.Data, rec.Codec, rec.RawLen = data, codec, uint32(len(op.Data))
			}
		}
		raw, err := encodeRecord(&rec)
		if err != nil {
			return err
		}
		if err := b.Put(entry, raw); err != nil {
			return err
		}
		return touchMeta(b, ft)

	case types.OpDeleteValue:
		b, err := keyBucket(tx, op.Path)
		if err != nil {
			return err
		}
		if err := b.Delete(valueEntry(format.FoldName(op.Name))); err != nil {
			return err
		}
		return touchMeta(b, ft)

	default:
		return fmt.Errorf("unsupported edit %T", op)
	}
}

func rootBucket(tx *bbolt.Tx, full string) (*bbolt.Bucket, []string, error) {
	root, rest, ok := types.SplitRootPath(full)
	if !ok {
		return nil, nil, fmt.Errorf("bad path %q", full)
	}
	segs, perr := format.SplitPath(rest, types.MaxKeyNameLen)
	if perr != format.PathOK {
		return nil, nil, fmt.Errorf("bad path %q", full)
	}
	b := tx.Bucket([]byte(root.String()))
	if b == nil {
		return nil, nil, fmt.Errorf("missing root bucket %s", root)
	}
	return b, segs, nil
}

func keyBucket(tx *bbolt.Tx, full string) (*bbolt.Bucket, error) {
	b, segs, err := rootBucket(tx, full)
	if err != nil {
		return nil, err
	}
	if k := walk(b, segs); k != nil {
		return k, nil
	}
	return nil, fmt.Errorf("key %s not found", full)
}

func walk(b *bbolt.Bucket, segs []string) *bbolt.Bucket {
	for _, s := range segs {
		if b = b.Bucket(subkeyBucket(format.FoldName(s))); b == nil {
			return nil
		}
	}
	return b
}

func putMeta(b *bbolt.Bucket, name string, ft uint64) error {
	raw, err := encodeRecord(&keyRecord{Name: name, LastWrite: ft})
	if err != nil {
		return err
	}
	return b.Put(metaKey, raw)
}

func touchMeta(b *bbolt.Bucket, ft uint64) error {
	var meta keyRecord
	if raw := b.Get(metaKey); raw != nil {
		if err := decodeRecord(raw, &meta); err != nil {
			return err
		}
	}
	return putMeta(b, meta.Name, ft)
}

// -----------------------------------------------------------------------------
// Load
// -----------------------------------------------------------------------------

// Load replays the database: each key as an OpCreateKey, then its values in
// their original order, then its subkeys.
func (db *DB) Load(fn func(op types.EditOp, lastWrite time.Time) error) error {
	var keys, values int
	err := db.bdb.View(func(tx *bbolt.Tx) error {
		for _, r := range types.Roots() {
			b := tx.Bucket([]byte(r.String()))
			if b == nil {
				continue
			}
			if err := db.loadKey(b, r.String(), true, fn, &keys, &values); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("boltstore: load: %w", err)
	}
	db.log.Debug("boltstore loaded", "keys", keys, "values", values)
	return nil
}

func (db *DB) loadKey(b *bbolt.Bucket, path string, isRoot bool, fn func(types.EditOp, time.Time) error, keys, values *int) error {
	var meta keyRecord
	if raw := b.Get(metaKey); raw != nil {
		if err := decodeRecord(raw, &meta); err != nil {
			return fmt.Errorf("%s: meta: %w", path, err)
		}
	}
	lastWrite := format.FiletimeToTime(meta.LastWrite)

	if !isRoot {
		*keys++
		if err := fn(types.OpCreateKey{Path: path}, lastWrite); err != nil {
			return err
		}
	}

	var recs []valueRecord
	var children [][]byte
	c := b.Cursor()
	for k, v := c.First(); k != nil; k, v = c.Next() {
		switch {
		case v == nil && bytes.HasPrefix(k, subkeyPrefix):
			children = append(children, append([]byte(nil), k...))
		case bytes.HasPrefix(k, valuePrefix):
			var rec valueRecord
			if err := decodeRecord(v, &rec); err != nil {
				return fmt.Errorf("%s: value %q: %w", path, k[len(valuePrefix):], err)
			}
			recs = append(recs, rec)
		}
	}

	slices.SortFunc(recs, func(a, b valueRecord) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	for _, rec := range recs {
		data, err := decompress(rec.Data, rec.Codec, int(rec.RawLen))
		if err != nil {
			return fmt.Errorf("%s: value %q: %w", path, rec.Name, err)
		}
		*values++
		op := types.OpSetValue{Path: path, Name: rec.Name, Type: types.RegType(rec.Type), Data: data}
		if err := fn(op, lastWrite); err != nil {
			return err
		}
	}

	for _, name := range children {
		child := b.Bucket(name)
		var cm keyRecord
		if raw := child.Get(metaKey); raw != nil {
			if err := decodeRecord(raw, &cm); err != nil {
				return fmt.Errorf("%s: meta: %w", path, err)
			}
		}
		if err := db.loadKey(child, format.JoinPath(path, cm.Name), false, fn, keys, values); err != nil {
			return err
		}
	}
	return nil
}
