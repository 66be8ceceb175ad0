package memstore

import (
	"time"

	"github.com/joshuapare/regkit/pkg/types"
)

// Batch is a group of edits that must become durable together. An
// untransacted call produces a batch of one; a committed transaction
// produces its whole log.
type Batch struct {
	Ops  []types.EditOp
	Time time.Time
}

// Persister makes edits durable. Apply is called before the edits reach the
// in-memory tree; an error rejects them.
type Persister interface {
	Apply(b Batch) error
}

// Loader is implemented by persisters that can rebuild a tree. Load calls fn
// with edits that recreate every key and value, parents before children.
type Loader interface {
	Load(fn func(op types.EditOp, lastWrite time.Time) error) error
}
