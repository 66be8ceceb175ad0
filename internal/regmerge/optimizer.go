package regmerge

import (
	"strings"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/pkg/types"
)

// Optimize rewrites a list of EditOps, as produced by parsing one or more
// .reg files in order, into a shorter list with the same final effect.
//
// It scans right to left so the first op seen for each (key, value) pair is
// the one that wins, and every DeleteKey seen so far hides the ops it would
// undo. The input is expected to come from the .reg parser, where every
// value op follows a CreateKey of its key.
//
// Example:
//
//	ops := []types.EditOp{
//	    types.OpSetValue{Path: `HKLM\Software\Test`, Name: "Value", Data: v1},
//	    types.OpSetValue{Path: `HKLM\Software\Test`, Name: "Value", Data: v2},
//	}
//	optimized, stats := Optimize(ops, DefaultOptimizerOptions())
//	// optimized holds only the v2 write; stats.DedupedSetValue == 1
func Optimize(ops []types.EditOp, opts OptimizerOptions) ([]types.EditOp, Stats) {
	stats := Stats{InputOps: len(ops)}
	if len(ops) == 0 {
		return ops, stats
	}

	optimized := ops
	if opts.Dedup || opts.DeleteShadowing || opts.SubtreeDeletes {
		s := &sweeper{
			opts:    opts,
			stats:   &stats,
			kept:    make(map[opKey]bool),
			deleted: make(map[string]*deletion),
		}
		optimized = s.sweep(ops)
	}

	// reordering is only safe once duplicates and shadowed ops are gone
	if opts.Ordering && opts.Dedup && opts.DeleteShadowing {
		optimized = orderOps(optimized)
	}

	stats.OutputOps = len(optimized)
	return optimized, stats
}

type opKind uint8

const (
	keyOp opKind = iota
	valueOp
)

// opKey identifies what an op writes: a key, or one value of a key.
type opKey struct {
	kind opKind
	path string // normalized
	name string // folded value name
}

// deletion is a DeleteKey seen during the sweep.
type deletion struct {
	path      string // as written in the op
	idx       int    // position in the input
	shadowing bool   // an earlier op under it was dropped
}

type sweeper struct {
	opts    OptimizerOptions
	stats   *Stats
	kept    map[opKey]bool
	deleted map[string]*deletion
}

func (s *sweeper) sweep(ops []types.EditOp) []types.EditOp {
	// built newest first, reversed at the end
	result := make([]types.EditOp, 0, len(ops))
	dels := make(map[int]*deletion)

	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		switch o := op.(type) {
		case types.OpSetValue:
			if !s.keep(opKey{valueOp, normalizePath(o.Path), format.FoldName(o.Name)}, true) {
				continue
			}
		case types.OpDeleteValue:
			if !s.keep(opKey{valueOp, normalizePath(o.Path), format.FoldName(o.Name)}, false) {
				continue
			}
		case types.OpCreateKey:
			if !s.keep(opKey{kind: keyOp, path: normalizePath(o.Path)}, true) {
				continue
			}
		case types.OpDeleteKey:
			path := normalizePath(o.Path)
			if s.opts.SubtreeDeletes && underDeleted(path, s.deleted) != nil {
				s.stats.SubtreeOptimized++
				continue
			}
			d := &deletion{path: o.Path, idx: i}
			s.deleted[path] = d
			dels[len(result)] = d
		}
		result = append(result, op)
	}

	out := make([]types.EditOp, 0, len(result))
	for i := len(result) - 1; i >= 0; i-- {
		// a dropped op would have created the deleted key's ancestors
		if d := dels[i]; d != nil && d.shadowing {
			if parent, ok := parentPath(d.path); ok {
				out = append(out, types.OpCreateKey{Path: parent})
				s.stats.ParentsKept++
			}
			d.shadowing = false
		}
		out = append(out, result[i])
	}
	return out
}

// keep reports whether an op writing k survives, and records it if so.
// creates is set for ops that bring k's key and its ancestors into being.
func (s *sweeper) keep(k opKey, creates bool) bool {
	if d := underDeleted(k.path, s.deleted); d != nil {
		if !s.opts.DeleteShadowing {
			// a later write does not stand in for this one across a delete
			return true
		}
		if creates {
			s.shadow(d)
		}
		s.stats.ShadowedByDelete++
		return false
	}
	if s.opts.Dedup && s.kept[k] {
		if k.kind == valueOp {
			s.stats.DedupedSetValue++
		}
		return false
	}
	s.kept[k] = true
	return true
}

// shadow records that an op dropped under d would have created d's
// ancestors. When a later deletion removes d's parent as well, the
// ancestors only need to exist above that one.
func (s *sweeper) shadow(d *deletion) {
	for {
		parent, ok := parentPath(d.path)
		if !ok {
			break
		}
		next := underDeleted(normalizePath(parent), s.deleted)
		if next == nil {
			break
		}
		d = next
	}
	d.shadowing = true
}

// underDeleted returns the earliest pending deletion covering path (the
// path itself or an ancestor), or nil. deleted holds, per path, the
// nearest DeleteKey after the current sweep position.
func underDeleted(path string, deleted map[string]*deletion) *deletion {
	var found *deletion
	for {
		if d, ok := deleted[path]; ok && (found == nil || d.idx < found.idx) {
			found = d
		}
		idx := strings.LastIndexByte(path, '\\')
		if idx <= 0 {
			return found
		}
		path = path[:idx]
	}
}

// parentPath returns the parent of a full key path unless that parent is a
// root key, which always exists.
func parentPath(path string) (string, bool) {
	_, rel, ok := types.SplitRootPath(strings.TrimSuffix(path, `\`))
	if !ok || !strings.Contains(rel, `\`) {
		return "", false
	}
	path = strings.TrimSuffix(path, `\`)
	return path[:strings.LastIndexByte(path, '\\')], true
}

// normalizePath converts a key path to its comparison form: the long root
// name followed by the folded relative path. HKLM\Software\Test and
// HKEY_LOCAL_MACHINE\SOFTWARE\test compare equal; HKCU\Software\Test does
// not.
func normalizePath(path string) string {
	root, rel, ok := types.SplitRootPath(path)
	if !ok {
		return format.FoldName(path)
	}
	rel = strings.TrimSuffix(rel, `\`)
	if rel == "" {
		return root.String()
	}
	return root.String() + `\` + format.FoldName(rel)
}
