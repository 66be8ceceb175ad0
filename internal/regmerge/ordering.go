package regmerge

import (
	"cmp"
	"slices"
	"strings"

	"github.com/joshuapare/regkit/pkg/types"
)

// orderOps groups operations by key so each key is opened once.
//
//  1. Groups are ordered parents before children, then by path.
//  2. Within a group: DeleteKey, CreateKey, DeleteValue, SetValue.
//
// This is only equivalent to the input order after the sweep: no surviving
// op on a key precedes a delete of that key or an ancestor, and each
// (key, value) pair is written once.
//
// Example:
//
//	Input:
//	  SetValue(HKLM\Software\Test\Child, "A", ...)
//	  SetValue(HKLM\Software\Test, "B", ...)
//	  CreateKey(HKLM\Software\Test\Child)
//
//	Output:
//	  SetValue(HKLM\Software\Test, "B", ...)
//	  CreateKey(HKLM\Software\Test\Child)
//	  SetValue(HKLM\Software\Test\Child, "A", ...)
func orderOps(ops []types.EditOp) []types.EditOp {
	if len(ops) <= 1 {
		return ops
	}

	type opGroup struct {
		path  string
		depth int
		ops   []types.EditOp
	}

	groups := make(map[string]*opGroup)
	for _, op := range ops {
		path := normalizePath(opPath(op))
		g, ok := groups[path]
		if !ok {
			g = &opGroup{path: path, depth: strings.Count(path, `\`)}
			groups[path] = g
		}
		g.ops = append(g.ops, op)
	}

	sorted := make([]*opGroup, 0, len(groups))
	for _, g := range groups {
		sorted = append(sorted, g)
	}
	slices.SortFunc(sorted, func(a, b *opGroup) int {
		return cmp.Or(cmp.Compare(a.depth, b.depth), strings.Compare(a.path, b.path))
	})

	result := make([]types.EditOp, 0, len(ops))
	for _, g := range sorted {
		slices.SortStableFunc(g.ops, func(a, b types.EditOp) int {
			return cmp.Compare(opPriority(a), opPriority(b))
		})
		result = append(result, g.ops...)
	}
	return result
}

// opPriority assigns execution priority within a key; lower runs first.
func opPriority(op types.EditOp) int {
	switch op.(type) {
	case types.OpDeleteKey:
		return 0
	case types.OpCreateKey:
		return 1
	case types.OpDeleteValue:
		return 2
	case types.OpSetValue:
		return 3
	default:
		return 4
	}
}

func opPath(op types.EditOp) string {
	switch o := op.(type) {
	case types.OpCreateKey:
		return o.Path
	case types.OpDeleteKey:
		return o.Path
	case types.OpSetValue:
		return o.Path
	case types.OpDeleteValue:
		return o.Path
	default:
		return ""
	}
}
