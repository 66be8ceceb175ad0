package memstore

import (
	"slices"
	"time"

	"github.com/joshuapare/regkit/internal/format"
	"github.com/joshuapare/regkit/pkg/types"
)

// node is one key. Names are case-preserving; lookups use the folded form.
type node struct {
	name      string
	parent    *node
	root      types.RootKey
	children  map[string]*node // folded name -> child
	order     []string         // sorted folded names; nil when stale
	values    []*value         // insertion order, as the native store enumerates them
	lastWrite time.Time
	protected bool
	deleted   bool

	// store generations of the last change, for transaction conflict checks
	createGen uint64
	valueGen  uint64
	childGen  uint64
	gone      map[string]uint64 // folded child name -> generation it was deleted
}

type value struct {
	name string
	fold string
	data types.RegValue
}

func newNode(name string, parent *node, root types.RootKey, now time.Time) *node {
	return &node{
		name:      name,
		parent:    parent,
		root:      root,
		children:  make(map[string]*node),
		lastWrite: now,
	}
}

func (n *node) child(name string) *node {
	return n.children[format.FoldName(name)]
}

func (n *node) lookup(segs []string) *node {
	cur := n
	for _, s := range segs {
		cur = cur.child(s)
		if cur == nil {
			return nil
		}
	}
	return cur
}

// sortedChildren returns children in the order RegEnumKeyEx reports them:
// case-insensitive by name.
func (n *node) sortedChildren() []string {
	if n.order == nil {
		n.order = make([]string, 0, len(n.children))
		for k := range n.children {
			n.order = append(n.order, k)
		}
		slices.Sort(n.order)
	}
	return n.order
}

func (n *node) addChild(name string, now time.Time, gen uint64) *node {
	c := newNode(name, n, n.root, now)
	c.createGen = gen
	n.children[format.FoldName(name)] = c
	n.order = nil
	n.lastWrite = now
	n.childGen = gen
	return c
}

func (n *node) removeChild(c *node, now time.Time, gen uint64) {
	fold := format.FoldName(c.name)
	delete(n.children, fold)
	n.order = nil
	c.deleted = true
	if n.gone == nil {
		n.gone = make(map[string]uint64)
	}
	n.gone[fold] = gen
	n.lastWrite = now
	n.childGen = gen
}

func (n *node) findValue(name string) (int, *value) {
	fold := format.FoldName(name)
	for i, v := range n.values {
		if v.fold == fold {
			return i, v
		}
	}
	return -1, nil
}

// setValue replaces in place so an overwritten value keeps its enumeration slot.
func (n *node) setValue(name string, data types.RegValue, now time.Time, gen uint64) {
	if _, v := n.findValue(name); v != nil {
		v.data = data
	} else {
		n.values = append(n.values, &value{name: name, fold: format.FoldName(name), data: data})
	}
	n.touch(now, gen)
}

func (n *node) deleteValue(name string, now time.Time, gen uint64) bool {
	i, _ := n.findValue(name)
	if i < 0 {
		return false
	}
	n.values = slices.Delete(n.values, i, i+1)
	n.touch(now, gen)
	return true
}

func (n *node) touch(now time.Time, gen uint64) {
	n.lastWrite = now
	n.valueGen = gen
}

// names returns the path segments from the root down to n.
func (n *node) names() []string {
	var segs []string
	for cur := n; cur.parent != nil; cur = cur.parent {
		segs = append(segs, cur.name)
	}
	slices.Reverse(segs)
	return segs
}

// fullPath is the absolute path used in EditOps: root name + segments.
func (n *node) fullPath() string {
	return format.JoinPath(append([]string{n.root.String()}, n.names()...)...)
}

func (n *node) depth() int {
	d := 0
	for cur := n; cur.parent != nil; cur = cur.parent {
		d++
	}
	return d
}

func (n *node) info() types.KeyMetadata {
	md := types.KeyMetadata{
		SubKeys:   uint32(len(n.children)),
		Values:    uint32(len(n.values)),
		LastWrite: n.lastWrite,
	}
	for _, c := range n.children {
		md.MaxSubKeyLen = max(md.MaxSubKeyLen, uint32(format.UTF16Len(c.name)))
	}
	for _, v := range n.values {
		md.MaxValueNameLen = max(md.MaxValueNameLen, uint32(format.UTF16Len(v.name)))
		md.MaxValueLen = max(md.MaxValueLen, uint32(len(v.data.Bytes)))
	}
	return md
}

// clone deep-copies the subtree. Value payloads are shared: they are never
// mutated in place, only replaced.
func (n *node) clone(parent *node) *node {
	c := &node{
		name:      n.name,
		parent:    parent,
		root:      n.root,
		children:  make(map[string]*node, len(n.children)),
		values:    make([]*value, len(n.values)),
		lastWrite: n.lastWrite,
		protected: n.protected,
		createGen: n.createGen,
		valueGen:  n.valueGen,
		childGen:  n.childGen,
	}
	for k, ch := range n.children {
		c.children[k] = ch.clone(c)
	}
	for i, v := range n.values {
		cp := *v
		c.values[i] = &cp
	}
	return c
}

type forest map[types.RootKey]*node

func newForest(now time.Time) forest {
	f := make(forest)
	for _, r := range types.Roots() {
		root := newNode(r.String(), nil, r, now)
		root.protected = r.Performance()
		f[r] = root
	}
	return f
}

func (f forest) clone() forest {
	out := make(forest, len(f))
	for r, n := range f {
		out[r] = n.clone(nil)
	}
	return out
}

// resolve maps an absolute EditOp path to its root node and segments.
func (f forest) resolve(full string) (*node, []string, error) {
	root, rest, ok := types.SplitRootPath(full)
	if !ok {
		return nil, nil, types.ERROR_BAD_PATHNAME
	}
	segs, perr := format.SplitPath(rest, types.MaxKeyNameLen)
	if perr != format.PathOK {
		return nil, nil, pathErrno(perr)
	}
	return f[root], segs, nil
}

// find returns the node at full, or the deepest existing ancestor with
// found=false.
func (f forest) find(full string) (n *node, found bool, err error) {
	root, segs, err := f.resolve(full)
	if err != nil {
		return nil, false, err
	}
	cur := root
	for _, s := range segs {
		next := cur.child(s)
		if next == nil {
			return cur, false, nil
		}
		cur = next
	}
	return cur, true, nil
}

// apply performs one edit against the forest. Every mutation in the store,
// transacted or not, goes through here.
func (f forest) apply(op types.EditOp, now time.Time, gen uint64) error {
	switch op := op.(type) {
	case types.OpCreateKey:
		root, segs, err := f.resolve(op.Path)
		if err != nil {
			return err
		}
		cur := root
		for _, s := range segs {
			next := cur.child(s)
			if next == nil {
				next = cur.addChild(s, now, gen)
			}
			cur = next
		}
		return nil

	case types.OpDeleteKey:
		n, found, err := f.find(op.Path)
		if err != nil {
			return err
		}
		if !found || n.parent == nil {
			return types.ERROR_FILE_NOT_FOUND
		}
		if len(n.children) > 0 {
			return types.ERROR_KEY_HAS_CHILDREN
		}
		n.parent.removeChild(n, now, gen)
		return nil

	case types.OpSetValue:
		n, found, err := f.find(op.Path)
		if err != nil {
			return err
		}
		if !found {
			return types.ERROR_FILE_NOT_FOUND
		}
		n.setValue(op.Name, types.RegValue{Bytes: op.Data, Type: op.Type}, now, gen)
		return nil

	case types.OpDeleteValue:
		n, found, err := f.find(op.Path)
		if err != nil {
			return err
		}
		if !found || !n.deleteValue(op.Name, now, gen) {
			return types.ERROR_FILE_NOT_FOUND
		}
		return nil

	default:
		return types.ERROR_INVALID_PARAMETER
	}
}

// opPath is the key path an edit touches.
func opPath(op types.EditOp) string {
	switch op := op.(type) {
	case types.OpCreateKey:
		return op.Path
	case types.OpDeleteKey:
		return op.Path
	case types.OpSetValue:
		return op.Path
	case types.OpDeleteValue:
		return op.Path
	}
	return ""
}

func pathErrno(perr format.PathError) types.Errno {
	if perr == format.PathBadName {
		return types.ERROR_INVALID_NAME
	}
	return types.ERROR_BAD_PATHNAME
}

func splitPath(path string) ([]string, error) {
	segs, perr := format.SplitPath(path, types.MaxKeyNameLen)
	if perr != format.PathOK {
		return nil, pathErrno(perr)
	}
	return segs, nil
}
