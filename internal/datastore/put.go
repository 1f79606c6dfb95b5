package datastore

import (
	"strings"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/schema"
	"github.com/yangconf/confd/internal/xmltree"
)

// Operation is an RFC 6241 edit-config operation.
type Operation string

const (
	OpMerge   Operation = "merge"
	OpReplace Operation = "replace"
	OpCreate  Operation = "create"
	OpDelete  Operation = "delete"
	OpRemove  Operation = "remove"
	OpNone    Operation = "none"
)

// Put implements the §4.7 put algorithm: a two-pass tree merge of tree
// into db's cache under op (overridable per-element by an "operation"
// attribute), followed by post-processing steps 1-5.
func (e *Engine) Put(db string, op Operation, tree *xmltree.Node) error {
	if tree == nil || tree.Name != "config" {
		return errs.New(errs.DB, "put: top-level element must be %q", "config")
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.ensureLoaded(db)
	if err != nil {
		return err
	}

	rootOp := op
	if v, ok := tree.Attr("operation"); ok {
		rootOp = Operation(v)
	}

	// Merge runs against a scratch clone of the cache, never the cache
	// itself: on any failure (identity violation, missing schema) the
	// caller's tree state must be left exactly as it was, not partially
	// mutated by whichever sibling happened to merge first.
	working := rec.cache.Clone()

	switch {
	case len(tree.Children) == 0 && (rootOp == OpReplace || rootOp == OpDelete):
		if rootOp == OpDelete && len(working.Children) == 0 {
			return errs.New(errs.DB, "delete: database %q is already empty", db)
		}
		purgeChildren(working)
	case rootOp == OpReplace:
		purgeChildren(working)
		if err := mergeContainerChildren(working, tree, OpMerge, e.oracle, nil); err != nil {
			return err
		}
	default:
		if err := mergeContainerChildren(working, tree, rootOp, e.oracle, nil); err != nil {
			return err
		}
	}

	xmltree.StripNone(working)
	working.ResetFlags(xmltree.FlagNone)
	pruneEmptyNonPresence(working, e.oracle, nil)
	applyOrderRecursive(working, e.oracle, nil)

	rec.cache = working
	size, err := e.persist(rec)
	if err != nil {
		return err
	}
	if e.auditSink != nil {
		if err := e.auditSink.RecordCommit(db, string(rootOp), rec.owner, size); err != nil {
			return err
		}
	}
	return nil
}

func purgeChildren(n *xmltree.Node) {
	for _, c := range n.Children {
		c.Parent = nil
	}
	n.Children = nil
}

// resolvedChild is one x1 child already matched against its x0 peer and
// its schema statement, computed during mergeContainerChildren's first
// (non-mutating) pass.
type resolvedChild struct {
	x0   *xmltree.Node
	st   *schema.Statement
	path []string
}

// mergeContainerChildren performs the §4.7 "two-pass child processing":
// pass one resolves every x1 child's identity match against x0 without
// mutating anything; pass two performs the recursive modification. This
// prevents an earlier mutation from invalidating a later identity match
// at the same tree level.
func mergeContainerChildren(x0, x1 *xmltree.Node, op Operation, oracle schema.Oracle, path []string) error {
	resolved := make([]resolvedChild, len(x1.Children))
	for i, c := range x1.Children {
		childPath := append(append([]string{}, path...), c.Name)
		st, ok := oracle.Statement(childPath)
		if !ok {
			return errs.New(errs.Yang, "no schema statement for %q", strings.Join(childPath, "/")).WithPath(strings.Join(childPath, "/"))
		}
		resolved[i] = resolvedChild{x0: findByIdentity(x0.Children, c, st), st: st, path: childPath}
	}
	for i, c := range x1.Children {
		childOp := op
		if v, ok := c.Attr("operation"); ok {
			childOp = Operation(v)
		}
		if _, err := mergeOne(x0, resolved[i].x0, c, resolved[i].st, childOp, oracle, resolved[i].path); err != nil {
			return err
		}
	}
	return nil
}

// findByIdentity finds, among x0Children, the node matching x1's schema
// identity: same name, and for a list entry, equal values for every
// schema-declared key leaf (§3 invariant 4).
func findByIdentity(x0Children []*xmltree.Node, x1 *xmltree.Node, st *schema.Statement) *xmltree.Node {
	for _, c := range x0Children {
		if c.Name != x1.Name {
			continue
		}
		if st != nil && st.Kind == schema.List {
			match := true
			for _, k := range st.Keys {
				var a, b string
				if ck := c.ChildByName(k); ck != nil {
					a = ck.Body
				}
				if xk := x1.ChildByName(k); xk != nil {
					b = xk.Body
				}
				if a != b {
					match = false
					break
				}
			}
			if !match {
				continue
			}
		}
		return c
	}
	return nil
}

// mergeOne applies op to the matched pair (x0, x1) under parent0,
// returning the node now occupying x0's slot (nil if it was removed or
// never created). x0 may be nil (no existing peer).
func mergeOne(parent0, x0, x1 *xmltree.Node, st *schema.Statement, op Operation, oracle schema.Oracle, path []string) (*xmltree.Node, error) {
	name := strings.Join(path, "/")

	if st.Kind == schema.Leaf || st.Kind == schema.LeafList {
		switch op {
		case OpCreate:
			if x0 != nil {
				return nil, errs.New(errs.DB, "create: %q already exists", name).WithPath(name)
			}
			x0 = xmltree.NewLeaf(x1.Name, x1.Body)
			x0.Schema = st
			parent0.AppendChild(x0)
			return x0, nil
		case OpDelete:
			if x0 == nil {
				return nil, errs.New(errs.DB, "delete: %q does not exist", name).WithPath(name)
			}
			parent0.RemoveChild(x0)
			return nil, nil
		case OpRemove:
			if x0 != nil {
				parent0.RemoveChild(x0)
			}
			return nil, nil
		case OpMerge, OpReplace, OpNone:
			if x0 == nil {
				x0 = xmltree.NewElement(x1.Name)
				x0.Schema = st
				parent0.AppendChild(x0)
				if op == OpNone {
					x0.Flags |= xmltree.FlagNone
				}
			}
			if x1.Body != "" {
				x0.Body = x1.Body
			}
			x0.Schema = st
			return x0, nil
		default:
			return nil, errs.New(errs.DB, "unknown operation %q", op).WithPath(name)
		}
	}

	switch op {
	case OpCreate:
		if x0 != nil {
			return nil, errs.New(errs.DB, "create: %q already exists", name).WithPath(name)
		}
		x0 = x1.Clone()
		x0.Schema = st
		parent0.AppendChild(x0)
		if err := xmltree.BindSchema(x0, oracle, path); err != nil {
			return nil, err
		}
		return x0, nil
	case OpDelete:
		if x0 == nil {
			return nil, errs.New(errs.DB, "delete: %q does not exist", name).WithPath(name)
		}
		parent0.RemoveChild(x0)
		return nil, nil
	case OpRemove:
		if x0 != nil {
			parent0.RemoveChild(x0)
		}
		return nil, nil
	case OpReplace:
		if x0 != nil {
			parent0.RemoveChild(x0)
		}
		x0 = x1.Clone()
		x0.Schema = st
		parent0.AppendChild(x0)
		if err := xmltree.BindSchema(x0, oracle, path); err != nil {
			return nil, err
		}
		return x0, nil
	case OpMerge, OpNone:
		if x0 == nil {
			x0 = xmltree.NewElement(x1.Name)
			x0.Schema = st
			parent0.AppendChild(x0)
			if op == OpNone {
				x0.Flags |= xmltree.FlagNone
			}
		}
		if st.Kind == schema.Anyxml {
			purgeChildren(x0)
			for _, c := range x1.Children {
				x0.AppendChild(c.Clone())
			}
			return x0, nil
		}
		if err := mergeContainerChildren(x0, x1, op, oracle, path); err != nil {
			return nil, err
		}
		return x0, nil
	default:
		return nil, errs.New(errs.DB, "unknown operation %q", op).WithPath(name)
	}
}

// pruneEmptyNonPresence removes, post-order, every non-presence container
// left with zero children by a merge — post-processing step 3 of put.
func pruneEmptyNonPresence(n *xmltree.Node, oracle schema.Oracle, path []string) {
	for _, c := range n.Children {
		childPath := append(append([]string{}, path...), c.Name)
		pruneEmptyNonPresence(c, oracle, childPath)
	}
	kept := n.Children[:0:0]
	for _, c := range n.Children {
		if c.Schema != nil && c.Schema.Kind == schema.Container && !c.Schema.Presence && len(c.Children) == 0 {
			c.Parent = nil
			continue
		}
		kept = append(kept, c)
	}
	n.Children = kept
}
