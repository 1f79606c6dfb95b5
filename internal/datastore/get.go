package datastore

import (
	"sort"

	"github.com/yangconf/confd/internal/schema"
	"github.com/yangconf/confd/internal/xmltree"
)

// Get implements the §4.7 get algorithm: locate, evaluate, mark,
// project, reset flags, optionally prune operational nodes, apply
// defaults, re-order to schema order.
func (e *Engine) Get(db, xpath string, configOnly bool) (*xmltree.Node, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	rec, err := e.ensureLoaded(db)
	if err != nil {
		return nil, err
	}
	tree := rec.cache

	steps, err := ParseXPath(xpath)
	if err != nil {
		return nil, err
	}
	matched := Evaluate(tree, steps)
	for _, m := range matched {
		m.Flags |= xmltree.FlagMark
		m.MarkAncestors()
	}

	projected := xmltree.Project(tree)
	tree.ResetFlags(xmltree.FlagMark | xmltree.FlagChange)
	projected.ResetFlags(xmltree.FlagMark | xmltree.FlagChange)

	if configOnly {
		pruneOperational(projected)
	}
	if e.oracle != nil {
		applyDefaults(projected, e.oracle, nil)
		applyOrderRecursive(projected, e.oracle, nil)
	}
	return projected, nil
}

// pruneOperational removes, recursively, every node whose schema marks
// it as operational (config=false) — step 6 of get.
func pruneOperational(n *xmltree.Node) {
	kept := n.Children[:0:0]
	for _, c := range n.Children {
		if c.Schema != nil && !c.Schema.Config {
			c.Parent = nil
			continue
		}
		pruneOperational(c)
		kept = append(kept, c)
	}
	n.Children = kept
}

// applyDefaults fabricates missing leaf/leaf-list children declared with
// a schema default under n — step 7 of get.
func applyDefaults(n *xmltree.Node, oracle schema.Oracle, path []string) {
	defaults := oracle.Defaults(path)
	for name, val := range defaults {
		if n.ChildByName(name) != nil {
			continue
		}
		leaf := xmltree.NewLeaf(name, val)
		if st, ok := oracle.Statement(append(append([]string{}, path...), name)); ok {
			leaf.Schema = st
		}
		n.AppendChild(leaf)
	}
	for _, c := range n.Children {
		applyDefaults(c, oracle, append(append([]string{}, path...), c.Name))
	}
}

// applyOrderRecursive re-sorts n's children (and every descendant's) to
// the oracle's declared canonical order — step 8 of get, and the final
// re-sort of put's post-processing.
func applyOrderRecursive(n *xmltree.Node, oracle schema.Oracle, path []string) {
	if order := oracle.ChildOrder(path); len(order) > 0 {
		n.Children = reorderChildren(n.Children, order)
	}
	for _, c := range n.Children {
		applyOrderRecursive(c, oracle, append(append([]string{}, path...), c.Name))
	}
}

func reorderChildren(children []*xmltree.Node, order []string) []*xmltree.Node {
	pos := make(map[string]int, len(order))
	for i, name := range order {
		pos[name] = i
	}
	type keyed struct {
		n   *xmltree.Node
		key int
	}
	indexed := make([]keyed, len(children))
	for i, c := range children {
		if p, ok := pos[c.Name]; ok {
			indexed[i] = keyed{c, p}
		} else {
			indexed[i] = keyed{c, len(order)}
		}
	}
	sort.SliceStable(indexed, func(i, j int) bool { return indexed[i].key < indexed[j].key })
	out := make([]*xmltree.Node, len(children))
	for i, k := range indexed {
		out[i] = k.n
	}
	return out
}
