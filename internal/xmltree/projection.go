package xmltree

import "github.com/yangconf/confd/internal/schema"

// Project implements the §4.7 "marked-tree projection" step of get: a node
// flagged FlagMark is copied with its complete subtree; a node flagged
// FlagChange (but not FlagMark) is copied shallowly and its children are
// recursed into; list-key preservation copies every schema-declared key
// leaf of a list entry that is itself only FlagChange, even if the key
// leaf was not independently marked, so a projected list entry is always
// identifiable. Nodes carrying neither flag are omitted entirely. The
// returned tree carries the same flags as the originals (stripped by a
// separate ResetFlags(FlagMark|FlagChange) call per step 5, which also
// resets the source tree for idempotence).
func Project(root *Node) *Node {
	return projectNode(root)
}

func projectNode(n *Node) *Node {
	if n.Flags.Has(FlagMark) {
		return n.Clone()
	}

	out := &Node{
		Name:   n.Name,
		Kind:   n.Kind,
		Prefix: n.Prefix,
		Body:   n.Body,
		Flags:  n.Flags,
		Schema: n.Schema,
	}
	if n.NSDecl != nil {
		out.NSDecl = make(map[string]string, len(n.NSDecl))
		for k, v := range n.NSDecl {
			out.NSDecl[k] = v
		}
	}
	for _, a := range n.Attrs {
		out.Attrs = append(out.Attrs, &Node{Name: a.Name, Kind: a.Kind, Body: a.Body, Parent: out})
	}

	included := make(map[*Node]bool, len(n.Children))
	for _, c := range n.Children {
		if c.Flags.Has(FlagMark) || c.Flags.Has(FlagChange) {
			out.AppendChild(projectNode(c))
			included[c] = true
		}
	}

	if n.Schema != nil && n.Schema.Kind == schema.List {
		for _, keyName := range n.Schema.Keys {
			for _, c := range n.Children {
				if c.Name != keyName || included[c] {
					continue
				}
				out.AppendChild(c.Clone())
				included[c] = true
				break
			}
		}
	}

	return out
}
