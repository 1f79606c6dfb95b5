// Package filter implements the RFC 6241 §6 subtree filter of §4.6:
// destructively narrowing a configuration tree in place to exactly the
// subset matched by a filter tree. This is a pure tree-walk with no
// natural third-party library surface in the retrieved pack — grounded
// directly on the algorithm of original_source's
// apps/netconf/netconf_filter.c, not on any teacher file.
package filter

import "github.com/yangconf/confd/internal/xmltree"

// Apply narrows configRoot in place to the subset selected by filterRoot,
// returning true if configRoot itself should be purged by the caller (the
// "remove-me" propagation of §4.6). A nil filterRoot, or one with no
// children and no attributes, is the "empty filter" case: select nothing.
// Every child of configRoot is purged and configRoot itself is kept, so
// the result is an empty root and Apply returns false.
func Apply(filterRoot, configRoot *xmltree.Node) bool {
	if filterRoot == nil || (len(filterRoot.Children) == 0 && len(filterRoot.Attrs) == 0) {
		configRoot.Children = nil
		return false
	}
	return applyNode(filterRoot, configRoot)
}

// applyNode evaluates one matched (filter, config) pair, per §4.6's
// classification: Selection (no element children, no body) keeps the
// whole config subtree; Content match (leaf with body) requires an equal
// peer body; Containment (element children present) recurses. Attribute
// matches on f are checked first, regardless of classification.
func applyNode(f, c *xmltree.Node) bool {
	for _, fa := range f.Attrs {
		cv, ok := c.Attr(fa.Name)
		if !ok || cv != fa.Body {
			return true
		}
	}

	if len(f.Children) == 0 {
		if f.Body == "" {
			return false // Selection: keep the whole subtree.
		}
		return c.Body != f.Body // Content match.
	}

	// Containment: every content-match child of f must have a present,
	// equal-bodied peer in c, or the whole pairing fails.
	var narrowing []*xmltree.Node
	for _, fc := range f.Children {
		if isContentMatch(fc) {
			cc := c.ChildByName(fc.Name)
			if cc == nil || cc.Body != fc.Body {
				return true
			}
			continue
		}
		narrowing = append(narrowing, fc)
	}

	// No containment/selection children remain: the content-match
	// conditions above are gates on whether c is selected at all, not a
	// further narrowing of its contents — keep c whole (§4.6 scenario:
	// matching a list entry by a key's content and returning it in full).
	if len(narrowing) == 0 {
		return false
	}

	kept := c.Children[:0:0]
	for _, cc := range c.Children {
		if matchesAny(f.Children, cc) {
			kept = append(kept, cc)
		} else {
			cc.Parent = nil
		}
	}
	c.Children = kept
	return len(kept) == 0
}

func isContentMatch(f *xmltree.Node) bool {
	return len(f.Children) == 0 && f.Body != ""
}

// matchesAny finds, among fChildren, the first one named like cc whose
// recursive evaluation does not remove cc, mutating cc's subtree in place
// when it is kept (containment narrowing happens as a side effect of the
// recursive applyNode call).
func matchesAny(fChildren []*xmltree.Node, cc *xmltree.Node) bool {
	for _, fc := range fChildren {
		if fc.Name != cc.Name {
			continue
		}
		if !applyNode(fc, cc) {
			return true
		}
	}
	return false
}
