// Package xmltree implements the universal configuration tree node (§3) and
// the structural helpers (identity, list-run sorting, NONE stripping,
// duplicate-sibling detection) shared by the subtree filter and the
// datastore engine. The node shape generalizes the teacher's named, typed,
// parent-linked tree object to a schema-bound XML/YANG tree.
package xmltree

import (
	"fmt"
	"sort"
	"strings"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/schema"
)

// Kind distinguishes the three node flavours of §3.
type Kind int

const (
	KindElement Kind = iota + 1
	KindAttribute
	KindBody
)

func (k Kind) String() string {
	switch k {
	case KindElement:
		return "element"
	case KindAttribute:
		return "attribute"
	case KindBody:
		return "body"
	default:
		return "unknown"
	}
}

// Flags is the transient bit-mask carried by a node during get/put.
type Flags uint8

const (
	// FlagMark marks a node directly matched by an xpath result or a
	// merge target.
	FlagMark Flags = 1 << iota
	// FlagChange marks an ancestor of a marked node.
	FlagChange
	// FlagNone marks a node fabricated only to satisfy a "none"/"merge"
	// operation that carried no payload; removed unless a descendant
	// gives it substance.
	FlagNone
)

func (f Flags) Has(bit Flags) bool { return f&bit != 0 }

// Node is the universal tree container of §3. Children is owned by the
// node; Parent is a non-owning back-reference set by the owning append,
// never a second ownership edge — arena/index representation per DESIGN
// NOTES §9, realized here as ordinary Go pointers with no cycle that the
// GC or a recursive free would need to special-case.
type Node struct {
	Name   string
	Kind   Kind
	Prefix string

	// NSDecl holds xmlns/xmlns:prefix declarations in scope at this
	// element, prefix -> URI ("" key for the default namespace).
	NSDecl map[string]string

	// Attrs holds attribute children (Kind == KindAttribute), valid on
	// element nodes only.
	Attrs []*Node

	// Body holds the attribute value (Kind == KindAttribute) or the
	// element's text content when the element has no element children
	// (Kind == KindElement acting as a leaf) or an explicit body node's
	// text (Kind == KindBody).
	Body string

	// Children holds ordered element/body children; order is meaningful
	// per §3.
	Children []*Node

	Parent *Node
	Flags  Flags
	Schema *schema.Statement
}

// NewElement constructs a bare element node.
func NewElement(name string) *Node {
	return &Node{Name: name, Kind: KindElement}
}

// NewLeaf constructs an element node carrying only text content.
func NewLeaf(name, body string) *Node {
	return &Node{Name: name, Kind: KindElement, Body: body}
}

// AppendChild appends child to n's Children, setting child's Parent.
func (n *Node) AppendChild(child *Node) {
	child.Parent = n
	n.Children = append(n.Children, child)
}

// RemoveChild removes child from n's Children by identity (pointer
// equality); a no-op if child is not a direct child of n.
func (n *Node) RemoveChild(child *Node) {
	for i, c := range n.Children {
		if c == child {
			n.Children = append(n.Children[:i], n.Children[i+1:]...)
			child.Parent = nil
			return
		}
	}
}

// SetAttr sets (or replaces) an attribute by name.
func (n *Node) SetAttr(name, value string) {
	for _, a := range n.Attrs {
		if a.Name == name {
			a.Body = value
			return
		}
	}
	n.Attrs = append(n.Attrs, &Node{Name: name, Kind: KindAttribute, Body: value, Parent: n})
}

// Attr returns the named attribute's value.
func (n *Node) Attr(name string) (string, bool) {
	for _, a := range n.Attrs {
		if a.Name == name {
			return a.Body, true
		}
	}
	return "", false
}

// ChildByName returns the first child with the given name.
func (n *Node) ChildByName(name string) *Node {
	for _, c := range n.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// ChildrenByName returns every child with the given name, in order.
func (n *Node) ChildrenByName(name string) []*Node {
	var out []*Node
	for _, c := range n.Children {
		if c.Name == name {
			out = append(out, c)
		}
	}
	return out
}

// KeyValues returns, in schema key order, the body text of this node's
// key-leaf children. Used by list entries to compute Identity().
func (n *Node) KeyValues() []string {
	if n.Schema == nil || n.Schema.Kind != schema.List {
		return nil
	}
	vals := make([]string, len(n.Schema.Keys))
	for i, k := range n.Schema.Keys {
		if c := n.ChildByName(k); c != nil {
			vals[i] = c.Body
		}
	}
	return vals
}

// Identity returns the §3 invariant-4 identity of a node: name alone for
// containers/leaves, name plus the key tuple for list entries.
func (n *Node) Identity() string {
	if n.Schema != nil && n.Schema.Kind == schema.List {
		return n.Name + "[" + strings.Join(n.KeyValues(), ",") + "]"
	}
	return n.Name
}

// Path walks Parent back-references to the root, returning the sequence of
// local names from (but excluding) the datastore's synthetic "config"
// root, suitable for passing to schema.Oracle.
func (n *Node) Path() []string {
	var names []string
	for cur := n; cur != nil && cur.Parent != nil; cur = cur.Parent {
		names = append([]string{cur.Name}, names...)
	}
	return names
}

// Clone produces a deep structural copy of n (and its entire subtree),
// with no Parent set on the returned root — callers attach it via
// AppendChild. Used by Engine.Copy for a true deep clone rather than a
// parse/reserialize round trip, and by put's subtree-rebuild path.
func (n *Node) Clone() *Node {
	if n == nil {
		return nil
	}
	clone := &Node{
		Name:   n.Name,
		Kind:   n.Kind,
		Prefix: n.Prefix,
		Body:   n.Body,
		Flags:  n.Flags,
		Schema: n.Schema,
	}
	if n.NSDecl != nil {
		clone.NSDecl = make(map[string]string, len(n.NSDecl))
		for k, v := range n.NSDecl {
			clone.NSDecl[k] = v
		}
	}
	for _, a := range n.Attrs {
		clone.Attrs = append(clone.Attrs, &Node{Name: a.Name, Kind: a.Kind, Body: a.Body, Parent: clone})
	}
	for _, c := range n.Children {
		clone.AppendChild(c.Clone())
	}
	return clone
}

// ResetFlags clears Flags recursively; used by get/put steps that require
// idempotence across repeated calls.
func (n *Node) ResetFlags(mask Flags) {
	n.Flags &^= mask
	for _, c := range n.Children {
		c.ResetFlags(mask)
	}
}

// MarkAncestors sets FlagChange on every ancestor of n (not n itself).
func (n *Node) MarkAncestors() {
	for p := n.Parent; p != nil; p = p.Parent {
		p.Flags |= FlagChange
	}
}

// SortListRun stably groups children so that every run of list entries
// sharing the same Identity() becomes contiguous, preserving the relative
// order of first occurrence among distinct identities (§3 invariant:
// "children of a list are grouped by identity ... form a contiguous run
// after sorting"). Non-list siblings are unaffected by the grouping (their
// Identity() is unique per name already, per invariant 4, so grouping is a
// no-op for them).
func SortListRun(children []*Node) []*Node {
	firstSeen := make(map[string]int, len(children))
	order := make([]string, 0, len(children))
	buckets := make(map[string][]*Node, len(children))
	for i, c := range children {
		id := c.Identity()
		if _, ok := firstSeen[id]; !ok {
			firstSeen[id] = i
			order = append(order, id)
		}
		buckets[id] = append(buckets[id], c)
	}
	sort.SliceStable(order, func(i, j int) bool {
		return firstSeen[order[i]] < firstSeen[order[j]]
	})
	out := make([]*Node, 0, len(children))
	for _, id := range order {
		out = append(out, buckets[id]...)
	}
	return out
}

// StripNone removes, recursively, every node still flagged FlagNone whose
// entire subtree is also FlagNone (post-processing step 1 of §4.7's put
// algorithm: "touched by merge but carry no payload").
func StripNone(n *Node) {
	kept := n.Children[:0:0]
	for _, c := range n.Children {
		StripNone(c)
		if subtreeAllNone(c) {
			c.Parent = nil
			continue
		}
		kept = append(kept, c)
	}
	n.Children = kept
}

func subtreeAllNone(n *Node) bool {
	if !n.Flags.Has(FlagNone) {
		return false
	}
	for _, c := range n.Children {
		if !subtreeAllNone(c) {
			return false
		}
	}
	return true
}

// NoDuplicateSiblings checks invariant 4 — no two siblings share an
// Identity() — returning an errs.Error (category XML) naming the first
// violation found.
func NoDuplicateSiblings(n *Node) error {
	seen := make(map[string]bool, len(n.Children))
	for _, c := range n.Children {
		id := c.Identity()
		if seen[id] {
			return errs.New(errs.XML, "duplicate sibling identity %q under %q", id, n.Name).WithPath(strings.Join(n.Path(), "/"))
		}
		seen[id] = true
		if err := NoDuplicateSiblings(c); err != nil {
			return err
		}
	}
	return nil
}

// String renders a node for debugging/logging; not used as a serializer
// (see internal/serial for the opaque XML/JSON codec).
func (n *Node) String() string {
	if n.Kind == KindAttribute {
		return fmt.Sprintf("@%s=%q", n.Name, n.Body)
	}
	return fmt.Sprintf("<%s>", n.Name)
}
