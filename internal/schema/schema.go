// Package schema defines the external schema-oracle contract: the narrow
// interface the datastore engine, subtree filter, and tree helpers consult
// for node kind, key metadata, defaults, and canonical ordering. The YANG
// parser itself stays out of scope (spec §1) — this package only describes
// the shape of the oracle and ships an in-memory fake good enough to drive
// tests without a real YANG compiler on the other end.
package schema

import "strings"

// Kind classifies a schema statement bound to a tree node.
type Kind int

const (
	Container Kind = iota + 1
	List
	Leaf
	LeafList
	Anyxml
)

func (k Kind) String() string {
	switch k {
	case Container:
		return "container"
	case List:
		return "list"
	case Leaf:
		return "leaf"
	case LeafList:
		return "leaf-list"
	case Anyxml:
		return "anyxml"
	default:
		return "unknown"
	}
}

// Statement is the opaque schema backpointer a tree node resolves against
// the oracle. Lists carry an ordered key tuple; leafrefs carry the path
// expression they point at; containers distinguish presence from
// non-presence.
type Statement struct {
	Kind        Kind
	Keys        []string // ordered key-leaf names, populated for List
	LeafrefPath string   // populated for Leaf statements of type leafref
	Presence    bool     // populated for Container
	Config      bool     // false marks an operational (state) node
	Default     string   // populated for Leaf/LeafList with a schema default
	Order       int      // declared position among its parent's children
}

// Oracle is the external schema collaborator. Path identifies a node by the
// sequence of local names from the datastore root (exclusive of the
// synthetic "config" root element itself); a list entry contributes one
// path segment equal to the list's name, the same for every instance,
// since the oracle describes the schema, not a particular instance.
type Oracle interface {
	// Statement resolves the schema statement bound to the node at path.
	// ok is false when no statement is declared at that path (unknown
	// element — callers treat this as a yang-category error).
	Statement(path []string) (*Statement, bool)

	// ChildOrder returns the canonical declared order of children names
	// under path, used to re-sort children after a merge.
	ChildOrder(path []string) []string

	// Defaults returns the default values declared for direct leaf/
	// leaf-list children under path that the caller should fabricate
	// when absent, keyed by child name.
	Defaults(path []string) map[string]string
}

// key joins a path into the canonical lookup key used by MemoryOracle.
func key(path []string) string { return strings.Join(path, "/") }

// MemoryOracle is a test/reference Oracle backed by plain maps, grounded
// on the teacher's in-memory store fakes used to drive tests without a
// real backend.
type MemoryOracle struct {
	statements map[string]*Statement
	order      map[string][]string
	defaults   map[string]map[string]string
}

// NewMemoryOracle builds an empty oracle; use the Declare* methods to
// populate it before handing it to a test.
func NewMemoryOracle() *MemoryOracle {
	return &MemoryOracle{
		statements: make(map[string]*Statement),
		order:      make(map[string][]string),
		defaults:   make(map[string]map[string]string),
	}
}

// DeclareStatement binds a statement to path.
func (m *MemoryOracle) DeclareStatement(path []string, st *Statement) *MemoryOracle {
	m.statements[key(path)] = st
	return m
}

// DeclareOrder records the canonical child order under path.
func (m *MemoryOracle) DeclareOrder(path []string, names []string) *MemoryOracle {
	m.order[key(path)] = names
	return m
}

// DeclareDefault records a default value for a leaf under path.
func (m *MemoryOracle) DeclareDefault(path []string, leaf, value string) *MemoryOracle {
	d, ok := m.defaults[key(path)]
	if !ok {
		d = make(map[string]string)
		m.defaults[key(path)] = d
	}
	d[leaf] = value
	return m
}

func (m *MemoryOracle) Statement(path []string) (*Statement, bool) {
	st, ok := m.statements[key(path)]
	return st, ok
}

func (m *MemoryOracle) ChildOrder(path []string) []string {
	return m.order[key(path)]
}

func (m *MemoryOracle) Defaults(path []string) map[string]string {
	return m.defaults[key(path)]
}
