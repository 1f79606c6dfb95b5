// Package dispatch implements the RPC routing table of §4.4: a
// (namespace, local-name) -> handler table with registration-order
// fan-out and a shared response buffer, grounded on the teacher's
// procedure-lookup dispatch tables in internal/protocol/portmap (a
// map[proc]Entry resolved per incoming call) generalized from a fixed
// RPC-number keyspace to the dynamic (namespace, name) keyspace NETCONF
// RPCs use.
package dispatch

import (
	"context"
	"sync"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/xmltree"
)

// Handler processes one matched RPC request, appending to or replacing
// resp as needed. A nil return means success; any non-nil return is a
// handler failure.
type Handler func(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer, arg any) error

// ResponseBuffer is shared by every handler invoked for one Call: each may
// append, replace, or leave it alone.
type ResponseBuffer struct {
	mu    sync.Mutex
	Nodes []*xmltree.Node
}

// Append adds n to the buffer.
func (b *ResponseBuffer) Append(n *xmltree.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Nodes = append(b.Nodes, n)
}

// Replace discards the buffer's current contents and sets it to nodes.
func (b *ResponseBuffer) Replace(nodes []*xmltree.Node) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Nodes = nodes
}

// Snapshot returns a copy of the buffer's current contents.
func (b *ResponseBuffer) Snapshot() []*xmltree.Node {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]*xmltree.Node, len(b.Nodes))
	copy(out, b.Nodes)
	return out
}

type entry struct {
	ns   string
	name string
	fn   Handler
	arg  any
}

// Table is the RPC routing table.
type Table struct {
	mu      sync.RWMutex
	entries []*entry
}

// NewTable returns an empty Table.
func NewTable() *Table { return &Table{} }

// Register appends a handler for (ns, name). Multiple entries may share a
// key; all are invoked, in registration order.
func (t *Table) Register(ns, name string, fn Handler, arg any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, &entry{ns: ns, name: name, fn: fn, arg: arg})
}

// Clear removes every entry registered under (ns, name) — a whole-table
// clear for that key.
func (t *Table) Clear(ns, name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	kept := t.entries[:0:0]
	for _, e := range t.entries {
		if e.ns == ns && e.name == name {
			continue
		}
		kept = append(kept, e)
	}
	t.entries = kept
}

// Call resolves req's local name and namespace (the element's prefix
// against its in-scope namespace declarations), invokes every entry whose
// (namespace, name) matches in registration order, and returns the number
// of handlers invoked: 0 if none matched, -1 on the first handler
// failure. A handler that returns a non-nil error with no usable message
// is itself a bug (§7 propagation rule) and is wrapped into a Fatal
// diagnostic naming the offending (ns, name) key.
func (t *Table) Call(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer) (int, error) {
	ns := ResolveNamespace(req)
	name := req.Name

	t.mu.RLock()
	matches := make([]*entry, 0, len(t.entries))
	for _, e := range t.entries {
		if e.ns == ns && e.name == name {
			matches = append(matches, e)
		}
	}
	t.mu.RUnlock()

	invoked := 0
	for _, e := range matches {
		err := e.fn(ctx, req, resp, e.arg)
		invoked++
		if err != nil {
			if err.Error() == "" {
				err = errs.New(errs.Fatal, "handler for (%s, %s) returned an error without a message", e.ns, e.name)
			}
			return -1, err
		}
	}
	return invoked, nil
}

// ResolveNamespace resolves req's namespace by walking req and its
// ancestors' NSDecl maps for req.Prefix (the empty string key holds the
// default namespace declaration).
func ResolveNamespace(req *xmltree.Node) string {
	for n := req; n != nil; n = n.Parent {
		if n.NSDecl == nil {
			continue
		}
		if uri, ok := n.NSDecl[req.Prefix]; ok {
			return uri
		}
	}
	return ""
}
