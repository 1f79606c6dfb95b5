package dispatch

import (
	"context"
	"testing"

	"github.com/yangconf/confd/internal/xmltree"
)

func TestCallInvokesExactlyOncePerMatch(t *testing.T) {
	table := NewTable()
	calls := 0
	table.Register("urn:test", "get-config", func(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer, arg any) error {
		calls++
		return nil
	}, nil)

	req := xmltree.NewElement("get-config")
	req.NSDecl = map[string]string{"": "urn:test"}

	resp := &ResponseBuffer{}
	n, err := table.Call(context.Background(), req, resp)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 1 || calls != 1 {
		t.Fatalf("n=%d calls=%d, want 1, 1", n, calls)
	}
}

func TestCallReturnsZeroWhenNoneMatch(t *testing.T) {
	table := NewTable()
	req := xmltree.NewElement("unknown-op")
	n, err := table.Call(context.Background(), req, &ResponseBuffer{})
	if err != nil || n != 0 {
		t.Fatalf("n=%d err=%v, want 0, nil", n, err)
	}
}

func TestCallMultipleHandlersShareRegistrationOrder(t *testing.T) {
	table := NewTable()
	var order []string
	table.Register("ns", "op", func(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer, arg any) error {
		order = append(order, "first")
		resp.Append(xmltree.NewLeaf("a", "1"))
		return nil
	}, nil)
	table.Register("ns", "op", func(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer, arg any) error {
		order = append(order, "second")
		resp.Append(xmltree.NewLeaf("b", "2"))
		return nil
	}, nil)

	req := xmltree.NewElement("op")
	req.NSDecl = map[string]string{"": "ns"}
	resp := &ResponseBuffer{}

	n, err := table.Call(context.Background(), req, resp)
	if err != nil || n != 2 {
		t.Fatalf("n=%d err=%v, want 2, nil", n, err)
	}
	if len(order) != 2 || order[0] != "first" || order[1] != "second" {
		t.Fatalf("order = %v, want [first second]", order)
	}
	if len(resp.Snapshot()) != 2 {
		t.Fatalf("expected shared response buffer to carry both appends")
	}
}

func TestCallReturnsMinusOneOnHandlerFailure(t *testing.T) {
	table := NewTable()
	table.Register("ns", "op", func(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer, arg any) error {
		return context.DeadlineExceeded
	}, nil)

	req := xmltree.NewElement("op")
	req.NSDecl = map[string]string{"": "ns"}
	n, err := table.Call(context.Background(), req, &ResponseBuffer{})
	if n != -1 || err == nil {
		t.Fatalf("n=%d err=%v, want -1, non-nil", n, err)
	}
}

func TestClearRemovesWholeKey(t *testing.T) {
	table := NewTable()
	table.Register("ns", "op", func(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer, arg any) error { return nil }, nil)
	table.Register("ns", "op", func(ctx context.Context, req *xmltree.Node, resp *ResponseBuffer, arg any) error { return nil }, nil)
	table.Clear("ns", "op")

	req := xmltree.NewElement("op")
	req.NSDecl = map[string]string{"": "ns"}
	n, _ := table.Call(context.Background(), req, &ResponseBuffer{})
	if n != 0 {
		t.Fatalf("expected no entries left after Clear, got n=%d", n)
	}
}

func TestResolveNamespaceWalksAncestors(t *testing.T) {
	root := xmltree.NewElement("config")
	root.NSDecl = map[string]string{"if": "urn:iface"}
	child := xmltree.NewElement("name")
	child.Prefix = "if"
	root.AppendChild(child)

	if got := ResolveNamespace(child); got != "urn:iface" {
		t.Fatalf("ResolveNamespace() = %q, want urn:iface", got)
	}
}
