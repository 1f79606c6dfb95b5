package main

import (
	"strings"
	"testing"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/xmltree"
)

func TestNetconfErrorTagMapsCategories(t *testing.T) {
	cases := []struct {
		cat  errs.Category
		want string
	}{
		{errs.DB, "data-missing"},
		{errs.XML, "invalid-value"},
		{errs.Yang, "invalid-value"},
		{errs.Netconf, "operation-not-supported"},
		{errs.Auth, "access-denied"},
		{errs.Fatal, "operation-failed"},
	}
	for _, tc := range cases {
		if got := netconfErrorTag(tc.cat); got != tc.want {
			t.Fatalf("netconfErrorTag(%v) = %q, want %q", tc.cat, got, tc.want)
		}
	}
}

func TestErrReplyCarriesMessageIDAndPath(t *testing.T) {
	err := errs.New(errs.DB, "database %q does not exist", "candidate").WithPath("/candidate")
	reply := errReply("42", err)

	if msgID, ok := reply.Attr("message-id"); !ok || msgID != "42" {
		t.Fatalf("message-id = %q, %v, want 42, true", msgID, ok)
	}
	rpcErr := reply.ChildByName("rpc-error")
	if rpcErr == nil {
		t.Fatalf("expected an rpc-error child")
	}
	tag := rpcErr.ChildByName("error-tag")
	if tag == nil || tag.Body != "data-missing" {
		t.Fatalf("error-tag = %v, want data-missing", tag)
	}
	path := rpcErr.ChildByName("error-path")
	if path == nil || path.Body != "/candidate" {
		t.Fatalf("error-path = %v, want /candidate", path)
	}
	msg := rpcErr.ChildByName("error-message")
	if msg == nil || !strings.Contains(msg.Body, "candidate") {
		t.Fatalf("error-message = %v, want it to mention candidate", msg)
	}
}

func TestErrReplyOmitsMessageIDWhenEmpty(t *testing.T) {
	reply := errReply("", errs.New(errs.Fatal, "boom"))
	if _, ok := reply.Attr("message-id"); ok {
		t.Fatalf("expected no message-id attribute on an empty msgID reply")
	}
}

func TestDatastoreNameExtractsSoleChild(t *testing.T) {
	target := xmltree.NewElement("target")
	target.AppendChild(xmltree.NewElement("candidate"))

	name, err := datastoreName(target)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if name != "candidate" {
		t.Fatalf("datastoreName() = %q, want candidate", name)
	}
}

func TestDatastoreNameRejectsMissingContainer(t *testing.T) {
	if _, err := datastoreName(nil); err == nil {
		t.Fatalf("expected error for a nil container")
	}
}

func TestDatastoreNameRejectsEmptyContainer(t *testing.T) {
	target := xmltree.NewElement("target")
	if _, err := datastoreName(target); err == nil {
		t.Fatalf("expected error for a container with no children")
	}
}

func TestDatastoreNameRejectsMultipleChildren(t *testing.T) {
	target := xmltree.NewElement("target")
	target.AppendChild(xmltree.NewElement("candidate"))
	target.AppendChild(xmltree.NewElement("running"))
	if _, err := datastoreName(target); err == nil {
		t.Fatalf("expected error for a container with multiple children")
	}
}
