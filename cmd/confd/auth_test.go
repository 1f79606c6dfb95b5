package main

import (
	"context"
	"strings"
	"testing"

	"github.com/yangconf/confd/internal/frame"
	"github.com/yangconf/confd/internal/pluginreg"
	"github.com/yangconf/confd/internal/serial"
	"github.com/yangconf/confd/internal/xmltree"
)

func rpcEnvelope(t *testing.T, msgID string, op *xmltree.Node) string {
	t.Helper()
	rpc := xmltree.NewElement("rpc")
	if msgID != "" {
		rpc.SetAttr("message-id", msgID)
	}
	rpc.AppendChild(op)
	var buf strings.Builder
	if err := (serial.XMLCodec{}).Encode(&buf, rpc, false); err != nil {
		t.Fatalf("encode rpc: %v", err)
	}
	return buf.String()
}

func TestHandleRequestOpenSystemDefaultAuthenticatesFirstRequest(t *testing.T) {
	a := newTestAgent(t)
	a.registerOps()

	ln, cleanup := listenUnix(t)
	defer cleanup()
	f, conn := dialAndDup(t, ln)
	defer conn.Close()
	defer f.Close()

	sess := newSession(f, 1, framingA, "test")
	a.handleRequest(sess, rpcEnvelope(t, "1", xmltree.NewElement("get")))

	_, body, eof, err := frame.RecvA(conn)
	if err != nil || eof {
		t.Fatalf("recv reply: eof=%v err=%v", eof, err)
	}
	reply, err := (serial.XMLCodec{}).Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	if reply.ChildByName("rpc-error") != nil {
		t.Fatalf("expected no rpc-error with no auth plugins registered, got %+v", reply)
	}
	if !sess.authenticated {
		t.Fatalf("expected session to be marked authenticated after a clean open-system pass")
	}
}

func TestHandleRequestRejectsUnauthenticatedSession(t *testing.T) {
	a := newTestAgent(t)
	a.registerOps()
	a.plugins.RegisterPseudo("deny-all", pluginreg.API{
		Auth: func(ctx context.Context, token string) (pluginreg.AuthVerdict, error) {
			return pluginreg.Unauthenticated, nil
		},
	})

	ln, cleanup := listenUnix(t)
	defer cleanup()
	f, conn := dialAndDup(t, ln)
	defer conn.Close()
	defer f.Close()

	sess := newSession(f, 1, framingA, "test")
	a.handleRequest(sess, rpcEnvelope(t, "1", xmltree.NewElement("get")))

	_, body, eof, err := frame.RecvA(conn)
	if err != nil || eof {
		t.Fatalf("recv reply: eof=%v err=%v", eof, err)
	}
	reply, err := (serial.XMLCodec{}).Decode(strings.NewReader(body))
	if err != nil {
		t.Fatalf("decode reply: %v", err)
	}
	rpcErr := reply.ChildByName("rpc-error")
	if rpcErr == nil {
		t.Fatalf("expected an rpc-error when the auth chain denies the session")
	}
	if tag := rpcErr.ChildByName("error-tag"); tag == nil || tag.Body != "access-denied" {
		t.Fatalf("error-tag = %v, want access-denied", tag)
	}
	if sess.authenticated {
		t.Fatalf("a denied session must not be marked authenticated")
	}
}
