package main

import (
	"context"
	"strings"
	"time"

	"github.com/yangconf/confd/internal/datastore"
	"github.com/yangconf/confd/internal/dispatch"
	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/frame"
	"github.com/yangconf/confd/internal/logger"
	"github.com/yangconf/confd/internal/pluginreg"
	"github.com/yangconf/confd/internal/serial"
	"github.com/yangconf/confd/internal/xmltree"
)

// netconfNS is the base NETCONF namespace. Requests are also matched
// under the empty namespace, so a client that omits the xmlns
// declaration (the common case for the IPC transport) still dispatches.
const netconfNS = "urn:ietf:params:xml:ns:netconf:base:1.0"

// handleRequest decodes one <rpc> envelope, dispatches its single
// operation child through a.table, and writes back an <rpc-reply> (or
// <rpc-error> on failure) framed the same way the request arrived.
// Grounded on the teacher's procedure-call handling in
// internal/protocol/portmap/server.go: decode, dispatch by table,
// encode reply, write; generalized from a fixed procedure number to a
// decoded XML operation element.
func (a *agent) handleRequest(sess *session, body string) {
	codec := serial.XMLCodec{}
	rpcNode, err := codec.Decode(strings.NewReader(body))
	if err != nil {
		a.writeReply(sess, "", errReply("", err))
		return
	}
	if rpcNode == nil || rpcNode.Name != "rpc" {
		a.writeReply(sess, "", errReply("", errs.New(errs.Netconf, "top-level element must be <rpc>")))
		return
	}
	msgID, _ := rpcNode.Attr("message-id")

	if !sess.authenticated {
		token, _ := rpcNode.Attr("session-token")
		verdict, err := a.plugins.AuthAll(context.Background(), token)
		if err != nil {
			a.writeReply(sess, msgID, errReply(msgID, errs.New(errs.Auth, "auth chain failed: %v", err)))
			return
		}
		if verdict != pluginreg.Authenticated {
			a.writeReply(sess, msgID, errReply(msgID, errs.New(errs.Auth, "session not authenticated")))
			return
		}
		sess.authenticated = true
	}

	if len(rpcNode.Children) != 1 {
		a.writeReply(sess, msgID, errReply(msgID, errs.New(errs.Netconf, "rpc must contain exactly one operation element")))
		return
	}
	op := rpcNode.Children[0]

	ctx := context.WithValue(context.Background(), ctxOwnerKey{}, sess.owner)
	resp := &dispatch.ResponseBuffer{}
	invoked, callErr := a.table.Call(ctx, op, resp)
	if callErr != nil {
		logger.Warn("rpc failed", "peer", sess.peer, "operation", op.Name, "error", callErr)
		a.writeReply(sess, msgID, errReply(msgID, callErr))
		return
	}
	if invoked == 0 {
		a.writeReply(sess, msgID, errReply(msgID, errs.New(errs.Netconf, "unknown operation %q", op.Name)))
		return
	}

	reply := xmltree.NewElement("rpc-reply")
	if msgID != "" {
		reply.SetAttr("message-id", msgID)
	}
	if nodes := resp.Snapshot(); len(nodes) > 0 {
		for _, n := range nodes {
			reply.AppendChild(n)
		}
	} else {
		reply.AppendChild(xmltree.NewElement("ok"))
	}
	a.writeReply(sess, msgID, reply)
}

type ctxOwnerKey struct{}

// ownerFromContext recovers the session's lock-owner identity a handler
// needs to call datastore.Engine.Lock/Unlock/Put on its behalf.
func ownerFromContext(ctx context.Context) uint64 {
	v, _ := ctx.Value(ctxOwnerKey{}).(uint64)
	return v
}

// errReply builds an <rpc-reply><rpc-error>...</rpc-error></rpc-reply>
// from err, pulling category/path out of an *errs.Error when possible.
func errReply(msgID string, err error) *xmltree.Node {
	reply := xmltree.NewElement("rpc-reply")
	if msgID != "" {
		reply.SetAttr("message-id", msgID)
	}
	rpcErr := xmltree.NewElement("rpc-error")
	tag := "operation-failed"
	path := ""
	if e, ok := err.(*errs.Error); ok {
		tag = netconfErrorTag(e.Category)
		path = e.Path
	}
	rpcErr.AppendChild(xmltree.NewLeaf("error-type", "application"))
	rpcErr.AppendChild(xmltree.NewLeaf("error-tag", tag))
	if path != "" {
		rpcErr.AppendChild(xmltree.NewLeaf("error-path", path))
	}
	rpcErr.AppendChild(xmltree.NewLeaf("error-message", err.Error()))
	reply.AppendChild(rpcErr)
	return reply
}

func netconfErrorTag(cat errs.Category) string {
	switch cat {
	case errs.DB:
		return "data-missing"
	case errs.XML, errs.Yang:
		return "invalid-value"
	case errs.Netconf:
		return "operation-not-supported"
	case errs.Auth:
		return "access-denied"
	default:
		return "operation-failed"
	}
}

func (a *agent) writeReply(sess *session, _ string, reply *xmltree.Node) {
	var buf strings.Builder
	if err := (serial.XMLCodec{}).Encode(&buf, reply, false); err != nil {
		logger.Error("encode rpc-reply failed", "peer", sess.peer, "error", err)
		return
	}

	var wireErr error
	switch sess.fr {
	case framingA:
		wireErr = frame.SendA(sess.file, uint32(sess.owner), buf.String())
	case framingB:
		_, wireErr = sess.file.Write(frame.EncodeB([]byte(buf.String())))
	}
	if wireErr != nil {
		logger.Warn("write rpc-reply failed", "peer", sess.peer, "error", wireErr)
	}
}

// registerOps wires the core NETCONF operations (§4.4/§4.7) onto a.table,
// each translating the RPC's XML shape into a call on a.engine and
// recording latency/commit metrics.
func (a *agent) registerOps() {
	for _, ns := range []string{"", netconfNS} {
		a.table.Register(ns, "get-config", a.opGetConfig, nil)
		a.table.Register(ns, "get", a.opGet, nil)
		a.table.Register(ns, "edit-config", a.opEditConfig, nil)
		a.table.Register(ns, "lock", a.opLock, nil)
		a.table.Register(ns, "unlock", a.opUnlock, nil)
		a.table.Register(ns, "copy-config", a.opCopyConfig, nil)
		a.table.Register(ns, "delete-config", a.opDeleteConfig, nil)
		a.table.Register(ns, "upgrade-datastore", a.opUpgradeDatastore, nil)
	}
}

// datastoreName returns the single child element name of a <source> or
// <target> container, e.g. <target><candidate/></target> -> "candidate".
func datastoreName(container *xmltree.Node) (string, error) {
	if container == nil || len(container.Children) != 1 {
		return "", errs.New(errs.Netconf, "missing or malformed datastore container")
	}
	return container.Children[0].Name, nil
}

func (a *agent) opGetConfig(_ context.Context, req *xmltree.Node, resp *dispatch.ResponseBuffer, _ any) error {
	start := time.Now()
	source := req.ChildByName("source")
	db, err := datastoreName(source)
	if err != nil {
		return err
	}
	xpath := "/"
	if filter := req.ChildByName("filter"); filter != nil {
		if sel, ok := filter.Attr("select"); ok && sel != "" {
			xpath = sel
		}
	}
	tree, err := a.engine.Get(db, xpath, true)
	if err != nil {
		return err
	}
	a.metrics.ObserveGet(db, time.Since(start))
	data := xmltree.NewElement("data")
	for _, c := range tree.Children {
		data.AppendChild(c)
	}
	resp.Append(data)
	return nil
}

func (a *agent) opGet(ctx context.Context, req *xmltree.Node, resp *dispatch.ResponseBuffer, arg any) error {
	start := time.Now()
	xpath := "/"
	if filter := req.ChildByName("filter"); filter != nil {
		if sel, ok := filter.Attr("select"); ok && sel != "" {
			xpath = sel
		}
	}
	tree, err := a.engine.Get("running", xpath, false)
	if err != nil {
		return err
	}
	a.metrics.ObserveGet("running", time.Since(start))
	data := xmltree.NewElement("data")
	for _, c := range tree.Children {
		data.AppendChild(c)
	}
	resp.Append(data)
	return nil
}

func (a *agent) opEditConfig(ctx context.Context, req *xmltree.Node, _ *dispatch.ResponseBuffer, _ any) error {
	start := time.Now()
	target := req.ChildByName("target")
	db, err := datastoreName(target)
	if err != nil {
		return err
	}

	op := datastore.OpMerge
	if defOp := req.ChildByName("default-operation"); defOp != nil && defOp.Body != "" {
		op = datastore.Operation(defOp.Body)
	}

	config := req.ChildByName("config")
	if config == nil {
		return errs.New(errs.Netconf, "edit-config requires a <config> element")
	}
	tree := xmltree.NewElement("config")
	for _, c := range config.Children {
		tree.AppendChild(c)
	}

	if owner := ownerFromContext(ctx); owner != 0 {
		if held := a.engine.IsLocked(db); held != 0 && held != owner {
			return errs.New(errs.DB, "database %q locked by another session", db)
		}
	}

	if err := a.engine.Put(db, op, tree); err != nil {
		return err
	}
	a.metrics.ObservePut(db, string(op), time.Since(start))
	return nil
}

func (a *agent) opLock(ctx context.Context, req *xmltree.Node, _ *dispatch.ResponseBuffer, _ any) error {
	db, err := datastoreName(req.ChildByName("target"))
	if err != nil {
		return err
	}
	owner := ownerFromContext(ctx)
	if owner == 0 {
		return errs.New(errs.Fatal, "lock requested with no session owner bound")
	}
	return a.engine.Lock(db, owner)
}

func (a *agent) opUnlock(ctx context.Context, req *xmltree.Node, _ *dispatch.ResponseBuffer, _ any) error {
	db, err := datastoreName(req.ChildByName("target"))
	if err != nil {
		return err
	}
	owner := ownerFromContext(ctx)
	if held := a.engine.IsLocked(db); held != 0 && held != owner {
		return errs.New(errs.DB, "database %q locked by another session", db)
	}
	return a.engine.Unlock(db)
}

func (a *agent) opCopyConfig(_ context.Context, req *xmltree.Node, _ *dispatch.ResponseBuffer, _ any) error {
	src, err := datastoreName(req.ChildByName("source"))
	if err != nil {
		return err
	}
	dst, err := datastoreName(req.ChildByName("target"))
	if err != nil {
		return err
	}
	return a.engine.Copy(src, dst)
}

func (a *agent) opDeleteConfig(_ context.Context, req *xmltree.Node, _ *dispatch.ResponseBuffer, _ any) error {
	db, err := datastoreName(req.ChildByName("target"))
	if err != nil {
		return err
	}
	if db == "running" {
		return errs.New(errs.Netconf, "delete-config of the running datastore is not allowed")
	}
	return a.engine.Delete(db)
}

// opUpgradeDatastore drives a module's upgrade plugins (§4.5) over the
// named database's current tree: <target> selects the datastore,
// <namespace> the module being upgraded (absent/empty matches only
// wildcard-registered hooks), <operation> one of add/del/change, and
// <from-revision>/<to-revision> the YYYYMMDD bounds. Any diagnostics a
// rejecting hook appended come back in the reply verbatim.
func (a *agent) opUpgradeDatastore(ctx context.Context, req *xmltree.Node, resp *dispatch.ResponseBuffer, _ any) error {
	db, err := datastoreName(req.ChildByName("target"))
	if err != nil {
		return err
	}

	namespace := ""
	if n := req.ChildByName("namespace"); n != nil {
		namespace = n.Body
	}
	op := pluginreg.UpgradeChange
	if n := req.ChildByName("operation"); n != nil && n.Body != "" {
		op = pluginreg.UpgradeOp(n.Body)
	}
	var fromRevision, toRevision string
	if n := req.ChildByName("from-revision"); n != nil {
		fromRevision = n.Body
	}
	if n := req.ChildByName("to-revision"); n != nil {
		toRevision = n.Body
	}

	tree, err := a.engine.Get(db, "/", false)
	if err != nil {
		return err
	}

	upgradeResp, err := a.plugins.UpgradeAll(ctx, tree, namespace, op, fromRevision, toRevision)
	if err != nil {
		if nodes := upgradeResp.Snapshot(); len(nodes) > 0 {
			var buf strings.Builder
			for _, n := range nodes {
				(serial.XMLCodec{}).Encode(&buf, n, false)
			}
			return errs.New(errs.Plugin, "%s: %s", err, buf.String())
		}
		return err
	}
	for _, n := range upgradeResp.Snapshot() {
		resp.Append(n)
	}
	return nil
}
