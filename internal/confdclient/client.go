// Package confdclient is confdctl's IPC client: it dials cmd/confd's
// Frame A listener, wraps every call in an <rpc message-id="..."> /
// <rpc-reply> exchange, and surfaces an <rpc-error> as a Go error.
// Grounded on the teacher's pkg/controlplane/apiclient.Client (a thin
// HTTP wrapper with one method per control-plane endpoint), adapted
// from REST+JSON to framed XML since confd has no REST surface, only
// the wire protocol internal/frame implements.
package confdclient

import (
	"encoding/binary"
	"fmt"
	"net"
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/frame"
	"github.com/yangconf/confd/internal/serial"
	"github.com/yangconf/confd/internal/xmltree"
)

// Client is a connection to one confd agent's IPC listener.
type Client struct {
	conn      net.Conn
	sessionID uint32
	nextMsgID uint64
}

// Dial connects to address over network ("unix" or "tcp", matching the
// agent's listen.ipc_network config) and derives this connection's
// session id from a fresh UUID, truncated to the uint32 the wire
// framing carries.
func Dial(network, address string) (*Client, error) {
	conn, err := frame.Dial(network, address)
	if err != nil {
		return nil, err
	}
	id := uuid.New()
	return &Client{
		conn:      conn,
		sessionID: binary.BigEndian.Uint32(id[:4]),
	}, nil
}

// Close releases the underlying connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// SessionID returns this connection's wire session id, also used
// server-side as the datastore lock-owner identity for its lifetime.
func (c *Client) SessionID() uint32 {
	return c.sessionID
}

// Call sends one <rpc><op>...</op></rpc> envelope built from op and its
// children, and returns the decoded contents of the matching
// <rpc-reply> (the reply's own children, with <ok/> stripped when it is
// the sole child). An <rpc-error> in the reply is translated into a Go
// error carrying its error-message text.
func (c *Client) Call(op *xmltree.Node) ([]*xmltree.Node, error) {
	msgID := strconv.FormatUint(atomic.AddUint64(&c.nextMsgID, 1), 10)

	rpc := xmltree.NewElement("rpc")
	rpc.SetAttr("message-id", msgID)
	rpc.AppendChild(op)

	var buf strings.Builder
	if err := (serial.XMLCodec{}).Encode(&buf, rpc, false); err != nil {
		return nil, err
	}
	if err := frame.SendA(c.conn, c.sessionID, buf.String()); err != nil {
		return nil, err
	}

	_, body, eof, err := frame.RecvA(c.conn)
	if err != nil {
		return nil, err
	}
	if eof {
		return nil, errs.New(errs.Unix, "connection closed by agent")
	}

	reply, err := (serial.XMLCodec{}).Decode(strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	if reply == nil || reply.Name != "rpc-reply" {
		return nil, errs.New(errs.Netconf, "expected <rpc-reply>, got %q", nodeName(reply))
	}
	if rpcErr := reply.ChildByName("rpc-error"); rpcErr != nil {
		return nil, rpcErrorToErr(rpcErr)
	}

	children := reply.Children
	if len(children) == 1 && children[0].Name == "ok" {
		return nil, nil
	}
	return children, nil
}

func nodeName(n *xmltree.Node) string {
	if n == nil {
		return "<nil>"
	}
	return n.Name
}

func rpcErrorToErr(rpcErr *xmltree.Node) error {
	tag := "operation-failed"
	if t := rpcErr.ChildByName("error-tag"); t != nil {
		tag = t.Body
	}
	msg := "unspecified error"
	if m := rpcErr.ChildByName("error-message"); m != nil {
		msg = m.Body
	}
	path := ""
	if p := rpcErr.ChildByName("error-path"); p != nil {
		path = p.Body
	}
	e := errs.New(errs.Netconf, "%s: %s", tag, msg)
	if path != "" {
		e = e.WithPath(path)
	}
	return e
}

// datastoreContainer builds a <source>/<target>-style container holding
// a single named datastore child, e.g. datastoreContainer("target",
// "candidate") -> <target><candidate/></target>.
func datastoreContainer(container, db string) *xmltree.Node {
	n := xmltree.NewElement(container)
	n.AppendChild(xmltree.NewElement(db))
	return n
}

// GetConfig issues get-config against source, optionally filtered by
// an xpath select expression (pass "" for no filter).
func (c *Client) GetConfig(source, xpathSelect string) (*xmltree.Node, error) {
	op := xmltree.NewElement("get-config")
	op.AppendChild(datastoreContainer("source", source))
	if xpathSelect != "" {
		filter := xmltree.NewElement("filter")
		filter.SetAttr("type", "xpath")
		filter.SetAttr("select", xpathSelect)
		op.AppendChild(filter)
	}
	nodes, err := c.Call(op)
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if n.Name == "data" {
			return n, nil
		}
	}
	return nil, fmt.Errorf("get-config reply carried no <data> element")
}

// EditConfig issues edit-config against target, merging (or applying
// defaultOp, if non-empty) the given config tree.
func (c *Client) EditConfig(target, defaultOp string, config *xmltree.Node) error {
	op := xmltree.NewElement("edit-config")
	op.AppendChild(datastoreContainer("target", target))
	if defaultOp != "" {
		op.AppendChild(xmltree.NewLeaf("default-operation", defaultOp))
	}
	op.AppendChild(config)
	_, err := c.Call(op)
	return err
}

// Lock takes the advisory lock on target for this connection's session.
func (c *Client) Lock(target string) error {
	op := xmltree.NewElement("lock")
	op.AppendChild(datastoreContainer("target", target))
	_, err := c.Call(op)
	return err
}

// Unlock releases the lock on target.
func (c *Client) Unlock(target string) error {
	op := xmltree.NewElement("unlock")
	op.AppendChild(datastoreContainer("target", target))
	_, err := c.Call(op)
	return err
}

// CopyConfig copies source's tree into target.
func (c *Client) CopyConfig(source, target string) error {
	op := xmltree.NewElement("copy-config")
	op.AppendChild(datastoreContainer("source", source))
	op.AppendChild(datastoreContainer("target", target))
	_, err := c.Call(op)
	return err
}

// DeleteConfig deletes target entirely.
func (c *Client) DeleteConfig(target string) error {
	op := xmltree.NewElement("delete-config")
	op.AppendChild(datastoreContainer("target", target))
	_, err := c.Call(op)
	return err
}

// UpgradeDatastore runs target's datastore-upgrade plugins against
// namespace for the given edit kind (add/del/change) and revision
// bounds, returning the elements the hooks appended on success. When a
// hook rejects, only the error is returned (nil nodes); the agent folds
// the rejection diagnostics into that error's message.
func (c *Client) UpgradeDatastore(target, namespace, op, fromRevision, toRevision string) ([]*xmltree.Node, error) {
	req := xmltree.NewElement("upgrade-datastore")
	req.AppendChild(datastoreContainer("target", target))
	if namespace != "" {
		req.AppendChild(xmltree.NewLeaf("namespace", namespace))
	}
	if op != "" {
		req.AppendChild(xmltree.NewLeaf("operation", op))
	}
	if fromRevision != "" {
		req.AppendChild(xmltree.NewLeaf("from-revision", fromRevision))
	}
	if toRevision != "" {
		req.AppendChild(xmltree.NewLeaf("to-revision", toRevision))
	}
	return c.Call(req)
}
