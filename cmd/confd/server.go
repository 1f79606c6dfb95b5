package main

import (
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yangconf/confd/internal/audit"
	"github.com/yangconf/confd/internal/backup"
	"github.com/yangconf/confd/internal/datastore"
	"github.com/yangconf/confd/internal/dispatch"
	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/eventloop"
	"github.com/yangconf/confd/internal/logger"
	"github.com/yangconf/confd/internal/metrics"
	"github.com/yangconf/confd/internal/pluginreg"
)

// agent is the backend process: the event loop, its datastore engine,
// plugin registry and RPC table, and the IPC/NETCONF listeners
// multiplexed through it. Grounded on the teacher's dittoServer.Server
// (internal/protocol/portmap/server.go), adapted from a goroutine per
// listener/connection model to registering each listener's and each
// connection's duplicated file descriptor with the single-goroutine
// event loop, since handlers here run to completion on the loop's own
// stack rather than their own goroutines (internal/eventloop's own
// design note).
type agent struct {
	loop    *eventloop.Loop
	table   *dispatch.Table
	engine  *datastore.Engine
	plugins *pluginreg.Registry
	metrics *metrics.Collector
	ledger  *audit.Ledger
	backup  *backup.Engine

	mu        sync.Mutex
	sessions  map[int]*session
	nextOwner uint64
	listeners []io.Closer
}

func newAgent(engine *datastore.Engine, plugins *pluginreg.Registry, coll *metrics.Collector, ledger *audit.Ledger, backupEngine *backup.Engine) *agent {
	return &agent{
		loop:     eventloop.NewLoop(),
		table:    dispatch.NewTable(),
		engine:   engine,
		plugins:  plugins,
		metrics:  coll,
		ledger:   ledger,
		backup:   backupEngine,
		sessions: make(map[int]*session),
	}
}

type framing int

const (
	framingA framing = iota
	framingB
)

// serveIPC brings up the internal IPC listener (Frame A framing) on
// network/address, registering its duplicated fd with the event loop at
// Normal priority.
func (a *agent) serveIPC(network, address string) error {
	return a.serveListener(network, address, framingA)
}

// serveNETCONF brings up the NETCONF-over-TCP listener (Frame B
// framing) on address.
func (a *agent) serveNETCONF(address string) error {
	return a.serveListener("tcp", address, framingB)
}

func (a *agent) serveListener(network, address string, fr framing) error {
	ln, err := net.Listen(network, address)
	if err != nil {
		return errs.New(errs.Unix, "listen %s %s: %v", network, address, err)
	}

	// The duplicated fd is registered with the loop purely as a
	// readiness signal; the original ln.Accept() still performs the
	// actual accept(2), so Go's own runtime poller never races the
	// loop over the same operation.
	lnFile, err := listenerFile(ln)
	if err != nil {
		ln.Close()
		return err
	}

	fd := int(lnFile.Fd())
	acceptCB := func(_ int, _ any) error {
		conn, aerr := ln.Accept()
		if aerr != nil {
			return nil
		}
		a.acceptConn(conn, fr)
		return nil
	}
	a.loop.RegFD(fd, acceptCB, nil, "listen:"+address, eventloop.Normal)

	a.mu.Lock()
	a.listeners = append(a.listeners, ln, lnFile)
	a.mu.Unlock()
	logger.Info("listening", "network", network, "address", address, "framing", fr)
	return nil
}

func (a *agent) acceptConn(conn net.Conn, fr framing) {
	peer := conn.RemoteAddr().String()
	f, err := connFile(conn)
	conn.Close()
	if err != nil {
		logger.Warn("accept: duplicate connection fd", "peer", peer, "error", err)
		return
	}

	owner := atomic.AddUint64(&a.nextOwner, 1)
	sess := newSession(f, owner, fr, peer)

	a.mu.Lock()
	a.sessions[sess.fd] = sess
	a.mu.Unlock()

	sess.readCB = func(_ int, arg any) error {
		a.onReadable(arg.(*session))
		return nil
	}
	a.loop.RegFD(sess.fd, sess.readCB, sess, "conn:"+peer, eventloop.Normal)
	logger.Debug("session accepted", "owner", owner, "peer", peer)
}

// onReadable performs exactly one Read, since the fd is already known
// readable; it then drains every complete message the accumulated
// buffer now contains before returning control to the loop.
func (a *agent) onReadable(sess *session) {
	buf := make([]byte, 8192)
	n, err := sess.file.Read(buf)
	if err != nil || n == 0 {
		a.closeSession(sess)
		return
	}

	switch sess.fr {
	case framingA:
		chunk := buf[:n]
		for {
			_, body, complete, ferr := sess.decA.Feed(chunk)
			chunk = nil
			if ferr != nil {
				logger.Warn("frame decode error", "peer", sess.peer, "error", ferr)
				a.closeSession(sess)
				return
			}
			if !complete {
				return
			}
			a.handleRequest(sess, body)
		}
	case framingB:
		payload, complete := sess.decB.Feed(buf[:n])
		if !complete {
			return
		}
		a.handleRequest(sess, string(payload))
	}
}

func (a *agent) closeSession(sess *session) {
	a.loop.UnregFD(sess.fd, sess.readCB)
	a.mu.Lock()
	delete(a.sessions, sess.fd)
	a.mu.Unlock()
	a.engine.UnlockAll(sess.owner)
	sess.file.Close()
	logger.Debug("session closed", "owner", sess.owner, "peer", sess.peer)
}

// shutdown stops the event loop and tears down every open listener and
// session, making a best effort across all of them rather than
// stopping at the first failure.
func (a *agent) shutdown(_ context.Context) {
	a.loop.Stop()

	a.mu.Lock()
	sessions := make([]*session, 0, len(a.sessions))
	for _, s := range a.sessions {
		sessions = append(sessions, s)
	}
	listeners := append([]io.Closer(nil), a.listeners...)
	a.mu.Unlock()

	for _, s := range sessions {
		s.file.Close()
	}
	for _, l := range listeners {
		l.Close()
	}
}

// run starts the event loop and blocks until ctx is cancelled or Stop
// is called.
func (a *agent) run(ctx context.Context) error {
	return a.loop.Run(ctx)
}

// snapshotAll backs up every named database to dest via a.backup,
// invoked on a periodic RegTimeout callback when backups are enabled.
func (a *agent) snapshotAll(dbs []string, dest string) {
	for _, db := range dbs {
		if err := a.backup.Backup(db, dest); err != nil {
			logger.Error("periodic backup failed", "database", db, "error", err)
		}
	}
}

// scheduleBackups arms the first periodic snapshot and re-arms itself
// on every firing, since RegTimeout is one-shot.
func (a *agent) scheduleBackups(dbs []string, dest string, interval time.Duration) {
	if a.backup == nil || interval <= 0 {
		return
	}
	var fire eventloop.TimeoutCallback
	fire = func(_ any) error {
		a.snapshotAll(dbs, dest)
		a.loop.RegTimeout(time.Now().Add(interval), fire, nil, "periodic-backup")
		return nil
	}
	a.loop.RegTimeout(time.Now().Add(interval), fire, nil, "periodic-backup")
}
