package main

import (
	"fmt"
	"net"
	"os"

	"github.com/yangconf/confd/internal/eventloop"
	"github.com/yangconf/confd/internal/frame"
)

// session tracks one accepted connection's framing state and the lock
// ownership identity it carries for the lifetime of the connection.
// Grounded on the teacher's portmap connection struct, generalized from
// a single wire format to either Frame A (IPC) or Frame B (NETCONF).
type session struct {
	fd            int
	file          *os.File
	owner         uint64
	fr            framing
	peer          string
	decA          *frame.DecoderA
	decB          *frame.DecoderB
	readCB        eventloop.FDCallback
	authenticated bool
}

func newSession(f *os.File, owner uint64, fr framing, peer string) *session {
	s := &session{
		fd:    int(f.Fd()),
		file:  f,
		owner: owner,
		fr:    fr,
		peer:  peer,
	}
	switch fr {
	case framingA:
		s.decA = frame.NewDecoderA()
	case framingB:
		s.decB = frame.NewDecoderB()
	}
	return s
}

// listenerFile duplicates ln's underlying socket fd into a standalone
// *os.File detached from the runtime netpoller, so it can be registered
// with the event loop for readiness signaling while ln itself keeps
// performing the real Accept.
func listenerFile(ln net.Listener) (*os.File, error) {
	type fileConn interface {
		File() (*os.File, error)
	}
	fc, ok := ln.(fileConn)
	if !ok {
		return nil, fmt.Errorf("listener type %T does not support duplication", ln)
	}
	return fc.File()
}

// connFile duplicates conn's underlying socket fd the same way
// listenerFile does for a listener. Per net's documentation, closing
// one of the pair (the original conn, here) has no effect on the
// other, so all further I/O flows through the returned file alone.
func connFile(conn net.Conn) (*os.File, error) {
	type fileConn interface {
		File() (*os.File, error)
	}
	fc, ok := conn.(fileConn)
	if !ok {
		return nil, fmt.Errorf("connection type %T does not support duplication", conn)
	}
	return fc.File()
}
