// Package frame implements the two wire framings of §4.3: Frame A, the
// fixed-header internal IPC request/reply frame, and Frame B, the
// NETCONF end-of-message chunked stream (see netconf.go). Grounded on the
// teacher's hand-rolled binary framing in
// internal/protocol/portmap/server.go (big-endian header fields built with
// encoding/binary, restart-on-short-read patterns) rather than on a
// generic XDR marshaler — see DESIGN.md for why rasky/go-xdr was dropped.
package frame

import (
	"encoding/binary"
	"errors"
	"io"
	"io/fs"
	"net"
	"syscall"

	"github.com/yangconf/confd/internal/errs"
)

// headerSize is the byte length of Frame A's fixed header: total-length
// and session-id, each a big-endian uint32.
const headerSize = 8

// maxBodyBytes bounds a single Frame A body; larger declared lengths are a
// framing error (§4.3 "oversize body ... fatal to the connection").
const maxBodyBytes = 16 * 1024 * 1024

// EncodeA builds the wire bytes for a Frame A message: header plus a
// NUL-terminated UTF-8 body.
func EncodeA(sessionID uint32, body string) []byte {
	payload := append([]byte(body), 0)
	total := headerSize + len(payload)
	buf := make([]byte, total)
	binary.BigEndian.PutUint32(buf[0:4], uint32(total))
	binary.BigEndian.PutUint32(buf[4:8], sessionID)
	copy(buf[headerSize:], payload)
	return buf
}

// SendA performs a restarting write-all of a Frame A message.
func SendA(w io.Writer, sessionID uint32, body string) error {
	return writeAll(w, EncodeA(sessionID, body))
}

// RecvA performs a restarting read of one Frame A message: exactly
// headerSize bytes, then total-length-headerSize body bytes. eof is true
// when the peer closed the connection cleanly or with a translatable
// error (ECONNRESET/EPIPE/EBADF); in that case err is nil.
func RecvA(r io.Reader) (sessionID uint32, body string, eof bool, err error) {
	header := make([]byte, headerSize)
	if _, rerr := io.ReadFull(r, header); rerr != nil {
		if isEOFLike(rerr) {
			return 0, "", true, nil
		}
		return 0, "", false, errs.New(errs.Proto, "short header: %v", rerr)
	}

	total := binary.BigEndian.Uint32(header[0:4])
	sessionID = binary.BigEndian.Uint32(header[4:8])
	if total < headerSize {
		return 0, "", false, errs.New(errs.Proto, "malformed length field: %d", total)
	}

	bodyLen := total - headerSize
	if bodyLen > maxBodyBytes {
		return 0, "", false, errs.New(errs.Proto, "oversize body: %d bytes exceeds %d", bodyLen, maxBodyBytes)
	}

	buf := make([]byte, bodyLen)
	if _, rerr := io.ReadFull(r, buf); rerr != nil {
		if isEOFLike(rerr) {
			return 0, "", true, nil
		}
		return 0, "", false, errs.New(errs.Proto, "short body: %v", rerr)
	}

	if len(buf) > 0 && buf[len(buf)-1] == 0 {
		buf = buf[:len(buf)-1]
	}
	return sessionID, string(buf), false, nil
}

func writeAll(w io.Writer, data []byte) error {
	for len(data) > 0 {
		n, err := w.Write(data)
		if err != nil {
			if isRetryable(err) {
				continue
			}
			return errs.New(errs.Unix, "write: %v", err)
		}
		data = data[n:]
	}
	return nil
}

func isRetryable(err error) bool {
	return errors.Is(err, syscall.EINTR) || errors.Is(err, syscall.EAGAIN)
}

func isEOFLike(err error) bool {
	return errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, syscall.EBADF)
}

// DecoderA is the stateful incremental assembler for Frame A, the
// request/reply counterpart to DecoderB: it accumulates bytes handed to
// it across one or more non-blocking reads and reports a complete
// message once the header and its declared-length body have both
// arrived, leaving any trailing bytes belonging to a following message
// buffered for the next call. Used by cmd/confd's event-loop-driven
// connection handling, where a single fd-readiness callback must never
// block waiting for more bytes than the kernel currently has buffered.
type DecoderA struct {
	buf []byte
}

// NewDecoderA returns a fresh decoder with no accumulated state.
func NewDecoderA() *DecoderA { return &DecoderA{} }

// Feed appends chunk (nil is fine, to re-check already-buffered bytes
// for a second pipelined message) and reports a complete message when
// available.
func (d *DecoderA) Feed(chunk []byte) (sessionID uint32, body string, complete bool, err error) {
	d.buf = append(d.buf, chunk...)
	if len(d.buf) < headerSize {
		return 0, "", false, nil
	}

	total := binary.BigEndian.Uint32(d.buf[0:4])
	if total < headerSize {
		return 0, "", false, errs.New(errs.Proto, "malformed length field: %d", total)
	}
	bodyLen := total - headerSize
	if bodyLen > maxBodyBytes {
		return 0, "", false, errs.New(errs.Proto, "oversize body: %d bytes exceeds %d", bodyLen, maxBodyBytes)
	}
	if uint32(len(d.buf)) < total {
		return 0, "", false, nil
	}

	sessionID = binary.BigEndian.Uint32(d.buf[4:8])
	raw := append([]byte(nil), d.buf[headerSize:total]...)
	if len(raw) > 0 && raw[len(raw)-1] == 0 {
		raw = raw[:len(raw)-1]
	}
	d.buf = d.buf[total:]
	return sessionID, string(raw), true, nil
}

// Dial establishes a connection over "unix" or "tcp" (IPv4/IPv6),
// distinguishing a permission-denied refusal (probable group-membership
// issue on a local socket) from a generic connection refusal.
func Dial(network, address string) (net.Conn, error) {
	conn, err := net.Dial(network, address)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) {
			return nil, errs.New(errs.Unix, "permission denied connecting to %s (check socket group membership): %v", address, err)
		}
		return nil, errs.New(errs.Unix, "connection refused: %v", err)
	}
	return conn, nil
}

// Listen establishes a listener over "unix" or "tcp" (IPv4/IPv6), with the
// same diagnostic distinction as Dial.
func Listen(network, address string) (net.Listener, error) {
	ln, err := net.Listen(network, address)
	if err != nil {
		if errors.Is(err, fs.ErrPermission) || errors.Is(err, syscall.EACCES) {
			return nil, errs.New(errs.Unix, "permission denied listening on %s (check socket group membership): %v", address, err)
		}
		return nil, errs.New(errs.Unix, "listen failed: %v", err)
	}
	return ln, nil
}
