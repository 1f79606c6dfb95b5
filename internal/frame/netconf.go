package frame

import "io"

// netconfTerminator is the literal NETCONF end-of-message sequence.
var netconfTerminator = []byte("]]>]]>")

// DecoderB is the stateful six-state terminator detector for Frame B
// (§4.3 "NETCONF end-of-message"). Feed is driven incrementally by a
// single non-blocking read per invocation — Feed itself never blocks,
// matching the §4.2 rule that event-loop callbacks must not block. NUL
// bytes are discarded silently (defence against terminal line-discipline
// artefacts).
type DecoderB struct {
	buf   []byte
	state int
}

// NewDecoderB returns a fresh decoder with no accumulated state.
func NewDecoderB() *DecoderB { return &DecoderB{} }

// Feed consumes chunk, returning the accumulated payload with the
// terminator stripped and complete=true once the terminator has been
// seen. The decoder resets its internal state after a complete message so
// it is ready for the next one on the same stream.
func (d *DecoderB) Feed(chunk []byte) (payload []byte, complete bool) {
	for _, b := range chunk {
		if b == 0 {
			continue
		}
		d.buf = append(d.buf, b)
		if b == netconfTerminator[d.state] {
			d.state++
		} else {
			d.state = 0
			if b == netconfTerminator[0] {
				d.state = 1
			}
		}
		if d.state == len(netconfTerminator) {
			payload = append([]byte(nil), d.buf[:len(d.buf)-len(netconfTerminator)]...)
			d.buf = nil
			d.state = 0
			return payload, true
		}
	}
	return nil, false
}

// Poller reports, without blocking, whether more bytes are immediately
// available on the underlying source — the §4.2 Poll primitive.
type Poller func() (bool, error)

// ReadB is a blocking convenience wrapper around DecoderB for callers
// that are not multiplexed through the event loop — a simple CLI front-end
// reading one NETCONF reply off its own dedicated connection. It loops,
// reading whatever is available and feeding it to the decoder, consulting
// poll only to decide whether the terminator's absence means "keep
// blocking on the next Read" (the common case) rather than anything the
// blocking Read call doesn't already handle; poll may be nil, in which
// case ReadB always blocks for the next Read.
func ReadB(r io.Reader, poll Poller) ([]byte, error) {
	dec := NewDecoderB()
	chunk := make([]byte, 4096)
	for {
		n, err := r.Read(chunk)
		if n > 0 {
			if payload, complete := dec.Feed(chunk[:n]); complete {
				return payload, nil
			}
		}
		if err != nil {
			return nil, err
		}
		if poll != nil {
			if _, perr := poll(); perr != nil {
				return nil, perr
			}
		}
	}
}

// EncodeB appends the NETCONF terminator to payload.
func EncodeB(payload []byte) []byte {
	out := make([]byte, 0, len(payload)+len(netconfTerminator))
	out = append(out, payload...)
	out = append(out, netconfTerminator...)
	return out
}
