// Package serial is the opaque tree read/write primitive spec.md keeps
// external to the hard core (§1): given a configured format, encode a
// *xmltree.Node subtree to bytes or decode bytes back into one. Schema
// binding (resolving each decoded node's schema.Statement backpointer) is
// the datastore engine's job, not the codec's — mirroring the teacher's
// framing of its XDR encode/decode helpers (internal/protocol/xdr) as
// opaque wire-format primitives with no business logic of their own.
package serial

import (
	"io"

	"github.com/yangconf/confd/internal/xmltree"
)

// Format names a configured on-disk/wire representation.
type Format string

const (
	XML  Format = "xml"
	JSON Format = "json"
)

// Codec encodes and decodes a *xmltree.Node tree. XML and JSON
// implementations are required, by table-driven test, to round-trip the
// same tree without semantic loss (DESIGN NOTES §9, "two-format backing
// store").
type Codec interface {
	Encode(w io.Writer, root *xmltree.Node, pretty bool) error
	Decode(r io.Reader) (*xmltree.Node, error)
}

// ForFormat returns the Codec registered for format.
func ForFormat(f Format) (Codec, bool) {
	switch f {
	case XML:
		return XMLCodec{}, true
	case JSON:
		return JSONCodec{}, true
	default:
		return nil, false
	}
}
