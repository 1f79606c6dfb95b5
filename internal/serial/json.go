package serial

import (
	"encoding/json"
	"io"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/xmltree"
)

// JSONCodec implements Codec on top of encoding/json, using an explicit
// ordered intermediate representation since a plain map would lose both
// child order and repeated-name (list) siblings.
type JSONCodec struct{}

type jsonNode struct {
	Name     string            `json:"name"`
	Body     string            `json:"body,omitempty"`
	Attrs    map[string]string `json:"attrs,omitempty"`
	Children []*jsonNode       `json:"children,omitempty"`
}

func toJSONNode(n *xmltree.Node) *jsonNode {
	jn := &jsonNode{Name: n.Name, Body: n.Body}
	if len(n.Attrs) > 0 {
		jn.Attrs = make(map[string]string, len(n.Attrs))
		for _, a := range n.Attrs {
			jn.Attrs[a.Name] = a.Body
		}
	}
	for _, c := range n.Children {
		jn.Children = append(jn.Children, toJSONNode(c))
	}
	return jn
}

func fromJSONNode(jn *jsonNode) *xmltree.Node {
	n := &xmltree.Node{Name: jn.Name, Kind: xmltree.KindElement, Body: jn.Body}
	for name, value := range jn.Attrs {
		n.SetAttr(name, value)
	}
	for _, c := range jn.Children {
		n.AppendChild(fromJSONNode(c))
	}
	return n
}

func (JSONCodec) Encode(w io.Writer, root *xmltree.Node, pretty bool) error {
	enc := json.NewEncoder(w)
	if pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(toJSONNode(root)); err != nil {
		return errs.New(errs.XML, "encode json: %v", err)
	}
	return nil
}

func (JSONCodec) Decode(r io.Reader) (*xmltree.Node, error) {
	var jn jsonNode
	dec := json.NewDecoder(r)
	if err := dec.Decode(&jn); err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, errs.New(errs.XML, "malformed json: %v", err)
	}
	return fromJSONNode(&jn), nil
}
