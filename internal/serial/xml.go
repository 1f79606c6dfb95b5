package serial

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/xmltree"
)

// XMLCodec implements Codec on top of encoding/xml.
type XMLCodec struct{}

func (XMLCodec) Encode(w io.Writer, root *xmltree.Node, pretty bool) error {
	enc := xml.NewEncoder(w)
	if pretty {
		enc.Indent("", "  ")
	}
	if err := encodeNode(enc, root); err != nil {
		return err
	}
	return enc.Flush()
}

func encodeNode(enc *xml.Encoder, n *xmltree.Node) error {
	start := xml.StartElement{Name: xml.Name{Local: n.Name}}
	for _, a := range n.Attrs {
		start.Attr = append(start.Attr, xml.Attr{Name: xml.Name{Local: a.Name}, Value: a.Body})
	}
	if err := enc.EncodeToken(start); err != nil {
		return fmt.Errorf("encode <%s> start: %w", n.Name, err)
	}
	if n.Body != "" {
		if err := enc.EncodeToken(xml.CharData(n.Body)); err != nil {
			return fmt.Errorf("encode <%s> body: %w", n.Name, err)
		}
	}
	for _, c := range n.Children {
		if err := encodeNode(enc, c); err != nil {
			return err
		}
	}
	if err := enc.EncodeToken(start.End()); err != nil {
		return fmt.Errorf("encode <%s> end: %w", n.Name, err)
	}
	return nil
}

func (XMLCodec) Decode(r io.Reader) (*xmltree.Node, error) {
	dec := xml.NewDecoder(r)
	var root *xmltree.Node
	var stack []*xmltree.Node

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errs.New(errs.XML, "malformed xml: %v", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := &xmltree.Node{Name: t.Name.Local, Kind: xmltree.KindElement}
			for _, a := range t.Attr {
				n.SetAttr(a.Name.Local, a.Value)
			}
			if len(stack) > 0 {
				stack[len(stack)-1].AppendChild(n)
			} else {
				root = n
			}
			stack = append(stack, n)
		case xml.EndElement:
			if len(stack) == 0 {
				return nil, errs.New(errs.XML, "unbalanced end element </%s>", t.Name.Local)
			}
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) == 0 {
				continue
			}
			text := strings.TrimSpace(string(t))
			if text == "" {
				continue
			}
			cur := stack[len(stack)-1]
			cur.Body += text
		}
	}
	if root == nil {
		return nil, nil // empty file; caller fabricates <config/>
	}
	if len(stack) != 0 {
		return nil, errs.New(errs.XML, "truncated xml document")
	}
	return root, nil
}
