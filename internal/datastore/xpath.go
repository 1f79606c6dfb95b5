package datastore

import (
	"strings"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/xmltree"
)

// Step is one parsed xpath location step: a child element name with an
// optional single equality predicate, e.g. "iface[name=\"e0\"]".
type Step struct {
	Name      string
	PredKey   string
	PredValue string
}

// ParseXPath parses the restricted location-path subset get() needs:
// "/" or "" select the root itself; otherwise a "/"-separated sequence
// of name or name[key="value"] steps. This is deliberately not a general
// XPath engine — no pack dependency implements one, and spec.md §1 keeps
// xpath evaluation's full generality out of this core's hard contract.
func ParseXPath(xpath string) ([]Step, error) {
	xpath = strings.TrimSpace(xpath)
	if xpath == "" || xpath == "/" {
		return nil, nil
	}
	xpath = strings.TrimPrefix(xpath, "/")
	parts := strings.Split(xpath, "/")
	steps := make([]Step, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		step := Step{Name: part}
		if i := strings.IndexByte(part, '['); i >= 0 {
			if !strings.HasSuffix(part, "]") {
				return nil, errs.New(errs.XML, "malformed xpath step %q", part)
			}
			step.Name = part[:i]
			pred := part[i+1 : len(part)-1]
			eq := strings.IndexByte(pred, '=')
			if eq < 0 {
				return nil, errs.New(errs.XML, "malformed xpath predicate %q", pred)
			}
			step.PredKey = strings.TrimSpace(pred[:eq])
			step.PredValue = strings.Trim(strings.TrimSpace(pred[eq+1:]), `"'`)
		}
		steps = append(steps, step)
	}
	return steps, nil
}

// Evaluate walks steps from root, returning the matched node-set.
func Evaluate(root *xmltree.Node, steps []Step) []*xmltree.Node {
	current := []*xmltree.Node{root}
	for _, step := range steps {
		var next []*xmltree.Node
		for _, n := range current {
			for _, c := range n.Children {
				if c.Name != step.Name {
					continue
				}
				if step.PredKey != "" {
					kv := c.ChildByName(step.PredKey)
					if kv == nil || kv.Body != step.PredValue {
						continue
					}
				}
				next = append(next, c)
			}
		}
		current = next
	}
	return current
}
