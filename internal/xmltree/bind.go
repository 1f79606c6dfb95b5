package xmltree

import (
	"strings"

	"github.com/yangconf/confd/internal/errs"
	"github.com/yangconf/confd/internal/schema"
)

// BindSchema resolves each node's Schema backpointer against oracle,
// recursively, enforcing §3's "every element below [config] has a resolved
// schema backpointer" invariant. path is the schema path of n's parent
// (empty for the config root, whose own Schema is left nil since the
// oracle does not declare a statement for the synthetic root).
func BindSchema(n *Node, oracle schema.Oracle, path []string) error {
	for _, c := range n.Children {
		childPath := append(append([]string{}, path...), c.Name)
		st, ok := oracle.Statement(childPath)
		if !ok {
			return errs.New(errs.Yang, "no schema statement for %q", strings.Join(childPath, "/")).WithPath(strings.Join(childPath, "/"))
		}
		c.Schema = st
		if err := BindSchema(c, oracle, childPath); err != nil {
			return err
		}
	}
	return nil
}
