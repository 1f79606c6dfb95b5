package xmltree

import (
	"testing"

	"github.com/yangconf/confd/internal/schema"
)

func TestBindSchemaResolvesEveryDescendant(t *testing.T) {
	oracle := schema.NewMemoryOracle().
		DeclareStatement([]string{"hostname"}, &schema.Statement{Kind: schema.Leaf})

	root := NewElement("config")
	root.AppendChild(NewLeaf("hostname", "r1"))

	if err := BindSchema(root, oracle, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if root.Children[0].Schema == nil || root.Children[0].Schema.Kind != schema.Leaf {
		t.Fatalf("expected hostname to be bound to a Leaf statement")
	}
}

func TestBindSchemaErrorsOnUnknownElement(t *testing.T) {
	oracle := schema.NewMemoryOracle()
	root := NewElement("config")
	root.AppendChild(NewLeaf("mystery", "x"))

	if err := BindSchema(root, oracle, nil); err == nil {
		t.Fatalf("expected error for unresolved schema statement")
	}
}
