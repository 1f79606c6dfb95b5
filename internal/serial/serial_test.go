package serial

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/yangconf/confd/internal/xmltree"
)

func sampleTree() *xmltree.Node {
	root := xmltree.NewElement("config")
	iface := xmltree.NewElement("iface")
	iface.AppendChild(xmltree.NewLeaf("name", "e0"))
	iface.AppendChild(xmltree.NewLeaf("mtu", "1500"))
	iface.SetAttr("operation", "merge")
	root.AppendChild(iface)
	return root
}

func assertStructurallyEqual(t *testing.T, want, got *xmltree.Node) {
	t.Helper()
	require.Equal(t, want.Name, got.Name)
	require.Equal(t, want.Body, got.Body)
	require.Equal(t, len(want.Attrs), len(got.Attrs))
	for _, a := range want.Attrs {
		v, ok := got.Attr(a.Name)
		require.True(t, ok, "missing attribute %q", a.Name)
		require.Equal(t, a.Body, v)
	}
	require.Equal(t, len(want.Children), len(got.Children))
	for i := range want.Children {
		assertStructurallyEqual(t, want.Children[i], got.Children[i])
	}
}

func TestXMLRoundTrip(t *testing.T) {
	tree := sampleTree()
	var buf bytes.Buffer
	require.NoError(t, (XMLCodec{}).Encode(&buf, tree, true))

	got, err := (XMLCodec{}).Decode(&buf)
	require.NoError(t, err)
	assertStructurallyEqual(t, tree, got)
}

func TestJSONRoundTrip(t *testing.T) {
	tree := sampleTree()
	var buf bytes.Buffer
	require.NoError(t, (JSONCodec{}).Encode(&buf, tree, true))

	got, err := (JSONCodec{}).Decode(&buf)
	require.NoError(t, err)
	assertStructurallyEqual(t, tree, got)
}

func TestEmptyDocumentDecodesToNil(t *testing.T) {
	got, err := (XMLCodec{}).Decode(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Nil(t, got)

	got, err = (JSONCodec{}).Decode(bytes.NewReader(nil))
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestForFormat(t *testing.T) {
	_, ok := ForFormat(XML)
	require.True(t, ok)
	_, ok = ForFormat(JSON)
	require.True(t, ok)
	_, ok = ForFormat("yaml")
	require.False(t, ok)
}
