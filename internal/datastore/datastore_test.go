package datastore

import (
	"testing"

	"github.com/yangconf/confd/internal/schema"
	"github.com/yangconf/confd/internal/xmltree"
)

func testOracle() *schema.MemoryOracle {
	return schema.NewMemoryOracle().
		DeclareOrder(nil, []string{"iface", "system", "profile"}).
		DeclareStatement([]string{"iface"}, &schema.Statement{Kind: schema.List, Keys: []string{"name"}, Config: true}).
		DeclareOrder([]string{"iface"}, []string{"name", "mtu", "admin"}).
		DeclareStatement([]string{"iface", "name"}, &schema.Statement{Kind: schema.Leaf, Config: true}).
		DeclareStatement([]string{"iface", "mtu"}, &schema.Statement{Kind: schema.Leaf, Config: true}).
		DeclareStatement([]string{"iface", "admin"}, &schema.Statement{Kind: schema.Leaf, Config: true}).
		DeclareStatement([]string{"system"}, &schema.Statement{Kind: schema.Container, Presence: true, Config: true}).
		DeclareStatement([]string{"system", "hostname"}, &schema.Statement{Kind: schema.Leaf, Config: true}).
		DeclareStatement([]string{"profile"}, &schema.Statement{Kind: schema.Container, Presence: false, Config: true}).
		DeclareStatement([]string{"profile", "name"}, &schema.Statement{Kind: schema.Leaf, Config: true})
}

func newTestEngine(t *testing.T) *Engine {
	t.Helper()
	e := Connect(testOracle())
	if err := e.SetOption("dir", t.TempDir()); err != nil {
		t.Fatalf("SetOption(dir): %v", err)
	}
	if err := e.Create("running"); err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func configWithIface(name, mtu, admin string) *xmltree.Node {
	cfg := xmltree.NewElement("config")
	iface := xmltree.NewElement("iface")
	iface.AppendChild(xmltree.NewLeaf("name", name))
	if mtu != "" {
		iface.AppendChild(xmltree.NewLeaf("mtu", mtu))
	}
	if admin != "" {
		iface.AppendChild(xmltree.NewLeaf("admin", admin))
	}
	cfg.AppendChild(iface)
	return cfg
}

func TestEngineEmptyDatabaseParsesAsEmptyConfig(t *testing.T) {
	e := newTestEngine(t)
	got, err := e.Get("running", "/", false)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "config" || len(got.Children) != 0 {
		t.Fatalf("expected empty config, got %+v", got)
	}
}

func TestScenarioLeafReplace(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("running", OpMerge, configWithIface("e0", "1500", "")); err != nil {
		t.Fatalf("initial put: %v", err)
	}
	if err := e.Put("running", OpMerge, configWithIface("e0", "9000", "")); err != nil {
		t.Fatalf("second put: %v", err)
	}
	got, err := e.Get("running", "/", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	iface := got.ChildByName("iface")
	if iface == nil {
		t.Fatalf("expected iface in result")
	}
	if mtu := iface.ChildByName("mtu"); mtu == nil || mtu.Body != "9000" {
		t.Fatalf("expected mtu=9000, got %+v", mtu)
	}
}

func TestScenarioListKeyPreservationUnderXPath(t *testing.T) {
	e := newTestEngine(t)
	cfg := xmltree.NewElement("config")
	e0 := xmltree.NewElement("iface")
	e0.AppendChild(xmltree.NewLeaf("name", "e0"))
	e0.AppendChild(xmltree.NewLeaf("mtu", "1500"))
	e0.AppendChild(xmltree.NewLeaf("admin", "up"))
	cfg.AppendChild(e0)
	e1 := xmltree.NewElement("iface")
	e1.AppendChild(xmltree.NewLeaf("name", "e1"))
	e1.AppendChild(xmltree.NewLeaf("mtu", "9000"))
	e1.AppendChild(xmltree.NewLeaf("admin", "down"))
	cfg.AppendChild(e1)

	if err := e.Put("running", OpMerge, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}

	got, err := e.Get("running", `/iface[name="e0"]/mtu`, false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if len(got.Children) != 1 {
		t.Fatalf("expected exactly one iface entry, got %d", len(got.Children))
	}
	iface := got.Children[0]
	if iface.ChildByName("name") == nil || iface.ChildByName("name").Body != "e0" {
		t.Fatalf("expected key leaf name=e0 preserved, got %+v", iface)
	}
	if iface.ChildByName("mtu") == nil || iface.ChildByName("mtu").Body != "1500" {
		t.Fatalf("expected mtu=1500, got %+v", iface.ChildByName("mtu"))
	}
	if iface.ChildByName("admin") != nil {
		t.Fatalf("admin should not be present, xpath selected only mtu")
	}
}

func TestPutCreateConflictLeavesTreeUnchanged(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("running", OpCreate, configWithIface("e0", "1500", "")); err != nil {
		t.Fatalf("first create: %v", err)
	}
	err := e.Put("running", OpCreate, configWithIface("e0", "9000", ""))
	if err == nil {
		t.Fatalf("expected error on create-of-existing")
	}
	got, _ := e.Get("running", "/", false)
	if mtu := got.ChildByName("iface").ChildByName("mtu"); mtu.Body != "1500" {
		t.Fatalf("tree must be unchanged after failed create, got mtu=%s", mtu.Body)
	}
}

func TestPutDeleteOfAbsentErrors(t *testing.T) {
	e := newTestEngine(t)
	err := e.Put("running", OpDelete, configWithIface("ghost", "1500", ""))
	if err == nil {
		t.Fatalf("expected error deleting absent node")
	}
}

func TestOpNoneOnExistingLeafLeavesItIntact(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Put("running", OpMerge, configWithIface("e0", "1500", "up")); err != nil {
		t.Fatalf("initial put: %v", err)
	}
	// A none-operation edit-config touching an already-existing leaf must
	// be a pure no-op; it must not mark the leaf NONE and have it pruned.
	if err := e.Put("running", OpNone, configWithIface("e0", "1500", "up")); err != nil {
		t.Fatalf("none put: %v", err)
	}
	got, err := e.Get("running", "/", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	iface := got.ChildByName("iface")
	if iface == nil {
		t.Fatalf("expected iface to survive a none-operation put, got %+v", got)
	}
	if mtu := iface.ChildByName("mtu"); mtu == nil || mtu.Body != "1500" {
		t.Fatalf("expected mtu=1500 to survive, got %+v", mtu)
	}
	if admin := iface.ChildByName("admin"); admin == nil || admin.Body != "up" {
		t.Fatalf("expected admin=up to survive, got %+v", admin)
	}
}

func TestOpNoneCreatesPlaceholderThatGetsPrunedWhenEmpty(t *testing.T) {
	e := newTestEngine(t)
	cfg := xmltree.NewElement("config")
	cfg.AppendChild(xmltree.NewElement("system"))
	if err := e.Put("running", OpNone, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := e.Get("running", "/", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ChildByName("system") != nil {
		t.Fatalf("a none-created container with no real children must be pruned, got %+v", got)
	}
}

func TestPresenceContainerSurvivesEmpty(t *testing.T) {
	e := newTestEngine(t)
	cfg := xmltree.NewElement("config")
	cfg.AppendChild(xmltree.NewElement("system"))
	if err := e.Put("running", OpCreate, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := e.Get("running", "/", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ChildByName("system") == nil {
		t.Fatalf("presence container with zero children must survive")
	}
}

func TestNonPresenceContainerPrunedWhenEmptied(t *testing.T) {
	e := newTestEngine(t)
	cfg := xmltree.NewElement("config")
	profile := xmltree.NewElement("profile")
	profile.AppendChild(xmltree.NewLeaf("name", "default"))
	cfg.AppendChild(profile)
	if err := e.Put("running", OpMerge, cfg); err != nil {
		t.Fatalf("put: %v", err)
	}

	delCfg := xmltree.NewElement("config")
	delProfile := xmltree.NewElement("profile")
	delName := xmltree.NewLeaf("name", "default")
	delName.SetAttr("operation", "delete")
	delProfile.AppendChild(delName)
	delCfg.AppendChild(delProfile)
	if err := e.Put("running", OpMerge, delCfg); err != nil {
		t.Fatalf("delete put: %v", err)
	}

	got, err := e.Get("running", "/", false)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ChildByName("profile") != nil {
		t.Fatalf("non-presence container emptied by merge must be pruned, got %+v", got)
	}
}

func TestLockHandoff(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Lock("running", 1); err != nil {
		t.Fatalf("session A lock: %v", err)
	}
	if err := e.Lock("running", 2); err == nil {
		t.Fatalf("expected session B lock to fail while A holds it")
	}
	if owner := e.IsLocked("running"); owner != 1 {
		t.Fatalf("is-locked = %d, want 1", owner)
	}
	e.UnlockAll(1)
	if owner := e.IsLocked("running"); owner != 0 {
		t.Fatalf("expected unlocked after unlock-all(A), got owner %d", owner)
	}
	if err := e.Lock("running", 2); err != nil {
		t.Fatalf("session B lock after release: %v", err)
	}
}

func TestCopyIsDeepClone(t *testing.T) {
	e := newTestEngine(t)
	if err := e.Create("candidate"); err != nil {
		t.Fatalf("create candidate: %v", err)
	}
	if err := e.Put("running", OpMerge, configWithIface("e0", "1500", "")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := e.Copy("running", "candidate"); err != nil {
		t.Fatalf("copy: %v", err)
	}
	candidate, err := e.Get("candidate", "/", false)
	if err != nil {
		t.Fatalf("get candidate: %v", err)
	}
	if candidate.ChildByName("iface").ChildByName("mtu").Body != "1500" {
		t.Fatalf("copy did not carry over content")
	}

	if err := e.Put("running", OpMerge, configWithIface("e0", "9000", "")); err != nil {
		t.Fatalf("put running: %v", err)
	}
	candidate, _ = e.Get("candidate", "/", false)
	if candidate.ChildByName("iface").ChildByName("mtu").Body != "1500" {
		t.Fatalf("copy must be independent of the source's later mutations, got %s",
			candidate.ChildByName("iface").ChildByName("mtu").Body)
	}
}
