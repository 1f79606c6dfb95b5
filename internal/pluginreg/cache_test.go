package pluginreg

import (
	"testing"
	"time"
)

func TestModuleCachePutGetRoundTrip(t *testing.T) {
	c, err := OpenModuleCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenModuleCache: %v", err)
	}
	defer c.Close()

	rec := ModuleRecord{Name: "jwt.so", Path: "/plugins/jwt.so", LoadedAt: time.Unix(1000, 0).UTC()}
	if err := c.Put(rec); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, found, err := c.Get("jwt.so")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatalf("expected record to be found")
	}
	if got.Path != rec.Path || !got.LoadedAt.Equal(rec.LoadedAt) {
		t.Fatalf("got %+v, want %+v", got, rec)
	}
}

func TestModuleCacheGetMissingReturnsNotFound(t *testing.T) {
	c, err := OpenModuleCache(t.TempDir())
	if err != nil {
		t.Fatalf("OpenModuleCache: %v", err)
	}
	defer c.Close()

	_, found, err := c.Get("absent")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if found {
		t.Fatalf("expected not found")
	}
}
