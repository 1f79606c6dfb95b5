package commands

import (
	"bytes"
	"os"
	"testing"
)

func TestRootCmdRegistersAllSubcommands(t *testing.T) {
	want := []string{"version", "get-config", "edit-config", "lock", "unlock", "copy-config", "delete-config", "upgrade-datastore"}
	root := GetRootCmd()

	registered := make(map[string]bool)
	for _, cmd := range root.Commands() {
		registered[cmd.Name()] = true
	}
	for _, name := range want {
		if !registered[name] {
			t.Fatalf("expected subcommand %q to be registered, have %v", name, registered)
		}
	}
}

func TestDefaultAddressFallsBackWhenEnvUnset(t *testing.T) {
	old, had := os.LookupEnv("CONFDCTL_ADDRESS")
	os.Unsetenv("CONFDCTL_ADDRESS")
	defer func() {
		if had {
			os.Setenv("CONFDCTL_ADDRESS", old)
		}
	}()

	if got := defaultAddress(); got != "/var/run/confd/confd.sock" {
		t.Fatalf("defaultAddress() = %q, want /var/run/confd/confd.sock", got)
	}
}

func TestDefaultAddressPrefersEnv(t *testing.T) {
	old, had := os.LookupEnv("CONFDCTL_ADDRESS")
	os.Setenv("CONFDCTL_ADDRESS", "127.0.0.1:8300")
	defer func() {
		if had {
			os.Setenv("CONFDCTL_ADDRESS", old)
		} else {
			os.Unsetenv("CONFDCTL_ADDRESS")
		}
	}()

	if got := defaultAddress(); got != "127.0.0.1:8300" {
		t.Fatalf("defaultAddress() = %q, want 127.0.0.1:8300", got)
	}
}

func TestVersionCommandPrintsVersion(t *testing.T) {
	var buf bytes.Buffer
	versionCmd.SetOut(&buf)
	if err := versionCmd.RunE(versionCmd, nil); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if buf.Len() == 0 {
		t.Fatalf("expected version output to be printed")
	}
}
