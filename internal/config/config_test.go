package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadAppliesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	if err := os.WriteFile(path, []byte(`server-id = "SSH-2.0-custom"`+"\n"), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ServerID != "SSH-2.0-custom" {
		t.Fatalf("expected the explicit server-id to survive, got %q", cfg.ServerID)
	}
	if cfg.ListenAddress != defaultListenAddress {
		t.Fatalf("expected the default listen address, got %q", cfg.ListenAddress)
	}
	if cfg.AccessProbability != defaultAccessProbability {
		t.Fatalf("expected the default access probability, got %v", cfg.AccessProbability)
	}
	if cfg.AuditOutputFile != defaultAuditOutputFile {
		t.Fatalf("expected the default audit output file, got %q", cfg.AuditOutputFile)
	}
}

func TestLoadFullyPopulated(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	content := `
listen-address = "127.0.0.1:2222"
access-probability = 0.5
audit-output-file = "/tmp/audit.log"
server-id = "SSH-2.0-test"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.ListenAddress != "127.0.0.1:2222" {
		t.Fatalf("unexpected listen address: %q", cfg.ListenAddress)
	}
	if cfg.AccessProbability != 0.5 {
		t.Fatalf("unexpected access probability: %v", cfg.AccessProbability)
	}
	if cfg.AuditOutputFile != "/tmp/audit.log" {
		t.Fatalf("unexpected audit output file: %q", cfg.AuditOutputFile)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.toml"); err == nil {
		t.Fatal("expected an error for a missing config file")
	}
}
