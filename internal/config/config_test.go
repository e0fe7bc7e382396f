package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Engine.HistoryLimit != 5 {
		t.Errorf("HistoryLimit = %d, want 5", cfg.Engine.HistoryLimit)
	}
	if cfg.Engine.AsyncPostProcess {
		t.Error("AsyncPostProcess should default to false")
	}
	if got := cfg.Engine.ProviderTimeoutDuration(); got != 30*time.Second {
		t.Errorf("ProviderTimeoutDuration() = %v", got)
	}
	if cfg.Session.LockBackend != "local" {
		t.Errorf("LockBackend = %q, want local", cfg.Session.LockBackend)
	}
	if cfg.AI.Primary.Client != "eino" || cfg.AI.Secondary.Client != "openai" {
		t.Errorf("clients = %q/%q", cfg.AI.Primary.Client, cfg.AI.Secondary.Client)
	}
	if cfg.Cache.TenantTTLDuration() != 10*time.Minute {
		t.Errorf("TenantTTLDuration() = %v", cfg.Cache.TenantTTLDuration())
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
server:
  port: 9090
ai:
  primary:
    apiKey: from-file
    model: gpt-4o
engine:
  historyLimit: 8
session:
  lockBackend: redis
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("NEXT_ASSISTANT_AI_SECONDARY_APIKEY", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.GetAddr() != "0.0.0.0:9090" {
		t.Errorf("GetAddr() = %q", cfg.Server.GetAddr())
	}
	if !cfg.AI.Primary.Configured() || cfg.AI.Primary.Model != "gpt-4o" {
		t.Errorf("Primary = %+v", cfg.AI.Primary)
	}
	if cfg.AI.Secondary.APIKey != "from-env" || !cfg.AI.Secondary.Configured() {
		t.Errorf("Secondary = %+v", cfg.AI.Secondary)
	}
	if cfg.Engine.HistoryLimit != 8 || cfg.Session.LockBackend != "redis" {
		t.Errorf("Engine/Session = %+v / %+v", cfg.Engine, cfg.Session)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestProviderConfig_Configured(t *testing.T) {
	tests := []struct {
		key  string
		want bool
	}{
		{key: "", want: false},
		{key: "   ", want: false},
		{key: "sk-1", want: true},
	}
	for _, tt := range tests {
		if got := (ProviderConfig{APIKey: tt.key}).Configured(); got != tt.want {
			t.Errorf("Configured(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
