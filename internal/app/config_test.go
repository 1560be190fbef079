package app

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/claudewire/claudewire/internal/tokensource"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("", false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:4000" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.MaxRequestBytes != 10<<20 {
		t.Errorf("max_request_bytes = %d", cfg.Server.MaxRequestBytes)
	}
	if cfg.Upstream.BaseURL != "https://api.anthropic.com" {
		t.Errorf("base_url = %s", cfg.Upstream.BaseURL)
	}
	if cfg.Upstream.ReadTimeout != 60*time.Second {
		t.Errorf("read_timeout = %s", cfg.Upstream.ReadTimeout)
	}
	if cfg.Upstream.StreamTimeout != 600*time.Second {
		t.Errorf("stream_timeout = %s", cfg.Upstream.StreamTimeout)
	}
	if cfg.Auth.Storage != TokenStorageTypeKeyring {
		t.Errorf("auth storage = %q", cfg.Auth.Storage)
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
[server]
addr = "0.0.0.0:8080"

[upstream]
stream_timeout = "300s"

[auth]
storage = "file"
token_file = "/tmp/token"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := LoadConfig(path, true)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:8080" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Upstream.StreamTimeout != 300*time.Second {
		t.Errorf("stream_timeout = %s", cfg.Upstream.StreamTimeout)
	}
	// Untouched keys keep their defaults.
	if cfg.Upstream.ReadTimeout != 60*time.Second {
		t.Errorf("read_timeout = %s", cfg.Upstream.ReadTimeout)
	}
	if cfg.Auth.Storage != TokenStorageTypeFile || cfg.Auth.TokenFile != "/tmp/token" {
		t.Errorf("auth = %+v", cfg.Auth)
	}
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CLAUDEWIRE_SERVER__ADDR", "127.0.0.1:9999")
	t.Setenv("CLAUDEWIRE_UPSTREAM__READ_TIMEOUT", "30s")

	cfg, err := LoadConfig("", false)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Upstream.ReadTimeout != 30*time.Second {
		t.Errorf("read_timeout = %s", cfg.Upstream.ReadTimeout)
	}
}

func TestLoadConfigMissingExplicitFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"), true); err == nil {
		t.Fatal("missing explicit config file accepted")
	}
}

func TestLoadConfigMissingDefaultFileIgnored(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "absent.toml"), false); err != nil {
		t.Fatalf("missing default config file rejected: %v", err)
	}
}

func TestLoadConfigRejectsInvalidStorage(t *testing.T) {
	t.Setenv("CLAUDEWIRE_AUTH__STORAGE", "vault")

	if _, err := LoadConfig("", false); err == nil {
		t.Fatal("invalid storage type accepted")
	}
}

func TestNewTokenStoreSelection(t *testing.T) {
	store, err := AuthConfig{Storage: TokenStorageTypeFile, TokenFile: "/tmp/token"}.NewTokenStore()
	if err != nil {
		t.Fatalf("file store: %v", err)
	}
	fileStore, ok := store.(*tokensource.FileStore)
	if !ok || fileStore.Path != "/tmp/token" {
		t.Errorf("store = %#v, want FileStore at /tmp/token", store)
	}

	store, err = AuthConfig{Storage: TokenStorageTypeEnv}.NewTokenStore()
	if err != nil {
		t.Fatalf("env store: %v", err)
	}
	envStore, ok := store.(*tokensource.EnvStore)
	if !ok || envStore.Variable != "CLAUDEWIRE_REFRESH_TOKEN" {
		t.Errorf("store = %#v, want EnvStore on CLAUDEWIRE_REFRESH_TOKEN", store)
	}

	if _, err := (AuthConfig{Storage: "vault"}).NewTokenStore(); err == nil {
		t.Error("unknown storage type accepted")
	}
}
