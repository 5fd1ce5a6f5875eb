package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func envFrom(m map[string]string) func(string) string {
	return func(key string) string { return m[key] }
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := load(envFrom(map[string]string{"JWT_SECRET": "s3cret"}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":5000" || cfg.StoreDriver != "sqlite" || cfg.DatabasePath != "data/hushmap.db" {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if cfg.DefaultCity != "coimbatore" || cfg.WSSendBuffer != 16 || cfg.Timeout != 10*time.Second {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
	if string(cfg.JWT.Secret) != "s3cret" || cfg.ServerLog == nil {
		t.Error("secret or logger missing")
	}
}

func TestLoadRequiresSecret(t *testing.T) {
	if _, err := load(envFrom(nil)); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("expected JWT_SECRET error, got %v", err)
	}
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"STORE_DRIVER":          "cassandra",
		"WS_SEND_BUFFER":        "-1",
		"STORE_CONNECT_TIMEOUT": "soon",
	}
	for key, value := range cases {
		_, err := load(envFrom(map[string]string{"JWT_SECRET": "x", key: value}))
		if err == nil {
			t.Errorf("%s=%q should be rejected", key, value)
		}
	}
}

func TestYAMLOverlayWithEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hushmap.yaml")
	yaml := `
http_addr: ":7000"
default_city: Chennai
allowed_origins: ["https://hushmap.app"]
store:
  driver: postgres
  url: postgres://hush@db/hushmap
websocket:
  send_buffer: 64
mqtt:
  broker: mq.local:1883
`
	if err := os.WriteFile(path, []byte(yaml), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := load(envFrom(map[string]string{
		"JWT_SECRET":  "x",
		"CONFIG_FILE": path,
		"HTTP_ADDR":   ":9000",
	}))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Addr != ":9000" {
		t.Errorf("env should win over file, addr = %q", cfg.Addr)
	}
	if cfg.StoreDriver != "postgres" || cfg.DatabaseURL != "postgres://hush@db/hushmap" {
		t.Errorf("store from file: %+v", cfg)
	}
	if cfg.DefaultCity != "chennai" || cfg.WSSendBuffer != 64 || cfg.MQTTBroker != "mq.local:1883" {
		t.Errorf("file values not applied: %+v", cfg)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "https://hushmap.app" {
		t.Errorf("origins = %v", cfg.AllowedOrigins)
	}
}

func TestListParsing(t *testing.T) {
	env := envReader{getenv: envFrom(map[string]string{"API_ALLOWED_ORIGINS": " https://a.example , ,https://b.example"})}
	got := env.list("API_ALLOWED_ORIGINS", nil)
	if len(got) != 2 || got[0] != "https://a.example" || got[1] != "https://b.example" {
		t.Fatalf("list = %v", got)
	}
}
