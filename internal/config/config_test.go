package config

import "testing"

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir()) // avoid picking up a stray config file or .env

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Addr != "0.0.0.0:5000" {
		t.Errorf("server addr default: %q", cfg.Server.Addr)
	}
	if cfg.Auth.TokenTTLHours != 168 {
		t.Errorf("token ttl default: %d", cfg.Auth.TokenTTLHours)
	}
	if cfg.Auth.JWTSecret != "" {
		t.Errorf("jwt secret should default to empty, got %q", cfg.Auth.JWTSecret)
	}
	if cfg.Covers.SearchURL != "https://openlibrary.org/search.json" {
		t.Errorf("covers search url default: %q", cfg.Covers.SearchURL)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BOOKJOURNAL_SERVER_ADDR", "127.0.0.1:9999")
	t.Setenv("BOOKJOURNAL_AUTH_JWTSECRET", "s3cret")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9999" {
		t.Errorf("server addr override: %q", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Errorf("jwt secret override: %q", cfg.Auth.JWTSecret)
	}
}
