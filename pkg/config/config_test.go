package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/pflag"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Validate(Default()); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  addr: ":9090"
database:
  driver: postgres
  host: db.example.com
  user: flashdeck
  dbname: flashdeck
study:
  mastery_threshold: 3
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("expected addr :9090, got %q", cfg.Server.Addr)
	}
	if cfg.Database.Driver != "postgres" || cfg.Database.Host != "db.example.com" {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Study.MasteryThreshold != 3 {
		t.Fatalf("expected mastery threshold 3, got %d", cfg.Study.MasteryThreshold)
	}
	// Untouched sections keep their defaults.
	if cfg.Study.InitialEase != 2.5 {
		t.Fatalf("expected default initial ease, got %v", cfg.Study.InitialEase)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("FLASHDECK_SERVER__ADDR", ":7070")
	t.Setenv("FLASHDECK_LOGGING__LEVEL", "debug")

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":7070" {
		t.Fatalf("expected addr :7070, got %q", cfg.Server.Addr)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("expected debug level, got %q", cfg.Logging.Level)
	}
}

func TestLoadFlagOverride(t *testing.T) {
	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("server.addr", ":8080", "listen address")
	if err := flags.Parse([]string{"--server.addr=:6060"}); err != nil {
		t.Fatalf("failed to parse flags: %v", err)
	}

	cfg, err := Load("", flags)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Server.Addr != ":6060" {
		t.Fatalf("expected addr :6060, got %q", cfg.Server.Addr)
	}
}

func TestLoadRejectsBadDriver(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("database:\n  driver: oracle\n"), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	if _, err := Load(path, nil); err == nil {
		t.Fatal("expected validation error for unsupported driver")
	}
}

func TestLoadMissingFileFails(t *testing.T) {
	if _, err := Load("/nonexistent/config.yaml", nil); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
