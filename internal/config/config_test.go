package config_test

import (
	"testing"

	"github.com/rs/zerolog"

	"github.com/lifeline-dev/lifeline/internal/config"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "LOG_LEVEL", "LOG_PRETTY", "AUDIT_LOG_DIR", "PROXIMITY_RADIUS_M"} {
		t.Setenv(key, "")
	}

	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
	if cfg.Audit.Dir != "logs" {
		t.Fatalf("unexpected audit dir: %s", cfg.Audit.Dir)
	}
	if cfg.Tracking.ProximityRadiusMeters != 100 {
		t.Fatalf("unexpected radius: %g", cfg.Tracking.ProximityRadiusMeters)
	}
	if cfg.Log.Level != zerolog.InfoLevel {
		t.Fatalf("unexpected log level: %s", cfg.Log.Level)
	}
}

func TestLoadPortForms(t *testing.T) {
	t.Setenv("PORT", "9000")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != ":9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}

	t.Setenv("PORT", "127.0.0.1:9000")
	cfg, err = config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr: %s", cfg.Server.Addr)
	}
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("PORT", "90 00")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for malformed PORT")
	}
}

func TestLoadProximityRadius(t *testing.T) {
	t.Setenv("PROXIMITY_RADIUS_M", "250")
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}
	if cfg.Tracking.ProximityRadiusMeters != 250 {
		t.Fatalf("unexpected radius: %g", cfg.Tracking.ProximityRadiusMeters)
	}

	t.Setenv("PROXIMITY_RADIUS_M", "-5")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for negative radius")
	}

	t.Setenv("PROXIMITY_RADIUS_M", "not-a-number")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for malformed radius")
	}
}

func TestLoadInvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "chatty")
	if _, err := config.Load(); err == nil {
		t.Fatal("expected error for invalid LOG_LEVEL")
	}
}
