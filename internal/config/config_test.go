package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("ENV", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("VACATION_ENTITLEMENT_DAYS", "")
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.VacationEntitlementDays != 21 {
		t.Fatalf("expected default vacation entitlement 21, got %d", cfg.VacationEntitlementDays)
	}
	if cfg.DefaultAppointmentDurationMins != 30 {
		t.Fatalf("expected default appointment duration 30, got %d", cfg.DefaultAppointmentDurationMins)
	}
	if cfg.AvailabilityCacheTTL != 30*time.Second {
		t.Fatalf("expected default cache TTL, got %s", cfg.AvailabilityCacheTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("VACATION_ENTITLEMENT_DAYS", "26")
	t.Setenv("DEFAULT_BREAK_DURATION_MINS", "5")
	t.Setenv("REDIS_TLS", "true")
	t.Setenv("AVAILABILITY_CACHE_TTL", "45s")

	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected port override, got %s", cfg.Port)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected database url override, got %s", cfg.DatabaseURL)
	}
	if cfg.VacationEntitlementDays != 26 {
		t.Fatalf("expected vacation entitlement 26, got %d", cfg.VacationEntitlementDays)
	}
	if cfg.DefaultBreakDurationMins != 5 {
		t.Fatalf("expected break duration 5, got %d", cfg.DefaultBreakDurationMins)
	}
	if !cfg.RedisTLS {
		t.Fatal("expected redis tls enabled")
	}
	if cfg.AvailabilityCacheTTL != 45*time.Second {
		t.Fatalf("expected cache TTL 45s, got %s", cfg.AvailabilityCacheTTL)
	}
}

func TestBadIntFallsBackToDefault(t *testing.T) {
	t.Setenv("VACATION_ENTITLEMENT_DAYS", "twenty-one")
	cfg := Load()
	if cfg.VacationEntitlementDays != 21 {
		t.Fatalf("expected fallback to 21, got %d", cfg.VacationEntitlementDays)
	}
}
