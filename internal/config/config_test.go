package config

import (
	"os"
	"testing"
)

func TestLoad_DefaultsWhenEnvUnset(t *testing.T) {
	for _, key := range []string{"POBA_ROLE", "POBA_PROPOSER_ID", "BACKEND_URL", "PORT"} {
		os.Unsetenv(key)
	}

	cfg := Load()

	if cfg.Worker.Role != RoleProposer {
		t.Errorf("expected default role %q, got %q", RoleProposer, cfg.Worker.Role)
	}
	if cfg.Port != "5339" {
		t.Errorf("expected default port 5339, got %q", cfg.Port)
	}
	if cfg.Worker.IsFinalizer() {
		t.Errorf("proposer role should not report IsFinalizer")
	}
}

func TestLoad_OverridesFromEnv(t *testing.T) {
	os.Setenv("POBA_ROLE", "finalizer")
	os.Setenv("POBA_FINALIZE_LAG_SLOTS", "3")
	defer os.Unsetenv("POBA_ROLE")
	defer os.Unsetenv("POBA_FINALIZE_LAG_SLOTS")

	cfg := Load()

	if !cfg.Worker.IsFinalizer() {
		t.Errorf("expected finalizer role to report IsFinalizer")
	}
	if cfg.Worker.FinalizeLagSlots != 3 {
		t.Errorf("expected FinalizeLagSlots=3, got %d", cfg.Worker.FinalizeLagSlots)
	}
}
