package config

import (
	"os"
	"testing"
)

func TestDefaultGameModesCoversAllFourNamedModes(t *testing.T) {
	modes := DefaultGameModes()
	for _, name := range []string{"test", "extraction", "payload", "trenchraid"} {
		if _, ok := modes[name]; !ok {
			t.Errorf("expected a %q game mode config", name)
		}
	}
}

func TestDefaultHazardConfigsEnablesTrenchraidHazards(t *testing.T) {
	cfgs := DefaultHazardConfigs()
	if len(cfgs) == 0 {
		t.Fatal("expected at least one hazard placement config")
	}
	for _, c := range cfgs {
		if !c.Enabled {
			t.Errorf("expected default hazard config for %v to be enabled", c.Kind)
		}
	}
}

func TestServerFromEnvAppliesOverrides(t *testing.T) {
	os.Setenv("PORT", "8080")
	os.Setenv("CORS_ORIGINS", "https://a.example,https://b.example")
	defer os.Unsetenv("PORT")
	defer os.Unsetenv("CORS_ORIGINS")

	cfg := ServerFromEnv()
	if cfg.Port != 8080 {
		t.Errorf("expected port override to apply, got %d", cfg.Port)
	}
	if len(cfg.CORSOrigins) != 2 || cfg.CORSOrigins[0] != "https://a.example" {
		t.Errorf("expected CORS origins to be split, got %v", cfg.CORSOrigins)
	}
}

func TestRoomFromEnvDefaultsWithoutOverride(t *testing.T) {
	cfg := RoomFromEnv()
	if cfg.TickHz != 60.0 {
		t.Errorf("expected default tick rate of 60, got %v", cfg.TickHz)
	}
}

func TestWeaponTableHasEightWeapons(t *testing.T) {
	table := WeaponTable()
	if len(table) != 8 {
		t.Errorf("expected 8 weapons in the progression table, got %d", len(table))
	}
}
