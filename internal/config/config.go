// Package config provides centralized configuration management.
// This is the SINGLE SOURCE OF TRUTH for all room/simulation settings.
//
// IMPORTANT: When changing values, only modify this file.
// All other parts of the codebase should reference these values.
package config

import (
	"os"
	"strconv"
	"time"

	"dropzone/internal/loot"
	"dropzone/internal/sim"
	"dropzone/internal/zone"
)

// =============================================================================
// ROOM / RESOURCE LIMITS
// =============================================================================

// ResourceLimits controls DoS protection and per-room capacity.
type ResourceLimits struct {
	MaxTotalPlayers int // hard cap on total connected players across all rooms
	MaxPlayersPerRoom int
	MaxRooms        int
	MaxProjectiles  int // ceiling on scheduled grenade/explosion events in flight
}

// DefaultLimits returns the default resource limits.
func DefaultLimits() ResourceLimits {
	return ResourceLimits{
		MaxTotalPlayers:   1_000_000,
		MaxPlayersPerRoom: 100,
		MaxRooms:          10_000,
		MaxProjectiles:    30,
	}
}

// =============================================================================
// ROOM CONFIGURATION
// =============================================================================

// RoomConfig holds per-room lifecycle and tick settings (spec.md §5).
type RoomConfig struct {
	TickHz        float64
	Width, Height float64
	ReapGrace     time.Duration
}

// DefaultRoom returns the default room lifecycle configuration.
func DefaultRoom() RoomConfig {
	return RoomConfig{
		TickHz:    60.0,
		Width:     24000,
		Height:    24000,
		ReapGrace: 2 * time.Minute,
	}
}

// RoomFromEnv returns room configuration with environment variable overrides.
func RoomFromEnv() RoomConfig {
	cfg := DefaultRoom()

	if hz := getEnvFloat("ROOM_TICK_HZ", -1); hz > 0 {
		cfg.TickHz = hz
	}
	if grace := getEnvInt("ROOM_REAP_GRACE_SECONDS", 0); grace > 0 {
		cfg.ReapGrace = time.Duration(grace) * time.Second
	}

	return cfg
}

// =============================================================================
// SERVER CONFIGURATION
// =============================================================================

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port        int
	CORSOrigins []string

	// OperatorToken gates the admin/debug surface (internal/api's
	// room-admin routes). Empty disables admin auth entirely, matching
	// the teacher's EnableAdminAuth opt-in.
	OperatorToken string
}

// DefaultServer returns the default server configuration.
func DefaultServer() ServerConfig {
	return ServerConfig{
		Port:        3000,
		CORSOrigins: []string{"http://localhost:3000"},
	}
}

// ServerFromEnv returns server configuration with environment variable overrides.
func ServerFromEnv() ServerConfig {
	cfg := DefaultServer()

	if p := getEnvInt("PORT", 0); p > 0 {
		cfg.Port = p
	}
	if origins := getEnvString("CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitCSV(origins)
	}
	cfg.OperatorToken = getEnvString("OPERATOR_TOKEN", "")

	return cfg
}

// =============================================================================
// SPATIAL CONFIGURATION
// =============================================================================

// SpatialConfig holds spatial indexing settings.
type SpatialConfig struct {
	GridCellSize int // spatial grid cell size, spec.md §4.1 (~128 world units)
}

// DefaultSpatial returns the default spatial configuration.
func DefaultSpatial() SpatialConfig {
	return SpatialConfig{
		GridCellSize: 128,
	}
}

// =============================================================================
// GAME MODE CONFIGURATION
// =============================================================================

// TimersConfig is a mode's ready/extraction/extractionZone timing, spec.md
// §231's `timers:{ready, extraction, extractionZone}`.
type TimersConfig struct {
	ReadySeconds          float64
	ExtractionSeconds     float64
	ExtractionZoneRadius  float64
}

// SpawnConfig is a point-plus-radius: player spawn or extraction zone.
type SpawnConfig struct {
	X, Y, Radius float64
}

// LootConfig is a mode's chest economy, spec.md §231's
// `loot:{clearance, goldChest, brownChest, brownChestCount}`.
type LootConfig struct {
	Clearance       float64 // min distance between placed chests
	GoldChestCount  int
	BrownChestCount int
}

// WavePhaseConfig is one phase of an extraction-mode wave schedule
// (spec.md §154: `search`->`guard`->`waves[0..4]`).
type WavePhaseConfig struct {
	Name              string
	IntervalMin, IntervalMax float64
	TargetOnScreen    int
}

// GameModeConfig is one named mode's complete configuration surface,
// spec.md §231: `{enemies, zoneSpawning, hordeSpawning, troops, loot, npcs,
// timers, spawn, extraction, phases}`.
type GameModeConfig struct {
	Name string

	EnemyTypeRatios map[sim.EnemyType]float64
	DifficultyTiers []zone.DifficultyPreset

	Horde zone.HordeConfig

	BarracksCount int

	Loot LootConfig

	Timers TimersConfig

	Spawn      SpawnConfig
	Extraction SpawnConfig

	Phases []WavePhaseConfig
}

// DefaultGameModes returns the four named modes spec.md §231 lists. Values
// are tuned to the same order of magnitude as the per-zone defaults in
// internal/zone, not reverse-engineered from a reference client.
func DefaultGameModes() map[string]GameModeConfig {
	presets := zone.DefaultPresets()
	baseHorde := zone.HordeConfig{
		ForwardIntervalMin: 20, ForwardIntervalMax: 35,
		ReturnIntervalMin: 8, ReturnIntervalMax: 15,
	}

	return map[string]GameModeConfig{
		"test": {
			Name:            "test",
			DifficultyTiers: presets[:1],
			Horde:           baseHorde,
			BarracksCount:   0,
			Loot:            LootConfig{Clearance: 300, GoldChestCount: 1, BrownChestCount: 4},
			Timers:          TimersConfig{ReadySeconds: 10, ExtractionSeconds: 45, ExtractionZoneRadius: 600},
			Spawn:           SpawnConfig{X: 0, Y: 0, Radius: 300},
			Extraction:      SpawnConfig{X: 2000, Y: 0, Radius: 600},
		},
		"extraction": {
			Name:            "extraction",
			DifficultyTiers: presets,
			Horde:           baseHorde,
			BarracksCount:   2,
			Loot:            LootConfig{Clearance: 400, GoldChestCount: 1, BrownChestCount: 8},
			Timers:          TimersConfig{ReadySeconds: 10, ExtractionSeconds: 60, ExtractionZoneRadius: 700},
			Spawn:           SpawnConfig{X: -11000, Y: 0, Radius: 400},
			Extraction:      SpawnConfig{X: 9000, Y: 0, Radius: 700},
			Phases: []WavePhaseConfig{
				{Name: "search", IntervalMin: 15, IntervalMax: 25, TargetOnScreen: 6},
				{Name: "guard", IntervalMin: 10, IntervalMax: 18, TargetOnScreen: 10},
				{Name: "wave0", IntervalMin: 8, IntervalMax: 12, TargetOnScreen: 12},
				{Name: "wave1", IntervalMin: 7, IntervalMax: 11, TargetOnScreen: 14},
				{Name: "wave2", IntervalMin: 6, IntervalMax: 10, TargetOnScreen: 16},
				{Name: "wave3", IntervalMin: 5, IntervalMax: 9, TargetOnScreen: 18},
				{Name: "wave4", IntervalMin: 4, IntervalMax: 8, TargetOnScreen: 20},
			},
		},
		"payload": {
			Name:            "payload",
			DifficultyTiers: presets,
			Horde:           baseHorde,
			BarracksCount:   3,
			Loot:            LootConfig{Clearance: 350, GoldChestCount: 2, BrownChestCount: 10},
			Timers:          TimersConfig{ReadySeconds: 10, ExtractionSeconds: 90, ExtractionZoneRadius: 800},
			Spawn:           SpawnConfig{X: -11000, Y: 0, Radius: 400},
			Extraction:      SpawnConfig{X: 11000, Y: 0, Radius: 800},
		},
		"trenchraid": {
			Name:            "trenchraid",
			DifficultyTiers: presets,
			Horde:           baseHorde,
			BarracksCount:   4,
			Loot:            LootConfig{Clearance: 400, GoldChestCount: 2, BrownChestCount: 12},
			Timers:          TimersConfig{ReadySeconds: 10, ExtractionSeconds: 120, ExtractionZoneRadius: 900},
			Spawn:           SpawnConfig{X: -11000, Y: 0, Radius: 300},
			Extraction:      SpawnConfig{X: 11000, Y: 0, Radius: 900},
		},
	}
}

// =============================================================================
// HAZARD CONFIGURATION
// =============================================================================

// HazardPlacementConfig is one hazard kind's placement rule for a mode,
// spec.md §232: per-hazard `enabled`, `strategy`, `scattered`/`grid`
// parameters, safe-zone clearances.
type HazardPlacementConfig struct {
	Kind     sim.HazardKind
	Enabled  bool
	Strategy string // "scattered" or "grid"
	Count    int
	GridSpacing float64 // used when Strategy == "grid"
	SafeZoneClearance float64
}

// DefaultHazardConfigs returns the trenchraid-primary hazard placement
// rules named in spec.md §232.
func DefaultHazardConfigs() []HazardPlacementConfig {
	return []HazardPlacementConfig{
		{Kind: sim.HazardSandbag, Enabled: true, Strategy: "grid", Count: 40, GridSpacing: 600, SafeZoneClearance: 500},
		{Kind: sim.HazardBarbedWire, Enabled: true, Strategy: "grid", Count: 24, GridSpacing: 800, SafeZoneClearance: 500},
		{Kind: sim.HazardMudPool, Enabled: true, Strategy: "scattered", Count: 12, SafeZoneClearance: 400},
		{Kind: sim.HazardFirePool, Enabled: true, Strategy: "scattered", Count: 6, SafeZoneClearance: 600},
		{Kind: sim.HazardGasCanister, Enabled: true, Strategy: "scattered", Count: 6, SafeZoneClearance: 600},
		{Kind: sim.HazardExplodingBarrel, Enabled: true, Strategy: "scattered", Count: 10, SafeZoneClearance: 500},
	}
}

// =============================================================================
// WEAPON PROGRESSION
// =============================================================================

// WeaponTable returns the 8-weapon x 7-loot-level progression table, kept
// as a config accessor so callers don't import internal/loot solely for
// this lookup.
func WeaponTable() map[string][7]loot.WeaponStats {
	return loot.DefaultWeaponTable()
}

// =============================================================================
// COMPLETE APP CONFIGURATION
// =============================================================================

// AppConfig holds the complete application configuration.
type AppConfig struct {
	Room     RoomConfig
	Server   ServerConfig
	Limits   ResourceLimits
	Spatial  SpatialConfig
	Modes    map[string]GameModeConfig
	Hazards  []HazardPlacementConfig
}

// Load returns the complete configuration with environment overrides.
func Load() AppConfig {
	return AppConfig{
		Room:    RoomFromEnv(),
		Server:  ServerFromEnv(),
		Limits:  DefaultLimits(),
		Spatial: DefaultSpatial(),
		Modes:   DefaultGameModes(),
		Hazards: DefaultHazardConfigs(),
	}
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

func getEnvInt(key string, defaultVal int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func splitCSV(s string) []string {
	var out []string
	start := 0
	for i := 0; i <= len(s); i++ {
		if i == len(s) || s[i] == ',' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	return out
}
