// Package zone implements ZoneSpawner/HordeDirector (C7): zone membership
// tracking with re-entry cooldown, difficulty presets, per-zone horde
// configuration, and the horde spawn procedure with rejection sampling.
// The retry-sampling idiom is grounded on the teacher's engine spawn-point
// search, generalized to off-screen horde anchors and player-proximity
// rejection.
package zone

import (
	"math"
	"math/rand"

	"dropzone/internal/env"
	"dropzone/internal/sim"
)

// Rect is an axis-aligned zone, min inclusive, max exclusive.
type Rect struct {
	ID               string
	MinX, MaxX, MinY, MaxY float64
}

func (r Rect) Contains(x, y float64) bool {
	return x >= r.MinX && x < r.MaxX && y >= r.MinY && y < r.MaxY
}

const reentryCooldown = 8.0

// Membership tracks per-player zone occupancy and suppresses onEntry
// re-firing within reentryCooldown seconds of the last exit.
type Membership struct {
	zones       []Rect
	current     map[string]string    // playerID -> zoneID (or "")
	lastExitAt  map[string]float64    // playerID+zoneID -> sim time of last exit
}

func NewMembership(zones []Rect) *Membership {
	return &Membership{zones: zones, current: make(map[string]string), lastExitAt: make(map[string]float64)}
}

// Check updates a player's zone membership and reports whether an onEntry
// should fire this call.
func (m *Membership) Check(playerID string, x, y float64, now float64) (zoneID string, onEntry bool) {
	var newZone string
	for _, z := range m.zones {
		if z.Contains(x, y) {
			newZone = z.ID
			break
		}
	}

	prev := m.current[playerID]
	if newZone == prev {
		return newZone, false
	}

	if prev != "" {
		m.lastExitAt[playerID+"|"+prev] = now
	}
	m.current[playerID] = newZone

	if newZone == "" {
		return "", false
	}
	if last, ok := m.lastExitAt[playerID+"|"+newZone]; ok && now-last < reentryCooldown {
		return newZone, false
	}
	return newZone, true
}

// DifficultyPreset is one of the 7 named presets over enemy type ratios.
type DifficultyPreset struct {
	Tier       int
	Size       int
	TypeRatios map[sim.EnemyType]float64
}

// DefaultPresets returns presets 1..7, each tier adding lickers/bigboys
// and enriching the wallguy/projectile mix, per spec.md §4.7.
func DefaultPresets() []DifficultyPreset {
	presets := make([]DifficultyPreset, 7)
	for i := 0; i < 7; i++ {
		tier := i + 1
		ratios := map[sim.EnemyType]float64{
			sim.EnemyBasic:      0.5 - float64(tier)*0.04,
			sim.EnemyProjectile: 0.15 + float64(tier)*0.01,
			sim.EnemyWallguy:    0.1 + float64(tier)*0.01,
		}
		if tier >= 3 {
			ratios[sim.EnemyLicker] = 0.05 + float64(tier-3)*0.02
		}
		if tier >= 5 {
			ratios[sim.EnemyBigboy] = 0.05 + float64(tier-5)*0.02
		}
		ratios[sim.EnemyBoomer] = 0.1
		presets[i] = DifficultyPreset{Tier: tier, Size: 4 + tier*2, TypeRatios: ratios}
	}
	return presets
}

// HordeConfig is a zone's horde behavior.
type HordeConfig struct {
	ForwardDiff      int
	ReturnDiff       int
	ForwardIntervalMin, ForwardIntervalMax float64
	ReturnIntervalMin, ReturnIntervalMax   float64
}

// Director schedules and spawns hordes per zone.
type Director struct {
	presets []DifficultyPreset
	configs map[string]HordeConfig
	nextAt  map[string]float64
	rng     *rand.Rand
	env     *env.Environment

	// SafeZoneMinX mirrors spec.md's "x < -9800 forbidden" safe-zone clamp.
	SafeZoneMinX float64
}

func NewDirector(e *env.Environment, rng *rand.Rand) *Director {
	return &Director{
		presets:      DefaultPresets(),
		configs:      make(map[string]HordeConfig),
		nextAt:       make(map[string]float64),
		rng:          rng,
		env:          e,
		SafeZoneMinX: -9800,
	}
}

func (d *Director) SetZoneConfig(zoneID string, cfg HordeConfig) { d.configs[zoneID] = cfg }

// Due reports whether a zone's horde timer has elapsed, advancing the
// timer when it fires. isReturn picks the faster return-mode interval
// when any gold chest's artifact is currently carried.
func (d *Director) Due(zoneID string, now float64, isReturn bool) bool {
	cfg, ok := d.configs[zoneID]
	if !ok {
		return false
	}
	if now < d.nextAt[zoneID] {
		return false
	}
	lo, hi := cfg.ForwardIntervalMin, cfg.ForwardIntervalMax
	if isReturn {
		lo, hi = cfg.ReturnIntervalMin, cfg.ReturnIntervalMax
	}
	d.nextAt[zoneID] = now + lo + d.rng.Float64()*(hi-lo)
	return true
}

// SpawnPlan is the result of the weighted-sample + rejection-sampled horde
// spawn procedure: a list of (type, x, y) to instantiate.
type SpawnPlan struct {
	Type sim.EnemyType
	X, Y float64
}

// SpawnHorde runs the full spawn procedure: picks an off-screen anchor
// relative to targetX/Y along the spawn direction, weighted-samples `size`
// enemy types from preset tier, and rejection-samples a position for each
// (out of bounds / colliding / within 700 units of any player are all
// rejected, up to 20 tries).
func (d *Director) SpawnHorde(tier int, targetX, targetY float64, isReturn bool, playerPositions [][2]float64) []SpawnPlan {
	preset := d.presetForTier(tier)
	dir := 1.0
	if isReturn {
		dir = -1.0
	}
	anchorX := targetX + dir*1200
	anchorY := targetY
	if dir < 0 && anchorX < d.SafeZoneMinX {
		anchorX = d.SafeZoneMinX + 100
	}

	types := weightedSample(d.rng, preset.TypeRatios, preset.Size)

	var plan []SpawnPlan
	for _, ty := range types {
		if x, y, ok := d.rejectionSamplePosition(anchorX, anchorY, playerPositions); ok {
			plan = append(plan, SpawnPlan{Type: ty, X: x, Y: y})
		}
	}
	return plan
}

func (d *Director) presetForTier(tier int) DifficultyPreset {
	if tier < 1 {
		tier = 1
	}
	if tier > len(d.presets) {
		tier = len(d.presets)
	}
	return d.presets[tier-1]
}

func weightedSample(rng *rand.Rand, ratios map[sim.EnemyType]float64, n int) []sim.EnemyType {
	var types []sim.EnemyType
	var weights []float64
	var total float64
	for t, w := range ratios {
		types = append(types, t)
		weights = append(weights, w)
		total += w
	}
	out := make([]sim.EnemyType, 0, n)
	for i := 0; i < n; i++ {
		r := rng.Float64() * total
		var cum float64
		chosen := types[len(types)-1]
		for j, w := range weights {
			cum += w
			if r <= cum {
				chosen = types[j]
				break
			}
		}
		out = append(out, chosen)
	}
	return out
}

func (d *Director) rejectionSamplePosition(anchorX, anchorY float64, playerPositions [][2]float64) (x, y float64, ok bool) {
	const maxTries = 20
	for i := 0; i < maxTries; i++ {
		radius := float64(150 + i*30)
		angle := d.rng.Float64() * 2 * math.Pi
		cx := anchorX + radius*math.Cos(angle)
		cy := anchorY + radius*math.Sin(angle)
		if !d.env.IsInsideBounds(cx, cy, 20) || d.env.CircleHitsAny(cx, cy, 20) {
			continue
		}
		if tooCloseToAnyPlayer(cx, cy, playerPositions, 700) {
			continue
		}
		return cx, cy, true
	}
	return 0, 0, false
}

func tooCloseToAnyPlayer(x, y float64, positions [][2]float64, minDist float64) bool {
	for _, p := range positions {
		if sim.DistanceTo(x, y, p[0], p[1]) < minDist {
			return true
		}
	}
	return false
}

// WaveSchedule is one extraction wave's eligibility config.
type WaveSchedule struct {
	IntervalMin, IntervalMax float64
	TargetOnScreen           int
}

// WaveDue reports whether a wave is eligible: live count below target and
// timer elapsed.
func WaveDue(now, nextAt float64, liveCount, target int) bool {
	return liveCount < target && now >= nextAt
}

// ExtractionBurst is one fixed-delay spawn burst scheduled at extraction
// start.
type ExtractionBurst struct {
	Difficulty int
	Count      int
	DelayMs    int64
	NormalOnly bool
}

// DefaultExtractionBursts mirrors spec.md's example schedule.
func DefaultExtractionBursts() []ExtractionBurst {
	return []ExtractionBurst{
		{Difficulty: 5, Count: 1, DelayMs: 0},
		{Difficulty: 5, Count: 1, DelayMs: 15000},
		{Difficulty: 6, Count: 1, DelayMs: 15000},
	}
}
