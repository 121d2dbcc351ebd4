// Package troop implements the TroopController (C6): barracks spawning in
// two capped phases, per-tick target acquisition/attack/zone-progression,
// sandbag breaking, stuck-avoid zone creation/promotion, and the
// avoidance-phase state machine. The control-loop shape mirrors
// director.Steer's per-entity steering pattern, generalized with troop-only
// phases (zoneEscape, fireDetour) spec.md §4.6 adds on top of the
// director's avoid machine.
package troop

import (
	"fmt"
	"math"
	"math/rand"
	"sync/atomic"

	"dropzone/internal/env"
	"dropzone/internal/eventbus"
	"dropzone/internal/sim"
)

var zoneSeq uint64

const (
	barracksSpawnIntervalBase = 3.0
	barracksSpawnJitter       = 0.2 // +-20%
	minTroopSpacing           = 60.0

	meleeDamageMin, meleeDamageMax     = 5, 7
	meleeCooldownMin, meleeCooldownMax = 0.3, 0.5

	rangedCooldownMin, rangedCooldownMax = 0.45, 0.65

	grenadierFuse           = 3.6
	grenadierRadius         = 50.0
	grenadierDamageInner    = 15
	grenadierDamageEdge     = 5
	grenadierCooldownMin    = 1.0
	grenadierCooldownMax    = 1.3

	sandbagBreakRange  = 120.0
	sandbagBreakDamage = 120
	sandbagAnchorHold  = 2.0
	sandbagAnchorDrift = 5.0

	wallHitZoneTTL    = 2.5
	wallHitZoneRadius = 70.0
	stuckPromoteAfter = 2.0
	stuckZoneTTL      = 5.0
	mergeDistance     = 50.0

	escapeWallHold   = 3.0
	escapeRedZoneAge = 0.35
	zoneEscapeRepick = 0.6
	fireDetourHold   = 0.75

	separationRadiusTroop = 70.0
)

// Barracks is a spawn point for one faction's troops.
type Barracks struct {
	ID             string
	AnchorX, AnchorY float64
	Cap            int
	Phase          int // 0 = fill-then-lock, 1 = unlocked after artifact reaches Zone C
	Locked         bool
	nextSpawnAt    float64
	typeCycle      int
}

// Controller owns the barracks set, live troops, and stuck-avoid zones for
// one room.
type Controller struct {
	barracks map[string]*Barracks
	troops   map[string]*sim.Troop
	zones    map[string]*sim.StuckZone
	env      *env.Environment
	bus      *eventbus.Log
	roomID   string
	rng      *rand.Rand
}

func New(e *env.Environment, bus *eventbus.Log, roomID string, rng *rand.Rand) *Controller {
	return &Controller{
		barracks: make(map[string]*Barracks),
		troops:   make(map[string]*sim.Troop),
		zones:    make(map[string]*sim.StuckZone),
		env:      e,
		bus:      bus,
		roomID:   roomID,
		rng:      rng,
	}
}

func (c *Controller) AddBarracks(b *Barracks) { c.barracks[b.ID] = b }
func (c *Controller) Troops() map[string]*sim.Troop { return c.troops }
func (c *Controller) Zones() map[string]*sim.StuckZone { return c.zones }
func (c *Controller) Barracks() map[string]*Barracks { return c.barracks }

// UnlockPhase1 marks a barracks eligible for phase-1 refill; called when
// the artifact carrier enters Zone C (spec.md §4.6).
func (c *Controller) UnlockPhase1(barracksID string) {
	if b, ok := c.barracks[barracksID]; ok && b.Phase == 0 {
		b.Phase = 1
		b.Locked = false
	}
}

var troopCycle = [3]sim.TroopType{sim.TroopGrenadier, sim.TroopRanged, sim.TroopMelee}

// TickSpawns advances every barracks timer, spawning a troop when due and
// under cap, cycling types round-robin, and spiraling the spawn position
// outward until it clears the environment and keeps 60-unit spacing.
func (c *Controller) TickSpawns(now float64, newID func() string) {
	for _, b := range c.barracks {
		if b.Locked {
			continue
		}
		count := c.countForBarracks(b.ID)
		if count >= b.Cap {
			b.Locked = true
			continue
		}
		if now < b.nextSpawnAt {
			continue
		}
		jitter := 1 + (c.rng.Float64()*2-1)*barracksSpawnJitter
		b.nextSpawnAt = now + barracksSpawnIntervalBase*jitter

		troopType := troopCycle[b.typeCycle%3]
		b.typeCycle++

		x, y, ok := c.spiralSpawnPoint(b.AnchorX, b.AnchorY)
		if !ok {
			continue
		}
		id := newID()
		c.troops[id] = &sim.Troop{ID: id, Type: troopType, X: x, Y: y, Radius: 18, Health: 60, HealthMax: 60, AttackRange: attackRangeFor(troopType), BarracksID: b.ID}
	}
}

func attackRangeFor(t sim.TroopType) float64 {
	switch t {
	case sim.TroopMelee:
		return 40
	case sim.TroopRanged:
		return 500
	default:
		return 350
	}
}

func (c *Controller) countForBarracks(id string) int {
	n := 0
	for _, t := range c.troops {
		if t.BarracksID == id {
			n++
		}
	}
	return n
}

func (c *Controller) spiralSpawnPoint(anchorX, anchorY float64) (x, y float64, ok bool) {
	const maxTries = 20
	radius := 40.0
	angle := 0.0
	for i := 0; i < maxTries; i++ {
		angle += math.Pi * 0.6
		radius += 8
		cx := anchorX + math.Cos(angle)*radius
		cy := anchorY + math.Sin(angle)*radius
		if !c.env.IsInsideBounds(cx, cy, 18) || c.env.CircleHitsAny(cx, cy, 18) {
			continue
		}
		if c.tooClose(cx, cy) {
			continue
		}
		return cx, cy, true
	}
	return 0, 0, false
}

func (c *Controller) tooClose(x, y float64) bool {
	for _, t := range c.troops {
		if sim.DistanceTo(x, y, t.X, t.Y) < minTroopSpacing {
			return true
		}
	}
	return false
}

// AttackOutcome describes the result of one troop's attack step, for the
// room to apply damage/scheduling against entity tables it owns.
type AttackOutcome struct {
	TroopID    string
	Kind       sim.TroopType
	TargetID   string
	Damage     int
	Blocked    bool
	HitHazard  bool
	FireAtX    float64
	FireAtY    float64
	FuseAt     float64 // sim time the grenadier explosion should resolve
}

// Attack runs the attack step for one troop against a chosen target
// position, assuming cooldown already expired (caller checks
// AttackCooldown <= 0). los reports whether the straight line to the
// target is unobstructed; losHitsHazard additionally reports whether a
// sandbag/barrel was the first thing hit.
func (c *Controller) Attack(t *sim.Troop, targetID string, targetX, targetY float64, now float64, los bool, losHitsHazard bool) AttackOutcome {
	switch t.Type {
	case sim.TroopMelee:
		t.AttackCooldown = meleeCooldownMin + c.rng.Float64()*(meleeCooldownMax-meleeCooldownMin)
		dmg := meleeDamageMin + c.rng.Intn(meleeDamageMax-meleeDamageMin+1)
		c.emit(eventbus.TroopAttack, now, eventbus.TroopAttackPayload{TroopID: t.ID, Kind: "melee", TargetID: targetID})
		return AttackOutcome{TroopID: t.ID, Kind: t.Type, TargetID: targetID, Damage: dmg}

	case sim.TroopRanged:
		t.AttackCooldown = rangedCooldownMin + c.rng.Float64()*(rangedCooldownMax-rangedCooldownMin)
		c.emit(eventbus.TroopHitscan, now, eventbus.TroopHitscanPayload{TroopID: t.ID, FromX: t.X, FromY: t.Y, ToX: targetX, ToY: targetY, Blocked: !los, HitHazard: losHitsHazard})
		if !los {
			return AttackOutcome{TroopID: t.ID, Kind: t.Type, Blocked: true}
		}
		if losHitsHazard {
			return AttackOutcome{TroopID: t.ID, Kind: t.Type, HitHazard: true, Damage: meleeDamageMax}
		}
		return AttackOutcome{TroopID: t.ID, Kind: t.Type, TargetID: targetID, Damage: 12}

	default: // Grenadier
		t.AttackCooldown = grenadierCooldownMin + c.rng.Float64()*(grenadierCooldownMax-grenadierCooldownMin)
		c.emit(eventbus.TroopGrenade, now, eventbus.TroopGrenadePayload{TroopID: t.ID, TargetX: targetX, TargetY: targetY, FuseMs: int64(grenadierFuse * 1000)})
		return AttackOutcome{TroopID: t.ID, Kind: t.Type, FireAtX: targetX, FireAtY: targetY, FuseAt: now + grenadierFuse}
	}
}

// GrenadeDamageAt returns the grenadier explosion's damage at distance d,
// linearly falling from grenadierDamageInner to grenadierDamageEdge.
func GrenadeDamageAt(d float64) int {
	if d >= grenadierRadius {
		return 0
	}
	t := d / grenadierRadius
	return int(float64(grenadierDamageInner) - t*float64(grenadierDamageInner-grenadierDamageEdge))
}

// TryBreakSandbag attacks the nearest sandbag within sandbagBreakRange if
// the troop's movement anchor has been stationary for sandbagAnchorHold
// seconds with no engaged enemy. Returns the hazard ID to damage, or "".
func (c *Controller) TryBreakSandbag(t *sim.Troop, dt float64, engaged bool, nearestSandbagID string, nearestSandbagDist float64) (damageID string, damage int) {
	if engaged {
		t.StuckHold = 0
		return "", 0
	}
	if sim.DistanceTo(t.X, t.Y, t.StuckAnchorX, t.StuckAnchorY) <= sandbagAnchorDrift {
		t.StuckHold += dt
	} else {
		t.StuckHold = 0
		t.StuckAnchorX, t.StuckAnchorY = t.X, t.Y
	}
	if t.StuckHold <= sandbagAnchorHold {
		return "", 0
	}
	if nearestSandbagID == "" || nearestSandbagDist > sandbagBreakRange {
		return "", 0
	}
	return nearestSandbagID, sandbagBreakDamage
}

// ReportWallHit creates or merges a yellow (wallHit) stuck-avoid zone on a
// wall-contact rising edge.
func (c *Controller) ReportWallHit(x, y float64, ttlNow float64) {
	for _, z := range c.zones {
		if z.Kind == sim.ZoneWallHit && sim.DistanceTo(x, y, z.X, z.Y) < mergeDistance {
			z.TTL = wallHitZoneTTL
			return
		}
	}
	if len(c.zones) >= 48 {
		return
	}
	id := zoneID(x, y, ttlNow)
	c.zones[id] = &sim.StuckZone{ID: id, Kind: sim.ZoneWallHit, X: x, Y: y, Radius: wallHitZoneRadius, TTL: wallHitZoneTTL}
}

func zoneID(x, y, t float64) string {
	return fmt.Sprintf("zone_%d", atomic.AddUint64(&zoneSeq, 1))
}

// TickZones advances TTLs, expiring zones, and promotes a yellow zone to
// red after stuckPromoteAfter seconds of continuous occupancy.
func (c *Controller) TickZones(dt float64, occupied map[string]bool) {
	for id, z := range c.zones {
		z.TTL -= dt
		if occupied[id] {
			z.ContinuousOccupancy += dt
		} else {
			z.ContinuousOccupancy = 0
		}
		if z.Kind == sim.ZoneWallHit && z.ContinuousOccupancy >= stuckPromoteAfter {
			z.Kind = sim.ZoneStuck
			z.TTL = stuckZoneTTL
			z.HasExitDirection = true
			z.ExitDirection = c.rng.Float64() * 2 * math.Pi
		}
		if occupied[id] && z.Kind == sim.ZoneStuck {
			z.TTL = stuckZoneTTL
		}
		if z.TTL <= 0 {
			delete(c.zones, id)
		}
	}
}

// FireDeathZone spawns a detour-direction zone when a troop dies inside a
// fire pool, perpendicular to its entry vector on a random side.
func (c *Controller) FireDeathZone(x, y, entryDX, entryDY float64) {
	side := 1.0
	if c.rng.Float64() < 0.5 {
		side = -1
	}
	perpX, perpY := -entryDY*side, entryDX*side
	id := zoneID(x, y, c.rng.Float64())
	c.zones[id] = &sim.StuckZone{ID: id, Kind: sim.ZoneFireDeath, X: x, Y: y, Radius: wallHitZoneRadius, TTL: wallHitZoneTTL, HasExitTarget: true, ExitTargetX: x + perpX*80, ExitTargetY: y + perpY*80}
}

// UpdateAvoid advances a troop's avoidance phase. wallContact/inRedZone
// are caller-supplied predicates evaluated against the current position.
func (c *Controller) UpdateAvoid(t *sim.Troop, dt float64, wallContact, inRedZone, inFireDeathZone bool) {
	a := &t.Avoid
	switch a.Phase {
	case sim.TroopAvoidNone:
		if wallContact {
			t.StuckHold += dt
		} else {
			t.StuckHold = 0
		}
		if t.StuckHold >= escapeWallHold || (inRedZone && a.Timer >= escapeRedZoneAge) {
			a.Phase = sim.TroopAvoidEscape
		} else if inRedZone {
			a.Phase = sim.TroopAvoidZoneEscape
			a.Timer = 0
		} else if inFireDeathZone {
			a.Phase = sim.TroopAvoidFireDetour
			a.Timer = fireDetourHold
		}
	case sim.TroopAvoidZoneEscape:
		a.Timer += dt
		a.ClearTimer += dt
		if a.EscapeMoved >= 110 && a.ClearTimer >= 0.35 {
			a.Phase = sim.TroopAvoidNone
		}
	case sim.TroopAvoidFireDetour:
		a.Timer -= dt
		if a.Timer <= 0 {
			a.Phase = sim.TroopAvoidNone
		}
	case sim.TroopAvoidEscape:
		if !wallContact && !inRedZone {
			a.Phase = sim.TroopAvoidNone
		}
	}
}

// Separation computes a 70-unit-radius repulsion nudge for troops, using a
// stronger weight when stuck or clustered (>3 neighbors), per spec.md §4.6
// step 8.
func Separation(selfX, selfY, selfRadius float64, neighbors []*sim.Troop, stuck bool) (dx, dy float64) {
	var sx, sy, overlapSum float64
	for _, n := range neighbors {
		d := sim.DistanceTo(selfX, selfY, n.X, n.Y)
		if d <= 0 || d > separationRadiusTroop {
			continue
		}
		minDist := selfRadius + n.Radius
		if d >= minDist {
			continue
		}
		overlap := minDist - d
		overlapSum += overlap
		sx += (selfX - n.X) / d * overlap
		sy += (selfY - n.Y) / d * overlap
	}
	if overlapSum == 0 {
		return 0, 0
	}
	weight := 0.3
	if stuck || len(neighbors) > 3 {
		weight = 0.7
	}
	mag := math.Hypot(sx, sy)
	if mag == 0 {
		return 0, 0
	}
	return (sx / mag) * overlapSum * weight, (sy / mag) * overlapSum * weight
}

func (c *Controller) emit(t eventbus.Type, tickNum float64, payload interface{}) {
	if c.bus == nil {
		return
	}
	c.bus.EmitSimple(t, c.roomID, uint64(tickNum), "", payload)
}
