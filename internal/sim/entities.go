// Package sim holds the tagged-record entity model (C4 EntityStore):
// Player, Enemy, Troop, Chest, Hazard, StuckZone and the director's ring
// assignment. Entities are addressed by stable string IDs and carry no
// back-pointers to their owning Room or to each other — per spec.md §9's
// "store by ID" redesign flag, cross-entity references resolve through the
// Room's entity tables on demand rather than through pointers or the
// prototype-chain polymorphism the original used.
package sim

import "math"

// DOTStack is a damage-over-time tag applied to an entity. Multiple stacks
// of different origin sum; same-origin stacks refresh (see hazard.Field's
// fire contract).
type DOTStack struct {
	Kind     string // e.g. "hazard_fire"
	DPS      float64
	TimeLeft float64 // seconds remaining
}

// InventoryItem is one equipped stat-bonus item (loot drop or shop
// purchase). Rarity-indexed value tables live in the loot package; this is
// just the record shape an inventory holds.
type InventoryItem struct {
	ID       string
	Stat     string
	Value    float64
	IsPercent bool
	Rarity   string
	Sold     bool
}

// DashState tracks a player's active dash/sprint burst.
type DashState struct {
	Active   bool
	Duration float64 // seconds remaining
	Cooldown float64 // seconds until next dash allowed
}

// CombatState tracks combo chains, dodge and invulnerability. Tick-counted
// fields are decremented once per room tick for deterministic replay,
// mirroring the teacher's CombatState.
type CombatState struct {
	ComboCount     int
	ComboWindow    int
	LastAttackTick uint64

	IsDodging      bool
	DodgeTimer     int
	DodgeCooldown  int
	DodgeDirection float64

	InvulnFrames int
}

// UpdateTimers decrements all tick-based timers by one tick.
func (c *CombatState) UpdateTimers() {
	if c.ComboWindow > 0 {
		c.ComboWindow--
		if c.ComboWindow == 0 {
			c.ComboCount = 0
		}
	}
	if c.DodgeTimer > 0 {
		c.DodgeTimer--
		if c.DodgeTimer == 0 {
			c.IsDodging = false
		}
	}
	if c.DodgeCooldown > 0 {
		c.DodgeCooldown--
	}
	if c.InvulnFrames > 0 {
		c.InvulnFrames--
	}
}

// IsInvulnerable reports whether the entity currently ignores damage.
func (c *CombatState) IsInvulnerable() bool { return c.InvulnFrames > 0 }

// Player is the authoritative record for a connected client's avatar.
// Fields are exactly the data model spec.md §3 names for Player.
type Player struct {
	ID   string
	Name string

	X, Y   float64
	Radius float64

	Health, HealthMax   int
	Stamina, StaminaMax float64

	Sprinting  bool
	Exhausted  bool
	Dash       DashState
	Invisible  bool

	DOTStacks []DOTStack

	Inventory []InventoryItem
	Ducats        int
	BloodMarkers  int
	VictoryPoints int

	LootLevel int // 0..6

	Evil bool // alignment flag

	AimAngle float64

	LastAckedSeq uint64

	Combat CombatState

	WeaponID string
	TeamID   string
}

// NewPlayer constructs a Player with full health/stamina at the given spawn
// point.
func NewPlayer(id, name string, x, y float64, healthMax int, staminaMax float64) *Player {
	return &Player{
		ID:         id,
		Name:       name,
		X:          x,
		Y:          y,
		Radius:     28,
		Health:     healthMax,
		HealthMax:  healthMax,
		Stamina:    staminaMax,
		StaminaMax: staminaMax,
		WeaponID:   "fists",
	}
}

// Alive reports whether the player's health is above zero.
func (p *Player) Alive() bool { return p.Health > 0 }

// Pos returns the player's current position.
func (p *Player) Pos() (x, y float64) { return p.X, p.Y }

// ApplyDOT refreshes or appends a DOT stack by kind, matching the fire
// contract in spec.md §4.3: same-kind stacks keep the strongest dps and
// reset timeLeft; distinct kinds sum.
func (p *Player) ApplyDOT(kind string, dps, duration float64) (firstAcquired bool) {
	p.DOTStacks, firstAcquired = applyDOT(p.DOTStacks, kind, dps, duration)
	return firstAcquired
}

// TickDOT applies one dt worth of stacked damage, dropping expired stacks.
// Returns the kinds that expired this tick (for burnStateChanged-style
// last-removal events) and total damage applied.
func (p *Player) TickDOT(dt float64) (expiredKinds []string, damage int) {
	p.DOTStacks, expiredKinds, damage = tickDOT(p.DOTStacks, dt)
	return expiredKinds, damage
}

// applyDOT is the shared refresh-or-append contract used by both Player
// and Enemy DOT stacks.
func applyDOT(stacks []DOTStack, kind string, dps, duration float64) ([]DOTStack, bool) {
	for i := range stacks {
		if stacks[i].Kind == kind {
			if dps > stacks[i].DPS {
				stacks[i].DPS = dps
			}
			stacks[i].TimeLeft = duration
			return stacks, false
		}
	}
	return append(stacks, DOTStack{Kind: kind, DPS: dps, TimeLeft: duration}), true
}

// tickDOT is the shared per-tick decay applied to any entity's DOT stacks.
func tickDOT(stacks []DOTStack, dt float64) ([]DOTStack, []string, int) {
	live := stacks[:0]
	var expiredKinds []string
	var damage int
	for _, s := range stacks {
		damage += int(s.DPS * dt)
		s.TimeLeft -= dt
		if s.TimeLeft <= 0 {
			expiredKinds = append(expiredKinds, s.Kind)
			continue
		}
		live = append(live, s)
	}
	return live, expiredKinds, damage
}

// EnemyType enumerates the tagged-record kinds from spec.md §3. Behavior
// dispatch is by this tag via a per-type strategy lookup in the director
// package, not a prototype chain.
type EnemyType uint8

const (
	EnemyBasic EnemyType = iota
	EnemyProjectile
	EnemyLicker
	EnemyBoomer
	EnemyBigboy
	EnemyWallguy
)

func (t EnemyType) String() string {
	switch t {
	case EnemyBasic:
		return "basic"
	case EnemyProjectile:
		return "projectile"
	case EnemyLicker:
		return "licker"
	case EnemyBoomer:
		return "boomer"
	case EnemyBigboy:
		return "bigboy"
	case EnemyWallguy:
		return "wallguy"
	default:
		return "unknown"
	}
}

// AIScratch is the per-enemy director scratch state (spec.md §3's `_ai`):
// style, side, flank radius, re-evaluation timer, stuck timer, avoid state,
// heading.
type AIScratch struct {
	Style         string // direct | flank_left | flank_right | rear
	Side          float64 // +1 / -1 perpendicular probe side
	FlankRadius   float64
	NextReeval    float64 // seconds until next style re-pick
	StuckTimer    float64
	AvoidState    AvoidPhase
	AvoidTimer    float64
	HeadingAngle  float64
	NextArcPick   float64
	ArcCenter     float64 // radians, relative to player forward
}

// AvoidPhase is the enemy/troop avoidance state machine phase (spec.md
// §4.5 "Avoid state machine").
type AvoidPhase uint8

const (
	AvoidIdle AvoidPhase = iota
	AvoidReverse
	AvoidSidestep
	AvoidEscape
)

// TypeState holds the per-type behavior substructure for enemies whose
// kind needs extra fields (bigboy dash timers, wallguy shield angle).
// Only the field matching Type is meaningful; this is the "optional
// per-type substructure" spec.md §9 calls for instead of subtype structs.
type TypeState struct {
	BigboyDashTimer  float64
	BigboyDashActive bool
	WallguyShieldAngle float64
}

// Enemy is the authoritative record for one hostile AI entity.
type Enemy struct {
	ID   string
	Type EnemyType

	X, Y     float64
	Radius   float64
	SpeedMul float64

	Health, HealthMax int

	PreferContact bool

	Type_ TypeState
	AI    AIScratch

	Ring RingAssignment

	DOTStacks []DOTStack

	VX, VY float64 // current velocity, for lead-time prediction by troops
}

// Alive reports whether the enemy's health is above zero.
func (e *Enemy) Alive() bool { return e.Health > 0 }

// Pos returns the enemy's current position.
func (e *Enemy) Pos() (x, y float64) { return e.X, e.Y }

// ApplyDOT refreshes or appends a DOT stack on the enemy; see Player.ApplyDOT.
func (e *Enemy) ApplyDOT(kind string, dps, duration float64) (firstAcquired bool) {
	e.DOTStacks, firstAcquired = applyDOT(e.DOTStacks, kind, dps, duration)
	return firstAcquired
}

// TickDOT advances the enemy's DOT stacks by dt; see Player.TickDOT.
func (e *Enemy) TickDOT(dt float64) (expiredKinds []string, damage int) {
	e.DOTStacks, expiredKinds, damage = tickDOT(e.DOTStacks, dt)
	return expiredKinds, damage
}

// RingAssignment is the director's per-enemy angular slot (spec.md §3).
// Recomputed at most every 0.25s by the ring reservation pass.
type RingAssignment struct {
	Assigned  bool
	Angle     float64
	Radius    float64
	Timestamp float64 // sim time of last (re)assignment
}

// TroopType enumerates allied unit kinds.
type TroopType uint8

const (
	TroopMelee TroopType = iota
	TroopRanged
	TroopGrenadier
)

func (t TroopType) String() string {
	switch t {
	case TroopMelee:
		return "melee"
	case TroopRanged:
		return "ranged"
	case TroopGrenadier:
		return "grenadier"
	default:
		return "unknown"
	}
}

// TroopAvoidPhase is troop-specific: the director's AvoidPhase plus the
// two troop-only detour phases from spec.md §4.6.
type TroopAvoidPhase uint8

const (
	TroopAvoidNone TroopAvoidPhase = iota
	TroopAvoidReverse
	TroopAvoidSidestep
	TroopAvoidEscape
	TroopAvoidZoneEscape
	TroopAvoidFireDetour
)

// TroopAvoid is the troop's `_avoid` scratch record (spec.md §3).
type TroopAvoid struct {
	Phase       TroopAvoidPhase
	Timer       float64
	EscapeTX    float64
	EscapeTY    float64
	ClearTimer  float64
	EscapeMoved float64
	SidewaysX   float64 // fireDetour stored sideways vector
	SidewaysY   float64
}

// Troop is the authoritative record for one allied unit.
type Troop struct {
	ID      string
	Type    TroopType
	Faction string

	X, Y   float64
	Radius float64

	Health, HealthMax int

	AttackRange    float64
	AttackCooldown float64

	MovementTargetID string

	Avoid TroopAvoid

	StuckAnchorX, StuckAnchorY float64
	StuckHold                  float64

	LastMoveDX, LastMoveDY float64

	BarracksID string

	ZoneGoalBand int // index into the x-band progression A->G->heretic
}

// Alive reports whether the troop's health is above zero.
func (t *Troop) Alive() bool { return t.Health > 0 }

// ChestVariant enumerates chest kinds.
type ChestVariant uint8

const (
	ChestBrown ChestVariant = iota
	ChestGold
	ChestStartGear
	ChestDebug
)

// ChestState is the chest's open/close lifecycle.
type ChestState uint8

const (
	ChestSealed ChestState = iota
	ChestOpening
	ChestOpened
)

// Chest is the authoritative record for a lootable container.
type Chest struct {
	ID      string
	X, Y    float64
	Radius  float64
	Variant ChestVariant
	State   ChestState

	OpeningTimeLeft float64
	OpeningTimeTotal float64
	StartedBy       string

	Drops []InventoryItem

	// Gold-chest artifact tracking. Exactly one of these three holds at
	// any time (spec.md invariant 4): sealed, CarriedBy set, or
	// ArtifactOnGround with ArtifactX/Y set.
	ArtifactCarriedBy  string
	ArtifactOnGround   bool
	ArtifactX, ArtifactY float64
}

// ArtifactHeldState classifies where a gold chest's artifact currently is.
func (c *Chest) ArtifactHeldState() string {
	switch {
	case c.ArtifactCarriedBy != "":
		return "carried"
	case c.ArtifactOnGround:
		return "ground"
	default:
		return "sealed"
	}
}

// HazardKind enumerates hazard subtypes from spec.md §3.
type HazardKind uint8

const (
	HazardSandbag HazardKind = iota
	HazardBarbedWire
	HazardMudPool
	HazardFirePool
	HazardGasCanister
	HazardExplodingBarrel
)

// Hazard is the authoritative record for one world hazard. Breakable
// kinds (sandbag, barrel) carry Health and a BoxIndex into Environment's
// oriented-box list; read-only zone kinds (mud/fire/gas) carry neither.
type Hazard struct {
	ID   string
	Kind HazardKind

	X, Y   float64
	Radius float64

	// Oriented-box geometry, used by sandbags.
	W, H, Angle float64
	BoxIndex    int // index into Environment.OrientedBoxes; -1 if unregistered

	Health int // breakable kinds only

	ExplosionRadius float64
	ExplosionDamage int
	ExplosionAt     float64 // sim time scheduled, 0 if none pending
}

func (h *Hazard) Breakable() bool {
	return h.Kind == HazardSandbag || h.Kind == HazardExplodingBarrel
}

// StuckZoneKind enumerates troop-avoidance zone kinds.
type StuckZoneKind uint8

const (
	ZoneWallHit StuckZoneKind = iota
	ZoneStuck
	ZoneFireDeath
)

// StuckZone marks a spot where troops got stuck, forbidding re-funneling
// and optionally suggesting an exit direction (spec.md §3).
type StuckZone struct {
	ID   string
	Kind StuckZoneKind

	X, Y, Radius float64
	TTL          float64

	Occupied bool

	HasExitDirection bool
	ExitDirection    float64
	HasExitTarget    bool
	ExitTargetX      float64
	ExitTargetY      float64

	ContinuousOccupancy float64 // seconds of unbroken occupancy, drives promotion
}

// DistanceTo returns the Euclidean distance between two points. Shared
// helper used throughout the simulation packages.
func DistanceTo(x1, y1, x2, y2 float64) float64 {
	dx := x2 - x1
	dy := y2 - y1
	return math.Sqrt(dx*dx + dy*dy)
}

// NPCKind distinguishes the friendly/neutral NPC variants referenced by
// the wire protocol (spec.md §6's sendNPCDot/npcsState). Only the fields
// the protocol actually touches are modeled; NPC behavior beyond taking a
// client-tagged DOT is out of scope.
type NPCKind uint8

const (
	NPCKindA NPCKind = iota
	NPCKindB
)

// NPC is a friendly/neutral entity a client can tag with a DOT (NPC_B in
// the wire protocol). It reuses the same DOT-stack contract as Player and
// Enemy via the package-level applyDOT/tickDOT helpers.
type NPC struct {
	ID   string
	Kind NPCKind

	X, Y   float64
	Radius float64

	Health, HealthMax int

	DOTStacks []DOTStack
}

// Alive reports whether the NPC's health is above zero.
func (n *NPC) Alive() bool { return n.Health > 0 }

// Pos returns the NPC's current position.
func (n *NPC) Pos() (x, y float64) { return n.X, n.Y }

// ApplyDOT refreshes or appends a DOT stack on the NPC; see Player.ApplyDOT.
func (n *NPC) ApplyDOT(kind string, dps, duration float64) (firstAcquired bool) {
	n.DOTStacks, firstAcquired = applyDOT(n.DOTStacks, kind, dps, duration)
	return firstAcquired
}

// TickDOT advances the NPC's DOT stacks by dt; see Player.TickDOT.
func (n *NPC) TickDOT(dt float64) (expiredKinds []string, damage int) {
	n.DOTStacks, expiredKinds, damage = tickDOT(n.DOTStacks, dt)
	return expiredKinds, damage
}

// Ability is a player-placed ability marker (spec.md §6's placeAbility/
// abilityDotDamage). The wire protocol only ever gives the server a kind
// tag, a placement pose and a client-declared DOT to revalidate against
// PvP alignment, so the record stays a thin placement marker rather than
// modeling per-kind ability mechanics the protocol doesn't describe.
type Ability struct {
	ID      string
	OwnerID string
	Kind    string

	X, Y, Angle float64
	Progression int

	PlacedAt float64 // room clock seconds at placement, drives cooldown/cap expiry
}

// Pos returns the ability marker's placement position.
func (a *Ability) Pos() (x, y float64) { return a.X, a.Y }
