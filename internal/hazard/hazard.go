// Package hazard implements the HazardField component (C3): the
// lifecycle of sandbags, barbed wire, mud/fire/gas zones and exploding
// barrels, plus the DOT-stack and explosion math shared by both players
// and troops. Breakable kinds register their geometry with env.Environment
// and are removed from it on death; read-only zone kinds never touch
// Environment at all, matching spec.md §4.3.
package hazard

import (
	"math"

	"dropzone/internal/env"
	"dropzone/internal/eventbus"
	"dropzone/internal/sim"
)

const (
	MudSlowFactor  = 0.5
	MudLingerSecs  = 0.7
	FireDPS        = 15.0
	FireDuration   = 2.0
	ExplosionInner = 20.0
	ExplosionFalloffMin = 0.4 // damage fraction remaining at outer edge
)

// Field owns every hazard in a room and the Environment their breakable
// geometry is registered into.
type Field struct {
	hazards map[string]*sim.Hazard
	env     *env.Environment
	bus     *eventbus.Log
	roomID  string

	// mudLinger tracks per-entity remaining slow-effect seconds after
	// leaving a mud pool, keyed by entity ID.
	mudLinger map[string]float64

	// dirty is set whenever the hazard table's membership changes (add,
	// break, explode), so the room only emits hazardsState on-change
	// instead of every tick.
	dirty bool
}

// Dirty reports whether a hazard was added or removed since the last
// ClearDirty call.
func (f *Field) Dirty() bool { return f.dirty }

// ClearDirty resets the change flag after the room has broadcast it.
func (f *Field) ClearDirty() { f.dirty = false }

// New creates a hazard field bound to a room's Environment and event log.
func New(e *env.Environment, bus *eventbus.Log, roomID string) *Field {
	return &Field{
		hazards:   make(map[string]*sim.Hazard),
		mudLinger: make(map[string]float64),
		env:       e,
		bus:       bus,
		roomID:    roomID,
	}
}

// Add registers a new hazard. Breakable kinds (sandbag, barrel) should
// already carry a BoxIndex if they have registered oriented-box geometry;
// pass -1 if they haven't (e.g. barrels, which aren't box-shaped).
func (f *Field) Add(h *sim.Hazard) {
	f.hazards = f.hazardsOrInit()
	f.hazards[h.ID] = h
	f.dirty = true
}

func (f *Field) hazardsOrInit() map[string]*sim.Hazard {
	if f.hazards == nil {
		f.hazards = make(map[string]*sim.Hazard)
	}
	return f.hazards
}

// Get returns a hazard by ID, or nil if absent.
func (f *Field) Get(id string) *sim.Hazard { return f.hazards[id] }

// All returns every live hazard. Callers must not mutate the slice.
func (f *Field) All() []*sim.Hazard {
	out := make([]*sim.Hazard, 0, len(f.hazards))
	for _, h := range f.hazards {
		out = append(out, h)
	}
	return out
}

// Map returns the field's live hazard table, keyed by ID. Callers must
// not mutate the map itself; used by replication to build hazard views
// without copying.
func (f *Field) Map() map[string]*sim.Hazard { return f.hazards }

// Mover is the subset of sim.Player/sim.Enemy/sim.Troop the hazard
// tick needs: position plus a DOT sink. Player and Enemy both satisfy it
// directly; Troop does not carry DOT stacks in the data model and is
// excluded from fire/gas effects per spec.md §3 (troops have no DOT
// field), so callers only pass Players and Enemies here.
type Mover interface {
	Pos() (x, y float64)
	ApplyDOT(kind string, dps, duration float64) bool
}

// TickMovers applies per-tick zone effects (mud slow, fire DOT, gas vision
// impairment) to a batch of movers, using the caller-provided tickNum for
// event stamping. Returns the set of entity IDs currently standing in a
// gas zone, so callers can set a transient vision-impairment flag without
// this package needing to know Player/Enemy field layout beyond the
// Mover interface.
func (f *Field) TickMovers(movers map[string]Mover, dt float64, tickNum uint64) (inGas map[string]bool) {
	inGas = make(map[string]bool)
	inMudNow := make(map[string]bool)

	for _, h := range f.hazards {
		switch h.Kind {
		case sim.HazardMudPool, sim.HazardFirePool, sim.HazardGasCanister:
			for id, m := range movers {
				x, y := m.Pos()
				if sim.DistanceTo(x, y, h.X, h.Y) > h.Radius {
					continue
				}
				switch h.Kind {
				case sim.HazardMudPool:
					inMudNow[id] = true
					f.mudLinger[id] = MudLingerSecs
				case sim.HazardFirePool:
					first := m.ApplyDOT("hazard_fire", FireDPS, FireDuration)
					if first {
						f.emit(eventbus.BurnStateChanged, tickNum, id, eventbus.BurnStateChangedPayload{EntityID: id, Burning: true})
					}
				case sim.HazardGasCanister:
					inGas[id] = true
				}
			}
		}
	}

	for id := range f.mudLinger {
		if !inMudNow[id] {
			f.mudLinger[id] -= dt
			if f.mudLinger[id] <= 0 {
				delete(f.mudLinger, id)
			}
		}
	}

	return inGas
}

// InMud reports whether the entity is currently slowed by a mud pool or
// its linger window.
func (f *Field) InMud(id string) bool {
	_, ok := f.mudLinger[id]
	return ok
}

// TickDOTExpiry advances an entity's DOT stacks and, when the last
// hazard_fire stack expires, emits burnStateChanged(false). Callers pass
// the same entityMover handle used in TickMovers plus the stack slice
// owner's TickDOT result.
func (f *Field) EmitBurnEnded(entityID string, tickNum uint64) {
	f.emit(eventbus.BurnStateChanged, tickNum, entityID, eventbus.BurnStateChangedPayload{EntityID: entityID, Burning: false})
}

// DamageHazard applies damage to a breakable hazard (sandbag or barrel).
// Returns true if the hazard died this call. On sandbag death its oriented
// box is marked removed in Environment and indices are renormalized via
// RenormalizeBoxIndices (called by the room after any sandbag death, not
// here, since multiple deaths in one tick should renormalize once). On
// barrel death the caller is responsible for following up with ExplodeAt
// using h.ExplosionRadius/ExplosionDamage, since only the room holds the
// player/troop tables an explosion can hit.
func (f *Field) DamageHazard(id string, damage int, tickNum uint64) (dead *sim.Hazard) {
	h := f.hazards[id]
	if h == nil || !h.Breakable() {
		return nil
	}
	h.Health -= damage
	f.emit(eventbus.HazardHit, tickNum, "", eventbus.HazardHitPayload{HazardID: id, Damage: damage, Health: h.Health})
	if h.Health > 0 {
		return nil
	}

	if h.Kind == sim.HazardSandbag && h.BoxIndex >= 0 {
		f.env.BreakBox(h.BoxIndex)
	}
	delete(f.hazards, id)
	f.dirty = true
	f.emit(eventbus.HazardRemoved, tickNum, "", eventbus.HazardRemovedPayload{HazardID: id, Kind: kindString(h.Kind)})
	return h
}

// ExplosionDamageAt returns the damage dealt at distance d from an
// explosion center, linearly interpolated from full damage at
// ExplosionInner down to ExplosionFalloffMin*damage at the outer radius,
// per spec.md §4.3. Distances beyond radius deal no damage.
func ExplosionDamageAt(d, radius float64, damage int) int {
	if d <= ExplosionInner {
		return damage
	}
	if d >= radius {
		return 0
	}
	t := (d - ExplosionInner) / (radius - ExplosionInner)
	frac := 1.0 - t*(1.0-ExplosionFalloffMin)
	return int(math.Round(float64(damage) * frac))
}

// Positioned is any entity an explosion can hit; Player, Enemy and Troop
// all satisfy this via their existing Pos()/X,Y fields.
type Positioned interface {
	Pos() (x, y float64)
}

// ExplodeAt computes per-target damage for an explosion, testing each
// candidate against radius+targetRadius and applying the linear falloff
// from ExplosionDamageAt. Candidates are supplied by the room (it owns the
// player/troop tables); this keeps the hazard package from needing to
// know about every entity kind.
func (f *Field) ExplodeAt(x, y, radius float64, damage int, candidates map[string]Positioned, targetRadius float64) map[string]int {
	hits := make(map[string]int)
	effectiveRadius := radius + targetRadius
	for id, c := range candidates {
		cx, cy := c.Pos()
		d := sim.DistanceTo(x, y, cx, cy)
		if d > effectiveRadius {
			continue
		}
		dmg := ExplosionDamageAt(d, effectiveRadius, damage)
		if dmg > 0 {
			hits[id] = dmg
		}
	}
	return hits
}

// RenormalizeBoxIndices reassigns BoxIndex on every surviving sandbag to
// match Environment's current (post-removal) oriented-box slice order,
// maintaining the invariant that boxIndex always references the right
// box (spec.md invariant: "indices of remaining sandbags remain
// consistent with Environment's box list").
func (f *Field) RenormalizeBoxIndices(liveBoxIndices []int) {
	remap := make(map[int]int, len(liveBoxIndices))
	for newIdx, oldIdx := range liveBoxIndices {
		remap[oldIdx] = newIdx
	}
	for _, h := range f.hazards {
		if h.Kind != sim.HazardSandbag {
			continue
		}
		if newIdx, ok := remap[h.BoxIndex]; ok {
			h.BoxIndex = newIdx
		}
	}
}

func kindString(k sim.HazardKind) string {
	switch k {
	case sim.HazardSandbag:
		return "sandbag"
	case sim.HazardBarbedWire:
		return "barbedWire"
	case sim.HazardMudPool:
		return "mudPool"
	case sim.HazardFirePool:
		return "firePool"
	case sim.HazardGasCanister:
		return "gasCanister"
	case sim.HazardExplodingBarrel:
		return "explodingBarrel"
	default:
		return "unknown"
	}
}

func (f *Field) emit(t eventbus.Type, tickNum uint64, playerID string, payload interface{}) {
	if f.bus == nil {
		return
	}
	f.bus.EmitSimple(t, f.roomID, tickNum, playerID, payload)
}
