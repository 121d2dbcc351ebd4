// Package replication implements the ReplicationBroadcaster (C10): the
// per-room snapshot assembler that shapes simulation state into the wire
// views spec.md §6 names and samples each at its own rate. The triple-
// buffer lock-free producer/consumer pattern is grounded on the teacher's
// game_snapshot.go SnapshotPool, restructured per-room and stripped of
// every VFX/presentation-only field (particles, trails, flashes, shake,
// avatar/color cosmetics) per the Non-goals list; only the fields
// roomSnapshot/enemiesState/troopsState/npcsState/hazardsState actually
// carry survive.
package replication

import (
	"sync/atomic"

	"dropzone/internal/loot"
	"dropzone/internal/sim"
	"dropzone/internal/troop"
)

// PlayerView is one player's entry in roomSnapshot.players.
type PlayerView struct {
	ID            string
	Name          string
	X, Y          float64
	Health        int
	HealthMax     int
	Stamina       float64
	StaminaMax    float64
	Evil          bool
	AimAngle      float64
	WeaponID      string
	TeamID        string
	LootLevel     int
	IsDead        bool
}

// ChestView is one chest's entry in roomSnapshot.chests.
type ChestView struct {
	ID                 string
	X, Y                float64
	Variant             string
	State               string
	OpeningTimeLeft     float64
	OpeningTimeTotal    float64
	ArtifactState       string
	ArtifactCarriedBy   string
}

// HazardView is one hazard's entry in roomSnapshot.hazards and the
// per-kind hazardsState buckets.
type HazardView struct {
	ID              string
	Kind            string
	X, Y            float64
	W, H, Angle     float64
	Health          int
	ExplosionRadius float64
}

// TimersView is the ready/extraction timer pair replicated on change.
type TimersView struct {
	ReadyTimeLeft       float64
	ReadyActive         bool
	ExtractionTimeLeft  float64
	ExtractionActive    bool
}

// BalanceView is one player's currency entry in roomSnapshot.playerBalances.
type BalanceView struct {
	Ducats        int
	BloodMarkers  int
	VictoryPoints int
}

// RoomSnapshot is the `roomSnapshot` wire payload.
type RoomSnapshot struct {
	Players        []PlayerView
	Chests         []ChestView
	Hazards        []HazardView
	Timers         TimersView
	ShopInventory  []loot.ShopItem
	PlayerBalances map[string]BalanceView
}

// EnemyView is one enemy's entry in enemiesState.
type EnemyView struct {
	ID     string
	X, Y   float64
	Health int
	State  string // "idle"|"engaging"|"avoiding", derived from AI scratch
}

// EnemiesState is the 10Hz `enemiesState` payload.
type EnemiesState struct {
	Enemies []EnemyView
}

// BarracksView is one barracks entry in troopsState.barracks.
type BarracksView struct {
	ID     string
	X, Y   float64
	Locked bool
	Phase  int
}

// StuckZoneView is one zone entry in troopsState.stuckZones.
type StuckZoneView struct {
	ID     string
	Kind   string
	X, Y   float64
	Radius float64
}

// TroopView is one troop's entry in troopsState.troops.
type TroopView struct {
	ID     string
	Type   string
	X, Y   float64
	Health int
}

// TroopsState is the 10Hz `troopsState` payload.
type TroopsState struct {
	Troops     []TroopView
	Barracks   []BarracksView
	StuckZones []StuckZoneView
}

// NPCView is one NPC's entry in npcsState.
type NPCView struct {
	ID     string
	X, Y   float64
	Health int
}

// NPCsState is the 10Hz `npcsState` payload.
type NPCsState struct {
	NPCs []NPCView
}

// HazardsState is the on-change `hazardsState` payload, bucketed by kind
// the way spec.md §6 names the client-facing groups.
type HazardsState struct {
	Sandbags        []HazardView
	BarbedWire      []HazardView
	MudPools        []HazardView
	FirePools       []HazardView
	GasCanisters    []HazardView
	ExplodingBarrels []HazardView
}

// BuildRoomSnapshot assembles the roomSnapshot payload from live entity
// tables. Called every tick; the room only actually sends it out at the
// rate its outbound queue/backpressure policy allows (spec.md §5).
func BuildRoomSnapshot(players map[string]*sim.Player, chests map[string]*sim.Chest, hazards map[string]*sim.Hazard, timers TimersView, shop []loot.ShopItem) RoomSnapshot {
	snap := RoomSnapshot{
		Players:        make([]PlayerView, 0, len(players)),
		Chests:         make([]ChestView, 0, len(chests)),
		Hazards:        make([]HazardView, 0, len(hazards)),
		Timers:         timers,
		ShopInventory:  shop,
		PlayerBalances: make(map[string]BalanceView, len(players)),
	}
	for id, p := range players {
		snap.Players = append(snap.Players, PlayerView{
			ID: p.ID, Name: p.Name, X: p.X, Y: p.Y,
			Health: p.Health, HealthMax: p.HealthMax,
			Stamina: p.Stamina, StaminaMax: p.StaminaMax,
			Evil: p.Evil, AimAngle: p.AimAngle,
			WeaponID: p.WeaponID, TeamID: p.TeamID,
			LootLevel: p.LootLevel, IsDead: !p.Alive(),
		})
		snap.PlayerBalances[id] = BalanceView{Ducats: p.Ducats, BloodMarkers: p.BloodMarkers, VictoryPoints: p.VictoryPoints}
	}
	for _, c := range chests {
		snap.Chests = append(snap.Chests, chestView(c))
	}
	for _, h := range hazards {
		snap.Hazards = append(snap.Hazards, hazardView(h))
	}
	return snap
}

func chestView(c *sim.Chest) ChestView {
	return ChestView{
		ID: c.ID, X: c.X, Y: c.Y,
		Variant: chestVariantString(c.Variant), State: chestStateString(c.State),
		OpeningTimeLeft: c.OpeningTimeLeft, OpeningTimeTotal: c.OpeningTimeTotal,
		ArtifactState: c.ArtifactHeldState(), ArtifactCarriedBy: c.ArtifactCarriedBy,
	}
}

func chestVariantString(v sim.ChestVariant) string {
	switch v {
	case sim.ChestGold:
		return "gold"
	case sim.ChestStartGear:
		return "startGear"
	case sim.ChestDebug:
		return "debug"
	default:
		return "brown"
	}
}

func chestStateString(s sim.ChestState) string {
	switch s {
	case sim.ChestOpening:
		return "opening"
	case sim.ChestOpened:
		return "opened"
	default:
		return "sealed"
	}
}

func hazardView(h *sim.Hazard) HazardView {
	return HazardView{
		ID: h.ID, Kind: hazardKindString(h.Kind), X: h.X, Y: h.Y,
		W: h.W, H: h.H, Angle: h.Angle, Health: h.Health, ExplosionRadius: h.ExplosionRadius,
	}
}

func hazardKindString(k sim.HazardKind) string {
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

// BuildHazardsState buckets live hazards by kind for the on-change
// `hazardsState` broadcast.
func BuildHazardsState(hazards map[string]*sim.Hazard) HazardsState {
	var s HazardsState
	for _, h := range hazards {
		v := hazardView(h)
		switch h.Kind {
		case sim.HazardSandbag:
			s.Sandbags = append(s.Sandbags, v)
		case sim.HazardBarbedWire:
			s.BarbedWire = append(s.BarbedWire, v)
		case sim.HazardMudPool:
			s.MudPools = append(s.MudPools, v)
		case sim.HazardFirePool:
			s.FirePools = append(s.FirePools, v)
		case sim.HazardGasCanister:
			s.GasCanisters = append(s.GasCanisters, v)
		case sim.HazardExplodingBarrel:
			s.ExplodingBarrels = append(s.ExplodingBarrels, v)
		}
	}
	return s
}

// BuildEnemiesState assembles the 10Hz enemiesState payload.
func BuildEnemiesState(enemies map[string]*sim.Enemy) EnemiesState {
	s := EnemiesState{Enemies: make([]EnemyView, 0, len(enemies))}
	for _, e := range enemies {
		state := "idle"
		if e.Ring.Assigned {
			state = "engaging"
		}
		if e.AI.AvoidState != sim.AvoidIdle {
			state = "avoiding"
		}
		s.Enemies = append(s.Enemies, EnemyView{ID: e.ID, X: e.X, Y: e.Y, Health: e.Health, State: state})
	}
	return s
}

// BuildTroopsState assembles the 10Hz troopsState payload from a
// troop.Controller's live tables.
func BuildTroopsState(c *troop.Controller) TroopsState {
	var s TroopsState
	for _, t := range c.Troops() {
		s.Troops = append(s.Troops, TroopView{ID: t.ID, Type: t.Type.String(), X: t.X, Y: t.Y, Health: t.Health})
	}
	for _, b := range c.Barracks() {
		s.Barracks = append(s.Barracks, BarracksView{ID: b.ID, X: b.AnchorX, Y: b.AnchorY, Locked: b.Locked, Phase: b.Phase})
	}
	for _, z := range c.Zones() {
		s.StuckZones = append(s.StuckZones, StuckZoneView{ID: z.ID, Kind: stuckZoneKindString(z.Kind), X: z.X, Y: z.Y, Radius: z.Radius})
	}
	return s
}

func stuckZoneKindString(k sim.StuckZoneKind) string {
	if k == sim.ZoneStuck {
		return "stuck"
	}
	if k == sim.ZoneFireDeath {
		return "fireDeath"
	}
	return "yellow"
}

// BuildNPCsState assembles the 10Hz npcsState payload.
func BuildNPCsState(npcs map[string]*sim.NPC) NPCsState {
	s := NPCsState{NPCs: make([]NPCView, 0, len(npcs))}
	for _, n := range npcs {
		s.NPCs = append(s.NPCs, NPCView{ID: n.ID, X: n.X, Y: n.Y, Health: n.Health})
	}
	return s
}

// Rates, in Hz, for the sampled (non on-change, non-immediate) broadcasts
// spec.md §4.10 names.
const (
	EnemiesStateHz = 10.0
	TroopsStateHz  = 10.0
	NPCsStateHz    = 10.0
)

// sampleEvery returns the tick interval, in whole ticks, that samples a
// stream at hz given a simulation tick rate of tickHz.
func sampleEvery(tickHz, hz float64) uint64 {
	n := uint64(tickHz / hz)
	if n == 0 {
		n = 1
	}
	return n
}

// Sampler decides, per tick, whether each rate-limited broadcast is due.
// It holds no snapshot data itself — Room owns the entity tables and
// calls the BuildX functions directly when Due reports true.
type Sampler struct {
	tickHz              float64
	enemiesEvery        uint64
	troopsEvery         uint64
	npcsEvery           uint64
	lastTick            uint64 // atomic, for cross-goroutine observability only
}

// NewSampler builds a Sampler for a room ticking at tickHz.
func NewSampler(tickHz float64) *Sampler {
	return &Sampler{
		tickHz:       tickHz,
		enemiesEvery: sampleEvery(tickHz, EnemiesStateHz),
		troopsEvery:  sampleEvery(tickHz, TroopsStateHz),
		npcsEvery:    sampleEvery(tickHz, NPCsStateHz),
	}
}

// DueEnemies reports whether enemiesState should sample on this tick.
func (s *Sampler) DueEnemies(tickNum uint64) bool {
	atomic.StoreUint64(&s.lastTick, tickNum)
	return tickNum%s.enemiesEvery == 0
}

// DueTroops reports whether troopsState should sample on this tick.
func (s *Sampler) DueTroops(tickNum uint64) bool { return tickNum%s.troopsEvery == 0 }

// DueNPCs reports whether npcsState should sample on this tick.
func (s *Sampler) DueNPCs(tickNum uint64) bool { return tickNum%s.npcsEvery == 0 }

// LastTick returns the last tick number observed by Due*, for diagnostics.
func (s *Sampler) LastTick() uint64 { return atomic.LoadUint64(&s.lastTick) }

// SnapshotPool triple-buffers RoomSnapshot values so the broadcaster
// (producer, the room's tick worker) never blocks on or races the
// connection fan-out goroutine (consumer). Grounded directly on the
// teacher's SnapshotPool; restructured to hold RoomSnapshot instead of
// the teacher's VFX-heavy GameSnapshot.
type SnapshotPool struct {
	buf      [3]RoomSnapshot
	writeIdx uint32
	readIdx  uint32
	sequence uint64
}

// NewSnapshotPool returns a ready triple buffer.
func NewSnapshotPool() *SnapshotPool { return &SnapshotPool{} }

// AcquireWrite returns the next write slot and its new sequence number.
func (p *SnapshotPool) AcquireWrite() (*RoomSnapshot, uint64) {
	idx := atomic.AddUint32(&p.writeIdx, 1) % 3
	seq := atomic.AddUint64(&p.sequence, 1)
	return &p.buf[idx], seq
}

// PublishWrite makes the most recently acquired write slot visible to
// readers.
func (p *SnapshotPool) PublishWrite() {
	atomic.StoreUint32(&p.readIdx, atomic.LoadUint32(&p.writeIdx))
}

// AcquireRead returns the latest published snapshot.
func (p *SnapshotPool) AcquireRead() *RoomSnapshot {
	idx := atomic.LoadUint32(&p.readIdx) % 3
	return &p.buf[idx]
}
