// Package room implements the Room orchestrator (C8): the per-room fixed
// 60Hz tick loop, the lobby/level/extraction phase machine, and the
// RoomManager that creates/discovers/reaps rooms. The ticker goroutine
// structure is grounded on the teacher's engine.go Start/Stop/tick shape,
// generalized from one process-wide engine to one Room per worker
// goroutine; RoomManager's mutex-guarded map is grounded on team.go's
// TeamManager idiom.
package room

import (
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"dropzone/internal/director"
	"dropzone/internal/env"
	"dropzone/internal/eventbus"
	"dropzone/internal/hazard"
	"dropzone/internal/loot"
	"dropzone/internal/replication"
	"dropzone/internal/sim"
	"dropzone/internal/spatial"
	"dropzone/internal/troop"
	"dropzone/internal/zone"
)

// Phase is the room's lobby/level/extraction state, per spec.md §4.8.
type Phase uint8

const (
	PhaseLobby Phase = iota
	PhaseLevel
	PhaseExtraction
)

func (p Phase) String() string {
	switch p {
	case PhaseLevel:
		return "level"
	case PhaseExtraction:
		return "extraction"
	default:
		return "lobby"
	}
}

const (
	TickHz        = 60.0
	TickDt        = 1.0 / TickHz
	readyDuration = 10.0
	inboundCap    = 256
	outboundCap   = 1024
	maxDrainPerTick = 64

	brownChestOpenSeconds = 4.0
	goldChestOpenSeconds  = 6.0

	abilityCapPerPlayer = 3

	// missionVictoryPointsAward is granted to every connected player on a
	// completed extraction. spec.md says only that the server "computes
	// Victory Points" on completion without specifying a formula; per-kill
	// and per-chest attribution aren't tracked on Player, so a flat
	// mission-clear award is the decision recorded in DESIGN.md.
	missionVictoryPointsAward = 100
)

// Input is one player's queued client→server message for the tick
// (spec.md §6's `input{...}` event, trimmed to what the simulation core
// consumes — movement/aim/attack intent).
type Input struct {
	PlayerID   string
	Seq        uint64
	MoveX, MoveY float64 // unit-ish direction from W/A/S/D
	AimAngle   float64
	Attack     bool
}

// Room is one authoritative simulation instance. All mutation happens on
// the single worker goroutine driving Tick; there is no internal locking
// (spec.md §5's "one worker per room" discipline).
type Room struct {
	ID         string
	WorldSeed  int64
	Phase      Phase
	LevelType  string
	TickCount  uint64

	Env   *env.Environment
	grid  *spatial.SpatialGrid

	Players   map[string]*sim.Player
	Enemies   map[string]*sim.Enemy
	Chests    map[string]*sim.Chest
	NPCs      map[string]*sim.NPC
	Abilities map[string]*sim.Ability

	Hazards *hazard.Field
	Troops  *troop.Controller
	Ring    *director.Ring
	Zones   *zone.Director
	Shop    []loot.ShopItem
	dropTable *loot.DropTable

	Leaderboard *VictoryLeaderboard

	Bus *eventbus.Log

	ReadyTimeLeft      float64
	ReadyActive        bool
	ExtractionTimeLeft float64
	ExtractionActive   bool
	ExtractionArtifactChest string
	Heretic            bool

	rng *rand.Rand

	sampler *replication.Sampler
	pool    *replication.SnapshotPool

	inbound  *spatial.LockFreeQueue[Input]
	outbound *spatial.LockFreeQueue[eventbus.Event]

	simTime float64

	ticker   *time.Ticker
	stopChan chan struct{}
	running  bool
	mu       sync.Mutex // guards running/ticker only, not simulation state

	emptySince    time.Time
	everHadPlayer bool
}

// New constructs a room in the lobby phase, with its world geometry and
// component controllers wired together.
func New(id string, worldSeed int64, width, height float64) *Room {
	e := env.New(width, height, 2048)
	rng := rand.New(rand.NewSource(worldSeed))
	bus := eventbus.NewLog()

	return &Room{
		ID:        id,
		WorldSeed: worldSeed,
		Phase:     PhaseLobby,
		Env:       e,
		grid:      spatial.NewSpatialGrid(width, height, 128, 2048),
		Players:   make(map[string]*sim.Player),
		Enemies:   make(map[string]*sim.Enemy),
		Chests:    make(map[string]*sim.Chest),
		NPCs:      make(map[string]*sim.NPC),
		Abilities: make(map[string]*sim.Ability),
		Hazards:   hazard.New(e, bus, id),
		Troops:    troop.New(e, bus, id, rng),
		Ring:      director.NewRing(),
		Zones:     zone.NewDirector(e, rng),
		Shop:      loot.RollShop(loot.NewLCG(worldSeed, loot.HashID("shop")), loot.DefaultStatDropTable(), nil),
		dropTable: loot.DefaultStatDropTable(),
		Leaderboard: NewVictoryLeaderboard(),
		Bus:       bus,
		rng:       rng,
		sampler:   replication.NewSampler(TickHz),
		pool:      replication.NewSnapshotPool(),
		inbound:   spatial.NewLockFreeQueue[Input](inboundCap),
		outbound:  spatial.NewLockFreeQueue[eventbus.Event](outboundCap),
		stopChan:  make(chan struct{}),
		emptySince: time.Now(),
	}
}

// SubmitInput enqueues one client input for consumption at the start of
// the next tick; non-blocking, drops the input if the queue is full
// (spec.md §5's "backpressure drops rather than blocks" policy).
func (r *Room) SubmitInput(in Input) bool { return r.inbound.TryPush(in) }

// DrainOutbound returns up to maxItems queued outbound events, removing
// them from the queue. Called by the transport layer.
func (r *Room) DrainOutbound(maxItems int) []eventbus.Event { return r.outbound.Drain(maxItems) }

// Snapshot returns the latest published roomSnapshot.
func (r *Room) Snapshot() *replication.RoomSnapshot { return r.pool.AcquireRead() }

// Start begins the 60Hz ticker goroutine.
func (r *Room) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.ticker = time.NewTicker(time.Duration(TickDt * float64(time.Second)))
	r.mu.Unlock()

	go func() {
		for {
			select {
			case <-r.ticker.C:
				r.Tick(TickDt)
			case <-r.stopChan:
				return
			}
		}
	}()
	log.Printf("room %s started at %d tps", r.ID, int(TickHz))
}

// Stop halts the ticker goroutine. Pending scheduled grenade explosions
// and horde waves are simply dropped, per spec.md §5's shutdown semantics.
func (r *Room) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.running {
		return
	}
	r.running = false
	if r.ticker != nil {
		r.ticker.Stop()
	}
	close(r.stopChan)
	log.Printf("room %s stopped", r.ID)
}

// Tick advances the simulation by dt, running every component in the
// order spec.md §4.8 names: dispatch inputs -> C2/C4/C5/C6/C7/C3/C9 ->
// push events into C11 -> C10 samples.
func (r *Room) Tick(dt float64) {
	r.TickCount++
	r.simTime += dt

	r.dispatchInputs()

	switch r.Phase {
	case PhaseLobby:
		r.tickReadyTimer(dt)
	case PhaseLevel:
		r.tickLevel(dt)
	case PhaseExtraction:
		r.tickLevel(dt)
		r.tickExtractionTimer(dt)
	}

	r.sampleBroadcasts()
}

func (r *Room) dispatchInputs() {
	batch := r.inbound.Drain(maxDrainPerTick)
	for _, in := range batch {
		p := r.Players[in.PlayerID]
		if p == nil || !p.Alive() {
			continue
		}
		p.AimAngle = in.AimAngle
		p.LastAckedSeq = in.Seq

		const moveSpeed = 220.0
		wantX := p.X + in.MoveX*moveSpeed*TickDt
		wantY := p.Y + in.MoveY*moveSpeed*TickDt
		p.X, p.Y = r.Env.ResolveCircleMove(p.X, p.Y, wantX, wantY, p.Radius)
	}
}

func (r *Room) tickReadyTimer(dt float64) {
	if !r.ReadyActive {
		return
	}
	r.ReadyTimeLeft -= dt
	if r.ReadyTimeLeft <= 0 {
		r.ReadyActive = false
		r.TransitionToLevel("")
	}
}

// StartReadyTimer begins the lobby countdown; no-op outside the lobby
// phase (spec.md invariant: "ready timer cannot run if scene != lobby").
func (r *Room) StartReadyTimer() {
	if r.Phase != PhaseLobby {
		return
	}
	r.ReadyActive = true
	r.ReadyTimeLeft = readyDuration
}

// CancelReadyTimer cancels an in-progress lobby countdown.
func (r *Room) CancelReadyTimer() {
	r.ReadyActive = false
	r.ReadyTimeLeft = 0
}

func (r *Room) tickLevel(dt float64) {
	r.tickPlayerIntegration(dt)
	r.tickDirector(dt)
	r.tickTroops(dt)
	r.tickHazards(dt)
	r.tickChests(dt)
	r.tickZonesAndHordes(dt)
}

// tickPlayerIntegration handles per-tick player-side effects that aren't
// driven by an input event: DOT decay, stamina regen. Movement itself is
// applied in dispatchInputs as inputs arrive.
func (r *Room) tickPlayerIntegration(dt float64) {
	for _, p := range r.Players {
		if !p.Alive() {
			continue
		}
		_, dmg := p.TickDOT(dt)
		if dmg > 0 {
			p.Health -= dmg
			if p.Health < 0 {
				p.Health = 0
			}
		}
		p.Combat.UpdateTimers()
		if !p.Sprinting && p.Stamina < p.StaminaMax {
			p.Stamina += 20 * dt
			if p.Stamina > p.StaminaMax {
				p.Stamina = p.StaminaMax
			}
		}
	}
}

func (r *Room) tickDirector(dt float64) {
	if len(r.Players) == 0 || len(r.Enemies) == 0 {
		return
	}
	target := r.anyAlivePlayer()
	if target == nil {
		return
	}

	enemySlice := make([]*sim.Enemy, 0, len(r.Enemies))
	enemyVals := make([]sim.Enemy, 0, len(r.Enemies))
	for _, e := range r.Enemies {
		enemySlice = append(enemySlice, e)
		enemyVals = append(enemyVals, *e)
	}
	r.Ring.Reassign(r.simTime, target.X, target.Y, target.AimAngle, enemySlice)

	r.grid.Clear()
	for i, e := range enemySlice {
		if e.Alive() {
			r.grid.Insert(uint32(i), e.X, e.Y)
		}
	}

	for i, e := range enemySlice {
		if !e.Alive() {
			continue
		}
		neighbors := neighborsExcluding(enemyVals, i)
		director.Steer(e, director.ModeHunt, target.X, target.Y, 0, 0, r.Ring, r.Env, r.grid, neighbors, r.rng, dt, r.simTime)
	}
}

func neighborsExcluding(all []sim.Enemy, idx int) []sim.Enemy {
	out := make([]sim.Enemy, 0, len(all))
	for i, e := range all {
		if i != idx {
			out = append(out, e)
		}
	}
	return out
}

func (r *Room) anyAlivePlayer() *sim.Player {
	for _, p := range r.Players {
		if p.Alive() {
			return p
		}
	}
	return nil
}

func (r *Room) tickTroops(dt float64) {
	seq := 0
	newID := func() string { seq++; return fmt.Sprintf("%s_troop_%d_%d", r.ID, r.TickCount, seq) }
	r.Troops.TickSpawns(r.simTime, newID)

	occupied := make(map[string]bool)
	for id := range r.Troops.Zones() {
		occupied[id] = false
	}
	r.Troops.TickZones(dt, occupied)
}

func (r *Room) tickHazards(dt float64) {
	movers := make(map[string]hazard.Mover, len(r.Players)+len(r.Enemies))
	for id, p := range r.Players {
		if p.Alive() {
			movers[id] = p
		}
	}
	for id, e := range r.Enemies {
		if e.Alive() {
			movers[id] = e
		}
	}
	r.Hazards.TickMovers(movers, dt, r.TickCount)
}

// tickChests advances in-progress opening countdowns and resolves drops
// once a chest's timer reaches zero, per spec.md §4.9/§6.
func (r *Room) tickChests(dt float64) {
	for id, c := range r.Chests {
		if c.State != sim.ChestOpening {
			continue
		}
		c.OpeningTimeLeft -= dt
		if c.OpeningTimeLeft > 0 {
			continue
		}
		c.State = sim.ChestOpened
		c.OpeningTimeLeft = 0
		c.Drops = r.rollChestDrops(id, c.Variant == sim.ChestGold)
		if c.Variant == sim.ChestGold {
			c.ArtifactOnGround = false
			c.ArtifactCarriedBy = ""
		}
		r.emit(eventbus.ChestOpened, c.StartedBy, eventbus.ChestOpenedPayload{ChestID: id, PlayerID: c.StartedBy, Drops: c.Drops})
	}
}

func (r *Room) rollChestDrops(chestID string, bossOnly bool) []sim.InventoryItem {
	rng := loot.NewLCG(r.WorldSeed, loot.HashID(chestID))
	count := 1
	if bossOnly {
		count = 3
	}
	drops := make([]sim.InventoryItem, 0, count)
	for i := 0; i < count; i++ {
		drops = append(drops, r.dropTable.Roll(rng, bossOnly))
	}
	return drops
}

// OpenChest starts a chest's opening countdown (spec.md §6's
// `openChest{chestId}`). No-op and returns false if the chest doesn't
// exist or is already opening/opened.
func (r *Room) OpenChest(playerID, chestID string) bool {
	c := r.Chests[chestID]
	if c == nil || c.State != sim.ChestSealed {
		return false
	}
	c.State = sim.ChestOpening
	c.StartedBy = playerID
	if c.Variant == sim.ChestGold {
		c.OpeningTimeTotal = goldChestOpenSeconds
	} else {
		c.OpeningTimeTotal = brownChestOpenSeconds
	}
	c.OpeningTimeLeft = c.OpeningTimeTotal
	return true
}

// CancelOpenChest aborts an in-progress chest opening, restoring
// timeLeft=0/opening=false with no drops emitted (spec.md §6 edge case).
func (r *Room) CancelOpenChest(playerID, chestID string) {
	c := r.Chests[chestID]
	if c == nil || c.State != sim.ChestOpening || c.StartedBy != playerID {
		return
	}
	c.State = sim.ChestSealed
	c.OpeningTimeLeft = 0
	c.OpeningTimeTotal = 0
	c.StartedBy = ""
}

// PickUpArtifact lets a player carry a gold chest's on-ground artifact
// (spec.md §6's `pickUpArtifact{chestId}`; invariant: carried, on-ground
// or sealed are mutually exclusive).
func (r *Room) PickUpArtifact(playerID, chestID string) bool {
	c := r.Chests[chestID]
	if c == nil || c.Variant != sim.ChestGold || !c.ArtifactOnGround {
		return false
	}
	c.ArtifactOnGround = false
	c.ArtifactCarriedBy = playerID
	r.emit(eventbus.ArtifactPickedUp, playerID, eventbus.ArtifactPickedUpPayload{ChestID: chestID, PlayerID: playerID})
	return true
}

// DropArtifact releases the carried artifact onto the ground at the
// carrier's current position (spec.md §6's `dropArtifact`). Also cancels
// an in-progress extraction if the artifact was the one carried for it
// (spec.md S3: "artifact drops outside zone, timer cancels").
func (r *Room) DropArtifact(playerID string) {
	p := r.Players[playerID]
	if p == nil {
		return
	}
	for id, c := range r.Chests {
		if c.ArtifactCarriedBy != playerID {
			continue
		}
		c.ArtifactCarriedBy = ""
		c.ArtifactOnGround = true
		c.ArtifactX, c.ArtifactY = p.X, p.Y
		r.emit(eventbus.ArtifactDropped, playerID, eventbus.ArtifactDroppedPayload{ChestID: id, X: p.X, Y: p.Y})
		if r.ExtractionActive && id == r.ExtractionArtifactChest {
			r.CancelExtraction()
		}
	}
}

// PurchaseShopItem validates funds and applies a shop purchase (spec.md
// §6's `purchaseShopItem{itemIndex}`, §4.9's purchase contract).
func (r *Room) PurchaseShopItem(playerID string, itemIndex int) bool {
	p := r.Players[playerID]
	if p == nil || itemIndex < 0 || itemIndex >= len(r.Shop) {
		return false
	}
	item := r.Shop[itemIndex]
	ok := loot.Purchase(p, item, item.PriceVP > 0 && item.PriceDucats == 0)
	r.emit(eventbus.ShopPurchase, playerID, eventbus.ShopPurchasePayload{PlayerID: playerID, ItemIndex: itemIndex, Success: ok})
	return ok
}

// SendNPCDot tags a friendly/neutral NPC with a client-declared DOT
// (spec.md §6's `sendNPCDot{npcServerId,dps,duration}`).
func (r *Room) SendNPCDot(npcID string, dps, duration float64) bool {
	n := r.NPCs[npcID]
	if n == nil || !n.Alive() {
		return false
	}
	n.ApplyDOT("npc_dot", dps, duration)
	r.emit(eventbus.NPCDotApplied, "", eventbus.NPCDotAppliedPayload{NPCID: npcID, DPS: dps, Duration: duration})
	return true
}

// PlaceAbility records a new ability marker for a player, enforcing the
// per-player cap named in spec.md's ValidationError example ("placing an
// ability over cap").
func (r *Room) PlaceAbility(id, ownerID, kind string, x, y, angle float64, progression int) bool {
	if r.abilityCountFor(ownerID) >= abilityCapPerPlayer {
		return false
	}
	r.Abilities[id] = &sim.Ability{
		ID: id, OwnerID: ownerID, Kind: kind,
		X: x, Y: y, Angle: angle, Progression: progression,
		PlacedAt: r.simTime,
	}
	r.emit(eventbus.AbilityPlaced, ownerID, eventbus.AbilityPlacedPayload{AbilityID: id, OwnerID: ownerID, Kind: kind, X: x, Y: y})
	return true
}

func (r *Room) abilityCountFor(ownerID string) int {
	n := 0
	for _, a := range r.Abilities {
		if a.OwnerID == ownerID {
			n++
		}
	}
	return n
}

// AbilityDotDamage applies a client-reported ability DOT tick to a target
// player, revalidating PvP alignment server-side (spec.md §6's
// `abilityDotDamage{abilityId,targetPlayerId,dps,duration}`: "PvP; server
// revalidates alignment").
func (r *Room) AbilityDotDamage(abilityID, targetPlayerID string, dps, duration float64) bool {
	ability := r.Abilities[abilityID]
	target := r.Players[targetPlayerID]
	if ability == nil || target == nil || !target.Alive() {
		return false
	}
	owner := r.Players[ability.OwnerID]
	if owner == nil || owner.Evil == target.Evil {
		return false
	}
	target.ApplyDOT("ability_"+ability.Kind, dps, duration)
	return true
}

func (r *Room) tickZonesAndHordes(dt float64) {
	if r.Zones == nil {
		return
	}
	var positions [][2]float64
	for _, p := range r.Players {
		if p.Alive() {
			positions = append(positions, [2]float64{p.X, p.Y})
		}
	}
	if len(positions) == 0 {
		return
	}
	for _, pos := range positions {
		if r.Zones.Due(r.ID, r.simTime, r.ExtractionActive) {
			plan := r.Zones.SpawnHorde(1, pos[0], pos[1], r.ExtractionActive, positions)
			for i, sp := range plan {
				id := fmt.Sprintf("%s_enemy_%d_%d", r.ID, r.TickCount, i)
				r.Enemies[id] = &sim.Enemy{ID: id, Type: sp.Type, X: sp.X, Y: sp.Y, Radius: 20, Health: 30, HealthMax: 30, SpeedMul: 1}
			}
		}
	}
}

func (r *Room) tickExtractionTimer(dt float64) {
	if !r.ExtractionActive {
		return
	}
	r.ExtractionTimeLeft -= dt
	if r.ExtractionTimeLeft <= 0 {
		r.ExtractionActive = false
		r.awardVictoryPoints()
		r.Phase = PhaseLobby
		r.TransitionToLobby()
	}
}

// awardVictoryPoints grants the mission-clear Victory Points bonus to
// every connected player, updates the room's leaderboard, and emits
// MissionComplete with the resulting standings (spec.md §4.8: "on
// completion computes Victory Points ... holds room on accomplishment
// screen until manual return to lobby").
func (r *Room) awardVictoryPoints() {
	for _, p := range r.Players {
		p.VictoryPoints += missionVictoryPointsAward
		r.Leaderboard.UpdatePlayer(p.ID, p.VictoryPoints)
	}

	standings := make([]eventbus.LeaderboardStanding, 0, len(r.Players))
	for _, e := range r.Leaderboard.Top(len(r.Players)) {
		standings = append(standings, eventbus.LeaderboardStanding{
			PlayerID: e.PlayerID, VictoryPoints: e.VictoryPoints, Rank: e.Rank,
		})
	}
	r.emit(eventbus.MissionComplete, "", eventbus.MissionCompletePayload{Standings: standings})
}

// RequestExtraction starts the extraction countdown if the given player
// is carrying the artifact (spec.md §4.8's extraction validation). heretic
// selects the heretic extraction path over the normal one.
//
// TODO: heretic extraction is supposed to require a conversion state the
// server doesn't yet track (spec.md §9 marks this an open TODO in the
// source it was distilled from); for now the client's requested type is
// trusted as-is.
func (r *Room) RequestExtraction(playerID string, seconds float64, heretic bool) bool {
	if r.Phase != PhaseLevel {
		return false
	}
	chest := r.Chests[r.ExtractionArtifactChest]
	if chest == nil || chest.ArtifactCarriedBy != playerID {
		return false
	}
	r.Phase = PhaseExtraction
	r.ExtractionActive = true
	r.ExtractionTimeLeft = seconds
	r.Heretic = heretic
	return true
}

// CancelExtraction cancels an in-progress extraction, e.g. because the
// artifact dropped outside the zone.
func (r *Room) CancelExtraction() {
	r.ExtractionActive = false
	r.Phase = PhaseLevel
}

// TransitionToLevel clears groundItems (here: re-initializes chests) and
// moves the room into the level phase, per spec.md's scene-transition
// invariant.
func (r *Room) TransitionToLevel(levelType string) {
	r.Phase = PhaseLevel
	r.LevelType = levelType
	r.Chests = make(map[string]*sim.Chest)
	r.Zones.SetZoneConfig(r.ID, zone.HordeConfig{
		ForwardIntervalMin: 20, ForwardIntervalMax: 35,
		ReturnIntervalMin: 8, ReturnIntervalMax: 15,
	})
}

// TransitionToLobby clears all level entities (enemies, troops, chests,
// hazards) while preserving the world seed, per spec.md's scene-
// transition invariant.
func (r *Room) TransitionToLobby() {
	r.Phase = PhaseLobby
	r.Enemies = make(map[string]*sim.Enemy)
	r.Chests = make(map[string]*sim.Chest)
	r.Abilities = make(map[string]*sim.Ability)
	r.Hazards = hazard.New(r.Env, r.Bus, r.ID)
	r.Troops = troop.New(r.Env, r.Bus, r.ID, r.rng)
}

// AddPlayer registers a new player, or marks an existing disconnected
// record live again.
func (r *Room) AddPlayer(id, name string) *sim.Player {
	if existing := r.Players[id]; existing != nil {
		return existing
	}
	p := sim.NewPlayer(id, name, 0, 0, 100, 100)
	loot.RecomputeStats(p)
	r.Players[id] = p
	r.everHadPlayer = true
	r.Leaderboard.UpdatePlayer(id, p.VictoryPoints)
	return p
}

// RemovePlayer removes a player's entity at end of current tick, per
// spec.md §5's disconnection semantics.
func (r *Room) RemovePlayer(id string) {
	delete(r.Players, id)
	r.Leaderboard.Remove(id)
}

// IsEmpty reports whether the room currently has no connected players.
func (r *Room) IsEmpty() bool { return len(r.Players) == 0 }

func (r *Room) sampleBroadcasts() {
	w, _ := r.pool.AcquireWrite()
	*w = replication.BuildRoomSnapshot(r.Players, r.Chests, r.Hazards.Map(), TimersView(r), r.Shop)
	r.pool.PublishWrite()

	if r.sampler.DueEnemies(r.TickCount) {
		r.emit(eventbus.EnemiesState, "", replication.BuildEnemiesState(r.Enemies))
	}
	if r.sampler.DueTroops(r.TickCount) {
		r.emit(eventbus.TroopsState, "", replication.BuildTroopsState(r.Troops))
	}
	if r.sampler.DueNPCs(r.TickCount) {
		r.emit(eventbus.NPCsState, "", replication.BuildNPCsState(r.NPCs))
	}
	if r.Hazards.Dirty() {
		r.emit(eventbus.HazardsState, "", replication.BuildHazardsState(r.Hazards.Map()))
		r.Hazards.ClearDirty()
	}
}

// TimersView adapts a Room's timer fields into replication.TimersView.
func TimersView(r *Room) replication.TimersView {
	return replication.TimersView{
		ReadyTimeLeft:      r.ReadyTimeLeft,
		ReadyActive:        r.ReadyActive,
		ExtractionTimeLeft: r.ExtractionTimeLeft,
		ExtractionActive:   r.ExtractionActive,
	}
}

func (r *Room) emit(t eventbus.Type, playerID string, payload interface{}) {
	ev := eventbus.New(t, r.ID, r.TickCount, playerID, payload)
	r.outbound.TryPush(ev)
	if r.Bus != nil {
		r.Bus.Emit(ev)
	}
}

// Manager creates, discovers and reaps rooms, grounded on the teacher's
// TeamManager mutex-map idiom generalized to room lifecycle.
type Manager struct {
	mu          sync.RWMutex
	rooms       map[string]*Room
	reapGrace   time.Duration
	width, height float64
}

// NewManager returns a Manager with the given empty-room reap grace
// period and world dimensions for newly created rooms.
func NewManager(reapGrace time.Duration, width, height float64) *Manager {
	return &Manager{rooms: make(map[string]*Room), reapGrace: reapGrace, width: width, height: height}
}

// CreateRoom creates and starts a new room with a fresh world seed.
func (m *Manager) CreateRoom(id string, worldSeed int64) *Room {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := New(id, worldSeed, m.width, m.height)
	m.rooms[id] = r
	r.Start()
	return r
}

// GetRoom returns a room by ID, or nil.
func (m *Manager) GetRoom(id string) *Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.rooms[id]
}

// Rooms returns a snapshot slice of all live rooms.
func (m *Manager) Rooms() []*Room {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Room, 0, len(m.rooms))
	for _, r := range m.rooms {
		out = append(out, r)
	}
	return out
}

// ReapEmpty stops and removes rooms that have been empty for at least
// reapGrace, per spec.md §5's "room empties for a grace period" shutdown
// condition. Pass the current time so callers control the clock.
func (m *Manager) ReapEmpty(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var reaped []string
	for id, r := range m.rooms {
		if !r.everHadPlayer {
			continue
		}
		if r.IsEmpty() {
			if r.emptySince.IsZero() {
				r.emptySince = now
				continue
			}
			if now.Sub(r.emptySince) >= m.reapGrace {
				r.Stop()
				delete(m.rooms, id)
				reaped = append(reaped, id)
			}
		} else {
			r.emptySince = time.Time{}
		}
	}
	return reaped
}
