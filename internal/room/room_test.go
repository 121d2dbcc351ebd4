package room

import (
	"testing"
	"time"

	"dropzone/internal/eventbus"
	"dropzone/internal/sim"
)

func newTestRoom() *Room {
	return New("room1", 42, 1000, 1000)
}

func TestAddPlayerRemovePlayerIsEmpty(t *testing.T) {
	r := newTestRoom()
	if !r.IsEmpty() {
		t.Fatal("expected new room to be empty")
	}

	p := r.AddPlayer("p1", "Alice")
	if p == nil || r.IsEmpty() {
		t.Fatal("expected player to be added")
	}
	if !r.everHadPlayer {
		t.Fatal("expected everHadPlayer to be set")
	}

	// Re-adding the same ID returns the existing record, not a new one.
	again := r.AddPlayer("p1", "Alice")
	if again != p {
		t.Fatal("expected AddPlayer to return the existing player record")
	}

	r.RemovePlayer("p1")
	if !r.IsEmpty() {
		t.Fatal("expected room to be empty after removing its only player")
	}
}

func TestReadyTimerOnlyRunsInLobby(t *testing.T) {
	r := newTestRoom()
	r.StartReadyTimer()
	if !r.ReadyActive {
		t.Fatal("expected ready timer to start in lobby")
	}

	r.Phase = PhaseLevel
	r.CancelReadyTimer()
	r.Phase = PhaseLevel
	r.StartReadyTimer()
	if r.ReadyActive {
		t.Fatal("expected StartReadyTimer to no-op outside the lobby phase")
	}
}

func TestReadyTimerExpiryTransitionsToLevel(t *testing.T) {
	r := newTestRoom()
	r.StartReadyTimer()
	r.ReadyTimeLeft = TickDt / 2

	r.Tick(TickDt)

	if r.Phase != PhaseLevel {
		t.Fatalf("expected phase to be level after ready timer expiry, got %s", r.Phase)
	}
	if r.ReadyActive {
		t.Fatal("expected ready timer to be inactive after expiry")
	}
}

func TestTransitionToLevelClearsChestsAndRegistersZoneConfig(t *testing.T) {
	r := newTestRoom()
	r.Chests["c1"] = &sim.Chest{ID: "c1"}

	r.TransitionToLevel("extraction")

	if r.Phase != PhaseLevel {
		t.Fatalf("expected level phase, got %s", r.Phase)
	}
	if len(r.Chests) != 0 {
		t.Fatal("expected chests cleared on lobby->level transition")
	}
	if !r.Zones.Due(r.ID, 10000, false) {
		t.Fatal("expected zone config to be registered so Due can fire")
	}
}

func TestTransitionToLobbyClearsLevelEntities(t *testing.T) {
	r := newTestRoom()
	r.TransitionToLevel("extraction")
	r.Enemies["e1"] = &sim.Enemy{ID: "e1", Health: 10}
	r.Chests["c1"] = &sim.Chest{ID: "c1"}
	r.Hazards.Add(&sim.Hazard{ID: "h1", Kind: sim.HazardMudPool})

	r.TransitionToLobby()

	if r.Phase != PhaseLobby {
		t.Fatalf("expected lobby phase, got %s", r.Phase)
	}
	if len(r.Enemies) != 0 || len(r.Chests) != 0 || len(r.Hazards.All()) != 0 {
		t.Fatal("expected enemies/chests/hazards cleared on level->lobby transition")
	}
}

func TestRequestExtractionRequiresArtifactCarrier(t *testing.T) {
	r := newTestRoom()
	r.TransitionToLevel("extraction")
	r.ExtractionArtifactChest = "c1"
	r.Chests["c1"] = &sim.Chest{ID: "c1"}

	if r.RequestExtraction("p1", 30, false) {
		t.Fatal("expected RequestExtraction to fail without the artifact")
	}

	r.Chests["c1"].ArtifactCarriedBy = "p1"
	if !r.RequestExtraction("p1", 30, false) {
		t.Fatal("expected RequestExtraction to succeed once p1 carries the artifact")
	}
	if r.Phase != PhaseExtraction || !r.ExtractionActive {
		t.Fatal("expected extraction phase to be active")
	}
}

func TestExtractionTimerExpiryReturnsToLobby(t *testing.T) {
	r := newTestRoom()
	r.TransitionToLevel("extraction")
	r.ExtractionArtifactChest = "c1"
	r.Chests["c1"] = &sim.Chest{ID: "c1", ArtifactCarriedBy: "p1"}
	r.RequestExtraction("p1", TickDt/2, false)

	r.Tick(TickDt)

	if r.Phase != PhaseLobby {
		t.Fatalf("expected phase to return to lobby after extraction timer expiry, got %s", r.Phase)
	}
	if r.ExtractionActive {
		t.Fatal("expected extraction to be inactive after expiry")
	}
}

func TestCancelExtractionReturnsToLevel(t *testing.T) {
	r := newTestRoom()
	r.TransitionToLevel("extraction")
	r.ExtractionArtifactChest = "c1"
	r.Chests["c1"] = &sim.Chest{ID: "c1", ArtifactCarriedBy: "p1"}
	r.RequestExtraction("p1", 30, false)

	r.CancelExtraction()

	if r.Phase != PhaseLevel || r.ExtractionActive {
		t.Fatal("expected CancelExtraction to revert to the level phase")
	}
}

func TestTickSmokeAdvancesCountAndPublishesSnapshot(t *testing.T) {
	r := newTestRoom()
	r.AddPlayer("p1", "Alice")

	r.Tick(TickDt)

	if r.TickCount != 1 {
		t.Fatalf("expected tick count 1, got %d", r.TickCount)
	}
	snap := r.Snapshot()
	if snap == nil || len(snap.Players) != 1 {
		t.Fatalf("expected a published snapshot with one player, got %+v", snap)
	}
}

func TestSubmitInputMovesPlayer(t *testing.T) {
	r := newTestRoom()
	p := r.AddPlayer("p1", "Alice")
	startX, startY := p.X, p.Y

	r.SubmitInput(Input{PlayerID: "p1", MoveX: 1, MoveY: 0})
	r.Tick(TickDt)

	if p.X == startX && p.Y == startY {
		t.Fatal("expected player position to change after a movement input")
	}
}

func TestHazardsStateEmittedOnlyOnChange(t *testing.T) {
	r := newTestRoom()
	r.TransitionToLevel("")

	r.Tick(TickDt)
	firstDrain := r.DrainOutbound(100)
	if countHazardsState(firstDrain) != 0 {
		t.Fatalf("expected no hazardsState before any hazard table change, got %d", countHazardsState(firstDrain))
	}

	r.Hazards.Add(&sim.Hazard{ID: "h1", Kind: sim.HazardSandbag, Health: 10})
	r.Tick(TickDt)
	secondDrain := r.DrainOutbound(100)
	if countHazardsState(secondDrain) != 1 {
		t.Fatalf("expected a hazardsState after adding a hazard, got %d", countHazardsState(secondDrain))
	}

	r.Tick(TickDt)
	thirdDrain := r.DrainOutbound(100)
	if countHazardsState(thirdDrain) != 0 {
		t.Fatalf("expected no hazardsState when hazard table is unchanged, got %d", countHazardsState(thirdDrain))
	}
}

func countHazardsState(events []eventbus.Event) int {
	n := 0
	for _, e := range events {
		if e.Type.String() == "hazardsState" {
			n++
		}
	}
	return n
}

func TestOpenChestTicksDownAndResolvesDrops(t *testing.T) {
	r := newTestRoom()
	r.TransitionToLevel("")
	r.Chests["c1"] = &sim.Chest{ID: "c1", Variant: sim.ChestBrown, State: sim.ChestSealed}

	if !r.OpenChest("p1", "c1") {
		t.Fatal("expected OpenChest to succeed on a sealed chest")
	}
	if r.Chests["c1"].State != sim.ChestOpening {
		t.Fatal("expected chest to enter the opening state")
	}

	r.Chests["c1"].OpeningTimeLeft = TickDt / 2
	r.Tick(TickDt)

	c := r.Chests["c1"]
	if c.State != sim.ChestOpened {
		t.Fatalf("expected chest to be opened after its timer expires, got %v", c.State)
	}
	if len(c.Drops) == 0 {
		t.Fatal("expected resolved drops once the chest opens")
	}
}

func TestOpenChestRejectsAlreadyOpening(t *testing.T) {
	r := newTestRoom()
	r.Chests["c1"] = &sim.Chest{ID: "c1", State: sim.ChestOpening}

	if r.OpenChest("p1", "c1") {
		t.Fatal("expected OpenChest to refuse a chest that's already opening")
	}
}

func TestCancelOpenChestRestoresSealed(t *testing.T) {
	r := newTestRoom()
	r.Chests["c1"] = &sim.Chest{ID: "c1", State: sim.ChestSealed}
	r.OpenChest("p1", "c1")

	r.CancelOpenChest("p1", "c1")

	c := r.Chests["c1"]
	if c.State != sim.ChestSealed || c.OpeningTimeLeft != 0 {
		t.Fatalf("expected cancel to restore sealed state with no time left, got %+v", c)
	}
}

func TestPickUpAndDropArtifact(t *testing.T) {
	r := newTestRoom()
	p := r.AddPlayer("p1", "Alice")
	p.X, p.Y = 50, 60
	r.Chests["c1"] = &sim.Chest{ID: "c1", Variant: sim.ChestGold, ArtifactOnGround: true}

	if !r.PickUpArtifact("p1", "c1") {
		t.Fatal("expected PickUpArtifact to succeed")
	}
	if r.Chests["c1"].ArtifactCarriedBy != "p1" || r.Chests["c1"].ArtifactOnGround {
		t.Fatal("expected artifact to be carried, not on ground, after pickup")
	}

	r.DropArtifact("p1")

	c := r.Chests["c1"]
	if c.ArtifactCarriedBy != "" || !c.ArtifactOnGround {
		t.Fatal("expected artifact back on ground after drop")
	}
	if c.ArtifactX != 50 || c.ArtifactY != 60 {
		t.Fatalf("expected artifact dropped at carrier position, got (%v,%v)", c.ArtifactX, c.ArtifactY)
	}
}

func TestDropArtifactCancelsActiveExtraction(t *testing.T) {
	r := newTestRoom()
	r.TransitionToLevel("extraction")
	r.AddPlayer("p1", "Alice")
	r.ExtractionArtifactChest = "c1"
	r.Chests["c1"] = &sim.Chest{ID: "c1", ArtifactCarriedBy: "p1"}
	r.RequestExtraction("p1", 30, false)

	r.DropArtifact("p1")

	if r.ExtractionActive || r.Phase != PhaseLevel {
		t.Fatal("expected dropping the extraction artifact to cancel extraction")
	}
}

func TestPurchaseShopItemDeductsFunds(t *testing.T) {
	r := newTestRoom()
	p := r.AddPlayer("p1", "Alice")
	p.Ducats = 10000
	if len(r.Shop) == 0 {
		t.Fatal("expected a non-empty shop roll")
	}
	r.Shop[0].PriceDucats = 100
	r.Shop[0].PriceVP = 0

	if !r.PurchaseShopItem("p1", 0) {
		t.Fatal("expected purchase to succeed with sufficient funds")
	}
	if p.Ducats != 9900 {
		t.Fatalf("expected ducats deducted, got %d", p.Ducats)
	}
}

func TestPurchaseShopItemFailsWithoutFunds(t *testing.T) {
	r := newTestRoom()
	p := r.AddPlayer("p1", "Alice")
	p.Ducats = 0
	r.Shop[0].PriceDucats = 100
	r.Shop[0].PriceVP = 0

	if r.PurchaseShopItem("p1", 0) {
		t.Fatal("expected purchase to fail without sufficient funds")
	}
}

func TestSendNPCDotAppliesToLiveNPCOnly(t *testing.T) {
	r := newTestRoom()
	r.NPCs["n1"] = &sim.NPC{ID: "n1", Health: 10, HealthMax: 10}

	if !r.SendNPCDot("n1", 5, 2) {
		t.Fatal("expected SendNPCDot to succeed against a live NPC")
	}
	if len(r.NPCs["n1"].DOTStacks) != 1 {
		t.Fatal("expected a DOT stack applied to the NPC")
	}

	r.NPCs["n2"] = &sim.NPC{ID: "n2", Health: 0, HealthMax: 10}
	if r.SendNPCDot("n2", 5, 2) {
		t.Fatal("expected SendNPCDot to fail against a dead NPC")
	}
}

func TestPlaceAbilityEnforcesPerPlayerCap(t *testing.T) {
	r := newTestRoom()
	for i := 0; i < 3; i++ {
		if !r.PlaceAbility(string(rune('a'+i)), "p1", "smoke", 0, 0, 0, 0) {
			t.Fatalf("expected ability %d to be placed under the cap", i)
		}
	}
	if r.PlaceAbility("over", "p1", "smoke", 0, 0, 0, 0) {
		t.Fatal("expected placing an ability over cap to fail")
	}
}

func TestAbilityDotDamageRevalidatesAlignment(t *testing.T) {
	r := newTestRoom()
	owner := r.AddPlayer("owner", "Owner")
	owner.Evil = true
	sameSide := r.AddPlayer("ally", "Ally")
	sameSide.Evil = true
	opposing := r.AddPlayer("enemy", "Enemy")
	opposing.Evil = false

	r.PlaceAbility("a1", "owner", "mine", 0, 0, 0, 0)

	if r.AbilityDotDamage("a1", "ally", 5, 2) {
		t.Fatal("expected abilityDotDamage to reject same-alignment targets")
	}
	if !r.AbilityDotDamage("a1", "enemy", 5, 2) {
		t.Fatal("expected abilityDotDamage to succeed against an opposing-alignment target")
	}
}

func TestManagerCreateGetAndReapEmpty(t *testing.T) {
	m := NewManager(time.Minute, 1000, 1000)

	r := m.CreateRoom("room1", 1)
	defer r.Stop()

	if m.GetRoom("room1") != r {
		t.Fatal("expected GetRoom to return the created room")
	}
	if len(m.Rooms()) != 1 {
		t.Fatalf("expected one room, got %d", len(m.Rooms()))
	}

	// A never-joined room is not reaped even though it's empty.
	base := time.Now()
	if reaped := m.ReapEmpty(base.Add(time.Hour)); len(reaped) != 0 {
		t.Fatalf("expected a never-joined room not to be reaped, got %v", reaped)
	}

	r.AddPlayer("p1", "Alice")
	r.RemovePlayer("p1")

	if reaped := m.ReapEmpty(base.Add(time.Second)); len(reaped) != 0 {
		t.Fatalf("expected no reap before the grace period elapses, got %v", reaped)
	}
	if reaped := m.ReapEmpty(base.Add(2 * time.Minute)); len(reaped) != 1 {
		t.Fatalf("expected the room to be reaped after the grace period, got %v", reaped)
	}
	if m.GetRoom("room1") != nil {
		t.Fatal("expected the reaped room to be removed from the manager")
	}
}
