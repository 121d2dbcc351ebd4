package replication

import (
	"math/rand"
	"testing"

	"dropzone/internal/env"
	"dropzone/internal/sim"
	"dropzone/internal/troop"
)

func TestBuildRoomSnapshotShapesPlayersChestsHazardsAndBalances(t *testing.T) {
	players := map[string]*sim.Player{
		"p1": sim.NewPlayer("p1", "Alice", 10, 20, 100, 100),
	}
	players["p1"].Ducats = 50
	chests := map[string]*sim.Chest{
		"c1": {ID: "c1", Variant: sim.ChestGold, State: sim.ChestSealed},
	}
	hazards := map[string]*sim.Hazard{
		"h1": {ID: "h1", Kind: sim.HazardMudPool, Radius: 40},
	}

	snap := BuildRoomSnapshot(players, chests, hazards, TimersView{ReadyActive: true}, nil)

	if len(snap.Players) != 1 || snap.Players[0].ID != "p1" {
		t.Fatalf("expected 1 player view, got %+v", snap.Players)
	}
	if snap.PlayerBalances["p1"].Ducats != 50 {
		t.Errorf("expected balance to carry ducats, got %+v", snap.PlayerBalances["p1"])
	}
	if len(snap.Chests) != 1 || snap.Chests[0].Variant != "gold" {
		t.Errorf("expected gold chest view, got %+v", snap.Chests)
	}
	if len(snap.Hazards) != 1 || snap.Hazards[0].Kind != "mudPool" {
		t.Errorf("expected mudPool hazard view, got %+v", snap.Hazards)
	}
}

func TestBuildHazardsStateBucketsByKind(t *testing.T) {
	hazards := map[string]*sim.Hazard{
		"s1": {ID: "s1", Kind: sim.HazardSandbag},
		"b1": {ID: "b1", Kind: sim.HazardExplodingBarrel},
		"m1": {ID: "m1", Kind: sim.HazardMudPool},
	}

	s := BuildHazardsState(hazards)

	if len(s.Sandbags) != 1 || len(s.ExplodingBarrels) != 1 || len(s.MudPools) != 1 {
		t.Fatalf("expected one hazard in each relevant bucket, got %+v", s)
	}
	if len(s.FirePools) != 0 || len(s.GasCanisters) != 0 || len(s.BarbedWire) != 0 {
		t.Errorf("expected empty buckets for unused kinds, got %+v", s)
	}
}

func TestBuildEnemiesStateDerivesState(t *testing.T) {
	enemies := map[string]*sim.Enemy{
		"e1": {ID: "e1", Health: 10},
		"e2": {ID: "e2", Health: 10, Ring: sim.RingAssignment{Assigned: true}},
	}

	s := BuildEnemiesState(enemies)

	byID := map[string]EnemyView{}
	for _, v := range s.Enemies {
		byID[v.ID] = v
	}
	if byID["e1"].State != "idle" {
		t.Errorf("expected e1 idle, got %s", byID["e1"].State)
	}
	if byID["e2"].State != "engaging" {
		t.Errorf("expected e2 engaging, got %s", byID["e2"].State)
	}
}

func TestBuildTroopsStateIncludesBarracksAndZones(t *testing.T) {
	c := troop.New(env.New(1000, 1000, 64), nil, "room1", rand.New(rand.NewSource(1)))
	c.AddBarracks(&troop.Barracks{ID: "b1", AnchorX: 1, AnchorY: 2})
	c.ReportWallHit(5, 5, 0)

	s := BuildTroopsState(c)

	if len(s.Barracks) != 1 || s.Barracks[0].ID != "b1" {
		t.Errorf("expected barracks view, got %+v", s.Barracks)
	}
	if len(s.StuckZones) != 1 {
		t.Errorf("expected one stuck zone view, got %+v", s.StuckZones)
	}
}

func TestBuildNPCsState(t *testing.T) {
	npcs := map[string]*sim.NPC{
		"n1": {ID: "n1", X: 1, Y: 2, Health: 10},
	}
	s := BuildNPCsState(npcs)
	if len(s.NPCs) != 1 || s.NPCs[0].ID != "n1" {
		t.Fatalf("expected one npc view, got %+v", s.NPCs)
	}
}

func TestSamplerFiresAtApproximatelyTenHz(t *testing.T) {
	s := NewSampler(60.0)

	due := 0
	for tick := uint64(0); tick < 60; tick++ {
		if s.DueEnemies(tick) {
			due++
		}
	}
	if due < 9 || due > 11 {
		t.Errorf("expected enemiesState due count in [9,11] per wall-second, got %d", due)
	}
}

func TestSnapshotPoolReadReflectsLastPublishedWrite(t *testing.T) {
	p := NewSnapshotPool()

	w, _ := p.AcquireWrite()
	w.Timers.ReadyActive = true
	p.PublishWrite()

	read := p.AcquireRead()
	if !read.Timers.ReadyActive {
		t.Fatal("expected read snapshot to reflect the published write")
	}
}
