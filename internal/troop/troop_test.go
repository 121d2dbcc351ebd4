package troop

import (
	"math/rand"
	"testing"

	"dropzone/internal/env"
	"dropzone/internal/sim"
)

func newController() *Controller {
	return New(env.New(2000, 2000, 64), nil, "room1", rand.New(rand.NewSource(1)))
}

func TestTickSpawnsCyclesTypesAndRespectsCap(t *testing.T) {
	c := newController()
	c.AddBarracks(&Barracks{ID: "b1", AnchorX: 500, AnchorY: 500, Cap: 2})

	seq := 0
	newID := func() string { seq++; return "t" + string(rune('0'+seq)) }

	c.TickSpawns(0, newID)
	if len(c.troops) != 1 {
		t.Fatalf("expected 1 troop spawned, got %d", len(c.troops))
	}

	c.TickSpawns(10, newID)
	if len(c.troops) != 2 {
		t.Fatalf("expected 2 troops spawned, got %d", len(c.troops))
	}

	b := c.barracks["b1"]
	if !b.Locked {
		t.Error("expected barracks to lock once cap is reached")
	}

	c.TickSpawns(20, newID)
	if len(c.troops) != 2 {
		t.Error("locked barracks should not spawn further troops")
	}
}

func TestUnlockPhase1(t *testing.T) {
	c := newController()
	c.AddBarracks(&Barracks{ID: "b1", AnchorX: 0, AnchorY: 0, Cap: 1, Locked: true})

	c.UnlockPhase1("b1")

	b := c.barracks["b1"]
	if b.Phase != 1 || b.Locked {
		t.Errorf("expected barracks unlocked into phase 1, got phase=%d locked=%v", b.Phase, b.Locked)
	}
}

func TestGrenadeDamageAtFalloff(t *testing.T) {
	if got := GrenadeDamageAt(0); got != grenadierDamageInner {
		t.Errorf("expected full inner damage at center, got %d", got)
	}
	if got := GrenadeDamageAt(grenadierRadius); got != 0 {
		t.Errorf("expected zero damage at edge, got %d", got)
	}
}

func TestAttackMeleeSetsCooldownAndDamageRange(t *testing.T) {
	c := newController()
	tr := &sim.Troop{ID: "t1", Type: sim.TroopMelee}

	out := c.Attack(tr, "enemy1", 10, 10, 0, true, false)

	if out.Damage < meleeDamageMin || out.Damage > meleeDamageMax {
		t.Errorf("melee damage %d out of expected range [%d,%d]", out.Damage, meleeDamageMin, meleeDamageMax)
	}
	if tr.AttackCooldown < meleeCooldownMin || tr.AttackCooldown > meleeCooldownMax {
		t.Errorf("melee cooldown %v out of expected range", tr.AttackCooldown)
	}
}

func TestAttackRangedBlockedDealsNoDamage(t *testing.T) {
	c := newController()
	tr := &sim.Troop{ID: "t1", Type: sim.TroopRanged}

	out := c.Attack(tr, "enemy1", 500, 0, 0, false, false)

	if !out.Blocked || out.Damage != 0 {
		t.Errorf("expected blocked shot with no damage, got %+v", out)
	}
}

func TestReportWallHitMergesNearbyZone(t *testing.T) {
	c := newController()
	c.ReportWallHit(100, 100, 0)
	c.ReportWallHit(110, 105, 0) // within mergeDistance

	if len(c.zones) != 1 {
		t.Errorf("expected nearby wall hits to merge into one zone, got %d", len(c.zones))
	}
}

func TestTickZonesPromotesToRedAfterContinuousOccupancy(t *testing.T) {
	c := newController()
	c.ReportWallHit(0, 0, 0)

	var id string
	for k := range c.zones {
		id = k
	}

	occupied := map[string]bool{id: true}
	for i := 0; i < 25; i++ {
		c.TickZones(0.1, occupied)
	}

	z := c.zones[id]
	if z == nil {
		t.Fatal("zone should still exist")
	}
	if z.Kind != sim.ZoneStuck {
		t.Errorf("expected promotion to stuck zone after 2s occupancy, got kind=%v", z.Kind)
	}
}

func TestTickZonesExpiresUnoccupied(t *testing.T) {
	c := newController()
	c.ReportWallHit(0, 0, 0)
	var id string
	for k := range c.zones {
		id = k
	}

	for i := 0; i < 30; i++ {
		c.TickZones(0.1, map[string]bool{})
	}

	if _, ok := c.zones[id]; ok {
		t.Error("expected unoccupied zone to expire")
	}
}
