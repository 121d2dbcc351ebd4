package sim

import "testing"

func TestNewPlayer(t *testing.T) {
	p := NewPlayer("p1", "Alice", 100, 200, 150, 80)

	if p.ID != "p1" || p.Name != "Alice" {
		t.Fatalf("unexpected identity: %+v", p)
	}
	if p.Health != 150 || p.HealthMax != 150 {
		t.Errorf("expected health 150/150, got %d/%d", p.Health, p.HealthMax)
	}
	if p.Stamina != 80 || p.StaminaMax != 80 {
		t.Errorf("expected stamina 80/80, got %v/%v", p.Stamina, p.StaminaMax)
	}
	if !p.Alive() {
		t.Error("new player should be alive")
	}
	if p.WeaponID != "fists" {
		t.Errorf("expected default weapon fists, got %q", p.WeaponID)
	}
}

func TestPlayerApplyDOTRefreshesSameKind(t *testing.T) {
	p := NewPlayer("p1", "Alice", 0, 0, 100, 100)

	first := p.ApplyDOT("hazard_fire", 5, 3)
	if !first {
		t.Fatal("first application should report firstAcquired")
	}
	if len(p.DOTStacks) != 1 {
		t.Fatalf("expected 1 stack, got %d", len(p.DOTStacks))
	}

	second := p.ApplyDOT("hazard_fire", 8, 3)
	if second {
		t.Error("refresh of existing kind should not report firstAcquired")
	}
	if len(p.DOTStacks) != 1 {
		t.Fatalf("expected stack to refresh in place, got %d stacks", len(p.DOTStacks))
	}
	if p.DOTStacks[0].DPS != 8 {
		t.Errorf("expected dps to take the stronger value 8, got %v", p.DOTStacks[0].DPS)
	}
}

func TestPlayerApplyDOTDistinctKindsSum(t *testing.T) {
	p := NewPlayer("p1", "Alice", 0, 0, 100, 100)
	p.ApplyDOT("hazard_fire", 5, 3)
	p.ApplyDOT("hazard_gas", 2, 5)

	if len(p.DOTStacks) != 2 {
		t.Fatalf("expected 2 distinct stacks, got %d", len(p.DOTStacks))
	}
}

func TestPlayerTickDOTExpiresAndDamages(t *testing.T) {
	p := NewPlayer("p1", "Alice", 0, 0, 100, 100)
	p.ApplyDOT("hazard_fire", 10, 0.5)

	expired, damage := p.TickDOT(0.3)
	if len(expired) != 0 {
		t.Errorf("stack should still be live, got expired=%v", expired)
	}
	if damage != 3 {
		t.Errorf("expected 10*0.3=3 damage, got %d", damage)
	}

	expired, _ = p.TickDOT(0.3)
	if len(expired) != 1 || expired[0] != "hazard_fire" {
		t.Errorf("expected hazard_fire to expire, got %v", expired)
	}
	if len(p.DOTStacks) != 0 {
		t.Errorf("expired stack should be removed, got %d remaining", len(p.DOTStacks))
	}
}

func TestCombatStateUpdateTimers(t *testing.T) {
	c := &CombatState{ComboCount: 2, ComboWindow: 1, DodgeTimer: 1, DodgeCooldown: 2, InvulnFrames: 1, IsDodging: true}

	c.UpdateTimers()

	if c.ComboWindow != 0 || c.ComboCount != 0 {
		t.Errorf("expected combo to reset when window expires, got count=%d window=%d", c.ComboCount, c.ComboWindow)
	}
	if c.IsDodging {
		t.Error("expected dodge to end when DodgeTimer reaches 0")
	}
	if c.DodgeCooldown != 1 {
		t.Errorf("expected cooldown to tick down to 1, got %d", c.DodgeCooldown)
	}
	if c.IsInvulnerable() {
		t.Error("expected invuln to expire")
	}
}

func TestChestArtifactHeldState(t *testing.T) {
	c := &Chest{ID: "c1", Variant: ChestGold}
	if got := c.ArtifactHeldState(); got != "sealed" {
		t.Errorf("expected sealed, got %q", got)
	}

	c.ArtifactCarriedBy = "p1"
	if got := c.ArtifactHeldState(); got != "carried" {
		t.Errorf("expected carried, got %q", got)
	}

	c.ArtifactCarriedBy = ""
	c.ArtifactOnGround = true
	if got := c.ArtifactHeldState(); got != "ground" {
		t.Errorf("expected ground, got %q", got)
	}
}

func TestEnemyTypeString(t *testing.T) {
	cases := map[EnemyType]string{
		EnemyBasic:      "basic",
		EnemyProjectile: "projectile",
		EnemyLicker:     "licker",
		EnemyBoomer:     "boomer",
		EnemyBigboy:     "bigboy",
		EnemyWallguy:    "wallguy",
	}
	for k, want := range cases {
		if got := k.String(); got != want {
			t.Errorf("EnemyType(%d).String() = %q, want %q", k, got, want)
		}
	}
}

func TestHazardBreakable(t *testing.T) {
	if !(&Hazard{Kind: HazardSandbag}).Breakable() {
		t.Error("sandbag should be breakable")
	}
	if !(&Hazard{Kind: HazardExplodingBarrel}).Breakable() {
		t.Error("exploding barrel should be breakable")
	}
	if (&Hazard{Kind: HazardMudPool}).Breakable() {
		t.Error("mud pool should not be breakable")
	}
}

func TestDistanceTo(t *testing.T) {
	if got := DistanceTo(0, 0, 3, 4); got != 5 {
		t.Errorf("expected 3-4-5 triangle distance 5, got %v", got)
	}
}
